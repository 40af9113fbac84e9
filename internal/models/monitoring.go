package models

// MonitoringResponse estado general del servicio de conteo
type MonitoringResponse struct {
	Conteo      ConteoMetrics   `json:"conteo"`
	Cache       CacheMetrics    `json:"cache"`
	Database    DatabaseMetrics `json:"database"`
	System      SystemMetrics   `json:"system"`
	Redis       RedisMetrics    `json:"redis"`
	Timestamp   string          `json:"timestamp"`
	Version     string          `json:"version"`
	GeneratedBy string          `json:"generated_by"`
}

// ConteoMetrics avance del día en curso
type ConteoMetrics struct {
	Dia               string  `json:"dia"`
	ProductosCatalogo int     `json:"productos_catalogo"`
	Escaneos          int     `json:"escaneos"`
	ConteosDiarios    int     `json:"conteos_diarios"`
	UmbralLeve        int     `json:"umbral_leve"`
	Timezone          string  `json:"timezone"`
	Backend           string  `json:"backend"`
	Locker            string  `json:"locker"`
	ProgresoPct       float64 `json:"progreso_pct"`
}

// CacheMetrics métricas de cache
type CacheMetrics struct {
	Connected         bool    `json:"connected"`
	TotalKeys         int     `json:"totalKeys"`
	HitRate           float64 `json:"hitRate"`
	Status            string  `json:"status"`
	HitRatePercentage string  `json:"hit_rate_percentage"`
	TotalHits         int64   `json:"total_hits"`
	TotalMisses       int64   `json:"total_misses"`
	TotalRequests     int64   `json:"total_requests"`
}

// DatabaseMetrics métricas de base de datos
type DatabaseMetrics struct {
	Backend           string `json:"backend"`
	ActiveConnections int    `json:"activeConnections"`
	InUse             int    `json:"in_use"`
	Idle              int    `json:"idle"`
	WaitCount         int64  `json:"wait_count"`
	Status            string `json:"status"`
}

// SystemMetrics métricas del sistema
type SystemMetrics struct {
	MemoryUsage string        `json:"memoryUsage"`
	Uptime      float64       `json:"uptime"`
	Memory      MemoryMetrics `json:"memory"`
	Goroutines  int           `json:"goroutines"`
	UptimeHours string        `json:"uptime_hours"`
	GoVersion   string        `json:"go_version"`
	Platform    string        `json:"platform"`
	Environment string        `json:"environment"`
}

// MemoryMetrics métricas de memoria
type MemoryMetrics struct {
	HeapUsed  string `json:"heapUsed"`
	HeapTotal string `json:"heapTotal"`
	External  string `json:"external"`
	RSS       string `json:"rss"`
}

// RedisMetrics métricas de Redis
type RedisMetrics struct {
	Connected bool   `json:"connected"`
	Keys      int    `json:"keys"`
	Memory    string `json:"memory"`
	Status    string `json:"status"`
	MemoryMB  string `json:"memory_mb"`
}
