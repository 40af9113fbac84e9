package services

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type MonitoringService interface {
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	GetConteoStats(ctx context.Context) models.ConteoMetrics
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats(ctx context.Context) models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
}

type monitoringService struct {
	logger       *zap.Logger
	config       *config.Config
	redisClient  *redis.Client
	dbPool       *sql.DB
	productCache *cache.ProductCache
	catalog      repository.CatalogRepository
	escaneos     repository.EscaneoRepository
	now          func() time.Time

	startTime time.Time
}

// NewMonitoringService redisClient y dbPool pueden ser nil cuando el servicio corre en memoria
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisClient *redis.Client,
	dbPool *sql.DB,
	productCache *cache.ProductCache,
	catalog repository.CatalogRepository,
	escaneos repository.EscaneoRepository,
) MonitoringService {
	return &monitoringService{
		logger:       logger,
		config:       config,
		redisClient:  redisClient,
		dbPool:       dbPool,
		productCache: productCache,
		catalog:      catalog,
		escaneos:     escaneos,
		now:          time.Now,
		startTime:    time.Now(),
	}
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	return &models.MonitoringResponse{
		Conteo:      s.GetConteoStats(ctx),
		Cache:       s.GetCacheStats(),
		Database:    s.GetDatabaseStats(ctx),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Timestamp:   s.now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "Conteo Monitoring Service",
	}
}

func (s *monitoringService) GetConteoStats(ctx context.Context) models.ConteoMetrics {
	loc := s.config.Conteo.Location
	if loc == nil {
		loc = time.UTC
	}
	dia := diaDe(s.now(), loc)

	metrics := models.ConteoMetrics{
		Dia:        dia,
		UmbralLeve: s.config.Conteo.UmbralLeve,
		Timezone:   loc.String(),
		Backend:    "memoria",
		Locker:     "local",
	}
	if s.dbPool != nil {
		metrics.Backend = "postgres"
	}
	if s.redisClient != nil {
		metrics.Locker = "redis"
	}

	if n, err := s.catalog.Count(ctx); err == nil {
		metrics.ProductosCatalogo = n
	} else {
		s.logger.Warn("Error contando catálogo", zap.Error(err))
	}

	escaneos, err := s.escaneos.EventsFor(ctx, models.FiltroEscaneos{Dia: dia})
	if err != nil {
		s.logger.Warn("Error leyendo escaneos del día", zap.Error(err))
		return metrics
	}
	metrics.Escaneos = len(escaneos)

	conteos, err := s.escaneos.ConteosDiarios(ctx, dia)
	if err == nil {
		metrics.ConteosDiarios = len(conteos)
	}

	contados := len(acumularPorProducto(escaneos))
	metrics.ProgresoPct = porcentaje(contados, metrics.ProductosCatalogo)
	return metrics
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	cacheStats := s.productCache.GetStats()
	hitRate := cacheStats.HitRate()

	return models.CacheMetrics{
		Connected:         true,
		TotalKeys:         cacheStats.TotalKeys,
		HitRate:           hitRate / 100,
		Status:            "online",
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate),
		TotalHits:         cacheStats.Hits,
		TotalMisses:       cacheStats.Misses,
		TotalRequests:     cacheStats.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats(ctx context.Context) models.DatabaseMetrics {
	if s.dbPool == nil {
		return models.DatabaseMetrics{Backend: "memoria", Status: "online"}
	}

	status := "online"
	if err := s.dbPool.PingContext(ctx); err != nil {
		status = "offline"
	}
	stats := s.dbPool.Stats()

	return models.DatabaseMetrics{
		Backend:           "postgres",
		ActiveConnections: stats.OpenConnections,
		InUse:             stats.InUse,
		Idle:              stats.Idle,
		WaitCount:         stats.WaitCount,
		Status:            status,
	}
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.startTime).Seconds()

	environment := "development"
	if s.config.Server.Production {
		environment = "production"
	}

	return models.SystemMetrics{
		MemoryUsage: fmt.Sprintf("%.2f", float64(m.Alloc)/1024/1024),
		Uptime:      uptime,
		Memory: models.MemoryMetrics{
			HeapUsed:  fmt.Sprintf("%.2f MB", float64(m.HeapAlloc)/1024/1024),
			HeapTotal: fmt.Sprintf("%.2f MB", float64(m.HeapSys)/1024/1024),
			External:  fmt.Sprintf("%.2f MB", float64(m.OtherSys)/1024/1024),
			RSS:       fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Goroutines:  runtime.NumGoroutine(),
		UptimeHours: fmt.Sprintf("%.2fh", uptime/3600),
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS,
		Environment: environment,
	}
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisClient == nil {
		return models.RedisMetrics{Status: "disabled"}
	}

	connected := s.redisClient.Ping(ctx).Err() == nil

	var keys int
	var memory, memoryMB string
	if connected {
		if n, err := s.redisClient.DBSize(ctx).Result(); err == nil {
			keys = int(n)
		}

		if info, err := s.redisClient.Info(ctx, "memory").Result(); err == nil {
			for _, line := range strings.Split(info, "\n") {
				if strings.HasPrefix(line, "used_memory:") {
					memory = strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
					if memBytes, err := strconv.ParseInt(memory, 10, 64); err == nil {
						memoryMB = fmt.Sprintf("%.2f MB", float64(memBytes)/1024/1024)
					}
					break
				}
			}
		}
	}

	status := "offline"
	if connected {
		status = "online"
	}

	return models.RedisMetrics{
		Connected: connected,
		Keys:      keys,
		Memory:    memory,
		Status:    status,
		MemoryMB:  memoryMB,
	}
}
