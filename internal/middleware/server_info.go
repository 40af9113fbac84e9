package middleware

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"conteo-service/internal/config"

	"go.uber.org/zap"
)

// ServerInfo muestra información del servidor al iniciar
func ServerInfo(cfg *config.Config, logger *zap.Logger) {
	port := cfg.Server.Port
	hostname, _ := os.Hostname()
	goVersion := runtime.Version()
	numCPU := runtime.NumCPU()
	startTime := time.Now().Format("2006-01-02 15:04:05")

	storage := "Memoria (sin DATABASE_URL)"
	if cfg.Database.URL != "" {
		storage = "PostgreSQL"
	}
	locker := "Local (mutex por clave)"
	if cfg.Redis.URL != "" {
		locker = "Redis (redislock)"
	}

	fmt.Println("")
	fmt.Println("🚀 " + boldColor + "Conteo Service API" + resetColor)
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("📅 Started at: " + startTime)
	fmt.Println("🌐 Server URL: " + cyanColor + "http://localhost:" + port + resetColor)
	fmt.Println("💻 Hostname: " + hostname)
	fmt.Println("🔧 Go Version: " + goVersion)
	fmt.Println("⚡ CPU Cores: " + fmt.Sprintf("%d", numCPU))
	fmt.Println("")
	fmt.Println("📊 " + boldColor + "Available Endpoints:" + resetColor)
	fmt.Println("   POST " + greenColor + "/api/v1/auth/login" + resetColor + "          - Login")
	fmt.Println("   POST " + greenColor + "/api/v1/conteo/escaneos" + resetColor + "     - Registrar escaneo")
	fmt.Println("   GET  " + greenColor + "/api/v1/reportes/marcas" + resetColor + "     - Resumen por marca")
	fmt.Println("   GET  " + greenColor + "/api/v1/reportes/productos" + resetColor + "  - Detalle por producto")
	fmt.Println("   GET  " + greenColor + "/api/v1/reportes/dashboard" + resetColor + "  - Tablero general")
	fmt.Println("   GET  " + greenColor + "/api/v1/reportes/ws" + resetColor + "         - Tablero en vivo (websocket)")
	fmt.Println("   POST " + greenColor + "/api/v1/catalogo/importar" + resetColor + "   - Importar catálogo .xlsx")
	fmt.Println("")
	fmt.Println("🔍 " + boldColor + "Monitoring:" + resetColor)
	fmt.Println("   📈 Health Check: " + cyanColor + "http://localhost:" + port + "/health" + resetColor)
	fmt.Println("   📉 Prometheus:   " + cyanColor + "http://localhost:" + port + "/metrics" + resetColor)
	fmt.Println("")
	fmt.Println("⚙️  " + boldColor + "Environment:" + resetColor)
	fmt.Println("   🗄️  Storage: " + storage)
	fmt.Println("   🔒 Locker: " + locker)
	fmt.Println("   🕐 Timezone: " + cfg.Conteo.Timezone)
	fmt.Printf("   📏 Umbral leve: ±%d\n", cfg.Conteo.UmbralLeve)
	fmt.Println("   📝 Logging: Structured (Zap)")
	fmt.Println("")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("✨ " + boldColor + "Server is ready to handle requests!" + resetColor)
	fmt.Println("")

	logger.Info("Server started successfully",
		zap.String("port", port),
		zap.String("hostname", hostname),
		zap.String("go_version", goVersion),
		zap.Int("cpu_cores", numCPU),
		zap.String("start_time", startTime),
		zap.String("storage", storage),
		zap.String("locker", locker),
	)
}
