package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/database"
	"conteo-service/internal/handlers"
	"conteo-service/internal/jobs"
	"conteo-service/internal/middleware"
	"conteo-service/internal/repository"
	"conteo-service/internal/repository/memory"
	"conteo-service/internal/routes"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuración inválida: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("no se pudo crear el logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("❌ Servidor detenido con error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Server.Production {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	return zapCfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		catalog    repository.CatalogRepository
		escaneos   repository.EscaneoRepository
		usuarios   repository.UsuarioRepository
		postgresDB *database.PostgresDB
		redisDB    *database.RedisDB
		dbPool     *sql.DB
		closers    []func() error
	)

	if cfg.Database.URL != "" {
		pg, err := database.NewPostgresDB(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, logger)
		if err != nil {
			return err
		}
		postgresDB = pg
		dbPool = pg.DB
		closers = append(closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		if catalog, err = repository.NewCatalogRepository(pg.DB, logger); err != nil {
			return err
		}
		if escaneos, err = repository.NewEscaneoRepository(pg.DB, logger); err != nil {
			return err
		}
		usuarios = repository.NewUsuarioRepository(pg.DB, logger)
		logger.Info("Almacenamiento: postgres")
	} else {
		catalog = memory.NewCatalogStore()
		escaneos = memory.NewEscaneoStore()
		usuarios = memory.NewUsuarioStore()
		logger.Warn("⚠️ DATABASE_URL vacío, los datos viven solo en memoria")
	}

	var (
		redisClient *redis.Client
		locker      cache.KeyLocker = cache.NewLocalLocker()
	)
	if cfg.Redis.URL != "" {
		rdb, err := database.NewRedisDB(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return err
		}
		redisDB = rdb
		redisClient = rdb.Client
		closers = append(closers, rdb.Close)
		locker = cache.NewRedisLocker(redisClient, cfg.Conteo.LockTTL, logger)
		logger.Info("Lock por clave: redis")
	}

	productCache := cache.NewProductCache(redisClient, cfg.Cache.MaxL1Size, cfg.Cache.TTL, logger)
	bgCtx, stopBg := context.WithCancel(context.Background())
	defer stopBg()
	if err := productCache.EscucharInvalidaciones(bgCtx); err != nil {
		return err
	}

	escaneoService := services.NewEscaneoService(catalog, escaneos, productCache, locker, cfg.Conteo, nil, logger)
	reporteService := services.NewReporteService(catalog, escaneos, cfg.Conteo, nil, logger)
	catalogoService := services.NewCatalogoService(catalog, productCache, cfg.Conteo, logger)
	authService := services.NewAuthService(usuarios, cfg.JWT, logger)

	monitoringService := services.NewMonitoringService(logger, cfg, redisClient, dbPool, productCache, catalog, escaneos)

	if err := catalogoService.InicializarMarcas(ctx); err != nil {
		return err
	}
	if n, err := authService.SeedUsuarios(ctx, cfg.Seed); err != nil {
		return err
	} else if n > 0 {
		logger.Info("✅ Usuarios iniciales creados", zap.Int("usuarios", n))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	services.RegisterMetrics(registry)
	middleware.RegisterMetrics(registry)

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(logger),
		middleware.PrometheusMiddleware(),
		middleware.SecureHeaders(cfg.Server, logger),
		middleware.CORS(cfg.Server),
	)

	routes.SetupRoutes(router, routes.Handlers{
		Auth:       handlers.NewAuthHandler(authService, logger),
		Escaneo:    handlers.NewEscaneoHandler(escaneoService, reporteService, logger),
		Reporte:    handlers.NewReporteHandler(reporteService, cfg.Conteo.WebSocketIntervalo, cfg.Server.CORSAllowedOrigins, logger),
		Catalogo:   handlers.NewCatalogoHandler(catalogoService, logger),
		Admin:      handlers.NewAdminHandler(escaneoService, reporteService, logger),
		Monitoring: handlers.NewMonitoringHandler(monitoringService, logger),
	}, authService, middleware.NewHealthChecker(postgresDB, redisDB, logger), promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	scheduler := jobs.NewScheduler(reporteService, productCache, cfg.Jobs, cfg.Conteo.Location, logger)
	if err := scheduler.Registrar(); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	middleware.ServerInfo(cfg, logger)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("Señal recibida, cerrando servidor", zap.String("signal", s.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error en el cierre del servidor", zap.Error(err))
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("Error cerrando conexión", zap.Error(err))
		}
	}
	logger.Info("Servidor detenido")
	return nil
}
