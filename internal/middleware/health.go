package middleware

import (
	"context"
	"net/http"
	"time"

	"conteo-service/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker sin Postgres ni Redis reporta los almacenes en memoria
type HealthChecker struct {
	postgresDB *database.PostgresDB
	redisDB    *database.RedisDB
	logger     *zap.Logger
}

func NewHealthChecker(postgresDB *database.PostgresDB, redisDB *database.RedisDB, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		postgresDB: postgresDB,
		redisDB:    redisDB,
		logger:     logger,
	}
}

func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	healthy := true
	services := gin.H{}

	if h.postgresDB != nil {
		postgresStatus := "healthy"
		if err := h.postgresDB.Ping(ctx); err != nil {
			postgresStatus = "unhealthy"
			healthy = false
			h.logger.Error("PostgreSQL health check failed", zap.Error(err))
		}

		postgresStats := h.postgresDB.GetStats()
		services["postgresql"] = gin.H{
			"status": postgresStatus,
			"stats": gin.H{
				"max_open_connections": postgresStats.MaxOpenConnections,
				"open_connections":     postgresStats.OpenConnections,
				"in_use":               postgresStats.InUse,
				"idle":                 postgresStats.Idle,
			},
		}
	} else {
		services["storage"] = gin.H{"status": "healthy", "backend": "memoria"}
	}

	if h.redisDB != nil {
		redisStatus := "healthy"
		if err := h.redisDB.Ping(ctx); err != nil {
			redisStatus = "unhealthy"
			healthy = false
			h.logger.Error("Redis health check failed", zap.Error(err))
		}

		redisStats, err := h.redisDB.GetStats(ctx)
		if err != nil {
			h.logger.Error("Failed to get Redis stats", zap.Error(err))
			redisStats = "unavailable"
		}
		services["redis"] = gin.H{
			"status": redisStatus,
			"stats":  redisStats,
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}
