package handlers

import (
	"net/http"
	"time"

	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
	}
}

// GetStatus estado de caché, base de datos, Redis y avance del día
func (h *MonitoringHandler) GetStatus(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_status"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Info("Métricas obtenidas exitosamente",
		zap.String("dia", metrics.Conteo.Dia),
		zap.Int("escaneos", metrics.Conteo.Escaneos),
		zap.String("cache_hit_rate", metrics.Cache.HitRatePercentage))

	c.JSON(http.StatusOK, metrics)
}

// HealthCheck resumen liviano; degraded si Redis o la base no responden
func (h *MonitoringHandler) HealthCheck(c *gin.Context) {
	ctx := c.Request.Context()

	status := "healthy"
	servicios := gin.H{"cache": "online"}

	redisMetrics := h.monitoringService.GetRedisStats(ctx)
	servicios["redis"] = redisMetrics.Status
	if redisMetrics.Status == "offline" {
		status = "degraded"
	}

	dbMetrics := h.monitoringService.GetDatabaseStats(ctx)
	servicios["database"] = dbMetrics.Status
	if dbMetrics.Status != "online" {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0",
		"services":  servicios,
	})
}
