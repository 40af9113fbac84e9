package handlers

import (
	"errors"
	"net/http"

	"conteo-service/internal/excel"
	"conteo-service/internal/middleware"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// baseHandler logging con el formato de consola del servicio
type baseHandler struct {
	logger *zap.Logger
}

func (h baseHandler) logDebug(msg string, fields ...zap.Field) {
	h.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

func (h baseHandler) logInfo(msg string, fields ...zap.Field) {
	h.logger.Info("ℹ️ "+msg, fields...)
}

func (h baseHandler) logWarn(msg string, fields ...zap.Field) {
	h.logger.Warn("⚠️ "+msg, fields...)
}

func (h baseHandler) logError(msg string, fields ...zap.Field) {
	h.logger.Error("❌ "+msg, fields...)
}

func (h baseHandler) logSuccess(msg string, fields ...zap.Field) {
	h.logger.Info("✅ "+msg, fields...)
}

// statusDe traduce los errores del dominio a códigos HTTP
func statusDe(err error) int {
	switch {
	case errors.Is(err, services.ErrCodigoVacio),
		errors.Is(err, services.ErrCantidadInvalida),
		errors.Is(err, services.ErrUsuarioRequerido),
		errors.Is(err, services.ErrStockInvalido),
		errors.Is(err, services.ErrMarcaInvalida),
		errors.Is(err, services.ErrDiaInvalido),
		errors.Is(err, services.ErrRolInvalido),
		errors.Is(err, excel.ErrColumnasFaltantes):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrProductoNoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, services.ErrIntegridadDatos),
		errors.Is(err, services.ErrUsuarioExiste):
		return http.StatusConflict
	case errors.Is(err, services.ErrCredencialesInvalidas),
		errors.Is(err, services.ErrTokenInvalido):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrPermisoInsuficiente):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// responderError escribe la respuesta de error; los 5xx no exponen el detalle interno
func (h baseHandler) responderError(c *gin.Context, err error, message string) {
	status := statusDe(err)
	detalle := err.Error()
	if status >= http.StatusInternalServerError {
		h.logError(message, zap.Error(err), zap.String("request_id", c.GetString(middleware.RequestIDKey)))
		detalle = services.ErrAlmacenamiento.Error()
	}
	c.JSON(status, gin.H{
		"success": false,
		"message": "❌ " + message,
		"error":   detalle,
	})
}

func (h baseHandler) responderValidacion(c *gin.Context, err error) {
	h.logError("Validation error", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"message": "❌ Datos de entrada inválidos",
		"error":   err.Error(),
	})
}

// usuarioDe devuelve el username de la sesión autenticada
func usuarioDe(c *gin.Context) string {
	if sesion, ok := middleware.SesionDe(c); ok {
		return sesion.Username
	}
	return ""
}
