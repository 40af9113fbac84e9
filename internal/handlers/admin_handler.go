package handlers

import (
	"net/http"

	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler operaciones destructivas o de mantenimiento del conteo
type AdminHandler struct {
	baseHandler
	escaneoService services.EscaneoService
	reporteService services.ReporteService
}

func NewAdminHandler(escaneoService services.EscaneoService, reporteService services.ReporteService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		baseHandler:    baseHandler{logger: logger},
		escaneoService: escaneoService,
		reporteService: reporteService,
	}
}

// ReiniciarConteo borra los escaneos de un día (hoy por defecto), opcionalmente de un solo usuario
func (h *AdminHandler) ReiniciarConteo(c *gin.Context) {
	var req models.ReiniciarConteoRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.responderValidacion(c, err)
			return
		}
	}

	borrados, err := h.escaneoService.ReiniciarDia(c.Request.Context(), req.Dia, req.Usuario)
	if err != nil {
		h.responderError(c, err, "No se pudo reiniciar el conteo")
		return
	}

	h.logWarn("Conteo reiniciado",
		zap.String("dia", req.Dia),
		zap.String("usuario", req.Usuario),
		zap.Int64("borrados", borrados),
		zap.String("admin", usuarioDe(c)))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Conteo reiniciado",
		"data":    gin.H{"escaneos_borrados": borrados},
	})
}

// PurgarConteo vacía el log completo; exige ?confirmar=true
func (h *AdminHandler) PurgarConteo(c *gin.Context) {
	if c.Query("confirmar") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Confirme la purga con ?confirmar=true",
		})
		return
	}

	if err := h.escaneoService.PurgarTodo(c.Request.Context()); err != nil {
		h.responderError(c, err, "No se pudo purgar el conteo")
		return
	}

	h.logWarn("Log de escaneos purgado", zap.String("admin", usuarioDe(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Log de escaneos purgado",
	})
}

// ReconstruirConteos recalcula los conteos diarios desde el log
func (h *AdminHandler) ReconstruirConteos(c *gin.Context) {
	n, err := h.reporteService.RebuildConteosDiarios(c.Request.Context(), c.Query("dia"))
	if err != nil {
		h.responderError(c, err, "No se pudieron reconstruir los conteos")
		return
	}

	h.logSuccess("Conteos reconstruidos", zap.Int("conteos", n), zap.String("admin", usuarioDe(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Conteos diarios reconstruidos",
		"data":    gin.H{"conteos": n},
	})
}
