package handlers

import (
	"net/http"
	"time"

	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// EscaneoHandler maneja el registro de escaneos y el historial
type EscaneoHandler struct {
	baseHandler
	escaneoService services.EscaneoService
	reporteService services.ReporteService
	validator      *validator.Validate
}

func NewEscaneoHandler(escaneoService services.EscaneoService, reporteService services.ReporteService, logger *zap.Logger) *EscaneoHandler {
	return &EscaneoHandler{
		baseHandler:    baseHandler{logger: logger},
		escaneoService: escaneoService,
		reporteService: reporteService,
		validator:      validator.New(),
	}
}

// RegistrarEscaneo suma una cantidad escaneada al conteo del operador
func (h *EscaneoHandler) RegistrarEscaneo(c *gin.Context) {
	start := time.Now()

	var req models.EscaneoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Error en el formato de datos",
			"error":   err.Error(),
		})
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	usuario := usuarioDe(c)
	h.logDebug("Escaneo recibido",
		zap.String("usuario", usuario),
		zap.String("codigo", req.Codigo),
		zap.Int("cantidad", req.Cantidad))

	resultado, err := h.escaneoService.RegistrarEscaneo(c.Request.Context(), usuario, req.Codigo, req.Cantidad)
	if err != nil {
		h.responderError(c, err, "No se pudo registrar el escaneo")
		return
	}

	h.logSuccess("Escaneo registrado",
		zap.String("usuario", usuario),
		zap.String("codigo", resultado.Escaneo.Codigo),
		zap.Int("total_nuevo", resultado.TotalNuevo),
		zap.String("tier", string(resultado.Tier)),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "✅ Escaneo registrado",
		"data":    resultado,
	})
}

// TotalHoy cuánto lleva contado hoy el operador para un código
func (h *EscaneoHandler) TotalHoy(c *gin.Context) {
	usuario := usuarioDe(c)
	total, err := h.escaneoService.TotalHoy(c.Request.Context(), usuario, c.Param("codigo"))
	if err != nil {
		h.responderError(c, err, "No se pudo obtener el total")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"usuario": usuario,
			"codigo":  models.NormalizarCodigo(c.Param("codigo")),
			"dia":     h.escaneoService.Hoy(),
			"total":   total,
		},
	})
}

// Historial escaneos filtrados, más recientes primero
func (h *EscaneoHandler) Historial(c *gin.Context) {
	var filtro models.FiltroEscaneos
	if err := c.ShouldBindQuery(&filtro); err != nil {
		h.responderValidacion(c, err)
		return
	}

	escaneos, err := h.reporteService.Historial(c.Request.Context(), filtro)
	if err != nil {
		h.responderError(c, err, "No se pudo obtener el historial")
		return
	}

	h.logInfo("Historial consultado",
		zap.String("usuario", filtro.Usuario),
		zap.String("codigo", filtro.Codigo),
		zap.String("dia", filtro.Dia),
		zap.Int("resultados", len(escaneos)))

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    escaneos,
		"total":   len(escaneos),
	})
}
