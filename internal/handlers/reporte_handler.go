package handlers

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"conteo-service/internal/excel"
	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReporteHandler expone los reportes del conteo
type ReporteHandler struct {
	baseHandler
	reporteService services.ReporteService
	intervalo      time.Duration
	upgrader       websocket.Upgrader
}

// NewReporteHandler sin orígenes configurados el websocket acepta cualquier origen
func NewReporteHandler(reporteService services.ReporteService, intervalo time.Duration, origenes []string, logger *zap.Logger) *ReporteHandler {
	if intervalo <= 0 {
		intervalo = 10 * time.Second
	}
	permitidos := make(map[string]struct{}, len(origenes))
	for _, o := range origenes {
		permitidos[o] = struct{}{}
	}

	return &ReporteHandler{
		baseHandler:    baseHandler{logger: logger},
		reporteService: reporteService,
		intervalo:      intervalo,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				if len(permitidos) == 0 {
					return true
				}
				_, ok := permitidos[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ResumenMarcas avance del conteo por marca
func (h *ReporteHandler) ResumenMarcas(c *gin.Context) {
	filas, err := h.reporteService.ResumenPorMarca(c.Request.Context(), c.Query("dia"))
	if err != nil {
		h.responderError(c, err, "No se pudo generar el resumen por marca")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": filas, "total": len(filas)})
}

// ResumenAreas avance del conteo por área
func (h *ReporteHandler) ResumenAreas(c *gin.Context) {
	filas, err := h.reporteService.ResumenPorArea(c.Request.Context(), c.Query("dia"))
	if err != nil {
		h.responderError(c, err, "No se pudo generar el resumen por área")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": filas, "total": len(filas)})
}

func (h *ReporteHandler) detalle(c *gin.Context) ([]models.DetalleProducto, *models.FiltroDetalle, bool) {
	var filtro models.FiltroDetalle
	if err := c.ShouldBindQuery(&filtro); err != nil {
		h.responderValidacion(c, err)
		return nil, nil, false
	}
	filas, err := h.reporteService.DetalleProductos(c.Request.Context(), filtro)
	if err != nil {
		h.responderError(c, err, "No se pudo generar el detalle por producto")
		return nil, nil, false
	}
	return filas, &filtro, true
}

// DetalleProductos detalle por producto, no escaneados primero
func (h *ReporteHandler) DetalleProductos(c *gin.Context) {
	filas, _, ok := h.detalle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": filas, "total": len(filas)})
}

// ExportarDetalle descarga el detalle como planilla .xlsx
func (h *ReporteHandler) ExportarDetalle(c *gin.Context) {
	filas, filtro, ok := h.detalle(c)
	if !ok {
		return
	}
	dia := filtro.Dia
	if dia == "" {
		dia = h.reporteService.Hoy()
	}

	var buf bytes.Buffer
	if err := excel.EscribirDetalle(&buf, dia, filas); err != nil {
		h.responderError(c, err, "No se pudo generar el archivo Excel")
		return
	}

	h.logSuccess("Detalle exportado", zap.String("dia", dia), zap.Int("filas", len(filas)))
	c.Header("Content-Disposition", `attachment; filename="conteo_`+dia+`.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// EstadisticasUsuario jornada de cualquier operador
func (h *ReporteHandler) EstadisticasUsuario(c *gin.Context) {
	h.estadisticas(c, c.Param("usuario"))
}

// MisEstadisticas jornada del operador autenticado
func (h *ReporteHandler) MisEstadisticas(c *gin.Context) {
	h.estadisticas(c, usuarioDe(c))
}

func (h *ReporteHandler) estadisticas(c *gin.Context, usuario string) {
	stats, err := h.reporteService.EstadisticasUsuario(c.Request.Context(), usuario, c.Query("dia"))
	if err != nil {
		h.responderError(c, err, "No se pudieron obtener las estadísticas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// Dashboard tablero general del día
func (h *ReporteHandler) Dashboard(c *gin.Context) {
	r, err := h.reporteService.Dashboard(c.Request.Context(), c.Query("dia"))
	if err != nil {
		h.responderError(c, err, "No se pudo generar el tablero")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": r})
}

// DashboardWS envía el tablero al conectar y luego en cada intervalo
func (h *ReporteHandler) DashboardWS(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "dashboard_ws"), zap.String("usuario", usuarioDe(c)))
	dia := c.Query("dia")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Error actualizando a WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("Conexión WebSocket establecida")

	// el cliente solo envía control frames; leer detecta el cierre
	cerrado := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(3 * h.intervalo))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(3 * h.intervalo))
	})
	go func() {
		defer close(cerrado)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	enviar := func() bool {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.intervalo)
		defer cancel()

		r, err := h.reporteService.Dashboard(ctx, dia)
		if err != nil {
			logger.Error("Error generando tablero", zap.Error(err))
			return true
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(r); err != nil {
			logger.Warn("Error enviando tablero por WebSocket", zap.Error(err))
			return false
		}
		return true
	}

	if !enviar() {
		return
	}

	ticker := time.NewTicker(h.intervalo)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !enviar() {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cerrado:
			logger.Info("Conexión WebSocket cerrada por el cliente")
			return
		case <-c.Request.Context().Done():
			logger.Info("Conexión WebSocket cerrada por contexto")
			return
		}
	}
}
