package handlers

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxArchivoImportacion = 10 << 20

// CatalogoHandler administración del catálogo y las marcas
type CatalogoHandler struct {
	baseHandler
	catalogoService services.CatalogoService
	validator       *validator.Validate
}

func NewCatalogoHandler(catalogoService services.CatalogoService, logger *zap.Logger) *CatalogoHandler {
	return &CatalogoHandler{
		baseHandler:     baseHandler{logger: logger},
		catalogoService: catalogoService,
		validator:       validator.New(),
	}
}

func (h *CatalogoHandler) ListarProductos(c *gin.Context) {
	productos, err := h.catalogoService.ListarProductos(c.Request.Context(), c.Query("marca"))
	if err != nil {
		h.responderError(c, err, "No se pudo listar el catálogo")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": productos, "total": len(productos)})
}

func (h *CatalogoHandler) ObtenerProducto(c *gin.Context) {
	producto, err := h.catalogoService.ObtenerProducto(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		h.responderError(c, err, "Producto no disponible")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": producto})
}

// UpsertProducto crea o reemplaza un producto por código
func (h *CatalogoHandler) UpsertProducto(c *gin.Context) {
	var req models.ProductoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responderValidacion(c, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	producto, err := h.catalogoService.UpsertProducto(c.Request.Context(), req.ToProducto())
	if err != nil {
		h.responderError(c, err, "No se pudo guardar el producto")
		return
	}

	h.logSuccess("Producto guardado", zap.String("codigo", producto.Codigo), zap.String("usuario", usuarioDe(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Producto guardado",
		"data":    producto,
	})
}

func (h *CatalogoHandler) DesactivarProducto(c *gin.Context) {
	if err := h.catalogoService.DesactivarProducto(c.Request.Context(), c.Param("codigo")); err != nil {
		h.responderError(c, err, "No se pudo desactivar el producto")
		return
	}

	h.logWarn("Producto desactivado", zap.String("codigo", c.Param("codigo")), zap.String("usuario", usuarioDe(c)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Producto desactivado",
	})
}

// CargarLote upsert masivo en JSON; los registros inválidos se informan sin cortar el lote
func (h *CatalogoHandler) CargarLote(c *gin.Context) {
	start := time.Now()

	var req models.LoteProductosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responderValidacion(c, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	productos := make([]models.Producto, len(req.Productos))
	for i, p := range req.Productos {
		productos[i] = p.ToProducto()
	}

	resultado := h.catalogoService.BulkUpsert(c.Request.Context(), productos)

	for _, e := range resultado.Errores {
		h.logError("Error en producto del lote",
			zap.Int("index", e.Index),
			zap.String("codigo", e.Codigo),
			zap.String("error", e.Error))
	}
	h.logSuccess("Lote procesado",
		zap.Int("exitosos", resultado.Exitosos),
		zap.Int("fallidos", resultado.Fallidos),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, gin.H{
		"success": resultado.Fallidos == 0,
		"message": "Lote procesado",
		"data":    resultado,
	})
}

// ImportarExcel recibe el catálogo como planilla en el campo "archivo"
func (h *CatalogoHandler) ImportarExcel(c *gin.Context) {
	start := time.Now()

	archivo, err := c.FormFile("archivo")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Archivo requerido en el campo 'archivo'",
			"error":   err.Error(),
		})
		return
	}
	if !strings.EqualFold(filepath.Ext(archivo.Filename), ".xlsx") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Solo se aceptan archivos .xlsx",
		})
		return
	}
	if archivo.Size > maxArchivoImportacion {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"message": "❌ El archivo supera el tamaño máximo de 10MB",
		})
		return
	}

	f, err := archivo.Open()
	if err != nil {
		h.responderError(c, err, "No se pudo leer el archivo")
		return
	}
	defer f.Close()

	resultado, err := h.catalogoService.ImportarExcel(c.Request.Context(), f)
	if err != nil {
		if statusDe(err) == http.StatusInternalServerError {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "❌ Archivo Excel inválido",
				"error":   err.Error(),
			})
			return
		}
		h.responderError(c, err, "No se pudo importar el catálogo")
		return
	}

	h.logSuccess("Catálogo importado",
		zap.String("archivo", archivo.Filename),
		zap.Int("exitosos", resultado.Exitosos),
		zap.Int("fallidos", resultado.Fallidos),
		zap.Duration("latency", time.Since(start)))

	c.JSON(http.StatusOK, gin.H{
		"success": resultado.Fallidos == 0,
		"message": "Importación procesada",
		"data":    resultado,
	})
}

func (h *CatalogoHandler) ListarMarcas(c *gin.Context) {
	marcas, err := h.catalogoService.ListarMarcas(c.Request.Context())
	if err != nil {
		h.responderError(c, err, "No se pudieron listar las marcas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": marcas, "total": len(marcas)})
}

func (h *CatalogoHandler) CrearMarca(c *gin.Context) {
	var req models.MarcaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	creada, err := h.catalogoService.CrearMarca(c.Request.Context(), req.Nombre)
	if err != nil {
		h.responderError(c, err, "No se pudo crear la marca")
		return
	}

	status, message := http.StatusCreated, "✅ Marca creada"
	if !creada {
		status, message = http.StatusOK, "ℹ️ La marca ya existía"
	}
	c.JSON(status, gin.H{
		"success": true,
		"message": message,
		"data":    gin.H{"creada": creada},
	})
}

func (h *CatalogoHandler) Areas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.catalogoService.Areas()})
}
