package routes

import (
	"net/http"

	"conteo-service/internal/handlers"
	"conteo-service/internal/middleware"
	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
)

// Handlers agrupa los handlers que se montan en el router
type Handlers struct {
	Auth       *handlers.AuthHandler
	Escaneo    *handlers.EscaneoHandler
	Reporte    *handlers.ReporteHandler
	Catalogo   *handlers.CatalogoHandler
	Admin      *handlers.AdminHandler
	Monitoring *handlers.MonitoringHandler
}

// SetupRoutes configura todas las rutas de la aplicación.
// metricsHandler puede ser nil cuando no se expone Prometheus.
func SetupRoutes(router *gin.Engine, h Handlers, authService services.AuthService, healthChecker *middleware.HealthChecker, metricsHandler http.Handler) {
	auth := middleware.Auth(authService)
	consulta := middleware.RequireRol(models.RolConsulta)
	inventario := middleware.RequireRol(models.RolInventario)
	admin := middleware.RequireRol(models.RolAdmin)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/login", h.Auth.Login)
		v1.GET("/auth/me", auth, consulta, h.Auth.Me)

		// Escaneos
		conteo := v1.Group("/conteo", auth)
		{
			conteo.POST("/escaneos", inventario, h.Escaneo.RegistrarEscaneo)
			conteo.GET("/escaneos", consulta, h.Escaneo.Historial)
			conteo.GET("/total/:codigo", inventario, h.Escaneo.TotalHoy)
		}

		// Reportes (el websocket recibe el token por query)
		reportes := v1.Group("/reportes", auth, consulta)
		{
			reportes.GET("/marcas", h.Reporte.ResumenMarcas)
			reportes.GET("/areas", h.Reporte.ResumenAreas)
			reportes.GET("/productos", h.Reporte.DetalleProductos)
			reportes.GET("/productos/excel", h.Reporte.ExportarDetalle)
			reportes.GET("/usuarios/:usuario", h.Reporte.EstadisticasUsuario)
			reportes.GET("/mis-estadisticas", h.Reporte.MisEstadisticas)
			reportes.GET("/dashboard", h.Reporte.Dashboard)
			reportes.GET("/ws", h.Reporte.DashboardWS)
		}

		// Catálogo
		catalogo := v1.Group("/catalogo", auth)
		{
			catalogo.GET("/productos", consulta, h.Catalogo.ListarProductos)
			catalogo.GET("/productos/:codigo", consulta, h.Catalogo.ObtenerProducto)
			catalogo.PUT("/productos", inventario, h.Catalogo.UpsertProducto)
			catalogo.DELETE("/productos/:codigo", admin, h.Catalogo.DesactivarProducto)
			catalogo.POST("/productos/lote", admin, h.Catalogo.CargarLote)
			catalogo.POST("/importar", admin, h.Catalogo.ImportarExcel)
			catalogo.GET("/marcas", consulta, h.Catalogo.ListarMarcas)
			catalogo.POST("/marcas", inventario, h.Catalogo.CrearMarca)
			catalogo.GET("/areas", consulta, h.Catalogo.Areas)
		}

		// Administración
		adm := v1.Group("/admin", auth, admin)
		{
			adm.POST("/conteo/reiniciar", h.Admin.ReiniciarConteo)
			adm.POST("/conteo/purgar", h.Admin.PurgarConteo)
			adm.POST("/conteo/reconstruir", h.Admin.ReconstruirConteos)
			adm.GET("/usuarios", h.Auth.ListarUsuarios)
			adm.POST("/usuarios", h.Auth.CrearUsuario)
		}

		v1.GET("/monitoring/status", auth, admin, h.Monitoring.GetStatus)
	}

	// Health check en raíz
	router.GET("/health", healthChecker.HealthCheck)
	router.GET("/health/monitoring", h.Monitoring.HealthCheck)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// API info en raíz
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Conteo Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health":  "/health",
				"metrics": "/metrics",
				"api":     "/api/v1",
				"auth": gin.H{
					"login": "POST /api/v1/auth/login",
					"me":    "GET /api/v1/auth/me",
				},
				"conteo": gin.H{
					"escanear":  "POST /api/v1/conteo/escaneos",
					"historial": "GET /api/v1/conteo/escaneos",
					"total":     "GET /api/v1/conteo/total/:codigo",
				},
				"reportes": gin.H{
					"marcas":    "GET /api/v1/reportes/marcas",
					"areas":     "GET /api/v1/reportes/areas",
					"productos": "GET /api/v1/reportes/productos",
					"excel":     "GET /api/v1/reportes/productos/excel",
					"dashboard": "GET /api/v1/reportes/dashboard",
					"ws":        "GET /api/v1/reportes/ws?token=...",
				},
				"catalogo": gin.H{
					"productos": "GET|PUT /api/v1/catalogo/productos",
					"lote":      "POST /api/v1/catalogo/productos/lote",
					"importar":  "POST /api/v1/catalogo/importar",
					"marcas":    "GET|POST /api/v1/catalogo/marcas",
				},
			},
		})
	})
}
