package middleware

import (
	"conteo-service/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"
)

// SecureHeaders aplica los headers de seguridad de unrolled/secure
func SecureHeaders(cfg config.ServerConfig, logger *zap.Logger) gin.HandlerFunc {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        cfg.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !cfg.Production,
	})

	return func(c *gin.Context) {
		// ante un error secure ya escribió la respuesta (redirect HTTPS o host inválido)
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			logger.Warn("Request cortado por la política de seguridad",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORS sin orígenes configurados permite todos fuera de producción y ninguno en producción
func CORS(cfg config.ServerConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	switch {
	case len(cfg.CORSAllowedOrigins) > 0:
		corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	case cfg.Production:
		corsConfig.AllowOriginFunc = func(string) bool { return false }
	default:
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", "Authorization", "X-Request-ID")
	corsConfig.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Request-ID")
	return cors.New(corsConfig)
}
