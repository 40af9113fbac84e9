package middleware

import (
	"net/http"
	"strings"

	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	SesionKey         = "sesion"
	SesionUsernameKey = "usuario"
)

// Auth exige un token válido en Authorization: Bearer. Para el websocket
// se acepta también el parámetro ?token= porque el navegador no envía headers.
func Auth(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		}
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token de acceso requerido",
			})
			return
		}

		sesion, err := authService.ValidarToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Token inválido o vencido",
				"error":   err.Error(),
			})
			return
		}

		c.Set(SesionKey, sesion)
		c.Set(SesionUsernameKey, sesion.Username)
		c.Next()
	}
}

// RequireRol corta con 403 si el rol de la sesión no alcanza el requerido
func RequireRol(requerido models.Rol) gin.HandlerFunc {
	return func(c *gin.Context) {
		sesion, ok := SesionDe(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Sesión no encontrada",
			})
			return
		}
		if !sesion.Rol.Permite(requerido) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Permisos insuficientes",
				"error":   services.ErrPermisoInsuficiente.Error(),
			})
			return
		}
		c.Next()
	}
}

// SesionDe devuelve la sesión que dejó Auth en el contexto
func SesionDe(c *gin.Context) (*models.Sesion, bool) {
	v, ok := c.Get(SesionKey)
	if !ok {
		return nil, false
	}
	sesion, ok := v.(*models.Sesion)
	return sesion, ok
}
