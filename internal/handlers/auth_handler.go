package handlers

import (
	"net/http"

	"conteo-service/internal/middleware"
	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AuthHandler login y administración de usuarios
type AuthHandler struct {
	baseHandler
	authService services.AuthService
	validator   *validator.Validate
}

func NewAuthHandler(authService services.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		baseHandler: baseHandler{logger: logger},
		authService: authService,
		validator:   validator.New(),
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responderValidacion(c, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.logWarn("Login fallido", zap.String("username", req.Username), zap.String("client_ip", c.ClientIP()))
		h.responderError(c, err, "No se pudo iniciar sesión")
		return
	}

	h.logSuccess("Login exitoso", zap.String("username", resp.Usuario.Username), zap.String("rol", string(resp.Usuario.Rol)))
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "✅ Sesión iniciada",
		"data":    resp,
	})
}

// Me devuelve la sesión del token
func (h *AuthHandler) Me(c *gin.Context) {
	sesion, ok := middleware.SesionDe(c)
	if !ok {
		h.responderError(c, services.ErrTokenInvalido, "Sesión no encontrada")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": sesion})
}

func (h *AuthHandler) CrearUsuario(c *gin.Context) {
	var req models.CrearUsuarioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.responderValidacion(c, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.responderValidacion(c, err)
		return
	}

	u, err := h.authService.CrearUsuario(c.Request.Context(), req)
	if err != nil {
		h.responderError(c, err, "No se pudo crear el usuario")
		return
	}

	h.logSuccess("Usuario creado", zap.String("username", u.Username), zap.String("creado_por", usuarioDe(c)))
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "✅ Usuario creado",
		"data":    u,
	})
}

func (h *AuthHandler) ListarUsuarios(c *gin.Context) {
	usuarios, err := h.authService.ListarUsuarios(c.Request.Context())
	if err != nil {
		h.responderError(c, err, "No se pudieron listar los usuarios")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": usuarios, "total": len(usuarios)})
}
