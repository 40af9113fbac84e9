package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const emisorToken = "conteo-service"

// AuthService login con usuario y contraseña y tokens firmados HS256
type AuthService interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	ValidarToken(token string) (*models.Sesion, error)
	CrearUsuario(ctx context.Context, req models.CrearUsuarioRequest) (*models.Usuario, error)
	ListarUsuarios(ctx context.Context) ([]*models.Usuario, error)
	SeedUsuarios(ctx context.Context, seed config.SeedConfig) (int, error)
}

type claimsConteo struct {
	Nombre string     `json:"nombre"`
	Rol    models.Rol `json:"rol"`
	jwt.RegisteredClaims
}

type authService struct {
	usuarios repository.UsuarioRepository
	secret   []byte
	duracion time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

func NewAuthService(usuarios repository.UsuarioRepository, cfg config.JWTConfig, logger *zap.Logger) AuthService {
	duracion := time.Duration(cfg.ExpiryHours) * time.Hour
	if duracion <= 0 {
		duracion = 12 * time.Hour
	}
	return &authService{
		usuarios: usuarios,
		secret:   []byte(cfg.Secret),
		duracion: duracion,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	logger := s.logger.With(zap.String("operation", "login"), zap.String("username", username))

	u, err := s.usuarios.FindByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Info("Login rechazado: usuario inexistente")
		return nil, ErrCredencialesInvalidas
	}
	if err != nil {
		logger.Error("Error buscando usuario", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	if !u.Activo || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		logger.Info("Login rechazado")
		return nil, ErrCredencialesInvalidas
	}

	ahora := s.now().UTC()
	expira := ahora.Add(s.duracion)
	claims := claimsConteo{
		Nombre: u.Nombre,
		Rol:    u.Rol,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			Issuer:    emisorToken,
			IssuedAt:  jwt.NewNumericDate(ahora),
			ExpiresAt: jwt.NewNumericDate(expira),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("error firmando token: %w", err)
	}

	logger.Info("Login exitoso", zap.String("rol", string(u.Rol)))
	return &models.LoginResponse{
		Token:   token,
		Usuario: models.Sesion{Username: u.Username, Nombre: u.Nombre, Rol: u.Rol},
		Expira:  expira.Format(time.RFC3339),
	}, nil
}

// ValidarToken verifica firma, emisor y vencimiento
func (s *authService) ValidarToken(token string) (*models.Sesion, error) {
	claims := &claimsConteo{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(emisorToken),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalido
	}
	if claims.Subject == "" || !claims.Rol.Valido() {
		return nil, ErrTokenInvalido
	}
	return &models.Sesion{Username: claims.Subject, Nombre: claims.Nombre, Rol: claims.Rol}, nil
}

func (s *authService) CrearUsuario(ctx context.Context, req models.CrearUsuarioRequest) (*models.Usuario, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || strings.ContainsAny(username, " \t\r\n") {
		return nil, fmt.Errorf("%w: username inválido", ErrCredencialesInvalidas)
	}
	if !req.Rol.Valido() {
		return nil, fmt.Errorf("%w: %q", ErrRolInvalido, req.Rol)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error generando hash: %w", err)
	}

	u := &models.Usuario{
		Username:     username,
		Nombre:       strings.TrimSpace(req.Nombre),
		PasswordHash: string(hash),
		Rol:          req.Rol,
		Activo:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.usuarios.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrUsuarioExiste) {
			return nil, fmt.Errorf("%w: %s", ErrUsuarioExiste, username)
		}
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	s.logger.Info("Usuario creado",
		zap.String("operation", "crear_usuario"),
		zap.String("username", username),
		zap.String("rol", string(req.Rol)))
	return u, nil
}

func (s *authService) ListarUsuarios(ctx context.Context) ([]*models.Usuario, error) {
	usuarios, err := s.usuarios.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return usuarios, nil
}

// SeedUsuarios crea un usuario por rol cuando el almacén está vacío
func (s *authService) SeedUsuarios(ctx context.Context, seed config.SeedConfig) (int, error) {
	n, err := s.usuarios.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	if n > 0 {
		return 0, nil
	}

	iniciales := []models.CrearUsuarioRequest{
		{Username: "admin", Nombre: "Administrador", Password: seed.AdminPassword, Rol: models.RolAdmin},
		{Username: "inventario", Nombre: "Operador de inventario", Password: seed.InventarioPassword, Rol: models.RolInventario},
		{Username: "consulta", Nombre: "Consulta", Password: seed.ConsultaPassword, Rol: models.RolConsulta},
	}

	creados := 0
	for _, req := range iniciales {
		if req.Password == "" {
			continue
		}
		if _, err := s.CrearUsuario(ctx, req); err != nil {
			return creados, err
		}
		creados++
	}

	s.logger.Warn("Usuarios iniciales creados, cambie las contraseñas por defecto", zap.Int("usuarios", creados))
	return creados, nil
}
