package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"go.uber.org/zap"
)

// EscaneoService registra escaneos y administra el log del día
type EscaneoService interface {
	// RegistrarEscaneo suma la cantidad al conteo del usuario para el código en el día actual
	RegistrarEscaneo(ctx context.Context, usuario, rawCodigo string, cantidad int) (*models.ResultadoEscaneo, error)
	// TotalHoy devuelve lo ya escaneado hoy por el usuario para el código
	TotalHoy(ctx context.Context, usuario, rawCodigo string) (int, error)
	// ReiniciarDia borra los escaneos de un día, de todos o de un usuario
	ReiniciarDia(ctx context.Context, dia, usuario string) (int64, error)
	PurgarTodo(ctx context.Context) error
	Hoy() string
}

type escaneoService struct {
	catalog      repository.CatalogRepository
	escaneos     repository.EscaneoRepository
	productCache *cache.ProductCache
	locker       cache.KeyLocker
	cfg          config.ConteoConfig
	now          func() time.Time
	logger       *zap.Logger
}

// NewEscaneoService crea el servicio; now nil usa time.Now
func NewEscaneoService(
	catalog repository.CatalogRepository,
	escaneos repository.EscaneoRepository,
	productCache *cache.ProductCache,
	locker cache.KeyLocker,
	cfg config.ConteoConfig,
	now func() time.Time,
	logger *zap.Logger,
) EscaneoService {
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &escaneoService{
		catalog:      catalog,
		escaneos:     escaneos,
		productCache: productCache,
		locker:       locker,
		cfg:          cfg,
		now:          now,
		logger:       logger,
	}
}

// diaDe devuelve el día calendario de t en la zona del conteo
func diaDe(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(models.FormatoDia)
}

func validarDia(dia string) error {
	if _, err := time.Parse(models.FormatoDia, dia); err != nil {
		return fmt.Errorf("%w: %q", ErrDiaInvalido, dia)
	}
	return nil
}

func (s *escaneoService) Hoy() string {
	return diaDe(s.now(), s.cfg.Location)
}

// RegistrarEscaneo procesa un escaneo individual
func (s *escaneoService) RegistrarEscaneo(ctx context.Context, usuario, rawCodigo string, cantidad int) (*models.ResultadoEscaneo, error) {
	codigo := models.NormalizarCodigo(rawCodigo)
	logger := s.logger.With(
		zap.String("operation", "registrar_escaneo"),
		zap.String("usuario", usuario),
		zap.String("codigo", codigo),
		zap.Int("cantidad", cantidad),
	)

	switch {
	case usuario == "":
		escaneosFallidosTotal.WithLabelValues("usuario").Inc()
		return nil, ErrUsuarioRequerido
	case codigo == "":
		escaneosFallidosTotal.WithLabelValues("codigo_vacio").Inc()
		return nil, ErrCodigoVacio
	case cantidad < 1:
		escaneosFallidosTotal.WithLabelValues("cantidad").Inc()
		return nil, fmt.Errorf("%w: %d", ErrCantidadInvalida, cantidad)
	}

	producto, err := s.buscarProducto(ctx, codigo)
	if err != nil {
		switch {
		case errors.Is(err, ErrProductoNoEncontrado):
			escaneosFallidosTotal.WithLabelValues("no_encontrado").Inc()
			logger.Info("Producto no encontrado")
		case errors.Is(err, ErrIntegridadDatos):
			escaneosFallidosTotal.WithLabelValues("integridad").Inc()
			logger.Error("Código duplicado en catálogo", zap.Error(err))
		default:
			escaneosFallidosTotal.WithLabelValues("almacenamiento").Inc()
			logger.Error("Error buscando producto", zap.Error(err))
		}
		return nil, err
	}

	ahora := s.now()
	dia := diaDe(ahora, s.cfg.Location)

	unlock, err := s.locker.Lock(ctx, dia+":"+usuario+":"+codigo)
	if err != nil {
		escaneosFallidosTotal.WithLabelValues("almacenamiento").Inc()
		logger.Error("No se pudo serializar el escaneo", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	defer unlock()

	anterior, err := s.escaneos.SumCantidad(ctx, usuario, codigo, dia)
	if err != nil {
		escaneosFallidosTotal.WithLabelValues("almacenamiento").Inc()
		logger.Error("Error obteniendo total del día", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	nuevo := anterior + cantidad
	diferencia := nuevo - producto.StockSistema
	tier := models.Clasificar(diferencia, s.cfg.UmbralLeve)

	escaneo := &models.Escaneo{
		Fecha:          ahora,
		Dia:            dia,
		Usuario:        usuario,
		Codigo:         codigo,
		Producto:       producto.Nombre,
		Marca:          producto.Marca,
		Area:           producto.Area,
		Cantidad:       cantidad,
		TotalAcumulado: nuevo,
		StockSistema:   producto.StockSistema,
		Diferencia:     diferencia,
	}

	if err := s.escaneos.Append(ctx, escaneo); err != nil {
		escaneosFallidosTotal.WithLabelValues("almacenamiento").Inc()
		logger.Error("Error guardando escaneo", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	escaneosTotal.WithLabelValues(string(tier)).Inc()
	unidadesEscaneadasTotal.Add(float64(cantidad))

	logger.Info("Escaneo registrado",
		zap.Int("total_anterior", anterior),
		zap.Int("total_nuevo", nuevo),
		zap.Int("diferencia", diferencia),
		zap.String("tier", string(tier)))

	return &models.ResultadoEscaneo{
		Producto:      *producto,
		TotalAnterior: anterior,
		TotalNuevo:    nuevo,
		Diferencia:    diferencia,
		Tier:          tier,
		Escaneo:       *escaneo,
	}, nil
}

// buscarProducto lee el catálogo directamente: el escaneo guarda el stock vigente
// y debe rechazar productos desactivados o duplicados aunque otra instancia tenga caché.
// El resultado refresca el caché que usan las consultas del catálogo.
func (s *escaneoService) buscarProducto(ctx context.Context, codigo string) (*models.Producto, error) {
	producto, err := buscarEnCatalogo(ctx, s.catalog, codigo)
	if err != nil {
		return nil, err
	}

	if err := s.productCache.SetProduct(ctx, producto); err != nil {
		s.logger.Warn("No se pudo guardar el producto en caché", zap.String("codigo", codigo), zap.Error(err))
	}
	return producto, nil
}

// buscarEnCatalogo traduce los errores del repository a los del dominio
func buscarEnCatalogo(ctx context.Context, catalog repository.CatalogRepository, codigo string) (*models.Producto, error) {
	producto, err := catalog.FindByCodigo(ctx, codigo)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("%w: %s", ErrProductoNoEncontrado, codigo)
	case errors.Is(err, repository.ErrCodigoDuplicado):
		return nil, fmt.Errorf("%w: %s", ErrIntegridadDatos, codigo)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return producto, nil
}

func (s *escaneoService) TotalHoy(ctx context.Context, usuario, rawCodigo string) (int, error) {
	codigo := models.NormalizarCodigo(rawCodigo)
	if codigo == "" {
		return 0, ErrCodigoVacio
	}
	total, err := s.escaneos.SumCantidad(ctx, usuario, codigo, s.Hoy())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return total, nil
}

func (s *escaneoService) ReiniciarDia(ctx context.Context, dia, usuario string) (int64, error) {
	if dia == "" {
		dia = s.Hoy()
	}
	if err := validarDia(dia); err != nil {
		return 0, err
	}

	borrados, err := s.escaneos.DeleteDia(ctx, dia, usuario)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	s.logger.Warn("Conteo reiniciado",
		zap.String("operation", "reiniciar_dia"),
		zap.String("dia", dia),
		zap.String("usuario", usuario),
		zap.Int64("escaneos_borrados", borrados))
	return borrados, nil
}

func (s *escaneoService) PurgarTodo(ctx context.Context) error {
	if err := s.escaneos.PurgeAll(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	s.logger.Warn("Log de escaneos purgado", zap.String("operation", "purgar_todo"))
	return nil
}
