package services

import (
	"context"
	"fmt"
	"time"

	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ReporteService arma los reportes del conteo. Solo lee de los repositorios.
type ReporteService interface {
	ResumenPorMarca(ctx context.Context, dia string) ([]models.ResumenMarca, error)
	ResumenPorArea(ctx context.Context, dia string) ([]models.ResumenMarca, error)
	DetalleProductos(ctx context.Context, filtro models.FiltroDetalle) ([]models.DetalleProducto, error)
	EstadisticasUsuario(ctx context.Context, usuario, dia string) (*models.EstadisticasUsuario, error)
	Dashboard(ctx context.Context, dia string) (*models.ResumenGlobal, error)
	Historial(ctx context.Context, filtro models.FiltroEscaneos) ([]*models.Escaneo, error)
	RebuildConteosDiarios(ctx context.Context, dia string) (int, error)
	Hoy() string
}

const limiteHistorialPorDefecto = 1000

type reporteService struct {
	catalog  repository.CatalogRepository
	escaneos repository.EscaneoRepository
	cfg      config.ConteoConfig
	now      func() time.Time
	logger   *zap.Logger

	grupo singleflight.Group
}

const timeoutCargaCompartida = 30 * time.Second

func NewReporteService(
	catalog repository.CatalogRepository,
	escaneos repository.EscaneoRepository,
	cfg config.ConteoConfig,
	now func() time.Time,
	logger *zap.Logger,
) ReporteService {
	if now == nil {
		now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SinMarca == "" {
		cfg.SinMarca = models.SinMarcaPorDefecto
	}
	return &reporteService{
		catalog:  catalog,
		escaneos: escaneos,
		cfg:      cfg,
		now:      now,
		logger:   logger,
	}
}

func (s *reporteService) Hoy() string {
	return diaDe(s.now(), s.cfg.Location)
}

func (s *reporteService) resolverDia(dia string) (string, error) {
	if dia == "" {
		return s.Hoy(), nil
	}
	if err := validarDia(dia); err != nil {
		return "", err
	}
	return dia, nil
}

func (s *reporteService) opciones() opcionesResumen {
	return opcionesResumen{
		umbralLeve:              s.cfg.UmbralLeve,
		netaIncluyeNoEscaneados: s.cfg.NetaIncluyeNoEscaneados,
	}
}

// cargarDia lee en paralelo el catálogo activo y los escaneos del día
func (s *reporteService) cargarDia(ctx context.Context, dia, marca string) ([]*models.Producto, []*models.Escaneo, error) {
	var productos []*models.Producto
	var escaneos []*models.Escaneo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		productos, err = s.catalog.All(gctx, marca)
		if err != nil {
			return fmt.Errorf("error leyendo catálogo: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		escaneos, err = s.escaneos.EventsFor(gctx, models.FiltroEscaneos{Dia: dia})
		if err != nil {
			return fmt.Errorf("error leyendo escaneos: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return productos, escaneos, nil
}

// ResumenPorMarca avance del conteo por marca
func (s *reporteService) ResumenPorMarca(ctx context.Context, dia string) ([]models.ResumenMarca, error) {
	dia, err := s.resolverDia(dia)
	if err != nil {
		return nil, err
	}

	filas, compartido, err := s.cargarCompartido(ctx, "marcas:"+dia, func(ctx context.Context) ([]models.ResumenMarca, error) {
		productos, escaneos, err := s.cargarDia(ctx, dia, "")
		if err != nil {
			return nil, err
		}
		marcas, err := s.catalog.ListMarcas(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
		}
		conteos := acumularPorProducto(escaneos)
		return resumir(productos, conteos, func(p *models.Producto) string { return p.Marca }, marcas, s.opciones()), nil
	})
	if err != nil {
		s.logger.Error("Error generando resumen por marca", zap.String("dia", dia), zap.Error(err))
		return nil, err
	}

	s.logger.Debug("Resumen por marca generado", zap.String("dia", dia), zap.Bool("compartido", compartido))
	return filas, nil
}

// ResumenPorArea avance del conteo por área
func (s *reporteService) ResumenPorArea(ctx context.Context, dia string) ([]models.ResumenMarca, error) {
	dia, err := s.resolverDia(dia)
	if err != nil {
		return nil, err
	}

	filas, _, err := s.cargarCompartido(ctx, "areas:"+dia, func(ctx context.Context) ([]models.ResumenMarca, error) {
		productos, escaneos, err := s.cargarDia(ctx, dia, "")
		if err != nil {
			return nil, err
		}
		conteos := acumularPorProducto(escaneos)
		return resumir(productos, conteos, func(p *models.Producto) string {
			if p.Area == "" {
				return models.MarcaDesconocida
			}
			return p.Area
		}, nil, s.opciones()), nil
	})
	if err != nil {
		s.logger.Error("Error generando resumen por área", zap.String("dia", dia), zap.Error(err))
		return nil, err
	}
	return filas, nil
}

// cargarCompartido ejecuta carga una sola vez por clave entre peticiones concurrentes.
// La carga corre con su propio plazo; cancelar una petición solo deja de esperarla.
func (s *reporteService) cargarCompartido(ctx context.Context, clave string, carga func(ctx context.Context) ([]models.ResumenMarca, error)) ([]models.ResumenMarca, bool, error) {
	ch := s.grupo.DoChan(clave, func() (interface{}, error) {
		cargaCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeoutCargaCompartida)
		defer cancel()
		return carga(cargaCtx)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Shared, r.Err
		}
		return append([]models.ResumenMarca(nil), r.Val.([]models.ResumenMarca)...), r.Shared, nil
	}
}

// DetalleProductos detalle por producto con su estado de conteo
func (s *reporteService) DetalleProductos(ctx context.Context, filtro models.FiltroDetalle) ([]models.DetalleProducto, error) {
	dia, err := s.resolverDia(filtro.Dia)
	if err != nil {
		return nil, err
	}
	filtro.Dia = dia
	if filtro.Marca != "" {
		filtro.Marca = models.NormalizarMarca(filtro.Marca, s.cfg.SinMarca)
	}

	productos, escaneos, err := s.cargarDia(ctx, dia, filtro.Marca)
	if err != nil {
		s.logger.Error("Error generando detalle", zap.String("dia", dia), zap.Error(err))
		return nil, err
	}
	return detallar(productos, acumularPorProducto(escaneos), filtro, s.cfg.UmbralLeve), nil
}

// EstadisticasUsuario resumen de la jornada de un operador
func (s *reporteService) EstadisticasUsuario(ctx context.Context, usuario, dia string) (*models.EstadisticasUsuario, error) {
	if usuario == "" {
		return nil, ErrUsuarioRequerido
	}
	dia, err := s.resolverDia(dia)
	if err != nil {
		return nil, err
	}

	escaneos, err := s.escaneos.EventsFor(ctx, models.FiltroEscaneos{Usuario: usuario, Dia: dia})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	stats := estadisticasDe(usuario, dia, escaneos)
	return &stats, nil
}

// Dashboard tablero general del día
func (s *reporteService) Dashboard(ctx context.Context, dia string) (*models.ResumenGlobal, error) {
	dia, err := s.resolverDia(dia)
	if err != nil {
		return nil, err
	}

	productos, escaneos, err := s.cargarDia(ctx, dia, "")
	if err != nil {
		return nil, err
	}
	r := global(dia, productos, escaneos, acumularPorProducto(escaneos), s.cfg.UmbralLeve, s.now())
	return &r, nil
}

// Historial escaneos más recientes primero
func (s *reporteService) Historial(ctx context.Context, filtro models.FiltroEscaneos) ([]*models.Escaneo, error) {
	if filtro.Dia != "" {
		if err := validarDia(filtro.Dia); err != nil {
			return nil, err
		}
	}
	if filtro.Limit <= 0 {
		filtro.Limit = limiteHistorialPorDefecto
	}

	escaneos, err := s.escaneos.EventsFor(ctx, filtro)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	out := make([]*models.Escaneo, 0, len(escaneos))
	for i := len(escaneos) - 1; i >= 0; i-- {
		ev := escaneos[i]
		if ev.Marca == "" {
			ev.Marca = models.MarcaDesconocida
		}
		if ev.Area == "" {
			ev.Area = models.MarcaDesconocida
		}
		out = append(out, ev)
	}
	return out, nil
}

// RebuildConteosDiarios recalcula los conteos diarios desde los escaneos con el stock vigente
func (s *reporteService) RebuildConteosDiarios(ctx context.Context, dia string) (int, error) {
	dia, err := s.resolverDia(dia)
	if err != nil {
		return 0, err
	}
	logger := s.logger.With(zap.String("operation", "rebuild_conteos"), zap.String("dia", dia))

	productos, err := s.catalog.All(ctx, "")
	if err != nil {
		logger.Error("Error leyendo catálogo", zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	stock := make(map[string]int, len(productos))
	for _, p := range productos {
		stock[models.NormalizarCodigo(p.Codigo)] = p.StockSistema
	}

	n, err := s.escaneos.RecalcularConteosDiarios(ctx, dia, stock)
	if err != nil {
		logger.Error("Error recalculando conteos", zap.Error(err))
		return 0, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}

	logger.Info("Conteos diarios reconstruidos", zap.Int("conteos", n))
	return n, nil
}
