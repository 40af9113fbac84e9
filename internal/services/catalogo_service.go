package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/excel"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"go.uber.org/zap"
)

// CatalogoService administración del catálogo de productos y marcas
type CatalogoService interface {
	UpsertProducto(ctx context.Context, producto models.Producto) (*models.Producto, error)
	BulkUpsert(ctx context.Context, productos []models.Producto) *models.ResultadoLote
	ImportarExcel(ctx context.Context, r io.Reader) (*models.ResultadoLote, error)
	ObtenerProducto(ctx context.Context, codigo string) (*models.Producto, error)
	ListarProductos(ctx context.Context, marca string) ([]*models.Producto, error)
	DesactivarProducto(ctx context.Context, codigo string) error
	CrearMarca(ctx context.Context, nombre string) (bool, error)
	ListarMarcas(ctx context.Context) ([]string, error)
	InicializarMarcas(ctx context.Context) error
	Areas() []string
}

// por encima de este tamaño un lote vacía el caché completo en vez de invalidar código por código
const loteInvalidacionTotal = 200

type catalogoService struct {
	catalog      repository.CatalogRepository
	productCache *cache.ProductCache
	cfg          config.ConteoConfig
	logger       *zap.Logger
}

func NewCatalogoService(catalog repository.CatalogRepository, productCache *cache.ProductCache, cfg config.ConteoConfig, logger *zap.Logger) CatalogoService {
	if cfg.SinMarca == "" {
		cfg.SinMarca = models.SinMarcaPorDefecto
	}
	return &catalogoService{
		catalog:      catalog,
		productCache: productCache,
		cfg:          cfg,
		logger:       logger,
	}
}

// prepararProducto normaliza y valida un producto antes de guardarlo
func (s *catalogoService) prepararProducto(p *models.Producto) error {
	p.Normalizar(s.cfg.SinMarca)
	p.Activo = true
	if p.Codigo == "" {
		return ErrCodigoVacio
	}
	if p.StockSistema < 0 {
		return fmt.Errorf("%w: %d", ErrStockInvalido, p.StockSistema)
	}
	if p.Nombre == "" {
		p.Nombre = p.Codigo
	}
	return nil
}

// UpsertProducto crea o reemplaza un producto (última escritura gana)
func (s *catalogoService) UpsertProducto(ctx context.Context, producto models.Producto) (*models.Producto, error) {
	logger := s.logger.With(zap.String("operation", "upsert_producto"), zap.String("codigo", producto.Codigo))

	if err := s.prepararProducto(&producto); err != nil {
		return nil, err
	}

	if err := s.catalog.Upsert(ctx, &producto); err != nil {
		logger.Error("Error guardando producto", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	s.registrarMarca(ctx, producto.Marca)
	s.invalidar(ctx, producto.Codigo)

	logger.Info("Producto guardado",
		zap.String("marca", producto.Marca),
		zap.Int("stock_sistema", producto.StockSistema))
	return &producto, nil
}

// BulkUpsert guarda cada producto por separado y reporta los que fallan
func (s *catalogoService) BulkUpsert(ctx context.Context, productos []models.Producto) *models.ResultadoLote {
	indices := make([]int, len(productos))
	for i := range productos {
		indices[i] = i
	}
	return s.upsertLote(ctx, productos, indices)
}

func (s *catalogoService) upsertLote(ctx context.Context, productos []models.Producto, indices []int) *models.ResultadoLote {
	logger := s.logger.With(zap.String("operation", "bulk_upsert"), zap.Int("productos", len(productos)))

	resultado := &models.ResultadoLote{Errores: make([]models.ProductoError, 0)}
	marcas := make(map[string]struct{})
	guardados := make([]string, 0, len(productos))

	for i, p := range productos {
		resultado.Procesados++
		fallo := func(err error) {
			resultado.Fallidos++
			resultado.Errores = append(resultado.Errores, models.ProductoError{Index: indices[i], Codigo: p.Codigo, Error: err.Error()})
		}

		if err := ctx.Err(); err != nil {
			fallo(err)
			continue
		}
		if err := s.prepararProducto(&p); err != nil {
			fallo(err)
			continue
		}
		if err := s.catalog.Upsert(ctx, &p); err != nil {
			logger.Error("Error guardando producto del lote", zap.String("codigo", p.Codigo), zap.Error(err))
			fallo(err)
			continue
		}

		resultado.Exitosos++
		marcas[p.Marca] = struct{}{}
		guardados = append(guardados, p.Codigo)
	}

	for m := range marcas {
		s.registrarMarca(ctx, m)
	}

	if len(guardados) > loteInvalidacionTotal {
		if err := s.productCache.InvalidateAll(ctx); err != nil {
			logger.Warn("Error invalidando caché", zap.Error(err))
		}
	} else {
		for _, codigo := range guardados {
			s.invalidar(ctx, codigo)
		}
	}

	logger.Info("Lote procesado",
		zap.Int("exitosos", resultado.Exitosos),
		zap.Int("fallidos", resultado.Fallidos))
	return resultado
}

// ImportarExcel carga el catálogo desde una planilla; los índices de error son filas de la hoja
func (s *catalogoService) ImportarExcel(ctx context.Context, r io.Reader) (*models.ResultadoLote, error) {
	filas, erroresLectura, err := excel.LeerProductos(r)
	if err != nil {
		return nil, err
	}

	productos := make([]models.Producto, len(filas))
	indices := make([]int, len(filas))
	for i, f := range filas {
		productos[i] = f.Producto
		indices[i] = f.Fila
	}

	resultado := s.upsertLote(ctx, productos, indices)
	resultado.Procesados += len(erroresLectura)
	resultado.Fallidos += len(erroresLectura)
	resultado.Errores = append(erroresLectura, resultado.Errores...)
	return resultado, nil
}

func (s *catalogoService) ObtenerProducto(ctx context.Context, codigo string) (*models.Producto, error) {
	codigo = models.NormalizarCodigo(codigo)
	if codigo == "" {
		return nil, ErrCodigoVacio
	}
	if p, err := s.productCache.GetProduct(ctx, codigo); err == nil {
		return p, nil
	}

	p, err := buscarEnCatalogo(ctx, s.catalog, codigo)
	if err != nil {
		return nil, err
	}
	if err := s.productCache.SetProduct(ctx, p); err != nil {
		s.logger.Warn("No se pudo guardar el producto en caché", zap.String("codigo", codigo), zap.Error(err))
	}
	return p, nil
}

func (s *catalogoService) ListarProductos(ctx context.Context, marca string) ([]*models.Producto, error) {
	if marca != "" {
		marca = models.NormalizarMarca(marca, s.cfg.SinMarca)
	}
	productos, err := s.catalog.All(ctx, marca)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return productos, nil
}

// DesactivarProducto borrado lógico; los escaneos existentes se conservan
func (s *catalogoService) DesactivarProducto(ctx context.Context, codigo string) error {
	codigo = models.NormalizarCodigo(codigo)
	if codigo == "" {
		return ErrCodigoVacio
	}
	err := s.catalog.Desactivar(ctx, codigo)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrProductoNoEncontrado, codigo)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	s.invalidar(ctx, codigo)
	s.logger.Info("Producto desactivado", zap.String("operation", "desactivar_producto"), zap.String("codigo", codigo))
	return nil
}

// CrearMarca registra la marca en mayúsculas; false si ya existía
func (s *catalogoService) CrearMarca(ctx context.Context, nombre string) (bool, error) {
	if strings.TrimSpace(nombre) == "" {
		return false, ErrMarcaInvalida
	}
	nombre = models.NormalizarMarca(nombre, s.cfg.SinMarca)

	creada, err := s.catalog.AddMarca(ctx, nombre)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	if creada {
		s.logger.Info("Marca creada", zap.String("marca", nombre))
	}
	return creada, nil
}

func (s *catalogoService) ListarMarcas(ctx context.Context) ([]string, error) {
	marcas, err := s.catalog.ListMarcas(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlmacenamiento, err)
	}
	return marcas, nil
}

// InicializarMarcas registra las marcas de arranque y la marca por defecto
func (s *catalogoService) InicializarMarcas(ctx context.Context) error {
	iniciales := append([]string{s.cfg.SinMarca}, models.MarcasIniciales...)
	for _, m := range iniciales {
		if _, err := s.catalog.AddMarca(ctx, m); err != nil {
			return fmt.Errorf("error registrando marca %s: %w", m, err)
		}
	}
	return nil
}

func (s *catalogoService) Areas() []string {
	return append([]string(nil), models.AreasSugeridas...)
}

func (s *catalogoService) registrarMarca(ctx context.Context, marca string) {
	if _, err := s.catalog.AddMarca(ctx, marca); err != nil {
		s.logger.Warn("No se pudo registrar la marca", zap.String("marca", marca), zap.Error(err))
	}
}

func (s *catalogoService) invalidar(ctx context.Context, codigo string) {
	if err := s.productCache.InvalidateProduct(ctx, codigo); err != nil {
		s.logger.Warn("No se pudo invalidar el caché", zap.String("codigo", codigo), zap.Error(err))
	}
}
