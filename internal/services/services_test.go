package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"
	"conteo-service/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var hoyFijo = time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)

type entorno struct {
	catalog  repository.CatalogRepository
	escaneos repository.EscaneoRepository
	cache    *cache.ProductCache
	cfg      config.ConteoConfig
	reloj    *reloj

	escaneo  EscaneoService
	reporte  ReporteService
	catalogo CatalogoService
}

// reloj avanza un segundo en cada lectura para que los escaneos queden ordenados
type reloj struct {
	mu sync.Mutex
	t  time.Time
}

func (r *reloj) now() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = r.t.Add(time.Second)
	return r.t
}

func (r *reloj) avanzar(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t = r.t.Add(d)
}

func configConteo() config.ConteoConfig {
	return config.ConteoConfig{
		UmbralLeve: models.UmbralLevePorDefecto,
		Timezone:   "UTC",
		Location:   time.UTC,
		SinMarca:   models.SinMarcaPorDefecto,
		LockTTL:    time.Second,
	}
}

func nuevoEntorno(t *testing.T, opts ...func(*entorno)) *entorno {
	t.Helper()

	e := &entorno{
		catalog:  memory.NewCatalogStore(),
		escaneos: memory.NewEscaneoStore(),
		cache:    cache.NewProductCache(nil, 100, time.Minute, zap.NewNop()),
		cfg:      configConteo(),
		reloj:    &reloj{t: hoyFijo},
	}
	for _, opt := range opts {
		opt(e)
	}

	logger := zap.NewNop()
	e.escaneo = NewEscaneoService(e.catalog, e.escaneos, e.cache, cache.NewLocalLocker(), e.cfg, e.reloj.now, logger)
	e.reporte = NewReporteService(e.catalog, e.escaneos, e.cfg, e.reloj.now, logger)
	e.catalogo = NewCatalogoService(e.catalog, e.cache, e.cfg, logger)
	return e
}

func (e *entorno) producto(t *testing.T, codigo, nombre, marca, area string, stock int) {
	t.Helper()
	_, err := e.catalogo.UpsertProducto(context.Background(), models.Producto{
		Codigo: codigo, Nombre: nombre, Marca: marca, Area: area, StockSistema: stock,
	})
	require.NoError(t, err)
}

func (e *entorno) escanear(t *testing.T, usuario, codigo string, cantidad int) *models.ResultadoEscaneo {
	t.Helper()
	r, err := e.escaneo.RegistrarEscaneo(context.Background(), usuario, codigo, cantidad)
	require.NoError(t, err)
	return r
}
