package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"
	"conteo-service/internal/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistrarEscaneoAcumula(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 100)

	r1 := e.escanear(t, "alice", "P001", 30)
	assert.Equal(t, 0, r1.TotalAnterior)
	assert.Equal(t, 30, r1.TotalNuevo)
	assert.Equal(t, -70, r1.Diferencia)
	assert.Equal(t, models.TierCritico, r1.Tier)

	r2 := e.escanear(t, "alice", "P001", 25)
	assert.Equal(t, 30, r2.TotalAnterior)
	assert.Equal(t, 55, r2.TotalNuevo)
	assert.Equal(t, -45, r2.Diferencia)
	assert.Equal(t, models.TierCritico, r2.Tier)
	assert.Equal(t, "2024-05-01", r2.Escaneo.Dia)
	assert.Equal(t, 100, r2.Escaneo.StockSistema)
}

func TestRegistrarEscaneoExacto(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P002", "Gasas", "LETI", "Bodega", 10)

	r := e.escanear(t, "bob", "P002", 10)
	assert.Equal(t, 10, r.TotalNuevo)
	assert.Equal(t, 0, r.Diferencia)
	assert.Equal(t, models.TierExacto, r.Tier)
}

func TestRegistrarEscaneoNormalizaCodigo(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)

	e.escanear(t, "alice", "  P001\r\n", 2)
	r := e.escanear(t, "alice", "P001", 1)
	assert.Equal(t, 3, r.TotalNuevo)
	assert.Equal(t, "P001", r.Escaneo.Codigo)
}

func TestRegistrarEscaneoTotalesPorUsuario(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)

	e.escanear(t, "alice", "P001", 2)
	r := e.escanear(t, "bob", "P001", 1)
	assert.Equal(t, 0, r.TotalAnterior)
	assert.Equal(t, 1, r.TotalNuevo)
}

func TestRegistrarEscaneoCambioDeDia(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)

	e.escanear(t, "alice", "P001", 4)
	e.reloj.avanzar(24 * time.Hour)
	r := e.escanear(t, "alice", "P001", 1)
	assert.Equal(t, 0, r.TotalAnterior)
	assert.Equal(t, "2024-05-02", r.Escaneo.Dia)
}

func TestRegistrarEscaneoErrores(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)
	ctx := context.Background()

	tests := []struct {
		name     string
		usuario  string
		codigo   string
		cantidad int
		want     error
	}{
		{"codigo vacío", "alice", " \r\n", 1, ErrCodigoVacio},
		{"cantidad cero", "alice", "P001", 0, ErrCantidadInvalida},
		{"cantidad negativa", "alice", "P001", -3, ErrCantidadInvalida},
		{"producto inexistente", "alice", "NOPE", 1, ErrProductoNoEncontrado},
		{"sin usuario", "", "P001", 1, ErrUsuarioRequerido},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.escaneo.RegistrarEscaneo(ctx, tt.usuario, tt.codigo, tt.cantidad)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	eventos, err := e.escaneos.EventsFor(ctx, models.FiltroEscaneos{})
	require.NoError(t, err)
	assert.Empty(t, eventos)
}

type catalogoDuplicado struct {
	*memory.CatalogStore
}

func (catalogoDuplicado) FindByCodigo(ctx context.Context, codigo string) (*models.Producto, error) {
	return nil, repository.ErrCodigoDuplicado
}

func TestRegistrarEscaneoCodigoDuplicado(t *testing.T) {
	e := nuevoEntorno(t, func(e *entorno) {
		e.catalog = catalogoDuplicado{memory.NewCatalogStore()}
	})

	_, err := e.escaneo.RegistrarEscaneo(context.Background(), "alice", "P001", 1)
	assert.ErrorIs(t, err, ErrIntegridadDatos)

	eventos, err := e.escaneos.EventsFor(context.Background(), models.FiltroEscaneos{})
	require.NoError(t, err)
	assert.Empty(t, eventos)
}

type escaneosCaidos struct {
	*memory.EscaneoStore
}

func (escaneosCaidos) Append(ctx context.Context, escaneo *models.Escaneo) error {
	return errors.New("disco lleno")
}

func TestRegistrarEscaneoFallaAlmacenamiento(t *testing.T) {
	e := nuevoEntorno(t, func(e *entorno) {
		e.escaneos = escaneosCaidos{memory.NewEscaneoStore()}
	})
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)

	_, err := e.escaneo.RegistrarEscaneo(context.Background(), "alice", "P001", 1)
	assert.ErrorIs(t, err, ErrAlmacenamiento)

	total, err := e.escaneo.TotalHoy(context.Background(), "alice", "P001")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRegistrarEscaneoConcurrente(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 100)

	const goroutines = 50
	var wg sync.WaitGroup
	errs := make(chan error, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.escaneo.RegistrarEscaneo(context.Background(), "alice", "P001", 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, err := e.escaneo.TotalHoy(context.Background(), "alice", "P001")
	require.NoError(t, err)
	assert.Equal(t, goroutines, total)

	eventos, err := e.escaneos.EventsFor(context.Background(), models.FiltroEscaneos{Usuario: "alice"})
	require.NoError(t, err)
	require.Len(t, eventos, goroutines)

	totales := make([]int, 0, goroutines)
	for _, ev := range eventos {
		totales = append(totales, ev.TotalAcumulado)
	}
	sort.Ints(totales)
	for i, v := range totales {
		assert.Equal(t, i+1, v)
	}
}

func TestReiniciarDia(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)
	ctx := context.Background()

	e.escanear(t, "alice", "P001", 2)
	e.escanear(t, "bob", "P001", 3)

	borrados, err := e.escaneo.ReiniciarDia(ctx, "", "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), borrados)

	total, err := e.escaneo.TotalHoy(ctx, "bob", "P001")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	_, err = e.escaneo.ReiniciarDia(ctx, "01-05-2024", "")
	assert.ErrorIs(t, err, ErrDiaInvalido)

	require.NoError(t, e.escaneo.PurgarTodo(ctx))
	total, err = e.escaneo.TotalHoy(ctx, "bob", "P001")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestRegistrarEscaneoUsaStockActualizado(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)

	r := e.escanear(t, "alice", "P001", 5)
	assert.Equal(t, models.TierExacto, r.Tier)

	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 8)
	r = e.escanear(t, "alice", "P001", 1)
	assert.Equal(t, -2, r.Diferencia)
	assert.Equal(t, models.TierLeve, r.Tier)
}

func TestRegistrarEscaneoEntreInstancias(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := zap.NewNop()
	cfg := configConteo()
	r := &reloj{t: hoyFijo}
	catalog := memory.NewCatalogStore()
	escaneos := memory.NewEscaneoStore()

	// dos instancias con catálogo y Redis compartidos, cada una con su propio caché
	catalogoA := NewCatalogoService(catalog, cache.NewProductCache(client, 100, time.Minute, logger), cfg, logger)
	escaneoB := NewEscaneoService(catalog, escaneos, cache.NewProductCache(client, 100, time.Minute, logger),
		cache.NewRedisLocker(client, time.Second, logger), cfg, r.now, logger)
	reporte := NewReporteService(catalog, escaneos, cfg, r.now, logger)

	_, err := catalogoA.UpsertProducto(ctx, models.Producto{Codigo: "P1", Nombre: "Suero", Marca: "LETI", StockSistema: 10})
	require.NoError(t, err)
	_, err = escaneoB.RegistrarEscaneo(ctx, "bob", "P1", 1)
	require.NoError(t, err)

	_, err = catalogoA.UpsertProducto(ctx, models.Producto{Codigo: "P1", Nombre: "Suero", Marca: "LETI", StockSistema: 50})
	require.NoError(t, err)
	res, err := escaneoB.RegistrarEscaneo(ctx, "bob", "P1", 1)
	require.NoError(t, err)
	assert.Equal(t, 50, res.Escaneo.StockSistema)
	assert.Equal(t, -48, res.Diferencia)
	assert.Equal(t, models.TierCritico, res.Tier)

	detalle, err := reporte.DetalleProductos(ctx, models.FiltroDetalle{})
	require.NoError(t, err)
	require.Len(t, detalle, 1)
	assert.Equal(t, res.Diferencia, detalle[0].Diferencia)
	assert.Equal(t, res.Tier, detalle[0].Tier)

	require.NoError(t, catalogoA.DesactivarProducto(ctx, "P1"))
	_, err = escaneoB.RegistrarEscaneo(ctx, "bob", "P1", 1)
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
}
