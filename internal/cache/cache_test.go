package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"conteo-service/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestProductCacheL1YL2(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	pc := NewProductCache(client, 10, time.Minute, zap.NewNop())

	_, err := pc.GetProduct(ctx, "P001")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, pc.SetProduct(ctx, &models.Producto{Codigo: "P001", Nombre: "Ibuprofeno", StockSistema: 100}))
	assert.True(t, mr.Exists("conteo:producto:P001"))

	p, err := pc.GetProduct(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, 100, p.StockSistema)

	// otra instancia sin L1 encuentra el producto en Redis
	otra := NewProductCache(client, 10, time.Minute, zap.NewNop())
	p, err = otra.GetProduct(ctx, "P001")
	require.NoError(t, err)
	assert.Equal(t, "Ibuprofeno", p.Nombre)

	require.NoError(t, pc.InvalidateProduct(ctx, "P001"))
	assert.False(t, mr.Exists("conteo:producto:P001"))
	_, err = pc.GetProduct(ctx, "P001")
	assert.ErrorIs(t, err, ErrCacheMiss)

	stats := pc.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestProductCacheSinRedis(t *testing.T) {
	ctx := context.Background()
	pc := NewProductCache(nil, 2, time.Minute, zap.NewNop())

	for _, c := range []string{"A", "B", "C"} {
		require.NoError(t, pc.SetProduct(ctx, &models.Producto{Codigo: c}))
	}
	assert.Equal(t, 2, pc.GetStats().TotalKeys)

	require.NoError(t, pc.InvalidateAll(ctx))
	assert.Zero(t, pc.GetStats().TotalKeys)
}

func TestProductCacheCleanupL1(t *testing.T) {
	ctx := context.Background()
	pc := NewProductCache(nil, 10, time.Minute, zap.NewNop())
	ahora := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	pc.now = func() time.Time { return ahora }

	require.NoError(t, pc.SetProduct(ctx, &models.Producto{Codigo: "P001"}))
	ahora = ahora.Add(2 * time.Minute)

	_, err := pc.GetProduct(ctx, "P001")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 1, pc.CleanupL1())
	assert.Zero(t, pc.GetStats().TotalKeys)
}

func TestInvalidateAllBorraClavesRedis(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	pc := NewProductCache(client, 10, time.Minute, zap.NewNop())

	require.NoError(t, pc.SetProduct(ctx, &models.Producto{Codigo: "A"}))
	require.NoError(t, pc.SetProduct(ctx, &models.Producto{Codigo: "B"}))
	require.NoError(t, mr.Set("otra:clave", "x"))

	require.NoError(t, pc.InvalidateAll(ctx))
	assert.False(t, mr.Exists("conteo:producto:A"))
	assert.False(t, mr.Exists("conteo:producto:B"))
	assert.True(t, mr.Exists("otra:clave"))
}

func TestInvalidacionEntreInstancias(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, client := newRedis(t)

	a := NewProductCache(client, 10, time.Minute, zap.NewNop())
	b := NewProductCache(client, 10, time.Minute, zap.NewNop())
	require.NoError(t, b.EscucharInvalidaciones(ctx))

	require.NoError(t, a.SetProduct(ctx, &models.Producto{Codigo: "P1", StockSistema: 10}))
	p, err := b.GetProduct(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.StockSistema)

	// b ya tiene P1 en su L1; la invalidación de a debe alcanzarlo
	require.NoError(t, a.InvalidateProduct(ctx, "P1"))
	assert.Eventually(t, func() bool {
		_, err := b.GetProduct(ctx, "P1")
		return err != nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, a.SetProduct(ctx, &models.Producto{Codigo: "P2"}))
	_, err = b.GetProduct(ctx, "P2")
	require.NoError(t, err)
	require.NoError(t, a.InvalidateAll(ctx))
	assert.Eventually(t, func() bool {
		return b.GetStats().TotalKeys == 0
	}, time.Second, 10*time.Millisecond)
}

func TestEscucharInvalidacionesSinRedis(t *testing.T) {
	pc := NewProductCache(nil, 10, time.Minute, zap.NewNop())
	assert.NoError(t, pc.EscucharInvalidaciones(context.Background()))
}

// contadorNoAtomico simula el patrón leer-sumar-escribir que debe quedar serializado
func contadorNoAtomico(t *testing.T, locker KeyLocker, goroutines int) int {
	t.Helper()
	ctx := context.Background()
	total := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "2024-05-01:alice:P001")
			if !assert.NoError(t, err) {
				return
			}
			leido := total
			time.Sleep(time.Millisecond)
			total = leido + 1
			unlock()
		}()
	}
	wg.Wait()
	return total
}

func TestLocalLockerSerializaMismaClave(t *testing.T) {
	locker := NewLocalLocker()
	assert.Equal(t, 20, contadorNoAtomico(t, locker, 20))
	assert.Zero(t, locker.Len())
}

func TestLocalLockerRespetaContexto(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrLockNoObtenido)

	// claves distintas no se bloquean entre sí
	otra, err := locker.Lock(context.Background(), "otra")
	require.NoError(t, err)
	otra()

	unlock()
	assert.Eventually(t, func() bool { return locker.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestRedisLockerSerializaMismaClave(t *testing.T) {
	_, client := newRedis(t)
	locker := NewRedisLocker(client, 2*time.Second, zap.NewNop())
	assert.Equal(t, 10, contadorNoAtomico(t, locker, 10))
}

func TestRedisLockerEntreInstancias(t *testing.T) {
	_, client := newRedis(t)
	a := NewRedisLocker(client, 2*time.Second, zap.NewNop())
	b := NewRedisLocker(client, 2*time.Second, zap.NewNop())

	unlock, err := a.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = b.Lock(ctx, "k")
	assert.ErrorIs(t, err, ErrLockNoObtenido)

	unlock()
	unlockB, err := b.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlockB()
}
