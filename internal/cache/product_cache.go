package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"conteo-service/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss el producto no está en ningún nivel del caché
var ErrCacheMiss = errors.New("producto no encontrado en caché")

// CacheStats estadísticas del caché
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
}

type entradaL1 struct {
	producto models.Producto
	expira   time.Time
}

// ProductCache implementa caché multi-nivel para búsquedas de producto por código.
// Sin cliente Redis funciona solo con el nivel en memoria.
type ProductCache struct {
	// L1 Cache: Memoria local
	l1Cache map[string]entradaL1
	l1Mutex sync.RWMutex

	// L2 Cache: Redis, compartido entre instancias
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64

	now func() time.Time
}

// NewProductCache crea una nueva instancia del caché
func NewProductCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ProductCache {
	if maxL1Size <= 0 {
		maxL1Size = 1000
	}
	return &ProductCache{
		l1Cache:     make(map[string]entradaL1),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// canalInvalidacion avisa a las demás instancias que descarten su L1
const canalInvalidacion = "conteo:producto:invalidar"

// invalidarTodos se publica en lugar de un código cuando se vacía el caché
const invalidarTodos = "*"

func redisKey(codigo string) string {
	return fmt.Sprintf("conteo:producto:%s", codigo)
}

// GetStats retorna estadísticas del caché
func (pc *ProductCache) GetStats() CacheStats {
	pc.statsMutex.RLock()
	defer pc.statsMutex.RUnlock()

	pc.l1Mutex.RLock()
	totalKeys := len(pc.l1Cache)
	pc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          pc.hits,
		Misses:        pc.misses,
		TotalRequests: pc.hits + pc.misses,
		TotalKeys:     totalKeys,
	}
}

// HitRate porcentaje de aciertos, 0 si no hubo consultas
func (s CacheStats) HitRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.TotalRequests) * 100
}

// GetProduct busca un producto por código normalizado; ErrCacheMiss si no está
func (pc *ProductCache) GetProduct(ctx context.Context, codigo string) (*models.Producto, error) {
	start := time.Now()

	if producto := pc.getFromL1(codigo); producto != nil {
		pc.recordHit()
		pc.logger.Debug("L1 cache hit",
			zap.String("codigo", codigo),
			zap.Duration("latency", time.Since(start)))
		return producto, nil
	}

	if pc.redisClient != nil {
		producto, err := pc.getFromL2(ctx, codigo)
		if err == nil {
			pc.setToL1(codigo, producto)
			pc.recordHit()
			pc.logger.Debug("L2 cache hit",
				zap.String("codigo", codigo),
				zap.Duration("latency", time.Since(start)))
			return producto, nil
		}
		if !errors.Is(err, redis.Nil) {
			pc.logger.Warn("Error leyendo caché L2", zap.String("codigo", codigo), zap.Error(err))
		}
	}

	pc.recordMiss()
	return nil, ErrCacheMiss
}

func (pc *ProductCache) recordHit() {
	pc.statsMutex.Lock()
	pc.hits++
	pc.statsMutex.Unlock()
}

func (pc *ProductCache) recordMiss() {
	pc.statsMutex.Lock()
	pc.misses++
	pc.statsMutex.Unlock()
}

// SetProduct almacena un producto en ambos niveles de caché
func (pc *ProductCache) SetProduct(ctx context.Context, producto *models.Producto) error {
	pc.setToL1(producto.Codigo, producto)
	if pc.redisClient == nil {
		return nil
	}
	return pc.setToL2(ctx, producto)
}

// InvalidateProduct invalida un producto en ambos cachés y en el L1 de las demás instancias
func (pc *ProductCache) InvalidateProduct(ctx context.Context, codigo string) error {
	pc.invalidarL1(codigo)

	if pc.redisClient == nil {
		return nil
	}
	if err := pc.redisClient.Del(ctx, redisKey(codigo)).Err(); err != nil {
		return err
	}
	return pc.redisClient.Publish(ctx, canalInvalidacion, codigo).Err()
}

// InvalidateAll vacía el L1 y borra las claves de producto en Redis
func (pc *ProductCache) InvalidateAll(ctx context.Context) error {
	pc.invalidarL1(invalidarTodos)

	if pc.redisClient == nil {
		return nil
	}
	if err := pc.borrarClavesL2(ctx); err != nil {
		return err
	}
	return pc.redisClient.Publish(ctx, canalInvalidacion, invalidarTodos).Err()
}

// EscucharInvalidaciones suscribe el L1 a las invalidaciones publicadas por otras instancias.
// Vuelve cuando la suscripción está confirmada; la escucha termina al cancelar ctx.
func (pc *ProductCache) EscucharInvalidaciones(ctx context.Context) error {
	if pc.redisClient == nil {
		return nil
	}

	pubsub := pc.redisClient.Subscribe(ctx, canalInvalidacion)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return fmt.Errorf("error suscribiendo invalidaciones: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				pc.invalidarL1(msg.Payload)
				pc.logger.Debug("Invalidación recibida", zap.String("codigo", msg.Payload))
			}
		}
	}()
	return nil
}

func (pc *ProductCache) invalidarL1(codigo string) {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	if codigo == invalidarTodos {
		pc.l1Cache = make(map[string]entradaL1)
		return
	}
	delete(pc.l1Cache, codigo)
}

func (pc *ProductCache) borrarClavesL2(ctx context.Context) error {
	iter := pc.redisClient.Scan(ctx, 0, redisKey("*"), 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return pc.redisClient.Del(ctx, keys...).Err()
}

func (pc *ProductCache) getFromL1(codigo string) *models.Producto {
	pc.l1Mutex.RLock()
	defer pc.l1Mutex.RUnlock()

	e, ok := pc.l1Cache[codigo]
	if !ok || pc.now().After(e.expira) {
		return nil
	}
	p := e.producto
	return &p
}

func (pc *ProductCache) setToL1(codigo string, producto *models.Producto) {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	if _, existe := pc.l1Cache[codigo]; !existe && len(pc.l1Cache) >= pc.maxL1Size {
		pc.evictOne()
	}

	pc.l1Cache[codigo] = entradaL1{producto: *producto, expira: pc.now().Add(pc.ttl)}
}

// evictOne elimina la entrada que vence primero
func (pc *ProductCache) evictOne() {
	var victima string
	var primero time.Time
	for key, e := range pc.l1Cache {
		if victima == "" || e.expira.Before(primero) {
			victima, primero = key, e.expira
		}
	}
	delete(pc.l1Cache, victima)
}

func (pc *ProductCache) getFromL2(ctx context.Context, codigo string) (*models.Producto, error) {
	data, err := pc.redisClient.Get(ctx, redisKey(codigo)).Bytes()
	if err != nil {
		return nil, err
	}

	var producto models.Producto
	if err := json.Unmarshal(data, &producto); err != nil {
		return nil, err
	}
	return &producto, nil
}

func (pc *ProductCache) setToL2(ctx context.Context, producto *models.Producto) error {
	data, err := json.Marshal(producto)
	if err != nil {
		return err
	}
	return pc.redisClient.Set(ctx, redisKey(producto.Codigo), data, pc.ttl).Err()
}

// CleanupL1 quita las entradas vencidas del L1; devuelve cuántas eliminó
func (pc *ProductCache) CleanupL1() int {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	ahora := pc.now()
	eliminadas := 0
	for key, e := range pc.l1Cache {
		if ahora.After(e.expira) {
			delete(pc.l1Cache, key)
			eliminadas++
		}
	}
	pc.logger.Debug("L1 cache cleanup", zap.Int("eliminadas", eliminadas), zap.Int("items", len(pc.l1Cache)))
	return eliminadas
}
