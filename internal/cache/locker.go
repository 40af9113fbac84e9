package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrLockNoObtenido no se pudo tomar el lock antes de que venciera el contexto
var ErrLockNoObtenido = errors.New("no se pudo obtener el lock del conteo")

// KeyLocker serializa operaciones que comparten la misma clave
type KeyLocker interface {
	// Lock bloquea la clave y devuelve la función que la libera
	Lock(ctx context.Context, key string) (func(), error)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// LocalLocker mapa de mutex por clave dentro del proceso.
// Las entradas se eliminan cuando nadie las usa.
type LocalLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{entries: make(map[string]*lockEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &lockEntry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	adquirido := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(adquirido)
	}()

	select {
	case <-adquirido:
		return func() { l.release(key, e) }, nil
	case <-ctx.Done():
		// la goroutine termina tomando el mutex; se libera apenas lo obtiene
		go func() {
			<-adquirido
			l.release(key, e)
		}()
		return nil, fmt.Errorf("%w: %v", ErrLockNoObtenido, ctx.Err())
	}
}

func (l *LocalLocker) release(key string, e *lockEntry) {
	e.mu.Unlock()

	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// Len cantidad de claves con lock activo o en espera
func (l *LocalLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// RedisLocker lock distribuido con redislock para varias instancias del servicio.
// Dentro del proceso primero se toma el LocalLocker para no competir contra Redis.
type RedisLocker struct {
	local   *LocalLocker
	client  *redislock.Client
	ttl     time.Duration
	backoff time.Duration
	logger  *zap.Logger
}

func NewRedisLocker(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &RedisLocker{
		local:   NewLocalLocker(),
		client:  redislock.New(redisClient),
		ttl:     ttl,
		backoff: 25 * time.Millisecond,
		logger:  logger,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	unlockLocal, err := l.local.Lock(ctx, key)
	if err != nil {
		return nil, err
	}

	// sin deadline en el contexto se acota la espera al TTL del lock
	obtainCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.ttl)
		defer cancel()
	}

	lock, err := l.client.Obtain(obtainCtx, "conteo:lock:"+key, l.ttl, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.backoff),
	})
	if err != nil {
		unlockLocal()
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s", ErrLockNoObtenido, key)
		}
		return nil, fmt.Errorf("error obteniendo lock %s: %w", key, err)
	}

	return func() {
		// el release no depende del contexto de la petición
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.Warn("Error liberando lock", zap.String("key", key), zap.Error(err))
		}
		unlockLocal()
	}, nil
}
