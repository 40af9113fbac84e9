package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conteo-service/internal/models"
	"conteo-service/internal/repository"
)

// CatalogStore catálogo en memoria, usado en modo desarrollo y en tests
type CatalogStore struct {
	mu        sync.RWMutex
	productos map[string]models.Producto
	marcas    map[string]struct{}
	now       func() time.Time
}

// NewCatalogStore crea el catálogo con las marcas iniciales registradas
func NewCatalogStore() *CatalogStore {
	s := &CatalogStore{
		productos: make(map[string]models.Producto),
		marcas:    make(map[string]struct{}),
		now:       time.Now,
	}
	for _, m := range models.MarcasIniciales {
		s.marcas[m] = struct{}{}
	}
	return s
}

func (s *CatalogStore) FindByCodigo(ctx context.Context, codigo string) (*models.Producto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.productos[models.NormalizarCodigo(codigo)]
	if !ok || !p.Activo {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s *CatalogStore) All(ctx context.Context, marca string) ([]*models.Producto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Producto, 0, len(s.productos))
	for _, p := range s.productos {
		if !p.Activo {
			continue
		}
		if marca != "" && p.Marca != marca {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out, nil
}

func (s *CatalogStore) Upsert(ctx context.Context, producto *models.Producto) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := *producto
	p.Codigo = models.NormalizarCodigo(p.Codigo)
	p.FechaActualizacion = s.now()
	s.productos[p.Codigo] = p
	return nil
}

func (s *CatalogStore) Desactivar(ctx context.Context, codigo string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codigo = models.NormalizarCodigo(codigo)
	p, ok := s.productos[codigo]
	if !ok || !p.Activo {
		return repository.ErrNotFound
	}
	p.Activo = false
	p.FechaActualizacion = s.now()
	s.productos[codigo] = p
	return nil
}

func (s *CatalogStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.productos {
		if p.Activo {
			n++
		}
	}
	return n, nil
}

func (s *CatalogStore) ListMarcas(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.marcas))
	for m := range s.marcas {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *CatalogStore) AddMarca(ctx context.Context, nombre string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.marcas[nombre]; ok {
		return false, nil
	}
	s.marcas[nombre] = struct{}{}
	return true, nil
}
