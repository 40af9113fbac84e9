package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"conteo-service/internal/models"
	"conteo-service/internal/repository"
)

// UsuarioStore credenciales en memoria
type UsuarioStore struct {
	mu       sync.RWMutex
	usuarios map[string]models.Usuario
}

func NewUsuarioStore() *UsuarioStore {
	return &UsuarioStore{usuarios: make(map[string]models.Usuario)}
}

func (s *UsuarioStore) FindByUsername(ctx context.Context, username string) (*models.Usuario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usuarios[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *UsuarioStore) Create(ctx context.Context, usuario *models.Usuario) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usuarios[usuario.Username]; ok {
		return repository.ErrUsuarioExiste
	}
	u := *usuario
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.usuarios[u.Username] = u
	return nil
}

func (s *UsuarioStore) List(ctx context.Context) ([]*models.Usuario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Usuario, 0, len(s.usuarios))
	for _, u := range s.usuarios {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *UsuarioStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usuarios), nil
}
