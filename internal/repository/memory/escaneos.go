package memory

import (
	"context"
	"sort"
	"sync"

	"conteo-service/internal/models"
	"conteo-service/internal/repository"
)

type claveConteo struct {
	dia, usuario, codigo string
}

// EscaneoStore log de escaneos en memoria con su resumen diario
type EscaneoStore struct {
	mu       sync.RWMutex
	escaneos []models.Escaneo
	conteos  map[claveConteo]models.ConteoDiario
	nextID   int64
}

func NewEscaneoStore() *EscaneoStore {
	return &EscaneoStore{
		conteos: make(map[claveConteo]models.ConteoDiario),
	}
}

func (s *EscaneoStore) Append(ctx context.Context, escaneo *models.Escaneo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// mismo resguardo que el índice único de Postgres
	for i := len(s.escaneos) - 1; i >= 0; i-- {
		e := s.escaneos[i]
		if e.Dia == escaneo.Dia && e.Usuario == escaneo.Usuario && e.Codigo == escaneo.Codigo && e.TotalAcumulado == escaneo.TotalAcumulado {
			return repository.ErrConflicto
		}
	}

	s.nextID++
	escaneo.ID = s.nextID
	s.escaneos = append(s.escaneos, *escaneo)

	clave := claveConteo{escaneo.Dia, escaneo.Usuario, escaneo.Codigo}
	s.conteos[clave] = models.ConteoDesdeEscaneo(escaneo)
	return nil
}

func (s *EscaneoStore) SumCantidad(ctx context.Context, usuario, codigo, dia string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, e := range s.escaneos {
		if e.Dia == dia && e.Usuario == usuario && e.Codigo == codigo {
			total += e.Cantidad
		}
	}
	return total, nil
}

func (s *EscaneoStore) EventsFor(ctx context.Context, filtro models.FiltroEscaneos) ([]*models.Escaneo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codigo := models.NormalizarCodigo(filtro.Codigo)
	out := make([]*models.Escaneo, 0)
	for _, e := range s.escaneos {
		if filtro.Usuario != "" && e.Usuario != filtro.Usuario {
			continue
		}
		if codigo != "" && e.Codigo != codigo {
			continue
		}
		if filtro.Dia != "" && e.Dia != filtro.Dia {
			continue
		}
		e := e
		out = append(out, &e)
	}
	if filtro.Limit > 0 && len(out) > filtro.Limit {
		out = out[len(out)-filtro.Limit:]
	}
	return out, nil
}

func (s *EscaneoStore) ConteosDiarios(ctx context.Context, dia string) ([]*models.ConteoDiario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ConteoDiario, 0)
	for k, c := range s.conteos {
		if k.dia != dia {
			continue
		}
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Usuario != out[j].Usuario {
			return out[i].Usuario < out[j].Usuario
		}
		return out[i].Codigo < out[j].Codigo
	})
	return out, nil
}

func (s *EscaneoStore) RecalcularConteosDiarios(ctx context.Context, dia string, stock map[string]int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ultimos := make(map[claveConteo]models.Escaneo)
	for _, e := range s.escaneos {
		if e.Dia != dia {
			continue
		}
		k := claveConteo{e.Dia, e.Usuario, e.Codigo}
		if prev, ok := ultimos[k]; !ok || e.ID > prev.ID {
			ultimos[k] = e
		}
	}

	for k := range s.conteos {
		if _, ok := ultimos[k]; k.dia == dia && !ok {
			delete(s.conteos, k)
		}
	}
	for k, e := range ultimos {
		c := models.ConteoDesdeEscaneo(&e)
		if st, ok := stock[e.Codigo]; ok {
			c.StockSistema = st
			c.Diferencia = c.ConteoFisico - st
		}
		s.conteos[k] = c
	}
	return len(ultimos), nil
}

func (s *EscaneoStore) DeleteDia(ctx context.Context, dia, usuario string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var borrados int64
	quedan := s.escaneos[:0]
	for _, e := range s.escaneos {
		if e.Dia == dia && (usuario == "" || e.Usuario == usuario) {
			borrados++
			continue
		}
		quedan = append(quedan, e)
	}
	s.escaneos = quedan

	for k := range s.conteos {
		if k.dia == dia && (usuario == "" || k.usuario == usuario) {
			delete(s.conteos, k)
		}
	}
	return borrados, nil
}

func (s *EscaneoStore) PurgeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.escaneos = nil
	s.conteos = make(map[claveConteo]models.ConteoDiario)
	return nil
}
