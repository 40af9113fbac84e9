package jobs

import (
	"context"
	"testing"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/repository/memory"
	"conteo-service/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestReconstruirHoy(t *testing.T) {
	logger := zap.NewNop()
	cfg := config.ConteoConfig{UmbralLeve: 2, Location: time.UTC}
	catalog := memory.NewCatalogStore()
	escaneos := memory.NewEscaneoStore()
	productCache := cache.NewProductCache(nil, 10, time.Minute, logger)
	ctx := context.Background()

	require.NoError(t, catalog.Upsert(ctx, &models.Producto{Codigo: "P1", Nombre: "Uno", Marca: "LETI", StockSistema: 4, Activo: true}))
	escaneoService := services.NewEscaneoService(catalog, escaneos, productCache, cache.NewLocalLocker(), cfg, nil, logger)
	_, err := escaneoService.RegistrarEscaneo(ctx, "alice", "P1", 3)
	require.NoError(t, err)

	dia := escaneoService.Hoy()
	require.NoError(t, catalog.Upsert(ctx, &models.Producto{Codigo: "P1", Nombre: "Uno", Marca: "LETI", StockSistema: 6, Activo: true}))

	reporteService := services.NewReporteService(catalog, escaneos, cfg, nil, logger)
	s := NewScheduler(reporteService, productCache, config.JobsConfig{RebuildEveryMinutes: 1, CleanupEveryMinutes: 1}, time.UTC, logger)
	s.ReconstruirHoy()

	conteos, err := escaneos.ConteosDiarios(ctx, dia)
	require.NoError(t, err)
	require.Len(t, conteos, 1)
	assert.Equal(t, 3, conteos[0].ConteoFisico)
	assert.Equal(t, 6, conteos[0].StockSistema)
	assert.Equal(t, -3, conteos[0].Diferencia)
}

func TestRegistrar(t *testing.T) {
	logger := zap.NewNop()
	productCache := cache.NewProductCache(nil, 10, time.Minute, logger)
	reporteService := services.NewReporteService(memory.NewCatalogStore(), memory.NewEscaneoStore(), config.ConteoConfig{}, nil, logger)

	s := NewScheduler(reporteService, productCache, config.JobsConfig{RebuildEveryMinutes: 15, CleanupEveryMinutes: 0}, time.UTC, logger)
	require.NoError(t, s.Registrar())
	assert.Equal(t, 2, s.Len())

	s.Start()
	s.LimpiarCache()
	s.Stop()
}
