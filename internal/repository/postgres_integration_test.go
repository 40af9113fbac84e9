package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"conteo-service/internal/database"
	"conteo-service/internal/models"
	"conteo-service/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func abrirPostgres(t *testing.T) *database.PostgresDB {
	t.Helper()
	dsn := os.Getenv("CONTEO_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CONTEO_TEST_DATABASE_URL no definido")
	}

	pg, err := database.NewPostgresDB(dsn, 5, 2, time.Minute, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	ctx := context.Background()
	require.NoError(t, pg.EnsureSchema(ctx))
	_, err = pg.DB.ExecContext(ctx, `TRUNCATE productos, escaneos, conteos_diarios, usuarios RESTART IDENTITY`)
	require.NoError(t, err)
	return pg
}

func TestPostgresCatalogDuplicadoNormalizado(t *testing.T) {
	pg := abrirPostgres(t)
	ctx := context.Background()

	repo, err := repository.NewCatalogRepository(pg.DB, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, &models.Producto{Codigo: "P001", Nombre: "A", Marca: "LETI", StockSistema: 5, Activo: true}))
	p, err := repo.FindByCodigo(ctx, " P001\n")
	require.NoError(t, err)
	assert.Equal(t, 5, p.StockSistema)

	// fila heredada sin normalizar
	_, err = pg.DB.ExecContext(ctx, `INSERT INTO productos (codigo, producto, marca) VALUES (E'P001\r\n', 'A bis', 'LETI')`)
	require.NoError(t, err)

	_, err = repo.FindByCodigo(ctx, "P001")
	assert.ErrorIs(t, err, repository.ErrCodigoDuplicado)
}

func TestPostgresCatalogNormalizaEspaciosUnicode(t *testing.T) {
	pg := abrirPostgres(t)
	ctx := context.Background()

	repo, err := repository.NewCatalogRepository(pg.DB, zap.NewNop())
	require.NoError(t, err)

	legados := []string{"\u00a0X9\v", "\fX9\u0085", "\u3000X9\u2003"}
	for _, codigo := range legados {
		_, err = pg.DB.ExecContext(ctx, `TRUNCATE productos`)
		require.NoError(t, err)
		_, err = pg.DB.ExecContext(ctx, `INSERT INTO productos (codigo, producto, marca) VALUES ($1, 'Legado', 'LETI')`, codigo)
		require.NoError(t, err)

		require.Equal(t, "X9", models.NormalizarCodigo(codigo))
		p, err := repo.FindByCodigo(ctx, models.NormalizarCodigo(codigo))
		require.NoError(t, err, "codigo %q", codigo)
		assert.Equal(t, codigo, p.Codigo)

		require.NoError(t, repo.Upsert(ctx, &models.Producto{Codigo: "X9", Nombre: "Nuevo", Marca: "LETI", Activo: true}))
		_, err = repo.FindByCodigo(ctx, "X9")
		assert.ErrorIs(t, err, repository.ErrCodigoDuplicado, "codigo %q", codigo)
	}
}

func TestPostgresRecalcularConteos(t *testing.T) {
	pg := abrirPostgres(t)
	ctx := context.Background()

	repo, err := repository.NewEscaneoRepository(pg.DB, zap.NewNop())
	require.NoError(t, err)

	for _, ev := range []*models.Escaneo{
		{Fecha: time.Now(), Dia: "2024-05-01", Usuario: "alice", Codigo: "P001", Cantidad: 3, TotalAcumulado: 3, StockSistema: 5, Diferencia: -2},
		{Fecha: time.Now(), Dia: "2024-05-01", Usuario: "alice", Codigo: "P001", Cantidad: 2, TotalAcumulado: 5, StockSistema: 5, Diferencia: 0},
		{Fecha: time.Now(), Dia: "2024-05-01", Usuario: "bob", Codigo: "P002", Cantidad: 1, TotalAcumulado: 1, StockSistema: 4, Diferencia: -3},
	} {
		require.NoError(t, repo.Append(ctx, ev))
	}

	// fila sin escaneos que la respalden
	_, err = pg.DB.ExecContext(ctx, `INSERT INTO conteos_diarios (dia, usuario, codigo_producto, conteo_fisico, stock_sistema, diferencia)
		VALUES ('2024-05-01', 'carol', 'P009', 1, 1, 0)`)
	require.NoError(t, err)

	n, err := repo.RecalcularConteosDiarios(ctx, "2024-05-01", map[string]int{"P001": 8})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	conteos, err := repo.ConteosDiarios(ctx, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, conteos, 2)
	assert.Equal(t, 5, conteos[0].ConteoFisico)
	assert.Equal(t, 8, conteos[0].StockSistema)
	assert.Equal(t, -3, conteos[0].Diferencia)
	assert.Equal(t, "bob", conteos[1].Usuario)
	assert.Equal(t, 4, conteos[1].StockSistema)

	// un conteo que ya va adelante del log leído no retrocede
	_, err = pg.DB.ExecContext(ctx, `UPDATE conteos_diarios SET conteo_fisico = 9 WHERE usuario = 'bob'`)
	require.NoError(t, err)
	_, err = repo.RecalcularConteosDiarios(ctx, "2024-05-01", nil)
	require.NoError(t, err)
	conteos, err = repo.ConteosDiarios(ctx, "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 9, conteos[1].ConteoFisico)
}

func TestPostgresEscaneosAppend(t *testing.T) {
	pg := abrirPostgres(t)
	ctx := context.Background()

	repo, err := repository.NewEscaneoRepository(pg.DB, zap.NewNop())
	require.NoError(t, err)

	ev := &models.Escaneo{Fecha: time.Now(), Dia: "2024-05-01", Usuario: "alice", Codigo: "P001", Cantidad: 30, TotalAcumulado: 30, StockSistema: 100, Diferencia: -70}
	require.NoError(t, repo.Append(ctx, ev))
	assert.NotZero(t, ev.ID)

	dup := *ev
	assert.ErrorIs(t, repo.Append(ctx, &dup), repository.ErrConflicto)

	total, err := repo.SumCantidad(ctx, "alice", "P001", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 30, total)

	conteos, err := repo.ConteosDiarios(ctx, "2024-05-01")
	require.NoError(t, err)
	require.Len(t, conteos, 1)
	assert.Equal(t, -70, conteos[0].Diferencia)

	evs, err := repo.EventsFor(ctx, models.FiltroEscaneos{Dia: "2024-05-01"})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, "2024-05-01", evs[0].Dia)

	n, err := repo.DeleteDia(ctx, "2024-05-01", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
