package services

import (
	"bytes"
	"context"
	"testing"

	"conteo-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUpsertProductoNormaliza(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	p, err := e.catalogo.UpsertProducto(ctx, models.Producto{Codigo: " A1\r\n", Nombre: " Jeringa ", Marca: "", StockSistema: 3})
	require.NoError(t, err)
	assert.Equal(t, "A1", p.Codigo)
	assert.Equal(t, "Jeringa", p.Nombre)
	assert.Equal(t, models.SinMarcaPorDefecto, p.Marca)

	_, err = e.catalogo.UpsertProducto(ctx, models.Producto{Codigo: "A2", StockSistema: -1})
	assert.ErrorIs(t, err, ErrStockInvalido)

	_, err = e.catalogo.UpsertProducto(ctx, models.Producto{Codigo: "  "})
	assert.ErrorIs(t, err, ErrCodigoVacio)
}

func TestUpsertProductoRegistraMarca(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	_, err := e.catalogo.UpsertProducto(ctx, models.Producto{Codigo: "Z1", Nombre: "Vendas", Marca: "calox"})
	require.NoError(t, err)

	marcas, err := e.catalogo.ListarMarcas(ctx)
	require.NoError(t, err)
	assert.Contains(t, marcas, "CALOX")
}

func TestUpsertProductoInvalidaCache(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)
	e.escanear(t, "alice", "P001", 1)

	_, err := e.cache.GetProduct(context.Background(), "P001")
	require.NoError(t, err)

	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 9)
	_, err = e.cache.GetProduct(context.Background(), "P001")
	assert.Error(t, err)
}

func TestBulkUpsert(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	r := e.catalogo.BulkUpsert(ctx, []models.Producto{
		{Codigo: "B1", Nombre: "Uno", Marca: "LETI", StockSistema: 1},
		{Codigo: "", Nombre: "Sin código"},
		{Codigo: "B3", Nombre: "Tres", StockSistema: -4},
		{Codigo: "B4", Nombre: "Cuatro", Marca: "nueva"},
	})
	assert.Equal(t, 4, r.Procesados)
	assert.Equal(t, 2, r.Exitosos)
	assert.Equal(t, 2, r.Fallidos)
	require.Len(t, r.Errores, 2)
	assert.Equal(t, 1, r.Errores[0].Index)
	assert.Equal(t, 2, r.Errores[1].Index)
	assert.Equal(t, "B3", r.Errores[1].Codigo)

	productos, err := e.catalogo.ListarProductos(ctx, "")
	require.NoError(t, err)
	assert.Len(t, productos, 2)

	nueva, err := e.catalogo.ListarProductos(ctx, "Nueva")
	require.NoError(t, err)
	require.Len(t, nueva, 1)
	assert.Equal(t, "B4", nueva[0].Codigo)
}

func TestImportarExcel(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	f := excelize.NewFile()
	filas := [][]interface{}{
		{"codigo", "producto", "marca", "area", "stock_sistema"},
		{"X1", "Suero", "genven", "Farmacia", 12},
		{"X2", "Algodón", "", "Bodega", "abc"},
		{"X3", "Termómetro", "LETI", "Equipos médicos", 4},
	}
	for i, fila := range filas {
		celda, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		fila := fila
		require.NoError(t, f.SetSheetRow("Sheet1", celda, &fila))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	r, err := e.catalogo.ImportarExcel(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Procesados)
	assert.Equal(t, 2, r.Exitosos)
	assert.Equal(t, 1, r.Fallidos)
	require.Len(t, r.Errores, 1)
	assert.Equal(t, 3, r.Errores[0].Index)

	p, err := e.catalogo.ObtenerProducto(ctx, "X1")
	require.NoError(t, err)
	assert.Equal(t, "GENVEN", p.Marca)
	assert.Equal(t, 12, p.StockSistema)
}

func TestDesactivarProducto(t *testing.T) {
	e := nuevoEntorno(t)
	e.producto(t, "P001", "Ibuprofeno", "GENVEN", "Farmacia", 5)
	ctx := context.Background()

	require.NoError(t, e.catalogo.DesactivarProducto(ctx, "P001"))

	_, err := e.catalogo.ObtenerProducto(ctx, "P001")
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)

	_, err = e.escaneo.RegistrarEscaneo(ctx, "alice", "P001", 1)
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)

	err = e.catalogo.DesactivarProducto(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrProductoNoEncontrado)
}

func TestCrearMarca(t *testing.T) {
	e := nuevoEntorno(t)
	ctx := context.Background()

	creada, err := e.catalogo.CrearMarca(ctx, " calox ")
	require.NoError(t, err)
	assert.True(t, creada)

	creada, err = e.catalogo.CrearMarca(ctx, "CALOX")
	require.NoError(t, err)
	assert.False(t, creada)

	_, err = e.catalogo.CrearMarca(ctx, "   ")
	assert.ErrorIs(t, err, ErrMarcaInvalida)

	require.NoError(t, e.catalogo.InicializarMarcas(ctx))
	marcas, err := e.catalogo.ListarMarcas(ctx)
	require.NoError(t, err)
	for _, m := range models.MarcasIniciales {
		assert.Contains(t, marcas, m)
	}
	assert.NotEmpty(t, e.catalogo.Areas())
}

func TestInicializarMarcasUsaMarcaConfigurada(t *testing.T) {
	e := nuevoEntorno(t, func(e *entorno) {
		e.cfg.SinMarca = "GENERICO"
	})
	ctx := context.Background()
	require.NoError(t, e.catalogo.InicializarMarcas(ctx))

	p, err := e.catalogo.UpsertProducto(ctx, models.Producto{Codigo: "S1", Nombre: "Curitas"})
	require.NoError(t, err)
	assert.Equal(t, "GENERICO", p.Marca)

	marcas, err := e.catalogo.ListarMarcas(ctx)
	require.NoError(t, err)
	assert.Contains(t, marcas, "GENERICO")
	assert.NotContains(t, marcas, models.SinMarcaPorDefecto)

	filas, err := e.reporte.ResumenPorMarca(ctx, "")
	require.NoError(t, err)
	for _, f := range filas {
		assert.NotEqual(t, models.SinMarcaPorDefecto, f.Marca)
	}
}
