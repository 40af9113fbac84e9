// Package excel lee el catálogo desde planillas .xlsx y exporta el detalle del conteo.
package excel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"conteo-service/internal/models"

	"github.com/xuri/excelize/v2"
)

// ErrColumnasFaltantes la planilla no trae todas las columnas obligatorias
var ErrColumnasFaltantes = errors.New("faltan columnas obligatorias")

// ColumnasRequeridas columnas que debe tener la hoja de importación
var ColumnasRequeridas = []string{"codigo", "producto", "area", "stock_sistema"}

// FilaProducto producto leído junto con su número de fila en la hoja
type FilaProducto struct {
	Fila     int
	Producto models.Producto
}

// LeerProductos lee la primera hoja del libro. Las filas con datos inválidos
// se devuelven como errores por fila y no detienen la lectura.
func LeerProductos(r io.Reader) ([]FilaProducto, []models.ProductoError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo abrir el archivo Excel: %w", err)
	}
	defer f.Close()

	hojas := f.GetSheetList()
	if len(hojas) == 0 {
		return nil, nil, fmt.Errorf("el archivo no tiene hojas")
	}

	rows, err := f.GetRows(hojas[0])
	if err != nil {
		return nil, nil, fmt.Errorf("no se pudo leer la hoja %s: %w", hojas[0], err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: hoja vacía", ErrColumnasFaltantes)
	}

	indices := make(map[string]int)
	for i, h := range rows[0] {
		indices[strings.ToLower(strings.TrimSpace(h))] = i
	}
	var faltantes []string
	for _, col := range ColumnasRequeridas {
		if _, ok := indices[col]; !ok {
			faltantes = append(faltantes, col)
		}
	}
	if len(faltantes) > 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrColumnasFaltantes, strings.Join(faltantes, ", "))
	}

	celda := func(row []string, col string) string {
		i, ok := indices[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var filas []FilaProducto
	var errores []models.ProductoError
	for n, row := range rows[1:] {
		fila := n + 2
		codigo := models.NormalizarCodigo(celda(row, "codigo"))
		nombre := celda(row, "producto")
		if codigo == "" && nombre == "" {
			continue
		}

		stock, err := parseStock(celda(row, "stock_sistema"))
		if err != nil {
			errores = append(errores, models.ProductoError{Index: fila, Codigo: codigo, Error: err.Error()})
			continue
		}

		filas = append(filas, FilaProducto{
			Fila: fila,
			Producto: models.Producto{
				Codigo:       codigo,
				Nombre:       nombre,
				Marca:        celda(row, "marca"),
				Area:         celda(row, "area"),
				StockSistema: stock,
				Activo:       true,
			},
		})
	}
	return filas, errores, nil
}

// parseStock acepta enteros escritos como "10" o "10.0"
func parseStock(valor string) (int, error) {
	if valor == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(valor, ",", "."), 64)
	if err != nil || v != math.Trunc(v) {
		return 0, fmt.Errorf("stock_sistema inválido %q", valor)
	}
	if v < 0 {
		return 0, fmt.Errorf("stock_sistema negativo %q", valor)
	}
	return int(v), nil
}

var encabezadoDetalle = []interface{}{
	"Código", "Producto", "Marca", "Área", "Stock sistema", "Conteo físico", "Diferencia", "Estado", "Último escaneo", "Usuario",
}

// EscribirDetalle genera un libro con la hoja "Detalle"
func EscribirDetalle(w io.Writer, dia string, filas []models.DetalleProducto) error {
	f := excelize.NewFile()
	defer f.Close()

	const hoja = "Detalle"
	if err := f.SetSheetName("Sheet1", hoja); err != nil {
		return err
	}
	if err := f.SetSheetRow(hoja, "A1", &encabezadoDetalle); err != nil {
		return err
	}

	for i, d := range filas {
		ultimo, usuario := "", ""
		if d.UltimoEscaneo != nil {
			ultimo = d.UltimoEscaneo.Format("2006-01-02 15:04:05")
		}
		if d.UltimoUsuario != nil {
			usuario = *d.UltimoUsuario
		}
		valores := []interface{}{
			d.Codigo, d.Nombre, d.Marca, d.Area, d.StockSistema, d.ConteoFisico, d.Diferencia, string(d.Tier), ultimo, usuario,
		}
		celda, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(hoja, celda, &valores); err != nil {
			return err
		}
	}

	if err := f.SetDocProps(&excelize.DocProperties{Title: "Conteo " + dia}); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}
