package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SinMarcaPorDefecto es la marca asignada a productos que no traen una.
const SinMarcaPorDefecto = "SIN MARCA"

// MarcaDesconocida se muestra para escaneos cuyo producto ya no tiene marca/área conocida
const MarcaDesconocida = "DESCONOCIDO"

// MarcasIniciales se registran al crear el catálogo, junto a la marca por defecto configurada
var MarcasIniciales = []string{"GENVEN", "LETI", "OTROS"}

// AreasSugeridas son las áreas de conteo que ofrece el front end
var AreasSugeridas = []string{"Farmacia", "Cajas", "Pasillos", "Equipos médicos", "Bodega", "Otros"}

// Producto representa una entrada del catálogo maestro
type Producto struct {
	Codigo             string    `json:"codigo" db:"codigo"`
	Nombre             string    `json:"nombre" db:"producto"`
	Marca              string    `json:"marca" db:"marca"`
	Area               string    `json:"area" db:"area"`
	StockSistema       int       `json:"stock_sistema" db:"stock_sistema"`
	Activo             bool      `json:"activo" db:"activo"`
	FechaActualizacion time.Time `json:"fecha_actualizacion" db:"fecha_actualizacion"`
}

// NormalizarCodigo limpia un código leído por escáner o teclado.
// Quita espacios en los extremos y elimina cualquier \n o \r intermedio.
func NormalizarCodigo(raw string) string {
	codigo := strings.TrimSpace(raw)
	codigo = strings.ReplaceAll(codigo, "\n", "")
	codigo = strings.ReplaceAll(codigo, "\r", "")
	return strings.TrimSpace(codigo)
}

// NormalizarMarca pasa la marca a mayúsculas y aplica el valor por defecto.
func NormalizarMarca(marca, sinMarca string) string {
	marca = strings.TrimSpace(marca)
	if marca == "" {
		return sinMarca
	}
	return cases.Upper(language.Spanish).String(marca)
}

// Normalizar aplica las reglas de limpieza del catálogo sobre el producto
func (p *Producto) Normalizar(sinMarca string) {
	p.Codigo = NormalizarCodigo(p.Codigo)
	p.Nombre = strings.TrimSpace(p.Nombre)
	p.Marca = NormalizarMarca(p.Marca, sinMarca)
	p.Area = strings.TrimSpace(p.Area)
}
