package models

import "time"

// ResumenMarca agrupa el avance de conteo de una marca (o de un área)
type ResumenMarca struct {
	Marca              string  `json:"marca"`
	TotalProductos     int     `json:"total_productos"`
	ProductosContados  int     `json:"productos_contados"`
	ProductosSinContar int     `json:"productos_sin_contar"`
	ProgresoPct        float64 `json:"progreso_pct"`
	StockSistemaTotal  int     `json:"stock_sistema_total"`
	TotalContado       int     `json:"total_contado"`
	DiferenciaNeta     int     `json:"diferencia_neta"`
	Exactos            int     `json:"exactos"`
	SobrantesLeves     int     `json:"sobrantes_leves"`
	FaltantesLeves     int     `json:"faltantes_leves"`
	Criticos           int     `json:"criticos"`
}

// DetalleProducto es una fila del detalle por producto
type DetalleProducto struct {
	Codigo        string     `json:"codigo"`
	Nombre        string     `json:"nombre"`
	Marca         string     `json:"marca"`
	Area          string     `json:"area"`
	StockSistema  int        `json:"stock_sistema"`
	ConteoFisico  int        `json:"conteo_fisico"`
	Diferencia    int        `json:"diferencia"`
	Tier          Tier       `json:"tier"`
	UltimoEscaneo *time.Time `json:"ultimo_escaneo"`
	UltimoUsuario *string    `json:"ultimo_usuario"`
}

// FiltroDetalle filtros del detalle por producto
type FiltroDetalle struct {
	Marca            string `form:"marca"`
	Area             string `form:"area"`
	SoloNoEscaneados bool   `form:"solo_no_escaneados"`
	Dia              string `form:"dia"`
}

// EstadisticasUsuario resume la jornada de un operador
type EstadisticasUsuario struct {
	Usuario            string  `json:"usuario"`
	Dia                string  `json:"dia"`
	Escaneos           int     `json:"escaneos"`
	ProductosDistintos int     `json:"productos_distintos"`
	Unidades           int     `json:"unidades"`
	Exactos            int     `json:"exactos"`
	PrecisionPct       float64 `json:"precision_pct"`
}

// ResumenGlobal es el tablero general del conteo
type ResumenGlobal struct {
	Dia                string  `json:"dia"`
	TotalProductos     int     `json:"total_productos"`
	ProductosContados  int     `json:"productos_contados"`
	ProductosSinContar int     `json:"productos_sin_contar"`
	ProgresoPct        float64 `json:"progreso_pct"`
	UnidadesContadas   int     `json:"unidades_contadas"`
	Escaneos           int     `json:"escaneos"`
	Usuarios           int     `json:"usuarios"`
	Exactos            int     `json:"exactos"`
	Leves              int     `json:"leves"`
	Criticos           int     `json:"criticos"`
	PrecisionPct       float64 `json:"precision_pct"`
	Generado           string  `json:"generado"`
}
