package models

import "time"

// UmbralLevePorDefecto es la diferencia máxima (en valor absoluto) considerada leve
const UmbralLevePorDefecto = 2

// FormatoDia es el formato de la clave de día de conteo
const FormatoDia = "2006-01-02"

// Tier clasifica la diferencia entre conteo físico y stock del sistema
type Tier string

const (
	TierExacto      Tier = "EXACT"
	TierLeve        Tier = "MINOR"
	TierCritico     Tier = "CRITICAL"
	TierNoEscaneado Tier = "UNSCANNED"
)

// Clasificar devuelve el tier para una diferencia dada.
// Es la única regla de clasificación; escaneos y reportes la comparten.
func Clasificar(diferencia, umbralLeve int) Tier {
	abs := diferencia
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs == 0:
		return TierExacto
	case abs <= umbralLeve:
		return TierLeve
	default:
		return TierCritico
	}
}

// Escaneo es un registro inmutable del log de escaneos
type Escaneo struct {
	ID             int64     `json:"id" db:"id"`
	Fecha          time.Time `json:"fecha" db:"fecha"`
	Dia            string    `json:"dia" db:"dia"`
	Usuario        string    `json:"usuario" db:"usuario"`
	Codigo         string    `json:"codigo" db:"codigo_producto"`
	Producto       string    `json:"producto" db:"producto"`
	Marca          string    `json:"marca" db:"marca"`
	Area           string    `json:"area" db:"area"`
	Cantidad       int       `json:"cantidad" db:"cantidad_escaneada"`
	TotalAcumulado int       `json:"total_acumulado" db:"total_acumulado"`
	StockSistema   int       `json:"stock_sistema" db:"stock_sistema"`
	Diferencia     int       `json:"diferencia" db:"diferencia"`
}

// ConteoDiario es el resumen desnormalizado por (usuario, código, día).
// Siempre se puede reconstruir a partir de los escaneos.
type ConteoDiario struct {
	Dia          string    `json:"dia" db:"dia"`
	Usuario      string    `json:"usuario" db:"usuario"`
	Codigo       string    `json:"codigo" db:"codigo_producto"`
	ConteoFisico int       `json:"conteo_fisico" db:"conteo_fisico"`
	StockSistema int       `json:"stock_sistema" db:"stock_sistema"`
	Diferencia   int       `json:"diferencia" db:"diferencia"`
	Actualizado  time.Time `json:"actualizado" db:"actualizado"`
}

// ConteoDesdeEscaneo arma el resumen diario que corresponde al escaneo
func ConteoDesdeEscaneo(ev *Escaneo) ConteoDiario {
	return ConteoDiario{
		Dia:          ev.Dia,
		Usuario:      ev.Usuario,
		Codigo:       ev.Codigo,
		ConteoFisico: ev.TotalAcumulado,
		StockSistema: ev.StockSistema,
		Diferencia:   ev.Diferencia,
		Actualizado:  ev.Fecha,
	}
}

// FiltroEscaneos filtros opcionales y combinables sobre el log
type FiltroEscaneos struct {
	Usuario string `form:"usuario"`
	Codigo  string `form:"codigo"`
	Dia     string `form:"dia"`
	Limit   int    `form:"limit" validate:"gte=0,lte=10000"`
}

// ResultadoEscaneo es lo que devuelve un escaneo registrado
type ResultadoEscaneo struct {
	Producto      Producto `json:"producto"`
	TotalAnterior int      `json:"total_anterior"`
	TotalNuevo    int      `json:"total_nuevo"`
	Diferencia    int      `json:"diferencia"`
	Tier          Tier     `json:"tier"`
	Escaneo       Escaneo  `json:"escaneo"`
}
