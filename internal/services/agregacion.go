package services

import (
	"sort"
	"time"

	"conteo-service/internal/models"

	"github.com/shopspring/decimal"
)

// conteoProducto es el conteo físico de un código en un día, sumando a todos los usuarios
type conteoProducto struct {
	total      int
	porUsuario map[string]*models.Escaneo
	ultimo     *models.Escaneo
}

// acumularPorProducto toma el último escaneo de cada (usuario, código).
// El conteo físico del producto es la suma de esos totales acumulados.
func acumularPorProducto(escaneos []*models.Escaneo) map[string]*conteoProducto {
	conteos := make(map[string]*conteoProducto)
	for _, ev := range escaneos {
		c, ok := conteos[ev.Codigo]
		if !ok {
			c = &conteoProducto{porUsuario: make(map[string]*models.Escaneo)}
			conteos[ev.Codigo] = c
		}
		if prev, ok := c.porUsuario[ev.Usuario]; !ok || ev.ID > prev.ID {
			c.porUsuario[ev.Usuario] = ev
		}
		if c.ultimo == nil || ev.ID > c.ultimo.ID {
			c.ultimo = ev
		}
	}
	for _, c := range conteos {
		for _, ev := range c.porUsuario {
			c.total += ev.TotalAcumulado
		}
	}
	return conteos
}

// porcentaje redondea parte/total*100 a un decimal, 0 si total es 0
func porcentaje(parte, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(parte)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(1).
		InexactFloat64()
}

type opcionesResumen struct {
	umbralLeve              int
	netaIncluyeNoEscaneados bool
}

// resumir agrupa productos activos con la clave dada y arma un ResumenMarca por grupo.
// Las claves extra aparecen aunque no tengan productos.
func resumir(productos []*models.Producto, conteos map[string]*conteoProducto, clave func(*models.Producto) string, extra []string, op opcionesResumen) []models.ResumenMarca {
	grupos := make(map[string]*models.ResumenMarca)
	stockContado := make(map[string]int)

	grupo := func(k string) *models.ResumenMarca {
		r, ok := grupos[k]
		if !ok {
			r = &models.ResumenMarca{Marca: k}
			grupos[k] = r
		}
		return r
	}

	for _, k := range extra {
		grupo(k)
	}

	for _, p := range productos {
		k := clave(p)
		r := grupo(k)
		r.TotalProductos++
		r.StockSistemaTotal += p.StockSistema

		c, ok := conteos[p.Codigo]
		if !ok {
			continue
		}
		r.ProductosContados++
		r.TotalContado += c.total
		stockContado[k] += p.StockSistema

		diferencia := c.total - p.StockSistema
		switch models.Clasificar(diferencia, op.umbralLeve) {
		case models.TierExacto:
			r.Exactos++
		case models.TierLeve:
			if diferencia > 0 {
				r.SobrantesLeves++
			} else {
				r.FaltantesLeves++
			}
		case models.TierCritico:
			r.Criticos++
		}
	}

	out := make([]models.ResumenMarca, 0, len(grupos))
	for k, r := range grupos {
		r.ProductosSinContar = r.TotalProductos - r.ProductosContados
		r.ProgresoPct = porcentaje(r.ProductosContados, r.TotalProductos)
		if op.netaIncluyeNoEscaneados {
			r.DiferenciaNeta = r.TotalContado - r.StockSistemaTotal
		} else {
			r.DiferenciaNeta = r.TotalContado - stockContado[k]
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Marca < out[j].Marca })
	return out
}

// detallar arma el detalle por producto con el orden de revisión:
// no escaneados primero, luego mayor diferencia absoluta, luego nombre.
func detallar(productos []*models.Producto, conteos map[string]*conteoProducto, filtro models.FiltroDetalle, umbralLeve int) []models.DetalleProducto {
	out := make([]models.DetalleProducto, 0, len(productos))
	for _, p := range productos {
		if filtro.Marca != "" && p.Marca != filtro.Marca {
			continue
		}
		if filtro.Area != "" && p.Area != filtro.Area {
			continue
		}

		fila := models.DetalleProducto{
			Codigo:       p.Codigo,
			Nombre:       p.Nombre,
			Marca:        p.Marca,
			Area:         p.Area,
			StockSistema: p.StockSistema,
		}

		if c, ok := conteos[p.Codigo]; ok {
			fila.ConteoFisico = c.total
			fila.Diferencia = c.total - p.StockSistema
			fila.Tier = models.Clasificar(fila.Diferencia, umbralLeve)
			fecha := c.ultimo.Fecha
			usuario := c.ultimo.Usuario
			fila.UltimoEscaneo = &fecha
			fila.UltimoUsuario = &usuario
		} else {
			fila.Diferencia = -p.StockSistema
			fila.Tier = models.TierNoEscaneado
		}

		if filtro.SoloNoEscaneados && fila.Tier != models.TierNoEscaneado {
			continue
		}
		out = append(out, fila)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aNo, bNo := a.Tier == models.TierNoEscaneado, b.Tier == models.TierNoEscaneado
		if aNo != bNo {
			return aNo
		}
		if da, db := abs(a.Diferencia), abs(b.Diferencia); da != db {
			return da > db
		}
		if a.Nombre != b.Nombre {
			return a.Nombre < b.Nombre
		}
		return a.Codigo < b.Codigo
	})
	return out
}

// estadisticasDe resume los escaneos de un usuario en un día.
// Un producto es exacto si el último escaneo del usuario dejó diferencia 0.
func estadisticasDe(usuario, dia string, escaneos []*models.Escaneo) models.EstadisticasUsuario {
	stats := models.EstadisticasUsuario{Usuario: usuario, Dia: dia}
	ultimos := make(map[string]*models.Escaneo)
	for _, ev := range escaneos {
		if ev.Usuario != usuario || ev.Dia != dia {
			continue
		}
		stats.Escaneos++
		stats.Unidades += ev.Cantidad
		if prev, ok := ultimos[ev.Codigo]; !ok || ev.ID > prev.ID {
			ultimos[ev.Codigo] = ev
		}
	}
	stats.ProductosDistintos = len(ultimos)
	for _, ev := range ultimos {
		if ev.Diferencia == 0 {
			stats.Exactos++
		}
	}
	stats.PrecisionPct = porcentaje(stats.Exactos, stats.ProductosDistintos)
	return stats
}

// global arma el tablero general
func global(dia string, productos []*models.Producto, escaneos []*models.Escaneo, conteos map[string]*conteoProducto, umbralLeve int, ahora time.Time) models.ResumenGlobal {
	r := models.ResumenGlobal{
		Dia:            dia,
		TotalProductos: len(productos),
		Escaneos:       len(escaneos),
		Generado:       ahora.Format(time.RFC3339),
	}

	usuarios := make(map[string]struct{})
	for _, ev := range escaneos {
		r.UnidadesContadas += ev.Cantidad
		usuarios[ev.Usuario] = struct{}{}
	}
	r.Usuarios = len(usuarios)

	for _, p := range productos {
		c, ok := conteos[p.Codigo]
		if !ok {
			continue
		}
		r.ProductosContados++
		switch models.Clasificar(c.total-p.StockSistema, umbralLeve) {
		case models.TierExacto:
			r.Exactos++
		case models.TierLeve:
			r.Leves++
		case models.TierCritico:
			r.Criticos++
		}
	}
	r.ProductosSinContar = r.TotalProductos - r.ProductosContados
	r.ProgresoPct = porcentaje(r.ProductosContados, r.TotalProductos)
	r.PrecisionPct = porcentaje(r.Exactos, r.ProductosContados)
	return r
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
