package services

import "github.com/prometheus/client_golang/prometheus"

var (
	escaneosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conteo_escaneos_total",
			Help: "Escaneos registrados por tier de diferencia",
		},
		[]string{"tier"},
	)

	escaneosFallidosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conteo_escaneos_fallidos_total",
			Help: "Escaneos rechazados por motivo",
		},
		[]string{"motivo"},
	)

	unidadesEscaneadasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "conteo_unidades_escaneadas_total",
			Help: "Unidades sumadas por todos los escaneos",
		},
	)
)

// RegisterMetrics registra los contadores del conteo
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(escaneosTotal, escaneosFallidosTotal, unidadesEscaneadasTotal)
}
