// Package jobs tareas periódicas del conteo: reconstrucción de los conteos diarios
// y limpieza del caché local.
package jobs

import (
	"context"
	"fmt"
	"time"

	"conteo-service/internal/cache"
	"conteo-service/internal/config"
	"conteo-service/internal/models"
	"conteo-service/internal/services"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

const timeoutTarea = 2 * time.Minute

type Scheduler struct {
	scheduler      *gocron.Scheduler
	reporteService services.ReporteService
	productCache   *cache.ProductCache
	cfg            config.JobsConfig
	location       *time.Location
	logger         *zap.Logger
}

func NewScheduler(reporteService services.ReporteService, productCache *cache.ProductCache, cfg config.JobsConfig, location *time.Location, logger *zap.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		scheduler:      gocron.NewScheduler(location),
		reporteService: reporteService,
		productCache:   productCache,
		cfg:            cfg,
		location:       location,
		logger:         logger.With(zap.String("component", "jobs")),
	}
}

// Registrar agenda las tareas; un intervalo <= 0 desactiva la tarea
func (s *Scheduler) Registrar() error {
	if s.cfg.RebuildEveryMinutes > 0 {
		if _, err := s.scheduler.Every(s.cfg.RebuildEveryMinutes).Minutes().SingletonMode().Do(s.ReconstruirHoy); err != nil {
			return fmt.Errorf("error agendando reconstrucción: %w", err)
		}
	}
	if s.cfg.CleanupEveryMinutes > 0 {
		if _, err := s.scheduler.Every(s.cfg.CleanupEveryMinutes).Minutes().SingletonMode().Do(s.LimpiarCache); err != nil {
			return fmt.Errorf("error agendando limpieza de caché: %w", err)
		}
	}
	// cierre del día anterior, después de medianoche en la zona del conteo
	if _, err := s.scheduler.Every(1).Day().At("00:05").Do(s.CerrarDiaAnterior); err != nil {
		return fmt.Errorf("error agendando cierre diario: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
	s.logger.Info("Jobs iniciados", zap.Int("jobs", s.scheduler.Len()))
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("Jobs detenidos")
}

func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

func (s *Scheduler) ReconstruirHoy() {
	s.reconstruir("")
}

func (s *Scheduler) CerrarDiaAnterior() {
	s.reconstruir(time.Now().In(s.location).AddDate(0, 0, -1).Format(models.FormatoDia))
}

func (s *Scheduler) reconstruir(dia string) {
	ctx, cancel := context.WithTimeout(context.Background(), timeoutTarea)
	defer cancel()

	start := time.Now()
	n, err := s.reporteService.RebuildConteosDiarios(ctx, dia)
	if err != nil {
		s.logger.Error("Error reconstruyendo conteos diarios", zap.String("dia", dia), zap.Error(err))
		return
	}
	s.logger.Debug("Conteos diarios reconstruidos",
		zap.String("dia", dia),
		zap.Int("conteos", n),
		zap.Duration("latency", time.Since(start)))
}

func (s *Scheduler) LimpiarCache() {
	if n := s.productCache.CleanupL1(); n > 0 {
		s.logger.Debug("Entradas vencidas eliminadas del caché", zap.Int("eliminadas", n))
	}
}
