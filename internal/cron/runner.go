// Package cron runs the recurring review jobs: a morning low-stock
// scan and a nightly adherence rollover. Jobs log and update gauges;
// nothing here delivers notifications.
package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gmsas95/meditrack/internal/config"
	"github.com/gmsas95/meditrack/internal/medicine"
	"github.com/gmsas95/meditrack/internal/metrics"
	"github.com/gmsas95/meditrack/internal/tracker"
)

// Runner manages the scheduled review jobs
type Runner struct {
	cron    *cron.Cron
	config  config.CronConfig
	tracker *tracker.Tracker
	logger  *zap.Logger
}

// NewRunner creates a runner; jobs are registered on Start.
func NewRunner(cfg config.CronConfig, tr *tracker.Tracker, logger *zap.Logger) *Runner {
	return &Runner{
		cron:    cron.New(),
		config:  cfg,
		tracker: tr,
		logger:  logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (r *Runner) Start() error {
	if !r.config.Enabled {
		r.logger.Info("Cron disabled")
		return nil
	}

	if _, err := r.cron.AddFunc(r.config.LowStockSchedule, r.lowStockScan); err != nil {
		return fmt.Errorf("invalid low stock schedule: %w", err)
	}
	if _, err := r.cron.AddFunc(r.config.RolloverSchedule, r.dayRollover); err != nil {
		return fmt.Errorf("invalid rollover schedule: %w", err)
	}

	r.cron.Start()
	r.logger.Info("Cron runner started",
		zap.String("low_stock_schedule", r.config.LowStockSchedule),
		zap.String("rollover_schedule", r.config.RolloverSchedule),
	)
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("Cron runner stopped")
}

// lowStockScan logs medicines at or below their alert threshold and
// refreshes the low-stock gauge.
func (r *Runner) lowStockScan() {
	metrics.RecordCronRun("low_stock_scan")

	low, err := r.tracker.LowStockMedicines()
	if err != nil {
		r.logger.Error("Low stock scan failed", zap.Error(err))
		return
	}
	r.tracker.RefreshGauges()

	for _, med := range low {
		r.logger.Warn("Medicine low on stock",
			zap.String("medicine_id", med.ID),
			zap.String("name", med.Name),
			zap.Int("stock", med.CurrentStock),
			zap.Int("alert_at", med.LowStockAlert),
		)
	}
	if len(low) == 0 {
		r.logger.Info("Low stock scan clean")
	}
}

// dayRollover logs yesterday's final adherence tallies.
func (r *Runner) dayRollover() {
	metrics.RecordCronRun("day_rollover")

	yesterday := medicine.DateISO(time.Now().AddDate(0, 0, -1))
	report, err := r.tracker.DailyReport(yesterday)
	if err != nil {
		r.logger.Error("Day rollover failed", zap.Error(err))
		return
	}

	r.logger.Info("Day closed",
		zap.String("date", report.Date),
		zap.Int("taken", report.Taken),
		zap.Int("skipped", report.Skipped),
		zap.Int("missed", report.Missed),
		zap.Int("adherence_rate", report.AdherenceRate),
	)
}
