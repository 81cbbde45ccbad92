// Package metrics exposes prometheus collectors for the tracker.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry *prometheus.Registry

	intakesRecorded *prometheus.CounterVec
	medicinesTotal  prometheus.Gauge
	lowStockTotal   prometheus.Gauge
	exportsTotal    prometheus.Counter
	backupsTotal    prometheus.Counter
	restoresTotal   prometheus.Counter
	cronRunsTotal   *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		intakesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meditrack_intakes_recorded_total",
			Help: "Intakes recorded, by status",
		}, []string{"status"}),
		medicinesTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meditrack_medicines",
			Help: "Registered medicines",
		}),
		lowStockTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meditrack_medicines_low_stock",
			Help: "Medicines at or below their stock alert threshold",
		}),
		exportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meditrack_exports_total",
			Help: "CSV exports served",
		}),
		backupsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meditrack_backups_total",
			Help: "Backup snapshots written",
		}),
		restoresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meditrack_restores_total",
			Help: "Backup snapshots restored",
		}),
		cronRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meditrack_cron_runs_total",
			Help: "Scheduled job runs, by job",
		}, []string{"job"}),
	}

	m.registry.MustRegister(
		m.intakesRecorded,
		m.medicinesTotal,
		m.lowStockTotal,
		m.exportsTotal,
		m.backupsTotal,
		m.restoresTotal,
		m.cronRunsTotal,
	)
	return m
}

// Registry returns the collector registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RecordIntake(status string) {
	m.intakesRecorded.WithLabelValues(status).Inc()
}

func (m *Metrics) SetMedicines(count int) {
	m.medicinesTotal.Set(float64(count))
}

func (m *Metrics) SetLowStock(count int) {
	m.lowStockTotal.Set(float64(count))
}

func (m *Metrics) RecordExport() {
	m.exportsTotal.Inc()
}

func (m *Metrics) RecordBackup() {
	m.backupsTotal.Inc()
}

func (m *Metrics) RecordRestore() {
	m.restoresTotal.Inc()
}

func (m *Metrics) RecordCronRun(job string) {
	m.cronRunsTotal.WithLabelValues(job).Inc()
}

func RecordIntake(status string) {
	Default().RecordIntake(status)
}

func SetMedicines(count int) {
	Default().SetMedicines(count)
}

func SetLowStock(count int) {
	Default().SetLowStock(count)
}

func RecordExport() {
	Default().RecordExport()
}

func RecordBackup() {
	Default().RecordBackup()
}

func RecordRestore() {
	Default().RecordRestore()
}

func RecordCronRun(job string) {
	Default().RecordCronRun(job)
}
