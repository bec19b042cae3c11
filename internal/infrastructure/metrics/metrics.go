// Package metrics implementa el puerto Metrics del ledger sobre Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

var _ inventory.Metrics = (*Registry)(nil)

// Registry registro propio (no el global) con las métricas del ledger.
type Registry struct {
	reg              *prometheus.Registry
	MovementsTotal   *prometheus.CounterVec
	RejectedTotal    *prometheus.CounterVec
	WarningsTotal    *prometheus.CounterVec
	RecordLatencySec prometheus.Histogram
	LockWaitSec      prometheus.Histogram
	DriftTotal       prometheus.Counter
}

// NewRegistry crea y registra las métricas.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_recorded_total",
		Help: "Movimientos aplicados por tipo y unidad.",
	}, []string{"kind", "unit"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_movements_rejected_total",
		Help: "Movimientos rechazados por motivo.",
	}, []string{"reason"})
	warnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_warnings_total",
		Help: "Advertencias no fatales por código.",
	}, []string{"code"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_record_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	lockWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_lock_wait_seconds",
		Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	})
	drift := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_drift_detected_total",
		Help: "Proyecciones que no coincidieron con su replay.",
	})

	r.MustRegister(movements, rejected, warnings, latency, lockWait, drift,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Registry{
		reg:              r,
		MovementsTotal:   movements,
		RejectedTotal:    rejected,
		WarningsTotal:    warnings,
		RecordLatencySec: latency,
		LockWaitSec:      lockWait,
		DriftTotal:       drift,
	}
}

func (r *Registry) MovementRecorded(kind entity.MovementKind, unit entity.StockUnit, elapsed time.Duration) {
	r.MovementsTotal.WithLabelValues(string(kind), string(unit)).Inc()
	r.RecordLatencySec.Observe(elapsed.Seconds())
}

func (r *Registry) MovementRejected(reason string) { r.RejectedTotal.WithLabelValues(reason).Inc() }

func (r *Registry) Warning(code entity.WarningCode) { r.WarningsTotal.WithLabelValues(string(code)).Inc() }

func (r *Registry) LockWait(elapsed time.Duration) { r.LockWaitSec.Observe(elapsed.Seconds()) }

func (r *Registry) DriftDetected() { r.DriftTotal.Inc() }

// Gatherer expone el registro (tests).
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
