// Package metrics provides the Prometheus counters of the registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all registry metrics.
	Namespace = "scan_registry"

	// write modes
	ModeReplace    = "replace"
	ModeUniqueness = "uniqueness"
	ModeInsert     = "insert"
	ModeMerge      = "merge"

	// bulk results
	ResultCommitted = "committed"
	ResultFailed    = "failed"
)

// Metrics holds the registry counters. A nil *Metrics records nothing.
type Metrics struct {
	WritesTotal              *prometheus.CounterVec
	BulkOperationsTotal      *prometheus.CounterVec
	InstructionsCreatedTotal *prometheus.CounterVec
	ConflictsTotal           *prometheus.CounterVec
	VariantsWrittenTotal     *prometheus.CounterVec
}

// New creates and registers the counters on reg, or on the default registerer
// when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		WritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "record",
				Name:      "writes_total",
				Help:      "Total number of single-record writes",
			},
			[]string{"collection", "mode"},
		),
		BulkOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "record",
				Name:      "bulk_operations_total",
				Help:      "Total number of bulk update operations by outcome",
			},
			[]string{"collection", "result"},
		),
		InstructionsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "instructions_created_total",
				Help:      "Total number of server instructions created",
			},
			[]string{"operation"},
		),
		ConflictsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "scheduler",
				Name:      "conflicts_total",
				Help:      "Total number of rejected instructions due to coexistence rules",
			},
			[]string{"operation"},
		),
		VariantsWrittenTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sites",
				Name:      "variant_writes_total",
				Help:      "Total number of site variant list writes by path",
			},
			[]string{"path"},
		),
	}
}

// RecordWrite counts a single-record write.
func (m *Metrics) RecordWrite(collection, mode string) {
	if m == nil {
		return
	}
	m.WritesTotal.WithLabelValues(collection, mode).Inc()
}

// RecordBulk counts the outcome of a bulk update.
func (m *Metrics) RecordBulk(collection string, committed, failed int) {
	if m == nil {
		return
	}
	m.BulkOperationsTotal.WithLabelValues(collection, ResultCommitted).Add(float64(committed))
	m.BulkOperationsTotal.WithLabelValues(collection, ResultFailed).Add(float64(failed))
}

// RecordInstruction counts a created instruction.
func (m *Metrics) RecordInstruction(operation string) {
	if m == nil {
		return
	}
	m.InstructionsCreatedTotal.WithLabelValues(operation).Inc()
}

// RecordConflict counts a rejected instruction.
func (m *Metrics) RecordConflict(operation string) {
	if m == nil {
		return
	}
	m.ConflictsTotal.WithLabelValues(operation).Inc()
}

// RecordVariantWrite counts a variant list write on the insert or merge path.
func (m *Metrics) RecordVariantWrite(path string) {
	if m == nil {
		return
	}
	m.VariantsWrittenTotal.WithLabelValues(path).Inc()
}
