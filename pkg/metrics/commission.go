package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/commission-engine/pkg/enums"
)

const namespace = "commission"

// CommissionMetrics records distribution runs.
type CommissionMetrics struct {
	runs     *prometheus.CounterVec
	credited prometheus.Counter
	duration prometheus.Histogram
}

// NewCommissionMetrics registers the distribution metrics on the provided registerer.
func NewCommissionMetrics(reg prometheus.Registerer) *CommissionMetrics {
	if reg == nil {
		return &CommissionMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distributions_total",
		Help:      "Distribution runs by outcome.",
	}, []string{"outcome"})
	credited := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credited_amount_total",
		Help:      "Sum of commission amounts credited to beneficiaries.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "distribute_duration_seconds",
		Help:      "Duration of distribution runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(runs, credited, duration)
	return &CommissionMetrics{runs: runs, credited: credited, duration: duration}
}

// ObserveRun records one Distribute call.
func (m *CommissionMetrics) ObserveRun(outcome enums.DistributionOutcome, credited decimal.Decimal, took time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(outcome.String()).Inc()
	m.duration.Observe(took.Seconds())
	if outcome == enums.DistributionOutcomeCredited && credited.IsPositive() {
		m.credited.Add(credited.InexactFloat64())
	}
}
