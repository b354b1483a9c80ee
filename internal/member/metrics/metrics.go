package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the member module.
// Tracks registrations, duplicate rejections, and search cost by plan.
type Metrics struct {
	MembersRegistered   prometheus.Counter
	DuplicatesRejected  prometheus.Counter
	RegisterDuration    prometheus.Histogram
	SearchDuration      *prometheus.HistogramVec
	StrategyExecutions  *prometheus.CounterVec
	EmptySearches prometheus.Counter
}

// New registers the member metrics with reg. Pass prometheus.DefaultRegisterer
// in binaries and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MembersRegistered: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_members_registered_total",
			Help: "Total number of members registered",
		}),
		DuplicatesRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_duplicate_registrations_total",
			Help: "Total number of registrations rejected because the person id was taken",
		}),
		RegisterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_register_duration_seconds",
			Help:    "Duration of Register operations",
			Buckets: durationBuckets,
		}),
		SearchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roster_search_duration_seconds",
			Help:    "Duration of searches by strategy plan",
			Buckets: durationBuckets,
		}, []string{"plan"}),
		StrategyExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_search_strategy_executions_total",
			Help: "Strategy executions by strategy and whether the substrate answered natively",
		}, []string{"strategy", "native"}),
		EmptySearches: factory.NewCounter(prometheus.CounterOpts{
			Name: "roster_empty_searches_total",
			Help: "Total number of searches rejected for carrying no criteria",
		}),
	}
}

// IncrementRegistered records a successful registration.
func (m *Metrics) IncrementRegistered() {
	m.MembersRegistered.Inc()
}

// IncrementDuplicate records a registration rejected as a duplicate.
func (m *Metrics) IncrementDuplicate() {
	m.DuplicatesRejected.Inc()
}

// IncrementEmptySearch records a search rejected before touching storage.
func (m *Metrics) IncrementEmptySearch() {
	m.EmptySearches.Inc()
}

// ObserveRegister records the duration of a Register call.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// ObserveSearch records the duration of a search under its plan label.
func (m *Metrics) ObserveSearch(plan string, start time.Time) {
	m.SearchDuration.WithLabelValues(plan).Observe(time.Since(start).Seconds())
}

// IncrementStrategy records one strategy execution.
func (m *Metrics) IncrementStrategy(strategy string, native bool) {
	m.StrategyExecutions.WithLabelValues(strategy, strconv.FormatBool(native)).Inc()
}
