// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/si0411/tourextract/internal/errors"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeEmpty   = "empty"
)

// MetricsManager owns the Prometheus collectors for a run or server.
type MetricsManager struct {
	registry *prometheus.Registry

	toursProcessed    *prometheus.CounterVec
	extractorOutcomes *prometheus.CounterVec
	priceOutcomes     *prometheus.CounterVec
	fetchDuration     *prometheus.HistogramVec
	ledgerMatches     *prometheus.CounterVec
	sinkWrites        *prometheus.CounterVec
	apiRequests       *prometheus.CounterVec
}

// MetricsConfig configuration for metrics
type MetricsConfig struct {
	Namespace string `yaml:"namespace" json:"namespace"`
	Subsystem string `yaml:"subsystem" json:"subsystem"`
	// Registry defaults to a fresh registry so several managers can coexist.
	Registry *prometheus.Registry `yaml:"-" json:"-"`
}

// NewMetricsManager creates a new metrics manager
func NewMetricsManager(config MetricsConfig) *MetricsManager {
	if config.Namespace == "" {
		config.Namespace = "tourextract"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)
	ns, sub := config.Namespace, config.Subsystem

	return &MetricsManager{
		registry: config.Registry,
		toursProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "tours_processed_total",
			Help: "Tours processed, by outcome",
		}, []string{"outcome"}),
		extractorOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "extractor_outcomes_total",
			Help: "Extractor runs, by extractor and outcome",
		}, []string{"extractor", "outcome"}),
		priceOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "price_fetches_total",
			Help: "Per-currency price fetches, by currency and outcome",
		}, []string{"currency", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub,
			Name:    "fetch_duration_seconds",
			Help:    "Page fetch latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
		ledgerMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "ledger_matches_total",
			Help: "Date reconciliation results",
		}, []string{"outcome"}),
		sinkWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "sink_writes_total",
			Help: "Dataset writes per sink",
		}, []string{"sink", "outcome"}),
		apiRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub,
			Name: "api_requests_total",
			Help: "API requests, by route and status code",
		}, []string{"route", "code"}),
	}
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, errors.KindStructural) {
		return OutcomeEmpty
	}
	return OutcomeFailed
}

// RecordTour counts a finished tour.
func (mm *MetricsManager) RecordTour(err error) {
	mm.toursProcessed.WithLabelValues(outcomeOf(err)).Inc()
}

// RecordExtractor counts one extractor run. Structural misses count as empty.
func (mm *MetricsManager) RecordExtractor(name string, err error) {
	mm.extractorOutcomes.WithLabelValues(name, outcomeOf(err)).Inc()
}

// RecordPrice counts one currency fetch.
func (mm *MetricsManager) RecordPrice(currency string, err error) {
	mm.priceOutcomes.WithLabelValues(currency, outcomeOf(err)).Inc()
}

// ObserveFetch records top-level page fetch latency.
func (mm *MetricsManager) ObserveFetch(d time.Duration, err error) {
	mm.fetchDuration.WithLabelValues(outcomeOf(err)).Observe(d.Seconds())
}

// RecordLedgerMatch counts a reconciled date ("matched" or "unmatched").
func (mm *MetricsManager) RecordLedgerMatch(outcome string) {
	mm.ledgerMatches.WithLabelValues(outcome).Inc()
}

// RecordSink counts one sink write.
func (mm *MetricsManager) RecordSink(sink string, err error) {
	mm.sinkWrites.WithLabelValues(sink, outcomeOf(err)).Inc()
}

// RecordAPIRequest counts one served request.
func (mm *MetricsManager) RecordAPIRequest(route string, code int) {
	mm.apiRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Registry exposes the underlying registry.
func (mm *MetricsManager) Registry() *prometheus.Registry {
	return mm.registry
}

// MetricsHandler returns an HTTP handler for metrics endpoint
func (mm *MetricsManager) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(mm.registry, promhttp.HandlerOpts{Registry: mm.registry})
}

// Snapshot flattens every counter into "name{label=value,...}" keys.
// Histograms report their sample count. Used to summarise batch runs
// that have no scraper attached.
func (mm *MetricsManager) Snapshot() (map[string]float64, error) {
	families, err := mm.registry.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			sort.Strings(labels)
			key := fam.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetHistogram() != nil:
				out[key] = float64(m.GetHistogram().GetSampleCount())
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}
