// README: Prometheus counters for pricing, quotes and the rate-table cache.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "coachquote_"

// Recorder satisfies pricing.Recorder, ratetable.CacheRecorder and quote.Recorder.
type Recorder struct {
	quotes      *prometheus.CounterVec
	offGrid     prometheus.Counter
	errors      *prometheus.CounterVec
	cache       *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in main.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		quotes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "quotes_total",
				Help: "Priced trips by fare category",
			},
			[]string{"category"},
		),
		offGrid: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "offgrid_quotes_total",
				Help: "Quotes priced with the per-km fallback",
			},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "pricing_errors_total",
				Help: "Pricing failures by kind",
			},
			[]string{"kind"},
		),
		cache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ratetable_cache_total",
				Help: "Rate-table cache lookups by result",
			},
			[]string{"result"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "quote_transitions_total",
				Help: "Quote status transitions by target status",
			},
			[]string{"status"},
		),
	}
	reg.MustRegister(r.quotes, r.offGrid, r.errors, r.cache, r.transitions)
	return r
}

func (r *Recorder) QuoteComputed(category string, offGrid bool) {
	r.quotes.WithLabelValues(category).Inc()
	if offGrid {
		r.offGrid.Inc()
	}
}

func (r *Recorder) PricingFailed(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

func (r *Recorder) RateTableCache(result string) {
	r.cache.WithLabelValues(result).Inc()
}

func (r *Recorder) QuoteTransition(status string) {
	r.transitions.WithLabelValues(status).Inc()
}
