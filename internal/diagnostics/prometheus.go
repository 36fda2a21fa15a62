package diagnostics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rgehrsitz/donormatch/internal/domain"
)

// PrometheusObserver counts imperfect matches by regime and by reason.
type PrometheusObserver struct {
	ImperfectByRegime *prometheus.CounterVec
	ImperfectByReason *prometheus.CounterVec
	PoolSize          prometheus.Histogram
}

// NewPrometheusObserver creates the counters and registers them with reg.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)
	return &PrometheusObserver{
		ImperfectByRegime: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donormatch_imperfect_matches_total",
				Help: "Number of degraded donor matches by match regime",
			},
			[]string{"regime"},
		),
		ImperfectByReason: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "donormatch_imperfect_match_reasons_total",
				Help: "Number of degraded donor matches by reason",
			},
			[]string{"reason"},
		),
		PoolSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "donormatch_imperfect_match_pool_size",
			Help:    "Candidate pool size of degraded donor matches",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 99},
		}),
	}
}

// ObserveImperfectMatch implements calculation.MatchObserver.
func (p *PrometheusObserver) ObserveImperfectMatch(match domain.ImperfectMatch) {
	p.ImperfectByRegime.WithLabelValues(strconv.Itoa(match.MatchQuality.Regime())).Inc()
	for _, reason := range match.Reasons {
		p.ImperfectByReason.WithLabelValues(reason).Inc()
	}
	p.PoolSize.Observe(float64(match.MatchQuality.PoolSize()))
}
