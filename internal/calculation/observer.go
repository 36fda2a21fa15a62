package calculation

import "github.com/rgehrsitz/donormatch/internal/domain"

// Reasons attached to imperfect matches.
const (
	ReasonCoarseRegime = "coarse regime"
	ReasonSmallPool    = "small pool"
	ReasonFewPreferred = "few preferred candidates"
)

// MatchObserver is notified of degraded matches. It must not retain the
// household pointer beyond the call and must be safe for concurrent use when
// the engine is shared.
type MatchObserver interface {
	ObserveImperfectMatch(match domain.ImperfectMatch)
}

// MatchObserverFunc adapts a function to MatchObserver.
type MatchObserverFunc func(match domain.ImperfectMatch)

func (f MatchObserverFunc) ObserveImperfectMatch(match domain.ImperfectMatch) { f(match) }

// degradation lists why res is a degraded match, or nil.
func (e *Engine) degradation(res *searchResult) []string {
	var reasons []string
	if res.regime >= e.params.Diagnostics.DegradedRegime {
		reasons = append(reasons, ReasonCoarseRegime)
	}
	if !res.thresholdMet() {
		reasons = append(reasons, ReasonSmallPool)
	}
	if len(res.preferred) < e.params.Diagnostics.MinPreferred {
		reasons = append(reasons, ReasonFewPreferred)
	}
	return reasons
}

func (e *Engine) observe(h *domain.Household, keys *domain.DonorKeys, res *searchResult) {
	if e.observer == nil {
		return
	}
	reasons := e.degradation(res)
	if len(reasons) == 0 {
		return
	}
	e.Logger.Debugf("imperfect match %s for year %d: %v", res.quality, h.SimulatedYear, reasons)
	e.observer.ObserveImperfectMatch(domain.ImperfectMatch{
		Household:    *h,
		Keys:         keys.Keys,
		SystemYear:   res.systemYear,
		MatchQuality: res.quality,
		Reasons:      reasons,
	})
}
