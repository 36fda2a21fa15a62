package calculation

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/donormatch/internal/distance"
	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
	"gonum.org/v1/gonum/mat"
)

// featureSet flags the continuous features compared besides income.
type featureSet uint8

const (
	withSecond featureSet = 1 << iota
	withChildcare

	incomeOnly featureSet = 0
)

func (fs featureSet) dim() int {
	n := 1
	if fs&withSecond != 0 {
		n++
	}
	if fs&withChildcare != 0 {
		n++
	}
	return n
}

func (fs featureSet) String() string {
	switch fs {
	case incomeOnly:
		return "income"
	case withSecond:
		return "income+second"
	case withChildcare:
		return "income+childcare"
	default:
		return "income+second+childcare"
	}
}

// vector returns the feature vector of a donor entry under fs.
func (fs featureSet) vector(income, second, childcare float64) []float64 {
	v := make([]float64, 0, 3)
	v = append(v, income)
	if fs&withSecond != 0 {
		v = append(v, second)
	}
	if fs&withChildcare != 0 {
		v = append(v, childcare)
	}
	return v
}

// candidate is a donor admitted by the bracket expansion.
type candidate struct {
	entry    *donor.Entry
	distance float64
	weight   float64 // survey weight / (floor + distance)
}

// searchResult is the outcome of the candidate search for one target. It is
// shared through the cache and must not be modified.
type searchResult struct {
	systemYear int
	regime     int
	poolSize   int
	threshold  int
	features   featureSet
	preferred  []candidate
	weightSum  float64
	quality    domain.MatchQuality
}

// thresholdMet reports whether the chosen pool reached its threshold.
func (r *searchResult) thresholdMet() bool { return r.poolSize >= r.threshold }

// buildMetrics estimates one Mahalanobis metric per secondary feature
// combination from the base-year donors. Samples are restricted to donors
// carrying the secondary attributes when enough of them exist.
func buildMetrics(entries []*donor.Entry, substantial float64) (map[featureSet]*distance.Mahalanobis, error) {
	if len(entries) == 0 {
		return nil, &domain.ConfigError{Operation: "build_metrics", Message: "no base year donors"}
	}
	metrics := make(map[featureSet]*distance.Mahalanobis, 3)
	for _, fs := range []featureSet{withSecond, withChildcare, withSecond | withChildcare} {
		selected := make([]*donor.Entry, 0, len(entries))
		for _, e := range entries {
			if fs&withSecond != 0 && e.Second <= substantial {
				continue
			}
			if fs&withChildcare != 0 && e.Childcare <= substantial {
				continue
			}
			selected = append(selected, e)
		}
		if len(selected) < fs.dim()+1 {
			selected = entries
		}

		samples := make([][]float64, len(selected))
		weights := make([]float64, len(selected))
		var total float64
		for i, e := range selected {
			samples[i] = fs.vector(e.Income, e.Second, e.Childcare)
			weights[i] = e.Unit.Weight
			total += e.Unit.Weight
		}
		if total <= 1 {
			weights = nil
		}

		m, err := distance.NewMahalanobis(samples, weights)
		if err != nil {
			// too few donors to estimate a covariance: compare on raw scales
			mean := samples[0]
			m, err = distance.NewFromCovariance(mean, identity(fs.dim()))
			if err != nil {
				return nil, &domain.ConfigError{Operation: "build_metrics", Message: fs.String(), Cause: err}
			}
		}
		metrics[fs] = m
	}
	return metrics, nil
}

func identity(n int) *mat.SymDense {
	id := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		id.SetSym(i, i, 1)
	}
	return id
}

// activeFeatures returns the secondary features that still discriminate
// donors at regime for this target.
func (e *Engine) activeFeatures(keys *domain.DonorKeys, regime int) featureSet {
	radix := e.encoder.Radix()
	var fs featureSet
	if keys.HasSecondEarner && radix.Active(domain.FeatureSecondEarner, regime) {
		fs |= withSecond
	}
	if keys.HasChildcare && radix.Active(domain.FeatureChildcare, regime) {
		fs |= withChildcare
	}
	return fs
}

// search runs regime fallback, bracket location, bidirectional expansion and
// preferred-subset pruning for one target.
func (e *Engine) search(keys *domain.DonorKeys, systemYear int) (*searchResult, error) {
	sp := e.params.Search

	var (
		pool      []*donor.Entry
		regime    = -1
		features  featureSet
		threshold int
	)
	for r := 0; r < domain.NumRegimes; r++ {
		list := e.index.Lookup(systemYear, r, keys.Keys[r])
		if len(list) == 0 {
			continue
		}
		fs := e.activeFeatures(keys, r)
		need := sp.MinPool
		if fs != incomeOnly {
			need = sp.MinPoolSecondary
		}
		pool, regime, features, threshold = list, r, fs, need
		if len(list) >= need {
			break
		}
	}
	if regime < 0 {
		return nil, &domain.ConfigError{
			Operation: "candidate_search",
			Message:   fmt.Sprintf("no donors at any regime for system year %d keys %v", systemYear, keys.Keys),
		}
	}

	measure, err := e.measure(keys, features)
	if err != nil {
		return nil, err
	}
	bound := sp.RankBound
	if features != incomeOnly {
		bound = sp.SecondaryRankBound
	}

	start := locate(pool, keys.NormalizedIncome)
	var admitted []candidate

	down := newRankTracker(bound)
	for i := start - 1; i >= 0; i-- {
		d, err := measure(pool[i])
		if err != nil {
			return nil, err
		}
		if !down.admit(d) {
			break
		}
		admitted = append(admitted, candidate{entry: pool[i], distance: d})
	}
	up := newRankTracker(bound)
	for i := start; i < len(pool); i++ {
		d, err := measure(pool[i])
		if err != nil {
			return nil, err
		}
		if !up.admit(d) {
			break
		}
		admitted = append(admitted, candidate{entry: pool[i], distance: d})
	}

	preferred, weightSum := prefer(admitted, sp.PreferredBands, sp.DistanceFloor)
	if len(preferred) == 0 || weightSum <= 0 {
		return nil, &domain.ConfigError{
			Operation: "candidate_search",
			Message:   fmt.Sprintf("no usable candidates at regime %d for system year %d", regime, systemYear),
		}
	}

	return &searchResult{
		systemYear: systemYear,
		regime:     regime,
		poolSize:   len(pool),
		threshold:  threshold,
		features:   features,
		preferred:  preferred,
		weightSum:  weightSum,
		quality:    domain.NewMatchQuality(regime, len(pool), len(preferred)),
	}, nil
}

// measure returns the distance function from the target to a donor entry.
func (e *Engine) measure(keys *domain.DonorKeys, fs featureSet) (func(*donor.Entry) (float64, error), error) {
	if fs == incomeOnly {
		return func(d *donor.Entry) (float64, error) {
			diff := d.Income - keys.NormalizedIncome
			if diff < 0 {
				diff = -diff
			}
			return diff, nil
		}, nil
	}
	metric, ok := e.metrics[fs]
	if !ok {
		return nil, &domain.ContractError{Operation: "candidate_search", Message: "no metric for features " + fs.String()}
	}
	target := fs.vector(keys.NormalizedIncome, keys.NormalizedSecond, keys.NormalizedChildcare)
	return func(d *donor.Entry) (float64, error) {
		dist, err := metric.Distance(target, fs.vector(d.Income, d.Second, d.Childcare))
		if err != nil {
			return 0, &domain.ContractError{Operation: "candidate_search", Message: "donor " + d.Unit.ID, Cause: err}
		}
		return dist, nil
	}, nil
}

// locate returns the first index whose income is >= target in a list sorted
// ascending by income. The probe is the average of the bisection midpoint and
// the linear interpolation point.
func locate(list []*donor.Entry, target float64) int {
	lo, hi := 0, len(list)
	for lo < hi {
		mid := lo + (hi-lo)/2
		probe := mid
		a, b := list[lo].Income, list[hi-1].Income
		if b > a {
			t := (target - a) / (b - a)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			interp := lo + int(t*float64(hi-1-lo))
			probe = (mid + interp) / 2
		}
		if probe < lo {
			probe = lo
		} else if probe >= hi {
			probe = hi - 1
		}
		if list[probe].Income < target {
			lo = probe + 1
		} else {
			hi = probe
		}
	}
	return lo
}

// rankTracker admits candidates while the number of distinct distances seen
// since the last new minimum stays within bound.
type rankTracker struct {
	bound   int
	started bool
	min     float64
	seen    map[float64]struct{}
}

func newRankTracker(bound int) *rankTracker {
	return &rankTracker{bound: bound, seen: make(map[float64]struct{})}
}

func (t *rankTracker) admit(d float64) bool {
	if !t.started || d < t.min {
		t.started = true
		t.min = d
		clear(t.seen)
		return true
	}
	if d == t.min {
		return true
	}
	t.seen[d] = struct{}{}
	return len(t.seen) <= t.bound
}

// prefer sorts candidates by distance and keeps the first bands distinct
// distances, computing effective weights and their sum.
func prefer(admitted []candidate, bands int, floor float64) ([]candidate, float64) {
	sort.SliceStable(admitted, func(i, j int) bool { return admitted[i].distance < admitted[j].distance })

	out := make([]candidate, 0, len(admitted))
	distinct := 0
	var sum float64
	for i, c := range admitted {
		if i == 0 || c.distance != admitted[i-1].distance {
			distinct++
			if distinct > bands {
				break
			}
		}
		c.weight = c.entry.Unit.Weight / (floor + c.distance)
		sum += c.weight
		out = append(out, c)
	}
	return out, sum
}
