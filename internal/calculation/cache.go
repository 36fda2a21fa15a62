package calculation

import "github.com/rgehrsitz/donormatch/internal/domain"

// searchKey identifies a candidate search. Two targets with the same key see
// the same pool, distances and preferred subset; only the draw differs.
type searchKey struct {
	systemYear   int
	keys         domain.RegimeKeys
	income       float64
	second       float64
	childcare    float64
	hasSecond    bool
	hasChildcare bool
}

func newSearchKey(keys *domain.DonorKeys, systemYear int) searchKey {
	return searchKey{
		systemYear:   systemYear,
		keys:         keys.Keys,
		income:       keys.NormalizedIncome,
		second:       keys.NormalizedSecond,
		childcare:    keys.NormalizedChildcare,
		hasSecond:    keys.HasSecondEarner,
		hasChildcare: keys.HasChildcare,
	}
}

// searchCached consults the LRU cache, if enabled, before searching.
func (e *Engine) searchCached(keys *domain.DonorKeys, systemYear int) (*searchResult, error) {
	if e.cache == nil {
		return e.search(keys, systemYear)
	}
	k := newSearchKey(keys, systemYear)
	if res, ok := e.cache.Get(k); ok {
		return res, nil
	}
	res, err := e.search(keys, systemYear)
	if err != nil {
		return nil, err
	}
	e.cache.Add(k, res)
	return res, nil
}

// CacheLen returns the number of cached searches; 0 when caching is off.
func (e *Engine) CacheLen() int {
	if e.cache == nil {
		return 0
	}
	return e.cache.Len()
}
