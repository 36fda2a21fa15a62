package timeseries

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rgehrsitz/donormatch/internal/domain"
)

// Series is a yearly price index that extends itself on demand. Reads of
// tabulated years take a shared lock; the first request for an untabulated
// year extends the series under the exclusive lock, and later callers read
// the stored value.
type Series struct {
	name   string
	growth float64

	mu     sync.RWMutex
	values map[int]float64
	first  int
	last   int
}

// NewSeries creates a series from tabulated values. Missing years inside the
// tabulated range are filled by geometric interpolation.
func NewSeries(name string, cfg domain.IndexSeriesConfig) (*Series, error) {
	if len(cfg.Values) == 0 {
		return nil, &domain.ConfigError{Operation: "series", Message: fmt.Sprintf("series %s has no values", name)}
	}
	if cfg.ProjectedGrowth <= -1 {
		return nil, &domain.ConfigError{Operation: "series", Message: fmt.Sprintf("series %s growth %v must exceed -100%%", name, cfg.ProjectedGrowth)}
	}

	years := make([]int, 0, len(cfg.Values))
	for year, v := range cfg.Values {
		if v <= 0 {
			return nil, &domain.ConfigError{Operation: "series", Message: fmt.Sprintf("series %s year %d has non-positive value %v", name, year, v)}
		}
		years = append(years, year)
	}
	sort.Ints(years)

	s := &Series{
		name:   name,
		growth: cfg.ProjectedGrowth,
		values: make(map[int]float64, years[len(years)-1]-years[0]+1),
		first:  years[0],
		last:   years[len(years)-1],
	}
	for i, year := range years {
		s.values[year] = cfg.Values[year]
		if i == 0 {
			continue
		}
		prev := years[i-1]
		gap := year - prev
		if gap <= 1 {
			continue
		}
		// geometric fill between prev and year
		step := math.Pow(cfg.Values[year]/cfg.Values[prev], 1/float64(gap))
		for y := prev + 1; y < year; y++ {
			s.values[y] = s.values[y-1] * step
		}
	}
	return s, nil
}

// Name returns the series name.
func (s *Series) Name() string { return s.name }

// Value returns the index value for year, extending the series if needed.
func (s *Series) Value(year int) float64 {
	s.mu.RLock()
	v, ok := s.values[year]
	s.mu.RUnlock()
	if ok {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.values[year]; ok {
		return v
	}
	for s.last < year {
		s.values[s.last+1] = s.values[s.last] * (1 + s.growth)
		s.last++
	}
	for s.first > year {
		s.values[s.first-1] = s.values[s.first] / (1 + s.growth)
		s.first--
	}
	return s.values[year]
}

// Convert re-prices amount from year from to year to.
func (s *Series) Convert(amount float64, from, to int) float64 {
	if from == to || amount == 0 {
		return amount
	}
	return amount * s.Value(to) / s.Value(from)
}

// Span returns the currently tabulated year range.
func (s *Series) Span() (first, last int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.first, s.last
}
