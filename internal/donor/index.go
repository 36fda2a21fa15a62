// Package donor indexes the donor population by system year, match regime
// and key, with each list ordered by normalized original income.
package donor

import (
	"fmt"
	"math"
	"sort"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/matching"
)

// Entry is one donor snapshot as seen by the candidate search. Money fields
// are weekly amounts normalized to the reference year.
type Entry struct {
	Unit       *domain.TaxUnit
	Snapshot   *domain.PolicySnapshot
	SystemYear int
	Keys       domain.RegimeKeys

	Income    float64
	Second    float64
	Childcare float64
}

type indexKey struct {
	systemYear int
	regime     int
	key        int
}

// Index maps (system year, regime, key) to donors sorted by ascending
// normalized original income. It is read-only after BuildIndex and safe for
// concurrent readers.
type Index struct {
	radix   *matching.RadixTable
	lists   map[indexKey][]*Entry
	byYear  map[int][]*Entry
	entries int
}

// BuildIndex indexes every snapshot in pop under keys, which must have been
// computed with the radix table of enc (see ComputeKeys). A nil keys indexes
// the keys already stored on the snapshots.
func BuildIndex(pop *domain.Population, enc *matching.Encoder, keys Keys) (*Index, error) {
	if pop == nil || len(pop.TaxUnits) == 0 {
		return nil, &domain.ConfigError{Operation: "build_index", Message: "donor population is empty"}
	}
	radix := enc.Radix()
	ix := &Index{
		radix:  radix,
		lists:  make(map[indexKey][]*Entry),
		byYear: make(map[int][]*Entry),
	}

	for _, unit := range pop.TaxUnits {
		years := make([]int, 0, len(unit.Snapshots))
		for year := range unit.Snapshots {
			years = append(years, year)
		}
		sort.Ints(years)

		for _, year := range years {
			snap := unit.Snapshots[year]
			if snap == nil {
				return nil, &domain.ConfigError{
					Operation: "build_index",
					Message:   fmt.Sprintf("tax unit %s has a nil snapshot for system year %d", unit.ID, year),
				}
			}
			regimeKeys := snap.Keys
			if keys != nil {
				k, ok := keys[snap]
				if !ok {
					return nil, &domain.ConfigError{
						Operation: "build_index",
						Message:   fmt.Sprintf("tax unit %s system year %d has no computed keys", unit.ID, year),
					}
				}
				regimeKeys = k
			}
			entry := &Entry{
				Unit:       unit,
				Snapshot:   snap,
				SystemYear: year,
				Keys:       regimeKeys,
				Income:     enc.Normalize(domain.WeeklyFromMonthly(snap.OriginalIncome), year),
				Second:     enc.Normalize(domain.WeeklyFromMonthly(snap.SecondIncome), year),
				Childcare:  enc.Normalize(domain.WeeklyFromMonthly(snap.ChildcareCost), year),
			}
			if math.IsNaN(entry.Income) || math.IsInf(entry.Income, 0) {
				return nil, &domain.ConfigError{
					Operation: "build_index",
					Message:   fmt.Sprintf("tax unit %s system year %d has non-finite income", unit.ID, year),
				}
			}

			for r := 0; r < domain.NumRegimes; r++ {
				key := regimeKeys[r]
				if key < 0 || key >= radix.Size(r) {
					return nil, &domain.ConfigError{
						Operation: "build_index",
						Message:   fmt.Sprintf("tax unit %s system year %d key %d outside regime %d key space", unit.ID, year, key, r),
					}
				}
				k := indexKey{systemYear: year, regime: r, key: key}
				ix.lists[k] = append(ix.lists[k], entry)
			}
			ix.byYear[year] = append(ix.byYear[year], entry)
			ix.entries++
		}
	}

	for _, list := range ix.lists {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Income < list[j].Income })
	}
	return ix, nil
}

// Lookup returns the donors sharing key at regime for systemYear. The slice
// must not be modified.
func (ix *Index) Lookup(systemYear, regime, key int) []*Entry {
	return ix.lists[indexKey{systemYear: systemYear, regime: regime, key: key}]
}

// EmptyKeys returns the keys of regime's key space that no donor of
// systemYear carries, ascending.
func (ix *Index) EmptyKeys(systemYear, regime int) []int {
	var empty []int
	for key := 0; key < ix.radix.Size(regime); key++ {
		if len(ix.lists[indexKey{systemYear: systemYear, regime: regime, key: key}]) == 0 {
			empty = append(empty, key)
		}
	}
	return empty
}

// Radix returns the radix table the index was built with.
func (ix *Index) Radix() *matching.RadixTable { return ix.radix }

// HasSystemYear reports whether any donor has a snapshot for year.
func (ix *Index) HasSystemYear(year int) bool {
	return len(ix.byYear[year]) > 0
}

// SystemYears returns the indexed system years, ascending.
func (ix *Index) SystemYears() []int {
	years := make([]int, 0, len(ix.byYear))
	for year := range ix.byYear {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// Entries returns every donor snapshot of systemYear in build order.
func (ix *Index) Entries(systemYear int) []*Entry {
	return ix.byYear[systemYear]
}

// Len returns the number of indexed snapshots.
func (ix *Index) Len() int { return ix.entries }

// ListStats summarizes the lists of one system year and regime.
type ListStats struct {
	SystemYear int `json:"system_year" yaml:"system_year"`
	Regime     int `json:"regime" yaml:"regime"`
	Lists      int `json:"lists" yaml:"lists"`
	Smallest   int `json:"smallest" yaml:"smallest"`
	Largest    int `json:"largest" yaml:"largest"`
	Below10    int `json:"below_10" yaml:"below_10"`
}

// Stats reports list sizes per system year and regime.
func (ix *Index) Stats() []ListStats {
	type yr struct{ year, regime int }
	agg := make(map[yr]*ListStats)
	for k, list := range ix.lists {
		id := yr{k.systemYear, k.regime}
		s, ok := agg[id]
		if !ok {
			s = &ListStats{SystemYear: k.systemYear, Regime: k.regime, Smallest: len(list)}
			agg[id] = s
		}
		s.Lists++
		s.Smallest = min(s.Smallest, len(list))
		s.Largest = max(s.Largest, len(list))
		if len(list) < 10 {
			s.Below10++
		}
	}
	out := make([]ListStats, 0, len(agg))
	for _, s := range agg {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SystemYear != out[j].SystemYear {
			return out[i].SystemYear < out[j].SystemYear
		}
		return out[i].Regime < out[j].Regime
	})
	return out
}
