package calculation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rgehrsitz/donormatch/internal/domain"
)

// CoverageGap is a coarsest-regime key no donor carries in a scheduled
// system year. A target encoding to it cannot be imputed.
type CoverageGap struct {
	SystemYear int    `json:"system_year" yaml:"system_year"`
	Key        int    `json:"key" yaml:"key"`
	Features   string `json:"features" yaml:"features"` // active feature buckets, e.g. "age=1 adults=0"
}

func (g CoverageGap) String() string {
	return fmt.Sprintf("system year %d key %d (%s)", g.SystemYear, g.Key, g.Features)
}

// RequireCoverage makes construction fail with a ConfigError when any
// scheduled system year has coverage gaps.
func RequireCoverage() Option {
	return func(e *Engine) { e.requireCoverage = true }
}

// CoverageGaps lists, per scheduled system year, the coarsest-regime keys
// with no donors.
func (e *Engine) CoverageGaps() []CoverageGap {
	coarsest := domain.NumRegimes - 1
	radix := e.index.Radix()

	var gaps []CoverageGap
	for _, year := range e.scheduledYears() {
		for _, key := range e.index.EmptyKeys(year, coarsest) {
			buckets, err := radix.Decode(key, coarsest)
			if err != nil {
				continue
			}
			var parts []string
			for _, f := range domain.MatchFeatures {
				if radix.Active(f, coarsest) {
					parts = append(parts, fmt.Sprintf("%s=%d", f, buckets[f]))
				}
			}
			gaps = append(gaps, CoverageGap{SystemYear: year, Key: key, Features: strings.Join(parts, " ")})
		}
	}
	return gaps
}

// CheckCoverage returns a ConfigError naming every coverage gap.
func (e *Engine) CheckCoverage() error {
	gaps := e.CoverageGaps()
	if len(gaps) == 0 {
		return nil
	}
	lines := make([]string, len(gaps))
	for i, g := range gaps {
		lines[i] = g.String()
	}
	return &domain.ConfigError{
		Operation: "coverage",
		Message:   fmt.Sprintf("%d coarsest-regime keys have no donors: %s", len(gaps), strings.Join(lines, "; ")),
	}
}

// scheduledYears returns the distinct system years of the policy schedule,
// ascending.
func (e *Engine) scheduledYears() []int {
	seen := make(map[int]bool, len(e.schedule))
	var years []int
	for _, entry := range e.schedule {
		if !seen[entry.SystemYear] {
			seen[entry.SystemYear] = true
			years = append(years, entry.SystemYear)
		}
	}
	sort.Ints(years)
	return years
}
