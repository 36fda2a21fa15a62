// Package diagnostics collects imperfect matches reported by the imputation
// engine, for offline donor-population augmentation.
package diagnostics

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rgehrsitz/donormatch/internal/calculation"
	"github.com/rgehrsitz/donormatch/internal/domain"
)

// Recorder keeps imperfect matches in memory. It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	limit   int
	dropped int
	matches []domain.ImperfectMatch
}

// NewRecorder returns a recorder holding at most limit matches; limit <= 0
// means unbounded. Matches beyond the limit are counted but not kept.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// ObserveImperfectMatch implements calculation.MatchObserver.
func (r *Recorder) ObserveImperfectMatch(match domain.ImperfectMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limit > 0 && len(r.matches) >= r.limit {
		r.dropped++
		return
	}
	match.Reasons = append([]string(nil), match.Reasons...)
	r.matches = append(r.matches, match)
}

// Matches returns a copy of the recorded matches in arrival order.
func (r *Recorder) Matches() []domain.ImperfectMatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ImperfectMatch(nil), r.matches...)
}

// Dropped returns how many matches exceeded the limit.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Len returns the number of recorded matches.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matches)
}

// WriteJSON writes the recorded matches as an indented JSON array.
func (r *Recorder) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r.Matches(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal imperfect matches: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

var csvHeader = []string{
	"Simulated Year",
	"System Year",
	"Match Quality",
	"Regime",
	"Pool Size",
	"Preferred",
	"Adults",
	"Children",
	"Elder Age",
	"Original Income",
	"Keys",
	"Reasons",
}

// WriteCSV writes one row per recorded match.
func (r *Recorder) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range r.Matches() {
		keys := make([]string, len(m.Keys))
		for i, k := range m.Keys {
			keys[i] = strconv.Itoa(k)
		}
		row := []string{
			strconv.Itoa(m.Household.SimulatedYear),
			strconv.Itoa(m.SystemYear),
			m.MatchQuality.String(),
			strconv.Itoa(m.MatchQuality.Regime()),
			strconv.Itoa(m.MatchQuality.PoolSize()),
			strconv.Itoa(m.MatchQuality.Preferred()),
			strconv.Itoa(m.Household.Adults),
			strconv.Itoa(m.Household.Children()),
			strconv.Itoa(m.Household.ElderAge),
			strconv.FormatFloat(m.Household.OriginalIncomePerWeek, 'f', 2, 64),
			strings.Join(keys, " "),
			strings.Join(m.Reasons, "; "),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Tee fans one match out to several observers.
type Tee []calculation.MatchObserver

// ObserveImperfectMatch implements calculation.MatchObserver.
func (t Tee) ObserveImperfectMatch(match domain.ImperfectMatch) {
	for _, o := range t {
		if o != nil {
			o.ObserveImperfectMatch(match)
		}
	}
}
