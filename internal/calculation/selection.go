package calculation

import (
	"fmt"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
)

// drawTolerance absorbs rounding in the cumulative probability so a fraction
// just under 1 still lands on the last candidate.
const drawTolerance = 1e-9

// selection is the blended outcome of the chosen candidates, weekly amounts
// in the target's price year.
type selection struct {
	disposable float64
	benefits   float64
	donorID    string
}

// selectOutcome applies the draw to the preferred candidates.
func (e *Engine) selectOutcome(res *searchResult, keys *domain.DonorKeys) (selection, error) {
	var sel selection
	additive := keys.LowIncome || !keys.SubstantialIncome

	if keys.Draw.IsAverage() {
		for _, c := range res.preferred {
			e.blend(&sel, c.entry, c.weight/res.weightSum, keys, additive)
		}
		return sel, nil
	}

	fraction := keys.Draw.Fraction()
	var cumulative float64
	for _, c := range res.preferred {
		cumulative += c.weight / res.weightSum
		if cumulative > fraction {
			e.blend(&sel, c.entry, 1, keys, additive)
			sel.donorID = c.entry.Unit.ID
			return sel, nil
		}
	}
	if fraction < cumulative+drawTolerance {
		last := res.preferred[len(res.preferred)-1]
		e.blend(&sel, last.entry, 1, keys, additive)
		sel.donorID = last.entry.Unit.ID
		return sel, nil
	}
	return sel, &domain.ContractError{
		Operation: "weighted_selection",
		Message:   fmt.Sprintf("draw %v not reached: cumulative weight %v over %d candidates", fraction, cumulative, len(res.preferred)),
	}
}

// blend adds weight times the donor's outcome to sel. Additive targets take
// the donor's absolute amounts in the target's prices; others take the
// donor's outcome-to-income ratios applied to the target's income. Ratios
// only come from donors with substantial positive income: a negative
// income would flip the sign of a positive target's outcome.
func (e *Engine) blend(sel *selection, d *donor.Entry, weight float64, keys *domain.DonorKeys, additive bool) {
	disposable := domain.WeeklyFromMonthly(d.Snapshot.DisposableIncome)
	benefits := domain.WeeklyFromMonthly(d.Snapshot.Benefits())

	if !additive && d.Income > e.substantial {
		original := domain.WeeklyFromMonthly(d.Snapshot.OriginalIncome)
		sel.disposable += weight * disposable / original * keys.OriginalIncomePerWeek
		sel.benefits += weight * benefits / original * keys.OriginalIncomePerWeek
		return
	}

	prices := e.encoder.Prices()
	sel.disposable += weight * prices.Convert(disposable, d.SystemYear, keys.PriceYear)
	sel.benefits += weight * prices.Convert(benefits, d.SystemYear, keys.PriceYear)
}
