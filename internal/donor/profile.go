package donor

import (
	"fmt"
	"sort"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/matching"
)

const adultAge = 18

// ProfileOf describes a tax unit under one system year as a Household, in
// that system year's prices, so it can be encoded like a target.
func ProfileOf(unit *domain.TaxUnit, systemYear int) (domain.Household, error) {
	var h domain.Household
	snap, ok := unit.Snapshots[systemYear]
	if !ok || snap == nil {
		return h, fmt.Errorf("tax unit %s has no snapshot for system year %d", unit.ID, systemYear)
	}

	var adults []domain.Person
	for i, p := range unit.Persons {
		switch {
		case p.Age < 0:
			return h, fmt.Errorf("tax unit %s person %d has negative age %d", unit.ID, i, p.Age)
		case p.Age >= adultAge:
			adults = append(adults, p)
		case p.Age <= 4:
			h.ChildrenUnder5++
		case p.Age <= 10:
			h.Children5To10++
		default:
			h.Children11To17++
		}
		if p.ProvidesCare {
			h.ProvidesCare = true
		}
	}
	if len(adults) == 0 || len(adults) > 2 {
		return h, fmt.Errorf("tax unit %s has %d adults, want 1 or 2", unit.ID, len(adults))
	}
	sort.SliceStable(adults, func(i, j int) bool { return adults[i].Age > adults[j].Age })

	h.SimulatedYear = systemYear
	h.PriceYear = systemYear
	h.ElderAge = adults[0].Age
	h.Adults = len(adults)
	for i, a := range adults {
		h.HoursWorked[i] = a.HoursWorked
		h.Disabled[i] = a.Disabled
	}
	h.OriginalIncomePerWeek = domain.WeeklyFromMonthly(snap.OriginalIncome)
	h.SecondIncomePerWeek = domain.WeeklyFromMonthly(snap.SecondIncome)
	h.ChildcarePerWeek = domain.WeeklyFromMonthly(snap.ChildcareCost)
	return h, nil
}

// Keys holds computed regime keys per donor snapshot.
type Keys map[*domain.PolicySnapshot]domain.RegimeKeys

// ComputeKeys encodes every snapshot of pop with enc, the same encoder that
// will encode imputation targets. pop is not modified.
func ComputeKeys(pop *domain.Population, enc *matching.Encoder) (Keys, error) {
	keys := make(Keys)
	for _, unit := range pop.TaxUnits {
		for year, snap := range unit.Snapshots {
			if snap == nil {
				return nil, &domain.ConfigError{
					Operation: "assign_keys",
					Message:   fmt.Sprintf("tax unit %s has a nil snapshot for system year %d", unit.ID, year),
				}
			}
			h, err := ProfileOf(unit, year)
			if err != nil {
				return nil, &domain.ConfigError{Operation: "assign_keys", Message: "invalid tax unit", Cause: err}
			}
			dk, err := enc.Keys(&h, domain.AverageDraw())
			if err != nil {
				return nil, &domain.ConfigError{
					Operation: "assign_keys",
					Message:   fmt.Sprintf("tax unit %s system year %d", unit.ID, year),
					Cause:     err,
				}
			}
			keys[snap] = dk.Keys
		}
	}
	return keys, nil
}

// AssignKeys writes computed keys into every snapshot of pop, for callers
// that persist a population with its keys.
func AssignKeys(pop *domain.Population, enc *matching.Encoder) error {
	keys, err := ComputeKeys(pop, enc)
	if err != nil {
		return err
	}
	for snap, k := range keys {
		snap.Keys = k
	}
	return nil
}
