// Package donortest builds small donor populations for tests.
package donortest

import (
	"fmt"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/shopspring/decimal"
)

// Outcome describes one donor's weekly amounts in system-year prices.
type Outcome struct {
	Income         float64
	Disposable     float64
	MeansTested    float64
	NonMeansTested float64
	Second         float64
	Childcare      float64
}

// Snapshot converts weekly amounts to a monthly policy snapshot.
func Snapshot(o Outcome) *domain.PolicySnapshot {
	return &domain.PolicySnapshot{
		OriginalIncome:         domain.MonthlyFromWeekly(o.Income),
		DisposableIncome:       domain.MonthlyFromWeekly(o.Disposable),
		Earnings:               domain.MonthlyFromWeekly(o.Income),
		MeansTestedBenefits:    domain.MonthlyFromWeekly(o.MeansTested),
		NonMeansTestedBenefits: domain.MonthlyFromWeekly(o.NonMeansTested),
		SecondIncome:           domain.MonthlyFromWeekly(o.Second),
		ChildcareCost:          domain.MonthlyFromWeekly(o.Childcare),
	}
}

// SingleAdult returns a one-adult tax unit with one snapshot.
func SingleAdult(id string, weight float64, age int, hours float64, year int, o Outcome) *domain.TaxUnit {
	return &domain.TaxUnit{
		ID:        id,
		Weight:    weight,
		Persons:   []domain.Person{{Age: age, HoursWorked: hours}},
		Snapshots: map[int]*domain.PolicySnapshot{year: Snapshot(o)},
	}
}

// Couple returns a two-adult tax unit with optional children ages.
func Couple(id string, weight float64, ages [2]int, hours [2]float64, children []int, year int, o Outcome) *domain.TaxUnit {
	persons := []domain.Person{
		{Age: ages[0], HoursWorked: hours[0]},
		{Age: ages[1], HoursWorked: hours[1]},
	}
	for _, age := range children {
		persons = append(persons, domain.Person{Age: age})
	}
	return &domain.TaxUnit{
		ID:        id,
		Weight:    weight,
		Persons:   persons,
		Snapshots: map[int]*domain.PolicySnapshot{year: Snapshot(o)},
	}
}

// Ladder returns n single working-age adults in year with weekly incomes
// start, start+step, ... and disposable income equal to rate*income.
func Ladder(prefix string, n int, start, step, rate float64, year int) []*domain.TaxUnit {
	units := make([]*domain.TaxUnit, n)
	for i := range units {
		income := start + float64(i)*step
		units[i] = SingleAdult(fmt.Sprintf("%s%03d", prefix, i), 100, 35, 40, year, Outcome{
			Income:      income,
			Disposable:  income * rate,
			MeansTested: 10,
		})
	}
	return units
}

// Population wraps units.
func Population(units ...*domain.TaxUnit) *domain.Population {
	return &domain.Population{TaxUnits: units}
}

// FlatParameters returns default parameters whose income bands never split
// a positive-income population, useful when a test needs every donor under
// one key.
func FlatParameters() *domain.EngineParameters {
	params := domain.DefaultParameters()
	params.IncomeBandLow = decimal.Zero
	params.IncomeBandHigh = decimal.NewFromInt(1000000)
	return params
}
