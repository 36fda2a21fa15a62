package config

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
	"github.com/rgehrsitz/donormatch/internal/matching"
	"github.com/rgehrsitz/donormatch/internal/timeseries"
	"gopkg.in/yaml.v3"
)

// Example file names written by WriteExample.
const (
	ExampleParametersFile = "parameters.yaml"
	ExampleDonorsFile     = "donors.yaml"
	ExampleHouseholdsFile = "households.yaml"
)

// ExamplePopulation generates a synthetic donor population for the system
// years of params' policy schedule, with regime keys assigned. Outcomes
// follow a simple stylized tax/benefit system so the files are useful for
// trying the CLI.
func ExamplePopulation(params *domain.EngineParameters, units int, seed int64) (*domain.Population, error) {
	rng := rand.New(rand.NewSource(seed))

	years := make([]int, 0, len(params.PolicySchedule))
	seen := make(map[int]bool)
	for _, entry := range params.PolicySchedule.Sorted() {
		if !seen[entry.SystemYear] {
			seen[entry.SystemYear] = true
			years = append(years, entry.SystemYear)
		}
	}

	pop := &domain.Population{TaxUnits: make([]*domain.TaxUnit, units)}
	for i := range pop.TaxUnits {
		unit := &domain.TaxUnit{
			ID:        fmt.Sprintf("tu%05d", i+1),
			Weight:    math.Round((50+rng.Float64()*450)*10) / 10,
			Persons:   examplePersons(rng),
			Snapshots: make(map[int]*domain.PolicySnapshot, len(years)),
		}
		earnings := exampleEarnings(rng, unit.Persons)
		second := 0.0
		if len(adultsOf(unit.Persons)) == 2 && rng.Float64() < 0.5 {
			second = math.Round(earnings * (0.2 + rng.Float64()*0.3))
		}
		childcare := 0.0
		if hasYoungChild(unit.Persons) && rng.Float64() < 0.6 {
			childcare = math.Round(40 + rng.Float64()*160)
		}

		for k, year := range years {
			uprate := math.Pow(1.02, float64(year-years[0]))
			unit.Snapshots[year] = exampleSnapshot(earnings*uprate, second*uprate, childcare*uprate, len(unit.Persons), float64(k))
		}
		pop.TaxUnits[i] = unit
	}

	prices, err := timeseries.NewSeries("cpi", params.Inflation)
	if err != nil {
		return nil, err
	}
	enc, err := matching.NewEncoder(params, prices)
	if err != nil {
		return nil, err
	}
	if err := donor.AssignKeys(pop, enc); err != nil {
		return nil, err
	}
	return pop, nil
}

func examplePersons(rng *rand.Rand) []domain.Person {
	adults := 1 + rng.Intn(2)
	elder := 18 + rng.Intn(70)
	persons := []domain.Person{{
		Age:          elder,
		HoursWorked:  exampleHours(rng, elder),
		Disabled:     rng.Float64() < 0.08,
		ProvidesCare: rng.Float64() < 0.05,
	}}
	if adults == 2 {
		age := max(18, elder-rng.Intn(8))
		persons = append(persons, domain.Person{Age: age, HoursWorked: exampleHours(rng, age)})
	}
	if elder < 55 {
		for c := rng.Intn(4); c > 0; c-- {
			persons = append(persons, domain.Person{Age: rng.Intn(18)})
		}
	}
	return persons
}

func exampleHours(rng *rand.Rand, age int) float64 {
	if age >= 66 {
		if rng.Float64() < 0.15 {
			return float64(6 + rng.Intn(20))
		}
		return 0
	}
	if rng.Float64() < 0.2 {
		return 0
	}
	if rng.Float64() < 0.3 {
		return float64(8 + rng.Intn(22))
	}
	return float64(30 + rng.Intn(20))
}

func exampleEarnings(rng *rand.Rand, persons []domain.Person) float64 {
	var total float64
	for _, p := range adultsOf(persons) {
		total += p.HoursWorked * (9 + rng.Float64()*25)
		if p.Age >= 66 {
			total += 120 + rng.Float64()*150 // pension income
		}
	}
	return math.Round(total)
}

func exampleSnapshot(income, second, childcare float64, size int, drift float64) *domain.PolicySnapshot {
	tax := 0.0
	if income > 240 {
		tax = (income - 240) * (0.32 + 0.005*drift)
	}
	meansTested := math.Max(0, 90*float64(size)-0.55*income)
	nonMeansTested := 0.0
	if size > 2 {
		nonMeansTested = 21 * float64(size-2)
	}
	disposable := income - tax + meansTested + nonMeansTested - 0.3*childcare

	return &domain.PolicySnapshot{
		OriginalIncome:         domain.MonthlyFromWeekly(income),
		DisposableIncome:       domain.MonthlyFromWeekly(disposable),
		Earnings:               domain.MonthlyFromWeekly(income),
		MeansTestedBenefits:    domain.MonthlyFromWeekly(meansTested),
		NonMeansTestedBenefits: domain.MonthlyFromWeekly(nonMeansTested),
		SecondIncome:           domain.MonthlyFromWeekly(second),
		ChildcareCost:          domain.MonthlyFromWeekly(childcare),
	}
}

func adultsOf(persons []domain.Person) []domain.Person {
	var adults []domain.Person
	for _, p := range persons {
		if p.Age >= 18 {
			adults = append(adults, p)
		}
	}
	return adults
}

func hasYoungChild(persons []domain.Person) bool {
	for _, p := range persons {
		if p.Age < 11 {
			return true
		}
	}
	return false
}

// ExampleHouseholds returns a few simulated households spanning the match
// regimes, with explicit draws.
func ExampleHouseholds() []HouseholdRecord {
	single := func(draw float64) DrawSpec { return DrawSpec{Set: true, Draw: domain.SingleDraw(draw)} }
	return []HouseholdRecord{
		{ID: "single-worker", Draw: single(0.42), Household: domain.Household{
			SimulatedYear: 2030, PriceYear: 2030, ElderAge: 34, Adults: 1,
			HoursWorked: [2]float64{38, 0}, OriginalIncomePerWeek: 610,
		}},
		{ID: "couple-with-children", Draw: single(0.17), Household: domain.Household{
			SimulatedYear: 2030, PriceYear: 2030, ElderAge: 41, Adults: 2,
			ChildrenUnder5: 1, Children5To10: 1, HoursWorked: [2]float64{40, 16},
			OriginalIncomePerWeek: 980, SecondIncomePerWeek: 240, ChildcarePerWeek: 120,
		}},
		{ID: "low-income-lone-parent", Draw: DrawSpec{Set: true, Draw: domain.AverageDraw()}, Household: domain.Household{
			SimulatedYear: 2030, PriceYear: 2030, ElderAge: 27, Adults: 1,
			Children11To17: 1, HoursWorked: [2]float64{12, 0}, OriginalIncomePerWeek: 140,
		}},
		{ID: "pensioner-couple", Household: domain.Household{
			SimulatedYear: 2030, PriceYear: 2030, ElderAge: 74, Adults: 2,
			Disabled: [2]bool{true, false}, OriginalIncomePerWeek: 420,
		}},
	}
}

// WriteExample writes a parameters file, a synthetic donor file and a
// households file into dir and returns their paths.
func WriteExample(dir string, units int, seed int64) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	params := domain.DefaultParameters()
	pop, err := ExamplePopulation(params, units, seed)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name  string
		value any
	}{
		{ExampleParametersFile, params},
		{ExampleDonorsFile, pop},
		{ExampleHouseholdsFile, HouseholdFile{Households: ExampleHouseholds()}},
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		data, err := yaml.Marshal(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", f.name, err)
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
