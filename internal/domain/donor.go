package domain

import (
	"fmt"
	"sort"
)

// Calendar constants for weekly/monthly conversion.
const (
	WeeksPerYear  = 52.0
	MonthsPerYear = 12.0
)

// WeeklyFromMonthly converts a monthly amount to a weekly amount.
func WeeklyFromMonthly(monthly float64) float64 {
	return monthly * MonthsPerYear / WeeksPerYear
}

// MonthlyFromWeekly converts a weekly amount to a monthly amount.
func MonthlyFromWeekly(weekly float64) float64 {
	return weekly * WeeksPerYear / MonthsPerYear
}

// Person is a member of a donor tax unit. Persons only feed key construction.
type Person struct {
	Age          int     `yaml:"age" json:"age"`
	HoursWorked  float64 `yaml:"hours_worked" json:"hours_worked"`
	Disabled     bool    `yaml:"disabled" json:"disabled"`
	ProvidesCare bool    `yaml:"provides_care" json:"provides_care"`
}

// PolicySnapshot holds a tax unit's pre-computed outcomes under one
// tax/benefit system year. Money amounts are monthly, in system-year prices.
type PolicySnapshot struct {
	OriginalIncome         float64 `yaml:"original_income" json:"original_income"`
	DisposableIncome       float64 `yaml:"disposable_income" json:"disposable_income"`
	Earnings               float64 `yaml:"earnings" json:"earnings"`
	MeansTestedBenefits    float64 `yaml:"means_tested_benefits" json:"means_tested_benefits"`
	NonMeansTestedBenefits float64 `yaml:"non_means_tested_benefits" json:"non_means_tested_benefits"`
	SecondIncome           float64 `yaml:"second_income" json:"second_income"`
	ChildcareCost          float64 `yaml:"childcare_cost" json:"childcare_cost"`

	Keys RegimeKeys `yaml:"keys" json:"keys"`
}

// Benefits returns total benefit receipt (monthly).
func (s *PolicySnapshot) Benefits() float64 {
	return s.MeansTestedBenefits + s.NonMeansTestedBenefits
}

// TaxUnit is a donor record: a surveyed household with outcomes per system year.
type TaxUnit struct {
	ID        string                  `yaml:"id" json:"id"`
	Weight    float64                 `yaml:"weight" json:"weight"` // survey sampling weight
	Persons   []Person                `yaml:"persons" json:"persons"`
	Snapshots map[int]*PolicySnapshot `yaml:"snapshots" json:"snapshots"` // system year -> snapshot
}

// Population is the full donor population.
type Population struct {
	TaxUnits []*TaxUnit `yaml:"tax_units" json:"tax_units"`
}

// SystemYears returns the distinct system years present, ascending.
func (p *Population) SystemYears() []int {
	seen := make(map[int]bool)
	for _, tu := range p.TaxUnits {
		for year := range tu.Snapshots {
			seen[year] = true
		}
	}
	years := make([]int, 0, len(seen))
	for year := range seen {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}

// PolicyScheduleEntry maps simulated years from FromYear onward to the donor
// snapshot of SystemYear.
type PolicyScheduleEntry struct {
	FromYear   int `yaml:"from_year" json:"from_year"`
	SystemYear int `yaml:"system_year" json:"system_year"`
}

// PolicySchedule is ordered ascending by FromYear.
type PolicySchedule []PolicyScheduleEntry

// Sorted returns a copy ordered by FromYear.
func (ps PolicySchedule) Sorted() PolicySchedule {
	out := append(PolicySchedule(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].FromYear < out[j].FromYear })
	return out
}

// SystemYearFor returns the system year of the most recent entry at or
// before year, or of the earliest entry when year precedes them all.
// The schedule must be sorted.
func (ps PolicySchedule) SystemYearFor(year int) (int, error) {
	if len(ps) == 0 {
		return 0, &ConfigError{Operation: "policy_schedule", Message: "schedule is empty"}
	}
	i := stepIndex(len(ps), year, func(i int) int { return ps[i].FromYear })
	return ps[i].SystemYear, nil
}

// StatePensionAgeStep sets the state pension age from FromYear onward.
type StatePensionAgeStep struct {
	FromYear int `yaml:"from_year" json:"from_year"`
	Age      int `yaml:"age" json:"age"`
}

// StatePensionAgeSchedule is ordered ascending by FromYear.
type StatePensionAgeSchedule []StatePensionAgeStep

// AgeFor returns the state pension age applying in year.
func (s StatePensionAgeSchedule) AgeFor(year int) (int, error) {
	if len(s) == 0 {
		return 0, &ConfigError{Operation: "state_pension_age", Message: "schedule is empty"}
	}
	i := stepIndex(len(s), year, func(i int) int { return s[i].FromYear })
	return s[i].Age, nil
}

// stepIndex finds the last entry whose start is <= year, clamping to 0.
func stepIndex(n, year int, start func(int) int) int {
	// first entry starting strictly after year
	i := sort.Search(n, func(i int) bool { return start(i) > year })
	if i == 0 {
		return 0
	}
	return i - 1
}

// String renders a schedule entry for diagnostics.
func (e PolicyScheduleEntry) String() string {
	return fmt.Sprintf("%d->%d", e.FromYear, e.SystemYear)
}
