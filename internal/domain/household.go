package domain

import (
	"fmt"
)

// Household is the current-year demographic and economic snapshot of a
// simulated family, as supplied by the simulation core.
type Household struct {
	SimulatedYear  int        `yaml:"simulated_year" json:"simulated_year"`
	PriceYear      int        `yaml:"price_year" json:"price_year"` // price basis of the money fields
	ElderAge       int        `yaml:"elder_age" json:"elder_age"`   // age of the elder adult
	Adults         int        `yaml:"adults" json:"adults"`         // 1 or 2
	ChildrenUnder5 int        `yaml:"children_under_5" json:"children_under_5"`
	Children5To10  int        `yaml:"children_5_to_10" json:"children_5_to_10"`
	Children11To17 int        `yaml:"children_11_to_17" json:"children_11_to_17"`
	HoursWorked    [2]float64 `yaml:"hours_worked" json:"hours_worked"` // weekly hours, first then second adult
	Disabled       [2]bool    `yaml:"disabled" json:"disabled"`
	ProvidesCare   bool       `yaml:"provides_care" json:"provides_care"`

	OriginalIncomePerWeek float64 `yaml:"original_income_per_week" json:"original_income_per_week"`
	SecondIncomePerWeek   float64 `yaml:"second_income_per_week" json:"second_income_per_week"`
	ChildcarePerWeek      float64 `yaml:"childcare_per_week" json:"childcare_per_week"`
}

// Children returns the total number of dependent children.
func (h *Household) Children() int {
	return h.ChildrenUnder5 + h.Children5To10 + h.Children11To17
}

// Draw selects how the preferred candidates are combined: a single donor
// drawn with a pseudo-random fraction, or the probability-weighted average.
type Draw struct {
	fraction float64
	average  bool
}

// SingleDraw returns a draw that selects one donor using fraction in [0,1).
func SingleDraw(fraction float64) Draw {
	return Draw{fraction: fraction}
}

// AverageDraw returns a draw that averages over all preferred candidates.
func AverageDraw() Draw {
	return Draw{average: true}
}

// IsAverage reports whether the draw averages instead of selecting.
func (d Draw) IsAverage() bool { return d.average }

// Fraction returns the draw fraction. It is meaningless for average draws.
func (d Draw) Fraction() float64 { return d.fraction }

// Validate checks the fraction lies in [0,1) for single draws.
func (d Draw) Validate() error {
	if d.average {
		return nil
	}
	if d.fraction < 0 || d.fraction >= 1 || d.fraction != d.fraction {
		return &ContractError{
			Operation: "draw",
			Message:   fmt.Sprintf("draw fraction %v outside [0,1)", d.fraction),
		}
	}
	return nil
}

func (d Draw) String() string {
	if d.average {
		return "average"
	}
	return fmt.Sprintf("%.6f", d.fraction)
}

// DonorKeys is the per-imputation match descriptor derived from a Household.
type DonorKeys struct {
	Keys              RegimeKeys
	LowIncome         bool // normalized original income below the low-income threshold
	SubstantialIncome bool // original income non-trivially different from zero
	SimulatedYear     int
	PriceYear         int

	OriginalIncomePerWeek float64
	SecondIncomePerWeek   float64
	ChildcarePerWeek      float64

	// Normalized to the reference price year; these are the values compared
	// against the donor index.
	NormalizedIncome    float64
	NormalizedSecond    float64
	NormalizedChildcare float64

	HasSecondEarner bool
	HasChildcare    bool

	Draw Draw
}
