package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MatchQuality packs regime, pool size and preferred count into one integer:
// regime*1000 + min(pool,99)*10 + min(preferred,9).
type MatchQuality int

// NewMatchQuality encodes a match-quality descriptor.
func NewMatchQuality(regime, poolSize, preferred int) MatchQuality {
	return MatchQuality(regime*1000 + min(poolSize, 99)*10 + min(preferred, 9))
}

// Regime returns the regime the match was made at.
func (q MatchQuality) Regime() int { return int(q) / 1000 }

// PoolSize returns the pool size, capped at 99.
func (q MatchQuality) PoolSize() int { return int(q) % 1000 / 10 }

// Preferred returns the preferred-candidate count, capped at 9.
func (q MatchQuality) Preferred() int { return int(q) % 10 }

func (q MatchQuality) String() string {
	return fmt.Sprintf("%04d", int(q))
}

// Imputation is the outcome of matching one household to its donors.
type Imputation struct {
	DisposableIncomePerWeek decimal.Decimal `json:"disposable_income_per_week" yaml:"disposable_income_per_week"`
	BenefitsPerWeek         decimal.Decimal `json:"benefits_per_week" yaml:"benefits_per_week"`
	GrossIncomePerWeek      decimal.Decimal `json:"gross_income_per_week" yaml:"gross_income_per_week"`

	DonorID        string       `json:"donor_id,omitempty" yaml:"donor_id,omitempty"` // single draws only
	MatchQuality   MatchQuality `json:"match_quality" yaml:"match_quality"`
	SystemYear     int          `json:"system_year" yaml:"system_year"`
	Regime         int          `json:"regime" yaml:"regime"`
	PoolSize       int          `json:"pool_size" yaml:"pool_size"`
	PreferredCount int          `json:"preferred_count" yaml:"preferred_count"`
	LowIncome      bool         `json:"low_income" yaml:"low_income"`
	Averaged       bool         `json:"averaged" yaml:"averaged"`
}

var weeksPerMonth = decimal.NewFromFloat(WeeksPerYear).Div(decimal.NewFromFloat(MonthsPerYear))

// DisposableIncomePerMonth returns disposable income converted to monthly.
func (i *Imputation) DisposableIncomePerMonth() decimal.Decimal {
	return i.DisposableIncomePerWeek.Mul(weeksPerMonth)
}

// BenefitsPerMonth returns benefit receipt converted to monthly.
func (i *Imputation) BenefitsPerMonth() decimal.Decimal {
	return i.BenefitsPerWeek.Mul(weeksPerMonth)
}

// GrossIncomePerMonth returns gross income converted to monthly.
func (i *Imputation) GrossIncomePerMonth() decimal.Decimal {
	return i.GrossIncomePerWeek.Mul(weeksPerMonth)
}

// ImperfectMatch is reported to observers when a match is degraded, so
// donor populations can be augmented offline.
type ImperfectMatch struct {
	Household    Household    `json:"household" yaml:"household"`
	Keys         RegimeKeys   `json:"keys" yaml:"keys"`
	SystemYear   int          `json:"system_year" yaml:"system_year"`
	MatchQuality MatchQuality `json:"match_quality" yaml:"match_quality"`
	Reasons      []string     `json:"reasons" yaml:"reasons"`
}
