package output

import (
	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
	"github.com/shopspring/decimal"
)

// Row is the outcome of one household in an imputation run.
type Row struct {
	ID         string             `json:"id" yaml:"id"`
	Draw       string             `json:"draw" yaml:"draw"`
	Household  domain.Household   `json:"household" yaml:"household"`
	Imputation *domain.Imputation `json:"imputation,omitempty" yaml:"imputation,omitempty"`
	Error      string             `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary aggregates a run.
type Summary struct {
	Households       int                    `json:"households" yaml:"households"`
	Failed           int                    `json:"failed" yaml:"failed"`
	LowIncome        int                    `json:"low_income" yaml:"low_income"`
	ImperfectMatches int                    `json:"imperfect_matches" yaml:"imperfect_matches"`
	ByRegime         [domain.NumRegimes]int `json:"by_regime" yaml:"by_regime"`
	MeanDisposable   decimal.Decimal        `json:"mean_disposable_per_week" yaml:"mean_disposable_per_week"`
	MeanBenefits     decimal.Decimal        `json:"mean_benefits_per_week" yaml:"mean_benefits_per_week"`
}

// Report is everything a formatter renders.
type Report struct {
	ParametersFile string            `json:"parameters_file,omitempty" yaml:"parameters_file,omitempty"`
	DonorsFile     string            `json:"donors_file" yaml:"donors_file"`
	Rows           []Row             `json:"rows" yaml:"rows"`
	Summary        Summary           `json:"summary" yaml:"summary"`
	IndexStats     []donor.ListStats `json:"index_stats,omitempty" yaml:"index_stats,omitempty"`
}

// Summarize fills r.Summary from the rows. imperfect is the number of
// degraded matches the run reported.
func (r *Report) Summarize(imperfect int) {
	s := Summary{Households: len(r.Rows), ImperfectMatches: imperfect}
	disposable, benefits := decimal.Zero, decimal.Zero
	ok := 0
	for _, row := range r.Rows {
		if row.Imputation == nil {
			s.Failed++
			continue
		}
		ok++
		imp := row.Imputation
		if imp.LowIncome {
			s.LowIncome++
		}
		if imp.Regime >= 0 && imp.Regime < domain.NumRegimes {
			s.ByRegime[imp.Regime]++
		}
		disposable = disposable.Add(imp.DisposableIncomePerWeek)
		benefits = benefits.Add(imp.BenefitsPerWeek)
	}
	if ok > 0 {
		n := decimal.NewFromInt(int64(ok))
		s.MeanDisposable = disposable.Div(n).Round(2)
		s.MeanBenefits = benefits.Div(n).Round(2)
	}
	r.Summary = s
}

// FormatCurrency formats a weekly or monthly amount.
func FormatCurrency(amount decimal.Decimal) string {
	return "£" + amount.StringFixed(2)
}
