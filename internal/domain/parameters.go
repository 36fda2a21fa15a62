package domain

import (
	"github.com/shopspring/decimal"
)

// EngineParameters holds the fixed constants of the imputation engine.
// Money thresholds are weekly amounts in ReferenceYear prices.
type EngineParameters struct {
	ReferenceYear int `yaml:"reference_year" json:"reference_year"`   // price basis of thresholds and index sorting
	BasePriceYear int `yaml:"base_price_year" json:"base_price_year"` // a schedule entry must target this system year

	FullTimeHours float64 `yaml:"full_time_hours" json:"full_time_hours"`
	MidAge        int     `yaml:"mid_age" json:"mid_age"`

	LowIncomeThreshold decimal.Decimal `yaml:"low_income_threshold" json:"low_income_threshold"`
	IncomeBandLow      decimal.Decimal `yaml:"income_band_low" json:"income_band_low"`
	IncomeBandHigh     decimal.Decimal `yaml:"income_band_high" json:"income_band_high"`
	SubstantialIncome  decimal.Decimal `yaml:"substantial_income" json:"substantial_income"`

	StatePensionAge StatePensionAgeSchedule `yaml:"state_pension_age" json:"state_pension_age"`
	PolicySchedule  PolicySchedule          `yaml:"policy_schedule" json:"policy_schedule"`
	Inflation       IndexSeriesConfig       `yaml:"inflation" json:"inflation"`

	Search      SearchParameters      `yaml:"search" json:"search"`
	Diagnostics DiagnosticsParameters `yaml:"diagnostics" json:"diagnostics"`
}

// IndexSeriesConfig seeds a price index series. Years beyond the tabulated
// range are extrapolated at ProjectedGrowth per year.
type IndexSeriesConfig struct {
	Values          map[int]float64 `yaml:"values" json:"values"`
	ProjectedGrowth float64         `yaml:"projected_growth" json:"projected_growth"`
}

// SearchParameters tune candidate search and selection.
type SearchParameters struct {
	MinPool            int     `yaml:"min_pool" json:"min_pool"`                         // pool size accepted when only income matters
	MinPoolSecondary   int     `yaml:"min_pool_secondary" json:"min_pool_secondary"`     // pool size accepted when secondary features are active
	RankBound          int     `yaml:"rank_bound" json:"rank_bound"`                     // distinct-distance rank bound, income only
	SecondaryRankBound int     `yaml:"secondary_rank_bound" json:"secondary_rank_bound"` // distinct-distance rank bound, secondary features
	PreferredBands     int     `yaml:"preferred_bands" json:"preferred_bands"`
	DistanceFloor      float64 `yaml:"distance_floor" json:"distance_floor"` // effective weight = weight / (floor + distance)
	CacheSize          int     `yaml:"cache_size" json:"cache_size"`         // 0 disables the search cache
}

// DiagnosticsParameters decide when a match is reported as imperfect.
type DiagnosticsParameters struct {
	DegradedRegime int `yaml:"degraded_regime" json:"degraded_regime"`
	MinPreferred   int `yaml:"min_preferred" json:"min_preferred"`
}

// DefaultSearchParameters returns the standard search tuning.
func DefaultSearchParameters() SearchParameters {
	return SearchParameters{
		MinPool:            10,
		MinPoolSecondary:   50,
		RankBound:          2,
		SecondaryRankBound: 60,
		PreferredBands:     4,
		DistanceFloor:      0.1,
	}
}

// DefaultParameters returns parameters in 2015 prices with a CPI series
// rebased to 2015 = 100.
func DefaultParameters() *EngineParameters {
	return &EngineParameters{
		ReferenceYear:      2015,
		BasePriceYear:      2015,
		FullTimeHours:      30,
		MidAge:             45,
		LowIncomeThreshold: decimal.NewFromInt(150),
		IncomeBandLow:      decimal.NewFromInt(300),
		IncomeBandHigh:     decimal.NewFromInt(900),
		SubstantialIncome:  decimal.NewFromInt(1),
		StatePensionAge: StatePensionAgeSchedule{
			{FromYear: 1948, Age: 65},
			{FromYear: 2020, Age: 66},
			{FromYear: 2028, Age: 67},
			{FromYear: 2046, Age: 68},
		},
		PolicySchedule: PolicySchedule{
			{FromYear: 2015, SystemYear: 2015},
		},
		Inflation: IndexSeriesConfig{
			Values: map[int]float64{
				2010: 90.1, 2011: 94.2, 2012: 96.9, 2013: 99.3, 2014: 100.0,
				2015: 100.0, 2016: 100.7, 2017: 103.4, 2018: 105.9, 2019: 107.8,
				2020: 108.7, 2021: 111.6, 2022: 121.7, 2023: 130.5, 2024: 133.9,
			},
			ProjectedGrowth: 0.02,
		},
		Search: DefaultSearchParameters(),
		Diagnostics: DiagnosticsParameters{
			DegradedRegime: 2,
			MinPreferred:   2,
		},
	}
}
