// Package matching derives the coarse-exact match keys shared by donor
// records and imputation targets.
package matching

import (
	"fmt"
	"math"
	"sync"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/timeseries"
)

// Input bounds checked before encoding.
const (
	minYear          = 1900
	maxYear          = 2200
	minAdultAge      = 16
	maxAge           = 120
	maxChildrenBand  = 15
	maxWeeklyHours   = 168.0
	minWeeklyIncome  = -100000.0
	maxWeeklyIncome  = 1000000.0
	maxWeeklyCharges = 100000.0
)

// Encoder maps households to regime keys. One Encoder must serve both the
// donor index and imputation targets so both use the same radix table.
type Encoder struct {
	params *domain.EngineParameters
	prices *timeseries.Series
	limits thresholds

	lowIncome float64

	radixOnce sync.Once
	radix     *RadixTable
}

// NewEncoder creates an encoder. prices normalizes money to the reference year.
func NewEncoder(params *domain.EngineParameters, prices *timeseries.Series) (*Encoder, error) {
	if params == nil {
		return nil, &domain.ConfigError{Operation: "encoder", Message: "parameters are required"}
	}
	if prices == nil {
		return nil, &domain.ConfigError{Operation: "encoder", Message: "price series is required"}
	}
	if len(params.StatePensionAge) == 0 {
		return nil, &domain.ConfigError{Operation: "encoder", Message: "state pension age schedule is empty"}
	}
	bandLow, _ := params.IncomeBandLow.Float64()
	bandHigh, _ := params.IncomeBandHigh.Float64()
	substantial, _ := params.SubstantialIncome.Float64()
	lowIncome, _ := params.LowIncomeThreshold.Float64()
	if bandLow > bandHigh {
		return nil, &domain.ConfigError{
			Operation: "encoder",
			Message:   fmt.Sprintf("income band low %v exceeds high %v", bandLow, bandHigh),
		}
	}

	return &Encoder{
		params: params,
		prices: prices,
		limits: thresholds{
			midAge:        params.MidAge,
			fullTimeHours: params.FullTimeHours,
			bandLow:       bandLow,
			bandHigh:      bandHigh,
			substantial:   substantial,
		},
		lowIncome: lowIncome,
	}, nil
}

// Radix returns the radix table, building it on first use.
func (e *Encoder) Radix() *RadixTable {
	e.radixOnce.Do(func() {
		e.radix = buildRadixTable()
	})
	return e.radix
}

// Prices returns the price index used for normalization.
func (e *Encoder) Prices() *timeseries.Series { return e.prices }

// ReferenceYear returns the price year thresholds are expressed in.
func (e *Encoder) ReferenceYear() int { return e.params.ReferenceYear }

// Normalize re-prices a weekly amount from priceYear to the reference year.
func (e *Encoder) Normalize(amount float64, priceYear int) float64 {
	return e.prices.Convert(amount, priceYear, e.params.ReferenceYear)
}

// Keys validates h and derives its donor keys.
func (e *Encoder) Keys(h *domain.Household, draw domain.Draw) (*domain.DonorKeys, error) {
	if err := Validate(h); err != nil {
		return nil, err
	}
	if err := draw.Validate(); err != nil {
		return nil, err
	}

	spa, err := e.params.StatePensionAge.AgeFor(h.SimulatedYear)
	if err != nil {
		return nil, err
	}

	p := profile{
		elderAge:        h.ElderAge,
		statePensionAge: spa,
		adults:          h.Adults,
		children:        [3]int{h.ChildrenUnder5, h.Children5To10, h.Children11To17},
		hours:           h.HoursWorked,
		disabled:        h.Disabled,
		carer:           h.ProvidesCare,
		income:          e.Normalize(h.OriginalIncomePerWeek, h.PriceYear),
		second:          e.Normalize(h.SecondIncomePerWeek, h.PriceYear),
		childcare:       e.Normalize(h.ChildcarePerWeek, h.PriceYear),
	}

	keys, err := e.encode(&p)
	if err != nil {
		return nil, err
	}

	return &domain.DonorKeys{
		Keys:                  keys,
		LowIncome:             p.income < e.lowIncome,
		SubstantialIncome:     math.Abs(p.income) > e.limits.substantial,
		SimulatedYear:         h.SimulatedYear,
		PriceYear:             h.PriceYear,
		OriginalIncomePerWeek: h.OriginalIncomePerWeek,
		SecondIncomePerWeek:   h.SecondIncomePerWeek,
		ChildcarePerWeek:      h.ChildcarePerWeek,
		NormalizedIncome:      p.income,
		NormalizedSecond:      p.second,
		NormalizedChildcare:   p.childcare,
		HasSecondEarner:       p.second > e.limits.substantial,
		HasChildcare:          p.childcare > e.limits.substantial,
		Draw:                  draw,
	}, nil
}

func (e *Encoder) encode(p *profile) (domain.RegimeKeys, error) {
	rt := e.Radix()
	var fine [domain.FeatureFinal]int
	for f, ft := range featureTable {
		fine[f] = ft.fine(p, &e.limits)
	}

	var keys domain.RegimeKeys
	for r := 0; r < domain.NumRegimes; r++ {
		var buckets [domain.FeatureFinal]int
		for f, ft := range featureTable {
			buckets[f] = ft.coarsen(fine[f], r)
		}
		key, err := rt.Compose(buckets, r)
		if err != nil {
			return keys, err
		}
		keys[r] = key
	}
	return keys, nil
}

// Validate checks a household against the input contract.
func Validate(h *domain.Household) error {
	fail := func(format string, args ...any) error {
		return &domain.ContractError{Operation: "household", Message: fmt.Sprintf(format, args...)}
	}
	if h == nil {
		return fail("household is required")
	}
	if h.SimulatedYear < minYear || h.SimulatedYear > maxYear {
		return fail("simulated year %d outside [%d,%d]", h.SimulatedYear, minYear, maxYear)
	}
	if h.PriceYear < minYear || h.PriceYear > maxYear {
		return fail("price year %d outside [%d,%d]", h.PriceYear, minYear, maxYear)
	}
	if h.ElderAge < minAdultAge || h.ElderAge > maxAge {
		return fail("elder adult age %d outside [%d,%d]", h.ElderAge, minAdultAge, maxAge)
	}
	if h.Adults != 1 && h.Adults != 2 {
		return fail("adult count must be 1 or 2, got %d", h.Adults)
	}
	for i, n := range []int{h.ChildrenUnder5, h.Children5To10, h.Children11To17} {
		if n < 0 || n > maxChildrenBand {
			return fail("children in band %d must be in [0,%d], got %d", i, maxChildrenBand, n)
		}
	}
	for i, hours := range h.HoursWorked {
		if !finite(hours) || hours < 0 || hours > maxWeeklyHours {
			return fail("hours worked for adult %d must be in [0,%v], got %v", i+1, maxWeeklyHours, hours)
		}
	}
	if h.Adults == 1 {
		if h.HoursWorked[1] != 0 {
			return fail("one-adult household has hours for a second adult")
		}
		if h.Disabled[1] {
			return fail("one-adult household has a disabled second adult")
		}
		if h.SecondIncomePerWeek != 0 {
			return fail("one-adult household has a second income")
		}
	}
	if !finite(h.OriginalIncomePerWeek) || h.OriginalIncomePerWeek < minWeeklyIncome || h.OriginalIncomePerWeek > maxWeeklyIncome {
		return fail("original income %v outside [%v,%v]", h.OriginalIncomePerWeek, minWeeklyIncome, maxWeeklyIncome)
	}
	if !finite(h.SecondIncomePerWeek) || h.SecondIncomePerWeek < 0 || h.SecondIncomePerWeek > maxWeeklyIncome {
		return fail("second income %v outside [0,%v]", h.SecondIncomePerWeek, maxWeeklyIncome)
	}
	if !finite(h.ChildcarePerWeek) || h.ChildcarePerWeek < 0 || h.ChildcarePerWeek > maxWeeklyCharges {
		return fail("childcare cost %v outside [0,%v]", h.ChildcarePerWeek, maxWeeklyCharges)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
