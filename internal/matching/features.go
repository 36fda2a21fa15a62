package matching

import (
	"github.com/rgehrsitz/donormatch/internal/domain"
)

// profile is the household view the bucketing functions classify. Money
// fields are weekly amounts normalized to the reference year.
type profile struct {
	elderAge        int
	statePensionAge int
	adults          int
	children        [3]int // 0-4, 5-10, 11-17
	hours           [2]float64
	disabled        [2]bool
	carer           bool
	income          float64
	second          float64
	childcare       float64
}

// thresholds are the parameter values the bucketing functions compare with.
type thresholds struct {
	midAge        int
	fullTimeHours float64
	bandLow       float64
	bandHigh      float64
	substantial   float64
}

// featureSpec classifies a profile into the feature's finest bucket and maps
// that bucket to each regime. Deriving every regime from the finest bucket
// keeps coarser regimes a coarsening of finer ones.
type featureSpec struct {
	feature   domain.MatchFeature
	fineCount int
	fine      func(p *profile, t *thresholds) int
	coarsen   func(fine, regime int) int
}

// featureTable is indexed by domain.MatchFeature.
var featureTable = [domain.FeatureFinal]featureSpec{
	domain.FeatureAge: {
		feature:   domain.FeatureAge,
		fineCount: 3,
		fine: func(p *profile, t *thresholds) int {
			switch {
			case p.elderAge >= p.statePensionAge:
				return 2
			case p.elderAge >= t.midAge:
				return 1
			default:
				return 0
			}
		},
		coarsen: func(fine, regime int) int {
			if regime <= 1 {
				return fine
			}
			return boolBucket(fine == 2)
		},
	},
	domain.FeatureAdults: {
		feature:   domain.FeatureAdults,
		fineCount: 2,
		fine: func(p *profile, _ *thresholds) int {
			return p.adults - 1
		},
		coarsen: func(fine, _ int) int { return fine },
	},
	domain.FeatureChildren: {
		feature:   domain.FeatureChildren,
		fineCount: 27,
		fine: func(p *profile, _ *thresholds) int {
			return min(p.children[0], 2) + 3*min(p.children[1], 2) + 9*min(p.children[2], 2)
		},
		coarsen: func(fine, regime int) int {
			total := fine%3 + fine/3%3 + fine/9
			switch regime {
			case 0:
				return fine
			case 1:
				return min(total, 2)
			case 2, 3:
				return boolBucket(total > 0)
			default:
				return 0
			}
		},
	},
	domain.FeatureEmployment: {
		feature:   domain.FeatureEmployment,
		fineCount: 5,
		fine: func(p *profile, t *thresholds) int {
			fullTime, partTime := 0, 0
			for i := 0; i < p.adults; i++ {
				switch {
				case p.hours[i] >= t.fullTimeHours:
					fullTime++
				case p.hours[i] > 0:
					partTime++
				}
			}
			switch {
			case fullTime == 2:
				return 4
			case fullTime == 1 && partTime == 1:
				return 3
			case fullTime == 1:
				return 2
			case partTime > 0:
				return 1
			default:
				return 0
			}
		},
		coarsen: func(fine, regime int) int {
			switch regime {
			case 0, 1:
				return fine
			case 2:
				return min(fine, 2)
			default:
				return boolBucket(fine > 0)
			}
		},
	},
	domain.FeatureDisability: {
		feature:   domain.FeatureDisability,
		fineCount: 4,
		fine: func(p *profile, _ *thresholds) int {
			disabled := 0
			for i := 0; i < p.adults; i++ {
				if p.disabled[i] {
					disabled++
				}
			}
			switch {
			case disabled > 0:
				return 1 + disabled
			case p.carer:
				return 1
			default:
				return 0
			}
		},
		coarsen: func(fine, regime int) int {
			switch regime {
			case 0:
				return fine
			case 1:
				return min(fine, 2)
			case 2:
				return boolBucket(fine >= 2)
			default:
				return 0
			}
		},
	},
	domain.FeatureIncome: {
		feature:   domain.FeatureIncome,
		fineCount: 3,
		fine: func(p *profile, t *thresholds) int {
			switch {
			case p.income < t.bandLow:
				return 0
			case p.income < t.bandHigh:
				return 1
			default:
				return 2
			}
		},
		coarsen: func(fine, regime int) int {
			switch regime {
			case 0, 1:
				return fine
			case 2, 3:
				return boolBucket(fine > 0)
			default:
				return 0
			}
		},
	},
	domain.FeatureSecondEarner: {
		feature:   domain.FeatureSecondEarner,
		fineCount: 2,
		fine: func(p *profile, t *thresholds) int {
			return boolBucket(p.second > t.substantial)
		},
		coarsen: func(fine, regime int) int {
			if regime <= 1 {
				return fine
			}
			return 0
		},
	},
	domain.FeatureChildcare: {
		feature:   domain.FeatureChildcare,
		fineCount: 2,
		fine: func(p *profile, t *thresholds) int {
			return boolBucket(p.childcare > t.substantial)
		},
		coarsen: func(fine, regime int) int {
			if regime <= 2 {
				return fine
			}
			return 0
		},
	},
}

func boolBucket(b bool) int {
	if b {
		return 1
	}
	return 0
}
