package domain

// NumRegimes is the number of match regimes, from finest (0) to coarsest.
const NumRegimes = 5

// MatchFeature enumerates the discrete household characteristics used for
// coarse-exact matching. Declaration order defines the positional radix of
// each feature in a regime key, so it must not be reordered.
type MatchFeature int

const (
	FeatureAge MatchFeature = iota
	FeatureAdults
	FeatureChildren
	FeatureEmployment
	FeatureDisability
	FeatureIncome
	FeatureSecondEarner
	FeatureChildcare
	FeatureFinal // sentinel: its radix is the key-space size
)

// MatchFeatures lists the real features in radix order (FeatureFinal excluded).
var MatchFeatures = []MatchFeature{
	FeatureAge,
	FeatureAdults,
	FeatureChildren,
	FeatureEmployment,
	FeatureDisability,
	FeatureIncome,
	FeatureSecondEarner,
	FeatureChildcare,
}

func (f MatchFeature) String() string {
	switch f {
	case FeatureAge:
		return "age"
	case FeatureAdults:
		return "adults"
	case FeatureChildren:
		return "children"
	case FeatureEmployment:
		return "employment"
	case FeatureDisability:
		return "disability"
	case FeatureIncome:
		return "income"
	case FeatureSecondEarner:
		return "second_earner"
	case FeatureChildcare:
		return "childcare"
	case FeatureFinal:
		return "final"
	default:
		return "unknown"
	}
}

// RegimeKeys holds one integer key per match regime.
type RegimeKeys [NumRegimes]int
