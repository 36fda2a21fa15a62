package matching

import (
	"fmt"

	"github.com/rgehrsitz/donormatch/internal/domain"
)

// RadixTable holds, per regime, the bucket count of every feature and the
// positional radix that places it in the regime key. The radix of feature i
// is the product of the bucket counts of features 0..i-1, so every key
// decodes to exactly one bucket combination.
type RadixTable struct {
	counts [domain.FeatureFinal][domain.NumRegimes]int
	radix  [domain.FeatureFinal + 1][domain.NumRegimes]int
}

func buildRadixTable() *RadixTable {
	rt := &RadixTable{}
	for f, ft := range featureTable {
		for r := 0; r < domain.NumRegimes; r++ {
			count := 0
			for fine := 0; fine < ft.fineCount; fine++ {
				count = max(count, ft.coarsen(fine, r)+1)
			}
			rt.counts[f][r] = count
		}
	}
	for r := 0; r < domain.NumRegimes; r++ {
		rt.radix[0][r] = 1
		for f := 1; f <= int(domain.FeatureFinal); f++ {
			rt.radix[f][r] = rt.radix[f-1][r] * rt.counts[f-1][r]
		}
	}
	return rt
}

// Count returns the number of buckets feature f has at regime r.
func (rt *RadixTable) Count(f domain.MatchFeature, regime int) int {
	return rt.counts[f][regime]
}

// Radix returns the positional multiplier of feature f at regime r.
func (rt *RadixTable) Radix(f domain.MatchFeature, regime int) int {
	return rt.radix[f][regime]
}

// Size returns the key-space size of regime r.
func (rt *RadixTable) Size(regime int) int {
	return rt.radix[domain.FeatureFinal][regime]
}

// Active reports whether feature f still discriminates at regime r.
func (rt *RadixTable) Active(f domain.MatchFeature, regime int) bool {
	return rt.counts[f][regime] > 1
}

// Compose turns per-feature buckets into a regime key.
func (rt *RadixTable) Compose(buckets [domain.FeatureFinal]int, regime int) (int, error) {
	key := 0
	for f := range buckets {
		b := buckets[f]
		if b < 0 || b >= rt.counts[f][regime] {
			return 0, &domain.ConfigError{
				Operation: "radix",
				Message:   fmt.Sprintf("bucket %d out of range for %s at regime %d", b, domain.MatchFeature(f), regime),
			}
		}
		key += b * rt.radix[f][regime]
	}
	return key, nil
}

// Decode splits a regime key back into per-feature buckets.
func (rt *RadixTable) Decode(key, regime int) ([domain.FeatureFinal]int, error) {
	var buckets [domain.FeatureFinal]int
	if key < 0 || key >= rt.Size(regime) {
		return buckets, fmt.Errorf("key %d outside regime %d key space of %d", key, regime, rt.Size(regime))
	}
	for f := range buckets {
		buckets[f] = key / rt.radix[f][regime] % rt.counts[f][regime]
	}
	return buckets, nil
}

// Equal reports whether two tables encode identically.
func (rt *RadixTable) Equal(other *RadixTable) bool {
	if rt == other {
		return true
	}
	if rt == nil || other == nil {
		return false
	}
	return rt.counts == other.counts && rt.radix == other.radix
}
