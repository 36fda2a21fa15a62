package matching

import (
	"math/rand"
	"testing"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncoder(t *testing.T) *Encoder {
	t.Helper()
	params := domain.DefaultParameters()
	prices, err := timeseries.NewSeries("cpi", params.Inflation)
	require.NoError(t, err)
	enc, err := NewEncoder(params, prices)
	require.NoError(t, err)
	return enc
}

func baseHousehold() domain.Household {
	return domain.Household{
		SimulatedYear:         2015,
		PriceYear:             2015,
		ElderAge:              38,
		Adults:                2,
		Children5To10:         1,
		HoursWorked:           [2]float64{40, 16},
		OriginalIncomePerWeek: 650,
		SecondIncomePerWeek:   180,
		ChildcarePerWeek:      60,
	}
}

func randomHousehold(rng *rand.Rand) domain.Household {
	h := domain.Household{
		SimulatedYear:  2010 + rng.Intn(20),
		PriceYear:      2010 + rng.Intn(20),
		ElderAge:       18 + rng.Intn(80),
		Adults:         1 + rng.Intn(2),
		ChildrenUnder5: rng.Intn(3),
		Children5To10:  rng.Intn(4),
		Children11To17: rng.Intn(3),
		ProvidesCare:   rng.Intn(5) == 0,
	}
	h.HoursWorked[0] = []float64{0, 12, 35}[rng.Intn(3)]
	h.Disabled[0] = rng.Intn(6) == 0
	h.OriginalIncomePerWeek = rng.Float64()*2000 - 100
	if h.Adults == 2 {
		h.HoursWorked[1] = []float64{0, 20, 45}[rng.Intn(3)]
		h.Disabled[1] = rng.Intn(6) == 0
		if rng.Intn(2) == 0 {
			h.SecondIncomePerWeek = rng.Float64() * 500
		}
	}
	if rng.Intn(3) == 0 {
		h.ChildcarePerWeek = rng.Float64() * 200
	}
	return h
}

func TestRadixTable_CollisionFree(t *testing.T) {
	rt := newTestEncoder(t).Radix()

	for r := 0; r < domain.NumRegimes; r++ {
		size := rt.Size(r)
		require.Positive(t, size)
		seen := make(map[int]bool, size)
		var walk func(f int, buckets [domain.FeatureFinal]int)
		walk = func(f int, buckets [domain.FeatureFinal]int) {
			if f == int(domain.FeatureFinal) {
				key, err := rt.Compose(buckets, r)
				require.NoError(t, err)
				require.False(t, seen[key], "regime %d key %d produced twice", r, key)
				seen[key] = true

				decoded, err := rt.Decode(key, r)
				require.NoError(t, err)
				require.Equal(t, buckets, decoded)
				return
			}
			for b := 0; b < rt.Count(domain.MatchFeature(f), r); b++ {
				buckets[f] = b
				walk(f+1, buckets)
			}
		}
		walk(0, [domain.FeatureFinal]int{})
		assert.Len(t, seen, size, "regime %d key space fully used", r)
	}
}

func TestRadixTable_RegimesCoarsen(t *testing.T) {
	rt := newTestEncoder(t).Radix()
	for r := 1; r < domain.NumRegimes; r++ {
		assert.Less(t, rt.Size(r), rt.Size(r-1), "regime %d must be coarser", r)
	}

	for f, ft := range featureTable {
		for r := 0; r+1 < domain.NumRegimes; r++ {
			assert.LessOrEqual(t, rt.Count(domain.MatchFeature(f), r+1), rt.Count(domain.MatchFeature(f), r))

			// coarsen(., r+1) must be a function of coarsen(., r)
			next := make(map[int]int)
			for fine := 0; fine < ft.fineCount; fine++ {
				b, nb := ft.coarsen(fine, r), ft.coarsen(fine, r+1)
				if prev, ok := next[b]; ok {
					assert.Equal(t, prev, nb, "%s regime %d bucket %d splits at regime %d", ft.feature, r, b, r+1)
				}
				next[b] = nb
			}
		}
	}
}

func TestRadixTable_SharedAndEqual(t *testing.T) {
	enc := newTestEncoder(t)
	assert.Same(t, enc.Radix(), enc.Radix(), "radix table is built once")
	assert.True(t, enc.Radix().Equal(newTestEncoder(t).Radix()))
	assert.False(t, enc.Radix().Equal(nil))
}

func TestRadixTable_Decode_OutOfRange(t *testing.T) {
	rt := newTestEncoder(t).Radix()
	_, err := rt.Decode(rt.Size(0), 0)
	assert.Error(t, err)
	_, err = rt.Decode(-1, 0)
	assert.Error(t, err)
}

func TestEncoder_KeysDeterministic(t *testing.T) {
	enc := newTestEncoder(t)
	h := baseHousehold()

	first, err := enc.Keys(&h, domain.SingleDraw(0.5))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := enc.Keys(&h, domain.SingleDraw(0.5))
		require.NoError(t, err)
		assert.Equal(t, first.Keys, again.Keys)
	}

	other := newTestEncoder(t)
	fresh, err := other.Keys(&h, domain.AverageDraw())
	require.NoError(t, err)
	assert.Equal(t, first.Keys, fresh.Keys, "independent encoders agree")
}

func TestEncoder_CoarserRegimesMerge(t *testing.T) {
	enc := newTestEncoder(t)
	rng := rand.New(rand.NewSource(42))

	households := make([]*domain.DonorKeys, 400)
	for i := range households {
		h := randomHousehold(rng)
		keys, err := enc.Keys(&h, domain.AverageDraw())
		require.NoError(t, err)
		households[i] = keys
	}

	for r := 0; r+1 < domain.NumRegimes; r++ {
		for i := range households {
			for j := i + 1; j < len(households); j++ {
				if households[i].Keys[r] == households[j].Keys[r] {
					assert.Equal(t, households[i].Keys[r+1], households[j].Keys[r+1])
				}
			}
		}
	}
}

func TestEncoder_Flags(t *testing.T) {
	enc := newTestEncoder(t)

	h := baseHousehold()
	keys, err := enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	assert.False(t, keys.LowIncome)
	assert.True(t, keys.SubstantialIncome)
	assert.True(t, keys.HasSecondEarner)
	assert.True(t, keys.HasChildcare)
	assert.Equal(t, 650.0, keys.NormalizedIncome)

	h.OriginalIncomePerWeek = 0
	h.SecondIncomePerWeek = 0
	h.ChildcarePerWeek = 0
	keys, err = enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	assert.True(t, keys.LowIncome)
	assert.False(t, keys.SubstantialIncome)
	assert.False(t, keys.HasSecondEarner)
	assert.False(t, keys.HasChildcare)

	h.OriginalIncomePerWeek = -250
	keys, err = enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	assert.True(t, keys.LowIncome, "negative income is low income")
	assert.True(t, keys.SubstantialIncome)
}

func TestEncoder_LowIncomeUsesReferencePrices(t *testing.T) {
	enc := newTestEncoder(t)

	// 160/week in 2023 prices is below 150/week in 2015 prices
	h := baseHousehold()
	h.PriceYear = 2023
	h.SimulatedYear = 2023
	h.OriginalIncomePerWeek = 160
	keys, err := enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	assert.True(t, keys.LowIncome)
	assert.InDelta(t, 160*100.0/130.5, keys.NormalizedIncome, 1e-9)

	h.PriceYear = 2015
	keys, err = enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	assert.False(t, keys.LowIncome)
}

func TestEncoder_StatePensionAgeFollowsSchedule(t *testing.T) {
	enc := newTestEncoder(t)
	rt := enc.Radix()

	h := baseHousehold()
	h.ElderAge = 66
	h.SimulatedYear = 2019
	before, err := enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)
	h.SimulatedYear = 2030
	after, err := enc.Keys(&h, domain.SingleDraw(0))
	require.NoError(t, err)

	b, err := rt.Decode(before.Keys[0], 0)
	require.NoError(t, err)
	a, err := rt.Decode(after.Keys[0], 0)
	require.NoError(t, err)
	assert.Equal(t, 2, b[domain.FeatureAge], "66 is above pension age 65")
	assert.Equal(t, 1, a[domain.FeatureAge], "66 is below pension age 67")
}

func TestEncoder_ActiveFeatures(t *testing.T) {
	rt := newTestEncoder(t).Radix()
	assert.True(t, rt.Active(domain.FeatureSecondEarner, 0))
	assert.False(t, rt.Active(domain.FeatureSecondEarner, 2))
	assert.True(t, rt.Active(domain.FeatureChildcare, 2))
	assert.False(t, rt.Active(domain.FeatureChildcare, 3))
	assert.True(t, rt.Active(domain.FeatureEmployment, domain.NumRegimes-1))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(h *domain.Household)
	}{
		{"negative age", func(h *domain.Household) { h.ElderAge = -3 }},
		{"child as elder", func(h *domain.Household) { h.ElderAge = 12 }},
		{"three adults", func(h *domain.Household) { h.Adults = 3 }},
		{"negative children", func(h *domain.Household) { h.ChildrenUnder5 = -1 }},
		{"hours overflow", func(h *domain.Household) { h.HoursWorked[0] = 200 }},
		{"income too high", func(h *domain.Household) { h.OriginalIncomePerWeek = 5e6 }},
		{"negative childcare", func(h *domain.Household) { h.ChildcarePerWeek = -1 }},
		{"year out of range", func(h *domain.Household) { h.SimulatedYear = 1200 }},
		{"single adult with disabled partner", func(h *domain.Household) {
			h.Adults = 1
			h.HoursWorked[1] = 0
			h.SecondIncomePerWeek = 0
			h.Disabled[1] = true
		}},
		{"single adult with second hours", func(h *domain.Household) {
			h.Adults = 1
			h.SecondIncomePerWeek = 0
		}},
	}

	enc := newTestEncoder(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := baseHousehold()
			tt.modify(&h)
			_, err := enc.Keys(&h, domain.SingleDraw(0))
			var contractErr *domain.ContractError
			assert.ErrorAs(t, err, &contractErr)
		})
	}
}

func TestEncoder_RejectsBadDraw(t *testing.T) {
	enc := newTestEncoder(t)
	h := baseHousehold()
	for _, f := range []float64{-0.1, 1, 1.5} {
		_, err := enc.Keys(&h, domain.SingleDraw(f))
		assert.Error(t, err, "fraction %v", f)
	}
}
