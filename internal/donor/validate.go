package donor

import (
	"fmt"
	"math"

	"github.com/rgehrsitz/donormatch/internal/domain"
)

// Validate checks the population and policy schedule are structurally
// complete: unique identifiers, usable weights, a schedule entry targeting
// the base price year, and snapshots for every scheduled system year.
func Validate(pop *domain.Population, params *domain.EngineParameters) error {
	fail := func(format string, args ...any) error {
		return &domain.ConfigError{Operation: "validate_population", Message: fmt.Sprintf(format, args...)}
	}
	if pop == nil || len(pop.TaxUnits) == 0 {
		return fail("donor population is empty")
	}

	ids := make(map[string]bool, len(pop.TaxUnits))
	years := make(map[int]bool)
	for i, unit := range pop.TaxUnits {
		if unit == nil {
			return fail("tax unit %d is nil", i)
		}
		if unit.ID == "" {
			return fail("tax unit %d has no id", i)
		}
		if ids[unit.ID] {
			return fail("duplicate tax unit id %s", unit.ID)
		}
		ids[unit.ID] = true
		if unit.Weight <= 0 || math.IsNaN(unit.Weight) || math.IsInf(unit.Weight, 0) {
			return fail("tax unit %s has invalid weight %v", unit.ID, unit.Weight)
		}
		if len(unit.Snapshots) == 0 {
			return fail("tax unit %s has no snapshots", unit.ID)
		}
		for year, snap := range unit.Snapshots {
			if snap == nil {
				return fail("tax unit %s has a nil snapshot for system year %d", unit.ID, year)
			}
			years[year] = true
		}
	}

	if len(params.PolicySchedule) == 0 {
		return fail("policy schedule is empty")
	}
	targetsBase := false
	for _, entry := range params.PolicySchedule {
		if entry.SystemYear == params.BasePriceYear {
			targetsBase = true
		}
		if !years[entry.SystemYear] {
			return fail("no donor snapshots for scheduled system year %d", entry.SystemYear)
		}
	}
	if !targetsBase {
		return fail("no policy schedule entry targets base price year %d", params.BasePriceYear)
	}
	return nil
}
