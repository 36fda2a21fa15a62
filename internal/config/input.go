package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// InputParser handles parsing of engine parameters, donor populations and
// household files.
type InputParser struct{}

// NewInputParser creates a new input parser
func NewInputParser() *InputParser {
	return &InputParser{}
}

// LoadParameters loads engine parameters from a YAML file. Fields absent from
// the file keep their DefaultParameters values; an empty filename returns the
// defaults.
func (ip *InputParser) LoadParameters(filename string) (*domain.EngineParameters, error) {
	params := domain.DefaultParameters()
	if filename == "" {
		return params, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, params); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ip.ValidateParameters(params); err != nil {
		return nil, fmt.Errorf("parameters validation failed: %w", err)
	}
	return params, nil
}

// ValidateParameters checks the engine constants are usable.
func (ip *InputParser) ValidateParameters(params *domain.EngineParameters) error {
	if params == nil {
		return configError("parameters are required")
	}
	if params.ReferenceYear < 1900 || params.ReferenceYear > 2200 {
		return configError("reference year %d out of range", params.ReferenceYear)
	}
	if params.BasePriceYear < 1900 || params.BasePriceYear > 2200 {
		return configError("base price year %d out of range", params.BasePriceYear)
	}
	if params.FullTimeHours <= 0 || params.FullTimeHours > 168 {
		return configError("full time hours must be in (0,168], got %v", params.FullTimeHours)
	}
	if params.MidAge < 16 || params.MidAge > 120 {
		return configError("mid age must be in [16,120], got %d", params.MidAge)
	}

	if err := ip.validateThresholds(params); err != nil {
		return err
	}
	if err := ip.validateSchedules(params); err != nil {
		return err
	}
	if err := ip.validateInflation(&params.Inflation); err != nil {
		return fmt.Errorf("inflation: %w", err)
	}
	if err := ip.validateSearch(&params.Search); err != nil {
		return fmt.Errorf("search: %w", err)
	}

	d := params.Diagnostics
	if d.DegradedRegime < 0 || d.DegradedRegime > domain.NumRegimes {
		return configError("degraded regime must be in [0,%d], got %d", domain.NumRegimes, d.DegradedRegime)
	}
	if d.MinPreferred < 0 {
		return configError("minimum preferred count cannot be negative")
	}
	return nil
}

func (ip *InputParser) validateThresholds(params *domain.EngineParameters) error {
	for name, v := range map[string]decimal.Decimal{
		"low income threshold": params.LowIncomeThreshold,
		"income band low":      params.IncomeBandLow,
		"income band high":     params.IncomeBandHigh,
		"substantial income":   params.SubstantialIncome,
	} {
		if v.IsNegative() {
			return configError("%s cannot be negative", name)
		}
	}
	if params.IncomeBandLow.GreaterThan(params.IncomeBandHigh) {
		return configError("income band low %s exceeds income band high %s",
			params.IncomeBandLow.String(), params.IncomeBandHigh.String())
	}
	return nil
}

func (ip *InputParser) validateSchedules(params *domain.EngineParameters) error {
	if len(params.StatePensionAge) == 0 {
		return configError("state pension age schedule is required")
	}
	for i, step := range params.StatePensionAge {
		if step.Age < 16 || step.Age > 120 {
			return configError("state pension age step %d has age %d", i, step.Age)
		}
	}

	if len(params.PolicySchedule) == 0 {
		return configError("policy schedule is required")
	}
	seen := make(map[int]bool, len(params.PolicySchedule))
	targetsBase := false
	for _, entry := range params.PolicySchedule {
		if seen[entry.FromYear] {
			return configError("policy schedule has two entries from %d", entry.FromYear)
		}
		seen[entry.FromYear] = true
		if entry.SystemYear == params.BasePriceYear {
			targetsBase = true
		}
	}
	if !targetsBase {
		return configError("no policy schedule entry targets base price year %d", params.BasePriceYear)
	}
	return nil
}

func (ip *InputParser) validateInflation(cfg *domain.IndexSeriesConfig) error {
	if len(cfg.Values) == 0 {
		return configError("at least one index value is required")
	}
	for year, v := range cfg.Values {
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return configError("index value for %d must be positive, got %v", year, v)
		}
	}
	if cfg.ProjectedGrowth <= -1 || math.IsNaN(cfg.ProjectedGrowth) {
		return configError("projected growth must exceed -1, got %v", cfg.ProjectedGrowth)
	}
	return nil
}

func (ip *InputParser) validateSearch(sp *domain.SearchParameters) error {
	switch {
	case sp.MinPool < 1:
		return configError("min pool must be positive")
	case sp.MinPoolSecondary < 1:
		return configError("min pool secondary must be positive")
	case sp.RankBound < 0 || sp.SecondaryRankBound < 0:
		return configError("rank bounds cannot be negative")
	case sp.PreferredBands < 1:
		return configError("preferred bands must be positive")
	case sp.DistanceFloor <= 0:
		return configError("distance floor must be positive")
	case sp.CacheSize < 0:
		return configError("cache size cannot be negative")
	}
	return nil
}

// LoadPopulation loads a donor population from a YAML file. Structural checks
// against the engine parameters happen when the engine is built.
func (ip *InputParser) LoadPopulation(filename string) (*domain.Population, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var pop domain.Population
	if err := yaml.Unmarshal(data, &pop); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(pop.TaxUnits) == 0 {
		return nil, configError("donor file %s has no tax units", filename)
	}
	for i, unit := range pop.TaxUnits {
		if unit == nil {
			return nil, configError("tax unit %d is empty", i)
		}
		if len(unit.Persons) == 0 {
			return nil, configError("tax unit %s has no persons", unit.ID)
		}
	}
	return &pop, nil
}

// DrawSpec is a draw as written in a households file: a fraction in [0,1)
// or the word "average". An absent draw is left for the caller to fill.
type DrawSpec struct {
	Set  bool
	Draw domain.Draw
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *DrawSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: draw must be a number or \"average\"", node.Line)
	}
	value := strings.TrimSpace(node.Value)
	if strings.EqualFold(value, "average") {
		*d = DrawSpec{Set: true, Draw: domain.AverageDraw()}
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("line %d: invalid draw %q: %w", node.Line, value, err)
	}
	*d = DrawSpec{Set: true, Draw: domain.SingleDraw(f)}
	return d.Draw.Validate()
}

// MarshalYAML implements yaml.Marshaler.
func (d DrawSpec) MarshalYAML() (any, error) {
	if !d.Set {
		return nil, nil
	}
	if d.Draw.IsAverage() {
		return "average", nil
	}
	return d.Draw.Fraction(), nil
}

// HouseholdRecord is one entry of a households file.
type HouseholdRecord struct {
	ID   string   `yaml:"id"`
	Draw DrawSpec `yaml:"draw,omitempty"`

	domain.Household `yaml:",inline"`
}

// HouseholdFile is the top-level layout of a households file.
type HouseholdFile struct {
	Households []HouseholdRecord `yaml:"households"`
}

// LoadHouseholds loads simulated households to impute. A record without a
// price year takes its simulated year.
func (ip *InputParser) LoadHouseholds(filename string) ([]HouseholdRecord, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	var file HouseholdFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Households) == 0 {
		return nil, configError("households file %s is empty", filename)
	}
	for i := range file.Households {
		rec := &file.Households[i]
		if rec.ID == "" {
			rec.ID = fmt.Sprintf("household-%d", i+1)
		}
		if rec.PriceYear == 0 {
			rec.PriceYear = rec.SimulatedYear
		}
	}
	return file.Households, nil
}

func configError(format string, args ...any) error {
	return &domain.ConfigError{Operation: "config", Message: fmt.Sprintf(format, args...)}
}
