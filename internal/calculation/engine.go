package calculation

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rgehrsitz/donormatch/internal/distance"
	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/donor"
	"github.com/rgehrsitz/donormatch/internal/matching"
	"github.com/rgehrsitz/donormatch/internal/timeseries"
	"github.com/shopspring/decimal"
)

// Engine imputes disposable income and benefits for simulated households from
// a donor population. After construction it is immutable apart from its
// price series and search cache, both of which guard themselves, so one
// Engine may serve concurrent Impute calls.
type Engine struct {
	params   *domain.EngineParameters
	schedule domain.PolicySchedule
	encoder  *matching.Encoder
	index    *donor.Index
	metrics  map[featureSet]*distance.Mahalanobis
	cache    *lru.Cache[searchKey, *searchResult]

	substantial float64

	observer        MatchObserver
	requireCoverage bool
	Logger          Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver installs a hook for degraded matches.
func WithObserver(o MatchObserver) Option {
	return func(e *Engine) { e.observer = o }
}

// WithLogger installs a logger.
func WithLogger(l Logger) Option {
	return func(e *Engine) { e.SetLogger(l) }
}

// NewEngine validates the population, computes donor keys with a fresh
// encoder, builds the donor index and returns a ready engine. pop is not
// modified: keys already stored on its snapshots are ignored, and the index
// entries carry the computed ones. pop may be shared by several engines.
// To index stored keys instead, use donor.BuildIndex with nil keys and
// NewEngineFromIndex.
func NewEngine(params *domain.EngineParameters, pop *domain.Population, opts ...Option) (*Engine, error) {
	if params == nil {
		return nil, &domain.ConfigError{Operation: "new_engine", Message: "parameters are required"}
	}
	if err := donor.Validate(pop, params); err != nil {
		return nil, err
	}
	prices, err := timeseries.NewSeries("cpi", params.Inflation)
	if err != nil {
		return nil, err
	}
	enc, err := matching.NewEncoder(params, prices)
	if err != nil {
		return nil, err
	}
	keys, err := donor.ComputeKeys(pop, enc)
	if err != nil {
		return nil, err
	}
	idx, err := donor.BuildIndex(pop, enc, keys)
	if err != nil {
		return nil, err
	}
	return NewEngineFromIndex(params, enc, idx, opts...)
}

// NewEngineFromIndex assembles an engine around a prebuilt index. The index
// must have been built with a radix table equal to the encoder's.
func NewEngineFromIndex(params *domain.EngineParameters, enc *matching.Encoder, idx *donor.Index, opts ...Option) (*Engine, error) {
	if !idx.Radix().Equal(enc.Radix()) {
		return nil, &domain.ConfigError{Operation: "new_engine", Message: "donor index and encoder use different radix tables"}
	}
	if err := checkSearchParameters(params.Search); err != nil {
		return nil, err
	}

	schedule := params.PolicySchedule.Sorted()
	if len(schedule) == 0 {
		return nil, &domain.ConfigError{Operation: "new_engine", Message: "policy schedule is empty"}
	}
	for _, entry := range schedule {
		if !idx.HasSystemYear(entry.SystemYear) {
			return nil, &domain.ConfigError{
				Operation: "new_engine",
				Message:   fmt.Sprintf("no donor snapshots for scheduled system year %d (entry %s)", entry.SystemYear, entry),
			}
		}
	}
	if !idx.HasSystemYear(params.BasePriceYear) {
		return nil, &domain.ConfigError{
			Operation: "new_engine",
			Message:   fmt.Sprintf("no donor snapshots for base price year %d", params.BasePriceYear),
		}
	}

	substantial, _ := params.SubstantialIncome.Float64()
	e := &Engine{
		params:      params,
		schedule:    schedule,
		encoder:     enc,
		index:       idx,
		substantial: substantial,
		Logger:      NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}

	metrics, err := buildMetrics(idx.Entries(params.BasePriceYear), substantial)
	if err != nil {
		return nil, err
	}
	e.metrics = metrics

	if e.requireCoverage {
		if err := e.CheckCoverage(); err != nil {
			return nil, err
		}
	}

	if params.Search.CacheSize > 0 {
		cache, err := lru.New[searchKey, *searchResult](params.Search.CacheSize)
		if err != nil {
			return nil, &domain.ConfigError{Operation: "new_engine", Message: "search cache", Cause: err}
		}
		e.cache = cache
	}

	e.Logger.Infof("donor engine ready: %d snapshots, system years %v, base price year %d",
		idx.Len(), idx.SystemYears(), params.BasePriceYear)
	return e, nil
}

func checkSearchParameters(sp domain.SearchParameters) error {
	fail := func(msg string) error {
		return &domain.ConfigError{Operation: "search_parameters", Message: msg}
	}
	switch {
	case sp.MinPool < 1 || sp.MinPoolSecondary < 1:
		return fail("minimum pool sizes must be positive")
	case sp.RankBound < 0 || sp.SecondaryRankBound < 0:
		return fail("rank bounds cannot be negative")
	case sp.PreferredBands < 1:
		return fail("preferred bands must be positive")
	case sp.DistanceFloor <= 0:
		return fail("distance floor must be positive")
	case sp.CacheSize < 0:
		return fail("cache size cannot be negative")
	}
	return nil
}

// SetLogger sets the logger; nil installs NopLogger.
func (e *Engine) SetLogger(l Logger) {
	if l == nil {
		e.Logger = NopLogger{}
		return
	}
	e.Logger = l
}

// Encoder returns the encoder shared by the index and imputation targets.
func (e *Engine) Encoder() *matching.Encoder { return e.encoder }

// Index returns the donor index.
func (e *Engine) Index() *donor.Index { return e.index }

// Parameters returns the engine parameters.
func (e *Engine) Parameters() *domain.EngineParameters { return e.params }

// SystemYearFor resolves the donor system year used for a simulated year.
func (e *Engine) SystemYearFor(simulatedYear int) (int, error) {
	return e.schedule.SystemYearFor(simulatedYear)
}

// Impute matches h to its donors and returns the imputed outcome.
func (e *Engine) Impute(h *domain.Household, draw domain.Draw) (*domain.Imputation, error) {
	keys, err := e.encoder.Keys(h, draw)
	if err != nil {
		return nil, err
	}
	systemYear, err := e.schedule.SystemYearFor(h.SimulatedYear)
	if err != nil {
		return nil, err
	}

	res, err := e.searchCached(keys, systemYear)
	if err != nil {
		return nil, err
	}
	e.observe(h, keys, res)

	sel, err := e.selectOutcome(res, keys)
	if err != nil {
		return nil, err
	}

	e.Logger.Debugf("imputed year %d income %.2f: disposable %.2f benefits %.2f quality %s donor %q",
		h.SimulatedYear, keys.OriginalIncomePerWeek, sel.disposable, sel.benefits, res.quality, sel.donorID)

	return &domain.Imputation{
		DisposableIncomePerWeek: decimal.NewFromFloat(sel.disposable),
		BenefitsPerWeek:         decimal.NewFromFloat(sel.benefits),
		GrossIncomePerWeek:      decimal.NewFromFloat(keys.OriginalIncomePerWeek),
		DonorID:                 sel.donorID,
		MatchQuality:            res.quality,
		SystemYear:              systemYear,
		Regime:                  res.regime,
		PoolSize:                res.poolSize,
		PreferredCount:          len(res.preferred),
		LowIncome:               keys.LowIncome,
		Averaged:                draw.IsAverage(),
	}, nil
}
