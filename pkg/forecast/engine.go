package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/trialforge/supplyline/pkg/domain/entities"
)

// EngineVersion tags forecast outputs. Bump it whenever a change alters the
// numbers produced for an existing payload, so cached runs are not reused
// across semantic changes.
const EngineVersion = "2.0.0"

const (
	defaultHorizonBuckets = 26
	maxHorizonBuckets     = 520
	defaultVialUnitCap    = 25
	defaultWeightKgMean   = 80
)

// Config tunes engine limits that are not part of the payload
type Config struct {
	// VialUnitCap bounds the vial-optimization search per dispense event
	VialUnitCap int
}

// Engine turns a canonical payload into deterministic demand time series.
// It is stateless and safe for concurrent use.
type Engine struct {
	cfg Config
	log *zap.Logger
}

// NewEngine builds an engine with default limits
func NewEngine(log *zap.Logger) *Engine {
	return NewEngineWithConfig(Config{}, log)
}

// NewEngineWithConfig builds an engine with explicit limits
func NewEngineWithConfig(cfg Config, log *zap.Logger) *Engine {
	if cfg.VialUnitCap <= 0 {
		cfg.VialUnitCap = defaultVialUnitCap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{cfg: cfg, log: log}
}

// grid is the resolved time axis every stage shares
type grid struct {
	start    time.Time
	bucket   entities.TimeBucket
	stepDays int
	horizon  int
	dates    []string
}

func resolveGrid(p *entities.CanonicalPayload) (grid, error) {
	startStr := p.Assumptions.StartDate
	if startStr == "" {
		startStr = p.Scenario.StartDate
	}
	if startStr == "" {
		return grid{}, fmt.Errorf("payload carries no start date")
	}
	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return grid{}, fmt.Errorf("parse start date %q: %w", startStr, err)
	}

	bucket := p.Assumptions.ForecastBucket
	if bucket == "" {
		bucket = p.Scenario.ForecastBucket
	}
	if bucket == "" {
		bucket = entities.BucketWeek
	}
	if !bucket.Valid() {
		return grid{}, fmt.Errorf("unknown forecast bucket %q", bucket)
	}

	horizon := p.Scenario.HorizonBuckets
	if horizon <= 0 {
		horizon = p.Assumptions.HorizonBuckets
	}
	if horizon <= 0 {
		horizon = defaultHorizonBuckets
	}
	if horizon > maxHorizonBuckets {
		horizon = maxHorizonBuckets
	}

	g := grid{
		start:    start,
		bucket:   bucket,
		stepDays: bucket.Days(),
		horizon:  horizon,
		dates:    make([]string, horizon),
	}
	for i := 0; i < horizon; i++ {
		g.dates[i] = start.AddDate(0, 0, i*g.stepDays).Format("2006-01-02")
	}
	return g, nil
}

// bucketOf maps a day offset from enrollment to a grid offset in buckets
func (g grid) bucketOf(dayOffset int) int {
	return int(math.Round(float64(dayOffset) / float64(g.stepDays)))
}

// Run executes the full forecast pipeline: enrollment, visit projection and
// per-SKU demand. The same payload always yields the same outputs.
func (e *Engine) Run(ctx context.Context, p *entities.CanonicalPayload) (*entities.ForecastOutputs, error) {
	started := time.Now()
	g, err := resolveGrid(p)
	if err != nil {
		return nil, fmt.Errorf("resolve grid: %w", err)
	}
	idx := entities.BuildIndex(p)

	enrolled := enrollmentSeries(p, g)
	groups := splitGroups(p, g, enrolled)
	occs := expandVisits(p, g)

	out := &entities.ForecastOutputs{
		EngineVersion:      EngineVersion,
		BucketDates:        g.dates,
		EnrolledPerBucket:  enrolled,
		CumulativeEnrolled: make([]float64, g.horizon),
		DemandPerBucket:    make(map[entities.SKU][]float64),
		VisitsPerBucket:    make([]float64, g.horizon),
	}
	var sum float64
	for t, n := range enrolled {
		sum += n
		out.CumulativeEnrolled[t] = sum
	}

	projectVisits(out, g, enrolled, occs)
	if len(groups.byCohort) > 0 {
		out.EnrollmentByCohort = groups.byCohort
	}

	if err := e.accumulateDemand(ctx, p, idx, g, groups, occs, out); err != nil {
		return nil, err
	}

	e.log.Info("forecast complete",
		zap.String("engine_version", EngineVersion),
		zap.Int("horizon_buckets", g.horizon),
		zap.Int("skus", len(out.DemandPerBucket)),
		zap.Duration("elapsed", time.Since(started)))
	return out, nil
}

// accumulateDemand fills DemandPerBucket. Simple payloads get one synthetic
// kit per enrollment; rich payloads walk every group, dosing occurrence and
// dispense rule.
func (e *Engine) accumulateDemand(
	ctx context.Context,
	p *entities.CanonicalPayload,
	idx *entities.PayloadIndex,
	g grid,
	groups groupSplit,
	occs []visitOccurrence,
	out *entities.ForecastOutputs,
) error {
	if !p.Rich() {
		sku := entities.SKU(p.TrialCode() + ":KIT")
		series := make([]float64, g.horizon)
		copy(series, out.EnrolledPerBucket)
		out.DemandPerBucket[sku] = series
		return nil
	}

	progs := newCalcCache()
	for _, grp := range groups.groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		regimen := resolveRegimen(p, idx, grp)

		for _, occ := range occs {
			if !occ.dosing {
				continue
			}
			shift := g.bucketOf(occ.dayOffset)
			for t := 0; t < g.horizon; t++ {
				subjects := grp.series[t]
				if subjects == 0 {
					continue
				}
				bucket := t + shift
				if bucket < 0 || bucket >= g.horizon {
					continue
				}
				if regimen == nil {
					return &UnmappedRegimenError{GroupID: grp.id, VisitID: occ.visitID}
				}
				lines, err := e.dispenseFor(ctx, idx, progs, regimen, occ)
				if err != nil {
					return err
				}
				for _, line := range lines {
					series, ok := out.DemandPerBucket[line.sku]
					if !ok {
						series = make([]float64, g.horizon)
						out.DemandPerBucket[line.sku] = series
					}
					series[bucket] += subjects * line.qty
				}
			}
		}
	}
	return nil
}

// dispenseFor resolves the dose for one visit occurrence and evaluates the
// mapped dispense rule. Occurrences of a repeating visit fall back to the
// source visit's mappings.
func (e *Engine) dispenseFor(
	ctx context.Context,
	idx *entities.PayloadIndex,
	progs *calcCache,
	regimen *entities.Regimen,
	occ visitOccurrence,
) ([]demandLine, error) {
	ruleID, ok := regimen.VisitDispense[occ.visitID]
	if !ok {
		ruleID, ok = regimen.VisitDispense[occ.sourceID]
	}
	if !ok {
		return nil, nil
	}
	rule, ok := idx.DispenseRules[ruleID]
	if !ok {
		return nil, nil
	}

	doseMcg, err := resolveDose(regimen, occ)
	if err != nil {
		return nil, err
	}
	dctx := doseContext{
		DoseMcg:  doseMcg,
		DoseMg:   doseMcg / 1000.0,
		WeightKg: weightMean(regimen),
	}

	switch rule.Rule.Type {
	case entities.DispenseVialOptimization:
		return e.optimizeVials(ctx, idx, rule, doseMcg)
	default:
		return evaluateConditional(progs, rule, dctx)
	}
}

func weightMean(r *entities.Regimen) float64 {
	if r.DoseInputs.WeightKgMean > 0 {
		return r.DoseInputs.WeightKgMean
	}
	return defaultWeightKgMean
}

// demandLine is one SKU quantity produced by a single dispense event
type demandLine struct {
	sku entities.SKU
	qty float64
}
