package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bateristico/agent-architect/internal/cache"
	"github.com/Bateristico/agent-architect/internal/evaluator"
	"github.com/Bateristico/agent-architect/internal/metrics"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/scoring"
	"github.com/Bateristico/agent-architect/internal/statistics"
)

// ErrNoScenarios is returned when filtering leaves a level with nothing to run.
var ErrNoScenarios = errors.New("no scenarios match the filters")

// Runner runs levels, once or many times over independent seeded streams.
type Runner struct {
	agg    *scoring.Aggregator
	logger *slog.Logger

	scenarioFilters   []string
	difficultyFilters []models.Difficulty

	cache *cache.Cache

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

const (
	EventEstimateStart    EventType = "estimate_start"
	EventEstimateComplete EventType = "estimate_complete"
	EventEstimateStopped  EventType = "estimate_stopped"
	EventEstimateCached   EventType = "estimate_cached"
	EventTrialComplete    EventType = "trial_complete"
	EventRunComplete      EventType = "run_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType   EventType
	RunID       string
	LevelID     string
	Trial       int
	TotalTrials int
	Total       int
	Tier        models.Tier
	DurationMs  int64
	Details     map[string]any
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithScenarioFilters restricts runs to scenarios whose ID matches a glob pattern.
func WithScenarioFilters(patterns ...string) RunnerOption {
	return func(r *Runner) {
		r.scenarioFilters = patterns
	}
}

// WithDifficultyFilters restricts runs to the given difficulties.
func WithDifficultyFilters(ds ...models.Difficulty) RunnerOption {
	return func(r *Runner) {
		r.difficultyFilters = ds
	}
}

// WithCache enables result caching for estimations with a pinned seed.
func WithCache(c *cache.Cache) RunnerOption {
	return func(r *Runner) {
		r.cache = c
	}
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithAggregator replaces the default aggregator.
func WithAggregator(a *scoring.Aggregator) RunnerOption {
	return func(r *Runner) {
		r.agg = a
	}
}

// NewRunner creates a runner using the default evaluator.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		agg:    scoring.NewAggregator(nil),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// OnProgress registers a progress listener
func (r *Runner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *Runner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// prepare applies the scenario filters to a copy of level.
func (r *Runner) prepare(level *models.Level) (*models.Level, error) {
	scenarios, err := FilterScenarios(level.Scenarios, r.scenarioFilters, r.difficultyFilters)
	if err != nil {
		return nil, err
	}
	if len(level.Scenarios) > 0 && len(scenarios) == 0 {
		return nil, fmt.Errorf("level %s: %w", level.ID, ErrNoScenarios)
	}
	filtered := *level
	filtered.Scenarios = scenarios
	return &filtered, nil
}

// ResolveSeed returns seed unchanged when pinned (>= 0), otherwise a fresh random seed.
func ResolveSeed(seed int64) int64 {
	if seed >= 0 {
		return seed
	}
	return rand.Int63n(1 << 31)
}

// RunOnce runs the level a single time with the given seed.
func (r *Runner) RunOnce(ctx context.Context, cfg models.Configuration, level *models.Level, seed int64) (*models.LevelResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lvl, err := r.prepare(level)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res := r.agg.RunLevel(cfg, lvl, evaluator.NewSource(ResolveSeed(seed)))
	r.notifyProgress(ProgressEvent{
		EventType:   EventRunComplete,
		LevelID:     lvl.ID,
		Trial:       1,
		TotalTrials: 1,
		Total:       res.Total,
		Tier:        res.Tier,
		DurationMs:  time.Since(start).Milliseconds(),
	})
	return &res, nil
}

// EstimateOptions controls a Monte Carlo estimation.
type EstimateOptions struct {
	Trials int
	// Seed pins trial i to Seed+i. Negative picks a random base seed and disables caching.
	Seed    int64
	Workers int
	// Confidence is the bootstrap confidence level; zero means 0.95.
	Confidence float64
	// Progress receives this estimation's events after the runner-wide listeners.
	Progress ProgressListener
}

// Default estimation settings.
const (
	DefaultTrials  = 200
	DefaultWorkers = 4
)

func (o EstimateOptions) withDefaults() EstimateOptions {
	if o.Trials <= 0 {
		o.Trials = DefaultTrials
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = statistics.DefaultConfidenceLevel
	}
	return o
}

// MeanSubScores are sub-scores averaged over trials.
type MeanSubScores struct {
	Accuracy   float64 `json:"accuracy"`
	Efficiency float64 `json:"efficiency"`
	Practices  float64 `json:"practices"`
	Robustness float64 `json:"robustness"`
}

// Estimation summarizes many independent runs of one configuration on one level.
type Estimation struct {
	RunID     string           `json:"run_id"`
	LevelID   string           `json:"level_id"`
	Placement models.Placement `json:"placement"`
	Trials    int              `json:"trials"`
	Seed      int64            `json:"seed"`

	Scenarios     []metrics.ScenarioStats       `json:"scenarios"`
	PassRate      float64                       `json:"pass_rate"`
	MeanTotal     float64                       `json:"mean_total"`
	StdDevTotal   float64                       `json:"stddev_total"`
	MedianTotal   float64                       `json:"median_total"`
	TotalSpread   metrics.Distribution          `json:"total_spread"`
	TotalCI       statistics.ConfidenceInterval `json:"total_ci"`
	MeanSubScores MeanSubScores                 `json:"mean_sub_scores"`
	TierCounts    map[models.Tier]int           `json:"tier_counts"`
	Totals        []float64                     `json:"totals,omitempty"`

	Cached bool `json:"cached"`
}

// TierProbability is the fraction of trials that reached tier t.
func (e *Estimation) TierProbability(t models.Tier) float64 {
	if e.Trials == 0 {
		return 0
	}
	return float64(e.TierCounts[t]) / float64(e.Trials)
}

// ModalTier is the most frequent tier, preferring the higher tier on ties.
func (e *Estimation) ModalTier() models.Tier {
	best := models.Tier1
	if e.Trials == 0 {
		return best
	}
	for _, t := range []models.Tier{models.Tier1, models.Tier2, models.Tier3} {
		if e.TierCounts[t] >= e.TierCounts[best] {
			best = t
		}
	}
	return best
}

// FlakyScenarios returns the ids of scenarios that both passed and failed.
func (e *Estimation) FlakyScenarios() []string {
	var out []string
	for _, s := range e.Scenarios {
		if s.Flaky {
			out = append(out, s.ScenarioID)
		}
	}
	return out
}

// Estimate runs the level opts.Trials times concurrently, trial i seeded with
// Seed+i, and summarizes the distribution of results.
func (r *Runner) Estimate(ctx context.Context, cfg models.Configuration, level *models.Level, opts EstimateOptions) (*Estimation, error) {
	opts = opts.withDefaults()
	notify := func(e ProgressEvent) {
		r.notifyProgress(e)
		if opts.Progress != nil {
			opts.Progress(e)
		}
	}
	lvl, err := r.prepare(level)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	cacheable := r.cache != nil && opts.Seed >= 0
	var key string
	if cacheable {
		key, err = cache.CacheKey(cfg, lvl, opts.Seed, opts.Trials)
		if err != nil {
			return nil, fmt.Errorf("computing cache key: %w", err)
		}
		var cached Estimation
		if r.cache.Get(key, &cached) {
			cached.Cached = true
			r.logger.Debug("estimation cache hit", "level", lvl.ID, "key", key)
			notify(ProgressEvent{EventType: EventEstimateCached, RunID: cached.RunID, LevelID: lvl.ID, TotalTrials: cached.Trials})
			return &cached, nil
		}
	}

	seed := ResolveSeed(opts.Seed)
	start := time.Now()
	notify(ProgressEvent{EventType: EventEstimateStart, RunID: runID, LevelID: lvl.ID, TotalTrials: opts.Trials})

	results := make([]models.LevelResult, opts.Trials)
	var doneMu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := 0; i < opts.Trials; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := r.agg.RunLevel(cfg, lvl, evaluator.NewSource(seed+int64(i)))
			results[i] = res

			doneMu.Lock()
			done++
			n := done
			doneMu.Unlock()

			notify(ProgressEvent{
				EventType:   EventTrialComplete,
				RunID:       runID,
				LevelID:     lvl.ID,
				Trial:       n,
				TotalTrials: opts.Trials,
				Total:       res.Total,
				Tier:        res.Tier,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		notify(ProgressEvent{EventType: EventEstimateStopped, RunID: runID, LevelID: lvl.ID, Trial: done, TotalTrials: opts.Trials})
		return nil, fmt.Errorf("estimation stopped after %d/%d trials: %w", done, opts.Trials, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("estimation stopped: %w", err)
	}

	est := summarize(results, opts, seed)
	est.RunID = runID
	est.LevelID = lvl.ID
	est.Placement = cfg.Placement()

	r.logger.Debug("estimation complete", "level", lvl.ID, "trials", opts.Trials, "mean_total", est.MeanTotal, "elapsed", time.Since(start))
	notify(ProgressEvent{
		EventType:   EventEstimateComplete,
		RunID:       runID,
		LevelID:     lvl.ID,
		Trial:       opts.Trials,
		TotalTrials: opts.Trials,
		Tier:        est.ModalTier(),
		DurationMs:  time.Since(start).Milliseconds(),
		Details:     map[string]any{"mean_total": est.MeanTotal, "pass_rate": est.PassRate},
	})

	if cacheable {
		if err := r.cache.Put(key, est); err != nil {
			r.logger.Warn("failed to cache estimation", "error", err)
		}
	}
	return est, nil
}

func summarize(results []models.LevelResult, opts EstimateOptions, seed int64) *Estimation {
	est := &Estimation{
		Trials:     len(results),
		Seed:       seed,
		TierCounts: map[models.Tier]int{},
		Totals:     make([]float64, len(results)),
	}

	passRates := make([]float64, len(results))
	var acc, eff, prac, rob []float64
	for i, res := range results {
		est.Totals[i] = float64(res.Total)
		passRates[i] = res.PassRate()
		est.TierCounts[res.Tier]++
		acc = append(acc, float64(res.SubScores.Accuracy))
		eff = append(eff, float64(res.SubScores.Efficiency))
		prac = append(prac, float64(res.SubScores.Practices))
		rob = append(rob, float64(res.SubScores.Robustness))
	}

	est.PassRate = metrics.Mean(passRates)
	est.TotalSpread = metrics.Describe(est.Totals)
	est.MeanTotal = est.TotalSpread.Mean
	est.StdDevTotal = est.TotalSpread.StdDev
	est.MedianTotal = est.TotalSpread.Median
	est.TotalCI = statistics.Bootstrap{Confidence: opts.Confidence, Seed: seed}.CI(est.Totals)
	est.MeanSubScores = MeanSubScores{
		Accuracy:   metrics.Mean(acc),
		Efficiency: metrics.Mean(eff),
		Practices:  metrics.Mean(prac),
		Robustness: metrics.Mean(rob),
	}

	order, grouped := metrics.ByScenario(results)
	for _, id := range order {
		est.Scenarios = append(est.Scenarios, metrics.ComputeScenarioStats(id, grouped[id]))
	}
	return est
}

// Comparison contrasts two configurations estimated over the same seeds.
type Comparison struct {
	A *Estimation `json:"a"`
	B *Estimation `json:"b"`
	// DeltaCI bounds mean(B.total - A.total) over paired trials.
	DeltaCI     statistics.ConfidenceInterval `json:"delta_ci"`
	Significant bool                          `json:"significant"`
	// PassRateGain is the normalized gain from A's pass rate to B's.
	PassRateGain float64 `json:"pass_rate_gain"`
}

// Delta is B's mean total minus A's.
func (c *Comparison) Delta() float64 {
	return c.B.MeanTotal - c.A.MeanTotal
}

// Compare estimates a and b on level with the same base seed so trial i of
// each sees the same stream.
func (r *Runner) Compare(ctx context.Context, a, b models.Configuration, level *models.Level, opts EstimateOptions) (*Comparison, error) {
	opts = opts.withDefaults()
	opts.Seed = ResolveSeed(opts.Seed)

	estA, err := r.Estimate(ctx, a, level, opts)
	if err != nil {
		return nil, fmt.Errorf("estimating A: %w", err)
	}
	estB, err := r.Estimate(ctx, b, level, opts)
	if err != nil {
		return nil, fmt.Errorf("estimating B: %w", err)
	}

	delta := statistics.Bootstrap{Confidence: opts.Confidence, Seed: opts.Seed}.PairedDiffCI(estA.Totals, estB.Totals)
	return &Comparison{
		A:            estA,
		B:            estB,
		DeltaCI:      delta,
		Significant:  statistics.IsSignificant(delta),
		PassRateGain: statistics.NormalizedGain(estA.PassRate, estB.PassRate),
	}, nil
}
