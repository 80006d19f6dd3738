package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/combos"
	"github.com/Bateristico/agent-architect/internal/evaluator"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/Bateristico/agent-architect/internal/reporting"
	"github.com/Bateristico/agent-architect/internal/validation"
)

// MaxTrials bounds the trial count a single estimation request may ask for.
const MaxTrials = 10000

// MaxRetainedRuns bounds how many finished background runs run.status can
// still report. Older ones are evicted first.
const MaxRetainedRuns = 100

// Run statuses reported by run.status.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// RunState tracks the status of a background estimation.
type RunState struct {
	ID     string                    `json:"id"`
	Status string                    `json:"status"`
	Error  string                    `json:"error,omitempty"`
	Result *orchestration.Estimation `json:"result,omitempty"`
}

// HandlerContext provides shared state for method handlers.
type HandlerContext struct {
	catalog   *catalog.Catalog
	runner    *orchestration.Runner
	evaluator *evaluator.Evaluator

	mu   sync.Mutex
	runs map[string]*RunState

	// cancelFuncs tracks cancel functions for running estimations.
	cancelFuncs map[string]context.CancelFunc
	// finished holds completed run ids, oldest first.
	finished []string

	nextRunID int
}

// NewHandlerContext creates a handler context serving cat. Nil arguments
// fall back to the built-in catalog and a default runner.
func NewHandlerContext(cat *catalog.Catalog, runner *orchestration.Runner) *HandlerContext {
	if cat == nil {
		cat = catalog.Default()
	}
	if runner == nil {
		runner = orchestration.NewRunner()
	}
	return &HandlerContext{
		catalog:     cat,
		runner:      runner,
		evaluator:   evaluator.New(),
		runs:        make(map[string]*RunState),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// RegisterHandlers registers all catalog, engine, level, combo and run method handlers.
func RegisterHandlers(registry *MethodRegistry, hctx *HandlerContext) {
	registry.Register("catalog.get", hctx.handleCatalogGet)
	registry.Register("catalog.validate", hctx.handleCatalogValidate)
	registry.Register("engine.evaluate", hctx.handleEngineEvaluate)
	registry.Register("level.run", hctx.handleLevelRun)
	registry.Register("level.estimate", hctx.handleLevelEstimate)
	registry.Register("estimate.start", hctx.handleEstimateStart)
	registry.Register("combos.detect", hctx.handleCombosDetect)
	registry.Register("combos.wouldComplete", hctx.handleCombosWouldComplete)
	registry.Register("run.status", hctx.handleRunStatus)
	registry.Register("run.cancel", hctx.handleRunCancel)
}

// decodeParams unmarshals params into v. Absent or null params leave v zeroed.
func decodeParams(params json.RawMessage, v any) *Error {
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return ErrInvalidParams(err.Error())
	}
	return nil
}

// resolve turns a role-to-id map into a configuration.
func (h *HandlerContext) resolve(raw map[string]string) (models.Configuration, *Error) {
	p := make(models.Placement, len(raw))
	for k, id := range raw {
		role, err := models.ParseRole(k)
		if err != nil {
			return models.Configuration{}, ErrInvalidParams(err.Error())
		}
		p[role] = id
	}
	cfg, err := h.catalog.Resolve(p)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownComponent) {
			return models.Configuration{}, ErrNotFound(err.Error())
		}
		return models.Configuration{}, ErrInvalidParams(err.Error())
	}
	return cfg, nil
}

// level returns the inline level when given, otherwise the catalog level with id.
func (h *HandlerContext) level(id string, inline *models.Level) (*models.Level, *Error) {
	if inline != nil {
		if err := inline.Validate(); err != nil {
			return nil, ErrValidationFailed(err.Error())
		}
		return inline, nil
	}
	if id == "" {
		return nil, ErrInvalidParams("level_id or level is required")
	}
	l, ok := h.catalog.Level(id)
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("level %q", id))
	}
	return l, nil
}

// --- catalog.get ---

func (h *HandlerContext) handleCatalogGet(_ context.Context, _ json.RawMessage) (any, *Error) {
	return h.catalog, nil
}

// --- catalog.validate ---

type CatalogValidateParams struct {
	Document string `json:"document"`
}

type CatalogValidateResult struct {
	Valid  bool               `json:"valid"`
	Kind   validation.Kind    `json:"kind,omitempty"`
	Report *validation.Report `json:"report"`
}

func (h *HandlerContext) handleCatalogValidate(_ context.Context, params json.RawMessage) (any, *Error) {
	var p CatalogValidateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Document == "" {
		return nil, ErrInvalidParams("document is required")
	}

	r := validation.ValidateBytes([]byte(p.Document), h.catalog)
	return &CatalogValidateResult{Valid: r.OK(), Kind: r.Kind, Report: r}, nil
}

// --- engine.evaluate ---

type EngineEvaluateParams struct {
	Placement map[string]string `json:"placement"`
	Scenario  models.Scenario   `json:"scenario"`
	// Seed pins the random stream; omitted or negative picks one.
	Seed *int64 `json:"seed,omitempty"`
}

type EngineEvaluateResult struct {
	Verdict models.Verdict `json:"verdict"`
	Seed    int64          `json:"seed"`
}

func (h *HandlerContext) handleEngineEvaluate(_ context.Context, params json.RawMessage) (any, *Error) {
	var p EngineEvaluateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.Scenario.ID == "" {
		return nil, ErrInvalidParams("scenario.id is required")
	}
	d, err := models.ParseDifficulty(string(p.Scenario.Difficulty))
	if err != nil {
		return nil, ErrInvalidParams(err.Error())
	}
	p.Scenario.Difficulty = d

	cfg, rpcErr := h.resolve(p.Placement)
	if rpcErr != nil {
		return nil, rpcErr
	}

	seed := orchestration.ResolveSeed(seedOrRandom(p.Seed))
	v := h.evaluator.Evaluate(cfg, p.Scenario, evaluator.NewSource(seed))
	return &EngineEvaluateResult{Verdict: v, Seed: seed}, nil
}

func seedOrRandom(s *int64) int64 {
	if s == nil {
		return -1
	}
	return *s
}

// --- level.run ---

type LevelRunParams struct {
	Placement map[string]string `json:"placement"`
	LevelID   string            `json:"level_id,omitempty"`
	Level     *models.Level     `json:"level,omitempty"`
	Seed      *int64            `json:"seed,omitempty"`
}

type LevelRunResult struct {
	Result       *models.LevelResult `json:"result"`
	Seed         int64               `json:"seed"`
	Combos       models.ComboOutcome `json:"combos"`
	DisplayTotal int                 `json:"display_total"`
}

func (h *HandlerContext) handleLevelRun(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p LevelRunParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	lvl, rpcErr := h.level(p.LevelID, p.Level)
	if rpcErr != nil {
		return nil, rpcErr
	}
	cfg, rpcErr := h.resolve(p.Placement)
	if rpcErr != nil {
		return nil, rpcErr
	}

	seed := orchestration.ResolveSeed(seedOrRandom(p.Seed))
	res, err := h.runner.RunOnce(ctx, cfg, lvl, seed)
	if err != nil {
		return nil, runError(err)
	}

	outcome := combos.Detect(cfg.PlacedIDs(), h.catalog.Combos)
	return &LevelRunResult{
		Result:       res,
		Seed:         seed,
		Combos:       outcome,
		DisplayTotal: reporting.ComposeDisplayTotal(res.Total, outcome.TotalBonusPercent),
	}, nil
}

// --- level.estimate ---

type LevelEstimateParams struct {
	Placement map[string]string `json:"placement"`
	LevelID   string            `json:"level_id,omitempty"`
	Level     *models.Level     `json:"level,omitempty"`
	Trials    int               `json:"trials,omitempty"`
	Workers   int               `json:"workers,omitempty"`
	Seed      *int64            `json:"seed,omitempty"`
}

func (h *HandlerContext) prepareEstimate(params json.RawMessage) (models.Configuration, *models.Level, orchestration.EstimateOptions, *Error) {
	var p LevelEstimateParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return models.Configuration{}, nil, orchestration.EstimateOptions{}, rpcErr
	}
	if p.Trials < 0 || p.Trials > MaxTrials {
		return models.Configuration{}, nil, orchestration.EstimateOptions{}, ErrInvalidParams(fmt.Sprintf("trials must be between 0 and %d", MaxTrials))
	}
	lvl, rpcErr := h.level(p.LevelID, p.Level)
	if rpcErr != nil {
		return models.Configuration{}, nil, orchestration.EstimateOptions{}, rpcErr
	}
	cfg, rpcErr := h.resolve(p.Placement)
	if rpcErr != nil {
		return models.Configuration{}, nil, orchestration.EstimateOptions{}, rpcErr
	}
	opts := orchestration.EstimateOptions{Trials: p.Trials, Workers: p.Workers, Seed: seedOrRandom(p.Seed)}
	return cfg, lvl, opts, nil
}

func (h *HandlerContext) handleLevelEstimate(ctx context.Context, params json.RawMessage) (any, *Error) {
	cfg, lvl, opts, rpcErr := h.prepareEstimate(params)
	if rpcErr != nil {
		return nil, rpcErr
	}
	est, err := h.runner.Estimate(ctx, cfg, lvl, opts)
	if err != nil {
		return nil, runError(err)
	}
	return est, nil
}

// --- estimate.start ---

type EstimateStartResult struct {
	RunID string `json:"run_id"`
}

func (h *HandlerContext) handleEstimateStart(ctx context.Context, params json.RawMessage) (any, *Error) {
	cfg, lvl, opts, rpcErr := h.prepareEstimate(params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	h.mu.Lock()
	h.nextRunID++
	runID := fmt.Sprintf("run-%d", h.nextRunID)
	state := &RunState{ID: runID, Status: StatusRunning}
	h.runs[runID] = state
	// ctx is the serving context, so runs stop when the server does
	runCtx, cancel := context.WithCancel(ctx)
	h.cancelFuncs[runID] = cancel
	h.mu.Unlock()

	notifier := NotifierFrom(ctx)
	opts.Progress = progressNotifier(notifier, runID, opts.Trials)

	go func() {
		est, err := h.runner.Estimate(runCtx, cfg, lvl, opts)

		h.mu.Lock()
		switch {
		case state.Status == StatusCanceled:
		case errors.Is(err, context.Canceled):
			state.Status = StatusCanceled
			state.Error = err.Error()
		case err != nil:
			state.Status = StatusFailed
			state.Error = err.Error()
		default:
			state.Status = StatusCompleted
			state.Result = est
		}
		if cancel, exists := h.cancelFuncs[runID]; exists {
			cancel()
			delete(h.cancelFuncs, runID)
		}
		h.retire(runID)
		finished := EstimateFinishedParams{RunID: runID, Status: state.Status, Error: state.Error}
		if state.Result != nil {
			finished.MeanTotal = state.Result.MeanTotal
		}
		h.mu.Unlock()

		_ = notifier.Notify(NotifyEstimateFinished, finished)
	}()

	return &EstimateStartResult{RunID: runID}, nil
}

// retire records runID as finished and evicts the oldest finished runs past
// MaxRetainedRuns. Callers hold h.mu.
func (h *HandlerContext) retire(runID string) {
	h.finished = append(h.finished, runID)
	for len(h.finished) > MaxRetainedRuns {
		delete(h.runs, h.finished[0])
		h.finished = h.finished[1:]
	}
}

// progressNotifier forwards trial completions to n, about once per tenth of
// the run so a large estimation does not flood the client.
func progressNotifier(n Notifier, runID string, trials int) orchestration.ProgressListener {
	if trials <= 0 {
		trials = orchestration.DefaultTrials
	}
	step := max(1, trials/10)
	return func(e orchestration.ProgressEvent) {
		if e.EventType != orchestration.EventTrialComplete {
			return
		}
		if e.Trial%step != 0 && e.Trial != e.TotalTrials {
			return
		}
		_ = n.Notify(NotifyEstimateProgress, EstimateProgressParams{
			RunID:       runID,
			LevelID:     e.LevelID,
			Trial:       e.Trial,
			TotalTrials: e.TotalTrials,
		})
	}
}

// --- combos.detect ---

type CombosParams struct {
	PlacedIDs []string          `json:"placed_ids,omitempty"`
	Placement map[string]string `json:"placement,omitempty"`
}

// placedIDs merges explicit ids with those of a resolved placement.
func (h *HandlerContext) placedIDs(p CombosParams) ([]string, *Error) {
	ids := append([]string(nil), p.PlacedIDs...)
	if len(p.Placement) > 0 {
		cfg, rpcErr := h.resolve(p.Placement)
		if rpcErr != nil {
			return nil, rpcErr
		}
		ids = append(ids, cfg.PlacedIDs()...)
	}
	return ids, nil
}

// NearCombo is a combo one component away from completion.
type NearCombo struct {
	ComboID   string `json:"combo_id"`
	MissingID string `json:"missing_id"`
}

type CombosDetectResult struct {
	models.ComboOutcome
	Near []NearCombo `json:"near,omitempty"`
}

func (h *HandlerContext) handleCombosDetect(_ context.Context, params json.RawMessage) (any, *Error) {
	var p CombosParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ids, rpcErr := h.placedIDs(p)
	if rpcErr != nil {
		return nil, rpcErr
	}

	res := &CombosDetectResult{ComboOutcome: combos.Detect(ids, h.catalog.Combos)}
	for _, c := range h.catalog.Combos {
		if missing := combos.Missing(c, ids); len(missing) == 1 {
			res.Near = append(res.Near, NearCombo{ComboID: c.ID, MissingID: missing[0]})
		}
	}
	return res, nil
}

// --- combos.wouldComplete ---

type CombosWouldCompleteParams struct {
	CombosParams
	CandidateID string `json:"candidate_id"`
}

type CombosWouldCompleteResult struct {
	Completes bool                    `json:"completes"`
	Combo     *models.ComboDefinition `json:"combo,omitempty"`
}

func (h *HandlerContext) handleCombosWouldComplete(_ context.Context, params json.RawMessage) (any, *Error) {
	var p CombosWouldCompleteParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.CandidateID == "" {
		return nil, ErrInvalidParams("candidate_id is required")
	}
	ids, rpcErr := h.placedIDs(p.CombosParams)
	if rpcErr != nil {
		return nil, rpcErr
	}

	c, ok := combos.WouldComplete(p.CandidateID, ids, h.catalog.Combos)
	if !ok {
		return &CombosWouldCompleteResult{}, nil
	}
	return &CombosWouldCompleteResult{Completes: true, Combo: &c}, nil
}

// --- run.status ---

type RunStatusParams struct {
	RunID string `json:"run_id"`
}

func (h *HandlerContext) handleRunStatus(_ context.Context, params json.RawMessage) (any, *Error) {
	var p RunStatusParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.RunID == "" {
		return nil, ErrInvalidParams("run_id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	state, ok := h.runs[p.RunID]
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("run %q", p.RunID))
	}
	snapshot := *state
	return &snapshot, nil
}

// --- run.cancel ---

type RunCancelParams struct {
	RunID string `json:"run_id"`
}

type RunCancelResult struct {
	Canceled bool `json:"canceled"`
}

func (h *HandlerContext) handleRunCancel(_ context.Context, params json.RawMessage) (any, *Error) {
	var p RunCancelParams
	if rpcErr := decodeParams(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if p.RunID == "" {
		return nil, ErrInvalidParams("run_id is required")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	state, ok := h.runs[p.RunID]
	if !ok {
		return nil, ErrNotFound(fmt.Sprintf("run %q", p.RunID))
	}

	if state.Status != StatusRunning {
		return &RunCancelResult{Canceled: false}, nil
	}

	if cancel, exists := h.cancelFuncs[p.RunID]; exists {
		cancel()
		delete(h.cancelFuncs, p.RunID)
	}
	state.Status = StatusCanceled

	return &RunCancelResult{Canceled: true}, nil
}
