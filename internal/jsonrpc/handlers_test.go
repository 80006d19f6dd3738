package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helper to send a JSON-RPC request and decode the response
func rpcCall(t *testing.T, server *Server, method string, params any) Response {
	t.Helper()
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	reqLine := fmt.Sprintf(`{"jsonrpc":"2.0","method":"%s","params":%s,"id":1}`, method, string(paramsJSON))
	out := &lockedBuffer{}
	server.ServeStdio(context.Background(), strings.NewReader(reqLine+"\n"), out)

	// background runs may push notifications onto the same stream
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if !hasIDField([]byte(line)) {
			continue
		}
		var resp Response
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		return resp
	}
	t.Fatalf("no response for %s in %q", method, out.String())
	return Response{}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type recordedNotification struct {
	method string
	params any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (r *recordingNotifier) Notify(method string, params any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, recordedNotification{method, params})
	return nil
}

func (r *recordingNotifier) snapshot() []recordedNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedNotification(nil), r.sent...)
}

// decodeResult round-trips the untyped result into v.
func decodeResult(t *testing.T, resp Response, v any) {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	data, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func newTestServer() (*Server, *HandlerContext) {
	registry := NewMethodRegistry()
	hctx := NewHandlerContext(nil, nil)
	RegisterHandlers(registry, hctx)
	return NewServer(registry, nil), hctx
}

var lean = map[string]string{"context": "ctx-minimal", "model": "model-economy"}

func TestHandler_CatalogGet(t *testing.T) {
	server, _ := newTestServer()
	resp := rpcCall(t, server, "catalog.get", nil)

	var c catalog.Catalog
	decodeResult(t, resp, &c)
	assert.Len(t, c.Components, len(catalog.Default().Components))
	assert.Len(t, c.Levels, 3)
}

func TestHandler_CatalogValidate(t *testing.T) {
	server, _ := newTestServer()

	resp := rpcCall(t, server, "catalog.validate", map[string]string{"document": "context: ctx-rag\nmodel: model-premium\n"})
	var ok CatalogValidateResult
	decodeResult(t, resp, &ok)
	assert.True(t, ok.Valid)
	assert.Equal(t, "placement", string(ok.Kind))

	resp = rpcCall(t, server, "catalog.validate", map[string]string{"document": "context: ctx-imaginary\n"})
	var bad CatalogValidateResult
	decodeResult(t, resp, &bad)
	assert.False(t, bad.Valid)
	assert.NotEmpty(t, bad.Report.SemanticErrors)

	resp = rpcCall(t, server, "catalog.validate", map[string]string{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestHandler_EngineEvaluate(t *testing.T) {
	server, _ := newTestServer()
	seed := int64(4)

	resp := rpcCall(t, server, "engine.evaluate", EngineEvaluateParams{
		Placement: lean,
		Scenario:  models.Scenario{ID: "hi", Input: "Hello", Difficulty: models.DifficultyLow},
		Seed:      &seed,
	})
	var res EngineEvaluateResult
	decodeResult(t, resp, &res)
	assert.True(t, res.Verdict.Success)
	assert.Equal(t, int64(4), res.Seed)
	assert.Equal(t, 2, res.Verdict.Cost)
}

func TestHandler_EngineEvaluate_Errors(t *testing.T) {
	server, _ := newTestServer()

	tests := []struct {
		name   string
		params any
		code   int
	}{
		{"not an object", "nope", CodeInvalidParams},
		{"missing scenario id", EngineEvaluateParams{Placement: lean}, CodeInvalidParams},
		{"bad difficulty", map[string]any{"placement": lean, "scenario": map[string]string{"id": "x", "difficulty": "extreme"}}, CodeInvalidParams},
		{"unknown component", EngineEvaluateParams{
			Placement: map[string]string{"context": "ctx-imaginary"},
			Scenario:  models.Scenario{ID: "x", Difficulty: models.DifficultyLow},
		}, CodeNotFound},
		{"unknown role", EngineEvaluateParams{
			Placement: map[string]string{"sidekick": "tool-api"},
			Scenario:  models.Scenario{ID: "x", Difficulty: models.DifficultyLow},
		}, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := rpcCall(t, server, "engine.evaluate", tt.params)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestHandler_LevelRun(t *testing.T) {
	server, _ := newTestServer()
	seed := int64(1)

	resp := rpcCall(t, server, "level.run", LevelRunParams{Placement: lean, LevelID: "first-contact", Seed: &seed})
	var res LevelRunResult
	decodeResult(t, resp, &res)

	require.NotNil(t, res.Result)
	assert.Equal(t, "first-contact", res.Result.LevelID)
	assert.Len(t, res.Result.PerScenario, 4)
	require.Len(t, res.Combos.Achieved, 1)
	assert.Equal(t, "lean-machine", res.Combos.Achieved[0].ID)
	assert.GreaterOrEqual(t, res.DisplayTotal, res.Result.Total)
	assert.LessOrEqual(t, res.DisplayTotal, 100)
}

func TestHandler_LevelRun_InlineLevel(t *testing.T) {
	server, _ := newTestServer()

	lvl := &models.Level{
		ID:              "inline",
		SuccessCriteria: models.SuccessCriteria{AccuracyThreshold: 50},
		Scenarios:       []models.Scenario{{ID: "a", Input: "Hi", Difficulty: models.DifficultyLow}},
	}
	resp := rpcCall(t, server, "level.run", LevelRunParams{Placement: lean, Level: lvl})
	var res LevelRunResult
	decodeResult(t, resp, &res)
	assert.Equal(t, "inline", res.Result.LevelID)
}

func TestHandler_LevelRun_Errors(t *testing.T) {
	server, _ := newTestServer()

	resp := rpcCall(t, server, "level.run", LevelRunParams{Placement: lean})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)

	resp = rpcCall(t, server, "level.run", LevelRunParams{Placement: lean, LevelID: "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)

	resp = rpcCall(t, server, "level.run", LevelRunParams{Placement: lean, Level: &models.Level{ID: "bad", SuccessCriteria: models.SuccessCriteria{AccuracyThreshold: 200}}})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeValidationFailed, resp.Error.Code)
}

func TestHandler_LevelEstimate(t *testing.T) {
	server, _ := newTestServer()
	seed := int64(2)

	resp := rpcCall(t, server, "level.estimate", LevelEstimateParams{Placement: lean, LevelID: "support-desk", Trials: 20, Seed: &seed})
	var est orchestration.Estimation
	decodeResult(t, resp, &est)
	assert.Equal(t, 20, est.Trials)
	assert.Equal(t, int64(2), est.Seed)
	assert.NotEmpty(t, est.RunID)

	resp = rpcCall(t, server, "level.estimate", LevelEstimateParams{Placement: lean, LevelID: "support-desk", Trials: MaxTrials + 1})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestHandler_CombosDetect(t *testing.T) {
	server, _ := newTestServer()

	resp := rpcCall(t, server, "combos.detect", CombosParams{PlacedIDs: []string{"ctx-rag", "tool-search", "model-premium"}})
	var res CombosDetectResult
	decodeResult(t, resp, &res)

	require.Len(t, res.Achieved, 1)
	assert.Equal(t, "grounded-retriever", res.Achieved[0].ID)
	assert.Equal(t, 10.0, res.TotalBonusPercent)
	assert.Contains(t, res.Near, NearCombo{ComboID: "safe-premium", MissingID: "guard-policy"})
}

func TestHandler_CombosDetect_FromPlacement(t *testing.T) {
	server, _ := newTestServer()

	resp := rpcCall(t, server, "combos.detect", CombosParams{Placement: lean})
	var res CombosDetectResult
	decodeResult(t, resp, &res)
	require.Len(t, res.Achieved, 1)
	assert.Equal(t, 5.0, res.TotalBonusPercent)
}

func TestHandler_CombosWouldComplete(t *testing.T) {
	server, _ := newTestServer()

	resp := rpcCall(t, server, "combos.wouldComplete", CombosWouldCompleteParams{
		CombosParams: CombosParams{PlacedIDs: []string{"model-premium"}},
		CandidateID:  "guard-policy",
	})
	var res CombosWouldCompleteResult
	decodeResult(t, resp, &res)
	assert.True(t, res.Completes)
	require.NotNil(t, res.Combo)
	assert.Equal(t, "safe-premium", res.Combo.ID)

	resp = rpcCall(t, server, "combos.wouldComplete", CombosWouldCompleteParams{
		CombosParams: CombosParams{PlacedIDs: []string{"model-premium"}},
		CandidateID:  "tool-api",
	})
	var none CombosWouldCompleteResult
	decodeResult(t, resp, &none)
	assert.False(t, none.Completes)
	assert.Nil(t, none.Combo)

	resp = rpcCall(t, server, "combos.wouldComplete", CombosWouldCompleteParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestHandler_EstimateStart_RunStatus(t *testing.T) {
	server, hctx := newTestServer()
	seed := int64(3)

	resp := rpcCall(t, server, "estimate.start", LevelEstimateParams{Placement: lean, LevelID: "first-contact", Trials: 10, Seed: &seed})
	var started EstimateStartResult
	decodeResult(t, resp, &started)
	assert.Equal(t, "run-1", started.RunID)

	require.Eventually(t, func() bool {
		resp := rpcCall(t, server, "run.status", RunStatusParams{RunID: started.RunID})
		var state RunState
		decodeResult(t, resp, &state)
		return state.Status == StatusCompleted && state.Result != nil && state.Result.Trials == 10
	}, 5*time.Second, 10*time.Millisecond)

	// cancel funcs are cleaned up once the run completes
	hctx.mu.Lock()
	_, exists := hctx.cancelFuncs[started.RunID]
	hctx.mu.Unlock()
	assert.False(t, exists)

	// a finished run cannot be canceled
	resp = rpcCall(t, server, "run.cancel", RunCancelParams{RunID: started.RunID})
	var cancelRes RunCancelResult
	decodeResult(t, resp, &cancelRes)
	assert.False(t, cancelRes.Canceled)
}

func TestHandler_EstimateStart_Notifies(t *testing.T) {
	_, hctx := newTestServer()
	notifier := &recordingNotifier{}
	ctx := WithNotifier(context.Background(), notifier)

	params, err := json.Marshal(LevelEstimateParams{Placement: lean, LevelID: "first-contact", Trials: 20, Workers: 2})
	require.NoError(t, err)
	result, rpcErr := hctx.handleEstimateStart(ctx, params)
	require.Nil(t, rpcErr)
	runID := result.(*EstimateStartResult).RunID

	require.Eventually(t, func() bool {
		sent := notifier.snapshot()
		return len(sent) > 0 && sent[len(sent)-1].method == NotifyEstimateFinished
	}, 5*time.Second, 10*time.Millisecond)

	sent := notifier.snapshot()
	var trials []int
	for _, n := range sent[:len(sent)-1] {
		require.Equal(t, NotifyEstimateProgress, n.method)
		p := n.params.(EstimateProgressParams)
		assert.Equal(t, runID, p.RunID)
		assert.Equal(t, "first-contact", p.LevelID)
		assert.Equal(t, 20, p.TotalTrials)
		trials = append(trials, p.Trial)
	}
	// every second trial of twenty is reported
	assert.ElementsMatch(t, []int{2, 4, 6, 8, 10, 12, 14, 16, 18, 20}, trials)

	finished := sent[len(sent)-1].params.(EstimateFinishedParams)
	assert.Equal(t, runID, finished.RunID)
	assert.Equal(t, StatusCompleted, finished.Status)
	assert.Positive(t, finished.MeanTotal)
}

func TestHandler_EstimateStart_StopsWithServer(t *testing.T) {
	_, hctx := newTestServer()
	notifier := &recordingNotifier{}
	ctx, shutdown := context.WithCancel(WithNotifier(context.Background(), notifier))

	params, err := json.Marshal(LevelEstimateParams{Placement: lean, LevelID: "escalations", Trials: MaxTrials, Workers: 1})
	require.NoError(t, err)
	result, rpcErr := hctx.handleEstimateStart(ctx, params)
	require.Nil(t, rpcErr)
	runID := result.(*EstimateStartResult).RunID

	shutdown()
	require.Eventually(t, func() bool {
		hctx.mu.Lock()
		defer hctx.mu.Unlock()
		return hctx.runs[runID].Status == StatusCanceled
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		sent := notifier.snapshot()
		return len(sent) > 0 && sent[len(sent)-1].method == NotifyEstimateFinished
	}, 5*time.Second, 10*time.Millisecond)
	sent := notifier.snapshot()
	assert.Equal(t, StatusCanceled, sent[len(sent)-1].params.(EstimateFinishedParams).Status)
}

func TestHandlerContext_RetiresOldestRuns(t *testing.T) {
	hctx := NewHandlerContext(nil, nil)

	hctx.mu.Lock()
	for i := range MaxRetainedRuns + 5 {
		id := fmt.Sprintf("run-%d", i+1)
		hctx.runs[id] = &RunState{ID: id, Status: StatusCompleted}
		hctx.retire(id)
	}
	hctx.mu.Unlock()

	assert.Len(t, hctx.runs, MaxRetainedRuns)
	assert.Len(t, hctx.finished, MaxRetainedRuns)
	assert.NotContains(t, hctx.runs, "run-5")
	assert.Contains(t, hctx.runs, "run-6")
	assert.Contains(t, hctx.runs, fmt.Sprintf("run-%d", MaxRetainedRuns+5))
}

func TestProgressNotifier_IgnoresOtherEvents(t *testing.T) {
	notifier := &recordingNotifier{}
	listen := progressNotifier(notifier, "run-1", 0)

	listen(orchestration.ProgressEvent{EventType: orchestration.EventEstimateStart, TotalTrials: 200})
	listen(orchestration.ProgressEvent{EventType: orchestration.EventTrialComplete, Trial: 7, TotalTrials: 200})
	listen(orchestration.ProgressEvent{EventType: orchestration.EventTrialComplete, Trial: 20, TotalTrials: 200})

	sent := notifier.snapshot()
	require.Len(t, sent, 1)
	assert.Equal(t, 20, sent[0].params.(EstimateProgressParams).Trial)
}

func TestRunError(t *testing.T) {
	assert.Equal(t, CodeRunCanceled, runError(fmt.Errorf("stopped: %w", context.Canceled)).Code)
	assert.Equal(t, CodeValidationFailed, runError(orchestration.ErrNoScenarios).Code)
	assert.Equal(t, CodeRunFailed, runError(fmt.Errorf("boom")).Code)
}

func TestHandler_RunCancel_Running(t *testing.T) {
	server, hctx := newTestServer()

	// a run registered by hand stays running until canceled
	canceled := false
	hctx.mu.Lock()
	hctx.runs["run-x"] = &RunState{ID: "run-x", Status: StatusRunning}
	hctx.cancelFuncs["run-x"] = func() { canceled = true }
	hctx.mu.Unlock()

	resp := rpcCall(t, server, "run.cancel", RunCancelParams{RunID: "run-x"})
	var res RunCancelResult
	decodeResult(t, resp, &res)
	assert.True(t, res.Canceled)
	assert.True(t, canceled)

	resp = rpcCall(t, server, "run.status", RunStatusParams{RunID: "run-x"})
	var state RunState
	decodeResult(t, resp, &state)
	assert.Equal(t, StatusCanceled, state.Status)
}

func TestHandler_RunStatus_NotFound(t *testing.T) {
	server, _ := newTestServer()
	resp := rpcCall(t, server, "run.status", RunStatusParams{RunID: "nope"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)

	resp = rpcCall(t, server, "run.cancel", RunCancelParams{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInvalidParams, resp.Error.Code)
}

func TestAllMethodsRegistered(t *testing.T) {
	registry := NewMethodRegistry()
	RegisterHandlers(registry, NewHandlerContext(nil, nil))

	expected := []string{
		"catalog.get", "catalog.validate", "engine.evaluate", "level.run", "level.estimate",
		"estimate.start", "combos.detect", "combos.wouldComplete", "run.status", "run.cancel",
	}

	for _, method := range expected {
		assert.NotNil(t, registry.Lookup(method), "method %q should be registered", method)
	}
	assert.Len(t, registry.Methods(), len(expected))
}
