// Package recommend ranks candidate agent configurations on a level by a
// weighted heuristic over their Monte Carlo estimations.
package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Bateristico/agent-architect/internal/catalog"
	"github.com/Bateristico/agent-architect/internal/models"
	"github.com/Bateristico/agent-architect/internal/orchestration"
)

// Candidate pairs a configuration with its estimation on the level.
// The estimation may be nil if it failed entirely.
type Candidate struct {
	Label      string
	Placement  models.Placement
	Cost       int
	Estimation *orchestration.Estimation
}

// Weights defines the weighting scheme for heuristic scoring.
type Weights struct {
	MeanTotal   float64 `json:"mean_total"`
	PassRate    float64 `json:"pass_rate"`
	Consistency float64 `json:"consistency"`
	Economy     float64 `json:"economy"`
}

// CandidateScore holds the heuristic score and rank for a single candidate.
type CandidateScore struct {
	Label          string             `json:"label"`
	Placement      models.Placement   `json:"placement"`
	HeuristicScore float64            `json:"heuristic_score"`
	Rank           int                `json:"rank"`
	Scores         map[string]float64 `json:"component_scores,omitempty"`
}

// Recommendation names the best candidate and how the others ranked.
type Recommendation struct {
	Recommended     string           `json:"recommended"`
	Placement       models.Placement `json:"placement"`
	HeuristicScore  float64          `json:"heuristic_score"`
	Reason          string           `json:"reason"`
	WinnerMarginPct float64          `json:"winner_margin_pct"`
	Weights         Weights          `json:"weights"`
	Candidates      []CandidateScore `json:"candidates"`
}

// Engine computes heuristic recommendations from candidate estimations.
type Engine struct {
	weights Weights
}

// NewEngine creates a recommendation engine with default weights.
func NewEngine() *Engine {
	return &Engine{
		weights: Weights{
			MeanTotal:   0.40,
			PassRate:    0.30,
			Consistency: 0.20,
			Economy:     0.10,
		},
	}
}

// Recommend computes a heuristic recommendation from a slice of candidates.
// Returns nil if fewer than 2 candidates have estimations.
func (e *Engine) Recommend(candidates []Candidate) *Recommendation {
	var valid []Candidate
	for _, c := range candidates {
		if c.Estimation != nil {
			valid = append(valid, c)
		}
	}
	if len(valid) < 2 {
		return nil
	}

	scores := e.scoreCandidates(valid)

	winner := scores[0]
	runnerUp := scores[1]

	var margin float64
	if runnerUp.HeuristicScore > 0 {
		margin = ((winner.HeuristicScore - runnerUp.HeuristicScore) / runnerUp.HeuristicScore) * 100
	}

	return &Recommendation{
		Recommended:     winner.Label,
		Placement:       winner.Placement,
		HeuristicScore:  winner.HeuristicScore,
		Reason:          e.buildReason(winner, runnerUp, valid),
		WinnerMarginPct: math.Round(margin*10) / 10,
		Weights:         e.weights,
		Candidates:      scores,
	}
}

type rawMetrics struct {
	meanTotal float64
	passRate  float64
	stdDev    float64
	cost      float64
}

// normalizedMetrics holds 0-10 normalized scores.
type normalizedMetrics struct {
	meanTotal   float64
	passRate    float64
	consistency float64
	economy     float64
}

func (e *Engine) scoreCandidates(candidates []Candidate) []CandidateScore {
	raw := make([]rawMetrics, len(candidates))
	for i, c := range candidates {
		raw[i] = rawMetrics{
			meanTotal: c.Estimation.MeanTotal,
			passRate:  c.Estimation.PassRate * 100,
			stdDev:    c.Estimation.StdDevTotal,
			cost:      float64(c.Cost),
		}
	}
	normalized := normalizeMetrics(raw)

	scores := make([]CandidateScore, len(candidates))
	for i, c := range candidates {
		norm := normalized[i]
		hScore := (norm.meanTotal * e.weights.MeanTotal) +
			(norm.passRate * e.weights.PassRate) +
			(norm.consistency * e.weights.Consistency) +
			(norm.economy * e.weights.Economy)

		scores[i] = CandidateScore{
			Label:          c.Label,
			Placement:      c.Placement,
			HeuristicScore: math.Round(hScore*10) / 10,
			Scores: map[string]float64{
				"mean_total_normalized":  math.Round(norm.meanTotal*10) / 10,
				"pass_rate_normalized":   math.Round(norm.passRate*10) / 10,
				"consistency_normalized": math.Round(norm.consistency*10) / 10,
				"economy_normalized":     math.Round(norm.economy*10) / 10,
			},
		}
	}

	// stable sort keeps input order for ties
	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].HeuristicScore > scores[b].HeuristicScore
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}

// normalizeMetrics scales each metric to 0-10 with min-max normalization.
// When all values are equal every candidate gets 5.0 for that metric.
func normalizeMetrics(raw []rawMetrics) []normalizedMetrics {
	var totals, passRates, stdDevs, costs []float64
	for _, m := range raw {
		totals = append(totals, m.meanTotal)
		passRates = append(passRates, m.passRate)
		stdDevs = append(stdDevs, m.stdDev)
		costs = append(costs, m.cost)
	}

	out := make([]normalizedMetrics, len(raw))
	for i, m := range raw {
		out[i] = normalizedMetrics{
			meanTotal:   normalizeHigherBetter(m.meanTotal, totals),
			passRate:    normalizeHigherBetter(m.passRate, passRates),
			consistency: normalizeLowerBetter(m.stdDev, stdDevs),
			economy:     normalizeLowerBetter(m.cost, costs),
		}
	}
	return out
}

func normalizeHigherBetter(value float64, all []float64) float64 {
	minVal, maxVal := minMax(all)
	if maxVal == minVal {
		return 5.0
	}
	return ((value - minVal) / (maxVal - minVal)) * 10
}

func normalizeLowerBetter(value float64, all []float64) float64 {
	minVal, maxVal := minMax(all)
	if maxVal == minVal {
		return 5.0
	}
	return ((maxVal - value) / (maxVal - minVal)) * 10
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	mn, mx := values[0], values[0]
	for _, v := range values[1:] {
		mn = math.Min(mn, v)
		mx = math.Max(mx, v)
	}
	return mn, mx
}

func (e *Engine) buildReason(winner, runnerUp CandidateScore, candidates []Candidate) string {
	if winner.HeuristicScore == runnerUp.HeuristicScore {
		return fmt.Sprintf("Tied with %s; first candidate selected", runnerUp.Label)
	}

	var est *orchestration.Estimation
	for _, c := range candidates {
		if c.Label == winner.Label {
			est = c.Estimation
			break
		}
	}

	var parts []string
	if winner.Scores["mean_total_normalized"] > runnerUp.Scores["mean_total_normalized"] {
		parts = append(parts, fmt.Sprintf("Highest mean total: %.1f", est.MeanTotal))
	}
	if winner.Scores["pass_rate_normalized"] > runnerUp.Scores["pass_rate_normalized"] {
		parts = append(parts, fmt.Sprintf("Pass rate: %.0f%%", est.PassRate*100))
	}
	if len(parts) == 0 {
		parts = append(parts, "Highest weighted score across all components")
	}

	return fmt.Sprintf("%s (weighted score: %.1f vs %s: %.1f)",
		strings.Join(parts, "; "), winner.HeuristicScore, runnerUp.Label, runnerUp.HeuristicScore)
}

// Variants returns base plus every placement that differs from it in exactly
// one role, drawn from the catalog. Required roles are never emptied.
func Variants(cat *catalog.Catalog, base models.Placement) []Candidate {
	out := []Candidate{{Label: "base", Placement: clone(base)}}
	required := make(map[models.Role]bool, len(models.RequiredRoles))
	for _, r := range models.RequiredRoles {
		required[r] = true
	}

	for _, role := range models.AllRoles {
		current := base[role]
		if current != "" && !required[role] {
			p := clone(base)
			delete(p, role)
			out = append(out, Candidate{Label: fmt.Sprintf("-%s", current), Placement: p})
		}
		for _, comp := range cat.ComponentsByRole(role) {
			if comp.ID == current {
				continue
			}
			p := clone(base)
			p[role] = comp.ID
			label := "+" + comp.ID
			if current != "" {
				label = fmt.Sprintf("%s→%s", current, comp.ID)
			}
			out = append(out, Candidate{Label: label, Placement: p})
		}
	}
	return out
}

func clone(p models.Placement) models.Placement {
	out := make(models.Placement, len(p))
	for k, v := range p {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Explore estimates every variant of base on level with the same seed and
// recommends the best. Variants that fail to resolve are skipped.
func Explore(ctx context.Context, runner *orchestration.Runner, cat *catalog.Catalog, base models.Placement, level *models.Level, opts orchestration.EstimateOptions) (*Recommendation, []Candidate, error) {
	opts.Seed = orchestration.ResolveSeed(opts.Seed)

	var out []Candidate
	for _, c := range Variants(cat, base) {
		cfg, err := cat.Resolve(c.Placement)
		if err != nil {
			continue
		}
		est, err := runner.Estimate(ctx, cfg, level, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("estimating %s: %w", c.Label, err)
		}
		c.Cost = cfg.TotalCost()
		c.Estimation = est
		out = append(out, c)
	}
	return NewEngine().Recommend(out), out, nil
}
