package metrics

import "github.com/Bateristico/agent-architect/internal/models"

// ScenarioStats summarizes repeated verdicts for one scenario.
type ScenarioStats struct {
	ScenarioID  string  `json:"scenario_id"`
	Trials      int     `json:"trials"`
	Passed      int     `json:"passed"`
	PassRate    float64 `json:"pass_rate"`
	Flaky       bool    `json:"flaky"`
	MeanLatency float64 `json:"mean_latency"`
	MeanCost    float64 `json:"mean_cost"`
	// Reasons counts how often each verdict reason was given.
	Reasons map[string]int `json:"reasons,omitempty"`
}

// ComputeScenarioStats aggregates verdicts that all belong to the same scenario.
func ComputeScenarioStats(id string, verdicts []models.Verdict) ScenarioStats {
	s := ScenarioStats{ScenarioID: id, Trials: len(verdicts)}
	if len(verdicts) == 0 {
		return s
	}

	latencies := make([]int, 0, len(verdicts))
	costs := make([]int, 0, len(verdicts))
	s.Reasons = map[string]int{}
	for _, v := range verdicts {
		if v.Success {
			s.Passed++
		}
		latencies = append(latencies, v.Latency)
		costs = append(costs, v.Cost)
		s.Reasons[v.Reason]++
	}

	s.PassRate = float64(s.Passed) / float64(s.Trials)
	s.Flaky = IsFlaky(s.PassRate)
	s.MeanLatency = Mean(latencies)
	s.MeanCost = Mean(costs)
	return s
}

// ByScenario regroups per-run results into per-scenario verdict lists,
// in the scenario order of the first result.
func ByScenario(results []models.LevelResult) ([]string, map[string][]models.Verdict) {
	var order []string
	grouped := map[string][]models.Verdict{}
	for _, r := range results {
		for _, v := range r.PerScenario {
			if _, seen := grouped[v.ScenarioID]; !seen {
				order = append(order, v.ScenarioID)
			}
			grouped[v.ScenarioID] = append(grouped[v.ScenarioID], v)
		}
	}
	return order, grouped
}
