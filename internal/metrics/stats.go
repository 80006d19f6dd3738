package metrics

import (
	"math"
	"slices"
)

// Number is any sample type the estimators average: totals, pass rates,
// latencies and costs.
type Number interface {
	~int | ~int64 | ~float64
}

// Mean is the arithmetic mean, 0 for no samples.
func Mean[T Number](values []T) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation, 0 for fewer than two samples.
func StdDev[T Number](values []T) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := float64(v) - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// Percentile returns the p-th percentile (0-100) by nearest rank without
// reordering values. Returns 0 for no samples.
func Percentile[T Number](values []T, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return nearestRank(slices.Sorted(slices.Values(values)), p)
}

func nearestRank[T Number](sorted []T, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return float64(sorted[rank-1])
}

// Distribution describes how trial totals spread around their mean.
type Distribution struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	P10    float64 `json:"p10"`
	Median float64 `json:"median"`
	P90    float64 `json:"p90"`
	Max    float64 `json:"max"`
}

// Describe summarizes values in one sort.
func Describe[T Number](values []T) Distribution {
	if len(values) == 0 {
		return Distribution{}
	}
	sorted := slices.Sorted(slices.Values(values))
	return Distribution{
		Mean:   Mean(values),
		StdDev: StdDev(values),
		Min:    float64(sorted[0]),
		P10:    nearestRank(sorted, 10),
		Median: nearestRank(sorted, 50),
		P90:    nearestRank(sorted, 90),
		Max:    float64(sorted[len(sorted)-1]),
	}
}

// IsFlaky reports a pass rate strictly between 0 and 1: the scenario
// sometimes passes and sometimes fails.
func IsFlaky(passRate float64) bool {
	return passRate > 0 && passRate < 1
}
