package statistics

import (
	"math"
	"math/rand"
	"sort"

	"github.com/Bateristico/agent-architect/internal/metrics"
)

// ConfidenceInterval is a percentile bootstrap interval around a sample mean.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	Mean            float64 `json:"mean"`
	ConfidenceLevel float64 `json:"confidence_level"`
	NumBootstraps   int     `json:"num_bootstraps"`
}

// Width is Upper minus Lower.
func (ci ConfidenceInterval) Width() float64 {
	return ci.Upper - ci.Lower
}

const (
	DefaultBootstrapIterations = 10000
	DefaultConfidenceLevel     = 0.95
)

// Bootstrap resamples with replacement to estimate how stable a mean is.
// The zero value uses the defaults and a non-deterministic seed.
type Bootstrap struct {
	Iterations int
	// Confidence is in (0, 1), e.g. 0.95.
	Confidence float64
	// Seed pins the resampling stream. Negative means non-deterministic; zero is a valid seed.
	Seed int64
}

// NewBootstrap returns a bootstrap with default iterations and confidence.
func NewBootstrap(seed int64) Bootstrap {
	return Bootstrap{Iterations: DefaultBootstrapIterations, Confidence: DefaultConfidenceLevel, Seed: seed}
}

func (b Bootstrap) withDefaults() Bootstrap {
	if b.Iterations <= 0 {
		b.Iterations = DefaultBootstrapIterations
	}
	if b.Confidence <= 0 || b.Confidence >= 1 {
		b.Confidence = DefaultConfidenceLevel
	}
	return b
}

// CI computes the interval for the mean of scores. With fewer than two
// scores the interval collapses onto the mean.
func (b Bootstrap) CI(scores []float64) ConfidenceInterval {
	b = b.withDefaults()
	m := metrics.Mean(scores)
	n := len(scores)
	if n < 2 {
		return ConfidenceInterval{Lower: m, Upper: m, Mean: m, ConfidenceLevel: b.Confidence}
	}

	seed := b.Seed
	if seed < 0 {
		seed = rand.Int63()
	}
	rng := rand.New(rand.NewSource(seed))

	means := make([]float64, b.Iterations)
	sample := make([]float64, n)
	for i := range means {
		for j := range sample {
			sample[j] = scores[rng.Intn(n)]
		}
		means[i] = metrics.Mean(sample)
	}
	sort.Float64s(means)

	alpha := 1.0 - b.Confidence
	lo := int(math.Floor(alpha / 2.0 * float64(b.Iterations)))
	hi := min(int(math.Floor((1.0-alpha/2.0)*float64(b.Iterations))), b.Iterations-1)

	return ConfidenceInterval{
		Lower:           means[lo],
		Upper:           means[hi],
		Mean:            m,
		ConfidenceLevel: b.Confidence,
		NumBootstraps:   b.Iterations,
	}
}

// PairedDiffCI computes the interval for mean(after[i] - before[i]). Both
// samples must come from the same trial seeds; extra trailing values are ignored.
func (b Bootstrap) PairedDiffCI(before, after []float64) ConfidenceInterval {
	n := min(len(before), len(after))
	diffs := make([]float64, n)
	for i := range diffs {
		diffs[i] = after[i] - before[i]
	}
	return b.CI(diffs)
}

// IsSignificant reports whether the interval excludes zero.
func IsSignificant(ci ConfidenceInterval) bool {
	return ci.Lower > 0 || ci.Upper < 0
}

// NormalizedGain is Hake's normalized gain, (post - pre) / (1 - pre), for
// rates in [0, 1]. It is 0 when pre is already at the ceiling or nothing
// changed, and 1 when post reaches the ceiling.
func NormalizedGain(pre, post float64) float64 {
	switch {
	case pre >= 1.0:
		return 0.0
	case post >= 1.0:
		return 1.0
	case math.Abs(post-pre) < 1e-12:
		return 0.0
	}
	return (post - pre) / (1.0 - pre)
}
