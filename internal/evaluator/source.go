package evaluator

import "math/rand"

//go:generate go tool mockgen -source=source.go -destination=mock_source.go -package=evaluator

// Source is the random stream an evaluation draws from. Each probabilistic
// branch takes one independent draw and succeeds when the draw is below its
// threshold. *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a seeded stream. A negative seed uses a non-deterministic seed.
func NewSource(seed int64) Source {
	if seed < 0 {
		seed = rand.Int63()
	}
	return rand.New(rand.NewSource(seed))
}

func chance(src Source, p float64) (bool, float64) {
	draw := src.Float64()
	return draw < p, draw
}
