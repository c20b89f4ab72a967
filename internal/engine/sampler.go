// Package engine implements the measurement backends used to turn a
// destruction probability into a sampled outcome count.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

// ErrInvalidSampleCount indicates a request for zero or fewer samples.
var ErrInvalidSampleCount = errors.New("sample count must be positive")

// ErrInvalidProbability indicates a success probability outside [0, 1].
var ErrInvalidProbability = errors.New("probability must be between 0 and 1")

// Sampler draws n independent Bernoulli trials with success probability p
// and reports how many succeeded.
//
// Any backend that can answer "given n and p, return successes" satisfies
// Sampler; the in-process implementations below are the defaults.
type Sampler interface {
	Sample(ctx context.Context, n int, p float64) (int, error)
}

// SeededSampler draws every trial sequentially from one seeded source.
//
// # Determinism
//
// Two SeededSamplers built with the same seed return the same sequence of
// results for the same sequence of Sample calls.
type SeededSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededSampler returns a sampler reading from rand.NewSource(seed).
func NewSeededSampler(seed int64) *SeededSampler {
	return &SeededSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample counts the trials whose uniform draw falls below p.
func (s *SeededSampler) Sample(ctx context.Context, n int, p float64) (int, error) {
	if err := validate(n, p); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return bernoulli(s.rng, n, p), nil
}

func validate(n int, p float64) error {
	if n <= 0 {
		return ErrInvalidSampleCount
	}
	// NaN fails both comparisons, so test the accepted range instead.
	if !(p >= 0 && p <= 1) {
		return ErrInvalidProbability
	}
	return nil
}

// bernoulli draws n trials from rng. Float64 is in [0, 1), so p == 1 always
// succeeds and p == 0 never does.
func bernoulli(rng *rand.Rand, n int, p float64) int {
	successes := 0
	for i := 0; i < n; i++ {
		if rng.Float64() < p {
			successes++
		}
	}
	return successes
}
