package engine

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
)

// cancelCheckEvery is how many trials a worker draws between context checks.
const cancelCheckEvery = 4096

// ParallelSampler splits a request across workers, each drawing from its own
// source. Worker seeds are taken from a master source in worker order, so the
// result is deterministic for a given seed and worker count.
type ParallelSampler struct {
	mu      sync.Mutex
	rng     *rand.Rand
	workers int
}

// NewParallelSampler returns a sampler using up to workers goroutines per call.
// A worker count below one is treated as one.
func NewParallelSampler(seed int64, workers int) *ParallelSampler {
	if workers < 1 {
		workers = 1
	}
	return &ParallelSampler{rng: rand.New(rand.NewSource(seed)), workers: workers}
}

// Workers reports the configured worker count.
func (s *ParallelSampler) Workers() int {
	return s.workers
}

// Sample distributes n trials over the workers and sums their successes.
func (s *ParallelSampler) Sample(ctx context.Context, n int, p float64) (int, error) {
	if err := validate(n, p); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	workers := min(s.workers, n)
	seeds := make([]int64, workers)
	s.mu.Lock()
	for i := range seeds {
		seeds[i] = s.rng.Int63()
	}
	s.mu.Unlock()

	chunk, rem := n/workers, n%workers
	counts := make([]int, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		size := chunk
		if w < rem {
			size++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[w]))
			done := 0
			for done < size {
				if err := gctx.Err(); err != nil {
					return err
				}
				batch := min(cancelCheckEvery, size-done)
				counts[w] += bernoulli(rng, batch, p)
				done += batch
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	return total, nil
}
