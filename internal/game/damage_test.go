package game

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/pefman/quantum-battleships/internal/engine"
)

func TestAssessUnknownWithoutAttacks(t *testing.T) {
	calls := 0
	m := NewDamageModel(samplerFunc(func(context.Context, int, float64) (int, error) {
		calls++
		return 0, nil
	}), DefaultSamples)

	for order := 1; order <= 3; order++ {
		d, err := m.Assess(context.Background(), 0, 1/float64(order))
		if err != nil {
			t.Fatalf("Assess returned error: %v", err)
		}
		if d.Known {
			t.Fatalf("order %d: expected unknown damage, got %+v", order, d)
		}
		if d.String() != "?" {
			t.Fatalf("String = %q, want ?", d.String())
		}
	}
	if calls != 0 {
		t.Fatalf("sampler called %d times, want 0", calls)
	}
}

func TestFullRotationIsCertain(t *testing.T) {
	for order := 1; order <= 3; order++ {
		res := 1 / float64(order)
		rot := Rotation(order, res)
		if rot != math.Pi {
			t.Fatalf("order %d: rotation = %v, want π", order, rot)
		}
		if p := Probability(rot); p != 1 {
			t.Fatalf("order %d: probability = %v, want exactly 1", order, p)
		}
		for _, seed := range []int64{0, 1, 2, 77} {
			for _, n := range []int{1, 7, DefaultSamples} {
				d, err := NewDamageModel(engine.NewSeededSampler(seed), n).Assess(context.Background(), order, res)
				if err != nil {
					t.Fatalf("Assess returned error: %v", err)
				}
				if d.Percent != 100 || d.Successes != n {
					t.Fatalf("order %d seed %d n %d: %+v, want 100%%", order, seed, n, d)
				}
			}
		}
	}
}

func TestProbabilityIsMonotonicInAttacks(t *testing.T) {
	for order := 1; order <= 3; order++ {
		prev := -1.0
		for attacks := 0; attacks <= 10; attacks++ {
			p := Probability(Rotation(attacks, 1/float64(order)))
			if p < prev {
				t.Fatalf("order %d: probability fell from %v to %v at %d attacks", order, prev, p, attacks)
			}
			prev = p
		}
		if prev != 1 {
			t.Fatalf("order %d: saturated probability = %v, want 1", order, prev)
		}
	}
}

func TestResilienceOrdering(t *testing.T) {
	first := Rotation(1, 1)
	third := Rotation(1, 1.0/3)
	if math.Abs(first-3*third) > 1e-12 {
		t.Fatalf("rotation(order 1) = %v, want 3 × %v", first, third)
	}
	if Probability(first) <= Probability(third) {
		t.Fatalf("order 1 probability %v not above order 3 probability %v", Probability(first), Probability(third))
	}
	if Probability(Rotation(1, 0.5)) <= Probability(Rotation(1, 1.0/3)) {
		t.Fatal("order 2 should be more fragile than order 3")
	}
}

// TestAssessThirdShipSingleHitMatchesSeededReplay pins the p = 0.25 case to the
// seeded source.
func TestAssessThirdShipSingleHitMatchesSeededReplay(t *testing.T) {
	const seed = int64(2024)
	p := Probability(Rotation(1, 1.0/3))
	if math.Abs(p-0.25) > 1e-12 {
		t.Fatalf("probability = %v, want 0.25", p)
	}

	rng := rand.New(rand.NewSource(seed))
	want := 0
	for i := 0; i < DefaultSamples; i++ {
		if rng.Float64() < p {
			want++
		}
	}
	wantPercent := int(math.Round(100 * float64(want) / DefaultSamples))
	// Recorded once for seed 2024; a change here means the draw order changed.
	const golden, goldenPercent = 242, 24
	if want != golden || wantPercent != goldenPercent {
		t.Fatalf("replayed source gave %d (%d%%), recorded %d (%d%%)", want, wantPercent, golden, goldenPercent)
	}

	d, err := NewDamageModel(engine.NewSeededSampler(seed), DefaultSamples).Assess(context.Background(), 1, 1.0/3)
	if err != nil {
		t.Fatalf("Assess returned error: %v", err)
	}
	if !d.Known || d.Successes != want || d.Percent != wantPercent {
		t.Fatalf("Assess = %+v, want %d successes (%d%%)", d, want, wantPercent)
	}
	if d.Percent < 15 || d.Percent > 35 {
		t.Fatalf("percent = %d, implausible for p=0.25", d.Percent)
	}
}

func TestAssessRejectsInvalidInput(t *testing.T) {
	m := NewDamageModel(engine.NewSeededSampler(1), 16)
	for _, res := range []float64{0, -0.5, 1.5, math.NaN()} {
		if _, err := m.Assess(context.Background(), 1, res); !errors.Is(err, ErrInvalidResilience) {
			t.Fatalf("Assess(res=%v) error = %v, want %v", res, err, ErrInvalidResilience)
		}
	}
	if _, err := m.Assess(context.Background(), -1, 1); !errors.Is(err, ErrInvalidAttackCount) {
		t.Fatalf("Assess(-1) error = %v, want %v", err, ErrInvalidAttackCount)
	}
}

func TestAssessWrapsSamplerFailure(t *testing.T) {
	backend := errors.New("backend offline")
	m := NewDamageModel(samplerFunc(func(context.Context, int, float64) (int, error) {
		return 0, backend
	}), 16)
	_, err := m.Assess(context.Background(), 1, 1)
	if !errors.Is(err, ErrSamplerUnavailable) || !errors.Is(err, backend) {
		t.Fatalf("Assess error = %v, want %v wrapping %v", err, ErrSamplerUnavailable, backend)
	}
}

type samplerFunc func(ctx context.Context, n int, p float64) (int, error)

func (f samplerFunc) Sample(ctx context.Context, n int, p float64) (int, error) {
	return f(ctx, n, p)
}
