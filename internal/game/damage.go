package game

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/pefman/quantum-battleships/internal/engine"
)

// Damage is the measured state of one ship after a round.
type Damage struct {
	// Known is false when the ship's position has never been attacked; no
	// samples are drawn in that case.
	Known       bool    `json:"known"`
	Attacks     int     `json:"attacks"`
	Rotation    float64 `json:"rotation"`
	Probability float64 `json:"probability"`
	Samples     int     `json:"samples"`
	Successes   int     `json:"successes"`
	Percent     int     `json:"percent"`
}

// String renders the percentage, or "?" when nothing is known.
func (d Damage) String() string {
	if !d.Known {
		return "?"
	}
	return strconv.Itoa(d.Percent) + "%"
}

// Rotation returns the accumulated flip angle for attacks landing on a ship
// with the given resilience. The angle saturates at π: a fully flipped ship
// stays flipped.
func Rotation(attacks int, resilience float64) float64 {
	r := float64(attacks) * resilience * math.Pi
	if r >= math.Pi {
		return math.Pi
	}
	return r
}

// Probability returns sin²(rotation/2), the chance that one measurement finds
// the ship destroyed. A full rotation yields exactly 1.
func Probability(rotation float64) float64 {
	if rotation >= math.Pi {
		return 1
	}
	if rotation <= 0 {
		return 0
	}
	s := math.Sin(rotation / 2)
	return s * s
}

// DamageModel turns accumulated attacks into sampled damage.
type DamageModel struct {
	sampler engine.Sampler
	samples int
}

// NewDamageModel returns a model drawing samples measurements per assessment.
func NewDamageModel(sampler engine.Sampler, samples int) *DamageModel {
	return &DamageModel{sampler: sampler, samples: samples}
}

// Samples reports the per-ship measurement count.
func (m *DamageModel) Samples() int {
	return m.samples
}

// Assess measures a ship with the given resilience that has taken attacks.
//
// Zero attacks yield an unknown Damage without sampling. Any positive count
// draws the full sample set, however small the probability.
func (m *DamageModel) Assess(ctx context.Context, attacks int, resilience float64) (Damage, error) {
	if !(resilience > 0 && resilience <= 1) {
		return Damage{}, fmt.Errorf("%w: %v", ErrInvalidResilience, resilience)
	}
	if attacks < 0 {
		return Damage{}, fmt.Errorf("%w: %d", ErrInvalidAttackCount, attacks)
	}
	if attacks == 0 {
		return Damage{}, nil
	}

	rotation := Rotation(attacks, resilience)
	p := Probability(rotation)
	successes, err := m.sampler.Sample(ctx, m.samples, p)
	if err != nil {
		return Damage{}, fmt.Errorf("%w: %w", ErrSamplerUnavailable, err)
	}

	return Damage{
		Known:       true,
		Attacks:     attacks,
		Rotation:    rotation,
		Probability: p,
		Samples:     m.samples,
		Successes:   successes,
		Percent:     int(math.Round(100 * float64(successes) / float64(m.samples))),
	}, nil
}
