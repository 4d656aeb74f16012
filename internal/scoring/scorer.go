// Package scoring implements the Quality Scorer (C8): a pure function of
// loop contents and the valuation oracle that produces efficiency,
// fairness, and a weighted composite quality score.
package scoring

import (
	"context"
	"math"

	"github.com/nftloop/tradeloop-engine/internal/valuation"
	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// epsilon avoids divide-by-zero when every step's value is exactly zero.
const epsilon = 1e-9

// ReliabilityHint tells the scorer whether any step in the candidate loop
// relies on a just-expanded collection want that is close to its
// capacity — the one signal the scorer needs from outside the loop's own
// contents (§4.8 Reliability).
type ReliabilityHint func(step models.Step) bool

// Result is the scored breakdown for one candidate loop.
type Result struct {
	Efficiency   float64
	Fairness     float64
	Reliability  float64
	QualityScore float64
	Accepted     bool
}

// Score computes Result for steps under cfg, consulting resolver for each
// step's NFT valuation and hint for the reliability signal. Scoring never
// mutates the loop or the tenant graph — a pure function of its inputs
// (§4.8 "Scoring is a pure function of loop contents and the valuation
// oracle").
func Score(ctx context.Context, steps []models.Step, cfg models.TenantConfig, resolver valuation.Resolver, hint ReliabilityHint) (Result, error) {
	efficiency := Efficiency(len(steps), cfg.MaxDepth)

	values := make([]float64, len(steps))
	for i, s := range steps {
		v, err := resolver.ValueOf(ctx, s.NFT)
		if err != nil {
			return Result{}, err
		}
		values[i] = v
	}
	fairness := Fairness(values)
	reliability := Reliability(steps, hint)

	composite := cfg.Weights.Efficiency*efficiency +
		cfg.Weights.Fairness*fairness +
		cfg.Weights.Reliability*reliability

	return Result{
		Efficiency:   efficiency,
		Fairness:     fairness,
		Reliability:  reliability,
		QualityScore: composite,
		Accepted:     composite >= cfg.QualityThreshold,
	}, nil
}

// Efficiency implements §4.8: 1 − (N−2)/(maxDepth−1), clamped to [0,1].
// Shorter loops score higher; a 2-cycle scores 1.0 and a loop of length
// maxDepth scores near 0 (Testable Property 9: score monotonicity in
// depth).
func Efficiency(participantCount, maxDepth int) float64 {
	if maxDepth <= 1 {
		return 0
	}
	e := 1 - float64(participantCount-2)/float64(maxDepth-1)
	return clamp01(e)
}

// Fairness implements §4.8: 1 − (max−min)/max(mean,ε), clamped to [0,1].
func Fairness(values []float64) float64 {
	if len(values) == 0 {
		return 1
	}
	min, max, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(values))
	denom := math.Max(mean, epsilon)
	f := 1 - (max-min)/denom
	return clamp01(f)
}

// Reliability implements §4.8: 1 if no step relies on a just-expanded
// collection want close to its capacity, else 0.8.
func Reliability(steps []models.Step, hint ReliabilityHint) float64 {
	if hint == nil {
		return 1
	}
	for _, s := range steps {
		if hint(s) {
			return 0.8
		}
	}
	return 1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
