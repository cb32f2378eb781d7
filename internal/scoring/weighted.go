// Package scoring aggregates per-scenario evaluation scores into a single
// run-level number. Pure computation, no I/O.
package scoring

import (
	"errors"
	"math"
)

var ErrNoWeights = errors.New("total weight must be positive")

// Weighted pairs a scenario's composite score with its configured weight.
type Weighted struct {
	Score  float64
	Weight int
}

// WeightedAverage returns sum(score*weight)/sum(weight) rounded to two
// decimal places. The result is order-independent and, for a single pair,
// equals that pair's score regardless of weight.
func WeightedAverage(pairs []Weighted) (float64, error) {
	totalWeight := 0
	weightedSum := 0.0
	for _, p := range pairs {
		totalWeight += p.Weight
		weightedSum += p.Score * float64(p.Weight)
	}
	if totalWeight <= 0 {
		return 0, ErrNoWeights
	}
	return round2(weightedSum / float64(totalWeight)), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
