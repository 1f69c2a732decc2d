package random

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidProb = errors.New("invalid probability p; must be 0..1")

func validateProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrInvalidProb
	}
	if p < 0 || p > 1 {
		return ErrInvalidProb
	}
	return nil
}

// Bernoulli draws once under probability p and reports whether it hit.
// p <= 0 never hits, p >= 1 always hits, otherwise src.Float64() < p.
func Bernoulli(p float64, src Source) (bool, error) {
	if err := validateProb(p); err != nil {
		return false, err
	}
	if p <= 0 {
		return false, nil
	}
	if p >= 1 {
		return true, nil
	}
	if src == nil {
		src = Default()
	}
	return src.Float64() < p, nil
}

// WeightedIndex selects an index with probability weights[i] / sum(weights).
// Every weight must be a positive finite number.
func WeightedIndex(weights []float64, src Source) (int, error) {
	if len(weights) == 0 {
		return 0, errors.New("weighted pick: no candidates")
	}
	var total float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
			return 0, fmt.Errorf("weighted pick: invalid weight %v at index %d", w, i)
		}
		total += w
	}
	if src == nil {
		src = Default()
	}
	target := src.Float64() * total
	var acc float64
	for i, w := range weights {
		acc += w
		if target < acc {
			return i, nil
		}
	}
	// target landed on the accumulated rounding edge
	return len(weights) - 1, nil
}
