// Package simulate provides Monte Carlo calibration harnesses for the
// economy's probability tables: empirical rarity hit rates for the gacha
// distribution and empirical success ratios for the fusion roll.
package simulate

import (
	"math"
	"sort"

	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/random"
)

// Stats summarizes integer samples from repeated trials.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Raw samples if the caller needs histograms/exports.
	Samples []int `json:"-"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)
	stddev := math.Sqrt(variance)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		if n == 1 || p <= 0 {
			return float64(cp[0])
		}
		if p >= 1 {
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  stddev,
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// RateReport compares expected and observed per-rarity hit rates over a
// sample of weighted draws.
type RateReport struct {
	Draws    int
	Expected map[catalog.Rarity]float64
	Observed map[catalog.Rarity]float64
}

// DrawRates performs n weighted draws over the whole catalog and reports
// the per-rarity hit rates next to the rates the weights imply.
func DrawRates(cat *catalog.Catalog, n int, src random.Source) (RateReport, error) {
	report := RateReport{
		Draws:    n,
		Expected: make(map[catalog.Rarity]float64),
		Observed: make(map[catalog.Rarity]float64),
	}
	total := cat.TotalWeight()
	for _, r := range catalog.Rarities() {
		report.Expected[r] = cat.RarityWeight(r) / total
	}

	templates := cat.All()
	weights := make([]float64, len(templates))
	for i, t := range templates {
		weights[i] = t.DrawWeight
	}
	hits := make(map[catalog.Rarity]int)
	for i := 0; i < n; i++ {
		idx, err := random.WeightedIndex(weights, src)
		if err != nil {
			return RateReport{}, err
		}
		hits[templates[idx].Rarity]++
	}
	for r, c := range hits {
		report.Observed[r] = float64(c) / float64(n)
	}
	return report, nil
}

// FusionSuccessRate rolls the fusion Bernoulli n times and returns the
// observed success ratio.
func FusionSuccessRate(p float64, n int, src random.Source) (float64, error) {
	hits := 0
	for i := 0; i < n; i++ {
		ok, err := random.Bernoulli(p, src)
		if err != nil {
			return 0, err
		}
		if ok {
			hits++
		}
	}
	return float64(hits) / float64(n), nil
}

// PullsUntilRarity measures, over repeated trials, how many weighted draws
// it takes until the first hit of the target rarity.
func PullsUntilRarity(cat *catalog.Catalog, target catalog.Rarity, trials int, src random.Source) (Stats, error) {
	if trials <= 0 {
		return Stats{}, nil
	}
	templates := cat.All()
	weights := make([]float64, len(templates))
	for i, t := range templates {
		weights[i] = t.DrawWeight
	}
	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		draws := 0
		for {
			draws++
			idx, err := random.WeightedIndex(weights, src)
			if err != nil {
				return Stats{}, err
			}
			if templates[idx].Rarity == target {
				break
			}
		}
		samples[i] = draws
	}
	return calcStats(samples), nil
}
