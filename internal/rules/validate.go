package rules

import (
	"fmt"
	"strings"

	"github.com/studypets/economy/internal/catalog"
)

// Validate checks semantic constraints of a normalized rule set.
func Validate(r Rules) error {
	var errs []string

	// pulls
	if r.SinglePullCost <= 0 {
		errs = append(errs, "pulls.single_cost must be >= 1")
	}
	if r.TenPullCost <= 0 {
		errs = append(errs, "pulls.ten_cost must be >= 1")
	}
	if r.SinglePullCost > 0 && r.TenPullCost > 0 && r.TenPullCost >= 10*r.SinglePullCost {
		errs = append(errs, "pulls.ten_cost must be below 10x single_cost")
	}

	// fusion success rates: one per fusable rarity, in (0,1), strictly
	// decreasing as rarity increases
	var prev float64 = 1
	for _, rar := range catalog.Rarities() {
		if rar == catalog.RarityLegendary {
			if _, ok := r.FusionSuccess[rar]; ok {
				errs = append(errs, "fusion.success_rates must not include legendary")
			}
			continue
		}
		p, ok := r.FusionSuccess[rar]
		if !ok {
			errs = append(errs, fmt.Sprintf("fusion.success_rates.%s is required", rar))
			continue
		}
		if !(p > 0 && p < 1) {
			errs = append(errs, fmt.Sprintf("fusion.success_rates.%s must be in (0,1)", rar))
		}
		if p >= prev {
			errs = append(errs, fmt.Sprintf("fusion.success_rates.%s must be below the previous rarity's rate", rar))
		}
		prev = p
	}
	for rar := range r.FusionSuccess {
		if !rar.Valid() {
			errs = append(errs, fmt.Sprintf("fusion.success_rates has unknown rarity %q", rar))
		}
	}

	if r.OutputPick != OutputPickWeighted && r.OutputPick != OutputPickUniform {
		errs = append(errs, "fusion.output_pick must be one of: weighted, uniform")
	}

	// evolution thresholds
	for tier := 1; tier < catalog.TierCount; tier++ {
		need, ok := r.FoodToEvolve[tier]
		if !ok {
			errs = append(errs, fmt.Sprintf("evolution threshold for tier %d is required", tier))
		} else if need <= 0 {
			errs = append(errs, fmt.Sprintf("evolution threshold for tier %d must be >= 1", tier))
		}
	}

	// exchange
	if r.CoinsPerFood <= 0 {
		errs = append(errs, "exchange.coins_per_food must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
