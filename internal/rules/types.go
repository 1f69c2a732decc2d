// Package rules loads the economy rule tables: pull costs, fusion success
// rates, evolution food thresholds and the coin/food exchange rate. Tables
// are loaded once and treated as immutable for the duration of a session.
package rules

import "github.com/studypets/economy/internal/catalog"

// OutputPick selects how a successful fusion chooses its output template
// within the next rarity up.
type OutputPick string

const (
	// OutputPickWeighted reuses the gacha draw weights.
	OutputPickWeighted OutputPick = "weighted"
	// OutputPickUniform picks uniformly within the rarity slice.
	OutputPickUniform OutputPick = "uniform"
)

// rawRules mirrors the YAML schema; pointer fields distinguish "absent"
// from zero so override files can be sparse.
type rawRules struct {
	Version   string        `yaml:"version"`
	Pulls     *rawPulls     `yaml:"pulls,omitempty"`
	Fusion    *rawFusion    `yaml:"fusion,omitempty"`
	Evolution *rawEvolution `yaml:"evolution,omitempty"`
	Exchange  *rawExchange  `yaml:"exchange,omitempty"`
	Notes     string        `yaml:"notes,omitempty"`
}

type rawPulls struct {
	SingleCost *int `yaml:"single_cost"`
	TenCost    *int `yaml:"ten_cost"`
}

type rawFusion struct {
	SuccessRates map[string]float64 `yaml:"success_rates"`
	OutputPick   string             `yaml:"output_pick,omitempty"`
}

type rawEvolution struct {
	FoodToTier2 *int `yaml:"food_to_tier2"`
	FoodToTier3 *int `yaml:"food_to_tier3"`
}

type rawExchange struct {
	CoinsPerFood *int `yaml:"coins_per_food"`
}

// Rules is the normalized, immutable table set passed into the engines at
// construction.
type Rules struct {
	Version        string
	SinglePullCost int
	TenPullCost    int
	// FusionSuccess keys every fusable rarity (all but legendary).
	FusionSuccess map[catalog.Rarity]float64
	OutputPick    OutputPick
	// FoodToEvolve maps a unit's current tier to the food required to
	// leave it. Tiers 1 and 2 have entries; tier 3 is the cap.
	FoodToEvolve map[int]int
	CoinsPerFood int
}

// FoodRequired returns the food threshold to evolve out of the given tier.
func (r Rules) FoodRequired(tier int) (int, bool) {
	need, ok := r.FoodToEvolve[tier]
	return need, ok
}

// SuccessRate returns the fusion success probability for the given rarity.
func (r Rules) SuccessRate(rar catalog.Rarity) (float64, bool) {
	p, ok := r.FusionSuccess[rar]
	return p, ok
}
