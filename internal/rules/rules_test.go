package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/studypets/economy/internal/catalog"
)

const defaultYAML = `
version: "1"
pulls:
  single_cost: 100
  ten_cost: 900
fusion:
  success_rates:
    common: 0.6
    rare: 0.45
    epic: 0.3
evolution:
  food_to_tier2: 20
  food_to_tier3: 50
exchange:
  coins_per_food: 10
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func validRules() Rules {
	return Rules{
		Version:        "1",
		SinglePullCost: 100,
		TenPullCost:    900,
		FusionSuccess: map[catalog.Rarity]float64{
			catalog.RarityCommon: 0.6,
			catalog.RarityRare:   0.45,
			catalog.RarityEpic:   0.3,
		},
		OutputPick:   OutputPickWeighted,
		FoodToEvolve: map[int]int{1: 20, 2: 50},
		CoinsPerFood: 10,
	}
}

func TestLoadDefault(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "rules.yaml", defaultYAML)

	l := NewLoader(def, "")
	r, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if r.SinglePullCost != 100 || r.TenPullCost != 900 {
		t.Fatalf("pull costs = %d/%d", r.SinglePullCost, r.TenPullCost)
	}
	if p, _ := r.SuccessRate(catalog.RarityRare); p != 0.45 {
		t.Fatalf("rare rate = %f", p)
	}
	if r.OutputPick != OutputPickWeighted {
		t.Fatalf("output pick default = %q", r.OutputPick)
	}
	if need, ok := r.FoodRequired(2); !ok || need != 50 {
		t.Fatalf("tier 2 threshold = %d, %v", need, ok)
	}
}

func TestLoadOverrideWins(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "rules.yaml", defaultYAML)
	over := writeFile(t, dir, "override.yaml", `
pulls:
  ten_cost: 850
fusion:
  output_pick: uniform
`)

	l := NewLoader(def, over)
	r, err := l.Load()
	if err != nil {
		t.Fatal(err)
	}
	if r.TenPullCost != 850 {
		t.Fatalf("ten cost = %d, override should win", r.TenPullCost)
	}
	if r.SinglePullCost != 100 {
		t.Fatalf("single cost = %d, default should survive", r.SinglePullCost)
	}
	if r.OutputPick != OutputPickUniform {
		t.Fatalf("output pick = %q", r.OutputPick)
	}
}

func TestLoadMissingOverrideIsFine(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "rules.yaml", defaultYAML)

	l := NewLoader(def, filepath.Join(dir, "absent.yaml"))
	if _, err := l.Load(); err != nil {
		t.Fatalf("missing override file should not error: %v", err)
	}
	if got := len(l.Paths()); got != 2 {
		t.Fatalf("Paths() = %d entries", got)
	}
}

func TestLoadCaches(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "rules.yaml", defaultYAML)

	l := NewLoader(def, "")
	if _, err := l.Load(); err != nil {
		t.Fatal(err)
	}
	// break the file on disk; the cache must still serve
	writeFile(t, dir, "rules.yaml", "pulls: {single_cost: -1}")
	if _, err := l.Load(); err != nil {
		t.Fatalf("cached load should not re-read: %v", err)
	}
	l.Invalidate()
	if _, err := l.Load(); err == nil {
		t.Fatalf("invalidated load should see the broken file")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Rules)
		want   string
	}{
		{"zero single cost", func(r *Rules) { r.SinglePullCost = 0 }, "single_cost"},
		{"no bulk discount", func(r *Rules) { r.TenPullCost = 1000 }, "below 10x"},
		{"missing rate", func(r *Rules) { delete(r.FusionSuccess, catalog.RarityEpic) }, "epic is required"},
		{"rate out of range", func(r *Rules) { r.FusionSuccess[catalog.RarityCommon] = 1.2 }, "(0,1)"},
		{"rates not decreasing", func(r *Rules) { r.FusionSuccess[catalog.RarityRare] = 0.7 }, "below the previous"},
		{"legendary rate present", func(r *Rules) { r.FusionSuccess[catalog.RarityLegendary] = 0.1 }, "not include legendary"},
		{"unknown rarity key", func(r *Rules) { r.FusionSuccess["mythic"] = 0.1 }, "unknown rarity"},
		{"bad output pick", func(r *Rules) { r.OutputPick = "lowest" }, "output_pick"},
		{"missing threshold", func(r *Rules) { delete(r.FoodToEvolve, 2) }, "tier 2 is required"},
		{"zero threshold", func(r *Rules) { r.FoodToEvolve[1] = 0 }, "tier 1 must be >= 1"},
		{"zero exchange rate", func(r *Rules) { r.CoinsPerFood = 0 }, "coins_per_food"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := validRules()
			tc.mutate(&r)
			err := Validate(r)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}

	if err := Validate(validRules()); err != nil {
		t.Fatalf("valid rules rejected: %v", err)
	}
}
