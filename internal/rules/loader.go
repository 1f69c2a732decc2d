package rules

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/studypets/economy/internal/catalog"
	"gopkg.in/yaml.v3"
)

// Loader reads rule YAML files and merges default ← override.
type Loader struct {
	defaultPath  string
	overridePath string // optional; empty means default only

	mu    sync.RWMutex
	cache *Rules
}

// NewLoader creates a rules loader. overridePath may be empty.
func NewLoader(defaultPath, overridePath string) *Loader {
	return &Loader{defaultPath: defaultPath, overridePath: overridePath}
}

// Paths returns the files the loader reads, for change watching.
func (l *Loader) Paths() []string {
	paths := []string{l.defaultPath}
	if l.overridePath != "" {
		paths = append(paths, l.overridePath)
	}
	return paths
}

// Load returns the merged, validated rules. Results are cached until
// Invalidate is called.
func (l *Loader) Load() (Rules, error) {
	l.mu.RLock()
	if l.cache != nil {
		r := *l.cache
		l.mu.RUnlock()
		return r, nil
	}
	l.mu.RUnlock()

	defRaw, err := readYAML(l.defaultPath)
	if err != nil {
		return Rules{}, fmt.Errorf("read default rules: %w", err)
	}
	var overRaw rawRules
	if l.overridePath != "" {
		overRaw, err = readYAML(l.overridePath) // override file is optional on disk
		if err != nil {
			return Rules{}, fmt.Errorf("read override rules: %w", err)
		}
	}

	merged := mergeRaw(defRaw, overRaw)
	r, err := normalize(merged)
	if err != nil {
		return Rules{}, err
	}
	if err := Validate(r); err != nil {
		return Rules{}, err
	}

	l.mu.Lock()
	l.cache = &r
	l.mu.Unlock()
	return r, nil
}

// Invalidate clears the cache. Call after a change watcher fires; the next
// session picks up the new tables.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = nil
}

// readYAML loads a YAML file into rawRules. A missing file returns a zero
// config without error so sparse override files can be absent entirely.
func readYAML(path string) (rawRules, error) {
	var raw rawRules
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rawRules{}, nil
		}
		return rawRules{}, err
	}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return rawRules{}, err
	}
	return raw, nil
}

// mergeRaw overlays 'over' on top of 'base': fields set in the override win.
func mergeRaw(base, over rawRules) rawRules {
	out := base

	if over.Version != "" {
		out.Version = over.Version
	}
	if over.Notes != "" {
		out.Notes = over.Notes
	}

	switch {
	case out.Pulls == nil && over.Pulls != nil:
		c := *over.Pulls
		out.Pulls = &c
	case out.Pulls != nil && over.Pulls != nil:
		if over.Pulls.SingleCost != nil {
			out.Pulls.SingleCost = over.Pulls.SingleCost
		}
		if over.Pulls.TenCost != nil {
			out.Pulls.TenCost = over.Pulls.TenCost
		}
	}

	switch {
	case out.Fusion == nil && over.Fusion != nil:
		c := *over.Fusion
		out.Fusion = &c
	case out.Fusion != nil && over.Fusion != nil:
		if len(over.Fusion.SuccessRates) > 0 {
			out.Fusion.SuccessRates = over.Fusion.SuccessRates
		}
		if over.Fusion.OutputPick != "" {
			out.Fusion.OutputPick = over.Fusion.OutputPick
		}
	}

	switch {
	case out.Evolution == nil && over.Evolution != nil:
		c := *over.Evolution
		out.Evolution = &c
	case out.Evolution != nil && over.Evolution != nil:
		if over.Evolution.FoodToTier2 != nil {
			out.Evolution.FoodToTier2 = over.Evolution.FoodToTier2
		}
		if over.Evolution.FoodToTier3 != nil {
			out.Evolution.FoodToTier3 = over.Evolution.FoodToTier3
		}
	}

	switch {
	case out.Exchange == nil && over.Exchange != nil:
		c := *over.Exchange
		out.Exchange = &c
	case out.Exchange != nil && over.Exchange != nil:
		if over.Exchange.CoinsPerFood != nil {
			out.Exchange.CoinsPerFood = over.Exchange.CoinsPerFood
		}
	}

	return out
}

// normalize converts the raw schema into the engine-facing Rules value.
func normalize(raw rawRules) (Rules, error) {
	r := Rules{
		Version:       raw.Version,
		OutputPick:    OutputPickWeighted,
		FusionSuccess: make(map[catalog.Rarity]float64),
		FoodToEvolve:  make(map[int]int),
	}
	if raw.Pulls != nil {
		if raw.Pulls.SingleCost != nil {
			r.SinglePullCost = *raw.Pulls.SingleCost
		}
		if raw.Pulls.TenCost != nil {
			r.TenPullCost = *raw.Pulls.TenCost
		}
	}
	if raw.Fusion != nil {
		for k, v := range raw.Fusion.SuccessRates {
			r.FusionSuccess[catalog.Rarity(k)] = v
		}
		if raw.Fusion.OutputPick != "" {
			r.OutputPick = OutputPick(raw.Fusion.OutputPick)
		}
	}
	if raw.Evolution != nil {
		if raw.Evolution.FoodToTier2 != nil {
			r.FoodToEvolve[1] = *raw.Evolution.FoodToTier2
		}
		if raw.Evolution.FoodToTier3 != nil {
			r.FoodToEvolve[2] = *raw.Evolution.FoodToTier3
		}
	}
	if raw.Exchange != nil && raw.Exchange.CoinsPerFood != nil {
		r.CoinsPerFood = *raw.Exchange.CoinsPerFood
	}
	return r, nil
}
