package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rawCatalog mirrors the YAML schema before normalization.
type rawCatalog struct {
	Version   string        `yaml:"version"`
	Templates []rawTemplate `yaml:"templates"`
}

type rawTemplate struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Rarity     string   `yaml:"rarity"`
	DrawWeight float64  `yaml:"draw_weight"`
	Artwork    []string `yaml:"artwork"`
}

// Load reads and validates a catalog YAML file.
func Load(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(b)
}

// Parse builds a catalog from YAML bytes.
func Parse(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	templates := make([]Template, 0, len(raw.Templates))
	for _, rt := range raw.Templates {
		t := Template{
			ID:         rt.ID,
			Name:       rt.Name,
			Rarity:     Rarity(rt.Rarity),
			DrawWeight: rt.DrawWeight,
		}
		if len(rt.Artwork) != TierCount {
			return nil, fmt.Errorf("parse catalog: template %q: expected %d artwork refs, got %d", rt.ID, TierCount, len(rt.Artwork))
		}
		copy(t.Artwork[:], rt.Artwork)
		templates = append(templates, t)
	}
	return New(templates)
}
