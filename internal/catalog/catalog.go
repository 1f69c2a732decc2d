// Package catalog holds the read-only registry of creature templates.
// It is loaded once per session and never mutated afterwards.
package catalog

import (
	"fmt"
	"strings"

	"github.com/studypets/economy/internal/apperrors"
)

// TierCount is the number of evolution tiers a creature moves through.
const TierCount = 3

// Template is one immutable catalog entry. DrawWeight biases random
// selection only; it is never displayed.
type Template struct {
	ID         string
	Name       string
	Rarity     Rarity
	DrawWeight float64
	Artwork    [TierCount]string // artwork reference per tier, index = tier-1
}

// Catalog indexes templates by id and rarity. Iteration order follows the
// order templates were declared in, which keeps downstream batching
// deterministic.
type Catalog struct {
	templates   []Template
	byID        map[string]Template
	byRarity    map[Rarity][]Template
	total       float64
	rarityTotal map[Rarity]float64
}

// New builds and validates a catalog from a template list.
func New(templates []Template) (*Catalog, error) {
	var errs []string
	c := &Catalog{
		byID:        make(map[string]Template, len(templates)),
		byRarity:    make(map[Rarity][]Template),
		rarityTotal: make(map[Rarity]float64),
	}
	if len(templates) == 0 {
		errs = append(errs, "catalog has no templates")
	}
	for i, t := range templates {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("templates[%d]: id is empty", i))
			continue
		}
		if _, dup := c.byID[t.ID]; dup {
			errs = append(errs, fmt.Sprintf("templates[%d]: duplicate id %q", i, t.ID))
			continue
		}
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("template %q: name is empty", t.ID))
		}
		if !t.Rarity.Valid() {
			errs = append(errs, fmt.Sprintf("template %q: unknown rarity %q", t.ID, t.Rarity))
		}
		if !(t.DrawWeight > 0) {
			errs = append(errs, fmt.Sprintf("template %q: draw_weight must be > 0", t.ID))
		}
		for tier, ref := range t.Artwork {
			if ref == "" {
				errs = append(errs, fmt.Sprintf("template %q: missing artwork for tier %d", t.ID, tier+1))
			}
		}
		c.templates = append(c.templates, t)
		c.byID[t.ID] = t
		c.byRarity[t.Rarity] = append(c.byRarity[t.Rarity], t)
		c.total += t.DrawWeight
		c.rarityTotal[t.Rarity] += t.DrawWeight
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog validation failed: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

// ByID returns the template with the given id.
func (c *Catalog) ByID(id string) (Template, error) {
	t, ok := c.byID[id]
	if !ok {
		return Template{}, apperrors.Newf(apperrors.CodeNotFound, "template %q not found", id).WithMeta("template_id", id)
	}
	return t, nil
}

// All returns every template in declaration order.
func (c *Catalog) All() []Template {
	return append([]Template(nil), c.templates...)
}

// ByRarity returns all templates of the given rarity in declaration order.
func (c *Catalog) ByRarity(r Rarity) []Template {
	return append([]Template(nil), c.byRarity[r]...)
}

// TotalWeight is the sum of draw weights over the whole catalog.
func (c *Catalog) TotalWeight() float64 {
	return c.total
}

// RarityWeight is the sum of draw weights over one rarity slice.
func (c *Catalog) RarityWeight(r Rarity) float64 {
	return c.rarityTotal[r]
}
