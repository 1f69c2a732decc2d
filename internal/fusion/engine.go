// Package fusion implements the combine protocol: four same-rarity surplus
// copies are consumed for a chance at one next-rarity unit. A failed fusion
// is never a total loss; one of the four copies is returned to inventory.
package fusion

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/ledger"
	"github.com/studypets/economy/internal/random"
	"github.com/studypets/economy/internal/rules"
)

// InputSize is the number of surplus copies one fusion consumes.
const InputSize = 4

// Result is the authoritative outcome of one fusion.
type Result struct {
	Upgraded     bool
	TemplateID   string // output template on success, returned template on failure
	ResultRarity catalog.Rarity
	// IsNew is true iff the student had no owned unit for the result
	// template before the call. Always false on failure: the returned
	// template is one of the inputs and its anchor copy remains owned.
	IsNew bool
	Units []ledger.Unit // units updated or created by the transaction
}

// Engine performs fusions. A single-flight guard rejects a second
// submission while one is outstanding; QuickCombine holds the guard for
// the whole batch.
type Engine struct {
	cat  *catalog.Catalog
	led  ledger.Service
	r    rules.Rules
	src  random.Source
	busy atomic.Bool
}

// New creates a fusion engine. A nil source falls back to the crypto default.
func New(cat *catalog.Catalog, led ledger.Service, r rules.Rules, src random.Source) *Engine {
	if src == nil {
		src = random.Default()
	}
	return &Engine{cat: cat, led: led, r: r, src: src}
}

// Fuse validates the selection, rolls success, and submits the consumption
// plus creation/return as one atomic ledger transaction.
func (e *Engine) Fuse(ctx context.Context, ownerID string, selection []ledger.UnitRef) (Result, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, apperrors.New(apperrors.CodeOperationPending, "a fusion is already in flight")
	}
	defer e.busy.Store(false)
	return e.fuse(ctx, ownerID, selection)
}

// fuse is the core protocol, shared by Fuse and QuickCombine.
func (e *Engine) fuse(ctx context.Context, ownerID string, selection []ledger.UnitRef) (Result, error) {
	rarity, units, err := e.validate(ctx, ownerID, selection)
	if err != nil {
		return Result{}, err
	}

	rate, ok := e.r.SuccessRate(rarity)
	if !ok {
		return Result{}, fmt.Errorf("no fusion success rate configured for rarity %q", rarity)
	}
	success, err := random.Bernoulli(rate, e.src)
	if err != nil {
		return Result{}, fmt.Errorf("fusion roll: %w", err)
	}

	var outcome ledger.FuseOutcome
	var resultRarity catalog.Rarity
	if success {
		next, _ := rarity.Next() // validate rejected legendary already
		out, err := e.pickOutput(next)
		if err != nil {
			return Result{}, err
		}
		outcome = ledger.FuseOutcome{Success: true, OutputTemplateID: out.ID}
		resultRarity = next
	} else {
		// consolation: the last selected copy goes back to inventory
		last := units[selection[len(selection)-1].UnitID]
		outcome = ledger.FuseOutcome{Success: false, OutputTemplateID: last.TemplateID}
		resultRarity = rarity
	}

	owned, err := ownedTemplates(ctx, e.led, ownerID)
	if err != nil {
		return Result{}, err
	}

	receipt, err := e.led.Fuse(ctx, ownerID, selection, outcome)
	if err != nil {
		return Result{}, fmt.Errorf("submit fusion: %w", err)
	}
	return Result{
		Upgraded:     success,
		TemplateID:   outcome.OutputTemplateID,
		ResultRarity: resultRarity,
		IsNew:        success && !owned[outcome.OutputTemplateID],
		Units:        receipt.Units,
	}, nil
}

// validate checks the selection against the combine preconditions and
// returns the shared input rarity plus the selected units by id.
func (e *Engine) validate(ctx context.Context, ownerID string, selection []ledger.UnitRef) (catalog.Rarity, map[string]ledger.Unit, error) {
	total := 0
	copies := make(map[string]int)
	for _, ref := range selection {
		if ref.Copies <= 0 {
			return "", nil, apperrors.New(apperrors.CodeInvalidSelectionCount, "selection copies must be positive")
		}
		total += ref.Copies
		copies[ref.UnitID] += ref.Copies
	}
	if total != InputSize {
		return "", nil, apperrors.Newf(apperrors.CodeInvalidSelectionCount, "fusion takes exactly %d copies, got %d", InputSize, total)
	}

	units := make(map[string]ledger.Unit, len(copies))
	var rarity catalog.Rarity
	for id, n := range copies {
		u, err := e.led.Unit(ctx, id)
		if err != nil {
			return "", nil, fmt.Errorf("read unit: %w", err)
		}
		if u.OwnerID != ownerID {
			return "", nil, apperrors.Newf(apperrors.CodeNotFound, "unit %q not found", id)
		}
		t, err := e.cat.ByID(u.TemplateID)
		if err != nil {
			return "", nil, err
		}
		if rarity == "" {
			rarity = t.Rarity
		} else if t.Rarity != rarity {
			return "", nil, apperrors.New(apperrors.CodeMixedRarity, "all selected units must share one rarity")
		}
		if n > u.Surplus() {
			return "", nil, apperrors.Newf(apperrors.CodeInsufficientSurplus, "unit %q has %d fusable copies, selected %d", id, u.Surplus(), n).
				WithMeta("unit_id", id)
		}
		units[id] = u
	}
	if rarity == catalog.RarityLegendary {
		return "", nil, apperrors.New(apperrors.CodeNoHigherRarity, "legendary units cannot be fused")
	}
	return rarity, units, nil
}

// pickOutput selects the output template within the given rarity, weighted
// or uniform depending on the configured policy.
func (e *Engine) pickOutput(r catalog.Rarity) (catalog.Template, error) {
	pool := e.cat.ByRarity(r)
	if len(pool) == 0 {
		return catalog.Template{}, fmt.Errorf("catalog has no templates of rarity %q", r)
	}
	weights := make([]float64, len(pool))
	for i, t := range pool {
		if e.r.OutputPick == rules.OutputPickUniform {
			weights[i] = 1
		} else {
			weights[i] = t.DrawWeight
		}
	}
	idx, err := random.WeightedIndex(weights, e.src)
	if err != nil {
		return catalog.Template{}, fmt.Errorf("pick output: %w", err)
	}
	return pool[idx], nil
}

// ownedTemplates returns the set of template ids the owner holds.
func ownedTemplates(ctx context.Context, led ledger.Service, ownerID string) (map[string]bool, error) {
	units, err := led.Units(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	owned := make(map[string]bool, len(units))
	for _, u := range units {
		owned[u.TemplateID] = true
	}
	return owned, nil
}
