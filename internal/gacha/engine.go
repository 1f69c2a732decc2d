// Package gacha turns a coin debit into weighted-random creature draws
// against the catalog.
package gacha

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

// Draw is one drawn template in a pull result.
type Draw struct {
	TemplateID string
	Rarity     catalog.Rarity
	// IsNew is true iff the student had no owned unit for this template
	// before the pull.
	IsNew bool
}

// Result is the authoritative outcome of a pull.
type Result struct {
	Draws  []Draw
	Wallet ledger.Wallet
	Units  []ledger.Unit // units created or updated by the pull
}

// Engine performs gacha pulls. It is stateless apart from a single-flight
// guard: a second pull submitted while one is outstanding is rejected
// locally and never sent to the ledger.
type Engine struct {
	cat  *catalog.Catalog
	led  ledger.Service
	r    rules.Rules
	src  random.Source
	busy atomic.Bool
}

// New creates a pull engine. A nil source falls back to the crypto default.
func New(cat *catalog.Catalog, led ledger.Service, r rules.Rules, src random.Source) *Engine {
	if src == nil {
		src = random.Default()
	}
	return &Engine{cat: cat, led: led, r: r, src: src}
}

// Cost returns the coin cost of an n-pull. Only 1 and 10 are sold; the
// ten-pull carries a bulk discount.
func (e *Engine) Cost(n int) (int, error) {
	switch n {
	case 1:
		return e.r.SinglePullCost, nil
	case 10:
		return e.r.TenPullCost, nil
	}
	return 0, apperrors.Newf(apperrors.CodeInvalidPullCount, "pull count must be 1 or 10, got %d", n)
}

// Pull draws n templates with replacement, weighted by draw weight over the
// entire catalog, and submits the debit plus all inventory increments as one
// atomic ledger transaction.
func (e *Engine) Pull(ctx context.Context, ownerID string, n int) (Result, error) {
	cost, err := e.Cost(n)
	if err != nil {
		return Result{}, err
	}

	if !e.busy.CompareAndSwap(false, true) {
		return Result{}, apperrors.New(apperrors.CodeOperationPending, "a pull is already in flight")
	}
	defer e.busy.Store(false)

	w, err := e.led.Wallet(ctx, ownerID)
	if err != nil {
		return Result{}, fmt.Errorf("read wallet: %w", err)
	}
	if w.Coins < cost {
		return Result{}, apperrors.Newf(apperrors.CodeInsufficientFunds, "pull costs %d coins, balance is %d", cost, w.Coins).
			WithMeta("cost", fmt.Sprint(cost))
	}

	owned, err := ownedTemplates(ctx, e.led, ownerID)
	if err != nil {
		return Result{}, err
	}

	templates := e.cat.All()
	weights := make([]float64, len(templates))
	for i, t := range templates {
		weights[i] = t.DrawWeight
	}

	draws := make([]Draw, n)
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		idx, err := random.WeightedIndex(weights, e.src)
		if err != nil {
			return Result{}, fmt.Errorf("draw %d: %w", i, err)
		}
		t := templates[idx]
		draws[i] = Draw{TemplateID: t.ID, Rarity: t.Rarity, IsNew: !owned[t.ID]}
		ids[i] = t.ID
	}

	receipt, err := e.led.DebitAndDraw(ctx, ownerID, cost, ids)
	if err != nil {
		return Result{}, fmt.Errorf("submit pull: %w", err)
	}
	return Result{Draws: draws, Wallet: receipt.Wallet, Units: receipt.Units}, nil
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
