// Package evolution converts fed food into tier progression for individual
// owned creatures. Feeding accumulates FoodFed; a separate explicit Evolve
// action spends the accumulated food to advance one tier.
package evolution

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/ledger"
	"github.com/studypets/economy/internal/rules"
)

// MaxTier is the final evolution stage.
const MaxTier = catalog.TierCount

// Engine performs feed and evolve operations. Feed and evolve are separate
// operation kinds, each with its own single-flight guard.
type Engine struct {
	cat        *catalog.Catalog
	led        ledger.Service
	r          rules.Rules
	feedBusy   atomic.Bool
	evolveBusy atomic.Bool
}

// New creates an evolution engine.
func New(cat *catalog.Catalog, led ledger.Service, r rules.Rules) *Engine {
	return &Engine{cat: cat, led: led, r: r}
}

// Feed atomically debits the wallet's food and increments the unit's
// FoodFed by the same amount. Feeding never changes tier by itself.
func (e *Engine) Feed(ctx context.Context, unitID string, amount int) (ledger.FeedReceipt, error) {
	if amount <= 0 {
		return ledger.FeedReceipt{}, apperrors.Newf(apperrors.CodeInvalidAmount, "feed amount must be positive, got %d", amount)
	}
	if !e.feedBusy.CompareAndSwap(false, true) {
		return ledger.FeedReceipt{}, apperrors.New(apperrors.CodeOperationPending, "a feed is already in flight")
	}
	defer e.feedBusy.Store(false)

	u, err := e.led.Unit(ctx, unitID)
	if err != nil {
		return ledger.FeedReceipt{}, fmt.Errorf("read unit: %w", err)
	}
	w, err := e.led.Wallet(ctx, u.OwnerID)
	if err != nil {
		return ledger.FeedReceipt{}, fmt.Errorf("read wallet: %w", err)
	}
	if w.Food < amount {
		return ledger.FeedReceipt{}, apperrors.Newf(apperrors.CodeInsufficientFunds, "feeding %d food, balance is %d", amount, w.Food)
	}

	receipt, err := e.led.Feed(ctx, unitID, amount)
	if err != nil {
		return ledger.FeedReceipt{}, fmt.Errorf("submit feed: %w", err)
	}
	return receipt, nil
}

// Evolve advances the unit exactly one tier and resets FoodFed to zero.
// Food fed beyond the threshold is forfeited; it does not roll over. The
// ledger re-validates the threshold and tier cap independently.
func (e *Engine) Evolve(ctx context.Context, unitID string) (ledger.EvolveReceipt, error) {
	if !e.evolveBusy.CompareAndSwap(false, true) {
		return ledger.EvolveReceipt{}, apperrors.New(apperrors.CodeOperationPending, "an evolve is already in flight")
	}
	defer e.evolveBusy.Store(false)

	u, err := e.led.Unit(ctx, unitID)
	if err != nil {
		return ledger.EvolveReceipt{}, fmt.Errorf("read unit: %w", err)
	}
	if u.Tier >= MaxTier {
		return ledger.EvolveReceipt{}, apperrors.Newf(apperrors.CodeAlreadyMaxTier, "unit %q is already at tier %d", unitID, MaxTier)
	}
	need, ok := e.r.FoodRequired(u.Tier)
	if !ok {
		return ledger.EvolveReceipt{}, fmt.Errorf("no evolution threshold configured for tier %d", u.Tier)
	}
	if u.FoodFed < need {
		return ledger.EvolveReceipt{}, apperrors.Newf(apperrors.CodeNotEnoughFood, "evolving needs %d food, unit has %d", need, u.FoodFed).
			WithMeta("required", fmt.Sprint(need))
	}

	receipt, err := e.led.Evolve(ctx, unitID)
	if err != nil {
		return ledger.EvolveReceipt{}, fmt.Errorf("submit evolve: %w", err)
	}
	return receipt, nil
}

// Artwork resolves the displayed asset reference for a unit's tier.
// Thumbnail versus full resolution is the caller's concern.
func Artwork(t catalog.Template, tier int) (string, error) {
	if tier < 1 || tier > MaxTier {
		return "", fmt.Errorf("tier must be 1..%d, got %d", MaxTier, tier)
	}
	return t.Artwork[tier-1], nil
}
