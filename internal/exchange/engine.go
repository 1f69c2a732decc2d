// Package exchange converts coins into feeding food at a fixed configured
// rate.
package exchange

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/ledger"
	"github.com/studypets/economy/internal/rules"
)

// Engine performs coin-to-food exchanges with a single-flight guard.
type Engine struct {
	led  ledger.Service
	r    rules.Rules
	busy atomic.Bool
}

// New creates an exchange engine.
func New(led ledger.Service, r rules.Rules) *Engine {
	return &Engine{led: led, r: r}
}

// Cost returns the coin cost for buying the given amount of food.
func (e *Engine) Cost(amount int) int {
	return amount * e.r.CoinsPerFood
}

// BuyFood atomically debits coins and credits food.
func (e *Engine) BuyFood(ctx context.Context, ownerID string, amount int) (ledger.ExchangeReceipt, error) {
	if amount <= 0 {
		return ledger.ExchangeReceipt{}, apperrors.Newf(apperrors.CodeInvalidAmount, "exchange amount must be positive, got %d", amount)
	}
	if !e.busy.CompareAndSwap(false, true) {
		return ledger.ExchangeReceipt{}, apperrors.New(apperrors.CodeOperationPending, "an exchange is already in flight")
	}
	defer e.busy.Store(false)

	cost := e.Cost(amount)
	w, err := e.led.Wallet(ctx, ownerID)
	if err != nil {
		return ledger.ExchangeReceipt{}, fmt.Errorf("read wallet: %w", err)
	}
	if w.Coins < cost {
		return ledger.ExchangeReceipt{}, apperrors.Newf(apperrors.CodeInsufficientFunds, "%d food costs %d coins, balance is %d", amount, cost, w.Coins)
	}

	receipt, err := e.led.Exchange(ctx, ownerID, amount, cost)
	if err != nil {
		return ledger.ExchangeReceipt{}, fmt.Errorf("submit exchange: %w", err)
	}
	return receipt, nil
}
