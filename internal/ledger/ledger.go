// Package ledger defines the client-observable contract of the ledger
// service: the external system of record for wallets and owned units.
// Every mutating call is all-or-nothing; the server re-validates balances,
// surplus and tiers independently of any client-side check and answers
// TRANSACTION_REJECTED on a violation. Callers never mutate wallet or
// inventory state locally; they republish the receipts returned here.
package ledger

import (
	"context"
	"time"
)

// Wallet holds a student's currency balances.
type Wallet struct {
	Coins int
	Food  int
}

// Unit is one per-student inventory record. A single record exists per
// (owner, template) pair; repeat acquisitions increment Count. One of the
// Count copies is the anchor specimen and can never be consumed by fusion.
type Unit struct {
	ID         string
	OwnerID    string
	TemplateID string
	Count      int // >= 1 while the record exists
	Tier       int // 1..3, monotonically non-decreasing
	FoodFed    int // progress toward the next tier
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Surplus is the fusable portion of the stack: everything but the anchor.
func (u Unit) Surplus() int {
	return u.Count - 1
}

// fusionInputSize is the number of surplus copies a fusion consumes. The
// ledger re-validates this independently of the client.
const fusionInputSize = 4

// UnitRef addresses copies of one unit in a fusion request.
type UnitRef struct {
	UnitID string
	Copies int
}

// FuseOutcome carries the client-decided result of the fusion roll. On
// success OutputTemplateID names the next-rarity template to credit; on
// failure it names the input template whose single consolation copy is
// returned to inventory.
type FuseOutcome struct {
	Success          bool
	OutputTemplateID string
}

// DrawReceipt is the authoritative result of a debit-and-draw transaction.
type DrawReceipt struct {
	Wallet Wallet
	Units  []Unit // units created or updated by the draw
}

// FuseReceipt is the authoritative result of a fusion transaction.
type FuseReceipt struct {
	Units []Unit // units updated or created, including the output unit
}

// FeedReceipt is the authoritative result of a feed transaction.
type FeedReceipt struct {
	Wallet Wallet
	Unit   Unit
}

// EvolveReceipt is the authoritative result of an evolve transaction.
type EvolveReceipt struct {
	Unit Unit
}

// ExchangeReceipt is the authoritative result of a coin-to-food exchange.
type ExchangeReceipt struct {
	Wallet Wallet
}

// Service is the ledger contract the engines call. Reads let the engines
// check preconditions locally before submitting a transaction; every write
// either fully applies or fully does not.
type Service interface {
	// Wallet returns the owner's current balances.
	Wallet(ctx context.Context, ownerID string) (Wallet, error)
	// Units returns the owner's inventory in a stable order.
	Units(ctx context.Context, ownerID string) ([]Unit, error)
	// Unit returns one unit by id.
	Unit(ctx context.Context, unitID string) (Unit, error)

	// DebitAndDraw debits cost coins and credits every drawn template in
	// one transaction.
	DebitAndDraw(ctx context.Context, ownerID string, cost int, templateIDs []string) (DrawReceipt, error)
	// Fuse consumes exactly four surplus copies and credits the outcome's
	// output template with one copy, atomically.
	Fuse(ctx context.Context, ownerID string, consumed []UnitRef, outcome FuseOutcome) (FuseReceipt, error)
	// Feed debits food and increments the unit's FoodFed by the same amount.
	Feed(ctx context.Context, unitID string, amount int) (FeedReceipt, error)
	// Evolve advances the unit one tier and resets FoodFed to zero.
	Evolve(ctx context.Context, unitID string) (EvolveReceipt, error)
	// Exchange debits cost coins and credits amount food.
	Exchange(ctx context.Context, ownerID string, amount, cost int) (ExchangeReceipt, error)
}
