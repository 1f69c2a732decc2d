package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/rules"
)

// Memory is an in-process ledger satisfying the Service contract. It backs
// the test suites and the dev mode of cmd/server; the production ledger
// lives behind the same interface on a remote backend.
type Memory struct {
	rules rules.Rules

	mu      sync.Mutex
	wallets map[string]Wallet
	units   map[string]Unit              // unit id -> unit
	byOwner map[string]map[string]string // owner id -> template id -> unit id
}

// NewMemory creates an empty in-memory ledger. The rule tables drive the
// server-side re-validation of evolve thresholds and exchange pricing.
func NewMemory(r rules.Rules) *Memory {
	return &Memory{
		rules:   r,
		wallets: make(map[string]Wallet),
		units:   make(map[string]Unit),
		byOwner: make(map[string]map[string]string),
	}
}

func rejectedf(format string, args ...any) error {
	return apperrors.Newf(apperrors.CodeTransactionRejected, format, args...)
}

// SeedWallet credits an owner's balances directly. Test and dev helper.
func (m *Memory) SeedWallet(ownerID string, coins, food int) Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.wallets[ownerID]
	w.Coins += coins
	w.Food += food
	m.wallets[ownerID] = w
	return w
}

// SeedUnit creates or replaces a unit record directly. Test and dev helper.
func (m *Memory) SeedUnit(ownerID, templateID string, count, tier, foodFed int) Unit {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if id, ok := m.ownerIndex(ownerID)[templateID]; ok {
		u := m.units[id]
		u.Count = count
		u.Tier = tier
		u.FoodFed = foodFed
		u.UpdatedAt = now
		m.units[id] = u
		return u
	}
	u := Unit{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		TemplateID: templateID,
		Count:      count,
		Tier:       tier,
		FoodFed:    foodFed,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.units[u.ID] = u
	m.ownerIndex(ownerID)[templateID] = u.ID
	return u
}

// ownerIndex returns the owner's template index, creating it on first use.
// Callers must hold m.mu.
func (m *Memory) ownerIndex(ownerID string) map[string]string {
	idx, ok := m.byOwner[ownerID]
	if !ok {
		idx = make(map[string]string)
		m.byOwner[ownerID] = idx
	}
	return idx
}

func (m *Memory) Wallet(_ context.Context, ownerID string) (Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wallets[ownerID], nil
}

func (m *Memory) Units(_ context.Context, ownerID string) ([]Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ownedLocked(ownerID), nil
}

// ownedLocked returns the owner's units ordered by creation time then id,
// the stable order quick-combine batching relies on. Callers hold m.mu.
func (m *Memory) ownedLocked(ownerID string) []Unit {
	var out []Unit
	for _, id := range m.byOwner[ownerID] {
		out = append(out, m.units[id])
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *Memory) Unit(_ context.Context, unitID string) (Unit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.units[unitID]
	if !ok {
		return Unit{}, apperrors.Newf(apperrors.CodeNotFound, "unit %q not found", unitID).WithMeta("unit_id", unitID)
	}
	return u, nil
}

func (m *Memory) DebitAndDraw(_ context.Context, ownerID string, cost int, templateIDs []string) (DrawReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cost < 0 || len(templateIDs) == 0 {
		return DrawReceipt{}, rejectedf("malformed draw request")
	}
	w := m.wallets[ownerID]
	if w.Coins < cost {
		return DrawReceipt{}, rejectedf("balance %d below cost %d", w.Coins, cost)
	}

	w.Coins -= cost
	m.wallets[ownerID] = w

	now := time.Now()
	idx := m.ownerIndex(ownerID)
	touched := make(map[string]bool, len(templateIDs))
	for _, tid := range templateIDs {
		if id, ok := idx[tid]; ok {
			u := m.units[id]
			u.Count++
			u.UpdatedAt = now
			m.units[id] = u
			touched[id] = true
			continue
		}
		u := Unit{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			TemplateID: tid,
			Count:      1,
			Tier:       1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		m.units[u.ID] = u
		idx[tid] = u.ID
		touched[u.ID] = true
	}

	receipt := DrawReceipt{Wallet: w}
	for _, u := range m.ownedLocked(ownerID) {
		if touched[u.ID] {
			receipt.Units = append(receipt.Units, u)
		}
	}
	return receipt, nil
}

func (m *Memory) Fuse(_ context.Context, ownerID string, consumed []UnitRef, outcome FuseOutcome) (FuseReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if outcome.OutputTemplateID == "" {
		return FuseReceipt{}, rejectedf("fusion outcome has no output template")
	}

	// aggregate copies per unit so a unit referenced twice is checked once
	copies := make(map[string]int)
	total := 0
	for _, ref := range consumed {
		if ref.Copies <= 0 {
			return FuseReceipt{}, rejectedf("unit ref with non-positive copies")
		}
		copies[ref.UnitID] += ref.Copies
		total += ref.Copies
	}
	if total != fusionInputSize {
		return FuseReceipt{}, rejectedf("fusion consumes exactly %d copies, got %d", fusionInputSize, total)
	}
	for id, n := range copies {
		u, ok := m.units[id]
		if !ok || u.OwnerID != ownerID {
			return FuseReceipt{}, rejectedf("unit %q not owned", id)
		}
		if n > u.Surplus() {
			return FuseReceipt{}, rejectedf("unit %q has surplus %d, requested %d", id, u.Surplus(), n)
		}
	}

	// validation passed; apply consumption and credit in one step
	now := time.Now()
	touched := make(map[string]bool, len(copies)+1)
	for id, n := range copies {
		u := m.units[id]
		u.Count -= n
		u.UpdatedAt = now
		m.units[id] = u
		touched[id] = true
	}

	idx := m.ownerIndex(ownerID)
	if id, ok := idx[outcome.OutputTemplateID]; ok {
		u := m.units[id]
		u.Count++
		u.UpdatedAt = now
		m.units[id] = u
		touched[id] = true
	} else {
		u := Unit{
			ID:         uuid.NewString(),
			OwnerID:    ownerID,
			TemplateID: outcome.OutputTemplateID,
			Count:      1,
			Tier:       1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		m.units[u.ID] = u
		idx[outcome.OutputTemplateID] = u.ID
		touched[u.ID] = true
	}

	var receipt FuseReceipt
	for _, u := range m.ownedLocked(ownerID) {
		if touched[u.ID] {
			receipt.Units = append(receipt.Units, u)
		}
	}
	return receipt, nil
}

func (m *Memory) Feed(_ context.Context, unitID string, amount int) (FeedReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.units[unitID]
	if !ok {
		return FeedReceipt{}, apperrors.Newf(apperrors.CodeNotFound, "unit %q not found", unitID)
	}
	if amount <= 0 {
		return FeedReceipt{}, rejectedf("feed amount must be positive")
	}
	w := m.wallets[u.OwnerID]
	if w.Food < amount {
		return FeedReceipt{}, rejectedf("food balance %d below amount %d", w.Food, amount)
	}

	w.Food -= amount
	m.wallets[u.OwnerID] = w
	u.FoodFed += amount
	u.UpdatedAt = time.Now()
	m.units[unitID] = u
	return FeedReceipt{Wallet: w, Unit: u}, nil
}

func (m *Memory) Evolve(_ context.Context, unitID string) (EvolveReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.units[unitID]
	if !ok {
		return EvolveReceipt{}, apperrors.Newf(apperrors.CodeNotFound, "unit %q not found", unitID)
	}
	if u.Tier >= catalog.TierCount {
		return EvolveReceipt{}, rejectedf("unit %q is already at max tier", unitID)
	}
	need, ok := m.rules.FoodRequired(u.Tier)
	if !ok {
		return EvolveReceipt{}, rejectedf("no evolution threshold for tier %d", u.Tier)
	}
	if u.FoodFed < need {
		return EvolveReceipt{}, rejectedf("unit %q fed %d of required %d", unitID, u.FoodFed, need)
	}

	u.Tier++
	u.FoodFed = 0 // excess beyond the threshold is forfeited
	u.UpdatedAt = time.Now()
	m.units[unitID] = u
	return EvolveReceipt{Unit: u}, nil
}

func (m *Memory) Exchange(_ context.Context, ownerID string, amount, cost int) (ExchangeReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount <= 0 {
		return ExchangeReceipt{}, rejectedf("exchange amount must be positive")
	}
	if cost != amount*m.rules.CoinsPerFood {
		return ExchangeReceipt{}, rejectedf("cost %d does not match rate", cost)
	}
	w := m.wallets[ownerID]
	if w.Coins < cost {
		return ExchangeReceipt{}, rejectedf("balance %d below cost %d", w.Coins, cost)
	}

	w.Coins -= cost
	w.Food += amount
	m.wallets[ownerID] = w
	return ExchangeReceipt{Wallet: w}, nil
}
