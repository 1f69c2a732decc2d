package fusion

import (
	"context"
	"fmt"

	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/ledger"
)

// BatchResult reports a quick-combine run. Completed may be shorter than
// Attempted: a group whose ledger call fails is skipped, not retried, and
// its surplus stays in inventory for a later run.
type BatchResult struct {
	Attempted int
	Completed []Result
}

// QuickCombine fuses all of the owner's surplus of one rarity in groups of
// four. Groups are formed once, from a snapshot of inventory taken at the
// start: units are visited in the ledger's stable order and each unit's
// surplus is drained before moving to the next. Fewer than four leftover
// copies are left untouched. Groups run strictly sequentially, and a
// consolation copy returned by a failed group is never re-fused in the same
// run.
func (e *Engine) QuickCombine(ctx context.Context, ownerID string, rarity catalog.Rarity) (BatchResult, error) {
	if rarity == catalog.RarityLegendary {
		return BatchResult{}, apperrors.New(apperrors.CodeNoHigherRarity, "legendary units cannot be fused")
	}
	if !rarity.Valid() {
		return BatchResult{}, apperrors.Newf(apperrors.CodeInvalidRarity, "unknown rarity %q", rarity)
	}

	if !e.busy.CompareAndSwap(false, true) {
		return BatchResult{}, apperrors.New(apperrors.CodeOperationPending, "a fusion is already in flight")
	}
	defer e.busy.Store(false)

	units, err := e.led.Units(ctx, ownerID)
	if err != nil {
		return BatchResult{}, fmt.Errorf("read inventory: %w", err)
	}
	groups, err := e.groupSurplus(units, rarity)
	if err != nil {
		return BatchResult{}, err
	}

	out := BatchResult{Attempted: len(groups)}
	for _, group := range groups {
		res, err := e.fuse(ctx, ownerID, group)
		if err != nil {
			// best effort: record the miss and keep going
			continue
		}
		out.Completed = append(out.Completed, res)
	}
	return out, nil
}

// groupSurplus partitions the owner's surplus of one rarity into fusion
// groups of exactly InputSize copies.
func (e *Engine) groupSurplus(units []ledger.Unit, rarity catalog.Rarity) ([][]ledger.UnitRef, error) {
	var groups [][]ledger.UnitRef
	var current []ledger.UnitRef
	room := InputSize

	for _, u := range units {
		t, err := e.cat.ByID(u.TemplateID)
		if err != nil {
			return nil, err
		}
		if t.Rarity != rarity {
			continue
		}
		surplus := u.Surplus()
		for surplus > 0 {
			take := surplus
			if take > room {
				take = room
			}
			current = append(current, ledger.UnitRef{UnitID: u.ID, Copies: take})
			surplus -= take
			room -= take
			if room == 0 {
				groups = append(groups, current)
				current = nil
				room = InputSize
			}
		}
	}
	// fewer than InputSize copies remain in 'current'; leave them untouched
	return groups, nil
}
