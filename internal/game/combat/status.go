package combat

import (
	"context"
	"fmt"
)

// Snapshot is the read-only view of one character's combat situation.
type Snapshot struct {
	Character Character
	// Encounter is the active encounter the character is in, or nil.
	Encounter *Encounter
	// Pull is the character's pending pull, or nil.
	Pull         *PullState
	PullProgress float64
	// Cast is the character's out-of-combat cast, or nil.
	Cast    *Cast
	Results []Result
	Loot    []Loot
}

// Status returns a Snapshot for characterID. It mutates nothing.
func (e *Engine) Status(ctx context.Context, characterID int64) (Snapshot, error) {
	var snap Snapshot
	err := e.store.WithTx(ctx, func(tx Tx) error {
		snap = Snapshot{}
		c, err := tx.Character(ctx, characterID)
		if err != nil {
			return fmt.Errorf("loading character %d: %w", characterID, err)
		}
		snap.Character = c
		if enc, ok, err := tx.MembershipFor(ctx, c.ID); err != nil {
			return err
		} else if ok {
			snap.Encounter = &enc
		}
		if pull, ok, err := tx.PendingPullFor(ctx, c.ID); err != nil {
			return err
		} else if ok {
			snap.Pull = &pull
			snap.PullProgress = pull.Progress(e.clock.Now())
		}
		if cast, ok, err := tx.CastFor(ctx, c.ID); err != nil {
			return err
		} else if ok {
			snap.Cast = &cast
		}
		results, err := tx.Results(ctx, c.ID)
		if err != nil {
			return err
		}
		for _, r := range results {
			if !r.Dismissed {
				snap.Results = append(snap.Results, r)
			}
		}
		loot, err := tx.LootFor(ctx, c.ID, c.GroupID)
		if err != nil {
			return err
		}
		for _, l := range loot {
			if !l.Claimed {
				snap.Loot = append(snap.Loot, l)
			}
		}
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
