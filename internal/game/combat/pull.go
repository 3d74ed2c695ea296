package combat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// Salts for the rolls made when a pull resolves.
const (
	saltPullFail uint64 = 1
	saltPullAdds uint64 = 2
	saltAddCount uint64 = 3
)

// StartPull begins a pull of spawnID. The spawn is held as pulling until the
// pull resolves or is aborted.
func (e *Engine) StartPull(ctx context.Context, characterID, spawnID int64, pullType PullType) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		var duration = u.e.cfg.BodyPullDuration
		switch pullType {
		case PullCareful:
			duration = u.e.cfg.CarefulPullDuration
		case PullBody:
		default:
			u.fail("You don't know how to make a %q pull.", pullType)
			return nil
		}
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		if refusal, err := u.readyToFight(c); err != nil {
			return err
		} else if refusal != "" {
			u.fail("%s", refusal)
			return nil
		}
		if _, pending, err := u.tx.PendingPullFor(u.ctx, c.ID); err != nil {
			return fmt.Errorf("loading pull: %w", err)
		} else if pending {
			u.fail("You are already pulling something.")
			return nil
		}
		spawn, err := u.tx.Spawn(u.ctx, spawnID)
		if errors.Is(err, ErrNotFound) {
			u.fail("There is nothing like that to pull.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading spawn %d: %w", spawnID, err)
		}
		def, err := u.e.catalog.Spawn(spawn.DefID)
		if err != nil {
			return fmt.Errorf("spawn %d: %w", spawn.ID, err)
		}
		if spawn.Location != c.Location {
			u.fail("That is not here.")
			return nil
		}
		if spawn.State != SpawnAvailable {
			u.fail("%s is not available.", def.Name)
			return nil
		}

		id, err := u.newID()
		if err != nil {
			return err
		}
		pull := PullState{
			ID:         id,
			PullerID:   c.ID,
			SpawnID:    spawn.ID,
			Type:       pullType,
			Status:     PullPending,
			StartedAt:  u.now,
			ResolvesAt: u.now.Add(duration),
		}
		spawn.State = SpawnPulling
		spawn.LockedBy = pull.ID
		if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
			return fmt.Errorf("saving spawn %d: %w", spawn.ID, err)
		}
		if err := u.tx.SavePull(u.ctx, pull); err != nil {
			return fmt.Errorf("saving pull %d: %w", pull.ID, err)
		}
		if err := u.schedule(schedule.KindPullResolve, pull.ID, pull.ResolvesAt); err != nil {
			return err
		}
		u.ok("You begin a %s pull on %s.", pullType, def.Name)
		return nil
	})
}

// AbortPull cancels characterID's pending pull and frees the spawn.
func (e *Engine) AbortPull(ctx context.Context, characterID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		_, pending, err := u.tx.PendingPullFor(u.ctx, characterID)
		if err != nil {
			return fmt.Errorf("loading pull: %w", err)
		}
		if !pending {
			u.fail("You are not pulling anything.")
			return nil
		}
		if err := u.abortPull(characterID); err != nil {
			return err
		}
		u.ok("You back away.")
		return nil
	})
}

// abortPull cancels characterID's pending pull, if any.
func (u *unit) abortPull(characterID int64) error {
	pull, pending, err := u.tx.PendingPullFor(u.ctx, characterID)
	if err != nil {
		return fmt.Errorf("loading pull: %w", err)
	}
	if !pending {
		return nil
	}
	if err := u.releaseSpawn(pull); err != nil {
		return err
	}
	pull.Status = PullResolved
	pull.Outcome = PullOutcomeAborted
	if err := u.tx.SavePull(u.ctx, pull); err != nil {
		return fmt.Errorf("saving pull %d: %w", pull.ID, err)
	}
	return u.unschedule(schedule.KindPullResolve, pull.ID)
}

// releaseSpawn returns the pull's spawn to available if the pull still holds it.
func (u *unit) releaseSpawn(pull PullState) error {
	spawn, err := u.tx.Spawn(u.ctx, pull.SpawnID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading spawn %d: %w", pull.SpawnID, err)
	}
	if spawn.State != SpawnPulling || spawn.LockedBy != pull.ID {
		return nil
	}
	spawn.State = SpawnAvailable
	spawn.LockedBy = 0
	if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
		return fmt.Errorf("saving spawn %d: %w", spawn.ID, err)
	}
	return nil
}

// resolvePull is the pull task: one roll decides between a miss and an engage,
// and for an engage whether nearby enemies follow as a delayed wave.
func (u *unit) resolvePull(pullID int64) error {
	pull, err := u.tx.Pull(u.ctx, pullID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading pull %d: %w", pullID, err)
	}
	if pull.Status != PullPending {
		return nil
	}
	u.actor = pull.PullerID
	pull.Status = PullResolved
	save := func() error {
		if err := u.tx.SavePull(u.ctx, pull); err != nil {
			return fmt.Errorf("saving pull %d: %w", pull.ID, err)
		}
		return nil
	}

	spawn, err := u.tx.Spawn(u.ctx, pull.SpawnID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("loading spawn %d: %w", pull.SpawnID, err)
	}
	if err != nil || spawn.State != SpawnPulling || spawn.LockedBy != pull.ID {
		pull.Outcome = PullOutcomeAborted
		return save()
	}
	def, err := u.e.catalog.Spawn(spawn.DefID)
	if err != nil {
		return fmt.Errorf("spawn %d: %w", spawn.ID, err)
	}

	seed := u.seed(pull.PullerID)
	if pull.Type == PullCareful && u.e.roller.Percent("careful pull", dice.Mix(seed, saltPullFail), u.e.cfg.CarefulFailPercent) {
		pull.Outcome = PullOutcomeMissed
		if err := u.releaseSpawn(pull); err != nil {
			return err
		}
		u.say("%s does not notice you. Your pull fails.", def.Name)
		return save()
	}

	enc, refusal, err := u.engage(pull.PullerID, spawn.ID, pull.ID)
	if err != nil {
		return err
	}
	if refusal != "" {
		pull.Outcome = PullOutcomeAborted
		if err := u.releaseSpawn(pull); err != nil {
			return err
		}
		u.say("%s", refusal)
		return save()
	}
	pull.Outcome = PullOutcomeEngaged
	pull.EncounterID = enc.ID

	addsPercent := u.e.cfg.BodyAddsPercent
	if pull.Type == PullCareful {
		addsPercent = u.e.cfg.CarefulAddsPercent
	}
	limit := len(def.NearbyAdds)
	if u.e.cfg.MaxAdds < limit {
		limit = u.e.cfg.MaxAdds
	}
	if limit > 0 && u.e.roller.Percent("pull adds", dice.Mix(seed, saltPullAdds), addsPercent) {
		count := 1 + dice.Percent(dice.Mix(seed, saltAddCount))%limit
		at := u.now.Add(u.e.cfg.DelayedAddDelay)
		queued := 0
		for i := 0; i < count; i++ {
			m := def.NearbyAdds[i%len(def.NearbyAdds)]
			ok, err := u.queueAdd(enc, m.Template, m.Role, at)
			if err != nil {
				return err
			}
			if ok {
				queued++
			}
		}
		pull.DelayedAdds = queued
		pull.DelayedAddsAt = at
		if queued > 0 {
			u.announce(enc, "The commotion draws %d more enemies!", queued)
		}
		u.e.logger.Debug("pull alerted adds", zap.Int64("encounter_id", enc.ID), zap.Int("adds", queued))
		if err := u.wake(enc); err != nil {
			return err
		}
	}
	return save()
}

// PullProgress returns the elapsed fraction of the pending pull on spawnID.
// ok is false when the spawn is not being pulled.
func (e *Engine) PullProgress(ctx context.Context, spawnID int64) (progress float64, ok bool, err error) {
	err = e.store.WithTx(ctx, func(tx Tx) error {
		progress, ok = 0, false
		spawn, err := tx.Spawn(ctx, spawnID)
		if err != nil {
			return err
		}
		if spawn.State != SpawnPulling {
			return nil
		}
		pull, err := tx.Pull(ctx, spawn.LockedBy)
		if err != nil {
			return err
		}
		progress, ok = pull.Progress(e.clock.Now()), true
		return nil
	})
	return progress, ok, err
}
