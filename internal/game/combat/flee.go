package combat

import (
	"context"
	"errors"
	"fmt"
)

// Flee attempts to escape characterID's encounter with one deterministic roll.
//
// Postcondition: on success the participant is fled and the encounter goes on
// without them; on failure the participant stays active and one enemy makes an
// immediate retaliation attack. Reply.OK reports whether the flee succeeded.
func (e *Engine) Flee(ctx context.Context, characterID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		enc, in, err := u.membership(c.ID)
		if err != nil {
			return err
		}
		if !in || !enc.HasActive(c.ID) {
			u.fail("You are not fighting anything.")
			return nil
		}
		u.reply.EncounterID = enc.ID

		danger, err := u.dangerOf(enc)
		if err != nil {
			return err
		}
		chance := FleeChance(danger)
		if u.e.roller.Percent("flee", u.seed(c.ID), chance) {
			if err := u.leave(enc, c.ID, StatusFled); err != nil {
				return err
			}
			u.ok("You flee from the fight!")
			u.announce(enc, "%s flees!", c.Name)
			return u.settle(enc)
		}

		u.fail("You fail to escape!")
		if en := retaliator(enc, c.ID); en != nil {
			if err := u.swing(enc, en, CharacterHolder(c.ID)); err != nil {
				return err
			}
		}
		return u.settle(enc)
	})
}

// retaliator is the enemy that punishes a failed flee: the one targeting the
// fleer, else the first living enemy. Either way the swing lands on the fleer.
func retaliator(enc *Encounter, characterID int64) *Enemy {
	for _, en := range enc.LivingEnemies() {
		if en.Target == CharacterHolder(characterID) {
			return en
		}
	}
	return firstLiving(enc)
}

// dangerOf returns the danger of enc's spawn, or 0 when it cannot be found.
func (u *unit) dangerOf(enc *Encounter) (int, error) {
	spawn, err := u.tx.Spawn(u.ctx, enc.SpawnID)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("loading spawn %d: %w", enc.SpawnID, err)
	}
	def, err := u.e.catalog.Spawn(spawn.DefID)
	if err != nil {
		return 0, nil
	}
	return def.Danger, nil
}

// Disconnect removes characterID from any fight without a flee roll and
// cancels its pending pull and cast.
func (e *Engine) Disconnect(ctx context.Context, characterID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		if err := u.abortPull(c.ID); err != nil {
			return err
		}
		if err := u.cancelLooseCast(c.ID); err != nil {
			return err
		}
		if c.Activity == ActivityGathering {
			c.Activity = ActivityIdle
		}
		enc, in, err := u.membership(c.ID)
		if err != nil {
			return err
		}
		u.reply.OK = true
		if !in || !enc.HasActive(c.ID) {
			return nil
		}
		if err := u.leave(enc, c.ID, StatusFled); err != nil {
			return err
		}
		u.announce(enc, "%s is gone.", c.Name)
		return u.settle(enc)
	})
}
