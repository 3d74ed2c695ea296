package combat

import (
	"context"
	"errors"
	"fmt"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

const saltGatherAggro uint64 = 0x300

// BeginGather starts gathering at the character's location. Each available
// spawn there gets one roll to ambush the gatherer.
func (e *Engine) BeginGather(ctx context.Context, characterID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		_, in, err := u.membership(c.ID)
		if err != nil {
			return err
		}
		switch {
		case in:
			u.fail("You cannot gather while fighting.")
			return nil
		case c.Activity != ActivityIdle:
			u.fail("You are busy %s.", c.Activity)
			return nil
		case !c.Alive():
			u.fail("You are too wounded to gather.")
			return nil
		}

		spawns, err := u.tx.SpawnsAt(u.ctx, c.Location)
		if err != nil {
			return fmt.Errorf("loading spawns at %s: %w", c.Location, err)
		}
		seed := dice.Mix(u.seed(c.ID), saltGatherAggro)
		for i, s := range spawns {
			if s.State != SpawnAvailable {
				continue
			}
			if !u.e.roller.Percent("gather aggro", dice.Mix(seed, uint64(i)), u.e.cfg.GatherAggroPercent) {
				continue
			}
			enc, refusal, err := u.engage(c.ID, s.ID, 0)
			if err != nil {
				return err
			}
			if refusal != "" {
				continue
			}
			u.reply.EncounterID = enc.ID
			u.fail("You are ambushed while gathering!")
			return nil
		}
		c.Activity = ActivityGathering
		u.ok("You begin gathering.")
		return nil
	})
}

// EndGather stops gathering.
func (e *Engine) EndGather(ctx context.Context, characterID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		if c.Activity != ActivityGathering {
			u.fail("You are not gathering.")
			return nil
		}
		c.Activity = ActivityIdle
		u.ok("You stop gathering.")
		return nil
	})
}

// BeginTravel marks characterID as traveling to destination.
func (e *Engine) BeginTravel(ctx context.Context, characterID int64, destination string) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		_, in, err := u.membership(c.ID)
		if err != nil {
			return err
		}
		if in {
			u.fail("You cannot leave in the middle of a fight.")
			return nil
		}
		if c.Activity != ActivityIdle {
			u.fail("You are busy %s.", c.Activity)
			return nil
		}
		if err := u.abortPull(c.ID); err != nil {
			return err
		}
		c.Activity = ActivityTraveling
		c.Destination = destination
		u.ok("You set off for %s.", destination)
		return nil
	})
}

// ArriveAt places characterID at location. A consenting group member who
// arrives where the group is fighting joins the encounter.
func (e *Engine) ArriveAt(ctx context.Context, characterID int64, location string) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		_, in, err := u.membership(c.ID)
		if err != nil {
			return err
		}
		if in {
			u.fail("You cannot travel while fighting.")
			return nil
		}
		c.Location = location
		c.Destination = ""
		c.Activity = ActivityIdle
		u.ok("You arrive at %s.", location)

		if c.GroupID == 0 || !c.AutoJoin || !c.Alive() {
			return nil
		}
		row, found, err := u.tx.GroupEncounterAt(u.ctx, c.GroupID, location)
		if err != nil {
			return fmt.Errorf("group encounter at %s: %w", location, err)
		}
		if !found {
			return nil
		}
		enc, err := u.encounter(row.ID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if enc.State != StateActive {
			return nil
		}
		if err := u.join(enc, c); err != nil {
			return err
		}
		u.reply.EncounterID = enc.ID
		u.announce(enc, "%s joins the fight!", c.Name)
		return u.wake(enc)
	})
}

// SetCombatTarget points characterID's auto-attacks at enemyID.
func (e *Engine) SetCombatTarget(ctx context.Context, characterID, enemyID int64) (Reply, error) {
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
		en := enc.Enemy(enemyID)
		if en == nil || !en.Alive() {
			u.fail("There is no such enemy.")
			return nil
		}
		c.CombatTarget = en.ID
		u.reply.EncounterID = enc.ID
		u.ok("You turn on %s.", en.Name)
		return nil
	})
}
