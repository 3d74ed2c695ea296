package combat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// groupCreatureType is the creature type of the shared group loot table key.
const groupCreatureType = "group"

// resolve ends enc with outcome: loot, results, grants, the spawn's release
// and the follow-up cleanup tasks.
func (u *unit) resolve(enc *Encounter, outcome Resolution) error {
	enc.State = StateResolved
	enc.Outcome = outcome
	enc.ResolvedAt = u.now
	enc.Casts = nil
	enc.Adds = nil
	syncAdds(enc)
	if err := u.unschedule(schedule.KindEncounterTick, enc.ID); err != nil {
		return err
	}

	spawn, err := u.tx.Spawn(u.ctx, enc.SpawnID)
	if err != nil {
		return fmt.Errorf("resolving encounter %d: %w", enc.ID, err)
	}
	def, err := u.e.catalog.Spawn(spawn.DefID)
	if err != nil {
		return fmt.Errorf("resolving encounter %d: %w", enc.ID, err)
	}

	var eligible []Participant
	for _, p := range enc.Participants {
		if p.Status != StatusFled {
			eligible = append(eligible, p)
		}
	}
	var defeated []*npc.Template
	var defeatedIDs []int64
	for _, en := range enc.Enemies {
		if !en.Defeated {
			continue
		}
		tmpl, err := u.e.catalog.Template(en.TemplateID)
		if err != nil {
			return fmt.Errorf("resolving encounter %d: %w", enc.ID, err)
		}
		defeated = append(defeated, tmpl)
		defeatedIDs = append(defeatedIDs, en.ID)
	}

	xpShare := 0
	lootCount := 0
	if outcome == ResolutionVictory && len(eligible) > 0 {
		total := 0
		for _, t := range defeated {
			total += t.XP
		}
		xpShare = total / len(eligible)
		for _, p := range eligible {
			n, err := u.awardLoot(enc, def, p.CharacterID, defeated, defeatedIDs)
			if err != nil {
				return err
			}
			lootCount += n
			u.queueGrants(p.CharacterID, xpShare, def.Renown, defeated)
		}
		if enc.GroupID != 0 && def.GroupLootTier != "" {
			n, err := u.awardGroupLoot(enc, def)
			if err != nil {
				return err
			}
			lootCount += n
		}
	}

	groupRow := Result{EncounterID: enc.ID, GroupID: enc.GroupID, Outcome: outcome, CreatedAt: u.now}
	for _, p := range enc.Participants {
		r := Result{
			EncounterID: enc.ID,
			CharacterID: p.CharacterID,
			GroupID:     enc.GroupID,
			Outcome:     outcome,
			Kills:       p.Kills,
			DamageDealt: p.DamageDealt,
			CreatedAt:   u.now,
		}
		if p.Status == StatusFled && outcome == ResolutionVictory {
			r.Outcome = ResolutionFled
		} else if p.Status != StatusFled {
			r.XP = xpShare
		}
		if err := u.saveResult(r); err != nil {
			return err
		}
		groupRow.XP += r.XP
		groupRow.Kills += r.Kills
		groupRow.DamageDealt += r.DamageDealt

		c, err := u.character(p.CharacterID)
		if err != nil {
			return err
		}
		c.CombatTarget = 0
	}
	if enc.GroupID != 0 {
		if err := u.saveResult(groupRow); err != nil {
			return err
		}
	}

	if err := u.releaseEncounterSpawn(spawn, def, outcome); err != nil {
		return err
	}
	if err := u.schedule(schedule.KindCleanup, enc.ID, u.now.Add(u.e.cfg.CleanupGrace)); err != nil {
		return err
	}
	if lootCount > 0 {
		if err := u.schedule(schedule.KindLootExpire, enc.ID, u.now.Add(u.e.cfg.LootGrace)); err != nil {
			return err
		}
	}

	u.e.logger.Info("encounter resolved",
		zap.Int64("encounter_id", enc.ID),
		zap.String("outcome", string(outcome)),
		zap.Int("loot", lootCount),
	)
	switch outcome {
	case ResolutionVictory:
		u.announce(enc, "Victory! %s is defeated.", def.Name)
	case ResolutionWipe:
		u.announce(enc, "Your party has fallen to %s.", def.Name)
	case ResolutionFled:
		u.toLocation(enc.Location, "The fight with %s is over; nobody stayed.", def.Name)
	}
	return nil
}

// abort calls off enc after repeated tick faults. Nobody is rewarded and the
// spawn is freed at once.
func (u *unit) abort(enc *Encounter) error {
	enc.State = StateResolved
	enc.Outcome = ResolutionAborted
	enc.ResolvedAt = u.now
	enc.Casts = nil
	enc.Adds = nil
	syncAdds(enc)
	if err := u.unschedule(schedule.KindEncounterTick, enc.ID); err != nil {
		return err
	}
	for _, p := range enc.Participants {
		r := Result{
			EncounterID: enc.ID,
			CharacterID: p.CharacterID,
			GroupID:     enc.GroupID,
			Outcome:     ResolutionAborted,
			Kills:       p.Kills,
			DamageDealt: p.DamageDealt,
			CreatedAt:   u.now,
		}
		if err := u.saveResult(r); err != nil {
			return err
		}
		c, err := u.character(p.CharacterID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		c.CombatTarget = 0
	}

	spawn, err := u.tx.Spawn(u.ctx, enc.SpawnID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return fmt.Errorf("loading spawn %d: %w", enc.SpawnID, err)
	default:
		spawn.State = SpawnAvailable
		spawn.LockedBy = 0
		spawn.AvailableAt = u.now
		if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
			return fmt.Errorf("saving spawn %d: %w", spawn.ID, err)
		}
	}
	if err := u.schedule(schedule.KindCleanup, enc.ID, u.now.Add(u.e.cfg.CleanupGrace)); err != nil {
		return err
	}

	u.e.logger.Warn("encounter aborted",
		zap.Int64("encounter_id", enc.ID),
		zap.Int("faults", enc.Faults),
	)
	u.announce(enc, "[system] The fight is called off.")
	return nil
}

func (u *unit) saveResult(r Result) error {
	id, err := u.newID()
	if err != nil {
		return err
	}
	r.ID = id
	if err := u.tx.SaveResult(u.ctx, r); err != nil {
		return fmt.Errorf("saving result: %w", err)
	}
	return nil
}

// awardLoot rolls one loot table per defeated enemy for characterID.
func (u *unit) awardLoot(enc *Encounter, def *npc.SpawnDef, characterID int64, defeated []*npc.Template, ids []int64) (int, error) {
	seed := u.seed(characterID)
	count := 0
	for i, tmpl := range defeated {
		key := npc.LootKey{Terrain: def.Terrain, CreatureType: tmpl.CreatureType, Tier: tmpl.Tier}
		items, err := u.e.loot.Resolve(u.ctx, key, dice.Mix(seed, uint64(ids[i])))
		if err != nil {
			return count, fmt.Errorf("resolving loot %v: %w", key, err)
		}
		n, err := u.saveLoot(enc, characterID, items)
		if err != nil {
			return count, err
		}
		count += n
	}
	return count, nil
}

// awardGroupLoot rolls the spawn's shared group table once for the group.
func (u *unit) awardGroupLoot(enc *Encounter, def *npc.SpawnDef) (int, error) {
	key := npc.LootKey{Terrain: def.Terrain, CreatureType: groupCreatureType, Tier: def.GroupLootTier}
	items, err := u.e.loot.Resolve(u.ctx, key, dice.Mix(u.seed(enc.GroupID), uint64(enc.ID)))
	if err != nil {
		return 0, fmt.Errorf("resolving group loot %v: %w", key, err)
	}
	return u.saveLoot(enc, 0, items)
}

func (u *unit) saveLoot(enc *Encounter, characterID int64, items []npc.LootItem) (int, error) {
	for _, it := range items {
		id, err := u.newID()
		if err != nil {
			return 0, err
		}
		l := Loot{
			ID:          id,
			EncounterID: enc.ID,
			CharacterID: characterID,
			GroupID:     enc.GroupID,
			ItemID:      it.ItemID,
			InstanceID:  it.InstanceID,
			Quantity:    it.Quantity,
			ExpiresAt:   u.now.Add(u.e.cfg.LootGrace),
		}
		if err := u.tx.SaveLoot(u.ctx, l); err != nil {
			return 0, fmt.Errorf("saving loot: %w", err)
		}
	}
	return len(items), nil
}

// queueGrants records the progression calls for one victor.
func (u *unit) queueGrants(characterID int64, xp, renown int, defeated []*npc.Template) {
	prog := u.e.progression
	u.grant(func(ctx context.Context) error {
		var errs []error
		if xp > 0 {
			errs = append(errs, prog.GrantXP(ctx, characterID, xp))
		}
		if renown > 0 {
			errs = append(errs, prog.GrantRenown(ctx, characterID, renown))
		}
		for _, t := range defeated {
			if t.Faction != "" {
				errs = append(errs, prog.AdjustFaction(ctx, characterID, t.Faction, -1))
			}
			errs = append(errs, prog.RecordKill(ctx, characterID, t.ID))
		}
		return errors.Join(errs...)
	})
}

// releaseEncounterSpawn starts the respawn timer after a victory and frees the
// spawn immediately otherwise.
func (u *unit) releaseEncounterSpawn(spawn Spawn, def *npc.SpawnDef, outcome Resolution) error {
	spawn.LockedBy = 0
	if outcome == ResolutionVictory && def.RespawnDelay > 0 {
		spawn.State = SpawnRespawning
		spawn.AvailableAt = u.now.Add(def.RespawnDelay)
		if err := u.schedule(schedule.KindRespawn, spawn.ID, spawn.AvailableAt); err != nil {
			return err
		}
	} else {
		spawn.State = SpawnAvailable
		spawn.AvailableAt = u.now
	}
	if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
		return fmt.Errorf("saving spawn %d: %w", spawn.ID, err)
	}
	return nil
}

func (u *unit) respawn(spawnID int64) error {
	spawn, err := u.tx.Spawn(u.ctx, spawnID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading spawn %d: %w", spawnID, err)
	}
	if spawn.State != SpawnRespawning {
		return nil
	}
	spawn.State = SpawnAvailable
	if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
		return fmt.Errorf("saving spawn %d: %w", spawn.ID, err)
	}
	if def, err := u.e.catalog.Spawn(spawn.DefID); err == nil {
		u.toLocation(spawn.Location, "%s returns.", def.Name)
	}
	return nil
}

func (u *unit) cleanup(encounterID int64) error {
	enc, err := u.tx.Encounter(u.ctx, encounterID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading encounter %d: %w", encounterID, err)
	}
	if enc.State != StateResolved {
		return nil
	}
	return u.drop(enc.ID)
}

func (u *unit) expireLoot(encounterID int64) error {
	rows, err := u.tx.LootForEncounter(u.ctx, encounterID)
	if err != nil {
		return fmt.Errorf("loading loot for encounter %d: %w", encounterID, err)
	}
	for _, l := range rows {
		if l.Claimed || u.now.Before(l.ExpiresAt) {
			continue
		}
		if err := u.tx.DeleteLoot(u.ctx, l.ID); err != nil {
			return fmt.Errorf("deleting loot %d: %w", l.ID, err)
		}
	}
	return nil
}

// DismissResults marks characterID's results as seen. While unclaimed loot
// remains the call refuses with NeedsConfirm unless force is set, in which
// case the character's own unclaimed loot is forfeited.
func (e *Engine) DismissResults(ctx context.Context, characterID int64, force bool) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		loot, err := u.tx.LootFor(u.ctx, c.ID, c.GroupID)
		if err != nil {
			return fmt.Errorf("loading loot: %w", err)
		}
		var unclaimed []Loot
		for _, l := range loot {
			if !l.Claimed {
				unclaimed = append(unclaimed, l)
			}
		}
		if len(unclaimed) > 0 && !force {
			u.reply.NeedsConfirm = true
			u.fail("You have %d unclaimed items. Dismiss again with force to leave them behind.", len(unclaimed))
			return nil
		}
		results, err := u.tx.Results(u.ctx, c.ID)
		if err != nil {
			return fmt.Errorf("loading results: %w", err)
		}
		for _, r := range results {
			if r.Dismissed {
				continue
			}
			r.Dismissed = true
			if err := u.tx.SaveResult(u.ctx, r); err != nil {
				return fmt.Errorf("saving result %d: %w", r.ID, err)
			}
		}
		forfeited := 0
		for _, l := range unclaimed {
			if l.CharacterID != c.ID {
				continue
			}
			if err := u.tx.DeleteLoot(u.ctx, l.ID); err != nil {
				return fmt.Errorf("deleting loot %d: %w", l.ID, err)
			}
			forfeited++
		}
		if forfeited > 0 {
			u.ok("Results dismissed. %d items left behind.", forfeited)
		} else {
			u.ok("Results dismissed.")
		}
		return nil
	})
}

// ClaimLoot takes loot row lootID for characterID. Group rows may be claimed
// by any member of the owning group.
func (e *Engine) ClaimLoot(ctx context.Context, characterID, lootID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		c, err := u.character(characterID)
		if err != nil {
			return err
		}
		l, err := u.tx.Loot(u.ctx, lootID)
		if errors.Is(err, ErrNotFound) {
			u.fail("There is no such item.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading loot %d: %w", lootID, err)
		}
		owned := l.CharacterID == c.ID || (l.CharacterID == 0 && l.GroupID != 0 && l.GroupID == c.GroupID)
		switch {
		case !owned:
			u.fail("That is not yours.")
			return nil
		case l.Claimed:
			u.fail("That has already been taken.")
			return nil
		case !u.now.Before(l.ExpiresAt):
			u.fail("That has crumbled away.")
			return nil
		}
		l.Claimed = true
		if err := u.tx.SaveLoot(u.ctx, l); err != nil {
			return fmt.Errorf("saving loot %d: %w", l.ID, err)
		}
		u.ok("You take %s x%d.", l.ItemID, l.Quantity)
		return nil
	})
}
