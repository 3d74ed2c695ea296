package combat

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/ability"
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// abilityTarget is the resolved target of a character ability: an enemy for
// hostile kinds, a character otherwise.
type abilityTarget struct {
	enemy *Enemy
	ally  *Character
}

func (t abilityTarget) holder() Holder {
	if t.enemy != nil {
		return enemyHolder(t.enemy.ID)
	}
	if t.ally != nil {
		return CharacterHolder(t.ally.ID)
	}
	return Holder{}
}

// UseAbility starts or performs abilityKey for characterID. targetID names a
// friendly target character for heal, hot and buff abilities; 0 means self.
//
// Postcondition: a refused use mutates nothing. A use with a cast time records
// a cast and commits no resource or cooldown until the cast completes.
func (e *Engine) UseAbility(ctx context.Context, characterID int64, abilityKey string, targetID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		return u.useAbility(characterID, abilityKey, targetID)
	})
}

func (u *unit) useAbility(characterID int64, key string, targetID int64) error {
	c, err := u.character(characterID)
	if err != nil {
		return err
	}
	enc, in, err := u.membership(c.ID)
	if err != nil {
		return err
	}
	casting, err := u.isCasting(c.ID, enc)
	if err != nil {
		return err
	}
	if casting {
		u.fail("You are already casting.")
		return nil
	}
	def, ok := u.e.abilities.Find(key)
	if !ok {
		u.fail("You don't know how to do that.")
		return nil
	}
	switch {
	case def.Gate == ability.GateCombatOnly && !in:
		u.fail("%s can only be used in combat.", def.Name)
		return nil
	case def.Gate == ability.GateOutOfCombat && in:
		u.fail("%s cannot be used in combat.", def.Name)
		return nil
	}
	if in && !enc.HasActive(c.ID) {
		u.fail("You are no longer fighting.")
		return nil
	}
	if !c.Alive() {
		u.fail("You are too wounded to act.")
		return nil
	}
	if !canAfford(c, def) {
		u.fail("You do not have enough %s.", def.Resource)
		return nil
	}
	ready, err := u.tx.CooldownReadyAt(u.ctx, c.ID, def.Key)
	if err != nil {
		return fmt.Errorf("loading cooldown: %w", err)
	}
	if u.now.Before(ready) {
		u.fail("%s is not ready yet.", def.Name)
		return nil
	}
	var encForTarget *Encounter
	if in {
		encForTarget = enc
	}
	target, refusal, err := u.resolveTarget(encForTarget, c, def, targetID)
	if err != nil {
		return err
	}
	if refusal != "" {
		u.fail("%s", refusal)
		return nil
	}

	if def.CastTime > 0 {
		id, err := u.newID()
		if err != nil {
			return err
		}
		cast := Cast{
			ID:         id,
			Actor:      CharacterHolder(c.ID),
			AbilityKey: def.Key,
			Target:     target.holder(),
			StartedAt:  u.now,
			EndsAt:     u.now.Add(def.CastTime),
		}
		if in {
			cast.EncounterID = enc.ID
			enc.Casts = append(enc.Casts, cast)
			u.reply.EncounterID = enc.ID
			if err := u.wake(enc); err != nil {
				return err
			}
		} else {
			if err := u.tx.SaveCast(u.ctx, cast); err != nil {
				return fmt.Errorf("saving cast: %w", err)
			}
			if err := u.schedule(schedule.KindCast, cast.ID, cast.EndsAt); err != nil {
				return err
			}
		}
		u.ok("You begin casting %s.", def.Name)
		return nil
	}

	if err := u.commitAbility(c, def); err != nil {
		return err
	}
	if err := u.applyAbility(encForTarget, c, def, target); err != nil {
		return err
	}
	u.reply.OK = true
	if in {
		u.reply.EncounterID = enc.ID
		return u.settle(enc)
	}
	return nil
}

func (u *unit) isCasting(characterID int64, enc *Encounter) (bool, error) {
	if enc != nil && enc.CastBy(CharacterHolder(characterID)) != nil {
		return true, nil
	}
	_, ok, err := u.tx.CastFor(u.ctx, characterID)
	if err != nil {
		return false, fmt.Errorf("loading cast: %w", err)
	}
	return ok, nil
}

func canAfford(c *Character, def *ability.Def) bool {
	switch def.Resource {
	case ability.ResourceMana:
		return c.Mana >= def.Cost
	case ability.ResourceStamina:
		return c.Stamina >= def.Cost
	}
	return true
}

// commitAbility pays the cost and starts the cooldown.
func (u *unit) commitAbility(c *Character, def *ability.Def) error {
	switch def.Resource {
	case ability.ResourceMana:
		c.Mana -= def.Cost
	case ability.ResourceStamina:
		c.Stamina -= def.Cost
	}
	if def.Cooldown > 0 {
		if err := u.tx.SaveCooldown(u.ctx, c.ID, def.Key, u.now.Add(def.Cooldown)); err != nil {
			return fmt.Errorf("saving cooldown: %w", err)
		}
	}
	return nil
}

// resolveTarget picks the target for def. enc is nil out of combat.
func (u *unit) resolveTarget(enc *Encounter, c *Character, def *ability.Def, targetID int64) (abilityTarget, string, error) {
	if def.Hostile() {
		if enc == nil {
			return abilityTarget{}, "There is nothing to target.", nil
		}
		en := autoTarget(enc, c)
		if en == nil {
			return abilityTarget{}, "You have no target.", nil
		}
		return abilityTarget{enemy: en}, "", nil
	}
	if targetID == 0 || targetID == c.ID {
		return abilityTarget{ally: c}, "", nil
	}
	ally, err := u.character(targetID)
	if errors.Is(err, ErrNotFound) {
		return abilityTarget{}, "They are not here.", nil
	}
	if err != nil {
		return abilityTarget{}, "", err
	}
	if enc != nil {
		if !enc.HasActive(ally.ID) {
			return abilityTarget{}, fmt.Sprintf("%s is not in this fight.", ally.Name), nil
		}
	} else if ally.Location != c.Location {
		return abilityTarget{}, "They are not here.", nil
	}
	if !ally.Alive() {
		return abilityTarget{}, fmt.Sprintf("%s is beyond help.", ally.Name), nil
	}
	return abilityTarget{ally: ally}, "", nil
}

// retarget re-resolves a stored cast target at completion time.
func (u *unit) retarget(enc *Encounter, c *Character, def *ability.Def, h Holder) (abilityTarget, string, error) {
	if def.Hostile() {
		if enc == nil {
			return abilityTarget{}, "There is nothing to target.", nil
		}
		en := enc.Enemy(h.ID)
		if en == nil || !en.Alive() {
			return abilityTarget{}, "Your target is gone.", nil
		}
		return abilityTarget{enemy: en}, "", nil
	}
	return u.resolveTarget(enc, c, def, h.ID)
}

// completeCombatCast finishes a character cast inside an encounter.
func (u *unit) completeCombatCast(enc *Encounter, cast Cast) error {
	if !enc.HasActive(cast.Actor.ID) {
		return nil
	}
	c, err := u.character(cast.Actor.ID)
	if err != nil {
		return err
	}
	return u.finishCast(enc, c, cast)
}

// completeLooseCast finishes an out-of-combat cast from its task.
func (u *unit) completeLooseCast(castID int64) error {
	cast, err := u.tx.Cast(u.ctx, castID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading cast %d: %w", castID, err)
	}
	if err := u.tx.DeleteCast(u.ctx, cast.ID); err != nil {
		return fmt.Errorf("deleting cast %d: %w", cast.ID, err)
	}
	c, err := u.character(cast.Actor.ID)
	if err != nil {
		return err
	}
	if _, in, err := u.membership(c.ID); err != nil || in {
		return err
	}
	if !c.Alive() {
		return nil
	}
	return u.finishCast(nil, c, cast)
}

func (u *unit) finishCast(enc *Encounter, c *Character, cast Cast) error {
	def, ok := u.e.abilities.Find(cast.AbilityKey)
	if !ok {
		u.e.logger.Warn("cast names unknown ability",
			zap.Int64("character_id", c.ID), zap.String("ability", cast.AbilityKey))
		return nil
	}
	if !canAfford(c, def) {
		u.tell(c.ID, "Your %s fizzles: not enough %s.", def.Name, def.Resource)
		return nil
	}
	target, refusal, err := u.retarget(enc, c, def, cast.Target)
	if err != nil {
		return err
	}
	if refusal != "" {
		u.tell(c.ID, "Your %s fizzles: %s", def.Name, refusal)
		return nil
	}
	if err := u.commitAbility(c, def); err != nil {
		return err
	}
	return u.applyAbility(enc, c, def, target)
}

// cancelLooseCast drops characterID's out-of-combat cast, if any, without
// committing anything.
func (u *unit) cancelLooseCast(characterID int64) error {
	cast, ok, err := u.tx.CastFor(u.ctx, characterID)
	if err != nil {
		return fmt.Errorf("loading cast: %w", err)
	}
	if !ok {
		return nil
	}
	if err := u.tx.DeleteCast(u.ctx, cast.ID); err != nil {
		return fmt.Errorf("deleting cast %d: %w", cast.ID, err)
	}
	return u.unschedule(schedule.KindCast, cast.ID)
}

// applyAbility resolves def from c against target. enc is nil out of combat.
func (u *unit) applyAbility(enc *Encounter, c *Character, def *ability.Def, target abilityTarget) error {
	stats, err := u.stats(c)
	if err != nil {
		return err
	}
	power := Power(Baseline(stats.Level, stats.Weapon.BaseDamage, stats.Weapon.DPS), def.Scaling(), def.Flat)
	magic := def.School == ability.SchoolMagic

	switch def.Kind {
	case ability.KindDamage:
		raw := effect.Sum(c.Effects).EffectiveDamage(power)
		dealt, err := u.characterHit(enc, c, target.enemy, raw, magic, perk.OnAbility)
		if err != nil {
			return err
		}
		u.tell(c.ID, "Your %s hits %s for %d.", def.Name, target.enemy.Name, dealt)
	case ability.KindDoT:
		instant, perTick := SplitPeriodic(effect.Sum(c.Effects).EffectiveDamage(power), def.Duration)
		dealt, err := u.characterHit(enc, c, target.enemy, instant, magic, perk.OnAbility)
		if err != nil {
			return err
		}
		if target.enemy.Alive() {
			target.enemy.Effects = effect.Apply(target.enemy.Effects, effect.Effect{
				Type: effect.DoT, Magnitude: perTick, RoundsLeft: def.Duration, Source: def.Key,
			})
		}
		u.tell(c.ID, "Your %s hits %s for %d and lingers.", def.Name, target.enemy.Name, dealt)
	case ability.KindHeal:
		healed := u.heal(target.ally, power)
		u.creditHeal(enc, c, healed)
		u.tell(c.ID, "Your %s restores %d health to %s.", def.Name, healed, target.ally.Name)
		if target.ally.ID != c.ID {
			u.tell(target.ally.ID, "%s heals you for %d.", c.Name, healed)
		}
		return u.applyPerkProcs(enc, c, perk.OnHeal, healed, nil)
	case ability.KindHoT:
		instant, perTick := SplitPeriodic(power, def.Duration)
		healed := u.heal(target.ally, instant)
		target.ally.Effects = effect.Apply(target.ally.Effects, effect.Effect{
			Type: effect.HoT, Magnitude: perTick, RoundsLeft: def.Duration, Source: def.Key,
		})
		u.creditHeal(enc, c, healed)
		u.tell(c.ID, "Your %s washes over %s.", def.Name, target.ally.Name)
		return u.applyPerkProcs(enc, c, perk.OnHeal, healed, nil)
	case ability.KindBuff:
		target.ally.Effects = effect.Apply(target.ally.Effects, effect.Effect{
			Type: def.EffectType, Magnitude: def.Magnitude, RoundsLeft: def.Duration, Source: def.Key,
		})
		u.tell(c.ID, "Your %s empowers %s.", def.Name, target.ally.Name)
	case ability.KindDebuff:
		target.enemy.Effects = effect.Apply(target.enemy.Effects, effect.Effect{
			Type: def.EffectType, Magnitude: def.Magnitude, RoundsLeft: def.Duration, Source: def.Key,
		})
		NewLedger(enc).Add(target.enemy.ID, CharacterHolder(c.ID), def.Magnitude)
		u.tell(c.ID, "Your %s weakens %s.", def.Name, target.enemy.Name)
	case ability.KindTaunt:
		NewLedger(enc).Add(target.enemy.ID, CharacterHolder(c.ID), u.e.cfg.TauntThreat)
		u.announce(enc, "%s taunts %s!", c.Name, target.enemy.Name)
	case ability.KindInterrupt:
		if cast := enc.CastBy(enemyHolder(target.enemy.ID)); cast != nil {
			removeCast(enc, cast.ID)
			u.announce(enc, "%s interrupts %s!", c.Name, target.enemy.Name)
		} else {
			u.tell(c.ID, "%s is not casting anything.", target.enemy.Name)
		}
	}
	return nil
}

func (u *unit) creditHeal(enc *Encounter, healer *Character, healed int) {
	if enc == nil {
		return
	}
	if p := enc.Participant(healer.ID); p != nil {
		p.HealingDone += healed
	}
	u.healThreat(enc, healer.ID, healed)
}
