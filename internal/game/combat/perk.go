package combat

import (
	"context"
	"fmt"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/scripting"
)

// applyPerkProcs rolls c's passive perks reacting to trigger. dealt is the
// damage of the triggering event and en the enemy involved, which may be nil.
// Proc damage lands directly and never triggers further procs.
func (u *unit) applyPerkProcs(enc *Encounter, c *Character, trigger perk.Trigger, dealt int, en *Enemy) error {
	procs := u.e.perks.ProceduresForTrigger(c.Perks, trigger)
	if len(procs) == 0 {
		return nil
	}
	seed := u.seed(c.ID)
	for _, proc := range procs {
		p := proc.Perk
		if !PerkProcs(seed, proc.Index, p.Chance) {
			continue
		}
		bonus := 0
		switch p.Shape {
		case perk.ShapeFlatDamage:
			bonus = p.Amount
		case perk.ShapePercentDamage:
			bonus = percentOf(dealt, p.Amount)
			if bonus < 1 {
				bonus = 1
			}
		case perk.ShapeHealPercent:
			base := dealt
			if base <= 0 {
				base = c.MaxHP
			}
			amount := percentOf(base, p.Amount)
			if amount < 1 {
				amount = 1
			}
			healed := u.heal(c, amount)
			if enc != nil {
				if part := enc.Participant(c.ID); part != nil {
					part.HealingDone += healed
				}
			}
			u.healThreat(enc, c.ID, healed)
		case perk.ShapeBuff:
			c.Effects = effect.Apply(c.Effects, effect.Effect{
				Type:       p.EffectType,
				Magnitude:  p.Amount,
				RoundsLeft: p.Rounds,
				Source:     p.Key,
			})
		case perk.ShapeAoE:
			if enc != nil {
				for _, other := range enc.LivingEnemies() {
					if en != nil && other.ID == en.ID {
						continue
					}
					u.damageEnemy(enc, CharacterHolder(c.ID), other, p.Amount)
				}
			}
		}
		if p.Script != "" {
			in := scripting.ProcInput{
				CharacterID: c.ID,
				Level:       c.Level,
				Trigger:     string(trigger),
				Damage:      dealt,
				Seed:        seed,
			}
			if en != nil {
				in.EnemyHP, in.EnemyMaxHP = en.HP, en.MaxHP
			}
			bonus += u.e.scripts.BonusDamage(p.Script, in)
		}
		if bonus > 0 && enc != nil && en != nil {
			bonus = u.damageEnemy(enc, CharacterHolder(c.ID), en, bonus)
		}
		if bonus > 0 {
			u.tell(c.ID, "Your %s strikes for %d more.", p.Name, bonus)
		} else {
			u.tell(c.ID, "Your %s triggers.", p.Name)
		}
	}
	return nil
}

// ExecutePerkAbility fires the active perk invoked by abilityKey.
//
// Precondition: characterID must exist.
// Postcondition: returns ErrUnknownPerk, ErrPerkNotOwned, ErrPerkWrongType,
// ErrOnCooldown, ErrDead, ErrNotInCombat or ErrNoTarget without mutating
// anything; otherwise the perk's effect is applied and its cooldown committed.
func (e *Engine) ExecutePerkAbility(ctx context.Context, characterID int64, abilityKey string) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		return u.executePerk(characterID, abilityKey)
	})
}

func (u *unit) executePerk(characterID int64, abilityKey string) error {
	c, err := u.character(characterID)
	if err != nil {
		return err
	}
	p, ok := u.e.perks.FindByAbilityKey(abilityKey)
	if !ok {
		return fmt.Errorf("%q: %w", abilityKey, ErrUnknownPerk)
	}
	owned, err := u.e.ownership.Owns(u.ctx, *c, p.Key)
	if err != nil {
		return fmt.Errorf("checking perk ownership: %w", err)
	}
	if !owned {
		return fmt.Errorf("%q: %w", p.Key, ErrPerkNotOwned)
	}
	if p.Kind != perk.KindActive {
		return fmt.Errorf("%q: %w", p.Key, ErrPerkWrongType)
	}
	ready, err := u.tx.CooldownReadyAt(u.ctx, c.ID, p.CooldownKey())
	if err != nil {
		return fmt.Errorf("loading cooldown: %w", err)
	}
	if u.now.Before(ready) {
		return fmt.Errorf("%q ready at %s: %w", p.Key, ready.Format("15:04:05"), ErrOnCooldown)
	}
	if !c.Alive() {
		return ErrDead
	}

	enc, in, err := u.membership(c.ID)
	if err != nil {
		return err
	}
	if in && !enc.HasActive(c.ID) {
		in = false
	}

	switch p.Active {
	case perk.ActiveHeal:
		amount := percentOf(c.MaxHP, p.Power)
		if amount < 1 {
			amount = 1
		}
		healed := u.heal(c, amount)
		if in {
			enc.Participant(c.ID).HealingDone += healed
			u.healThreat(enc, c.ID, healed)
			if err := u.applyPerkProcs(enc, c, perk.OnHeal, healed, nil); err != nil {
				return err
			}
		}
		u.ok("%s restores %d health.", p.Name, healed)
	case perk.ActiveDamage:
		if !in {
			return fmt.Errorf("%q: %w", p.Key, ErrNotInCombat)
		}
		target := autoTarget(enc, c)
		if target == nil {
			return fmt.Errorf("%q: %w", p.Key, ErrNoTarget)
		}
		stats, err := u.stats(c)
		if err != nil {
			return err
		}
		raw := Baseline(stats.Level, stats.Weapon.BaseDamage, stats.Weapon.DPS) * p.Power / 100
		raw = effect.Sum(c.Effects).EffectiveDamage(raw)
		dealt, err := u.characterHit(enc, c, target, raw, false, perk.OnAbility)
		if err != nil {
			return err
		}
		u.ok("%s hits %s for %d.", p.Name, target.Name, dealt)
	case perk.ActiveBuff:
		c.Effects = effect.Apply(c.Effects, effect.Effect{
			Type:       p.EffectType,
			Magnitude:  p.Power,
			RoundsLeft: p.Rounds,
			Source:     p.Key,
		})
		u.ok("%s empowers you.", p.Name)
	}

	if p.Cooldown > 0 {
		if err := u.tx.SaveCooldown(u.ctx, c.ID, p.CooldownKey(), u.now.Add(p.Cooldown)); err != nil {
			return fmt.Errorf("saving cooldown: %w", err)
		}
	}
	if in {
		u.reply.EncounterID = enc.ID
		return u.settle(enc)
	}
	return nil
}
