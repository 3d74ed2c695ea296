package combat

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
)

// Salts for enemy sub-rolls made within one tick.
const (
	saltAbilityChoice uint64 = 0x100
	saltAbilityPower  uint64 = 0x200
)

func (u *unit) enemyAbilityPhase(enc *Encounter) error {
	for _, en := range enc.LivingEnemies() {
		if en.NextAbilityAt.IsZero() || u.now.Before(en.NextAbilityAt) {
			continue
		}
		if cast := enc.CastBy(enemyHolder(en.ID)); cast != nil {
			en.NextAbilityAt = cast.EndsAt
			continue
		}
		en.NextAbilityAt = u.now.Add(en.AttackSpeed)
		tmpl, err := u.e.catalog.Template(en.TemplateID)
		if err != nil {
			return fmt.Errorf("enemy %d: %w", en.ID, err)
		}
		ab := u.chooseEnemyAbility(en, tmpl)
		if ab == nil {
			continue
		}
		if ab.CastTime <= 0 {
			u.startCooldown(en, ab)
			if err := u.enemyAbility(enc, en, ab); err != nil {
				return err
			}
			continue
		}
		id, err := u.newID()
		if err != nil {
			return err
		}
		enc.Casts = append(enc.Casts, Cast{
			ID:          id,
			EncounterID: enc.ID,
			Actor:       enemyHolder(en.ID),
			AbilityKey:  ab.Key,
			Target:      en.Target,
			StartedAt:   u.now,
			EndsAt:      u.now.Add(ab.CastTime),
		})
		u.announce(enc, "%s begins casting %s.", en.Name, ab.Name)
	}
	return nil
}

// chooseEnemyAbility returns the first ready ability whose chance roll succeeds.
func (u *unit) chooseEnemyAbility(en *Enemy, tmpl *npc.Template) *npc.EnemyAbility {
	seed := dice.Mix(u.seed(en.ID), saltAbilityChoice)
	for i := range tmpl.Abilities {
		ab := &tmpl.Abilities[i]
		if ready, ok := en.Cooldowns[ab.Key]; ok && u.now.Before(ready) {
			continue
		}
		if u.e.roller.Percent("enemy ability "+ab.Key, dice.Mix(seed, uint64(i)), ab.Chance) {
			return ab
		}
	}
	return nil
}

func (u *unit) completeEnemyCast(enc *Encounter, c Cast) error {
	en := enc.Enemy(c.Actor.ID)
	if en == nil || !en.Alive() {
		return nil
	}
	tmpl, err := u.e.catalog.Template(en.TemplateID)
	if err != nil {
		return fmt.Errorf("enemy %d: %w", en.ID, err)
	}
	ab, ok := tmpl.Ability(c.AbilityKey)
	if !ok {
		u.e.logger.Warn("enemy cast names unknown ability",
			zap.Int64("enemy_id", en.ID), zap.String("ability", c.AbilityKey))
		return nil
	}
	u.startCooldown(en, ab)
	return u.enemyAbility(enc, en, ab)
}

// startCooldown commits ab's cooldown for en. Casts commit it on completion, so
// an interrupted cast leaves the ability ready.
func (u *unit) startCooldown(en *Enemy, ab *npc.EnemyAbility) {
	if ab.Cooldown <= 0 {
		return
	}
	if en.Cooldowns == nil {
		en.Cooldowns = make(map[string]time.Time)
	}
	en.Cooldowns[ab.Key] = u.now.Add(ab.Cooldown)
}

// enemyAbility resolves ab for en immediately.
func (u *unit) enemyAbility(enc *Encounter, en *Enemy, ab *npc.EnemyAbility) error {
	power := func() int {
		return u.e.roller.RollSeeded(ab.Expression(), dice.Mix(u.seed(en.ID), saltAbilityPower)).Total()
	}
	switch ab.Kind {
	case npc.AbilityDamage:
		target := en.Target
		if target.IsZero() {
			return nil
		}
		raw := effect.Sum(en.Effects).EffectiveDamage(power())
		u.announce(enc, "%s uses %s!", en.Name, ab.Name)
		_, err := u.hitHolder(enc, en, target, raw, ab.Magic)
		return err
	case npc.AbilityHeal:
		ally := weakestAlly(enc)
		if ally == nil {
			return nil
		}
		ally.HP = clampHP(ally.HP+power(), ally.MaxHP)
		u.announce(enc, "%s heals %s.", en.Name, ally.Name)
	case npc.AbilityDebuff:
		if en.Target.Kind != HolderCharacter || !enc.HasActive(en.Target.ID) {
			return nil
		}
		c, err := u.character(en.Target.ID)
		if err != nil {
			return err
		}
		c.Effects = effect.Apply(c.Effects, effect.Effect{
			Type:       effect.Type(ab.EffectType),
			Magnitude:  ab.Magnitude,
			RoundsLeft: ab.Rounds,
			Source:     ab.Key,
		})
		u.tell(c.ID, "%s afflicts you with %s.", en.Name, ab.Name)
	case npc.AbilitySummon:
		queued, err := u.queueAdd(enc, ab.Summons, npc.RoleNormal, u.now.Add(u.e.cfg.DelayedAddDelay))
		if err != nil {
			return err
		}
		if queued {
			u.announce(enc, "%s calls for help!", en.Name)
		}
	}
	return nil
}

// weakestAlly returns the living enemy with the lowest HP fraction.
func weakestAlly(enc *Encounter) *Enemy {
	var best *Enemy
	for _, en := range enc.LivingEnemies() {
		if en.HP >= en.MaxHP {
			continue
		}
		if best == nil || en.HP*best.MaxHP < best.HP*en.MaxHP {
			best = en
		}
	}
	return best
}
