package combat

import (
	"errors"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
)

// tick advances encounterID by every sub-event that is due. The phases run in a
// fixed order: casts, effect tick, pending adds, participant auto-attacks, pets,
// enemy abilities, enemy auto-attacks. One death-check pass follows.
func (u *unit) tick(encounterID int64) error {
	enc, err := u.encounter(encounterID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if enc.State != StateActive {
		return nil
	}
	enc.Faults = 0

	phases := []func(*Encounter) error{
		u.castPhase,
		u.effectPhase,
		u.addsPhase,
		u.participantPhase,
		u.petPhase,
		u.enemyAbilityPhase,
		u.enemyAttackPhase,
	}
	for _, phase := range phases {
		if err := phase(enc); err != nil {
			return err
		}
	}
	return u.settle(enc)
}

// settle runs the death check, then resolves the encounter if it is over or
// schedules its next tick if it is not.
func (u *unit) settle(enc *Encounter) error {
	if err := u.deathCheck(enc); err != nil {
		return err
	}
	if outcome, over := outcomeOf(enc); over {
		return u.resolve(enc, outcome)
	}
	return u.wake(enc)
}

func (u *unit) castPhase(enc *Encounter) error {
	due := make([]Cast, 0, len(enc.Casts))
	for _, c := range enc.Casts {
		if !u.now.Before(c.EndsAt) {
			due = append(due, c)
		}
	}
	for _, c := range due {
		removeCast(enc, c.ID)
		var err error
		switch c.Actor.Kind {
		case HolderCharacter:
			err = u.completeCombatCast(enc, c)
		case HolderEnemy:
			err = u.completeEnemyCast(enc, c)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) effectPhase(enc *Encounter) error {
	if u.now.Before(enc.NextEffectTick) {
		return nil
	}
	enc.NextEffectTick = u.now.Add(u.e.cfg.EffectTickInterval)

	for _, p := range enc.ActiveParticipants() {
		c, err := u.character(p.CharacterID)
		if err != nil {
			return err
		}
		remaining, periodic, expired := effect.Tick(c.Effects)
		c.Effects = remaining
		if periodic.Damage > 0 {
			c.HP = clampHP(c.HP-periodic.Damage, c.MaxHP)
			u.tell(c.ID, "You suffer %d damage.", periodic.Damage)
		}
		if periodic.Heal > 0 {
			p.HealingDone += u.heal(c, periodic.Heal)
		}
		for _, x := range expired {
			u.tell(c.ID, "%s wears off.", effectLabel(x))
		}
	}
	for _, en := range enc.LivingEnemies() {
		remaining, periodic, _ := effect.Tick(en.Effects)
		en.Effects = remaining
		if periodic.Damage > 0 {
			en.HP = clampHP(en.HP-periodic.Damage, en.MaxHP)
		}
		if periodic.Heal > 0 {
			en.HP = clampHP(en.HP+periodic.Heal, en.MaxHP)
		}
	}
	return nil
}

func (u *unit) addsPhase(enc *Encounter) error {
	var arriving, waiting []PendingAdd
	for _, a := range enc.Adds {
		if u.now.Before(a.ArriveAt) {
			waiting = append(waiting, a)
		} else {
			arriving = append(arriving, a)
		}
	}
	if len(arriving) == 0 {
		return nil
	}
	enc.Adds = waiting
	for _, a := range arriving {
		if err := u.addEnemy(enc, a.TemplateID, a.Role); err != nil {
			return err
		}
		enc.AddsSpawned++
		u.announce(enc, "%s joins the fight!", enc.Enemies[len(enc.Enemies)-1].Name)
	}
	syncAdds(enc)
	return nil
}

func (u *unit) participantPhase(enc *Encounter) error {
	for _, p := range enc.ActiveParticipants() {
		if u.now.Before(p.NextAttackAt) {
			continue
		}
		c, err := u.character(p.CharacterID)
		if err != nil {
			return err
		}
		stats, err := u.stats(c)
		if err != nil {
			return err
		}
		speed := u.attackSpeed(stats.Weapon.Speed)
		if cast := enc.CastBy(CharacterHolder(c.ID)); cast != nil {
			p.NextAttackAt = cast.EndsAt
			continue
		}
		p.NextAttackAt = u.now.Add(speed)
		target := autoTarget(enc, c)
		if target == nil {
			continue
		}
		raw := effect.Sum(c.Effects).EffectiveDamage(Baseline(stats.Level, stats.Weapon.BaseDamage, stats.Weapon.DPS))
		dealt, err := u.characterHit(enc, c, target, raw, false, perk.OnHit)
		if err != nil {
			return err
		}
		u.tell(c.ID, "You hit %s for %d.", target.Name, dealt)
	}
	return nil
}

// autoTarget returns c's combat target when it is alive, otherwise the first
// living enemy, and remembers the choice.
func autoTarget(enc *Encounter, c *Character) *Enemy {
	if c.CombatTarget != 0 {
		if en := enc.Enemy(c.CombatTarget); en != nil && en.Alive() {
			return en
		}
	}
	en := firstLiving(enc)
	if en != nil {
		c.CombatTarget = en.ID
	} else {
		c.CombatTarget = 0
	}
	return en
}

func (u *unit) petPhase(enc *Encounter) error {
	for i := range enc.Pets {
		pet := &enc.Pets[i]
		if pet.Dead || !enc.HasActive(pet.OwnerID) {
			continue
		}
		owner, err := u.character(pet.OwnerID)
		if err != nil {
			return err
		}
		target := petTarget(enc, owner)
		if !u.now.Before(pet.NextAttackAt) {
			pet.NextAttackAt = u.now.Add(pet.AttackSpeed)
			if target != nil {
				dealt := u.damageEnemy(enc, PetHolder(pet.ID), target, Mitigate(pet.AttackDamage, enemyArmor(target)))
				u.tell(owner.ID, "%s bites %s for %d.", pet.Name, target.Name, dealt)
			}
		}
		if pet.AbilityKey != "" && !u.now.Before(pet.AbilityReadyAt) {
			cooldown := pet.AbilityCooldown
			if cooldown <= 0 {
				cooldown = pet.AttackSpeed
			}
			pet.AbilityReadyAt = u.now.Add(cooldown)
			if target != nil && target.Alive() {
				dealt := u.damageEnemy(enc, PetHolder(pet.ID), target, Mitigate(pet.AbilityDamage, enemyArmor(target)))
				u.tell(owner.ID, "%s uses %s on %s for %d.", pet.Name, pet.AbilityKey, target.Name, dealt)
			}
		}
	}
	return nil
}

// petTarget follows the owner's combat target without changing it.
func petTarget(enc *Encounter, owner *Character) *Enemy {
	if en := enc.Enemy(owner.CombatTarget); en != nil && en.Alive() {
		return en
	}
	return firstLiving(enc)
}

func (u *unit) enemyAttackPhase(enc *Encounter) error {
	for _, en := range enc.LivingEnemies() {
		if u.now.Before(en.NextAttackAt) {
			continue
		}
		if cast := enc.CastBy(enemyHolder(en.ID)); cast != nil {
			en.NextAttackAt = cast.EndsAt
			continue
		}
		en.NextAttackAt = u.now.Add(en.AttackSpeed)
		if err := u.enemyAttack(enc, en); err != nil {
			return err
		}
	}
	return nil
}

// outcomeOf reports whether enc is over and how.
func outcomeOf(enc *Encounter) (Resolution, bool) {
	if len(enc.LivingEnemies()) == 0 {
		return ResolutionVictory, true
	}
	if len(enc.ActiveParticipants()) > 0 {
		return ResolutionNone, false
	}
	for _, p := range enc.Participants {
		if p.Status == StatusDead {
			return ResolutionWipe, true
		}
	}
	return ResolutionFled, true
}

func effectLabel(e effect.Effect) string {
	if e.Source != "" {
		return e.Source
	}
	return string(e.Type)
}
