package combat

import (
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
)

func enemyArmor(en *Enemy) int {
	return effect.Sum(en.Effects).EffectiveArmor(en.ArmorClass)
}

// characterHit lands raw damage from c on target and then rolls c's passive
// perks for trigger. Magic hits bypass armor.
func (u *unit) characterHit(enc *Encounter, c *Character, target *Enemy, raw int, magic bool, trigger perk.Trigger) (int, error) {
	if !target.Alive() {
		return 0, nil
	}
	dmg := raw
	if !magic {
		dmg = Mitigate(raw, enemyArmor(target))
	}
	dealt := u.damageEnemy(enc, CharacterHolder(c.ID), target, dmg)
	if err := u.applyPerkProcs(enc, c, trigger, dealt, target); err != nil {
		return dealt, err
	}
	return dealt, nil
}

// damageEnemy subtracts amount from en and credits threat and damage to src.
// Overkill and damage to a dead enemy are dropped; the HP actually removed is returned.
func (u *unit) damageEnemy(enc *Encounter, src Holder, en *Enemy, amount int) int {
	if amount <= 0 || !en.Alive() {
		return 0
	}
	if amount > en.HP {
		amount = en.HP
	}
	en.HP -= amount
	en.LastHitBy = src
	NewLedger(enc).Add(en.ID, src, amount)
	if owner := ownerOf(enc, src); owner != 0 {
		if p := enc.Participant(owner); p != nil {
			p.DamageDealt += amount
		}
	}
	return amount
}

// ownerOf returns the character behind a holder.
func ownerOf(enc *Encounter, h Holder) int64 {
	switch h.Kind {
	case HolderCharacter:
		return h.ID
	case HolderPet:
		if pet := enc.Pet(h.ID); pet != nil {
			return pet.OwnerID
		}
	}
	return 0
}

// heal restores up to amount HP to c and returns the HP actually restored.
func (u *unit) heal(c *Character, amount int) int {
	if amount <= 0 || !c.Alive() {
		return 0
	}
	before := c.HP
	c.HP = clampHP(c.HP+amount, c.MaxHP)
	return c.HP - before
}

// healThreat spreads threat for healed HP to every living enemy.
func (u *unit) healThreat(enc *Encounter, healerID int64, healed int) {
	if enc == nil || healed <= 0 || !enc.HasActive(healerID) {
		return
	}
	NewLedger(enc).AddToLiving(CharacterHolder(healerID), percentOf(healed, u.e.cfg.HealThreatPercent))
}

// enemyAttack is one auto-attack by en against its current target.
func (u *unit) enemyAttack(enc *Encounter, en *Enemy) error {
	target := en.Target
	if target.IsZero() {
		NewLedger(enc).Refresh(en.ID)
		target = en.Target
	}
	if target.IsZero() {
		return nil
	}
	return u.swing(enc, en, target)
}

// swing lands one auto-attack from en on h, whoever en is targeting.
func (u *unit) swing(enc *Encounter, en *Enemy, h Holder) error {
	raw := effect.Sum(en.Effects).EffectiveDamage(en.AttackDamage)
	_, err := u.hitHolder(enc, en, h, raw, false)
	return err
}

// hitHolder lands raw damage from en on a character or pet.
func (u *unit) hitHolder(enc *Encounter, en *Enemy, h Holder, raw int, magic bool) (int, error) {
	switch h.Kind {
	case HolderCharacter:
		if !enc.HasActive(h.ID) {
			return 0, nil
		}
		c, err := u.character(h.ID)
		if err != nil {
			return 0, err
		}
		if !c.Alive() {
			return 0, nil
		}
		dmg := raw
		if !magic {
			stats, err := u.stats(c)
			if err != nil {
				return 0, err
			}
			dmg = Mitigate(raw, effect.Sum(c.Effects).EffectiveArmor(stats.ArmorClass))
		} else if dmg < 0 {
			dmg = 0
		}
		c.HP = clampHP(c.HP-dmg, c.MaxHP)
		u.tell(c.ID, "%s hits you for %d.", en.Name, dmg)
		if err := u.applyPerkProcs(enc, c, perk.OnDamageTaken, dmg, en); err != nil {
			return dmg, err
		}
		return dmg, nil
	case HolderPet:
		pet := enc.Pet(h.ID)
		if pet == nil || pet.Dead {
			return 0, nil
		}
		dmg := Mitigate(raw, 0)
		pet.HP -= dmg
		if pet.HP < 0 {
			pet.HP = 0
		}
		u.tell(pet.OwnerID, "%s hits %s for %d.", en.Name, pet.Name, dmg)
		return dmg, nil
	}
	return 0, nil
}
