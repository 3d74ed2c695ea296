package combat

import (
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
)

// deathCheck settles every HP that reached zero. It repeats until nothing new
// dies, because on-kill procs may kill further enemies. KillCredited makes the
// kill logic run at most once per enemy.
func (u *unit) deathCheck(enc *Encounter) error {
	for {
		changed := false
		for i := range enc.Enemies {
			en := &enc.Enemies[i]
			if en.HP > 0 || en.KillCredited {
				continue
			}
			changed = true
			if err := u.creditKill(enc, en); err != nil {
				return err
			}
		}
		for i := range enc.Participants {
			p := &enc.Participants[i]
			if p.Status != StatusActive {
				continue
			}
			c, err := u.character(p.CharacterID)
			if err != nil {
				return err
			}
			if c.Alive() {
				continue
			}
			changed = true
			c.HP = 0
			if err := u.leave(enc, c.ID, StatusDead); err != nil {
				return err
			}
			u.announce(enc, "%s falls.", c.Name)
		}
		for i := range enc.Pets {
			pet := &enc.Pets[i]
			if pet.Dead || pet.HP > 0 {
				continue
			}
			changed = true
			pet.Dead = true
			NewLedger(enc).RemoveHolder(PetHolder(pet.ID))
			u.announce(enc, "%s is killed.", pet.Name)
		}
		if !changed {
			return nil
		}
	}
}

// creditKill runs the one-time kill logic for en.
func (u *unit) creditKill(enc *Encounter, en *Enemy) error {
	en.HP = 0
	en.Defeated = true
	en.KillCredited = true
	NewLedger(enc).RemoveEnemy(en.ID)
	removeCastsBy(enc, enemyHolder(en.ID))
	for _, p := range enc.Participants {
		c, err := u.character(p.CharacterID)
		if err != nil {
			return err
		}
		if c.CombatTarget == en.ID {
			c.CombatTarget = 0
		}
	}
	u.announce(enc, "%s is slain.", en.Name)

	killerID := ownerOf(enc, en.LastHitBy)
	p := enc.Participant(killerID)
	if p == nil {
		return nil
	}
	p.Kills++
	if p.Status != StatusActive {
		return nil
	}
	killer, err := u.character(killerID)
	if err != nil {
		return err
	}
	return u.applyPerkProcs(enc, killer, perk.OnKill, 0, en)
}
