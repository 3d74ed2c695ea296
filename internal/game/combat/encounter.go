package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// Engage commits characterID, and every consenting group member beside them,
// to a fight with spawnID.
//
// Postcondition: on success the spawn is locked, an active encounter exists
// and Reply.EncounterID names it. On refusal nothing is mutated.
func (e *Engine) Engage(ctx context.Context, characterID, spawnID int64) (Reply, error) {
	return e.run(ctx, characterID, func(u *unit) error {
		enc, refusal, err := u.engage(characterID, spawnID, 0)
		if err != nil {
			return err
		}
		if refusal != "" {
			u.fail("%s", refusal)
			return nil
		}
		u.reply.EncounterID = enc.ID
		u.ok("")
		return nil
	})
}

// engage creates the encounter. pullID is the pull allowed to hold the spawn,
// or 0 for a direct engage. A non-empty refusal means nothing was mutated.
func (u *unit) engage(leaderID, spawnID, pullID int64) (*Encounter, string, error) {
	leader, err := u.character(leaderID)
	if err != nil {
		return nil, "", err
	}
	if refusal, err := u.readyToFight(leader); err != nil || refusal != "" {
		return nil, refusal, err
	}

	spawn, err := u.tx.Spawn(u.ctx, spawnID)
	if errors.Is(err, ErrNotFound) {
		return nil, "There is nothing like that to fight.", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("loading spawn %d: %w", spawnID, err)
	}
	if spawn.Location != leader.Location {
		return nil, "That is not here.", nil
	}
	def, err := u.e.catalog.Spawn(spawn.DefID)
	if err != nil {
		return nil, "", fmt.Errorf("spawn %d: %w", spawn.ID, err)
	}
	claimable := spawn.State == SpawnAvailable ||
		(pullID != 0 && spawn.State == SpawnPulling && spawn.LockedBy == pullID)
	if !claimable {
		return nil, fmt.Sprintf("%s is already engaged.", def.Name), nil
	}

	id, err := u.newID()
	if err != nil {
		return nil, "", err
	}
	enc := &Encounter{
		ID:             id,
		Location:       spawn.Location,
		GroupID:        leader.GroupID,
		LeaderID:       leader.ID,
		SpawnID:        spawn.ID,
		State:          StateActive,
		CreatedAt:      u.now,
		NextEffectTick: u.now.Add(u.e.cfg.EffectTickInterval),
	}
	u.track(enc)
	for _, m := range def.Members {
		if err := u.addEnemy(enc, m.Template, m.Role); err != nil {
			return nil, "", err
		}
	}

	if err := u.join(enc, leader); err != nil {
		return nil, "", err
	}
	if leader.GroupID != 0 {
		members, err := u.groupMembers(leader.GroupID)
		if err != nil {
			return nil, "", err
		}
		for _, m := range members {
			if m.ID == leader.ID || !m.AutoJoin || m.Location != leader.Location {
				continue
			}
			if refusal, err := u.readyToFight(m); err != nil {
				return nil, "", err
			} else if refusal != "" {
				continue
			}
			if err := u.join(enc, m); err != nil {
				return nil, "", err
			}
		}
	}

	spawn.State = SpawnLocked
	spawn.LockedBy = enc.ID
	if err := u.tx.SaveSpawn(u.ctx, spawn); err != nil {
		return nil, "", fmt.Errorf("locking spawn %d: %w", spawn.ID, err)
	}
	u.e.logger.Info("encounter started",
		zap.Int64("encounter_id", enc.ID),
		zap.String("spawn", def.ID),
		zap.Int("participants", len(enc.Participants)),
		zap.Int("enemies", len(enc.Enemies)),
	)
	u.announce(enc, "%s engages %s!", leader.Name, def.Name)
	return enc, "", u.wake(enc)
}

// readyToFight returns a refusal when c cannot enter a new encounter.
func (u *unit) readyToFight(c *Character) (string, error) {
	if !c.Alive() {
		return "You are too wounded to fight.", nil
	}
	if c.Activity != ActivityIdle {
		return fmt.Sprintf("You cannot fight while %s.", c.Activity), nil
	}
	_, in, err := u.membership(c.ID)
	if err != nil {
		return "", err
	}
	if in {
		return "You are already in combat.", nil
	}
	return "", nil
}

// join adds c to enc as an active participant, bringing its pet along.
func (u *unit) join(enc *Encounter, c *Character) error {
	stats, err := u.stats(c)
	if err != nil {
		return err
	}
	if err := u.cancelLooseCast(c.ID); err != nil {
		return err
	}
	if p := enc.Participant(c.ID); p != nil {
		p.Status = StatusActive
		p.NextAttackAt = u.now.Add(u.attackSpeed(stats.Weapon.Speed))
	} else {
		enc.Participants = append(enc.Participants, Participant{
			CharacterID:  c.ID,
			Status:       StatusActive,
			NextAttackAt: u.now.Add(u.attackSpeed(stats.Weapon.Speed)),
			JoinedAt:     u.now,
		})
	}
	c.CombatTarget = 0

	ledger := NewLedger(enc)
	holders := []Holder{CharacterHolder(c.ID)}
	if c.Pet != nil {
		id, err := u.newID()
		if err != nil {
			return err
		}
		enc.Pets = append(enc.Pets, Pet{
			ID:              id,
			OwnerID:         c.ID,
			Name:            c.Pet.Name,
			HP:              c.Pet.MaxHP,
			MaxHP:           c.Pet.MaxHP,
			AttackDamage:    c.Pet.AttackDamage,
			AttackSpeed:     u.attackSpeed(c.Pet.AttackSpeed),
			NextAttackAt:    u.now.Add(u.attackSpeed(c.Pet.AttackSpeed)),
			AbilityKey:      c.Pet.AbilityKey,
			AbilityDamage:   c.Pet.AbilityDamage,
			AbilityCooldown: c.Pet.AbilityCooldown,
			AbilityReadyAt:  u.now.Add(c.Pet.AbilityCooldown),
		})
		holders = append(holders, PetHolder(id))
	}
	for _, en := range enc.LivingEnemies() {
		for _, h := range holders {
			ledger.Add(en.ID, h, 0)
		}
	}
	return nil
}

// addEnemy materializes templateID with role into enc.
func (u *unit) addEnemy(enc *Encounter, templateID string, role npc.Role) error {
	tmpl, err := u.e.catalog.Template(templateID)
	if err != nil {
		return fmt.Errorf("encounter %d: %w", enc.ID, err)
	}
	id, err := u.newID()
	if err != nil {
		return err
	}
	maxHP, damage := tmpl.Scaled(role)
	speed := u.attackSpeed(tmpl.AttackSpeed)
	name := tmpl.Name
	if role == npc.RoleElite {
		name = "elite " + name
	}
	en := Enemy{
		ID:           id,
		TemplateID:   tmpl.ID,
		Role:         role,
		Name:         name,
		HP:           maxHP,
		MaxHP:        maxHP,
		AttackDamage: damage,
		ArmorClass:   tmpl.ArmorClass,
		AttackSpeed:  speed,
		NextAttackAt: u.now.Add(speed),
		Cooldowns:    make(map[string]time.Time),
	}
	if len(tmpl.Abilities) > 0 {
		en.NextAbilityAt = u.now.Add(speed)
	}
	enc.Enemies = append(enc.Enemies, en)

	ledger := NewLedger(enc)
	for _, p := range enc.ActiveParticipants() {
		ledger.Add(id, CharacterHolder(p.CharacterID), 0)
	}
	for i := range enc.Pets {
		if !enc.Pets[i].Dead {
			ledger.Add(id, PetHolder(enc.Pets[i].ID), 0)
		}
	}
	return nil
}

// queueAdd schedules a reinforcement unless the encounter is at its add cap.
func (u *unit) queueAdd(enc *Encounter, templateID string, role npc.Role, at time.Time) (bool, error) {
	if enc.AddsSpawned+len(enc.Adds) >= u.e.cfg.MaxAdds {
		return false, nil
	}
	id, err := u.newID()
	if err != nil {
		return false, err
	}
	enc.Adds = append(enc.Adds, PendingAdd{ID: id, TemplateID: templateID, Role: role, ArriveAt: at})
	syncAdds(enc)
	return true, nil
}

func syncAdds(enc *Encounter) {
	enc.PendingAdds = len(enc.Adds)
	enc.PendingAddsAt = time.Time{}
	for _, a := range enc.Adds {
		if enc.PendingAddsAt.IsZero() || a.ArriveAt.Before(enc.PendingAddsAt) {
			enc.PendingAddsAt = a.ArriveAt
		}
	}
}

func (u *unit) attackSpeed(speed time.Duration) time.Duration {
	if speed > 0 {
		return speed
	}
	return u.e.cfg.DefaultAttackSpeed
}

// leave takes characterID out of the fight with status.
func (u *unit) leave(enc *Encounter, characterID int64, status ParticipantStatus) error {
	p := enc.Participant(characterID)
	if p == nil {
		return nil
	}
	p.Status = status
	removeCastsBy(enc, CharacterHolder(characterID))
	ledger := NewLedger(enc)
	ledger.RemoveHolder(CharacterHolder(characterID))
	if pet := enc.PetOf(characterID); pet != nil {
		pet.Dead = true
		ledger.RemoveHolder(PetHolder(pet.ID))
	}
	c, err := u.character(characterID)
	if err != nil {
		return err
	}
	c.CombatTarget = 0
	return nil
}

func enemyHolder(id int64) Holder { return Holder{Kind: HolderEnemy, ID: id} }

func removeCast(enc *Encounter, id int64) {
	kept := enc.Casts[:0]
	for _, c := range enc.Casts {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	enc.Casts = kept
}

func removeCastsBy(enc *Encounter, actor Holder) {
	kept := enc.Casts[:0]
	for _, c := range enc.Casts {
		if c.Actor != actor {
			kept = append(kept, c)
		}
	}
	enc.Casts = kept
}

// firstLiving returns the first living enemy in id order.
func firstLiving(enc *Encounter) *Enemy {
	if living := enc.LivingEnemies(); len(living) > 0 {
		return living[0]
	}
	return nil
}

// wake schedules the encounter tick at the earliest outstanding timer.
func (u *unit) wake(enc *Encounter) error {
	if enc.State != StateActive {
		return nil
	}
	var next time.Time
	consider := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	consider(enc.NextEffectTick)
	for _, p := range enc.ActiveParticipants() {
		consider(p.NextAttackAt)
	}
	for i := range enc.Pets {
		pet := &enc.Pets[i]
		if pet.Dead {
			continue
		}
		consider(pet.NextAttackAt)
		if pet.AbilityKey != "" {
			consider(pet.AbilityReadyAt)
		}
	}
	for _, en := range enc.LivingEnemies() {
		consider(en.NextAttackAt)
		consider(en.NextAbilityAt)
	}
	for _, c := range enc.Casts {
		consider(c.EndsAt)
	}
	for _, a := range enc.Adds {
		consider(a.ArriveAt)
	}
	if next.IsZero() || next.Before(u.now) {
		next = u.now
	}
	return u.schedule(schedule.KindEncounterTick, enc.ID, next)
}
