package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

var _ combat.Tx = (*tx)(nil)

// tx implements combat.Tx over one pgx transaction.
type tx struct {
	tx pgx.Tx
}

func (t *tx) NextID(ctx context.Context) (int64, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('combat_ids')`).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocating id: %w", err)
	}
	return id, nil
}

const characterColumns = `id, account_id, name, level, location, group_id, auto_join, activity, destination,
	hp, max_hp, mana, max_mana, stamina, max_stamina, armor_class,
	weapon_base_damage, weapon_dps, weapon_speed_ms, combat_target, perks, pet, effects`

func scanCharacter(row pgx.Row) (combat.Character, error) {
	var (
		c       combat.Character
		speedMS int64
	)
	err := row.Scan(
		&c.ID, &c.AccountID, &c.Name, &c.Level, &c.Location, &c.GroupID, &c.AutoJoin, &c.Activity, &c.Destination,
		&c.HP, &c.MaxHP, &c.Mana, &c.MaxMana, &c.Stamina, &c.MaxStamina, &c.ArmorClass,
		&c.Weapon.BaseDamage, &c.Weapon.DPS, &speedMS, &c.CombatTarget, &c.Perks, &c.Pet, &c.Effects,
	)
	c.Weapon.Speed = time.Duration(speedMS) * time.Millisecond
	return c, err
}

func (t *tx) Character(ctx context.Context, id int64) (combat.Character, error) {
	c, err := scanCharacter(t.tx.QueryRow(ctx, `SELECT `+characterColumns+` FROM characters WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Character{}, notFound("character", id)
	}
	if err != nil {
		return combat.Character{}, fmt.Errorf("loading character %d: %w", id, err)
	}
	return c, nil
}

func (t *tx) SaveCharacter(ctx context.Context, c combat.Character) error {
	perks := c.Perks
	if perks == nil {
		perks = []string{}
	}
	effects := c.Effects
	if effects == nil {
		effects = []effect.Effect{}
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT (id) DO UPDATE SET
			account_id = EXCLUDED.account_id, name = EXCLUDED.name, level = EXCLUDED.level,
			location = EXCLUDED.location, group_id = EXCLUDED.group_id, auto_join = EXCLUDED.auto_join,
			activity = EXCLUDED.activity, destination = EXCLUDED.destination,
			hp = EXCLUDED.hp, max_hp = EXCLUDED.max_hp, mana = EXCLUDED.mana, max_mana = EXCLUDED.max_mana,
			stamina = EXCLUDED.stamina, max_stamina = EXCLUDED.max_stamina, armor_class = EXCLUDED.armor_class,
			weapon_base_damage = EXCLUDED.weapon_base_damage, weapon_dps = EXCLUDED.weapon_dps,
			weapon_speed_ms = EXCLUDED.weapon_speed_ms, combat_target = EXCLUDED.combat_target,
			perks = EXCLUDED.perks, pet = EXCLUDED.pet, effects = EXCLUDED.effects`,
		c.ID, c.AccountID, c.Name, c.Level, c.Location, c.GroupID, c.AutoJoin, c.Activity, c.Destination,
		c.HP, c.MaxHP, c.Mana, c.MaxMana, c.Stamina, c.MaxStamina, c.ArmorClass,
		c.Weapon.BaseDamage, c.Weapon.DPS, c.Weapon.Speed.Milliseconds(), c.CombatTarget, perks, c.Pet, effects,
	)
	if err != nil {
		return fmt.Errorf("saving character %d: %w", c.ID, err)
	}
	return nil
}

func (t *tx) characters(ctx context.Context, query string, args ...any) ([]combat.Character, error) {
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()
	var out []combat.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (t *tx) Characters(ctx context.Context) ([]combat.Character, error) {
	return t.characters(ctx, `SELECT `+characterColumns+` FROM characters ORDER BY id`)
}

func (t *tx) GroupMembers(ctx context.Context, groupID int64) ([]combat.Character, error) {
	if groupID == 0 {
		return nil, nil
	}
	return t.characters(ctx, `SELECT `+characterColumns+` FROM characters WHERE group_id = $1 ORDER BY id`, groupID)
}

const spawnColumns = `id, def_id, location, state, locked_by, available_at`

func scanSpawn(row pgx.Row) (combat.Spawn, error) {
	var s combat.Spawn
	err := row.Scan(&s.ID, &s.DefID, &s.Location, &s.State, &s.LockedBy, &s.AvailableAt)
	return s, err
}

func (t *tx) Spawn(ctx context.Context, id int64) (combat.Spawn, error) {
	s, err := scanSpawn(t.tx.QueryRow(ctx, `SELECT `+spawnColumns+` FROM spawns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Spawn{}, notFound("spawn", id)
	}
	if err != nil {
		return combat.Spawn{}, fmt.Errorf("loading spawn %d: %w", id, err)
	}
	return s, nil
}

func (t *tx) SpawnByDef(ctx context.Context, defID string) (combat.Spawn, error) {
	s, err := scanSpawn(t.tx.QueryRow(ctx, `SELECT `+spawnColumns+` FROM spawns WHERE def_id = $1`, defID))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Spawn{}, notFound("spawn definition", defID)
	}
	if err != nil {
		return combat.Spawn{}, fmt.Errorf("loading spawn %q: %w", defID, err)
	}
	return s, nil
}

func (t *tx) SpawnsAt(ctx context.Context, location string) ([]combat.Spawn, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+spawnColumns+` FROM spawns WHERE location = $1 ORDER BY id`, location)
	if err != nil {
		return nil, fmt.Errorf("listing spawns at %q: %w", location, err)
	}
	defer rows.Close()
	var out []combat.Spawn
	for rows.Next() {
		s, err := scanSpawn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning spawn row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *tx) SaveSpawn(ctx context.Context, s combat.Spawn) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO spawns (`+spawnColumns+`) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			location = EXCLUDED.location, state = EXCLUDED.state,
			locked_by = EXCLUDED.locked_by, available_at = EXCLUDED.available_at`,
		s.ID, s.DefID, s.Location, s.State, s.LockedBy, s.AvailableAt,
	)
	if err != nil {
		return fmt.Errorf("saving spawn %d: %w", s.ID, err)
	}
	return nil
}

func (t *tx) Encounter(ctx context.Context, id int64) (combat.Encounter, error) {
	var e combat.Encounter
	err := t.tx.QueryRow(ctx, `SELECT body FROM encounters WHERE id = $1`, id).Scan(&e)
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Encounter{}, notFound("encounter", id)
	}
	if err != nil {
		return combat.Encounter{}, fmt.Errorf("loading encounter %d: %w", id, err)
	}
	return e, nil
}

// SaveEncounter writes the encounter body and replaces its membership rows.
func (t *tx) SaveEncounter(ctx context.Context, e combat.Encounter) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO encounters (id, spawn_id, group_id, location, state, body) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET
			group_id = EXCLUDED.group_id, location = EXCLUDED.location,
			state = EXCLUDED.state, body = EXCLUDED.body`,
		e.ID, e.SpawnID, e.GroupID, e.Location, e.State, e,
	)
	batch.Queue(`DELETE FROM encounter_members WHERE encounter_id = $1`, e.ID)
	for _, p := range e.Participants {
		batch.Queue(`INSERT INTO encounter_members (encounter_id, character_id, status) VALUES ($1,$2,$3)`,
			e.ID, p.CharacterID, p.Status)
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving encounter %d: %w", e.ID, err)
	}
	return nil
}

func (t *tx) DeleteEncounter(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM encounters WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting encounter %d: %w", id, err)
	}
	return nil
}

func (t *tx) oneEncounter(ctx context.Context, query string, args ...any) (combat.Encounter, bool, error) {
	var e combat.Encounter
	err := t.tx.QueryRow(ctx, query, args...).Scan(&e)
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Encounter{}, false, nil
	}
	if err != nil {
		return combat.Encounter{}, false, err
	}
	return e, true, nil
}

func (t *tx) MembershipFor(ctx context.Context, characterID int64) (combat.Encounter, bool, error) {
	e, ok, err := t.oneEncounter(ctx, `
		SELECT e.body FROM encounters e
		JOIN encounter_members m ON m.encounter_id = e.id
		WHERE m.character_id = $1 AND m.status <> $2 AND e.state = $3
		ORDER BY e.id LIMIT 1`,
		characterID, combat.StatusFled, combat.StateActive,
	)
	if err != nil {
		return combat.Encounter{}, false, fmt.Errorf("membership for character %d: %w", characterID, err)
	}
	return e, ok, nil
}

func (t *tx) GroupEncounterAt(ctx context.Context, groupID int64, location string) (combat.Encounter, bool, error) {
	if groupID == 0 {
		return combat.Encounter{}, false, nil
	}
	e, ok, err := t.oneEncounter(ctx, `
		SELECT body FROM encounters
		WHERE group_id = $1 AND location = $2 AND state = $3
		ORDER BY id LIMIT 1`,
		groupID, location, combat.StateActive,
	)
	if err != nil {
		return combat.Encounter{}, false, fmt.Errorf("group %d encounter: %w", groupID, err)
	}
	return e, ok, nil
}

func (t *tx) CooldownReadyAt(ctx context.Context, characterID int64, key string) (time.Time, error) {
	var at time.Time
	err := t.tx.QueryRow(ctx, `SELECT ready_at FROM cooldowns WHERE character_id = $1 AND key = $2`,
		characterID, key).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("loading cooldown %q: %w", key, err)
	}
	return at, nil
}

func (t *tx) SaveCooldown(ctx context.Context, characterID int64, key string, readyAt time.Time) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cooldowns (character_id, key, ready_at) VALUES ($1,$2,$3)
		ON CONFLICT (character_id, key) DO UPDATE SET ready_at = EXCLUDED.ready_at`,
		characterID, key, readyAt,
	)
	if err != nil {
		return fmt.Errorf("saving cooldown %q: %w", key, err)
	}
	return nil
}

const castColumns = `id, encounter_id, actor_kind, actor_id, ability_key, target_kind, target_id, started_at, ends_at`

func scanCast(row pgx.Row) (combat.Cast, error) {
	var c combat.Cast
	err := row.Scan(&c.ID, &c.EncounterID, &c.Actor.Kind, &c.Actor.ID, &c.AbilityKey,
		&c.Target.Kind, &c.Target.ID, &c.StartedAt, &c.EndsAt)
	return c, err
}

func (t *tx) CastFor(ctx context.Context, characterID int64) (combat.Cast, bool, error) {
	c, err := scanCast(t.tx.QueryRow(ctx, `
		SELECT `+castColumns+` FROM casts WHERE actor_kind = $1 AND actor_id = $2 ORDER BY id LIMIT 1`,
		combat.HolderCharacter, characterID))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Cast{}, false, nil
	}
	if err != nil {
		return combat.Cast{}, false, fmt.Errorf("loading cast for character %d: %w", characterID, err)
	}
	return c, true, nil
}

func (t *tx) Cast(ctx context.Context, id int64) (combat.Cast, error) {
	c, err := scanCast(t.tx.QueryRow(ctx, `SELECT `+castColumns+` FROM casts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Cast{}, notFound("cast", id)
	}
	if err != nil {
		return combat.Cast{}, fmt.Errorf("loading cast %d: %w", id, err)
	}
	return c, nil
}

func (t *tx) SaveCast(ctx context.Context, c combat.Cast) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO casts (`+castColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET
			target_kind = EXCLUDED.target_kind, target_id = EXCLUDED.target_id, ends_at = EXCLUDED.ends_at`,
		c.ID, c.EncounterID, c.Actor.Kind, c.Actor.ID, c.AbilityKey, c.Target.Kind, c.Target.ID, c.StartedAt, c.EndsAt,
	)
	if err != nil {
		return fmt.Errorf("saving cast %d: %w", c.ID, err)
	}
	return nil
}

func (t *tx) DeleteCast(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM casts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting cast %d: %w", id, err)
	}
	return nil
}

const pullColumns = `id, puller_id, spawn_id, type, status, started_at, resolves_at,
	delayed_adds, delayed_adds_at, outcome, encounter_id`

func scanPull(row pgx.Row) (combat.PullState, error) {
	var p combat.PullState
	err := row.Scan(&p.ID, &p.PullerID, &p.SpawnID, &p.Type, &p.Status, &p.StartedAt, &p.ResolvesAt,
		&p.DelayedAdds, &p.DelayedAddsAt, &p.Outcome, &p.EncounterID)
	return p, err
}

func (t *tx) Pull(ctx context.Context, id int64) (combat.PullState, error) {
	p, err := scanPull(t.tx.QueryRow(ctx, `SELECT `+pullColumns+` FROM pulls WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.PullState{}, notFound("pull", id)
	}
	if err != nil {
		return combat.PullState{}, fmt.Errorf("loading pull %d: %w", id, err)
	}
	return p, nil
}

func (t *tx) PendingPullFor(ctx context.Context, characterID int64) (combat.PullState, bool, error) {
	p, err := scanPull(t.tx.QueryRow(ctx, `
		SELECT `+pullColumns+` FROM pulls WHERE puller_id = $1 AND status = $2 ORDER BY id LIMIT 1`,
		characterID, combat.PullPending))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.PullState{}, false, nil
	}
	if err != nil {
		return combat.PullState{}, false, fmt.Errorf("loading pull for character %d: %w", characterID, err)
	}
	return p, true, nil
}

func (t *tx) SavePull(ctx context.Context, p combat.PullState) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO pulls (`+pullColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status, resolves_at = EXCLUDED.resolves_at,
			delayed_adds = EXCLUDED.delayed_adds, delayed_adds_at = EXCLUDED.delayed_adds_at,
			outcome = EXCLUDED.outcome, encounter_id = EXCLUDED.encounter_id`,
		p.ID, p.PullerID, p.SpawnID, p.Type, p.Status, p.StartedAt, p.ResolvesAt,
		p.DelayedAdds, p.DelayedAddsAt, p.Outcome, p.EncounterID,
	)
	if err != nil {
		return fmt.Errorf("saving pull %d: %w", p.ID, err)
	}
	return nil
}

func (t *tx) SaveResult(ctx context.Context, r combat.Result) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO results (id, encounter_id, character_id, group_id, outcome, xp, kills, damage_dealt, created_at, dismissed)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO UPDATE SET dismissed = EXCLUDED.dismissed`,
		r.ID, r.EncounterID, r.CharacterID, r.GroupID, r.Outcome, r.XP, r.Kills, r.DamageDealt, r.CreatedAt, r.Dismissed,
	)
	if err != nil {
		return fmt.Errorf("saving result %d: %w", r.ID, err)
	}
	return nil
}

func (t *tx) Results(ctx context.Context, characterID int64) ([]combat.Result, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, encounter_id, character_id, group_id, outcome, xp, kills, damage_dealt, created_at, dismissed
		FROM results WHERE character_id = $1 ORDER BY id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()
	var out []combat.Result
	for rows.Next() {
		var r combat.Result
		if err := rows.Scan(&r.ID, &r.EncounterID, &r.CharacterID, &r.GroupID, &r.Outcome,
			&r.XP, &r.Kills, &r.DamageDealt, &r.CreatedAt, &r.Dismissed); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const lootColumns = `id, encounter_id, character_id, group_id, item_id, instance_id, quantity, claimed, expires_at`

func scanLoot(row pgx.Row) (combat.Loot, error) {
	var l combat.Loot
	err := row.Scan(&l.ID, &l.EncounterID, &l.CharacterID, &l.GroupID, &l.ItemID, &l.InstanceID,
		&l.Quantity, &l.Claimed, &l.ExpiresAt)
	return l, err
}

func (t *tx) SaveLoot(ctx context.Context, l combat.Loot) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO loot (`+lootColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (id) DO UPDATE SET claimed = EXCLUDED.claimed, expires_at = EXCLUDED.expires_at`,
		l.ID, l.EncounterID, l.CharacterID, l.GroupID, l.ItemID, l.InstanceID, l.Quantity, l.Claimed, l.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("saving loot %d: %w", l.ID, err)
	}
	return nil
}

func (t *tx) Loot(ctx context.Context, id int64) (combat.Loot, error) {
	l, err := scanLoot(t.tx.QueryRow(ctx, `SELECT `+lootColumns+` FROM loot WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return combat.Loot{}, notFound("loot", id)
	}
	if err != nil {
		return combat.Loot{}, fmt.Errorf("loading loot %d: %w", id, err)
	}
	return l, nil
}

func (t *tx) lootWhere(ctx context.Context, where string, args ...any) ([]combat.Loot, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+lootColumns+` FROM loot WHERE `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing loot: %w", err)
	}
	defer rows.Close()
	var out []combat.Loot
	for rows.Next() {
		l, err := scanLoot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning loot row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *tx) LootFor(ctx context.Context, characterID, groupID int64) ([]combat.Loot, error) {
	return t.lootWhere(ctx, `character_id = $1 OR (character_id = 0 AND $2::bigint <> 0 AND group_id = $2::bigint)`,
		characterID, groupID)
}

func (t *tx) LootForEncounter(ctx context.Context, encounterID int64) ([]combat.Loot, error) {
	return t.lootWhere(ctx, `encounter_id = $1`, encounterID)
}

func (t *tx) DeleteLoot(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM loot WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting loot %d: %w", id, err)
	}
	return nil
}

func (t *tx) Task(ctx context.Context, key string) (schedule.Task, bool, error) {
	var task schedule.Task
	err := t.tx.QueryRow(ctx, `SELECT key, id, kind, ref_id, due_at FROM tasks WHERE key = $1`, key).
		Scan(&task.Key, &task.ID, &task.Kind, &task.RefID, &task.DueAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return schedule.Task{}, false, nil
	}
	if err != nil {
		return schedule.Task{}, false, fmt.Errorf("loading task %q: %w", key, err)
	}
	return task, true, nil
}

func (t *tx) SaveTask(ctx context.Context, task schedule.Task) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO tasks (key, id, kind, ref_id, due_at) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (key) DO UPDATE SET id = EXCLUDED.id, due_at = EXCLUDED.due_at`,
		task.Key, task.ID, task.Kind, task.RefID, task.DueAt,
	)
	if err != nil {
		return fmt.Errorf("saving task %q: %w", task.Key, err)
	}
	return nil
}

func (t *tx) DeleteTask(ctx context.Context, key string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM tasks WHERE key = $1`, key); err != nil {
		return fmt.Errorf("deleting task %q: %w", key, err)
	}
	return nil
}

func (t *tx) Tasks(ctx context.Context) ([]schedule.Task, error) {
	rows, err := t.tx.Query(ctx, `SELECT key, id, kind, ref_id, due_at FROM tasks ORDER BY due_at, key`)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()
	var out []schedule.Task
	for rows.Next() {
		var task schedule.Task
		if err := rows.Scan(&task.Key, &task.ID, &task.Kind, &task.RefID, &task.DueAt); err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		out = append(out, task)
	}
	return out, rows.Err()
}
