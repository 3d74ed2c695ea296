package combat

import (
	"context"
	"time"

	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// Store runs units of work. Implementations must give fn serializable
// isolation and must discard every write made by fn when it returns an error.
// fn may be invoked more than once if the backend retries.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the typed row access available inside one unit of work.
// Lookups of a missing row return an error wrapping ErrNotFound.
type Tx interface {
	NextID(ctx context.Context) (int64, error)

	Character(ctx context.Context, id int64) (Character, error)
	SaveCharacter(ctx context.Context, c Character) error
	Characters(ctx context.Context) ([]Character, error)
	GroupMembers(ctx context.Context, groupID int64) ([]Character, error)

	Spawn(ctx context.Context, id int64) (Spawn, error)
	SpawnByDef(ctx context.Context, defID string) (Spawn, error)
	SpawnsAt(ctx context.Context, location string) ([]Spawn, error)
	SaveSpawn(ctx context.Context, s Spawn) error

	Encounter(ctx context.Context, id int64) (Encounter, error)
	SaveEncounter(ctx context.Context, e Encounter) error
	// DeleteEncounter removes the encounter and every child row it owns.
	DeleteEncounter(ctx context.Context, id int64) error
	// MembershipFor returns the active encounter in which characterID is a
	// participant that has not fled.
	MembershipFor(ctx context.Context, characterID int64) (Encounter, bool, error)
	GroupEncounterAt(ctx context.Context, groupID int64, location string) (Encounter, bool, error)

	CooldownReadyAt(ctx context.Context, characterID int64, key string) (time.Time, error)
	SaveCooldown(ctx context.Context, characterID int64, key string, readyAt time.Time) error

	// Out-of-combat casts. Casts inside an encounter live on the Encounter.
	CastFor(ctx context.Context, characterID int64) (Cast, bool, error)
	Cast(ctx context.Context, id int64) (Cast, error)
	SaveCast(ctx context.Context, c Cast) error
	DeleteCast(ctx context.Context, id int64) error

	Pull(ctx context.Context, id int64) (PullState, error)
	PendingPullFor(ctx context.Context, characterID int64) (PullState, bool, error)
	SavePull(ctx context.Context, p PullState) error

	SaveResult(ctx context.Context, r Result) error
	Results(ctx context.Context, characterID int64) ([]Result, error)

	SaveLoot(ctx context.Context, l Loot) error
	Loot(ctx context.Context, id int64) (Loot, error)
	LootFor(ctx context.Context, characterID, groupID int64) ([]Loot, error)
	LootForEncounter(ctx context.Context, encounterID int64) ([]Loot, error)
	DeleteLoot(ctx context.Context, id int64) error

	Task(ctx context.Context, key string) (schedule.Task, bool, error)
	SaveTask(ctx context.Context, t schedule.Task) error
	DeleteTask(ctx context.Context, key string) error
	Tasks(ctx context.Context) ([]schedule.Task, error)
}
