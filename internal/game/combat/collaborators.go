package combat

//go:generate go tool mockgen -destination=./mocks/collaborators_mock.go -package=mocks . LootResolver,Narrator,Progression,StatsProvider,PerkOwnership,ScriptHooks

import (
	"context"

	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/scripting"
)

// LootResolver turns a loot table key into concrete items. It is called inside
// the unit of work and must be a pure function of its inputs.
type LootResolver interface {
	Resolve(ctx context.Context, key npc.LootKey, seed uint64) ([]npc.LootItem, error)
}

// Narrator delivers narrative lines to feeds. Called after commit.
type Narrator interface {
	ToCharacter(ctx context.Context, characterID int64, text string)
	ToGroup(ctx context.Context, groupID int64, text string)
	ToLocation(ctx context.Context, location string, text string)
}

// Progression grants experience and standing. Called after commit.
type Progression interface {
	GrantXP(ctx context.Context, characterID int64, amount int) error
	GrantRenown(ctx context.Context, characterID int64, amount int) error
	AdjustFaction(ctx context.Context, characterID int64, faction string, delta int) error
	RecordKill(ctx context.Context, characterID int64, templateID string) error
}

// Stats is the effective combat profile of a character.
type Stats struct {
	Level      int
	Weapon     Weapon
	ArmorClass int
}

// StatsProvider derives a character's effective combat stats.
type StatsProvider interface {
	CombatStats(ctx context.Context, c Character) (Stats, error)
}

// PerkOwnership checks whether a character may use a perk.
type PerkOwnership interface {
	Owns(ctx context.Context, c Character, perkKey string) (bool, error)
}

// ScriptHooks computes scripted perk bonus damage.
type ScriptHooks interface {
	BonusDamage(hook string, in scripting.ProcInput) int
}

// RowStats reads stats straight from the character row.
type RowStats struct{}

// CombatStats implements StatsProvider.
func (RowStats) CombatStats(_ context.Context, c Character) (Stats, error) {
	return Stats{Level: c.Level, Weapon: c.Weapon, ArmorClass: c.ArmorClass}, nil
}

// ChosenPerks treats a character as owning exactly its chosen perks.
type ChosenPerks struct{}

// Owns implements PerkOwnership.
func (ChosenPerks) Owns(_ context.Context, c Character, perkKey string) (bool, error) {
	for _, k := range c.Perks {
		if k == perkKey {
			return true, nil
		}
	}
	return false, nil
}

// NoScripts is a ScriptHooks that never adds damage.
type NoScripts struct{}

// BonusDamage implements ScriptHooks.
func (NoScripts) BonusDamage(string, scripting.ProcInput) int { return 0 }
