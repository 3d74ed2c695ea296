package perk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
)

func samplePerks() []*perk.Perk {
	return []*perk.Perk{
		{Key: "sharpened", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnHit, Chance: 30, Shape: perk.ShapeFlatDamage, Amount: 3},
		{Key: "bloodlust", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnKill, Chance: 100, Shape: perk.ShapeAoE, Amount: 5},
		{Key: "dormant", Rank: 2, Kind: perk.KindPassive, Trigger: perk.OnHit, Chance: 0, Shape: perk.ShapeFlatDamage, Amount: 1},
		{Key: "second_wind", Rank: 2, Kind: perk.KindActive, Active: perk.ActiveHeal, Power: 25},
	}
}

func TestRegistry_FindAndPools(t *testing.T) {
	reg, err := perk.NewRegistry(samplePerks())
	require.NoError(t, err)

	p, ok := reg.FindByKey("second_wind")
	require.True(t, ok)
	assert.Equal(t, "perk:second_wind", p.CooldownKey())

	pool := reg.PoolForRank(1)
	require.Len(t, pool, 2)
	assert.Equal(t, "bloodlust", pool[0].Key)
	pool[0] = nil
	assert.NotNil(t, reg.PoolForRank(1)[0], "pool must be returned as a copy")
	assert.Empty(t, reg.PoolForRank(9))
}

func TestRegistry_FindByAbilityKey(t *testing.T) {
	perks := append(samplePerks(), &perk.Perk{Key: "rend", Rank: 3, Kind: perk.KindActive, Active: perk.ActiveDamage, AbilityKey: "rend_strike", Power: 150})
	reg, err := perk.NewRegistry(perks)
	require.NoError(t, err)

	p, ok := reg.FindByAbilityKey("rend_strike")
	require.True(t, ok)
	assert.Equal(t, "rend", p.Key)

	p, ok = reg.FindByAbilityKey("second_wind")
	require.True(t, ok, "perk key works when no ability key matches")
	assert.Equal(t, "second_wind", p.Key)

	_, ok = reg.FindByAbilityKey("nope")
	assert.False(t, ok)
}

func TestRegistry_ProceduresForTrigger(t *testing.T) {
	reg, err := perk.NewRegistry(samplePerks())
	require.NoError(t, err)

	chosen := []string{"second_wind", "unknown", "sharpened", "dormant", "bloodlust"}
	procs := reg.ProceduresForTrigger(chosen, perk.OnHit)
	require.Len(t, procs, 1, "zero-chance and active perks are excluded")
	assert.Equal(t, 2, procs[0].Index)
	assert.Equal(t, "sharpened", procs[0].Perk.Key)

	kills := reg.ProceduresForTrigger(chosen, perk.OnKill)
	require.Len(t, kills, 1)
	assert.Equal(t, 4, kills[0].Index)
}

func TestValidate(t *testing.T) {
	bad := []*perk.Perk{
		{Key: "", Rank: 1, Kind: perk.KindPassive},
		{Key: "a", Rank: 0, Kind: perk.KindPassive},
		{Key: "a", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnHit, Shape: perk.ShapeAoE},
		{Key: "a", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnHit, Chance: 120, Shape: perk.ShapeFlatDamage},
		{Key: "a", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnHit, Shape: perk.ShapeBuff, EffectType: effect.ArmorBonus},
		{Key: "a", Rank: 1, Kind: perk.KindActive, Active: "fly", Power: 1},
		{Key: "a", Rank: 1, Kind: perk.KindActive, Active: perk.ActiveDamage},
	}
	for i, p := range bad {
		assert.Error(t, p.Validate(), "case %d", i)
	}
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rank1.yaml"), []byte(`
perks:
  - key: sharpened
    name: Sharpened Edge
    rank: 1
    kind: passive
    trigger: on_hit
    chance: 30
    shape: bonus_damage_flat
    amount: 3
    script: sharpened_bonus
  - key: fortify
    rank: 1
    kind: active
    active: active_buff
    effect_type: armor_bonus
    rounds: 3
    power: 4
    cooldown: 30s
`), 0644))
	reg, err := perk.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, reg.PoolForRank(1), 2)
	assert.Equal(t, []string{"sharpened_bonus"}, reg.Scripts())
}

func TestNewRegistry_Duplicate(t *testing.T) {
	p := samplePerks()[0]
	_, err := perk.NewRegistry([]*perk.Perk{p, p})
	assert.Error(t, err)
}
