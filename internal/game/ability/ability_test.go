package ability_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcombat/internal/game/ability"
)

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "warrior.yaml"), []byte(`
abilities:
  - key: strike
    name: Heavy Strike
    kind: damage
    gate: combat_only
    resource: stamina
    cost: 10
    cooldown: 6s
    scaling_percent: 150
  - key: mend
    kind: heal
    resource: mana
    cost: 15
    cast_time: 2s
    school: magic
`), 0644))

	reg, err := ability.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"mend", "strike"}, reg.Keys())

	strike, ok := reg.Find("strike")
	require.True(t, ok)
	assert.Equal(t, 150, strike.Scaling())
	assert.Equal(t, ability.SchoolPhysical, strike.School)
	assert.True(t, strike.Hostile())

	mend, ok := reg.Find("mend")
	require.True(t, ok)
	assert.Equal(t, ability.GateAny, mend.Gate)
	assert.Equal(t, "mend", mend.Name)
	assert.Equal(t, 2*time.Second, mend.CastTime)
	assert.Equal(t, 100, mend.Scaling())
}

func TestValidate(t *testing.T) {
	cases := map[string]ability.Def{
		"no key":            {Kind: ability.KindDamage},
		"bad kind":          {Key: "x", Kind: "explode"},
		"hostile ooc":       {Key: "x", Kind: ability.KindDamage, Gate: ability.GateOutOfCombat},
		"dot no duration":   {Key: "x", Kind: ability.KindDoT},
		"buff bad effect":   {Key: "x", Kind: ability.KindBuff, Duration: 2, EffectType: "glow"},
		"negative cooldown": {Key: "x", Kind: ability.KindHeal, Cooldown: -time.Second},
	}
	for name, d := range cases {
		d := d
		assert.Error(t, d.Validate(), name)
	}
}

func TestNewRegistry_Duplicate(t *testing.T) {
	_, err := ability.NewRegistry([]*ability.Def{
		{Key: "a", Kind: ability.KindHeal},
		{Key: "a", Kind: ability.KindHeal},
	})
	assert.Error(t, err)
}
