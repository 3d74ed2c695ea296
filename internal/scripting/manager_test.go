package scripting_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/mudcombat/internal/scripting"
)

func newManager(t *testing.T, limit int) *scripting.Manager {
	t.Helper()
	m := scripting.NewManager(limit, zaptest.NewLogger(t))
	t.Cleanup(m.Close)
	return m
}

func TestBonusDamage(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.DoString("inline", `
function execute(p)
  if p.enemy_hp * 4 < p.enemy_max_hp then
    return p.damage
  end
  return 1
end
`))
	assert.True(t, m.HasHook("execute"))
	assert.Equal(t, 10, m.BonusDamage("execute", scripting.ProcInput{Damage: 10, EnemyHP: 2, EnemyMaxHP: 20}))
	assert.Equal(t, 1, m.BonusDamage("execute", scripting.ProcInput{Damage: 10, EnemyHP: 20, EnemyMaxHP: 20}))
}

func TestBonusDamage_UndefinedAndInvalid(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.DoString("inline", `
function negative(p) return -5 end
function text(p) return "lots" end
function broken(p) error("nope") end
`))
	assert.False(t, m.HasHook("missing"))
	assert.Equal(t, 0, m.BonusDamage("missing", scripting.ProcInput{}))
	assert.Equal(t, 0, m.BonusDamage("negative", scripting.ProcInput{}))
	assert.Equal(t, 0, m.BonusDamage("text", scripting.ProcInput{}))
	assert.Equal(t, 0, m.BonusDamage("broken", scripting.ProcInput{}))
}

func TestBonusDamage_InstructionLimitPerCall(t *testing.T) {
	m := newManager(t, 1000)
	require.NoError(t, m.DoString("inline", `
function spin(p) while true do end end
function quick(p) return 3 end
`))
	assert.Equal(t, 0, m.BonusDamage("spin", scripting.ProcInput{}))
	assert.Equal(t, 3, m.BonusDamage("quick", scripting.ProcInput{}), "budget resets between calls")
}

func TestSandbox_NoRandomOrFiles(t *testing.T) {
	m := newManager(t, 0)
	require.NoError(t, m.DoString("inline", `
function probe(p)
  if math.random ~= nil or dofile ~= nil or require ~= nil then return 1 end
  return combat.percent(p.seed, 1) + 100
end
`))
	got := m.BonusDamage("probe", scripting.ProcInput{Seed: 42})
	assert.GreaterOrEqual(t, got, 100)
	assert.Less(t, got, 200)
	assert.Equal(t, got, m.BonusDamage("probe", scripting.ProcInput{Seed: 42}))
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function two(p) return 2 end`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`garbage`), 0644))

	m := newManager(t, 0)
	require.NoError(t, m.LoadDirectory(dir))
	assert.Equal(t, 2, m.BonusDamage("two", scripting.ProcInput{}))
	assert.NoError(t, m.LoadDirectory(filepath.Join(dir, "missing")))
}
