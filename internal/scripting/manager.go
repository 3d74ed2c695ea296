package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

// ProcInput is the snapshot handed to a perk hook.
type ProcInput struct {
	CharacterID int64
	Level       int
	Trigger     string
	Damage      int
	EnemyHP     int
	EnemyMaxHP  int
	Seed        uint64
}

// Manager owns one sandboxed LState holding every perk hook.
// Calls are serialized because an LState is single-threaded.
type Manager struct {
	mu        sync.Mutex
	L         *lua.LState
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: logger must be non-nil.
func NewManager(instLimit int, logger *zap.Logger) *Manager {
	m := &Manager{L: NewSandboxedState(), instLimit: instLimit, logger: logger}
	m.registerModule()
	return m
}

// registerModule exposes combat.percent(seed, salt) so hooks can roll without math.random.
func (m *Manager) registerModule() {
	mod := m.L.NewTable()
	m.L.SetField(mod, "percent", m.L.NewFunction(func(L *lua.LState) int {
		seed := uint64(L.CheckNumber(1))
		salt := uint64(L.OptNumber(2, 0))
		L.Push(lua.LNumber(dice.Percent(dice.Mix(seed, salt))))
		return 1
	}))
	m.L.SetGlobal("combat", mod)
}

// LoadDirectory executes every *.lua file in dir in lexicographic order.
// A missing directory is not an error.
//
// Postcondition: hooks defined by the files are callable through BonusDamage.
func (m *Manager) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, path := range files {
		if err := m.DoString(path, ""); err != nil {
			return err
		}
	}
	return nil
}

// DoString runs src, or the file at name when src is empty.
func (m *Manager) DoString(name, src string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cancel := limitNextCall(m.L, m.instLimit)
	defer cancel()
	var err error
	if src == "" {
		err = m.L.DoFile(name)
	} else {
		err = m.L.DoString(src)
	}
	if err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// HasHook reports whether a global function named hook is defined.
func (m *Manager) HasHook(hook string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	return ok
}

// BonusDamage calls hook with a table describing the proc and returns its
// numeric result. Undefined hooks, Lua errors and non-numeric or negative
// results yield 0; runtime errors are logged at warn level.
//
// Postcondition: return value >= 0.
func (m *Manager) BonusDamage(hook string, in ProcInput) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := m.L.GetGlobal(hook).(*lua.LFunction)
	if !ok {
		return 0
	}

	arg := m.L.NewTable()
	arg.RawSetString("character_id", lua.LNumber(in.CharacterID))
	arg.RawSetString("level", lua.LNumber(in.Level))
	arg.RawSetString("trigger", lua.LString(in.Trigger))
	arg.RawSetString("damage", lua.LNumber(in.Damage))
	arg.RawSetString("enemy_hp", lua.LNumber(in.EnemyHP))
	arg.RawSetString("enemy_max_hp", lua.LNumber(in.EnemyMaxHP))
	arg.RawSetString("seed", lua.LNumber(in.Seed%(1<<53)))

	cancel := limitNextCall(m.L, m.instLimit)
	defer cancel()
	if err := m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, arg); err != nil {
		m.logger.Warn("scripting: perk hook failed", zap.String("hook", hook), zap.Error(err))
		return 0
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok || n < 0 {
		return 0
	}
	return int(n)
}

// Close releases the VM.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.L.Close()
}
