package combat_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/game/ability"
	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
	"github.com/cory-johannsen/mudcombat/internal/storage/memory"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

const forest = "forest"

// feed records narration by audience.
type feed struct {
	mu       sync.Mutex
	chars    map[int64][]string
	groups   map[int64][]string
	location map[string][]string
}

func newFeed() *feed {
	return &feed{
		chars:    make(map[int64][]string),
		groups:   make(map[int64][]string),
		location: make(map[string][]string),
	}
}

func (f *feed) ToCharacter(_ context.Context, id int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chars[id] = append(f.chars[id], text)
}

func (f *feed) ToGroup(_ context.Context, id int64, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groups[id] = append(f.groups[id], text)
}

func (f *feed) ToLocation(_ context.Context, location, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.location[location] = append(f.location[location], text)
}

func (f *feed) heard(id int64, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.chars[id] {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (f *feed) groupHeard(id int64, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.groups[id] {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// ledger is a Progression that remembers every grant.
type ledger struct {
	mu      sync.Mutex
	xp      map[int64]int
	renown  map[int64]int
	faction map[int64]map[string]int
	kills   map[int64][]string
}

func newLedger() *ledger {
	return &ledger{
		xp:      make(map[int64]int),
		renown:  make(map[int64]int),
		faction: make(map[int64]map[string]int),
		kills:   make(map[int64][]string),
	}
}

func (l *ledger) GrantXP(_ context.Context, id int64, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.xp[id] += amount
	return nil
}

func (l *ledger) GrantRenown(_ context.Context, id int64, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.renown[id] += amount
	return nil
}

func (l *ledger) AdjustFaction(_ context.Context, id int64, faction string, delta int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.faction[id] == nil {
		l.faction[id] = make(map[string]int)
	}
	l.faction[id][faction] += delta
	return nil
}

func (l *ledger) RecordKill(_ context.Context, id int64, templateID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kills[id] = append(l.kills[id], templateID)
	return nil
}

func testConfig() config.CombatConfig {
	return config.CombatConfig{
		CarefulPullDuration: 6 * time.Second,
		BodyPullDuration:    2 * time.Second,
		CarefulFailPercent:  0,
		CarefulAddsPercent:  0,
		BodyAddsPercent:     0,
		DelayedAddDelay:     5 * time.Second,
		MaxAdds:             3,
		GatherAggroPercent:  0,
		EffectTickInterval:  3 * time.Second,
		RegenInterval:       10 * time.Second,
		RegenPercent:        5,
		HealThreatPercent:   50,
		TauntThreat:         500,
		CleanupGrace:        2 * time.Minute,
		LootGrace:           5 * time.Minute,
		DefaultAttackSpeed:  3 * time.Second,
	}
}

func testTemplates(t require.TestingT) []*npc.Template {
	templates := []*npc.Template{
		{ID: "wolf", Name: "Grey Wolf", Level: 1, MaxHP: 20, AttackDamage: 3, ArmorClass: 5,
			AttackSpeed: 2 * time.Second, CreatureType: "beast", Tier: "common", XP: 50, Faction: "wildlife"},
		{ID: "ogre", Name: "Ogre", Level: 5, MaxHP: 500, AttackDamage: 1, ArmorClass: 0,
			AttackSpeed: 2 * time.Second, CreatureType: "giant", Tier: "common", XP: 200},
		{ID: "shaman", Name: "Goblin Shaman", Level: 2, MaxHP: 30, AttackDamage: 2, ArmorClass: 0,
			AttackSpeed: 2 * time.Second, CreatureType: "humanoid", Tier: "common", XP: 40,
			Abilities: []npc.EnemyAbility{
				{Key: "bolt", Name: "Bolt", Kind: npc.AbilityDamage, Power: "2d4", CastTime: 2 * time.Second,
					Cooldown: 10 * time.Second, Chance: 100, Magic: true},
			}},
	}
	for _, tmpl := range templates {
		require.NoError(t, tmpl.Validate())
	}
	return templates
}

func testSpawns() []*npc.SpawnDef {
	return []*npc.SpawnDef{
		{ID: "den", Name: "the wolf den", Location: forest, Terrain: "forest",
			Members: []npc.Member{{Template: "wolf"}}, NearbyAdds: []npc.Member{{Template: "wolf"}},
			RespawnDelay: 30 * time.Second, Renown: 2, GroupLootTier: "rare"},
		{ID: "pack", Name: "the wolf pack", Location: forest, Terrain: "forest",
			Members: []npc.Member{{Template: "wolf"}, {Template: "wolf"}}},
		{ID: "pit", Name: "the ogre pit", Location: forest, Terrain: "forest", Danger: 400,
			Members: []npc.Member{{Template: "ogre"}}},
		{ID: "camp", Name: "the goblin camp", Location: forest, Terrain: "forest",
			Members: []npc.Member{{Template: "shaman"}}},
		{ID: "cave", Name: "the far cave", Location: "hills", Terrain: "hills",
			Members: []npc.Member{{Template: "ogre"}}},
	}
}

func testAbilities(t require.TestingT) *ability.Registry {
	r, err := ability.NewRegistry([]*ability.Def{
		{Key: "smite", Name: "Smite", Kind: ability.KindDamage, Gate: ability.GateCombatOnly, Cooldown: 10 * time.Second},
		{Key: "fireball", Name: "Fireball", Kind: ability.KindDamage, Resource: ability.ResourceMana, Cost: 10,
			CastTime: 3 * time.Second, Cooldown: 20 * time.Second, School: ability.SchoolMagic},
		{Key: "mend", Name: "Mend", Kind: ability.KindHeal, Resource: ability.ResourceMana, Cost: 5,
			CastTime: 2 * time.Second, Cooldown: 5 * time.Second},
		{Key: "kick", Name: "Kick", Kind: ability.KindInterrupt},
		{Key: "taunt", Name: "Taunt", Kind: ability.KindTaunt},
		{Key: "rend", Name: "Rend", Kind: ability.KindDoT, Duration: 3},
	})
	require.NoError(t, err)
	return r
}

func testPerks(t require.TestingT) *perk.Registry {
	r, err := perk.NewRegistry([]*perk.Perk{
		{Key: "savage", Name: "Savage Blows", Rank: 1, Kind: perk.KindPassive, Trigger: perk.OnHit,
			Chance: 100, Shape: perk.ShapeFlatDamage, Amount: 5},
		{Key: "shockwave", Name: "Shockwave", Rank: 2, Kind: perk.KindPassive, Trigger: perk.OnKill,
			Chance: 100, Shape: perk.ShapeAoE, Amount: 100},
		{Key: "second_wind", Name: "Second Wind", Rank: 1, Kind: perk.KindActive, Active: perk.ActiveHeal,
			AbilityKey: "second_wind", Cooldown: 30 * time.Second, Power: 20},
		{Key: "cleave", Name: "Cleave", Rank: 2, Kind: perk.KindActive, Active: perk.ActiveDamage,
			AbilityKey: "cleave", Cooldown: 15 * time.Second, Power: 200},
		{Key: "war_cry", Name: "War Cry", Rank: 3, Kind: perk.KindActive, Active: perk.ActiveBuff,
			AbilityKey: "war_cry", Cooldown: time.Minute, Power: 4, EffectType: effect.DamageBonus, Rounds: 3},
	})
	require.NoError(t, err)
	return r
}

func testLoot(t require.TestingT) *npc.LootCatalog {
	c, err := npc.NewLootCatalog([]*npc.LootTable{
		{Key: npc.LootKey{Terrain: npc.Wildcard, CreatureType: npc.Wildcard, Tier: npc.Wildcard},
			Items: []npc.ItemDrop{{ItemID: "pelt", Chance: 100, MinQty: 1, MaxQty: 1}}},
		{Key: npc.LootKey{Terrain: "forest", CreatureType: "group", Tier: "rare"},
			Items: []npc.ItemDrop{{ItemID: "totem", Chance: 100, MinQty: 1, MaxQty: 1}}},
	})
	require.NoError(t, err)
	return c
}

// harness is an Engine over the memory store driven by a manual clock.
type harness struct {
	t        require.TestingT
	ctx      context.Context
	clock    *schedule.ManualClock
	store    *memory.Store
	dispatch *schedule.Dispatcher
	engine   *combat.Engine
	feed     *feed
	progress *ledger
}

type option func(d *combat.Deps)

func withConfig(fn func(c *config.CombatConfig)) option {
	return func(d *combat.Deps) { fn(&d.Config) }
}

func withProgression(p combat.Progression) option {
	return func(d *combat.Deps) { d.Progression = p }
}

func withLoot(l combat.LootResolver) option {
	return func(d *combat.Deps) { d.Loot = l }
}

func newHarness(t require.TestingT, opts ...option) *harness {
	return build(t, schedule.NewManualClock(epoch), memory.NewStore(), opts...)
}

// newHarnessOver starts a second engine on prev's store and clock, as a
// restarted server would.
func newHarnessOver(t require.TestingT, prev *harness, opts ...option) *harness {
	return build(t, prev.clock, prev.store, opts...)
}

func build(t require.TestingT, clock *schedule.ManualClock, store *memory.Store, opts ...option) *harness {
	ctx := context.Background()
	dispatch := schedule.NewDispatcher(clock, zap.NewNop())
	cat, err := npc.NewCatalog(testTemplates(t), testSpawns())
	require.NoError(t, err)

	h := &harness{
		t:        t,
		ctx:      ctx,
		clock:    clock,
		store:    store,
		dispatch: dispatch,
		feed:     newFeed(),
		progress: newLedger(),
	}
	deps := combat.Deps{
		Store:       store,
		Clock:       clock,
		Scheduler:   dispatch,
		Catalog:     cat,
		Abilities:   testAbilities(t),
		Perks:       testPerks(t),
		Loot:        testLoot(t),
		Narrator:    h.feed,
		Progression: h.progress,
		Stats:       combat.RowStats{},
		Ownership:   combat.ChosenPerks{},
		Config:      testConfig(),
		Logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.engine, err = combat.NewEngine(deps)
	require.NoError(t, err)
	h.engine.Register(dispatch)
	require.NoError(t, h.engine.Start(ctx))
	return h
}

// fighter returns a level 1 character at the forest with a 4/6 weapon.
func fighter(id int64, name string) combat.Character {
	return combat.Character{
		ID:         id,
		AccountID:  id * 100,
		Name:       name,
		Level:      1,
		Location:   forest,
		Activity:   combat.ActivityIdle,
		HP:         100,
		MaxHP:      100,
		Mana:       50,
		MaxMana:    50,
		Stamina:    50,
		MaxStamina: 50,
		Weapon:     combat.Weapon{BaseDamage: 4, DPS: 6, Speed: 2 * time.Second},
	}
}

func (h *harness) add(c combat.Character) {
	require.NoError(h.t, h.engine.EnsureCharacter(h.ctx, c))
}

// advance moves the clock by d and runs every task that falls due, including
// tasks scheduled by the tasks it runs.
func (h *harness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.drain()
}

func (h *harness) drain() {
	for i := 0; i < 100; i++ {
		if h.dispatch.RunDue(h.ctx) == 0 {
			return
		}
	}
	h.t.Errorf("tasks still due after 100 passes at %s", h.clock.Now())
	h.t.FailNow()
}

func (h *harness) spawnID(defID string) int64 {
	var id int64
	require.NoError(h.t, h.store.WithTx(h.ctx, func(tx combat.Tx) error {
		s, err := tx.SpawnByDef(h.ctx, defID)
		id = s.ID
		return err
	}))
	return id
}

func (h *harness) spawn(defID string) combat.Spawn {
	var s combat.Spawn
	require.NoError(h.t, h.store.WithTx(h.ctx, func(tx combat.Tx) error {
		var err error
		s, err = tx.SpawnByDef(h.ctx, defID)
		return err
	}))
	return s
}

func (h *harness) character(id int64) combat.Character {
	var c combat.Character
	require.NoError(h.t, h.store.WithTx(h.ctx, func(tx combat.Tx) error {
		var err error
		c, err = tx.Character(h.ctx, id)
		return err
	}))
	return c
}

func (h *harness) encounter(id int64) combat.Encounter {
	var e combat.Encounter
	require.NoError(h.t, h.store.WithTx(h.ctx, func(tx combat.Tx) error {
		var err error
		e, err = tx.Encounter(h.ctx, id)
		return err
	}))
	return e
}

func (h *harness) cooldown(characterID int64, key string) time.Time {
	var at time.Time
	require.NoError(h.t, h.store.WithTx(h.ctx, func(tx combat.Tx) error {
		var err error
		at, err = tx.CooldownReadyAt(h.ctx, characterID, key)
		return err
	}))
	return at
}

func (h *harness) engage(characterID int64, defID string) combat.Reply {
	r, err := h.engine.Engage(h.ctx, characterID, h.spawnID(defID))
	require.NoError(h.t, err)
	require.True(h.t, r.OK, "engage refused: %v", r.Messages)
	require.NotZero(h.t, r.EncounterID)
	return r
}
