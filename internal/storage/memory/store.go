// Package memory is an in-process combat.Store. Transactions are serialized by
// one mutex and run against a private copy of the data that replaces the
// committed copy only when the transaction succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

var (
	_ combat.Store = (*Store)(nil)
	_ combat.Tx    = (*tx)(nil)
)

type cooldownKey struct {
	characterID int64
	key         string
}

type data struct {
	nextID     int64
	characters map[int64]combat.Character
	spawns     map[int64]combat.Spawn
	encounters map[int64]combat.Encounter
	cooldowns  map[cooldownKey]time.Time
	casts      map[int64]combat.Cast
	pulls      map[int64]combat.PullState
	results    map[int64]combat.Result
	loot       map[int64]combat.Loot
	tasks      map[string]schedule.Task
}

func newData() *data {
	return &data{
		characters: make(map[int64]combat.Character),
		spawns:     make(map[int64]combat.Spawn),
		encounters: make(map[int64]combat.Encounter),
		cooldowns:  make(map[cooldownKey]time.Time),
		casts:      make(map[int64]combat.Cast),
		pulls:      make(map[int64]combat.PullState),
		results:    make(map[int64]combat.Result),
		loot:       make(map[int64]combat.Loot),
		tasks:      make(map[string]schedule.Task),
	}
}

func (d *data) clone() *data {
	out := newData()
	out.nextID = d.nextID
	for k, v := range d.characters {
		out.characters[k] = cloneCharacter(v)
	}
	for k, v := range d.spawns {
		out.spawns[k] = v
	}
	for k, v := range d.encounters {
		out.encounters[k] = cloneEncounter(v)
	}
	for k, v := range d.cooldowns {
		out.cooldowns[k] = v
	}
	for k, v := range d.casts {
		out.casts[k] = v
	}
	for k, v := range d.pulls {
		out.pulls[k] = v
	}
	for k, v := range d.results {
		out.results[k] = v
	}
	for k, v := range d.loot {
		out.loot[k] = v
	}
	for k, v := range d.tasks {
		out.tasks[k] = v
	}
	return out
}

// Store is a combat.Store held entirely in memory.
type Store struct {
	mu   sync.Mutex
	data *data
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: newData()}
}

// WithTx implements combat.Store.
//
// Postcondition: the writes of fn are visible to later transactions iff fn returns nil.
func (s *Store) WithTx(ctx context.Context, fn func(tx combat.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.data.clone()
	if err := fn(&tx{d: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Encounters returns a copy of every stored encounter, ordered by id.
func (s *Store) Encounters() []combat.Encounter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]combat.Encounter, 0, len(s.data.encounters))
	for _, e := range s.data.encounters {
		out = append(out, cloneEncounter(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type tx struct {
	d *data
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, combat.ErrNotFound)
}

func (t *tx) NextID(context.Context) (int64, error) {
	t.d.nextID++
	return t.d.nextID, nil
}

func (t *tx) Character(_ context.Context, id int64) (combat.Character, error) {
	c, ok := t.d.characters[id]
	if !ok {
		return combat.Character{}, notFound("character", id)
	}
	return cloneCharacter(c), nil
}

func (t *tx) SaveCharacter(_ context.Context, c combat.Character) error {
	t.d.characters[c.ID] = cloneCharacter(c)
	if c.ID > t.d.nextID {
		t.d.nextID = c.ID
	}
	return nil
}

func (t *tx) Characters(context.Context) ([]combat.Character, error) {
	out := make([]combat.Character, 0, len(t.d.characters))
	for _, c := range t.d.characters {
		out = append(out, cloneCharacter(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) GroupMembers(ctx context.Context, groupID int64) ([]combat.Character, error) {
	all, _ := t.Characters(ctx)
	var out []combat.Character
	for _, c := range all {
		if groupID != 0 && c.GroupID == groupID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *tx) Spawn(_ context.Context, id int64) (combat.Spawn, error) {
	s, ok := t.d.spawns[id]
	if !ok {
		return combat.Spawn{}, notFound("spawn", id)
	}
	return s, nil
}

func (t *tx) SpawnByDef(_ context.Context, defID string) (combat.Spawn, error) {
	for _, s := range t.d.spawns {
		if s.DefID == defID {
			return s, nil
		}
	}
	return combat.Spawn{}, notFound("spawn definition", defID)
}

func (t *tx) SpawnsAt(_ context.Context, location string) ([]combat.Spawn, error) {
	var out []combat.Spawn
	for _, s := range t.d.spawns {
		if s.Location == location {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) SaveSpawn(_ context.Context, s combat.Spawn) error {
	t.d.spawns[s.ID] = s
	return nil
}

func (t *tx) Encounter(_ context.Context, id int64) (combat.Encounter, error) {
	e, ok := t.d.encounters[id]
	if !ok {
		return combat.Encounter{}, notFound("encounter", id)
	}
	return cloneEncounter(e), nil
}

func (t *tx) SaveEncounter(_ context.Context, e combat.Encounter) error {
	t.d.encounters[e.ID] = cloneEncounter(e)
	return nil
}

func (t *tx) DeleteEncounter(_ context.Context, id int64) error {
	delete(t.d.encounters, id)
	return nil
}

func (t *tx) MembershipFor(_ context.Context, characterID int64) (combat.Encounter, bool, error) {
	for _, id := range t.encounterIDs() {
		e := t.d.encounters[id]
		if e.State != combat.StateActive {
			continue
		}
		if p := e.Participant(characterID); p != nil && p.Status != combat.StatusFled {
			return cloneEncounter(e), true, nil
		}
	}
	return combat.Encounter{}, false, nil
}

func (t *tx) GroupEncounterAt(_ context.Context, groupID int64, location string) (combat.Encounter, bool, error) {
	if groupID == 0 {
		return combat.Encounter{}, false, nil
	}
	for _, id := range t.encounterIDs() {
		e := t.d.encounters[id]
		if e.State == combat.StateActive && e.GroupID == groupID && e.Location == location {
			return cloneEncounter(e), true, nil
		}
	}
	return combat.Encounter{}, false, nil
}

func (t *tx) encounterIDs() []int64 {
	ids := make([]int64, 0, len(t.d.encounters))
	for id := range t.d.encounters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (t *tx) CooldownReadyAt(_ context.Context, characterID int64, key string) (time.Time, error) {
	return t.d.cooldowns[cooldownKey{characterID, key}], nil
}

func (t *tx) SaveCooldown(_ context.Context, characterID int64, key string, readyAt time.Time) error {
	t.d.cooldowns[cooldownKey{characterID, key}] = readyAt
	return nil
}

func (t *tx) CastFor(_ context.Context, characterID int64) (combat.Cast, bool, error) {
	for _, c := range t.d.casts {
		if c.Actor == combat.CharacterHolder(characterID) {
			return c, true, nil
		}
	}
	return combat.Cast{}, false, nil
}

func (t *tx) Cast(_ context.Context, id int64) (combat.Cast, error) {
	c, ok := t.d.casts[id]
	if !ok {
		return combat.Cast{}, notFound("cast", id)
	}
	return c, nil
}

func (t *tx) SaveCast(_ context.Context, c combat.Cast) error {
	t.d.casts[c.ID] = c
	return nil
}

func (t *tx) DeleteCast(_ context.Context, id int64) error {
	delete(t.d.casts, id)
	return nil
}

func (t *tx) Pull(_ context.Context, id int64) (combat.PullState, error) {
	p, ok := t.d.pulls[id]
	if !ok {
		return combat.PullState{}, notFound("pull", id)
	}
	return p, nil
}

func (t *tx) PendingPullFor(_ context.Context, characterID int64) (combat.PullState, bool, error) {
	for _, p := range t.d.pulls {
		if p.PullerID == characterID && p.Status == combat.PullPending {
			return p, true, nil
		}
	}
	return combat.PullState{}, false, nil
}

func (t *tx) SavePull(_ context.Context, p combat.PullState) error {
	t.d.pulls[p.ID] = p
	return nil
}

func (t *tx) SaveResult(_ context.Context, r combat.Result) error {
	t.d.results[r.ID] = r
	return nil
}

func (t *tx) Results(_ context.Context, characterID int64) ([]combat.Result, error) {
	var out []combat.Result
	for _, r := range t.d.results {
		if r.CharacterID == characterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) SaveLoot(_ context.Context, l combat.Loot) error {
	t.d.loot[l.ID] = l
	return nil
}

func (t *tx) Loot(_ context.Context, id int64) (combat.Loot, error) {
	l, ok := t.d.loot[id]
	if !ok {
		return combat.Loot{}, notFound("loot", id)
	}
	return l, nil
}

func (t *tx) LootFor(_ context.Context, characterID, groupID int64) ([]combat.Loot, error) {
	return t.lootWhere(func(l combat.Loot) bool {
		return l.CharacterID == characterID || (l.CharacterID == 0 && groupID != 0 && l.GroupID == groupID)
	}), nil
}

func (t *tx) LootForEncounter(_ context.Context, encounterID int64) ([]combat.Loot, error) {
	return t.lootWhere(func(l combat.Loot) bool { return l.EncounterID == encounterID }), nil
}

func (t *tx) lootWhere(keep func(combat.Loot) bool) []combat.Loot {
	var out []combat.Loot
	for _, l := range t.d.loot {
		if keep(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *tx) DeleteLoot(_ context.Context, id int64) error {
	delete(t.d.loot, id)
	return nil
}

func (t *tx) Task(_ context.Context, key string) (schedule.Task, bool, error) {
	task, ok := t.d.tasks[key]
	return task, ok, nil
}

func (t *tx) SaveTask(_ context.Context, task schedule.Task) error {
	t.d.tasks[task.Key] = task
	return nil
}

func (t *tx) DeleteTask(_ context.Context, key string) error {
	delete(t.d.tasks, key)
	return nil
}

func (t *tx) Tasks(context.Context) ([]schedule.Task, error) {
	out := make([]schedule.Task, 0, len(t.d.tasks))
	for _, task := range t.d.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueAt.Equal(out[j].DueAt) {
			return out[i].DueAt.Before(out[j].DueAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func cloneCharacter(c combat.Character) combat.Character {
	c.Perks = append([]string(nil), c.Perks...)
	c.Effects = append([]effect.Effect(nil), c.Effects...)
	if c.Pet != nil {
		pet := *c.Pet
		c.Pet = &pet
	}
	return c
}

func cloneEncounter(e combat.Encounter) combat.Encounter {
	e.Participants = append([]combat.Participant(nil), e.Participants...)
	e.Pets = append([]combat.Pet(nil), e.Pets...)
	e.Aggro = append([]combat.AggroEntry(nil), e.Aggro...)
	e.Casts = append([]combat.Cast(nil), e.Casts...)
	e.Adds = append([]combat.PendingAdd(nil), e.Adds...)
	enemies := make([]combat.Enemy, len(e.Enemies))
	for i, en := range e.Enemies {
		en.Effects = append([]effect.Effect(nil), en.Effects...)
		cd := make(map[string]time.Time, len(en.Cooldowns))
		for k, v := range en.Cooldowns {
			cd[k] = v
		}
		en.Cooldowns = cd
		enemies[i] = en
	}
	e.Enemies = enemies
	return e
}
