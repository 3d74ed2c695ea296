package perk

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Procedure is a passive perk matched against a character's chosen perk list.
// Index is the perk's position in that list and feeds the proc roll.
type Procedure struct {
	Index int
	Perk  *Perk
}

// Registry is the read-only perk index, built once at startup.
// It is safe for concurrent use because nothing mutates it after NewRegistry returns.
type Registry struct {
	byKey     map[string]*Perk
	byAbility map[string]*Perk
	pools     map[int][]*Perk
}

// NewRegistry validates and indexes perks by key and by rank.
//
// Postcondition: every perk is reachable through FindByKey and exactly one rank pool.
func NewRegistry(perks []*Perk) (*Registry, error) {
	r := &Registry{
		byKey:     make(map[string]*Perk, len(perks)),
		byAbility: make(map[string]*Perk),
		pools:     make(map[int][]*Perk),
	}
	for _, p := range perks {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate perk %q", p.Key)
		}
		r.byKey[p.Key] = p
		if p.Kind == KindActive && p.AbilityKey != "" {
			if other, dup := r.byAbility[p.AbilityKey]; dup {
				return nil, fmt.Errorf("perks %q and %q share ability key %q", other.Key, p.Key, p.AbilityKey)
			}
			r.byAbility[p.AbilityKey] = p
		}
		r.pools[p.Rank] = append(r.pools[p.Rank], p)
	}
	for rank := range r.pools {
		pool := r.pools[rank]
		sort.Slice(pool, func(i, j int) bool { return pool[i].Key < pool[j].Key })
	}
	return r, nil
}

// FindByKey returns the perk with key from any rank pool.
func (r *Registry) FindByKey(key string) (*Perk, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// FindByAbilityKey returns the active perk invoked by abilityKey, falling back
// to a lookup by perk key.
func (r *Registry) FindByAbilityKey(abilityKey string) (*Perk, bool) {
	if p, ok := r.byAbility[abilityKey]; ok {
		return p, true
	}
	return r.FindByKey(abilityKey)
}

// PoolForRank returns the perks offered at rank, ordered by key.
//
// Postcondition: the returned slice is a copy.
func (r *Registry) PoolForRank(rank int) []*Perk {
	pool := r.pools[rank]
	out := make([]*Perk, len(pool))
	copy(out, pool)
	return out
}

// ProceduresForTrigger returns the passive perks in chosen that react to trigger
// with a nonzero chance, in chosen order. Unknown keys are skipped.
func (r *Registry) ProceduresForTrigger(chosen []string, trigger Trigger) []Procedure {
	var out []Procedure
	for i, key := range chosen {
		p, ok := r.byKey[key]
		if !ok || p.Kind != KindPassive || p.Trigger != trigger || p.Chance <= 0 {
			continue
		}
		out = append(out, Procedure{Index: i, Perk: p})
	}
	return out
}

// Scripts returns the distinct script hook names referenced by any perk.
func (r *Registry) Scripts() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range r.byKey {
		if p.Script != "" && !seen[p.Script] {
			seen[p.Script] = true
			out = append(out, p.Script)
		}
	}
	sort.Strings(out)
	return out
}

// LoadDirectory reads every *.yaml file in dir. Each file holds a list under "perks".
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading perk dir %q: %w", dir, err)
	}
	var perks []*Perk
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		var file struct {
			Perks []*Perk `yaml:"perks"`
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("parsing %q: %w", path, err)
		}
		perks = append(perks, file.Perks...)
	}
	return NewRegistry(perks)
}
