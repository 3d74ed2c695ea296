package npc

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
)

// Wildcard matches any terrain, creature type, or tier in a loot table key.
const Wildcard = "*"

// LootKey selects a loot table.
type LootKey struct {
	Terrain      string `yaml:"terrain"`
	CreatureType string `yaml:"creature_type"`
	Tier         string `yaml:"tier"`
}

// ItemDrop defines a single item entry in a loot table with a percent drop chance.
type ItemDrop struct {
	ItemID string `yaml:"item"`
	Chance int    `yaml:"chance"`
	MinQty int    `yaml:"min_qty"`
	MaxQty int    `yaml:"max_qty"`
}

// LootTable defines the possible drops for one key.
type LootTable struct {
	Key   LootKey    `yaml:"key"`
	Items []ItemDrop `yaml:"items"`
}

// Validate checks that the loot table satisfies its invariants.
//
// Postcondition: Returns nil iff every item has an id, a chance in 1..100 and
// 1 <= min_qty <= max_qty.
func (lt *LootTable) Validate() error {
	for i, item := range lt.Items {
		if item.ItemID == "" {
			return fmt.Errorf("loot table: item[%d] must have a non-empty item id", i)
		}
		if item.Chance < 1 || item.Chance > 100 {
			return fmt.Errorf("loot table: item[%d] chance must be in [1, 100], got %d", i, item.Chance)
		}
		if item.MinQty < 1 {
			return fmt.Errorf("loot table: item[%d] min_qty must be >= 1, got %d", i, item.MinQty)
		}
		if item.MinQty > item.MaxQty {
			return fmt.Errorf("loot table: item[%d] min_qty (%d) must be <= max_qty (%d)", i, item.MinQty, item.MaxQty)
		}
	}
	return nil
}

// LootItem represents a single item instance in a loot result.
type LootItem struct {
	ItemID     string
	InstanceID string
	Quantity   int
}

// LootCatalog resolves loot keys to concrete items.
type LootCatalog struct {
	tables map[LootKey]*LootTable
}

// NewLootCatalog indexes tables by key.
func NewLootCatalog(tables []*LootTable) (*LootCatalog, error) {
	c := &LootCatalog{tables: make(map[LootKey]*LootTable, len(tables))}
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("loot table %+v: %w", t.Key, err)
		}
		if _, dup := c.tables[t.Key]; dup {
			return nil, fmt.Errorf("duplicate loot table %+v", t.Key)
		}
		c.tables[t.Key] = t
	}
	return c, nil
}

// LoadLootCatalog reads every *.yaml file in dir. Each file holds a list of tables.
func LoadLootCatalog(dir string) (*LootCatalog, error) {
	var tables []*LootTable
	err := eachYAML(dir, func(path string, dec *yaml.Decoder) error {
		var file struct {
			Tables []*LootTable `yaml:"tables"`
		}
		if err := dec.Decode(&file); err != nil {
			return err
		}
		tables = append(tables, file.Tables...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewLootCatalog(tables)
}

// lookup tries the exact key first, then widens tier, creature type, and terrain in turn.
func (c *LootCatalog) lookup(key LootKey) (*LootTable, bool) {
	candidates := []LootKey{
		key,
		{key.Terrain, key.CreatureType, Wildcard},
		{key.Terrain, Wildcard, Wildcard},
		{Wildcard, key.CreatureType, key.Tier},
		{Wildcard, key.CreatureType, Wildcard},
		{Wildcard, Wildcard, Wildcard},
	}
	for _, k := range candidates {
		if t, ok := c.tables[k]; ok {
			return t, true
		}
	}
	return nil, false
}

// Resolve rolls the table for key from seed. Instance ids are derived from the
// seed, so the same inputs always produce the same rows.
//
// Postcondition: each item's Quantity is in [MinQty, MaxQty]; no table yields no items.
func (c *LootCatalog) Resolve(_ context.Context, key LootKey, seed uint64) ([]LootItem, error) {
	table, ok := c.lookup(key)
	if !ok {
		return nil, nil
	}
	src := dice.NewSeededSource(seed)
	var items []LootItem
	for i, drop := range table.Items {
		if src.Intn(100) >= drop.Chance {
			continue
		}
		qty := drop.MinQty
		if spread := drop.MaxQty - drop.MinQty; spread > 0 {
			qty += src.Intn(spread + 1)
		}
		items = append(items, LootItem{
			ItemID:     drop.ItemID,
			InstanceID: instanceID(seed, i),
			Quantity:   qty,
		})
	}
	return items, nil
}

func instanceID(seed uint64, index int) string {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, seed)
	binary.BigEndian.PutUint64(buf[8:], uint64(index))
	return uuid.NewSHA1(uuid.NameSpaceOID, buf).String()
}
