package gameserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

// RosterEntry is one seeded character as written in a roster file.
type RosterEntry struct {
	ID         int64    `yaml:"id"`
	AccountID  int64    `yaml:"account_id"`
	Name       string   `yaml:"name"`
	Level      int      `yaml:"level"`
	Location   string   `yaml:"location"`
	GroupID    int64    `yaml:"group_id"`
	AutoJoin   bool     `yaml:"auto_join"`
	MaxHP      int      `yaml:"max_hp"`
	MaxMana    int      `yaml:"max_mana"`
	MaxStamina int      `yaml:"max_stamina"`
	ArmorClass int      `yaml:"armor_class"`
	Perks      []string `yaml:"perks"`
	Weapon     struct {
		BaseDamage int           `yaml:"base_damage"`
		DPS        int           `yaml:"dps"`
		Speed      time.Duration `yaml:"speed"`
	} `yaml:"weapon"`
	Pet *struct {
		Name            string        `yaml:"name"`
		MaxHP           int           `yaml:"max_hp"`
		AttackDamage    int           `yaml:"attack_damage"`
		AttackSpeed     time.Duration `yaml:"attack_speed"`
		AbilityKey      string        `yaml:"ability_key"`
		AbilityDamage   int           `yaml:"ability_damage"`
		AbilityCooldown time.Duration `yaml:"ability_cooldown"`
	} `yaml:"pet"`
}

// Character converts the entry to a full-health idle character.
func (r RosterEntry) Character() combat.Character {
	c := combat.Character{
		ID:         r.ID,
		AccountID:  r.AccountID,
		Name:       r.Name,
		Level:      r.Level,
		Location:   r.Location,
		GroupID:    r.GroupID,
		AutoJoin:   r.AutoJoin,
		Activity:   combat.ActivityIdle,
		HP:         r.MaxHP,
		MaxHP:      r.MaxHP,
		Mana:       r.MaxMana,
		MaxMana:    r.MaxMana,
		Stamina:    r.MaxStamina,
		MaxStamina: r.MaxStamina,
		ArmorClass: r.ArmorClass,
		Perks:      r.Perks,
		Weapon:     combat.Weapon{BaseDamage: r.Weapon.BaseDamage, DPS: r.Weapon.DPS, Speed: r.Weapon.Speed},
	}
	if p := r.Pet; p != nil {
		c.Pet = &combat.PetSpec{
			Name:            p.Name,
			MaxHP:           p.MaxHP,
			AttackDamage:    p.AttackDamage,
			AttackSpeed:     p.AttackSpeed,
			AbilityKey:      p.AbilityKey,
			AbilityDamage:   p.AbilityDamage,
			AbilityCooldown: p.AbilityCooldown,
		}
	}
	return c
}

// LoadRoster reads a roster file holding a list under "characters".
//
// Postcondition: every returned character has an id, an owner, a name, a
// location and positive max HP.
func LoadRoster(path string) ([]combat.Character, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roster %q: %w", path, err)
	}
	var file struct {
		Characters []RosterEntry `yaml:"characters"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing roster %q: %w", path, err)
	}
	seen := make(map[int64]bool, len(file.Characters))
	out := make([]combat.Character, 0, len(file.Characters))
	for i, e := range file.Characters {
		switch {
		case e.ID <= 0:
			return nil, fmt.Errorf("roster entry %d: id must be positive", i)
		case seen[e.ID]:
			return nil, fmt.Errorf("roster entry %d: duplicate id %d", i, e.ID)
		case e.AccountID <= 0 || e.Name == "" || e.Location == "":
			return nil, fmt.Errorf("roster entry %d: account_id, name and location are required", i)
		case e.MaxHP <= 0:
			return nil, fmt.Errorf("roster entry %d: max_hp must be positive", i)
		}
		seen[e.ID] = true
		out = append(out, e.Character())
	}
	return out, nil
}

// SeedRoster inserts each character that does not exist yet. Existing rows
// keep their state.
func SeedRoster(ctx context.Context, engine *combat.Engine, chars []combat.Character, logger *zap.Logger) error {
	for _, c := range chars {
		if err := engine.EnsureCharacter(ctx, c); err != nil {
			return fmt.Errorf("seeding character %d: %w", c.ID, err)
		}
	}
	logger.Info("roster seeded", zap.Int("characters", len(chars)))
	return nil
}
