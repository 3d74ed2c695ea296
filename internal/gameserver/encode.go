package gameserver

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

func replyStruct(r combat.Reply) (*structpb.Struct, error) {
	msgs := make([]interface{}, 0, len(r.Messages))
	for _, m := range r.Messages {
		msgs = append(msgs, m)
	}
	return structpb.NewStruct(map[string]interface{}{
		"ok":            r.OK,
		"messages":      msgs,
		"encounter_id":  r.EncounterID,
		"needs_confirm": r.NeedsConfirm,
	})
}

func feedStruct(lines []Line) (*structpb.Struct, error) {
	var last uint64
	out := make([]interface{}, 0, len(lines))
	for _, l := range lines {
		out = append(out, map[string]interface{}{"seq": l.Seq, "text": l.Text})
		last = l.Seq
	}
	return structpb.NewStruct(map[string]interface{}{"lines": out, "last_seq": last})
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func snapshotStruct(s combat.Snapshot) (*structpb.Struct, error) {
	c := s.Character
	m := map[string]interface{}{
		"character": map[string]interface{}{
			"id":          c.ID,
			"name":        c.Name,
			"level":       c.Level,
			"location":    c.Location,
			"group_id":    c.GroupID,
			"activity":    string(c.Activity),
			"destination": c.Destination,
			"hp":          c.HP,
			"max_hp":      c.MaxHP,
			"mana":        c.Mana,
			"max_mana":    c.MaxMana,
			"stamina":     c.Stamina,
			"max_stamina": c.MaxStamina,
			"target":      c.CombatTarget,
		},
	}
	if enc := s.Encounter; enc != nil {
		enemies := make([]interface{}, 0, len(enc.Enemies))
		for _, en := range enc.Enemies {
			enemies = append(enemies, map[string]interface{}{
				"id":          en.ID,
				"name":        en.Name,
				"hp":          en.HP,
				"max_hp":      en.MaxHP,
				"target_kind": string(en.Target.Kind),
				"target_id":   en.Target.ID,
			})
		}
		parts := make([]interface{}, 0, len(enc.Participants))
		for _, p := range enc.Participants {
			parts = append(parts, map[string]interface{}{
				"character_id": p.CharacterID,
				"status":       string(p.Status),
				"damage_dealt": p.DamageDealt,
				"kills":        p.Kills,
			})
		}
		m["encounter"] = map[string]interface{}{
			"id":           enc.ID,
			"state":        string(enc.State),
			"location":     enc.Location,
			"enemies":      enemies,
			"participants": parts,
			"pending_adds": enc.PendingAdds,
		}
	}
	if p := s.Pull; p != nil {
		m["pull"] = map[string]interface{}{
			"id":          p.ID,
			"spawn_id":    p.SpawnID,
			"type":        string(p.Type),
			"progress":    s.PullProgress,
			"resolves_at": stamp(p.ResolvesAt),
		}
	}
	if cast := s.Cast; cast != nil {
		m["cast"] = map[string]interface{}{
			"ability_key": cast.AbilityKey,
			"ends_at":     stamp(cast.EndsAt),
		}
	}
	results := make([]interface{}, 0, len(s.Results))
	for _, r := range s.Results {
		results = append(results, map[string]interface{}{
			"encounter_id": r.EncounterID,
			"outcome":      string(r.Outcome),
			"xp":           r.XP,
			"kills":        r.Kills,
			"damage_dealt": r.DamageDealt,
		})
	}
	m["results"] = results
	loot := make([]interface{}, 0, len(s.Loot))
	for _, l := range s.Loot {
		loot = append(loot, map[string]interface{}{
			"id":         l.ID,
			"item_id":    l.ItemID,
			"quantity":   l.Quantity,
			"group":      l.CharacterID == 0,
			"expires_at": stamp(l.ExpiresAt),
		})
	}
	m["loot"] = loot
	return structpb.NewStruct(m)
}
