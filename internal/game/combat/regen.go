package combat

import (
	"fmt"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// regen is the periodic task for everyone out of combat: effect rounds tick,
// pools recover, and characters at zero HP come back with a sliver of health.
func (u *unit) regen() error {
	rows, err := u.tx.Characters(u.ctx)
	if err != nil {
		return fmt.Errorf("loading characters: %w", err)
	}
	pct := u.e.cfg.RegenPercent
	for _, row := range rows {
		_, in, err := u.membership(row.ID)
		if err != nil {
			return err
		}
		if in {
			continue
		}
		c, err := u.character(row.ID)
		if err != nil {
			return err
		}

		remaining, periodic, _ := effect.Tick(c.Effects)
		c.Effects = remaining
		if c.HP <= 0 {
			c.HP = atLeastOne(percentOf(c.MaxHP, pct))
			if c.HP > c.MaxHP {
				c.HP = c.MaxHP
			}
			u.tell(c.ID, "You come to.")
			continue
		}
		c.HP = regenPool(c.HP, c.MaxHP, pct) + periodic.Heal - periodic.Damage
		// Lingering effects never kill outside combat.
		if c.HP < 1 {
			c.HP = 1
		}
		if c.HP > c.MaxHP {
			c.HP = c.MaxHP
		}
		c.Mana = regenPool(c.Mana, c.MaxMana, pct)
		c.Stamina = regenPool(c.Stamina, c.MaxStamina, pct)
	}
	return u.schedule(schedule.KindRegen, 0, u.now.Add(u.e.cfg.RegenInterval))
}

func regenPool(cur, limit, pct int) int {
	if limit <= 0 || cur >= limit {
		return cur
	}
	cur += atLeastOne(percentOf(limit, pct))
	if cur > limit {
		return limit
	}
	return cur
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
