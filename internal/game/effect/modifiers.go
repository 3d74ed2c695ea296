package effect

// Modifiers is the net stat adjustment from a list of effects.
type Modifiers struct {
	Damage int
	Armor  int
}

// Sum folds list into net modifiers.
//
// Postcondition: Damage == sum(damage_bonus) - sum(damage_penalty), and likewise for Armor.
func Sum(list []Effect) Modifiers {
	var m Modifiers
	for _, e := range list {
		switch e.Type {
		case DamageBonus:
			m.Damage += e.Magnitude
		case DamagePenalty:
			m.Damage -= e.Magnitude
		case ArmorBonus:
			m.Armor += e.Magnitude
		case ArmorPenalty:
			m.Armor -= e.Magnitude
		}
	}
	return m
}

// EffectiveArmor applies the armor modifier to base, never going below zero.
func (m Modifiers) EffectiveArmor(base int) int {
	if a := base + m.Armor; a > 0 {
		return a
	}
	return 0
}

// EffectiveDamage applies the damage modifier to base, never going below zero.
func (m Modifiers) EffectiveDamage(base int) int {
	if d := base + m.Damage; d > 0 {
		return d
	}
	return 0
}
