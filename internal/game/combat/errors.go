package combat

import "errors"

// ErrNotFound is wrapped by every Tx lookup of a missing row.
var ErrNotFound = errors.New("not found")

// ErrNotOwner is returned when an account acts on a character it does not own.
var ErrNotOwner = errors.New("character not owned by caller")

// Active perk failures.
var (
	ErrUnknownPerk   = errors.New("unknown perk")
	ErrPerkNotOwned  = errors.New("perk not owned")
	ErrPerkWrongType = errors.New("perk is not an active ability")
	ErrNotInCombat   = errors.New("must be in combat")
	ErrNoTarget      = errors.New("no valid target")
	ErrOnCooldown    = errors.New("ability on cooldown")
	ErrDead          = errors.New("character is dead")
)
