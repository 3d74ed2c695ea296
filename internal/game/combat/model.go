package combat

import (
	"time"

	"github.com/cory-johannsen/mudcombat/internal/game/effect"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
)

// EncounterState is the lifecycle state of an Encounter.
type EncounterState string

const (
	StateForming  EncounterState = "forming"
	StateActive   EncounterState = "active"
	StateResolved EncounterState = "resolved"
)

// Resolution is how an encounter ended.
type Resolution string

const (
	ResolutionNone    Resolution = ""
	ResolutionVictory Resolution = "victory"
	ResolutionWipe    Resolution = "wipe"
	ResolutionFled    Resolution = "fled"
	ResolutionAborted Resolution = "aborted"
)

// ParticipantStatus is a participant's standing within an encounter.
type ParticipantStatus string

const (
	StatusActive ParticipantStatus = "active"
	StatusDead   ParticipantStatus = "dead"
	StatusFled   ParticipantStatus = "fled"
)

// Activity is what a character is doing outside combat.
type Activity string

const (
	ActivityIdle      Activity = "idle"
	ActivityGathering Activity = "gathering"
	ActivityTraveling Activity = "traveling"
)

// SpawnState is the claim state of a spawn.
type SpawnState string

const (
	SpawnAvailable  SpawnState = "available"
	SpawnPulling    SpawnState = "pulling"
	SpawnLocked     SpawnState = "locked"
	SpawnRespawning SpawnState = "respawning"
)

// PullType selects pull duration and risk.
type PullType string

const (
	PullCareful PullType = "careful"
	PullBody    PullType = "body"
)

// PullStatus is the state of a PullState row.
type PullStatus string

const (
	PullPending  PullStatus = "pending"
	PullResolved PullStatus = "resolved"
)

// PullOutcome records how a pull resolved.
type PullOutcome string

const (
	PullOutcomeNone    PullOutcome = ""
	PullOutcomeEngaged PullOutcome = "engaged"
	PullOutcomeMissed  PullOutcome = "missed"
	PullOutcomeAborted PullOutcome = "aborted"
)

// HolderKind is the kind of a threat holder or cast actor.
type HolderKind string

const (
	HolderCharacter HolderKind = "character"
	HolderPet       HolderKind = "pet"
	HolderEnemy     HolderKind = "enemy"
)

// Holder references a character, a pet, or an enemy by id.
type Holder struct {
	Kind HolderKind
	ID   int64
}

// IsZero reports whether h references nothing.
func (h Holder) IsZero() bool { return h.ID == 0 }

// CharacterHolder returns the holder for a character.
func CharacterHolder(id int64) Holder { return Holder{Kind: HolderCharacter, ID: id} }

// PetHolder returns the holder for a pet.
func PetHolder(id int64) Holder { return Holder{Kind: HolderPet, ID: id} }

// Weapon is the equipped weapon as reported by the StatsProvider.
type Weapon struct {
	BaseDamage int
	DPS        int
	Speed      time.Duration
}

// PetSpec describes the pet a character brings into combat.
type PetSpec struct {
	Name            string
	MaxHP           int
	AttackDamage    int
	AttackSpeed     time.Duration
	AbilityKey      string
	AbilityDamage   int
	AbilityCooldown time.Duration
}

// Character is the combat-relevant view of a character row.
type Character struct {
	ID        int64
	AccountID int64
	Name      string
	Level     int
	Location  string
	GroupID   int64
	// AutoJoin consents to being pulled into group engagements.
	AutoJoin    bool
	Activity    Activity
	Destination string

	HP, MaxHP           int
	Mana, MaxMana       int
	Stamina, MaxStamina int
	ArmorClass          int
	Weapon              Weapon

	// CombatTarget is the preferred enemy id; 0 means none.
	CombatTarget int64
	// Perks is the ordered list of chosen perk keys.
	Perks   []string
	Pet     *PetSpec
	Effects []effect.Effect
}

// Alive reports whether the character has HP left.
func (c *Character) Alive() bool { return c.HP > 0 }

// Participant is a character's membership in an encounter.
type Participant struct {
	CharacterID  int64
	Status       ParticipantStatus
	NextAttackAt time.Time
	JoinedAt     time.Time
	DamageDealt  int
	HealingDone  int
	Kills        int
}

// Enemy is a materialized enemy inside an encounter.
type Enemy struct {
	ID           int64
	TemplateID   string
	Role         npc.Role
	Name         string
	HP, MaxHP    int
	AttackDamage int
	ArmorClass   int
	AttackSpeed  time.Duration
	// Target caches the current highest-threat holder.
	Target        Holder
	LastHitBy     Holder
	NextAttackAt  time.Time
	NextAbilityAt time.Time
	Cooldowns     map[string]time.Time
	Effects       []effect.Effect
	Defeated      bool
	KillCredited  bool
}

// Alive reports whether the enemy has HP left.
func (e *Enemy) Alive() bool { return e.HP > 0 }

// Pet is a character's companion inside an encounter.
type Pet struct {
	ID              int64
	OwnerID         int64
	Name            string
	HP, MaxHP       int
	AttackDamage    int
	AttackSpeed     time.Duration
	NextAttackAt    time.Time
	AbilityKey      string
	AbilityDamage   int
	AbilityCooldown time.Duration
	AbilityReadyAt  time.Time
	Dead            bool
}

// AggroEntry is accumulated threat of one holder on one enemy.
type AggroEntry struct {
	EnemyID int64
	Holder  Holder
	Value   int
	// Seq orders entries by creation for tie-breaking.
	Seq int64
}

// Cast is an in-flight cast by a character or enemy.
type Cast struct {
	ID          int64
	EncounterID int64
	Actor       Holder
	AbilityKey  string
	Target      Holder
	StartedAt   time.Time
	EndsAt      time.Time
}

// PendingAdd is a scheduled reinforcement.
type PendingAdd struct {
	ID         int64
	TemplateID string
	Role       npc.Role
	ArriveAt   time.Time
}

// Encounter is one combat instance together with its owned child rows.
type Encounter struct {
	ID       int64
	Location string
	GroupID  int64
	LeaderID int64
	SpawnID  int64
	State    EncounterState
	Outcome  Resolution

	AddsSpawned    int
	PendingAdds    int
	PendingAddsAt  time.Time
	CreatedAt      time.Time
	ResolvedAt     time.Time
	NextEffectTick time.Time
	NextSeq        int64
	// Faults counts consecutive ticks rolled back by an error.
	Faults int

	Participants []Participant
	Enemies      []Enemy
	Pets         []Pet
	Aggro        []AggroEntry
	Casts        []Cast
	Adds         []PendingAdd
}

// Participant returns the participant row for characterID.
func (e *Encounter) Participant(characterID int64) *Participant {
	for i := range e.Participants {
		if e.Participants[i].CharacterID == characterID {
			return &e.Participants[i]
		}
	}
	return nil
}

// Enemy returns the enemy with id.
func (e *Encounter) Enemy(id int64) *Enemy {
	for i := range e.Enemies {
		if e.Enemies[i].ID == id {
			return &e.Enemies[i]
		}
	}
	return nil
}

// Pet returns the pet with id.
func (e *Encounter) Pet(id int64) *Pet {
	for i := range e.Pets {
		if e.Pets[i].ID == id {
			return &e.Pets[i]
		}
	}
	return nil
}

// PetOf returns the living pet owned by characterID.
func (e *Encounter) PetOf(characterID int64) *Pet {
	for i := range e.Pets {
		if e.Pets[i].OwnerID == characterID && !e.Pets[i].Dead {
			return &e.Pets[i]
		}
	}
	return nil
}

// CastBy returns the in-flight cast of actor.
func (e *Encounter) CastBy(actor Holder) *Cast {
	for i := range e.Casts {
		if e.Casts[i].Actor == actor {
			return &e.Casts[i]
		}
	}
	return nil
}

// LivingEnemies returns pointers to enemies with HP left, in id order.
func (e *Encounter) LivingEnemies() []*Enemy {
	var out []*Enemy
	for i := range e.Enemies {
		if e.Enemies[i].Alive() {
			out = append(out, &e.Enemies[i])
		}
	}
	return out
}

// ActiveParticipants returns pointers to participants with status active.
func (e *Encounter) ActiveParticipants() []*Participant {
	var out []*Participant
	for i := range e.Participants {
		if e.Participants[i].Status == StatusActive {
			out = append(out, &e.Participants[i])
		}
	}
	return out
}

// HasActive reports whether characterID is an active participant.
func (e *Encounter) HasActive(characterID int64) bool {
	p := e.Participant(characterID)
	return p != nil && p.Status == StatusActive
}

// Spawn is the persisted claim state of a spawn definition.
type Spawn struct {
	ID          int64
	DefID       string
	Location    string
	State       SpawnState
	LockedBy    int64
	AvailableAt time.Time
}

// PullState is an in-flight or finished pull attempt.
type PullState struct {
	ID            int64
	PullerID      int64
	SpawnID       int64
	Type          PullType
	Status        PullStatus
	StartedAt     time.Time
	ResolvesAt    time.Time
	DelayedAdds   int
	DelayedAddsAt time.Time
	Outcome       PullOutcome
	EncounterID   int64
}

// Progress returns the elapsed fraction of the pull at now, clamped to [0, 1].
func (p PullState) Progress(now time.Time) float64 {
	if p.Status == PullResolved {
		return 1
	}
	total := p.ResolvesAt.Sub(p.StartedAt)
	if total <= 0 {
		return 1
	}
	f := float64(now.Sub(p.StartedAt)) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// Result is the summary of a resolved encounter for one character, or for the
// group when CharacterID is 0.
type Result struct {
	ID          int64
	EncounterID int64
	CharacterID int64
	GroupID     int64
	Outcome     Resolution
	XP          int
	Kills       int
	DamageDealt int
	CreatedAt   time.Time
	Dismissed   bool
}

// Loot is one item awarded by a resolved encounter. Group-owned rows have
// CharacterID 0.
type Loot struct {
	ID          int64
	EncounterID int64
	CharacterID int64
	GroupID     int64
	ItemID      string
	InstanceID  string
	Quantity    int
	Claimed     bool
	ExpiresAt   time.Time
}
