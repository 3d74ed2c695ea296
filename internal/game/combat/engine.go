package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/game/ability"
	"github.com/cory-johannsen/mudcombat/internal/game/dice"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

// retryDelay is how long a failed encounter tick waits before trying again.
const retryDelay = time.Second

// maxTickFaults is how many consecutive failed ticks an encounter survives
// before it is called off.
const maxTickFaults = 3

// Scheduler accepts tasks for future dispatch.
type Scheduler interface {
	Schedule(t schedule.Task)
}

// Deps collects everything the Engine needs.
type Deps struct {
	Store       Store
	Clock       schedule.Clock
	Scheduler   Scheduler
	Catalog     *npc.Catalog
	Abilities   *ability.Registry
	Perks       *perk.Registry
	Loot        LootResolver
	Narrator    Narrator
	Progression Progression
	Stats       StatsProvider
	Ownership   PerkOwnership
	Scripts     ScriptHooks
	Config      config.CombatConfig
	Logger      *zap.Logger
}

// Engine is the combat core. All methods are safe for concurrent use; isolation
// comes from the Store.
type Engine struct {
	store       Store
	clock       schedule.Clock
	sched       Scheduler
	catalog     *npc.Catalog
	abilities   *ability.Registry
	perks       *perk.Registry
	loot        LootResolver
	narrator    Narrator
	progression Progression
	stats       StatsProvider
	ownership   PerkOwnership
	scripts     ScriptHooks
	cfg         config.CombatConfig
	roller      *dice.Roller
	logger      *zap.Logger
}

// NewEngine validates deps and builds an Engine.
//
// Precondition: every field of deps except Scripts must be set.
// Postcondition: Returns a ready Engine or an error naming the missing dependency.
func NewEngine(deps Deps) (*Engine, error) {
	missing := map[string]bool{
		"store":       deps.Store == nil,
		"clock":       deps.Clock == nil,
		"scheduler":   deps.Scheduler == nil,
		"catalog":     deps.Catalog == nil,
		"abilities":   deps.Abilities == nil,
		"perks":       deps.Perks == nil,
		"loot":        deps.Loot == nil,
		"narrator":    deps.Narrator == nil,
		"progression": deps.Progression == nil,
		"stats":       deps.Stats == nil,
		"ownership":   deps.Ownership == nil,
		"logger":      deps.Logger == nil,
	}
	for _, name := range []string{"store", "clock", "scheduler", "catalog", "abilities", "perks", "loot", "narrator", "progression", "stats", "ownership", "logger"} {
		if missing[name] {
			return nil, fmt.Errorf("combat engine: %s must not be nil", name)
		}
	}
	scripts := deps.Scripts
	if scripts == nil {
		scripts = NoScripts{}
	}
	logger := deps.Logger.Named("combat")
	return &Engine{
		store:       deps.Store,
		clock:       deps.Clock,
		sched:       deps.Scheduler,
		catalog:     deps.Catalog,
		abilities:   deps.Abilities,
		perks:       deps.Perks,
		loot:        deps.Loot,
		narrator:    deps.Narrator,
		progression: deps.Progression,
		stats:       deps.Stats,
		ownership:   deps.Ownership,
		scripts:     scripts,
		cfg:         deps.Config,
		roller:      dice.NewLoggedRoller(logger),
		logger:      logger,
	}, nil
}

// Reply is what an inbound action reports back to the acting character.
type Reply struct {
	OK          bool
	Messages    []string
	EncounterID int64
	// NeedsConfirm is set when an action refused to proceed without force.
	NeedsConfirm bool
}

// Register installs the engine's task handlers on d.
func (e *Engine) Register(d *schedule.Dispatcher) {
	d.Handle(schedule.KindEncounterTick, e.handleEncounterTick)
	d.Handle(schedule.KindPullResolve, e.taskHandler(func(u *unit, t schedule.Task) error { return u.resolvePull(t.RefID) }))
	d.Handle(schedule.KindCast, e.taskHandler(func(u *unit, t schedule.Task) error { return u.completeLooseCast(t.RefID) }))
	d.Handle(schedule.KindRespawn, e.taskHandler(func(u *unit, t schedule.Task) error { return u.respawn(t.RefID) }))
	d.Handle(schedule.KindCleanup, e.taskHandler(func(u *unit, t schedule.Task) error { return u.cleanup(t.RefID) }))
	d.Handle(schedule.KindLootExpire, e.taskHandler(func(u *unit, t schedule.Task) error { return u.expireLoot(t.RefID) }))
	d.Handle(schedule.KindRegen, e.taskHandler(func(u *unit, _ schedule.Task) error { return u.regen() }))
}

// Start seeds spawn rows for every spawn definition, ensures the regen task
// exists, and re-queues every persisted task.
//
// Postcondition: every catalog spawn has a row and every stored task is queued.
func (e *Engine) Start(ctx context.Context) error {
	_, err := e.run(ctx, 0, func(u *unit) error {
		for _, def := range e.catalog.Spawns() {
			_, err := u.tx.SpawnByDef(ctx, def.ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, ErrNotFound) {
				return err
			}
			id, err := u.tx.NextID(ctx)
			if err != nil {
				return err
			}
			if err := u.tx.SaveSpawn(ctx, Spawn{ID: id, DefID: def.ID, Location: def.Location, State: SpawnAvailable}); err != nil {
				return err
			}
		}
		tasks, err := u.tx.Tasks(ctx)
		if err != nil {
			return err
		}
		u.tasks = append(u.tasks, tasks...)
		if _, ok, err := u.tx.Task(ctx, schedule.KeyFor(schedule.KindRegen, 0)); err != nil {
			return err
		} else if !ok {
			return u.schedule(schedule.KindRegen, 0, u.now.Add(e.cfg.RegenInterval))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("starting combat engine: %w", err)
	}
	e.logger.Info("combat engine started")
	return nil
}

// EnsureCharacter inserts c when no character with its id exists.
func (e *Engine) EnsureCharacter(ctx context.Context, c Character) error {
	_, err := e.run(ctx, 0, func(u *unit) error {
		_, err := u.tx.Character(ctx, c.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if c.Activity == "" {
			c.Activity = ActivityIdle
		}
		return u.tx.SaveCharacter(ctx, c)
	})
	return err
}

// Authorize returns ErrNotOwner unless accountID owns characterID.
func (e *Engine) Authorize(ctx context.Context, accountID, characterID int64) error {
	return e.store.WithTx(ctx, func(tx Tx) error {
		c, err := tx.Character(ctx, characterID)
		if errors.Is(err, ErrNotFound) {
			return ErrNotOwner
		}
		if err != nil {
			return err
		}
		if c.AccountID != accountID {
			return ErrNotOwner
		}
		return nil
	})
}

func (e *Engine) taskHandler(fn func(u *unit, t schedule.Task) error) schedule.Handler {
	return func(ctx context.Context, t schedule.Task) error {
		_, err := e.run(ctx, 0, func(u *unit) error {
			live, err := u.claimTask(t)
			if err != nil || !live {
				return err
			}
			return fn(u, t)
		})
		return err
	}
}

func (e *Engine) handleEncounterTick(ctx context.Context, t schedule.Task) error {
	_, err := e.run(ctx, 0, func(u *unit) error {
		live, err := u.claimTask(t)
		if err != nil || !live {
			return err
		}
		return u.tick(t.RefID)
	})
	if err == nil {
		return nil
	}
	e.logger.Error("encounter tick aborted", zap.Int64("encounter_id", t.RefID), zap.Error(err))
	_, rerr := e.run(ctx, 0, func(u *unit) error {
		enc, err := u.encounter(t.RefID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if enc.State != StateActive {
			return nil
		}
		enc.Faults++
		if enc.Faults >= maxTickFaults {
			return u.abort(enc)
		}
		for _, p := range enc.ActiveParticipants() {
			u.tell(p.CharacterID, "[system] The fight stalls for a moment.")
		}
		return u.schedule(schedule.KindEncounterTick, enc.ID, u.now.Add(retryDelay))
	})
	if rerr != nil {
		e.logger.Error("recovering encounter tick failed", zap.Int64("encounter_id", t.RefID), zap.Error(rerr))
	}
	return err
}

// run executes fn in one transaction and publishes its side effects after commit.
func (e *Engine) run(ctx context.Context, actorID int64, fn func(u *unit) error) (Reply, error) {
	var committed *unit
	err := e.store.WithTx(ctx, func(tx Tx) error {
		u := e.newUnit(ctx, tx, actorID)
		if err := fn(u); err != nil {
			return err
		}
		if err := u.flush(); err != nil {
			return err
		}
		committed = u
		return nil
	})
	if err != nil {
		return Reply{}, err
	}
	committed.publish()
	return committed.reply, nil
}
