package combat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/dice"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
)

type audience int

const (
	toCharacter audience = iota
	toGroup
	toLocation
)

type line struct {
	to       audience
	id       int64
	location string
	text     string
}

// unit is the state of one transaction. Rows loaded through it are cached so
// every step of an operation sees the same copy; characters are written back
// once in flush.
type unit struct {
	ctx   context.Context
	tx    Tx
	e     *Engine
	now   time.Time
	actor int64

	chars map[int64]*Character
	order []int64

	encs     map[int64]*Encounter
	encOrder []int64
	dropped  map[int64]bool

	tasks  []schedule.Task
	lines  []line
	grants []func(ctx context.Context) error
	reply  Reply
}

func (e *Engine) newUnit(ctx context.Context, tx Tx, actor int64) *unit {
	return &unit{
		ctx:     ctx,
		tx:      tx,
		e:       e,
		now:     e.clock.Now(),
		actor:   actor,
		chars:   make(map[int64]*Character),
		encs:    make(map[int64]*Encounter),
		dropped: make(map[int64]bool),
	}
}

func (u *unit) nowMicros() int64 { return u.now.UnixMicro() }

// seed is the roll seed for actorID at the unit's instant.
func (u *unit) seed(actorID int64) uint64 { return dice.Seed(actorID, u.nowMicros()) }

// character returns the cached copy of character id, loading it on first use.
func (u *unit) character(id int64) (*Character, error) {
	if c, ok := u.chars[id]; ok {
		return c, nil
	}
	c, err := u.tx.Character(u.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading character %d: %w", id, err)
	}
	u.chars[id] = &c
	u.order = append(u.order, id)
	return &c, nil
}

// encounter returns the cached copy of encounter id, loading it on first use.
func (u *unit) encounter(id int64) (*Encounter, error) {
	if u.dropped[id] {
		return nil, fmt.Errorf("encounter %d: %w", id, ErrNotFound)
	}
	if enc, ok := u.encs[id]; ok {
		return enc, nil
	}
	enc, err := u.tx.Encounter(u.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading encounter %d: %w", id, err)
	}
	u.track(&enc)
	return &enc, nil
}

// track adds enc to the set written back in flush.
func (u *unit) track(enc *Encounter) {
	if _, ok := u.encs[enc.ID]; ok {
		return
	}
	u.encs[enc.ID] = enc
	u.encOrder = append(u.encOrder, enc.ID)
}

// drop deletes encounter id and its child rows.
func (u *unit) drop(id int64) error {
	if err := u.tx.DeleteEncounter(u.ctx, id); err != nil {
		return fmt.Errorf("deleting encounter %d: %w", id, err)
	}
	u.dropped[id] = true
	return nil
}

// membership returns the active encounter characterID has not fled from.
func (u *unit) membership(characterID int64) (*Encounter, bool, error) {
	for _, id := range u.encOrder {
		enc := u.encs[id]
		if u.dropped[id] || enc.State != StateActive {
			continue
		}
		if p := enc.Participant(characterID); p != nil && p.Status != StatusFled {
			return enc, true, nil
		}
	}
	row, found, err := u.tx.MembershipFor(u.ctx, characterID)
	if err != nil {
		return nil, false, fmt.Errorf("membership for character %d: %w", characterID, err)
	}
	if !found {
		return nil, false, nil
	}
	if _, cached := u.encs[row.ID]; cached {
		// The cached copy is newer and says the character is no longer a member.
		return nil, false, nil
	}
	u.track(&row)
	return &row, true, nil
}

// groupMembers returns cached copies of every member of groupID.
func (u *unit) groupMembers(groupID int64) ([]*Character, error) {
	rows, err := u.tx.GroupMembers(u.ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading group %d: %w", groupID, err)
	}
	out := make([]*Character, 0, len(rows))
	for _, r := range rows {
		c, err := u.character(r.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// stats returns the effective combat stats for c.
func (u *unit) stats(c *Character) (Stats, error) {
	s, err := u.e.stats.CombatStats(u.ctx, *c)
	if err != nil {
		return Stats{}, fmt.Errorf("combat stats for character %d: %w", c.ID, err)
	}
	return s, nil
}

func (u *unit) newID() (int64, error) {
	id, err := u.tx.NextID(u.ctx)
	if err != nil {
		return 0, fmt.Errorf("allocating id: %w", err)
	}
	return id, nil
}

// schedule replaces the live task for (kind, ref). The task reaches the
// dispatcher only if the transaction commits.
func (u *unit) schedule(kind schedule.Kind, ref int64, due time.Time) error {
	t := schedule.NewTask(kind, ref, due)
	if err := u.tx.SaveTask(u.ctx, t); err != nil {
		return fmt.Errorf("scheduling %s: %w", t.Key, err)
	}
	u.tasks = append(u.tasks, t)
	return nil
}

// unschedule drops the live task for (kind, ref). A queued copy becomes stale.
func (u *unit) unschedule(kind schedule.Kind, ref int64) error {
	if err := u.tx.DeleteTask(u.ctx, schedule.KeyFor(kind, ref)); err != nil {
		return fmt.Errorf("unscheduling %s: %w", schedule.KeyFor(kind, ref), err)
	}
	return nil
}

// claimTask consumes the stored row for t. It reports false when t has been
// superseded or cancelled since it was queued.
func (u *unit) claimTask(t schedule.Task) (bool, error) {
	stored, ok, err := u.tx.Task(u.ctx, t.Key)
	if err != nil {
		return false, fmt.Errorf("loading task %s: %w", t.Key, err)
	}
	if !ok || stored.ID != t.ID {
		u.e.logger.Debug("stale task", zap.String("key", t.Key), zap.String("task_id", t.ID))
		return false, nil
	}
	if err := u.tx.DeleteTask(u.ctx, t.Key); err != nil {
		return false, fmt.Errorf("consuming task %s: %w", t.Key, err)
	}
	return true, nil
}

// ok marks the reply successful and sends msg to the actor.
func (u *unit) ok(format string, args ...interface{}) {
	u.reply.OK = true
	if format != "" {
		u.say(format, args...)
	}
}

// fail reports an action that did not go the actor's way.
func (u *unit) fail(format string, args ...interface{}) {
	u.reply.OK = false
	u.say(format, args...)
}

// say adds a message for the acting character.
func (u *unit) say(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	u.reply.Messages = append(u.reply.Messages, text)
	if u.actor != 0 {
		u.lines = append(u.lines, line{to: toCharacter, id: u.actor, text: text})
	}
}

func (u *unit) tell(characterID int64, format string, args ...interface{}) {
	if characterID == u.actor {
		u.say(format, args...)
		return
	}
	u.lines = append(u.lines, line{to: toCharacter, id: characterID, text: fmt.Sprintf(format, args...)})
}

// announce sends a line to every participant of enc, or to its location when
// the encounter has no participants left.
func (u *unit) announce(enc *Encounter, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	if enc.GroupID != 0 {
		u.lines = append(u.lines, line{to: toGroup, id: enc.GroupID, text: text})
		if u.actor != 0 {
			u.reply.Messages = append(u.reply.Messages, text)
		}
		return
	}
	sent := false
	for _, p := range enc.Participants {
		if p.Status == StatusFled {
			continue
		}
		u.tell(p.CharacterID, "%s", text)
		sent = true
	}
	if !sent {
		u.lines = append(u.lines, line{to: toLocation, location: enc.Location, text: text})
	}
}

func (u *unit) toLocation(location, format string, args ...interface{}) {
	u.lines = append(u.lines, line{to: toLocation, location: location, text: fmt.Sprintf(format, args...)})
}

// grant queues a progression call for after commit.
func (u *unit) grant(fn func(ctx context.Context) error) {
	u.grants = append(u.grants, fn)
}

// flush writes back every cached encounter and character.
func (u *unit) flush() error {
	for _, id := range u.encOrder {
		if u.dropped[id] {
			continue
		}
		if err := u.tx.SaveEncounter(u.ctx, *u.encs[id]); err != nil {
			return fmt.Errorf("saving encounter %d: %w", id, err)
		}
	}
	for _, id := range u.order {
		if err := u.tx.SaveCharacter(u.ctx, *u.chars[id]); err != nil {
			return fmt.Errorf("saving character %d: %w", id, err)
		}
	}
	return nil
}

// publish hands the unit's side effects to the outside world. Runs after commit.
func (u *unit) publish() {
	for _, t := range u.tasks {
		u.e.sched.Schedule(t)
	}
	for _, l := range u.lines {
		switch l.to {
		case toCharacter:
			u.e.narrator.ToCharacter(u.ctx, l.id, l.text)
		case toGroup:
			u.e.narrator.ToGroup(u.ctx, l.id, l.text)
		case toLocation:
			u.e.narrator.ToLocation(u.ctx, l.location, l.text)
		}
	}
	var errs []error
	for _, g := range u.grants {
		if err := g(u.ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		u.e.logger.Error("progression grants failed", zap.Error(err))
	}
}
