package gameserver

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

var _ combat.Narrator = (*Feed)(nil)

// Line is one narrative line. Seq orders lines across every audience.
type Line struct {
	Seq  uint64
	Text string
}

// ring keeps the newest lines up to its capacity.
type ring struct {
	lines []Line
	next  int
	full  bool
}

func (r *ring) push(l Line) {
	if r.full {
		r.lines[r.next] = l
	} else {
		r.lines = append(r.lines, l)
	}
	r.next++
	if r.next == cap(r.lines) {
		r.next = 0
		r.full = true
	}
}

func (r *ring) since(seq uint64) []Line {
	var out []Line
	start := 0
	if r.full {
		start = r.next
	}
	for i := 0; i < len(r.lines); i++ {
		l := r.lines[(start+i)%len(r.lines)]
		if l.Seq > seq {
			out = append(out, l)
		}
	}
	return out
}

// Feed is the Narrator behind the gRPC service: every line is logged and kept
// in a bounded buffer per character, group and location for clients to poll.
type Feed struct {
	mu        sync.Mutex
	capacity  int
	seq       uint64
	chars     map[int64]*ring
	groups    map[int64]*ring
	locations map[string]*ring
	logger    *zap.Logger
}

// NewFeed returns a Feed retaining capacity lines per audience.
//
// Precondition: capacity >= 1; logger must be non-nil.
func NewFeed(capacity int, logger *zap.Logger) *Feed {
	if capacity < 1 {
		capacity = 1
	}
	return &Feed{
		capacity:  capacity,
		chars:     make(map[int64]*ring),
		groups:    make(map[int64]*ring),
		locations: make(map[string]*ring),
		logger:    logger.Named("feed"),
	}
}

func push[K comparable](f *Feed, rings map[K]*ring, key K, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := rings[key]
	if !ok {
		r = &ring{lines: make([]Line, 0, f.capacity)}
		rings[key] = r
	}
	f.seq++
	r.push(Line{Seq: f.seq, Text: text})
}

// ToCharacter implements combat.Narrator.
func (f *Feed) ToCharacter(_ context.Context, characterID int64, text string) {
	f.logger.Debug("narrate", zap.Int64("character_id", characterID), zap.String("text", text))
	push(f, f.chars, characterID, text)
}

// ToGroup implements combat.Narrator.
func (f *Feed) ToGroup(_ context.Context, groupID int64, text string) {
	f.logger.Debug("narrate", zap.Int64("group_id", groupID), zap.String("text", text))
	push(f, f.groups, groupID, text)
}

// ToLocation implements combat.Narrator.
func (f *Feed) ToLocation(_ context.Context, location, text string) {
	f.logger.Debug("narrate", zap.String("location", location), zap.String("text", text))
	push(f, f.locations, location, text)
}

// Since returns every retained line newer than seq addressed to characterID,
// its group or its location, oldest first.
func (f *Feed) Since(characterID, groupID int64, location string, seq uint64) []Line {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sets [][]Line
	if r, ok := f.chars[characterID]; ok {
		sets = append(sets, r.since(seq))
	}
	if r, ok := f.groups[groupID]; ok && groupID != 0 {
		sets = append(sets, r.since(seq))
	}
	if r, ok := f.locations[location]; ok && location != "" {
		sets = append(sets, r.since(seq))
	}
	return mergeLines(sets)
}

// mergeLines merges runs that are each ordered by Seq.
func mergeLines(sets [][]Line) []Line {
	var out []Line
	idx := make([]int, len(sets))
	for {
		best := -1
		for i, set := range sets {
			if idx[i] >= len(set) {
				continue
			}
			if best < 0 || set[idx[i]].Seq < sets[best][idx[best]].Seq {
				best = i
			}
		}
		if best < 0 {
			return out
		}
		out = append(out, sets[best][idx[best]])
		idx[best]++
	}
}
