package gameserver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/mudcombat/internal/gameserver"
)

func texts(lines []gameserver.Line) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.Text)
	}
	return out
}

func TestFeed_MergesAudiencesInOrder(t *testing.T) {
	ctx := context.Background()
	f := gameserver.NewFeed(8, zap.NewNop())
	f.ToGroup(ctx, 3, "group one")
	f.ToCharacter(ctx, 1, "char one")
	f.ToLocation(ctx, "forest", "forest one")
	f.ToLocation(ctx, "hills", "hills one")
	f.ToGroup(ctx, 3, "group two")

	got := f.Since(1, 3, "forest", 0)
	assert.Equal(t, []string{"group one", "char one", "forest one", "group two"}, texts(got))

	assert.Equal(t, []string{"char one", "forest one"}, texts(f.Since(1, 0, "forest", 0)),
		"group 0 means solo")
	assert.Equal(t, []string{"forest one", "group two"}, texts(f.Since(1, 3, "forest", got[1].Seq)))
}

func TestFeed_DropsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	f := gameserver.NewFeed(2, zap.NewNop())
	f.ToCharacter(ctx, 1, "a")
	f.ToCharacter(ctx, 1, "b")
	f.ToCharacter(ctx, 1, "c")

	assert.Equal(t, []string{"b", "c"}, texts(f.Since(1, 0, "", 0)))
}

func TestProperty_FeedSinceIsOrderedAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		capacity := rapid.IntRange(1, 6).Draw(rt, "capacity")
		f := gameserver.NewFeed(capacity, zap.NewNop())
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		for i := 0; i < n; i++ {
			switch rapid.IntRange(0, 2).Draw(rt, "audience") {
			case 0:
				f.ToCharacter(ctx, 1, "c")
			case 1:
				f.ToGroup(ctx, 2, "g")
			default:
				f.ToLocation(ctx, "forest", "l")
			}
		}
		since := uint64(rapid.IntRange(0, n).Draw(rt, "since"))
		got := f.Since(1, 2, "forest", since)
		if len(got) > 3*capacity {
			rt.Fatalf("got %d lines with capacity %d", len(got), capacity)
		}
		for i, l := range got {
			if l.Seq <= since {
				rt.Fatalf("line %d has seq %d <= %d", i, l.Seq, since)
			}
			if i > 0 && got[i-1].Seq >= l.Seq {
				rt.Fatalf("lines out of order at %d", i)
			}
		}
	})
}
