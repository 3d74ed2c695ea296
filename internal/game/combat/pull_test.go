package combat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/game/combat"
)

func TestPull_CarefulThenEngage(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))
	h.add(fighter(2, "Bo"))
	den := h.spawnID("den")

	r, err := h.engine.StartPull(h.ctx, 1, den, combat.PullCareful)
	require.NoError(t, err)
	require.True(t, r.OK, r.Messages)
	assert.Equal(t, combat.SpawnPulling, h.spawn("den").State)

	r, err = h.engine.StartPull(h.ctx, 1, h.spawnID("pit"), combat.PullBody)
	require.NoError(t, err)
	assert.False(t, r.OK, "one pull at a time")

	r, err = h.engine.Engage(h.ctx, 2, den)
	require.NoError(t, err)
	assert.False(t, r.OK, "a pulled spawn cannot be engaged by someone else")

	h.advance(3 * time.Second)
	progress, pulling, err := h.engine.PullProgress(h.ctx, den)
	require.NoError(t, err)
	require.True(t, pulling)
	assert.InDelta(t, 0.5, progress, 1e-9)
	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, snap.Pull)
	assert.InDelta(t, 0.5, snap.PullProgress, 1e-9)

	h.advance(3 * time.Second)
	snap, err = h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, snap.Encounter)
	assert.Nil(t, snap.Pull)
	assert.Equal(t, combat.SpawnLocked, h.spawn("den").State)
	assert.Empty(t, snap.Encounter.Adds)
	_, pulling, err = h.engine.PullProgress(h.ctx, den)
	require.NoError(t, err)
	assert.False(t, pulling)
}

func TestPull_BodyPullDrawsAdds(t *testing.T) {
	h := newHarness(t, withConfig(func(c *config.CombatConfig) { c.BodyAddsPercent = 100 }))
	h.add(fighter(1, "Ada"))

	r, err := h.engine.StartPull(h.ctx, 1, h.spawnID("den"), combat.PullBody)
	require.NoError(t, err)
	require.True(t, r.OK)

	h.advance(2 * time.Second)
	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, snap.Encounter)
	enc := *snap.Encounter
	assert.Len(t, enc.Enemies, 1)
	assert.Equal(t, 1, enc.PendingAdds)
	assert.Equal(t, epoch.Add(7*time.Second), enc.PendingAddsAt)

	h.advance(5 * time.Second)
	enc = h.encounter(enc.ID)
	require.Len(t, enc.Enemies, 2, "the delayed wave arrives")
	assert.Equal(t, 1, enc.AddsSpawned)
	assert.Zero(t, enc.PendingAdds)
	assert.True(t, h.feed.heard(1, "joins the fight"))
}

func TestPull_CarefulMiss(t *testing.T) {
	h := newHarness(t, withConfig(func(c *config.CombatConfig) { c.CarefulFailPercent = 100 }))
	h.add(fighter(1, "Ada"))

	_, err := h.engine.StartPull(h.ctx, 1, h.spawnID("den"), combat.PullCareful)
	require.NoError(t, err)
	h.advance(6 * time.Second)

	assert.Empty(t, h.store.Encounters())
	assert.Equal(t, combat.SpawnAvailable, h.spawn("den").State)
	assert.True(t, h.feed.heard(1, "does not notice you"))
}

func TestPull_Abort(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))

	r, err := h.engine.AbortPull(h.ctx, 1)
	require.NoError(t, err)
	assert.False(t, r.OK)

	_, err = h.engine.StartPull(h.ctx, 1, h.spawnID("den"), combat.PullCareful)
	require.NoError(t, err)
	h.advance(time.Second)

	r, err = h.engine.AbortPull(h.ctx, 1)
	require.NoError(t, err)
	require.True(t, r.OK)
	assert.Equal(t, combat.SpawnAvailable, h.spawn("den").State)

	h.advance(10 * time.Second)
	assert.Empty(t, h.store.Encounters(), "the cancelled pull task is a no-op")
}

func TestPull_UnknownType(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))

	r, err := h.engine.StartPull(h.ctx, 1, h.spawnID("den"), combat.PullType("sneaky"))
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.Equal(t, combat.SpawnAvailable, h.spawn("den").State)
}
