package combat_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/combat/mocks"
)

// winDen kills the den wolf solo; it falls on the third exchange.
func winDen(h *harness, id int64) combat.Reply {
	r := h.engage(id, "den")
	h.advance(6 * time.Second)
	require.Equal(h.t, combat.ResolutionVictory, h.encounter(r.EncounterID).Outcome)
	return r
}

func lootItem(snap combat.Snapshot, itemID string) (combat.Loot, bool) {
	for _, l := range snap.Loot {
		if l.ItemID == itemID {
			return l, true
		}
	}
	return combat.Loot{}, false
}

func TestDismissAndClaim(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))
	h.add(fighter(2, "Bo"))
	winDen(h, 1)

	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	pelt, ok := lootItem(snap, "pelt")
	require.True(t, ok)

	r, err := h.engine.DismissResults(h.ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.True(t, r.NeedsConfirm)
	snap, err = h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	assert.Len(t, snap.Results, 1, "an unconfirmed dismiss changes nothing")

	r, err = h.engine.ClaimLoot(h.ctx, 2, pelt.ID)
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.Contains(t, r.Messages[0], "not yours")

	r, err = h.engine.ClaimLoot(h.ctx, 1, pelt.ID)
	require.NoError(t, err)
	require.True(t, r.OK, r.Messages)

	r, err = h.engine.ClaimLoot(h.ctx, 1, pelt.ID)
	require.NoError(t, err)
	assert.False(t, r.OK)
	assert.Contains(t, r.Messages[0], "already been taken")

	r, err = h.engine.DismissResults(h.ctx, 1, false)
	require.NoError(t, err)
	assert.True(t, r.OK)
	assert.False(t, r.NeedsConfirm)
	snap, err = h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Loot)
}

func TestDismiss_ForceForfeitsLoot(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))
	winDen(h, 1)

	r, err := h.engine.DismissResults(h.ctx, 1, true)
	require.NoError(t, err)
	require.True(t, r.OK)
	assert.Contains(t, r.Messages[0], "1 items left behind")

	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Results)
	assert.Empty(t, snap.Loot)
}

func TestLoot_Expires(t *testing.T) {
	h := newHarness(t)
	h.add(fighter(1, "Ada"))
	winDen(h, 1)
	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	pelt, ok := lootItem(snap, "pelt")
	require.True(t, ok)
	assert.Equal(t, epoch.Add(6*time.Second+5*time.Minute), pelt.ExpiresAt)

	h.advance(5 * time.Minute)
	snap, err = h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, snap.Loot)

	r, err := h.engine.ClaimLoot(h.ctx, 1, pelt.ID)
	require.NoError(t, err)
	assert.False(t, r.OK)
}

func TestGroupVictory_SplitsXPAndSharesGroupLoot(t *testing.T) {
	h := newHarness(t)
	ada := fighter(1, "Ada")
	ada.GroupID = 7
	bo := fighter(2, "Bo")
	bo.GroupID = 7
	bo.AutoJoin = true
	h.add(ada)
	h.add(bo)

	r := h.engage(1, "den")
	// Both land 8 at 2s; Ada finishes the last 4 at 4s.
	h.advance(4 * time.Second)
	enc := h.encounter(r.EncounterID)
	require.Equal(t, combat.ResolutionVictory, enc.Outcome)
	assert.Equal(t, 12, enc.Participant(1).DamageDealt)
	assert.Equal(t, 8, enc.Participant(2).DamageDealt)

	assert.Equal(t, 25, h.progress.xp[1])
	assert.Equal(t, 25, h.progress.xp[2])
	assert.Equal(t, 2, h.progress.renown[2])

	ada1, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.Len(t, ada1.Results, 1)
	assert.Equal(t, 25, ada1.Results[0].XP)
	assert.Equal(t, 1, ada1.Results[0].Kills)
	_, ok := lootItem(ada1, "pelt")
	assert.True(t, ok)
	totem, ok := lootItem(ada1, "totem")
	require.True(t, ok, "group loot is visible to every member")
	assert.Zero(t, totem.CharacterID)
	assert.Equal(t, int64(7), totem.GroupID)

	reply, err := h.engine.ClaimLoot(h.ctx, 2, totem.ID)
	require.NoError(t, err)
	require.True(t, reply.OK)
	reply, err = h.engine.ClaimLoot(h.ctx, 1, totem.ID)
	require.NoError(t, err)
	assert.False(t, reply.OK, "the group row goes to whoever claims it first")
}

func TestVictory_GrantsProgression(t *testing.T) {
	ctrl := gomock.NewController(t)
	prog := mocks.NewMockProgression(ctrl)
	prog.EXPECT().GrantXP(gomock.Any(), int64(1), 50).Return(nil)
	prog.EXPECT().GrantRenown(gomock.Any(), int64(1), 2).Return(nil)
	prog.EXPECT().AdjustFaction(gomock.Any(), int64(1), "wildlife", -1).Return(nil)
	prog.EXPECT().RecordKill(gomock.Any(), int64(1), "wolf").Return(nil)

	h := newHarness(t, withProgression(prog))
	h.add(fighter(1, "Ada"))
	winDen(h, 1)
}

func TestVictory_GrantFailureDoesNotUndoTheFight(t *testing.T) {
	ctrl := gomock.NewController(t)
	prog := mocks.NewMockProgression(ctrl)
	down := errors.New("progression unavailable")
	prog.EXPECT().GrantXP(gomock.Any(), int64(1), 50).Return(down)
	prog.EXPECT().GrantRenown(gomock.Any(), int64(1), 2).Return(down)
	prog.EXPECT().AdjustFaction(gomock.Any(), int64(1), "wildlife", -1).Return(nil)
	prog.EXPECT().RecordKill(gomock.Any(), int64(1), "wolf").Return(down)

	h := newHarness(t, withProgression(prog))
	h.add(fighter(1, "Ada"))
	winDen(h, 1)

	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, 50, snap.Results[0].XP)
	assert.Equal(t, combat.SpawnRespawning, h.spawn("den").State)
}

func TestWipe_ReleasesSpawnAtOnce(t *testing.T) {
	h := newHarness(t)
	c := fighter(1, "Ada")
	c.HP = 3
	h.add(c)
	r := h.engage(1, "den")

	h.advance(2 * time.Second)
	enc := h.encounter(r.EncounterID)
	assert.Equal(t, combat.ResolutionWipe, enc.Outcome)
	assert.Equal(t, combat.StatusDead, enc.Participant(1).Status)
	assert.Zero(t, h.character(1).HP)
	assert.Equal(t, combat.SpawnAvailable, h.spawn("den").State)
	assert.Empty(t, h.progress.xp)

	snap, err := h.engine.Status(h.ctx, 1)
	require.NoError(t, err)
	require.Len(t, snap.Results, 1)
	assert.Equal(t, combat.ResolutionWipe, snap.Results[0].Outcome)
	assert.Zero(t, snap.Results[0].XP)
	assert.Empty(t, snap.Loot)
}

func TestKill_CreditedOnceWhenTwoHitsLandInOneTick(t *testing.T) {
	h := newHarness(t)
	ada := fighter(1, "Ada")
	ada.GroupID = 7
	bo := fighter(2, "Bo")
	bo.GroupID = 7
	bo.AutoJoin = true
	bo.Weapon.BaseDamage = 30
	h.add(ada)
	h.add(bo)

	r := h.engage(1, "den")
	// Ada lands 8 at 2s, then Bo's 34 finishes the remaining 12 in the same tick.
	h.advance(2 * time.Second)
	enc := h.encounter(r.EncounterID)
	require.Equal(t, combat.ResolutionVictory, enc.Outcome)
	require.Len(t, enc.Enemies, 1)
	assert.True(t, enc.Enemies[0].KillCredited)
	assert.Equal(t, 8, enc.Participant(1).DamageDealt)
	assert.Equal(t, 12, enc.Participant(2).DamageDealt, "overkill is not credited")
	assert.Equal(t, 1, enc.Participant(1).Kills+enc.Participant(2).Kills)
	assert.Equal(t, 100, h.character(1).HP, "a wolf killed earlier in the tick does not swing")

	assert.Equal(t, []string{"wolf"}, h.progress.kills[1])
	assert.Equal(t, []string{"wolf"}, h.progress.kills[2])
	assert.Equal(t, 25, h.progress.xp[1])
	assert.Equal(t, 25, h.progress.xp[2])

	for _, id := range []int64{1, 2} {
		snap, err := h.engine.Status(h.ctx, id)
		require.NoError(t, err)
		pelts := 0
		for _, l := range snap.Loot {
			if l.ItemID == "pelt" && l.CharacterID == id {
				pelts++
			}
		}
		assert.Equal(t, 1, pelts, "character %d", id)
	}
}
