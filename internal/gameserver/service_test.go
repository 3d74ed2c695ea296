package gameserver_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/game/ability"
	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
	"github.com/cory-johannsen/mudcombat/internal/gameserver"
	"github.com/cory-johannsen/mudcombat/internal/storage/memory"
)

type fixture struct {
	feed  *gameserver.Feed
	store *memory.Store
	conn  *grpc.ClientConn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	clock := schedule.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	dispatch := schedule.NewDispatcher(clock, logger)

	cat, err := npc.NewCatalog(
		[]*npc.Template{{ID: "wolf", Name: "Grey Wolf", Level: 1, MaxHP: 20, AttackDamage: 3,
			AttackSpeed: 2 * time.Second, CreatureType: "beast", Tier: "common", XP: 50}},
		[]*npc.SpawnDef{{ID: "den", Name: "the wolf den", Location: "forest", Terrain: "forest",
			Members: []npc.Member{{Template: "wolf"}}}},
	)
	require.NoError(t, err)
	abilities, err := ability.NewRegistry(nil)
	require.NoError(t, err)
	perks, err := perk.NewRegistry([]*perk.Perk{
		{Key: "second_wind", Name: "Second Wind", Rank: 1, Kind: perk.KindActive, Active: perk.ActiveHeal,
			AbilityKey: "second_wind", Cooldown: 30 * time.Second, Power: 20},
	})
	require.NoError(t, err)
	loot, err := npc.NewLootCatalog(nil)
	require.NoError(t, err)

	feed := gameserver.NewFeed(16, logger)
	store := memory.NewStore()
	engine, err := combat.NewEngine(combat.Deps{
		Store:       store,
		Clock:       clock,
		Scheduler:   dispatch,
		Catalog:     cat,
		Abilities:   abilities,
		Perks:       perks,
		Loot:        loot,
		Narrator:    feed,
		Progression: gameserver.NewLogProgression(logger),
		Stats:       combat.RowStats{},
		Ownership:   combat.ChosenPerks{},
		Config: config.CombatConfig{
			CarefulPullDuration: 6 * time.Second,
			BodyPullDuration:    2 * time.Second,
			DelayedAddDelay:     5 * time.Second,
			EffectTickInterval:  3 * time.Second,
			RegenInterval:       10 * time.Second,
			RegenPercent:        5,
			CleanupGrace:        2 * time.Minute,
			LootGrace:           5 * time.Minute,
			DefaultAttackSpeed:  3 * time.Second,
		},
		Logger: logger,
	})
	require.NoError(t, err)
	engine.Register(dispatch)
	require.NoError(t, engine.Start(ctx))
	require.NoError(t, engine.EnsureCharacter(ctx, combat.Character{
		ID: 1, AccountID: 10, Name: "Ada", Level: 1, Location: "forest",
		HP: 100, MaxHP: 100, Mana: 50, MaxMana: 50,
		Weapon: combat.Weapon{BaseDamage: 4, DPS: 6, Speed: 2 * time.Second},
	}))

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gameserver.Register(srv, gameserver.NewService(engine, feed, logger))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &fixture{feed: feed, store: store, conn: conn}
}

func TestService_StatusReportsCharacter(t *testing.T) {
	f := newFixture(t)
	out, err := gameserver.NewClient(f.conn, 10).Call(context.Background(), gameserver.MethodStatus,
		map[string]interface{}{"character_id": 1})
	require.NoError(t, err)

	c := out.GetFields()["character"].GetStructValue().GetFields()
	assert.Equal(t, "Ada", c["name"].GetStringValue())
	assert.Equal(t, float64(100), c["hp"].GetNumberValue())
	assert.Equal(t, "idle", c["activity"].GetStringValue())
	assert.NotContains(t, out.GetFields(), "encounter")
}

func (f *fixture) spawnID(t *testing.T, defID string) int64 {
	t.Helper()
	var id int64
	require.NoError(t, f.store.WithTx(context.Background(), func(tx combat.Tx) error {
		s, err := tx.SpawnByDef(context.Background(), defID)
		id = s.ID
		return err
	}))
	return id
}

func TestService_EngageThenStatusShowsEncounter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := gameserver.NewClient(f.conn, 10)

	out, err := client.Call(ctx, "Engage", map[string]interface{}{"character_id": 1, "spawn_id": f.spawnID(t, "den")})
	require.NoError(t, err)
	assert.True(t, out.GetFields()["ok"].GetBoolValue())
	encID := out.GetFields()["encounter_id"].GetNumberValue()
	assert.NotZero(t, encID)

	after, err := client.Call(ctx, gameserver.MethodStatus, map[string]interface{}{"character_id": 1})
	require.NoError(t, err)
	enc := after.GetFields()["encounter"].GetStructValue().GetFields()
	assert.Equal(t, encID, enc["id"].GetNumberValue())
	assert.Equal(t, "active", enc["state"].GetStringValue())
	assert.Len(t, enc["enemies"].GetListValue().GetValues(), 1)

	again, err := client.Call(ctx, "Engage", map[string]interface{}{"character_id": 1, "spawn_id": f.spawnID(t, "den")})
	require.NoError(t, err)
	assert.False(t, again.GetFields()["ok"].GetBoolValue(), "refusals are replies, not errors")
}

func TestService_Unauthenticated(t *testing.T) {
	f := newFixture(t)
	req, err := structpb.NewStruct(map[string]interface{}{"character_id": 1})
	require.NoError(t, err)

	err = f.conn.Invoke(context.Background(), "/"+gameserver.ServiceName+"/"+gameserver.MethodStatus, req, new(structpb.Struct))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestService_PermissionDenied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := gameserver.NewClient(f.conn, 11).Call(ctx, gameserver.MethodStatus, map[string]interface{}{"character_id": 1})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = gameserver.NewClient(f.conn, 10).Call(ctx, gameserver.MethodStatus, map[string]interface{}{"character_id": 99})
	assert.Equal(t, codes.PermissionDenied, status.Code(err), "unknown characters are not disclosed")

	_, err = gameserver.NewClient(f.conn, 10).Call(ctx, gameserver.MethodStatus, map[string]interface{}{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestService_PerkErrorsMapToCodes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := gameserver.NewClient(f.conn, 10)

	_, err := client.Act(ctx, "ExecutePerkAbility", 1, map[string]interface{}{"ability_key": "nope"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Act(ctx, "ExecutePerkAbility", 1, map[string]interface{}{"ability_key": "second_wind"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err), "perk not chosen")
}

func TestService_FeedReturnsNewLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := gameserver.NewClient(f.conn, 10)

	f.feed.ToCharacter(ctx, 1, "You feel watched.")
	f.feed.ToLocation(ctx, "forest", "Leaves rustle.")
	f.feed.ToCharacter(ctx, 2, "Not for Ada.")

	out, err := client.Call(ctx, gameserver.MethodFeed, map[string]interface{}{"character_id": 1})
	require.NoError(t, err)
	lines := out.GetFields()["lines"].GetListValue().GetValues()
	var texts []string
	for _, l := range lines {
		texts = append(texts, l.GetStructValue().GetFields()["text"].GetStringValue())
	}
	assert.Contains(t, texts, "You feel watched.")
	assert.Contains(t, texts, "Leaves rustle.")
	assert.NotContains(t, texts, "Not for Ada.")

	last := out.GetFields()["last_seq"].GetNumberValue()
	again, err := client.Call(ctx, gameserver.MethodFeed, map[string]interface{}{"character_id": 1, "since": last})
	require.NoError(t, err)
	assert.Empty(t, again.GetFields()["lines"].GetListValue().GetValues())
}

func TestService_UnknownMethod(t *testing.T) {
	f := newFixture(t)
	_, err := gameserver.NewClient(f.conn, 10).Call(context.Background(), "Teleport", map[string]interface{}{"character_id": 1})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestService_PullProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := gameserver.NewClient(f.conn, 10)
	den := f.spawnID(t, "den")

	out, err := client.Call(ctx, gameserver.MethodPullProgress, map[string]interface{}{"character_id": 1, "spawn_id": den})
	require.NoError(t, err)
	assert.False(t, out.GetFields()["pulling"].GetBoolValue())

	_, err = client.Act(ctx, "StartPull", 1, map[string]interface{}{"spawn_id": den, "pull_type": "careful"})
	require.NoError(t, err)
	out, err = client.Call(ctx, gameserver.MethodPullProgress, map[string]interface{}{"character_id": 1, "spawn_id": den})
	require.NoError(t, err)
	assert.True(t, out.GetFields()["pulling"].GetBoolValue())
	assert.Equal(t, float64(0), out.GetFields()["progress"].GetNumberValue())

	_, err = client.Call(ctx, gameserver.MethodPullProgress, map[string]interface{}{"character_id": 1, "spawn_id": 424242})
	assert.Equal(t, codes.NotFound, status.Code(err))
}
