package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/game/ability"
	"github.com/cory-johannsen/mudcombat/internal/game/combat"
	"github.com/cory-johannsen/mudcombat/internal/game/npc"
	"github.com/cory-johannsen/mudcombat/internal/game/perk"
	"github.com/cory-johannsen/mudcombat/internal/game/schedule"
	"github.com/cory-johannsen/mudcombat/internal/gameserver"
	"github.com/cory-johannsen/mudcombat/internal/scripting"
	"github.com/cory-johannsen/mudcombat/internal/server"
	"github.com/cory-johannsen/mudcombat/internal/storage/memory"
	"github.com/cory-johannsen/mudcombat/internal/storage/postgres"
)

// scriptInstructionLimit bounds a single perk hook call.
const scriptInstructionLimit = 100000

// App is the assembled combat server.
type App struct {
	cfg        config.Config
	logger     *zap.Logger
	engine     *combat.Engine
	dispatcher *schedule.Dispatcher
	service    *gameserver.Service
}

func provideCatalog(cfg config.Config, logger *zap.Logger) (*npc.Catalog, error) {
	start := time.Now()
	cat, err := npc.LoadCatalog(cfg.Content.EnemiesDir, cfg.Content.SpawnsDir)
	if err != nil {
		return nil, fmt.Errorf("loading enemy catalog: %w", err)
	}
	logger.Info("enemy catalog loaded",
		zap.Int("spawns", len(cat.Spawns())),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cat, nil
}

func provideAbilities(cfg config.Config) (*ability.Registry, error) {
	r, err := ability.LoadDirectory(cfg.Content.AbilitiesDir)
	if err != nil {
		return nil, fmt.Errorf("loading abilities: %w", err)
	}
	return r, nil
}

func providePerks(cfg config.Config) (*perk.Registry, error) {
	r, err := perk.LoadDirectory(cfg.Content.PerksDir)
	if err != nil {
		return nil, fmt.Errorf("loading perks: %w", err)
	}
	return r, nil
}

func provideLoot(cfg config.Config) (*npc.LootCatalog, error) {
	c, err := npc.LoadLootCatalog(cfg.Content.LootDir)
	if err != nil {
		return nil, fmt.Errorf("loading loot tables: %w", err)
	}
	return c, nil
}

// provideScripts loads perk hooks and checks that every hook a perk names exists.
func provideScripts(cfg config.Config, perks *perk.Registry, logger *zap.Logger) (*scripting.Manager, func(), error) {
	m := scripting.NewManager(scriptInstructionLimit, logger.Named("scripting"))
	if err := m.LoadDirectory(cfg.Content.ScriptsDir); err != nil {
		m.Close()
		return nil, nil, err
	}
	for _, hook := range perks.Scripts() {
		if !m.HasHook(hook) {
			m.Close()
			return nil, nil, fmt.Errorf("perk script hook %q is not defined in %s", hook, cfg.Content.ScriptsDir)
		}
	}
	return m, m.Close, nil
}

// provideStore opens the configured backend. The postgres backend is migrated
// before use.
func provideStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (combat.Store, func(), error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory store; state is lost on exit")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		return postgres.NewStore(pool.DB(), cfg.Storage.SerializationRetries, logger), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func provideClock() schedule.Clock { return schedule.SystemClock{} }

func provideDispatcher(clock schedule.Clock, logger *zap.Logger) *schedule.Dispatcher {
	return schedule.NewDispatcher(clock, logger)
}

func provideFeed(cfg config.Config, logger *zap.Logger) *gameserver.Feed {
	return gameserver.NewFeed(cfg.GameServer.FeedCapacity, logger)
}

func provideEngine(
	cfg config.Config,
	store combat.Store,
	clock schedule.Clock,
	dispatcher *schedule.Dispatcher,
	catalog *npc.Catalog,
	abilities *ability.Registry,
	perks *perk.Registry,
	loot *npc.LootCatalog,
	feed *gameserver.Feed,
	scripts *scripting.Manager,
	logger *zap.Logger,
) (*combat.Engine, error) {
	engine, err := combat.NewEngine(combat.Deps{
		Store:       store,
		Clock:       clock,
		Scheduler:   dispatcher,
		Catalog:     catalog,
		Abilities:   abilities,
		Perks:       perks,
		Loot:        loot,
		Narrator:    feed,
		Progression: gameserver.NewLogProgression(logger),
		Stats:       combat.RowStats{},
		Ownership:   combat.ChosenPerks{},
		Scripts:     scripts,
		Config:      cfg.Combat,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	engine.Register(dispatcher)
	return engine, nil
}

func provideApp(cfg config.Config, logger *zap.Logger, engine *combat.Engine, dispatcher *schedule.Dispatcher, feed *gameserver.Feed) *App {
	return &App{
		cfg:        cfg,
		logger:     logger,
		engine:     engine,
		dispatcher: dispatcher,
		service:    gameserver.NewService(engine, feed, logger),
	}
}

// Run seeds the roster, resumes persisted work and serves until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if path := a.cfg.Content.RosterFile; path != "" {
		chars, err := gameserver.LoadRoster(path)
		if err != nil {
			return err
		}
		if err := gameserver.SeedRoster(ctx, a.engine, chars, a.logger); err != nil {
			return err
		}
	}
	if err := a.engine.Start(ctx); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", a.cfg.GameServer.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.GameServer.Addr(), err)
	}
	srv := grpc.NewServer()
	gameserver.Register(srv, a.service)

	lc := server.NewLifecycle(a.logger)
	lc.Add("dispatcher", server.ServiceFunc(a.dispatcher.Run))
	lc.Add("grpc", &server.FuncService{
		StartFn: func() error { return srv.Serve(lis) },
		StopFn:  srv.GracefulStop,
	})
	a.logger.Info("combat service listening", zap.String("addr", lis.Addr().String()))
	return lc.Run(ctx)
}
