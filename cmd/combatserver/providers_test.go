package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/gameserver"
)

// shippedConfig points the defaults at the repository's content tree.
func shippedConfig(t *testing.T) config.Config {
	t.Helper()
	v := config.Defaults()
	root := filepath.Join("..", "..")
	for key, dir := range map[string]string{
		"content.enemies_dir":   "content/enemies",
		"content.spawns_dir":    "content/spawns",
		"content.abilities_dir": "content/abilities",
		"content.perks_dir":     "content/perks",
		"content.loot_dir":      "content/loot",
		"content.scripts_dir":   "content/scripts",
		"content.roster_file":   "content/roster.yaml",
	} {
		v.Set(key, filepath.Join(root, dir))
	}
	cfg, err := config.LoadFromViper(v)
	require.NoError(t, err)
	return cfg
}

func TestShippedContentAssembles(t *testing.T) {
	cfg := shippedConfig(t)
	logger := zaptest.NewLogger(t)

	app, cleanup, err := initializeApp(context.Background(), cfg, logger)
	require.NoError(t, err)
	defer cleanup()
	require.NotNil(t, app.engine)

	cat, err := provideCatalog(cfg, logger)
	require.NoError(t, err)
	assert.Len(t, cat.Spawns(), 4)

	perks, err := providePerks(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"executioner_bonus"}, perks.Scripts())

	roster, err := gameserver.LoadRoster(cfg.Content.RosterFile)
	require.NoError(t, err)
	require.Len(t, roster, 3)
	require.NotNil(t, roster[1].Pet)
	assert.Equal(t, "Cinder", roster[1].Pet.Name)
}

func TestProvideStore_RejectsUnknownDriver(t *testing.T) {
	cfg := shippedConfig(t)
	cfg.Storage.Driver = "sqlite"
	_, _, err := provideStore(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown storage driver "sqlite"`)
}
