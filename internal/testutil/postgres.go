// Package testutil starts throwaway infrastructure for integration tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/mudcombat/internal/config"
	"github.com/cory-johannsen/mudcombat/internal/storage/postgres"
)

// readyLog is printed twice by the postgres image: once by the init server and
// once by the real one.
const readyLog = "database system is ready to accept connections"

// CombatDB is a migrated combat database in a disposable container.
type CombatDB struct {
	Pool   *postgres.Pool
	Config config.DatabaseConfig
}

// StartCombatDB runs postgres in a container, applies the embedded combat
// schema and connects a pool. The container is removed when t ends. Skipped
// under -short; requires Docker otherwise.
func StartCombatDB(t *testing.T) *CombatDB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "combat",
				"POSTGRES_PASSWORD": "combat",
				"POSTGRES_DB":       "combat",
			},
			WaitingFor: wait.ForLog(readyLog).WithOccurrence(2).WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	cfg := config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            "combat",
		Password:        "combat",
		Name:            "combat",
		SSLMode:         "disable",
		MaxConns:        8,
		MinConns:        1,
		MaxConnLifetime: time.Minute,
	}

	if err := postgres.MigrateUp(cfg.DSN()); err != nil {
		t.Fatalf("migrating combat schema: %v", err)
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	t.Cleanup(pool.Close)
	t.Logf("combat database ready [%s]", time.Since(start))
	return &CombatDB{Pool: pool, Config: cfg}
}
