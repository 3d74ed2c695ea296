// Package config provides Viper-based configuration loading for the combat server.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds top-level server settings.
type ServerConfig struct {
	// Name identifies this process in logs.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds how long graceful shutdown may take.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `mapstructure:"driver"`
	// SerializationRetries is how many times a postgres transaction is retried
	// after a serialization failure.
	SerializationRetries int `mapstructure:"serialization_retries"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameServerConfig holds gRPC listener settings.
type GameServerConfig struct {
	// GRPCHost is the bind address for the combat gRPC service.
	GRPCHost string `mapstructure:"grpc_host"`
	// GRPCPort is the TCP port for the combat gRPC service.
	GRPCPort int `mapstructure:"grpc_port"`
	// FeedCapacity is the number of narrative lines retained per feed.
	FeedCapacity int `mapstructure:"feed_capacity"`
}

// Addr returns the "host:port" gRPC address.
//
// Postcondition: Returns a non-empty string in "host:port" format.
func (g GameServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.GRPCHost, g.GRPCPort)
}

// CombatConfig holds the combat tunables.
type CombatConfig struct {
	CarefulPullDuration time.Duration `mapstructure:"careful_pull_duration"`
	BodyPullDuration    time.Duration `mapstructure:"body_pull_duration"`
	// CarefulFailPercent is the chance a careful pull misses outright.
	CarefulFailPercent int `mapstructure:"careful_fail_percent"`
	CarefulAddsPercent int `mapstructure:"careful_adds_percent"`
	BodyAddsPercent    int `mapstructure:"body_adds_percent"`
	DelayedAddDelay    time.Duration `mapstructure:"delayed_add_delay"`
	MaxAdds            int           `mapstructure:"max_adds"`
	// GatherAggroPercent is the chance a gather attempt draws a nearby spawn.
	GatherAggroPercent int           `mapstructure:"gather_aggro_percent"`
	EffectTickInterval time.Duration `mapstructure:"effect_tick_interval"`
	RegenInterval      time.Duration `mapstructure:"regen_interval"`
	RegenPercent       int           `mapstructure:"regen_percent"`
	HealThreatPercent  int           `mapstructure:"heal_threat_percent"`
	TauntThreat        int           `mapstructure:"taunt_threat"`
	CleanupGrace       time.Duration `mapstructure:"cleanup_grace"`
	LootGrace          time.Duration `mapstructure:"loot_grace"`
	DefaultAttackSpeed time.Duration `mapstructure:"default_attack_speed"`
}

// ContentConfig names the YAML content directories.
type ContentConfig struct {
	EnemiesDir   string `mapstructure:"enemies_dir"`
	SpawnsDir    string `mapstructure:"spawns_dir"`
	AbilitiesDir string `mapstructure:"abilities_dir"`
	PerksDir     string `mapstructure:"perks_dir"`
	LootDir      string `mapstructure:"loot_dir"`
	ScriptsDir   string `mapstructure:"scripts_dir"`
	// RosterFile seeds characters into an empty store. Optional.
	RosterFile string `mapstructure:"roster_file"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	GameServer GameServerConfig `mapstructure:"gameserver"`
	Combat     CombatConfig     `mapstructure:"combat"`
	Content    ContentConfig    `mapstructure:"content"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateServer(c.Server); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateStorage(c.Storage); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Storage.Driver == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGameServer(c.GameServer); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateCombat(c.Combat); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Name == "" {
		return errors.New("server.name must not be empty")
	}
	if s.ShutdownTimeout < 0 {
		return errors.New("server.shutdown_timeout must not be negative")
	}
	return nil
}

func validateStorage(s StorageConfig) error {
	validDrivers := map[string]bool{"memory": true, "postgres": true}
	if !validDrivers[s.Driver] {
		return fmt.Errorf("storage.driver must be one of [memory, postgres], got %q", s.Driver)
	}
	if s.SerializationRetries < 0 {
		return fmt.Errorf("storage.serialization_retries must be >= 0, got %d", s.SerializationRetries)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGameServer(g GameServerConfig) error {
	var errs []string
	if g.GRPCHost == "" {
		errs = append(errs, "gameserver.grpc_host must not be empty")
	}
	if g.GRPCPort < 1 || g.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("gameserver.grpc_port must be 1-65535, got %d", g.GRPCPort))
	}
	if g.FeedCapacity < 1 {
		errs = append(errs, fmt.Sprintf("gameserver.feed_capacity must be >= 1, got %d", g.FeedCapacity))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validatePercent(name string, v int) string {
	if v < 0 || v > 100 {
		return fmt.Sprintf("combat.%s must be 0-100, got %d", name, v)
	}
	return ""
}

func validateCombat(c CombatConfig) error {
	var errs []string
	if c.BodyPullDuration <= 0 {
		errs = append(errs, "combat.body_pull_duration must be positive")
	}
	if c.CarefulPullDuration <= c.BodyPullDuration {
		errs = append(errs, "combat.careful_pull_duration must exceed combat.body_pull_duration")
	}
	for name, v := range map[string]int{
		"careful_fail_percent": c.CarefulFailPercent,
		"careful_adds_percent": c.CarefulAddsPercent,
		"body_adds_percent":    c.BodyAddsPercent,
		"gather_aggro_percent": c.GatherAggroPercent,
		"regen_percent":        c.RegenPercent,
		"heal_threat_percent":  c.HealThreatPercent,
	} {
		if msg := validatePercent(name, v); msg != "" {
			errs = append(errs, msg)
		}
	}
	if c.MaxAdds < 0 {
		errs = append(errs, fmt.Sprintf("combat.max_adds must be >= 0, got %d", c.MaxAdds))
	}
	if c.TauntThreat < 0 {
		errs = append(errs, fmt.Sprintf("combat.taunt_threat must be >= 0, got %d", c.TauntThreat))
	}
	if c.EffectTickInterval <= 0 {
		errs = append(errs, "combat.effect_tick_interval must be positive")
	}
	if c.RegenInterval <= 0 {
		errs = append(errs, "combat.regen_interval must be positive")
	}
	if c.DefaultAttackSpeed <= 0 {
		errs = append(errs, "combat.default_attack_speed must be positive")
	}
	if c.DelayedAddDelay < 0 || c.CleanupGrace < 0 || c.LootGrace < 0 {
		errs = append(errs, "combat grace windows and delays must not be negative")
	}
	if len(errs) > 0 {
		// map iteration above is unordered
		sort.Strings(errs)
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.EnemiesDir == "" {
		errs = append(errs, "content.enemies_dir must not be empty")
	}
	if c.SpawnsDir == "" {
		errs = append(errs, "content.spawns_dir must not be empty")
	}
	if c.AbilitiesDir == "" {
		errs = append(errs, "content.abilities_dir must not be empty")
	}
	if c.PerksDir == "" {
		errs = append(errs, "content.perks_dir must not be empty")
	}
	if c.LootDir == "" {
		errs = append(errs, "content.loot_dir must not be empty")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with COMBAT_ prefix
	v.SetEnvPrefix("COMBAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
//
// Postcondition: Returns a non-nil Viper instance.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "combatserver")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "combat")
	v.SetDefault("database.password", "combat")
	v.SetDefault("database.name", "combat")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.serialization_retries", 3)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("gameserver.grpc_host", "127.0.0.1")
	v.SetDefault("gameserver.grpc_port", 50061)
	v.SetDefault("gameserver.feed_capacity", 200)

	v.SetDefault("combat.careful_pull_duration", "6s")
	v.SetDefault("combat.body_pull_duration", "2s")
	v.SetDefault("combat.careful_fail_percent", 20)
	v.SetDefault("combat.careful_adds_percent", 10)
	v.SetDefault("combat.body_adds_percent", 40)
	v.SetDefault("combat.delayed_add_delay", "5s")
	v.SetDefault("combat.max_adds", 3)
	v.SetDefault("combat.gather_aggro_percent", 15)
	v.SetDefault("combat.effect_tick_interval", "3s")
	v.SetDefault("combat.regen_interval", "10s")
	v.SetDefault("combat.regen_percent", 5)
	v.SetDefault("combat.heal_threat_percent", 50)
	v.SetDefault("combat.taunt_threat", 500)
	v.SetDefault("combat.cleanup_grace", "2m")
	v.SetDefault("combat.loot_grace", "5m")
	v.SetDefault("combat.default_attack_speed", "3s")

	v.SetDefault("content.enemies_dir", "content/enemies")
	v.SetDefault("content.spawns_dir", "content/spawns")
	v.SetDefault("content.abilities_dir", "content/abilities")
	v.SetDefault("content.perks_dir", "content/perks")
	v.SetDefault("content.loot_dir", "content/loot")
	v.SetDefault("content.scripts_dir", "content/scripts")
	v.SetDefault("content.roster_file", "")
}
