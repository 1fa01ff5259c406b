// Package config provides Viper-based configuration loading for the idle game daemon.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for the save store.
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
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// GameConfig holds simulation and content settings.
type GameConfig struct {
	// TickInterval is the wall-clock period between simulation steps.
	TickInterval time.Duration `mapstructure:"tick_interval"`
	// SpawnDir holds spawn table YAML files.
	SpawnDir string `mapstructure:"spawn_dir"`
	// MonsterDir holds monster template YAML files.
	MonsterDir string `mapstructure:"monster_dir"`
	// SkillFile is the YAML file of skill definitions.
	SkillFile string `mapstructure:"skill_file"`
	// ScriptDir holds Lua spawn gate scripts; empty disables scripting.
	ScriptDir string `mapstructure:"script_dir"`
	// SpawnTable is the table the runner rolls encounters from.
	SpawnTable string `mapstructure:"spawn_table"`
	// DungeonLength is the number of encounters that make up a full run.
	DungeonLength int `mapstructure:"dungeon_length"`
	// CharacterID is the save slot the daemon drives.
	CharacterID string `mapstructure:"character_id"`
	// HallID is the shared hall holding the character's gold.
	HallID string `mapstructure:"hall_id"`
	// Store selects the save backend: "memory" or "postgres".
	Store string `mapstructure:"store"`
	// CacheSize bounds the save cache; 0 disables caching.
	CacheSize int `mapstructure:"cache_size"`
	// CacheTTL is the lifetime of cached save entries.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// SaveEvery is the number of ticks between autosaves.
	SaveEvery int `mapstructure:"save_every"`
}

// AdminConfig holds the health/metrics HTTP listener settings.
type AdminConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr returns the "host:port" listen address.
func (a AdminConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// Config is the top-level application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Game     GameConfig     `mapstructure:"game"`
	Admin    AdminConfig    `mapstructure:"admin"`
}

// Validate checks all configuration invariants. Database settings are only
// checked when the postgres store is selected.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateGame(c.Game); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Game.Store == "postgres" {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := validateAdmin(c.Admin); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
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

func validateGame(g GameConfig) error {
	var errs []string
	if g.TickInterval <= 0 {
		errs = append(errs, "game.tick_interval must be > 0")
	}
	if g.SpawnDir == "" {
		errs = append(errs, "game.spawn_dir must not be empty")
	}
	if g.MonsterDir == "" {
		errs = append(errs, "game.monster_dir must not be empty")
	}
	if g.SpawnTable == "" {
		errs = append(errs, "game.spawn_table must not be empty")
	}
	if g.DungeonLength < 1 {
		errs = append(errs, fmt.Sprintf("game.dungeon_length must be >= 1, got %d", g.DungeonLength))
	}
	if g.CharacterID == "" {
		errs = append(errs, "game.character_id must not be empty")
	}
	if g.HallID == "" {
		errs = append(errs, "game.hall_id must not be empty")
	}
	validStores := map[string]bool{"memory": true, "postgres": true}
	if !validStores[g.Store] {
		errs = append(errs, fmt.Sprintf("game.store must be one of [memory, postgres], got %q", g.Store))
	}
	if g.CacheSize < 0 {
		errs = append(errs, fmt.Sprintf("game.cache_size must be >= 0, got %d", g.CacheSize))
	}
	if g.CacheSize > 0 && g.CacheTTL <= 0 {
		errs = append(errs, "game.cache_ttl must be > 0 when caching is enabled")
	}
	if g.SaveEvery < 1 {
		errs = append(errs, fmt.Sprintf("game.save_every must be >= 1, got %d", g.SaveEvery))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
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
	if d.MinConns < 0 || d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must be in [0, max_conns]")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateAdmin(a AdminConfig) error {
	if a.Port < 1 || a.Port > 65535 {
		return fmt.Errorf("admin.port must be 1-65535, got %d", a.Port)
	}
	return nil
}

// Load reads configuration from the given file path, applies IDLE_-prefixed
// environment variable overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("IDLE")
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "idle")
	v.SetDefault("database.password", "idle")
	v.SetDefault("database.name", "idle")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 5)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("game.tick_interval", "200ms")
	v.SetDefault("game.spawn_dir", "content/spawns")
	v.SetDefault("game.monster_dir", "content/monsters")
	v.SetDefault("game.skill_file", "content/skills.yaml")
	v.SetDefault("game.script_dir", "")
	v.SetDefault("game.spawn_table", "crypt")
	v.SetDefault("game.dungeon_length", 20)
	v.SetDefault("game.character_id", "default")
	v.SetDefault("game.hall_id", "hall")
	v.SetDefault("game.store", "memory")
	v.SetDefault("game.cache_size", 64)
	v.SetDefault("game.cache_ttl", "10m")
	v.SetDefault("game.save_every", 50)

	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 9090)
}
