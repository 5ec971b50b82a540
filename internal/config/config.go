// Package config loads the table declaration and connection settings from a
// YAML, TOML or JSON file, .env files and INILITE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MoffettMcKenna/IniLiteORM/database"
	"github.com/MoffettMcKenna/IniLiteORM/store"
	"github.com/MoffettMcKenna/IniLiteORM/table"
	"github.com/hashicorp/go-version"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration, .env and seed files are read from.
var AppFs = afero.NewOsFs()

// SupportedVersions constrains the version key of a config file.
const SupportedVersions = ">= 1.0, < 2.0"

var (
	// ErrUnsupportedVersion is returned when the config format version is
	// outside SupportedVersions.
	ErrUnsupportedVersion = errors.New("unsupported config version")
	// ErrInvalidConfig is returned for structurally broken configs.
	ErrInvalidConfig = errors.New("invalid config")
)

// Column declares one column.
type Column struct {
	Name string `mapstructure:"name"`
	Decl string `mapstructure:"decl"`
}

// Table declares one table and its optional CSV seed.
type Table struct {
	Name    string   `mapstructure:"name"`
	Seed    string   `mapstructure:"seed"`
	Columns []Column `mapstructure:"columns"`
}

// Database holds connection and reconciliation settings.
type Database struct {
	File           string        `mapstructure:"file"`
	Provider       string        `mapstructure:"provider"`
	Update         bool          `mapstructure:"update"`
	Debug          bool          `mapstructure:"debug"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// Config is the loaded configuration.
type Config struct {
	Version  string   `mapstructure:"version"`
	Database Database `mapstructure:"database"`
	Tables   []Table  `mapstructure:"tables"`

	// File is the config file used, empty when none was found.
	File string `mapstructure:"-"`
}

// Load reads the config at path, or searches ".", the home directory and
// ~/.config/inilite for inilite.{yaml,toml,json} when path is empty. A
// missing searched file is not an error; a missing explicit one is.
func Load(path string) (*Config, error) {
	loadDotenv(".env", false)
	loadDotenv(".env.local", true)

	v := viper.New()
	v.SetFs(AppFs)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("inilite")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
			v.AddConfigPath(filepath.Join(home, ".config", "inilite"))
		}
	}

	v.SetEnvPrefix("INILITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("database.file", "INILITE_DATABASE_FILE", "DATABASE_URL")

	v.SetDefault("version", "1.0")
	v.SetDefault("database.file", "inilite.db")
	v.SetDefault("database.provider", "sqlite")
	v.SetDefault("database.update", false)
	v.SetDefault("database.debug", false)
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.connect_timeout", 10*time.Second)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.CheckVersion(); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	cfg.resolveSeeds()
	return cfg, nil
}

// CheckVersion verifies the version key against SupportedVersions.
func (c *Config) CheckVersion() error {
	got, err := version.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrUnsupportedVersion, c.Version, err)
	}
	constraints, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraints.Check(got) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedVersion, got, SupportedVersions)
	}
	return nil
}

func (c *Config) check() error {
	if _, err := store.ParseDialect(c.Database.Provider); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	for i, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("%w: table %d has no name", ErrInvalidConfig, i)
		}
		for j, col := range t.Columns {
			if col.Name == "" {
				return fmt.Errorf("%w: column %d of table %s has no name", ErrInvalidConfig, j, t.Name)
			}
		}
	}
	return nil
}

// resolveSeeds makes relative seed paths relative to the config file.
func (c *Config) resolveSeeds() {
	if c.File == "" {
		return
	}
	dir := filepath.Dir(c.File)
	for i, t := range c.Tables {
		if t.Seed != "" && !filepath.IsAbs(t.Seed) {
			c.Tables[i].Seed = filepath.Join(dir, t.Seed)
		}
	}
}

// Declaration converts the tables section.
func (c *Config) Declaration() database.Declaration {
	decl := database.Declaration{Tables: make([]database.TableDecl, len(c.Tables))}
	for i, t := range c.Tables {
		cols := make([]table.ColumnDecl, len(t.Columns))
		for j, col := range t.Columns {
			cols[j] = table.ColumnDecl{Name: col.Name, Decl: col.Decl}
		}
		decl.Tables[i] = database.TableDecl{Name: t.Name, Seed: t.Seed, Columns: cols}
	}
	return decl
}

// StoreConfig converts the database section.
func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Provider:       c.Database.Provider,
		URL:            c.Database.File,
		MaxOpenConns:   c.Database.MaxOpenConns,
		ConnectTimeout: c.Database.ConnectTimeout,
	}
}

// Options converts the reconciliation settings.
func (c *Config) Options() []database.Option {
	return []database.Option{
		database.WithUpdate(c.Database.Update),
		database.WithFs(AppFs),
	}
}
