package app

import (
	"os"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds the runtime configuration, loadable from environment
// variables (DISCOUNTS_ prefix) or YAML config files. Command line flags are
// owned by each command.
type Config struct {
	Storage     string   `default:"memory" usage:"Rule store and catalog backend: memory or postgres"`
	DatabaseURL string   `usage:"PostgreSQL connection URL (DISCOUNTS_DATABASE_URL or DATABASE_URL)"`
	Migrate     bool     `default:"true" usage:"Apply the schema before using postgres storage"`
	RulePacks   []string `usage:"Rule pack files or directories applied on startup"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "DISCOUNTS",
		Files:     []string{"config.yaml", "/etc/discounts/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the backend selection.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("database URL is required for postgres storage: set DISCOUNTS_DATABASE_URL or DATABASE_URL")
		}
	default:
		return errors.Errorf("unknown storage %q", c.Storage)
	}
	return nil
}

// applyPlatformDefaults maps the platform-provided DATABASE_URL to the
// DISCOUNTS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
}
