// Package config loads runtime settings from an optional config file and
// IVOL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/contactkeval/implied-vol/internal/ivol"
)

// EnvPrefix prefixes every environment override, e.g. IVOL_SOLVER_TOLERANCE.
const EnvPrefix = "IVOL"

// Config is the full application configuration.
type Config struct {
	Solver ivol.Config `mapstructure:"solver"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`
	Quotes QuoteConfig  `mapstructure:"quotes"`
	Report ReportConfig `mapstructure:"report"`
}

type LogConfig struct {
	Verbosity int `mapstructure:"verbosity"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// QuoteConfig selects and configures the market quote provider.
// Provider is one of "synthetic", "csv" or "massive". Fallback names an
// optional secondary provider consulted when the primary has no quote.
type QuoteConfig struct {
	Provider string  `mapstructure:"provider"`
	Fallback string  `mapstructure:"fallback"`
	Dir      string  `mapstructure:"dir"`
	APIKey   string  `mapstructure:"api_key"`
	Spot     float64 `mapstructure:"spot"`
	Vol      float64 `mapstructure:"vol"`
	Rate     float64 `mapstructure:"rate"`
}

type ReportConfig struct {
	Dir string `mapstructure:"dir"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	def := ivol.DefaultConfig()
	v.SetDefault("solver.lower_bound", def.LowerBound)
	v.SetDefault("solver.upper_bound", def.UpperBound)
	v.SetDefault("solver.tolerance", def.Tolerance)
	v.SetDefault("solver.max_iterations", def.MaxIterations)
	v.SetDefault("log.verbosity", 1)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("quotes.provider", "synthetic")
	v.SetDefault("quotes.fallback", "")
	v.SetDefault("quotes.dir", "data")
	v.SetDefault("quotes.api_key", "")
	v.SetDefault("quotes.spot", 100.0)
	v.SetDefault("quotes.vol", 0.2)
	v.SetDefault("quotes.rate", 0.05)
	v.SetDefault("report.dir", "reports")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail later at first use.
func (c *Config) Validate() error {
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	for _, name := range []string{c.Quotes.Provider, c.Quotes.Fallback} {
		switch name {
		case "", "synthetic", "csv", "massive":
		default:
			return fmt.Errorf("quotes: unknown provider %q", name)
		}
	}
	if c.Quotes.Provider == "" {
		return errors.New("quotes: provider is required")
	}
	return c.Quotes.CheckFallback()
}

// CheckFallback rejects a fallback that would never be consulted. The
// synthetic provider quotes every contract, and a provider cannot back
// itself up.
func (q QuoteConfig) CheckFallback() error {
	switch {
	case q.Fallback == "":
		return nil
	case q.Provider == "synthetic":
		return fmt.Errorf("quotes: fallback %q is never used with the synthetic provider", q.Fallback)
	case q.Fallback == q.Provider:
		return fmt.Errorf("quotes: provider %q cannot be its own fallback", q.Provider)
	}
	return nil
}
