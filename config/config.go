// Package config loads Sunwell's layered runtime settings: flags override
// environment variables, which override .sunwell/config.yaml, which
// overrides the built-in defaults.
//
// Settings resolve through spf13/viper and gopkg.in/yaml.v3 in layers:
// built-in defaults, then config.yaml, then environment overrides.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sunwell-ai/core/workspace"
)

// TrustLevel gates how aggressively the Guardrail System may
// auto-approve actions without escalation.
type TrustLevel string

const (
	TrustConservative TrustLevel = "conservative"
	TrustGuarded      TrustLevel = "guarded"
	TrustSupervised   TrustLevel = "supervised"
	TrustFull         TrustLevel = "full"
)

// Config is the resolved settings a run is constructed from.
type Config struct {
	Workspace string        `mapstructure:"workspace"`
	Trust     TrustLevel    `mapstructure:"trust"`
	Converge  bool          `mapstructure:"converge"`
	Gates     []string      `mapstructure:"converge_gates"`
	MaxIter   int           `mapstructure:"converge_max"`
	Timeout   time.Duration `mapstructure:"timeout"`
	JSON      bool          `mapstructure:"json"`

	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
	AnthropicModel  string `mapstructure:"anthropic_model"`
	OpenAIAPIKey    string `mapstructure:"openai_api_key"`
	OpenAIModel     string `mapstructure:"openai_model"`
	// ModelTPM is the initial tokens-per-minute budget for the adaptive
	// rate limiter in front of the provider adapter.
	ModelTPM float64 `mapstructure:"model_tpm"`

	RedisAddr string `mapstructure:"redis_addr"`
}

// Defaults supplies the hard defaults for the fields a fresh workspace
// has no config.yaml to override yet.
func Defaults() Config {
	return Config{
		Trust:    TrustGuarded,
		Converge: true,
		Gates:    []string{"syntax", "lint", "type", "test"},
		MaxIter:  5,
		Timeout:  30 * time.Minute,
		ModelTPM: 60000,
	}
}

// Load resolves layered configuration for a workspace: defaults, then
// .sunwell/config.yaml if present, then SUNWELL_*-prefixed environment
// variables. Flag overrides are applied by the caller (cmd/sunwell) after
// Load returns, via viper.BindPFlag.
func Load(workspaceRoot string) (Config, *viper.Viper, error) {
	v := viper.New()
	d := Defaults()
	v.SetDefault("workspace", workspaceRoot)
	v.SetDefault("trust", string(d.Trust))
	v.SetDefault("converge", d.Converge)
	v.SetDefault("converge_gates", d.Gates)
	v.SetDefault("converge_max", d.MaxIter)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("model_tpm", d.ModelTPM)

	v.SetConfigFile(workspace.ConfigPath(workspaceRoot))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, nil, fmt.Errorf("config: read %s: %w", workspace.ConfigPath(workspaceRoot), err)
		}
	}

	v.SetEnvPrefix("SUNWELL")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Workspace == "" {
		cfg.Workspace = workspaceRoot
	}
	return cfg, v, nil
}

// Save persists cfg to .sunwell/config.yaml, creating the workspace
// layout first if needed.
func Save(workspaceRoot string, cfg Config) error {
	if err := workspace.Ensure(workspaceRoot); err != nil {
		return err
	}
	v := viper.New()
	v.Set("workspace", cfg.Workspace)
	v.Set("trust", string(cfg.Trust))
	v.Set("converge", cfg.Converge)
	v.Set("converge_gates", cfg.Gates)
	v.Set("converge_max", cfg.MaxIter)
	v.Set("timeout", cfg.Timeout)
	v.SetConfigFile(workspace.ConfigPath(workspaceRoot))
	v.SetConfigType("yaml")
	return v.WriteConfigAs(workspace.ConfigPath(workspaceRoot))
}
