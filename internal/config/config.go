// Package config loads settings from an optional YAML file, ELIZA_*
// environment variables and command flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/nlp"
)

// EnvPrefix prefixes every environment override, e.g. ELIZA_ENGINE_SEED.
const EnvPrefix = "ELIZA"

// Config is the resolved configuration.
type Config struct {
	Script  string       `mapstructure:"script"`
	DB      string       `mapstructure:"db"`
	Verbose bool         `mapstructure:"verbose"`
	Engine  EngineConfig `mapstructure:"engine"`
	NLP     NLPConfig    `mapstructure:"nlp"`
	Crisis  CrisisConfig `mapstructure:"crisis"`
	Server  ServerConfig `mapstructure:"server"`
}

type EngineConfig struct {
	SaveMode          string   `mapstructure:"save_mode"`
	MemoryPhrase      string   `mapstructure:"memory_phrase"`
	Seed              int64    `mapstructure:"seed"`
	RecallPrompts     []string `mapstructure:"recall_prompts"`
	Affirmatives      []string `mapstructure:"affirmatives"`
	NegativeThreshold float64  `mapstructure:"negative_threshold"`
	EmpathyPrefix     string   `mapstructure:"empathy_prefix"`
	SeedPrompt        string   `mapstructure:"seed_prompt"`
}

type NLPConfig struct {
	Provider string        `mapstructure:"provider"`
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CrisisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Message string `mapstructure:"message"`
}

type ServerConfig struct {
	Addr  string `mapstructure:"addr"`
	Watch bool   `mapstructure:"watch"`
}

// DefaultDBPath returns ~/.eliza/memory.db, or ./eliza.db without a home
// directory.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "eliza.db"
	}
	return filepath.Join(home, ".eliza", "memory.db")
}

// SetDefaults registers every key with its default so env overrides work
// without a config file.
func SetDefaults(v *viper.Viper) {
	d := engine.DefaultOptions()
	v.SetDefault("script", "")
	v.SetDefault("db", DefaultDBPath())
	v.SetDefault("verbose", false)
	v.SetDefault("engine.save_mode", "continue")
	v.SetDefault("engine.memory_phrase", "input")
	v.SetDefault("engine.seed", 0)
	v.SetDefault("engine.recall_prompts", d.RecallPrompts)
	v.SetDefault("engine.affirmatives", d.Affirmatives)
	v.SetDefault("engine.negative_threshold", d.NegativeThreshold)
	v.SetDefault("engine.empathy_prefix", d.EmpathyPrefix)
	v.SetDefault("engine.seed_prompt", d.SeedPrompt)
	v.SetDefault("nlp.provider", "")
	v.SetDefault("nlp.url", "")
	v.SetDefault("nlp.timeout", 10*time.Second)
	v.SetDefault("crisis.enabled", false)
	v.SetDefault("crisis.message", nlp.DefaultReferral)
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.watch", false)
}

// Init points v at cfgFile, or at $HOME/.eliza.yaml when empty, and reads
// it if present. A missing default file is not an error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		v.AddConfigPath(home)
		v.SetConfigType("yaml")
		v.SetConfigName(".eliza")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &c, nil
}

// Options builds engine options from the engine section, without the NLP
// capabilities.
func (c *Config) Options() (engine.Options, error) {
	opts := engine.DefaultOptions()
	var err error
	if opts.SaveMode, err = engine.ParseSaveMode(c.Engine.SaveMode); err != nil {
		return opts, err
	}
	if opts.Phrase, err = engine.ParsePhraseSource(c.Engine.MemoryPhrase); err != nil {
		return opts, err
	}
	opts.Seed = c.Engine.Seed
	if len(c.Engine.RecallPrompts) > 0 {
		for _, p := range c.Engine.RecallPrompts {
			if err := engine.CheckPrompt(p); err != nil {
				return opts, fmt.Errorf("engine.recall_prompts: %w", err)
			}
		}
		opts.RecallPrompts = c.Engine.RecallPrompts
	}
	if len(c.Engine.Affirmatives) > 0 {
		opts.Affirmatives = c.Engine.Affirmatives
	}
	opts.NegativeThreshold = c.Engine.NegativeThreshold
	opts.EmpathyPrefix = c.Engine.EmpathyPrefix
	if c.Engine.SeedPrompt != "" {
		if err := engine.CheckPrompt(c.Engine.SeedPrompt); err != nil {
			return opts, fmt.Errorf("engine.seed_prompt: %w", err)
		}
	}
	opts.SeedPrompt = c.Engine.SeedPrompt
	return opts, nil
}
