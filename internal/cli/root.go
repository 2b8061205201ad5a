// Package cli implements the eliza CLI commands.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rcliao/eliza/internal/config"
	"github.com/rcliao/eliza/internal/engine"
	"github.com/rcliao/eliza/internal/model"
	"github.com/rcliao/eliza/internal/nlp"
	"github.com/rcliao/eliza/internal/script"
	"github.com/rcliao/eliza/internal/store"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile    string
	formatFlag string

	v      = viper.New()
	cfg    *config.Config
	logger = zap.NewNop()
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:     "eliza",
	Short:   "A script-driven conversation engine",
	Long:    "Keyword scripts in, therapist replies out. Ships with the classic doctor script.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(v, cfgFile); err != nil {
			return err
		}
		c, err := config.Load(v)
		if err != nil {
			return err
		}
		cfg = c
		logger, err = newLogger(cfg.Verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	pf := RootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: $HOME/.eliza.yaml)")
	pf.StringP("script", "s", "", "Script file, text or YAML (default: built-in doctor script)")
	pf.StringP("db", "d", "", "Database path (default: $ELIZA_DB or ~/.eliza/memory.db)")
	pf.Bool("verbose", false, "Log matching decisions to stderr")
	pf.StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")

	v.BindPFlag("script", pf.Lookup("script"))
	v.BindPFlag("db", pf.Lookup("db"))
	v.BindPFlag("verbose", pf.Lookup("verbose"))
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func loadRules() (*model.Rules, error) {
	if cfg.Script == "" {
		return script.Default()
	}
	return script.Load(cfg.Script)
}

// engineOptions builds engine options from config, wiring the configured
// NLP provider and crisis flow.
func engineOptions() (engine.Options, error) {
	opts, err := cfg.Options()
	if err != nil {
		return opts, err
	}
	analyzer, err := nlp.New(cfg.NLP.Provider, cfg.NLP.URL, cfg.NLP.Timeout)
	if err != nil {
		return opts, err
	}
	if analyzer != nil {
		opts.Sentiment = analyzer
		opts.Phrases = analyzer
	}
	if cfg.Crisis.Enabled {
		var det nlp.Detector = nlp.NewLexicon()
		if analyzer != nil {
			det = analyzer
		}
		opts.Crisis = &nlp.ReferralFlow{Detector: det, Message: cfg.Crisis.Message}
	}
	return opts, nil
}

func newEngine() (*engine.Engine, error) {
	rules, err := loadRules()
	if err != nil {
		return nil, err
	}
	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}
	return engine.New(rules, opts, logger)
}

func openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB)
}

// loadState returns the saved state for ns, or nil for a new session.
func loadState(cmd *cobra.Command, s *store.SQLiteStore, ns string) *model.SessionState {
	st, err := s.LoadState(cmd.Context(), ns)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		exitErr("load session", err)
	}
	return st
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
