package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lazypower/timescope/internal/config"
	"github.com/lazypower/timescope/internal/engine"
	"github.com/lazypower/timescope/internal/memoir"
	"github.com/lazypower/timescope/internal/store"
)

var (
	configPath string
	dbPath     string
	memoirURL  string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "timescope",
	Short: "Zoomable timeline over your memoir snapshots",
	Long: "Timescope lays memoir search results out on a zoomable, pannable timeline. " +
		"Answers are cached locally so the timeline keeps working when memoir is down.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $XDG_CONFIG_HOME/timescope/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "cache database path (default ~/.timescope/timescope.db)")
	rootCmd.PersistentFlags().StringVar(&memoirURL, "memoir-url", "", "memoir API base URL")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "answer from the local cache only")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads the config file, then applies command-line overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if memoirURL != "" {
		cfg.Memoir.URL = memoirURL
	}
	if offline {
		cfg.Memoir.Offline = true
	}
	return cfg, nil
}

// openDB opens the cache database named by the config.
func openDB(cfg config.Config) (*store.DB, error) {
	path := cfg.Database.Path
	if path == "" {
		var err error
		path, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	db, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newEngine wires the memoir client into an engine unless running offline.
func newEngine(cfg config.Config, db *store.DB) *engine.Engine {
	if cfg.Memoir.Offline {
		return engine.New(db, nil)
	}
	return engine.New(db, memoir.NewClient(cfg.Memoir.URL))
}
