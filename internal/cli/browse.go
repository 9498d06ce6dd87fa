package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lazypower/timescope/internal/logging"
	"github.com/lazypower/timescope/internal/tui"
)

var browseFlags queryFlags

var browseCmd = &cobra.Command{
	Use:   "browse [query]",
	Short: "Explore a search interactively in the terminal",
	Long: "Browse opens a full-screen timeline. Scroll to zoom around the cursor, drag to pan, " +
		"hover a marker for its summary. Keys 1-6 pick the starting window and f toggles full history.",
	RunE: runBrowse,
}

func init() {
	browseFlags.register(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("browse needs a terminal; use `timescope search` for scripted output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns stdout, so log lines go to the configured file or nowhere.
	cleanup, err := logging.Setup(cfg.Log.File)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer cleanup()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	l, err := browseFlags.load(ctx, cfg, newEngine(cfg, db), args)
	cancel()
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}

	return tui.Run(tui.New(l.tl, l.query, l.result.Source, l.history))
}
