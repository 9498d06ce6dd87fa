package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var pruneDays int

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop cached snapshots older than the retention period",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "days", 0, "retention in days (default from config)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	retention := cfg.Retention()
	if pruneDays > 0 {
		retention = time.Duration(pruneDays) * 24 * time.Hour
	}
	if retention <= 0 {
		return fmt.Errorf("retention is disabled; pass --days")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	removed, err := newEngine(cfg, db).Prune(retention)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s snapshots cached before %s\n",
		humanize.Comma(removed), humanize.Time(time.Now().Add(-retention)))
	return nil
}
