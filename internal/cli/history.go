package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent searches",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of searches to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	searches, err := db.RecentSearches(historyLimit)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(searches) == 0 {
		fmt.Fprintln(out, "No searches yet.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMODE\tSOURCE\tRESULTS\tQUERY")
	for _, s := range searches {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			humanize.Time(time.UnixMilli(s.CreatedAt)), s.Mode, s.Source, s.ResultCount, s.Query)
	}
	return tw.Flush()
}
