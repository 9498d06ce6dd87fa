package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/timescope/internal/memoir"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load snapshots from a JSON or YAML file into the cache",
	Long: "Import reads snapshots exported from memoir (a list, or an object with a " +
		"\"snapshots\" key) and caches them for offline search. Use - to read stdin as JSON.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	snaps, err := decodeSnapshots(data, isYAML(args[0]))
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := newEngine(cfg, db).Import(context.Background(), snaps)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %s snapshots (%s skipped)\n",
		humanize.Comma(int64(n)), humanize.Comma(int64(len(snaps)-n)))
	return nil
}

func isYAML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// snapshotFile is the object form of an export.
type snapshotFile struct {
	Snapshots []memoir.Snapshot `json:"snapshots" yaml:"snapshots"`
}

// decodeSnapshots accepts either a bare list or an object with a snapshots key.
func decodeSnapshots(data []byte, asYAML bool) ([]memoir.Snapshot, error) {
	unmarshal := json.Unmarshal
	if asYAML {
		unmarshal = yaml.Unmarshal
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty file")
	}

	var list []memoir.Snapshot
	if err := unmarshal(trimmed, &list); err == nil {
		return list, nil
	}
	var file snapshotFile
	if err := unmarshal(trimmed, &file); err != nil {
		return nil, err
	}
	if file.Snapshots == nil {
		return nil, fmt.Errorf("no snapshots found")
	}
	return file.Snapshots, nil
}
