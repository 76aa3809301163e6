package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SergeyParamoshkin/issueblog/internal/snapshotdb"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the snapshot store",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, path, err := openSnapshotDB()
		if err != nil {
			return err
		}
		defer db.Close()

		count, size, err := db.Stats(cmd.Context(), path)
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}
		keys, err := db.Keys(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing snapshots: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Store: %s\n", path)
		fmt.Fprintf(out, "Snapshots: %d\n", count)
		fmt.Fprintf(out, "Size: %s\n", formatBytes(size))
		names := make([]string, 0, len(keys))
		for key := range keys {
			names = append(names, key)
		}
		sort.Strings(names)
		for _, key := range names {
			fmt.Fprintf(out, "  %s\n", key)
		}

		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := openSnapshotDB()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clearing snapshots: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot store cleared.")

		return nil
	},
}

func openSnapshotDB() (*snapshotdb.DB, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	if cfg.Cache.Path == "" {
		return nil, "", fmt.Errorf("cache.path is not set; snapshots are kept in memory only")
	}

	db, err := snapshotdb.Open(cfg.Cache.Path)
	if err != nil {
		return nil, "", fmt.Errorf("opening snapshot store: %w", err)
	}

	return db, cfg.Cache.Path, nil
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
