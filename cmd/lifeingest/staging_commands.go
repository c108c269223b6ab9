package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"lifeingest/internal/history"
	"lifeingest/internal/staging"
)

func newStagingCommand(ctx *commandContext) *cobra.Command {
	stagingCmd := &cobra.Command{
		Use:   "staging",
		Short: "Manage uploaded archives and extraction directories",
	}

	stagingCmd.AddCommand(newStagingListCommand(ctx))
	stagingCmd.AddCommand(newStagingPruneCommand(ctx))

	return stagingCmd
}

func newStagingListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List extraction directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			dirs, err := staging.ListDirectories(cfg.Paths.ExtractDir)
			if err != nil {
				return fmt.Errorf("list extraction directories: %w", err)
			}
			names := archiveNames(cmd, ctx)

			var totalSize int64
			for _, dir := range dirs {
				totalSize += dir.Size
			}

			if ctx.JSONMode() {
				type entry struct {
					staging.DirInfo
					Archive string `json:"archive,omitempty"`
				}
				entries := make([]entry, 0, len(dirs))
				for _, dir := range dirs {
					entries = append(entries, entry{DirInfo: dir, Archive: names[dir.Name]})
				}
				return writeJSON(cmd, map[string]any{
					"extract_dir":      cfg.Paths.ExtractDir,
					"directories":      entries,
					"total_size_bytes": totalSize,
				})
			}

			out := cmd.OutOrStdout()
			if len(dirs) == 0 {
				fmt.Fprintln(out, "No extraction directories found")
				return nil
			}

			fmt.Fprintf(out, "Extraction root: %s\n\n", cfg.Paths.ExtractDir)
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				archive := names[dir.Name]
				if archive == "" {
					archive = "-"
				}
				rows = append(rows, []string{
					shortID(dir.Name),
					archive,
					formatDuration(time.Since(dir.ModTime).Truncate(time.Minute)),
					strconv.Itoa(dir.Files),
					humanize.IBytes(uint64(max(dir.Size, 0))),
				})
			}
			fmt.Fprint(out, renderTable(tableLayout{
				Headers: []string{"Key", "Archive", "Age", "Files", "Size"},
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
				Rows:    rows,
				Footer:  []string{"", fmt.Sprintf("%d directories", len(dirs)), "", "", humanize.IBytes(uint64(max(totalSize, 0)))},
			}))
			return nil
		},
	}
}

// archiveNames maps isolation keys back to declared archive names when run
// history is available. Missing history is not an error for listing.
func archiveNames(cmd *cobra.Command, ctx *commandContext) map[string]string {
	names := map[string]string{}
	cfg, err := ctx.ensureConfig()
	if err != nil || !cfg.History.Enabled {
		return names
	}
	_ = ctx.withHistory(func(store *history.Store) error {
		found, err := store.ArchiveNames(cmd.Context())
		if err == nil {
			names = found
		}
		return err
	})
	return names
}

func newStagingPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string
	var orphans bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old uploads and extraction directories",
		Long: `Remove uploaded archives and extraction directories older than --older-than.
Extracted files are kept after ingestion until pruned. The default age comes
from staging.retention_hours.

With --orphans, extraction directories without a matching upload are removed
regardless of age.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			age := cfg.StagingRetention()
			if strings.TrimSpace(olderThan) != "" {
				if age, err = parseAge(olderThan); err != nil {
					return err
				}
			}

			result := staging.CleanStale(cmd.Context(), cfg.Paths.ExtractDir, age, logger)
			result.Merge(staging.CleanStaleUploads(cmd.Context(), cfg.Paths.UploadDir, age, logger))
			if orphans {
				result.Merge(staging.CleanOrphaned(cmd.Context(), cfg.Paths.ExtractDir, cfg.Paths.UploadDir, logger))
			}

			if ctx.JSONMode() {
				return writeStagingPruneJSON(cmd, result)
			}
			printStagingPruneResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "", "Minimum age to remove (e.g. 48h, 14d); defaults to staging.retention_hours")
	cmd.Flags().BoolVar(&orphans, "orphans", false, "Also remove extraction directories whose upload is gone")
	return cmd
}

func printStagingPruneResult(cmd *cobra.Command, result staging.CleanStaleResult) {
	out := cmd.OutOrStdout()
	if len(result.Removed) == 0 && len(result.Errors) == 0 {
		fmt.Fprintln(out, "Nothing to prune")
		return
	}
	fmt.Fprintf(out, "Removed %d entries", len(result.Removed))
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, ", %d errors", len(result.Errors))
	}
	fmt.Fprintln(out)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  Error: %s: %v\n", e.Path, e.Error)
	}
}

func writeStagingPruneJSON(cmd *cobra.Command, result staging.CleanStaleResult) error {
	errs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, fmt.Sprintf("%s: %v", e.Path, e.Error))
	}
	removed := result.Removed
	if removed == nil {
		removed = []string{}
	}
	return writeJSON(cmd, map[string]any{
		"removed": removed,
		"errors":  errs,
	})
}

// parseAge accepts Go durations plus a whole-day "d" suffix.
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", value)
	}
	return d, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	return fmt.Sprintf("%dd", days)
}
