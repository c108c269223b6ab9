package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"lifeingest/internal/history"
	"lifeingest/internal/report"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded ingestion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprint(out, renderTable(runsTable(runs)))
				return nil
			})
		},
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")

	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsPruneCommand(ctx))
	return runsCmd
}

func runsTable(runs []history.Run) tableLayout {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			displayLabel(string(run.Status)),
			fmt.Sprintf("%d/%d", run.Archives-run.FailedArchives, run.Archives),
			fmt.Sprintf("%d/%d", run.Files-run.FailedFiles, run.Files),
			strconv.Itoa(run.Events),
			strconv.Itoa(run.Emails),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	return tableLayout{
		Headers: []string{"Run", "Started", "Status", "Archives", "Files", "Events", "Emails", "Took"},
		Aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
		Rows:    rows,
	}
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its archives and files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := report.FormatYAML
			if ctx.JSONMode() {
				format = report.FormatJSON
			}
			if formatFlag != "" {
				parsed, err := report.ParseFormat(formatFlag)
				if err != nil {
					return err
				}
				format = parsed
			}
			return ctx.withHistory(func(store *history.Store) error {
				detail, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report.Encode(cmd.OutOrStdout(), format, *detail)
			})
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Output format: yaml or json")
	return cmd
}

func newRunsPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete recorded runs older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := parseAge(olderThan)
			if err != nil {
				return err
			}
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.PruneBefore(cmd.Context(), time.Now().Add(-age))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"removed": removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d runs older than %s\n", removed, formatDuration(age))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "720h", "Minimum age of runs to delete (e.g. 72h, 30d)")
	return cmd
}
