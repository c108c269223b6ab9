package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lifeingest/internal/config"
	"lifeingest/internal/ingest"
	"lifeingest/internal/report"
	"lifeingest/internal/session"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var downloadDir string
	var reportPath string

	cmd := &cobra.Command{
		Use:   "ingest <archive.zip>...",
		Short: "Ingest Takeout archives and write calendar_events.json and emails.json",
		Long: `Stage each archive, extract it, and normalize every calendar (.ics) and
mailbox (.mbox) file it contains. Archives are processed in the order given.

A bad archive or file is skipped with a warning; the run only fails when the
output files cannot be written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				path, err := config.ExpandPath(strings.TrimSpace(arg))
				if err != nil {
					return fmt.Errorf("resolve archive path %q: %w", arg, err)
				}
				paths = append(paths, path)
			}

			pipeline := ingest.New(cfg, logger)
			result, err := pipeline.RunFiles(cmd.Context(), paths)
			if err != nil {
				if errors.Is(err, ingest.ErrSessionActive) {
					return fmt.Errorf("another ingestion is already running: %w", err)
				}
				return err
			}

			if dir := strings.TrimSpace(downloadDir); dir != "" {
				dir, err = config.ExpandPath(dir)
				if err != nil {
					return fmt.Errorf("resolve download dir: %w", err)
				}
				exported, err := pipeline.Writer().Export(dir, result.Blobs)
				if err != nil {
					return err
				}
				result.Paths = exported
			}

			if path := strings.TrimSpace(reportPath); path != "" {
				path, err = config.ExpandPath(path)
				if err != nil {
					return fmt.Errorf("resolve report path: %w", err)
				}
				if err := report.WriteFile(path, result.Detail); err != nil {
					return err
				}
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, result.Detail)
			}
			out := cmd.OutOrStdout()
			printIngestSummary(out, result, shouldColorize(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&downloadDir, "download-dir", "", "Also copy the output files into this directory")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write a run report (.json or .yaml) to this path")
	return cmd
}

func printIngestSummary(out io.Writer, result *ingest.Result, colorize bool) {
	for _, line := range renderSectionHeader("Archives", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, archive := range result.Session.Archives() {
		fmt.Fprintln(out, archiveStatusLine(archive, colorize))
		for _, file := range archive.Files {
			if !file.Failed() {
				continue
			}
			label := fmt.Sprintf("  %s %s", displayLabel(file.Category.String()), file.Path)
			fmt.Fprintln(out, renderStatusLine(label, statusWarn, file.Err.Error(), colorize))
		}
	}
	if len(result.Session.Archives()) == 0 {
		fmt.Fprintln(out, renderStatusLine("Archives", statusInfo, "none supplied", colorize))
	}

	fmt.Fprintln(out)
	for _, line := range renderSectionHeader("Outputs", colorize) {
		fmt.Fprintln(out, line)
	}
	totals := result.Totals
	fmt.Fprintln(out, renderStatusLine("Calendar events", statusOK, fmt.Sprintf("%d -> %s", totals.Events, result.Paths.Events), colorize))
	fmt.Fprintln(out, renderStatusLine("Email headers", statusOK, fmt.Sprintf("%d -> %s", totals.Emails, result.Paths.Emails), colorize))

	kind := statusOK
	if totals.FailedArchives > 0 || totals.FailedFiles > 0 {
		kind = statusWarn
	}
	summary := fmt.Sprintf("%d archives (%d skipped), %d files (%d failed) in %s",
		totals.Archives, totals.FailedArchives, totals.Files, totals.FailedFiles,
		result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	fmt.Fprintln(out, renderStatusLine("Run "+shortID(result.RunID), kind, summary, colorize))
}

func archiveStatusLine(archive session.ArchiveResult, colorize bool) string {
	if archive.Failed() {
		return renderStatusLine(archive.Name, statusError, "skipped: "+archive.Err.Error(), colorize)
	}
	message := fmt.Sprintf("%d events, %d emails from %d files", archive.Events, archive.Emails, len(archive.Files))
	kind := statusOK
	if failed := archive.FailedFiles(); failed > 0 {
		kind = statusWarn
		message += fmt.Sprintf(" (%d failed)", failed)
	}
	return renderStatusLine(archive.Name, kind, message, colorize)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
