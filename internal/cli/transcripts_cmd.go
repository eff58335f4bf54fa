// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// transcripts_cmd.go - Inspect and prune recorded server sessions.

package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/treeshell/internal/export"
	"github.com/jeranaias/treeshell/internal/session"
	"github.com/jeranaias/treeshell/internal/storage"
)

func (a *app) newTranscriptsCommand() *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "transcripts [session-id]",
		Short: "List recorded sessions or print one transcript",
		Long: `Without arguments, list every session recorded by "treeshell serve".
With a session ID, print the lines it ran and their output.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 0 {
				sessions, err := store.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOut {
					return NewJSONResponse("transcripts", sessions).Print(out)
				}
				printSessions(out, sessions, time.Now())
				return nil
			}

			entries, err := store.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return NewNotFoundError("transcript", args[0])
			}
			if jsonOut {
				return NewJSONResponse("transcripts", entries).Print(out)
			}
			printTranscript(out, entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "show only the last N lines (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, jsonFlagName, false, "output as JSON")
	cmd.AddCommand(a.newTranscriptsPruneCommand(), a.newTranscriptsExportCommand())
	return cmd
}

func (a *app) newTranscriptsPruneCommand() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:     "prune",
		Short:   "Delete transcript lines older than a duration",
		Example: `  treeshell transcripts prune --older-than 720h`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if olderThan <= 0 {
				return &ExitError{Code: ExitUsageError, Err: NewValidationError("older-than", olderThan.String(), "must be positive")}
			}
			store, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d line(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age of the lines to remove")
	return cmd
}

func (a *app) newTranscriptsExportCommand() *cobra.Command {
	var (
		format    string
		outputDir string
		theme     string
		minimal   bool
	)
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export one transcript as Markdown, HTML or JSON",
		Long: `Export one recorded transcript. Without --output the result is written to
stdout; with it a new file is created in that directory.`,
		Example: `  treeshell transcripts export sess_1234 --format html --output ./exports`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.Theme = theme
			opts.IncludeMetadata = !minimal
			opts.IncludeTimestamps = !minimal

			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return &ExitError{Code: ExitUsageError, Err: err}
			}

			store, err := a.openTranscripts()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.History(cmd.Context(), args[0], 0)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return NewNotFoundError("transcript", args[0])
			}
			t := &export.Transcript{SessionID: args[0], Entries: entries}

			if outputDir == "" {
				return export.Write(cmd.OutOrStdout(), t, exporter)
			}
			path, err := export.ExportToFile(t, exporter, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d line(s) to %s\n", len(entries), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory to write the file to (default: stdout)")
	cmd.Flags().StringVar(&theme, "theme", "dark", "HTML theme: dark or light")
	cmd.Flags().BoolVar(&minimal, "minimal", false, "omit metadata and timestamps")
	return cmd
}

func (a *app) openTranscripts() (*storage.TranscriptStore, error) {
	if a.cfg.Server.TranscriptDB == "" {
		return nil, &configError{err: fmt.Errorf("server.transcript_db is not set")}
	}
	store, err := storage.Open(a.cfg.Server.TranscriptDB)
	if err != nil {
		return nil, WrapError(err, "failed to open transcripts")
	}
	return store, nil
}

func printSessions(w io.Writer, sessions []storage.SessionSummary, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, RenderConditional(DimStyle, "No transcripts recorded."))
		return
	}
	fmt.Fprintln(w, RenderConditional(TitleStyle, "Recorded sessions"))
	fmt.Fprintln(w, RenderSeparator(GetTerminalWidth()))
	for _, s := range sessions {
		ago := session.FormatDuration(now.Sub(s.LastAt))
		fmt.Fprintf(w, "%s  %d line(s), last active %s ago\n", RenderConditional(SectionStyle, s.SessionID), s.Lines, ago)
	}
}

func printTranscript(w io.Writer, entries []storage.Entry) {
	for _, e := range entries {
		line := fmt.Sprintf("[%d] %s $ %s", e.Seq, e.Cwd, e.Line)
		style := PromptStyle
		if e.Failed {
			style = ErrorStyle
		}
		fmt.Fprintln(w, RenderConditional(style, line))
		for _, out := range e.Output {
			fmt.Fprintln(w, "  "+out)
		}
	}
}
