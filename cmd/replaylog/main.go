package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"replaylog/internal/format"
	"replaylog/internal/session"
	"replaylog/internal/store"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "replaylog",
	Short: "Browse recorded user-interaction sessions",
}

func init() {
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTimelineCmd())
	rootCmd.AddCommand(newInfoCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "replaylog: %v\n", err)
		os.Exit(1)
	}
}

const commandTimeout = 30 * time.Second

func newListCmd() *cobra.Command {
	var (
		userID     string
		dbPath     string
		formatFlag string
		noHeader   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			assembler, closeStore, err := openAssembler(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			rows, err := assembler.ListSessions(ctx, userID)
			if err != nil {
				return err
			}

			return format.WriteSessions(cmd.OutOrStdout(), rows, !noHeader, strings.ToLower(formatFlag))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&userID, "user", "", "user identifier owning the sessions")
	flags.StringVar(&dbPath, "db", defaultDBPath(), "path to the event store database")
	flags.StringVar(&formatFlag, "format", "table", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row")

	return cmd
}

func newTimelineCmd() *cobra.Command {
	var (
		userID       string
		dbPath       string
		formatFlag   string
		showEvents   bool
		wrap         int
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "timeline <session-id>",
		Short: "Rebuild and print a session's narrative and replay events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			if forceColor && forceNoColor {
				return fmt.Errorf("--color and --no-color cannot be used together")
			}

			assembler, closeStore, err := openAssembler(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			timeline, err := assembler.BuildTimeline(ctx, userID, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return format.WriteTimeline(out, timeline, format.TimelineOptions{
				Format:     formatFlag,
				ShowEvents: showEvents,
				UseColor:   format.ResolveColor(out, forceColor, forceNoColor),
				Wrap:       wrap,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&userID, "user", "", "user identifier owning the session")
	flags.StringVar(&dbPath, "db", defaultDBPath(), "path to the event store database")
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")
	flags.BoolVar(&showEvents, "events", false, "also print the collapsed event table")
	flags.IntVar(&wrap, "wrap", 0, "wrap narrative lines at the given column width")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

func newInfoCmd() *cobra.Command {
	var (
		userID string
		dbPath string
	)

	cmd := &cobra.Command{
		Use:   "info <session-id>",
		Short: "Print session pipeline statistics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			assembler, closeStore, err := openAssembler(dbPath)
			if err != nil {
				return err
			}
			defer closeStore()

			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			timeline, err := assembler.BuildTimeline(ctx, userID, args[0])
			if err != nil {
				return err
			}

			info := struct {
				SessionID       string              `json:"session_id"`
				CollapsedEvents int                 `json:"collapsed_events"`
				NarrativeLines  int                 `json:"narrative_lines"`
				Diagnostics     session.Diagnostics `json:"diagnostics"`
			}{
				SessionID:       timeline.SessionID,
				CollapsedEvents: len(timeline.Events),
				NarrativeLines:  len(timeline.Narrative),
				Diagnostics:     timeline.Diagnostics,
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&userID, "user", "", "user identifier owning the session")
	flags.StringVar(&dbPath, "db", defaultDBPath(), "path to the event store database")

	return cmd
}

func openAssembler(dbPath string) (*session.Assembler, func(), error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return session.NewAssembler(st, logger), func() { st.Close() }, nil
}

func defaultDBPath() string {
	if fromEnv := os.Getenv("REPLAYLOG_DB"); fromEnv != "" {
		return fromEnv
	}

	homeDirectory, err := os.UserHomeDir()
	if err != nil {
		return "events.db"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDirectory, "Library", "Application Support", "ReplayLog", "events.db")
	case "windows":
		return filepath.Join(homeDirectory, "AppData", "Roaming", "ReplayLog", "events.db")
	default: // linux and others
		return filepath.Join(homeDirectory, ".local", "share", "replaylog", "events.db")
	}
}
