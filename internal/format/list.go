// Package format renders session listings and timelines for terminal output.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"replaylog/internal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSessions writes session summary rows to w in the requested format.
func WriteSessions(w io.Writer, rows []session.SummaryRow, includeHeader bool, format string) error {
	format = strings.ToLower(format)
	switch format {
	case "", "table":
		return writeSessionsTable(w, rows, includeHeader)
	case "plain":
		return writeSessionsPlain(w, rows, includeHeader)
	case "json":
		return writeSessionsJSON(w, rows)
	case "jsonl":
		return writeSessionsJSONL(w, rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func writeSessionsPlain(w io.Writer, rows []session.SummaryRow, includeHeader bool) error {
	if includeHeader {
		if _, err := fmt.Fprintln(w, "session_id\ttask_name"); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", row.SessionID, escapeNewlines(row.TaskName)); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsJSON(w io.Writer, rows []session.SummaryRow) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeSessionsJSONL(w io.Writer, rows []session.SummaryRow) error {
	enc := json.NewEncoder(w)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

func writeSessionsTable(w io.Writer, rows []session.SummaryRow, includeHeader bool) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.Style().Options.SeparateRows = true

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignCenter},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignCenter, WidthMax: 80},
	})

	if includeHeader {
		tw.AppendHeader(table.Row{"Session ID", "Task"})
	}

	for _, row := range rows {
		tw.AppendRow(table.Row{row.SessionID, escapeNewlines(row.TaskName)})
	}

	if len(rows) == 0 {
		tw.AppendRow(table.Row{"(no sessions)", "-"})
	}

	_ = tw.Render()
	return nil
}

func escapeNewlines(text string) string {
	return strings.ReplaceAll(text, "\n", "\\n")
}
