package format

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"replaylog/internal/event"
	"replaylog/internal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

const (
	ansiNarrative = "\x1b[36m"
	ansiReset     = "\x1b[0m"
)

// TimelineOptions controls timeline rendering.
type TimelineOptions struct {
	Format     string // text or json
	ShowEvents bool   // append the collapsed event table after the narrative
	UseColor   bool
	Wrap       int // wrap narrative lines at this column, 0 for terminal width
}

// WriteTimeline writes a built timeline to w.
func WriteTimeline(w io.Writer, tl *session.Timeline, opts TimelineOptions) error {
	switch strings.ToLower(opts.Format) {
	case "", "text":
		return writeTimelineText(w, tl, opts)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(tl)
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

func writeTimelineText(w io.Writer, tl *session.Timeline, opts TimelineOptions) error {
	width := opts.Wrap
	if width == 0 {
		if f, ok := w.(*os.File); ok {
			width = TerminalWidth(f, 0)
		}
	}

	if len(tl.Narrative) == 0 {
		if _, err := fmt.Fprintln(w, "(no narrated interactions)"); err != nil {
			return err
		}
	}
	for i, line := range tl.Narrative {
		body := wrapLine(line, width)
		if opts.UseColor {
			body = ansiNarrative + body + ansiReset
		}
		if _, err := fmt.Fprintf(w, "%3d. %s\n", i+1, body); err != nil {
			return err
		}
	}

	if opts.ShowEvents {
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
		writeEventTable(w, tl.Events)
	}
	return nil
}

func writeEventTable(w io.Writer, events []event.Event) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Time", "Type", "Tag", "Text", "Offset", "Doc"})

	for _, ev := range events {
		eventType := string(ev.Type)
		if ev.Type == event.TypeUnknown && ev.RawType != "" {
			eventType = fmt.Sprintf("unknown(%s)", ev.RawType)
		}
		tw.AppendRow(table.Row{
			time.UnixMilli(ev.Timestamp).UTC().Format(time.RFC3339),
			eventType,
			ev.TagName,
			escapeNewlines(ev.TextContent),
			fmt.Sprintf("%d,%d", ev.X, ev.Y),
			ev.DocID,
		})
	}

	if len(events) == 0 {
		tw.AppendRow(table.Row{"-", "(no events)", "-", "-", "-", "-"})
	}

	_ = tw.Render()
}

// ResolveColor decides whether ANSI colors should be emitted, honoring
// explicit force/disable flags before terminal detection.
func ResolveColor(out io.Writer, force, disable bool) bool {
	if disable {
		return false
	}
	if force {
		return true
	}
	if f, ok := out.(*os.File); ok {
		return isatty.IsTerminal(f.Fd())
	}
	return false
}

// TerminalWidth returns the terminal width for f, or fallback when f is not
// a terminal.
func TerminalWidth(f *os.File, fallback int) int {
	if f == nil || !isatty.IsTerminal(f.Fd()) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}

func wrapLine(text string, width int) string {
	if width <= 0 || len(text) <= width {
		return text
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)

	return strings.Join(lines, "\n     ")
}
