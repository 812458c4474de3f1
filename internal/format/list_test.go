package format

import (
	"bytes"
	"strings"
	"testing"

	"replaylog/internal/session"
)

func sampleRows() []session.SummaryRow {
	return []session.SummaryRow{
		{SessionID: "sess-a", TaskName: "find a dataset"},
		{SessionID: "sess-b", TaskName: "book a flight"},
	}
}

func TestWriteSessionsPlain(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteSessions(&buf, sampleRows(), true, "plain"); err != nil {
		t.Fatalf("WriteSessions plain returned error: %v", err)
	}

	expected := strings.Join([]string{
		"session_id\ttask_name",
		"sess-a\tfind a dataset",
		"sess-b\tbook a flight",
	}, "\n") + "\n"

	if got := buf.String(); got != expected {
		t.Fatalf("plain output mismatch:\nexpected: %q\nactual:   %q", expected, got)
	}
}

func TestWriteSessionsTable(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteSessions(&buf, sampleRows(), true, "table"); err != nil {
		t.Fatalf("WriteSessions table returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "SESSION ID") || !strings.Contains(out, "TASK") {
		t.Fatalf("table header missing expected columns:\n%s", out)
	}
	if !strings.Contains(out, "sess-a") || !strings.Contains(out, "find a dataset") {
		t.Fatalf("table rows missing expected values:\n%s", out)
	}
}

func TestWriteSessionsEmptyTable(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteSessions(&buf, nil, true, "table"); err != nil {
		t.Fatalf("WriteSessions returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "(no sessions)") {
		t.Fatalf("empty listing placeholder missing:\n%s", buf.String())
	}
}

func TestWriteSessionsJSONL(t *testing.T) {
	var buf bytes.Buffer

	if err := WriteSessions(&buf, sampleRows(), false, "jsonl"); err != nil {
		t.Fatalf("WriteSessions jsonl returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"session_id":"sess-a"`) || !strings.Contains(lines[0], `"task_name":"find a dataset"`) {
		t.Fatalf("first jsonl line unexpected: %s", lines[0])
	}
}

func TestWriteSessionsInvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSessions(&buf, sampleRows(), true, "xml"); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
