package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"replaylog/internal/event"
	"replaylog/internal/session"
	"replaylog/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assembler := session.NewAssembler(st, logger)
	return NewServer(st, assembler, "127.0.0.1:0", logger), st
}

func postBatch(t *testing.T, handler http.Handler, batch Batch) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("marshal batch: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func sessionBatch() Batch {
	return Batch{
		UserID: "user-1",
		Events: []event.RawRecord{
			{SessionID: "sess-1", Timestamp: 1, EventType: "open", EventSource: "1000x800", InteractionContext: "find a dataset"},
			{SessionID: "sess-1", Timestamp: 2, EventType: "scroll", EventSource: "1000x800"},
			{SessionID: "sess-1", Timestamp: 3, EventType: "scroll", EventSource: "1000x800"},
			{SessionID: "sess-1", Timestamp: 4, EventType: "click", TextContent: "Login", EventSource: "1000x800", OffsetX: 100, OffsetY: 100},
		},
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", w.Code, w.Body.String())
	}
}

func TestIngestAndTimeline(t *testing.T) {
	srv, _ := testServer(t)
	handler := srv.Handler()

	if w := postBatch(t, handler, sessionBatch()); w.Code != http.StatusNoContent {
		t.Fatalf("ingest failed: %d %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/timeline?user=user-1&session=sess-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("timeline failed: %d %s", w.Code, w.Body.String())
	}

	var timeline session.Timeline
	if err := json.Unmarshal(w.Body.Bytes(), &timeline); err != nil {
		t.Fatalf("decode timeline: %v", err)
	}
	if len(timeline.Events) != 3 {
		t.Fatalf("expected 3 collapsed events, got %d", len(timeline.Events))
	}
	want := []string{"Click on Login at the top left of the page"}
	if len(timeline.Narrative) != 1 || timeline.Narrative[0] != want[0] {
		t.Fatalf("unexpected narrative: %v", timeline.Narrative)
	}
}

func TestListSessionsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	handler := srv.Handler()

	if w := postBatch(t, handler, sessionBatch()); w.Code != http.StatusNoContent {
		t.Fatalf("ingest failed: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/sessions?user=user-1", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("sessions failed: %d %s", w.Code, w.Body.String())
	}

	var rows []session.SummaryRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode rows: %v", err)
	}
	if len(rows) != 1 || rows[0].SessionID != "sess-1" || rows[0].TaskName != "find a dataset" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestListSessionsUnknownUserIsEmpty(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/sessions?user=nobody", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unknown user must not fail: %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", w.Body.String())
	}
}

func TestIngestRejectsBadRequests(t *testing.T) {
	srv, _ := testServer(t)
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad JSON must 400, got %d", w.Code)
	}

	if w := postBatch(t, handler, Batch{Events: sessionBatch().Events}); w.Code != http.StatusBadRequest {
		t.Fatalf("missing user_id must 400, got %d", w.Code)
	}

	bad := sessionBatch()
	bad.Events[0].SessionID = ""
	if w := postBatch(t, handler, bad); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid record must 400, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/events", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /events must 405, got %d", w.Code)
	}
}

func TestIngestEmptyBatch(t *testing.T) {
	srv, _ := testServer(t)

	if w := postBatch(t, srv.Handler(), Batch{UserID: "user-1"}); w.Code != http.StatusNoContent {
		t.Fatalf("empty batch must 204, got %d", w.Code)
	}
}

func TestTimelineRequiresParams(t *testing.T) {
	srv, _ := testServer(t)
	handler := srv.Handler()

	for _, target := range []string{"/timeline", "/timeline?user=u", "/timeline?session=s"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s must 400, got %d", target, w.Code)
		}
	}
}

type failingSink struct{}

func (failingSink) InsertEvents(context.Context, string, []event.RawRecord) error {
	return store.ErrStoreUnavailable
}

type failingSource struct{}

func (failingSource) ListSessions(context.Context, string) ([]session.SummaryRow, error) {
	return nil, errors.Join(store.ErrStoreUnavailable, errors.New("dial tcp: refused"))
}

func (failingSource) FetchEvents(context.Context, string, string) ([]event.RawRecord, error) {
	return nil, store.ErrStoreUnavailable
}

func TestStoreUnavailableMapsTo503(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assembler := session.NewAssembler(failingSource{}, logger)
	srv := NewServer(failingSink{}, assembler, "127.0.0.1:0", logger)
	handler := srv.Handler()

	if w := postBatch(t, handler, sessionBatch()); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ingest with store down must 503, got %d", w.Code)
	}

	for _, target := range []string{"/sessions?user=u", "/timeline?user=u&session=s"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s with store down must 503, got %d", target, w.Code)
		}
	}
}
