// Package session assembles raw store records into replayable timelines.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"replaylog/internal/collapse"
	"replaylog/internal/event"
	"replaylog/internal/narrative"
	"replaylog/internal/spatial"
)

// SummaryRow is the listing unit for a user browsing their own sessions.
type SummaryRow struct {
	SessionID string `json:"session_id"`
	TaskName  string `json:"task_name"`
}

// Source is the event store boundary. An absent user or session yields an
// empty result, not an error; only connectivity failures are errors.
type Source interface {
	ListSessions(ctx context.Context, userID string) ([]SummaryRow, error)
	FetchEvents(ctx context.Context, userID, sessionID string) ([]event.RawRecord, error)
}

// Diagnostics counts soft failures encountered while building a timeline.
type Diagnostics struct {
	RawRecords       int `json:"raw_records"`
	DroppedRecords   int `json:"dropped_records"`
	UnknownTypes     int `json:"unknown_types"`
	InvalidViewports int `json:"invalid_viewports"`
}

// Timeline is the finished pipeline output for one session: the collapsed
// event list for visual replay plus the narrated summary lines.
type Timeline struct {
	SessionID   string        `json:"session_id"`
	Events      []event.Event `json:"events"`
	Narrative   []string      `json:"narrative"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// Assembler orchestrates fetch, normalization, ordering, collapsing and
// narrative generation. Each call is independent; an Assembler is safe for
// concurrent use across sessions.
type Assembler struct {
	src Source
	log *slog.Logger
}

func NewAssembler(src Source, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{src: src, log: logger}
}

// ListSessions returns the user's session listing without running the
// replay pipeline.
func (a *Assembler) ListSessions(ctx context.Context, userID string) ([]SummaryRow, error) {
	return a.src.ListSessions(ctx, userID)
}

// BuildTimeline runs the full pipeline for one session. Malformed records
// are skipped and counted; only a store failure aborts the build.
func (a *Assembler) BuildTimeline(ctx context.Context, userID, sessionID string) (*Timeline, error) {
	records, err := a.src.FetchEvents(ctx, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("fetch session %s: %w", sessionID, err)
	}

	timeline := &Timeline{
		SessionID: sessionID,
		Narrative: []string{},
	}
	timeline.Diagnostics.RawRecords = len(records)

	events := make([]event.Event, 0, len(records))
	for _, rec := range records {
		ev, err := event.Normalize(rec)
		if err != nil {
			timeline.Diagnostics.DroppedRecords++
			a.log.Warn("dropping malformed record",
				"session_id", sessionID, "error", err)
			continue
		}
		if ev.Type == event.TypeUnknown {
			timeline.Diagnostics.UnknownTypes++
		}
		if ev.Viewport == nil && rec.EventSource != "" {
			timeline.Diagnostics.InvalidViewports++
		}
		events = append(events, ev)
	}

	// The store is not trusted to return events pre-sorted. Stable so that
	// equal ordering keys keep arrival order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	timeline.Events = collapse.Collapse(events)
	if timeline.Events == nil {
		timeline.Events = []event.Event{}
	}

	for _, ev := range timeline.Events {
		label := ""
		if ev.Viewport != nil {
			if quadrant, cerr := spatial.Classify(ev.Viewport, ev.Offset); cerr == nil {
				label = quadrant
			}
		}
		if line, ok := narrative.Describe(ev, label); ok {
			timeline.Narrative = append(timeline.Narrative, line)
		}
	}

	if timeline.Diagnostics.DroppedRecords > 0 || timeline.Diagnostics.UnknownTypes > 0 {
		a.log.Info("timeline built with soft failures",
			"session_id", sessionID,
			"dropped", timeline.Diagnostics.DroppedRecords,
			"unknown_types", timeline.Diagnostics.UnknownTypes,
			"invalid_viewports", timeline.Diagnostics.InvalidViewports)
	}

	return timeline, nil
}
