package event

import "fmt"

// RawRecord is the wire contract with the event store. Field names match the
// store's columns exactly and must not be renamed.
type RawRecord struct {
	SessionID          string `json:"session_id"`
	Timestamp          int64  `json:"timestamp"`
	DocID              string `json:"doc_id"`
	EventType          string `json:"event_type"`
	TagName            string `json:"tag_name"`
	TextContent        string `json:"text_content"`
	EventSource        string `json:"event_source"`
	OffsetX            int    `json:"offset_x"`
	OffsetY            int    `json:"offset_y"`
	InteractionContext string `json:"interaction_context"`
}

// NormalizationError reports a raw record that cannot become an Event.
// It is a per-record failure: callers skip the record and continue.
type NormalizationError struct {
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize record: field %s: %s", e.Field, e.Reason)
}

// Normalize converts a raw store record into a typed Event.
//
// Soft conditions never fail the record: an unrecognized event_type becomes
// TypeUnknown, and a malformed event_source leaves Viewport nil so spatial
// classification is skipped downstream. Only a record missing its identity
// (session_id) or ordering key is rejected.
func Normalize(rec RawRecord) (Event, error) {
	if rec.SessionID == "" {
		return Event{}, &NormalizationError{Field: "session_id", Reason: "missing"}
	}
	if rec.Timestamp <= 0 {
		return Event{}, &NormalizationError{Field: "timestamp", Reason: "must be positive"}
	}

	ev := Event{
		SessionID:          rec.SessionID,
		Timestamp:          rec.Timestamp,
		Type:               ParseType(rec.EventType),
		TagName:            rec.TagName,
		TextContent:        rec.TextContent,
		Offset:             Offset{X: rec.OffsetX, Y: rec.OffsetY},
		DocID:              rec.DocID,
		InteractionContext: rec.InteractionContext,
	}
	if ev.Type == TypeUnknown {
		ev.RawType = rec.EventType
	}

	// Best effort: a malformed viewport string is not a record failure.
	if vp, err := ParseViewport(rec.EventSource); err == nil {
		ev.Viewport = vp
	}

	return ev, nil
}
