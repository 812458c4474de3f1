// Package event defines the typed model for recorded user-interaction
// events and the normalization of raw store records into it.
package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the closed set of recognized interaction event types.
type Type string

const (
	TypeOpen         Type = "open"
	TypeClick        Type = "click"
	TypeScroll       Type = "scroll"
	TypeKeydown      Type = "keydown"
	TypeBeforeUnload Type = "beforeunload"
	// TypeUnknown tags records whose raw type string is not recognized.
	// They stay in the timeline for diagnostics but are never narrated.
	TypeUnknown Type = "unknown"
)

// ParseType maps a raw wire type string onto the closed enumeration.
// Unrecognized strings map to TypeUnknown rather than failing.
func ParseType(raw string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeOpen:
		return TypeOpen
	case TypeClick:
		return TypeClick
	case TypeScroll:
		return TypeScroll
	case TypeKeydown:
		return TypeKeydown
	case TypeBeforeUnload:
		return TypeBeforeUnload
	default:
		return TypeUnknown
	}
}

// HighSignal reports whether events of this type each represent a discrete
// user decision and are always preserved, even back-to-back.
func (t Type) HighSignal() bool {
	return t == TypeOpen || t == TypeClick || t == TypeBeforeUnload
}

// LowSignal reports whether events of this type arrive in dense runs that
// carry little individual value. Consecutive repeats are collapsible.
func (t Type) LowSignal() bool {
	return t == TypeScroll || t == TypeKeydown
}

// Viewport is the browser viewport size at event time.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ParseViewport parses the wire "WIDTHxHEIGHT" shape. Both dimensions must be
// strictly positive.
func ParseViewport(raw string) (*Viewport, error) {
	width, height, ok := strings.Cut(strings.TrimSpace(raw), "x")
	if !ok {
		return nil, fmt.Errorf("viewport %q: want WIDTHxHEIGHT", raw)
	}
	w, err := strconv.Atoi(width)
	if err != nil {
		return nil, fmt.Errorf("viewport width %q: %w", width, err)
	}
	h, err := strconv.Atoi(height)
	if err != nil {
		return nil, fmt.Errorf("viewport height %q: %w", height, err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("viewport %q: dimensions must be positive", raw)
	}
	return &Viewport{Width: w, Height: h}, nil
}

// Offset is a pointer/element offset within the viewport.
type Offset struct {
	X int `json:"offset_x"`
	Y int `json:"offset_y"`
}

// Event is one recorded interaction, immutable once normalized.
type Event struct {
	SessionID string `json:"session_id"`
	// Timestamp is the ordering key within a session: epoch milliseconds,
	// non-decreasing once the assembler has sorted.
	Timestamp int64 `json:"timestamp"`
	Type      Type  `json:"event_type"`
	// RawType preserves the wire type string when Type is TypeUnknown.
	RawType     string    `json:"raw_type,omitempty"`
	TagName     string    `json:"tag_name"`
	TextContent string    `json:"text_content"`
	Viewport    *Viewport `json:"viewport,omitempty"`
	Offset
	DocID              string `json:"doc_id"`
	InteractionContext string `json:"interaction_context,omitempty"`
}
