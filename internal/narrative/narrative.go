// Package narrative turns collapsed interaction events into human-readable
// description lines.
package narrative

import (
	"fmt"

	"replaylog/internal/event"
)

// Describe returns the narrative line for an event, if it has one.
//
// Only clicks are narrated: scroll and keydown are replay-only, open and
// beforeunload are session lifecycle markers, and unknown types stay inert.
// The function is total; it never fails.
func Describe(ev event.Event, spatialLabel string) (string, bool) {
	if ev.Type != event.TypeClick || ev.TextContent == "" {
		return "", false
	}
	if spatialLabel == "" {
		return fmt.Sprintf("Click on %s", ev.TextContent), true
	}
	return fmt.Sprintf("Click on %s at the %s of the page", ev.TextContent, spatialLabel), true
}
