// Package collapse removes redundant consecutive low-signal events from a
// chronologically ordered timeline.
package collapse

import "replaylog/internal/event"

// Collapse reduces events in a single left-to-right pass. The first event of
// a run of equal-type low-signal events (scroll, keydown) survives and the
// rest are suppressed. High-signal events (open, click, beforeunload) are
// always emitted, even back-to-back. Order is never changed.
func Collapse(events []event.Event) []event.Event {
	if len(events) == 0 {
		return nil
	}

	out := make([]event.Event, 0, len(events))
	var lastEmitted event.Type
	for i, ev := range events {
		if i > 0 && ev.Type == lastEmitted && ev.Type.LowSignal() {
			continue
		}
		out = append(out, ev)
		lastEmitted = ev.Type
	}
	return out
}
