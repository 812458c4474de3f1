// Package spatial computes coarse on-screen quadrant labels from viewport
// coordinates.
package spatial

import (
	"errors"
	"fmt"

	"replaylog/internal/event"
)

// ErrInvalidViewport is returned when no usable viewport is available.
var ErrInvalidViewport = errors.New("invalid viewport")

// Classify returns the quadrant label ("top left", "bottom right", ...) for
// an offset within the viewport. An offset exactly at a midpoint belongs to
// the top/left half.
func Classify(vp *event.Viewport, off event.Offset) (string, error) {
	if vp == nil || vp.Width <= 0 || vp.Height <= 0 {
		return "", ErrInvalidViewport
	}

	vertical := "bottom"
	if off.Y <= vp.Height/2 {
		vertical = "top"
	}
	horizontal := "right"
	if off.X <= vp.Width/2 {
		horizontal = "left"
	}
	return fmt.Sprintf("%s %s", vertical, horizontal), nil
}
