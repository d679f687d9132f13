package render

import (
	"context"
	"regexp"
)

// Point is a viewport coordinate in CSS pixels.
type Point struct {
	X float64
	Y float64
}

// Browser opens pages. The session manager opens exactly one and keeps it
// for the life of the process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is the set of showcase interactions a render needs. Implementations
// own every DOM detail of the remote site.
type Page interface {
	// Navigate loads url and returns once the network has gone idle.
	Navigate(ctx context.Context, url string) error
	// SelectLocale picks the dropdown entry labelled label and hides any open dropdown.
	SelectLocale(ctx context.Context, label string) error
	// LocateCharacter finds the roster tile whose icon matches key and
	// returns the top-left corner of its container.
	LocateCharacter(ctx context.Context, key string) (Point, bool, error)
	Click(ctx context.Context, at Point) error
	// PrepareCard enables the card options and fills the custom text field.
	PrepareCard(ctx context.Context, text string) error
	// ObserveResponse subscribes to the first response whose URL matches pattern.
	ObserveResponse(ctx context.Context, pattern *regexp.Regexp) (Capture, error)
	// TriggerRender presses the generate-image button.
	TriggerRender(ctx context.Context) error
	Close() error
}

// Capture is a single-match response subscription. It unsubscribes itself
// once a response matched; Close releases it early.
type Capture interface {
	Wait(ctx context.Context) ([]byte, error)
	Close()
}
