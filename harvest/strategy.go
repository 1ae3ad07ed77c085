package harvest

import (
	"context"
	"time"
)

// Surface is what a strategy needs from a live chat session. It is the
// seam between acquisition logic and the browser, so strategies stay
// testable without one.
type Surface interface {
	// LastResponseText reads the newest answer container's rendered text.
	LastResponseText(ctx context.Context) (string, error)
	// CopyLatestResponse clicks the newest answer's copy control and
	// returns the clipboard contents.
	CopyLatestResponse(ctx context.Context) (string, error)
	// SelectorTexts returns visible text per element matching selector.
	SelectorTexts(ctx context.Context, selector string) ([]string, error)
	// DeepText collects text for selector across open shadow roots.
	DeepText(ctx context.Context, selector string) (string, error)
}

// Candidate is raw acquired text plus where and when it came from.
// Selector is set only by the scrape strategy, for selector memory.
type Candidate struct {
	Text       string
	Selector   string
	ObservedAt time.Time
}

// Strategy is one way of pulling the answer off the surface. Strategies
// run in order of reliability; Acquire returns ErrNoCandidate to hand
// over to the next one.
type Strategy interface {
	Name() string
	Acquire(ctx context.Context, surface Surface) (Candidate, error)
}
