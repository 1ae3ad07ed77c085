package harvest

import (
	"context"
	"errors"
	"strings"

	"github.com/hazyhaar/moisson/cleanse"
	"github.com/hazyhaar/moisson/session"
)

// copyStrategy drives the answer's own copy control and reads the
// clipboard. Immune to markup churn, but the clipboard may hand back
// the user's prompt instead of the answer, so everything is gated on
// echo checks.
type copyStrategy struct {
	cfg        *Config
	classifier *cleanse.Classifier
	prompt     string
}

func (c *copyStrategy) Name() string { return "copy-button" }

func (c *copyStrategy) Acquire(ctx context.Context, surface Surface) (Candidate, error) {
	log := c.cfg.Logger
	for {
		text, err := surface.CopyLatestResponse(ctx)
		switch {
		case errors.Is(err, session.ErrClipboardUnavailable):
			// No clipboard this run; retrying cannot help.
			return Candidate{}, ErrNoCandidate
		case err != nil:
			log.Debug("harvest: copy attempt failed", "error", err)
		default:
			if cand, ok := c.accept(text); ok {
				return cand, nil
			}
		}
		if err := sleepFor(ctx, c.cfg.PollInterval); err != nil {
			return Candidate{}, ErrNoCandidate
		}
	}
}

func (c *copyStrategy) accept(text string) (Candidate, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == strings.TrimSpace(c.prompt) {
		return Candidate{}, false
	}
	if c.classifier.IsPromptEcho(text) {
		return Candidate{}, false
	}
	if len(text) < c.cfg.MinAcceptChars && !strings.Contains(text, "{") {
		return Candidate{}, false
	}
	return Candidate{Text: text, ObservedAt: c.cfg.Clock()}, true
}
