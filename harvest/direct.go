package harvest

import (
	"context"
	"strings"

	"github.com/hazyhaar/moisson/cleanse"
)

// directStrategy reads the newest answer container and confirms the
// text by re-reading it. Fastest path, works only while the surface
// renders answers into a recognizable container.
type directStrategy struct {
	cfg        *Config
	classifier *cleanse.Classifier
	prompt     string
}

func (d *directStrategy) Name() string { return "direct" }

func (d *directStrategy) Acquire(ctx context.Context, surface Surface) (Candidate, error) {
	log := d.cfg.Logger
	for {
		text, err := surface.LastResponseText(ctx)
		if err != nil {
			log.Debug("harvest: direct read failed", "error", err)
		}
		text = strings.TrimSpace(text)

		if d.accept(text) {
			confirmed, err := d.confirm(ctx, surface, text)
			if err != nil {
				return Candidate{}, err
			}
			if confirmed {
				return Candidate{Text: text, ObservedAt: d.cfg.Clock()}, nil
			}
			log.Debug("harvest: direct read unstable, continuing", "chars", len(text))
		}

		if err := sleepFor(ctx, d.cfg.PollInterval); err != nil {
			return Candidate{}, ErrNoCandidate
		}
	}
}

// accept gates a read before the confirmation pass: long enough, shaped
// like an object, and not the outbound prompt bounced back. The newest
// container often holds the user's own message while the answer still
// streams, hence the containment check on the whole prompt.
func (d *directStrategy) accept(text string) bool {
	if len(text) < d.cfg.MinAcceptChars {
		return false
	}
	if !strings.HasPrefix(text, "{") {
		return false
	}
	if p := strings.TrimSpace(d.prompt); p != "" && strings.Contains(text, p) {
		return false
	}
	return !d.classifier.IsPromptEcho(text)
}

// confirm re-reads the container and accepts when enough reads agree,
// so a mid-stream snapshot never ships.
func (d *directStrategy) confirm(ctx context.Context, surface Surface, initial string) (bool, error) {
	matches := 1
	for i := 1; i < d.cfg.Rereads; i++ {
		if err := sleepFor(ctx, d.cfg.RereadInterval); err != nil {
			return false, ErrNoCandidate
		}
		text, err := surface.LastResponseText(ctx)
		if err != nil {
			continue
		}
		if strings.TrimSpace(text) == initial {
			matches++
		}
	}
	return matches >= d.cfg.RereadStable, nil
}
