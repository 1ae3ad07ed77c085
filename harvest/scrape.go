package harvest

import (
	"context"
	"strings"

	"github.com/hazyhaar/moisson/cleanse"
	"github.com/hazyhaar/moisson/selmem"
)

// scrapeStrategy sweeps the selector catalog, unions the fragments the
// classifier accepts, cleans the result, and waits for it to stop
// changing. Slowest and noisiest path, but it works on markup nothing
// else recognizes. Selectors that contributed to an accepted sweep are
// remembered for future runs. When the deadline arrives first, the best
// text seen so far is returned instead of an error; the orchestrator
// labels it low confidence.
type scrapeStrategy struct {
	cfg        *Config
	classifier *cleanse.Classifier
	normalizer *cleanse.Normalizer
	memory     *selmem.Memory
}

func (s *scrapeStrategy) Name() string { return "scrape" }

func (s *scrapeStrategy) Acquire(ctx context.Context, surface Surface) (Candidate, error) {
	log := s.cfg.Logger
	stab := NewStabilizer(s.cfg.StabilizeWindow)

	var best Candidate
	for {
		text, selectors := s.sweep(ctx, surface)
		now := s.cfg.Clock()
		if len(text) > len(best.Text) {
			best = Candidate{Text: text, ObservedAt: now}
			if len(selectors) > 0 {
				best.Selector = selectors[0]
			}
		}
		if stab.Observe(text, now) && len(text) >= s.cfg.MinAcceptChars {
			s.remember(selectors)
			cand := Candidate{Text: text, ObservedAt: now}
			if len(selectors) > 0 {
				cand.Selector = selectors[0]
			}
			return cand, nil
		}
		if err := sleepFor(ctx, s.cfg.PollInterval); err != nil {
			if best.Text == "" {
				return Candidate{}, ErrNoCandidate
			}
			log.Warn("harvest: scrape deadline reached, keeping best effort",
				"chars", len(best.Text))
			return best, nil
		}
	}
}

// sweep reads remembered selectors, the catalog, and the shadow-root
// fallbacks, keeps the fragments the classifier accepts, drops exact
// repeats seen through overlapping selectors, and returns the cleaned
// union plus the selectors that contributed to it.
func (s *scrapeStrategy) sweep(ctx context.Context, surface Surface) (string, []string) {
	seen := make(map[string]struct{})
	var fragments []string
	var contributors []string

	collect := func(sel string, texts []string) {
		kept := false
		for _, t := range texts {
			t = strings.TrimSpace(t)
			if t == "" || s.classifier.Reject(t) || s.classifier.IsPromptEcho(t) {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			fragments = append(fragments, t)
			kept = true
		}
		if kept {
			contributors = append(contributors, sel)
		}
	}

	for _, sel := range append(s.memory.Patterns(), selectorCatalog...) {
		texts, err := surface.SelectorTexts(ctx, sel)
		if err != nil || len(texts) == 0 {
			continue
		}
		collect(sel, texts)
	}
	for _, sel := range deepSelectors {
		text, err := surface.DeepText(ctx, sel)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		collect(sel, strings.Split(text, "\n\n"))
	}

	if len(fragments) == 0 {
		return "", nil
	}
	joined := strings.Join(fragments, "\n\n")
	return cleanse.DedupeSentences(s.normalizer.Normalize(joined)), contributors
}

func (s *scrapeStrategy) remember(selectors []string) {
	for _, sel := range selectors {
		if err := s.memory.Remember(sel); err != nil {
			s.cfg.Logger.Warn("harvest: selector memory save failed",
				"selector", sel, "error", err)
		}
	}
}
