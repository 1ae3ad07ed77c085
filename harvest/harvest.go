// Package harvest orchestrates profile extraction: it opens a session,
// submits the prompt, runs the acquisition strategies in order of
// reliability, and turns whatever text comes back into a profile.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/moisson/cleanse"
	"github.com/hazyhaar/moisson/profile"
	"github.com/hazyhaar/moisson/selmem"
	"github.com/hazyhaar/moisson/session"
)

// ErrInvalidTicker means the subject symbol failed validation.
var ErrInvalidTicker = errors.New("harvest: invalid ticker")

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,12}$`)

// Conversation is one live exchange with the surface: prompt in,
// acquisition reads out.
type Conversation interface {
	Surface
	SubmitPrompt(ctx context.Context, prompt string) error
	Close() error
}

// Result is the outcome of one harvest. Complete results carry a
// profile; low-confidence results carry whatever was recovered plus the
// cleaned raw text for manual inspection.
type Result struct {
	Ticker     string             `json:"ticker"`
	Strategy   string             `json:"strategy,omitempty"`
	Confidence profile.Confidence `json:"confidence"`
	Profile    *profile.Profile   `json:"profile,omitempty"`
	RawText    string             `json:"raw_text,omitempty"`
	ObservedAt time.Time          `json:"observed_at,omitzero"`
	ElapsedMS  int64              `json:"elapsed_ms"`
}

// Options wires a Harvester.
type Options struct {
	Config Config

	// Session is the base browser configuration. Each ticker gets its
	// own profile subdirectory under Session.ProfileDir.
	Session session.Config

	// SelectorMemoryPath is where proven scrape selectors persist.
	SelectorMemoryPath string

	// OpenConversation overrides how conversations are created. Nil
	// means a real browser session per run.
	OpenConversation func(ctx context.Context, ticker string) (Conversation, error)
}

// Harvester runs harvests, one at a time per ticker.
type Harvester struct {
	cfg     Config
	sessCfg session.Config
	memory  *selmem.Memory
	open    func(ctx context.Context, ticker string) (Conversation, error)

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New builds a Harvester.
func New(opts Options) *Harvester {
	opts.Config.applyDefaults()
	h := &Harvester{
		cfg:     opts.Config,
		sessCfg: opts.Session,
		memory:  selmem.Open(opts.SelectorMemoryPath),
		open:    opts.OpenConversation,
		locks:   make(map[string]*sync.Mutex),
	}
	if h.open == nil {
		h.open = h.openSession
	}
	return h
}

func (h *Harvester) openSession(ctx context.Context, ticker string) (Conversation, error) {
	cfg := h.sessCfg
	if cfg.ProfileDir != "" {
		cfg.ProfileDir = filepath.Join(cfg.ProfileDir, strings.ToLower(ticker))
	}
	return session.Open(ctx, cfg)
}

// Run harvests one ticker. Concurrent calls for the same ticker
// serialize; different tickers proceed independently.
func (h *Harvester) Run(ctx context.Context, ticker string) (*Result, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !tickerPattern.MatchString(ticker) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}

	lock := h.tickerLock(ticker)
	lock.Lock()
	defer lock.Unlock()

	log := h.cfg.Logger.With("ticker", ticker)
	start := time.Now()

	prompt := strings.ReplaceAll(h.cfg.PromptTemplate, "{ticker}", ticker)

	ccfg := h.cfg.Cleanse
	if len(ccfg.PromptEchoes) == 0 {
		ccfg.PromptEchoes = []string{"Return ONLY valid JSON"}
	}
	classifier := cleanse.NewClassifier(ccfg)
	normalizer := cleanse.NewNormalizer(classifier)

	conv, err := h.open(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("harvest: open conversation: %w", err)
	}
	defer conv.Close()

	if err := conv.SubmitPrompt(ctx, prompt); err != nil {
		return nil, fmt.Errorf("harvest: submit prompt: %w", err)
	}
	log.Info("harvest: prompt submitted", "chars", len(prompt))

	strategies := []struct {
		s       Strategy
		timeout time.Duration
	}{
		{&directStrategy{cfg: &h.cfg, classifier: classifier, prompt: prompt}, h.cfg.DirectTimeout},
		{&copyStrategy{cfg: &h.cfg, classifier: classifier, prompt: prompt}, h.cfg.CopyTimeout},
		{&scrapeStrategy{cfg: &h.cfg, classifier: classifier, normalizer: normalizer, memory: h.memory}, h.cfg.ScrapeTimeout},
	}

	var low *Result
	for _, entry := range strategies {
		sctx, cancel := context.WithTimeout(ctx, entry.timeout)
		cand, err := entry.s.Acquire(sctx, conv)
		cancel()
		if err != nil {
			log.Info("harvest: strategy produced nothing", "strategy", entry.s.Name())
			if ctx.Err() != nil {
				break
			}
			continue
		}
		log.Info("harvest: candidate acquired",
			"strategy", entry.s.Name(), "chars", len(cand.Text))

		res := h.resolve(ticker, entry.s.Name(), cand, normalizer)
		res.ElapsedMS = time.Since(start).Milliseconds()
		if res.Confidence == profile.ConfidenceComplete {
			return res, nil
		}
		if low == nil || betterLow(res, low) {
			low = res
		}
	}

	// Caller cancellation is not a dry run; report it as such.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if low != nil {
		log.Warn("harvest: finished without a complete profile",
			"strategy", low.Strategy, "chars", len(low.RawText))
		low.ElapsedMS = time.Since(start).Milliseconds()
		return low, nil
	}
	return nil, ErrAcquisitionTimeout
}

// resolve parses a candidate into a profile. The raw text is tried
// first since normalization reflows the markup the JSON hides in; the
// normalized text is kept either way for low-confidence output.
func (h *Harvester) resolve(ticker, strategy string, cand Candidate, normalizer *cleanse.Normalizer) *Result {
	cleaned := cleanse.DedupeSentences(normalizer.Normalize(cand.Text))

	p, ok := profile.Recover(cand.Text)
	if !ok {
		p, ok = profile.Recover(cleaned)
	}

	res := &Result{Ticker: ticker, Strategy: strategy, RawText: cleaned, ObservedAt: cand.ObservedAt}
	if ok {
		res.Profile = p
		res.Confidence = p.ConfidenceLevel()
		if res.Confidence == profile.ConfidenceComplete {
			res.RawText = ""
		}
		return res
	}
	res.Confidence = profile.ConfidenceLow
	return res
}

func betterLow(a, b *Result) bool {
	ak, bk := 0, 0
	if a.Profile != nil {
		ak = a.Profile.ExpectedKeyCount()
	}
	if b.Profile != nil {
		bk = b.Profile.ExpectedKeyCount()
	}
	if ak != bk {
		return ak > bk
	}
	return len(a.RawText) > len(b.RawText)
}

func (h *Harvester) tickerLock(ticker string) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.locks[ticker]
	if !ok {
		l = &sync.Mutex{}
		h.locks[ticker] = l
	}
	return l
}

func sleepFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
