package harvest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/moisson/cleanse"
	"github.com/hazyhaar/moisson/selmem"
	"github.com/hazyhaar/moisson/session"
)

// fakeSurface scripts the reads a strategy performs.
type fakeSurface struct {
	mu        sync.Mutex
	responses []string          // LastResponseText, consumed in order, last repeats
	clips     []string          // CopyLatestResponse, consumed in order
	clipErr   error             // returned when clips is exhausted
	texts     map[string][]string
	deep      map[string]string
	ri, ci    int
}

func (f *fakeSurface) LastResponseText(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return "", nil
	}
	if f.ri >= len(f.responses) {
		return f.responses[len(f.responses)-1], nil
	}
	r := f.responses[f.ri]
	f.ri++
	return r, nil
}

func (f *fakeSurface) CopyLatestResponse(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ci >= len(f.clips) {
		if f.clipErr != nil {
			return "", f.clipErr
		}
		return "", session.ErrCopyButtonNotFound
	}
	c := f.clips[f.ci]
	f.ci++
	return c, nil
}

func (f *fakeSurface) SelectorTexts(_ context.Context, sel string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.texts[sel], nil
}

func (f *fakeSurface) DeepText(_ context.Context, sel string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deep[sel], nil
}

func testConfig() Config {
	cfg := Config{
		MinAcceptChars:  40,
		PollInterval:    time.Millisecond,
		RereadInterval:  time.Millisecond,
		StabilizeWindow: 5 * time.Second,
	}
	cfg.applyDefaults()
	return cfg
}

var (
	longAnswer   = strings.Repeat("The company designs industrial pumps. ", 3)
	directAnswer = `{"What": "` + longAnswer + `"}`
	scrapeAnswer = "The company designs industrial pumps. " +
		"It sells through European distributors. " +
		"Service contracts fund the research arm."
)

func newScrape(t *testing.T, cfg *Config) *scrapeStrategy {
	t.Helper()
	classifier := cleanse.NewClassifier(cleanse.Config{})
	return &scrapeStrategy{
		cfg:        cfg,
		classifier: classifier,
		normalizer: cleanse.NewNormalizer(classifier),
		memory:     selmem.Open(filepath.Join(t.TempDir(), "selectors.json")),
	}
}

func TestDirectStrategy_ConfirmsStableText(t *testing.T) {
	cfg := testConfig()
	d := &directStrategy{cfg: &cfg, classifier: cleanse.NewClassifier(cleanse.Config{})}
	surface := &fakeSurface{responses: []string{"", directAnswer}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := d.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cand.Text != directAnswer {
		t.Errorf("candidate = %q", cand.Text)
	}
	if cand.ObservedAt.IsZero() {
		t.Error("observation time missing")
	}
}

func TestDirectStrategy_RejectsStreamingText(t *testing.T) {
	// WHAT: Text that changes between re-reads is not accepted until it
	// settles, so a mid-stream snapshot never ships.
	cfg := testConfig()
	d := &directStrategy{cfg: &cfg, classifier: cleanse.NewClassifier(cleanse.Config{})}
	streaming := []string{
		directAnswer + " growing",
		directAnswer + " growing more",
		directAnswer + " growing even more",
		directAnswer + " still growing here",
		directAnswer, // settles from here on
	}
	surface := &fakeSurface{responses: streaming}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := d.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cand.Text != directAnswer {
		t.Errorf("candidate = %q, want the settled text", cand.Text)
	}
}

func TestDirectStrategy_RejectsProseAndPromptBearingObjects(t *testing.T) {
	// WHAT: A direct read must be an object and must not carry the
	// outbound prompt; prose and prompt wrappers keep the loop polling.
	cfg := testConfig()
	prompt := "Research the company with stock ticker ACME and answer in one object."
	d := &directStrategy{
		cfg:        &cfg,
		classifier: cleanse.NewClassifier(cleanse.Config{}),
		prompt:     prompt,
	}
	surface := &fakeSurface{responses: []string{
		longAnswer,                   // prose, no object shape
		`{"echo": "` + prompt + `"}`, // object wrapping the prompt itself
		directAnswer,
	}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := d.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cand.Text != directAnswer {
		t.Errorf("candidate = %q, want the object without the prompt", cand.Text)
	}
}

func TestCopyStrategy_SkipsPromptEcho(t *testing.T) {
	// WHAT: A clipboard read equal to the prompt is the user's own
	// message; the strategy keeps polling until real content arrives.
	cfg := testConfig()
	prompt := "Research the company with stock ticker ACME. Return ONLY valid JSON."
	c := &copyStrategy{
		cfg:        &cfg,
		classifier: cleanse.NewClassifier(cleanse.Config{PromptEchoes: []string{"Return ONLY valid JSON"}}),
		prompt:     prompt,
	}
	answer := `{"What": "` + longAnswer + `"}`
	surface := &fakeSurface{clips: []string{prompt, answer}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := c.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cand.Text != answer {
		t.Errorf("candidate = %q, want the clipboard answer", cand.Text)
	}
}

func TestCopyStrategy_ClipboardUnavailable(t *testing.T) {
	cfg := testConfig()
	c := &copyStrategy{cfg: &cfg, classifier: cleanse.NewClassifier(cleanse.Config{}), prompt: "p"}
	surface := &fakeSurface{clipErr: session.ErrClipboardUnavailable}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := c.Acquire(ctx, surface)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err = %v, want ErrNoCandidate", err)
	}
}

func TestScrapeStrategy_StabilizesAndRemembersSelector(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg.Clock = func() time.Time {
		now = now.Add(3 * time.Second)
		return now
	}
	s := newScrape(t, &cfg)
	surface := &fakeSurface{texts: map[string][]string{
		"message-content": {scrapeAnswer},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := s.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if cand.Selector != "message-content" {
		t.Errorf("selector = %q", cand.Selector)
	}
	if !strings.Contains(cand.Text, "industrial pumps") {
		t.Errorf("candidate = %q", cand.Text)
	}
	if got := s.memory.Patterns(); len(got) != 1 || got[0] != "message-content" {
		t.Errorf("selector memory = %v", got)
	}
}

func TestScrapeStrategy_UnionsSelectorsAndRemembersAll(t *testing.T) {
	// WHAT: Fragments from every yielding selector merge into one cleaned
	// candidate, and each contributing selector lands in memory.
	cfg := testConfig()
	now := time.Now()
	cfg.Clock = func() time.Time {
		now = now.Add(10 * time.Second)
		return now
	}
	s := newScrape(t, &cfg)
	first := "The company designs industrial pumps for municipal water systems."
	second := "Service contracts with utilities fund its research division."
	surface := &fakeSurface{texts: map[string][]string{
		"message-content": {first},
		".markdown":       {second},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := s.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !strings.Contains(cand.Text, "municipal water") ||
		!strings.Contains(cand.Text, "research division") {
		t.Errorf("union lost a fragment: %q", cand.Text)
	}
	got := s.memory.Patterns()
	if len(got) != 2 {
		t.Fatalf("selector memory = %v, want both contributors", got)
	}
}

func TestScrapeStrategy_FiltersGarbageFragments(t *testing.T) {
	cfg := testConfig()
	now := time.Now()
	cfg.Clock = func() time.Time {
		now = now.Add(10 * time.Second)
		return now
	}
	s := newScrape(t, &cfg)
	surface := &fakeSurface{texts: map[string][]string{
		"message-content": {
			"(function(){var a=[];for(i=0;i<9;i++){a.push({x:i});}return a;})();",
			scrapeAnswer,
		},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	cand, err := s.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if strings.Contains(cand.Text, "function") {
		t.Errorf("script fragment survived: %q", cand.Text)
	}
	if !strings.Contains(cand.Text, "industrial pumps") {
		t.Errorf("prose fragment lost: %q", cand.Text)
	}
}

func TestScrapeStrategy_DeadlineReturnsBestEffort(t *testing.T) {
	// WHAT: Text that never holds still for the full window still comes
	// back when the deadline hits, instead of an error.
	cfg := testConfig() // 5s window against a real clock
	s := newScrape(t, &cfg)
	surface := &fakeSurface{texts: map[string][]string{
		"message-content": {scrapeAnswer},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	cand, err := s.Acquire(ctx, surface)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if !strings.Contains(cand.Text, "industrial pumps") {
		t.Errorf("best effort lost: %q", cand.Text)
	}
	if cand.ObservedAt.IsZero() {
		t.Error("observation time missing")
	}
	if got := s.memory.Patterns(); len(got) != 0 {
		t.Errorf("unconfirmed selectors must not be remembered, got %v", got)
	}
}

func TestScrapeStrategy_NothingObservedIsNoCandidate(t *testing.T) {
	cfg := testConfig()
	s := newScrape(t, &cfg)
	surface := &fakeSurface{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Acquire(ctx, surface)
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("err = %v, want ErrNoCandidate", err)
	}
}
