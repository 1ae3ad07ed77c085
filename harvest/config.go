package harvest

import (
	"log/slog"
	"time"

	"github.com/hazyhaar/moisson/cleanse"
)

// DefaultPromptTemplate asks for the five-section profile as bare JSON.
// {ticker} is replaced with the subject's symbol.
const DefaultPromptTemplate = `Research the company with stock ticker {ticker}. ` +
	`Return ONLY valid JSON, no markdown, no code fences, with exactly this structure: ` +
	`{"What": "what the company does, its products and markets", ` +
	`"When": "founding and key dates in its history", ` +
	`"Where": "headquarters and main locations", ` +
	`"How": "business model and how it makes money", ` +
	`"Who": "founders, leadership and ownership"}`

// Config bounds the acquisition pipeline. Zero values take defaults
// tuned against the live surface.
type Config struct {
	// PromptTemplate is the instruction sent to the surface; {ticker} is
	// substituted per run.
	PromptTemplate string

	// MinAcceptChars is the shortest text accepted as an answer.
	MinAcceptChars int

	// PollInterval paces every polling loop.
	PollInterval time.Duration

	// StabilizeWindow is how long scraped text must stay unchanged
	// before the answer is considered finished streaming.
	StabilizeWindow time.Duration

	// Rereads, RereadInterval and RereadStable control the direct
	// strategy's confirmation pass: Rereads reads, RereadInterval apart,
	// accepted when RereadStable of them agree.
	Rereads        int
	RereadInterval time.Duration
	RereadStable   int

	// Per-strategy deadlines.
	DirectTimeout time.Duration
	CopyTimeout   time.Duration
	ScrapeTimeout time.Duration

	// Cleanse configures the shared text classifier.
	Cleanse cleanse.Config

	// Clock is the time source for stabilization. Tests inject one.
	Clock func() time.Time

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.PromptTemplate == "" {
		c.PromptTemplate = DefaultPromptTemplate
	}
	if c.MinAcceptChars <= 0 {
		c.MinAcceptChars = 300
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.StabilizeWindow <= 0 {
		c.StabilizeWindow = 7 * time.Second
	}
	if c.Rereads <= 0 {
		c.Rereads = 3
	}
	if c.RereadInterval <= 0 {
		c.RereadInterval = 2 * time.Second
	}
	if c.RereadStable <= 0 {
		c.RereadStable = 2
	}
	if c.DirectTimeout <= 0 {
		c.DirectTimeout = 60 * time.Second
	}
	if c.CopyTimeout <= 0 {
		c.CopyTimeout = 120 * time.Second
	}
	if c.ScrapeTimeout <= 0 {
		c.ScrapeTimeout = 120 * time.Second
	}
	if c.Clock == nil {
		c.Clock = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
