// Package cleanse reduces raw chat-surface text to genuine prose. It has
// three stages: a Classifier that rejects script/markup/UI-chrome
// fragments, a Normalizer that strips tags and boilerplate trailers, and
// a sentence-level deduplicator for repeated streaming renders.
package cleanse

import (
	"regexp"
	"strings"
)

// Config holds the classifier thresholds. Zero values take defaults
// tuned against live chat surfaces.
type Config struct {
	// MinFragment is the minimum fragment length considered prose. Default: 40.
	MinFragment int

	// PunctFloor and PunctDivisor set the punctuation budget: a fragment
	// is rejected when its count of {}();[]=<> characters exceeds
	// max(PunctFloor, len/PunctDivisor). Defaults: 12 and 30.
	PunctFloor   int
	PunctDivisor int

	// PromptEchoes are short phrases that identify the outbound prompt
	// leaking back through the surface.
	PromptEchoes []string
}

func (c *Config) defaults() {
	if c.MinFragment <= 0 {
		c.MinFragment = 40
	}
	if c.PunctFloor <= 0 {
		c.PunctFloor = 12
	}
	if c.PunctDivisor <= 0 {
		c.PunctDivisor = 30
	}
}

// bannedPatterns match script leakage, sign-in banners, disclaimers and
// other UI chrome that query-all selectors routinely pick up alongside
// the answer.
var bannedPatterns = []string{
	`^\s*\(function`,
	`use strict`,
	`const\s`,
	`let\s`,
	`var\s`,
	`class\s`,
	`throw\s+Error`,
	`theme-host`,
	`google-sans`,
	`Sign in`,
	`Saving your chats`,
	`Sources\s`,
	`can make mistakes`,
	`Once you'?re signed in`,
	`iframe\s+src=`,
	`gbar_`,
	`window\.`,
	`document\.`,
	`try\s*\{`,
	`catch\s*\(`,
	`\.prototype\.`,
	`export\s+default`,
	`import\s+`,
}

var bannedRegex = regexp.MustCompile("(?i)" + strings.Join(bannedPatterns, "|"))

const punctChars = "{}();[]=<>"

// Classifier decides whether a text fragment is plausible prose or noise.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier. cfg fields at zero take defaults.
func NewClassifier(cfg Config) *Classifier {
	cfg.defaults()
	return &Classifier{cfg: cfg}
}

// Reject reports whether s should be discarded: too short, punctuation
// density typical of scripts or markup, a banned boilerplate pattern, or
// a short echo of the outbound prompt.
func (c *Classifier) Reject(s string) bool {
	if len(s) < c.cfg.MinFragment {
		return true
	}
	punct := 0
	for _, ch := range s {
		if strings.ContainsRune(punctChars, ch) {
			punct++
		}
	}
	budget := c.cfg.PunctFloor
	if byLen := len(s) / c.cfg.PunctDivisor; byLen > budget {
		budget = byLen
	}
	if punct > budget {
		return true
	}
	if bannedRegex.MatchString(s) {
		return true
	}
	// Theme/font tokens appearing together are a styling payload, not prose.
	if strings.Contains(s, "theme") && strings.Contains(s, "google") && strings.Contains(s, "sans") {
		return true
	}
	if c.IsPromptEcho(s) {
		return true
	}
	return false
}

// IsPromptEcho reports whether s is a short fragment dominated by one of
// the configured prompt-echo phrases. Long texts that merely quote the
// prompt are not echoes: the answer often restates the instruction.
func (c *Classifier) IsPromptEcho(s string) bool {
	if len(s) >= 500 {
		return false
	}
	for _, echo := range c.cfg.PromptEchoes {
		if echo != "" && strings.Contains(s, echo) {
			return true
		}
	}
	return false
}
