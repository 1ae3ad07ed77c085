package profile

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Code-fence wrappers the surface adds despite being told not to.
var fencePatterns = []*regexp.Regexp{
	regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```"),
	regexp.MustCompile("(?s)`(\\{.*?\\})`"),
}

// Recover locates and parses the profile object inside text. The text may
// be the object itself, a quoted string containing an escaped object, a
// fenced code block, or a larger blob holding several brace-balanced
// candidates (the prompt's structural example travels with the answer
// more often than not). Later acquisition strategies produce noisier
// text, so each step here tolerates more wrapping than the one before.
//
// Among multiple parseable candidates, one with at least
// CompleteThreshold expected keys wins; otherwise the first with any
// expected key; otherwise the longest that parses at all.
func Recover(text string) (*Profile, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, false
	}

	var fallback map[string]json.RawMessage

	consider := func(m map[string]json.RawMessage, ok bool) (*Profile, bool) {
		if !ok {
			return nil, false
		}
		if keyCount(m) >= 1 {
			return &Profile{Sections: m}, true
		}
		if longerThan(m, fallback) {
			fallback = m
		}
		return nil, false
	}

	// Whole text is a quoted string holding an escaped object.
	if strings.HasPrefix(trimmed, `"`) && strings.Contains(trimmed, "{") {
		if p, ok := consider(parseQuoted(trimmed)); ok {
			return p, true
		}
	}

	// Whole text is the object.
	if strings.HasPrefix(trimmed, "{") {
		if p, ok := consider(parseObject(trimmed)); ok {
			return p, true
		}
	}

	// Fenced code blocks.
	for _, pat := range fencePatterns {
		if m := pat.FindStringSubmatch(text); m != nil {
			if p, ok := consider(parseObject(strings.TrimSpace(m[1]))); ok {
				return p, true
			}
		}
	}

	// Span between the first and last quote, treated as one escaping layer.
	if first := strings.Index(trimmed, `"`); first >= 0 {
		if last := strings.LastIndex(trimmed, `"`); last > first {
			if p, ok := consider(parseQuoted(trimmed[first : last+1])); ok {
				return p, true
			}
		}
	}

	// Every top-level brace-balanced span is a candidate.
	if p, ok := pickCandidate(text, &fallback); ok {
		return p, true
	}

	// Last resort: first '{' to last '}' across the whole text, then a
	// quoted span immediately preceding that brace as one more layer.
	if p, ok := lastResort(text, &fallback); ok {
		return p, true
	}

	if fallback != nil {
		return &Profile{Sections: fallback}, true
	}
	return nil, false
}

// pickCandidate scans text tracking brace depth, parses every top-level
// {...} span, and applies the candidate preference order.
func pickCandidate(text string, fallback *map[string]json.RawMessage) (*Profile, bool) {
	var spans []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i, ch := range text {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					spans = append(spans, text[start:i+1])
					start = -1
				}
			}
		}
	}

	var firstKeyed map[string]json.RawMessage
	var best map[string]json.RawMessage
	for _, span := range spans {
		m, ok := parseObject(span)
		if !ok {
			m, ok = parseEscapedVariant(span)
		}
		if !ok {
			continue
		}
		switch {
		case keyCount(m) >= CompleteThreshold:
			if best == nil {
				best = m
			}
		case keyCount(m) >= 1:
			if firstKeyed == nil {
				firstKeyed = m
			}
		default:
			if longerThan(m, *fallback) {
				*fallback = m
			}
		}
	}
	if best != nil {
		return &Profile{Sections: best}, true
	}
	if firstKeyed != nil {
		return &Profile{Sections: firstKeyed}, true
	}
	return nil, false
}

func lastResort(text string, fallback *map[string]json.RawMessage) (*Profile, bool) {
	open := strings.Index(text, "{")
	close := strings.LastIndex(text, "}")
	if open < 0 || close <= open {
		return nil, false
	}
	span := text[open : close+1]
	if m, ok := parseObject(span); ok {
		if keyCount(m) >= 1 {
			return &Profile{Sections: m}, true
		}
		if longerThan(m, *fallback) {
			*fallback = m
		}
	}
	if m, ok := parseEscapedVariant(span); ok && keyCount(m) >= 1 {
		return &Profile{Sections: m}, true
	}

	// A quote right before the opening brace marks one more escaping
	// layer wrapped around the object.
	before := strings.TrimSpace(text[:open])
	if strings.HasSuffix(before, `"`) {
		qStart := strings.LastIndex(text[:open], `"`)
		qEnd := close + 1
		if qEnd < len(text) && text[qEnd] == '"' {
			qEnd++
		}
		if qStart >= 0 && qEnd <= len(text) {
			if m, ok := parseQuoted(text[qStart:qEnd]); ok && keyCount(m) >= 1 {
				return &Profile{Sections: m}, true
			}
		}
	}
	return nil, false
}

// parseObject parses s as a JSON object.
func parseObject(s string) (map[string]json.RawMessage, bool) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// parseQuoted parses s as a JSON string literal, then parses the
// unescaped result as an object. Exactly one escaping layer is removed.
func parseQuoted(s string) (map[string]json.RawMessage, bool) {
	var inner string
	if err := json.Unmarshal([]byte(s), &inner); err != nil {
		return nil, false
	}
	inner = strings.TrimSpace(inner)
	if !strings.HasPrefix(inner, "{") {
		return nil, false
	}
	return parseObject(inner)
}

// parseEscapedVariant retries a span whose line breaks arrived as literal
// backslash escapes from a clipboard or inner_text read.
func parseEscapedVariant(span string) (map[string]json.RawMessage, bool) {
	if !strings.Contains(span, `\n`) && !strings.Contains(span, `\r`) {
		return nil, false
	}
	cleaned := strings.ReplaceAll(span, `\r\n`, "\n")
	cleaned = strings.ReplaceAll(cleaned, `\n`, "\n")
	return parseObject(cleaned)
}

func keyCount(m map[string]json.RawMessage) int {
	n := 0
	for _, k := range ExpectedKeys {
		if _, ok := m[k]; ok {
			n++
		}
	}
	return n
}

func longerThan(m, than map[string]json.RawMessage) bool {
	if than == nil {
		return true
	}
	return rawLen(m) > rawLen(than)
}

func rawLen(m map[string]json.RawMessage) int {
	n := 0
	for k, v := range m {
		n += len(k) + len(v)
	}
	return n
}
