package cleanse

import (
	"regexp"
	"strings"
	"unicode"
)

// minUnitChars is the shortest normalized unit worth keeping. Anything
// shorter is connective debris left over from splitting.
const minUnitChars = 5

var (
	spaceRun        = regexp.MustCompile(`\s+`)
	spaceBeforeStop = regexp.MustCompile(`\s+([,.;:!?])`)
)

// DedupeSentences removes duplicate and near-duplicate sentence units
// from text. Units are compared on a normalized form (lowercase,
// whitespace collapsed, leading quotes stripped, commas removed) but
// survivors keep their original casing and order. Applying it to its own
// output is a no-op.
func DedupeSentences(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	seen := make(map[string]struct{})
	var out []string
	for _, unit := range splitUnits(text) {
		clauses := splitClauses(unit)
		for _, clause := range clauses {
			norm := normalizeUnit(clause)
			if len(norm) < minUnitChars {
				continue
			}
			if _, dup := seen[norm]; dup {
				continue
			}
			seen[norm] = struct{}{}
			out = append(out, strings.TrimSpace(clause))
		}
	}

	cleaned := strings.Join(out, " ")
	cleaned = spaceBeforeStop.ReplaceAllString(cleaned, "$1")
	cleaned = multiSpace.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// splitUnits breaks text into sentence-like units: explicit line breaks,
// and terminal punctuation followed by a capital, digit, quote or
// opening bracket.
func splitUnits(text string) []string {
	var units []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		units = append(units, splitLine(line)...)
	}
	return units
}

func splitLine(line string) []string {
	runes := []rune(line)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != '.' && ch != '?' && ch != '!' {
			continue
		}
		end := i + 1
		for end < len(runes) && closesSentence(runes[end]) {
			end++
		}
		j := end
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == end || j >= len(runes) {
			continue // no whitespace boundary after the stop
		}
		if !startsSentence(runes[j]) {
			continue
		}
		if unit := strings.TrimSpace(string(runes[start:end])); unit != "" {
			out = append(out, unit)
		}
		start = j
		i = j - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) ||
		r == '"' || r == '\'' || r == '(' || r == '['
}

// closesSentence matches the quote or bracket a terminal stop may hide
// behind, as in `fast." Margins`.
func closesSentence(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == ']' ||
		r == '”' || r == '’'
}

// splitClauses breaks a unit on internal semicolons and dash separators
// so repeated clauses inside one sentence dedupe independently.
func splitClauses(unit string) []string {
	runes := []rune(unit)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		if ch != ';' && ch != '—' && ch != '–' {
			continue
		}
		if i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if clause := strings.TrimSpace(string(runes[start : i+1])); clause != "" {
			out = append(out, clause)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	if len(out) == 0 {
		return []string{unit}
	}
	return out
}

// normalizeUnit produces the comparison key for a unit. Output casing is
// never taken from this form.
func normalizeUnit(s string) string {
	s = strings.TrimSpace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = strings.Trim(s, "\"'`•–—- ()[]")
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, ",", "")
	return s
}
