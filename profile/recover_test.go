package profile

import (
	"encoding/json"
	"testing"
)

func section(t *testing.T, p *Profile, key string) string {
	t.Helper()
	raw, ok := p.Sections[key]
	if !ok {
		t.Fatalf("section %q missing", key)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("section %q not a string: %v", key, err)
	}
	return s
}

func TestRecover_DirectObject(t *testing.T) {
	p, ok := Recover(`{"What": "Builds turbines", "When": "1987", "Where": "Oslo"}`)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if !p.Complete() {
		t.Errorf("Complete() = false with 3 expected keys")
	}
	if got := section(t, p, "Where"); got != "Oslo" {
		t.Errorf("Where = %q, want %q", got, "Oslo")
	}
}

func TestRecover_FencedWithNoise(t *testing.T) {
	// WHAT: The object survives chat preamble, a code fence and a sign-off.
	text := "Sure, here is the profile you asked for:\n" +
		"```json\n{\"What\": \"Retail\", \"When\": \"2001\", \"Who\": \"Two founders\"}\n```\n" +
		"Let me know if you need anything else."
	p, ok := Recover(text)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if n := p.ExpectedKeyCount(); n != 3 {
		t.Errorf("ExpectedKeyCount() = %d, want 3", n)
	}
	if got := section(t, p, "When"); got != "2001" {
		t.Errorf("When = %q, want %q", got, "2001")
	}
}

func TestRecover_QuotedEscapedString(t *testing.T) {
	// WHAT: The payload arrives as a JSON string literal holding the
	// escaped object; exactly one escaping layer comes off.
	text := `"{\"What\": \"Freight\", \"Where\": \"Rotterdam\", \"How\": \"Rail\"}"`
	p, ok := Recover(text)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if got := section(t, p, "How"); got != "Rail" {
		t.Errorf("How = %q, want %q", got, "Rail")
	}
}

func TestRecover_EscapedLayerInsideNoise(t *testing.T) {
	text := `The raw response was "{\"What\": \"Mining\", \"When\": \"1954\", \"Who\": \"State-owned\"}" according to the log.`
	p, ok := Recover(text)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if got := section(t, p, "What"); got != "Mining" {
		t.Errorf("What = %q, want %q", got, "Mining")
	}
}

func TestRecover_PrefersCandidateWithExpectedKeys(t *testing.T) {
	// WHAT: Two brace-balanced candidates; only the second carries the
	// expected keys, so it wins over the earlier, larger object.
	text := `Config dump: {"theme": "dark", "locale": "en-US", "flags": {"beta": true}}` +
		` and the answer {"What": "Insurance", "When": "1921", "Where": "Zurich"} follows.`
	p, ok := Recover(text)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if !p.Complete() {
		t.Error("expected the keyed candidate, got an incomplete profile")
	}
	if got := section(t, p, "Where"); got != "Zurich" {
		t.Errorf("Where = %q, want %q", got, "Zurich")
	}
}

func TestRecover_LiteralNewlineEscapes(t *testing.T) {
	// WHAT: Clipboard reads sometimes deliver line breaks as literal
	// backslash escapes between fields.
	text := `answer: {\n"What": "Pharma",\n"When": "1969",\n"Who": "Family held"\n}`
	p, ok := Recover(text)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if got := section(t, p, "Who"); got != "Family held" {
		t.Errorf("Who = %q, want %q", got, "Family held")
	}
}

func TestRecover_FallbackKeepsParseableObject(t *testing.T) {
	// WHAT: An object with no expected keys is still returned rather than
	// dropped, flagged low-confidence by the caller.
	p, ok := Recover(`{"summary": "a paragraph about the firm"}`)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if p.Complete() {
		t.Error("Complete() = true for object without expected keys")
	}
	if _, present := p.Sections["summary"]; !present {
		t.Error("fallback object lost its content")
	}
}

func TestRecover_NoObject(t *testing.T) {
	for _, text := range []string{"", "   ", "no braces here at all", "{ not json"} {
		if p, ok := Recover(text); ok {
			t.Errorf("Recover(%q) = %+v, true; want false", text, p)
		}
	}
}

func TestRecover_PartialKeysStillFound(t *testing.T) {
	p, ok := Recover(`noise before {"What": "Logistics"} noise after`)
	if !ok {
		t.Fatal("Recover returned false")
	}
	if p.Complete() {
		t.Error("one key should not be complete")
	}
	if p.ConfidenceLevel() != ConfidenceLow {
		t.Errorf("ConfidenceLevel() = %q, want %q", p.ConfidenceLevel(), ConfidenceLow)
	}
}
