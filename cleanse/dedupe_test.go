package cleanse

import "testing"

func TestDedupeSentences_DropsRepeats(t *testing.T) {
	in := "The firm was founded in 1998. The firm was founded in 1998. It is based in Austin."
	got := DedupeSentences(in)
	want := "The firm was founded in 1998. It is based in Austin."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeSentences_NearDuplicates(t *testing.T) {
	// WHAT: Units differing only in case, commas and surrounding quotes
	// collapse to one.
	in := "Revenue grew, fast. \"revenue grew fast.\" Margins held."
	got := DedupeSentences(in)
	want := "Revenue grew, fast. Margins held."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeSentences_StopBehindClosingQuote(t *testing.T) {
	// WHAT: A sentence ending inside quotes or brackets still splits at
	// the stop, so the quoted repeat dedupes instead of fusing into its
	// neighbor.
	in := "(It trades on the NYSE.) It trades on the NYSE. Volume is thin."
	got := DedupeSentences(in)
	want := "(It trades on the NYSE.) Volume is thin."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeSentences_SemicolonClauses(t *testing.T) {
	// WHAT: Clauses repeated behind semicolons dedupe independently.
	in := "Ships worldwide; ships worldwide; sells direct."
	got := DedupeSentences(in)
	want := "Ships worldwide; sells direct."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeSentences_DropsTinyUnits(t *testing.T) {
	in := "Ok. A genuinely informative sentence about the business."
	got := DedupeSentences(in)
	want := "A genuinely informative sentence about the business."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDedupeSentences_Idempotent(t *testing.T) {
	// WHAT: Applying the deduplicator to its own output changes nothing.
	// WHY: Acquisition may normalize the same capture more than once.
	inputs := []string{
		"The firm was founded in 1998. The firm was founded in 1998. It is based in Austin.",
		"Ships worldwide; ships worldwide; sells direct.",
		"One plain sentence without any terminal repetition at all.",
		"Line one here.\nLine two here.\nLine one here.",
	}
	for _, in := range inputs {
		once := DedupeSentences(in)
		twice := DedupeSentences(once)
		if once != twice {
			t.Errorf("not idempotent:\n in: %q\nonce: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestDedupeSentences_Empty(t *testing.T) {
	if got := DedupeSentences("   "); got != "   " {
		t.Errorf("blank input should pass through, got %q", got)
	}
}
