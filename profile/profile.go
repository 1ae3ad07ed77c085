// Package profile defines the harvested company profile and recovers it
// from the noisy text a chat surface yields. The payload is one JSON
// object whose top-level keys are the profile sections; the parser's job
// is to find that object inside whatever wrapping, fencing or escaping
// survived acquisition.
package profile

import "encoding/json"

// ExpectedKeys are the section names the prompt asks for. A payload is
// judged by how many of these appear at the top level.
var ExpectedKeys = []string{"What", "When", "Where", "How", "Who"}

// CompleteThreshold is the number of expected keys a profile needs to be
// considered complete rather than low-confidence.
const CompleteThreshold = 3

// Confidence labels how much of the expected structure was recovered.
type Confidence string

const (
	ConfidenceComplete Confidence = "complete"
	ConfidenceLow      Confidence = "low"
)

// Profile is the recovered multi-section record for one subject.
type Profile struct {
	Sections map[string]json.RawMessage `json:"sections"`
}

// ExpectedKeyCount returns how many expected section keys are present.
func (p *Profile) ExpectedKeyCount() int {
	n := 0
	for _, k := range ExpectedKeys {
		if _, ok := p.Sections[k]; ok {
			n++
		}
	}
	return n
}

// Complete reports whether the profile meets the completeness threshold.
func (p *Profile) Complete() bool {
	return p.ExpectedKeyCount() >= CompleteThreshold
}

// ConfidenceLevel maps completeness to a confidence label.
func (p *Profile) ConfidenceLevel() Confidence {
	if p.Complete() {
		return ConfidenceComplete
	}
	return ConfidenceLow
}

// MarshalJSON renders the profile as the plain section object, the shape
// callers and the store expect.
func (p *Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Sections)
}

// UnmarshalJSON accepts the plain section object.
func (p *Profile) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &p.Sections)
}
