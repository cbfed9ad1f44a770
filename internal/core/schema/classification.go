package schema

import "encoding/json"

// Classification is the decoded form of a schema-valid payload
type Classification struct {
	Assistance Assistance `json:"assistance"`
	Technology Technology `json:"technology"`
	Summary    Summary    `json:"summary"`
	Health     Health     `json:"health"`
}

// Assistance is the AI-assistance detection group
type Assistance struct {
	Detected   bool     `json:"detected"`
	Tools      []string `json:"tools"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence,omitempty"`
}

// Technology is the technology detection group
type Technology struct {
	Areas     []string `json:"areas"`
	Languages []string `json:"languages,omitempty"`
}

// Summary is the change summary group
type Summary struct {
	Description string `json:"description"`
	ChangeType  string `json:"change_type"`
}

// Health is the qualitative health assessment group
type Health struct {
	Rating     string   `json:"rating"`
	Concerns   []string `json:"concerns,omitempty"`
	Confidence float64  `json:"confidence"`
}

// Decode validates payload for version and unmarshals it.
// A payload accepted by Validate always decodes into a structurally
// complete Classification; a rejected payload returns the violations
func Decode(payload []byte, version string) (Classification, []string, error) {
	ok, violations := Validate(payload, version)
	if !ok {
		return Classification{}, violations, nil
	}
	var c Classification
	if err := json.Unmarshal(payload, &c); err != nil {
		// should be unreachable after Validate, kept as a hard failure
		return Classification{}, nil, err
	}
	return c, nil, nil
}
