package schema

import (
	"sort"
	"strings"
	"testing"
)

const valid = `{
	"assistance": {"detected": true, "tools": ["claude"], "confidence": 0.92, "evidence": ["trailer match"]},
	"technology": {"areas": ["backend", "testing"], "languages": ["go"]},
	"summary": {"description": "reworked the retry loop", "change_type": "bugfix"},
	"health": {"rating": "healthy", "concerns": [], "confidence": 0.7}
}`

func TestValidatePasses(t *testing.T) {
	ok, violations := Validate([]byte(valid), "1.0.0")
	if !ok {
		t.Fatalf("valid payload rejected: %v", violations)
	}
	if violations != nil {
		t.Fatalf("violations on success: %v", violations)
	}
}

func TestValidateReportsFields(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		needle  string
	}{
		{
			name:    "missing group",
			payload: `{"assistance": {"detected": false, "tools": [], "confidence": 0}}`,
			needle:  "technology",
		},
		{
			name: "wrong type",
			payload: strings.Replace(valid,
				`"detected": true`, `"detected": "yes"`, 1),
			needle: "detected",
		},
		{
			name: "out of range confidence",
			payload: strings.Replace(valid,
				`"confidence": 0.92`, `"confidence": 1.5`, 1),
			needle: "confidence",
		},
		{
			name: "unknown tool enum",
			payload: strings.Replace(valid,
				`"tools": ["claude"]`, `"tools": ["skynet"]`, 1),
			needle: "tools",
		},
		{
			name: "additional property",
			payload: strings.Replace(valid,
				`"assistance": {`, `"extra": 1, "assistance": {`, 1),
			needle: "extra",
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ok, violations := Validate([]byte(c.payload), "1.0.0")
			if ok {
				t.Fatal("invalid payload accepted")
			}
			if len(violations) == 0 {
				t.Fatal("no violations reported")
			}
			joined := strings.Join(violations, "\n")
			if !strings.Contains(joined, c.needle) {
				t.Fatalf("violations %v do not name %q", violations, c.needle)
			}
			if !sort.StringsAreSorted(violations) {
				t.Fatalf("violations not sorted: %v", violations)
			}
		})
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	ok, violations := Validate([]byte(`{"assistance": `), "1.0.0")
	if ok || len(violations) == 0 {
		t.Fatal("malformed JSON must report violations, not panic or pass")
	}
}

func TestValidateUnknownVersion(t *testing.T) {
	ok, violations := Validate([]byte(valid), "9.9.9")
	if ok || len(violations) == 0 {
		t.Fatal("unknown version must report a violation")
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	payload := []byte(valid)
	before := string(payload)
	_, _ = Validate(payload, "1.0.0")
	if string(payload) != before {
		t.Fatal("payload mutated")
	}
}

func TestKnownAndVersions(t *testing.T) {
	if !Known("1.0.0") {
		t.Fatal("1.0.0 must be known")
	}
	if Known("0.1.0") {
		t.Fatal("0.1.0 must be unknown")
	}
	vs := Versions()
	found := false
	for _, v := range vs {
		if v == "1.0.0" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Versions() = %v", vs)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	c, violations, err := Decode([]byte(valid), "1.0.0")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if violations != nil {
		t.Fatalf("violations: %v", violations)
	}
	if !c.Assistance.Detected || c.Assistance.Tools[0] != "claude" {
		t.Fatalf("assistance = %+v", c.Assistance)
	}
	if c.Summary.ChangeType != "bugfix" || c.Health.Rating != "healthy" {
		t.Fatalf("decoded = %+v", c)
	}
	if c.Health.Confidence != 0.7 || c.Assistance.Confidence != 0.92 {
		t.Fatalf("confidences = %v %v", c.Health.Confidence, c.Assistance.Confidence)
	}
}

func TestDecodeRejectsInvalid(t *testing.T) {
	_, violations, err := Decode([]byte(`{"assistance": {}}`), "1.0.0")
	if err == nil && len(violations) == 0 {
		t.Fatal("invalid payload decoded cleanly")
	}
}
