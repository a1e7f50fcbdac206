package domain

import (
	"encoding/json"
	"testing"
)

func TestOutcomeJSONKeepsZeroValues(t *testing.T) {
	cases := []struct {
		outcome Outcome
		want    string
	}{
		{ProbabilityOutcome(0), `{"kind":"probability","probability":0}`},
		{ProbabilityOutcome(0.82), `{"kind":"probability","probability":0.82}`},
		{ClassOutcome(0), `{"kind":"class","class":0}`},
		{ClassOutcome(2), `{"kind":"class","class":2}`},
	}
	for _, tc := range cases {
		b, err := json.Marshal(tc.outcome)
		if err != nil {
			t.Fatalf("Marshal(%v) error = %v", tc.outcome, err)
		}
		if string(b) != tc.want {
			t.Fatalf("Marshal(%v) = %s, want %s", tc.outcome, b, tc.want)
		}

		var back Outcome
		if err := json.Unmarshal(b, &back); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", b, err)
		}
		if back != tc.outcome {
			t.Fatalf("decoded %+v, want %+v", back, tc.outcome)
		}
	}
}

func TestOutcomeDecodesNumericKind(t *testing.T) {
	var o Outcome
	if err := json.Unmarshal([]byte(`{"kind":2,"class":1}`), &o); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if o.Kind != OutcomeClass || o.Class != 1 {
		t.Fatalf("unexpected outcome %+v", o)
	}
	if err := json.Unmarshal([]byte(`{"kind":"vote"}`), &o); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestOutcomeMarshalRejectsUnsetKind(t *testing.T) {
	if _, err := json.Marshal(Outcome{}); err == nil {
		t.Fatalf("expected error for outcome without kind")
	}
}
