package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FeatureVector is the ordered numeric input of a disease classifier.
type FeatureVector []float64

type OutcomeKind int

const (
	OutcomeProbability OutcomeKind = iota + 1
	OutcomeClass
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeProbability:
		return "probability"
	case OutcomeClass:
		return "class"
	default:
		return "unknown"
	}
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	switch k {
	case OutcomeProbability, OutcomeClass:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("unknown outcome kind %d", int(k))
	}
}

// UnmarshalJSON accepts the kind name and the numeric form written by
// earlier releases.
func (k *OutcomeKind) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		n, nerr := strconv.Atoi(string(b))
		if nerr != nil {
			return fmt.Errorf("decode outcome kind: %w", err)
		}
		name = OutcomeKind(n).String()
	}
	switch name {
	case "probability":
		*k = OutcomeProbability
	case "class":
		*k = OutcomeClass
	default:
		return fmt.Errorf("unknown outcome kind %q", name)
	}
	return nil
}

// Outcome is either a probability of the positive class or a discrete
// class label. Kind tells which field is meaningful.
type Outcome struct {
	Kind        OutcomeKind `json:"kind"`
	Probability float64     `json:"probability"`
	Class       int         `json:"class"`
}

// MarshalJSON writes only the value that matches Kind, zero included.
func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.Kind {
	case OutcomeProbability:
		return json.Marshal(struct {
			Kind        OutcomeKind `json:"kind"`
			Probability float64     `json:"probability"`
		}{o.Kind, o.Probability})
	case OutcomeClass:
		return json.Marshal(struct {
			Kind  OutcomeKind `json:"kind"`
			Class int         `json:"class"`
		}{o.Kind, o.Class})
	default:
		return nil, fmt.Errorf("unknown outcome kind %d", int(o.Kind))
	}
}

func ProbabilityOutcome(p float64) Outcome {
	return Outcome{Kind: OutcomeProbability, Probability: p}
}

func ClassOutcome(class int) Outcome {
	return Outcome{Kind: OutcomeClass, Class: class}
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeProbability:
		return fmt.Sprintf("probability=%.4f", o.Probability)
	case OutcomeClass:
		return fmt.Sprintf("class=%d", o.Class)
	default:
		return "none"
	}
}
