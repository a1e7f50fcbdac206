// Package model loads the per-disease classifiers: linear models from
// YAML artifacts on disk, or a remote model server.
package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	KindLogistic = "logistic"
	KindSoftmax  = "softmax"
)

// Artifact is the on-disk description of a trained linear model.
//
//	kind: logistic
//	features: 8
//	scaler: {mean: [...], scale: [...]}
//	weights: [[...]]   # one row for logistic, one row per class for softmax
//	intercepts: [...]
//	classes: [0, 1, 2] # softmax only, defaults to 0..n-1
type Artifact struct {
	Kind       string      `yaml:"kind"`
	Features   int         `yaml:"features"`
	Scaler     *Scaler     `yaml:"scaler,omitempty"`
	Weights    [][]float64 `yaml:"weights"`
	Intercepts []float64   `yaml:"intercepts"`
	Classes    []int       `yaml:"classes,omitempty"`
}

// Scaler standardizes inputs as (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

func readArtifact(path string) (Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, err
	}
	var a Artifact
	if err := yaml.Unmarshal(raw, &a); err != nil {
		return Artifact{}, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return Artifact{}, fmt.Errorf("artifact %s: %w", path, err)
	}
	return a, nil
}

func (a Artifact) validate() error {
	if a.Features <= 0 {
		return errors.New("features must be positive")
	}
	rows := 1
	switch a.Kind {
	case KindLogistic:
	case KindSoftmax:
		rows = len(a.Weights)
		if rows < 2 {
			return errors.New("softmax needs at least two classes")
		}
		if len(a.Classes) != 0 && len(a.Classes) != rows {
			return fmt.Errorf("classes has %d entries, weights %d rows", len(a.Classes), rows)
		}
	default:
		return fmt.Errorf("unknown kind %q", a.Kind)
	}
	if len(a.Weights) != rows {
		return fmt.Errorf("expected %d weight rows, got %d", rows, len(a.Weights))
	}
	for i, row := range a.Weights {
		if len(row) != a.Features {
			return fmt.Errorf("weight row %d has %d entries, want %d", i, len(row), a.Features)
		}
	}
	if len(a.Intercepts) != rows {
		return fmt.Errorf("expected %d intercepts, got %d", rows, len(a.Intercepts))
	}
	if s := a.Scaler; s != nil {
		if len(s.Mean) != a.Features || len(s.Scale) != a.Features {
			return errors.New("scaler width does not match features")
		}
		for i, v := range s.Scale {
			if v == 0 {
				return fmt.Errorf("scaler scale[%d] is zero", i)
			}
		}
	}
	return nil
}

// LinearModel evaluates a logistic or softmax artifact in process.
type LinearModel struct {
	art Artifact
}

func NewLinearModel(a Artifact) (*LinearModel, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	return &LinearModel{art: a}, nil
}

func (m *LinearModel) InputSize() int { return m.art.Features }

func (m *LinearModel) PredictProbability(_ context.Context, features []float64) ([]float64, error) {
	if len(features) != m.art.Features {
		return nil, fmt.Errorf("model expects %d features, got %d", m.art.Features, len(features))
	}
	x := features
	if s := m.art.Scaler; s != nil {
		x = make([]float64, len(features))
		for i, v := range features {
			x[i] = (v - s.Mean[i]) / s.Scale[i]
		}
	}

	scores := make([]float64, len(m.art.Weights))
	for r, row := range m.art.Weights {
		z := m.art.Intercepts[r]
		for i, w := range row {
			z += w * x[i]
		}
		scores[r] = z
	}

	if m.art.Kind == KindLogistic {
		p := 1 / (1 + math.Exp(-scores[0]))
		return []float64{1 - p, p}, nil
	}
	return softmax(scores), nil
}

func (m *LinearModel) Predict(ctx context.Context, features []float64) (int, error) {
	probs, err := m.PredictProbability(ctx, features)
	if err != nil {
		return 0, err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	if len(m.art.Classes) > 0 {
		return m.art.Classes[best], nil
	}
	return best, nil
}

func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
