// Package catalog holds the per-disease table that drives the extraction
// schema, the feature layout and the risk policy. Every consumer reads the
// same entry so the three never drift apart.
package catalog

import (
	"fmt"
	"sort"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

type FieldType int

const (
	Number FieldType = iota + 1
	String
)

func (t FieldType) String() string {
	switch t {
	case Number:
		return "number"
	case String:
		return "string"
	default:
		return "unknown"
	}
}

// Field is one property of the structured record requested from the
// extraction service.
type Field struct {
	Name     string
	Type     FieldType
	Enum     []any
	Nullable bool
}

type EncodingKind int

const (
	EncodeNumeric EncodingKind = iota + 1
	EncodeFlag
	EncodeLookup
)

// Encoding turns one record value into one feature value.
type Encoding struct {
	Kind    EncodingKind
	Default float64
	// Positive is the lower-case token mapped to 1 by EncodeFlag.
	Positive string
	// Table keys are lower-case.
	Table map[string]float64
}

type Feature struct {
	Field    string
	Encoding Encoding
}

type OutputKind int

const (
	Probabilistic OutputKind = iota + 1
	Discrete
)

type RiskPolicyKind int

const (
	RiskThresholds RiskPolicyKind = iota + 1
	RiskClassTable
)

// RiskPolicy maps a prediction outcome to a verdict.
type RiskPolicy struct {
	Kind RiskPolicyKind

	// Thresholds: p < LowBelow is Low, p < MediumBelow is Medium, else High.
	// A class outcome maps 0 to Low, 1 to High and anything else to
	// Unexpected.
	LowBelow    float64
	MediumBelow float64
	Low         domain.RiskVerdict
	Medium      domain.RiskVerdict
	High        domain.RiskVerdict
	Unexpected  domain.RiskVerdict

	// Class table, used for discrete-only diseases.
	Classes   map[int]domain.RiskVerdict
	Otherwise domain.RiskVerdict
}

// Spec is a single catalog entry.
type Spec struct {
	ID        domain.DiseaseID
	Title     string
	ModelFile string
	Fields    []Field
	Layout    []Feature
	Output    OutputKind
	Risk      RiskPolicy
}

func (s Spec) Cardinality() int {
	return len(s.Layout)
}

func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FeatureNames returns the layout field names in vector order.
func (s Spec) FeatureNames() []string {
	out := make([]string, 0, len(s.Layout))
	for _, f := range s.Layout {
		out = append(out, f.Field)
	}
	return out
}

var specs = map[domain.DiseaseID]Spec{}

// expectedCardinality pins the input width of every trained model.
var expectedCardinality = map[domain.DiseaseID]int{
	domain.DiseaseDiabetes:     8,
	domain.DiseaseHeart:        13,
	domain.DiseaseHypertension: 7,
	domain.DiseaseCKD:          23,
	domain.DiseaseLiver:        10,
	domain.DiseaseThyroid:      28,
	domain.DiseaseCancer:       17,
}

func register(spec Spec) {
	if _, exists := specs[spec.ID]; exists {
		panic(fmt.Sprintf("catalog: duplicate disease %q", spec.ID))
	}
	specs[spec.ID] = spec
}

func init() {
	for _, spec := range builtinSpecs() {
		register(spec)
	}
	if err := Validate(); err != nil {
		panic(err)
	}
}

// Lookup returns the catalog entry for a disease.
func Lookup(id domain.DiseaseID) (Spec, bool) {
	spec, ok := specs[id]
	return spec, ok
}

// IDs returns every registered disease in a stable order.
func IDs() []domain.DiseaseID {
	out := make([]domain.DiseaseID, 0, len(specs))
	for id := range specs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func All() []Spec {
	ids := IDs()
	out := make([]Spec, 0, len(ids))
	for _, id := range ids {
		out = append(out, specs[id])
	}
	return out
}

// Validate cross-checks every entry: layout fields must exist in the
// schema, names must be unique and the layout width must match the model.
func Validate() error {
	for id, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return fmt.Errorf("catalog %s: %w", id, err)
		}
		want, ok := expectedCardinality[id]
		if !ok {
			continue
		}
		if spec.Cardinality() != want {
			return fmt.Errorf("catalog %s: layout has %d features, model expects %d", id, spec.Cardinality(), want)
		}
	}
	return nil
}

func validateSpec(spec Spec) error {
	if spec.ID == "" {
		return fmt.Errorf("empty disease id")
	}
	seen := make(map[string]struct{}, len(spec.Fields))
	for _, f := range spec.Fields {
		if f.Name == "" {
			return fmt.Errorf("field with empty name")
		}
		if f.Name == domain.RecordKeyDisease {
			return fmt.Errorf("field %q is reserved", f.Name)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicate field %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}

	used := make(map[string]struct{}, len(spec.Layout))
	for i, feat := range spec.Layout {
		if _, ok := seen[feat.Field]; !ok {
			return fmt.Errorf("feature %d references unknown field %q", i, feat.Field)
		}
		if _, dup := used[feat.Field]; dup {
			return fmt.Errorf("feature field %q used twice", feat.Field)
		}
		used[feat.Field] = struct{}{}
		switch feat.Encoding.Kind {
		case EncodeNumeric:
		case EncodeFlag:
			if feat.Encoding.Positive == "" {
				return fmt.Errorf("flag feature %q has no positive token", feat.Field)
			}
		case EncodeLookup:
			if len(feat.Encoding.Table) == 0 {
				return fmt.Errorf("lookup feature %q has empty table", feat.Field)
			}
		default:
			return fmt.Errorf("feature %q has no encoding", feat.Field)
		}
	}

	switch spec.Risk.Kind {
	case RiskThresholds:
		if !(spec.Risk.LowBelow > 0 && spec.Risk.LowBelow < spec.Risk.MediumBelow && spec.Risk.MediumBelow <= 1) {
			return fmt.Errorf("invalid risk thresholds %.2f/%.2f", spec.Risk.LowBelow, spec.Risk.MediumBelow)
		}
	case RiskClassTable:
		if len(spec.Risk.Classes) == 0 {
			return fmt.Errorf("class table risk policy without classes")
		}
	default:
		return fmt.Errorf("missing risk policy")
	}
	if spec.Output != Probabilistic && spec.Output != Discrete {
		return fmt.Errorf("missing output kind")
	}
	return nil
}
