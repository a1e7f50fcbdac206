package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// BuildFeatureVector converts a structured record into the ordered vector
// the disease classifier expects. Missing or unparseable values take the
// field default, so an empty record yields a fully defaulted vector.
func BuildFeatureVector(record domain.StructuredRecord, diseaseID domain.DiseaseID) (domain.FeatureVector, error) {
	spec, ok := catalog.Lookup(diseaseID)
	if !ok {
		return nil, domain.WrapError(domain.ErrFeatureBuild, "build features", fmt.Errorf("%w: %q", domain.ErrUnknownDisease, diseaseID))
	}

	vector := make(domain.FeatureVector, 0, spec.Cardinality())
	for _, feat := range spec.Layout {
		vector = append(vector, encodeFeature(record[feat.Field], feat.Encoding))
	}
	return vector, nil
}

// BuildFeatureVectorStrict is BuildFeatureVector for direct tabular input:
// every layout field must be present and non-null.
func BuildFeatureVectorStrict(record domain.StructuredRecord, diseaseID domain.DiseaseID) (domain.FeatureVector, error) {
	spec, ok := catalog.Lookup(diseaseID)
	if !ok {
		return nil, domain.WrapError(domain.ErrFeatureBuild, "build features", fmt.Errorf("%w: %q", domain.ErrUnknownDisease, diseaseID))
	}

	var missing []string
	for _, name := range spec.FeatureNames() {
		if v, ok := record[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, domain.WrapError(domain.ErrInvalidInput, "build features", fmt.Errorf("missing fields: %s", strings.Join(missing, ", ")))
	}
	return BuildFeatureVector(record, diseaseID)
}

func encodeFeature(value any, enc catalog.Encoding) float64 {
	switch enc.Kind {
	case catalog.EncodeFlag:
		token, ok := textValue(value)
		if !ok {
			return enc.Default
		}
		if token == enc.Positive {
			return 1
		}
		return 0
	case catalog.EncodeLookup:
		token, ok := textValue(value)
		if !ok {
			return enc.Default
		}
		if code, ok := enc.Table[token]; ok {
			return code
		}
		return enc.Default
	default:
		if n, ok := numberValue(value); ok {
			return n
		}
		return enc.Default
	}
}

// numberValue coerces JSON-ish values to a finite float.
func numberValue(value any) (float64, bool) {
	var n float64
	switch v := value.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// textValue normalizes a categorical value to a trimmed lower-case token.
func textValue(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		token := strings.ToLower(strings.TrimSpace(v))
		return token, token != ""
	case bool:
		return strconv.FormatBool(v), true
	default:
		n, ok := numberValue(v)
		if !ok {
			return "", false
		}
		return strconv.FormatFloat(n, 'f', -1, 64), true
	}
}
