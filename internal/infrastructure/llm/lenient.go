package llm

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// normalizeRecord rewrites recoverable values in place so they satisfy the
// catalog schema: numeric strings become numbers, numbers become strings
// for string fields, and categorical values are mapped case-insensitively
// (or through the feature lookup table) to the catalog spelling. Values
// that cannot be recovered are left untouched for sanitizeRecord to drop.
// It returns the names of the fields it changed.
func normalizeRecord(spec catalog.Spec, record domain.StructuredRecord) []string {
	var changed []string
	for _, f := range spec.Fields {
		v, ok := record[f.Name]
		if !ok || v == nil {
			continue
		}
		var (
			next     any
			accepted bool
		)
		switch f.Type {
		case catalog.Number:
			next, accepted = normalizeNumber(f, v)
		case catalog.String:
			next, accepted = normalizeString(spec, f, v)
		}
		if !accepted {
			continue
		}
		if next != v {
			record[f.Name] = next
			changed = append(changed, f.Name)
		}
	}
	sort.Strings(changed)
	return changed
}

func normalizeNumber(f catalog.Field, v any) (any, bool) {
	if s, ok := v.(string); ok && isNullToken(s) {
		return nil, true
	}
	n, ok := coerceNumber(v)
	if !ok {
		return nil, false
	}
	if len(f.Enum) == 0 {
		return n, true
	}
	for _, e := range f.Enum {
		if en, ok := coerceNumber(e); ok && en == n {
			return n, true
		}
	}
	return nil, false
}

func normalizeString(spec catalog.Spec, f catalog.Field, v any) (any, bool) {
	var s string
	switch t := v.(type) {
	case string:
		s = strings.TrimSpace(t)
	case bool:
		s = strconv.FormatBool(t)
	default:
		n, ok := coerceNumber(t)
		if !ok {
			return nil, false
		}
		s = strconv.FormatFloat(n, 'f', -1, 64)
	}
	if isNullToken(s) {
		return nil, true
	}
	if len(f.Enum) == 0 {
		return s, true
	}
	for _, e := range f.Enum {
		if es, ok := e.(string); ok && strings.EqualFold(es, s) {
			return es, true
		}
	}
	// Synonyms: a token the feature table encodes maps to the enum entry
	// carrying the same code.
	table := lookupTable(spec, f.Name)
	code, ok := table[strings.ToLower(s)]
	if !ok {
		return nil, false
	}
	for _, e := range f.Enum {
		es, ok := e.(string)
		if !ok {
			continue
		}
		if c, ok := table[strings.ToLower(es)]; ok && c == code {
			return es, true
		}
	}
	return nil, false
}

func lookupTable(spec catalog.Spec, field string) map[string]float64 {
	for _, feat := range spec.Layout {
		if feat.Field == field && feat.Encoding.Kind == catalog.EncodeLookup {
			return feat.Encoding.Table
		}
	}
	return nil
}

func isNullToken(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "n/a")
}

func coerceNumber(v any) (float64, bool) {
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case int:
		n = float64(t)
	case int64:
		n = float64(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
