package llm

import (
	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
)

const diseaseProperty = "disease"

// JSONSchema renders the catalog entry as a draft 2020-12 JSON Schema.
// Every field is nullable so a report that lacks a value stays valid.
func JSONSchema(spec catalog.Spec) map[string]any {
	props := map[string]any{
		diseaseProperty: map[string]any{"type": "string"},
	}
	for _, f := range spec.Fields {
		prop := map[string]any{"type": []any{f.Type.String(), "null"}}
		if len(f.Enum) > 0 {
			enum := append([]any{}, f.Enum...)
			prop["enum"] = append(enum, nil)
		}
		props[f.Name] = prop
	}
	return map[string]any{
		"$schema":    "https://json-schema.org/draft/2020-12/schema",
		"type":       "object",
		"properties": props,
		"required":   []any{diseaseProperty},
	}
}

// GeminiSchema renders the catalog entry in the OpenAPI subset accepted
// by generateContent's responseSchema.
func GeminiSchema(spec catalog.Spec) map[string]any {
	props := map[string]any{
		diseaseProperty: map[string]any{"type": "STRING"},
	}
	ordering := []string{diseaseProperty}
	for _, f := range spec.Fields {
		prop := map[string]any{"nullable": true}
		switch f.Type {
		case catalog.String:
			prop["type"] = "STRING"
			// Gemini only accepts string enums.
			if len(f.Enum) > 0 {
				enum := make([]string, 0, len(f.Enum))
				for _, v := range f.Enum {
					if s, ok := v.(string); ok {
						enum = append(enum, s)
					}
				}
				prop["enum"] = enum
			}
		default:
			prop["type"] = "NUMBER"
		}
		props[f.Name] = prop
		ordering = append(ordering, f.Name)
	}
	return map[string]any{
		"type":             "OBJECT",
		"properties":       props,
		"required":         []string{diseaseProperty},
		"propertyOrdering": ordering,
	}
}
