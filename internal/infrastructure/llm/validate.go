package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

var compiled sync.Map // domain.DiseaseID -> *jsonschema.Schema

func schemaFor(spec catalog.Spec) (*jsonschema.Schema, error) {
	if v, ok := compiled.Load(spec.ID); ok {
		return v.(*jsonschema.Schema), nil
	}
	b, err := json.Marshal(JSONSchema(spec))
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	url := string(spec.ID) + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := compiled.LoadOrStore(spec.ID, schema)
	return actual.(*jsonschema.Schema), nil
}

// validateRecord checks a decoded record against the catalog schema.
func validateRecord(spec catalog.Spec, record domain.StructuredRecord) error {
	schema, err := schemaFor(spec)
	if err != nil {
		return err
	}
	if err := schema.Validate(map[string]any(record)); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// sanitizeRecord drops the fields that violate the schema so the feature
// builder falls back to defaults. It returns the dropped field names.
func sanitizeRecord(spec catalog.Spec, record domain.StructuredRecord) ([]string, error) {
	if _, ok := record[diseaseProperty].(string); !ok {
		record[diseaseProperty] = spec.ID.String()
	}
	var dropped []string
	for {
		err := validateRecord(spec, record)
		if err == nil {
			sort.Strings(dropped)
			return dropped, nil
		}
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return dropped, err
		}
		removed := 0
		for _, name := range offendingFields(verr) {
			if name == diseaseProperty {
				continue
			}
			if _, ok := record[name]; ok {
				delete(record, name)
				dropped = append(dropped, name)
				removed++
			}
		}
		if removed == 0 {
			return dropped, err
		}
	}
}

// offendingFields collects the top-level property names referenced by the
// leaf validation errors.
func offendingFields(verr *jsonschema.ValidationError) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := strings.TrimPrefix(e.InstanceLocation, "/")
			if i := strings.Index(loc, "/"); i >= 0 {
				loc = loc[:i]
			}
			if loc != "" && !seen[loc] {
				seen[loc] = true
				out = append(out, loc)
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return out
}
