package llm

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// Fixtures holds one canned record per disease.
type Fixtures struct {
	records map[domain.DiseaseID]domain.StructuredRecord
}

// LoadFixtures reads fixture records from path, or the embedded defaults
// when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	raw := defaultFixtures
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read fixtures: %w", err)
		}
		raw = b
	}
	return ParseFixtures(raw)
}

func ParseFixtures(raw []byte) (*Fixtures, error) {
	var doc map[string]map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fixtures yaml: %w", err)
	}
	out := &Fixtures{records: make(map[domain.DiseaseID]domain.StructuredRecord, len(doc))}
	for key, fields := range doc {
		// Round-trip through JSON so values carry the same types as a
		// provider response (float64, string, nil).
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", key, err)
		}
		var record domain.StructuredRecord
		if err := json.Unmarshal(b, &record); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", key, err)
		}
		if record == nil {
			record = domain.StructuredRecord{}
		}
		id := domain.DiseaseID(key)
		record[diseaseProperty] = id.String()
		out.records[id] = record
	}
	return out, nil
}

// Record returns a copy of the fixture for id, or a record carrying only
// the disease id when none is defined.
func (f *Fixtures) Record(id domain.DiseaseID) domain.StructuredRecord {
	if f != nil {
		if rec, ok := f.records[id]; ok {
			return rec.Clone()
		}
	}
	return domain.StructuredRecord{diseaseProperty: id.String()}
}
