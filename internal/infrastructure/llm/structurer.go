package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

// Structurer implements ports.StructuredExtractor.
type Structurer struct {
	gen      Generator
	fixtures *Fixtures
	observer Observer
	logger   *slog.Logger
}

// NewStructurer builds a structurer. A nil generator serves fixtures only.
func NewStructurer(gen Generator, fixtures *Fixtures, observer Observer, logger *slog.Logger) *Structurer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Structurer{
		gen:      gen,
		fixtures: fixtures,
		observer: observer,
		logger:   logger,
	}
}

func (s *Structurer) providerName() string {
	if s.gen == nil {
		return "fixture"
	}
	return s.gen.Name()
}

func (s *Structurer) Structure(ctx context.Context, text string, id domain.DiseaseID) (domain.StructuredRecord, error) {
	if s.gen == nil {
		s.logger.Warn("llm.structure.fallback", "disease_id", id.String(), "reason", "provider not configured")
		s.observe(OutcomeFixture)
		return s.fixtures.Record(id), nil
	}

	req := Request{DiseaseID: id}
	if spec, ok := catalog.Lookup(id); ok {
		req.Spec = &spec
		req.Prompt = buildSchemaPrompt(id, text)
	} else {
		s.logger.Warn("llm.structure.generic_prompt", "disease_id", id.String())
		req.Prompt = buildGenericPrompt(id, text)
	}

	start := time.Now()
	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("llm.structure.call_failed",
			"provider", s.gen.Name(),
			"disease_id", id.String(),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		s.observe(OutcomeCallFailed)
		name := s.gen.Name()
		return domain.NewErrorRecord(id,
			fmt.Sprintf("%s API call failed: %v", name, err),
			fmt.Sprintf("AI analysis failed due to an issue with the %s API. Please check your API key and network.", name),
		), nil
	}

	record, err := decodeRecord(raw)
	if err != nil {
		s.logger.Error("llm.structure.invalid_json",
			"provider", s.gen.Name(),
			"disease_id", id.String(),
			"raw", truncate(raw, 512),
			"error", err,
		)
		s.observe(OutcomeInvalidJSON)
		name := s.gen.Name()
		return domain.NewErrorRecord(id,
			fmt.Sprintf("%s returned invalid JSON. Check %s's output format.", name, name),
			fmt.Sprintf("AI analysis failed due to malformed data from %s. Please try again or provide a clearer report.", name),
		), nil
	}

	if _, ok := record[diseaseProperty].(string); !ok {
		record[diseaseProperty] = id.String()
	}

	outcome := OutcomeOK
	if req.Spec != nil {
		if normalized := normalizeRecord(*req.Spec, record); len(normalized) > 0 {
			s.logger.Info("llm.structure.normalized",
				"provider", s.gen.Name(),
				"disease_id", id.String(),
				"fields", normalized,
			)
		}
		if err := validateRecord(*req.Spec, record); err != nil {
			dropped, serr := sanitizeRecord(*req.Spec, record)
			s.logger.Warn("llm.structure.sanitized",
				"provider", s.gen.Name(),
				"disease_id", id.String(),
				"dropped_fields", dropped,
				"error", err,
			)
			if serr != nil {
				s.logger.Warn("llm.structure.still_invalid", "disease_id", id.String(), "error", serr)
			}
			outcome = OutcomeSanitized
		}
	}
	s.logger.Info("llm.structure.done",
		"provider", s.gen.Name(),
		"disease_id", id.String(),
		"fields", len(record),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.observe(outcome)
	return record, nil
}

func (s *Structurer) observe(outcome string) {
	if s.observer != nil {
		s.observer.ObserveStructuring(s.providerName(), outcome)
	}
}

// decodeRecord parses the provider answer into a JSON object, tolerating
// surrounding prose or code fences.
func decodeRecord(raw string) (domain.StructuredRecord, error) {
	var record domain.StructuredRecord
	if err := json.Unmarshal([]byte(ExtractJSONObject(raw)), &record); err != nil {
		return nil, fmt.Errorf("parse structured json: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("parse structured json: null object")
	}
	return record, nil
}

// ExtractJSONObject trims anything outside the outermost braces.
func ExtractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
