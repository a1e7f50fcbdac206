package llm

import (
	"fmt"

	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func buildSchemaPrompt(id domain.DiseaseID, text string) string {
	return fmt.Sprintf(`You are a medical report analysis assistant. From the following medical report text,
extract the relevant numerical and categorical parameters for %s and
return them as a JSON object. Ensure the output strictly adheres to the provided JSON schema.
If a parameter is not explicitly found or is not applicable, use a sensible default (e.g., null, 0, or -1, depending on the parameter type).
For categorical fields, ensure the value is one of the allowed enum values.

**Report Text:**
"""%s"""
`, id, text)
}

func buildGenericPrompt(id domain.DiseaseID, text string) string {
	return fmt.Sprintf(`You are a medical report analysis assistant. From the following medical report text,
extract the relevant numerical and categorical parameters for %s and
return them as a JSON object. If a parameter is not explicitly found, use a
sensible default (e.g., 0, -1, or null, depending on the parameter).

**Report Text:**
"""%s"""

Please provide ONLY the JSON object.
`, id, text)
}
