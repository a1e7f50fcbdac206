package httpadapter

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPISpec []byte

var (
	openAPIOnce sync.Once
	openAPIJSON []byte
	openAPIErr  error
)

// OpenAPIDocument parses and validates the embedded API description and
// returns it rendered as JSON. The result is computed once.
func OpenAPIDocument() ([]byte, error) {
	openAPIOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPISpec)
		if err != nil {
			openAPIErr = fmt.Errorf("load openapi document: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openAPIErr = fmt.Errorf("validate openapi document: %w", err)
			return
		}
		raw, err := doc.MarshalJSON()
		if err != nil {
			openAPIErr = fmt.Errorf("render openapi document: %w", err)
			return
		}
		openAPIJSON = raw
	})
	return openAPIJSON, openAPIErr
}
