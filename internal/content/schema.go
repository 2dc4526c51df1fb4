package content

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schema.json
var reservedSchema []byte

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		schema, schemaErr = compiler.Compile(reservedSchema)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile content schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Validate checks every reserved key present in raw.
func Validate(raw string) error {
	doc, err := Parse(raw)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	return validateKeys(doc, keys)
}

// validateKeys validates only the listed keys so a malformed value written by
// another owner does not block unrelated writes.
func validateKeys(doc Document, keys []string) error {
	subset := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		switch k {
		case KeyWorkflowStage, KeyLifecycle, KeyComments:
			subset[k] = doc[k]
		}
	}
	if len(subset) == 0 {
		return nil
	}
	data, err := json.Marshal(subset)
	if err != nil {
		return fmt.Errorf("encode reserved keys: %w", err)
	}
	compiled, err := loadSchema()
	if err != nil {
		return err
	}
	result := compiled.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("content schema validation failed: %v", result.Errors)
}
