package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Validator soft-validates decoded webhook event data against per-event-type
// JSON schemas. Validation failures are advisory: the webhook handler logs
// them and processes the event anyway, since the provider occasionally adds
// fields ahead of the published schema.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator loads every *.json file from schemaDir and compiles it as the
// schema for the event type named by the file (e.g. "invoice.paid.json"
// validates the data object of invoice.paid events).
func NewValidator(schemaDir string) (*Validator, error) {
	entries, err := os.ReadDir(schemaDir)
	if err != nil {
		return nil, fmt.Errorf("read schema dir %q: %w", schemaDir, err)
	}
	schemas := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		eventType := strings.TrimSuffix(e.Name(), ".json")
		path := filepath.Join(schemaDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", path, err)
		}
		id := "https://menuahora.com/schemas/events/" + eventType
		schemas[eventType], err = jsonschema.CompileString(id, string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", eventType, err)
		}
	}
	return &Validator{schemas: schemas}, nil
}

// ValidateEvent checks data against the schema for eventType. Event types
// with no schema on disk pass implicitly.
func (v *Validator) ValidateEvent(eventType string, data json.RawMessage) error {
	schema, ok := v.schemas[eventType]
	if !ok {
		return nil
	}
	if len(data) == 0 {
		return fmt.Errorf("event %s has empty data", eventType)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("event %s data is not valid JSON: %w", eventType, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("event %s failed schema validation: %w", eventType, err)
	}
	return nil
}
