package traceconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrSchemaViolation is returned when a config document fails schema
// validation; the wrapped message lists every violation.
var ErrSchemaViolation = errors.New("config schema violation")

// configSchema is the JSON schema a config document must satisfy. Kept
// strict (additionalProperties: false) so typos in key names fail loudly
// instead of silently falling back to defaults.
const configSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "spine": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "effort": {"type": "integer", "minimum": 1}
      }
    },
    "batcher": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "chunk_capacity": {"type": "string", "minLength": 1}
      }
    },
    "telemetry": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "otlp_endpoint": {"type": "string"},
        "otlp_insecure": {"type": "boolean"},
        "log_json": {"type": "boolean"}
      }
    }
  }
}`

// ValidateFile checks a YAML config file against the config schema,
// reporting every violation at once. Load does not call this itself;
// callers that want strict key checking (the demo CLI's --config path)
// run it before Load.
func ValidateFile(path string) error {
	raw, readErr := os.ReadFile(path) //nolint:gosec // caller-supplied config path
	if readErr != nil {
		return fmt.Errorf("read config: %w", readErr)
	}

	var doc any

	unmarshalErr := yaml.Unmarshal(raw, &doc)
	if unmarshalErr != nil {
		return fmt.Errorf("parse config: %w", unmarshalErr)
	}

	if doc == nil {
		return nil
	}

	schemaLoader := gojsonschema.NewStringLoader(configSchema)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}

	return fmt.Errorf("%w: %s", ErrSchemaViolation, strings.Join(msgs, "; "))
}
