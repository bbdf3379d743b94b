package receipts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/defarm/tracectl/pkg/traceerr"
	"github.com/defarm/tracectl/pkg/types"
)

const identifierSchemaURL = "https://tracectl.local/schemas/identifier.schema.json"

const identifierSchemaJSON = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["namespace", "key", "value", "kind"],
		"properties": {
			"namespace": {"type": "string", "minLength": 1},
			"key": {"type": "string", "minLength": 1},
			"value": {"type": "string", "minLength": 1},
			"kind": {"enum": ["canonical", "contextual"]},
			"registry": {"type": "string"},
			"scope": {"enum": ["", "user", "organization", "circuit"]}
		}
	}
}`

// IdentifierSchema validates a receipt's identifiers against spec.md §4.3's
// wire-level ingest contract, independent of types.Identifier's own struct
// tags: a malformed identifier (empty namespace, an unrecognized kind) is
// valid Go but must still be rejected before a receipt is ever persisted.
type IdentifierSchema struct {
	schema *jsonschema.Schema
}

// NewIdentifierSchema compiles the identifier schema once at startup.
func NewIdentifierSchema() (*IdentifierSchema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(identifierSchemaURL, strings.NewReader(identifierSchemaJSON)); err != nil {
		return nil, fmt.Errorf("receipts: load identifier schema: %w", err)
	}
	compiled, err := c.Compile(identifierSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("receipts: compile identifier schema: %w", err)
	}
	return &IdentifierSchema{schema: compiled}, nil
}

// Validate round-trips ids through JSON, since jsonschema validates
// Go-native maps/slices rather than typed structs, and reports any
// violation as a KindValidation error.
func (s *IdentifierSchema) Validate(ids []types.Identifier) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return traceerr.Validation("marshaling identifiers for schema check: %v", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return traceerr.Validation("unmarshaling identifiers for schema check: %v", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return traceerr.Validation("identifiers failed schema validation: %v", err)
	}
	return nil
}
