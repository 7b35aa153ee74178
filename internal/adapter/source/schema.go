package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const recordSchemaURL = "propertyfinder/record.json"

// recordSchema describes the PropertyFinder fields the normalizer relies on.
// Records that break it are skipped instead of being half-parsed.
const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "anyOf": [
    {"required": ["property_id"]},
    {"required": ["index"]}
  ],
  "properties": {
    "property_id": {"type": ["string", "number"]},
    "index":       {"type": ["string", "number"]},
    "title":       {"type": ["string", "null"]},
    "price":       {"type": ["string", "number", "null"]},
    "bedrooms":    {"type": ["string", "number", "null"]},
    "bathrooms":   {"type": ["string", "number", "null"]},
    "size":        {"type": ["string", "number", "null"]},
    "is_featured": {"type": ["boolean", "null"]},
    "is_premium":  {"type": ["boolean", "null"]},
    "completion_status": {"type": ["string", "null"]},
    "property_type":     {"type": ["string", "null"]},
    "listing_category":  {"type": ["string", "null"]},
    "listing_date":      {"type": ["string", "null"]},
    "amenities": {"type": ["string", "array", "null"]},
    "images":    {"type": ["array", "null"]},
    "location": {
      "type": ["object", "null"],
      "properties": {
        "name":      {"type": ["string", "null"]},
        "full_name": {"type": ["string", "null"]},
        "coordinates": {
          "type": ["object", "null"],
          "properties": {
            "lat": {"type": ["number", "null"]},
            "lon": {"type": ["number", "null"]}
          }
        }
      }
    }
  }
}`

// RecordValidator checks raw API records against the record schema.
type RecordValidator struct {
	schema *jsonschema.Schema
}

// NewRecordValidator compiles the record schema.
func NewRecordValidator() (*RecordValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("add record schema: %w", err)
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &RecordValidator{schema: schema}, nil
}

// Validate parses raw and validates it.
func (v *RecordValidator) Validate(raw json.RawMessage) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("record is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("record schema validation failed: %w", err)
	}
	return nil
}
