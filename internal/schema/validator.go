// Package schema validates canonical records against the embedded JSON
// Schema describing the public record shape.
package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"RegulatoryScanner/internal/domain"
	"RegulatoryScanner/internal/ports"
)

const recordSchemaURL = "https://regscanner.schemas.local/regulatory-record.schema.json"

//go:embed record.schema.json
var recordSchema []byte

// Validator checks records against the compiled record schema. It is safe
// for concurrent use.
type Validator struct {
	schema *jsonschema.Schema
}

var _ ports.RecordValidator = (*Validator)(nil)

// New compiles the embedded schema.
func New() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	c.AssertFormat = true
	if err := c.AddResource(recordSchemaURL, bytes.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("record schema load failed: %w", err)
	}
	compiled, err := c.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("record schema compile failed: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate reports the first schema violations of record.
func (v *Validator) Validate(record domain.RegulatoryRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", record.ID, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode record %s: %w", record.ID, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("record %s: schema validation failed: %w", record.ID, err)
	}
	return nil
}
