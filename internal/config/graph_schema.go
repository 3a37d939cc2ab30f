package config

import (
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// graphDocumentSchema is the structural shape every graph YAML document
// must satisfy before it is decoded into a GraphConfig: every node needs an
// id, and regular/conditional edges reference a "from" node.
//
// Grounded on internal/gateway/ws_schema.go's wsSchemaRegistry
// (sync.Once-compiled inline jsonschema.CompileString constants, one
// schema per document shape).
const graphDocumentSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"nodes": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"id": {"type": "string", "minLength": 1}
				},
				"required": ["id"]
			}
		},
		"edges": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"from": {"type": "string", "minLength": 1},
					"to": {"type": "string", "minLength": 1}
				},
				"required": ["from", "to"]
			}
		},
		"conditional_edges": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"from": {"type": "string", "minLength": 1},
					"evaluator": {"type": "object"},
					"targets": {"type": "object"}
				},
				"required": ["from", "evaluator"]
			}
		}
	}
}`

var (
	graphSchemaOnce     sync.Once
	graphSchemaCompiled *jsonschema.Schema
	graphSchemaErr      error
)

func compiledGraphSchema() (*jsonschema.Schema, error) {
	graphSchemaOnce.Do(func() {
		graphSchemaCompiled, graphSchemaErr = jsonschema.CompileString("graph.json", graphDocumentSchema)
	})
	return graphSchemaCompiled, graphSchemaErr
}

// validateGraphDocument checks a YAML-decoded-to-any document against
// graphDocumentSchema before it is unmarshaled into a GraphConfig, giving a
// single structural error message instead of a field-by-field yaml decode
// failure.
func validateGraphDocument(raw any) error {
	if raw == nil {
		return nil
	}
	schema, err := compiledGraphSchema()
	if err != nil {
		return fmt.Errorf("compile graph schema: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return fmt.Errorf("graph document does not match schema: %w", err)
	}
	return nil
}
