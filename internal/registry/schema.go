package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// itemsSchema constrains the shape of the generated item schema before
// it is decoded into typed definitions.
const itemsSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": ["items"],
	"properties": {
		"items": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"name": { "type": "string" },
					"model_player": { "type": "string" },
					"model_player_per_class": { "type": "object" },
					"used_by_classes": { "type": "object" },
					"equip_regions": {
						"type": "array",
						"items": { "type": "string" }
					}
				}
			}
		},
		"systems": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"additionalProperties": {
					"type": "object",
					"properties": {
						"name": { "type": "string" },
						"system": { "type": "string" }
					},
					"required": ["system"]
				}
			}
		}
	}
}`

var itemsSchemaCompiled = jsonschema.MustCompileString("items.schema.json", itemsSchema)

// parseItemsDocument validates and decodes an items_{lang}.json or
// medals_{lang}.json payload.
func parseItemsDocument(data []byte) (*itemsDocument, error) {
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("error decoding item schema: %w", err)
	}
	if err := itemsSchemaCompiled.Validate(generic); err != nil {
		return nil, fmt.Errorf("item schema rejected: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	var doc itemsDocument
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("error decoding item schema: %w", err)
	}
	return &doc, nil
}
