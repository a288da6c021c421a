/*
 * === This file is part of Hive ===
 *
 * Copyright 2025 the Hive authors.
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package machine

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// DefinitionSchema is the JSON Schema a machine definition document must
// satisfy before unmarshaling.
const DefinitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "initial", "states", "transitions"],
  "properties": {
    "name": { "type": "string", "minLength": 1 },
    "initial": { "type": "string", "minLength": 1 },
    "defaults": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    },
    "states": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "vars": {
            "type": "object",
            "additionalProperties": { "type": "string" }
          },
          "invariant": { "type": "string" }
        },
        "additionalProperties": false
      }
    },
    "transitions": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["from", "event", "to"],
        "properties": {
          "from": { "type": "string", "minLength": 1 },
          "event": { "type": "string", "minLength": 1 },
          "to": { "type": "string", "minLength": 1 },
          "guard": {
            "type": "object",
            "properties": {
              "can": { "type": "string" },
              "pre": { "type": "string" },
              "post": { "type": "string" }
            },
            "additionalProperties": false
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// ValidateSchema performs schema validation of a machine definition YAML
// document.
func ValidateSchema(input []byte) error {
	var inputData interface{}
	if err := yaml.Unmarshal(input, &inputData); err != nil {
		return fmt.Errorf("unmarshaling YAML failed: %w", err)
	}

	schemaLoader := gojsonschema.NewStringLoader(DefinitionSchema)
	documentLoader := gojsonschema.NewGoLoader(inputData)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("error loading data: %w", err)
	}

	if !result.Valid() {
		return fmt.Errorf("%s", result.Errors()[0])
	}
	return nil
}
