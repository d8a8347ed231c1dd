package loc

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// toolOutputSchema is the shape we require of the external counter's JSON
// before trusting it: a map of language name to an object carrying the three
// line counts. Extra fields are allowed so tool upgrades don't break us.
const toolOutputSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": {
    "type": "object",
    "required": ["blanks", "code", "comments"],
    "properties": {
      "blanks": {"type": "integer", "minimum": 0},
      "code": {"type": "integer", "minimum": 0},
      "comments": {"type": "integer", "minimum": 0},
      "reports": {
        "type": "array",
        "items": {
          "type": "object",
          "required": ["name", "stats"],
          "properties": {
            "name": {"type": "string"},
            "stats": {"type": "object"}
          }
        }
      }
    }
  }
}`

func validateToolOutput(raw []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(toolOutputSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("failed to validate line counter output: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("line counter output does not match expected schema: %v", result.Errors())
	}
	return nil
}
