package llm

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SummarySchemaJSON is the shape every provider must answer with. OpenAI gets it as prompt text,
// Gemini as a response schema.
const SummarySchemaJSON = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "summary": {"type": "string", "minLength": 1, "maxLength": 2000}
  },
  "required": ["summary"]
}`

// summarySchema is compiled once; a broken literal is a programming error.
var summarySchema = jsonschema.MustCompileString("summary.json", SummarySchemaJSON)

// SummarySchema returns a fresh decoded copy of SummarySchemaJSON.
func SummarySchema() map[string]any {
	var m map[string]any
	if err := json.Unmarshal([]byte(SummarySchemaJSON), &m); err != nil {
		panic(err)
	}
	return m
}
