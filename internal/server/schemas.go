package server

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/stockwatch/stockwatch/internal/common"
)

const (
	checkSchema = `{
  "type": "object",
  "properties": {
    "rowId": {"type": "string", "minLength": 1},
    "fields": {"type": "object", "additionalProperties": {"type": ["string", "number", "boolean", "null"]}}
  },
  "required": ["rowId"]
}`

	confirmSchema = `{
  "type": "object",
  "properties": {
    "rowId": {"type": "string", "minLength": 1},
    "baseline": {"type": ["number", "null"]}
  },
  "required": ["rowId"]
}`

	bulkConfirmSchema = `{
  "type": "object",
  "properties": {
    "fileGroup": {"type": "string", "minLength": 1},
    "rowIds": {"type": "array", "items": {"type": "string"}, "minItems": 1}
  },
  "anyOf": [{"required": ["fileGroup"]}, {"required": ["rowIds"]}]
}`

	editSchema = `{
  "type": "object",
  "properties": {
    "fields": {"type": "object", "minProperties": 1, "additionalProperties": {"type": ["string", "number", "boolean", "null"]}}
  },
  "required": ["fields"]
}`

	listAlarmsSchema = `{
  "type": "object",
  "properties": {
    "fileGroup": {"type": "string"}
  }
}`
)

// requestSchemas are compiled once; a broken literal is a programming error.
var requestSchemas = map[string]*jsonschema.Schema{
	"check":        jsonschema.MustCompileString("check.json", checkSchema),
	"confirm":      jsonschema.MustCompileString("confirm.json", confirmSchema),
	"bulk-confirm": jsonschema.MustCompileString("bulk-confirm.json", bulkConfirmSchema),
	"edit":         jsonschema.MustCompileString("edit.json", editSchema),
	"list-alarms":  jsonschema.MustCompileString("list-alarms.json", listAlarmsSchema),
}

// decodeRequest validates body against the named schema, then unmarshals it into dst.
func decodeRequest(name string, body []byte, dst any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return common.NewAppError("INVALID_INPUT", "malformed JSON body", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	if err := requestSchemas[name].Validate(doc); err != nil {
		return common.NewAppError("VALIDATION_ERROR", err.Error(), common.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return common.NewAppError("INVALID_INPUT", "decode request", fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	return nil
}
