package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidateSummary checks a model answer against the summary schema.
func ValidateSummary(data []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if err := summarySchema.Validate(v); err != nil {
		return fmt.Errorf("answer does not match summary schema: %w", err)
	}
	return nil
}
