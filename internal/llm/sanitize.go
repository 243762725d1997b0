package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stockwatch/stockwatch/internal/common"
)

// summaryKeys are keys models use instead of "summary".
var summaryKeys = []string{"briefing", "text", "content", "report"}

// SanitizeSummaryJSON
// - strips markdown code fences
// - renames known synonyms to "summary"
// - removes unknown keys (additionalProperties = false friendliness)
func SanitizeSummaryJSON(raw []byte) ([]byte, []string, error) {
	s := strings.TrimSpace(string(raw))
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	if _, ok := m["summary"]; !ok {
		for _, k := range summaryKeys {
			if v, ok := m[k]; ok {
				m["summary"] = v
				dropped = append(dropped, k+"->summary")
				break
			}
		}
	}
	if v, ok := m["summary"].(string); ok {
		m["summary"] = strings.TrimSpace(v)
	}
	for k := range m {
		if k != "summary" {
			delete(m, k)
			dropped = append(dropped, k)
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, dropped, nil
}

// ParseSummary validates the model answer strictly, then once more after sanitizing. A rejected
// answer is an LLM_BAD_ANSWER AppError wrapping common.ErrUnavailable.
func ParseSummary(content []byte, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateSummary(content); err != nil {
		cleaned, dropped, sErr := SanitizeSummaryJSON(content)
		if sErr != nil {
			return "", badAnswer(err)
		}
		if vErr := ValidateSummary(cleaned); vErr != nil {
			return "", badAnswer(vErr)
		}
		logger.Warn("llm.summary.lenient_sanitize_applied", "dropped", dropped)
		content = cleaned
	}
	var out struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(content, &out); err != nil {
		return "", badAnswer(err)
	}
	return strings.TrimSpace(out.Summary), nil
}

func badAnswer(err error) error {
	return common.NewAppError("LLM_BAD_ANSWER", "summary answer rejected", fmt.Errorf("%w: %w", common.ErrUnavailable, err))
}
