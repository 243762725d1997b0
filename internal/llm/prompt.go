package llm

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

// DefaultMaxPromptRunes bounds the user prompt when the request does not set its own limit.
const DefaultMaxPromptRunes = 4000

// BuildSystemPrompt tells the model to restate the given numbers, never to compute new ones.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an inventory assistant writing a short stock briefing for a warehouse manager.",
		"Use ONLY the numbers in the provided statistics; never recompute, estimate or invent figures.",
		"Mention critical shortages first, then warnings. Keep it to 2-4 sentences.",
		"Answer in the language of the item names when they are not English.",
		`Return ONLY JSON of the form {"summary": "..."}.`,
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt serialises the statistics, dropping shortage lines from the end until the prompt
// fits req.MaxPromptRunes.
func BuildUserPrompt(req SummaryRequest) string {
	limit := req.MaxPromptRunes
	if limit <= 0 {
		limit = DefaultMaxPromptRunes
	}
	for {
		p := renderUserPrompt(req)
		if utf8.RuneCountInString(p) <= limit || len(req.TopShortages) == 0 {
			return truncateRunes(p, limit)
		}
		req.TopShortages = req.TopShortages[:len(req.TopShortages)-1]
	}
}

func renderUserPrompt(req SummaryRequest) string {
	b, _ := json.MarshalIndent(req, "", "  ")
	var sb strings.Builder
	sb.WriteString("Inventory statistics for file ")
	sb.WriteString(req.FileGroup)
	sb.WriteString(":\n")
	sb.Write(b)
	return sb.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
