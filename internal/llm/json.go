package llm

import (
	"strings"
)

//nolint:gochecknoglobals // immutable replacer.
var fenceReplacer = strings.NewReplacer("```json\n", "", "```json", "", "```\n", "", "```", "")

// StripCodeFence removes Markdown code fences when the trimmed reply starts with one. Other replies are returned
// trimmed but otherwise untouched.
func StripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	return strings.TrimSpace(fenceReplacer.Replace(trimmed))
}

// ExtractObject returns the substring from the first '{' to the last '}'. The match is greedy so prose around the
// object is dropped while nested objects stay intact.
func ExtractObject(reply string) (string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return reply[start : end+1], nil
}
