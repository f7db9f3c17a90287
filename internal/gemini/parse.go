package gemini

import (
	"regexp"
	"strings"
)

var boldRe = regexp.MustCompile(`\*\*(.*?)\*\*`)

// ExtractJSON returns the JSON payload of a model response. Fenced blocks
// win; otherwise the outermost braces are used, or the trimmed text when
// there are none.
func ExtractJSON(text string) string {
	if _, after, ok := strings.Cut(text, "```json"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	if _, after, ok := strings.Cut(text, "```"); ok {
		body, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(body)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// parseKeyValues reads "Creator name: X" style lines as a fallback for
// responses that carry no JSON object.
func parseKeyValues(text string) map[string]string {
	labels := []struct{ label, key string }{
		{"creator name", "creator_name"},
		{"creator industry", "creator_industry"},
		{"sponsor name", "sponsor_name"},
		{"sponsor industry", "sponsor_industry"},
	}
	out := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		_, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		for _, l := range labels {
			if strings.Contains(lower, l.label) {
				out[l.key] = strings.TrimSpace(value)
				break
			}
		}
	}
	return out
}

func stripBold(s string) string {
	return boldRe.ReplaceAllString(s, "$1")
}
