package command

import (
	"strings"
)

// ExcerptLimit is the character budget for comment excerpts echoed to chat.
const ExcerptLimit = 150

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// Excerpt flattens line breaks to spaces and cuts the result to limit
// characters, appending "..." when anything was cut. The boolean reports
// whether the text was truncated.
func Excerpt(body string, limit int) (string, bool) {
	flat := lineBreaks.Replace(body)

	runes := []rune(flat)
	if len(runes) <= limit {
		return flat, false
	}
	return string(runes[:limit]) + "...", true
}
