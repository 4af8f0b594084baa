// Package command turns free-form chat text into command arguments.
package command

import (
	"strconv"
	"strings"
)

const quote = '"'

// ParseQuoted splits s into double-quote delimited arguments.
//
// Text without any quote is returned whole, untouched. Otherwise the scan
// assumes the text opens inside a quote unless it starts with one, and flips
// state at every quote character. A span is kept when it was quoted, or when
// no further quote follows it, and only if it is non-empty after trimming
// spaces. An unterminated final quote captures the rest of the text.
//
//	ParseQuoted(`"title" "body text"`) // ["title", "body text"]
//	ParseQuoted(`"unterminated`)       // ["unterminated"]
func ParseQuoted(s string) []string {
	pos := strings.IndexByte(s, quote)
	if pos < 0 {
		return []string{s}
	}

	var args []string
	start := pos
	inQuote := s[0] != quote
	if inQuote {
		start = 0
	}

	for {
		rel := strings.IndexByte(s[start:], quote)
		if rel < 0 {
			break
		}
		pos = start + rel

		span := strings.Trim(s[start:pos], " ")
		lastQuote := strings.IndexByte(s[pos+1:], quote) < 0
		if (inQuote || lastQuote) && span != "" {
			args = append(args, span)
		}

		inQuote = !inQuote
		start = pos + 1
	}

	if start > 0 && inQuote {
		if rest := strings.Trim(s[start:], " "); rest != "" {
			args = append(args, rest)
		}
	}
	return args
}

// ParseIssueNumber reads an issue reference such as "12" or "#12".
func ParseIssueNumber(arg string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(arg, "#", "")))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
