// Package vobject parses and formats the text encodings shared by iCalendar
// (RFC 5545) and vCard (RFC 6350): content lines, VTIMEZONE offset rules and
// the three date-time encodings. Everything here is pure and safe for
// concurrent use.
package vobject

import (
	"strings"

	"github.com/cyp0633/davsync/daverr"
)

// ContentLine is one logical line after unfolding, tokenized as
// NAME;PARAM=VALUE;...:VALUE. Parameter names are upper-cased; the property
// name keeps its original case in Raw but is upper-cased in Name.
type ContentLine struct {
	Name   string
	Params map[string]string
	Value  string
}

// Param returns the named parameter value, or "" when absent. The lookup is
// case-insensitive.
func (l ContentLine) Param(name string) string {
	return l.Params[strings.ToUpper(name)]
}

// Unfold splits raw iCalendar/vCard text into logical lines. A physical line
// beginning with a space or horizontal tab continues the previous logical
// line (RFC 5545 §3.1); unfolding must happen before any tokenizing. Lines
// are trimmed of trailing CR and surrounding whitespace, and empty lines are
// dropped.
func Unfold(text string) []string {
	var logical []string
	for _, raw := range strings.Split(text, "\n") {
		raw = strings.TrimRight(raw, "\r")
		if len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += raw[1:]
			continue
		}
		logical = append(logical, raw)
	}

	lines := make([]string, 0, len(logical))
	for _, l := range logical {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// ParseContentLine tokenizes one logical line. The separator colon is located
// outside double-quoted parameter values, so TZID="a:b" style parameters
// survive intact.
func ParseContentLine(line string) (ContentLine, error) {
	sep := -1
	inQuotes := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				sep = i
			}
		}
		if sep >= 0 {
			break
		}
	}
	if sep < 0 {
		return ContentLine{}, daverr.Parsing("content line %q has no value separator", line)
	}

	head := line[:sep]
	cl := ContentLine{Value: line[sep+1:], Params: map[string]string{}}

	parts := splitParams(head)
	if parts[0] == "" {
		return ContentLine{}, daverr.Parsing("content line %q has no property name", line)
	}
	cl.Name = strings.ToUpper(parts[0])

	for _, p := range parts[1:] {
		name, value, found := strings.Cut(p, "=")
		if !found {
			return ContentLine{}, daverr.Parsing("malformed parameter %q in content line %q", p, line)
		}
		cl.Params[strings.ToUpper(name)] = strings.Trim(value, `"`)
	}
	return cl, nil
}

// splitParams splits NAME;PARAM=VALUE;... on semicolons outside quotes.
func splitParams(head string) []string {
	var parts []string
	start := 0
	inQuotes := false
	for i := 0; i < len(head); i++ {
		switch head[i] {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				parts = append(parts, head[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, head[start:])
}
