package batch

import (
	"fmt"
	"strings"
)

// SplitMode selects how a script is cut into statements.
type SplitMode string

// Split modes.
const (
	// SplitNaive cuts on every ';'. A ';' inside a literal or comment
	// splits the statement.
	SplitNaive SplitMode = "naive"
	// SplitQuoted ignores ';' inside quotes, comments and dollar-quoted bodies.
	SplitQuoted SplitMode = "quoted"
)

// ParseSplitMode validates a configured split mode. Empty means naive.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", SplitNaive:
		return SplitNaive, nil
	case SplitQuoted:
		return SplitQuoted, nil
	default:
		return "", fmt.Errorf("unknown split mode %q (want %q or %q)", s, SplitNaive, SplitQuoted)
	}
}

// Split dispatches to Parse or ParseQuoted.
func (m SplitMode) Split(script string) []string {
	if m == SplitQuoted {
		return ParseQuoted(script)
	}
	return Parse(script)
}

// Parse splits script on ';', trims each fragment and drops empty ones.
func Parse(script string) []string {
	var out []string
	for _, frag := range strings.Split(script, ";") {
		if s := strings.TrimSpace(frag); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseQuoted splits script on ';' outside of single- and double-quoted
// text, -- and /* */ comments, and $tag$ dollar-quoted bodies.
// Fragments holding only whitespace or comments are dropped.
func ParseQuoted(script string) []string {
	var out []string
	n := len(script)
	start, i := 0, 0
	hasCode := false

	flush := func(end int) {
		if hasCode {
			out = append(out, strings.TrimSpace(script[start:end]))
		}
		hasCode = false
	}

	for i < n {
		c := script[i]
		switch {
		case c == '\'' || c == '"':
			hasCode = true
			i = skipQuoted(script, i, c)
		case c == '-' && i+1 < n && script[i+1] == '-':
			if j := strings.IndexByte(script[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = n
			}
		case c == '/' && i+1 < n && script[i+1] == '*':
			if j := strings.Index(script[i+2:], "*/"); j >= 0 {
				i += 2 + j + 2
			} else {
				i = n
			}
		case c == '$':
			hasCode = true
			tag, ok := dollarTag(script[i:])
			if !ok {
				i++
				continue
			}
			if j := strings.Index(script[i+len(tag):], tag); j >= 0 {
				i += len(tag) + j + len(tag)
			} else {
				i = n
			}
		case c == ';':
			flush(i)
			i++
			start = i
		default:
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				hasCode = true
			}
			i++
		}
	}
	flush(n)
	return out
}

// skipQuoted returns the index just past the literal opened at s[i].
// A doubled quote character is an escaped quote.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		if s[j] != q {
			continue
		}
		if j+1 < len(s) && s[j+1] == q {
			j++
			continue
		}
		return j + 1
	}
	return len(s)
}

// dollarTag reports the opening $tag$ at the start of s, if any.
// Positional parameters such as $1 are not tags.
func dollarTag(s string) (string, bool) {
	for j := 1; j < len(s); j++ {
		c := s[j]
		switch {
		case c == '$':
			return s[:j+1], true
		case c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		case c >= '0' && c <= '9' && j > 1:
		default:
			return "", false
		}
	}
	return "", false
}
