package keeplist

import (
	"strings"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// line is one logical line of a keep-list document: a physical line plus any
// wrapped continuations joined onto it.
type line struct {
	text   string
	num    int // 1-based number of the first physical line
	indent int
}

// indentOf returns the column of the first character that is neither a space
// nor a dash. List dashes count as indentation, so an entry's "- key:" line and
// its following "  key:" lines share one indent. Blank lines report 0.
func indentOf(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != ' ' && s[i] != '-' {
			return i
		}
	}
	return 0
}

// isNewEntry reports whether a dash appears before any other non-space character,
// which is how the format opens a new list element.
func isNewEntry(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '-':
			return true
		case ' ':
			continue
		default:
			return false
		}
	}
	return false
}

// isField reports whether s carries a "key:" marker: either "key: value" or a
// trailing "key:" opening a nested block.
func isField(s string) bool {
	s = strings.TrimRight(s, " \t\r")
	return strings.HasSuffix(s, ":") || strings.Contains(s, ": ")
}

// valueStart returns the offset just past "key:" and its separating space, or -1.
func valueStart(s, key string) int {
	i := strings.Index(s, key+":")
	if i < 0 {
		return -1
	}
	i += len(key) + 1
	if i < len(s) && s[i] == ' ' {
		i++
	}
	return i
}

func hasKey(s, key string) bool {
	return valueStart(s, key) >= 0
}

// scalarValue returns the value of key up to the next space, comma or closing
// brace, so it works for both block ("guid: x") and flow ("{guid: x, type: 3}") forms.
func scalarValue(s, key string) string {
	i := valueStart(s, key)
	if i < 0 {
		return ""
	}
	rest := s[i:]
	if end := strings.IndexAny(rest, " ,}"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

// keywordsValue returns the space separated tokens following key, stopping at a
// comma. The bool is false when the line has no such key.
func keywordsValue(s, key string) (variant.Keywords, bool) {
	i := valueStart(s, key)
	if i < 0 {
		return nil, false
	}
	rest := s[i:]
	if end := strings.IndexByte(rest, ','); end >= 0 {
		rest = rest[:end]
	}
	fields := strings.Fields(rest)
	if fields == nil {
		fields = []string{}
	}
	return variant.Keywords(fields), true
}

// joinContinuations turns the physical lines starting at the m_Shaders marker
// into logical lines. A line indented deeper than the previous logical line that
// carries no "key:" marker is a wrapped continuation and is appended to it with
// a single space.
func joinContinuations(physical []string, start int) []line {
	var out []line
	indent := 0

	for i := start; i < len(physical); i++ {
		text := strings.TrimRight(physical[i], "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}

		myIndent := indentOf(text)
		if myIndent > indent && len(out) > 0 && !isField(text) {
			prev := &out[len(out)-1]
			prev.text += " " + strings.TrimSpace(text)
			continue
		}

		out = append(out, line{text: text, num: i + 1, indent: myIndent})
		indent = myIndent
	}

	return out
}
