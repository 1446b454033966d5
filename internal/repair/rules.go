package repair

import (
	"strings"
	"unicode"
)

// Rule is a single text transform of the repair chain.
type Rule struct {
	Name  string
	Apply func(string) (string, error)
}

// DefaultRules is the repair chain, in application order.
var DefaultRules = []Rule{
	{Name: "strip_code_fence", Apply: StripCodeFence},
	{Name: "slice_braces", Apply: SliceBraces},
	{Name: "remove_trailing_commas", Apply: RemoveTrailingCommas},
	{Name: "normalize_quotes", Apply: NormalizeQuotes},
}

const fence = "```"

// StripCodeFence removes a leading ``` (with optional language tag) and a trailing ```
// from the trimmed text. Fences elsewhere are left alone.
func StripCodeFence(s string) (string, error) {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, fence) {
		t = t[len(fence):]
		i := 0
		for i < len(t) && (isTagByte(t[i])) {
			i++
		}
		// Only treat the word as a language tag when it ends the fence line.
		if i == len(t) || t[i] == '\n' || t[i] == '\r' || t[i] == ' ' || t[i] == '\t' {
			t = t[i:]
		}
	}
	t = strings.TrimSpace(t)
	if strings.HasSuffix(t, fence) {
		t = strings.TrimSpace(t[:len(t)-len(fence)])
	}
	return t, nil
}

func isTagByte(b byte) bool {
	return b == '-' || b == '_' || b == '+' ||
		('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// SliceBraces keeps the span from the first '{' to the last '}'.
func SliceBraces(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < 0 || end < start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// RemoveTrailingCommas drops commas that directly precede '}' or ']' (ignoring
// whitespace). Commas inside string literals are kept.
func RemoveTrailingCommas(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	sc := newScanner(s)
	for sc.next() {
		r := sc.r
		if r == ',' && !sc.inString() && sc.closerFollows() {
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), nil
}

// NormalizeQuotes replaces typographic quotes with ASCII ones. Curly double quotes
// inside an ASCII-delimited string are content and are kept.
func NormalizeQuotes(s string) (string, error) {
	var b strings.Builder
	b.Grow(len(s))
	sc := newScanner(s)
	for sc.next() {
		switch r := sc.r; r {
		case '“', '”', '„', '‟':
			if sc.inASCIIString() {
				b.WriteRune(r)
			} else {
				b.WriteByte('"')
			}
		case '‘', '’', '‚', '‛':
			b.WriteByte('\'')
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// scanner walks runes and classifies each one relative to string literals.
// Strings may be delimited by ASCII quotes or by typographic double quotes.
type scanner struct {
	runes   []rune
	pos     int
	r       rune
	delim   rune // quote that opened the current literal, 0 outside literals
	escaped bool

	quoted       bool // current rune belongs to a literal, delimiters included
	content      bool // current rune is inside a literal, delimiters excluded
	contentDelim rune // delimiter of the literal holding the current content rune
}

func newScanner(s string) *scanner {
	return &scanner{runes: []rune(s), pos: -1}
}

func (sc *scanner) next() bool {
	sc.pos++
	if sc.pos >= len(sc.runes) {
		return false
	}
	r := sc.runes[sc.pos]
	sc.r = r

	if sc.delim == 0 {
		sc.content = false
		sc.quoted = r == '"' || isCurlyDouble(r)
		if sc.quoted {
			sc.delim = r
		}
		return true
	}

	sc.quoted = true
	sc.contentDelim = sc.delim
	switch {
	case sc.escaped:
		sc.escaped = false
		sc.content = true
	case r == '\\':
		sc.escaped = true
		sc.content = true
	case closes(sc.delim, r):
		sc.delim = 0
		sc.content = false
	default:
		sc.content = true
	}
	return true
}

func (sc *scanner) inString() bool { return sc.quoted }

// inASCIIString reports whether the current rune is content of an ASCII-quoted literal.
func (sc *scanner) inASCIIString() bool {
	return sc.content && sc.contentDelim == '"'
}

// closerFollows reports whether the next non-space rune closes an object or array.
func (sc *scanner) closerFollows() bool {
	for _, r := range sc.runes[sc.pos+1:] {
		if unicode.IsSpace(r) {
			continue
		}
		return r == '}' || r == ']'
	}
	return false
}

func closes(delim, r rune) bool {
	if delim == '"' {
		return r == '"'
	}
	return r == '"' || isCurlyDouble(r)
}

func isCurlyDouble(r rune) bool {
	return r == '“' || r == '”' || r == '„' || r == '‟'
}
