package recovery

import (
	"regexp"
	"strings"
)

// Stage is one named, idempotent text repair.
type Stage struct {
	Name  string
	Apply func(string) string
}

// Stages returns the repair pipeline in the order it runs.
func Stages() []Stage {
	return []Stage{
		{Name: "strip_fences", Apply: StripFences},
		{Name: "remove_control_chars", Apply: RemoveControlChars},
		{Name: "close_strings", Apply: CloseUnterminatedStrings},
		{Name: "quote_keys", Apply: QuoteUnquotedKeys},
		{Name: "insert_commas", Apply: InsertMissingCommas},
		{Name: "extract_object", Apply: ExtractBalancedObject},
		{Name: "remove_trailing_commas", Apply: RemoveTrailingCommas},
	}
}

var (
	reFenceOpen     = regexp.MustCompile("^```[A-Za-z0-9_+-]*")
	reUnquotedKey   = regexp.MustCompile(`([{\[,]\s*)([A-Za-z0-9_]+)\s*:`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
	reDoubleComma   = regexp.MustCompile(`,\s*,`)
)

// StripFences removes a leading markdown code fence (optionally tagged, e.g. ```json)
// and a trailing one.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(reFenceOpen.ReplaceAllString(s, ""))
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// RemoveControlChars drops bytes below 0x20 other than \n, \r and \t.
func RemoveControlChars(s string) string {
	if !strings.ContainsFunc(s, isDroppedControl) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isDroppedControl(r) {
			return -1
		}
		return r
	}, s)
}

func isDroppedControl(r rune) bool {
	return r < 0x20 && r != '\n' && r != '\r' && r != '\t'
}

// CloseUnterminatedStrings closes a string literal that runs into a raw line break
// or the end of the text.
func CloseUnterminatedStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			case c == '\n' || c == '\r':
				b.WriteByte('"')
				inString = false
			}
			b.WriteByte(c)
			continue
		}
		if c == '"' {
			inString = true
		}
		b.WriteByte(c)
	}
	if inString {
		if escaped {
			// a dangling backslash would escape the closing quote
			b.WriteByte('\\')
		}
		b.WriteByte('"')
	}
	return b.String()
}

// QuoteUnquotedKeys wraps bare identifiers used as object keys in double quotes.
func QuoteUnquotedKeys(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return reUnquotedKey.ReplaceAllString(seg, `$1"$2":`)
	})
}

// InsertMissingCommas inserts a comma into whitespace separating two values that
// valid JSON could never place side by side:
//
//	} "   } {   ] "   ] [   " {   " [   " 7   " true   7 "   true "
//
// String contents are never touched.
func InsertMissingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)
	inString, escaped := false, false
	prev := tokNone
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				prev = tokString
			}
			continue
		}
		if isSpace(c) {
			j := i
			for j < len(s) && isSpace(s[j]) {
				j++
			}
			if j < len(s) && needsComma(prev, s, j) {
				b.WriteByte(',')
				prev = tokOther
			}
			b.WriteString(s[i:j])
			i = j - 1
			continue
		}
		b.WriteByte(c)
		switch {
		case c == '"':
			inString = true
		case c == '}':
			prev = tokCloseObject
		case c == ']':
			prev = tokCloseArray
		case c >= '0' && c <= '9':
			prev = tokDigit
		case literalEndsAt(s, i):
			prev = tokLiteral
		default:
			prev = tokOther
		}
	}
	return b.String()
}

// ExtractBalancedObject returns the text from the first '{' to its matching '}'.
// When the object never closes, everything from the first '{' is returned.
func ExtractBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return s
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}

// RemoveTrailingCommas drops commas directly before a closing brace or bracket.
func RemoveTrailingCommas(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return replaceUntilStable(reTrailingComma, seg, "$1")
	})
}

// collapseDoubleCommas turns ",," (with any whitespace between) into a single comma.
func collapseDoubleCommas(s string) string {
	return mapOutsideStrings(s, func(seg string) string {
		return replaceUntilStable(reDoubleComma, seg, ",")
	})
}

func replaceUntilStable(re *regexp.Regexp, s, repl string) string {
	for {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return s
		}
		s = next
	}
}

// mapOutsideStrings applies fn to every run of text that lies outside a JSON string literal.
func mapOutsideStrings(s string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(s))
	start := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				b.WriteString(s[start : i+1])
				start = i + 1
			}
			continue
		}
		if c == '"' {
			b.WriteString(fn(s[start:i]))
			start = i
			inString = true
		}
	}
	if inString {
		b.WriteString(s[start:])
	} else {
		b.WriteString(fn(s[start:]))
	}
	return b.String()
}

type token int

const (
	tokNone token = iota
	tokOther
	tokString
	tokCloseObject
	tokCloseArray
	tokDigit
	tokLiteral
)

var literals = []string{"true", "false", "null"}

func needsComma(prev token, s string, next int) bool {
	c := s[next]
	switch prev {
	case tokCloseObject:
		return c == '"' || c == '{'
	case tokCloseArray:
		return c == '"' || c == '['
	case tokString:
		return c == '{' || c == '[' || (c >= '0' && c <= '9') || literalStartsAt(s, next)
	case tokDigit, tokLiteral:
		return c == '"'
	}
	return false
}

func literalStartsAt(s string, i int) bool {
	for _, lit := range literals {
		end := i + len(lit)
		if strings.HasPrefix(s[i:], lit) && (end == len(s) || !isIdent(s[end])) {
			return true
		}
	}
	return false
}

func literalEndsAt(s string, i int) bool {
	if !isIdent(s[i]) || (i+1 < len(s) && isIdent(s[i+1])) {
		return false
	}
	start := i
	for start > 0 && isIdent(s[start-1]) {
		start--
	}
	word := s[start : i+1]
	for _, lit := range literals {
		if word == lit {
			return true
		}
	}
	return false
}

func isIdent(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}
