package recovery

import "strings"

// RepairTruncated cuts text at the parse error offset, then back to the last
// complete element boundary ("}," or "}"), and appends whatever closers are
// still open. An offset outside (0, len(text)) keeps the whole text.
func RepairTruncated(text string, offset int) string {
	if offset > 0 && offset < len(text) {
		text = text[:offset]
	}
	t := strings.TrimSpace(text)
	if i := strings.LastIndex(t, "},"); i >= 0 {
		t = t[:i+1]
	} else if i := strings.LastIndexByte(t, '}'); i >= 0 {
		t = t[:i+1]
	}
	t = strings.TrimRight(t, " \t\r\n,")

	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(t); i++ {
		c := t[i]
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if n := len(stack); n > 0 && stack[n-1] == c {
				stack = stack[:n-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(t)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
