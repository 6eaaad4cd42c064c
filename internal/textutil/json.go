package textutil

import "strings"

// StripCodeFences removes a markdown code fence around a JSON payload.
// Text that already starts with '{' or '[' is returned trimmed but otherwise
// untouched, since a fence may legitimately appear inside a string value.
func StripCodeFences(s string) string {
	text := strings.TrimSpace(s)
	if text == "" || text[0] == '{' || text[0] == '[' {
		return text
	}
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.LastIndex(text, "```"); end >= 0 {
			text = text[:end]
		}
		return strings.TrimSpace(text)
	}
	// No fence: skip any preamble before the first object.
	if idx := strings.IndexAny(text, "{["); idx > 0 {
		return text[idx:]
	}
	return text
}

// SanitizeJSON repairs the damage LLMs commonly do to JSON: typographic
// quotes used as delimiters, raw control characters inside strings, and
// trailing commas before a closing bracket. Valid JSON passes through with
// the same meaning.
func SanitizeJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	smartOpen := false
	escaped := false
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				b.WriteRune(r)
			case r == '\\':
				escaped = true
				b.WriteRune(r)
			case r == '"' || (smartOpen && r == '”'):
				inString = false
				b.WriteByte('"')
			case r == '\n':
				b.WriteString(`\n`)
			case r == '\r':
				b.WriteString(`\r`)
			case r == '\t':
				b.WriteString(`\t`)
			case r < 0x20:
				// other control characters carry no meaning in prose
			default:
				b.WriteRune(r)
			}
			continue
		}
		switch r {
		case '"', '“', '”':
			inString = true
			smartOpen = r != '"'
			b.WriteByte('"')
		case ',':
			if next := nextNonSpace(runes, i+1); next == '}' || next == ']' {
				continue
			}
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nextNonSpace(runes []rune, from int) rune {
	for j := from; j < len(runes); j++ {
		switch runes[j] {
		case ' ', '\n', '\r', '\t':
			continue
		}
		return runes[j]
	}
	return 0
}
