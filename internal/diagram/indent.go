package diagram

import "strings"

// Dedent removes the indentation shared by every non-blank line of body and
// returns it, so directive bodies can be edited as plain diagram text.
func Dedent(body string) (string, string) {
	prefix, first := "", true
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first {
			prefix, first = indent, false
			continue
		}
		for !strings.HasPrefix(indent, prefix) {
			prefix = prefix[:len(prefix)-1]
		}
	}
	if prefix == "" {
		return body, ""
	}

	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	return strings.Join(lines, "\n"), prefix
}

// Indent prefixes every non-blank line of text
func Indent(text, prefix string) string {
	if prefix == "" {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// EditBody applies edit to the body of span with its indentation removed,
// then writes the result back into text
func EditBody(text string, span Span, edit func(body string) (string, error)) (string, error) {
	body, prefix := Dedent(span.Body)
	edited, err := edit(body)
	if err != nil {
		return "", err
	}
	return ReplaceIndented(text, span, edited, prefix), nil
}

// ReplaceIndented re-indents edited with prefix and writes it over the body of
// span. The whitespace before an indented closing marker is kept.
func ReplaceIndented(text string, span Span, edited, prefix string) string {
	out := Indent(edited, prefix)
	if tail := closingIndent(span.Body); tail != "" && strings.HasSuffix(out, "\n") {
		out += tail
	}
	return ReplaceBody(text, span, out)
}

// closingIndent returns the whitespace-only text after the last newline of body
func closingIndent(body string) string {
	i := strings.LastIndexByte(body, '\n')
	if i < 0 {
		return ""
	}
	if tail := body[i+1:]; strings.TrimSpace(tail) == "" {
		return tail
	}
	return ""
}
