package diagram

import (
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// ErrNoDiagram is returned by callers that need an error when Locate finds nothing
var ErrNoDiagram = errors.New("cannot determine which diagram is under the cursor")

// Locate finds the single diagram whose container holds cursor,
// trying every format in priority order
func Locate(text string, cursor int) (Span, bool) {
	return LocateIn(text, cursor, Rules())
}

// LocateIn is Locate restricted to the given rules.
// A rule qualifies only when exactly one of its occurrences holds the cursor;
// several candidates count as "cannot determine" and the next rule is tried.
func LocateIn(text string, cursor int, rules []Rule) (Span, bool) {
	for _, rule := range rules {
		var hit Span
		n := 0
		for _, span := range findAll(rule, text) {
			if span.Contains(cursor) {
				hit = span
				n++
			}
		}
		if n == 1 {
			return hit, true
		}
		if n > 1 {
			logrus.WithFields(logrus.Fields{
				"format":     rule.Format(),
				"candidates": n,
			}).Debug("ambiguous diagram location")
		}
	}
	return Span{}, false
}

// All returns every occurrence of every rule, ordered by position
func All(text string, rules []Rule) []Span {
	var spans []Span
	for _, rule := range rules {
		spans = append(spans, findAll(rule, text)...)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Start < spans[j].Start
	})
	return spans
}

// findAll runs one rule, treating a failure inside the matcher as no occurrence
func findAll(rule Rule, text string) (spans []Span) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"format": rule.Format(),
				"panic":  r,
			}).Debug("diagram rule failed")
			spans = nil
		}
	}()
	return rule.FindAll(text)
}

// ReplaceBody swaps the body of span for body, leaving the container markup alone
func ReplaceBody(text string, span Span, body string) string {
	if span.BodyStart < 0 || span.BodyEnd > len(text) || span.BodyStart > span.BodyEnd {
		return text
	}
	return text[:span.BodyStart] + body + text[span.BodyEnd:]
}

// OffsetOf converts a 1-based line and column (in bytes) into a byte offset.
// Columns past the end of the line clamp to the line end.
func OffsetOf(text string, line, col int) (int, bool) {
	if line < 1 || col < 1 {
		return 0, false
	}
	offset := 0
	for l := 1; l < line; l++ {
		idx := strings.IndexByte(text[offset:], '\n')
		if idx < 0 {
			return 0, false
		}
		offset += idx + 1
	}
	lineEnd := len(text)
	if idx := strings.IndexByte(text[offset:], '\n'); idx >= 0 {
		lineEnd = offset + idx
	}
	return min(offset+col-1, lineEnd), true
}

// LineOf returns the 1-based line number of a byte offset
func LineOf(text string, offset int) int {
	offset = max(0, min(offset, len(text)))
	return strings.Count(text[:offset], "\n") + 1
}
