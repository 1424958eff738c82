package diagram

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Format names the container syntax a diagram is embedded in
type Format string

const (
	HTMLDiv         Format = "html-div"
	MarkdownFence   Format = "markdown-fence"
	HugoShortcode   Format = "hugo-shortcode"
	SphinxDirective Format = "sphinx-directive"
	WholeFile       Format = "whole-file"
)

// Span is one located diagram occurrence inside a host text.
// Start/End bound the whole container, BodyStart/BodyEnd the captured body.
type Span struct {
	Format    Format
	Start     int
	End       int
	BodyStart int
	BodyEnd   int
	Body      string
}

// Contains reports whether cursor lies inside the container markers.
// A cursor exactly at Start is outside, a cursor exactly at End is inside.
func (s Span) Contains(cursor int) bool {
	return s.Start < cursor && cursor <= s.End
}

// Rule finds every occurrence of one container format in a text
type Rule interface {
	Format() Format
	FindAll(text string) []Span
}

var (
	// <div class="mermaid"> ... </div>
	htmlDivRe = regexp.MustCompile(`<div\s+class\s*=\s*["']mermaid["']\s*>([\s\S]*?)</div>`)
	// ```mermaid ... ``` (the fence line itself is not part of the body)
	markdownFenceRe = regexp.MustCompile("```mermaid(?:[ \\t][^\\n]*)?\\r?\\n([\\s\\S]*?)```")
	// {{<mermaid align="left">}} ... {{</mermaid>}}
	hugoShortcodeRe = regexp.MustCompile(`\{\{<\s*mermaid(?:\s[^>]*)?>\}\}([\s\S]*?)\{\{<\s*/mermaid\s*>\}\}`)
	// .. mermaid:: followed by :option: lines, an optional blank line and an indented block
	sphinxDirectiveRe = regexp.MustCompile(`(?m)^[ \t]*\.\. mermaid::[ \t]*\r?\n(?:[ \t]+:[^\n]*\n)*(?:[ \t]*\r?\n)?((?:[ \t]+\S[^\n]*(?:\n|\z))+)`)
)

// regexRule matches a container with a regular expression whose group 1 is the body
type regexRule struct {
	format Format
	re     *regexp.Regexp
}

func (r regexRule) Format() Format { return r.format }

func (r regexRule) FindAll(text string) []Span {
	matches := r.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	spans := make([]Span, 0, len(matches))
	for _, m := range matches {
		if len(m) < 4 || m[2] < 0 {
			continue
		}
		spans = append(spans, Span{
			Format:    r.format,
			Start:     m[0],
			End:       m[1],
			BodyStart: m[2],
			BodyEnd:   m[3],
			Body:      text[m[2]:m[3]],
		})
	}
	return spans
}

// wholeFileRule treats the entire text as one diagram (.mmd files)
type wholeFileRule struct{}

func (wholeFileRule) Format() Format { return WholeFile }

func (wholeFileRule) FindAll(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []Span{{
		Format:  WholeFile,
		End:     len(text),
		BodyEnd: len(text),
		Body:    text,
	}}
}

var (
	htmlDivRule         Rule = regexRule{format: HTMLDiv, re: htmlDivRe}
	markdownFenceRule   Rule = regexRule{format: MarkdownFence, re: markdownFenceRe}
	hugoShortcodeRule   Rule = regexRule{format: HugoShortcode, re: hugoShortcodeRe}
	sphinxDirectiveRule Rule = regexRule{format: SphinxDirective, re: sphinxDirectiveRe}
	wholeFile           Rule = wholeFileRule{}
)

// Rules returns the container rules in locator priority order
func Rules() []Rule {
	return []Rule{htmlDivRule, markdownFenceRule, hugoShortcodeRule, sphinxDirectiveRule}
}

// RulesForPath returns the rules that apply to a file, judged by its extension.
// Unsupported extensions get no rules.
func RulesForPath(path string) []Rule {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return Rules()
	case ".html", ".htm":
		return []Rule{htmlDivRule}
	case ".rst":
		return []Rule{sphinxDirectiveRule}
	case ".mmd", ".mermaid":
		return []Rule{wholeFile}
	}
	return nil
}

// IsDiagramFile reports whether path is a standalone diagram file
func IsDiagramFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mmd", ".mermaid":
		return true
	}
	return false
}
