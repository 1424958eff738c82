// Package frontmatter splits a diagram's source into its YAML frontmatter
// block and body, and rewrites individual fields without touching the body.
package frontmatter

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Delimiter opens and closes a frontmatter block, alone on its line
const Delimiter = "---"

// leading whitespace, ---, optional interior lines, --- on its own line
var blockRe = regexp.MustCompile(`(?s)\A\s*---[ \t]*\r?\n(?:(.*?)\r?\n)??---[ \t]*(?:\r?\n|\z)`)

// Parts is a diagram source split into its frontmatter block and body
type Parts struct {
	Raw     string // YAML between the delimiters, empty when absent
	Body    string // everything after the closing delimiter line
	Present bool   // whether a delimited block was found
}

// Field is one key/value pair to write into frontmatter
type Field struct {
	Key   string
	Value any
}

// Split separates text into frontmatter and body.
// Without a leading block, Body is text unchanged.
func Split(text string) Parts {
	m := blockRe.FindStringSubmatchIndex(text)
	if m == nil {
		return Parts{Body: text}
	}
	p := Parts{Body: text[m[1]:], Present: true}
	if m[2] >= 0 {
		p.Raw = text[m[2]:m[3]]
	}
	return p
}

// SetField sets key to value in the frontmatter of text, creating the block if
// needed. Other keys keep their order; the body is preserved byte for byte.
func SetField(text, key string, value any) string {
	return SetFields(text, Field{Key: key, Value: value})
}

// SetFields applies several fields in one rewrite
func SetFields(text string, fields ...Field) string {
	parts := Split(text)
	root := parseMapping(parts.Raw)
	for _, f := range fields {
		setKey(root, f.Key, f.Value)
	}
	return assemble(root, parts.Body)
}

// RemoveField deletes key from the frontmatter. When no keys remain the
// whole block is dropped and only the body is returned.
func RemoveField(text, key string) string {
	parts := Split(text)
	if !parts.Present {
		return text
	}
	root := parseMapping(parts.Raw)
	if !deleteKey(root, key) {
		return text
	}
	if len(root.Content) == 0 {
		return parts.Body
	}
	return assemble(root, parts.Body)
}

// Fields returns the top-level keys of the frontmatter in document order
func Fields(text string) []string {
	root := parseMapping(Split(text).Raw)
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	return keys
}

// Lookup returns the node stored under key, if any
func Lookup(text, key string) (*yaml.Node, bool) {
	parts := Split(text)
	if !parts.Present {
		return nil, false
	}
	return lookup(parseMapping(parts.Raw), key)
}

// parseMapping decodes raw into a mapping node. Empty, malformed or
// non-mapping frontmatter yields an empty mapping.
func parseMapping(raw string) (root *yaml.Node) {
	empty := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if raw == "" {
		return empty
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Debug("frontmatter parser failed")
			root = empty
		}
	}()

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		logrus.WithError(err).Debug("malformed frontmatter, treating as empty")
		return empty
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return empty
	}
	return doc.Content[0]
}

func lookup(root *yaml.Node, key string) (*yaml.Node, bool) {
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1], true
		}
	}
	return nil, false
}

// setKey overwrites the first entry for key and drops any duplicates after it
func setKey(root *yaml.Node, key string, value any) {
	node := valueNode(value)
	found := false
	content := root.Content[:0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		if k.Value == key {
			if found {
				continue
			}
			found = true
			v = node
		}
		content = append(content, k, v)
	}
	if !found {
		content = append(content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, node)
	}
	root.Content = content
}

func deleteKey(root *yaml.Node, key string) bool {
	removed := false
	content := root.Content[:0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			removed = true
			continue
		}
		content = append(content, root.Content[i], root.Content[i+1])
	}
	root.Content = content
	return removed
}

func valueNode(value any) *yaml.Node {
	if n, ok := value.(*yaml.Node); ok {
		return n
	}
	var n yaml.Node
	if err := n.Encode(value); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(value)}
	}
	return &n
}

// assemble writes ---\n<yaml>---\n<body>
func assemble(root *yaml.Node, body string) string {
	var buf bytes.Buffer
	buf.WriteString(Delimiter + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		logrus.WithError(err).Debug("frontmatter encode failed")
	}
	if err := enc.Close(); err != nil {
		logrus.WithError(err).Debug("frontmatter encoder close failed")
	}

	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] != '\n' {
		buf.WriteByte('\n')
	}
	buf.WriteString(Delimiter + "\n")
	buf.WriteString(body)
	return buf.String()
}
