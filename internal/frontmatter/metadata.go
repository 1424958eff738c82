package frontmatter

import (
	"time"

	"gopkg.in/yaml.v3"
)

// Frontmatter keys written by the sync and generation workflows
const (
	KeyID             = "id"
	KeyQuery          = "query"
	KeyReferences     = "references"
	KeyGenerationTime = "generationTime"
)

// Metadata is the structured part of a diagram's frontmatter
type Metadata struct {
	ID             string
	Query          string
	References     []string
	GenerationTime time.Time
}

// ExtractID returns the remote document id, if the diagram has one
func ExtractID(text string) (string, bool) {
	node, ok := Lookup(text, KeyID)
	if !ok || node.Kind != yaml.ScalarNode || node.Value == "" {
		return "", false
	}
	return node.Value, true
}

// IsConnected reports whether the diagram is linked to a remote document
func IsConnected(text string) bool {
	_, ok := ExtractID(text)
	return ok
}

// ExtractMetadata reads the known metadata keys. ok is false when the text
// has no frontmatter block. Fields with unexpected shapes are left zero.
func ExtractMetadata(text string) (Metadata, bool) {
	parts := Split(text)
	if !parts.Present {
		return Metadata{}, false
	}
	root := parseMapping(parts.Raw)

	var md Metadata
	if n, ok := lookup(root, KeyID); ok && n.Kind == yaml.ScalarNode {
		md.ID = n.Value
	}
	if n, ok := lookup(root, KeyQuery); ok && n.Kind == yaml.ScalarNode {
		md.Query = n.Value
	}
	if n, ok := lookup(root, KeyReferences); ok {
		md.References = stringList(n)
	}
	if n, ok := lookup(root, KeyGenerationTime); ok {
		md.GenerationTime = timestamp(n)
	}
	return md, true
}

// SetMetadata writes the non-zero fields of md into the frontmatter of text
func SetMetadata(text string, md Metadata) string {
	var fields []Field
	if md.ID != "" {
		fields = append(fields, Field{Key: KeyID, Value: md.ID})
	}
	if md.Query != "" {
		fields = append(fields, Field{Key: KeyQuery, Value: md.Query})
	}
	if len(md.References) > 0 {
		fields = append(fields, Field{Key: KeyReferences, Value: md.References})
	}
	if !md.GenerationTime.IsZero() {
		fields = append(fields, Field{Key: KeyGenerationTime, Value: md.GenerationTime.UTC()})
	}
	if len(fields) == 0 {
		return text
	}
	return SetFields(text, fields...)
}

func stringList(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			if item.Kind == yaml.ScalarNode {
				out = append(out, item.Value)
			}
		}
		return out
	case yaml.ScalarNode:
		if n.Value != "" {
			return []string{n.Value}
		}
	}
	return nil
}

func timestamp(n *yaml.Node) time.Time {
	if n.Kind != yaml.ScalarNode {
		return time.Time{}
	}
	var t time.Time
	if err := n.Decode(&t); err == nil {
		return t
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, n.Value); err == nil {
			return t
		}
	}
	return time.Time{}
}
