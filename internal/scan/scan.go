// Package scan inventories the mermaid diagrams embedded in files.
package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/sync/errgroup"

	"github.com/mermaidchart/mmdsync/internal/diagram"
	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/keyword"
)

// DefaultWorkers bounds concurrent file scans when no limit is given
const DefaultWorkers = 8

// Entry is one diagram found in a file
type Entry struct {
	Path    string
	Line    int // 1-based line of the container's opening marker
	Format  diagram.Format
	Keyword string
	ID      string // remote document id, empty when not linked
	Body    string
}

// Connected reports whether the diagram is linked to a remote document
func (e Entry) Connected() bool {
	return e.ID != ""
}

// Title is a short label for listings
func (e Entry) Title() string {
	kw := e.Keyword
	if kw == "" {
		kw = "(empty)"
	}
	return kw
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// File lists the diagrams of one file. Unsupported extensions yield nothing.
func File(path string) ([]Entry, error) {
	if len(diagram.RulesForPath(path)) == 0 {
		return nil, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Source(path, src), nil
}

// Source lists the diagrams in src, routed by the extension of path.
// Markdown fences come from the goldmark AST; the other containers come
// from the pattern table.
func Source(path string, src []byte) []Entry {
	rules := diagram.RulesForPath(path)
	if len(rules) == 0 {
		return nil
	}

	var entries []Entry
	if isMarkdown(path) {
		entries = append(entries, fences(path, src)...)
		rules = withoutFormat(rules, diagram.MarkdownFence)
	}

	s := string(src)
	for _, span := range diagram.All(s, rules) {
		entries = append(entries, newEntry(path, diagram.LineOf(s, span.Start), span.Format, span.Body))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Line < entries[j].Line
	})
	return entries
}

func fences(path string, src []byte) []Entry {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var entries []Entry
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		block, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if !strings.EqualFold(string(block.Language(src)), "mermaid") || block.Info == nil {
			return ast.WalkSkipChildren, nil
		}

		var body strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			body.Write(seg.Value(src))
		}
		line := diagram.LineOf(string(src), block.Info.Segment.Start)
		entries = append(entries, newEntry(path, line, diagram.MarkdownFence, body.String()))
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		logrus.WithError(err).WithField("file", path).Debug("markdown walk failed")
	}
	return entries
}

func newEntry(path string, line int, format diagram.Format, body string) Entry {
	id, _ := frontmatter.ExtractID(body)
	return Entry{
		Path:    path,
		Line:    line,
		Format:  format,
		Keyword: keyword.First(body),
		ID:      id,
		Body:    body,
	}
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".mdx":
		return true
	}
	return false
}

func withoutFormat(rules []diagram.Rule, format diagram.Format) []diagram.Rule {
	out := make([]diagram.Rule, 0, len(rules))
	for _, r := range rules {
		if r.Format() != format {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================================
// Directory scan
// ============================================================================

// Tree scans every supported file under root with at most workers files in
// flight. Hidden directories and node_modules are skipped. Entries are
// sorted by path then line.
func Tree(ctx context.Context, root string, workers int) ([]Entry, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(diagram.RulesForPath(path)) > 0 {
			paths = append(paths, path)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	results := make([][]Entry, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entries, err := File(path)
			if err != nil {
				logrus.WithError(err).WithField("file", path).Warn("skipping unreadable file")
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Entry
	for _, entries := range results {
		all = append(all, entries...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Path != all[j].Path {
			return all[i].Path < all[j].Path
		}
		return all[i].Line < all[j].Line
	})
	logrus.WithFields(logrus.Fields{"files": len(paths), "diagrams": len(all)}).Debug("scan finished")
	return all, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
