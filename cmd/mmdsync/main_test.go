package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/mermaidchart/mmdsync/internal/diagram"
)

const twoDiagrams = "# Doc\n\n```mermaid\ngraph TD\nA-->B\n```\n\ntext\n\n```mermaid\npie\n```\n"

func cursorCmd(t *testing.T, flags ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addCursorFlags(cmd)
	if err := cmd.ParseFlags(flags); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		text    string
		flags   []string
		body    string
		wantErr bool
	}{
		{"line picks second", "doc.md", twoDiagrams, []string{"--line", "11"}, "pie\n", false},
		{"offset picks first", "doc.md", twoDiagrams, []string{"--offset", "20"}, "graph TD\nA-->B\n", false},
		{"ambiguous without cursor", "doc.md", twoDiagrams, nil, "", true},
		{"cursor outside", "doc.md", twoDiagrams, []string{"--line", "1"}, "", true},
		{"single diagram needs no cursor", "one.md", "```mermaid\npie\n```", nil, "pie\n", false},
		{"standalone file", "flow.mmd", "graph LR\n", nil, "graph LR\n", false},
		{"unsupported", "main.go", "```mermaid\npie\n```", nil, "", true},
		{"offset past end", "doc.md", "x", []string{"--offset", "9"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			span, err := target(cursorCmd(t, tt.flags...), tt.path, tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got span %+v", span)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if span.Body != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, span.Body)
			}
		})
	}

	_, err := target(cursorCmd(t, "--line", "1"), "doc.md", twoDiagrams)
	if !errors.Is(err, diagram.ErrNoDiagram) {
		t.Errorf("expected ErrNoDiagram, got %v", err)
	}
}

func TestWriteTextKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := writeText(path, "new"); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "new" {
		t.Errorf("expected new content, got %q", data)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}
