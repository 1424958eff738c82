package keyword

import "testing"

func TestFirst(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t\n", ""},
		{"frontmatter only", "---\ntitle: x\n---\n", ""},
		{"plain", "flowchart TD\nA-->B", "flowchart"},
		{"comment first", "%% comment\nsequenceDiagram\nA->>B: hi", "sequencediagram"},
		{"bare comment marker", "%%\ngantt\n", "gantt"},
		{"indented comment", "   \n\t%%x\nPIE title Pets", "pie"},
		{"only comments", "%% a\n%% b", ""},
		{"inline directive", "%%{init: {'theme':'dark'}}%%\ngraph TD", "graph"},
		{"multi-line directive", "%%{\n  init: {\"theme\": \"forest\"}\n}%%\n  flowchart LR", "flowchart"},
		{"frontmatter then directive", "---\nid: 1\n---\n%%{init: {}}%%\nclassDiagram", "classdiagram"},
		{"unclosed directive", "%%{init: x\ngraph TD", "%%{init:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := First(tt.text)
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
			if again := First(tt.text); again != got {
				t.Errorf("expected repeated call to return %q, got %q", got, again)
			}
		})
	}
}

func TestTypeOfAndDocsURL(t *testing.T) {
	tests := []struct {
		keyword string
		typ     string
		url     string
	}{
		{"graph", "flowchart", "https://mermaid.js.org/syntax/flowchart.html"},
		{"sequenceDiagram", "sequence", "https://mermaid.js.org/syntax/sequenceDiagram.html"},
		{"stateDiagram-v2", "state", "https://mermaid.js.org/syntax/stateDiagram.html"},
		{"xychart-beta", "xychart", "https://mermaid.js.org/syntax/xyChart.html"},
		{"unknown", "", "https://mermaid.js.org/intro/"},
		{"", "", "https://mermaid.js.org/intro/"},
	}
	for _, tt := range tests {
		if got := TypeOf(tt.keyword); got != tt.typ {
			t.Errorf("TypeOf(%q): expected %q, got %q", tt.keyword, tt.typ, got)
		}
		if got := DocsURL(tt.keyword); got != tt.url {
			t.Errorf("DocsURL(%q): expected %q, got %q", tt.keyword, tt.url, got)
		}
	}
}

func TestTrackerObserve(t *testing.T) {
	tr := NewTracker(8)

	kw, changed := tr.Observe("doc", "graph TD")
	if kw != "graph" || !changed {
		t.Errorf("expected (graph, true), got (%s, %v)", kw, changed)
	}
	if _, changed = tr.Observe("doc", "graph LR\nA-->B"); changed {
		t.Error("expected no change for the same keyword")
	}
	if kw, changed = tr.Observe("doc", "pie"); kw != "pie" || !changed {
		t.Errorf("expected (pie, true), got (%s, %v)", kw, changed)
	}
	if last, ok := tr.Last("doc"); !ok || last != "pie" {
		t.Errorf("expected last keyword pie, got %q (ok=%v)", last, ok)
	}

	tr.Forget("doc")
	if _, ok := tr.Last("doc"); ok {
		t.Error("expected doc to be forgotten")
	}
}

func TestTrackerEvictsLeastRecentlyUsed(t *testing.T) {
	tr := NewTracker(2)
	tr.Observe("a", "graph")
	tr.Observe("b", "pie")
	tr.Observe("c", "gantt")

	if tr.Len() != 2 {
		t.Fatalf("expected 2 tracked documents, got %d", tr.Len())
	}
	if _, ok := tr.Last("a"); ok {
		t.Error("expected oldest document to be evicted")
	}
	if _, ok := tr.Last("c"); !ok {
		t.Error("expected newest document to be kept")
	}
}

func TestTrackersAreIndependent(t *testing.T) {
	a, b := NewTracker(0), NewTracker(0)
	a.Observe("doc", "graph")
	if _, ok := b.Last("doc"); ok {
		t.Error("expected trackers not to share state")
	}
}
