// Package keyword classifies a diagram by the first keyword of its source.
package keyword

import (
	"regexp"
	"strings"

	"github.com/mermaidchart/mmdsync/internal/frontmatter"
)

var (
	// %%{init: {...}}%% directives, possibly spanning lines
	directiveRe = regexp.MustCompile(`(?s)%%\{.*?\}%%`)
	// %% comment lines; %%{ starts a directive, not a comment
	commentRe = regexp.MustCompile(`(?m)^[ \t]*%%(?:[^{\n][^\n]*)?$`)
)

// First returns the lower-cased first keyword of a diagram after frontmatter,
// directives and comments are removed, or "" when there is none.
func First(text string) string {
	body := frontmatter.Split(text).Body
	body = directiveRe.ReplaceAllString(body, "")
	body = commentRe.ReplaceAllString(body, "")
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// aliases maps keywords to the diagram type they declare
var aliases = map[string]string{
	"graph":              "flowchart",
	"flowchart":          "flowchart",
	"flowchart-v2":       "flowchart",
	"flowchart-elk":      "flowchart",
	"sequencediagram":    "sequence",
	"classdiagram":       "class",
	"classdiagram-v2":    "class",
	"statediagram":       "state",
	"statediagram-v2":    "state",
	"erdiagram":          "entity-relationship",
	"journey":            "user-journey",
	"gantt":              "gantt",
	"pie":                "pie",
	"quadrantchart":      "quadrant",
	"requirementdiagram": "requirement",
	"gitgraph":           "gitgraph",
	"c4context":          "c4",
	"c4container":        "c4",
	"c4component":        "c4",
	"c4dynamic":          "c4",
	"c4deployment":       "c4",
	"mindmap":            "mindmap",
	"timeline":           "timeline",
	"zenuml":             "zenuml",
	"sankey-beta":        "sankey",
	"xychart-beta":       "xychart",
	"block-beta":         "block",
	"packet-beta":        "packet",
	"kanban":             "kanban",
	"architecture-beta":  "architecture",
	"radar-beta":         "radar",
	"treemap-beta":       "treemap",
}

// docPages maps diagram types to their mermaid.js.org syntax page
var docPages = map[string]string{
	"flowchart":           "flowchart",
	"sequence":            "sequenceDiagram",
	"class":               "classDiagram",
	"state":               "stateDiagram",
	"entity-relationship": "entityRelationshipDiagram",
	"user-journey":        "userJourney",
	"gantt":               "gantt",
	"pie":                 "pie",
	"quadrant":            "quadrantChart",
	"requirement":         "requirementDiagram",
	"gitgraph":            "gitgraph",
	"c4":                  "c4",
	"mindmap":             "mindmap",
	"timeline":            "timeline",
	"zenuml":              "zenuml",
	"sankey":              "sankey",
	"xychart":             "xyChart",
	"block":               "block",
	"packet":              "packet",
	"kanban":              "kanban",
	"architecture":        "architecture",
	"radar":               "radar",
	"treemap":             "treemap",
}

const docsBase = "https://mermaid.js.org/"

// TypeOf returns the diagram type a keyword declares, or "" if unknown
func TypeOf(keyword string) string {
	return aliases[strings.ToLower(keyword)]
}

// DocsURL routes a keyword to its syntax documentation, falling back to the intro page
func DocsURL(keyword string) string {
	if page, ok := docPages[TypeOf(keyword)]; ok {
		return docsBase + "syntax/" + page + ".html"
	}
	return docsBase + "intro/"
}
