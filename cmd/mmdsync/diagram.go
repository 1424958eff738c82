package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mermaidchart/mmdsync/internal/diagram"
	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/keyword"
	"github.com/mermaidchart/mmdsync/internal/output"
)

var locateCmd = &cobra.Command{
	Use:   "locate FILE",
	Short: "Show the diagram under the cursor",
	Args:  cobra.ExactArgs(1),
	RunE:  runLocate,
}

var keywordCmd = &cobra.Command{
	Use:   "keyword FILE",
	Short: "Print the diagram type and its syntax docs",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeyword,
}

var metaCmd = &cobra.Command{
	Use:   "meta FILE",
	Short: "Print the frontmatter metadata of a diagram",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeta,
}

var setCmd = &cobra.Command{
	Use:   "set FILE KEY VALUE",
	Short: "Set a frontmatter field of a diagram",
	Long: `Set a frontmatter field, keeping the other fields and the diagram body as they are.

VALUE is stored as a string unless --yaml is given, in which case it is parsed
as YAML (lists, numbers, nested maps).`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

var unlinkCmd = &cobra.Command{
	Use:   "unlink FILE",
	Short: "Remove the document id from a diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editFile(cmd, args[0], func(body string) (string, error) {
			if !frontmatter.IsConnected(body) {
				return "", fmt.Errorf("diagram is not linked")
			}
			return frontmatter.RemoveField(body, frontmatter.KeyID), nil
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{locateCmd, keywordCmd, metaCmd, setCmd, unlinkCmd} {
		addCursorFlags(cmd)
		rootCmd.AddCommand(cmd)
	}
	locateCmd.Flags().Bool("body", false, "Emit only the diagram body")
	setCmd.Flags().Bool("yaml", false, "Parse VALUE as YAML")
	addDryRunFlag(setCmd)
	addDryRunFlag(unlinkCmd)
}

// loadTarget reads path and returns its text with the targeted diagram
func loadTarget(cmd *cobra.Command, path string) (string, diagram.Span, error) {
	text, err := readText(path)
	if err != nil {
		return "", diagram.Span{}, err
	}
	span, err := target(cmd, path, text)
	return text, span, err
}

func runLocate(cmd *cobra.Command, args []string) error {
	text, span, err := loadTarget(cmd, args[0])
	if err != nil {
		return err
	}
	p := output.NewPrinter()
	if body, _ := cmd.Flags().GetBool("body"); body {
		return p.Emit(span.Body)
	}

	p.Field("format", span.Format)
	p.Field("lines", fmt.Sprintf("%d-%d", diagram.LineOf(text, span.Start), diagram.LineOf(text, span.End)))
	p.Field("container", fmt.Sprintf("%d-%d", span.Start, span.End))
	p.Field("body", fmt.Sprintf("%d-%d", span.BodyStart, span.BodyEnd))
	fmt.Println()
	body, _ := diagram.Dedent(span.Body)
	return p.Diagram(strings.TrimRight(body, "\n"))
}

func runKeyword(cmd *cobra.Command, args []string) error {
	_, span, err := loadTarget(cmd, args[0])
	if err != nil {
		return err
	}
	body, _ := diagram.Dedent(span.Body)
	kw := keyword.First(body)

	p := output.NewPrinter()
	if kw == "" {
		p.Warn("diagram has no keyword")
	}
	kind := keyword.TypeOf(kw)
	if kind == "" {
		kind = "unknown"
	}
	p.Field("keyword", kw)
	p.Field("type", kind)
	p.Field("docs", keyword.DocsURL(kw))
	return nil
}

func runMeta(cmd *cobra.Command, args []string) error {
	_, span, err := loadTarget(cmd, args[0])
	if err != nil {
		return err
	}
	body, _ := diagram.Dedent(span.Body)

	p := output.NewPrinter()
	md, ok := frontmatter.ExtractMetadata(body)
	if !ok {
		p.Warn("diagram has no frontmatter")
		return nil
	}

	linked := "no"
	if md.ID != "" {
		linked = "yes"
	}
	p.Field("linked", linked)
	if md.ID != "" {
		p.Field("id", md.ID)
	}
	if md.Query != "" {
		p.Field("query", md.Query)
	}
	if len(md.References) > 0 {
		p.Field("references", strings.Join(md.References, ", "))
	}
	if !md.GenerationTime.IsZero() {
		p.Field("generationTime", md.GenerationTime.Format(time.RFC3339))
	}
	p.Field("fields", strings.Join(frontmatter.Fields(body), ", "))
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	key, raw := args[1], args[2]

	var value any = raw
	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return fmt.Errorf("parsing value: %w", err)
		}
	}

	return editFile(cmd, args[0], func(body string) (string, error) {
		return frontmatter.SetField(body, key, value), nil
	})
}
