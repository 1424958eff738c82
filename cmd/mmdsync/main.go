package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mermaidchart/mmdsync/internal/config"
	"github.com/mermaidchart/mmdsync/internal/diagram"
	"github.com/mermaidchart/mmdsync/internal/output"
	"github.com/mermaidchart/mmdsync/internal/store"
	"github.com/mermaidchart/mmdsync/internal/syncer"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "mmdsync",
	Short: "Mermaid diagrams in text files, kept in sync",
	Long: `Locate mermaid diagrams embedded in Markdown, HTML, Hugo and Sphinx
sources, edit their frontmatter, and sync them with a document store.

Diagrams inside a file are picked with --line/--col or --offset; a file
holding a single diagram needs neither.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("output", "o", "", "Output mode: print, copy")
	rootCmd.PersistentFlags().Bool("copy", false, "Copy results (shorthand for -o copy)")
	rootCmd.PersistentFlags().String("store", "", "Document store directory")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")

	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("store", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
	}
	if c, _ := rootCmd.PersistentFlags().GetBool("copy"); c {
		config.SetOutput(string(output.ModeCopy))
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	level, err := logrus.ParseLevel(config.GetLogLevel())
	if err != nil {
		level = logrus.WarnLevel
	}
	logrus.SetLevel(level)
}

// ============================================================================
// Shared helpers
// ============================================================================

// addCursorFlags registers the flags that pick a diagram inside a file
func addCursorFlags(cmd *cobra.Command) {
	cmd.Flags().Int("offset", -1, "Byte offset of the cursor")
	cmd.Flags().Int("line", 0, "1-based cursor line")
	cmd.Flags().Int("col", 1, "1-based cursor column")
}

// target finds the diagram a command works on. Standalone diagram files are
// the diagram; other files need a cursor unless they hold exactly one.
func target(cmd *cobra.Command, path, text string) (diagram.Span, error) {
	rules := diagram.RulesForPath(path)
	if len(rules) == 0 {
		return diagram.Span{}, fmt.Errorf("%s: unsupported file type", path)
	}

	spans := diagram.All(text, rules)
	if diagram.IsDiagramFile(path) {
		if len(spans) == 0 {
			return diagram.Span{}, fmt.Errorf("%s: empty diagram", path)
		}
		return spans[0], nil
	}

	cursor, given, err := cursorFrom(cmd, text)
	if err != nil {
		return diagram.Span{}, err
	}
	if !given {
		if len(spans) == 1 {
			return spans[0], nil
		}
		return diagram.Span{}, fmt.Errorf("%s holds %d diagrams; pass --line or --offset", path, len(spans))
	}

	span, ok := diagram.LocateIn(text, cursor, rules)
	if !ok {
		return diagram.Span{}, diagram.ErrNoDiagram
	}
	return span, nil
}

func cursorFrom(cmd *cobra.Command, text string) (int, bool, error) {
	if offset, _ := cmd.Flags().GetInt("offset"); offset >= 0 {
		if offset > len(text) {
			return 0, false, fmt.Errorf("offset %d is past the end of the file", offset)
		}
		return offset, true, nil
	}
	line, _ := cmd.Flags().GetInt("line")
	if line <= 0 {
		return 0, false, nil
	}
	col, _ := cmd.Flags().GetInt("col")
	offset, ok := diagram.OffsetOf(text, line, col)
	if !ok {
		return 0, false, fmt.Errorf("line %d is out of range", line)
	}
	return offset, true, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeText replaces path atomically, keeping its permissions
func writeText(path, text string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// editFile rewrites the body of the targeted diagram. With --dry-run the new
// file content is emitted instead of written.
func editFile(cmd *cobra.Command, path string, edit func(body string) (string, error)) error {
	text, err := readText(path)
	if err != nil {
		return err
	}
	span, err := target(cmd, path, text)
	if err != nil {
		return err
	}
	updated, err := diagram.EditBody(text, span, edit)
	if err != nil {
		return err
	}
	return saveOrEmit(cmd, path, text, updated)
}

func saveOrEmit(cmd *cobra.Command, path, before, after string) error {
	p := output.NewPrinter()
	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		return p.Emit(after)
	}
	if before == after {
		p.OK("%s unchanged", path)
		return nil
	}
	if err := writeText(path, after); err != nil {
		return err
	}
	p.OK("updated %s", path)
	return nil
}

func addDryRunFlag(cmd *cobra.Command) {
	cmd.Flags().BoolP("dry-run", "n", false, "Print the result instead of writing the file")
}

func newSyncer() (*syncer.Syncer, error) {
	fs, err := store.OpenFileStore(config.GetStore())
	if err != nil {
		return nil, err
	}
	return syncer.New(fs), nil
}

func main() {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.NewPrinter().Error(err)
		stop()
		os.Exit(1)
	}
}
