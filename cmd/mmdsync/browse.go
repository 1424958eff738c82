package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mermaidchart/mmdsync/internal/config"
	"github.com/mermaidchart/mmdsync/internal/keyword"
	"github.com/mermaidchart/mmdsync/internal/output"
	"github.com/mermaidchart/mmdsync/internal/scan"
	"github.com/mermaidchart/mmdsync/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list [PATH]",
	Short: "List the diagrams in a file or directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

var browseCmd = &cobra.Command{
	Use:   "browse [PATH]",
	Short: "Browse diagrams interactively",
	Long: `Browse the diagrams under PATH, filter them by path, keyword or
linked/unlinked, and emit the chosen diagram's body.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBrowse,
}

func init() {
	listCmd.Flags().Bool("linked", false, "Only linked diagrams")
	listCmd.Flags().Bool("unlinked", false, "Only diagrams without an id")
	browseCmd.Flags().StringP("query", "q", "", "Initial filter")
	rootCmd.AddCommand(listCmd, browseCmd)
}

// inventory scans path, a file or a directory tree
func inventory(cmd *cobra.Command, args []string) (string, []scan.Entry, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("error resolving path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("path error: %w", err)
	}

	if !info.IsDir() {
		entries, err := scan.File(absPath)
		return filepath.Dir(absPath), entries, err
	}
	entries, err := scan.Tree(cmd.Context(), absPath, config.GetScanWorkers())
	return absPath, entries, err
}

func runList(cmd *cobra.Command, args []string) error {
	root, entries, err := inventory(cmd, args)
	if err != nil {
		return err
	}
	onlyLinked, _ := cmd.Flags().GetBool("linked")
	onlyUnlinked, _ := cmd.Flags().GetBool("unlinked")

	p := output.NewPrinter()
	pathColor := color.New(color.FgCyan)
	idColor := color.New(color.FgGreen)

	shown := 0
	for _, e := range entries {
		if (onlyLinked && !e.Connected()) || (onlyUnlinked && e.Connected()) {
			continue
		}
		rel, err := filepath.Rel(root, e.Path)
		if err != nil {
			rel = e.Path
		}
		id := "-"
		if e.Connected() {
			id = idColor.Sprint(e.ID)
		}
		fmt.Printf("%s  %-16s %-18s %s\n", pathColor.Sprintf("%s:%d", rel, e.Line), e.Format, e.Title(), id)
		shown++
	}
	if shown == 0 {
		p.Warn("no diagrams found")
	}
	return nil
}

func runBrowse(cmd *cobra.Command, args []string) error {
	root, entries, err := inventory(cmd, args)
	if err != nil {
		return err
	}
	query, _ := cmd.Flags().GetString("query")

	tracker := keyword.NewTracker(config.GetKeywordCache())
	chosen, err := ui.RunBrowse(entries, root, query, tracker)
	if err != nil || chosen == nil {
		return err
	}
	return output.NewPrinter().Emit(chosen.Body)
}
