package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mermaidchart/mmdsync/internal/config"
	"github.com/mermaidchart/mmdsync/internal/diagram"
	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/output"
	"github.com/mermaidchart/mmdsync/internal/reconcile"
	"github.com/mermaidchart/mmdsync/internal/syncer"
)

var linkCmd = &cobra.Command{
	Use:   "link FILE",
	Short: "Upload a diagram as a new document and record its id",
	Args:  cobra.ExactArgs(1),
	RunE:  runLink,
}

var pullCmd = &cobra.Command{
	Use:   "pull ID",
	Short: "Print a stored document with its id frontmatter",
	Args:  cobra.ExactArgs(1),
	RunE:  runPull,
}

var pushCmd = &cobra.Command{
	Use:   "push FILE",
	Short: "Save a linked diagram to its document",
	Long: `Save a linked diagram to its document.

Diagrams that still contain conflict markers are refused.`,
	Args: cobra.ExactArgs(1),
	RunE: runPush,
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate FILE",
	Short: "Bring remote changes into a linked diagram",
	Long: `Fetch the document a diagram is linked to and reconcile it with the local copy.

Identical copies are left alone. Differences in blank lines only take the
remote text. Real differences are written back between conflict markers:

  <<<<<<< Current
  ...local lines...
  =======
  ...remote lines...
  >>>>>>> Remote Changes

Edit the markers out (or run resolve) before pushing.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegenerate,
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile LOCAL REMOTE",
	Short: "Reconcile two diagram files and print the result",
	Args:  cobra.ExactArgs(2),
	RunE:  runReconcile,
}

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Fail when a file still holds conflict markers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve FILE",
	Short: "Resolve every conflict in a file by keeping one side",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List projects and their documents",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	for _, cmd := range []*cobra.Command{linkCmd, pushCmd, regenerateCmd} {
		addCursorFlags(cmd)
	}
	linkCmd.Flags().StringP("project", "p", "", "Project id (defaults to the configured project)")
	addDryRunFlag(linkCmd)
	pullCmd.Flags().StringP("file", "f", "", "Write to FILE instead of emitting")
	regenerateCmd.Flags().Bool("push", false, "Save the result when there is no conflict")
	addDryRunFlag(regenerateCmd)
	reconcileCmd.Flags().Bool("diff", false, "Print a unified diff instead of the merged text")
	resolveCmd.Flags().String("keep", "current", "Side to keep: current or remote")
	addDryRunFlag(resolveCmd)
	projectsCmd.Flags().String("create", "", "Create a project with this title")

	rootCmd.AddCommand(linkCmd, pullCmd, pushCmd, regenerateCmd, reconcileCmd, checkCmd, resolveCmd, projectsCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		project = config.GetProject()
	}
	if project == "" {
		return fmt.Errorf("no project given; pass --project or set project in mmdsync.yaml")
	}

	s, err := newSyncer()
	if err != nil {
		return err
	}
	return editFile(cmd, args[0], func(body string) (string, error) {
		linked, doc, err := s.Link(cmd.Context(), project, body)
		if err != nil {
			return "", err
		}
		output.NewPrinter().OK("linked to %s (%s)", doc.ID, doc.Title)
		return linked, nil
	})
}

func runPull(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}
	text, err := s.Pull(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	p := output.NewPrinter()
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		if err := writeText(file, text); err != nil {
			return err
		}
		p.OK("wrote %s", file)
		return nil
	}
	return p.Emit(text)
}

func runPush(cmd *cobra.Command, args []string) error {
	text, span, err := loadTarget(cmd, args[0])
	if err != nil {
		return err
	}
	if line, ok := reconcile.FirstMarkerLine(span.Body); ok {
		line += diagram.LineOf(text, span.BodyStart) - 1
		return fmt.Errorf("%s:%d: %w", args[0], line, syncer.ErrUnresolvedConflict)
	}

	s, err := newSyncer()
	if err != nil {
		return err
	}
	body, _ := diagram.Dedent(span.Body)
	doc, err := s.Push(cmd.Context(), body)
	if err != nil {
		return err
	}
	output.NewPrinter().OK("saved %s (version %d)", doc.ID, doc.Version)
	return nil
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	path := args[0]
	text, span, err := loadTarget(cmd, path)
	if err != nil {
		return err
	}
	s, err := newSyncer()
	if err != nil {
		return err
	}

	body, prefix := diagram.Dedent(span.Body)
	sess := s.NewSession(body)
	res, err := sess.Fetch(cmd.Context())
	if err != nil {
		return err
	}

	p := output.NewPrinter()
	switch sess.State() {
	case syncer.Identical:
		p.OK("%s is up to date (version %d)", path, sess.Remote().Version)
		return sess.Abort()

	case syncer.Conflict:
		if err := sess.Abort(); err != nil {
			return err
		}
		updated := diagram.ReplaceIndented(text, span, res.Text, prefix)
		if err := saveOrEmit(cmd, path, text, updated); err != nil {
			return err
		}
		line, _ := reconcile.FirstMarkerLine(updated)
		return fmt.Errorf("%s:%d: %w; edit the markers out, then push", path, line, syncer.ErrUnresolvedConflict)
	}

	merged := frontmatter.SetMetadata(res.Text, frontmatter.Metadata{GenerationTime: time.Now()})
	if push, _ := cmd.Flags().GetBool("push"); push {
		doc, err := sess.Apply(cmd.Context(), merged)
		if err != nil {
			return err
		}
		p.OK("saved %s (version %d)", doc.ID, doc.Version)
	} else if err := sess.Abort(); err != nil {
		return err
	}

	updated := diagram.ReplaceIndented(text, span, merged, prefix)
	return saveOrEmit(cmd, path, text, updated)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	local, err := readText(args[0])
	if err != nil {
		return err
	}
	remote, err := readText(args[1])
	if err != nil {
		return err
	}

	p := output.NewPrinter()
	if diff, _ := cmd.Flags().GetBool("diff"); diff {
		d, err := reconcile.UnifiedDiff(local, remote)
		if err != nil {
			return err
		}
		p.Diff(d)
		return nil
	}

	res := reconcile.Reconcile(local, remote)
	switch res.Kind {
	case reconcile.Identical:
		p.OK("identical")
		return nil
	case reconcile.NoConflict:
		p.OK("no conflict (blank lines only)")
		return p.Emit(res.Text)
	}
	p.Conflict(res.Text)
	return syncer.ErrUnresolvedConflict
}

func runCheck(cmd *cobra.Command, args []string) error {
	p := output.NewPrinter()
	failed := 0
	for _, path := range args {
		text, err := readText(path)
		if err != nil {
			return err
		}
		if line, ok := reconcile.FirstMarkerLine(text); ok {
			p.Warn("%s:%d: unresolved conflict markers", path, line)
			failed++
			continue
		}
		p.OK("%s", path)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s): %w", failed, syncer.ErrUnresolvedConflict)
	}
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	keep, _ := cmd.Flags().GetString("keep")
	var side reconcile.Side
	switch keep {
	case "current":
		side = reconcile.KeepCurrent
	case "remote":
		side = reconcile.KeepRemote
	default:
		return fmt.Errorf("--keep must be current or remote, got %q", keep)
	}

	text, err := readText(args[0])
	if err != nil {
		return err
	}
	resolved, ok := reconcile.Resolve(text, side)
	if !ok {
		line, _ := reconcile.FirstMarkerLine(text)
		return fmt.Errorf("%s:%d: unbalanced or inline conflict markers", args[0], line)
	}
	return saveOrEmit(cmd, args[0], text, resolved)
}

func runProjects(cmd *cobra.Command, args []string) error {
	s, err := newSyncer()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	p := output.NewPrinter()

	if title, _ := cmd.Flags().GetString("create"); title != "" {
		project, err := s.Store().CreateProject(ctx, title)
		if err != nil {
			return err
		}
		p.OK("created project %s (%s)", project.Title, project.ID)
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}
	projects := s.Projects()
	if len(projects) == 0 {
		p.Warn("no projects; create one with --create")
		return nil
	}
	for _, project := range projects {
		docs := s.Documents(project.ID)
		p.Field(project.Title, fmt.Sprintf("%s  %d document(s)", project.ID, len(docs)))
		for _, doc := range docs {
			fmt.Printf("  %s  v%-3d %s\n", doc.ID, doc.Version, doc.Title)
		}
	}
	return nil
}
