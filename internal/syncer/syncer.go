// Package syncer coordinates diagram text with the document store: linking,
// pulling, pushing behind the conflict-marker save gate, and the regeneration
// workflow that reconciles a local edit against the remote copy.
package syncer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/keyword"
	"github.com/mermaidchart/mmdsync/internal/reconcile"
	"github.com/mermaidchart/mmdsync/internal/store"
)

// Syncer wraps a store with a cached project listing. Saves wait for any
// listing refresh that is in flight.
type Syncer struct {
	store store.Store

	mu         sync.Mutex
	refreshing chan struct{} // closed when the in-flight refresh ends
	refreshErr error
	projects   []store.Project
	documents  map[string][]store.Document
}

// New returns a Syncer over s
func New(s store.Store) *Syncer {
	return &Syncer{
		store:     s,
		documents: make(map[string][]store.Document),
	}
}

// Store returns the underlying store
func (s *Syncer) Store() store.Store {
	return s.store
}

// ============================================================================
// Project listing
// ============================================================================

// Refresh reloads projects and their documents, fetching the per-project
// listings concurrently. A call made while another refresh is running joins
// it instead of starting a second one.
func (s *Syncer) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if ch := s.refreshing; ch != nil {
		s.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.refreshErr
	}
	ch := make(chan struct{})
	s.refreshing = ch
	s.mu.Unlock()

	projects, documents, err := s.load(ctx)

	s.mu.Lock()
	if err == nil {
		s.projects = projects
		s.documents = documents
	}
	s.refreshErr = err
	s.refreshing = nil
	close(ch)
	s.mu.Unlock()

	logrus.WithField("projects", len(projects)).WithError(err).Debug("project refresh finished")
	return err
}

func (s *Syncer) load(ctx context.Context) ([]store.Project, map[string][]store.Document, error) {
	projects, err := s.store.Projects(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing projects: %w", err)
	}

	listings := make([][]store.Document, len(projects))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range projects {
		i, p := i, p
		g.Go(func() error {
			docs, err := s.store.Documents(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("listing documents of %s: %w", p.Title, err)
			}
			listings[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	documents := make(map[string][]store.Document, len(projects))
	for i, p := range projects {
		documents[p.ID] = listings[i]
	}
	return projects, documents, nil
}

// Wait blocks until no refresh is in flight
func (s *Syncer) Wait(ctx context.Context) error {
	s.mu.Lock()
	ch := s.refreshing
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Projects returns the listing from the last successful refresh
func (s *Syncer) Projects() []store.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Project(nil), s.projects...)
}

// Documents returns the cached documents of a project
func (s *Syncer) Documents(projectID string) []store.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Document(nil), s.documents[projectID]...)
}

// ============================================================================
// Document operations
// ============================================================================

// Link uploads text as a new document of the project and returns text with
// the new id written into its frontmatter.
func (s *Syncer) Link(ctx context.Context, projectID, text string) (string, store.Document, error) {
	if id, ok := frontmatter.ExtractID(text); ok {
		return "", store.Document{}, fmt.Errorf("diagram is already linked to %s", id)
	}
	doc, err := s.store.Create(ctx, projectID, titleOf(text), frontmatter.Split(text).Body)
	if err != nil {
		return "", store.Document{}, fmt.Errorf("creating document: %w", err)
	}
	logrus.WithFields(logrus.Fields{"doc": doc.ID, "project": projectID}).Debug("linked diagram")
	return frontmatter.SetField(text, frontmatter.KeyID, doc.ID), doc, nil
}

// Pull returns the remote code of a document with its id in the frontmatter
func (s *Syncer) Pull(ctx context.Context, id string) (string, error) {
	doc, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if got, ok := frontmatter.ExtractID(doc.Code); ok && got == doc.ID {
		return doc.Code, nil
	}
	return frontmatter.SetField(doc.Code, frontmatter.KeyID, doc.ID), nil
}

// Push saves text to the document named by its id. It refuses text that
// still carries conflict markers and waits for an in-flight refresh first.
func (s *Syncer) Push(ctx context.Context, text string) (store.Document, error) {
	if line, ok := reconcile.FirstMarkerLine(text); ok {
		return store.Document{}, fmt.Errorf("%w (line %d)", ErrUnresolvedConflict, line)
	}
	id, ok := frontmatter.ExtractID(text)
	if !ok {
		return store.Document{}, ErrNotConnected
	}
	if err := s.Wait(ctx); err != nil {
		return store.Document{}, err
	}
	doc, err := s.store.Put(ctx, store.Document{ID: id, Code: frontmatter.Split(text).Body})
	if err != nil {
		return store.Document{}, fmt.Errorf("saving %s: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{"doc": id, "version": doc.Version}).Debug("pushed diagram")
	return doc, nil
}

// titleOf names a new document after its diagram type
func titleOf(text string) string {
	kw := keyword.First(text)
	if kw == "" {
		return "Untitled diagram"
	}
	if t := keyword.TypeOf(kw); t != "" {
		kw = t
	}
	return strings.ToUpper(kw[:1]) + kw[1:] + " diagram"
}
