package syncer

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/reconcile"
	"github.com/mermaidchart/mmdsync/internal/store"
)

// Session is one regeneration attempt for a local diagram: fetch the remote
// copy, reconcile, then apply or abort.
type Session struct {
	syncer *Syncer
	local  string

	mu     sync.Mutex
	state  State
	result reconcile.Result
	remote store.Document
}

// NewSession starts an idle session for the local diagram text
func (s *Syncer) NewSession(local string) *Session {
	return &Session{syncer: s, local: local, state: Idle}
}

// State returns the current workflow state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result returns the reconciliation outcome once fetched
func (s *Session) Result() reconcile.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Remote returns the document fetched by the session
func (s *Session) Remote() store.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remote
}

func (s *Session) moveTo(next State) error {
	if err := checkTransition(s.state, next); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"from": s.state, "state": next}).Debug("session transition")
	s.state = next
	return nil
}

// Fetch loads the remote copy and reconciles the local text against it.
// The local frontmatter block is kept on the remote side so only the
// diagram bodies are compared. On a store error the session returns to Idle.
func (s *Session) Fetch(ctx context.Context) (reconcile.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return reconcile.Result{}, checkTransition(s.state, Fetching)
	}
	id, ok := frontmatter.ExtractID(s.local)
	if !ok {
		return reconcile.Result{}, ErrNotConnected
	}
	if err := s.moveTo(Fetching); err != nil {
		return reconcile.Result{}, err
	}

	doc, err := s.syncer.store.Get(ctx, id)
	if err != nil {
		s.state = Idle
		return reconcile.Result{}, fmt.Errorf("fetching %s: %w", id, err)
	}

	header := s.local[:len(s.local)-len(frontmatter.Split(s.local).Body)]
	remoteText := header + frontmatter.Split(doc.Code).Body

	res := reconcile.Reconcile(s.local, remoteText)
	var next State
	switch res.Kind {
	case reconcile.Identical:
		next = Identical
	case reconcile.NoConflict:
		next = NoConflict
	default:
		next = Conflict
	}
	if err := s.moveTo(next); err != nil {
		return reconcile.Result{}, err
	}
	s.remote = doc
	s.result = res
	return res, nil
}

// Apply saves the resolved text. While conflict markers remain the session
// stays where it is and ErrUnresolvedConflict is returned.
func (s *Session) Apply(ctx context.Context, text string) (store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkTransition(s.state, Applied); err != nil {
		return store.Document{}, err
	}
	doc, err := s.syncer.Push(ctx, text)
	if err != nil {
		return store.Document{}, err
	}
	if err := s.moveTo(Applied); err != nil {
		return store.Document{}, err
	}
	return doc, nil
}

// Abort ends the session without saving
func (s *Session) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moveTo(Aborted)
}
