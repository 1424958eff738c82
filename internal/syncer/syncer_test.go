package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mermaidchart/mmdsync/internal/frontmatter"
	"github.com/mermaidchart/mmdsync/internal/reconcile"
	"github.com/mermaidchart/mmdsync/internal/store"
)

func newTestSyncer(t *testing.T) (*Syncer, store.Project) {
	t.Helper()
	fs, err := store.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	p, err := fs.CreateProject(context.Background(), "docs")
	require.NoError(t, err)
	return New(fs), p
}

// linked creates a remote document holding code and returns local text
// pointing at it
func linked(t *testing.T, s *Syncer, p store.Project, code string) string {
	t.Helper()
	text, _, err := s.Link(context.Background(), p.ID, code)
	require.NoError(t, err)
	return text
}

func TestLinkAndPull(t *testing.T) {
	ctx := context.Background()
	s, p := newTestSyncer(t)

	text, doc, err := s.Link(ctx, p.ID, "graph TD\nA-->B")
	require.NoError(t, err)
	assert.Equal(t, "Flowchart diagram", doc.Title)
	assert.Equal(t, "graph TD\nA-->B", doc.Code)

	id, ok := frontmatter.ExtractID(text)
	require.True(t, ok)
	assert.Equal(t, doc.ID, id)
	assert.Equal(t, "---\nid: "+doc.ID+"\n---\ngraph TD\nA-->B", text)

	_, _, err = s.Link(ctx, p.ID, text)
	assert.Error(t, err, "linking twice must fail")

	pulled, err := s.Pull(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, text, pulled)

	_, err = s.Pull(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPushSaveGate(t *testing.T) {
	ctx := context.Background()
	s, p := newTestSyncer(t)
	text := linked(t, s, p, "pie\n\"a\": 1")

	_, err := s.Push(ctx, "pie")
	assert.ErrorIs(t, err, ErrNotConnected)

	conflicted := text + "\n" + reconcile.MarkerCurrent + "\nx\n" + reconcile.MarkerSeparator + "\ny\n" + reconcile.MarkerRemote
	_, err = s.Push(ctx, conflicted)
	assert.ErrorIs(t, err, ErrUnresolvedConflict)

	doc, err := s.Push(ctx, text+"\n\"b\": 2")
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Version)
	assert.Equal(t, "pie\n\"a\": 1\n\"b\": 2", doc.Code)
}

func TestSessionOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		remote string
		local  string
		state  State
	}{
		{"identical", "A\nB\nC", "A\nB\nC", Identical},
		{"blank lines only", "A\nB", "A\n\nB", NoConflict},
		{"diverged", "A\nZ\nC", "A\nB\nC", Conflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s, p := newTestSyncer(t)
			text := linked(t, s, p, tt.remote)
			id, _ := frontmatter.ExtractID(text)
			local := frontmatter.SetField(tt.local, frontmatter.KeyID, id)

			sess := s.NewSession(local)
			assert.Equal(t, Idle, sess.State())

			res, err := sess.Fetch(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.state, sess.State())
			assert.Equal(t, res, sess.Result())
			assert.Equal(t, id, sess.Remote().ID)

			if tt.state == Conflict {
				_, err := sess.Apply(ctx, res.Text)
				assert.ErrorIs(t, err, ErrUnresolvedConflict)
				assert.Equal(t, Conflict, sess.State())

				resolved, ok := reconcile.Resolve(res.Text, reconcile.KeepCurrent)
				require.True(t, ok)
				res.Text = resolved
			}

			doc, err := sess.Apply(ctx, res.Text)
			require.NoError(t, err)
			assert.Equal(t, Applied, sess.State())
			assert.Equal(t, frontmatter.Split(res.Text).Body, doc.Code)

			_, err = sess.Apply(ctx, res.Text)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.ErrorIs(t, sess.Abort(), ErrInvalidTransition)
		})
	}
}

func TestSessionConflictText(t *testing.T) {
	ctx := context.Background()
	s, p := newTestSyncer(t)
	text := linked(t, s, p, "A\nZ\nC")
	id, _ := frontmatter.ExtractID(text)

	sess := s.NewSession("---\nid: " + id + "\n---\nA\nB\nC")
	res, err := sess.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, reconcile.Conflict, res.Kind)
	assert.Equal(t, "---\nid: "+id+"\n---\nA\n<<<<<<< Current\nB\n=======\nZ\n>>>>>>> Remote Changes\nC", res.Text)
}

func TestSessionErrors(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestSyncer(t)

	sess := s.NewSession("graph TD")
	_, err := sess.Fetch(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, Idle, sess.State())

	_, err = sess.Apply(ctx, "graph TD")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	missing := s.NewSession("---\nid: 00000000-0000-0000-0000-000000000000\n---\ngraph TD")
	_, err = missing.Fetch(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, Idle, missing.State(), "failed fetch returns to idle")

	require.NoError(t, missing.Abort())
	assert.Equal(t, Aborted, missing.State())
	assert.True(t, missing.State().Terminal())
	_, err = missing.Fetch(ctx)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	s, p := newTestSyncer(t)
	linked(t, s, p, "pie")
	linked(t, s, p, "gantt")
	other, err := s.Store().CreateProject(ctx, "empty")
	require.NoError(t, err)

	require.NoError(t, s.Refresh(ctx))
	assert.Len(t, s.Projects(), 2)
	assert.Len(t, s.Documents(p.ID), 2)
	assert.Empty(t, s.Documents(other.ID))
	assert.NoError(t, s.Wait(ctx))
}

// blockingStore holds Projects until released so a refresh stays in flight
type blockingStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	calls   int
	mu      sync.Mutex
}

func (b *blockingStore) Projects(ctx context.Context) ([]store.Project, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.Store.Projects(ctx)
}

func TestRefreshSingleFlightAndSaveWaits(t *testing.T) {
	ctx := context.Background()
	fs, err := store.OpenFileStore(t.TempDir())
	require.NoError(t, err)
	p, err := fs.CreateProject(ctx, "docs")
	require.NoError(t, err)

	bs := &blockingStore{Store: fs, entered: make(chan struct{}), release: make(chan struct{})}
	s := New(bs)
	text, _, err := s.Link(ctx, p.ID, "pie")
	require.NoError(t, err)

	first := make(chan error, 1)
	go func() { first <- s.Refresh(ctx) }()
	<-bs.entered

	second := make(chan error, 1)
	go func() { second <- s.Refresh(ctx) }()

	pushed := make(chan error, 1)
	go func() {
		_, err := s.Push(ctx, text)
		pushed <- err
	}()

	select {
	case <-pushed:
		t.Fatal("push finished while a refresh was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(timeout), context.DeadlineExceeded)

	close(bs.release)
	require.NoError(t, <-first)
	require.NoError(t, <-second)
	require.NoError(t, <-pushed)

	bs.mu.Lock()
	assert.Equal(t, 1, bs.calls)
	bs.mu.Unlock()
	assert.Len(t, s.Documents(p.ID), 1)
}

func TestTransitions(t *testing.T) {
	assert.True(t, canTransition(Idle, Fetching))
	assert.True(t, canTransition(Fetching, Conflict))
	assert.True(t, canTransition(Conflict, Applied))
	assert.False(t, canTransition(Idle, Applied))
	assert.False(t, canTransition(Applied, Fetching))
	assert.False(t, canTransition(Aborted, Idle))
	assert.Equal(t, "no-conflict", NoConflict.String())
}
