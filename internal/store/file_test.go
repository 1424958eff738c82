package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := OpenFileStore(t.TempDir())
	require.NoError(t, err)
	fixed := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }
	return s
}

func TestFileStoreProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	b, err := s.CreateProject(ctx, "beta")
	require.NoError(t, err)
	a, err := s.CreateProject(ctx, "alpha")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	projects, err = s.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "alpha", projects[0].Title)
	assert.Equal(t, "beta", projects[1].Title)
}

func TestFileStoreDocumentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p, err := s.CreateProject(ctx, "docs")
	require.NoError(t, err)

	doc, err := s.Create(ctx, p.ID, "login flow", "graph TD\nA-->B")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Version)
	assert.Equal(t, p.ID, doc.ProjectID)

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "graph TD\nA-->B", got.Code)
	assert.True(t, got.Updated.Equal(doc.Updated))

	got.Code = "graph TD\nA-->C"
	updated, err := s.Put(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "login flow", updated.Title)

	docs, err := s.Documents(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "graph TD\nA-->C", docs[0].Code)
}

func TestFileStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put(ctx, Document{ID: "00000000-0000-0000-0000-000000000001"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Create(ctx, "missing-project", "x", "pie")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Documents(ctx, "missing-project")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreDocumentsFiltersByProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p1, _ := s.CreateProject(ctx, "one")
	p2, _ := s.CreateProject(ctx, "two")
	_, err := s.Create(ctx, p1.ID, "b", "pie")
	require.NoError(t, err)
	_, err = s.Create(ctx, p1.ID, "a", "gantt")
	require.NoError(t, err)
	_, err = s.Create(ctx, p2.ID, "c", "graph")
	require.NoError(t, err)

	// stray files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), documentsDir, "notes.txt"), []byte("x"), 0o644))

	docs, err := s.Documents(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Title)
	assert.Equal(t, "b", docs[1].Title)
}

func TestFileStoreCancelledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Projects(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Get(ctx, "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p, _ := s.CreateProject(ctx, "p")
	doc, err := s.Create(ctx, p.ID, "d", "pie")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Put(ctx, Document{ID: doc.ID, Code: "pie"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 11, got.Version)
}
