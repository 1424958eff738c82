package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	projectsFile = "projects.msgpack"
	documentsDir = "documents"
	docExt       = ".msgpack"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps one msgpack file per document under a root directory.
// Safe for concurrent use within one process.
type FileStore struct {
	mu   sync.RWMutex
	root string
	now  func() time.Time
}

// OpenFileStore creates the directory layout under root if needed
func OpenFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, documentsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}
	return &FileStore{root: root, now: time.Now}, nil
}

// Root returns the store directory
func (s *FileStore) Root() string {
	return s.root
}

// ============================================================================
// Projects
// ============================================================================

// Projects lists all projects ordered by title
func (s *FileStore) Projects(ctx context.Context) ([]Project, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.readProjects()
}

// CreateProject adds a project with a fresh id
func (s *FileStore) CreateProject(ctx context.Context, title string) (Project, error) {
	if err := ctx.Err(); err != nil {
		return Project{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, err := s.readProjects()
	if err != nil {
		return Project{}, err
	}
	p := Project{ID: uuid.NewString(), Title: title}
	projects = append(projects, p)
	if err := s.writeFile(filepath.Join(s.root, projectsFile), projects); err != nil {
		return Project{}, err
	}
	return p, nil
}

func (s *FileStore) readProjects() ([]Project, error) {
	var projects []Project
	ok, err := s.readFile(filepath.Join(s.root, projectsFile), &projects)
	if err != nil || !ok {
		return nil, err
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Title < projects[j].Title
	})
	return projects, nil
}

func (s *FileStore) hasProject(id string) (bool, error) {
	projects, err := s.readProjects()
	if err != nil {
		return false, err
	}
	for _, p := range projects {
		if p.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// ============================================================================
// Documents
// ============================================================================

// Documents lists the documents of a project ordered by title
func (s *FileStore) Documents(ctx context.Context, projectID string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ok, err := s.hasProject(projectID); err != nil {
		return nil, err
	} else if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	entries, err := os.ReadDir(filepath.Join(s.root, documentsDir))
	if err != nil {
		return nil, err
	}
	var docs []Document
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docExt) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc Document
		ok, err := s.readFile(filepath.Join(s.root, documentsDir, e.Name()), &doc)
		if err != nil {
			logrus.WithError(err).WithField("file", e.Name()).Warn("skipping unreadable document")
			continue
		}
		if ok && doc.ProjectID == projectID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Title < docs[j].Title
	})
	return docs, nil
}

// Get loads a document by id
func (s *FileStore) Get(ctx context.Context, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	path, ok := s.docPath(id)
	if !ok {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc Document
	found, err := s.readFile(path, &doc)
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, nil
}

// Create stores a new document in an existing project
func (s *FileStore) Create(ctx context.Context, projectID, title, code string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, err := s.hasProject(projectID); err != nil {
		return Document{}, err
	} else if !ok {
		return Document{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	doc := Document{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Title:     title,
		Code:      code,
		Version:   1,
		Updated:   s.now().UTC(),
	}
	path, _ := s.docPath(doc.ID)
	if err := s.writeFile(path, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Put overwrites the code and title of an existing document
func (s *FileStore) Put(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	path, ok := s.docPath(doc.ID)
	if !ok {
		return Document{}, fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var current Document
	found, err := s.readFile(path, &current)
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, fmt.Errorf("document %s: %w", doc.ID, ErrNotFound)
	}

	current.Code = doc.Code
	if doc.Title != "" {
		current.Title = doc.Title
	}
	current.Version++
	current.Updated = s.now().UTC()
	if err := s.writeFile(path, current); err != nil {
		return Document{}, err
	}
	return current, nil
}

// docPath maps an id to its file. Only well-formed UUIDs are accepted so an
// id can never escape the documents directory.
func (s *FileStore) docPath(id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return filepath.Join(s.root, documentsDir, parsed.String()+docExt), true
}

// ============================================================================
// Encoding
// ============================================================================

func (s *FileStore) readFile(path string, out any) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// writeFile encodes v into a temp file and renames it over path
func (s *FileStore) writeFile(path string, v any) error {
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if err := msgpack.NewEncoder(f).Encode(v); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
