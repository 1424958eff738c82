// Package store holds diagram documents grouped into projects. FileStore is a
// local stand-in for the remote diagram service.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned for unknown project or document ids
var ErrNotFound = errors.New("not found")

// Project groups documents
type Project struct {
	ID    string `msgpack:"id"`
	Title string `msgpack:"title"`
}

// Document is one stored diagram
type Document struct {
	ID        string    `msgpack:"id"`
	ProjectID string    `msgpack:"project_id"`
	Title     string    `msgpack:"title"`
	Code      string    `msgpack:"code"`
	Version   int       `msgpack:"version"`
	Updated   time.Time `msgpack:"updated"`
}

// Store is the remote side of diagram sync
type Store interface {
	Projects(ctx context.Context) ([]Project, error)
	CreateProject(ctx context.Context, title string) (Project, error)
	Documents(ctx context.Context, projectID string) ([]Document, error)
	Get(ctx context.Context, id string) (Document, error)
	Create(ctx context.Context, projectID, title, code string) (Document, error)
	// Put replaces the code of an existing document and bumps its version
	Put(ctx context.Context, doc Document) (Document, error)
}
