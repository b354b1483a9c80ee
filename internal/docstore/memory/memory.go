// Package memory is an in-process docstore.Substrate. It keeps the
// development setup and unit tests free of external services; clarity beats
// performance here.
package memory

import (
	"context"
	"sync"

	"roster/internal/docstore"
)

// Store is a map-backed substrate guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	docs map[string]docstore.Document
	// fail, when set, is returned from every call. Used to simulate an
	// unavailable backend.
	fail error
}

var _ docstore.Substrate = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[string]docstore.Document)}
}

// FailWith makes every subsequent call return err (nil restores service).
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

// CreateIfAbsent inserts doc under key unless the key is taken.
func (s *Store) CreateIfAbsent(_ context.Context, key string, doc docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	if _, ok := s.docs[key]; ok {
		return docstore.ErrAlreadyExists
	}
	s.docs[key] = doc.Clone()
	return nil
}

// Get returns a copy of the document under key.
func (s *Store) Get(_ context.Context, key string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	doc, ok := s.docs[key]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc.Clone(), nil
}

// List returns every document ordered by orderField.
func (s *Store) List(_ context.Context, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	out, err := s.filter(func(docstore.Document) bool { return true })
	if err != nil {
		return nil, err
	}
	docstore.SortDocuments(out, orderField, dir)
	return out, nil
}

// QueryEquals returns documents whose field equals value.
func (s *Store) QueryEquals(_ context.Context, field, value string) ([]docstore.Document, error) {
	return s.filter(func(d docstore.Document) bool {
		v, ok := d[field]
		return ok && v == value
	})
}

// QueryRange returns documents whose field lies in [lower, upper).
func (s *Store) QueryRange(_ context.Context, field, lower, upper string) ([]docstore.Document, error) {
	if err := docstore.ValidateRange(lower, upper); err != nil {
		return nil, err
	}
	return s.filter(func(d docstore.Document) bool {
		v, ok := d[field]
		return ok && docstore.InRange(v, lower, upper)
	})
}

// Ping reports the simulated failure, if any.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fail
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) filter(keep func(docstore.Document) bool) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.fail != nil {
		return nil, s.fail
	}
	out := make([]docstore.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		if keep(doc) {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}
