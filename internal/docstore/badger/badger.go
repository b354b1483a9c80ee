// Package badger is an embedded docstore.Substrate on top of BadgerDB, for
// single-node deployments that want persistence without a database server.
// Create-if-absent runs in a serializable transaction: a concurrent create of
// the same key surfaces as badger.ErrConflict and is reported as
// docstore.ErrAlreadyExists.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"roster/internal/docstore"
)

const (
	keyPrefix          = "doc/"
	defaultGCInterval  = 5 * time.Minute
	gcDiscardThreshold = 0.5
)

// Store persists documents in BadgerDB.
type Store struct {
	db         *badger.DB
	logger     *slog.Logger
	dataDir    string
	gcInterval time.Duration
	gcStop     chan struct{}
	gcWg       sync.WaitGroup
}

var _ docstore.Substrate = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithDataDir persists to dir. Without it the store is in-memory.
func WithDataDir(dir string) Option {
	return func(s *Store) { s.dataDir = dir }
}

// WithLogger routes badger's own logging through logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithGCInterval sets how often value-log GC runs. Zero disables it.
func WithGCInterval(d time.Duration) Option {
	return func(s *Store) { s.gcInterval = d }
}

// Open opens (or creates) the database.
func Open(opts ...Option) (*Store, error) {
	s := &Store{gcInterval: defaultGCInterval}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var badgerOpts badger.Options
	if s.dataDir == "" {
		badgerOpts = badger.DefaultOptions("").WithInMemory(true)
		s.gcInterval = 0
	} else {
		if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		badgerOpts = badger.DefaultOptions(s.dataDir)
	}
	badgerOpts = badgerOpts.
		WithLogger(newLogger(s.logger)).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s.db = db

	if s.gcInterval > 0 {
		s.gcStop = make(chan struct{})
		s.gcWg.Add(1)
		go s.runGC()
	}
	return s, nil
}

// CreateIfAbsent stores doc under key unless the key is taken.
func (s *Store) CreateIfAbsent(_ context.Context, key string, doc docstore.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	k := []byte(keyPrefix + key)
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		if err == nil {
			return docstore.ErrAlreadyExists
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(k, payload)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrAlreadyExists):
		return err
	case errors.Is(err, badger.ErrConflict):
		// Only creates write document keys, so a conflict on our read means
		// another transaction created this key first.
		return docstore.ErrAlreadyExists
	default:
		return fmt.Errorf("create document: %w", err)
	}
}

// Get reads the document stored under key.
func (s *Store) Get(_ context.Context, key string) (docstore.Document, error) {
	var doc docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			doc, err = decode(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// List returns every document ordered by orderField.
func (s *Store) List(ctx context.Context, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	docs, err := s.scan(ctx, func(docstore.Document) bool { return true })
	if err != nil {
		return nil, err
	}
	docstore.SortDocuments(docs, orderField, dir)
	return docs, nil
}

// QueryEquals returns documents whose field equals value.
func (s *Store) QueryEquals(ctx context.Context, field, value string) ([]docstore.Document, error) {
	return s.scan(ctx, func(d docstore.Document) bool {
		v, ok := d[field]
		return ok && v == value
	})
}

// QueryRange returns documents whose field lies in [lower, upper).
func (s *Store) QueryRange(ctx context.Context, field, lower, upper string) ([]docstore.Document, error) {
	if err := docstore.ValidateRange(lower, upper); err != nil {
		return nil, err
	}
	return s.scan(ctx, func(d docstore.Document) bool {
		v, ok := d[field]
		return ok && docstore.InRange(v, lower, upper)
	})
}

// Ping reports whether the database is open.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		s.gcWg.Wait()
		s.gcStop = nil
	}
	return s.db.Close()
}

func (s *Store) scan(ctx context.Context, keep func(docstore.Document) bool) ([]docstore.Document, error) {
	var docs []docstore.Document
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var doc docstore.Document
			err := it.Item().Value(func(val []byte) error {
				var err error
				doc, err = decode(val)
				return err
			})
			if err != nil {
				return err
			}
			if keep(doc) {
				docs = append(docs, doc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	return docs, nil
}

func (s *Store) runGC() {
	defer s.gcWg.Done()
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			for {
				err := s.db.RunValueLogGC(gcDiscardThreshold)
				if err == nil {
					// Keep going while GC finds something to rewrite.
					continue
				}
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn("badger value log GC failed", "error", err)
				}
				break
			}
		case <-s.gcStop:
			return
		}
	}
}

func decode(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
