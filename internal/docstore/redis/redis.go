// Package redis is a docstore.Substrate backed by Redis. Each document is a
// JSON string under its own key; a sorted set indexes every key so listing
// does not need SCAN. Redis has no secondary indexes without modules, so
// equality and range predicates are evaluated here over the indexed set.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"roster/internal/docstore"
)

// DefaultPrefix namespaces keys. The braces form a hash tag so the document
// keys and the index share a slot under Redis Cluster.
const DefaultPrefix = "{roster}"

// mgetBatch bounds the number of keys fetched per MGET.
const mgetBatch = 500

// createScript writes the document only if the key is free and indexes it in
// the same atomic step.
var createScript = redis.NewScript(`
if redis.call('SET', KEYS[1], ARGV[1], 'NX') then
	redis.call('ZADD', KEYS[2], 0, ARGV[2])
	return 1
end
return 0
`)

// Store persists documents in Redis.
type Store struct {
	client *redis.Client
	prefix string
}

var _ docstore.Substrate = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key namespace.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New constructs a Redis-backed substrate.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) docKey(key string) string { return s.prefix + ":doc:" + key }
func (s *Store) indexKey() string         { return s.prefix + ":index" }

// CreateIfAbsent stores doc under key unless the key is taken.
func (s *Store) CreateIfAbsent(ctx context.Context, key string, doc docstore.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	created, err := createScript.Run(ctx, s.client, []string{s.docKey(key), s.indexKey()}, payload, key).Int()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	if created == 0 {
		return docstore.ErrAlreadyExists
	}
	return nil
}

// Get reads the document stored under key.
func (s *Store) Get(ctx context.Context, key string) (docstore.Document, error) {
	raw, err := s.client.Get(ctx, s.docKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(raw)
}

// List returns every indexed document ordered by orderField.
func (s *Store) List(ctx context.Context, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	docs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	docstore.SortDocuments(docs, orderField, dir)
	return docs, nil
}

// QueryEquals returns documents whose field equals value.
func (s *Store) QueryEquals(ctx context.Context, field, value string) ([]docstore.Document, error) {
	docs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if v, ok := d[field]; ok && v == value {
			out = append(out, d)
		}
	}
	return out, nil
}

// QueryRange returns documents whose field lies in [lower, upper).
func (s *Store) QueryRange(ctx context.Context, field, lower, upper string) ([]docstore.Document, error) {
	if err := docstore.ValidateRange(lower, upper); err != nil {
		return nil, err
	}
	docs, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if v, ok := d[field]; ok && docstore.InRange(v, lower, upper) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) all(ctx context.Context) ([]docstore.Document, error) {
	keys, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	docs := make([]docstore.Document, 0, len(keys))
	for start := 0; start < len(keys); start += mgetBatch {
		end := min(start+mgetBatch, len(keys))
		batch := make([]string, 0, end-start)
		for _, k := range keys[start:end] {
			batch = append(batch, s.docKey(k))
		}
		values, err := s.client.MGet(ctx, batch...).Result()
		if err != nil {
			return nil, fmt.Errorf("read documents: %w", err)
		}
		for _, v := range values {
			raw, ok := v.(string)
			if !ok {
				// Indexed but missing: skip rather than fail the whole read.
				continue
			}
			doc, err := decode([]byte(raw))
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func decode(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
