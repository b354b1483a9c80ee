// Package postgres is a docstore.Substrate backed by a single PostgreSQL
// table of JSONB documents. Create-if-absent relies on the primary key and
// INSERT ... ON CONFLICT DO NOTHING, so uniqueness holds across processes.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"roster/internal/docstore"
)

// DefaultTable is the table used when no name is configured.
const DefaultTable = "member_documents"

// Store persists documents in PostgreSQL.
type Store struct {
	db    *sql.DB
	table string // already quoted
}

var _ docstore.Substrate = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the table name.
func WithTable(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.table = pq.QuoteIdentifier(name)
		}
	}
}

// New constructs a PostgreSQL-backed substrate. Call Migrate once before use.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, table: pq.QuoteIdentifier(DefaultTable)}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Migrate creates the document table and one byte-ordered expression index
// per indexed field so equality and range predicates stay index-backed.
func (s *Store) Migrate(ctx context.Context, indexedFields ...string) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			doc JSONB NOT NULL
		)`, s.table)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create document table: %w", err)
	}
	bare := strings.Trim(s.table, `"`)
	for _, field := range indexedFields {
		index := pq.QuoteIdentifier(bare + "_" + strings.ToLower(field) + "_idx")
		stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s ((%s COLLATE "C"))`,
			index, s.table, fieldExpr(field))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index on %s: %w", field, err)
		}
	}
	return nil
}

// CreateIfAbsent inserts doc under key; a taken key yields ErrAlreadyExists.
func (s *Store) CreateIfAbsent(ctx context.Context, key string, doc docstore.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	query := fmt.Sprintf(`INSERT INTO %s (key, doc) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`, s.table)
	res, err := s.db.ExecContext(ctx, query, key, payload)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if n == 0 {
		return docstore.ErrAlreadyExists
	}
	return nil
}

// Get reads the document stored under key.
func (s *Store) Get(ctx context.Context, key string) (docstore.Document, error) {
	var raw []byte
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE key = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return decode(raw)
}

// List returns all documents ordered by orderField (byte order), key as tiebreak.
func (s *Store) List(ctx context.Context, orderField string, dir docstore.Direction) ([]docstore.Document, error) {
	// Missing fields sort as the empty string would: first ascending, last descending.
	order := "ASC NULLS FIRST"
	if dir == docstore.Descending {
		order = "DESC NULLS LAST"
	}
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY %s COLLATE "C" %s, key`,
		s.table, fieldExpr(orderField), order)
	return s.query(ctx, "list documents", query)
}

// QueryEquals returns documents whose field equals value.
func (s *Store) QueryEquals(ctx context.Context, field, value string) ([]docstore.Document, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s = $1`, s.table, fieldExpr(field))
	return s.query(ctx, "query documents", query, value)
}

// QueryRange returns documents whose field lies in [lower, upper) under
// byte-wise collation.
func (s *Store) QueryRange(ctx context.Context, field, lower, upper string) ([]docstore.Document, error) {
	if err := docstore.ValidateRange(lower, upper); err != nil {
		return nil, err
	}
	expr := fieldExpr(field) + ` COLLATE "C"`
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE %s >= $1 AND %s < $2`, s.table, expr, expr)
	return s.query(ctx, "range documents", query, lower, upper)
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) query(ctx context.Context, op, query string, args ...any) ([]docstore.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var docs []docstore.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		doc, err := decode(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return docs, nil
}

// fieldExpr renders doc->>'field'. Field names come from the record store's
// index table, never from callers, but are quoted anyway.
func fieldExpr(field string) string {
	return "(doc->>" + pq.QuoteLiteral(field) + ")"
}

func decode(raw []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// Open connects through the pgx database/sql driver and verifies the
// connection. dsn may be a URL or a keyword/value string.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
