// Package store is the member record store. It owns the mapping between
// members and substrate documents and enforces identity uniqueness by using
// personId as the key of an atomic create-if-absent.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"roster/internal/docstore"
	"roster/internal/member/models"
	"roster/pkg/normalize"
	"roster/pkg/platform/sentinel"
)

// MaxSentinel closes a prefix range: every string starting with p sorts below
// p + MaxSentinel.
const MaxSentinel = "\U0010FFFF"

var (
	// ErrDuplicateIdentity is returned by Insert when personId is taken.
	ErrDuplicateIdentity = fmt.Errorf("member already registered: %w", sentinel.ErrAlreadyUsed)
	// ErrNotFound is returned by GetByID when no member has the id.
	ErrNotFound = fmt.Errorf("member not found: %w", sentinel.ErrNotFound)
	// ErrNotIndexed is returned when a substrate query targets a field the
	// store does not index. Callers must fall back to a scan.
	ErrNotIndexed = errors.New("field is not indexed")
)

type indexKey struct {
	field  string
	folded bool
}

var indexKeys = map[models.Field]indexKey{
	models.FieldPersonID:    {docPersonID, false},
	models.FieldMemberType:  {docMemberType, false},
	models.FieldFirstName:   {docFirstNameFold, true},
	models.FieldLastName:    {docLastNameFold, true},
	models.FieldAddress:     {docAddressFold, true},
	models.FieldVotingPlace: {docVotingPlaceFold, true},
	models.FieldTable:       {docTableFold, true},
	models.FieldLeader:      {docLeaderFold, true},
}

// Indexed reports whether f can be queried natively.
func Indexed(f models.Field) bool {
	_, ok := indexKeys[f]
	return ok
}

// Store persists members in a docstore.Substrate.
type Store struct {
	substrate docstore.Substrate
	clock     *monotonicClock
}

type Option func(*Store)

// WithClock overrides the time source used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.clock.now = now
	}
}

// New constructs a Store over substrate.
func New(substrate docstore.Substrate, opts ...Option) *Store {
	s := &Store{
		substrate: substrate,
		clock:     &monotonicClock{now: time.Now},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Insert registers m under its personId and sets m.CreatedAt. A taken
// personId yields ErrDuplicateIdentity and nothing is written.
func (s *Store) Insert(ctx context.Context, m *models.Member) (string, error) {
	rec := m.Clone()
	rec.CreatedAt = s.clock.next()
	err := s.substrate.CreateIfAbsent(ctx, rec.PersonID, encode(rec))
	if errors.Is(err, docstore.ErrAlreadyExists) {
		return "", ErrDuplicateIdentity
	}
	if err != nil {
		return "", unavailable("insert member", err)
	}
	m.CreatedAt = rec.CreatedAt
	return rec.PersonID, nil
}

// GetByID returns the member registered under id.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Member, error) {
	doc, err := s.substrate.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get member", err)
	}
	return decode(doc)
}

// ListAll returns every member, newest first. Equal timestamps order by
// personId ascending.
func (s *Store) ListAll(ctx context.Context) ([]*models.Member, error) {
	docs, err := s.substrate.List(ctx, docCreatedAt, docstore.Descending)
	if err != nil {
		return nil, unavailable("list members", err)
	}
	members, err := decodeAll(docs)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(members, func(a, b *models.Member) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.PersonID, b.PersonID)
	})
	return members, nil
}

// QueryEquals returns members whose field equals value. Case-insensitive
// fields compare folded.
func (s *Store) QueryEquals(ctx context.Context, field models.Field, value string) ([]*models.Member, error) {
	key, ok := indexKeys[field]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", field, ErrNotIndexed)
	}
	docs, err := s.substrate.QueryEquals(ctx, key.field, key.normalize(value))
	if err != nil {
		return nil, unavailable("query members", err)
	}
	return decodeAll(docs)
}

// QueryRangePrefix returns members whose field starts with prefix, using the
// half-open range [prefix, prefix+MaxSentinel). It matches only leading text.
func (s *Store) QueryRangePrefix(ctx context.Context, field models.Field, prefix string) ([]*models.Member, error) {
	key, ok := indexKeys[field]
	if !ok {
		return nil, fmt.Errorf("query %s: %w", field, ErrNotIndexed)
	}
	lower := key.normalize(prefix)
	docs, err := s.substrate.QueryRange(ctx, key.field, lower, lower+MaxSentinel)
	if err != nil {
		return nil, unavailable("query members", err)
	}
	return decodeAll(docs)
}

// CountByCategory returns the number of members per member type from one
// listing, so the counts always sum to a single point-in-time total. Every
// category is present in the result.
func (s *Store) CountByCategory(ctx context.Context) (map[models.Category]int, error) {
	docs, err := s.substrate.List(ctx, docCreatedAt, docstore.Descending)
	if err != nil {
		return nil, unavailable("count members", err)
	}
	counts := make(map[models.Category]int, len(models.Categories))
	for _, c := range models.Categories {
		counts[c] = 0
	}
	for _, doc := range docs {
		counts[models.Category(doc[docMemberType])]++
	}
	return counts, nil
}

// Ping checks the substrate.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.substrate.Ping(ctx); err != nil {
		return unavailable("ping store", err)
	}
	return nil
}

func (k indexKey) normalize(v string) string {
	if k.folded {
		return normalize.FoldCase(v)
	}
	return v
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
