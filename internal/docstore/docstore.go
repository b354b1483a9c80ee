// Package docstore defines the storage substrate the member registry runs on:
// a document store keyed by natural identifier that supports create-if-absent,
// point reads, ordered full listing, equality predicates, and single-field
// half-open range predicates. Nothing else.
//
// Backends live in subpackages (memory, postgres, redis, badger). Each passes
// the shared conformance suite in docstoretest.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"roster/pkg/platform/sentinel"
)

// Document is an opaque flat mapping of field name to string value. Absent
// optional fields are absent keys. Backends hand out fresh copies; mutating
// a returned Document never affects stored state.
type Document map[string]string

// Clone returns an independent copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Direction orders List results.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

var (
	// ErrAlreadyExists is returned by CreateIfAbsent when the key is taken.
	ErrAlreadyExists = fmt.Errorf("document already exists: %w", sentinel.ErrAlreadyUsed)
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = fmt.Errorf("document not found: %w", sentinel.ErrNotFound)
	// ErrInvalidRange is returned when lower > upper.
	ErrInvalidRange = errors.New("invalid range: lower bound exceeds upper bound")
)

// Substrate is the contract the record store requires from its backend.
//
// CreateIfAbsent must be atomic with respect to key: of any number of
// concurrent calls for the same key, at most one succeeds. Every other
// failure is a backend failure and is returned as-is (wrapped).
type Substrate interface {
	CreateIfAbsent(ctx context.Context, key string, doc Document) error
	Get(ctx context.Context, key string) (Document, error)
	List(ctx context.Context, orderField string, dir Direction) ([]Document, error)
	QueryEquals(ctx context.Context, field, value string) ([]Document, error)
	QueryRange(ctx context.Context, field, lowerInclusive, upperExclusive string) ([]Document, error)
	Ping(ctx context.Context) error
	Close() error
}

// SortDocuments orders docs by field using byte-wise string comparison, the
// same collation every backend uses. Documents missing the field sort first
// in ascending order. Ties keep their relative order.
func SortDocuments(docs []Document, field string, dir Direction) {
	slices.SortStableFunc(docs, func(a, b Document) int {
		c := strings.Compare(a[field], b[field])
		if dir == Descending {
			return -c
		}
		return c
	})
}

// InRange reports whether v lies in [lower, upper). Byte-wise comparison.
func InRange(v, lower, upper string) bool {
	return v >= lower && v < upper
}

// ValidateRange rejects inverted bounds.
func ValidateRange(lower, upper string) error {
	if lower > upper {
		return ErrInvalidRange
	}
	return nil
}
