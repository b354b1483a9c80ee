// Package docstoretest is the conformance suite every docstore.Substrate
// backend must pass. Backends embed Suite and supply a factory:
//
//	func TestConformance(t *testing.T) {
//		suite.Run(t, &docstoretest.Suite{NewSubstrate: func(t *testing.T) docstore.Substrate { ... }})
//	}
package docstoretest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"roster/internal/docstore"
	"roster/pkg/platform/sentinel"
)

// Suite exercises the substrate contract.
type Suite struct {
	suite.Suite
	// NewSubstrate returns an empty substrate for each test.
	NewSubstrate func(t *testing.T) docstore.Substrate

	store docstore.Substrate
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewSubstrate(s.T())
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func doc(key, place, createdAt string) docstore.Document {
	return docstore.Document{"personId": key, "votingPlaceFold": place, "createdAt": createdAt}
}

func keys(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d["personId"])
	}
	return out
}

func sortedKeys(docs []docstore.Document) []string {
	out := keys(docs)
	sort.Strings(out)
	return out
}

// TestCreateIfAbsent verifies the uniqueness guarantee on the key.
func (s *Suite) TestCreateIfAbsent() {
	s.Run("first create succeeds and is readable", func() {
		s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "111", doc("111", "ateneo", "2026-01-01T00:00:00.000000000Z")))

		got, err := s.store.Get(s.ctx, "111")
		s.Require().NoError(err)
		s.Equal("ateneo", got["votingPlaceFold"])
	})

	s.Run("second create for the same key is rejected without mutation", func() {
		err := s.store.CreateIfAbsent(s.ctx, "111", doc("111", "other", "2026-01-02T00:00:00.000000000Z"))
		s.Require().ErrorIs(err, docstore.ErrAlreadyExists)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

		got, err := s.store.Get(s.ctx, "111")
		s.Require().NoError(err)
		s.Equal("ateneo", got["votingPlaceFold"])
	})

	s.Run("missing key reports not found", func() {
		_, err := s.store.Get(s.ctx, "nope")
		s.Require().ErrorIs(err, docstore.ErrNotFound)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentCreateSameKey verifies exactly one of many concurrent creates
// for one key succeeds.
func (s *Suite) TestConcurrentCreateSameKey() {
	const goroutines = 50
	var wg sync.WaitGroup
	var successes, conflicts, others atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.store.CreateIfAbsent(s.ctx, "race", doc("race", fmt.Sprintf("place-%d", i), "2026-01-01T00:00:00.000000000Z"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, docstore.ErrAlreadyExists):
				conflicts.Add(1)
			default:
				others.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflicts.Load(), "all others should conflict")
	s.Zero(others.Load())
}

// TestConcurrentCreateDifferentKeys verifies distinct keys never contend.
func (s *Suite) TestConcurrentCreateDifferentKeys() {
	const goroutines = 50
	var wg sync.WaitGroup
	var failures atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k-%03d", i)
			if err := s.store.CreateIfAbsent(s.ctx, key, doc(key, "x", "2026-01-01T00:00:00.000000000Z")); err != nil {
				failures.Add(1)
			}
		}(i)
	}
	wg.Wait()

	s.Zero(failures.Load())
	all, err := s.store.List(s.ctx, "personId", docstore.Ascending)
	s.Require().NoError(err)
	s.Len(all, goroutines)
}

// TestList verifies ordered full materialization.
func (s *Suite) TestList() {
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "b", doc("b", "x", "2026-01-02T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "a", doc("a", "x", "2026-01-03T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "c", doc("c", "x", "2026-01-01T00:00:00.000000000Z")))

	s.Run("descending by createdAt", func() {
		got, err := s.store.List(s.ctx, "createdAt", docstore.Descending)
		s.Require().NoError(err)
		s.Equal([]string{"a", "b", "c"}, keys(got))
	})

	s.Run("ascending by createdAt", func() {
		got, err := s.store.List(s.ctx, "createdAt", docstore.Ascending)
		s.Require().NoError(err)
		s.Equal([]string{"c", "b", "a"}, keys(got))
	})

	s.Run("returned documents are independent copies", func() {
		got, err := s.store.List(s.ctx, "createdAt", docstore.Descending)
		s.Require().NoError(err)
		got[0]["votingPlaceFold"] = "mutated"

		again, err := s.store.Get(s.ctx, "a")
		s.Require().NoError(err)
		s.Equal("x", again["votingPlaceFold"])
	})
}

// TestQueryEquals verifies the native equality predicate.
func (s *Suite) TestQueryEquals() {
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "1", doc("1", "ateneo", "2026-01-01T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "2", doc("2", "ateneo", "2026-01-02T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "3", doc("3", "ateneo norte", "2026-01-03T00:00:00.000000000Z")))

	got, err := s.store.QueryEquals(s.ctx, "votingPlaceFold", "ateneo")
	s.Require().NoError(err)
	s.Equal([]string{"1", "2"}, sortedKeys(got))

	none, err := s.store.QueryEquals(s.ctx, "votingPlaceFold", "missing")
	s.Require().NoError(err)
	s.Empty(none)

	absentField, err := s.store.QueryEquals(s.ctx, "leaderFold", "")
	s.Require().NoError(err)
	s.Empty(absentField, "documents without the field never match")
}

// TestQueryRange verifies the half-open range predicate used for prefixes.
func (s *Suite) TestQueryRange() {
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "1", doc("1", "ateneo", "2026-01-01T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "2", doc("2", "ateneo norte", "2026-01-02T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "3", doc("3", "la nueva ateneo", "2026-01-03T00:00:00.000000000Z")))
	s.Require().NoError(s.store.CreateIfAbsent(s.ctx, "4", doc("4", "atf", "2026-01-04T00:00:00.000000000Z")))

	s.Run("prefix range matches values starting with the prefix", func() {
		got, err := s.store.QueryRange(s.ctx, "votingPlaceFold", "ate", "ate\U0010FFFF")
		s.Require().NoError(err)
		s.Equal([]string{"1", "2"}, sortedKeys(got))
	})

	s.Run("upper bound is exclusive", func() {
		got, err := s.store.QueryRange(s.ctx, "votingPlaceFold", "ateneo", "atf")
		s.Require().NoError(err)
		s.Equal([]string{"1", "2"}, sortedKeys(got))
	})

	s.Run("inverted bounds are rejected", func() {
		_, err := s.store.QueryRange(s.ctx, "votingPlaceFold", "z", "a")
		s.Require().ErrorIs(err, docstore.ErrInvalidRange)
	})
}

// TestPing verifies a healthy backend answers.
func (s *Suite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}
