package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roster/internal/audit"
	"roster/internal/docstore/memory"
	"roster/internal/member/models"
	"roster/internal/member/search"
	"roster/internal/member/store"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/testutil"
)

func newRealService(t *testing.T) (*Service, *audit.MemorySink) {
	t.Helper()
	records := store.New(memory.New())
	sink := audit.NewMemorySink()
	svc, err := New(records, search.New(records), WithAuditPublisher(audit.NewPublisher(sink)))
	require.NoError(t, err)
	return svc, sink
}

func TestRegistrySearchScenario(t *testing.T) {
	ctx := context.Background()
	svc, sink := newRealService(t)

	testutil.Given(t, "a registered voter", func(t *testing.T) {
		id, err := svc.Register(ctx, &models.RegisterRequest{
			PersonID:    "111",
			FirstName:   "Ana",
			LastName:    "Pérez",
			Phone:       "300-000-0000",
			Address:     "Calle 1",
			MemberType:  "voter",
			VotingPlace: "Ateneo",
			Table:       "1",
		})
		require.NoError(t, err)
		assert.Equal(t, "111", id)
	})

	testutil.When(t, "the same identity registers again", func(t *testing.T) {
		_, err := svc.Register(ctx, &models.RegisterRequest{
			PersonID:    "111",
			FirstName:   "Someone",
			LastName:    "Else",
			Phone:       "1",
			Address:     "x",
			VotingPlace: "y",
			Table:       "2",
		})
		testutil.Then(t, "it is rejected as a duplicate", func(t *testing.T) {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		})
	})

	testutil.Then(t, "free text finds the member", func(t *testing.T) {
		found, err := svc.Search(ctx, models.SearchRequest{Text: "ana"})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "111", found[0].PersonID)
		assert.Equal(t, "Ana", found[0].FirstName)
	})

	testutil.Then(t, "unmatched digits find nothing", func(t *testing.T) {
		found, err := svc.Search(ctx, models.SearchRequest{Text: "9999"})
		require.NoError(t, err)
		assert.Empty(t, found)
	})

	testutil.Then(t, "an empty search is rejected and listing still works", func(t *testing.T) {
		_, err := svc.Search(ctx, models.SearchRequest{})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeEmptySearch))

		all, err := svc.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	testutil.Then(t, "reads are idempotent", func(t *testing.T) {
		a, err := svc.GetByID(ctx, "111")
		require.NoError(t, err)
		b, err := svc.GetByID(ctx, "111")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	testutil.Then(t, "both outcomes were audited", func(t *testing.T) {
		events := sink.Events()
		require.Len(t, events, 2)
		assert.Equal(t, audit.EventMemberRegistered, events[0].Type)
		assert.Equal(t, audit.EventDuplicateRejected, events[1].Type)
	})
}

func TestConcurrentRegistrationOfSameIdentity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRealService(t)

	const callers = 20
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, validRequest())
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeConflict):
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(callers-1), conflicts.Load())

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStatsAgainstRealStore(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRealService(t)

	for i, category := range []string{"voter", "leader", "leader", ""} {
		req := validRequest()
		req.PersonID = string(rune('a' + i))
		req.MemberType = category
		_, err := svc.Register(ctx, req)
		require.NoError(t, err)
	}

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[models.Category]int{
		models.CategoryVoter:      2,
		models.CategoryLeader:     2,
		models.CategoryVisualizer: 0,
	}, stats.ByCategory)
}

func TestAuditEventsCarryRequestIdentity(t *testing.T) {
	svc, sink := newRealService(t)
	req := httptest.NewRequest(http.MethodPost, "/members", nil)
	req = testutil.WithRequestID(req, "req-42")
	req = testutil.WithOperator(req, "mesa-7")

	register := &models.RegisterRequest{
		PersonID:    "777",
		FirstName:   "Rosa",
		LastName:    "Díaz",
		Phone:       "311 222 3344",
		Address:     "Calle 9",
		MemberType:  "leader",
		VotingPlace: "Escuela Normal",
		Table:       "3",
	}
	_, err := svc.Register(req.Context(), register)
	require.NoError(t, err)
	_, err = svc.Register(req.Context(), register)
	require.Error(t, err)

	events := sink.Events()
	require.Len(t, events, 2)
	assert.Equal(t, audit.EventMemberRegistered, events[0].Type)
	assert.Equal(t, audit.EventDuplicateRejected, events[1].Type)
	for _, e := range events {
		assert.Equal(t, "777", e.PersonID)
		assert.Equal(t, "req-42", e.RequestID)
		assert.Equal(t, "mesa-7", e.Operator)
	}
}
