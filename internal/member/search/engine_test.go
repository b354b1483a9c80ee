package search

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"roster/internal/docstore/memory"
	"roster/internal/member/models"
	"roster/internal/member/store"
	dErrors "roster/pkg/domain-errors"
)

// countingRecords records calls and can inject a failure.
type countingRecords struct {
	Records
	listAll atomic.Int32
	equals  atomic.Int32
	ranges  atomic.Int32
	fail    error
}

func (c *countingRecords) ListAll(ctx context.Context) ([]*models.Member, error) {
	c.listAll.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Records.ListAll(ctx)
}

func (c *countingRecords) QueryEquals(ctx context.Context, f models.Field, v string) ([]*models.Member, error) {
	c.equals.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Records.QueryEquals(ctx, f, v)
}

func (c *countingRecords) QueryRangePrefix(ctx context.Context, f models.Field, p string) ([]*models.Member, error) {
	c.ranges.Add(1)
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Records.QueryRangePrefix(ctx, f, p)
}

func (c *countingRecords) calls() int32 {
	return c.listAll.Load() + c.equals.Load() + c.ranges.Load()
}

type recordingMetrics struct {
	mu         sync.Mutex
	searches   []string
	strategies []string
}

func (r *recordingMetrics) ObserveSearch(plan string, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.searches = append(r.searches, plan)
}

func (r *recordingMetrics) IncrementStrategy(strategy string, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = append(r.strategies, strategy)
}

type EngineSuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.Store
	records *countingRecords
	metrics *recordingMetrics
	engine  *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.New(memory.New())
	s.records = &countingRecords{Records: s.store}
	s.metrics = &recordingMetrics{}
	s.engine = New(s.records, WithMetrics(s.metrics))
}

func (s *EngineSuite) register(id, first, last, phone, place string, category models.Category) {
	_, err := s.store.Insert(s.ctx, &models.Member{
		PersonID:    id,
		FirstName:   first,
		LastName:    last,
		Phone:       phone,
		Address:     "Calle 1",
		VotingPlace: place,
		Table:       "1",
		MemberType:  category,
	})
	s.Require().NoError(err)
}

func (s *EngineSuite) search(req models.SearchRequest) []string {
	found, err := s.engine.Search(s.ctx, req)
	s.Require().NoError(err)
	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.PersonID)
	}
	return out
}

func crit(f models.Field, v string) models.Criterion {
	return models.Criterion{Field: f, Value: v}
}

func (s *EngineSuite) TestEmptySearchRejectedBeforeStorage() {
	for _, req := range []models.SearchRequest{
		{},
		{Text: "   "},
		{Criteria: []models.Criterion{crit(models.FieldPhone, "  ")}},
	} {
		_, err := s.engine.Search(s.ctx, req)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeEmptySearch))
	}
	s.Zero(s.records.calls(), "empty search must not touch storage")
}

func (s *EngineSuite) TestListAllIsNotAnEmptySearch() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)
	all, err := s.store.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *EngineSuite) TestPrefixVersusSubstring() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)
	s.register("2", "Luis", "Gómez", "301", "La Nueva Ateneo", models.CategoryVoter)

	s.Run("prefix range matches only leading text", func() {
		req := models.SearchRequest{Criteria: []models.Criterion{crit(models.FieldVotingPlace, "Ate")}}
		steps, err := s.engine.Plan(req)
		s.Require().NoError(err)
		s.Equal(StrategyPrefixRange, steps[0].Strategy)
		s.True(steps[0].Native)
		s.Equal([]string{"1"}, s.search(req))
	})

	s.Run("substring scan matches anywhere", func() {
		req := models.SearchRequest{Criteria: []models.Criterion{
			{Field: models.FieldVotingPlace, Value: "Ate", Match: models.MatchContains},
		}}
		steps, err := s.engine.Plan(req)
		s.Require().NoError(err)
		s.Equal(StrategyFullScanSubstring, steps[0].Strategy)
		s.ElementsMatch([]string{"1", "2"}, s.search(req))
	})

	s.Run("free text matches anywhere", func() {
		s.ElementsMatch([]string{"1", "2"}, s.search(models.SearchRequest{Text: "ate"}))
	})
}

func (s *EngineSuite) TestAndSemantics() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryLeader)
	s.register("2", "Luis", "Gómez", "301", "Ateneo", models.CategoryVoter)
	s.register("3", "Eva", "Ríos", "302", "Colegio", models.CategoryLeader)

	got := s.search(models.SearchRequest{Criteria: []models.Criterion{
		crit(models.FieldMemberType, "leader"),
		crit(models.FieldVotingPlace, "Ateneo"),
	}})
	s.Equal([]string{"1"}, got)
}

func (s *EngineSuite) TestAnyIsUnion() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryLeader)
	s.register("2", "Luis", "Gómez", "301", "Ateneo", models.CategoryVoter)
	s.register("3", "Eva", "Ríos", "302", "Colegio", models.CategoryVoter)

	got := s.search(models.SearchRequest{
		Criteria: []models.Criterion{
			crit(models.FieldMemberType, "leader"),
			crit(models.FieldVotingPlace, "Ateneo"),
		},
		Combine: models.CombineAny,
	})
	s.Equal([]string{"2", "1"}, got, "newest first, each once")
}

func (s *EngineSuite) TestDedup() {
	s.register("111", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)

	for _, combine := range []models.Combine{models.CombineAll, models.CombineAny} {
		got := s.search(models.SearchRequest{
			Criteria: []models.Criterion{
				crit(models.FieldName, "ana"),
				crit(models.FieldPersonID, "111"),
			},
			Text:    "111",
			Combine: combine,
		})
		s.Equal([]string{"111"}, got, string(combine))
	}
}

func (s *EngineSuite) TestFreeText() {
	s.register("1", "Ana", "Pérez", "(555) 123-4567", "Ateneo", models.CategoryVoter)
	s.register("5551", "Luis", "Gómez", "300-000-0000", "Colegio", models.CategoryVoter)
	s.register("3", "Eva", "Ríos", "301-000-0000", "Sede 555", models.CategoryVoter)
	s.register("4", "Juan", "Díaz", "302-000-0000", "Colegio", models.CategoryLeader)

	s.Run("555 matches phone digits, identity and place", func() {
		s.ElementsMatch([]string{"1", "5551", "3"}, s.search(models.SearchRequest{Text: "555"}))
	})

	s.Run("category by containment", func() {
		s.Equal([]string{"4"}, s.search(models.SearchRequest{Text: "LEAD"}))
	})

	s.Run("digit-free term does not match every phone", func() {
		s.Empty(s.search(models.SearchRequest{Text: "xyz"}))
	})
}

func (s *EngineSuite) TestDigitNormalization() {
	s.register("1", "Ana", "Pérez", "(555) 123-4567", "Ateneo", models.CategoryVoter)
	s.register("2", "Luis", "Gómez", "300-000-0000", "Colegio", models.CategoryVoter)

	s.Equal([]string{"1"}, s.search(models.SearchRequest{Text: "5551234567"}))
	s.Equal([]string{"1"}, s.search(models.SearchRequest{Text: "555-123"}))
	s.Equal([]string{"1"}, s.search(models.SearchRequest{Criteria: []models.Criterion{crit(models.FieldPhone, "555.123.4567")}}))
	s.Equal([]string{"1"}, s.search(models.SearchRequest{Criteria: []models.Criterion{
		{Field: models.FieldPhone, Value: "5551234567", Match: models.MatchExact},
	}}))
}

func (s *EngineSuite) TestScansShareOneSnapshotPerCall() {
	s.register("1", "Ana", "Pérez", "(555) 123-4567", "Ateneo", models.CategoryVoter)

	req := models.SearchRequest{
		Criteria: []models.Criterion{crit(models.FieldName, "ana"), crit(models.FieldPhone, "555")},
		Text:     "ateneo",
	}
	s.Equal([]string{"1"}, s.search(req))
	s.Equal(int32(1), s.records.listAll.Load())

	s.search(req)
	s.Equal(int32(2), s.records.listAll.Load(), "nothing is cached across calls")
}

func (s *EngineSuite) TestReadYourWrites() {
	req := models.SearchRequest{Text: "ana"}
	s.Empty(s.search(req))
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)
	s.Equal([]string{"1"}, s.search(req))
}

func (s *EngineSuite) TestSubstrateFailureFailsWholeCall() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)
	outage := errors.New("quota exceeded")
	s.records.fail = outage

	found, err := s.engine.Search(s.ctx, models.SearchRequest{
		Criteria: []models.Criterion{crit(models.FieldPersonID, "1"), crit(models.FieldName, "ana")},
		Combine:  models.CombineAny,
	})
	s.ErrorIs(err, outage)
	s.Nil(found)
}

func (s *EngineSuite) TestOrdering() {
	s.register("b", "Ana", "Zapata", "300", "Ateneo", models.CategoryVoter)
	s.register("a", "Ana", "Arias", "301", "Ateneo", models.CategoryVoter)
	s.register("c", "Ana", "Mejía", "302", "Ateneo", models.CategoryVoter)

	req := models.SearchRequest{Text: "ana"}
	s.Equal([]string{"c", "a", "b"}, s.search(req))

	req.Order = models.OrderOldest
	s.Equal([]string{"b", "a", "c"}, s.search(req))

	req.Order = models.OrderLastName
	s.Equal([]string{"a", "c", "b"}, s.search(req))

	req.Order = models.OrderPersonID
	s.Equal([]string{"a", "b", "c"}, s.search(req))
}

func (s *EngineSuite) TestMetricsObserved() {
	s.register("1", "Ana", "Pérez", "300", "Ateneo", models.CategoryVoter)
	s.search(models.SearchRequest{
		Criteria: []models.Criterion{crit(models.FieldPersonID, "1")},
		Text:     "ana",
	})
	s.Equal([]string{"Exact+MultiFieldOr"}, s.metrics.searches)
	s.ElementsMatch([]string{StrategyExact, StrategyMultiFieldOr}, s.metrics.strategies)
}

func (s *EngineSuite) TestDoesNotMutateRequest() {
	criteria := []models.Criterion{{Field: "voting_place", Value: "  Ate "}}
	req := models.SearchRequest{Criteria: criteria}
	s.search(req)
	s.Equal(models.Field("voting_place"), criteria[0].Field)
	s.Equal("  Ate ", criteria[0].Value)
}

func TestPlanTable(t *testing.T) {
	engine := New(&countingRecords{})
	tests := []struct {
		name     string
		c        models.Criterion
		strategy string
		native   bool
	}{
		{"identity", crit(models.FieldPersonID, "111"), StrategyExact, true},
		{"identity prefix", models.Criterion{Field: models.FieldPersonID, Value: "11", Match: models.MatchPrefix}, StrategyPrefixRange, true},
		{"category", crit(models.FieldMemberType, "voter"), StrategyExact, true},
		{"table", crit(models.FieldTable, "4"), StrategyExact, true},
		{"table prefix", models.Criterion{Field: models.FieldTable, Value: "4", Match: models.MatchPrefix}, StrategyFullScanPrefix, false},
		{"voting place", crit(models.FieldVotingPlace, "Ate"), StrategyPrefixRange, true},
		{"leader", crit(models.FieldLeader, "Car"), StrategyPrefixRange, true},
		{"first name", crit(models.FieldFirstName, "an"), StrategyFullScanSubstring, false},
		{"last name exact", models.Criterion{Field: models.FieldLastName, Value: "Pérez", Match: models.MatchExact}, StrategyExact, true},
		{"name", crit(models.FieldName, "ana p"), StrategyFullScanSubstring, false},
		{"name exact", models.Criterion{Field: models.FieldName, Value: "Ana Pérez", Match: models.MatchExact}, StrategyFullScanExact, false},
		{"phone", crit(models.FieldPhone, "555"), StrategyDigitMatch, false},
		{"notes", crit(models.FieldNotes, "call"), StrategyFullScanSubstring, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			steps, err := engine.Plan(models.SearchRequest{Criteria: []models.Criterion{tc.c}})
			require.NoError(t, err)
			require.Len(t, steps, 1)
			assert.Equal(t, tc.strategy, steps[0].Strategy)
			assert.Equal(t, tc.native, steps[0].Native)
		})
	}

	steps, err := engine.Plan(models.SearchRequest{Text: "ana"})
	require.NoError(t, err)
	assert.Equal(t, []Step{{Strategy: StrategyMultiFieldOr, Value: "ana"}}, steps)

	_, err = engine.Plan(models.SearchRequest{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeEmptySearch))
}
