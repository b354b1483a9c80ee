package search

import (
	"context"
	"sync"

	"roster/internal/member/models"
)

// Records is the slice of the record store the strategies run against.
type Records interface {
	ListAll(ctx context.Context) ([]*models.Member, error)
	QueryEquals(ctx context.Context, field models.Field, value string) ([]*models.Member, error)
	QueryRangePrefix(ctx context.Context, field models.Field, prefix string) ([]*models.Member, error)
}

// Strategy names.
const (
	StrategyExact             = "Exact"
	StrategyPrefixRange       = "PrefixRange"
	StrategyFullScanExact     = "FullScanExact"
	StrategyFullScanPrefix    = "FullScanPrefix"
	StrategyFullScanSubstring = "FullScanSubstring"
	StrategyDigitMatch        = "DigitMatch"
	StrategyMultiFieldOr      = "MultiFieldOr"
)

// Strategy answers one search intent, either with a native substrate query
// or a full scan plus predicate.
type Strategy interface {
	Name() string
	Native() bool
	Run(ctx context.Context, src *source) ([]*models.Member, error)
}

// source gives strategies access to the records of one search call. The
// full listing is fetched at most once per call and never outlives it.
type source struct {
	records Records

	once     sync.Once
	snapshot []*models.Member
	err      error
}

func newSource(records Records) *source {
	return &source{records: records}
}

func (s *source) listAll(ctx context.Context) ([]*models.Member, error) {
	s.once.Do(func() {
		s.snapshot, s.err = s.records.ListAll(ctx)
	})
	return s.snapshot, s.err
}

type exactStrategy struct {
	field models.Field
	value string
}

func (exactStrategy) Name() string { return StrategyExact }
func (exactStrategy) Native() bool { return true }

func (s exactStrategy) Run(ctx context.Context, src *source) ([]*models.Member, error) {
	return src.records.QueryEquals(ctx, s.field, s.value)
}

type prefixRangeStrategy struct {
	field  models.Field
	prefix string
}

func (prefixRangeStrategy) Name() string { return StrategyPrefixRange }
func (prefixRangeStrategy) Native() bool { return true }

func (s prefixRangeStrategy) Run(ctx context.Context, src *source) ([]*models.Member, error) {
	return src.records.QueryRangePrefix(ctx, s.field, s.prefix)
}

// scanStrategy is the single full-scan strategy. Substring, digit, free-text
// and non-native exact/prefix matching differ only in name and predicate.
type scanStrategy struct {
	name  string
	match Predicate
}

func (s scanStrategy) Name() string { return s.name }
func (scanStrategy) Native() bool   { return false }

func (s scanStrategy) Run(ctx context.Context, src *source) ([]*models.Member, error) {
	all, err := src.listAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*models.Member
	for _, m := range all {
		if s.match(m) {
			out = append(out, m)
		}
	}
	return out, nil
}
