// Package search is the member search facade. It plans a request into
// strategies, runs them concurrently against the record store, and merges
// the results: intersection by default, union on request, deduplicated by
// personId.
package search

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"roster/internal/member/models"
	"roster/pkg/normalize"
)

const tracerName = "roster/internal/member/search"

// Metrics receives search observations.
type Metrics interface {
	ObserveSearch(plan string, start time.Time)
	IncrementStrategy(strategy string, native bool)
}

// Engine runs searches. It holds no state between calls.
type Engine struct {
	records Records
	logger  *slog.Logger
	metrics Metrics
	tracer  trace.Tracer
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// New constructs an Engine over records.
func New(records Records, opts ...Option) *Engine {
	e := &Engine{
		records: records,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan returns the strategies Search would run for req, in evaluation order.
func (e *Engine) Plan(req models.SearchRequest) ([]Step, error) {
	prepared, err := prepare(req)
	if err != nil {
		return nil, err
	}
	planned := plan(prepared)
	steps := make([]Step, 0, len(planned))
	for _, p := range planned {
		steps = append(steps, p.Step)
	}
	return steps, nil
}

// Search returns the members matching req, deduplicated and ordered. A blank
// request fails with an empty_search error before any storage call. Any
// storage failure fails the whole call.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) ([]*models.Member, error) {
	prepared, err := prepare(req)
	if err != nil {
		return nil, err
	}
	steps := plan(prepared)
	planName := describe(steps)

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "search.Search", trace.WithAttributes(
		attribute.String("search.plan", planName),
		attribute.String("search.combine", string(prepared.Combine)),
	))
	defer span.End()
	if e.metrics != nil {
		defer e.metrics.ObserveSearch(planName, start)
	}

	results := make([][]*models.Member, len(steps))
	src := newSource(e.records)
	g, gctx := errgroup.WithContext(ctx)
	for i, step := range steps {
		g.Go(func() error {
			found, err := e.run(gctx, src, step)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		e.logger.WarnContext(ctx, "search failed", "plan", planName, "error", err)
		return nil, err
	}

	var merged []*models.Member
	if prepared.Combine == models.CombineAny {
		merged = union(results)
	} else {
		merged = intersect(results)
	}
	sortMembers(merged, prepared.Order)

	span.SetAttributes(attribute.Int("search.results", len(merged)))
	e.logger.DebugContext(ctx, "search completed",
		"plan", planName,
		"results", len(merged),
		"duration", time.Since(start),
	)
	return merged, nil
}

func (e *Engine) run(ctx context.Context, src *source, step plannedStep) ([]*models.Member, error) {
	ctx, span := e.tracer.Start(ctx, "search.strategy", trace.WithAttributes(
		attribute.String("search.strategy", step.Strategy),
		attribute.String("search.field", string(step.Field)),
		attribute.Bool("search.native", step.Native),
	))
	defer span.End()
	if e.metrics != nil {
		e.metrics.IncrementStrategy(step.Strategy, step.Native)
	}
	found, err := step.strategy.Run(ctx, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "strategy failed")
		return nil, err
	}
	return found, nil
}

func prepare(req models.SearchRequest) (*models.SearchRequest, error) {
	req.Criteria = slices.Clone(req.Criteria)
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func describe(steps []plannedStep) string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		names = append(names, s.Strategy)
	}
	return strings.Join(names, "+")
}

// union keeps the first occurrence of every personId.
func union(results [][]*models.Member) []*models.Member {
	seen := make(map[string]struct{})
	var out []*models.Member
	for _, set := range results {
		for _, m := range set {
			if _, ok := seen[m.PersonID]; ok {
				continue
			}
			seen[m.PersonID] = struct{}{}
			out = append(out, m)
		}
	}
	return out
}

// intersect keeps members present in every result set, once each.
func intersect(results [][]*models.Member) []*models.Member {
	if len(results) == 0 {
		return nil
	}
	hits := make(map[string]int)
	for _, set := range results {
		counted := make(map[string]struct{}, len(set))
		for _, m := range set {
			if _, ok := counted[m.PersonID]; ok {
				continue
			}
			counted[m.PersonID] = struct{}{}
			hits[m.PersonID]++
		}
	}
	seen := make(map[string]struct{})
	var out []*models.Member
	for _, m := range results[0] {
		if hits[m.PersonID] != len(results) {
			continue
		}
		if _, ok := seen[m.PersonID]; ok {
			continue
		}
		seen[m.PersonID] = struct{}{}
		out = append(out, m)
	}
	return out
}

func sortMembers(members []*models.Member, order models.Order) {
	slices.SortStableFunc(members, func(a, b *models.Member) int {
		var c int
		switch order {
		case models.OrderOldest:
			c = a.CreatedAt.Compare(b.CreatedAt)
		case models.OrderLastName:
			c = strings.Compare(normalize.FoldCase(a.LastName), normalize.FoldCase(b.LastName))
			if c == 0 {
				c = strings.Compare(normalize.FoldCase(a.FirstName), normalize.FoldCase(b.FirstName))
			}
		case models.OrderPersonID:
			c = strings.Compare(a.PersonID, b.PersonID)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.PersonID, b.PersonID)
		}
		return c
	})
}
