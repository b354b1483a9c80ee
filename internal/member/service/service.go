// Package service is the member registry's upward interface: register, point
// lookup, listing, search, and dashboard stats. It validates input before any
// storage call and translates store failures into the domain error taxonomy.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"roster/internal/audit"
	"roster/internal/member/metrics"
	"roster/internal/member/models"
	"roster/internal/member/store"
	dErrors "roster/pkg/domain-errors"
	"roster/pkg/platform/sentinel"
	"roster/pkg/requestcontext"
)

type MemberStore interface {
	Insert(ctx context.Context, m *models.Member) (string, error)
	GetByID(ctx context.Context, id string) (*models.Member, error)
	ListAll(ctx context.Context) ([]*models.Member, error)
	CountByCategory(ctx context.Context) (map[models.Category]int, error)
}

type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) ([]*models.Member, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates member registration and lookup.
type Service struct {
	members         MemberStore
	searcher        Searcher
	logger          *slog.Logger
	auditPublisher  AuditPublisher
	metrics         *metrics.Metrics
	requireLocation bool
	searchTimeout   time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRequireLocation controls whether voting place and table are mandatory.
// Defaults to true.
func WithRequireLocation(required bool) Option {
	return func(s *Service) {
		s.requireLocation = required
	}
}

// WithSearchTimeout bounds each search. Zero means no bound.
func WithSearchTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.searchTimeout = d
	}
}

// New constructs a Service.
func New(members MemberStore, searcher Searcher, opts ...Option) (*Service, error) {
	if members == nil {
		return nil, errors.New("member store is required")
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	s := &Service{members: members, searcher: searcher, requireLocation: true}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register validates req and records a new member, returning its person id.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (string, error) {
	start := time.Now()
	req.Normalize()
	if err := req.Validate(s.requireLocation); err != nil {
		return "", err
	}

	member := req.Member()
	id, err := s.members.Insert(ctx, member)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateIdentity) {
			s.emitAudit(ctx, audit.EventDuplicateRejected, member)
			if s.metrics != nil {
				s.metrics.IncrementDuplicate()
			}
			return "", dErrors.Wrap(err, dErrors.CodeConflict, "person_id is already registered")
		}
		return "", translate(err, "failed to register member")
	}

	s.emitAudit(ctx, audit.EventMemberRegistered, member)
	if s.metrics != nil {
		s.metrics.IncrementRegistered()
		s.metrics.ObserveRegister(start)
	}
	return id, nil
}

// GetByID returns the member registered under id.
func (s *Service) GetByID(ctx context.Context, id string) (*models.Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "person_id is required")
	}
	m, err := s.members.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "member not found")
		}
		return nil, translate(err, "failed to load member")
	}
	return m, nil
}

// ListAll returns every member, newest first.
func (s *Service) ListAll(ctx context.Context) ([]*models.Member, error) {
	members, err := s.members.ListAll(ctx)
	if err != nil {
		return nil, translate(err, "failed to list members")
	}
	return members, nil
}

// Search runs a directed search. A request with no usable criterion fails
// with an empty_search error; use ListAll to see everything.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) ([]*models.Member, error) {
	if s.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.searchTimeout)
		defer cancel()
	}
	members, err := s.searcher.Search(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeEmptySearch) && s.metrics != nil {
			s.metrics.IncrementEmptySearch()
		}
		return nil, translate(err, "search failed")
	}
	return members, nil
}

// Stats returns the total member count and the count per member type. The
// total is the sum of the per-type counts.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	byCategory, err := s.members.CountByCategory(ctx)
	if err != nil {
		return nil, translate(err, "failed to count members")
	}
	total := 0
	for _, n := range byCategory {
		total += n
	}
	return &models.Stats{Total: total, ByCategory: byCategory}, nil
}

// translate keeps coded errors as they are and classifies the rest: storage
// failures become unavailable, anything else internal.
func translate(err error, message string) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "member store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func (s *Service) emitAudit(ctx context.Context, event audit.EventType, m *models.Member) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Type:       event,
		PersonID:   m.PersonID,
		MemberType: string(m.MemberType),
		RequestID:  requestcontext.RequestID(ctx),
		Operator:   requestcontext.Operator(ctx),
		Timestamp:  requestcontext.Now(ctx).UTC(),
	})
	if err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"event", string(event),
			"person_id", m.PersonID,
			"error", err,
		)
	}
}
