package audit

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// LogSink writes events as structured audit log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, string(e.Type),
		"log_type", "audit",
		"event_id", e.ID,
		"person_id", e.PersonID,
		"member_type", e.MemberType,
		"request_id", e.RequestID,
		"operator", e.Operator,
		"timestamp", e.Timestamp,
	)
	return nil
}

// MemorySink keeps events in process. Used by tests and the CLI.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Append(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// FanOut appends to every sink and returns the first error.
type FanOut []Sink

func (f FanOut) Append(ctx context.Context, e Event) error {
	var first error
	for _, s := range f {
		if err := s.Append(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
