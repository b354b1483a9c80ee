package models

import (
	"strings"
	"time"
)

// Category classifies a member. Only the three values below are storable.
type Category string

const (
	CategoryVoter      Category = "voter"
	CategoryLeader     Category = "leader"
	CategoryVisualizer Category = "visualizer"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryVoter, CategoryLeader, CategoryVisualizer}

func (c Category) IsValid() bool {
	switch c {
	case CategoryVoter, CategoryLeader, CategoryVisualizer:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// Member is a registered individual.
//
// Invariants:
//   - PersonID is the natural key, unique across the registry and immutable
//   - MemberType is one of Categories
//   - Leader is informational only (nil when no referrer was given)
//   - CreatedAt is assigned once by the record store
type Member struct {
	PersonID    string    `json:"person_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	VotingPlace string    `json:"voting_place,omitempty"`
	Table       string    `json:"table,omitempty"`
	MemberType  Category  `json:"member_type"`
	Leader      *string   `json:"leader"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName joins first and last name with a single space.
func (m *Member) FullName() string {
	return strings.TrimSpace(m.FirstName + " " + m.LastName)
}

// LeaderName returns the referrer's display name, or "" when absent.
func (m *Member) LeaderName() string {
	if m.Leader == nil {
		return ""
	}
	return *m.Leader
}

// Clone returns an independent copy.
func (m *Member) Clone() *Member {
	if m == nil {
		return nil
	}
	out := *m
	if m.Leader != nil {
		leader := *m.Leader
		out.Leader = &leader
	}
	return &out
}

// Stats summarizes the registry for the dashboard.
type Stats struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_member_type"`
}
