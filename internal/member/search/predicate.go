package search

import (
	"strings"

	"roster/internal/member/models"
	"roster/pkg/normalize"
)

// Predicate is an in-memory filter applied after a full scan.
type Predicate func(*models.Member) bool

// candidates returns the values a field contributes to matching. The virtual
// name field matches on first name, last name, or the full name.
func candidates(f models.Field, m *models.Member) []string {
	if f == models.FieldName {
		return []string{m.FirstName, m.LastName, m.FullName()}
	}
	return []string{f.Value(m)}
}

func anyCandidate(f models.Field, match func(string) bool) Predicate {
	return func(m *models.Member) bool {
		for _, v := range candidates(f, m) {
			if v != "" && match(v) {
				return true
			}
		}
		return false
	}
}

func equalsPredicate(f models.Field, term string) Predicate {
	if f == models.FieldPhone {
		want := normalize.DigitsOnly(term)
		return func(m *models.Member) bool {
			return want != "" && normalize.DigitsOnly(m.Phone) == want
		}
	}
	folded := normalize.FoldCase(term)
	return anyCandidate(f, func(v string) bool { return normalize.FoldCase(v) == folded })
}

func prefixPredicate(f models.Field, term string) Predicate {
	if f == models.FieldPhone {
		want := normalize.DigitsOnly(term)
		return func(m *models.Member) bool {
			return want != "" && strings.HasPrefix(normalize.DigitsOnly(m.Phone), want)
		}
	}
	folded := normalize.FoldCase(term)
	return anyCandidate(f, func(v string) bool { return strings.HasPrefix(normalize.FoldCase(v), folded) })
}

func containsPredicate(f models.Field, term string) Predicate {
	folded := normalize.FoldCase(term)
	return anyCandidate(f, func(v string) bool { return strings.Contains(normalize.FoldCase(v), folded) })
}

func digitsPredicate(term string) Predicate {
	return func(m *models.Member) bool {
		return normalize.ContainsDigits(m.Phone, term)
	}
}

// multiFieldFields participate in free-text matching by fold-contains.
var multiFieldFields = []models.Field{
	models.FieldMemberType,
	models.FieldLeader,
	models.FieldVotingPlace,
	models.FieldPersonID,
	models.FieldName,
}

// multiFieldOr matches a single free-text term against any field: category,
// leader, voting place, identity and names by case-insensitive containment,
// and phone by digits when the term has any.
func multiFieldOr(term string) Predicate {
	parts := make([]Predicate, 0, len(multiFieldFields)+1)
	for _, f := range multiFieldFields {
		parts = append(parts, containsPredicate(f, term))
	}
	if normalize.DigitsOnly(term) != "" {
		parts = append(parts, digitsPredicate(term))
	}
	return func(m *models.Member) bool {
		for _, p := range parts {
			if p(m) {
				return true
			}
		}
		return false
	}
}
