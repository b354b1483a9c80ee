package models

import (
	"strings"

	dErrors "roster/pkg/domain-errors"
)

// Field names a searchable member attribute. Values are the document field
// names; FieldName is virtual (first, last, or "first last").
type Field string

const (
	FieldPersonID    Field = "personId"
	FieldFirstName   Field = "firstName"
	FieldLastName    Field = "lastName"
	FieldName        Field = "name"
	FieldPhone       Field = "phone"
	FieldAddress     Field = "address"
	FieldVotingPlace Field = "votingPlace"
	FieldTable       Field = "table"
	FieldMemberType  Field = "memberType"
	FieldLeader      Field = "leader"
	FieldNotes       Field = "notes"
)

var fieldAliases = map[string]Field{
	"personid":     FieldPersonID,
	"person_id":    FieldPersonID,
	"id":           FieldPersonID,
	"firstname":    FieldFirstName,
	"first_name":   FieldFirstName,
	"lastname":     FieldLastName,
	"last_name":    FieldLastName,
	"name":         FieldName,
	"phone":        FieldPhone,
	"address":      FieldAddress,
	"votingplace":  FieldVotingPlace,
	"voting_place": FieldVotingPlace,
	"place":        FieldVotingPlace,
	"table":        FieldTable,
	"membertype":   FieldMemberType,
	"member_type":  FieldMemberType,
	"category":     FieldMemberType,
	"leader":       FieldLeader,
	"notes":        FieldNotes,
}

// ParseField resolves a field name, accepting camelCase and snake_case.
func ParseField(s string) (Field, bool) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

func (f Field) IsValid() bool {
	_, ok := fieldAliases[strings.ToLower(string(f))]
	return ok
}

// Value extracts the field's raw value from m. FieldName yields the full name.
func (f Field) Value(m *Member) string {
	switch f {
	case FieldPersonID:
		return m.PersonID
	case FieldFirstName:
		return m.FirstName
	case FieldLastName:
		return m.LastName
	case FieldName:
		return m.FullName()
	case FieldPhone:
		return m.Phone
	case FieldAddress:
		return m.Address
	case FieldVotingPlace:
		return m.VotingPlace
	case FieldTable:
		return m.Table
	case FieldMemberType:
		return string(m.MemberType)
	case FieldLeader:
		return m.LeaderName()
	case FieldNotes:
		return m.Notes
	}
	return ""
}

// MatchMode selects how a criterion value is compared. MatchAuto uses the
// field's default.
type MatchMode string

const (
	MatchAuto     MatchMode = ""
	MatchExact    MatchMode = "exact"
	MatchPrefix   MatchMode = "prefix"
	MatchContains MatchMode = "contains"
	MatchDigits   MatchMode = "digits"
)

func (m MatchMode) IsValid() bool {
	switch m {
	case MatchAuto, MatchExact, MatchPrefix, MatchContains, MatchDigits:
		return true
	}
	return false
}

// Combine selects how criteria results are merged.
type Combine string

const (
	CombineAll Combine = "all"
	CombineAny Combine = "any"
)

// Order selects result ordering.
type Order string

const (
	OrderNewest   Order = "newest"
	OrderOldest   Order = "oldest"
	OrderLastName Order = "lastName"
	OrderPersonID Order = "personId"
)

func parseOrder(s string) (Order, bool) {
	switch strings.ToLower(s) {
	case "", "newest":
		return OrderNewest, true
	case "oldest":
		return OrderOldest, true
	case "lastname", "last_name":
		return OrderLastName, true
	case "personid", "person_id":
		return OrderPersonID, true
	}
	return "", false
}

// Criterion is one field constraint of a directed search.
type Criterion struct {
	Field Field     `json:"field"`
	Value string    `json:"value"`
	Match MatchMode `json:"match,omitempty"`
}

// SearchRequest is a directed search. Criteria and Text are both optional,
// but at least one must be non-blank.
type SearchRequest struct {
	Criteria []Criterion `json:"criteria,omitempty"`
	Text     string      `json:"text,omitempty"`
	Combine  Combine     `json:"combine,omitempty"`
	Order    Order       `json:"order,omitempty"`
}

// Normalize trims values, resolves field aliases, applies defaults, and drops
// criteria whose value is blank.
func (r *SearchRequest) Normalize() {
	if r == nil {
		return
	}
	r.Text = strings.TrimSpace(r.Text)
	kept := r.Criteria[:0:0]
	for _, c := range r.Criteria {
		c.Value = strings.TrimSpace(c.Value)
		if c.Value == "" {
			continue
		}
		if f, ok := ParseField(string(c.Field)); ok {
			c.Field = f
		}
		c.Match = MatchMode(strings.ToLower(strings.TrimSpace(string(c.Match))))
		if c.Match == "auto" {
			c.Match = MatchAuto
		}
		if c.Field == FieldMemberType {
			c.Value = strings.ToLower(c.Value)
		}
		kept = append(kept, c)
	}
	r.Criteria = kept
	switch strings.ToLower(strings.TrimSpace(string(r.Combine))) {
	case "", "all", "and":
		r.Combine = CombineAll
	case "any", "or":
		r.Combine = CombineAny
	}
	if o, ok := parseOrder(strings.TrimSpace(string(r.Order))); ok {
		r.Order = o
	}
}

// IsEmpty reports whether the request carries no usable criterion.
func (r *SearchRequest) IsEmpty() bool {
	return r == nil || (len(r.Criteria) == 0 && r.Text == "")
}

// Validate checks a normalized request.
func (r *SearchRequest) Validate() error {
	if r.IsEmpty() {
		return dErrors.New(dErrors.CodeEmptySearch, "search requires at least one criterion or a text term")
	}
	for _, c := range r.Criteria {
		if !c.Field.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown search field "+string(c.Field))
		}
		if !c.Match.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown match mode "+string(c.Match))
		}
		if c.Match == MatchDigits && c.Field != FieldPhone {
			return dErrors.New(dErrors.CodeValidation, "digits matching applies to phone only")
		}
		if c.Field == FieldMemberType && (c.Match == MatchAuto || c.Match == MatchExact) &&
			!Category(c.Value).IsValid() {
			return dErrors.New(dErrors.CodeValidation, "member_type must be one of voter, leader, visualizer")
		}
	}
	if r.Combine != CombineAll && r.Combine != CombineAny {
		return dErrors.New(dErrors.CodeValidation, "combine must be all or any")
	}
	if _, ok := parseOrder(string(r.Order)); !ok {
		return dErrors.New(dErrors.CodeValidation, "unknown order "+string(r.Order))
	}
	return nil
}
