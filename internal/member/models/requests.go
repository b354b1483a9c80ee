package models

import (
	"strings"
	"unicode"
	"unicode/utf8"

	dErrors "roster/pkg/domain-errors"
	"roster/pkg/normalize"
)

const (
	maxPersonIDLen    = 64
	maxNameLen        = 128
	maxPhoneLen       = 32
	maxAddressLen     = 256
	maxVotingPlaceLen = 128
	maxTableLen       = 16
	maxLeaderLen      = 128
	maxNotesLen       = 1024
)

// reservedPersonIDs collide with literal routes under /members.
var reservedPersonIDs = map[string]bool{
	"stats":  true,
	"search": true,
}

// RegisterRequest carries the caller-supplied fields of a new member.
type RegisterRequest struct {
	PersonID    string `json:"person_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	VotingPlace string `json:"voting_place"`
	Table       string `json:"table"`
	MemberType  string `json:"member_type"`
	Leader      string `json:"leader"`
	Notes       string `json:"notes"`
}

func (r *RegisterRequest) Normalize() {
	if r == nil {
		return
	}
	r.PersonID = strings.TrimSpace(r.PersonID)
	r.FirstName = normalize.Clean(r.FirstName)
	r.LastName = normalize.Clean(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = normalize.Clean(r.Address)
	r.VotingPlace = normalize.Clean(r.VotingPlace)
	r.Table = strings.TrimSpace(r.Table)
	r.MemberType = strings.ToLower(strings.TrimSpace(r.MemberType))
	if r.MemberType == "" {
		r.MemberType = string(CategoryVoter)
	}
	r.Leader = normalize.Clean(r.Leader)
	r.Notes = strings.TrimSpace(r.Notes)
}

// Validate checks a normalized request. requireLocation makes voting place
// and table mandatory.
// Follows validation order: Size -> Required -> Syntax -> Semantic.
func (r *RegisterRequest) Validate(requireLocation bool) error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"person_id", r.PersonID, maxPersonIDLen},
		{"first_name", r.FirstName, maxNameLen},
		{"last_name", r.LastName, maxNameLen},
		{"phone", r.Phone, maxPhoneLen},
		{"address", r.Address, maxAddressLen},
		{"voting_place", r.VotingPlace, maxVotingPlaceLen},
		{"table", r.Table, maxTableLen},
		{"leader", r.Leader, maxLeaderLen},
		{"notes", r.Notes, maxNotesLen},
	}
	for _, l := range limits {
		if utf8.RuneCountInString(l.value) > l.max {
			return dErrors.New(dErrors.CodeValidation, l.name+" is too long")
		}
	}

	type namedValue struct{ name, value string }
	required := []namedValue{
		{"person_id", r.PersonID},
		{"first_name", r.FirstName},
		{"last_name", r.LastName},
		{"phone", r.Phone},
		{"address", r.Address},
	}
	if requireLocation {
		required = append(required, namedValue{"voting_place", r.VotingPlace}, namedValue{"table", r.Table})
	}
	for _, f := range required {
		if f.value == "" {
			return dErrors.New(dErrors.CodeValidation, f.name+" is required")
		}
	}

	if strings.IndexFunc(r.PersonID, unicode.IsControl) >= 0 {
		return dErrors.New(dErrors.CodeValidation, "person_id contains control characters")
	}
	if strings.Contains(r.PersonID, "/") {
		return dErrors.New(dErrors.CodeValidation, "person_id must not contain '/'")
	}
	if normalize.DigitsOnly(r.Phone) == "" {
		return dErrors.New(dErrors.CodeValidation, "phone must contain at least one digit")
	}

	if !Category(r.MemberType).IsValid() {
		return dErrors.New(dErrors.CodeValidation, "member_type must be one of voter, leader, visualizer")
	}
	if reservedPersonIDs[r.PersonID] {
		return dErrors.New(dErrors.CodeValidation, "person_id "+r.PersonID+" is reserved")
	}
	return nil
}

// Member builds the record for a normalized, validated request. CreatedAt is
// left for the record store to assign.
func (r *RegisterRequest) Member() *Member {
	m := &Member{
		PersonID:    r.PersonID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Phone:       r.Phone,
		Address:     r.Address,
		VotingPlace: r.VotingPlace,
		Table:       r.Table,
		MemberType:  Category(r.MemberType),
		Notes:       r.Notes,
	}
	if r.Leader != "" {
		leader := r.Leader
		m.Leader = &leader
	}
	return m
}
