package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "roster/pkg/domain-errors"
)

func validRegister() RegisterRequest {
	return RegisterRequest{
		PersonID:    " 111 ",
		FirstName:   "  Ana   María ",
		LastName:    "Pérez",
		Phone:       "300-000-0000",
		Address:     "Calle 1 # 2-3",
		VotingPlace: "Ateneo",
		Table:       "4",
	}
}

func TestRegisterRequestNormalize(t *testing.T) {
	req := validRegister()
	req.Leader = "   "
	req.Normalize()

	assert.Equal(t, "111", req.PersonID)
	assert.Equal(t, "Ana María", req.FirstName)
	assert.Equal(t, string(CategoryVoter), req.MemberType, "empty member type defaults to voter")
	assert.Empty(t, req.Leader)

	m := req.Member()
	assert.Nil(t, m.Leader, "blank leader is stored as null")
	assert.Equal(t, CategoryVoter, m.MemberType)
	assert.True(t, m.CreatedAt.IsZero())
}

func TestRegisterRequestLeader(t *testing.T) {
	req := validRegister()
	req.Leader = " Carlos  Ruiz "
	req.MemberType = "LEADER"
	req.Normalize()
	require.NoError(t, req.Validate(true))

	m := req.Member()
	require.NotNil(t, m.Leader)
	assert.Equal(t, "Carlos Ruiz", *m.Leader)
	assert.Equal(t, CategoryLeader, m.MemberType)
}

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name            string
		mutate          func(r *RegisterRequest)
		requireLocation bool
		wantMsg         string
	}{
		{"valid", func(*RegisterRequest) {}, true, ""},
		{"missing person id", func(r *RegisterRequest) { r.PersonID = "" }, true, "person_id is required"},
		{"missing first name", func(r *RegisterRequest) { r.FirstName = "" }, true, "first_name is required"},
		{"missing phone", func(r *RegisterRequest) { r.Phone = "" }, true, "phone is required"},
		{"phone without digits", func(r *RegisterRequest) { r.Phone = "n/a" }, true, "phone must contain at least one digit"},
		{"missing voting place", func(r *RegisterRequest) { r.VotingPlace = "" }, true, "voting_place is required"},
		{"location optional", func(r *RegisterRequest) { r.VotingPlace, r.Table = "", "" }, false, ""},
		{"unknown member type", func(r *RegisterRequest) { r.MemberType = "premium" }, true, "member_type must be one of voter, leader, visualizer"},
		{"control characters in id", func(r *RegisterRequest) { r.PersonID = "11\x001" }, true, "person_id contains control characters"},
		{"slash in id", func(r *RegisterRequest) { r.PersonID = "11/22" }, true, "person_id must not contain '/'"},
		{"reserved stats id", func(r *RegisterRequest) { r.PersonID = "stats" }, true, "person_id stats is reserved"},
		{"reserved search id", func(r *RegisterRequest) { r.PersonID = "search" }, true, "person_id search is reserved"},
		{"person id too long", func(r *RegisterRequest) { r.PersonID = strings.Repeat("1", 65) }, true, "person_id is too long"},
		{"notes too long", func(r *RegisterRequest) { r.Notes = strings.Repeat("x", 1025) }, true, "notes is too long"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegister()
			req.Normalize()
			tc.mutate(&req)
			err := req.Validate(tc.requireLocation)
			if tc.wantMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Equal(t, tc.wantMsg, err.Error())
		})
	}
}

func TestRegisterRequestNil(t *testing.T) {
	var req *RegisterRequest
	req.Normalize()
	err := req.Validate(true)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func TestMemberClone(t *testing.T) {
	leader := "Carlos"
	m := &Member{PersonID: "1", FirstName: "Ana", LastName: "Pérez", Leader: &leader}
	c := m.Clone()
	*c.Leader = "Other"
	c.FirstName = "Changed"

	assert.Equal(t, "Carlos", *m.Leader)
	assert.Equal(t, "Ana", m.FirstName)
	assert.Equal(t, "Ana Pérez", m.FullName())
}
