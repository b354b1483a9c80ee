package store

import (
	"fmt"
	"time"

	"roster/internal/docstore"
	"roster/internal/member/models"
	"roster/pkg/normalize"
)

// CreatedAtLayout is fixed-width UTC so lexical order equals chronological order.
const CreatedAtLayout = "2006-01-02T15:04:05.000000000Z"

// Document field names.
const (
	docPersonID        = "personId"
	docFirstName       = "firstName"
	docLastName        = "lastName"
	docPhone           = "phone"
	docAddress         = "address"
	docVotingPlace     = "votingPlace"
	docTable           = "table"
	docMemberType      = "memberType"
	docLeader          = "leader"
	docNotes           = "notes"
	docCreatedAt       = "createdAt"
	docFirstNameFold   = "firstNameFold"
	docLastNameFold    = "lastNameFold"
	docAddressFold     = "addressFold"
	docVotingPlaceFold = "votingPlaceFold"
	docTableFold       = "tableFold"
	docLeaderFold      = "leaderFold"
)

// IndexedFields are the document fields backends should index.
var IndexedFields = []string{
	docMemberType,
	docCreatedAt,
	docFirstNameFold,
	docLastNameFold,
	docAddressFold,
	docVotingPlaceFold,
	docTableFold,
	docLeaderFold,
}

func formatCreatedAt(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

func encode(m *models.Member) docstore.Document {
	doc := docstore.Document{
		docPersonID:   m.PersonID,
		docFirstName:  m.FirstName,
		docLastName:   m.LastName,
		docPhone:      m.Phone,
		docAddress:    m.Address,
		docMemberType: string(m.MemberType),
		docCreatedAt:  formatCreatedAt(m.CreatedAt),

		docFirstNameFold: normalize.FoldCase(m.FirstName),
		docLastNameFold:  normalize.FoldCase(m.LastName),
		docAddressFold:   normalize.FoldCase(m.Address),
	}
	putOptional(doc, docVotingPlace, docVotingPlaceFold, m.VotingPlace)
	putOptional(doc, docTable, docTableFold, m.Table)
	putOptional(doc, docLeader, docLeaderFold, m.LeaderName())
	if m.Notes != "" {
		doc[docNotes] = m.Notes
	}
	return doc
}

func putOptional(doc docstore.Document, field, foldField, value string) {
	if value == "" {
		return
	}
	doc[field] = value
	doc[foldField] = normalize.FoldCase(value)
}

func decode(doc docstore.Document) (*models.Member, error) {
	id := doc[docPersonID]
	if id == "" {
		return nil, fmt.Errorf("decode member: missing %s", docPersonID)
	}
	createdAt, err := time.Parse(CreatedAtLayout, doc[docCreatedAt])
	if err != nil {
		return nil, fmt.Errorf("decode member %s: %w", id, err)
	}
	m := &models.Member{
		PersonID:    id,
		FirstName:   doc[docFirstName],
		LastName:    doc[docLastName],
		Phone:       doc[docPhone],
		Address:     doc[docAddress],
		VotingPlace: doc[docVotingPlace],
		Table:       doc[docTable],
		MemberType:  models.Category(doc[docMemberType]),
		Notes:       doc[docNotes],
		CreatedAt:   createdAt,
	}
	if !m.MemberType.IsValid() {
		return nil, fmt.Errorf("decode member %s: invalid member type %q", id, m.MemberType)
	}
	if leader, ok := doc[docLeader]; ok && leader != "" {
		m.Leader = &leader
	}
	return m, nil
}

func decodeAll(docs []docstore.Document) ([]*models.Member, error) {
	out := make([]*models.Member, 0, len(docs))
	for _, d := range docs {
		m, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
