package handler

import (
	"maps"
	"net/url"
	"slices"

	"roster/internal/member/models"
	dErrors "roster/pkg/domain-errors"
)

// Reserved query parameters of GET /members/search. Every other parameter
// names a field criterion.
const (
	queryText    = "q"
	queryCombine = "combine"
	queryOrder   = "order"
	queryMatch   = "match"
)

// searchRequestFromQuery maps ?q=...&votingPlace=Ate&combine=any onto a
// SearchRequest. A single match parameter applies to every field criterion.
// Criteria follow parameter name order so identical queries plan identically.
func searchRequestFromQuery(q url.Values) (models.SearchRequest, error) {
	req := models.SearchRequest{
		Text:    q.Get(queryText),
		Combine: models.Combine(q.Get(queryCombine)),
		Order:   models.Order(q.Get(queryOrder)),
	}
	match := models.MatchMode(q.Get(queryMatch))
	for _, key := range slices.Sorted(maps.Keys(q)) {
		values := q[key]
		switch key {
		case queryText, queryCombine, queryOrder, queryMatch:
			continue
		}
		field, ok := models.ParseField(key)
		if !ok {
			return models.SearchRequest{}, dErrors.New(dErrors.CodeBadRequest, "unknown search parameter "+key)
		}
		for _, v := range values {
			req.Criteria = append(req.Criteria, models.Criterion{Field: field, Value: v, Match: match})
		}
	}
	return req, nil
}
