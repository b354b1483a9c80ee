package handler

import "roster/internal/member/models"

type registerResponse struct {
	PersonID string `json:"person_id"`
}

type listResponse struct {
	Members []*models.Member `json:"members"`
	Count   int              `json:"count"`
}

func newListResponse(members []*models.Member) listResponse {
	if members == nil {
		members = []*models.Member{}
	}
	return listResponse{Members: members, Count: len(members)}
}
