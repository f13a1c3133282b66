package handler

import (
	"giftexchange/internal/roster/models"
	"giftexchange/internal/roster/service"
)

type MemberResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RenameResponse struct {
	ID      string `json:"id"`
	OldName string `json:"old_name"`
	Name    string `json:"name"`
}

type DeleteResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Deleted bool   `json:"deleted"`
}

func FromMember(m *models.Member) MemberResponse {
	return MemberResponse{ID: m.ID.String(), Name: m.Name}
}

func FromMembers(members []*models.Member) []MemberResponse {
	out := make([]MemberResponse, len(members))
	for i, m := range members {
		out[i] = FromMember(m)
	}
	return out
}

func FromRename(r *service.RenameResult) RenameResponse {
	return RenameResponse{ID: r.Member.ID.String(), OldName: r.OldName, Name: r.Member.Name}
}

func FromDeleted(m *models.Member) DeleteResponse {
	return DeleteResponse{ID: m.ID.String(), Name: m.Name, Deleted: true}
}
