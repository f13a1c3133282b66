package handler

import (
	"time"

	"giftexchange/internal/exchange/service"
	"giftexchange/internal/pairing/models"
	rosterHandler "giftexchange/internal/roster/handler"
)

type AssignmentResponse struct {
	Giver     string `json:"giver"`
	Recipient string `json:"recipient"`
}

type CycleResponse struct {
	CycleKey    int64                `json:"cycle_key"`
	CreatedAt   time.Time            `json:"created_at"`
	Assignments []AssignmentResponse `json:"assignments"`
	DryRun      bool                 `json:"dry_run,omitempty"`
}

type OverviewResponse struct {
	Members []rosterHandler.MemberResponse `json:"members"`
	Cycles  []CycleResponse                `json:"cycles"`
}

func FromCycle(c *models.Cycle) CycleResponse {
	out := CycleResponse{
		CycleKey:    int64(c.Key),
		CreatedAt:   c.CreatedAt,
		Assignments: make([]AssignmentResponse, len(c.Assignments)),
	}
	for i, a := range c.Assignments {
		out.Assignments[i] = AssignmentResponse{Giver: a.Giver.String(), Recipient: a.Recipient.String()}
	}
	return out
}

func FromCycles(cycles []models.Cycle) []CycleResponse {
	out := make([]CycleResponse, len(cycles))
	for i := range cycles {
		out[i] = FromCycle(&cycles[i])
	}
	return out
}

func FromGenerated(r *service.GenerateResult) CycleResponse {
	out := FromCycle(r.Cycle)
	out.DryRun = r.DryRun
	return out
}

func FromOverview(o *service.Overview) OverviewResponse {
	return OverviewResponse{
		Members: rosterHandler.FromMembers(o.Members),
		Cycles:  FromCycles(o.Cycles),
	}
}
