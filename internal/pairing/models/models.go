package models

import (
	"time"

	id "giftexchange/pkg/domain"
)

// Assignment pairs a giver with the member they buy for.
//
// Invariants:
//   - Giver != Recipient
type Assignment struct {
	Giver     id.MemberID `json:"giver"`
	Recipient id.MemberID `json:"recipient"`
}

// Cycle is one persisted run of the exchange.
//
// Invariants:
//   - Key is unique across history
//   - Assignments form a derangement over the roster at generation time: every
//     member gives exactly once and receives exactly once, never to themselves
//   - A Cycle is immutable once appended to history
//
// Assignments may reference members that were deleted afterwards; history is
// never rewritten to follow the roster.
type Cycle struct {
	Key         id.CycleKey  `json:"cycle_key"`
	Assignments []Assignment `json:"assignments"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Size returns the number of members the cycle covers.
func (c *Cycle) Size() int {
	return len(c.Assignments)
}

// RecipientOf returns the member giver was assigned, if giver took part.
func (c *Cycle) RecipientOf(giver id.MemberID) (id.MemberID, bool) {
	for _, a := range c.Assignments {
		if a.Giver == giver {
			return a.Recipient, true
		}
	}
	return id.MemberID{}, false
}

// Clone returns a deep copy so callers cannot mutate stored history.
func (c *Cycle) Clone() *Cycle {
	if c == nil {
		return nil
	}
	out := *c
	out.Assignments = append([]Assignment(nil), c.Assignments...)
	return &out
}
