package pairing

import (
	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
)

// Forbidden is the flattened set of (giver, recipient) pairs from recent
// history. Matching is per assignment: a candidate that repeats any single
// historical pair is rejected, not only one that repeats a whole cycle.
//
// Ids are matched raw; a pair naming a since-deleted member stays forbidden
// and simply never matches again.
type Forbidden map[models.Assignment]struct{}

// NewForbidden flattens the assignments of cycles.
func NewForbidden(cycles []models.Cycle) Forbidden {
	f := make(Forbidden)
	for _, c := range cycles {
		for _, a := range c.Assignments {
			f[a] = struct{}{}
		}
	}
	return f
}

// Contains reports whether giver->recipient appeared in history.
func (f Forbidden) Contains(giver, recipient id.MemberID) bool {
	_, ok := f[models.Assignment{Giver: giver, Recipient: recipient}]
	return ok
}

// Admits reports whether no assignment of candidate appears in f.
func (f Forbidden) Admits(candidate []models.Assignment) bool {
	for _, a := range candidate {
		if _, ok := f[a]; ok {
			return false
		}
	}
	return true
}
