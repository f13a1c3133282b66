// Package pairing draws gift-exchange cycles.
//
// A cycle is built by shuffling the roster and handing every member the one
// before them in the shuffled order, wrapping the first member around to the
// last. Shifting a permutation of two or more distinct members by one position
// never maps a member to itself, so the construction is a derangement by
// definition and needs no self-pairing check. Candidates are then rejected if
// any single assignment repeats one from recent history.
package pairing

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
)

const (
	// DefaultMinRoster is the smallest roster the engine will draw for.
	DefaultMinRoster = 5
	// DefaultHistoryDepth is how many recent cycles constrain a new draw.
	DefaultHistoryDepth = 3
	// DefaultMaxAttempts bounds the randomized search.
	DefaultMaxAttempts = 1000
)

// Request is the input of one draw.
type Request struct {
	Key    id.CycleKey
	Roster []id.MemberID
	// History holds recent cycles, newest first. Only the first HistoryDepth
	// entries are consulted.
	History     []models.Cycle
	MaxAttempts int
	Now         time.Time
}

// Result is a successful draw.
type Result struct {
	Cycle    *models.Cycle
	Attempts int
}

// Engine is a pure function of its request and random source. It holds no
// state between calls except the random source, which is guarded so one Engine
// can serve concurrent requests.
type Engine struct {
	mu           sync.Mutex
	rng          *rand.Rand
	minRoster    int
	historyDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source. Use a seeded source for reproducible draws.
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) {
		e.rng = rng
	}
}

// WithSeed seeds a PCG source.
func WithSeed(seed1, seed2 uint64) Option {
	return WithRand(rand.New(rand.NewPCG(seed1, seed2)))
}

// WithMinRoster sets the roster floor. Values below 2 are ignored.
func WithMinRoster(n int) Option {
	return func(e *Engine) {
		if n >= 2 {
			e.minRoster = n
		}
	}
}

// WithHistoryDepth sets how many recent cycles constrain a draw. Negative values are ignored.
func WithHistoryDepth(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.historyDepth = n
		}
	}
}

// New returns an Engine with the default floor and history depth, seeded
// randomly unless an option supplies a source.
func New(opts ...Option) *Engine {
	e := &Engine{
		minRoster:    DefaultMinRoster,
		historyDepth: DefaultHistoryDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// HistoryDepth reports how many recent cycles the engine consults.
func (e *Engine) HistoryDepth() int {
	return e.historyDepth
}

// MinRoster reports the roster floor.
func (e *Engine) MinRoster() int {
	return e.minRoster
}

// GenerateCycle draws a new cycle for req.Roster that repeats no assignment
// from the recent history.
//
// Errors (always *Error):
//   - ErrInsufficientRoster when the distinct roster is smaller than the floor
//   - ErrExhaustedAttempts when MaxAttempts candidates were all rejected
func (e *Engine) GenerateCycle(req Request) (*Result, error) {
	roster := distinct(req.Roster)
	if len(roster) < e.minRoster {
		return nil, &Error{Kind: ErrInsufficientRoster, RosterSize: len(roster), MinRoster: e.minRoster}
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	forbidden := NewForbidden(recent(req.History, e.historyDepth))
	order := slices.Clone(roster)

	e.mu.Lock()
	defer e.mu.Unlock()

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		e.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		candidate := Derange(order)
		if forbidden.Admits(candidate) {
			now := req.Now
			if now.IsZero() {
				now = time.Now()
			}
			return &Result{
				Cycle: &models.Cycle{
					Key:         req.Key,
					Assignments: candidate,
					CreatedAt:   now.UTC(),
				},
				Attempts: attempt,
			}, nil
		}
	}
	return nil, &Error{Kind: ErrExhaustedAttempts, RosterSize: len(roster), Attempts: maxAttempts}
}

// Derange makes every member of order give to the member before it, the first
// member giving to the last. For order [B,D,A,E,C] the result is
// B->C, D->B, A->D, E->A, C->E.
func Derange(order []id.MemberID) []models.Assignment {
	n := len(order)
	out := make([]models.Assignment, n)
	for i, giver := range order {
		out[i] = models.Assignment{Giver: giver, Recipient: order[(i-1+n)%n]}
	}
	return out
}

func recent(history []models.Cycle, depth int) []models.Cycle {
	if len(history) > depth {
		return history[:depth]
	}
	return history
}

func distinct(roster []id.MemberID) []id.MemberID {
	seen := make(map[id.MemberID]struct{}, len(roster))
	out := make([]id.MemberID, 0, len(roster))
	for _, m := range roster {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
