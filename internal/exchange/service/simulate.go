package service

import (
	"context"
	"errors"
	"fmt"

	"giftexchange/internal/pairing"
	dErrors "giftexchange/pkg/domain-errors"
	"giftexchange/pkg/requestcontext"
)

// SimulationReport summarizes repeated dry-run draws.
type SimulationReport struct {
	Runs        int
	Succeeded   int
	Exhausted   int
	MaxAttempts int
	// TotalAttempts sums the shuffles over successful runs.
	TotalAttempts int
}

// MeanAttempts is the average number of shuffles per successful run.
func (r *SimulationReport) MeanAttempts() float64 {
	if r.Succeeded == 0 {
		return 0
	}
	return float64(r.TotalAttempts) / float64(r.Succeeded)
}

// Simulate draws runs cycles against one roster and history snapshot without
// persisting anything, verifying every result. It returns an error as soon as
// a draw violates a pairing invariant or the roster is too small.
func (s *Service) Simulate(ctx context.Context, runs, maxAttempts int) (*SimulationReport, error) {
	if runs <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "runs must be positive")
	}
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}
	key, err := s.resolveKey(ctx, nil)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	report := &SimulationReport{Runs: runs}
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		drawn, err := s.engine.GenerateCycle(pairing.Request{
			Key:         key,
			Roster:      snap.roster,
			History:     snap.history,
			MaxAttempts: maxAttempts,
			Now:         requestcontext.Now(ctx),
		})
		if err != nil {
			if errors.Is(err, pairing.ErrExhaustedAttempts) {
				report.Exhausted++
				continue
			}
			return report, classify(err)
		}
		if err := pairing.Verify(drawn.Cycle, snap.roster, snap.history); err != nil {
			return report, dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("run %d produced an invalid cycle", i+1))
		}
		report.Succeeded++
		report.TotalAttempts += drawn.Attempts
		report.MaxAttempts = max(report.MaxAttempts, drawn.Attempts)
	}

	s.logger.InfoContext(ctx, "simulation finished",
		"runs", runs,
		"succeeded", report.Succeeded,
		"exhausted", report.Exhausted,
		"members", len(snap.roster),
	)
	return report, nil
}

// classify maps engine errors to coded errors.
func classify(err error) error {
	switch {
	case errors.Is(err, pairing.ErrInsufficientRoster):
		return dErrors.Wrap(err, dErrors.CodeInsufficientRoster, err.Error())
	case errors.Is(err, pairing.ErrExhaustedAttempts):
		return dErrors.Wrap(err, dErrors.CodeAttemptsExhausted, err.Error())
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "cycle generation failed")
	}
}
