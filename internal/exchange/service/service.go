package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"giftexchange/internal/exchange/lock"
	"giftexchange/internal/exchange/metrics"
	"giftexchange/internal/pairing"
	"giftexchange/internal/pairing/models"
	rosterModels "giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
	"giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/sentinel"
	"giftexchange/pkg/requestcontext"
)

var tracer = otel.Tracer("giftexchange/internal/exchange")

// CycleStore is the append-only pairing history. Implementations return
// sentinel.ErrAlreadyUsed for a duplicate key and sentinel.ErrNotFound for an
// unknown one.
type CycleStore interface {
	Append(ctx context.Context, c *models.Cycle) error
	LoadRecent(ctx context.Context, n int) ([]models.Cycle, error)
	ListAll(ctx context.Context) ([]models.Cycle, error)
	FindByKey(ctx context.Context, key id.CycleKey) (*models.Cycle, error)
	Latest(ctx context.Context) (*models.Cycle, error)
}

// Roster reads the current members. The roster service satisfies it.
type Roster interface {
	List(ctx context.Context) ([]*rosterModels.Member, error)
	Roster(ctx context.Context) ([]id.MemberID, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates cycle generation: it snapshots the roster and recent
// history, runs the pairing engine and appends the result.
type Service struct {
	cycles         CycleStore
	roster         Roster
	engine         *pairing.Engine
	locker         lock.Locker
	maxAttempts    int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLocker replaces the in-process generation lock, e.g. with a Redis one
// shared across replicas.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) {
		s.locker = l
	}
}

// WithMaxAttempts sets the default attempt budget for requests that carry
// none.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func New(cycles CycleStore, roster Roster, engine *pairing.Engine, opts ...Option) *Service {
	s := &Service{
		cycles:      cycles,
		roster:      roster,
		engine:      engine,
		maxAttempts: pairing.DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		s.locker = lock.NewLocal()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// GenerateRequest asks for a new cycle. A nil Key means the next key after the
// latest cycle, or the current year when there is no history. A non-positive
// MaxAttempts uses the service default.
type GenerateRequest struct {
	Key         *id.CycleKey
	MaxAttempts int
	// DryRun draws without persisting.
	DryRun bool
}

type GenerateResult struct {
	Cycle      *models.Cycle
	Attempts   int
	RosterSize int
	DryRun     bool
}

// Overview is every member alongside the full history.
type Overview struct {
	Members []*rosterModels.Member
	Cycles  []models.Cycle
}

type snapshot struct {
	roster  []id.MemberID
	history []models.Cycle
}

// Generate draws and persists a new cycle.
//
// Errors:
//   - CodeInsufficientRoster when fewer members than the engine floor exist
//   - CodeAttemptsExhausted when no pairing avoids recent history
//   - CodeConflict when a cycle with the key already exists
//   - CodeUnavailable when another process holds the generation lock
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "exchange.Generate",
		trace.WithAttributes(attribute.String("request.id", requestcontext.RequestID(ctx))),
	)
	defer span.End()

	result, err := s.generate(ctx, req)
	if s.metrics != nil {
		s.metrics.ObserveGenerate(start)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("cycle.key", int64(result.Cycle.Key)),
		attribute.Int("cycle.size", result.Cycle.Size()),
		attribute.Int("draw.attempts", result.Attempts),
		attribute.Bool("draw.dry_run", result.DryRun),
	)
	return result, nil
}

func (s *Service) generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	requestID := requestcontext.RequestID(ctx)

	key, err := s.resolveKey(ctx, req.Key)
	if err != nil {
		return nil, err
	}

	waitStart := time.Now()
	release, err := s.locker.Acquire(ctx, key.String())
	if err != nil {
		if errors.Is(err, sentinel.ErrUnavailable) {
			s.recordFailure(ctx, key, "locked", 0)
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "cycle generation already in progress")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire generation lock")
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.WarnContext(ctx, "failed to release generation lock",
				"request_id", requestID,
				"cycle_key", key,
				"error", err,
			)
		}
	}()
	if s.metrics != nil {
		s.metrics.ObserveLockWait(waitStart)
	}

	if !req.DryRun {
		if _, err := s.cycles.FindByKey(ctx, key); err == nil {
			s.recordFailure(ctx, key, "duplicate_key", 0)
			return nil, dErrors.New(dErrors.CodeConflict, "cycle "+key.String()+" already exists")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, translateCycleErr(err, "failed to check cycle history")
		}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.maxAttempts
	}
	drawn, err := s.engine.GenerateCycle(pairing.Request{
		Key:         key,
		Roster:      snap.roster,
		History:     snap.history,
		MaxAttempts: maxAttempts,
		Now:         requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, s.engineFailure(ctx, key, len(snap.roster), err)
	}

	if !req.DryRun {
		if err := s.cycles.Append(ctx, drawn.Cycle); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				s.recordFailure(ctx, key, "duplicate_key", len(snap.roster))
			}
			return nil, translateCycleErr(err, "failed to store cycle")
		}
		s.emitAudit(ctx, audit.EventCycleGenerated, key, "", len(snap.roster))
		if s.metrics != nil {
			s.metrics.ObserveGenerated(drawn.Attempts)
		}
	}

	s.logger.InfoContext(ctx, "cycle generated",
		"request_id", requestID,
		"cycle_key", key,
		"members", len(snap.roster),
		"attempts", drawn.Attempts,
		"dry_run", req.DryRun,
	)
	return &GenerateResult{
		Cycle:      drawn.Cycle,
		Attempts:   drawn.Attempts,
		RosterSize: len(snap.roster),
		DryRun:     req.DryRun,
	}, nil
}

// resolveKey validates an explicit key or derives the default one.
func (s *Service) resolveKey(ctx context.Context, key *id.CycleKey) (id.CycleKey, error) {
	if key != nil {
		return id.NewCycleKey(int64(*key))
	}
	latest, err := s.cycles.Latest(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return id.CycleKeyForYear(requestcontext.Now(ctx)), nil
		}
		return 0, translateCycleErr(err, "failed to load latest cycle")
	}
	next, err := id.NewCycleKey(int64(latest.Key.Next()))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInvalidInput, "no cycle key follows "+latest.Key.String())
	}
	return next, nil
}

// snapshot reads the roster and the recent history concurrently. Both reads
// happen after the generation lock is held, so no other generation for the
// key can interleave.
func (s *Service) snapshot(ctx context.Context) (*snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		roster, err := s.roster.Roster(gctx)
		if err != nil {
			return err
		}
		snap.roster = roster
		return nil
	})
	g.Go(func() error {
		history, err := s.cycles.LoadRecent(gctx, s.engine.HistoryDepth())
		if err != nil {
			return translateCycleErr(err, "failed to load recent history")
		}
		snap.history = history
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (s *Service) engineFailure(ctx context.Context, key id.CycleKey, rosterSize int, err error) error {
	switch {
	case errors.Is(err, pairing.ErrInsufficientRoster):
		s.recordFailure(ctx, key, "insufficient_roster", rosterSize)
	case errors.Is(err, pairing.ErrExhaustedAttempts):
		s.recordFailure(ctx, key, "attempts_exhausted", rosterSize)
	}
	return classify(err)
}

func (s *Service) recordFailure(ctx context.Context, key id.CycleKey, reason string, rosterSize int) {
	s.logger.WarnContext(ctx, "cycle generation failed",
		"request_id", requestcontext.RequestID(ctx),
		"cycle_key", key,
		"reason", reason,
		"members", rosterSize,
	)
	if s.metrics != nil {
		s.metrics.IncrementFailure(reason)
	}
	s.emitAudit(ctx, audit.EventCycleGenerationFailed, key, reason, rosterSize)
}

// ListCycles returns the full history ordered by cycle key.
func (s *Service) ListCycles(ctx context.Context) ([]models.Cycle, error) {
	cycles, err := s.cycles.ListAll(ctx)
	if err != nil {
		return nil, translateCycleErr(err, "failed to list cycles")
	}
	return cycles, nil
}

func (s *Service) GetCycle(ctx context.Context, key id.CycleKey) (*models.Cycle, error) {
	c, err := s.cycles.FindByKey(ctx, key)
	if err != nil {
		return nil, translateCycleErr(err, "failed to load cycle")
	}
	return c, nil
}

// Overview returns the roster and the full history together.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		members, err := s.roster.List(gctx)
		out.Members = members
		return err
	})
	g.Go(func() error {
		cycles, err := s.ListCycles(gctx)
		out.Cycles = cycles
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, key id.CycleKey, reason string, rosterSize int) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  audit.CategoryExchange,
		Action:    string(action),
		Subject:   key.String(),
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		Count:     rosterSize,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
		)
	}
}

func translateCycleErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "cycle not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "cycle already exists")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "history store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
