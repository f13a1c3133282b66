package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"giftexchange/internal/roster/metrics"
	"giftexchange/internal/roster/models"
	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
	"giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/sentinel"
	"giftexchange/pkg/requestcontext"
)

// Store persists roster members. Implementations return sentinel.ErrNotFound
// for unknown ids and sentinel.ErrAlreadyUsed when a name key is taken.
type Store interface {
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error)
	ListAll(ctx context.Context) ([]*models.Member, error)
	Update(ctx context.Context, m *models.Member) error
	Delete(ctx context.Context, memberID id.MemberID) error
	Count(ctx context.Context) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service manages the roster of exchange members.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

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

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// RenameResult reports a rename together with the name it replaced.
type RenameResult struct {
	Member  *models.Member
	OldName string
}

// List returns every member in insertion order.
func (s *Service) List(ctx context.Context) ([]*models.Member, error) {
	members, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

// Roster returns the ids of every current member, in insertion order.
func (s *Service) Roster(ctx context.Context) ([]id.MemberID, error) {
	members, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]id.MemberID, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count members")
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	m, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load member")
	}
	return m, nil
}

// Create adds a member with the given display name.
func (s *Service) Create(ctx context.Context, name string) (*models.Member, error) {
	start := time.Now()
	m, err := models.NewMember(id.NewMemberID(), name, requestcontext.Now(ctx).UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Create(ctx, m); err != nil {
		return nil, translateStoreErr(err, "failed to create member")
	}

	s.logger.InfoContext(ctx, "member created",
		"request_id", requestcontext.RequestID(ctx),
		"member_id", m.ID,
	)
	s.emitAudit(ctx, audit.EventMemberCreated, m.ID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementCreated()
		s.metrics.ObserveMutation("create", start)
		s.refreshSize(ctx)
	}
	return m, nil
}

// Rename changes a member's display name. The id is unchanged.
func (s *Service) Rename(ctx context.Context, memberID id.MemberID, name string) (*RenameResult, error) {
	start := time.Now()
	m, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load member")
	}

	old, err := m.Rename(name, requestcontext.Now(ctx).UTC())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.Update(ctx, m); err != nil {
		return nil, translateStoreErr(err, "failed to rename member")
	}

	s.logger.InfoContext(ctx, "member renamed",
		"request_id", requestcontext.RequestID(ctx),
		"member_id", m.ID,
	)
	s.emitAudit(ctx, audit.EventMemberRenamed, m.ID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementRenamed()
		s.metrics.ObserveMutation("rename", start)
	}
	return &RenameResult{Member: m, OldName: old}, nil
}

// Delete removes a member and returns the removed record. Past cycles that
// mention the member are left untouched.
func (s *Service) Delete(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	start := time.Now()
	m, err := s.store.FindByID(ctx, memberID)
	if err != nil {
		return nil, translateStoreErr(err, "failed to load member")
	}
	if err := s.store.Delete(ctx, memberID); err != nil {
		return nil, translateStoreErr(err, "failed to delete member")
	}

	s.logger.InfoContext(ctx, "member deleted",
		"request_id", requestcontext.RequestID(ctx),
		"member_id", m.ID,
	)
	s.emitAudit(ctx, audit.EventMemberDeleted, m.ID.String(), "")
	if s.metrics != nil {
		s.metrics.IncrementDeleted()
		s.metrics.ObserveMutation("delete", start)
		s.refreshSize(ctx)
	}
	return m, nil
}

func (s *Service) refreshSize(ctx context.Context) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count members for metrics", "error", err)
		return
	}
	s.metrics.SetRosterSize(n)
}

func (s *Service) emitAudit(ctx context.Context, action audit.AuditEvent, subject, reason string) {
	if s.auditPublisher == nil {
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Category:  audit.CategoryRoster,
		Action:    string(action),
		Subject:   subject,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", action,
			"error", err,
		)
	}
}

func translateStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "member not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "member name must be unique")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "roster store unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
