package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"giftexchange/internal/roster/metrics"
	"giftexchange/internal/roster/models"
	member "giftexchange/internal/roster/store/member"
	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
	"giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/sentinel"
	"giftexchange/pkg/requestcontext"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

type failingStore struct {
	Store
	err error
}

func (f failingStore) ListAll(context.Context) ([]*models.Member, error) { return nil, f.err }
func (f failingStore) FindByID(context.Context, id.MemberID) (*models.Member, error) {
	return nil, f.err
}

type RosterServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *member.InMemory
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	service   *Service
}

func TestRosterServiceSuite(t *testing.T) {
	suite.Run(t, new(RosterServiceSuite))
}

func (s *RosterServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithRequestID(context.Background(), "req-1")
	s.store = member.NewInMemory()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
	)
}

func (s *RosterServiceSuite) TestCreate() {
	s.Run("stores trimmed name and stamps request time", func() {
		at := time.Date(2025, 11, 30, 12, 0, 0, 0, time.UTC)
		m, err := s.service.Create(requestcontext.WithTime(s.ctx, at), "  Brenden  ")
		s.Require().NoError(err)
		s.Equal("Brenden", m.Name)
		s.True(at.Equal(m.CreatedAt))

		stored, err := s.store.FindByID(s.ctx, m.ID)
		s.Require().NoError(err)
		s.Equal("Brenden", stored.Name)
	})

	s.Run("invalid name is a validation error", func() {
		_, err := s.service.Create(s.ctx, "   ")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate name is a conflict", func() {
		_, err := s.service.Create(s.ctx, "Carol Ann")
		s.Require().NoError(err)
		_, err = s.service.Create(s.ctx, "carol ann")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Equal(float64(2), testutil.ToFloat64(s.metrics.MembersCreated))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.RosterSize))
}

func (s *RosterServiceSuite) TestRename() {
	m, err := s.service.Create(s.ctx, "Dan")
	s.Require().NoError(err)
	_, err = s.service.Create(s.ctx, "Eric")
	s.Require().NoError(err)

	s.Run("returns the old name", func() {
		res, err := s.service.Rename(s.ctx, m.ID, "Daniel")
		s.Require().NoError(err)
		s.Equal("Dan", res.OldName)
		s.Equal("Daniel", res.Member.Name)
		s.Equal(m.ID, res.Member.ID)
	})

	s.Run("onto an existing name is a conflict", func() {
		_, err := s.service.Rename(s.ctx, m.ID, "ERIC")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown member is not found", func() {
		_, err := s.service.Rename(s.ctx, id.NewMemberID(), "Nobody")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RosterServiceSuite) TestDelete() {
	m, err := s.service.Create(s.ctx, "Jazz")
	s.Require().NoError(err)

	deleted, err := s.service.Delete(s.ctx, m.ID)
	s.Require().NoError(err)
	s.Equal("Jazz", deleted.Name)

	_, err = s.service.Get(s.ctx, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Delete(s.ctx, m.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Equal(float64(0), testutil.ToFloat64(s.metrics.RosterSize))
}

func (s *RosterServiceSuite) TestRosterKeepsInsertionOrder() {
	var want []id.MemberID
	for _, name := range []string{"Kyle", "Robbie", "Piper"} {
		m, err := s.service.Create(s.ctx, name)
		s.Require().NoError(err)
		want = append(want, m.ID)
	}
	got, err := s.service.Roster(s.ctx)
	s.Require().NoError(err)
	s.Equal(want, got)

	n, err := s.service.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, n)
}

func (s *RosterServiceSuite) TestAuditTrail() {
	m, err := s.service.Create(s.ctx, "Sameera")
	s.Require().NoError(err)
	_, err = s.service.Rename(s.ctx, m.ID, "Sam")
	s.Require().NoError(err)
	_, err = s.service.Delete(s.ctx, m.ID)
	s.Require().NoError(err)

	s.Equal([]string{
		string(audit.EventMemberCreated),
		string(audit.EventMemberRenamed),
		string(audit.EventMemberDeleted),
	}, s.publisher.actions())
	for _, e := range s.publisher.events {
		s.Equal(audit.CategoryRoster, e.Category)
		s.Equal(m.ID.String(), e.Subject)
		s.Equal("req-1", e.RequestID)
	}
}

func (s *RosterServiceSuite) TestAuditFailureDoesNotFailMutation() {
	s.publisher.err = errors.New("sink down")
	_, err := s.service.Create(s.ctx, "Bear")
	s.NoError(err)
}

func (s *RosterServiceSuite) TestStoreFailuresAreTranslated() {
	s.Run("unavailable", func() {
		svc := New(failingStore{err: sentinel.ErrUnavailable})
		_, err := svc.List(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Run("unexpected", func() {
		svc := New(failingStore{err: errors.New("disk on fire")})
		_, err := svc.Get(s.ctx, id.NewMemberID())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
