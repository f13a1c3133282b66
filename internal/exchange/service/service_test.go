package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"

	"giftexchange/internal/exchange/lock"
	"giftexchange/internal/exchange/metrics"
	"giftexchange/internal/exchange/store/cycle"
	"giftexchange/internal/pairing"
	"giftexchange/internal/pairing/models"
	rosterService "giftexchange/internal/roster/service"
	"giftexchange/internal/roster/store/member"
	id "giftexchange/pkg/domain"
	dErrors "giftexchange/pkg/domain-errors"
	"giftexchange/pkg/platform/audit"
	"giftexchange/pkg/platform/sentinel"
	"giftexchange/pkg/requestcontext"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var family = []string{
	"Brenden", "Carol Ann", "D'Andre", "Pippin", "Bear", "Mack", "Dan",
	"Lara", "Sameera", "Piper", "Kyle", "Robbie", "Jazz", "Eric",
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (p *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) last() audit.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string) (lock.Release, error) {
	return nil, fmt.Errorf("lock 2025 is held: %w", sentinel.ErrUnavailable)
}

type ExchangeServiceSuite struct {
	suite.Suite
	ctx       context.Context
	roster    *rosterService.Service
	cycles    *cycle.InMemory
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	service   *Service
}

func TestExchangeServiceSuite(t *testing.T) {
	suite.Run(t, new(ExchangeServiceSuite))
}

func (s *ExchangeServiceSuite) SetupTest() {
	now := time.Date(2025, 11, 28, 18, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(requestcontext.WithRequestID(context.Background(), "req-7"), now)
	s.roster = rosterService.New(member.NewInMemory())
	s.cycles = cycle.NewInMemory()
	s.publisher = &recordingPublisher{}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = s.newService()
}

func (s *ExchangeServiceSuite) newService(opts ...Option) *Service {
	opts = append([]Option{
		WithAuditPublisher(s.publisher),
		WithMetrics(s.metrics),
	}, opts...)
	return New(s.cycles, s.roster, pairing.New(pairing.WithSeed(7, 11)), opts...)
}

func (s *ExchangeServiceSuite) seed(names ...string) []id.MemberID {
	ids := make([]id.MemberID, len(names))
	for i, name := range names {
		m, err := s.roster.Create(s.ctx, name)
		s.Require().NoError(err)
		ids[i] = m.ID
	}
	return ids
}

func keyPtr(k id.CycleKey) *id.CycleKey { return &k }

func (s *ExchangeServiceSuite) TestGeneratePersistsValidCycle() {
	roster := s.seed(family...)

	res, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().NoError(err)
	s.Equal(id.CycleKey(2025), res.Cycle.Key, "empty history defaults to the current year")
	s.Equal(len(family), res.RosterSize)
	s.Require().NoError(pairing.Verify(res.Cycle, roster, nil))

	stored, err := s.service.GetCycle(s.ctx, 2025)
	s.Require().NoError(err)
	s.Equal(res.Cycle.Assignments, stored.Assignments)

	next, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().NoError(err)
	s.Equal(id.CycleKey(2026), next.Cycle.Key, "default key follows the latest cycle")

	s.Equal(float64(2), testutil.ToFloat64(s.metrics.CyclesGenerated))
	ev := s.publisher.last()
	s.Equal(string(audit.EventCycleGenerated), ev.Action)
	s.Equal("2026", ev.Subject)
	s.Equal(len(family), ev.Count)
	s.Equal("req-7", ev.RequestID)
}

func (s *ExchangeServiceSuite) TestGenerateAvoidsThreeMostRecentCycles() {
	roster := s.seed(family...)
	for key := id.CycleKey(2020); key <= 2027; key++ {
		history, err := s.cycles.LoadRecent(s.ctx, pairing.DefaultHistoryDepth)
		s.Require().NoError(err)

		res, err := s.service.Generate(s.ctx, GenerateRequest{Key: keyPtr(key)})
		s.Require().NoError(err)
		s.Require().NoError(pairing.Verify(res.Cycle, roster, history), "cycle %s", key)
	}
}

func (s *ExchangeServiceSuite) TestExplicitKeyConflict() {
	s.seed(family[:5]...)
	_, err := s.service.Generate(s.ctx, GenerateRequest{Key: keyPtr(2030)})
	s.Require().NoError(err)

	_, err = s.service.Generate(s.ctx, GenerateRequest{Key: keyPtr(2030)})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.GenerationFailures.WithLabelValues("duplicate_key")))

	all, err := s.service.ListCycles(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *ExchangeServiceSuite) TestInvalidExplicitKey() {
	s.seed(family[:5]...)
	_, err := s.service.Generate(s.ctx, GenerateRequest{Key: keyPtr(0)})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func (s *ExchangeServiceSuite) TestDefaultKeyStaysInRange() {
	s.seed(family[:5]...)
	s.Require().NoError(s.cycles.Append(s.ctx, &models.Cycle{
		Key:       id.MaxCycleKey,
		CreatedAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}))

	_, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	all, err := s.service.ListCycles(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(id.MaxCycleKey, all[0].Key)
}

func (s *ExchangeServiceSuite) TestInsufficientRosterStoresNothing() {
	s.seed(family[:4]...)

	_, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInsufficientRoster))
	s.True(errors.Is(err, pairing.ErrInsufficientRoster))

	all, err := s.service.ListCycles(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)

	ev := s.publisher.last()
	s.Equal(string(audit.EventCycleGenerationFailed), ev.Action)
	s.Equal("insufficient_roster", ev.Reason)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.GenerationFailures.WithLabelValues("insufficient_roster")))
}

// TestExhaustedAttempts uses a two-member roster whose only derangement
// repeats last cycle's pairs.
func (s *ExchangeServiceSuite) TestExhaustedAttempts() {
	ids := s.seed("Kyle", "Robbie")
	s.Require().NoError(s.cycles.Append(s.ctx, &models.Cycle{
		Key: 2024,
		Assignments: []models.Assignment{
			{Giver: ids[0], Recipient: ids[1]},
			{Giver: ids[1], Recipient: ids[0]},
		},
		CreatedAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
	}))
	svc := New(s.cycles, s.roster, pairing.New(pairing.WithSeed(1, 2), pairing.WithMinRoster(2)),
		WithMetrics(s.metrics))

	_, err := svc.Generate(s.ctx, GenerateRequest{MaxAttempts: 50})
	s.True(dErrors.HasCode(err, dErrors.CodeAttemptsExhausted))
	s.True(errors.Is(err, pairing.ErrExhaustedAttempts))

	_, err = svc.GetCycle(s.ctx, 2025)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ExchangeServiceSuite) TestDeletedMembersInHistoryAreIgnored() {
	ids := s.seed(family[:6]...)
	_, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().NoError(err)

	_, err = s.roster.Delete(s.ctx, ids[0])
	s.Require().NoError(err)

	res, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().NoError(err)
	s.Equal(5, res.Cycle.Size())
	_, took := res.Cycle.RecipientOf(ids[0])
	s.False(took)
}

func (s *ExchangeServiceSuite) TestDryRunDoesNotPersist() {
	s.seed(family...)
	res, err := s.service.Generate(s.ctx, GenerateRequest{DryRun: true})
	s.Require().NoError(err)
	s.True(res.DryRun)

	all, err := s.service.ListCycles(s.ctx)
	s.Require().NoError(err)
	s.Empty(all)
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.CyclesGenerated))
}

func (s *ExchangeServiceSuite) TestLockHeldElsewhere() {
	s.seed(family...)
	svc := s.newService(WithLocker(heldLocker{}))

	_, err := svc.Generate(s.ctx, GenerateRequest{Key: keyPtr(2025)})
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ExchangeServiceSuite) TestConcurrentGenerationForOneKey() {
	s.seed(family...)
	const callers = 8

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.Generate(s.ctx, GenerateRequest{Key: keyPtr(2031)})
		}()
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.True(dErrors.HasCode(err, dErrors.CodeConflict), "unexpected error: %v", err)
	}
	s.Equal(1, ok)
}

func (s *ExchangeServiceSuite) TestOverview() {
	s.seed(family[:5]...)
	_, err := s.service.Generate(s.ctx, GenerateRequest{})
	s.Require().NoError(err)

	ov, err := s.service.Overview(s.ctx)
	s.Require().NoError(err)
	s.Len(ov.Members, 5)
	s.Require().Len(ov.Cycles, 1)
	s.Equal(id.CycleKey(2025), ov.Cycles[0].Key)
}

func (s *ExchangeServiceSuite) TestSimulate() {
	s.Run("every run yields a valid cycle", func() {
		s.seed(family...)
		report, err := s.service.Simulate(s.ctx, 200, 0)
		s.Require().NoError(err)
		s.Equal(200, report.Succeeded)
		s.Zero(report.Exhausted)
		s.GreaterOrEqual(report.MeanAttempts(), 1.0)

		all, err := s.service.ListCycles(s.ctx)
		s.Require().NoError(err)
		s.Empty(all, "simulation never persists")
	})

	s.Run("rejects non-positive runs", func() {
		_, err := s.service.Simulate(s.ctx, 0, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
