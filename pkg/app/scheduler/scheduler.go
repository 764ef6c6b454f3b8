package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/avast/retry-go/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultExpiryInterval = time.Hour
	DefaultStartInterval  = time.Minute
	DefaultTeardownGrace  = 5 * time.Minute
	DefaultParallelism    = 8
)

type Config struct {
	ExpiryInterval time.Duration
	StartInterval  time.Duration
	TeardownGrace  time.Duration
	Parallelism    int
	// MarkAttempts bounds the retries of the start flag write on backend faults.
	MarkAttempts uint
	MarkDelay    time.Duration
}

func (c Config) withDefaults() Config {
	if c.ExpiryInterval <= 0 {
		c.ExpiryInterval = DefaultExpiryInterval
	}
	if c.StartInterval <= 0 {
		c.StartInterval = DefaultStartInterval
	}
	if c.TeardownGrace <= 0 {
		c.TeardownGrace = DefaultTeardownGrace
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.MarkAttempts == 0 {
		c.MarkAttempts = 3
	}
	if c.MarkDelay <= 0 {
		c.MarkDelay = 200 * time.Millisecond
	}
	return c
}

//go:generate mockery --name=Scheduler --dir=. --output=./mocks --filename=scheduler_mock.go --case=underscore --with-expecter
type Scheduler interface {
	// Start runs the periodic jobs until Stop; jobs only run while Leader says so.
	Start()
	Stop()
	RunOnce(ctx context.Context) error
	SweepExpired(ctx context.Context) error
	NotifyStarts(ctx context.Context) error
	ProcessTeardowns(ctx context.Context) error
}

// Leader reports whether this process may run the jobs right now.
type Leader interface {
	IsLeader() bool
}

type alwaysLeader struct{}

func (alwaysLeader) IsLeader() bool { return true }

type scheduler struct {
	logger       *logrus.Logger
	actor        session.Actor
	dispatcher   notification.Dispatcher
	sideChannels domainSideChannel.Store
	leader       Leader
	cfg          Config
	now          func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// New builds the scheduler and registers its eviction handler on the actor, so
// auto-close side effects fire on whichever path evicts first. A nil leader runs
// everything locally; a nil archive skips archiving.
func New(
	logger *logrus.Logger,
	actor session.Actor,
	dispatcher notification.Dispatcher,
	sideChannels domainSideChannel.Store,
	archive domainSession.ArchiveRepository,
	leader Leader,
	cfg Config,
	now func() time.Time,
) Scheduler {
	cfg = cfg.withDefaults()
	if now == nil {
		now = time.Now
	}
	if leader == nil {
		leader = alwaysLeader{}
	}
	actor.AddEvictionListener(&evictionHandler{
		logger:       logger,
		dispatcher:   dispatcher,
		archive:      archive,
		sideChannels: sideChannels,
		grace:        cfg.TeardownGrace,
		now:          now,
	})
	return &scheduler{
		logger:       logger,
		actor:        actor,
		dispatcher:   dispatcher,
		sideChannels: sideChannels,
		leader:       leader,
		cfg:          cfg,
		now:          now,
	}
}

func (s *scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.loop(ctx, "expiry", s.cfg.ExpiryInterval, s.SweepExpired)
	s.loop(ctx, "start", s.cfg.StartInterval, func(ctx context.Context) error {
		if err := s.NotifyStarts(ctx); err != nil {
			return err
		}
		return s.ProcessTeardowns(ctx)
	})
	s.logger.WithFields(logrus.Fields{
		"expiry_interval": s.cfg.ExpiryInterval.String(),
		"start_interval":  s.cfg.StartInterval.String(),
	}).Info("scheduler started")
}

func (s *scheduler) loop(ctx context.Context, name string, every time.Duration, job func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if !s.leader.IsLeader() {
					continue
				}
				if err := job(ctx); err != nil && ctx.Err() == nil {
					s.logger.WithError(err).WithField("job", name).Error("scheduler job failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (s *scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// RunOnce runs every job a single time, in dependency order.
func (s *scheduler) RunOnce(ctx context.Context) error {
	if err := s.SweepExpired(ctx); err != nil {
		return err
	}
	if err := s.NotifyStarts(ctx); err != nil {
		return err
	}
	return s.ProcessTeardowns(ctx)
}

func (s *scheduler) SweepExpired(ctx context.Context) error {
	defer observe("expiry", time.Now())
	return s.eachScope(ctx, "expiry", func(ctx context.Context, scopeID string) error {
		evicted, err := s.actor.Sweep(ctx, scopeID)
		if err != nil {
			return err
		}
		if len(evicted) > 0 {
			s.logger.WithFields(logrus.Fields{
				"scope_id": scopeID,
				"evicted":  len(evicted),
			}).Info("expired sessions swept")
		}
		return nil
	})
}

// NotifyStarts flips notifiedAtStart before sending, so a crash in between loses
// the notification instead of sending it twice.
func (s *scheduler) NotifyStarts(ctx context.Context) error {
	defer observe("start", time.Now())
	return s.eachScope(ctx, "start", func(ctx context.Context, scopeID string) error {
		sessions, err := s.actor.List(ctx, scopeID)
		if err != nil {
			return err
		}
		now := s.now()
		for _, candidate := range sessions {
			if !candidate.StartReached(now) {
				continue
			}
			marked, flipped, err := s.markStartNotified(ctx, candidate.ID)
			if err != nil {
				if domain.IsNotFoundError(err) {
					continue
				}
				s.logger.WithError(err).WithField("session_id", candidate.ID).Error("failed to persist start notification flag")
				continue
			}
			if !flipped {
				continue
			}
			s.dispatcher.Send(
				notification.Target{Type: notification.TargetScope, ID: marked.ScopeID},
				notification.Notification{
					Kind:      notification.KindStartTimeReached,
					SessionID: marked.ID,
					ScopeID:   marked.ScopeID,
					Payload: map[string]interface{}{
						"title":    marked.Title,
						"owner_id": marked.OwnerID,
						"roster":   marked.Roster,
					},
					CreatedAt: now,
				},
			)
		}
		return nil
	})
}

func (s *scheduler) markStartNotified(ctx context.Context, id string) (*domainSession.Session, bool, error) {
	var (
		marked  *domainSession.Session
		flipped bool
	)
	err := retry.Do(
		func() error {
			var err error
			marked, flipped, err = s.actor.MarkStartNotified(ctx, id)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.MarkAttempts),
		retry.Delay(s.cfg.MarkDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(domain.IsBackendUnavailable),
		retry.LastErrorOnly(true),
	)
	return marked, flipped, err
}

func (s *scheduler) ProcessTeardowns(ctx context.Context) error {
	defer observe("teardown", time.Now())
	due, err := s.sideChannels.DueTeardowns(ctx, s.now())
	if err != nil {
		return err
	}
	for _, t := range due {
		if err := s.sideChannels.CompleteTeardown(ctx, t.SessionID); err != nil {
			s.logger.WithError(err).WithField("session_id", t.SessionID).Error("failed to complete side channel teardown")
			continue
		}
		s.dispatcher.Send(
			notification.Target{Type: notification.TargetSideChannel, ID: t.ResourceID},
			notification.Notification{
				Kind:      notification.KindSideChannelRemoved,
				SessionID: t.SessionID,
				ScopeID:   t.ScopeID,
				Payload:   map[string]interface{}{"resource_id": t.ResourceID},
				CreatedAt: s.now(),
			},
		)
	}
	return nil
}

// eachScope runs fn for every scope with bounded parallelism. A failing scope is
// logged and never stops the others.
func (s *scheduler) eachScope(ctx context.Context, job string, fn func(ctx context.Context, scopeID string) error) error {
	scopes, err := s.actor.Scopes(ctx)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for _, scopeID := range scopes {
		g.Go(func() error {
			if err := fn(gctx, scopeID); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"job":      job,
					"scope_id": scopeID,
				}).Error("scheduler job failed for scope")
			}
			return nil
		})
	}
	return g.Wait()
}

func observe(job string, start time.Time) {
	prometheus.SchedulerRunDuration.WithLabelValues(job).Observe(float64(time.Since(start).Milliseconds()))
}
