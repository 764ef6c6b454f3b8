package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL             = 8 * time.Hour
	DefaultClosedRetention = 5 * time.Hour
	DefaultEvictionSlack   = 2 * time.Hour
	DefaultLockTTL         = 30 * time.Second
	DefaultIdleTimeout     = time.Minute
	defaultMailboxSize     = 64

	LockKeyPattern = "recruit_lock:%s"
	lockRetryDelay = 5 * time.Millisecond
)

var (
	ErrActorStopped = errors.New("session actor stopped")
	errScopeBusy    = errors.New("scope lease held elsewhere")
)

// Actor owns the authoritative copy of every session. All work on one scope runs
// on that scope's partition, one task at a time, so join/leave/update/delete on
// a scope observe a total order. Different scopes run in parallel. Each task also
// holds the scope lease in the backend, which extends the order to every process
// sharing that backend.
//
//go:generate mockery --name=Actor --dir=. --output=./mocks --filename=actor_mock.go --case=underscore --with-expecter
type Actor interface {
	Create(ctx context.Context, s *domainSession.Session) (string, error)
	Get(ctx context.Context, id string) (*domainSession.Session, error)
	// Inspect is Get with fn run on the partition before anything else touches
	// the scope, for callers that copy the session elsewhere.
	Inspect(ctx context.Context, id string, fn func(ctx context.Context, s *domainSession.Session)) (*domainSession.Session, error)
	List(ctx context.Context, scopeID string) ([]*domainSession.Session, error)
	Update(ctx context.Context, id string, patch domainSession.Patch) (*domainSession.Session, error)
	Close(ctx context.Context, id string, requester domainSession.Requester) (*domainSession.Session, error)
	Delete(ctx context.Context, id string, requester domainSession.Requester) error
	Join(ctx context.Context, id, participantID string) (*domainSession.Session, bool, error)
	Leave(ctx context.Context, id, participantID string) (*domainSession.Session, bool, error)
	MarkStartNotified(ctx context.Context, id string) (*domainSession.Session, bool, error)
	Sweep(ctx context.Context, scopeID string) ([]*domainSession.Session, error)
	Scopes(ctx context.Context) ([]string, error)
	History(ctx context.Context, id string, from, to time.Time) ([]domainSession.Event, error)

	AddEvictionListener(l domainSession.EvictionListener)
	AddChangeObserver(o domainSession.ChangeObserver)
	Shutdown()
}

type Config struct {
	DefaultTTL      time.Duration
	ClosedRetention time.Duration
	// EvictionSlack keeps a record in the backend past expiresAt so the sweep can
	// still see it and fire the auto-close side effects.
	EvictionSlack time.Duration
	// LockTTL bounds how long a task may hold the scope lease, and how long a
	// task waits for it.
	LockTTL time.Duration
	// IdleTimeout retires a partition whose mailbox stayed empty that long.
	IdleTimeout time.Duration
	MailboxSize int
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.ClosedRetention <= 0 {
		c.ClosedRetention = DefaultClosedRetention
	}
	if c.EvictionSlack <= 0 {
		c.EvictionSlack = DefaultEvictionSlack
	}
	if c.LockTTL <= 0 {
		c.LockTTL = DefaultLockTTL
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = defaultMailboxSize
	}
	return c
}

type Option func(*actor)

func WithClock(now func() time.Time) Option {
	return func(a *actor) {
		a.now = now
	}
}

type partition struct {
	mailbox chan func()
	exited  chan struct{}
	// refs counts submitters between lookup and enqueue; guarded by actor.mu.
	refs int
}

type actor struct {
	logger  *logrus.Logger
	backend kv.Backend
	cfg     Config
	now     func() time.Time

	mu         sync.Mutex
	partitions map[string]*partition
	stopped    chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	hooksMu   sync.RWMutex
	listeners []domainSession.EvictionListener
	observers []domainSession.ChangeObserver
}

func NewActor(logger *logrus.Logger, backend kv.Backend, cfg Config, opts ...Option) Actor {
	a := &actor{
		logger:     logger,
		backend:    backend,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
		partitions: make(map[string]*partition),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *actor) AddEvictionListener(l domainSession.EvictionListener) {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	a.listeners = append(a.listeners, l)
}

func (a *actor) AddChangeObserver(o domainSession.ChangeObserver) {
	a.hooksMu.Lock()
	defer a.hooksMu.Unlock()
	a.observers = append(a.observers, o)
}

// Shutdown stops accepting work and waits for every partition to drain.
func (a *actor) Shutdown() {
	a.stopOnce.Do(func() {
		a.mu.Lock()
		close(a.stopped)
		a.mu.Unlock()
		a.wg.Wait()
		a.logger.Info("session actor stopped")
	})
}

func (a *actor) partitionFor(scopeID string) (*partition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	select {
	case <-a.stopped:
		return nil, ErrActorStopped
	default:
	}
	if p, ok := a.partitions[scopeID]; ok {
		p.refs++
		return p, nil
	}
	p := &partition{
		mailbox: make(chan func(), a.cfg.MailboxSize),
		exited:  make(chan struct{}),
		refs:    1,
	}
	a.partitions[scopeID] = p
	a.wg.Add(1)
	go a.runPartition(scopeID, p)
	return p, nil
}

func (a *actor) releasePartition(p *partition) {
	a.mu.Lock()
	p.refs--
	a.mu.Unlock()
}

// retire drops an idle partition from the map. It fails while a submitter still
// holds a reference or a task is queued.
func (a *actor) retire(scopeID string, p *partition) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if p.refs > 0 || len(p.mailbox) > 0 {
		return false
	}
	if a.partitions[scopeID] == p {
		delete(a.partitions, scopeID)
	}
	return true
}

func (a *actor) runPartition(scopeID string, p *partition) {
	defer a.wg.Done()
	defer close(p.exited)
	a.logger.WithField("scope_id", scopeID).Debug("session partition started")
	idle := time.NewTimer(a.cfg.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case task := <-p.mailbox:
			task()
			idle.Reset(a.cfg.IdleTimeout)
		case <-idle.C:
			if a.retire(scopeID, p) {
				a.logger.WithField("scope_id", scopeID).Debug("session partition retired")
				return
			}
			idle.Reset(a.cfg.IdleTimeout)
		case <-a.stopped:
			// Run what was already accepted so no caller waits forever.
			for {
				select {
				case task := <-p.mailbox:
					task()
				default:
					return
				}
			}
		}
	}
}

// outcome is what a partition task hands back besides its value. Change events are
// delivered to observers before the partition moves on, evictions once the caller
// has its result.
type outcome struct {
	events  []domainSession.Event
	evicted []evicted
}

type evicted struct {
	session    *domainSession.Session
	autoClosed bool
}

type task[T any] func(ctx context.Context, out *outcome) (T, error)

// submit runs fn on the scope's partition and waits for it. A caller whose ctx ends
// first gets ctx.Err() and must not assume fn ran; a task still queued when its
// caller gave up is skipped.
func submit[T any](ctx context.Context, a *actor, scopeID string, fn task[T]) (T, error) {
	var zero T
	p, err := a.partitionFor(scopeID)
	if err != nil {
		return zero, err
	}

	type result struct {
		val T
		out outcome
		err error
	}
	done := make(chan result, 1)
	job := func() {
		if err := ctx.Err(); err != nil {
			done <- result{err: err}
			return
		}
		unlock, err := a.lockScope(ctx, scopeID)
		if err != nil {
			done <- result{err: err}
			return
		}
		var out outcome
		val, err := fn(ctx, &out)
		a.notifyObservers(ctx, out.events)
		unlock()
		done <- result{val: val, out: out, err: err}
	}

	var enqueueErr error
	select {
	case p.mailbox <- job:
	case <-ctx.Done():
		enqueueErr = ctx.Err()
	case <-a.stopped:
		enqueueErr = ErrActorStopped
	}
	a.releasePartition(p)
	if enqueueErr != nil {
		return zero, enqueueErr
	}

	select {
	case res := <-done:
		a.afterCommit(ctx, res.out)
		return res.val, res.err
	case <-p.exited:
		select {
		case res := <-done:
			a.afterCommit(ctx, res.out)
			return res.val, res.err
		default:
			return zero, ErrActorStopped
		}
	case <-ctx.Done():
		// The task may still commit; its hooks must fire regardless.
		go func() {
			select {
			case res := <-done:
				a.afterCommit(ctx, res.out)
			case <-p.exited:
				select {
				case res := <-done:
					a.afterCommit(ctx, res.out)
				default:
				}
			}
		}()
		return zero, ctx.Err()
	}
}

// lockScope takes the scope lease, waiting at most LockTTL for another holder.
// The returned func gives it back only if it is still ours.
func (a *actor) lockScope(ctx context.Context, scopeID string) (func(), error) {
	key := fmt.Sprintf(LockKeyPattern, scopeID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.LockTTL)
	defer cancel()
	err := retry.Do(
		func() error {
			ok, err := a.backend.SetNX(waitCtx, key, token, a.cfg.LockTTL)
			if err != nil {
				return err
			}
			if !ok {
				return errScopeBusy
			}
			return nil
		},
		retry.Context(waitCtx),
		retry.Attempts(0),
		retry.Delay(lockRetryDelay),
		retry.MaxJitter(lockRetryDelay),
		retry.DelayType(retry.CombineDelay(retry.FixedDelay, retry.RandomDelay)),
		retry.RetryIf(func(err error) bool { return errors.Is(err, errScopeBusy) }),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errScopeBusy) {
			return nil, domain.NewBackendError("lock scope "+scopeID, errScopeBusy)
		}
		return nil, err
	}

	return func() {
		released, err := a.backend.CompareAndDelete(context.WithoutCancel(ctx), key, token)
		if err != nil {
			a.logger.WithError(err).WithField("scope_id", scopeID).Warn("failed to release scope lease")
			return
		}
		if !released {
			a.logger.WithField("scope_id", scopeID).Warn("scope lease lapsed before the task finished")
		}
	}, nil
}

// notifyObservers runs on the partition with the lease held, so observers see the
// changes of one scope in commit order.
func (a *actor) notifyObservers(ctx context.Context, events []domainSession.Event) {
	if len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	a.hooksMu.RLock()
	observers := append([]domainSession.ChangeObserver{}, a.observers...)
	a.hooksMu.RUnlock()
	for _, ev := range events {
		for _, o := range observers {
			o.OnChange(ctx, ev)
		}
	}
}

func (a *actor) afterCommit(ctx context.Context, out outcome) {
	if len(out.evicted) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	a.hooksMu.RLock()
	listeners := append([]domainSession.EvictionListener{}, a.listeners...)
	a.hooksMu.RUnlock()

	for _, ev := range out.evicted {
		for _, l := range listeners {
			l.OnEvicted(ctx, ev.session.Clone(), ev.autoClosed)
		}
	}
}
