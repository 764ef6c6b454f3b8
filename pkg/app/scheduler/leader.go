package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	LeaderKeyPattern = "leader:%s"
	DefaultLeaderTTL = 30 * time.Second
)

// LeaderElector holds a lease key with a TTL. Whoever set the key runs the jobs;
// the lease is renewed every TTL/3 and lapses on its own if the holder dies.
type LeaderElector struct {
	logger     *logrus.Logger
	backend    kv.Backend
	key        string
	instanceID string
	ttl        time.Duration
	leader     atomic.Bool
}

func NewLeaderElector(logger *logrus.Logger, backend kv.Backend, name string, ttl time.Duration) *LeaderElector {
	if ttl <= 0 {
		ttl = DefaultLeaderTTL
	}
	return &LeaderElector{
		logger:     logger,
		backend:    backend,
		key:        fmt.Sprintf(LeaderKeyPattern, name),
		instanceID: uuid.NewString(),
		ttl:        ttl,
	}
}

func (e *LeaderElector) InstanceID() string {
	return e.instanceID
}

func (e *LeaderElector) IsLeader() bool {
	return e.leader.Load()
}

// Campaign acquires or renews the lease once and reports whether this instance leads.
func (e *LeaderElector) Campaign(ctx context.Context) bool {
	ok, err := e.backend.SetNX(ctx, e.key, e.instanceID, e.ttl)
	if err != nil {
		e.lose(err)
		return false
	}
	if ok {
		e.win()
		return true
	}
	holder, err := e.backend.Get(ctx, e.key)
	if err != nil {
		if kv.IsNil(err) {
			// Lapsed between the two calls; the next round will take it.
			e.lose(nil)
			return false
		}
		e.lose(err)
		return false
	}
	if holder != e.instanceID {
		e.lose(nil)
		return false
	}
	if _, err := e.backend.Expire(ctx, e.key, e.ttl); err != nil {
		e.lose(err)
		return false
	}
	e.win()
	return true
}

// Run campaigns until ctx ends, then gives the lease up if it holds it.
func (e *LeaderElector) Run(ctx context.Context) {
	ticker := time.NewTicker(e.ttl / 3)
	defer ticker.Stop()
	e.Campaign(ctx)
	for {
		select {
		case <-ticker.C:
			e.Campaign(ctx)
		case <-ctx.Done():
			e.Resign(context.WithoutCancel(ctx))
			return
		}
	}
}

func (e *LeaderElector) Resign(ctx context.Context) {
	if !e.leader.Swap(false) {
		return
	}
	if _, err := e.backend.CompareAndDelete(ctx, e.key, e.instanceID); err != nil {
		e.logger.WithError(err).Warn("failed to release scheduler lease")
	}
}

func (e *LeaderElector) win() {
	if !e.leader.Swap(true) {
		e.logger.WithField("instance_id", e.instanceID).Info("acquired scheduler leadership")
	}
}

func (e *LeaderElector) lose(err error) {
	if err != nil {
		e.logger.WithError(err).Warn("scheduler leader election failed")
	}
	if e.leader.Swap(false) {
		e.logger.WithField("instance_id", e.instanceID).Info("lost scheduler leadership")
	}
}
