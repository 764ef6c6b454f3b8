package session

import (
	"context"
	"time"

	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	infraCache "github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/sirupsen/logrus"
)

// NewMirrorObserver writes every committed change through to the mirror. The actor
// calls it in commit order per scope, so a later roster is never overwritten by an
// earlier one. Deletes and evictions invalidate every process.
func NewMirrorObserver(mirror infraCache.LocalMirrorCache, now func() time.Time) domainSession.ChangeObserver {
	if now == nil {
		now = time.Now
	}
	return domainSession.ChangeObserverFunc(func(ctx context.Context, ev domainSession.Event) {
		s := ev.Snapshot
		if s == nil {
			return
		}
		switch ev.Type {
		case domainSession.EventDeleted, domainSession.EventEvicted:
			mirror.Delete(ctx, s.ID)
			if s.OriginID != "" {
				mirror.DeleteRoster(ctx, s.OriginID)
			}
		default:
			remaining := s.Remaining(now())
			mirror.Set(ctx, s.ID, s, remaining)
			if s.OriginID != "" {
				mirror.SetRoster(ctx, s.OriginID, s.Roster, remaining)
			}
		}
	})
}

// NewFeedObserver publishes every change on the event bus for the live feed.
func NewFeedObserver(logger *logrus.Logger, publisher infraCache.EventPublisher) domainSession.ChangeObserver {
	return domainSession.ChangeObserverFunc(func(ctx context.Context, ev domainSession.Event) {
		err := publisher.Publish(ctx, channel.RecruitEventsChannel, event.SessionChangedEvent{
			Change:  ev.Type,
			ScopeID: ev.ScopeID,
			Session: ev.Snapshot,
		})
		if err != nil {
			logger.WithError(err).WithField("session_id", ev.SessionID).Warn("failed to publish session change")
		}
	})
}
