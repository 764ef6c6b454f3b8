package scheduler

import (
	"context"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/sirupsen/logrus"
)

const (
	ArchiveReasonAutoClosed = "auto_closed"
	ArchiveReasonRetention  = "retention_expired"
)

// evictionHandler runs the side effects of a session leaving the store, from the
// sweep or from a read that found it expired. The actor calls it once per removal.
type evictionHandler struct {
	logger       *logrus.Logger
	dispatcher   notification.Dispatcher
	archive      domainSession.ArchiveRepository
	sideChannels domainSideChannel.Store
	grace        time.Duration
	now          func() time.Time
}

func (h *evictionHandler) OnEvicted(ctx context.Context, s *domainSession.Session, autoClosed bool) {
	now := h.now()
	if autoClosed {
		h.dispatcher.Send(
			notification.Target{Type: notification.TargetOwner, ID: s.OwnerID},
			notification.Notification{
				Kind:      notification.KindAutoClosed,
				SessionID: s.ID,
				ScopeID:   s.ScopeID,
				Payload: map[string]interface{}{
					"title":       s.Title,
					"roster_size": len(s.Roster),
				},
				CreatedAt: now,
			},
		)
	}

	if h.archive != nil {
		reason := ArchiveReasonRetention
		if autoClosed {
			reason = ArchiveReasonAutoClosed
		}
		if err := h.archive.Save(ctx, s, reason); err != nil {
			h.logger.WithError(err).WithField("session_id", s.ID).Error("failed to archive session")
		}
	}

	binding, err := h.sideChannels.Get(ctx, s.ID)
	if err != nil {
		if !domain.IsNotFoundError(err) {
			h.logger.WithError(err).WithField("session_id", s.ID).Warn("failed to look up side channel")
		}
		return
	}
	dueAt := now.Add(h.grace)
	if err := h.sideChannels.ScheduleTeardown(ctx, domainSideChannel.Teardown{
		SessionID:  s.ID,
		ScopeID:    s.ScopeID,
		ResourceID: binding.ResourceID,
		DueAt:      dueAt,
	}); err != nil {
		h.logger.WithError(err).WithField("session_id", s.ID).Error("failed to schedule side channel teardown")
		return
	}
	h.dispatcher.Send(
		notification.Target{Type: notification.TargetSideChannel, ID: binding.ResourceID},
		notification.Notification{
			Kind:      notification.KindSideChannelExpiring,
			SessionID: s.ID,
			ScopeID:   s.ScopeID,
			Payload:   map[string]interface{}{"due_at": dueAt},
			CreatedAt: now,
		},
	)
}
