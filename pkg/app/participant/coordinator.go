package participant

import (
	"context"
	"errors"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/cooldown"
	appSession "github.com/NeuralTrust/RecruitGate/pkg/app/session"
	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	domainSession "github.com/NeuralTrust/RecruitGate/pkg/domain/session"
	domainSideChannel "github.com/NeuralTrust/RecruitGate/pkg/domain/sidechannel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

const DefaultTeardownGrace = 5 * time.Minute

// Coordinator applies the participant rules on top of the actor. The actor call
// decides the outcome; the notifications and side channel work that follow can
// never turn a success into a failure. The mirror follows through the actor's
// change observers.
//
//go:generate mockery --name=Coordinator --dir=. --output=./mocks --filename=coordinator_mock.go --case=underscore --with-expecter
type Coordinator interface {
	CreateSession(ctx context.Context, s *domainSession.Session) (*domainSession.Session, error)
	Join(ctx context.Context, sessionID, participantID string) (*domainSession.Session, error)
	Leave(ctx context.Context, sessionID, participantID string) (*domainSession.Session, error)
	Close(ctx context.Context, sessionID string, requester domainSession.Requester) (*domainSession.Session, error)
	Delete(ctx context.Context, sessionID string, requester domainSession.Requester) error
}

type Config struct {
	TeardownGrace time.Duration
}

type coordinator struct {
	logger       *logrus.Logger
	actor        appSession.Actor
	gate         cooldown.Gate
	dispatcher   notification.Dispatcher
	sideChannels domainSideChannel.Store
	grace        time.Duration
	now          func() time.Time
}

func NewCoordinator(
	logger *logrus.Logger,
	actor appSession.Actor,
	gate cooldown.Gate,
	dispatcher notification.Dispatcher,
	sideChannels domainSideChannel.Store,
	cfg Config,
	now func() time.Time,
) Coordinator {
	if cfg.TeardownGrace <= 0 {
		cfg.TeardownGrace = DefaultTeardownGrace
	}
	if now == nil {
		now = time.Now
	}
	return &coordinator{
		logger:       logger,
		actor:        actor,
		gate:         gate,
		dispatcher:   dispatcher,
		sideChannels: sideChannels,
		grace:        cfg.TeardownGrace,
		now:          now,
	}
}

func (c *coordinator) CreateSession(ctx context.Context, in *domainSession.Session) (*domainSession.Session, error) {
	if in == nil {
		return nil, domain.NewValidationError("session", "is required")
	}
	if in.ScopeID == "" {
		return nil, domain.NewValidationError("scope_id", "is required")
	}
	token, err := c.gate.Claim(ctx, in.ScopeID)
	if err != nil {
		return nil, err
	}
	id, err := c.actor.Create(ctx, in)
	if err != nil {
		// A rejected create must not cost the scope its next attempt.
		if releaseErr := c.gate.Release(context.WithoutCancel(ctx), in.ScopeID, token); releaseErr != nil {
			c.logger.WithError(releaseErr).WithField("scope_id", in.ScopeID).Warn("failed to release cooldown")
		}
		return nil, err
	}
	return c.actor.Get(ctx, id)
}

func (c *coordinator) Join(ctx context.Context, sessionID, participantID string) (*domainSession.Session, error) {
	s, joined, err := c.actor.Join(ctx, sessionID, participantID)
	if err != nil {
		prometheus.ParticipantOps.WithLabelValues("join", outcomeOf(err)).Inc()
		return nil, err
	}
	if !joined {
		prometheus.ParticipantOps.WithLabelValues("join", "already_member").Inc()
		return nil, domain.ErrAlreadyMember
	}
	prometheus.ParticipantOps.WithLabelValues("join", "ok").Inc()

	c.notifyOwner(s, notification.KindParticipantJoined, participantID)
	return s, nil
}

func (c *coordinator) Leave(ctx context.Context, sessionID, participantID string) (*domainSession.Session, error) {
	s, removed, err := c.actor.Leave(ctx, sessionID, participantID)
	if err != nil {
		prometheus.ParticipantOps.WithLabelValues("leave", outcomeOf(err)).Inc()
		return nil, err
	}
	if !removed {
		prometheus.ParticipantOps.WithLabelValues("leave", "not_member").Inc()
		return nil, domain.ErrNotMember
	}
	prometheus.ParticipantOps.WithLabelValues("leave", "ok").Inc()

	c.notifyOwner(s, notification.KindParticipantLeft, participantID)
	return s, nil
}

// Close ends the session and starts the side channel teardown grace period.
func (c *coordinator) Close(
	ctx context.Context,
	sessionID string,
	requester domainSession.Requester,
) (*domainSession.Session, error) {
	s, err := c.actor.Close(ctx, sessionID, requester)
	if err != nil {
		return nil, err
	}
	c.scheduleTeardown(ctx, s)
	return s, nil
}

// Delete removes the session and its side channel right away; there is no grace
// period for a session that no longer exists.
func (c *coordinator) Delete(ctx context.Context, sessionID string, requester domainSession.Requester) error {
	scopeID := ""
	if s, err := c.actor.Get(ctx, sessionID); err == nil {
		scopeID = s.ScopeID
	}
	if err := c.actor.Delete(ctx, sessionID, requester); err != nil {
		return err
	}
	c.removeSideChannel(context.WithoutCancel(ctx), sessionID, scopeID)
	return nil
}

func (c *coordinator) notifyOwner(s *domainSession.Session, kind notification.Kind, participantID string) {
	c.dispatcher.Send(
		notification.Target{Type: notification.TargetOwner, ID: s.OwnerID},
		notification.Notification{
			Kind:      kind,
			SessionID: s.ID,
			ScopeID:   s.ScopeID,
			Payload: map[string]interface{}{
				"participant_id": participantID,
				"roster_size":    len(s.Roster),
				"capacity":       s.Capacity,
				"title":          s.Title,
			},
			CreatedAt: c.now(),
		},
	)
}

func (c *coordinator) scheduleTeardown(ctx context.Context, s *domainSession.Session) {
	binding, err := c.sideChannels.Get(ctx, s.ID)
	if err != nil {
		if !domain.IsNotFoundError(err) {
			c.logger.WithError(err).WithField("session_id", s.ID).Warn("failed to look up side channel")
		}
		return
	}
	dueAt := c.now().Add(c.grace)
	err = c.sideChannels.ScheduleTeardown(ctx, domainSideChannel.Teardown{
		SessionID:  s.ID,
		ScopeID:    s.ScopeID,
		ResourceID: binding.ResourceID,
		DueAt:      dueAt,
	})
	if err != nil {
		c.logger.WithError(err).WithField("session_id", s.ID).Error("failed to schedule side channel teardown")
		return
	}
	c.dispatcher.Send(
		notification.Target{Type: notification.TargetSideChannel, ID: binding.ResourceID},
		notification.Notification{
			Kind:      notification.KindSideChannelExpiring,
			SessionID: s.ID,
			ScopeID:   s.ScopeID,
			Payload:   map[string]interface{}{"due_at": dueAt},
			CreatedAt: c.now(),
		},
	)
}

func (c *coordinator) removeSideChannel(ctx context.Context, sessionID, scopeID string) {
	binding, err := c.sideChannels.Get(ctx, sessionID)
	if err != nil {
		if !domain.IsNotFoundError(err) {
			c.logger.WithError(err).WithField("session_id", sessionID).Warn("failed to look up side channel")
		}
		return
	}
	if err := c.sideChannels.CompleteTeardown(ctx, sessionID); err != nil {
		c.logger.WithError(err).WithField("session_id", sessionID).Error("failed to remove side channel")
		return
	}
	c.dispatcher.Send(
		notification.Target{Type: notification.TargetSideChannel, ID: binding.ResourceID},
		notification.Notification{
			Kind:      notification.KindSideChannelRemoved,
			SessionID: sessionID,
			ScopeID:   scopeID,
			Payload:   map[string]interface{}{"resource_id": binding.ResourceID},
			CreatedAt: c.now(),
		},
	)
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrFull):
		return "full"
	case errors.Is(err, domain.ErrClosed):
		return "closed"
	case errors.Is(err, domain.ErrOwnerCannotLeave):
		return "owner"
	case domain.IsNotFoundError(err):
		return "not_found"
	case domain.IsValidationError(err):
		return "invalid"
	default:
		return "error"
	}
}
