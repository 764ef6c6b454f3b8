package subscriber

import (
	"context"

	infraCache "github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/sirupsen/logrus"
)

type DeleteSessionMirrorEventSubscriber struct {
	logger *logrus.Logger
	mirror infraCache.LocalMirrorCache
}

func NewDeleteSessionMirrorEventSubscriber(
	logger *logrus.Logger,
	mirror infraCache.LocalMirrorCache,
) infraCache.EventSubscriber[event.DeleteSessionMirrorEvent] {
	return &DeleteSessionMirrorEventSubscriber{
		logger: logger,
		mirror: mirror,
	}
}

func (s DeleteSessionMirrorEventSubscriber) OnEvent(_ context.Context, evt event.DeleteSessionMirrorEvent) error {
	s.logger.WithFields(logrus.Fields{
		"session_id": evt.SessionID,
		"origin_id":  evt.OriginID,
	}).Debug("invalidating local session mirror")

	s.mirror.Forget(evt.SessionID, evt.OriginID)
	return nil
}
