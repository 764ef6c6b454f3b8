package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

const LogSinkName = "log"

type logSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) Sink {
	return &logSink{logger: logger}
}

func (s *logSink) Name() string {
	return LogSinkName
}

func (s *logSink) Deliver(_ context.Context, env Envelope) error {
	s.logger.WithFields(logrus.Fields{
		"kind":       env.Notification.Kind,
		"target":     env.Target.String(),
		"session_id": env.Notification.SessionID,
		"scope_id":   env.Notification.ScopeID,
		"payload":    env.Notification.Payload,
	}).Info("notification")
	return nil
}

func (s *logSink) Close() {}
