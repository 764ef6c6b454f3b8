package notify

import (
	"context"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
)

// Envelope is what every sink receives and what the webhook and kafka sinks serialize.
type Envelope struct {
	Target       notification.Target       `json:"target"`
	Notification notification.Notification `json:"notification"`
	SentAt       time.Time                 `json:"sent_at"`
}

//go:generate mockery --name=Sink --dir=. --output=./mocks --filename=sink_mock.go --case=underscore --with-expecter
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env Envelope) error
	Close()
}

// SinkConfig names a sink and carries its free-form settings from the config file.
type SinkConfig struct {
	Name     string                 `mapstructure:"name"`
	Settings map[string]interface{} `mapstructure:"settings"`
}
