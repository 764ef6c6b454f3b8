package notify

import (
	"fmt"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/httpx"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
)

// NewSinks builds one sink per config entry. An unknown name or bad settings
// fail the whole set so a typo never silently disables delivery.
func NewSinks(logger *logrus.Logger, configs []SinkConfig) ([]Sink, error) {
	sinks := make([]Sink, 0, len(configs))
	for _, cfg := range configs {
		sink, err := newSink(logger, cfg)
		if err != nil {
			for _, s := range sinks {
				s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	return sinks, nil
}

func newSink(logger *logrus.Logger, cfg SinkConfig) (Sink, error) {
	switch cfg.Name {
	case LogSinkName:
		return NewLogSink(logger), nil
	case WebhookSinkName:
		var conf WebhookConfig
		if err := mapstructure.Decode(cfg.Settings, &conf); err != nil {
			return nil, fmt.Errorf("invalid webhook config: %w", err)
		}
		if err := conf.Validate(); err != nil {
			return nil, err
		}
		client := httpx.NewFastHTTPClient(httpx.ClientConfig{
			Timeout:   conf.timeout(),
			UserAgent: "RecruitGate",
		})
		breaker := httpx.NewCircuitBreaker(logger, httpx.BreakerConfig{
			Name:        "webhook:" + conf.URL,
			Timeout:     conf.timeout() * 3,
			MaxFailures: conf.MaxFailures,
		})
		return NewWebhookSink(conf, client, breaker), nil
	case KafkaSinkName:
		var conf KafkaConfig
		if err := mapstructure.Decode(cfg.Settings, &conf); err != nil {
			return nil, fmt.Errorf("invalid kafka config: %w", err)
		}
		return NewKafkaSink(conf)
	default:
		return nil, fmt.Errorf("unknown notification sink: %s", cfg.Name)
	}
}
