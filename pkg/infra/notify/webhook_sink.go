package notify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/httpx"
)

const (
	WebhookSinkName = "webhook"
	SignatureHeader = "X-RecruitGate-Signature"
)

type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"`
	Headers map[string]string `mapstructure:"headers"`
	// TimeoutSeconds bounds the HTTP call itself; the dispatcher deadline may be shorter.
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxFailures    uint32 `mapstructure:"max_failures"`
}

func (c WebhookConfig) Validate() error {
	if c.URL == "" {
		return errors.New("webhook url is required")
	}
	return nil
}

type webhookSink struct {
	cfg     WebhookConfig
	client  httpx.Client
	breaker httpx.CircuitBreaker
}

func NewWebhookSink(cfg WebhookConfig, client httpx.Client, breaker httpx.CircuitBreaker) Sink {
	return &webhookSink{
		cfg:     cfg,
		client:  client,
		breaker: breaker,
	}
}

func (s *webhookSink) Name() string {
	return WebhookSinkName
}

func (s *webhookSink) Deliver(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	headers := make(map[string]string, len(s.cfg.Headers)+1)
	for k, v := range s.cfg.Headers {
		headers[k] = v
	}
	if s.cfg.Secret != "" {
		mac := hmac.New(sha256.New, []byte(s.cfg.Secret))
		mac.Write(body)
		headers[SignatureHeader] = "sha256=" + hex.EncodeToString(mac.Sum(nil))
	}
	return s.breaker.Execute(func() error {
		status, err := s.client.PostJSON(ctx, s.cfg.URL, headers, body)
		if err != nil {
			return err
		}
		if status < 200 || status >= 300 {
			return fmt.Errorf("webhook responded with status %d", status)
		}
		return nil
	})
}

func (s *webhookSink) Close() {}

func (c WebhookConfig) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return httpx.DefaultTimeout
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
