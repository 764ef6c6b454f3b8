package notify_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/NeuralTrust/RecruitGate/pkg/domain/notification"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSinks_Webhook(t *testing.T) {
	var (
		body      []byte
		signature string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body) //nolint:errcheck
		signature = r.Header.Get(notify.SignatureHeader)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sinks, err := notify.NewSinks(quietLogger(), []notify.SinkConfig{
		{Name: "log"},
		{Name: "webhook", Settings: map[string]interface{}{
			"url":    srv.URL,
			"secret": "s3cret",
		}},
	})
	require.NoError(t, err)
	require.Len(t, sinks, 2)
	assert.Equal(t, "webhook", sinks[1].Name())

	env := notify.Envelope{Target: owner, Notification: joined("s1")}
	require.NoError(t, sinks[0].Deliver(context.Background(), env))
	require.NoError(t, sinks[1].Deliver(context.Background(), env))

	var got notify.Envelope
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, notification.KindParticipantJoined, got.Notification.Kind)

	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestWebhookSink_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sinks, err := notify.NewSinks(quietLogger(), []notify.SinkConfig{
		{Name: "webhook", Settings: map[string]interface{}{"url": srv.URL, "max_failures": 2}},
	})
	require.NoError(t, err)

	env := notify.Envelope{Target: owner, Notification: joined("s1")}
	for i := 0; i < 4; i++ {
		assert.Error(t, sinks[0].Deliver(context.Background(), env))
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestNewSinks_RejectsBadConfig(t *testing.T) {
	_, err := notify.NewSinks(quietLogger(), []notify.SinkConfig{{Name: "carrier-pigeon"}})
	assert.ErrorContains(t, err, "unknown notification sink")

	_, err = notify.NewSinks(quietLogger(), []notify.SinkConfig{{Name: "webhook"}})
	assert.ErrorContains(t, err, "url is required")

	_, err = notify.NewSinks(quietLogger(), []notify.SinkConfig{
		{Name: "kafka", Settings: map[string]interface{}{"host": "localhost", "port": "9092"}},
	})
	assert.ErrorContains(t, err, "topic is required")
}
