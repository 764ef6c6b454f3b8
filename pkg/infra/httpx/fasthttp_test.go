package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastHTTPClient_PostJSON(t *testing.T) {
	var gotBody, gotType, gotSig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body) //nolint:errcheck
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotSig = r.Header.Get("X-Signature")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client := NewFastHTTPClient(ClientConfig{Timeout: time.Second})
	status, err := client.PostJSON(context.Background(), srv.URL, map[string]string{"X-Signature": "abc"}, []byte(`{"kind":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, `{"kind":"x"}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "abc", gotSig)
}

func TestFastHTTPClient_CancelledContext(t *testing.T) {
	client := NewFastHTTPClient(ClientConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.PostJSON(ctx, "http://127.0.0.1:1", nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
