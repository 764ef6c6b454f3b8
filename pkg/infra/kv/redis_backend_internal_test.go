package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/domain"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisBackend_CompareAndDelete(t *testing.T) {
	redisClient, mock := redismock.NewClientMock()
	backend := NewRedisBackendFromClient(redisClient, time.Second)
	ctx := context.Background()
	sha := compareAndDeleteScript.Hash()

	mock.ExpectEvalSha(sha, []string{"recruit_lock:g1"}, "token-a").SetVal(int64(1))
	ok, err := backend.CompareAndDelete(ctx, "recruit_lock:g1", "token-a")
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectEvalSha(sha, []string{"recruit_lock:g1"}, "token-b").SetVal(int64(0))
	ok, err = backend.CompareAndDelete(ctx, "recruit_lock:g1", "token-b")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectEvalSha(sha, []string{"recruit_lock:g1"}, "token-c").SetErr(errors.New("connection reset"))
	_, err = backend.CompareAndDelete(ctx, "recruit_lock:g1", "token-c")
	assert.True(t, domain.IsBackendUnavailable(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
