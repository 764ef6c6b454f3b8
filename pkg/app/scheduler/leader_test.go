package scheduler_test

import (
	"context"
	"testing"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/app/scheduler"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/kv"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaderElector_SingleLeaderAndHandover(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}
	backend := kv.NewMemoryBackendWithClock(c.Now)
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	ctx := context.Background()

	a := scheduler.NewLeaderElector(logger, backend, "recruitgate", 30*time.Second)
	b := scheduler.NewLeaderElector(logger, backend, "recruitgate", 30*time.Second)
	require.NotEqual(t, a.InstanceID(), b.InstanceID())

	assert.True(t, a.Campaign(ctx))
	assert.False(t, b.Campaign(ctx))
	assert.True(t, a.IsLeader())
	assert.False(t, b.IsLeader())

	// Renewal pushes the lease out again.
	c.Advance(20 * time.Second)
	assert.True(t, a.Campaign(ctx))
	c.Advance(20 * time.Second)
	assert.False(t, b.Campaign(ctx))

	a.Resign(ctx)
	assert.False(t, a.IsLeader())
	assert.True(t, b.Campaign(ctx))
}

func TestLeaderElector_LeaseLapses(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)}
	backend := kv.NewMemoryBackendWithClock(c.Now)
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	ctx := context.Background()

	a := scheduler.NewLeaderElector(logger, backend, "recruitgate", 30*time.Second)
	b := scheduler.NewLeaderElector(logger, backend, "recruitgate", 30*time.Second)
	require.True(t, a.Campaign(ctx))

	c.Advance(31 * time.Second)
	assert.True(t, b.Campaign(ctx))
	assert.False(t, a.Campaign(ctx))
	assert.False(t, a.IsLeader())
}
