package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoll_ChecksImmediately(t *testing.T) {
	calls := 0
	err := poll(context.Background(), time.Hour, time.Hour, func(context.Context) (bool, error) {
		calls++
		return true, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPoll_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := poll(context.Background(), time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPoll_Timeout(t *testing.T) {
	err := poll(context.Background(), time.Millisecond, 20*time.Millisecond, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "timed out after 20ms")
}

func TestPoll_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := poll(ctx, time.Millisecond, time.Second, func(context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}

func TestTimingProfiles(t *testing.T) {
	prod := ProductionTiming()
	assert.Equal(t, 5*time.Minute, prod.OAuthTimeout)
	assert.Equal(t, 2*time.Second, prod.OAuthPollInterval)
	assert.Equal(t, 10*time.Minute, prod.ExportTimeout)
	assert.Equal(t, 3*time.Second, prod.ExportPollInterval)

	test, ok := TimingProfile("test")
	assert.True(t, ok)
	assert.Less(t, test.ExportTimeout, time.Second)

	_, ok = TimingProfile("fast")
	assert.False(t, ok)
}
