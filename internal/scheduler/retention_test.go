package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestValidateSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 3 * * *", false},
		{"*/5 * * * *", false},
		{"@daily", false},
		{"@every 1h", false},
		{"", true},
		{"not a schedule", true},
		{"0 0 3 * * *", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateSchedule(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRetentionScheduler_RunsOnSchedule(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int32
	s := NewRetentionScheduler("@every 1s", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, discard)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRun())

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)

	cancel()
	s.Wait()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun())
}

func TestRetentionScheduler_StartIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := NewRetentionScheduler("0 3 * * *", func(context.Context) error { return nil }, discard)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))

	cancel()
	s.Wait()
	s.Stop()
}

func TestRetentionScheduler_InvalidSchedule(t *testing.T) {
	s := NewRetentionScheduler("every day", func(context.Context) error { return nil }, discard)

	err := s.Start(context.Background())
	assert.Error(t, err)
	assert.False(t, s.IsRunning())
}

func TestRetentionScheduler_RunNow(t *testing.T) {
	var got context.Context
	s := NewRetentionScheduler("0 3 * * *", func(ctx context.Context) error {
		got = ctx
		return errors.New("store offline")
	}, discard)

	s.RunNow()

	require.NotNil(t, got)
	_, hasDeadline := got.Deadline()
	assert.True(t, hasDeadline)
}
