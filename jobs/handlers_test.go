package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	reaped int64
	err    error
	calls  int
}

func (f *fakeSweeper) DeleteExpired(context.Context) (int64, error) {
	f.calls++
	return f.reaped, f.err
}

type fakePurger struct {
	retention time.Duration
	purged    int64
	err       error
}

func (f *fakePurger) PurgeTrashed(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return f.purged, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionsSweepHandler(t *testing.T) {
	sweeper := &fakeSweeper{reaped: 3}
	handler := NewSessionsSweepHandler(sweeper, discardLogger())

	require.NoError(t, handler(context.Background(), NewSessionsSweepTask()))
	require.Equal(t, 1, sweeper.calls)
}

func TestSessionsSweepHandlerPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	handler := NewSessionsSweepHandler(sweeper, discardLogger())

	require.Error(t, handler(context.Background(), NewSessionsSweepTask()))
}

func TestPostsPurgeHandlerUsesPayloadRetention(t *testing.T) {
	purger := &fakePurger{purged: 2}
	handler := NewPostsPurgeHandler(purger, 30*24*time.Hour, discardLogger())

	task, err := NewPostsPurgeTask(PostsPurgePayload{RetentionHours: 48})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 48*time.Hour, purger.retention)
}

func TestPostsPurgeHandlerDefaultsRetention(t *testing.T) {
	purger := &fakePurger{}
	handler := NewPostsPurgeHandler(purger, 30*24*time.Hour, discardLogger())

	require.NoError(t, handler(context.Background(), asynq.NewTask(TaskPostsPurge, nil)))
	require.Equal(t, 30*24*time.Hour, purger.retention)
}

func TestPostsPurgeHandlerSkipsBadPayload(t *testing.T) {
	purger := &fakePurger{}
	handler := NewPostsPurgeHandler(purger, time.Hour, discardLogger())

	err := handler(context.Background(), asynq.NewTask(TaskPostsPurge, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}
