package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/commission-engine/pkg/logger"
)

type blockingRunner struct {
	started atomic.Bool
	err     error
}

func (b *blockingRunner) Run(ctx context.Context) error {
	b.started.Store(true)
	if b.err != nil {
		return b.err
	}
	<-ctx.Done()
	return ctx.Err()
}

type fakeRefresher struct {
	interval atomic.Int64
}

func (f *fakeRefresher) Run(ctx context.Context, interval time.Duration) error {
	f.interval.Store(int64(interval))
	<-ctx.Done()
	return nil
}

func newTestService(t *testing.T, consumer runner, deps ...dependency) (*Service, *fakeRefresher) {
	t.Helper()
	refresher := &fakeRefresher{}
	svc, err := NewService(ServiceParams{
		Logger:       logger.Nop(),
		Dependencies: deps,
		Consumer:     consumer,
		Rates:        refresher,
		RateInterval: time.Minute,
	})
	require.NoError(t, err)
	return svc, refresher
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)

	_, err = NewService(ServiceParams{Logger: logger.Nop(), Consumer: &blockingRunner{}, Rates: &fakeRefresher{}})
	require.Error(t, err, "zero interval must be rejected")
}

func TestRunStopsOnCancel(t *testing.T) {
	consumer := &blockingRunner{}
	svc, refresher := newTestService(t, consumer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return consumer.started.Load() && refresher.interval.Load() > 0 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop after cancel")
	}
	assert.Equal(t, int64(time.Minute), refresher.interval.Load())
}

func TestRunReturnsConsumerFailure(t *testing.T) {
	boom := errors.New("subscription deleted")
	svc, _ := newTestService(t, &blockingRunner{err: boom})

	err := svc.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunFailsWhenDependencyDown(t *testing.T) {
	consumer := &blockingRunner{}
	svc, _ := newTestService(t, consumer, dependency{
		name: "redis",
		ping: func(context.Context) error { return errors.New("refused") },
	})

	err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
	assert.False(t, consumer.started.Load())
}
