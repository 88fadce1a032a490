package framework

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testCloser struct {
	closed chan struct{}
}

func (c *testCloser) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}
	return nil
}

func TestRunnerWaitAggregates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunnerWith(ctx)
	r.Go(
		NamedRun("fails", RunFunc(func(context.Context) error { return errors.New("boom") })),
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)
	cancel()
	err := r.Wait()
	require.Error(t, err)
	require.Equal(t, "boom", err.Error())
}

func TestRunWithContextCloser(t *testing.T) {
	closer := &testCloser{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunWithContextCloser(ctx, closer, func() error {
			<-closer.closed
			return errors.New("closed")
		})
	}()
	cancel()
	select {
	case err := <-done:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("not stopped")
	}

	closer = &testCloser{closed: make(chan struct{})}
	err := RunWithContextCloser(context.Background(), closer, func() error { return nil })
	require.NoError(t, err)
	select {
	case <-closer.closed:
	default:
		t.Fatal("closer not called on exit")
	}
}
