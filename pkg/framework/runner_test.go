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

func TestRunnerCancelsOnExit(t *testing.T) {
	failure := errors.New("failed")
	r := NewRunner().Go(
		NamedRun("blocking", RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})),
		NamedRun("failing", RunFunc(func(ctx context.Context) error {
			return failure
		})),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- r.Wait() }()
	select {
	case err := <-errCh:
		require.Error(t, err)
		require.True(t, errors.Is(err, failure))
		require.Equal(t, "failed", err.Error())
	case <-time.After(time.Second):
		t.Fatal("wait timeout")
	}
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	for n := 0; n < 3; n++ {
		r.Go(RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))
	}
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())
	e1, e2 := errors.New("e1"), errors.New("e2")
	err := errs.Add(e1, nil, e2).Aggregate()
	require.Equal(t, "multiple errors:\n  e1\n  e2", err.Error())
	require.True(t, errors.Is(err, e2))
}

func TestRunWithContextCloser(t *testing.T) {
	c := &testCloser{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- RunWithContextCloser(ctx, c, func() error {
			<-c.closed
			return errors.New("closed")
		})
	}()
	cancel()
	require.Equal(t, context.Canceled, <-errCh)

	c = &testCloser{closed: make(chan struct{})}
	err := RunWithContextCloser(context.Background(), c, func() error { return nil })
	require.NoError(t, err)
	<-c.closed
}
