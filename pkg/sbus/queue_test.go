package sbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueDropsWhenFull(t *testing.T) {
	q := NewQueue(nil, 2)
	for n := 0; n < 5; n++ {
		q.HandleValue(context.Background(), Value{Channels: channels(uint16(n))})
	}
	require.Equal(t, 2, q.Len())
	require.Equal(t, uint64(3), q.Dropped())
}

func TestQueueRun(t *testing.T) {
	valueCh := make(chan Value, 4)
	q := NewQueue(HandleValueFunc(func(ctx context.Context, v Value) {
		valueCh <- v
	}), 4)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	for n := 0; n < 3; n++ {
		q.HandleValue(ctx, Value{Channels: channels(uint16(n))})
	}
	for n := 0; n < 3; n++ {
		select {
		case v := <-valueCh:
			require.Equal(t, uint16(n), v.Channels[0])
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expect value timeout")
		}
	}
	cancel()
	require.Equal(t, context.Canceled, <-errCh)
}
