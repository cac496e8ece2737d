package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []int
	done := make(chan struct{})
	for i := range 5 {
		l.Dispatch(func() { got = append(got, i) })
	}
	// Dispatch from inside a completion must not deadlock.
	l.Dispatch(func() {
		l.Dispatch(func() { close(done) })
	})

	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not drain")
	}
	cancel()
	require.ErrorIs(t, <-errc, context.Canceled)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}
