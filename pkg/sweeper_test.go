package expmap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSweeperReclaimsExpiredEntries(t *testing.T) {
	m := newTestMap(t, 4)
	for i := 0; i < 20; i++ {
		h := m.hasher.Hash(i)
		idx := m.shardIndex(h)
		m.shards[idx].Add(h, record{p1: i}, 0, 0) // already expired at any t>0
	}
	m.size.Store(20)

	s := NewSweeper(m, time.Millisecond, 4)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 0, m.Size())
	require.Equal(t, int64(20), s.TotalEvicted())
}

func TestSweeperStopsOnCancel(t *testing.T) {
	m := newTestMap(t, 4)
	s := NewSweeper(m, time.Millisecond, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
