package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu      sync.Mutex
	cutoffs []int64
	count   int
}

func (f *fakePurger) PurgeOlderThan(_ context.Context, cutoff int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, cutoff)
	return f.count, nil
}

func (f *fakePurger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestSessionSweeper_PurgesOnTick(t *testing.T) {
	purger := &fakePurger{count: 2}
	sweeper := NewSessionSweeper(purger, 10*time.Millisecond, time.Hour)

	done := make(chan struct{})
	go func() {
		sweeper.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return purger.calls() >= 2 }, time.Second, 5*time.Millisecond)
	sweeper.Stop()
	<-done

	// Cutoff must sit one threshold behind now.
	purger.mu.Lock()
	cutoff := purger.cutoffs[0]
	purger.mu.Unlock()
	want := time.Now().Add(-time.Hour).Unix()
	assert.InDelta(t, want, cutoff, 5)
}

func TestSessionSweeper_StopsOnContextCancel(t *testing.T) {
	purger := &fakePurger{}
	sweeper := NewSessionSweeper(purger, time.Minute, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop on context cancel")
	}
}
