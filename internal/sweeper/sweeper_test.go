package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (m *mockExpirer) ExpireLapsed(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, now)
	return m.n, m.err
}

func (m *mockExpirer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(&mockExpirer{}, "every now and then")
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))

	tests := []struct {
		name string
		repo *mockExpirer
		want int64
	}{
		{"expires lapsed purchases", &mockExpirer{n: 3}, 3},
		{"nothing to expire", &mockExpirer{}, 0},
		{"repository error", &mockExpirer{err: errors.New("db down")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.repo, "@every 1h")
			require.NoError(t, err)
			s.now = func() time.Time { return fixed }

			assert.Equal(t, tt.want, s.Sweep(context.Background()))
			require.Len(t, tt.repo.calls, 1)
			assert.Equal(t, fixed.UTC(), tt.repo.calls[0])
		})
	}
}

func TestSweep_CancelledContext(t *testing.T) {
	repo := &mockExpirer{n: 1}
	s, err := New(repo, "@every 1h")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Zero(t, s.Sweep(ctx))
	assert.Zero(t, repo.callCount())
}

func TestStart_RunsOnScheduleAndStops(t *testing.T) {
	repo := &mockExpirer{}
	s, err := New(repo, "@every 1s")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return repo.callCount() > 0 }, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
