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
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBlackout_Contains(t *testing.T) {
	lima := -5
	at := func(hour int) time.Time {
		// hour is local to UTC-5
		return time.Date(2023, 2, 10, hour-lima, 30, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		blackout Blackout
		hour     int
		want     bool
	}{
		{"disabled", Blackout{StartHour: 1, EndHour: 6, UTCOffset: lima}, 3, false},
		{"inside", Blackout{Enabled: true, StartHour: 1, EndHour: 6, UTCOffset: lima}, 3, true},
		{"start inclusive", Blackout{Enabled: true, StartHour: 1, EndHour: 6, UTCOffset: lima}, 1, true},
		{"end exclusive", Blackout{Enabled: true, StartHour: 1, EndHour: 6, UTCOffset: lima}, 6, false},
		{"wrap late", Blackout{Enabled: true, StartHour: 22, EndHour: 6, UTCOffset: lima}, 23, true},
		{"wrap early", Blackout{Enabled: true, StartHour: 22, EndHour: 6, UTCOffset: lima}, 2, true},
		{"wrap outside", Blackout{Enabled: true, StartHour: 22, EndHour: 6, UTCOffset: lima}, 12, false},
		{"empty", Blackout{Enabled: true, StartHour: 4, EndHour: 4, UTCOffset: lima}, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.blackout.Contains(at(tt.hour)))
		})
	}
}

func TestScheduler_RunsImmediatelyAndPeriodically(t *testing.T) {
	var once, periodic atomic.Int32
	s := New([]Job{
		{Name: "venues", Run: func(context.Context) error { once.Add(1); return nil }},
		{Name: "boards", Interval: 10 * time.Millisecond, Run: func(context.Context) error { periodic.Add(1); return nil }},
	}, WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return periodic.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), once.Load(), "zero interval runs once")
}

func TestScheduler_BlackoutSkipsTicksNotStartup(t *testing.T) {
	var runs atomic.Int32
	s := New([]Job{
		{Name: "boards", Interval: 5 * time.Millisecond, Run: func(context.Context) error { runs.Add(1); return nil }},
	},
		WithLogger(testLogger()),
		WithBlackout(Blackout{Enabled: true, StartHour: 0, EndHour: 23, UTCOffset: 0}),
		WithClock(func() time.Time { return time.Date(2023, 2, 10, 3, 0, 0, 0, time.UTC) }),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Stats()[0].Skipped >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_DropsOverlappingTicks(t *testing.T) {
	var runs, concurrent, maxConcurrent atomic.Int32
	release := make(chan struct{})
	s := New([]Job{
		{Name: "boards", Interval: 5 * time.Millisecond, Run: func(ctx context.Context) error {
			n := concurrent.Add(1)
			defer concurrent.Add(-1)
			if n > maxConcurrent.Load() {
				maxConcurrent.Store(n)
			}
			runs.Add(1)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		}},
	}, WithLogger(testLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.Stats()[0].Dropped >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, s.Stats()[0].Running)
	close(release)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(1), maxConcurrent.Load())
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestScheduler_FailuresAreRecorded(t *testing.T) {
	s := New([]Job{
		{Name: "venues", Run: func(context.Context) error { return errors.New("upstream down") }},
	}, WithLogger(testLogger()))

	require.NoError(t, s.Run(context.Background()))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "venues", stats[0].Name)
	assert.Equal(t, int64(1), stats[0].Runs)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, "upstream down", stats[0].LastError)
	assert.False(t, stats[0].Running)
}
