package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLogs struct {
	mu      sync.Mutex
	written []CombatLogRecord
	err     error
}

func (f *fakeLogs) Append(_ context.Context, records []CombatLogRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, records...)
	return int64(len(records)), nil
}

type fakeSnaps struct {
	mu    sync.Mutex
	saved []Snapshot
}

func (f *fakeSnaps) SaveAll(_ context.Context, snaps []Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, snaps...)
	return nil
}

func waitCompletions(t *testing.T, w *AsyncWriter, n int) []Completion {
	t.Helper()
	var got []Completion
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		got = append(got, w.Completions()...)
		select {
		case <-deadline:
			t.Fatalf("got %d completions, want %d", len(got), n)
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	return got
}

func TestAsyncWriter_WritesAndReportsCompletion(t *testing.T) {
	logs, snaps := &fakeLogs{}, &fakeSnaps{}
	w := NewAsyncWriter(logs, snaps, 4, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.True(t, w.Submit(Job{
		Tick:      3,
		Logs:      []CombatLogRecord{{Kind: "damaged", SourceName: "Alice", TargetName: "Bob", Damage: 4}},
		Snapshots: []Snapshot{{Name: "Alice", RoomID: "pit", Health: 40}},
	}))

	got := waitCompletions(t, w, 1)
	assert.Equal(t, Completion{Tick: 3, Logs: 1, Snapshots: 1}, got[0])
	assert.Len(t, logs.written, 1)
	assert.Len(t, snaps.saved, 1)
}

func TestAsyncWriter_ErrorReported(t *testing.T) {
	boom := errors.New("boom")
	core, observed := observer.New(zap.ErrorLevel)
	w := NewAsyncWriter(&fakeLogs{err: boom}, nil, 2, zap.New(core))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	require.True(t, w.Submit(Job{Tick: 1, Logs: []CombatLogRecord{{Kind: "used"}}}))
	got := waitCompletions(t, w, 1)
	assert.ErrorIs(t, got[0].Err, boom)
	assert.Equal(t, 1, observed.FilterMessage("persistence write failed").Len())
}

func TestAsyncWriter_SubmitDropsWhenFull(t *testing.T) {
	w := NewAsyncWriter(&fakeLogs{}, nil, 1, zap.NewNop())
	job := Job{Tick: 1, Logs: []CombatLogRecord{{Kind: "used"}}}
	assert.True(t, w.Submit(job))
	assert.False(t, w.Submit(job))
	assert.True(t, w.Submit(Job{Tick: 2}), "empty jobs are never queued")
}

func TestAsyncWriter_FlushesOnCancel(t *testing.T) {
	logs := &fakeLogs{}
	w := NewAsyncWriter(logs, nil, 4, zap.NewNop())
	for i := uint64(1); i <= 3; i++ {
		require.True(t, w.Submit(Job{Tick: i, Logs: []CombatLogRecord{{Kind: "used"}}}))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
	assert.Len(t, logs.written, 3)
	assert.Len(t, w.Completions(), 3)
}

func TestNewAsyncWriter_Preconditions(t *testing.T) {
	assert.Panics(t, func() { NewAsyncWriter(nil, nil, 1, zap.NewNop()) })
	assert.Panics(t, func() { NewAsyncWriter(&fakeLogs{}, nil, 0, zap.NewNop()) })
}
