package postgres

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LogAppender is the write side of CombatLogRepository.
type LogAppender interface {
	Append(ctx context.Context, records []CombatLogRecord) (int64, error)
}

// SnapshotSaver is the write side of SnapshotRepository.
type SnapshotSaver interface {
	SaveAll(ctx context.Context, snaps []Snapshot) error
}

// Job is one tick's worth of writes.
type Job struct {
	Tick      uint64
	Logs      []CombatLogRecord
	Snapshots []Snapshot
}

// Completion reports the outcome of one Job back to the simulation.
type Completion struct {
	Tick      uint64
	Logs      int64
	Snapshots int
	Err       error
}

// flushTimeout bounds the final drain after the writer is cancelled.
const flushTimeout = 5 * time.Second

// AsyncWriter performs database writes on its own goroutine. The
// simulation submits jobs without blocking and collects completions on a
// later tick.
type AsyncWriter struct {
	logs   LogAppender
	snaps  SnapshotSaver
	jobs   chan Job
	done   chan Completion
	logger *zap.Logger
}

// NewAsyncWriter creates a writer with room for buffer pending jobs.
//
// Precondition: logs and logger must be non-nil; snaps may be nil, in which
// case snapshots are discarded; buffer must be > 0.
func NewAsyncWriter(logs LogAppender, snaps SnapshotSaver, buffer int, logger *zap.Logger) *AsyncWriter {
	if logs == nil || logger == nil {
		panic("postgres.NewAsyncWriter: logs and logger must be non-nil")
	}
	if buffer <= 0 {
		panic("postgres.NewAsyncWriter: buffer must be > 0")
	}
	return &AsyncWriter{
		logs:   logs,
		snaps:  snaps,
		jobs:   make(chan Job, buffer),
		done:   make(chan Completion, buffer),
		logger: logger,
	}
}

// Submit queues job without blocking. Reports false when the queue is full
// and the job was dropped.
func (w *AsyncWriter) Submit(job Job) bool {
	if len(job.Logs) == 0 && len(job.Snapshots) == 0 {
		return true
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.logger.Warn("persistence queue full, dropping job",
			zap.Uint64("tick", job.Tick),
			zap.Int("logs", len(job.Logs)),
			zap.Int("snapshots", len(job.Snapshots)),
		)
		return false
	}
}

// Completions drains every completion reported so far without blocking.
func (w *AsyncWriter) Completions() []Completion {
	var out []Completion
	for {
		select {
		case c := <-w.done:
			out = append(out, c)
		default:
			return out
		}
	}
}

// Run writes jobs until ctx is done, then flushes whatever is still queued.
//
// Postcondition: returns ctx.Err().
func (w *AsyncWriter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case job := <-w.jobs:
			w.write(ctx, job)
		}
	}
}

func (w *AsyncWriter) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case job := <-w.jobs:
			w.write(ctx, job)
		default:
			return
		}
	}
}

func (w *AsyncWriter) write(ctx context.Context, job Job) {
	c := Completion{Tick: job.Tick}
	n, err := w.logs.Append(ctx, job.Logs)
	c.Logs = n
	if err == nil && w.snaps != nil && len(job.Snapshots) > 0 {
		err = w.snaps.SaveAll(ctx, job.Snapshots)
		if err == nil {
			c.Snapshots = len(job.Snapshots)
		}
	}
	c.Err = err
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.Error("persistence write failed", zap.Uint64("tick", job.Tick), zap.Error(err))
	}
	select {
	case w.done <- c:
	default:
		w.logger.Warn("completion queue full, dropping completion", zap.Uint64("tick", job.Tick))
	}
}
