// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/ik5/audstream/logger"
	"golang.org/x/sync/errgroup"
)

// DefaultQueueDepth is the number of jobs a worker can hold.
const DefaultQueueDepth = 16

// JobKind tags what a worker job does.
type JobKind int

const (
	JobOpen JobKind = iota
	JobClose
	JobRefill
	JobShutdown
)

func (k JobKind) String() string {
	switch k {
	case JobOpen:
		return "open"
	case JobClose:
		return "close"
	case JobRefill:
		return "refill"
	case JobShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Job is one unit of blocking work. Source is nil for JobShutdown.
type Job struct {
	Kind   JobKind
	Source *FileSource
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithQueueDepth sets the job queue depth.
func WithQueueDepth(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.depth = n
		}
	}
}

// WithWorkerLogger sets the logger.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// Worker runs file I/O for streaming sources on one goroutine locked to its
// OS thread, so the audio callback never has to block on storage.
//
// Jobs run in FIFO order. The goroutine starts with the first Acquire or
// Push and stops on Close.
type Worker struct {
	depth int
	jobs  chan Job
	log   *slog.Logger

	group     errgroup.Group
	processed atomic.Uint64

	mtx     *sync.Mutex
	refs    int
	started bool
	closed  bool
}

func NewWorker(opts ...WorkerOption) *Worker {
	w := &Worker{
		depth: DefaultQueueDepth,
		mtx:   &sync.Mutex{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.log == nil {
		w.log = logger.WithComponent("stream.worker")
	}
	w.jobs = make(chan Job, w.depth)

	return w
}

// startLocked must be called with mtx held.
func (w *Worker) startLocked() {
	if w.started {
		return
	}
	w.started = true
	w.group.Go(w.run)
	w.log.Debug("worker started", "depth", w.depth)
}

// Acquire registers a streaming source with the worker, starting it if
// needed.
func (w *Worker) Acquire() error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}
	w.refs++
	w.startLocked()

	return nil
}

// Release drops a reference taken by Acquire.
func (w *Worker) Release() {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.refs > 0 {
		w.refs--
	}
}

// Refs is the number of sources holding the worker.
func (w *Worker) Refs() int {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	return w.refs
}

// Processed is the number of jobs the worker has finished.
func (w *Worker) Processed() uint64 { return w.processed.Load() }

// Push queues a job without blocking.
func (w *Worker) Push(j Job) error {
	w.mtx.Lock()
	defer w.mtx.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}
	w.startLocked()

	select {
	case w.jobs <- j:
		return nil
	default:
		w.log.Warn("job queue full", "job", j.Kind.String())
		return fmt.Errorf("%s job: %w", j.Kind, ErrQueueFull)
	}
}

// Close queues a shutdown behind any pending jobs and waits for the
// goroutine to exit. Later pushes fail with ErrWorkerClosed.
func (w *Worker) Close() error {
	w.mtx.Lock()
	if w.closed {
		w.mtx.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	refs := w.refs
	w.mtx.Unlock()

	if !started {
		return nil
	}
	if refs > 0 {
		w.log.Warn("closing worker with live sources", "refs", refs)
	}

	// Jobs pushed before closed was set are already queued ahead of this.
	w.jobs <- Job{Kind: JobShutdown}

	if err := w.group.Wait(); err != nil {
		return fmt.Errorf("%w", err)
	}
	w.log.Debug("worker stopped", "processed", w.processed.Load())

	return nil
}

func (w *Worker) run() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for job := range w.jobs {
		switch job.Kind {
		case JobShutdown:
			return nil
		case JobOpen:
			job.Source.handleOpen()
		case JobClose:
			job.Source.handleClose()
		case JobRefill:
			job.Source.handleRefill()
		default:
			w.log.Error("unknown job", "kind", int(job.Kind))
		}
		w.processed.Add(1)
	}

	return nil
}
