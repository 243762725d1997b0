// Package async runs spreadsheet imports on a bounded worker pool.
package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stockwatch/stockwatch/internal/ingest"
)

// Job is one file waiting to be imported.
type Job struct {
	Path        string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// PathImporter is the part of ingest.Importer the workers call.
type PathImporter interface {
	ImportPath(ctx context.Context, path string) (ingest.ImportResult, error)
}

type ImportQueue struct {
	importer PathImporter
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onDone   func(Job, ingest.ImportResult, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ImportQueue)

func WithWorkers(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ImportQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ImportQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithOnDone registers a callback run on the worker after each job.
func WithOnDone(fn func(Job, ingest.ImportResult, error)) Option {
	return func(q *ImportQueue) { q.onDone = fn }
}

func NewImportQueue(importer PathImporter, logger *slog.Logger, opts ...Option) *ImportQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ImportQueue{
		importer: importer,
		logger:   logger,
		workers:  2,
		timeout:  time.Minute,
		ch:       make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ImportQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for job := range q.ch {
					ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
					res, err := q.importer.ImportPath(ctx, job.Path)
					cancel()

					if err != nil {
						q.logger.Error("import failed", "worker_id", workerID, "trace_id", job.TraceID, "path", job.Path, "error", err)
					} else {
						q.logger.Info("imported file",
							"worker_id", workerID,
							"trace_id", job.TraceID,
							"path", job.Path,
							"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
							"file_group", res.FileGroup,
							"rows", res.RowsImported,
							"deduplicated", res.Deduplicated,
						)
					}
					if q.onDone != nil {
						q.onDone(job, res, err)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *ImportQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return nil
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}
	select {
	case q.ch <- job:
		q.logger.Info("queued file for import", "path", job.Path, "trace_id", job.TraceID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Feed enqueues every path from events until the channel closes or ctx is done.
func (q *ImportQueue) Feed(ctx context.Context, events <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			if err := q.Enqueue(ctx, Job{Path: p}); err != nil {
				return
			}
		}
	}
}

func (q *ImportQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
