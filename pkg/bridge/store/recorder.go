package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Recorder dispatches Store writes to a bounded worker pool so a slow or
// down database never stalls a session's media pumps. When the queue is
// full the write is dropped and logged; call state is never affected.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	timeout time.Duration

	jobs chan job
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

func NewRecorder(s Store, logger *slog.Logger, workers, queueSize int, timeout time.Duration) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Recorder{
		store:   s,
		logger:  logger,
		timeout: timeout,
		jobs:    make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := j.run(ctx); err != nil {
			r.logger.Error("persistence write failed", "op", j.name, "error", err)
		}
		cancel()
	}
}

func (r *Recorder) enqueue(name string, run func(ctx context.Context) error) {
	select {
	case r.jobs <- job{name: name, run: run}:
	default:
		r.logger.Warn("persistence queue full, dropping write", "op", name)
	}
}

func (r *Recorder) CreateInteraction(externalID, tenantDomain string, agentID int64, callerIdentifier string) {
	r.enqueue("create_interaction", func(ctx context.Context) error {
		return r.store.CreateInteraction(ctx, externalID, tenantDomain, agentID, callerIdentifier)
	})
}

func (r *Recorder) EndInteraction(externalID, outcome string) {
	r.enqueue("end_interaction", func(ctx context.Context) error {
		return r.store.EndInteraction(ctx, externalID, outcome)
	})
}

func (r *Recorder) InsertMessage(externalID, role, text string) {
	r.enqueue("insert_message", func(ctx context.Context) error {
		return r.store.InsertMessage(ctx, externalID, role, text)
	})
}

// Close stops accepting writes and waits for in-flight ones to finish.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.jobs)
	})
	r.wg.Wait()
}
