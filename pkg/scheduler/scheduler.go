package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tapestry-analytics/tapestry/pkg/logger"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Processing strategies reported in a submission receipt. Payloads above
// immediateMaxBytes are worked through in fixed-size slices.
const (
	StrategyImmediate = "immediate"
	StrategyChunked   = "chunked"

	immediateMaxBytes = 10 << 20
	chunkSizeBytes    = 5 << 20
)

// DefaultRetention is how long completed, failed, and cancelled job
// snapshots stay queryable before they are pruned.
const DefaultRetention = 30 * time.Minute

// ErrJobNotFound is returned when a job id is unknown or already pruned.
var ErrJobNotFound = errors.New("job not found")

// ErrJobNotCancellable is returned when cancelling a job that has already
// started; running jobs finish and their result is discarded by the caller.
var ErrJobNotCancellable = errors.New("job is no longer queued and cannot be cancelled")

// ValidationError reports bad job parameters. It is raised synchronously at
// submission time; invalid jobs are never enqueued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Handler executes a job's work. The error it returns becomes the job's
// terminal failed status.
type Handler func(ctx context.Context, job Job) error

// EventHook observes job status transitions. Hooks run outside the
// scheduler lock and must not block for long. Events are delivered in
// transition order: a job's queued event always arrives before its
// processing and terminal events.
type EventHook func(job Job)

// Config bounds how much work the scheduler admits at once.
type Config struct {
	MaxConcurrentJobs    int
	MemoryThresholdBytes int64
	Retention            time.Duration
}

// SubmitParams describes a job submission. Priority and Type are validated
// strings so transport layers can pass user input through directly.
type SubmitParams struct {
	DocumentID   string
	Type         string
	Priority     string
	PayloadBytes int64
}

// Receipt is returned immediately from Submit, before the job runs.
type Receipt struct {
	JobID             string        `json:"job_id"`
	Strategy          string        `json:"strategy"`
	ChunkSizeBytes    int64         `json:"chunk_size_bytes,omitempty"`
	EstimatedDuration time.Duration `json:"estimated_duration_ms"`
	Warnings          []string      `json:"warnings,omitempty"`
}

// Metrics is an aggregate snapshot of queue state.
type Metrics struct {
	TotalJobs            int           `json:"total_jobs"`
	ActiveJobs           int           `json:"active_jobs"`
	QueueDepth           int           `json:"queue_depth"`
	EstimatedMemoryBytes int64         `json:"estimated_memory_bytes"`
	AvgProcessingTime    time.Duration `json:"avg_processing_time_ms"`
}

type queueItem struct {
	job *Job
	seq uint64
}

// jobQueue orders by priority rank, then arrival within a tier.
type jobQueue []*queueItem

func (q jobQueue) Len() int { return len(q) }
func (q jobQueue) Less(i, j int) bool {
	ri, rj := q[i].job.Priority.Rank(), q[j].job.Priority.Rank()
	if ri != rj {
		return ri > rj
	}
	return q[i].seq < q[j].seq
}
func (q jobQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *jobQueue) Push(x any)   { *q = append(*q, x.(*queueItem)) }
func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Scheduler is a priority-ordered in-process job queue with serialized,
// concurrency- and memory-aware admission. All admission decisions happen
// under one mutex so the memory counter is never raced.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	handlers map[JobType]Handler
	hook     EventHook

	queue  jobQueue
	jobs   map[string]*Job
	nowFn  func() time.Time
	seq    uint64
	queued int
	active int
	memory int64

	totalJobs       int
	finishedJobs    int
	totalProcessing time.Duration
	shuttingDown    bool
	running         sync.WaitGroup

	// pending holds hook events in transition order until flushEvents
	// drains them; deliverMu serializes delivery so order is preserved
	// across concurrent transitions.
	pending   []Job
	deliverMu sync.Mutex
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithEventHook registers a hook invoked on every job status transition.
func WithEventHook(hook EventHook) Option {
	return func(s *Scheduler) {
		s.hook = hook
	}
}

// New creates a Scheduler. MaxConcurrentJobs and MemoryThresholdBytes must
// be positive; Retention falls back to DefaultRetention.
func New(cfg Config, opts ...Option) *Scheduler {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 1
	}
	if cfg.MemoryThresholdBytes <= 0 {
		cfg.MemoryThresholdBytes = 512 << 20
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	s := &Scheduler{
		cfg:      cfg,
		handlers: make(map[JobType]Handler),
		jobs:     make(map[string]*Job),
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandler binds a handler to a job type. Jobs of a type with no
// handler fail at start rather than at submission, so handlers can be
// registered after construction but must exist before jobs run.
func (s *Scheduler) RegisterHandler(jobType JobType, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[jobType] = handler
}

// Submit validates the job, assigns an id, enqueues it, and returns a
// receipt immediately without waiting for execution. A job whose estimate
// alone exceeds the memory threshold is rejected here; it could never be
// admitted under the configured threshold.
func (s *Scheduler) Submit(params SubmitParams) (*Receipt, error) {
	priority, err := ParsePriority(params.Priority)
	if err != nil {
		return nil, err
	}
	jobType, err := ParseJobType(params.Type)
	if err != nil {
		return nil, err
	}
	if params.DocumentID == "" {
		return nil, &ValidationError{Field: "document_id", Reason: "must not be empty"}
	}
	if params.PayloadBytes <= 0 {
		return nil, &ValidationError{Field: "payload_bytes", Reason: "must be positive"}
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	receipt := &Receipt{
		JobID:             id,
		Strategy:          StrategyImmediate,
		EstimatedDuration: estimateDuration(jobType, params.PayloadBytes),
	}
	if params.PayloadBytes > immediateMaxBytes {
		receipt.Strategy = StrategyChunked
		receipt.ChunkSizeBytes = chunkSizeBytes
		receipt.Warnings = append(receipt.Warnings, fmt.Sprintf(
			"payload of %d bytes exceeds the immediate limit; chunked processing in %d byte chunks will take longer",
			params.PayloadBytes, int64(chunkSizeBytes),
		))
	}

	s.mu.Lock()
	if params.PayloadBytes > s.cfg.MemoryThresholdBytes {
		s.mu.Unlock()
		return nil, &ValidationError{
			Field: "payload_bytes",
			Reason: fmt.Sprintf("estimate of %d bytes exceeds the memory threshold of %d bytes and could never be admitted",
				params.PayloadBytes, s.cfg.MemoryThresholdBytes),
		}
	}
	if s.shuttingDown {
		s.mu.Unlock()
		return nil, errors.New("scheduler is shutting down")
	}

	job := &Job{
		ID:                id,
		DocumentID:        params.DocumentID,
		Type:              jobType,
		Priority:          priority,
		EstimateBytes:     params.PayloadBytes,
		Status:            StatusQueued,
		SubmittedAt:       s.nowFn(),
		EstimatedDuration: receipt.EstimatedDuration,
	}

	s.pruneLocked()
	s.jobs[id] = job
	s.seq++
	heap.Push(&s.queue, &queueItem{job: job, seq: s.seq})
	s.queued++
	s.totalJobs++
	s.queueEventLocked(*job)
	s.admitLocked()
	s.mu.Unlock()

	s.flushEvents()
	logger.Debug("[Scheduler] job submitted", "job", id, "type", jobType, "priority", priority, "strategy", receipt.Strategy)
	return receipt, nil
}

// Status returns a snapshot of the job, or ErrJobNotFound once it has been
// pruned or was never submitted.
func (s *Scheduler) Status(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// Cancel stops a job that has not started yet. Running jobs cannot be
// cancelled; they finish and the caller discards the result.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return ErrJobNotFound
	}
	if job.Status != StatusQueued {
		s.mu.Unlock()
		return ErrJobNotCancellable
	}

	// the heap entry is skipped lazily at admission time
	job.Status = StatusCancelled
	job.FinishedAt = s.nowFn()
	s.queued--
	s.queueEventLocked(*job)
	s.mu.Unlock()

	s.flushEvents()
	logger.Info("[Scheduler] job cancelled", "job", id)
	return nil
}

// Metrics reports aggregate queue state.
func (s *Scheduler) Metrics() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	m := Metrics{
		TotalJobs:            s.totalJobs,
		ActiveJobs:           s.active,
		QueueDepth:           s.queued,
		EstimatedMemoryBytes: s.memory,
	}
	if s.finishedJobs > 0 {
		m.AvgProcessingTime = s.totalProcessing / time.Duration(s.finishedJobs)
	}
	return m
}

// UpdateConfig swaps the admission limits and immediately re-evaluates the
// queue under the new configuration.
func (s *Scheduler) UpdateConfig(cfg Config) {
	s.mu.Lock()
	if cfg.MaxConcurrentJobs > 0 {
		s.cfg.MaxConcurrentJobs = cfg.MaxConcurrentJobs
	}
	if cfg.MemoryThresholdBytes > 0 {
		s.cfg.MemoryThresholdBytes = cfg.MemoryThresholdBytes
	}
	if cfg.Retention > 0 {
		s.cfg.Retention = cfg.Retention
	}
	s.admitLocked()
	s.mu.Unlock()

	s.flushEvents()
}

// Shutdown stops admitting new work and waits for running jobs to finish,
// or for the context to expire.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// admitLocked moves queued jobs to processing while both the concurrency
// and the memory budget allow it. It is the single admission path; callers
// must hold the lock and call flushEvents after unlocking.
func (s *Scheduler) admitLocked() {
	for s.queue.Len() > 0 {
		top := s.queue[0].job
		if top.Status == StatusCancelled {
			heap.Pop(&s.queue)
			continue
		}
		if s.shuttingDown {
			break
		}
		if s.active >= s.cfg.MaxConcurrentJobs {
			break
		}
		if s.memory+top.EstimateBytes > s.cfg.MemoryThresholdBytes {
			break
		}

		heap.Pop(&s.queue)
		top.Status = StatusProcessing
		top.StartedAt = s.nowFn()
		s.queued--
		s.active++
		s.memory += top.EstimateBytes
		s.running.Add(1)
		s.queueEventLocked(*top)

		go s.run(top.ID, *top)
	}
}

func (s *Scheduler) run(id string, snapshot Job) {
	defer s.running.Done()

	s.mu.Lock()
	handler := s.handlers[snapshot.Type]
	s.mu.Unlock()

	var err error
	if handler == nil {
		err = fmt.Errorf("no handler registered for job type %q", snapshot.Type)
	} else {
		err = handler(context.Background(), snapshot)
	}

	s.mu.Lock()
	job, ok := s.jobs[id]
	if ok {
		job.FinishedAt = s.nowFn()
		if err != nil {
			job.Status = StatusFailed
			job.Error = err.Error()
			job.Hint = "the job can be resubmitted once the underlying issue is resolved"
		} else {
			job.Status = StatusCompleted
		}
		s.finishedJobs++
		s.totalProcessing += job.FinishedAt.Sub(job.StartedAt)
	}
	s.active--
	s.memory -= snapshot.EstimateBytes
	if ok {
		s.queueEventLocked(*job)
	}
	s.admitLocked()
	s.mu.Unlock()

	s.flushEvents()
	if err != nil {
		logger.Error("[Scheduler] job failed", "job", id, "err", err)
	} else {
		logger.Debug("[Scheduler] job completed", "job", id)
	}
}

// pruneLocked drops finished job snapshots past the retention window.
func (s *Scheduler) pruneLocked() {
	cutoff := s.nowFn().Add(-s.cfg.Retention)
	for id, job := range s.jobs {
		switch job.Status {
		case StatusCompleted, StatusFailed, StatusCancelled:
			if job.FinishedAt.Before(cutoff) {
				delete(s.jobs, id)
			}
		}
	}
}

// queueEventLocked records a status transition for hook delivery. Callers
// must hold s.mu; appends under the lock fix the delivery order.
func (s *Scheduler) queueEventLocked(event Job) {
	if s.hook == nil {
		return
	}
	s.pending = append(s.pending, event)
}

// flushEvents drains pending events outside s.mu. deliverMu serializes
// drains, so hooks see every job's transitions in the order they happened
// even when submissions and completions race.
func (s *Scheduler) flushEvents() {
	if s.hook == nil {
		return
	}
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	for {
		s.mu.Lock()
		events := s.pending
		s.pending = nil
		s.mu.Unlock()
		if len(events) == 0 {
			return
		}
		for _, event := range events {
			s.hook(event)
		}
	}
}
