package queue

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"creatorsync/internal/errs"
)

const (
	defaultConcurrency  = 3
	defaultPollInterval = 500 * time.Millisecond
	defaultMaxAttempts  = 3
)

// Options tunes a Queue. Zero values fall back to defaults.
type Options struct {
	Name         string // log prefix and Stats identity, e.g. "discovery"
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	Sink         EventSink
}

// Queue is an in-memory, priority-ordered, retrying job queue with bounded
// worker concurrency. A process can hold several independent queues; there
// is no package-level state.
type Queue struct {
	name         string
	concurrency  int
	pollInterval time.Duration
	maxAttempts  int
	sink         EventSink
	now          func() time.Time

	mu         sync.Mutex
	jobs       map[string]*Job
	processing map[string]struct{}
	handlers   map[string]Handler
	running    bool
	stopCh     chan struct{}
	wg         sync.WaitGroup

	completed     int
	failed        int
	totalDuration time.Duration
}

// New builds a stopped queue; call Register for each job type, then Start.
func New(opts Options) *Queue {
	if opts.Name == "" {
		opts.Name = "queue"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Sink == nil {
		opts.Sink = NopSink{}
	}
	return &Queue{
		name:         opts.Name,
		concurrency:  opts.Concurrency,
		pollInterval: opts.PollInterval,
		maxAttempts:  opts.MaxAttempts,
		sink:         opts.Sink,
		now:          time.Now,
		jobs:         make(map[string]*Job),
		processing:   make(map[string]struct{}),
		handlers:     make(map[string]Handler),
	}
}

// Register installs the handler for a job type. Adding a job of an
// unregistered type is rejected at Add time.
func (q *Queue) Register(jobType string, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

// AddOption customises a single job at enqueue time.
type AddOption func(*Job)

// WithScheduledFor delays the job until t.
func WithScheduledFor(t time.Time) AddOption {
	return func(j *Job) { j.ScheduledFor = &t }
}

// WithMaxAttempts overrides the queue-wide retry budget for one job.
func WithMaxAttempts(n int) AddOption {
	return func(j *Job) {
		if n > 0 {
			j.MaxAttempts = n
		}
	}
}

// Add enqueues a job and returns its id.
func (q *Queue) Add(jobType string, payload map[string]any, priority Priority, opts ...AddOption) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.handlers[jobType]; !ok {
		return "", fmt.Errorf("no handler registered for job type %q", jobType)
	}

	now := q.now()
	job := &Job{
		ID:          uuid.New().String(),
		Type:        jobType,
		Priority:    priority,
		Status:      StatusPending,
		Payload:     payload,
		MaxAttempts: q.maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(job)
	}

	q.jobs[job.ID] = job
	q.sink.Publish(context.Background(), JobEvent{
		Name: EventAdded, JobID: job.ID, JobType: job.Type, At: now,
	})
	return job.ID, nil
}

// Start launches the polling loop. In-flight jobs are bound by the
// concurrency cap; the only suspension point inside a job is external I/O.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopCh = make(chan struct{})
	stopCh := q.stopCh
	q.mu.Unlock()

	log.Printf("[%s] queue started (concurrency=%d poll=%s)", q.name, q.concurrency, q.pollInterval)

	go func() {
		ticker := time.NewTicker(q.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				q.dispatch(ctx)
			}
		}
	}()
}

// Stop halts polling and waits for in-flight jobs to run to completion.
// Cancellation is cooperative only; there is no hard per-job timeout here.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()

	q.wg.Wait()
	log.Printf("[%s] queue stopped", q.name)
}

// dispatch claims up to concurrency−inFlight eligible jobs, ordered by
// priority ascending then creation time ascending, and runs each on its own
// goroutine. The processing set guarantees a job id is never picked twice
// while in flight.
func (q *Queue) dispatch(ctx context.Context) {
	q.mu.Lock()

	slots := q.concurrency - len(q.processing)
	if slots <= 0 {
		q.mu.Unlock()
		return
	}

	now := q.now()
	var eligible []*Job
	for _, job := range q.jobs {
		if _, inFlight := q.processing[job.ID]; inFlight {
			continue
		}
		if job.Status != StatusPending && job.Status != StatusRetrying {
			continue
		}
		if job.ScheduledFor != nil && job.ScheduledFor.After(now) {
			continue
		}
		eligible = append(eligible, job)
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Priority != eligible[j].Priority {
			return eligible[i].Priority < eligible[j].Priority
		}
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].ID < eligible[j].ID
	})

	if len(eligible) > slots {
		eligible = eligible[:slots]
	}

	for _, job := range eligible {
		// Attempts and UpdatedAt are stamped before execution so a crash
		// mid-flight is still accounted against the retry budget.
		job.Status = StatusProcessing
		job.Attempts++
		job.UpdatedAt = now
		job.ScheduledFor = nil
		q.processing[job.ID] = struct{}{}
		q.wg.Add(1)
		go q.execute(ctx, job.ID)
	}
	q.mu.Unlock()
}

// execute runs one claimed job and applies the completion / retry / failure
// transition.
func (q *Queue) execute(ctx context.Context, jobID string) {
	defer q.wg.Done()

	q.mu.Lock()
	job := q.jobs[jobID]
	handler := q.handlers[job.Type]
	attempt := job.Attempts
	jobType := job.Type
	q.mu.Unlock()

	q.sink.Publish(ctx, JobEvent{
		Name: EventExecute, JobID: jobID, JobType: jobType, Attempt: attempt, At: q.now(),
	})

	started := q.now()
	result, err := handler.Handle(ctx, job)
	elapsed := q.now().Sub(started)

	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.processing, jobID)
	job.UpdatedAt = q.now()

	if err == nil {
		job.Status = StatusCompleted
		job.Result = result
		job.Error = ""
		q.completed++
		q.totalDuration += elapsed
		q.sink.Publish(ctx, JobEvent{
			Name: EventCompleted, JobID: jobID, JobType: jobType, Attempt: attempt, At: job.UpdatedAt,
		})
		return
	}

	job.Error = err.Error()

	// Validation failures cannot succeed on retry; everything else gets the
	// backoff policy until the attempt budget is spent.
	if !errs.IsValidation(err) && job.Attempts < job.MaxAttempts {
		job.Status = StatusRetrying
		retryAt := q.now().Add(backoffDelay(job.Attempts))
		job.ScheduledFor = &retryAt
		log.Printf("[%s] job %s (%s) attempt %d/%d failed, retrying at %s: %v",
			q.name, jobID, jobType, job.Attempts, job.MaxAttempts, retryAt.Format(time.RFC3339), err)
		q.sink.Publish(ctx, JobEvent{
			Name: EventRetry, JobID: jobID, JobType: jobType, Attempt: attempt, Error: job.Error, At: job.UpdatedAt,
		})
		return
	}

	job.Status = StatusFailed
	q.failed++
	log.Printf("[%s] job %s (%s) failed terminally after %d attempt(s): %v",
		q.name, jobID, jobType, job.Attempts, err)
	q.sink.Publish(ctx, JobEvent{
		Name: EventFailed, JobID: jobID, JobType: jobType, Attempt: attempt, Error: job.Error, At: job.UpdatedAt,
	})
}

// backoffDelay returns the exponential retry delay after the given attempt
// count: 2^attempts seconds (attempt 1 → 2s, attempt 2 → 4s).
func backoffDelay(attempts int) time.Duration {
	return time.Duration(1<<uint(attempts)) * time.Second
}

// Get returns a copy of the job, or false if the id is unknown.
func (q *Queue) Get(jobID string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// ClearCompleted purges COMPLETED jobs only. FAILED jobs are kept for
// diagnostics and stay queryable with their error message.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := 0
	for id, job := range q.jobs {
		if job.Status == StatusCompleted {
			delete(q.jobs, id)
			removed++
		}
	}
	return removed
}

// Stats returns a point-in-time snapshot for the reporting surface.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{}
	for _, job := range q.jobs {
		switch job.Status {
		case StatusPending:
			s.Pending++
		case StatusProcessing:
			s.Processing++
		case StatusRetrying:
			s.Retrying++
		case StatusCompleted:
			s.Completed++
		case StatusFailed:
			s.Failed++
		}
	}
	finished := q.completed + q.failed
	if finished > 0 {
		s.SuccessRate = float64(q.completed) / float64(finished)
	}
	if q.completed > 0 {
		s.AvgProcessingMs = float64(q.totalDuration.Milliseconds()) / float64(q.completed)
	}
	return s
}
