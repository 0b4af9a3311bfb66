package detector

import (
	"context"
	"sync"
	"time"

	"watchtower/internal/config"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of one submitted detection run.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
)

// Job is the inspectable record of one detection run.
type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Summary    Summary   `json:"summary"`
}

// Runner executes detection jobs off the request path and keeps their
// results for later inspection. Submit is fire-and-forget from the caller's
// perspective; the detection itself stays synchronous and schedule-agnostic.
// The detector is rebuilt for every run, so threshold, window, and prefix
// changes apply to the next run without a restart.
type Runner struct {
	newDetector func() *Detector

	mu   sync.RWMutex
	jobs map[string]Job
}

func NewRunner(newDetector func() *Detector) *Runner {
	return &Runner{
		newDetector: newDetector,
		jobs:        make(map[string]Job),
	}
}

// Submit starts a detection run in its own goroutine and returns the handle
// used to fetch the result later.
func (r *Runner) Submit() string {
	id := uuid.NewString()

	r.mu.Lock()
	r.jobs[id] = Job{
		ID:        id,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	r.mu.Unlock()

	go func() {
		summary := r.newDetector().DetectSuspiciousIPs(context.Background(), time.Now())

		r.mu.Lock()
		job := r.jobs[id]
		job.Status = JobDone
		job.FinishedAt = time.Now()
		job.Summary = summary
		r.jobs[id] = job
		r.mu.Unlock()
	}()

	return id
}

// Job returns a copy of the job record for the given handle.
func (r *Runner) Job(id string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	return job, ok
}

// StartDetectionRoutine submits a run on every tick of the configured
// detection interval, following interval changes live. A zero interval
// disables scheduled runs until the config changes. Blocks until the context
// is cancelled.
func (r *Runner) StartDetectionRoutine(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	updates := config.DetectionIntervalUpdates()

	var (
		ticker *time.Ticker
		tickC  <-chan time.Time
	)
	apply := func(interval time.Duration) {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
		if interval > 0 {
			ticker = time.NewTicker(interval)
			tickC = ticker.C
			log.Debug("Detection schedule applied", "interval", interval.String())
		} else {
			log.Debug("Scheduled detection disabled")
		}
	}
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	apply(<-updates)

	for {
		select {
		case <-ctx.Done():
			return
		case interval := <-updates:
			apply(interval)
		case <-tickC:
			id := r.Submit()
			log.Debug("Scheduled detection run submitted", "job", id)
		}
	}
}
