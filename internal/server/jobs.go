package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobState is the lifecycle state of a background corpus load.
type JobState string

const (
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job tracks one background load.
type Job struct {
	ID         string     `json:"id"`
	Corpus     string     `json:"corpus"`
	State      JobState   `json:"state"`
	Progress   float64    `json:"progress"`
	Message    string     `json:"message,omitempty"`
	Error      string     `json:"error,omitempty"`
	Papers     int        `json:"papers,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// DefaultJobRetention is how many finished jobs stay available for polling.
const DefaultJobRetention = 100

// Jobs is an in-memory job registry. Running jobs are always kept; only the most recent
// finished jobs are.
type Jobs struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	finished []string
	retain   int
}

// NewJobs returns an empty registry that keeps the last retain finished jobs
// (DefaultJobRetention if retain <= 0).
func NewJobs(retain int) *Jobs {
	if retain <= 0 {
		retain = DefaultJobRetention
	}
	return &Jobs{jobs: make(map[string]*Job), retain: retain}
}

// Create registers a running job for corpus.
func (j *Jobs) Create(corpus string) Job {
	job := &Job{ID: uuid.NewString(), Corpus: corpus, State: JobRunning, StartedAt: time.Now().UTC()}
	j.mu.Lock()
	j.jobs[job.ID] = job
	j.mu.Unlock()
	return *job
}

// Progress records build progress.
func (j *Jobs) Progress(id string, fraction float64, message string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if job, ok := j.jobs[id]; ok {
		job.Progress, job.Message = fraction, message
	}
}

// Finish marks the job done, or failed when err is non-nil.
func (j *Jobs) Finish(id string, papers int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	job, ok := j.jobs[id]
	if !ok || job.FinishedAt != nil {
		return
	}
	now := time.Now().UTC()
	job.FinishedAt = &now
	if err != nil {
		job.State, job.Error = JobFailed, err.Error()
	} else {
		job.State, job.Progress, job.Papers = JobDone, 1, papers
	}

	j.finished = append(j.finished, id)
	if over := len(j.finished) - j.retain; over > 0 {
		for _, old := range j.finished[:over] {
			delete(j.jobs, old)
		}
		j.finished = append(j.finished[:0], j.finished[over:]...)
	}
}

// Get returns a snapshot of the job.
func (j *Jobs) Get(id string) (Job, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}
