package service

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a background job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job kinds.
const (
	JobTypeAnalysis   = "analysis"
	JobTypeFocusGroup = "focus_group"
)

// Job tracks one background analysis run.
type Job struct {
	ID          string
	Type        string
	Status      JobStatus
	URL         string
	Personas    []string
	Progress    int // pages analyzed (analysis) or persona runs finished (focus group)
	Total       int
	Result      any // *report.AnalysisReport or *report.FocusGroupReport
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// JobSnapshot is an immutable copy of a job's state, safe to serialize
// while the job keeps running.
type JobSnapshot struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      JobStatus  `json:"status"`
	URL         string     `json:"url"`
	Personas    []string   `json:"personas"`
	Progress    int        `json:"progress"`
	Total       int        `json:"total"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot returns a copy of the job's current state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return JobSnapshot{
		ID:          j.ID,
		Type:        j.Type,
		Status:      j.Status,
		URL:         j.URL,
		Personas:    slices.Clone(j.Personas),
		Progress:    j.Progress,
		Total:       j.Total,
		Result:      j.Result,
		Error:       j.Error,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

// Done reports whether the job reached a terminal state.
func (j *Job) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// JobManager tracks background jobs in memory.
type JobManager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobManager creates an empty job manager.
func NewJobManager() *JobManager {
	return &JobManager{jobs: make(map[string]*Job)}
}

// Create registers a new pending job.
func (m *JobManager) Create(jobType, url string, personas []string, total int) *Job {
	job := &Job{
		ID:        uuid.New().String()[:8], // Short ID for convenience
		Type:      jobType,
		Status:    JobStatusPending,
		URL:       url,
		Personas:  personas,
		Total:     total,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()
	return job
}

// Get retrieves a job by ID, nil when unknown.
func (m *JobManager) Get(id string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[id]
}

// List returns snapshots of all jobs, most recent first.
func (m *JobManager) List() []JobSnapshot {
	m.mu.RLock()
	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	m.mu.RUnlock()

	slices.SortFunc(jobs, func(a, b *Job) int {
		return b.StartedAt.Compare(a.StartedAt)
	})

	out := make([]JobSnapshot, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Snapshot())
	}
	return out
}

// SetRunning marks the job as running.
func (m *JobManager) SetRunning(job *Job) {
	job.mu.Lock()
	job.Status = JobStatusRunning
	job.mu.Unlock()
}

// UpdateProgress advances the job's progress counter.
func (m *JobManager) UpdateProgress(job *Job, current int) {
	job.mu.Lock()
	job.Progress = current
	if job.Status == JobStatusPending {
		job.Status = JobStatusRunning
	}
	job.mu.Unlock()
}

// Complete marks the job as completed with its result.
func (m *JobManager) Complete(job *Job, result any) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusCompleted
	job.Result = result
	job.Progress = job.Total
	job.CompletedAt = &now
	job.mu.Unlock()
}

// Fail marks the job as failed. A partial result may still be attached.
func (m *JobManager) Fail(job *Job, err error, result any) {
	now := time.Now()
	job.mu.Lock()
	job.Status = JobStatusFailed
	job.Error = err.Error()
	job.Result = result
	job.CompletedAt = &now
	job.mu.Unlock()
}
