package web

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/render"
	"github.com/chantlab/neuma/internal/batch"
	"github.com/chantlab/neuma/internal/fixtures"
	"github.com/chantlab/neuma/internal/server"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// BatchRequest records what a batch job was asked to do.
type BatchRequest struct {
	Filename       string `json:"filename"`
	Chants         int    `json:"chants"`
	Clean          bool   `json:"clean,omitempty"`
	Presyllabified bool   `json:"presyllabified,omitempty"`
}

// Job represents an asynchronous batch alignment job.
type Job struct {
	ID          string         `json:"id"`
	Status      JobStatus      `json:"status"`
	Progress    int            `json:"progress"` // 0-100
	Summary     *batch.Summary `json:"summary,omitempty"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	CompletedAt string         `json:"completed_at,omitempty"`
	Request     BatchRequest   `json:"request"`

	ctx     context.Context
	cancel  context.CancelFunc
	corpus  []fixtures.Chant
	results []batch.Result
}

// JobStore manages batch alignment jobs in memory.
type JobStore struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewJobStore creates a new job store.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
	}
}

// Create creates a new pending job holding the parsed corpus.
func (s *JobStore) Create(req BatchRequest, corpus []fixtures.Chant) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now().UTC().Format(time.RFC3339)

	job := &Job{
		ID:        uuid.New().String(),
		Status:    JobStatusPending,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
		Request:   req,
		ctx:       ctx,
		cancel:    cancel,
		corpus:    corpus,
	}

	s.jobs[job.ID] = job
	return job
}

// Get returns a snapshot of a job by ID. Handlers marshal the snapshot
// without holding the store lock.
func (s *JobStore) Get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return Job{}, false
	}
	return *job, true
}

// Update updates a job's status and progress.
func (s *JobStore) Update(id string, status JobStatus, progress int, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if errMsg != "" {
		job.Error = errMsg
	}

	if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
		job.CompletedAt = time.Now().UTC().Format(time.RFC3339)
	}

	return nil
}

// complete records a finished run's results and summary. The results slice
// is not mutated afterwards, so Results can hand it out without copying.
func (s *JobStore) complete(id string, results []batch.Result, summary batch.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return
	}

	job.results = results
	job.Summary = &summary
	job.corpus = nil
}

// Results returns a finished job's per-chant results.
func (s *JobStore) Results(id string) ([]batch.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists || job.results == nil {
		return nil, false
	}
	return job.results, true
}

// Delete removes a job from the store.
func (s *JobStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	// Cancel if still running
	if job.Status == JobStatusRunning || job.Status == JobStatusPending {
		if job.cancel != nil {
			job.cancel()
		}
	}

	delete(s.jobs, id)
	return nil
}

// List returns snapshots of all jobs, newest first.
func (s *JobStore) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt != jobs[j].CreatedAt {
			return jobs[i].CreatedAt > jobs[j].CreatedAt
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs
}

// Cancel cancels a pending or running job.
func (s *JobStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found: %s", id)
	}

	if job.Status != JobStatusPending && job.Status != JobStatusRunning {
		return fmt.Errorf("job cannot be cancelled (status: %s)", job.Status)
	}

	if job.cancel != nil {
		job.cancel()
	}

	job.Status = JobStatusCancelled
	job.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	job.CompletedAt = time.Now().UTC().Format(time.RFC3339)

	return nil
}

// runBatchJob aligns the job's corpus in a goroutine, streaming progress to
// the job store and the WebSocket hub.
func runBatchJob(job *Job, opts align.Options) {
	go func() {
		globalJobStore.Update(job.ID, JobStatusRunning, 0, "")
		broadcastJob(job.ID, "running", 0,
			fmt.Sprintf("Aligning %d chants from %s", len(job.corpus), job.Request.Filename))

		lastPct := 0
		results, summary, err := batch.Run(job.ctx, job.corpus, batch.Options{
			Workers: ServerConfig.Workers,
			Align:   opts,
			Cache:   alignmentCache,
			JobID:   job.ID,
			OnProgress: func(done, total int) {
				pct := done * 100 / total
				if pct == lastPct {
					return
				}
				lastPct = pct
				globalJobStore.Update(job.ID, JobStatusRunning, pct, "")
				broadcastJob(job.ID, "aligning", pct,
					fmt.Sprintf("%d/%d chants aligned", done, total))
			},
		})

		globalJobStore.complete(job.ID, results, summary)

		if err != nil {
			globalJobStore.Update(job.ID, JobStatusCancelled, lastPct, "batch aborted: "+err.Error())
			BroadcastError("batch_align", "Batch alignment cancelled")
			return
		}

		globalJobStore.Update(job.ID, JobStatusCompleted, 100, "")
		BroadcastComplete("batch_align",
			fmt.Sprintf("Aligned %d chants (%d flagged for review, %d failed)",
				summary.Total, summary.Reviewed, summary.Failed),
			map[string]interface{}{
				"job_id":   job.ID,
				"total":    summary.Total,
				"reviewed": summary.Reviewed,
				"failed":   summary.Failed,
			})
	}()
}

// broadcastJob sends a job progress update tagged with the job ID.
func broadcastJob(jobID, stage string, progress int, message string) {
	if globalHub == nil {
		return
	}

	globalHub.Broadcast(ProgressMessage{
		Type:      "progress",
		Operation: "batch_align",
		Stage:     stage,
		Progress:  progress,
		Message:   message,
		Data:      map[string]interface{}{"job_id": jobID},
	})
}

// handleAPIJobs handles GET /api/jobs - list all jobs.
func handleAPIJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	jobs := globalJobStore.List()
	respondList(w, http.StatusOK, jobs, len(jobs))
}

// handleAPIJobByID handles GET /api/jobs/{id}, DELETE /api/jobs/{id}, and
// GET /api/jobs/{id}/result.
func handleAPIJobByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if rest == "" {
		respondError(w, http.StatusBadRequest, "MISSING_ID", "Job ID is required")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/result"); ok {
		if !server.ValidateIdentifier(id) {
			respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid job ID")
			return
		}
		if r.Method != http.MethodGet {
			respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
			return
		}
		jobResultHandler(w, r, id)
		return
	}

	if !server.ValidateIdentifier(rest) {
		respondError(w, http.StatusBadRequest, "INVALID_ID", "Invalid job ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		getJobHandler(w, r, rest)
	case http.MethodDelete:
		cancelJobHandler(w, r, rest)
	default:
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET and DELETE are allowed")
	}
}

// getJobHandler handles GET /api/jobs/{id}.
func getJobHandler(w http.ResponseWriter, r *http.Request, id string) {
	job, exists := globalJobStore.Get(id)
	if !exists {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}

	respond(w, http.StatusOK, job)
}

// cancelJobHandler handles DELETE /api/jobs/{id}.
func cancelJobHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := globalJobStore.Cancel(id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, "CANCEL_FAILED", err.Error())
		return
	}

	respond(w, http.StatusOK, map[string]string{"message": "Job cancelled"})
}

// JobResultEntry is one chant's outcome in a finished batch job.
type JobResultEntry struct {
	Ref    string       `json:"ref"`
	Pairs  []align.Pair `json:"pairs,omitempty"`
	Review bool         `json:"review"`
	Error  string       `json:"error,omitempty"`
}

// jobResultHandler handles GET /api/jobs/{id}/result. The default response
// is JSON; ?format=html renders the aligned chants as a standalone page.
func jobResultHandler(w http.ResponseWriter, r *http.Request, id string) {
	job, exists := globalJobStore.Get(id)
	if !exists {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Job not found")
		return
	}

	results, ready := globalJobStore.Results(id)
	if !ready {
		respondError(w, http.StatusConflict, "JOB_NOT_FINISHED",
			fmt.Sprintf("Job is %s; results are not available yet", job.Status))
		return
	}

	if r.URL.Query().Get("format") == "html" {
		doc := render.NewDocument()
		doc.SetStylesheet("/static/volpiano.css")
		for _, res := range results {
			if res.Err != nil {
				continue
			}
			title := res.Ref.String()
			if res.Review {
				title += " (review)"
			}
			doc.AddChant(title, res.Pairs)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(doc.Build()))
		return
	}

	entries := make([]JobResultEntry, len(results))
	for i, res := range results {
		entries[i] = JobResultEntry{
			Ref:    res.Ref.String(),
			Pairs:  res.Pairs,
			Review: res.Review,
		}
		if res.Err != nil {
			entries[i].Error = res.Err.Error()
		}
	}

	respondList(w, http.StatusOK, map[string]interface{}{
		"summary": job.Summary,
		"results": entries,
	}, len(entries))
}
