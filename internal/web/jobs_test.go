package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/chant"
	"github.com/chantlab/neuma/internal/batch"
	"github.com/chantlab/neuma/internal/fixtures"
)

// testCorpus returns a small corpus: the first chant aligns cleanly, the
// second has too few melody syllables and gets flagged for review.
func testCorpus() []fixtures.Chant {
	return []fixtures.Chant{
		{
			Ref:      chant.Ref{Siglum: "A-Gu 29", Folio: "12r", Sequence: 1},
			Incipit:  "Sanctus sanctus",
			FullText: "Sanctus sanctus",
			Volpiano: "1---a--b---c--d---3",
		},
		{
			Ref:      chant.Ref{Siglum: "A-Gu 29", Folio: "12r", Sequence: 2},
			Incipit:  "benedictus",
			FullText: "benedictus",
			Volpiano: "1---a--b---3",
		},
	}
}

// waitForJobStatus polls the global job store until the job reaches the
// wanted status.
func waitForJobStatus(t *testing.T, id string, want JobStatus) Job {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := globalJobStore.Get(id)
		if ok && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}

	job, _ := globalJobStore.Get(id)
	t.Fatalf("job %s did not reach status %s (last status %s, error %q)",
		id, want, job.Status, job.Error)
	return Job{}
}

func TestJobStoreCreate(t *testing.T) {
	store := NewJobStore()

	req := BatchRequest{
		Filename: "corpus.csv",
		Chants:   2,
		Clean:    true,
	}

	job := store.Create(req, testCorpus())

	if job.ID == "" {
		t.Error("expected job ID to be set")
	}

	if job.Status != JobStatusPending {
		t.Errorf("expected job status to be pending, got %s", job.Status)
	}

	if job.Progress != 0 {
		t.Errorf("expected job progress to be 0, got %d", job.Progress)
	}

	if job.CreatedAt == "" {
		t.Error("expected job created_at to be set")
	}

	if job.Request.Filename != req.Filename {
		t.Errorf("expected filename %s, got %s", req.Filename, job.Request.Filename)
	}

	if job.Request.Chants != req.Chants {
		t.Errorf("expected chant count %d, got %d", req.Chants, job.Request.Chants)
	}

	if !job.Request.Clean {
		t.Error("expected clean flag to be recorded")
	}
}

func TestJobStoreGetSnapshot(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	snap, exists := store.Get(job.ID)
	if !exists {
		t.Fatal("expected job to exist")
	}
	if snap.ID != job.ID {
		t.Errorf("expected job ID %s, got %s", job.ID, snap.ID)
	}

	// Snapshots do not change when the store updates the job
	if err := store.Update(job.ID, JobStatusRunning, 50, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Status != JobStatusPending {
		t.Errorf("snapshot mutated: expected pending, got %s", snap.Status)
	}

	updated, _ := store.Get(job.ID)
	if updated.Status != JobStatusRunning {
		t.Errorf("expected status running, got %s", updated.Status)
	}
	if updated.Progress != 50 {
		t.Errorf("expected progress 50, got %d", updated.Progress)
	}

	// Get non-existent job
	_, exists = store.Get("nonexistent-id")
	if exists {
		t.Error("expected job to not exist")
	}
}

func TestJobStoreUpdate(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	err := store.Update(job.ID, JobStatusCompleted, 100, "")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	updated, _ := store.Get(job.ID)
	if updated.Status != JobStatusCompleted {
		t.Errorf("expected status completed, got %s", updated.Status)
	}

	if updated.Progress != 100 {
		t.Errorf("expected progress 100, got %d", updated.Progress)
	}

	if updated.CompletedAt == "" {
		t.Error("expected completed_at to be set")
	}

	// Update non-existent job
	err = store.Update("nonexistent-id", JobStatusCompleted, 100, "")
	if err == nil {
		t.Error("expected error when updating non-existent job")
	}
}

func TestJobStoreUpdateWithError(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	errMsg := "batch aborted: context canceled"
	err := store.Update(job.ID, JobStatusFailed, 50, errMsg)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	updated, _ := store.Get(job.ID)
	if updated.Status != JobStatusFailed {
		t.Errorf("expected status failed, got %s", updated.Status)
	}

	if updated.Error != errMsg {
		t.Errorf("expected error %s, got %s", errMsg, updated.Error)
	}

	if updated.CompletedAt == "" {
		t.Error("expected completed_at to be set for failed job")
	}
}

func TestJobStoreResults(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 1}, testCorpus()[:1])

	// No results before the run finishes
	if _, ready := store.Results(job.ID); ready {
		t.Error("expected no results before completion")
	}

	results := []batch.Result{
		{Ref: testCorpus()[0].Ref, Pairs: []align.Pair{{Text: "", Volpiano: "1---"}}},
	}
	summary := batch.Summary{Total: 1}
	store.complete(job.ID, results, summary)

	got, ready := store.Results(job.ID)
	if !ready {
		t.Fatal("expected results after completion")
	}
	if len(got) != 1 {
		t.Errorf("expected 1 result, got %d", len(got))
	}

	updated, _ := store.Get(job.ID)
	if updated.Summary == nil || updated.Summary.Total != 1 {
		t.Error("expected summary to be recorded on the job")
	}

	// Results for an unknown job
	if _, ready := store.Results("nonexistent-id"); ready {
		t.Error("expected no results for unknown job")
	}
}

func TestJobStoreDelete(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	// Delete existing job
	err := store.Delete(job.ID)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Verify deletion
	_, exists := store.Get(job.ID)
	if exists {
		t.Error("expected job to be deleted")
	}

	// Delete non-existent job
	err = store.Delete("nonexistent-id")
	if err == nil {
		t.Error("expected error when deleting non-existent job")
	}
}

func TestJobStoreList(t *testing.T) {
	store := NewJobStore()

	// Empty store
	jobs := store.List()
	if len(jobs) != 0 {
		t.Errorf("expected 0 jobs, got %d", len(jobs))
	}

	// Add jobs
	store.Create(BatchRequest{Filename: "one.csv", Chants: 1}, testCorpus()[:1])
	store.Create(BatchRequest{Filename: "two.csv", Chants: 2}, testCorpus())

	jobs = store.List()
	if len(jobs) != 2 {
		t.Errorf("expected 2 jobs, got %d", len(jobs))
	}

	for _, job := range jobs {
		if job.ID == "" {
			t.Error("expected listed jobs to carry IDs")
		}
	}
}

func TestJobStoreCancel(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	// Start job
	store.Update(job.ID, JobStatusRunning, 50, "")

	// Cancel job
	err := store.Cancel(job.ID)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	// Verify cancellation
	cancelled, _ := store.Get(job.ID)
	if cancelled.Status != JobStatusCancelled {
		t.Errorf("expected status cancelled, got %s", cancelled.Status)
	}

	if cancelled.CompletedAt == "" {
		t.Error("expected completed_at to be set")
	}

	// Cancel non-existent job
	err = store.Cancel("nonexistent-id")
	if err == nil {
		t.Error("expected error when cancelling non-existent job")
	}
}

func TestJobStoreCancelCompleted(t *testing.T) {
	store := NewJobStore()

	job := store.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	store.Update(job.ID, JobStatusCompleted, 100, "")

	// Try to cancel completed job
	err := store.Cancel(job.ID)
	if err == nil {
		t.Error("expected error when cancelling completed job")
	}
}

func TestHandleAPIJobsList(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	globalJobStore.Create(BatchRequest{Filename: "one.csv", Chants: 1}, testCorpus()[:1])
	globalJobStore.Create(BatchRequest{Filename: "two.csv", Chants: 2}, testCorpus())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	w := httptest.NewRecorder()

	handleAPIJobs(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !apiResp.Success {
		t.Error("expected success to be true")
	}

	if apiResp.Meta == nil || apiResp.Meta.Total != 2 {
		t.Error("expected meta total of 2")
	}
}

func TestHandleAPIJobsMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", strings.NewReader("{}"))
	w := httptest.NewRecorder()

	handleAPIJobs(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "METHOD_NOT_ALLOWED" {
		t.Error("expected METHOD_NOT_ALLOWED error")
	}
}

func TestHandleAPIJobByIDMissingID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "MISSING_ID" {
		t.Error("expected MISSING_ID error")
	}
}

func TestHandleAPIJobByIDInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/bad!id", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "INVALID_ID" {
		t.Error("expected INVALID_ID error")
	}
}

func TestHandleAPIJobByIDMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/jobs/test-id", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", resp.StatusCode)
	}
}

func TestGetJobHandlerNotFound(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/nonexistent-id", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "NOT_FOUND" {
		t.Error("expected NOT_FOUND error")
	}
}

func TestGetJobHandlerSuccess(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	job := globalJobStore.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !apiResp.Success {
		t.Error("expected success to be true")
	}

	data, ok := apiResp.Data.(map[string]interface{})
	if !ok {
		t.Fatal("expected data to be a map")
	}

	if data["id"] != job.ID {
		t.Errorf("expected job ID %s, got %v", job.ID, data["id"])
	}

	if data["status"] != string(JobStatusPending) {
		t.Errorf("expected status pending, got %v", data["status"])
	}
}

func TestCancelJobHandlerNotFound(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/nonexistent-id", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "NOT_FOUND" {
		t.Error("expected NOT_FOUND error")
	}
}

func TestCancelJobHandlerSuccess(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	job := globalJobStore.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !apiResp.Success {
		t.Error("expected success to be true")
	}

	// Verify job was cancelled
	cancelledJob, _ := globalJobStore.Get(job.ID)
	if cancelledJob.Status != JobStatusCancelled {
		t.Errorf("expected job status to be cancelled, got %s", cancelledJob.Status)
	}
}

func TestCancelJobHandlerAlreadyCompleted(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	job := globalJobStore.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())
	globalJobStore.Update(job.ID, JobStatusCompleted, 100, "")

	req := httptest.NewRequest(http.MethodDelete, "/api/jobs/"+job.ID, nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "CANCEL_FAILED" {
		t.Error("expected CANCEL_FAILED error")
	}
}

func TestRunBatchJobCompletes(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	corpus := testCorpus()
	job := globalJobStore.Create(BatchRequest{
		Filename: "corpus.csv",
		Chants:   len(corpus),
	}, corpus)

	runBatchJob(job, align.Options{})

	completed := waitForJobStatus(t, job.ID, JobStatusCompleted)

	if completed.Progress != 100 {
		t.Errorf("expected progress 100, got %d", completed.Progress)
	}
	if completed.CompletedAt == "" {
		t.Error("expected completed_at to be set")
	}

	if completed.Summary == nil {
		t.Fatal("expected summary to be set")
	}
	if completed.Summary.Total != 2 {
		t.Errorf("expected total 2, got %d", completed.Summary.Total)
	}
	if completed.Summary.Reviewed != 1 {
		t.Errorf("expected 1 reviewed chant, got %d", completed.Summary.Reviewed)
	}
	if completed.Summary.Failed != 0 {
		t.Errorf("expected 0 failed chants, got %d", completed.Summary.Failed)
	}

	results, ready := globalJobStore.Results(job.ID)
	if !ready {
		t.Fatal("expected results to be available")
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Corpus order is preserved
	if results[0].Ref.Sequence != 1 || results[1].Ref.Sequence != 2 {
		t.Error("expected results in corpus order")
	}

	if results[0].Review {
		t.Error("expected first chant to align without review")
	}
	if !results[1].Review {
		t.Error("expected second chant to be flagged for review")
	}
}

func TestJobResultNotFinished(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	job := globalJobStore.Create(BatchRequest{Filename: "corpus.csv", Chants: 2}, testCorpus())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/result", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected status 409, got %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if apiResp.Error == nil || apiResp.Error.Code != "JOB_NOT_FINISHED" {
		t.Error("expected JOB_NOT_FINISHED error")
	}
}

func TestJobResultJSON(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	corpus := testCorpus()
	job := globalJobStore.Create(BatchRequest{
		Filename: "corpus.csv",
		Chants:   len(corpus),
	}, corpus)
	runBatchJob(job, align.Options{})
	waitForJobStatus(t, job.ID, JobStatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/result", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	var apiResp struct {
		Success bool `json:"success"`
		Data    struct {
			Summary batch.Summary    `json:"summary"`
			Results []JobResultEntry `json:"results"`
		} `json:"data"`
		Meta *APIMeta `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if !apiResp.Success {
		t.Error("expected success to be true")
	}
	if apiResp.Meta == nil || apiResp.Meta.Total != 2 {
		t.Error("expected meta total of 2")
	}
	if apiResp.Data.Summary.Total != 2 {
		t.Errorf("expected summary total 2, got %d", apiResp.Data.Summary.Total)
	}
	if len(apiResp.Data.Results) != 2 {
		t.Fatalf("expected 2 result entries, got %d", len(apiResp.Data.Results))
	}

	first := apiResp.Data.Results[0]
	if first.Ref != "A-Gu 29 12r 1" {
		t.Errorf("expected ref 'A-Gu 29 12r 1', got %q", first.Ref)
	}
	if len(first.Pairs) != 6 {
		t.Errorf("expected 6 pairs for first chant, got %d", len(first.Pairs))
	}
	if first.Review {
		t.Error("expected first chant not to need review")
	}

	second := apiResp.Data.Results[1]
	if !second.Review {
		t.Error("expected second chant to need review")
	}
}

func TestJobResultHTML(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	corpus := testCorpus()
	job := globalJobStore.Create(BatchRequest{
		Filename: "corpus.csv",
		Chants:   len(corpus),
	}, corpus)
	runBatchJob(job, align.Options{})
	waitForJobStatus(t, job.ID, JobStatusCompleted)

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/result?format=html", nil)
	w := httptest.NewRecorder()

	handleAPIJobByID(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected HTML content type, got %s", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "A-Gu 29 12r 1") {
		t.Error("expected page to contain the first chant reference")
	}
	if !strings.Contains(body, "A-Gu 29 12r 2 (review)") {
		t.Error("expected review-flagged chant title")
	}
	if !strings.Contains(body, "font-family: volpiano") {
		t.Error("expected volpiano font styling")
	}
	if !strings.Contains(body, "/static/volpiano.css") {
		t.Error("expected stylesheet link")
	}
}

func TestJobResultWithFailedChant(t *testing.T) {
	// Clear global job store
	globalJobStore = NewJobStore()

	corpus := []fixtures.Chant{
		testCorpus()[0],
		{
			Ref:      chant.Ref{Siglum: "A-Gu 29", Folio: "47v", Sequence: 1},
			FullText: "qu[i",
			Volpiano: "1---a---3",
		},
	}

	job := globalJobStore.Create(BatchRequest{
		Filename: "corpus.csv",
		Chants:   len(corpus),
	}, corpus)
	runBatchJob(job, align.Options{})

	completed := waitForJobStatus(t, job.ID, JobStatusCompleted)
	if completed.Summary == nil || completed.Summary.Failed != 1 {
		t.Fatal("expected one failed chant in the summary")
	}

	// JSON results carry the per-chant error
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/result", nil)
	w := httptest.NewRecorder()
	handleAPIJobByID(w, req)

	var apiResp struct {
		Data struct {
			Results []JobResultEntry `json:"results"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&apiResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(apiResp.Data.Results) != 2 {
		t.Fatalf("expected 2 result entries, got %d", len(apiResp.Data.Results))
	}
	if apiResp.Data.Results[1].Error == "" {
		t.Error("expected error message for failed chant")
	}
	if len(apiResp.Data.Results[1].Pairs) != 0 {
		t.Error("expected no pairs for failed chant")
	}

	// The HTML page skips chants that failed outright
	req = httptest.NewRequest(http.MethodGet, "/api/jobs/"+job.ID+"/result?format=html", nil)
	w = httptest.NewRecorder()
	handleAPIJobByID(w, req)

	body := w.Body.String()
	if strings.Contains(body, "A-Gu 29 47v 1") {
		t.Error("expected failed chant to be omitted from the HTML page")
	}
}
