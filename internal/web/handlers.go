package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/cache"
	"github.com/chantlab/neuma/core/cantus"
	"github.com/chantlab/neuma/core/chant"
	apperrors "github.com/chantlab/neuma/core/errors"
	"github.com/chantlab/neuma/core/render"
	"github.com/chantlab/neuma/internal/fixtures"
	"github.com/chantlab/neuma/internal/logging"
	"github.com/chantlab/neuma/internal/server"
	"github.com/chantlab/neuma/internal/validation"
)

// maxJSONBody bounds JSON request bodies. Chant texts and melodies are
// short; a megabyte is generous.
const maxJSONBody = 1 << 20

// alignWithCache aligns a text and melody, consulting the shared alignment
// cache when one is configured.
func alignWithCache(text, volpiano string, opts align.Options) ([]align.Pair, bool, error) {
	var key string
	if alignmentCache != nil {
		key = cache.AlignmentKey(text, volpiano, opts)
		if hit, ok := alignmentCache.Get(key); ok {
			return hit.Pairs, hit.Review, nil
		}
	}

	pairs, review, err := align.TextAndVolpiano(text, volpiano, opts)
	if err != nil {
		return nil, false, err
	}

	if alignmentCache != nil {
		alignmentCache.Put(key, cache.AlignedChant{Pairs: pairs, Review: review})
	}
	return pairs, review, nil
}

// renderPage executes a template to a buffer first so failures can still
// produce a 500 instead of a half-written page.
func renderPage(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := Templates.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// formBool interprets checkbox and form-encoded boolean values.
func formBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// indexPageData drives the alignment form page.
type indexPageData struct {
	Text           string
	Volpiano       string
	Clean          bool
	Presyllabified bool
	HasResult      bool
	Result         template.HTML
	Review         bool
	Error          string
}

// handleIndex serves the alignment form and its submissions.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		renderPage(w, "index.html", indexPageData{})
	case http.MethodPost:
		handleIndexSubmit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleIndexSubmit aligns the submitted text and melody and re-renders the
// form with the result. Alignment errors come back as form errors, not
// HTTP errors.
func handleIndexSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}

	data := indexPageData{
		Text:           r.FormValue("text"),
		Volpiano:       r.FormValue("volpiano"),
		Clean:          formBool(r.FormValue("clean")),
		Presyllabified: formBool(r.FormValue("presyllabified")),
	}

	if strings.TrimSpace(data.Text) == "" || strings.TrimSpace(data.Volpiano) == "" {
		data.Error = "Both the chant text and the volpiano melody are required."
		renderPage(w, "index.html", data)
		return
	}

	opts := align.Options{Clean: data.Clean, Presyllabified: data.Presyllabified}
	pairs, review, err := alignWithCache(data.Text, data.Volpiano, opts)
	if err != nil {
		data.Error = err.Error()
		renderPage(w, "index.html", data)
		return
	}

	data.HasResult = true
	data.Result = template.HTML(render.Alignment(pairs, render.Options{}))
	data.Review = review
	renderPage(w, "index.html", data)
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Chants  int    `json:"chants"`
	Jobs    int    `json:"jobs"`
}

// handleHealth handles GET /health.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	chants := 0
	if corpusStore != nil {
		if n, err := corpusStore.Count(); err == nil {
			chants = n
		}
	}

	respond(w, http.StatusOK, HealthInfo{
		Status:  "healthy",
		Version: serverVersion,
		Uptime:  time.Since(startTime).String(),
		Chants:  chants,
		Jobs:    len(globalJobStore.List()),
	})
}

// handleChantPage serves GET /chant/{ref}: a standalone page with the
// chant's aligned text and melody.
func handleChantPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if corpusStore == nil {
		http.Error(w, "no chant database configured", http.StatusServiceUnavailable)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/chant/")
	refStr, err := url.PathUnescape(raw)
	if err != nil || refStr == "" {
		http.Error(w, "invalid chant reference", http.StatusBadRequest)
		return
	}

	ref, err := chant.ParseRef(refStr)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid chant reference %q", refStr), http.StatusBadRequest)
		return
	}

	c, err := corpusStore.Lookup(ref)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logging.Error("chant lookup failed", "ref", ref.String(), "error", err)
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	pairs, review, err := alignWithCache(c.FullText, c.Volpiano, align.Options{})
	if err != nil {
		http.Error(w, fmt.Sprintf("alignment failed: %v", err), http.StatusUnprocessableEntity)
		return
	}

	title := ref.String()
	if review {
		title += " (review)"
	}
	page := render.Alignment(pairs, render.Options{
		Title:      title,
		Standalone: true,
		Stylesheet: "/static/volpiano.css",
	})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(page))
}

// batchPageData drives the batch upload page.
type batchPageData struct {
	Jobs []Job
}

// handleBatchPage serves GET /batch: corpus upload form and job list.
func handleBatchPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	renderPage(w, "batch.html", batchPageData{Jobs: globalJobStore.List()})
}

// handleStatic serves embedded static assets.
func handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.FileServer(http.FS(staticFS)).ServeHTTP(w, r)
}

// alignRequest is the request body for POST /api/align.
type alignRequest struct {
	Text           string `json:"text"`
	Volpiano       string `json:"volpiano"`
	Clean          bool   `json:"clean,omitempty"`
	Presyllabified bool   `json:"presyllabified,omitempty"`
	HTML           bool   `json:"html,omitempty"`
}

// alignResponse is the response body for POST /api/align.
type alignResponse struct {
	Pairs  []align.Pair `json:"pairs"`
	Review bool         `json:"review"`
	HTML   string       `json:"html,omitempty"`
}

// handleAPIAlign handles POST /api/align.
func handleAPIAlign(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req alignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if req.Text == "" || req.Volpiano == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "text and volpiano are required")
		return
	}

	opts := align.Options{Clean: req.Clean, Presyllabified: req.Presyllabified}
	pairs, review, err := alignWithCache(req.Text, req.Volpiano, opts)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "ALIGNMENT_FAILED", err.Error())
		return
	}

	resp := alignResponse{Pairs: pairs, Review: review}
	if req.HTML {
		resp.HTML = render.Alignment(pairs, render.Options{})
	}
	respond(w, http.StatusOK, resp)
}

// syllabifyRequest is the request body for POST /api/syllabify.
type syllabifyRequest struct {
	Text           string `json:"text"`
	Clean          bool   `json:"clean,omitempty"`
	Presyllabified bool   `json:"presyllabified,omitempty"`
}

// syllabifyResponse is the response body for POST /api/syllabify.
type syllabifyResponse struct {
	Sections []chant.Section `json:"sections"`
}

// handleAPISyllabify handles POST /api/syllabify.
func handleAPISyllabify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var req syllabifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid JSON body")
		return
	}

	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "MISSING_PARAMS", "text is required")
		return
	}

	sections, err := cantus.SyllabifyText(req.Text, cantus.Options{
		Clean:          req.Clean,
		Presyllabified: req.Presyllabified,
	})
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "SYLLABIFY_FAILED", err.Error())
		return
	}

	respond(w, http.StatusOK, syllabifyResponse{Sections: sections})
}

// handleAPIChants handles GET /api/chants?q= - incipit prefix search.
func handleAPIChants(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if corpusStore == nil {
		respondError(w, http.StatusServiceUnavailable, "NO_CORPUS", "No chant database configured")
		return
	}

	q := server.LimitStringLength(strings.TrimSpace(r.URL.Query().Get("q")), 256)
	if q == "" {
		respondError(w, http.StatusBadRequest, "MISSING_QUERY", "Query parameter q is required")
		return
	}

	chants, err := corpusStore.Search(q)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
			return
		}
		logging.Error("chant search failed", "query", q, "error", err)
		respondError(w, http.StatusInternalServerError, "SEARCH_FAILED", "Search failed")
		return
	}

	respondList(w, http.StatusOK, chants, len(chants))
}

// handleAPIChantByRef handles GET /api/chants/{ref} - chant lookup.
func handleAPIChantByRef(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}
	if corpusStore == nil {
		respondError(w, http.StatusServiceUnavailable, "NO_CORPUS", "No chant database configured")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/chants/")
	refStr, err := url.PathUnescape(raw)
	if err != nil || refStr == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REF", "Chant reference is required")
		return
	}

	ref, err := chant.ParseRef(refStr)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REF", err.Error())
		return
	}

	c, err := corpusStore.Lookup(ref)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("Chant %q not found", ref.String()))
			return
		}
		logging.Error("chant lookup failed", "ref", ref.String(), "error", err)
		respondError(w, http.StatusInternalServerError, "LOOKUP_FAILED", "Lookup failed")
		return
	}

	respond(w, http.StatusOK, c)
}

// handleAPIBatch handles POST /api/batch - corpus upload starting an
// asynchronous alignment job.
func handleAPIBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxFileSize)
	file, header, err := r.FormFile("corpus")
	if err != nil {
		respondError(w, http.StatusBadRequest, "MISSING_FILE", "A corpus file field is required")
		return
	}
	defer file.Close()

	if err := validation.ValidateFilename(header.Filename); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILENAME", err.Error())
		return
	}

	if ct := header.Header.Get("Content-Type"); ct != "" && !server.ValidateContentType(ct, server.AllowedUploadContentTypes) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			fmt.Sprintf("Content type %q is not allowed", ct))
		return
	}

	fileType, err := validation.ValidateFileType(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_FILE_TYPE", err.Error())
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		respondError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Failed to rewind upload")
		return
	}

	var chants []fixtures.Chant
	switch fileType {
	case validation.FileTypeCSV:
		chants, err = fixtures.ReadCSV(file)
	case validation.FileTypeCSVXZ:
		chants, err = fixtures.ReadCSVXZ(file)
	case validation.FileTypeXML:
		var data []byte
		data, err = io.ReadAll(file)
		if err == nil {
			chants, err = fixtures.ReadCantusXML(data)
		}
	default:
		respondError(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT",
			fmt.Sprintf("Unsupported corpus format %q; upload .csv, .csv.xz, or .xml", fileType))
		return
	}
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "PARSE_FAILED", err.Error())
		return
	}
	if len(chants) == 0 {
		respondError(w, http.StatusBadRequest, "EMPTY_CORPUS", "The corpus contains no chants")
		return
	}

	opts := align.Options{
		Clean:          formBool(r.FormValue("clean")),
		Presyllabified: formBool(r.FormValue("presyllabified")),
	}

	filename, err := validation.SanitizeFilename(header.Filename)
	if err != nil {
		filename = "corpus"
	}

	job := globalJobStore.Create(BatchRequest{
		Filename:       filename,
		Chants:         len(chants),
		Clean:          opts.Clean,
		Presyllabified: opts.Presyllabified,
	}, chants)
	runBatchJob(job, opts)

	snap, _ := globalJobStore.Get(job.ID)
	respond(w, http.StatusCreated, snap)
}
