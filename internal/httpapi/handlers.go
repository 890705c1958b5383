package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MimeLyc/subtitle-trans/internal/backend"
	"github.com/MimeLyc/subtitle-trans/internal/jobs"
)

type healthResponse struct {
	Status string              `json:"status"`
	Jobs   map[jobs.Status]int `json:"jobs"`
	Pool   any                 `json:"pool,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Jobs:   s.queue.Counts(),
	}
	if s.pool != nil {
		stats := s.pool.Stats()
		resp.Pool = stats
		if stats.Live == 0 {
			resp.Status = "degraded"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	Text   string `json:"text"`
	Result string `json:"result"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if s.translator == nil {
		writeError(w, http.StatusNotImplemented, "translator is not configured")
		return
	}

	var req translateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := s.translator.Translate(r.Context(), req.Text)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, translateResponse{Text: req.Text, Result: result})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.queue.List())
}

type enqueueJobRequest struct {
	Source       string `json:"source"`
	SubtitleFile string `json:"subtitle_file"`
	Language     string `json:"language"`
	Force        bool   `json:"force"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req enqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Source == "" {
		req.Source = "manual"
	}
	if req.Language == "" {
		req.Language = s.language
	}
	if req.SubtitleFile == "" {
		writeError(w, http.StatusBadRequest, "subtitle_file is required")
		return
	}
	if !filepath.IsAbs(req.SubtitleFile) {
		writeError(w, http.StatusBadRequest, "subtitle_file must be an absolute path")
		return
	}
	if info, err := os.Stat(req.SubtitleFile); err != nil || info.IsDir() {
		writeError(w, http.StatusBadRequest, "subtitle_file does not exist")
		return
	}

	payload := jobs.JobPayload{
		SubtitleFile: filepath.Clean(req.SubtitleFile),
		Language:     req.Language,
		Force:        req.Force,
	}
	job, created := s.queue.Enqueue(jobs.EnqueueRequest{
		Source:    req.Source,
		DedupeKey: payload.DedupeKey(),
		Payload:   payload,
	})
	code := http.StatusCreated
	if !created {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"created": created,
		"job":     job,
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	job, ok := s.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// writeBackendError maps translation failures to HTTP statuses
func writeBackendError(w http.ResponseWriter, err error) {
	var status int
	switch backend.KindOf(err) {
	case backend.KindEmptyQuery:
		status = http.StatusBadRequest
	case backend.KindOverload:
		w.Header().Set("Retry-After", "1")
		status = http.StatusServiceUnavailable
	case backend.KindTimeout:
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusBadGateway
	}

	var be *backend.Error
	if errors.As(err, &be) {
		writeJSON(w, status, map[string]any{
			"error":  err.Error(),
			"code":   be.Kind.Code(),
			"kind":   be.Kind.String(),
			"advice": backend.Advice(err),
		})
		return
	}
	writeError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
