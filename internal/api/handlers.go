package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chunkmap/internal/errors"
	"chunkmap/internal/ledger"
	"chunkmap/internal/report"
	"chunkmap/internal/version"
)

// defaultRunLimit caps GET /v1/runs when no limit is given.
const defaultRunLimit = 20

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   version.BuildInfo `json:"version"`
	Ledger    bool              `json:"ledger"`
	Auth      bool              `json:"auth"`
}

// ReconstructRequest is the JSON form of a reconstruct call. Plain text
// bodies are taken as the loader text itself.
type ReconstructRequest struct {
	Text string `json:"text"`
	Base string `json:"base,omitempty"`
}

// RunsResponse lists ledger runs, newest first.
type RunsResponse struct {
	Runs []ledger.Run `json:"runs"`
}

// ArtifactsResponse lists the artifacts of one run.
type ArtifactsResponse struct {
	RunID     string            `json:"runId"`
	Artifacts []ledger.Artifact `json:"artifacts"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Get(),
		Ledger:    s.ledger != nil,
		Auth:      s.cfg.TokenHash != "",
	}, http.StatusOK)
}

// handleReconstruct answers POST /v1/reconstruct?format=&base=.
func (s *Server) handleReconstruct(w http.ResponseWriter, r *http.Request) {
	req, err := s.readReconstructRequest(w, r)
	if err != nil {
		WriteChunkmapError(w, err)
		return
	}

	format := report.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		if format, err = report.ParseFormat(f); err != nil {
			BadRequest(w, err.Error())
			return
		}
	}

	var base *url.URL
	if req.Base != "" {
		if base, err = parseBase(req.Base); err != nil {
			WriteChunkmapError(w, err)
			return
		}
	}

	res := s.engine.Reconstruct(req.Text)
	view := report.FromResult(res, base)

	s.logger.Debug("Reconstructed manifest",
		"shape", view.Shape,
		"paths", len(view.Paths),
		"bytes", len(req.Text),
		"requestID", GetRequestID(r.Context()))

	if format == report.FormatJSON {
		WriteJSON(w, view, http.StatusOK)
		return
	}
	out, err := report.Render(view, format)
	if err != nil {
		WriteChunkmapError(w, errors.Wrap(errors.InternalError, "failed to render manifest", err))
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

var contentTypes = map[report.Format]string{
	report.FormatYAML:  "application/yaml",
	report.FormatTOML:  "application/toml",
	report.FormatHuman: "text/plain; charset=utf-8",
}

func (s *Server) readReconstructRequest(w http.ResponseWriter, r *http.Request) (*ReconstructRequest, error) {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.New(errors.PayloadTooLarge, "request body too large").
				WithDetails(map[string]int64{"limit": tooLarge.Limit})
		}
		return nil, errors.Wrap(errors.InvalidRequest, "failed to read request body", err)
	}

	req := &ReconstructRequest{Base: r.URL.Query().Get("base")}
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var payload ReconstructRequest
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, errors.Wrap(errors.InvalidRequest, "invalid JSON body", err)
		}
		req.Text = payload.Text
		if payload.Base != "" {
			req.Base = payload.Base
		}
	} else {
		req.Text = string(data)
	}

	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New(errors.InvalidRequest, "loader text is empty")
	}
	return req, nil
}

func parseBase(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.Wrap(errors.InvalidURL, "base must be an absolute http(s) URL", err)
	}
	return u, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		NotFound(w, "run ledger is disabled")
		return
	}

	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.ledger.Runs(limit)
	if err != nil {
		WriteChunkmapError(w, err)
		return
	}
	if runs == nil {
		runs = []ledger.Run{}
	}
	WriteJSON(w, RunsResponse{Runs: runs}, http.StatusOK)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		NotFound(w, "run ledger is disabled")
		return
	}
	run, err := s.ledger.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		WriteChunkmapError(w, err)
		return
	}
	WriteJSON(w, run, http.StatusOK)
}

func (s *Server) handleRunArtifacts(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		NotFound(w, "run ledger is disabled")
		return
	}
	runID := chi.URLParam(r, "runID")
	if _, err := s.ledger.GetRun(runID); err != nil {
		WriteChunkmapError(w, err)
		return
	}
	artifacts, err := s.ledger.Artifacts(runID)
	if err != nil {
		WriteChunkmapError(w, err)
		return
	}
	if artifacts == nil {
		artifacts = []ledger.Artifact{}
	}
	WriteJSON(w, ArtifactsResponse{RunID: runID, Artifacts: artifacts}, http.StatusOK)
}
