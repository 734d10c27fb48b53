// Package api exposes the HTTP trigger and run-history endpoints.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/runlog"
	syncsvc "github.com/nikhil-at-pieces/descope-sync/internal/service/sync"
)

const defaultRunsLimit = 20

// Handler serves sync triggers and run history.
type Handler struct {
	svc    *syncsvc.Service
	runs   *runlog.Store
	token  string
	logger *slog.Logger
}

func NewHandler(svc *syncsvc.Service, runs *runlog.Store, token string, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, runs: runs, token: token, logger: logger}
}

// Router builds the HTTP routing table.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Get("/healthz", h.health)
	r.Post("/sync", h.triggerSync)
	r.Get("/runs", h.listRuns)
	r.Get("/runs/{runID}", h.getRun)
	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// triggerSync runs the pipeline synchronously and returns the report.
// When a trigger token is configured the caller must present it in the
// X-Sync-Token header.
func (h *Handler) triggerSync(w http.ResponseWriter, r *http.Request) {
	if h.token != "" {
		got := r.Header.Get("X-Sync-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid or missing sync token"})
			return
		}
	}

	h.reqLogger(r).Info("sync triggered over http")
	report := h.svc.Run(r.Context(), domain.TriggerTypeHTTP)
	status := http.StatusOK
	if !report.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, report)
}

func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.reqLogger(r).Error("failed to list runs", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	outcomes, err := h.runs.ListOutcomes(r.Context(), runID)
	if err != nil {
		h.reqLogger(r).Error("failed to list outcomes", "run_id", runID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load run"})
		return
	}
	if outcomes == nil {
		outcomes = []domain.StageOutcome{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": runID,
		"stages": outcomes,
	})
}

// reqLogger tags log records with the request ID assigned by the
// middleware, so log lines correlate with the X-Request-ID the caller
// saw.
func (h *Handler) reqLogger(r *http.Request) *slog.Logger {
	if id := RequestIDFromContext(r.Context()); id != "" {
		return h.logger.With("request_id", id)
	}
	return h.logger
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
