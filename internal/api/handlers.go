package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelforge/reelforge/internal/db"
	"github.com/reelforge/reelforge/internal/queue"
)

// Scanner triggers a library scan for new source movies.
// The worker implements it; nil when the worker is disabled.
type Scanner interface {
	Scan(ctx context.Context) (int, error)
}

type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	scanner Scanner
}

func NewHandler(database *db.DB, q *queue.Queue, scanner Scanner) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		scanner: scanner,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMovies returns job records, optionally filtered by stage.
// Query params: stage, limit (default 50), offset.
func (h *Handler) ListMovies(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("stage")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	jobs, err := h.db.ListJobs(r.Context(), stage, limit, offset)
	if err != nil {
		log.Printf("[API] list jobs: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list movies")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"movies": jobs})
}

func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	job, err := h.db.GetJobByMovieID(r.Context(), movieID)
	if err != nil {
		log.Printf("[API] get job %s: %v", movieID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load movie")
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}
	respondJSON(w, http.StatusOK, job)
}

// RetryMovie resets a failed job to the planning stage and re-enqueues it.
// Only failed jobs can be retried; anything else is a conflict.
func (h *Handler) RetryMovie(w http.ResponseWriter, r *http.Request) {
	movieID := chi.URLParam(r, "movieID")

	job, err := h.db.GetJobByMovieID(r.Context(), movieID)
	if err != nil {
		log.Printf("[API] get job %s: %v", movieID, err)
		respondError(w, http.StatusInternalServerError, "Failed to load movie")
		return
	}
	if job == nil {
		respondError(w, http.StatusNotFound, "Movie not found")
		return
	}

	if err := h.db.ResetForRetry(r.Context(), job.ID); err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err := h.queue.EnqueueProcessMovie(r.Context(), job.ID, job.MovieID); err != nil {
		log.Printf("[API] enqueue retry %s: %v", movieID, err)
		respondError(w, http.StatusInternalServerError, "Failed to enqueue retry")
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "retrying", "movie_id": movieID})
}

// TriggerScan runs a library scan immediately instead of waiting for the
// next startup.
func (h *Handler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if h.scanner == nil {
		respondError(w, http.StatusServiceUnavailable, "Worker is disabled on this instance")
		return
	}
	created, err := h.scanner.Scan(r.Context())
	if err != nil {
		log.Printf("[API] scan: %v", err)
		respondError(w, http.StatusInternalServerError, "Scan failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"discovered": created})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
