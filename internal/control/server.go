// Package control exposes the running tracker to local processes over HTTP.
// The server listens on the single-instance address, so a second invocation
// of the binary can drive the first one.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"timetracker/internal/core/model"
	"timetracker/internal/report"
	"timetracker/internal/session"
)

const jsonContentType = "application/json"

// Tracker is the session surface the API drives.
type Tracker interface {
	State() session.State
	Start() error
	Pause()
	Stop(ctx context.Context) (*model.TimeEntry, error)
	SelectTask(ctx context.Context, id string) (*model.TimeEntry, error)
	Tasks(ctx context.Context) ([]model.Task, error)
}

// StatusResponse is the body of status-returning endpoints.
type StatusResponse struct {
	Status   string `json:"status"`
	Seconds  int64  `json:"seconds"`
	Clock    string `json:"clock"`
	TaskID   string `json:"task_id,omitempty"`
	TaskName string `json:"task_name,omitempty"`
}

// EntryResponse describes a recorded time entry.
type EntryResponse struct {
	TaskID          string    `json:"task_id"`
	TaskName        string    `json:"task_name"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
	Date            string    `json:"date"`
}

// StopResponse is returned by stop and select.
type StopResponse struct {
	State    StatusResponse `json:"state"`
	Recorded *EntryResponse `json:"recorded,omitempty"`
}

// TaskResponse describes a task.
type TaskResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	TotalSeconds int64  `json:"total_seconds"`
	Active       bool   `json:"active"`
}

type selectRequest struct {
	Task string `json:"task"`
}

// Server is the control API server.
type Server struct {
	tracker  Tracker
	gatherer prometheus.Gatherer
	log      logrus.FieldLogger
}

// NewServer creates a control server. gatherer may be nil to disable /metrics.
func NewServer(tracker Tracker, gatherer prometheus.Gatherer, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		tracker:  tracker,
		gatherer: gatherer,
		log:      logger.WithField("component", "control"),
	}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/tasks", s.handleTasks)

		r.Group(func(r chi.Router) {
			r.Use(requireJSON)
			r.Post("/start", s.handleStart)
			r.Post("/pause", s.handlePause)
			r.Post("/stop", s.handleStop)
			r.Post("/select", s.handleSelect)
		})
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// requireJSON rejects mutating requests not sent as application/json, so a
// browser page cannot reach them with a cross-origin simple request. chi's
// AllowContentType lets empty bodies through; those are checked here.
func requireJSON(next http.Handler) http.Handler {
	allow := middleware.AllowContentType(jsonContentType)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 && !isJSON(r.Header.Get("Content-Type")) {
			writeError(w, http.StatusUnsupportedMediaType, "content type must be "+jsonContentType)
			return
		}
		allow.ServeHTTP(w, r)
	})
}

func isJSON(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), jsonContentType)
}

// Serve runs the server on listener until ctx is done.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown control server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatus(s.tracker.State()))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Start(); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatus(s.tracker.State()))
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.tracker.Pause()
	writeJSON(w, http.StatusOK, toStatus(s.tracker.State()))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	entry, err := s.tracker.Stop(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{
		State:    toStatus(s.tracker.State()),
		Recorded: toEntry(entry),
	})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "body must be {\"task\": \"<id or name>\"}")
		return
	}

	id, err := s.resolveTask(r.Context(), req.Task)
	if err != nil {
		s.writeError(w, err)
		return
	}
	entry, err := s.tracker.SelectTask(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StopResponse{
		State:    toStatus(s.tracker.State()),
		Recorded: toEntry(entry),
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.tracker.Tasks(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	activeID := s.tracker.State().TaskID
	out := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, TaskResponse{
			ID:           task.ID,
			Name:         task.Name,
			Color:        task.Color,
			TotalSeconds: task.TotalSeconds,
			Active:       task.ID == activeID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// resolveTask accepts a task id or a case-insensitive task name.
func (s *Server) resolveTask(ctx context.Context, ref string) (string, error) {
	tasks, err := s.tracker.Tasks(ctx)
	if err != nil {
		return "", err
	}
	ref = strings.TrimSpace(ref)
	for _, task := range tasks {
		if task.ID == ref {
			return task.ID, nil
		}
	}
	for _, task := range tasks {
		if strings.EqualFold(task.Name, ref) {
			return task.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", session.ErrTaskNotFound, ref)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoActiveTask):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrTaskNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.WithError(err).Error("control request failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func toStatus(state session.State) StatusResponse {
	return StatusResponse{
		Status:   string(state.Status),
		Seconds:  state.Seconds,
		Clock:    report.FormatClock(state.Seconds),
		TaskID:   state.TaskID,
		TaskName: state.TaskName,
	}
}

func toEntry(entry *model.TimeEntry) *EntryResponse {
	if entry == nil {
		return nil
	}
	return &EntryResponse{
		TaskID:          entry.TaskID,
		TaskName:        entry.TaskName,
		StartedAt:       entry.StartedAt,
		EndedAt:         entry.EndedAt,
		DurationSeconds: entry.DurationSeconds,
		Date:            entry.Date,
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
