// Package api is the HTTP surface: application CRUD, corpus maintenance,
// and manual triggers for the mailbox sweep, reparse, and training.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"apptrack/server/internal/config"
	"apptrack/server/internal/errors"
	"apptrack/server/internal/models"
	"apptrack/server/internal/processor"
	"apptrack/server/internal/scheduler"
	"apptrack/server/internal/store"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Server struct {
	logger    *zap.Logger
	store     store.Store
	processor *processor.EmailProcessor
	scheduler *scheduler.Scheduler
	owner     string
	server    *http.Server
}

func NewServer(logger *zap.Logger, st store.Store, proc *processor.EmailProcessor, sched *scheduler.Scheduler, cfg *config.Config) *Server {
	s := &Server{
		logger:    logger,
		store:     st,
		processor: proc,
		scheduler: sched,
		owner:     cfg.Owner,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /applications", s.listApplications)
	mux.HandleFunc("POST /applications", s.createApplication)
	mux.HandleFunc("DELETE /applications", s.deleteAllApplications)
	mux.HandleFunc("GET /applications/{id}", s.getApplication)
	mux.HandleFunc("PUT /applications/{id}", s.updateApplication)
	mux.HandleFunc("DELETE /applications/{id}", s.deleteApplication)
	mux.HandleFunc("GET /applications/{id}/emails", s.listApplicationEmails)
	mux.HandleFunc("POST /emails/check", s.checkEmails)
	mux.HandleFunc("POST /emails/reparse", s.reparseEmails)
	mux.HandleFunc("POST /classifier/train", s.trainClassifier)
	mux.HandleFunc("DELETE /corpus", s.deleteCorpus)

	s.server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // reparse and sweep triggers are slow
	}
	return s
}

// Register starts the listener under the application lifecycle.
func (s *Server) Register(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.logger.Error("http server failed", zap.Error(err))
				}
			}()
			s.logger.Info("http server listening", zap.String("addr", s.server.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.server.Shutdown(ctx)
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.store.ListApplications(r.Context(), s.owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if apps == nil {
		apps = []models.ApplicationRecord{}
	}
	s.writeJSON(w, http.StatusOK, apps)
}

type applicationRequest struct {
	Company     string     `json:"company"`
	Position    string     `json:"position"`
	AppliedDate *time.Time `json:"applied_date,omitempty"`
	Status      string     `json:"status,omitempty"`
}

func (s *Server) createApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.InvalidInput("decoding application", err))
		return
	}
	if req.Company == "" {
		s.writeError(w, errors.InvalidInput("company is required", nil))
		return
	}

	record := &models.ApplicationRecord{
		ID:          uuid.New().String(),
		Owner:       s.owner,
		Company:     req.Company,
		Position:    req.Position,
		AppliedDate: time.Now(),
		Status:      "applied",
	}
	if record.Position == "" {
		record.Position = models.DefaultPosition
	}
	if req.AppliedDate != nil {
		record.AppliedDate = *req.AppliedDate
	}
	if req.Status != "" {
		record.Status = req.Status
	}

	if err := s.store.CreateApplication(r.Context(), record); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, record)
}

func (s *Server) getApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApplication(r.Context(), s.owner, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

func (s *Server) updateApplication(w http.ResponseWriter, r *http.Request) {
	app, err := s.store.GetApplication(r.Context(), s.owner, r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.InvalidInput("decoding application", err))
		return
	}

	if req.Company != "" {
		app.Company = req.Company
	}
	if req.Position != "" {
		app.Position = req.Position
	}
	if req.Status != "" {
		app.Status = req.Status
	}
	if req.AppliedDate != nil {
		app.AppliedDate = *req.AppliedDate
	}

	if err := s.store.UpdateApplication(r.Context(), app); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, app)
}

func (s *Server) deleteApplication(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetApplication(r.Context(), s.owner, id); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.store.DeleteApplication(r.Context(), s.owner, id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllApplications(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteApplications(r.Context(), s.owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listApplicationEmails(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.GetApplication(r.Context(), s.owner, id); err != nil {
		s.writeError(w, err)
		return
	}
	emails, err := s.store.ListEmails(r.Context(), s.owner, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if emails == nil {
		emails = []models.EmailAttachment{}
	}
	s.writeJSON(w, http.StatusOK, emails)
}

func (s *Server) checkEmails(w http.ResponseWriter, r *http.Request) {
	published, err := s.scheduler.PollNow(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]int{"published": published})
}

func (s *Server) reparseEmails(w http.ResponseWriter, r *http.Request) {
	stats, err := s.processor.ReparseAll(r.Context(), s.owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) trainClassifier(w http.ResponseWriter, r *http.Request) {
	report, err := s.processor.Train(r.Context(), s.owner)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if report == nil {
		// Below the minimum corpus size training is a no-op.
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) deleteCorpus(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteLabeledEmails(r.Context(), s.owner); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	switch {
	case errors.IsNotFound(err):
		status = http.StatusNotFound
	case errors.IsType(err, errors.ErrTypeInvalidInput):
		status = http.StatusBadRequest
	case errors.IsAuthRequired(err):
		status = http.StatusUnauthorized
	case errors.IsType(err, errors.ErrTypeUnavailable):
		status = http.StatusServiceUnavailable
	case errors.IsType(err, errors.ErrTypeParseFailure):
		status = http.StatusUnprocessableEntity
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, resp)
}
