package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/service"
)

// AnalysisRequest is the body for POST /api/analyses. Exactly one of
// Persona (by name) or Inline must be set.
type AnalysisRequest struct {
	URL     string           `json:"url"`
	Persona string           `json:"persona,omitempty"`
	Inline  *persona.Persona `json:"inline_persona,omitempty"`
}

// FocusGroupRequest is the body for POST /api/focus-groups. Empty
// Personas means all configured personas.
type FocusGroupRequest struct {
	URL      string            `json:"url"`
	Personas []string          `json:"personas,omitempty"`
	Inline   []persona.Persona `json:"inline_personas,omitempty"`
}

type jobCreatedResponse struct {
	JobID string `json:"job_id"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}

	p, err := s.resolvePersona(req.Persona, req.Inline)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobs.Create(service.JobTypeAnalysis, req.URL, []string{p.Name}, 1)
	go s.runAnalysisJob(job, p, req.URL)

	writeJSON(w, http.StatusAccepted, jobCreatedResponse{JobID: job.ID})
}

func (s *Server) handleCreateFocusGroup(w http.ResponseWriter, r *http.Request) {
	var req FocusGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}

	group, err := s.resolveGroup(req.Personas, req.Inline)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	names := make([]string, 0, len(group))
	for _, p := range group {
		names = append(names, p.Name)
	}

	job := s.jobs.Create(service.JobTypeFocusGroup, req.URL, names, len(group))
	go s.runFocusGroupJob(job, group, req.URL)

	writeJSON(w, http.StatusAccepted, jobCreatedResponse{JobID: job.ID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job := s.jobs.Get(chi.URLParam(r, "id"))
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.metrics == nil {
		http.Error(w, "metrics disabled", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}

func (s *Server) runAnalysisJob(job *service.Job, p persona.Persona, url string) {
	defer s.recoverJob(job)
	s.jobs.SetRunning(job)

	rep, err := s.runner.RunAnalysis(context.Background(), p, url)
	if err != nil {
		s.jobs.Fail(job, err, rep)
		return
	}
	s.jobs.Complete(job, rep)
}

func (s *Server) runFocusGroupJob(job *service.Job, group []persona.Persona, url string) {
	defer s.recoverJob(job)
	s.jobs.SetRunning(job)

	rep, err := s.runner.RunFocusGroup(context.Background(), group, url)
	if err != nil {
		s.jobs.Fail(job, err, rep)
		return
	}
	s.jobs.Complete(job, rep)
}

// recoverJob marks a job failed if its worker goroutine panics, so the
// server survives and the job does not hang in running state.
func (s *Server) recoverJob(job *service.Job) {
	if r := recover(); r != nil {
		s.logger.Error("job worker panic", "job_id", job.ID, "panic", r)
		s.jobs.Fail(job, fmt.Errorf("internal error: %v", r), nil)
	}
}

func (s *Server) resolvePersona(name string, inline *persona.Persona) (persona.Persona, error) {
	if inline != nil {
		if err := inline.Validate(); err != nil {
			return persona.Persona{}, err
		}
		return *inline, nil
	}
	if name == "" {
		return persona.Persona{}, fmt.Errorf("persona or inline_persona required")
	}
	p, ok := s.personas[name]
	if !ok {
		return persona.Persona{}, fmt.Errorf("unknown persona %q", name)
	}
	return p, nil
}

func (s *Server) resolveGroup(names []string, inline []persona.Persona) ([]persona.Persona, error) {
	if len(inline) > 0 {
		for _, p := range inline {
			if err := p.Validate(); err != nil {
				return nil, fmt.Errorf("persona %q: %w", p.Name, err)
			}
		}
		return inline, nil
	}

	if len(names) == 0 {
		if len(s.personas) == 0 {
			return nil, fmt.Errorf("no personas configured")
		}
		group := make([]persona.Persona, 0, len(s.personas))
		for _, p := range s.personas {
			group = append(group, p)
		}
		return group, nil
	}

	group := make([]persona.Persona, 0, len(names))
	for _, name := range names {
		p, ok := s.personas[name]
		if !ok {
			return nil, fmt.Errorf("unknown persona %q", name)
		}
		group = append(group, p)
	}
	return group, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
