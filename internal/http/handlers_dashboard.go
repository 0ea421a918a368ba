package http

import (
	"net/http"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready only when a ledger snapshot can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := s.dashboard.Stats(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Views(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Views(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "kpis", err)
		return
	}
	writeJSON(w, http.StatusOK, v.KPIs)
}

func (s *Server) handleYTD(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Views(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "ytd", err)
		return
	}
	writeJSON(w, http.StatusOK, v.YTD)
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	v, err := s.dashboard.Views(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "monthly", err)
		return
	}
	writeJSON(w, http.StatusOK, v.Monthly)
}
