package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/divitrack/divitrack/internal/modules/marketdata"
)

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.HealthCheck(r.Context()); err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "divitrack",
	})
}

// handleSnapshot serves the provenance-tagged cached snapshot for a symbol
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	snapshot, err := s.sync.GetSnapshot(symbol)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if snapshot == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no snapshot for symbol"})
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}

// handleSeries serves a price series for a symbol over a horizon.
// Falls back to a synthetic series when no stored data covers the window,
// with the provenance tag making the substitution visible.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	horizon := r.URL.Query().Get("horizon")

	series, err := s.sync.GetSeries(symbol, horizon)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if series == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown symbol"})
		return
	}

	s.writeJSON(w, http.StatusOK, series)
}

type syncQuotesRequest struct {
	Symbols []string `json:"symbols"`
	Force   bool     `json:"force"`
}

// handleSyncQuotes triggers an interactive quote sync
func (s *Server) handleSyncQuotes(w http.ResponseWriter, r *http.Request) {
	var req syncQuotesRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	result, err := s.sync.UpdateQuotes(r.Context(), req.Symbols, req.Force)
	if err != nil {
		if errors.Is(err, marketdata.ErrProviderNotConfigured) {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

type syncHistoryRequest struct {
	Symbols    []string `json:"symbols"`
	Resolution string   `json:"resolution"`
	WindowDays int      `json:"window_days"`
}

// handleSyncHistory triggers a history backfill
func (s *Server) handleSyncHistory(w http.ResponseWriter, r *http.Request) {
	var req syncHistoryRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	resolution := marketdata.Resolution(req.Resolution)
	if req.Resolution == "" {
		resolution = marketdata.ResolutionDaily
	}

	summary, err := s.sync.BackfillHistory(r.Context(), req.Symbols, resolution, req.WindowDays)
	if err != nil {
		if errors.Is(err, marketdata.ErrProviderNotConfigured) {
			s.writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

// handleRate serves a conversion rate. The lookup never fails; degraded
// values are logged by the currency service.
func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	base := chi.URLParam(r, "base")
	target := chi.URLParam(r, "target")

	rate := s.rates.GetRate(base, target)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"base":   base,
		"target": target,
		"rate":   rate,
	})
}

// handleAuditRecent serves the most recent provider-call audit entries
func (s *Server) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entries, err := s.audit.Recent(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// handleRunEODSync triggers the end-of-day sync outside its schedule.
// The same trading-day gate applies as on the cron run, and the caller
// gets the full report back.
func (s *Server) handleRunEODSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.eodJob.RunReport(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, report)
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes a JSON error response
func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
