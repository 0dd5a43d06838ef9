package chi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/contactdex/internal/index"
	"github.com/kailas-cloud/contactdex/internal/transport/dto"
)

// RecordsResponse reports the snapshot size after a mutation.
type RecordsResponse struct {
	Records int `json:"records"`
}

// ReplaceRecords handles PUT /records: the body replaces the whole snapshot.
func (s *Server) ReplaceRecords(w http.ResponseWriter, r *http.Request) {
	var in []dto.Record
	if !decode(w, r, &in) {
		return
	}
	records, err := dto.ToDomainRecords(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	if err := s.search.UpdateRecords(r.Context(), records); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RecordsResponse{Records: len(records)})
}

// AddRecord handles POST /records.
func (s *Server) AddRecord(w http.ResponseWriter, r *http.Request) {
	var in dto.Record
	if !decode(w, r, &in) {
		return
	}
	rec, err := in.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	if err := s.search.AddRecord(r.Context(), rec); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.RecordFromDomain(rec))
}

// RemoveRecord handles DELETE /records/{id}.
func (s *Server) RemoveRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.search.RemoveRecord(r.Context(), id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// OptimizeResponse is the body of POST /index/optimize.
type OptimizeResponse struct {
	DroppedTerms int `json:"dropped_terms"`
}

// OptimizeIndex handles POST /index/optimize.
func (s *Server) OptimizeIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, OptimizeResponse{DroppedTerms: s.search.OptimizeIndex()})
}

// PerformanceResponse is the body of GET /stats/performance.
type PerformanceResponse struct {
	Searches            int64               `json:"searches"`
	AverageExecutionMs  float64             `json:"average_execution_ms"`
	LastExecutionMs     float64             `json:"last_execution_ms"`
	Timeouts            int64               `json:"timeouts"`
	Fallbacks           int64               `json:"fallbacks"`
	Recoveries          int64               `json:"recoveries"`
	IndexGeneration     uint64              `json:"index_generation"`
	Records             int                 `json:"records"`
	Terms               map[index.Field]int `json:"terms"`
	Postings            int                 `json:"postings"`
	LastBuildDurationMs float64             `json:"last_build_duration_ms"`
	BuiltAt             time.Time           `json:"built_at"`
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

// PerformanceStats handles GET /stats/performance.
func (s *Server) PerformanceStats(w http.ResponseWriter, _ *http.Request) {
	pm := s.search.GetPerformanceMetrics()
	writeJSON(w, http.StatusOK, PerformanceResponse{
		Searches:            pm.Searches,
		AverageExecutionMs:  ms(pm.AverageExecution),
		LastExecutionMs:     ms(pm.LastExecution),
		Timeouts:            pm.Timeouts,
		Fallbacks:           pm.Fallbacks,
		Recoveries:          pm.Recoveries,
		IndexGeneration:     pm.Generation,
		Records:             pm.Records,
		Terms:               pm.Terms,
		Postings:            pm.Postings,
		LastBuildDurationMs: ms(pm.LastBuildDuration),
		BuiltAt:             pm.BuiltAt,
	})
}

// ErrorStats handles GET /stats/errors.
func (s *Server) ErrorStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dto.ErrorStatsFromDomain(s.search.GetErrorStats()))
}
