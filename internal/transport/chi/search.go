package chi

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contactdex/internal/domain/search/query"
	"github.com/kailas-cloud/contactdex/internal/domain/search/request"
	"github.com/kailas-cloud/contactdex/internal/transport/dto"
	searchuc "github.com/kailas-cloud/contactdex/internal/usecase/search"
)

// Search handles POST /search. Any decodable body yields 200 with a SearchResult.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if !decode(w, r, &req) {
		return
	}

	res := s.search.Search(r.Context(), req.Query, req.Filters.Criteria(), request.Options{
		Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
		Highlight: req.Highlight,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	writeJSON(w, http.StatusOK, dto.SearchResultFromDomain(res))
}

// ValidateRequest is the body of POST /search/validate.
type ValidateRequest struct {
	Query string `json:"query"`
}

// ValidateResponse reports whether a query is well-formed.
type ValidateResponse struct {
	Valid bool   `json:"valid"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// ValidateQuery handles POST /search/validate.
func (s *Server) ValidateQuery(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !decode(w, r, &req) {
		return
	}

	v := query.ValidatePattern(req.Query)
	resp := ValidateResponse{Valid: v.Valid, Error: v.Message()}
	if v.Valid {
		resp.Kind = string(query.Parse(req.Query).Kind())
	}
	writeJSON(w, http.StatusOK, resp)
}

// SuggestionsResponse is the body of GET /suggestions.
type SuggestionsResponse struct {
	Items []string `json:"items"`
}

// Suggestions handles GET /suggestions?q=.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	items := s.search.GetSuggestions(r.Context(), r.URL.Query().Get("q"))
	if items == nil {
		items = []string{}
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Items: items})
}

// ProgressiveRequest is the body of POST /search/progressive.
type ProgressiveRequest struct {
	dto.SearchRequest
	BatchSize int `json:"batch_size,omitempty"`
}

// ProgressiveEvent is one NDJSON line of a progressive response.
type ProgressiveEvent struct {
	Type    string        `json:"type"` // batch | summary
	Batch   *BatchEvent   `json:"batch,omitempty"`
	Summary *SummaryEvent `json:"summary,omitempty"`
}

// BatchEvent carries one ranked batch.
type BatchEvent struct {
	Index   int          `json:"index"`
	Records []dto.Record `json:"records"`
	Total   int          `json:"total"`
	Final   bool         `json:"final"`
}

// SummaryEvent closes a progressive response.
type SummaryEvent struct {
	Query           string         `json:"query"`
	Kind            string         `json:"kind,omitempty"`
	State           string         `json:"state"`
	Total           int            `json:"total"`
	Delivered       int            `json:"delivered"`
	Batches         int            `json:"batches"`
	Canceled        bool           `json:"canceled"`
	ExecutionTimeMs float64        `json:"execution_time_ms"`
	Warnings        []string       `json:"warnings,omitempty"`
	Error           *dto.ErrorInfo `json:"error_info,omitempty"`
}

// SearchProgressive handles POST /search/progressive, streaming batches as NDJSON.
func (s *Server) SearchProgressive(w http.ResponseWriter, r *http.Request) {
	var req ProgressiveRequest
	if !decode(w, r, &req) {
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	rc := http.NewResponseController(w)

	sum := s.search.SearchProgressive(r.Context(), req.Query, req.Filters.Criteria(), searchuc.ProgressiveOptions{
		BatchSize: req.BatchSize,
		Timeout:   time.Duration(req.TimeoutMs) * time.Millisecond,
	}, func(b searchuc.Batch) error {
		ev := ProgressiveEvent{Type: "batch", Batch: &BatchEvent{
			Index:   b.Index,
			Records: dto.RecordsFromDomain(b.Records),
			Total:   b.Total,
			Final:   b.Final,
		}}
		if err := enc.Encode(ev); err != nil {
			return err
		}
		_ = rc.Flush()
		return nil
	})

	ev := ProgressiveEvent{Type: "summary", Summary: &SummaryEvent{
		Query:           sum.Query,
		Kind:            string(sum.Kind),
		State:           string(sum.State),
		Total:           sum.Total,
		Delivered:       sum.Delivered,
		Batches:         sum.Batches,
		Canceled:        sum.Canceled,
		ExecutionTimeMs: float64(sum.ExecutionTime.Microseconds()) / 1000,
		Warnings:        sum.Warnings,
		Error:           dto.ErrorInfoFromDomain(sum.Error),
	}}
	if err := enc.Encode(ev); err != nil {
		s.logger.Debug("Progressive summary not delivered", zap.Error(err))
	}
}
