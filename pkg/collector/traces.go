package collector

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

type tracesRequest struct {
	TraceIDs []string `json:"traceIds"`
}

type tracesResponse struct {
	Success bool                 `json:"success"`
	Data    []domain.TraceResult `json:"data"`
	Message string               `json:"message"`
}

// handleTraces fetches full traces for a list of trace ids.
// POST /traces {"traceIds": ["..."]}
func (s *Server) handleTraces(w http.ResponseWriter, r *http.Request) {
	body, err := s.validator.readBody(r, "/traces")
	if err != nil {
		s.failTraces(w, r, err)
		return
	}

	var req tracesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.failTraces(w, r, fmt.Errorf("invalid request: %w", err))
		return
	}

	ids := make([]domain.TraceID, len(req.TraceIDs))
	for i, id := range req.TraceIDs {
		ids[i] = domain.TraceID(id)
	}

	results, err := s.traces.QueryTraces(r.Context(), ids)
	if err != nil {
		s.failTraces(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tracesResponse{
		Success: true,
		Data:    results,
		Message: "",
	})
}

func (s *Server) failTraces(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("trace query failed",
		"request_id", RequestIDFromContext(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusBadRequest, tracesResponse{
		Success: false,
		Data:    []domain.TraceResult{},
		Message: err.Error(),
	})
}
