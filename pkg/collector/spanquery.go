package collector

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

type spanQueryRequest struct {
	StartYear   domain.DateField `json:"start_year"`
	StartMonth  domain.DateField `json:"start_month"`
	StartDay    domain.DateField `json:"start_day"`
	StartHour   domain.DateField `json:"start_hour"`
	StartMinute domain.DateField `json:"start_minute"`
	EndYear     domain.DateField `json:"end_year"`
	EndMonth    domain.DateField `json:"end_month"`
	EndDay      domain.DateField `json:"end_day"`
	EndHour     domain.DateField `json:"end_hour"`
	EndMinute   domain.DateField `json:"end_minute"`
	PageNum     *int             `json:"page_num"`
	Step        string           `json:"step"`
}

func (req spanQueryRequest) toQuery() (domain.SpanQuery, error) {
	q := domain.SpanQuery{
		Window: domain.TimeWindow{
			Start: domain.Instant{
				Year:   req.StartYear,
				Month:  req.StartMonth,
				Day:    req.StartDay,
				Hour:   req.StartHour,
				Minute: req.StartMinute,
			},
			End: domain.Instant{
				Year:   req.EndYear,
				Month:  req.EndMonth,
				Day:    req.EndDay,
				Hour:   req.EndHour,
				Minute: req.EndMinute,
			},
		},
		PageNum: 1,
	}
	if req.PageNum != nil {
		q.PageNum = *req.PageNum
	}
	if req.Step != "" {
		step, err := domain.ParseStep(req.Step)
		if err != nil {
			return domain.SpanQuery{}, err
		}
		q.Step = step
	}
	if _, err := q.Window.Start.Format(); err != nil {
		return domain.SpanQuery{}, fmt.Errorf("start %w", err)
	}
	if _, err := q.Window.End.Format(); err != nil {
		return domain.SpanQuery{}, fmt.Errorf("end %w", err)
	}
	return q, nil
}

type spanQueryResponse struct {
	Success bool            `json:"success"`
	Traces  json.RawMessage `json:"traces"`
	Total   int64           `json:"total"`
	Message string          `json:"message"`
}

// handleSpanQuery searches basic traces in a time window, one page at a time.
// POST /spanquery
func (s *Server) handleSpanQuery(w http.ResponseWriter, r *http.Request) {
	body, err := s.validator.readBody(r, "/spanquery")
	if err != nil {
		s.failSpanQuery(w, r, err)
		return
	}

	var req spanQueryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.failSpanQuery(w, r, fmt.Errorf("invalid request: %w", err))
		return
	}
	q, err := req.toQuery()
	if err != nil {
		s.failSpanQuery(w, r, fmt.Errorf("invalid request: %w", err))
		return
	}

	page, err := s.traces.SearchTraces(r.Context(), q)
	if err != nil {
		s.failSpanQuery(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, spanQueryResponse{
		Success: true,
		Traces:  page.Traces,
		Total:   page.Total,
		Message: "",
	})
}

func (s *Server) failSpanQuery(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("span query failed",
		"request_id", RequestIDFromContext(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusBadRequest, spanQueryResponse{
		Success: false,
		Traces:  json.RawMessage("[]"),
		Total:   0,
		Message: err.Error(),
	})
}
