package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
	"github.com/docc-lab/skywalking-collector/internal/core/ports"
)

// BasicTraces is one page of a time-range search, passed through from upstream.
type BasicTraces struct {
	Traces json.RawMessage
	Total  int64
}

// TraceQueryService turns one inbound request into exactly one upstream
// GraphQL call bounded by a fixed timeout. It holds no per-request state.
type TraceQueryService struct {
	logger *slog.Logger
	client ports.GraphQLClient
	cfg    domain.UpstreamConfig
}

// NewTraceQueryService creates the service over client.
func NewTraceQueryService(logger *slog.Logger, client ports.GraphQLClient, cfg domain.UpstreamConfig) *TraceQueryService {
	return &TraceQueryService{
		logger: logger,
		client: client,
		cfg:    cfg,
	}
}

// QueryTraces fetches the given traces in one call and reshapes them.
// An empty ids returns an empty result without calling upstream.
func (s *TraceQueryService) QueryTraces(ctx context.Context, ids []domain.TraceID) ([]domain.TraceResult, error) {
	if len(ids) == 0 {
		return []domain.TraceResult{}, nil
	}

	req := BuildMultiTraceQuery(ids)
	data, err := s.do(ctx, req, s.cfg.TracesTimeout)
	if err != nil {
		return nil, err
	}

	results, err := ReshapeTraces(data)
	if err != nil {
		return nil, fmt.Errorf("reshape traces: %w", err)
	}

	s.logger.Debug("traces fetched", "requested", len(ids), "returned", len(results))
	return results, nil
}

// SearchTraces runs one page of the time-range search.
func (s *TraceQueryService) SearchTraces(ctx context.Context, q domain.SpanQuery) (*BasicTraces, error) {
	step := q.Step
	if step == "" {
		step = s.cfg.DefaultStep
	}
	pageNum := q.PageNum
	if pageNum < 1 {
		pageNum = 1
	}

	req, err := BuildTimeRangeQuery(q.Window, pageNum, step)
	if err != nil {
		return nil, err
	}

	data, err := s.do(ctx, req, s.cfg.SpanQueryTimeout)
	if err != nil {
		return nil, err
	}

	traces, total, err := ExtractBasicTraces(data)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("span query page fetched", "page", pageNum, "step", string(step), "total", total)
	return &BasicTraces{Traces: traces, Total: total}, nil
}

func (s *TraceQueryService) do(ctx context.Context, req domain.GraphQLRequest, timeout time.Duration) (json.RawMessage, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.client.Do(ctx, req)
}
