package services

import (
	"fmt"
	"strings"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

const (
	// SpanQueryPageSize is the fixed page size of the time-range search.
	SpanQueryPageSize = 10000

	multiTraceOperation = "multiResult"
	traceVariablePrefix = "traceId"
	traceAliasPrefix    = "res"

	traceSelection = "spans { traceId segmentId spanId parentSpanId serviceCode startTime endTime endpointName type peer component isError layer refs { traceId parentSegmentId parentSpanId type } }"

	basicTracesQuery = "query queryTraces($condition: TraceQueryCondition) { data: queryBasicTraces(condition: $condition) { traces { key: segmentId endpointNames duration start isError traceIds } total } }"
)

// TraceVariableName returns the variable bound to the trace id at index.
func TraceVariableName(index int) string {
	return fmt.Sprintf("%s%d", traceVariablePrefix, index)
}

// TraceAlias returns the alias selecting the trace id at index.
func TraceAlias(index int) string {
	return fmt.Sprintf("%s%d", traceAliasPrefix, index)
}

// BuildMultiTraceQuery builds one GraphQL document fetching every trace in ids.
// Each id gets a variable $traceId<i> and an aliased selection res<i>, both in
// input order. Declarations are separated by ", " with no separator before the
// first one. An empty ids yields "query multiResult() { }".
func BuildMultiTraceQuery(ids []domain.TraceID) domain.GraphQLRequest {
	var header, body strings.Builder
	vars := make(domain.Variables, 0, len(ids))

	header.WriteString("query " + multiTraceOperation + "(")
	body.WriteString(" ")

	for i, id := range ids {
		name := TraceVariableName(i)
		if i > 0 {
			header.WriteString(", ")
		}
		fmt.Fprintf(&header, "$%s: ID!", name)
		fmt.Fprintf(&body, "%s: queryTrace(traceId: $%s) { %s } ", TraceAlias(i), name, traceSelection)
		vars = append(vars, domain.Variable{Name: name, Value: string(id)})
	}

	header.WriteString(") {")
	body.WriteString("}")

	return domain.GraphQLRequest{
		Query:     header.String() + body.String(),
		Variables: vars,
	}
}

type queryDuration struct {
	Start string      `json:"start"`
	End   string      `json:"end"`
	Step  domain.Step `json:"step"`
}

type paging struct {
	PageNum   int  `json:"pageNum"`
	PageSize  int  `json:"pageSize"`
	NeedTotal bool `json:"needTotal"`
}

type traceQueryCondition struct {
	QueryDuration queryDuration `json:"queryDuration"`
	TraceState    string        `json:"traceState"`
	Paging        paging        `json:"paging"`
	QueryOrder    string        `json:"queryOrder"`
}

// BuildTimeRangeQuery builds the basic trace search over window, one page of
// SpanQueryPageSize traces ordered by duration.
func BuildTimeRangeQuery(window domain.TimeWindow, pageNum int, step domain.Step) (domain.GraphQLRequest, error) {
	start, err := window.Start.Format()
	if err != nil {
		return domain.GraphQLRequest{}, fmt.Errorf("start: %w", err)
	}
	end, err := window.End.Format()
	if err != nil {
		return domain.GraphQLRequest{}, fmt.Errorf("end: %w", err)
	}
	if step == "" {
		step = domain.DefaultStep
	}

	condition := traceQueryCondition{
		QueryDuration: queryDuration{Start: start, End: end, Step: step},
		TraceState:    "ALL",
		Paging: paging{
			PageNum:   pageNum,
			PageSize:  SpanQueryPageSize,
			NeedTotal: true,
		},
		QueryOrder: "BY_DURATION",
	}

	return domain.GraphQLRequest{
		Query:     basicTracesQuery,
		Variables: domain.Variables{{Name: "condition", Value: condition}},
	}, nil
}
