package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

func TestBuildMultiTraceQuery_TwoIDs(t *testing.T) {
	req := BuildMultiTraceQuery([]domain.TraceID{"t1", "t2"})

	assert.True(t, strings.HasPrefix(req.Query, "query multiResult($traceId0: ID!, $traceId1: ID!) { "), req.Query)
	assert.Contains(t, req.Query, "res0: queryTrace(traceId: $traceId0) { spans { ")
	assert.Contains(t, req.Query, "res1: queryTrace(traceId: $traceId1) { spans { ")
	assert.Less(t, strings.Index(req.Query, "res0:"), strings.Index(req.Query, "res1:"))
	assert.True(t, strings.HasSuffix(req.Query, "} } } }"), req.Query)

	raw, err := json.Marshal(req.Variables)
	require.NoError(t, err)
	assert.Equal(t, `{"traceId0":"t1","traceId1":"t2"}`, string(raw))
}

func TestBuildMultiTraceQuery_Empty(t *testing.T) {
	req := BuildMultiTraceQuery(nil)

	assert.Equal(t, "query multiResult() { }", req.Query)
	assert.Empty(t, req.Variables)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"query multiResult() { }","variables":{}}`, string(raw))
}

func TestBuildMultiTraceQuery_Counts(t *testing.T) {
	for _, n := range []int{1, 3, 10, 11, 57} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			ids := make([]domain.TraceID, n)
			for i := range ids {
				ids[i] = domain.TraceID(fmt.Sprintf("trace-%d", i))
			}

			req := BuildMultiTraceQuery(ids)

			header := req.Query[:strings.Index(req.Query, ")")+1]
			assert.Equal(t, n, strings.Count(header, ": ID!"))
			assert.Equal(t, n-1, strings.Count(header, ", "))
			assert.NotContains(t, header, "(, ")
			assert.Equal(t, n, strings.Count(req.Query, ": queryTrace(traceId: $traceId"))

			require.Len(t, req.Variables, n)
			for i, v := range req.Variables {
				assert.Equal(t, TraceVariableName(i), v.Name)
				assert.Equal(t, string(ids[i]), v.Value)
				assert.Contains(t, req.Query, fmt.Sprintf("%s: queryTrace(traceId: $%s)", TraceAlias(i), v.Name))
			}
		})
	}
}

func TestBuildMultiTraceQuery_SelectsSpanFields(t *testing.T) {
	req := BuildMultiTraceQuery([]domain.TraceID{"abc"})

	for _, field := range []string{
		"traceId", "segmentId", "spanId", "parentSpanId", "serviceCode", "startTime", "endTime",
		"endpointName", "type", "peer", "component", "isError", "layer",
		"refs { traceId parentSegmentId parentSpanId type }",
	} {
		assert.Contains(t, req.Query, field)
	}
}

func TestBuildTimeRangeQuery(t *testing.T) {
	window := domain.TimeWindow{
		Start: domain.Instant{
			Year:   domain.DateFieldFromInt(2024),
			Month:  domain.DateFieldFromInt(3),
			Day:    domain.DateFieldFromString("07"),
			Hour:   domain.DateFieldFromString("09"),
			Minute: domain.DateFieldFromInt(5),
		},
		End: domain.Instant{
			Year:   domain.DateFieldFromString("2024"),
			Month:  domain.DateFieldFromString("03"),
			Day:    domain.DateFieldFromInt(7),
			Hour:   domain.DateFieldFromInt(10),
			Minute: domain.DateFieldFromInt(45),
		},
	}

	req, err := BuildTimeRangeQuery(window, 3, domain.StepDay)
	require.NoError(t, err)

	assert.Equal(t, basicTracesQuery, req.Query)
	raw, err := json.Marshal(req.Variables)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"condition": {
			"queryDuration": {"start": "2024-03-07 0905", "end": "2024-03-07 1045", "step": "DAY"},
			"traceState": "ALL",
			"paging": {"pageNum": 3, "pageSize": 10000, "needTotal": true},
			"queryOrder": "BY_DURATION"
		}
	}`, string(raw))
}

func TestBuildTimeRangeQuery_DefaultStep(t *testing.T) {
	zero := domain.DateFieldFromInt(0)
	instant := domain.Instant{Year: domain.DateFieldFromInt(2024), Month: zero, Day: zero, Hour: zero, Minute: zero}

	req, err := BuildTimeRangeQuery(domain.TimeWindow{Start: instant, End: instant}, 1, "")
	require.NoError(t, err)

	cond, ok := req.Variables.Get("condition")
	require.True(t, ok)
	assert.Equal(t, domain.StepMinute, cond.(traceQueryCondition).QueryDuration.Step)
}

func TestBuildTimeRangeQuery_InvalidInstant(t *testing.T) {
	ok := domain.DateFieldFromInt(1)
	window := domain.TimeWindow{
		Start: domain.Instant{Year: ok, Month: ok, Day: ok, Hour: domain.DateFieldFromString("9am"), Minute: ok},
		End:   domain.Instant{Year: ok, Month: ok, Day: ok, Hour: ok, Minute: ok},
	}

	_, err := BuildTimeRangeQuery(window, 1, domain.StepMinute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start: hour")
}
