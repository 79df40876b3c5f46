package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReshapeTraces_RenamesTypeFields(t *testing.T) {
	data := json.RawMessage(`{"res0": {"spans": [{"type": "Exit", "refs": [{"type": "CrossProcess"}]}]}}`)

	results, err := ReshapeTraces(data)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Len(t, results[0].Spans, 1)

	span := results[0].Spans[0]
	assert.Equal(t, "Exit", span.SpanType)
	require.Len(t, span.Refs, 1)
	assert.Equal(t, "CrossProcess", span.Refs[0].RefType)

	out, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"spans": [{"spanType": "Exit", "refs": [{"refType": "CrossProcess"}]}]}]`, string(out))
}

func TestReshapeTraces_NullsPassThrough(t *testing.T) {
	data := json.RawMessage(`{"res0": {"spans": [{"type": "Entry", "serviceCode": null, "endpointName": null, "spanId": null, "refs": [{"type": "CrossThread", "parentSegmentId": null}]}]}}`)

	results, err := ReshapeTraces(data)
	require.NoError(t, err)

	out, err := json.Marshal(results)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"spans": [{"spanType": "Entry", "serviceCode": null, "endpointName": null, "spanId": null, "refs": [{"refType": "CrossThread", "parentSegmentId": null}]}]}]`, string(out))
}

func TestReshapeTraces_KeepsOtherFields(t *testing.T) {
	data := json.RawMessage(`{"res0": {
		"traceId": "t-1",
		"spans": [{
			"traceId": "t-1",
			"segmentId": "seg-a",
			"spanId": 2,
			"parentSpanId": -1,
			"serviceCode": "frontend",
			"startTime": 1700000000000,
			"endTime": 1700000000250,
			"endpointName": "/api/orders",
			"type": "Entry",
			"peer": null,
			"component": "SpringMVC",
			"isError": false,
			"layer": "Http",
			"tags": [{"key": "http.method", "value": "GET"}],
			"refs": [{"traceId": "t-1", "parentSegmentId": "seg-0", "parentSpanId": 1, "type": "CrossThread", "note": "x"}]
		}]
	}}`)

	results, err := ReshapeTraces(data)
	require.NoError(t, err)
	require.Len(t, results, 1)

	out, err := json.Marshal(results[0])
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"traceId": "t-1",
		"spans": [{
			"traceId": "t-1",
			"segmentId": "seg-a",
			"spanId": 2,
			"parentSpanId": -1,
			"serviceCode": "frontend",
			"startTime": 1700000000000,
			"endTime": 1700000000250,
			"endpointName": "/api/orders",
			"spanType": "Entry",
			"peer": null,
			"component": "SpringMVC",
			"isError": false,
			"layer": "Http",
			"tags": [{"key": "http.method", "value": "GET"}],
			"refs": [{"traceId": "t-1", "parentSegmentId": "seg-0", "parentSpanId": 1, "refType": "CrossThread", "note": "x"}]
		}]
	}`, string(out))
}

func TestReshapeTraces_AliasOrder(t *testing.T) {
	const k = 12
	parts := make([]string, 0, k)
	// Written in reverse so that res10/res11 would sort before res2 lexically.
	for i := k - 1; i >= 0; i-- {
		parts = append(parts, fmt.Sprintf(`"res%d": {"spans": [{"segmentId": "seg-%d", "type": "Local"}]}`, i, i))
	}
	data := json.RawMessage("{" + strings.Join(parts, ",") + "}")

	results, err := ReshapeTraces(data)
	require.NoError(t, err)
	require.Len(t, results, k)
	for i, r := range results {
		require.Len(t, r.Spans, 1)
		assert.Equal(t, fmt.Sprintf("seg-%d", i), r.Spans[0].SegmentID)
	}
}

func TestReshapeTraces_MissingSpansAndRefs(t *testing.T) {
	data := json.RawMessage(`{"res0": {}, "res1": null, "res2": {"spans": [{"type": "Local"}]}}`)

	results, err := ReshapeTraces(data)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Empty(t, results[0].Spans)
	assert.Empty(t, results[1].Spans)
	require.Len(t, results[2].Spans, 1)
	assert.Empty(t, results[2].Spans[0].Refs)

	out, err := json.Marshal(results)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"spans":[]`)
	assert.Contains(t, string(out), `"refs":[]`)
}

func TestReshapeTraces_Empty(t *testing.T) {
	results, err := ReshapeTraces(json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReshapeTraces_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not_an_object", `[1, 2]`},
		{"unknown_alias", `{"trace": {"spans": []}}`},
		{"padded_alias", `{"res01": {"spans": []}}`},
		{"bad_span_field", `{"res0": {"spans": [{"spanId": "one"}]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReshapeTraces(json.RawMessage(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestExtractBasicTraces(t *testing.T) {
	data := json.RawMessage(`{"data": {"traces": [{"key": "seg-1", "endpointNames": ["/a"], "duration": 12, "start": "1700000000000", "isError": false, "traceIds": ["t-1"]}], "total": 1}}`)

	traces, total, err := ExtractBasicTraces(data)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.JSONEq(t, `[{"key": "seg-1", "endpointNames": ["/a"], "duration": 12, "start": "1700000000000", "isError": false, "traceIds": ["t-1"]}]`, string(traces))
}

func TestExtractBasicTraces_NullTraces(t *testing.T) {
	traces, total, err := ExtractBasicTraces(json.RawMessage(`{"data": {"traces": null, "total": 0}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Equal(t, "[]", string(traces))
}

func TestExtractBasicTraces_MissingData(t *testing.T) {
	_, _, err := ExtractBasicTraces(json.RawMessage(`{}`))
	assert.Error(t, err)
}
