package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docc-lab/skywalking-collector/internal/core/domain"
)

// ReshapeTraces turns the "data" member of a multi-trace query response into
// one TraceResult per alias, ordered by alias index (res0, res1, ...).
// Span "type" becomes "spanType" and reference "type" becomes "refType";
// every other field is kept. A null alias or a missing "spans" yields an
// empty span list.
func ReshapeTraces(data json.RawMessage) ([]domain.TraceResult, error) {
	var aliases map[string]json.RawMessage
	if err := json.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("decode query data: %w", err)
	}

	type entry struct {
		index int
		raw   json.RawMessage
	}
	entries := make([]entry, 0, len(aliases))
	for alias, raw := range aliases {
		idx, err := aliasIndex(alias)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{index: idx, raw: raw})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })

	results := make([]domain.TraceResult, 0, len(entries))
	for _, e := range entries {
		var tr domain.TraceResult
		if err := json.Unmarshal(e.raw, &tr); err != nil {
			return nil, fmt.Errorf("alias %s: %w", TraceAlias(e.index), err)
		}
		results = append(results, tr)
	}
	return results, nil
}

func aliasIndex(alias string) (int, error) {
	digits, ok := strings.CutPrefix(alias, traceAliasPrefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("unexpected alias %q in query data", alias)
	}
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 0 || TraceAlias(idx) != alias {
		return 0, fmt.Errorf("unexpected alias %q in query data", alias)
	}
	return idx, nil
}

type basicTracesData struct {
	Data *struct {
		Traces json.RawMessage `json:"traces"`
		Total  int64           `json:"total"`
	} `json:"data"`
}

// ExtractBasicTraces pulls traces and total out of a time-range query
// response without reshaping them.
func ExtractBasicTraces(data json.RawMessage) (json.RawMessage, int64, error) {
	var parsed basicTracesData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, 0, fmt.Errorf("decode query data: %w", err)
	}
	if parsed.Data == nil {
		return nil, 0, fmt.Errorf("query data has no basic traces")
	}

	traces := parsed.Data.Traces
	if len(traces) == 0 || string(traces) == "null" {
		traces = json.RawMessage("[]")
	}
	return traces, parsed.Data.Total, nil
}
