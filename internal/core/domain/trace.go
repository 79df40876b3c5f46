package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// TraceID is an opaque trace identifier supplied by the caller.
type TraceID string

// ReferenceRecord links a span to a causally preceding segment/span.
// Upstream calls the reference kind "type"; it is exposed as refType.
type ReferenceRecord struct {
	TraceID         string `json:"traceId"`
	ParentSegmentID string `json:"parentSegmentId"`
	ParentSpanID    int64  `json:"parentSpanId"`
	RefType         string `json:"refType"`

	// Extra holds fields the upstream returned outside the known set, verbatim.
	Extra map[string]json.RawMessage `json:"-"`

	sent wireKeys
}

// SpanRecord is one timed unit of work within a trace.
// Upstream calls the span kind "type"; it is exposed as spanType.
type SpanRecord struct {
	TraceID      string            `json:"traceId"`
	SegmentID    string            `json:"segmentId"`
	SpanID       int64             `json:"spanId"`
	ParentSpanID int64             `json:"parentSpanId"`
	ServiceCode  string            `json:"serviceCode"`
	StartTime    int64             `json:"startTime"`
	EndTime      int64             `json:"endTime"`
	EndpointName *string           `json:"endpointName"`
	SpanType     string            `json:"spanType"`
	Peer         *string           `json:"peer"`
	Component    *string           `json:"component"`
	IsError      *bool             `json:"isError"`
	Layer        *string           `json:"layer"`
	Refs         []ReferenceRecord `json:"refs"`

	Extra map[string]json.RawMessage `json:"-"`

	sent wireKeys
}

// TraceResult is the reshaped answer for one requested trace id.
type TraceResult struct {
	Spans []SpanRecord `json:"spans"`

	// Extra holds sibling fields of "spans", verbatim.
	Extra map[string]json.RawMessage `json:"-"`

	sent wireKeys
}

// field is a known key: the name it is emitted under and where it decodes.
type field struct {
	name string
	dst  any
}

// fieldTable maps an accepted JSON key to its field. Upstream keys that
// need renaming appear next to their canonical name and take precedence
// over it when both are sent.
type fieldTable map[string]field

// wireKeys records which known fields a decoded object carried, by emitted
// name. A true value means the field was sent as null.
type wireKeys map[string]bool

func (r *ReferenceRecord) fields() fieldTable {
	return fieldTable{
		"traceId":         {"traceId", &r.TraceID},
		"parentSegmentId": {"parentSegmentId", &r.ParentSegmentID},
		"parentSpanId":    {"parentSpanId", &r.ParentSpanID},
		"type":            {"refType", &r.RefType},
		"refType":         {"refType", &r.RefType},
	}
}

func (s *SpanRecord) fields() fieldTable {
	return fieldTable{
		"traceId":      {"traceId", &s.TraceID},
		"segmentId":    {"segmentId", &s.SegmentID},
		"spanId":       {"spanId", &s.SpanID},
		"parentSpanId": {"parentSpanId", &s.ParentSpanID},
		"serviceCode":  {"serviceCode", &s.ServiceCode},
		"startTime":    {"startTime", &s.StartTime},
		"endTime":      {"endTime", &s.EndTime},
		"endpointName": {"endpointName", &s.EndpointName},
		"type":         {"spanType", &s.SpanType},
		"spanType":     {"spanType", &s.SpanType},
		"peer":         {"peer", &s.Peer},
		"component":    {"component", &s.Component},
		"isError":      {"isError", &s.IsError},
		"layer":        {"layer", &s.Layer},
		"refs":         {"refs", &s.Refs},
	}
}

func (t *TraceResult) fields() fieldTable {
	return fieldTable{
		"spans": {"spans", &t.Spans},
	}
}

// decodeFields decodes every key of data found in the table into its
// destination and returns the remaining keys untouched, along with the set
// of known fields that were present.
func decodeFields(data []byte, table fieldTable) (map[string]json.RawMessage, wireKeys, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var extra map[string]json.RawMessage
	sent := make(wireKeys, len(raw))
	// canonical keys first, so a renamed upstream key overwrites them
	for _, renamed := range []bool{false, true} {
		for key, value := range raw {
			f, ok := table[key]
			if !ok {
				if !renamed {
					if extra == nil {
						extra = make(map[string]json.RawMessage)
					}
					extra[key] = value
				}
				continue
			}
			if (key != f.name) != renamed {
				continue
			}

			isNull := bytes.Equal(bytes.TrimSpace(value), []byte("null"))
			if isNull {
				reflect.ValueOf(f.dst).Elem().SetZero()
			} else if err := json.Unmarshal(value, f.dst); err != nil {
				return nil, nil, fmt.Errorf("field %q: %w", key, err)
			}
			sent[f.name] = isNull
		}
	}
	return extra, sent, nil
}

// encodeFields marshals the known fields of v, keeps only those listed in
// sent, and merges extra into the resulting object. A nil sent set keeps
// every known field. The list field is always kept. Known fields win on a
// name clash.
func encodeFields(v any, sent wireKeys, list string, extra map[string]json.RawMessage) ([]byte, error) {
	known, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if sent == nil && len(extra) == 0 {
		return known, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(extra)+len(fields))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range fields {
		if sent != nil && k != list {
			isNull, ok := sent[k]
			if !ok {
				continue
			}
			if isNull {
				v = json.RawMessage("null")
			}
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON accepts both the upstream shape ("type") and the reshaped one ("refType").
func (r *ReferenceRecord) UnmarshalJSON(data []byte) error {
	*r = ReferenceRecord{}
	extra, sent, err := decodeFields(data, r.fields())
	if err != nil {
		return fmt.Errorf("decode reference: %w", err)
	}
	r.Extra, r.sent = extra, sent
	return nil
}

// MarshalJSON emits only the fields the record was decoded with. A record
// built in code emits all of them.
func (r ReferenceRecord) MarshalJSON() ([]byte, error) {
	type plain ReferenceRecord
	return encodeFields(plain(r), r.sent, "", r.Extra)
}

// UnmarshalJSON accepts both the upstream shape ("type") and the reshaped one ("spanType").
func (s *SpanRecord) UnmarshalJSON(data []byte) error {
	*s = SpanRecord{}
	extra, sent, err := decodeFields(data, s.fields())
	if err != nil {
		return fmt.Errorf("decode span: %w", err)
	}
	s.Extra, s.sent = extra, sent
	return nil
}

// MarshalJSON emits only the fields the span was decoded with, plus refs,
// which is always an array.
func (s SpanRecord) MarshalJSON() ([]byte, error) {
	type plain SpanRecord
	p := plain(s)
	if p.Refs == nil {
		p.Refs = []ReferenceRecord{}
	}
	return encodeFields(p, s.sent, "refs", s.Extra)
}

func (t *TraceResult) UnmarshalJSON(data []byte) error {
	*t = TraceResult{}
	extra, sent, err := decodeFields(data, t.fields())
	if err != nil {
		return fmt.Errorf("decode trace: %w", err)
	}
	t.Extra, t.sent = extra, sent
	return nil
}

func (t TraceResult) MarshalJSON() ([]byte, error) {
	type plain TraceResult
	p := plain(t)
	if p.Spans == nil {
		p.Spans = []SpanRecord{}
	}
	return encodeFields(p, t.sent, "spans", t.Extra)
}
