package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Step is the SkyWalking duration granularity tag.
type Step string

const (
	StepSecond Step = "SECOND"
	StepMinute Step = "MINUTE"
	StepHour   Step = "HOUR"
	StepDay    Step = "DAY"
)

// DefaultStep is used when neither the configuration nor the request names one.
const DefaultStep = StepMinute

// ParseStep validates a step tag, case-insensitively.
func ParseStep(s string) (Step, error) {
	switch step := Step(strings.ToUpper(strings.TrimSpace(s))); step {
	case StepSecond, StepMinute, StepHour, StepDay:
		return step, nil
	default:
		return "", fmt.Errorf("unknown step %q", s)
	}
}

// Variable is one named GraphQL variable.
type Variable struct {
	Name  string
	Value any
}

// Variables keeps GraphQL variables in declaration order.
// It encodes as a JSON object whose keys follow that order.
type Variables []Variable

// Get returns the value of the named variable.
func (v Variables) Get(name string) (any, bool) {
	for _, variable := range v {
		if variable.Name == name {
			return variable.Value, true
		}
	}
	return nil, false
}

func (v Variables) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, variable := range v {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(variable.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(variable.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", variable.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// GraphQLRequest is the POST body sent to the upstream /graphql endpoint.
type GraphQLRequest struct {
	Query     string    `json:"query"`
	Variables Variables `json:"variables"`
}

// DateField is a calendar component that callers send either as a JSON
// number or as a string of digits.
type DateField struct {
	Num   int64
	Str   string
	IsStr bool
}

// DateFieldFromInt builds a numeric component.
func DateFieldFromInt(n int) DateField {
	return DateField{Num: int64(n)}
}

// DateFieldFromString builds a string component.
func DateFieldFromString(s string) DateField {
	return DateField{Str: s, IsStr: true}
}

func (d *DateField) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		d.IsStr = true
		return json.Unmarshal(data, &d.Str)
	}
	d.IsStr = false
	return json.Unmarshal(data, &d.Num)
}

func (d DateField) MarshalJSON() ([]byte, error) {
	if d.IsStr {
		return json.Marshal(d.Str)
	}
	return json.Marshal(d.Num)
}

// Format renders the component. Numbers are zero-padded to width,
// strings are returned as sent once they are checked to be digits.
func (d DateField) Format(width int) (string, error) {
	if d.IsStr {
		if d.Str == "" {
			return "", fmt.Errorf("empty value")
		}
		for _, r := range d.Str {
			if r < '0' || r > '9' {
				return "", fmt.Errorf("%q is not a number", d.Str)
			}
		}
		return d.Str, nil
	}
	if d.Num < 0 {
		return "", fmt.Errorf("%d is negative", d.Num)
	}
	s := strconv.FormatInt(d.Num, 10)
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s, nil
}

// Instant is a minute-precision point in time as the caller spells it.
type Instant struct {
	Year   DateField
	Month  DateField
	Day    DateField
	Hour   DateField
	Minute DateField
}

// Format renders the instant in the SkyWalking minute layout "YYYY-MM-DD HHmm".
func (i Instant) Format() (string, error) {
	parts := []struct {
		name  string
		field DateField
		width int
	}{
		{"year", i.Year, 4},
		{"month", i.Month, 2},
		{"day", i.Day, 2},
		{"hour", i.Hour, 2},
		{"minute", i.Minute, 2},
	}

	out := make([]string, len(parts))
	for idx, p := range parts {
		s, err := p.field.Format(p.width)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p.name, err)
		}
		out[idx] = s
	}
	return fmt.Sprintf("%s-%s-%s %s%s", out[0], out[1], out[2], out[3], out[4]), nil
}

// TimeWindow is the queried duration.
type TimeWindow struct {
	Start Instant
	End   Instant
}

// SpanQuery is a time-windowed basic trace search.
type SpanQuery struct {
	Window  TimeWindow
	PageNum int
	Step    Step // empty means the configured default
}
