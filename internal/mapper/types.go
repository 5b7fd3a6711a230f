package mapper

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/josh-kwaku/backoffice/internal/format"
)

var null = []byte("null")

// Amount decodes a feed amount into centavos. Integer JSON numbers are already
// minor units; decimal numbers and strings are reais and get converted.
type Amount struct {
	Minor int64
	Valid bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	*a = Amount{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		if minor, err := format.ParseAmount(s); err == nil {
			*a = Amount{Minor: minor, Valid: true}
		}
		return nil
	}

	raw := string(b)
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			*a = Amount{Minor: n, Valid: true}
		}
		return nil
	}

	if d, err := decimal.NewFromString(raw); err == nil {
		*a = Amount{Minor: format.MinorUnits(d), Valid: true}
	}
	return nil
}

func (a Amount) Ptr() *int64 {
	if !a.Valid {
		return nil
	}
	v := a.Minor
	return &v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp tolerates the handful of layouts the feeds use. Values without a
// zone are read as UTC; anything unparsable is left zero.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	t.Time = time.Time{}
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return nil
}

func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// Text accepts a JSON string or number; payable ids and gateway ids arrive
// as numbers on some endpoints.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	*t = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Text(n.String())
	}
	return nil
}

func (t Text) String() string { return string(t) }

// OptionalInt accepts a number or a numeric string.
type OptionalInt struct {
	Value int
	Valid bool
}

func (o *OptionalInt) UnmarshalJSON(b []byte) error {
	*o = OptionalInt{}
	var txt Text
	if err := txt.UnmarshalJSON(b); err != nil || txt == "" {
		return nil
	}
	if n, err := strconv.Atoi(string(txt)); err == nil {
		*o = OptionalInt{Value: n, Valid: true}
	}
	return nil
}

func (o OptionalInt) Ptr() *int {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}

// OptionalFloat accepts a number or a numeric string.
type OptionalFloat struct {
	Value float64
	Valid bool
}

func (o *OptionalFloat) UnmarshalJSON(b []byte) error {
	*o = OptionalFloat{}
	var txt Text
	if err := txt.UnmarshalJSON(b); err != nil || txt == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(string(txt), 64); err == nil {
		*o = OptionalFloat{Value: f, Valid: true}
	}
	return nil
}

func (o OptionalFloat) Ptr() *float64 {
	if !o.Valid {
		return nil
	}
	v := o.Value
	return &v
}
