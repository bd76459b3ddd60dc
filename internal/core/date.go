package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

var (
	ErrMissingDate = errors.New("date is required")
	ErrInvalidDate = errors.New("date must be formatted YYYY-MM-DD")
)

// Date is a calendar day, held as midnight UTC. A Date decoded from an
// unparseable stored value keeps the original JSON token and reports !Valid.
type Date struct {
	time.Time
	raw string
}

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts YYYY-MM-DD and RFC 3339 timestamps. For timestamps the
// calendar day is taken in the timestamp's own offset.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	if t, err := time.Parse(DayLayout, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, ErrInvalidDate
}

// Valid reports whether the date was parseable and set.
func (d Date) Valid() bool {
	return d.raw == "" && !d.IsZero()
}

// After orders valid dates chronologically and places invalid ones last.
func (d Date) After(o Date) bool {
	if !d.Valid() {
		return false
	}
	if !o.Valid() {
		return true
	}
	return d.Time.After(o.Time)
}

// DayKey is the bucket key for daily series.
func (d Date) DayKey() string {
	return d.Format(DayLayout)
}

// MonthKey is the bucket key for monthly series.
func (d Date) MonthKey() string {
	return d.Format(MonthLayout)
}

func (d Date) String() string {
	if d.raw != "" {
		return d.raw
	}
	if d.IsZero() {
		return ""
	}
	return d.DayKey()
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.raw != "" {
		return []byte(d.raw), nil
	}
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.DayKey())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*d = Date{raw: string(data)}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		*d = Date{raw: string(data)}
		return nil
	}
	*d = parsed
	return nil
}
