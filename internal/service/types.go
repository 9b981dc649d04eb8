package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"
)

// Task represents a single to-do item.
type Task struct {
	ID          int64  `json:"id,omitempty"` // 0 until the server assigns one
	Title       string `json:"title"`
	DueDate     Date   `json:"dueDate"`
	IsCompleted bool   `json:"isCompleted"`
}

// HasID reports whether the task has been persisted.
func (t Task) HasID() bool {
	return t.ID != 0
}

// dateLayouts are tried in order when decoding a due date.
// The zone-less forms are what .NET-style servers echo back.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Date is a calendar due date serialized as an ISO-8601 string.
// Values built by NewDate and ParseDate hold midnight UTC of their day.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 date or date-time.
// The calendar day is taken as written, in the value's own offset; the time
// of day is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Date()), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date: %q (want YYYY-MM-DD)", s)
}

// String renders the calendar day, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format("2006-01-02")
}

// MarshalJSON encodes the date as RFC 3339 in UTC.
// The zero Date encodes as an empty string.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON accepts any of dateLayouts, null or "".
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
