package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedDate reports a raw statement date that cannot be resolved
// into a calendar date. A build that hits it aborts; passing unnormalized
// strings downstream is forbidden because month bucketing assumes
// ISO-sortable dates.
var ErrMalformedDate = errors.New("malformed date")

// Date is a fully resolved calendar date (year always present).
type Date struct {
	time.Time
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero (for optional dates such as post dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO returns the zero-padded YYYY-MM-DD form.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the YYYY-MM calendar month bucket.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// NormalizeDate resolves a raw MM/DD statement date against the statement
// year. The raw string must split into exactly two numeric components;
// anything else fails with ErrMalformedDate. Pure: the year always comes
// from the caller, never from an ambient clock.
func NormalizeDate(raw string, year int) (Date, error) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformedDate, raw)
	}
	return NewDate(year, month, day), nil
}

// monthAnchor converts a YYYY-MM bucket into a calendar instant for
// ordering. Buckets are ordered chronologically; for well-formed ISO keys
// this coincides with string order, but the contract is calendar time.
func monthAnchor(key string) time.Time {
	t, err := time.Parse("2006-01-02", key+"-01")
	if err != nil {
		return time.Time{}
	}
	return t
}
