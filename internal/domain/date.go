package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ISODateLayout = "2006-01-02"
	BRDateLayout  = "02/01/2006"
)

var (
	ErrParse           = errors.New("invalid calendar date")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ParseError reports a string that could not be read as a calendar date.
type ParseError struct {
	Input  string
	Layout string
}

func (e *ParseError) Error() string {
	if e.Layout != "" {
		return fmt.Sprintf("invalid calendar date %q (expected %s)", e.Input, e.Layout)
	}
	return fmt.Sprintf("invalid calendar date %q", e.Input)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Date is a calendar day with no time-of-day or zone component.
// The zero value is the zero date and reports IsZero.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate accepts ISO (2006-01-02) and pt-BR (02/01/2006) dates.
func ParseDate(s string) (Date, error) {
	raw := strings.TrimSpace(s)
	layout := ISODateLayout
	if strings.Contains(raw, "/") {
		layout = BRDateLayout
	}
	t, err := time.Parse(layout, raw)
	if err != nil {
		return Date{}, &ParseError{Input: s, Layout: layout}
	}
	return Date{t: t}, nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Day() int           { return d.t.Day() }
func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Time() time.Time    { return d.t }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays uses calendar arithmetic, so month and year rollover and leap
// years come from time.Date normalisation.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	return d.t.Compare(o.t)
}

// DaysUntil is the signed number of days from d to o.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(ISODateLayout)
}

// Format renders the date in the pt-BR layout used by the clinic screens.
func (d Date) Format() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(BRDateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &ParseError{Input: string(b)}
	}
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

// Value stores a Date in a SQL date column.
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("scanning date: unsupported type %T", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(ISODateLayout) {
		s = s[:len(ISODateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType keeps the column a plain SQL date.
func (Date) GormDataType() string {
	return "date"
}
