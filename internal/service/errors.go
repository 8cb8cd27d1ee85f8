package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

var (
	ErrForbidden       = errors.New("forbidden: insufficient permissions")
	ErrUnauthenticated = errors.New("authentication required")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// orNil returns a *ValidationError for the collected problems, or nil.
func orNil(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

func sessionFrom(ctx context.Context) (domain.Session, error) {
	s, ok := domain.SessionFrom(ctx)
	if !ok {
		return domain.Session{}, ErrUnauthenticated
	}
	return s, nil
}

// Calendar answers "what day is it" for the clinic.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	return Calendar{Now: time.Now, Location: loc}
}

func (c Calendar) Today() domain.Date {
	return domain.DateOf(c.now().In(c.location()))
}

// StartOf returns the first instant of d in the clinic time zone.
func (c Calendar) StartOf(d domain.Date) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, c.location())
}

func (c Calendar) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}
