package prescription

import (
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

// Status is the validity state of a prescription relative to a given day.
//
// As days pass a prescription only moves forward:
//
//	valid → expiring-soon → expired
//
// Editing the prescription date or validity can move it back.
type Status string

const (
	StatusValid        Status = "valid"
	StatusExpiringSoon Status = "expiring-soon"
	StatusExpired      Status = "expired"
)

// Window is the number of days before expiry, expiry day included, during
// which a prescription is flagged for renewal.
const Window = 7

// StatusFilter selects prescriptions by computed status. The zero value matches all.
type StatusFilter string

const (
	FilterAll          StatusFilter = "all"
	FilterValid                     = StatusFilter(StatusValid)
	FilterExpiringSoon              = StatusFilter(StatusExpiringSoon)
	FilterExpired                   = StatusFilter(StatusExpired)
)

func ParseStatusFilter(s string) (StatusFilter, error) {
	switch StatusFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterValid, FilterExpiringSoon, FilterExpired:
		return StatusFilter(s), nil
	}
	return "", ErrInvalidStatusFilter
}

func (f StatusFilter) matches(s Status) bool {
	return f == "" || f == FilterAll || Status(f) == s
}

// ComputeExpiry returns the date validityDays calendar days after issued.
func ComputeExpiry(issued domain.Date, validityDays int) (domain.Date, error) {
	if validityDays < 0 {
		return domain.Date{}, ErrInvalidValidityDays
	}
	return issued.AddDays(validityDays), nil
}

// ClassifyStatus places expiry relative to today. Expiry today is still
// expiring-soon; only a strictly past expiry is expired.
func ClassifyStatus(expiry, today domain.Date) Status {
	switch {
	case expiry.Before(today):
		return StatusExpired
	case expiry.After(today.AddDays(Window)):
		return StatusValid
	default:
		return StatusExpiringSoon
	}
}

// FilterByStatus returns, in input order, the prescriptions whose status as
// of today matches filter. The input slice is not modified.
func FilterByStatus(ps []*Prescription, filter StatusFilter, today domain.Date) ([]*Prescription, error) {
	if _, err := ParseStatusFilter(string(filter)); err != nil {
		return nil, err
	}
	if filter == "" || filter == FilterAll {
		return ps, nil
	}

	out := make([]*Prescription, 0, len(ps))
	for _, p := range ps {
		s, err := p.Status(today)
		if err != nil {
			return nil, err
		}
		if filter.matches(s) {
			out = append(out, p)
		}
	}
	return out, nil
}

type StatusCounts struct {
	Valid    int `json:"valid"`
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
}

func (c StatusCounts) Total() int {
	return c.Valid + c.Expiring + c.Expired
}

func CountByStatus(ps []*Prescription, today domain.Date) (StatusCounts, error) {
	var c StatusCounts
	for _, p := range ps {
		s, err := p.Status(today)
		if err != nil {
			return StatusCounts{}, err
		}
		switch s {
		case StatusValid:
			c.Valid++
		case StatusExpiringSoon:
			c.Expiring++
		case StatusExpired:
			c.Expired++
		}
	}
	return c, nil
}
