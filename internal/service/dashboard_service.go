package service

import (
	"context"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
)

const (
	ActivityDays       = 30
	RecentPatientCount = 5
)

type Dashboard struct {
	Today          domain.Date
	TotalPatients  int64
	RecentPatients []*patient.Patient
	// DailyActivity[i] is the number of prescriptions created on
	// Today-(ActivityDays-1-i); the last element is today.
	DailyActivity       []int
	PrescriptionsStatus prescription.StatusCounts
}

type DashboardService struct {
	patients      patient.Repository
	prescriptions prescription.Repository
	cal           Calendar
}

func NewDashboardService(patients patient.Repository, prescriptions prescription.Repository, cal Calendar) *DashboardService {
	return &DashboardService{patients: patients, prescriptions: prescriptions, cal: cal}
}

func (s *DashboardService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}

	today := s.cal.Today()

	total, err := s.patients.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	recent, err := s.patients.Recent(ctx, RecentPatientCount)
	if err != nil {
		return nil, fmt.Errorf("loading recent patients: %w", err)
	}

	first := today.AddDays(-(ActivityDays - 1))
	stamps, err := s.prescriptions.CreatedSince(ctx, s.cal.StartOf(first))
	if err != nil {
		return nil, err
	}
	activity := make([]int, ActivityDays)
	for _, ts := range stamps {
		day := domain.DateOf(ts.In(s.cal.location()))
		if i := first.DaysUntil(day); i >= 0 && i < ActivityDays {
			activity[i]++
		}
	}

	all, err := s.prescriptions.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := prescription.CountByStatus(all, today)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Today:               today,
		TotalPatients:       total,
		RecentPatients:      recent,
		DailyActivity:       activity,
		PrescriptionsStatus: counts,
	}, nil
}
