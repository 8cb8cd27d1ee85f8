package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/google/uuid"
)

const (
	DefaultTopMedications = 10
	MaxTopMedications     = 100
	DefaultReportMonths   = 12
	MaxReportMonths       = 36
)

var csvHeader = []string{
	"patient_name", "sus_card", "medication", "dosage", "doctor_name",
	"prescription_date", "validity", "expiry_date", "status",
}

// DateRange is an inclusive range of issue dates. Zero bounds are filled by
// ReportService.resolve.
type DateRange struct {
	From domain.Date
	To   domain.Date
}

type MonthlyCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

type ReportService struct {
	prescriptions prescription.Repository
	patients      patient.Repository
	cal           Calendar
}

func NewReportService(prescriptions prescription.Repository, patients patient.Repository, cal Calendar) *ReportService {
	return &ReportService{prescriptions: prescriptions, patients: patients, cal: cal}
}

func (s *ReportService) TopMedications(ctx context.Context, r DateRange, limit int) ([]prescription.MedicationCount, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	r, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultTopMedications
	case limit > MaxTopMedications:
		limit = MaxTopMedications
	}
	return s.prescriptions.TopMedications(ctx, r.From, r.To, limit)
}

// MonthlyPrescriptions counts prescriptions by issue month over the last
// months months, the current one included, oldest first.
func (s *ReportService) MonthlyPrescriptions(ctx context.Context, months int) ([]MonthlyCount, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	switch {
	case months <= 0:
		months = DefaultReportMonths
	case months > MaxReportMonths:
		months = MaxReportMonths
	}

	today := s.cal.Today()
	start := domain.NewDate(today.Year(), today.Month()-time.Month(months-1), 1)

	ps, err := s.prescriptions.ListIssuedBetween(ctx, start, today)
	if err != nil {
		return nil, err
	}

	out := make([]MonthlyCount, months)
	index := make(map[string]int, months)
	for i := range out {
		m := domain.NewDate(start.Year(), start.Month()+time.Month(i), 1)
		key := m.String()[:7]
		out[i] = MonthlyCount{Month: key}
		index[key] = i
	}
	for _, p := range ps {
		if i, ok := index[p.PrescriptionDate.String()[:7]]; ok {
			out[i].Count++
		}
	}
	return out, nil
}

// ExportPrescriptionsCSV writes every prescription issued in r, with its
// status as of today, to w.
func (s *ReportService) ExportPrescriptionsCSV(ctx context.Context, r DateRange, w io.Writer) error {
	if _, err := sessionFrom(ctx); err != nil {
		return err
	}
	r, err := s.resolve(r)
	if err != nil {
		return err
	}

	ps, err := s.prescriptions.ListIssuedBetween(ctx, r.From, r.To)
	if err != nil {
		return err
	}

	ids := make([]uuid.UUID, 0, len(ps))
	seen := make(map[uuid.UUID]bool, len(ps))
	for _, p := range ps {
		if !seen[p.PatientID] {
			seen[p.PatientID] = true
			ids = append(ids, p.PatientID)
		}
	}
	patients, err := s.patients.GetMany(ctx, ids)
	if err != nil {
		return err
	}

	today := s.cal.Today()
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, p := range ps {
		expiry, err := p.ExpiryDate()
		if err != nil {
			return fmt.Errorf("prescription %s: %w", p.ID, err)
		}
		var name, card string
		if pt, ok := patients[p.PatientID]; ok {
			name, card = pt.Name, pt.SUSCard
		}
		record := []string{
			name, card, p.Medication, p.Dosage, p.DoctorName,
			p.PrescriptionDate.String(), strconv.Itoa(p.ValidityDays), expiry.String(),
			string(prescription.ClassifyStatus(expiry, today)),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// resolve defaults an empty range to the last twelve months, today included.
func (s *ReportService) resolve(r DateRange) (DateRange, error) {
	today := s.cal.Today()
	if r.To.IsZero() {
		r.To = today
	}
	if r.From.IsZero() {
		r.From = domain.NewDate(r.To.Year()-1, r.To.Month(), r.To.Day()).AddDays(1)
	}
	if r.From.After(r.To) {
		return r, &ValidationError{Fields: []string{"from must not be after to"}}
	}
	return r, nil
}
