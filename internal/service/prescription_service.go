package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PrescriptionView is a prescription with its status evaluated for a given day.
type PrescriptionView struct {
	*prescription.Prescription
	ExpiryDate domain.Date
	Status     prescription.Status
}

type PrescriptionService struct {
	repo        prescription.Repository
	patientRepo patient.Repository
	auditSvc    *AuditService
	metrics     *metrics.Collector
	cal         Calendar
	log         *zap.Logger
}

func NewPrescriptionService(
	repo prescription.Repository,
	patientRepo patient.Repository,
	auditSvc *AuditService,
	m *metrics.Collector,
	cal Calendar,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		repo:        repo,
		patientRepo: patientRepo,
		auditSvc:    auditSvc,
		metrics:     m,
		cal:         cal,
		log:         log,
	}
}

// CreatePrescriptions validates every item, then inserts the whole batch
// atomically for one patient.
func (s *PrescriptionService) CreatePrescriptions(ctx context.Context, patientID uuid.UUID, cmds []prescription.CreatePrescriptionCommand) ([]PrescriptionView, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	if len(cmds) == 0 {
		return nil, &ValidationError{Fields: []string{"at least one prescription is required"}}
	}

	var errs []string
	for i := range cmds {
		errs = append(errs, validateCreatePrescription(i, &cmds[i])...)
	}
	if err := orNil(errs); err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, patientID); err != nil {
		return nil, err
	}

	ps := make([]*prescription.Prescription, len(cmds))
	for i, cmd := range cmds {
		ps[i] = &prescription.Prescription{
			PatientID:        patientID,
			Medication:       cmd.Medication,
			Dosage:           cmd.Dosage,
			Instructions:     cmd.Instructions,
			DoctorName:       cmd.DoctorName,
			PrescriptionDate: cmd.PrescriptionDate,
			ValidityDays:     cmd.ValidityDays,
			CreatedBy:        sess.UserID,
		}
	}

	if err := s.repo.CreateBatch(ctx, ps); err != nil {
		s.log.Error("failed to create prescriptions", zap.Error(err), zap.Int("count", len(ps)))
		return nil, fmt.Errorf("creating prescriptions: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PrescriptionsIssued.Add(float64(len(ps)))
	}
	for _, p := range ps {
		s.auditSvc.LogAsync(ctx, AuditEntry{
			Action:       domain.ActionCreate,
			ResourceType: "prescription",
			ResourceID:   p.ID.String(),
			Changes:      map[string]string{"patient_id": patientID.String()},
		})
	}
	s.log.Info("prescriptions created",
		zap.String("patient_id", patientID.String()),
		zap.Int("count", len(ps)),
	)

	return s.views(ps, s.cal.Today())
}

func (s *PrescriptionService) GetPrescription(ctx context.Context, id uuid.UUID) (*PrescriptionView, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(p, s.cal.Today())
}

func (s *PrescriptionService) UpdatePrescription(ctx context.Context, id uuid.UUID, cmd *prescription.UpdatePrescriptionCommand) (*PrescriptionView, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs []string
	required := func(field string, v *string, dst *string) {
		if v == nil {
			return
		}
		t := strings.TrimSpace(*v)
		if t == "" {
			errs = append(errs, field+" must not be empty")
		}
		*dst = t
	}
	required("medication", cmd.Medication, &p.Medication)
	required("dosage", cmd.Dosage, &p.Dosage)
	required("doctor_name", cmd.DoctorName, &p.DoctorName)
	if cmd.Instructions != nil {
		p.Instructions = strings.TrimSpace(*cmd.Instructions)
	}
	if cmd.PrescriptionDate != nil {
		if cmd.PrescriptionDate.IsZero() {
			errs = append(errs, "prescription_date must not be empty")
		}
		p.PrescriptionDate = *cmd.PrescriptionDate
	}
	if cmd.ValidityDays != nil {
		if !prescription.IsAllowedValidity(*cmd.ValidityDays) {
			errs = append(errs, validityMessage("validity"))
		}
		p.ValidityDays = *cmd.ValidityDays
	}
	if err := orNil(errs); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionUpdate,
		ResourceType: "prescription",
		ResourceID:   id.String(),
	})

	return s.view(p, s.cal.Today())
}

func (s *PrescriptionService) DeletePrescription(ctx context.Context, id uuid.UUID) error {
	if _, err := sessionFrom(ctx); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionDelete,
		ResourceType: "prescription",
		ResourceID:   id.String(),
	})
	return nil
}

// ListPatientPrescriptions returns a patient's prescriptions shaped by the
// requested view and narrowed by status.
func (s *PrescriptionService) ListPatientPrescriptions(ctx context.Context, q prescription.ListPrescriptionsQuery) ([]PrescriptionView, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}

	view, err := prescription.ParseView(string(q.View))
	if err != nil {
		return nil, err
	}
	filter, err := prescription.ParseStatusFilter(string(q.Status))
	if err != nil {
		return nil, err
	}

	if _, err := s.patientRepo.GetByID(ctx, q.PatientID); err != nil {
		return nil, err
	}

	ps, err := s.repo.ListByPatient(ctx, q.PatientID)
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}

	today := s.cal.Today()

	switch view {
	case prescription.ViewRecent:
		ps = sortedBy(ps, func(a, b *prescription.Prescription) bool {
			return a.PrescriptionDate.After(b.PrescriptionDate)
		})
	case prescription.ViewExpiring:
		if ps, err = prescription.FilterByStatus(ps, prescription.FilterExpiringSoon, today); err != nil {
			return nil, err
		}
		ps = sortedBy(ps, func(a, b *prescription.Prescription) bool {
			ea, _ := a.ExpiryDate()
			eb, _ := b.ExpiryDate()
			return ea.Before(eb)
		})
	}

	if ps, err = prescription.FilterByStatus(ps, filter, today); err != nil {
		return nil, err
	}

	return s.views(ps, today)
}

func (s *PrescriptionService) Today() domain.Date {
	return s.cal.Today()
}

func (s *PrescriptionService) view(p *prescription.Prescription, today domain.Date) (*PrescriptionView, error) {
	expiry, err := p.ExpiryDate()
	if err != nil {
		return nil, fmt.Errorf("prescription %s: %w", p.ID, err)
	}
	status := prescription.ClassifyStatus(expiry, today)
	if s.metrics != nil {
		s.metrics.StatusEvaluations.WithLabelValues(string(status)).Inc()
	}
	return &PrescriptionView{Prescription: p, ExpiryDate: expiry, Status: status}, nil
}

func (s *PrescriptionService) views(ps []*prescription.Prescription, today domain.Date) ([]PrescriptionView, error) {
	out := make([]PrescriptionView, 0, len(ps))
	for _, p := range ps {
		v, err := s.view(p, today)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

// sortedBy returns a stably sorted copy of ps.
func sortedBy(ps []*prescription.Prescription, less func(a, b *prescription.Prescription) bool) []*prescription.Prescription {
	out := make([]*prescription.Prescription, len(ps))
	copy(out, ps)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func validateCreatePrescription(i int, cmd *prescription.CreatePrescriptionCommand) []string {
	var errs []string
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

	cmd.Medication = strings.TrimSpace(cmd.Medication)
	cmd.Dosage = strings.TrimSpace(cmd.Dosage)
	cmd.DoctorName = strings.TrimSpace(cmd.DoctorName)
	cmd.Instructions = strings.TrimSpace(cmd.Instructions)

	if cmd.Medication == "" {
		errs = append(errs, field("medication")+" is required")
	}
	if cmd.Dosage == "" {
		errs = append(errs, field("dosage")+" is required")
	}
	if cmd.DoctorName == "" {
		errs = append(errs, field("doctor_name")+" is required")
	}
	if cmd.PrescriptionDate.IsZero() {
		errs = append(errs, field("prescription_date")+" is required")
	}
	if cmd.ValidityDays == 0 {
		cmd.ValidityDays = prescription.DefaultValidityDays
	}
	if !prescription.IsAllowedValidity(cmd.ValidityDays) {
		errs = append(errs, validityMessage(field("validity")))
	}
	return errs
}

func validityMessage(field string) string {
	days := make([]string, len(prescription.AllowedValidityPeriods))
	for i, d := range prescription.AllowedValidityPeriods {
		days[i] = fmt.Sprint(d)
	}
	return field + " must be one of " + strings.Join(days, ", ") + " days"
}
