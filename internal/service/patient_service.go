package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxSUSCardLength = 20

type PatientService struct {
	repo     patient.Repository
	auditSvc *AuditService
	metrics  *metrics.Collector
	cal      Calendar
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, auditSvc *AuditService, m *metrics.Collector, cal Calendar, log *zap.Logger) *PatientService {
	return &PatientService{
		repo:     repo,
		auditSvc: auditSvc,
		metrics:  m,
		cal:      cal,
		log:      log,
	}
}

func (s *PatientService) CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}

	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.SUSCard = NormalizeSUSCard(cmd.SUSCard)
	if err := s.validateCreate(cmd); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsBySUSCard(ctx, cmd.SUSCard, nil)
	if err != nil {
		s.log.Error("failed to check sus card uniqueness", zap.Error(err))
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, patient.ErrPatientAlreadyExists
	}

	p := &patient.Patient{
		Name:             cmd.Name,
		SUSCard:          cmd.SUSCard,
		BirthDate:        cmd.BirthDate,
		LastConsultation: cmd.LastConsultation,
		CreatedBy:        sess.UserID,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, patient.ErrPatientAlreadyExists) {
			return nil, err
		}
		s.log.Error("failed to create patient", zap.Error(err))
		return nil, fmt.Errorf("creating patient: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PatientsCreatedTotal.Inc()
	}
	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionCreate,
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
	})
	s.log.Info("patient created",
		zap.String("patient_id", p.ID.String()),
		zap.String("created_by", sess.UserID.String()),
	)

	return p, nil
}

func (s *PatientService) GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionRead,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})

	return p, nil
}

func (s *PatientService) UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var errs []string
	changed := map[string]any{}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			errs = append(errs, "name must not be empty")
		}
		p.Name = name
		changed["name"] = name
	}
	if cmd.SUSCard != nil {
		card := NormalizeSUSCard(*cmd.SUSCard)
		errs = append(errs, validateSUSCard(card)...)
		if card != p.SUSCard && len(errs) == 0 {
			exists, err := s.repo.ExistsBySUSCard(ctx, card, &id)
			if err != nil {
				return nil, fmt.Errorf("checking uniqueness: %w", err)
			}
			if exists {
				return nil, patient.ErrPatientAlreadyExists
			}
		}
		p.SUSCard = card
		changed["sus_card"] = card
	}
	if cmd.BirthDate != nil {
		errs = append(errs, s.validateBirthDate(*cmd.BirthDate)...)
		p.BirthDate = *cmd.BirthDate
		changed["birth_date"] = cmd.BirthDate.String()
	}
	if cmd.LastConsultation != nil {
		lc := *cmd.LastConsultation
		if lc.IsZero() {
			p.LastConsultation = nil
		} else {
			p.LastConsultation = &lc
		}
		changed["last_consultation"] = lc.String()
	}

	if err := orNil(errs); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionUpdate,
		ResourceType: "patient",
		ResourceID:   id.String(),
		Changes:      changed,
	})

	return p, nil
}

// DeletePatient soft-deletes a patient. Only admins may do this.
func (s *PatientService) DeletePatient(ctx context.Context, id uuid.UUID) error {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return err
	}
	if !sess.IsAdmin() {
		return ErrForbidden
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		Action:       domain.ActionDelete,
		ResourceType: "patient",
		ResourceID:   id.String(),
	})
	s.log.Info("patient deleted",
		zap.String("patient_id", id.String()),
		zap.String("deleted_by", sess.UserID.String()),
	)
	return nil
}

func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	if _, err := sessionFrom(ctx); err != nil {
		return nil, err
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Normalize()
	return s.repo.List(ctx, q)
}

// ExistsBySUSCard lets importers skip patients already registered.
func (s *PatientService) ExistsBySUSCard(ctx context.Context, susCard string) (bool, error) {
	return s.repo.ExistsBySUSCard(ctx, NormalizeSUSCard(susCard), nil)
}

func (s *PatientService) Today() domain.Date {
	return s.cal.Today()
}

func (s *PatientService) validateCreate(cmd *patient.CreatePatientCommand) error {
	var errs []string

	if cmd.Name == "" {
		errs = append(errs, "name is required")
	}
	errs = append(errs, validateSUSCard(cmd.SUSCard)...)
	if cmd.BirthDate.IsZero() {
		errs = append(errs, "birth_date is required")
	} else {
		errs = append(errs, s.validateBirthDate(cmd.BirthDate)...)
	}

	return orNil(errs)
}

func (s *PatientService) validateBirthDate(d domain.Date) []string {
	if d.After(s.cal.Today()) {
		return []string{patient.ErrInvalidBirthDate.Error()}
	}
	return nil
}

func validateSUSCard(card string) []string {
	switch {
	case card == "":
		return []string{"sus_card is required"}
	case len(card) > maxSUSCardLength:
		return []string{fmt.Sprintf("sus_card must be at most %d digits", maxSUSCardLength)}
	case strings.IndexFunc(card, func(r rune) bool { return r < '0' || r > '9' }) >= 0:
		return []string{"sus_card must contain only digits"}
	}
	return nil
}

// NormalizeSUSCard strips the spaces, dots and dashes cards are often
// printed with.
func NormalizeSUSCard(card string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '.', '-', '\t':
			return -1
		}
		return r
	}, card)
}
