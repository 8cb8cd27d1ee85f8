package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

var _ patient.Repository = (*PatientRepository)(nil)

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("inserting patient: %w", err)
	}
	return nil
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	var p patient.Patient
	err := live(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient %s: %w", id, err)
	}
	return &p, nil
}

func (r *PatientRepository) GetBySUSCard(ctx context.Context, susCard string) (*patient.Patient, error) {
	var p patient.Patient
	err := live(r.db.WithContext(ctx)).First(&p, "sus_card = ?", susCard).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, patient.ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching patient by sus card: %w", err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, p *patient.Patient) error {
	res := live(r.db.WithContext(ctx).Model(p)).
		Select("name", "sus_card", "birth_date", "last_consultation", "updated_at").
		Updates(p)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return patient.ErrPatientAlreadyExists
		}
		return fmt.Errorf("updating patient %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := live(r.db.WithContext(ctx).Model(&patient.Patient{})).
		Where("id = ?", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("deleting patient %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return patient.ErrPatientNotFound
	}
	return nil
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	q.Normalize()

	tx := live(r.db.WithContext(ctx).Model(&patient.Patient{}))
	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := containsPattern(s)
		tx = tx.Where("(name ILIKE ? OR sus_card ILIKE ?)", pattern, pattern)
	}
	if q.BirthDate != nil {
		tx = tx.Where("birth_date = ?", *q.BirthDate)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("counting patients: %w", err)
	}

	var rows []*patient.Patient
	if err := tx.Order("name ASC").Order("id ASC").Offset(q.Offset()).Limit(q.PageSize).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing patients: %w", err)
	}

	return &patient.PagedPatients{
		Patients:   rows,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: patient.TotalPages(total, q.PageSize),
	}, nil
}

func (r *PatientRepository) Recent(ctx context.Context, limit int) ([]*patient.Patient, error) {
	var rows []*patient.Patient
	err := live(r.db.WithContext(ctx)).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing recent patients: %w", err)
	}
	return rows, nil
}

func (r *PatientRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := live(r.db.WithContext(ctx).Model(&patient.Patient{})).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting patients: %w", err)
	}
	return n, nil
}

func (r *PatientRepository) ExistsBySUSCard(ctx context.Context, susCard string, excludeID *uuid.UUID) (bool, error) {
	tx := live(r.db.WithContext(ctx).Model(&patient.Patient{})).Where("sus_card = ?", susCard)
	if excludeID != nil {
		tx = tx.Where("id <> ?", *excludeID)
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return false, fmt.Errorf("checking sus card: %w", err)
	}
	return n > 0, nil
}

func (r *PatientRepository) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*patient.Patient, error) {
	out := make(map[uuid.UUID]*patient.Patient, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*patient.Patient
	// Deleted patients are included so history stays attributable.
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetching patients: %w", err)
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}
