package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

var _ prescription.Repository = (*PrescriptionRepository)(nil)

func (r *PrescriptionRepository) CreateBatch(ctx context.Context, ps []*prescription.Prescription) error {
	if len(ps) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ps).Error; err != nil {
			return fmt.Errorf("inserting %d prescriptions: %w", len(ps), err)
		}
		return nil
	})
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var p prescription.Prescription
	err := live(r.db.WithContext(ctx)).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching prescription %s: %w", id, err)
	}
	return &p, nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, p *prescription.Prescription) error {
	res := live(r.db.WithContext(ctx).Model(p)).
		Select("medication", "dosage", "instructions", "doctor_name", "prescription_date", "validity", "updated_at").
		Updates(p)
	if res.Error != nil {
		return fmt.Errorf("updating prescription %s: %w", p.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return prescription.ErrPrescriptionNotFound
	}
	return nil
}

func (r *PrescriptionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := live(r.db.WithContext(ctx).Model(&prescription.Prescription{})).
		Where("id = ?", id).
		Update("deleted_at", time.Now().UTC())
	if res.Error != nil {
		return fmt.Errorf("deleting prescription %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return prescription.ErrPrescriptionNotFound
	}
	return nil
}

func (r *PrescriptionRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	var rows []*prescription.Prescription
	err := live(r.db.WithContext(ctx)).
		Where("patient_id = ?", patientID).
		Order("prescription_date DESC").Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions of patient %s: %w", patientID, err)
	}
	return rows, nil
}

func (r *PrescriptionRepository) ListAll(ctx context.Context) ([]*prescription.Prescription, error) {
	var rows []*prescription.Prescription
	if err := live(r.db.WithContext(ctx)).Order("prescription_date DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing prescriptions: %w", err)
	}
	return rows, nil
}

func (r *PrescriptionRepository) ListIssuedBetween(ctx context.Context, from, to domain.Date) ([]*prescription.Prescription, error) {
	var rows []*prescription.Prescription
	err := live(r.db.WithContext(ctx)).
		Where("prescription_date BETWEEN ? AND ?", from, to).
		Order("prescription_date ASC").Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing prescriptions issued %s..%s: %w", from, to, err)
	}
	return rows, nil
}

func (r *PrescriptionRepository) CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var stamps []time.Time
	err := live(r.db.WithContext(ctx).Model(&prescription.Prescription{})).
		Where("created_at >= ?", since).
		Pluck("created_at", &stamps).Error
	if err != nil {
		return nil, fmt.Errorf("loading prescription activity: %w", err)
	}
	return stamps, nil
}

func (r *PrescriptionRepository) TopMedications(ctx context.Context, from, to domain.Date, limit int) ([]prescription.MedicationCount, error) {
	var rows []prescription.MedicationCount
	err := live(r.db.WithContext(ctx).Model(&prescription.Prescription{})).
		Select("medication, COUNT(*) AS count").
		Where("prescription_date BETWEEN ? AND ?", from, to).
		Group("medication").
		Order("count DESC").Order("medication ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ranking medications: %w", err)
	}
	return rows, nil
}
