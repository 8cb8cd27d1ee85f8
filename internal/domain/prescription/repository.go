package prescription

import (
	"context"
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/google/uuid"
)

type Repository interface {
	// CreateBatch inserts all prescriptions atomically.
	CreateBatch(ctx context.Context, ps []*Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// ListByPatient returns a patient's prescriptions, newest prescription date first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)

	// ListAll returns every live prescription; used for status counts.
	ListAll(ctx context.Context) ([]*Prescription, error)

	// ListIssuedBetween returns prescriptions with from <= prescription_date <= to.
	ListIssuedBetween(ctx context.Context, from, to domain.Date) ([]*Prescription, error)

	// CreatedSince returns creation timestamps of prescriptions created at or after since.
	CreatedSince(ctx context.Context, since time.Time) ([]time.Time, error)

	TopMedications(ctx context.Context, from, to domain.Date, limit int) ([]MedicationCount, error)
}
