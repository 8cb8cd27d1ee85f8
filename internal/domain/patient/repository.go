package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new patient. Returns ErrPatientAlreadyExists on duplicate SUS card.
	Create(ctx context.Context, p *Patient) error

	// GetByID retrieves a patient by primary key. Returns ErrPatientNotFound if not found.
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	// GetBySUSCard retrieves a patient by their national health card number.
	GetBySUSCard(ctx context.Context, susCard string) (*Patient, error)

	// Update saves all fields of an existing patient record.
	Update(ctx context.Context, p *Patient) error

	// SoftDelete marks the patient as deleted.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// List returns a paginated, filtered list of patients ordered by name.
	List(ctx context.Context, q *ListPatientsQuery) (*PagedPatients, error)

	// Recent returns the most recently registered patients.
	Recent(ctx context.Context, limit int) ([]*Patient, error)

	Count(ctx context.Context) (int64, error)

	// ExistsBySUSCard checks for uniqueness without fetching the full record.
	ExistsBySUSCard(ctx context.Context, susCard string, excludeID *uuid.UUID) (bool, error)

	// GetMany returns the patients with the given ids, keyed by id.
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Patient, error)
}
