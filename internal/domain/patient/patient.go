package patient

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/google/uuid"
)

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft Delete

	Name             string       `gorm:"column:name;type:varchar(255);not null;index"`
	SUSCard          string       `gorm:"column:sus_card;type:varchar(20);uniqueIndex;not null"`
	BirthDate        domain.Date  `gorm:"column:birth_date;type:date;not null;index"`
	LastConsultation *domain.Date `gorm:"column:last_consultation;type:date"`

	// Audit: who registered this patient
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

// Age in whole years on the given day.
func (p *Patient) Age(today domain.Date) int {
	years := today.Year() - p.BirthDate.Year()
	if today.Month() < p.BirthDate.Month() ||
		(today.Month() == p.BirthDate.Month() && today.Day() < p.BirthDate.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsActive() bool {
	return p.DeletedAt == nil
}

type CreatePatientCommand struct {
	Name             string
	SUSCard          string
	BirthDate        domain.Date
	LastConsultation *domain.Date
	CreatedBy        uuid.UUID
}

type UpdatePatientCommand struct {
	Name             *string
	SUSCard          *string
	BirthDate        *domain.Date
	LastConsultation *domain.Date
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search    string // substring of name or SUS card, case-insensitive
	BirthDate *domain.Date
	Page      int
	PageSize  int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize applies paging defaults.
func (q *ListPatientsQuery) Normalize() {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	if q.Page <= 0 {
		q.Page = 1
	}
}

func (q *ListPatientsQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}

func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
