package prescription

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/google/uuid"
)

// AllowedValidityPeriods are the validity choices offered when a
// prescription is written. ComputeExpiry itself accepts any non-negative value.
var AllowedValidityPeriods = []int{15, 30, 60, 90, 120, 150, 180, 210, 240}

const DefaultValidityDays = 15

func IsAllowedValidity(days int) bool {
	for _, d := range AllowedValidityPeriods {
		if d == days {
			return true
		}
	}
	return false
}

type Prescription struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`

	Medication   string `gorm:"column:medication;type:varchar(255);not null;index"`
	Dosage       string `gorm:"column:dosage;type:varchar(255);not null"`
	Instructions string `gorm:"column:instructions;type:text"`
	DoctorName   string `gorm:"column:doctor_name;type:varchar(255);not null"`

	PrescriptionDate domain.Date `gorm:"column:prescription_date;type:date;not null;index"`
	// ValidityDays is the only stored input of the expiry date; the expiry
	// itself is never persisted.
	ValidityDays int `gorm:"column:validity;not null;default:15"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Prescription) TableName() string {
	return "clinical.prescriptions"
}

// ExpiryDate is the last day the prescription can be used.
func (p *Prescription) ExpiryDate() (domain.Date, error) {
	return ComputeExpiry(p.PrescriptionDate, p.ValidityDays)
}

// Status classifies the prescription as of today.
func (p *Prescription) Status(today domain.Date) (Status, error) {
	expiry, err := p.ExpiryDate()
	if err != nil {
		return "", err
	}
	return ClassifyStatus(expiry, today), nil
}

type CreatePrescriptionCommand struct {
	Medication       string
	Dosage           string
	Instructions     string
	DoctorName       string
	PrescriptionDate domain.Date
	ValidityDays     int
}

type UpdatePrescriptionCommand struct {
	Medication       *string
	Dosage           *string
	Instructions     *string
	DoctorName       *string
	PrescriptionDate *domain.Date
	ValidityDays     *int
}

// View selects ordering and pre-filtering for a patient's prescription list.
type View string

const (
	ViewAll      View = "all"
	ViewRecent   View = "recent"
	ViewExpiring View = "expiring"
)

func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewRecent, ViewExpiring:
		return View(s), nil
	}
	return "", ErrInvalidView
}

type ListPrescriptionsQuery struct {
	PatientID uuid.UUID
	View      View
	Status    StatusFilter
}

type MedicationCount struct {
	Medication string `json:"medication"`
	Count      int64  `json:"count"`
}
