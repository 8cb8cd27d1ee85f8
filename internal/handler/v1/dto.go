package v1

import (
	"time"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/google/uuid"
)

// ---- auth ----

type signUpRequest struct {
	Email    string      `json:"email" binding:"required"`
	Password string      `json:"password" binding:"required"`
	Role     domain.Role `json:"role"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	OTP      string `json:"otp"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type mfaConfirmRequest struct {
	Code string `json:"code" binding:"required"`
}

type userResponse struct {
	ID          uuid.UUID   `json:"id"`
	Email       string      `json:"email"`
	Role        domain.Role `json:"role"`
	MFAEnabled  bool        `json:"mfa_enabled"`
	LastLoginAt *time.Time  `json:"last_login_at"`
	CreatedAt   time.Time   `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Role:        u.Role,
		MFAEnabled:  u.MFAEnabled,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type signUpResponse struct {
	User   userResponse      `json:"user"`
	Tokens *domain.TokenPair `json:"tokens"`
}

// ---- patients ----

type createPatientRequest struct {
	Name             string       `json:"name"`
	SUSCard          string       `json:"sus_card"`
	BirthDate        domain.Date  `json:"birth_date"`
	LastConsultation *domain.Date `json:"last_consultation"`
}

func (r createPatientRequest) command() *patient.CreatePatientCommand {
	return &patient.CreatePatientCommand{
		Name:             r.Name,
		SUSCard:          r.SUSCard,
		BirthDate:        r.BirthDate,
		LastConsultation: r.LastConsultation,
	}
}

type updatePatientRequest struct {
	Name             *string      `json:"name"`
	SUSCard          *string      `json:"sus_card"`
	BirthDate        *domain.Date `json:"birth_date"`
	LastConsultation *domain.Date `json:"last_consultation"`
}

func (r updatePatientRequest) command() *patient.UpdatePatientCommand {
	return &patient.UpdatePatientCommand{
		Name:             r.Name,
		SUSCard:          r.SUSCard,
		BirthDate:        r.BirthDate,
		LastConsultation: r.LastConsultation,
	}
}

type patientResponse struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"name"`
	SUSCard          string       `json:"sus_card"`
	BirthDate        domain.Date  `json:"birth_date"`
	Age              int          `json:"age"`
	LastConsultation *domain.Date `json:"last_consultation"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func toPatientResponse(p *patient.Patient, today domain.Date) patientResponse {
	return patientResponse{
		ID:               p.ID,
		Name:             p.Name,
		SUSCard:          p.SUSCard,
		BirthDate:        p.BirthDate,
		Age:              p.Age(today),
		LastConsultation: p.LastConsultation,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func toPatientResponses(ps []*patient.Patient, today domain.Date) []patientResponse {
	out := make([]patientResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPatientResponse(p, today))
	}
	return out
}

type patientPage struct {
	Patients   []patientResponse `json:"patients"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// ---- prescriptions ----

type prescriptionItem struct {
	Medication       string      `json:"medication"`
	Dosage           string      `json:"dosage"`
	Instructions     string      `json:"instructions"`
	DoctorName       string      `json:"doctor_name"`
	PrescriptionDate domain.Date `json:"prescription_date"`
	Validity         int         `json:"validity"`
}

// createPrescriptionsRequest carries one or more prescriptions for a single
// patient, written in one visit.
type createPrescriptionsRequest struct {
	Prescriptions []prescriptionItem `json:"prescriptions" binding:"required,min=1"`
}

func (r createPrescriptionsRequest) commands() []prescription.CreatePrescriptionCommand {
	out := make([]prescription.CreatePrescriptionCommand, 0, len(r.Prescriptions))
	for _, it := range r.Prescriptions {
		out = append(out, prescription.CreatePrescriptionCommand{
			Medication:       it.Medication,
			Dosage:           it.Dosage,
			Instructions:     it.Instructions,
			DoctorName:       it.DoctorName,
			PrescriptionDate: it.PrescriptionDate,
			ValidityDays:     it.Validity,
		})
	}
	return out
}

type updatePrescriptionRequest struct {
	Medication       *string      `json:"medication"`
	Dosage           *string      `json:"dosage"`
	Instructions     *string      `json:"instructions"`
	DoctorName       *string      `json:"doctor_name"`
	PrescriptionDate *domain.Date `json:"prescription_date"`
	Validity         *int         `json:"validity"`
}

func (r updatePrescriptionRequest) command() *prescription.UpdatePrescriptionCommand {
	return &prescription.UpdatePrescriptionCommand{
		Medication:       r.Medication,
		Dosage:           r.Dosage,
		Instructions:     r.Instructions,
		DoctorName:       r.DoctorName,
		PrescriptionDate: r.PrescriptionDate,
		ValidityDays:     r.Validity,
	}
}

type prescriptionResponse struct {
	ID               uuid.UUID           `json:"id"`
	PatientID        uuid.UUID           `json:"patient_id"`
	Medication       string              `json:"medication"`
	Dosage           string              `json:"dosage"`
	Instructions     string              `json:"instructions"`
	DoctorName       string              `json:"doctor_name"`
	PrescriptionDate domain.Date         `json:"prescription_date"`
	Validity         int                 `json:"validity"`
	ExpiryDate       domain.Date         `json:"expiry_date"`
	Status           prescription.Status `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
}

func toPrescriptionResponse(v *service.PrescriptionView) prescriptionResponse {
	return prescriptionResponse{
		ID:               v.ID,
		PatientID:        v.PatientID,
		Medication:       v.Medication,
		Dosage:           v.Dosage,
		Instructions:     v.Instructions,
		DoctorName:       v.DoctorName,
		PrescriptionDate: v.PrescriptionDate,
		Validity:         v.ValidityDays,
		ExpiryDate:       v.ExpiryDate,
		Status:           v.Status,
		CreatedAt:        v.CreatedAt,
	}
}

func toPrescriptionResponses(vs []service.PrescriptionView) []prescriptionResponse {
	out := make([]prescriptionResponse, 0, len(vs))
	for i := range vs {
		out = append(out, toPrescriptionResponse(&vs[i]))
	}
	return out
}

// ---- dashboard ----

type dashboardResponse struct {
	Today               domain.Date               `json:"today"`
	TotalPatients       int64                     `json:"total_patients"`
	RecentPatients      []patientResponse         `json:"recent_patients"`
	DailyActivity       []int                     `json:"daily_activity"`
	PrescriptionsStatus prescription.StatusCounts `json:"prescriptions_status"`
}

func toDashboardResponse(d *service.Dashboard) dashboardResponse {
	return dashboardResponse{
		Today:               d.Today,
		TotalPatients:       d.TotalPatients,
		RecentPatients:      toPatientResponses(d.RecentPatients, d.Today),
		DailyActivity:       d.DailyActivity,
		PrescriptionsStatus: d.PrescriptionsStatus,
	}
}
