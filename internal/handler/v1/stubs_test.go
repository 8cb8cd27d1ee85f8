package v1

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/sus"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/auth"
)

var errNotStubbed = errors.New("not stubbed")

type stubAuth struct {
	signUp func(service.SignUpCommand) (*domain.User, *domain.TokenPair, error)
	signIn func(service.SignInCommand) (*domain.TokenPair, error)
}

func (s *stubAuth) SignUp(_ context.Context, cmd service.SignUpCommand) (*domain.User, *domain.TokenPair, error) {
	if s.signUp == nil {
		return nil, nil, errNotStubbed
	}
	return s.signUp(cmd)
}

func (s *stubAuth) SignIn(_ context.Context, cmd service.SignInCommand) (*domain.TokenPair, error) {
	if s.signIn == nil {
		return nil, errNotStubbed
	}
	return s.signIn(cmd)
}

func (s *stubAuth) Refresh(context.Context, string) (*domain.TokenPair, error) {
	return nil, errNotStubbed
}

func (s *stubAuth) SignOut(context.Context) error { return nil }

func (s *stubAuth) Me(ctx context.Context) (*domain.User, error) {
	sess, ok := domain.SessionFrom(ctx)
	if !ok {
		return nil, service.ErrUnauthenticated
	}
	return &domain.User{ID: sess.UserID, Email: sess.Email, Role: sess.Role}, nil
}

func (s *stubAuth) EnrollMFA(context.Context) (*auth.MFAEnrollment, error) {
	return &auth.MFAEnrollment{Secret: "JBSWY3DPEHPK3PXP", URL: "otpauth://totp/clinicrx"}, nil
}

func (s *stubAuth) ConfirmMFA(context.Context, string) error { return service.ErrInvalidMFACode }

type stubPatients struct {
	today    domain.Date
	create   func(*patient.CreatePatientCommand) (*patient.Patient, error)
	get      func(uuid.UUID) (*patient.Patient, error)
	list     func(*patient.ListPatientsQuery) (*patient.PagedPatients, error)
	deleted  []uuid.UUID
	lastList *patient.ListPatientsQuery
}

func (s *stubPatients) CreatePatient(_ context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error) {
	if s.create == nil {
		return nil, errNotStubbed
	}
	return s.create(cmd)
}

func (s *stubPatients) GetPatient(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	if s.get == nil {
		return nil, patient.ErrPatientNotFound
	}
	return s.get(id)
}

func (s *stubPatients) UpdatePatient(context.Context, uuid.UUID, *patient.UpdatePatientCommand) (*patient.Patient, error) {
	return nil, errNotStubbed
}

func (s *stubPatients) DeletePatient(_ context.Context, id uuid.UUID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubPatients) ListPatients(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	s.lastList = q
	if s.list == nil {
		return &patient.PagedPatients{Page: q.Page, PageSize: q.PageSize}, nil
	}
	return s.list(q)
}

func (s *stubPatients) Today() domain.Date { return s.today }

type stubPrescriptions struct {
	views     []service.PrescriptionView
	lastQuery prescription.ListPrescriptionsQuery
	created   []prescription.CreatePrescriptionCommand
}

func (s *stubPrescriptions) CreatePrescriptions(_ context.Context, patientID uuid.UUID, cmds []prescription.CreatePrescriptionCommand) ([]service.PrescriptionView, error) {
	s.created = cmds
	out := make([]service.PrescriptionView, 0, len(cmds))
	for _, c := range cmds {
		p := &prescription.Prescription{
			ID: uuid.New(), PatientID: patientID, Medication: c.Medication, Dosage: c.Dosage,
			DoctorName: c.DoctorName, PrescriptionDate: c.PrescriptionDate, ValidityDays: c.ValidityDays,
		}
		out = append(out, service.PrescriptionView{Prescription: p, ExpiryDate: c.PrescriptionDate.AddDays(c.ValidityDays), Status: prescription.StatusValid})
	}
	return out, nil
}

func (s *stubPrescriptions) GetPrescription(context.Context, uuid.UUID) (*service.PrescriptionView, error) {
	return nil, prescription.ErrPrescriptionNotFound
}

func (s *stubPrescriptions) UpdatePrescription(context.Context, uuid.UUID, *prescription.UpdatePrescriptionCommand) (*service.PrescriptionView, error) {
	return nil, errNotStubbed
}

func (s *stubPrescriptions) DeletePrescription(context.Context, uuid.UUID) error { return nil }

func (s *stubPrescriptions) ListPatientPrescriptions(_ context.Context, q prescription.ListPrescriptionsQuery) ([]service.PrescriptionView, error) {
	s.lastQuery = q
	if _, err := prescription.ParseStatusFilter(string(q.Status)); err != nil {
		return nil, err
	}
	return s.views, nil
}

type stubDashboard struct {
	dashboard *service.Dashboard
}

func (s *stubDashboard) GetDashboard(context.Context) (*service.Dashboard, error) {
	return s.dashboard, nil
}

type stubReports struct {
	lastRange service.DateRange
	lastLimit int
	csv       string
	err       error
}

func (s *stubReports) TopMedications(_ context.Context, r service.DateRange, limit int) ([]prescription.MedicationCount, error) {
	s.lastRange, s.lastLimit = r, limit
	return []prescription.MedicationCount{{Medication: "Losartana", Count: 3}}, nil
}

func (s *stubReports) MonthlyPrescriptions(context.Context, int) ([]service.MonthlyCount, error) {
	return []service.MonthlyCount{{Month: "2024-01", Count: 2}}, nil
}

func (s *stubReports) ExportPrescriptionsCSV(_ context.Context, r service.DateRange, w io.Writer) error {
	s.lastRange = r
	if s.err != nil {
		_, _ = io.WriteString(w, "partial")
		return s.err
	}
	_, err := io.WriteString(w, s.csv)
	return err
}

type stubSource struct {
	records []sus.Record
}

func (s stubSource) Records(context.Context) ([]sus.Record, error) { return s.records, nil }
