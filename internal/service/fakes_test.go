package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/pkg/metrics"
)

// fixedCalendar pins "now" to 2024-01-16 10:00 in São Paulo.
func fixedCalendar() Calendar {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	now := time.Date(2024, time.January, 16, 10, 0, 0, 0, loc)
	return Calendar{Now: func() time.Time { return now }, Location: loc}
}

func agentCtx(t *testing.T) context.Context {
	return domain.WithSession(t.Context(), domain.Session{UserID: uuid.New(), Email: "agent@clinic.test", Role: domain.RoleAgent})
}

func adminCtx(t *testing.T) context.Context {
	return domain.WithSession(t.Context(), domain.Session{UserID: uuid.New(), Email: "admin@clinic.test", Role: domain.RoleAdmin})
}

// ---- audit ----

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (r *fakeAuditRepo) Create(_ context.Context, e *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *fakeAuditRepo) snapshot() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*domain.AuditLog(nil), r.entries...)
}

func newTestAudit(t *testing.T) (*AuditService, *fakeAuditRepo) {
	repo := &fakeAuditRepo{}
	svc := NewAuditService(repo, metrics.NewCollector("test"), zap.NewNop())
	t.Cleanup(svc.Shutdown)
	return svc, repo
}

// ---- patients ----

type fakePatientRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*patient.Patient
	now  time.Time
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{byID: map[uuid.UUID]*patient.Patient{}, now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (r *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.DeletedAt == nil && existing.SUSCard == p.SUSCard {
			return patient.ErrPatientAlreadyExists
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.now = r.now.Add(time.Minute)
	p.CreatedAt = r.now
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.DeletedAt != nil {
		return nil, patient.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePatientRepo) GetBySUSCard(_ context.Context, card string) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.DeletedAt == nil && p.SUSCard == card {
			cp := *p
			return &cp, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (r *fakePatientRepo) Update(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[p.ID]; !ok || existing.DeletedAt != nil {
		return patient.ErrPatientNotFound
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakePatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok || p.DeletedAt != nil {
		return patient.ErrPatientNotFound
	}
	now := r.now
	p.DeletedAt = &now
	return nil
}

func (r *fakePatientRepo) live() []*patient.Patient {
	var out []*patient.Patient
	for _, p := range r.byID {
		if p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out
}

func (r *fakePatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q.Normalize()

	var hits []*patient.Patient
	needle := strings.ToLower(q.Search)
	for _, p := range r.live() {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) && !strings.Contains(p.SUSCard, needle) {
			continue
		}
		if q.BirthDate != nil && !p.BirthDate.Equal(*q.BirthDate) {
			continue
		}
		hits = append(hits, p)
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Name < hits[j].Name })

	total := int64(len(hits))
	start := min(q.Offset(), len(hits))
	end := min(start+q.PageSize, len(hits))
	return &patient.PagedPatients{
		Patients:   hits[start:end],
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: patient.TotalPages(total, q.PageSize),
	}, nil
}

func (r *fakePatientRepo) Recent(_ context.Context, limit int) ([]*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ps := r.live()
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.After(ps[j].CreatedAt) })
	if len(ps) > limit {
		ps = ps[:limit]
	}
	return ps, nil
}

func (r *fakePatientRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.live())), nil
}

func (r *fakePatientRepo) ExistsBySUSCard(_ context.Context, card string, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.live() {
		if p.SUSCard == card && (excludeID == nil || p.ID != *excludeID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePatientRepo) GetMany(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]*patient.Patient{}
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (r *fakePatientRepo) seed(name, card, birth string) *patient.Patient {
	p := &patient.Patient{Name: name, SUSCard: card, BirthDate: domain.MustParseDate(birth)}
	if err := r.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

// ---- prescriptions ----

type fakePrescriptionRepo struct {
	mu      sync.Mutex
	rows    []*prescription.Prescription
	batches int
	failOn  error
}

func (r *fakePrescriptionRepo) CreateBatch(_ context.Context, ps []*prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != nil {
		return r.failOn
	}
	r.batches++
	for _, p := range ps {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now()
		}
		r.rows = append(r.rows, p)
	}
	return nil
}

func (r *fakePrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.ID == id && p.DeletedAt == nil {
			cp := *p
			return &cp, nil
		}
	}
	return nil, prescription.ErrPrescriptionNotFound
}

func (r *fakePrescriptionRepo) Update(_ context.Context, p *prescription.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, row := range r.rows {
		if row.ID == p.ID && row.DeletedAt == nil {
			cp := *p
			r.rows[i] = &cp
			return nil
		}
	}
	return prescription.ErrPrescriptionNotFound
}

func (r *fakePrescriptionRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id && row.DeletedAt == nil {
			now := time.Now()
			row.DeletedAt = &now
			return nil
		}
	}
	return prescription.ErrPrescriptionNotFound
}

func (r *fakePrescriptionRepo) live() []*prescription.Prescription {
	var out []*prescription.Prescription
	for _, p := range r.rows {
		if p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out
}

func (r *fakePrescriptionRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range r.live() {
		if p.PatientID == patientID {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PrescriptionDate.After(out[j].PrescriptionDate) })
	return out, nil
}

func (r *fakePrescriptionRepo) ListAll(_ context.Context) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live(), nil
}

func (r *fakePrescriptionRepo) ListIssuedBetween(_ context.Context, from, to domain.Date) ([]*prescription.Prescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*prescription.Prescription
	for _, p := range r.live() {
		if !p.PrescriptionDate.Before(from) && !p.PrescriptionDate.After(to) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PrescriptionDate.Before(out[j].PrescriptionDate) })
	return out, nil
}

func (r *fakePrescriptionRepo) CreatedSince(_ context.Context, since time.Time) ([]time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Time
	for _, p := range r.live() {
		if !p.CreatedAt.Before(since) {
			out = append(out, p.CreatedAt)
		}
	}
	return out, nil
}

func (r *fakePrescriptionRepo) TopMedications(ctx context.Context, from, to domain.Date, limit int) ([]prescription.MedicationCount, error) {
	ps, _ := r.ListIssuedBetween(ctx, from, to)
	counts := map[string]int64{}
	for _, p := range ps {
		counts[p.Medication]++
	}
	var out []prescription.MedicationCount
	for m, n := range counts {
		out = append(out, prescription.MedicationCount{Medication: m, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Medication < out[j].Medication
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePrescriptionRepo) seed(patientID uuid.UUID, medication, issued string, validity int) *prescription.Prescription {
	p := &prescription.Prescription{
		PatientID:        patientID,
		Medication:       medication,
		Dosage:           "1x/day",
		DoctorName:       "Dr. Silva",
		PrescriptionDate: domain.MustParseDate(issued),
		ValidityDays:     validity,
	}
	if err := r.CreateBatch(context.Background(), []*prescription.Prescription{p}); err != nil {
		panic(err)
	}
	return p
}

// ---- users ----

type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[uuid.UUID]*domain.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	u.ID = uuid.New()
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpdateSecurity(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return domain.ErrUserNotFound
	}
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}
