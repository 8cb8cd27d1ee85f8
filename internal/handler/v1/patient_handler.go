package v1

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PatientService interface {
	CreatePatient(ctx context.Context, cmd *patient.CreatePatientCommand) (*patient.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
	UpdatePatient(ctx context.Context, id uuid.UUID, cmd *patient.UpdatePatientCommand) (*patient.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	ListPatients(ctx context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error)
	Today() domain.Date
}

var _ PatientService = (*service.PatientService)(nil)

type PatientHandler struct {
	svc PatientService
}

func NewPatientHandler(svc PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

func (h *PatientHandler) Create(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.CreatePatient(c.Request.Context(), req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toPatientResponse(p, h.svc.Today()))
}

func (h *PatientHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.svc.GetPatient(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p, h.svc.Today()))
}

func (h *PatientHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.svc.UpdatePatient(c.Request.Context(), id, req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPatientResponse(p, h.svc.Today()))
}

func (h *PatientHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeletePatient(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /patients?search=&birth_date=&page=&page_size=
func (h *PatientHandler) List(c *gin.Context) {
	birth, ok := parseQueryDate(c, "birth_date")
	if !ok {
		return
	}

	q := &patient.ListPatientsQuery{
		Search:    strings.TrimSpace(c.Query("search")),
		BirthDate: birth,
		Page:      parseQueryInt(c, "page", 1),
		PageSize:  parseQueryInt(c, "page_size", patient.DefaultPageSize),
	}

	page, err := h.svc.ListPatients(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, patientPage{
		Patients:   toPatientResponses(page.Patients, h.svc.Today()),
		TotalCount: page.TotalCount,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	})
}
