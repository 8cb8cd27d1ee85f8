package v1

import (
	"context"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PrescriptionService interface {
	CreatePrescriptions(ctx context.Context, patientID uuid.UUID, cmds []prescription.CreatePrescriptionCommand) ([]service.PrescriptionView, error)
	GetPrescription(ctx context.Context, id uuid.UUID) (*service.PrescriptionView, error)
	UpdatePrescription(ctx context.Context, id uuid.UUID, cmd *prescription.UpdatePrescriptionCommand) (*service.PrescriptionView, error)
	DeletePrescription(ctx context.Context, id uuid.UUID) error
	ListPatientPrescriptions(ctx context.Context, q prescription.ListPrescriptionsQuery) ([]service.PrescriptionView, error)
}

var _ PrescriptionService = (*service.PrescriptionService)(nil)

type PrescriptionHandler struct {
	svc PrescriptionService
}

func NewPrescriptionHandler(svc PrescriptionService) *PrescriptionHandler {
	return &PrescriptionHandler{svc: svc}
}

// CreateForPatient handles POST /patients/:id/prescriptions. The whole
// batch is rejected if any item is invalid.
func (h *PrescriptionHandler) CreateForPatient(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req createPrescriptionsRequest
	if !bindJSON(c, &req) {
		return
	}

	views, err := h.svc.CreatePrescriptions(c.Request.Context(), patientID, req.commands())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toPrescriptionResponses(views))
}

// ListForPatient handles GET /patients/:id/prescriptions?view=&status=
func (h *PrescriptionHandler) ListForPatient(c *gin.Context) {
	patientID, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	views, err := h.svc.ListPatientPrescriptions(c.Request.Context(), prescription.ListPrescriptionsQuery{
		PatientID: patientID,
		View:      prescription.View(c.Query("view")),
		Status:    prescription.StatusFilter(c.Query("status")),
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPrescriptionResponses(views))
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	v, err := h.svc.GetPrescription(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPrescriptionResponse(v))
}

func (h *PrescriptionHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	var req updatePrescriptionRequest
	if !bindJSON(c, &req) {
		return
	}

	v, err := h.svc.UpdatePrescription(c.Request.Context(), id, req.command())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toPrescriptionResponse(v))
}

func (h *PrescriptionHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeletePrescription(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
