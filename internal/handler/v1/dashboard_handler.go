package v1

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain/prescription"
	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/service"
	"github.com/gin-gonic/gin"
)

type DashboardService interface {
	GetDashboard(ctx context.Context) (*service.Dashboard, error)
}

type ReportService interface {
	TopMedications(ctx context.Context, r service.DateRange, limit int) ([]prescription.MedicationCount, error)
	MonthlyPrescriptions(ctx context.Context, months int) ([]service.MonthlyCount, error)
	ExportPrescriptionsCSV(ctx context.Context, r service.DateRange, w io.Writer) error
}

var (
	_ DashboardService = (*service.DashboardService)(nil)
	_ ReportService    = (*service.ReportService)(nil)
)

type DashboardHandler struct {
	dashboard DashboardService
	reports   ReportService
}

func NewDashboardHandler(dashboard DashboardService, reports ReportService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, reports: reports}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	d, err := h.dashboard.GetDashboard(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toDashboardResponse(d))
}

// TopMedications handles GET /reports/top-medications?from=&to=&limit=
func (h *DashboardHandler) TopMedications(c *gin.Context) {
	r, ok := parseDateRange(c)
	if !ok {
		return
	}

	top, err := h.reports.TopMedications(c.Request.Context(), r, parseQueryInt(c, "limit", service.DefaultTopMedications))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, top)
}

func (h *DashboardHandler) Monthly(c *gin.Context) {
	months, err := h.reports.MonthlyPrescriptions(c.Request.Context(), parseQueryInt(c, "months", service.DefaultReportMonths))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, months)
}

// ExportCSV renders into memory first so a failure half way still gets a
// proper error status.
func (h *DashboardHandler) ExportCSV(c *gin.Context) {
	r, ok := parseDateRange(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.reports.ExportPrescriptionsCSV(c.Request.Context(), r, &buf); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="prescriptions.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func parseDateRange(c *gin.Context) (service.DateRange, bool) {
	var r service.DateRange
	from, ok := parseQueryDate(c, "from")
	if !ok {
		return r, false
	}
	to, ok := parseQueryDate(c, "to")
	if !ok {
		return r, false
	}
	if from != nil {
		r.From = *from
	}
	if to != nil {
		r.To = *to
	}
	return r, true
}
