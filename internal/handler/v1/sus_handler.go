package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/sus"
	"github.com/gin-gonic/gin"
)

// SUSHandler exposes the e-SUS patient table read-only.
type SUSHandler struct {
	source sus.Source
}

// NewSUSHandler accepts a nil source; the endpoint then answers 503.
func NewSUSHandler(source sus.Source) *SUSHandler {
	return &SUSHandler{source: source}
}

func (h *SUSHandler) ListPatients(c *gin.Context) {
	if h.source == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "SUS database is not configured", Code: "SUS_DISABLED"})
		return
	}

	records, err := h.source.Records(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if records == nil {
		records = []sus.Record{}
	}
	respondOK(c, records)
}
