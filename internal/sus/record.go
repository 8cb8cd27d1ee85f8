// Package sus moves patient rows out of the e-SUS database, either into a
// remote records endpoint or straight into the local patient store.
package sus

import (
	"errors"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

var (
	ErrInvalidRecord = errors.New("invalid SUS record")
	// ErrDuplicate is returned by a Sink when the patient already exists there.
	ErrDuplicate = errors.New("patient already exists at destination")
)

// Record is one patient row as it is read from e-SUS and forwarded.
type Record struct {
	Name             string       `json:"name"`
	SUSCard          string       `json:"sus_card"`
	BirthDate        *domain.Date `json:"birth_date"`
	LastConsultation *domain.Date `json:"last_consultation"`
	Medication       *string      `json:"medication"`
}

func (r Record) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.SUSCard) == "" {
		missing = append(missing, "sus_card")
	}
	if len(missing) > 0 {
		return errors.Join(ErrInvalidRecord, errors.New("missing "+strings.Join(missing, ", ")))
	}
	return nil
}
