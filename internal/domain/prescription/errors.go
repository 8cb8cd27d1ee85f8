package prescription

import (
	"errors"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/clinicrx/internal/domain"
)

var (
	ErrPrescriptionNotFound = errors.New("prescription not found")
	ErrInvalidValidityDays  = fmt.Errorf("%w: validity days must be a non-negative integer", domain.ErrInvalidArgument)
	ErrInvalidStatusFilter  = fmt.Errorf("%w: unknown prescription status filter", domain.ErrInvalidArgument)
	ErrInvalidView          = fmt.Errorf("%w: unknown prescription view", domain.ErrInvalidArgument)
)
