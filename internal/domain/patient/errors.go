package patient

import "errors"

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPatientAlreadyExists = errors.New("patient with this SUS card already exists")
	ErrInvalidBirthDate     = errors.New("birth date cannot be in the future")
)
