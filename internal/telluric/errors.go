package telluric

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	EntityValidationError ErrorCode = iota
	EntityNotFound
	MissingParameter
	MissingSensorBandsInfo
	ShouldNeverHappen
)

// Access details
const (
	DetailNotFoundEntity = 0
	DetailNotFoundID     = 1
	DetailMissingEntity  = 0
	DetailMissingParam   = 1
)

type TelluricError struct {
	code    ErrorCode
	desc    string
	details []string
}

// NewValidationError creates a new validation error
func NewValidationError(desc string, a ...interface{}) error {
	return TelluricError{code: EntityValidationError, desc: fmt.Sprintf(desc, a...)}
}

// NewEntityNotFound creates a new error stating that an entity (band, product, palette...) has not been found
func NewEntityNotFound(entity, id, desc string, a ...interface{}) error {
	if desc == "" {
		return TelluricError{code: EntityNotFound, desc: formatEntity(entity, id), details: []string{entity, id}}
	}
	return TelluricError{code: EntityNotFound, desc: fmt.Sprintf(desc, a...), details: []string{entity, id}}
}

// NewMissingParameter creates a new error stating that a required parameter of entity is missing
func NewMissingParameter(entity, param string) error {
	return TelluricError{code: MissingParameter, desc: fmt.Sprintf("%s requires parameter '%s'", entity, param), details: []string{entity, param}}
}

// NewMissingSensorBandsInfo creates a new error stating that no sensor bands info is available
func NewMissingSensorBandsInfo(desc string, a ...interface{}) error {
	return TelluricError{code: MissingSensorBandsInfo, desc: fmt.Sprintf(desc, a...)}
}

// NewShouldNeverHappen creates a new error that should never happen...
func NewShouldNeverHappen(desc string, a ...interface{}) error {
	return TelluricError{code: ShouldNeverHappen, desc: fmt.Sprintf(desc, a...)}
}

// Error implements error
func (e TelluricError) Error() string {
	var s string
	switch e.code {
	case EntityValidationError:
		s = "EntityValidationError"
	case EntityNotFound:
		s = "EntityNotFound"
	case MissingParameter:
		s = "MissingParameter"
	case MissingSensorBandsInfo:
		s = "MissingSensorBandsInfo"
	case ShouldNeverHappen:
		s = "ShouldNeverHappen"
	}
	return s + ": " + e.desc
}

// Desc returns a description of the error
func (e TelluricError) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e TelluricError) Code() ErrorCode {
	return e.code
}

// Detail returns a detail of the error (see const above)
func (e TelluricError) Detail(i int) string {
	if i >= len(e.details) {
		return ""
	}
	return e.details[i]
}

// IsError tests whether error is a TelluricError with the given code
func IsError(err error, code ErrorCode) bool {
	var terr TelluricError
	return errors.As(err, &terr) && terr.Code() == code
}

// AsError tests whether error is a TelluricError and returns it
func AsError(err error, code ErrorCode) (TelluricError, bool) {
	var terr TelluricError
	return terr, errors.As(err, &terr) && terr.Code() == code
}

func formatEntity(entity, id string) string {
	if entity != "" && id != "" {
		return entity + " not found: " + id
	}
	return entity + " not found"
}
