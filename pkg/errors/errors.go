package errors

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// NewBadRequest creates a new bad request error.
func NewBadRequest(reason, message string) *errors.Error {
	return errors.BadRequest(reason, message)
}

// NewUnauthorized creates a new unauthorized error.
func NewUnauthorized(reason, message string) *errors.Error {
	return errors.Unauthorized(reason, message)
}

// NewForbidden creates a new forbidden error.
func NewForbidden(reason, message string) *errors.Error {
	return errors.Forbidden(reason, message)
}

// NewNotFound creates a new not found error.
func NewNotFound(reason, message string) *errors.Error {
	return errors.NotFound(reason, message)
}

// NewConflict creates a new conflict error.
func NewConflict(reason, message string) *errors.Error {
	return errors.Conflict(reason, message)
}

// NewInternalServerError creates a new internal server error.
func NewInternalServerError(reason, message string) *errors.Error {
	return errors.InternalServer(reason, message)
}
