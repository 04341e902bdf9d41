package common

import (
	"errors"
	"net/http"
)

// Request-scoped error taxonomy. Handlers translate these to HTTP statuses;
// anything else is a 500. Slug and spark uniqueness conflicts are resolved by
// retry and never surface here.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrLastImage rejects deleting the sole remaining image of an artwork.
	ErrLastImage = errors.New("cannot delete the last image, delete the artwork instead")
)

// ValidationError marks bad user input (empty content, missing field, zero
// images). The message is safe to show to the requester.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Invalid(msg string) error { return &ValidationError{Msg: msg} }

// HTTPStatus maps a domain error to the response status.
func HTTPStatus(err error) int {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrLastImage), errors.As(err, &ve):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
