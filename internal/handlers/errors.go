package handlers

import (
	"errors"
	"net/http"

	"mailtriage/internal/models"
)

// statusFor maps a service error to an HTTP status code
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrAdapter):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
