package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/appointment"
	redisclient "github.com/medbook/medbook/internal/redis"
	"github.com/medbook/medbook/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// writeDomainError maps the service error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())

	case errors.Is(err, account.ErrInvalidInput),
		errors.Is(err, scheduling.ErrInvalidParams),
		errors.Is(err, scheduling.ErrInvalidRange),
		errors.Is(err, scheduling.ErrInvalidStatus),
		errors.Is(err, appointment.ErrInvalidBeneficiary):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())

	case errors.Is(err, appointment.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err.Error())

	case errors.Is(err, account.ErrUserNotFound),
		errors.Is(err, account.ErrDoctorNotFound),
		errors.Is(err, account.ErrPatientNotFound),
		errors.Is(err, scheduling.ErrDoctorUnknown),
		errors.Is(err, scheduling.ErrPlanningNotFound),
		errors.Is(err, scheduling.ErrSlotNotFound),
		errors.Is(err, scheduling.ErrUnavailabilityNotFound),
		errors.Is(err, appointment.ErrPatientUnknown),
		errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())

	case errors.Is(err, appointment.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", err.Error())

	case errors.Is(err, appointment.ErrSlotContended),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")

	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())

	case errors.Is(err, scheduling.ErrPlanningInUse):
		writeError(w, http.StatusConflict, "planning_in_use", err.Error())

	case errors.Is(err, appointment.ErrConsistency):
		writeError(w, http.StatusInternalServerError, "consistency_violation", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
