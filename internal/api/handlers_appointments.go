package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/appointment"
)

func bookAppointmentHandler(svc *appointment.Service, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a UUID")
			return
		}

		var ben *appointment.BeneficiaryInput
		if req.Beneficiary != nil {
			ben = &appointment.BeneficiaryInput{
				FirstName: req.Beneficiary.FirstName,
				LastName:  req.Beneficiary.LastName,
				Gender:    req.Beneficiary.Gender,
				Age:       req.Beneficiary.Age,
			}
		}

		appt, err := svc.Book(r.Context(), actor.UserID, slotID, ben, req.Reason)
		if err != nil {
			countBooking(m, err)
			writeDomainError(w, err)
			return
		}
		countBooking(m, nil)

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, uuid.Nil, nil, nil))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a UUID")
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		cancelled, err := svc.Cancel(r.Context(), actor.UserID, id, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(cancelled, actor.UserID, nil, nil))
	}
}

func completeAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a UUID")
			return
		}

		completed, err := svc.Complete(r.Context(), actor.UserID, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(completed, actor.UserID, nil, nil))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment id must be a UUID")
			return
		}

		detail, err := svc.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		if !canViewAppointment(actor, detail) {
			writeError(w, http.StatusForbidden, "permission_denied", "not allowed to view this appointment")
			return
		}

		writeJSON(w, http.StatusOK, toDetailResponse(detail))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		var (
			details []appointment.Detail
			err     error
		)

		switch actor.Role {
		case account.RolePatient:
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			details, err = svc.ListByPatient(r.Context(), actor.UserID, limit, offset)
		case account.RoleDoctor:
			details, err = svc.ListByDoctor(r.Context(), actor.UserID)
		default:
			writeError(w, http.StatusForbidden, "permission_denied", "listing is scoped to patients and doctors")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(details))
		for i := range details {
			resp = append(resp, toDetailResponse(&details[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// canViewAppointment restricts reads to the appointment's patient, its
// derived doctor, and staff.
func canViewAppointment(actor *account.Actor, d *appointment.Detail) bool {
	switch actor.Role {
	case account.RoleManager, account.RoleAdmin:
		return true
	case account.RoleDoctor:
		return d.DoctorID == actor.UserID
	case account.RolePatient:
		return d.PatientID == actor.UserID
	}
	return false
}

func countBooking(m *Metrics, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.BookingsTotal.WithLabelValues(outcome).Inc()
}

func toAppointmentResponse(a *appointment.Appointment, doctorID uuid.UUID, slot *SlotResponse, ben *BeneficiaryResponse) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DoctorID:    doctorID,
		SlotID:      a.TimeSlotID,
		Slot:        slot,
		Beneficiary: ben,
		Status:      string(a.Status),
		Reason:      a.Reason,
		CreatedAt:   a.CreatedAt,
	}
}

func toDetailResponse(d *appointment.Detail) AppointmentResponse {
	var slot *SlotResponse
	if d.Slot != nil {
		s := toSlotResponse(*d.Slot)
		slot = &s
	}

	var ben *BeneficiaryResponse
	if d.Beneficiary != nil {
		ben = &BeneficiaryResponse{
			FirstName: d.Beneficiary.FirstName,
			LastName:  d.Beneficiary.LastName,
			Gender:    d.Beneficiary.Gender,
			Age:       d.Beneficiary.Age,
		}
	}

	return toAppointmentResponse(&d.Appointment, d.DoctorID, slot, ben)
}
