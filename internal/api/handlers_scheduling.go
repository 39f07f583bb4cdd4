package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/scheduling"
)

func generatePlanningsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeneratePlanningRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		// An empty doctor list is a valid no-op.
		doctorIDs := make([]uuid.UUID, 0, len(req.DoctorIDs))
		for _, raw := range req.DoctorIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", raw+" is not a valid UUID")
				return
			}
			doctorIDs = append(doctorIDs, id)
		}

		params := scheduling.GenerateParams{
			Month:               req.Month,
			Year:                req.Year,
			StartHour:           req.StartHour,
			EndHour:             req.EndHour,
			SlotDurationMinutes: req.SlotDurationMinutes,
		}

		generated, err := svc.GeneratePlannings(r.Context(), doctorIDs, params, req.Force)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]GeneratedPlanningResponse, 0, len(generated))
		for _, g := range generated {
			resp = append(resp, GeneratedPlanningResponse{
				PlanningID: g.Planning.ID,
				DoctorID:   g.Planning.DoctorID,
				Month:      g.Planning.Month,
				Year:       g.Planning.Year,
				SlotCount:  g.SlotCount,
			})
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func listPlanningsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, _ := strconv.Atoi(r.URL.Query().Get("month"))
		year, _ := strconv.Atoi(r.URL.Query().Get("year"))
		if month < 1 || month > 12 || year < 1 {
			writeError(w, http.StatusBadRequest, "invalid_period", "month and year query parameters are required")
			return
		}

		plannings, err := svc.ListPlannings(r.Context(), month, year)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]PlanningResponse, 0, len(plannings))
		for i := range plannings {
			resp = append(resp, toPlanningResponse(&plannings[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getPlanningHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_planning_id", "planning id must be a UUID")
			return
		}

		planning, err := svc.PlanningByID(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		slots, err := svc.PlanningSlots(r.Context(), planning.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, PlanningDetailResponse{
			Planning: toPlanningResponse(planning),
			Slots:    toSlotResponses(slots),
		})
	}
}

func doctorSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a UUID")
			return
		}

		month, _ := strconv.Atoi(r.URL.Query().Get("month"))
		year, _ := strconv.Atoi(r.URL.Query().Get("year"))

		slots, err := svc.FreeSlots(r.Context(), doctorID, month, year)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func blockSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return slotStatusHandler(svc.BlockSlot)
}

func unblockSlotHandler(svc *scheduling.Service) http.HandlerFunc {
	return slotStatusHandler(svc.UnblockSlot)
}

func slotStatusHandler(apply func(ctx context.Context, id uuid.UUID) (*scheduling.TimeSlot, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot id must be a UUID")
			return
		}

		slot, err := apply(r.Context(), slotID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(*slot))
	}
}

func createUnavailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := GetActor(r.Context())

		var req UnavailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID := actor.UserID
		if req.DoctorID != "" {
			parsed, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a UUID")
				return
			}
			doctorID = parsed
		}

		// Doctors may only declare their own unavailability.
		if actor.Role == account.RoleDoctor && doctorID != actor.UserID {
			writeError(w, http.StatusForbidden, "permission_denied", "doctors can only declare their own unavailability")
			return
		}

		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "start_date must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "end_date must be YYYY-MM-DD")
			return
		}

		u, err := svc.AddUnavailability(r.Context(), doctorID, start, end, req.Reason)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		var blocked int64
		if req.Apply {
			blocked, err = svc.ApplyUnavailability(r.Context(), u.ID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
		}

		writeJSON(w, http.StatusCreated, toUnavailabilityResponse(u, blocked))
	}
}

func applyUnavailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_unavailability_id", "unavailability id must be a UUID")
			return
		}

		blocked, err := svc.ApplyUnavailability(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]int64{"slots_blocked": blocked})
	}
}

func listUnavailabilitiesHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor id must be a UUID")
			return
		}

		list, err := svc.ListUnavailabilities(r.Context(), doctorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]UnavailabilityResponse, 0, len(list))
		for i := range list {
			resp = append(resp, toUnavailabilityResponse(&list[i], 0))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func toPlanningResponse(p *scheduling.Planning) PlanningResponse {
	return PlanningResponse{
		ID:        p.ID,
		DoctorID:  p.DoctorID,
		Month:     p.Month,
		Year:      p.Year,
		CreatedAt: p.CreatedAt,
	}
}

func toSlotResponse(s scheduling.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		PlanningID: s.PlanningID,
		Date:       s.Date.Format("2006-01-02"),
		StartTime:  s.StartTime,
		EndTime:    s.EndTime,
		Status:     string(s.Status),
	}
}

func toSlotResponses(slots []scheduling.TimeSlot) []SlotResponse {
	resp := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, toSlotResponse(s))
	}
	return resp
}

func toUnavailabilityResponse(u *scheduling.Unavailability, blocked int64) UnavailabilityResponse {
	return UnavailabilityResponse{
		ID:           u.ID,
		DoctorID:     u.DoctorID,
		StartDate:    u.StartDate.Format("2006-01-02"),
		EndDate:      u.EndDate.Format("2006-01-02"),
		Reason:       u.Reason,
		SlotsBlocked: blocked,
	}
}
