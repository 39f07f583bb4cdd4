package api

import (
	"time"

	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Gender      string `json:"gender,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Address     string `json:"address,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"` // YYYY-MM-DD
}

type CreateStaffRequest struct {
	Email             string `json:"email"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Role              string `json:"role"` // doctor or manager
	Specialty         string `json:"specialty,omitempty"`
	YearsOfExperience int    `json:"years_of_experience,omitempty"`
	Biography         string `json:"biography,omitempty"`
}

type CreateStaffResponse struct {
	User         UserResponse `json:"user"`
	TempPassword string       `json:"temp_password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
}

type DoctorResponse struct {
	ID                uuid.UUID `json:"id"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	Specialty         string    `json:"specialty"`
	YearsOfExperience int       `json:"years_of_experience"`
	Biography         string    `json:"biography,omitempty"`
}

type GeneratePlanningRequest struct {
	DoctorIDs           []string `json:"doctor_ids"`
	Month               int      `json:"month"`
	Year                int      `json:"year"`
	StartHour           int      `json:"start_hour"`
	EndHour             int      `json:"end_hour"`
	SlotDurationMinutes int      `json:"slot_duration_minutes"`
	Force               bool     `json:"force,omitempty"`
}

type GeneratedPlanningResponse struct {
	PlanningID uuid.UUID `json:"planning_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	Month      int       `json:"month"`
	Year       int       `json:"year"`
	SlotCount  int       `json:"slot_count"`
}

type PlanningResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Month     int       `json:"month"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

type PlanningDetailResponse struct {
	Planning PlanningResponse `json:"planning"`
	Slots    []SlotResponse   `json:"slots"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	PlanningID uuid.UUID `json:"planning_id"`
	Date       string    `json:"date"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
}

type UnavailabilityRequest struct {
	DoctorID  string `json:"doctor_id,omitempty"` // defaults to the acting doctor
	StartDate string `json:"start_date"`          // YYYY-MM-DD
	EndDate   string `json:"end_date"`            // YYYY-MM-DD
	Reason    string `json:"reason,omitempty"`
	Apply     bool   `json:"apply,omitempty"` // block existing free slots right away
}

type UnavailabilityResponse struct {
	ID           uuid.UUID `json:"id"`
	DoctorID     uuid.UUID `json:"doctor_id"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Reason       string    `json:"reason,omitempty"`
	SlotsBlocked int64     `json:"slots_blocked"`
}

type BeneficiaryRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
}

type BookAppointmentRequest struct {
	SlotID      string              `json:"slot_id"`
	Reason      string              `json:"reason,omitempty"`
	Beneficiary *BeneficiaryRequest `json:"beneficiary,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type BeneficiaryResponse struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
	Age       int    `json:"age"`
}

type AppointmentResponse struct {
	ID          uuid.UUID            `json:"id"`
	PatientID   uuid.UUID            `json:"patient_id"`
	DoctorID    uuid.UUID            `json:"doctor_id,omitempty"`
	SlotID      uuid.UUID            `json:"slot_id,omitempty"`
	Slot        *SlotResponse        `json:"slot,omitempty"`
	Beneficiary *BeneficiaryResponse `json:"beneficiary,omitempty"`
	Status      string               `json:"status"`
	Reason      string               `json:"reason,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
