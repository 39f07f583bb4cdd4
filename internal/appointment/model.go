package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/scheduling"
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusModified  Status = "modified"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Beneficiary is a non-account person a patient books on behalf of.
type Beneficiary struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	FirstName string
	LastName  string
	Gender    string
	Age       int
}

// Appointment binds a patient to a reserved slot. The doctor is not
// stored here: it is derived from the slot's planning, so it cannot
// drift from time_slot.planning.doctor.
type Appointment struct {
	ID            uuid.UUID
	PatientID     uuid.UUID
	TimeSlotID    uuid.UUID // uuid.Nil once the slot was destroyed by regeneration
	BeneficiaryID uuid.UUID // uuid.Nil when the patient booked for themselves
	Status        Status
	Reason        string
	CreatedAt     time.Time // immutable, set once at booking
	UpdatedAt     time.Time
}

// Detail is an appointment hydrated with its slot, derived doctor and
// optional beneficiary.
type Detail struct {
	Appointment
	DoctorID    uuid.UUID
	Slot        *scheduling.TimeSlot
	Beneficiary *Beneficiary
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
