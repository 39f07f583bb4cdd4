package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service. The
// three mutating calls each span the slot and the appointment in a
// single unit of work: partial application of a booking or cancellation
// is a consistency violation.
type Repository interface {
	// BookSlot atomically moves a free slot to reserved and records the
	// appointment (creating the beneficiary first when one is given).
	// Fails with scheduling.ErrSlotNotFound or ErrSlotNotAvailable
	// without creating anything.
	BookSlot(ctx context.Context, slotID, patientID uuid.UUID, ben *Beneficiary, reason string) (*Appointment, error)

	// CancelAppointment marks a confirmed appointment cancelled and
	// frees its slot. The row is never deleted.
	CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error)

	// CompleteAppointment marks a confirmed appointment completed. The
	// slot stays reserved, denoting consumed.
	CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
