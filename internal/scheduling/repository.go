package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPlanningNotFound       = errors.New("planning not found")
	ErrSlotNotFound           = errors.New("slot not found")
	ErrUnavailabilityNotFound = errors.New("unavailability not found")
)

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	GetPlanning(ctx context.Context, doctorID uuid.UUID, month, year int) (*Planning, error)
	GetPlanningByID(ctx context.Context, id uuid.UUID) (*Planning, error)
	CreatePlanning(ctx context.Context, p *Planning) error
	ListPlannings(ctx context.Context, month, year int) ([]Planning, error)

	// CountReservedSlots backs the regeneration guard.
	CountReservedSlots(ctx context.Context, planningID uuid.UUID) (int, error)

	// ReplaceSlots atomically discards a planning's slots and installs the
	// new set. Confirmed appointments bound to the old slots are cancelled
	// and detached in the same unit of work.
	ReplaceSlots(ctx context.Context, planningID uuid.UUID, slots []TimeSlot) error

	GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error)

	// SetSlotStatus is the unconditional administrative transition used by
	// block/unblock. Booking must go through the appointment repository's
	// compare-and-set instead.
	SetSlotStatus(ctx context.Context, id uuid.UUID, status SlotStatus) (*TimeSlot, error)

	ListFreeSlotsByDoctor(ctx context.Context, doctorID uuid.UUID, month, year int) ([]TimeSlot, error)
	ListSlotsByPlanning(ctx context.Context, planningID uuid.UUID) ([]TimeSlot, error)

	AddUnavailability(ctx context.Context, u *Unavailability) error
	GetUnavailabilityByID(ctx context.Context, id uuid.UUID) (*Unavailability, error)
	ListUnavailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Unavailability, error)

	// BlockFreeSlotsInRange retroactively blocks free slots whose date
	// falls inside [start, end] for the doctor. Returns the blocked count.
	BlockFreeSlotsInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int64, error)
}
