package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotFree     SlotStatus = "free"
	SlotReserved SlotStatus = "reserved"
	SlotPending  SlotStatus = "pending"
	SlotBlocked  SlotStatus = "blocked"
)

func (s SlotStatus) Valid() bool {
	switch s {
	case SlotFree, SlotReserved, SlotPending, SlotBlocked:
		return true
	}
	return false
}

// Planning is one doctor's slot configuration for one calendar month.
// At most one planning exists per (doctor, month, year).
type Planning struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Month     int
	Year      int
	CreatedAt time.Time
}

type TimeSlot struct {
	ID         uuid.UUID
	PlanningID uuid.UUID
	Date       time.Time // midnight UTC of the calendar day
	StartTime  time.Time
	EndTime    time.Time
	Status     SlotStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Unavailability is a doctor-declared date range with no bookable slots.
// Both bounds are inclusive.
type Unavailability struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Reason    string
	CreatedAt time.Time
}

// Covers reports whether the given day falls inside the range.
func (u Unavailability) Covers(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(u.StartDate) && !d.After(u.EndDate)
}
