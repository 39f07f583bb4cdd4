package scheduling

import (
	"fmt"
	"time"
)

// GenerateParams configures monthly slot generation for a planning.
type GenerateParams struct {
	Month               int // 1-12
	Year                int // 2024-2100
	StartHour           int // 0-23
	EndHour             int // 0-23, slots cover [StartHour, EndHour)
	SlotDurationMinutes int // 15-240
}

func (p GenerateParams) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month must be between 1 and 12", ErrInvalidParams)
	}
	if p.Year < 2024 || p.Year > 2100 {
		return fmt.Errorf("%w: year must be between 2024 and 2100", ErrInvalidParams)
	}
	if p.StartHour < 0 || p.StartHour > 23 {
		return fmt.Errorf("%w: start hour must be between 0 and 23", ErrInvalidParams)
	}
	if p.EndHour < 0 || p.EndHour > 23 {
		return fmt.Errorf("%w: end hour must be between 0 and 23", ErrInvalidParams)
	}
	if p.SlotDurationMinutes < 15 || p.SlotDurationMinutes > 240 {
		return fmt.Errorf("%w: slot duration must be between 15 and 240 minutes", ErrInvalidParams)
	}
	return nil
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// enumerateSlots expands the params into one free slot per (day, hour),
// skipping days covered by any of the given unavailability ranges. Each
// hour gets exactly one slot; with durations over 60 minutes adjacent
// slots overlap, mirroring the planning rules this service inherited.
// An empty hour range or a fully unavailable month yields no slots.
func enumerateSlots(p GenerateParams, unavailable []Unavailability) []TimeSlot {
	var slots []TimeSlot

	numDays := daysInMonth(p.Year, p.Month)
	duration := time.Duration(p.SlotDurationMinutes) * time.Minute

	for day := 1; day <= numDays; day++ {
		date := time.Date(p.Year, time.Month(p.Month), day, 0, 0, 0, 0, time.UTC)

		covered := false
		for _, u := range unavailable {
			if u.Covers(date) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}

		for hour := p.StartHour; hour < p.EndHour; hour++ {
			start := date.Add(time.Duration(hour) * time.Hour)
			slots = append(slots, TimeSlot{
				Date:      date,
				StartTime: start,
				EndTime:   start.Add(duration),
				Status:    SlotFree,
			})
		}
	}

	return slots
}
