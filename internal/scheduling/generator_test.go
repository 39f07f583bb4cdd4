package scheduling

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateParamsValidate(t *testing.T) {
	valid := GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 17, SlotDurationMinutes: 60}

	tests := []struct {
		name    string
		mutate  func(*GenerateParams)
		wantErr bool
	}{
		{"valid", func(p *GenerateParams) {}, false},
		{"month zero", func(p *GenerateParams) { p.Month = 0 }, true},
		{"month thirteen", func(p *GenerateParams) { p.Month = 13 }, true},
		{"year too early", func(p *GenerateParams) { p.Year = 2023 }, true},
		{"year too late", func(p *GenerateParams) { p.Year = 2101 }, true},
		{"negative start hour", func(p *GenerateParams) { p.StartHour = -1 }, true},
		{"start hour 24", func(p *GenerateParams) { p.StartHour = 24 }, true},
		{"end hour 24", func(p *GenerateParams) { p.EndHour = 24 }, true},
		{"duration too short", func(p *GenerateParams) { p.SlotDurationMinutes = 10 }, true},
		{"duration too long", func(p *GenerateParams) { p.SlotDurationMinutes = 241 }, true},
		{"duration lower bound", func(p *GenerateParams) { p.SlotDurationMinutes = 15 }, false},
		{"duration upper bound", func(p *GenerateParams) { p.SlotDurationMinutes = 240 }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := valid
			tc.mutate(&p)

			err := p.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidParams) {
					t.Fatalf("expected ErrInvalidParams, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestDaysInMonth(t *testing.T) {
	tests := []struct {
		year, month, want int
	}{
		{2025, 1, 31},
		{2025, 2, 28},
		{2024, 2, 29}, // leap year
		{2025, 4, 30},
		{2025, 12, 31},
	}

	for _, tc := range tests {
		if got := daysInMonth(tc.year, tc.month); got != tc.want {
			t.Errorf("daysInMonth(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestEnumerateSlots(t *testing.T) {
	params := GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 11, SlotDurationMinutes: 60}

	slots := enumerateSlots(params, nil)

	// 31 days, two slots per day.
	if len(slots) != 62 {
		t.Fatalf("expected 62 slots, got %d", len(slots))
	}

	first := slots[0]
	if first.Status != SlotFree {
		t.Errorf("new slots must be free, got %s", first.Status)
	}
	wantStart := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	if !first.StartTime.Equal(wantStart) {
		t.Errorf("first slot starts at %s, want %s", first.StartTime, wantStart)
	}
	if !first.EndTime.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("first slot ends at %s, want %s", first.EndTime, wantStart.Add(time.Hour))
	}
	if !first.Date.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first slot date %s is not midnight UTC", first.Date)
	}
}

func TestEnumerateSlotsSkipsUnavailableDays(t *testing.T) {
	params := GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 11, SlotDurationMinutes: 60}

	unavailable := []Unavailability{{
		StartDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}}

	slots := enumerateSlots(params, unavailable)

	// Six covered days remove twelve slots.
	if len(slots) != 50 {
		t.Fatalf("expected 50 slots, got %d", len(slots))
	}

	for _, slot := range slots {
		if unavailable[0].Covers(slot.Date) {
			t.Errorf("slot on %s falls inside the unavailable range", slot.Date.Format("2006-01-02"))
		}
	}
}

func TestEnumerateSlotsEmptyHourRange(t *testing.T) {
	params := GenerateParams{Month: 3, Year: 2025, StartHour: 17, EndHour: 9, SlotDurationMinutes: 60}

	if slots := enumerateSlots(params, nil); len(slots) != 0 {
		t.Fatalf("inverted hour range should yield no slots, got %d", len(slots))
	}
}

func TestEnumerateSlotsLongDurationOverlaps(t *testing.T) {
	params := GenerateParams{Month: 2, Year: 2025, StartHour: 9, EndHour: 11, SlotDurationMinutes: 90}

	slots := enumerateSlots(params, nil)
	if len(slots) != 56 { // 28 days, two slots per day
		t.Fatalf("expected 56 slots, got %d", len(slots))
	}

	// Hour grid stays hourly even when the duration exceeds an hour.
	if got := slots[1].StartTime.Sub(slots[0].StartTime); got != time.Hour {
		t.Errorf("adjacent slots are %s apart, want 1h", got)
	}
	if got := slots[0].EndTime.Sub(slots[0].StartTime); got != 90*time.Minute {
		t.Errorf("slot length is %s, want 90m", got)
	}
}

func TestUnavailabilityCovers(t *testing.T) {
	u := Unavailability{
		StartDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}

	if !u.Covers(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Error("start bound should be inclusive")
	}
	if !u.Covers(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Error("end bound should be inclusive")
	}
	if u.Covers(time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Error("day before the range should not be covered")
	}
	if u.Covers(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Error("day after the range should not be covered")
	}
}
