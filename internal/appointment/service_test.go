package appointment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/appointment"
	"github.com/medbook/medbook/internal/memstore"
	"github.com/medbook/medbook/internal/notify"
	redisclient "github.com/medbook/medbook/internal/redis"
	"github.com/medbook/medbook/internal/scheduling"
)

type fixture struct {
	store        *memstore.Store
	appointments *appointment.Service
	schedules    *scheduling.Service
	doctorID     uuid.UUID
	patientID    uuid.UUID
	planningID   uuid.UUID
	slots        []scheduling.TimeSlot
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memstore.New()
	log := zerolog.Nop()
	notifier := notify.NewLogSender(log)

	schedules := scheduling.NewService(store, store, log)
	appointments := appointment.NewService(store, store, redisclient.NewLocalLocker(), notifier, log)

	doctorID := uuid.New()
	if err := store.CreateUser(ctx, &account.User{
		ID: doctorID, Email: "doc@clinic.test", FirstName: "Dana", LastName: "Osei", Role: account.RoleDoctor,
	}); err != nil {
		t.Fatalf("create doctor user: %v", err)
	}
	if err := store.CreateDoctorProfile(ctx, &account.Doctor{UserID: doctorID, Specialty: "Cardiology"}); err != nil {
		t.Fatalf("create doctor profile: %v", err)
	}

	patientID := uuid.New()
	if err := store.CreateUser(ctx, &account.User{
		ID: patientID, Email: "pat@clinic.test", FirstName: "Ravi", LastName: "Mehta", Role: account.RolePatient,
	}); err != nil {
		t.Fatalf("create patient user: %v", err)
	}
	if err := store.CreatePatientProfile(ctx, &account.Patient{UserID: patientID}); err != nil {
		t.Fatalf("create patient profile: %v", err)
	}

	params := scheduling.GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 12, SlotDurationMinutes: 60}
	generated, err := schedules.GeneratePlannings(ctx, []uuid.UUID{doctorID}, params, false)
	if err != nil {
		t.Fatalf("generate planning: %v", err)
	}

	slots, err := schedules.PlanningSlots(ctx, generated[0].Planning.ID)
	if err != nil {
		t.Fatalf("planning slots: %v", err)
	}

	return &fixture{
		store:        store,
		appointments: appointments,
		schedules:    schedules,
		doctorID:     doctorID,
		patientID:    patientID,
		planningID:   generated[0].Planning.ID,
		slots:        slots,
	}
}

func TestBookReservesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	appt, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "annual checkup")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	if appt.Status != appointment.StatusConfirmed {
		t.Errorf("status %s, want confirmed", appt.Status)
	}
	if appt.TimeSlotID != slotID {
		t.Errorf("slot id %s, want %s", appt.TimeSlotID, slotID)
	}

	slot, err := f.schedules.GetSlot(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != scheduling.SlotReserved {
		t.Errorf("slot status %s, want reserved", slot.Status)
	}

	detail, err := f.appointments.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.DoctorID != f.doctorID {
		t.Errorf("derived doctor %s, want %s", detail.DoctorID, f.doctorID)
	}

	events := f.store.Events()
	if len(events) != 1 || events[0].EventType != appointment.EventAppointmentBooked {
		t.Errorf("expected one APPOINTMENT_BOOKED event, got %+v", events)
	}
}

func TestBookNonFreeSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	if _, err := f.appointments.Book(ctx, f.patientID, slotID, nil, ""); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "")
	if !errors.Is(err, appointment.ErrSlotNotAvailable) {
		t.Fatalf("expected ErrSlotNotAvailable, got %v", err)
	}

	// Blocked slots are equally unbookable.
	if _, err := f.schedules.BlockSlot(ctx, f.slots[1].ID); err != nil {
		t.Fatalf("block: %v", err)
	}
	_, err = f.appointments.Book(ctx, f.patientID, f.slots[1].ID, nil, "")
	if !errors.Is(err, appointment.ErrSlotNotAvailable) {
		t.Fatalf("expected ErrSlotNotAvailable for blocked slot, got %v", err)
	}
}

func TestBookUnknownPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.appointments.Book(context.Background(), uuid.New(), f.slots[0].ID, nil, "")
	if !errors.Is(err, appointment.ErrPatientUnknown) {
		t.Fatalf("expected ErrPatientUnknown, got %v", err)
	}
}

func TestBookUnknownSlot(t *testing.T) {
	f := newFixture(t)

	_, err := f.appointments.Book(context.Background(), f.patientID, uuid.New(), nil, "")
	if !errors.Is(err, scheduling.ErrSlotNotFound) {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}
}

func TestBookWithBeneficiary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	bad := &appointment.BeneficiaryInput{FirstName: "Ana", LastName: "", Gender: "Female", Age: 7}
	if _, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, bad, ""); !errors.Is(err, appointment.ErrInvalidBeneficiary) {
		t.Fatalf("expected ErrInvalidBeneficiary, got %v", err)
	}

	badGender := &appointment.BeneficiaryInput{FirstName: "Ana", LastName: "Mehta", Gender: "unknown", Age: 7}
	if _, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, badGender, ""); !errors.Is(err, appointment.ErrInvalidBeneficiary) {
		t.Fatalf("expected ErrInvalidBeneficiary for gender, got %v", err)
	}

	good := &appointment.BeneficiaryInput{FirstName: "Ana", LastName: "Mehta", Gender: "Female", Age: 7}
	appt, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, good, "vaccination")
	if err != nil {
		t.Fatalf("book with beneficiary: %v", err)
	}
	if appt.BeneficiaryID == uuid.Nil {
		t.Fatal("beneficiary id not set")
	}

	detail, err := f.appointments.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get detail: %v", err)
	}
	if detail.Beneficiary == nil || detail.Beneficiary.FirstName != "Ana" {
		t.Errorf("detail beneficiary = %+v, want Ana", detail.Beneficiary)
	}
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	const attempts = 8

	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "")
			results[i] = err
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, appointment.ErrSlotNotAvailable):
		case errors.Is(err, appointment.ErrSlotContended):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one successful booking, got %d", wins)
	}
}

func TestCancelReturnsSlotToPool(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	appt, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	cancelled, err := f.appointments.Cancel(ctx, f.doctorID, appt.ID, "doctor sick")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != appointment.StatusCancelled {
		t.Errorf("status %s, want cancelled", cancelled.Status)
	}
	if cancelled.Reason != "doctor sick" {
		t.Errorf("reason %q, want %q", cancelled.Reason, "doctor sick")
	}

	slot, err := f.schedules.GetSlot(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != scheduling.SlotFree {
		t.Errorf("slot after cancel is %s, want free", slot.Status)
	}

	// Soft delete: the row survives and stays readable.
	detail, err := f.appointments.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("cancelled appointment must remain readable: %v", err)
	}
	if detail.Status != appointment.StatusCancelled {
		t.Errorf("detail status %s, want cancelled", detail.Status)
	}

	// And the slot is bookable again.
	if _, err := f.appointments.Book(ctx, f.patientID, slotID, nil, ""); err != nil {
		t.Fatalf("rebook freed slot: %v", err)
	}
}

func TestCancelByWrongDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	_, err = f.appointments.Cancel(ctx, uuid.New(), appt.ID, "")
	if !errors.Is(err, appointment.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCancelTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if _, err := f.appointments.Cancel(ctx, f.doctorID, appt.ID, ""); err != nil {
		t.Fatalf("first cancel: %v", err)
	}

	_, err = f.appointments.Cancel(ctx, f.doctorID, appt.ID, "")
	if !errors.Is(err, appointment.ErrPermissionDenied) && !errors.Is(err, appointment.ErrInvalidTransition) {
		t.Fatalf("expected transition or permission error, got %v", err)
	}
}

func TestCompleteKeepsSlotReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	appt, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	completed, err := f.appointments.Complete(ctx, f.doctorID, appt.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != appointment.StatusCompleted {
		t.Errorf("status %s, want completed", completed.Status)
	}

	slot, err := f.schedules.GetSlot(ctx, slotID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != scheduling.SlotReserved {
		t.Errorf("slot after complete is %s, want reserved", slot.Status)
	}

	// A completed appointment cannot be cancelled.
	if _, err := f.appointments.Cancel(ctx, f.doctorID, appt.ID, ""); !errors.Is(err, appointment.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancelAndCompleteAbortOnInconsistentSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotID := f.slots[0].ID

	appt, err := f.appointments.Book(ctx, f.patientID, slotID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	// Force the slot out of reserved behind the appointment's back.
	if _, err := f.schedules.SetSlotStatus(ctx, slotID, scheduling.SlotBlocked); err != nil {
		t.Fatalf("set slot status: %v", err)
	}

	if _, err := f.appointments.Cancel(ctx, f.doctorID, appt.ID, ""); !errors.Is(err, appointment.ErrConsistency) {
		t.Fatalf("cancel: expected ErrConsistency, got %v", err)
	}
	if _, err := f.appointments.Complete(ctx, f.doctorID, appt.ID); !errors.Is(err, appointment.ErrConsistency) {
		t.Fatalf("complete: expected ErrConsistency, got %v", err)
	}

	// The aborted operations must not have advanced the appointment.
	detail, err := f.appointments.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if detail.Status != appointment.StatusConfirmed {
		t.Errorf("status %s after aborted transitions, want confirmed", detail.Status)
	}
}

func TestForcedRegenerationCancelsBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, nil, "")
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	params := scheduling.GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 12, SlotDurationMinutes: 60}
	if _, err := f.schedules.GeneratePlannings(ctx, []uuid.UUID{f.doctorID}, params, true); err != nil {
		t.Fatalf("forced regeneration: %v", err)
	}

	detail, err := f.appointments.Get(ctx, appt.ID)
	if err != nil {
		t.Fatalf("appointment must survive regeneration: %v", err)
	}
	if detail.Status != appointment.StatusCancelled {
		t.Errorf("status %s, want cancelled after forced regeneration", detail.Status)
	}
	if detail.TimeSlotID != uuid.Nil {
		t.Errorf("slot reference %s, want detached", detail.TimeSlotID)
	}
	if detail.Slot != nil {
		t.Error("detail still hydrates a destroyed slot")
	}
}

func TestListByPatient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := f.appointments.Book(ctx, f.patientID, f.slots[i].ID, nil, ""); err != nil {
			t.Fatalf("book %d: %v", i, err)
		}
	}

	all, err := f.appointments.ListByPatient(ctx, f.patientID, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(all))
	}

	page, err := f.appointments.ListByPatient(ctx, f.patientID, 2, 0)
	if err != nil {
		t.Fatalf("list with limit: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 appointments with limit, got %d", len(page))
	}

	rest, err := f.appointments.ListByPatient(ctx, f.patientID, 2, 2)
	if err != nil {
		t.Fatalf("list with offset: %v", err)
	}
	if len(rest) != 1 {
		t.Fatalf("expected 1 appointment at offset 2, got %d", len(rest))
	}
}

func TestListByDoctor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.appointments.Book(ctx, f.patientID, f.slots[0].ID, nil, ""); err != nil {
		t.Fatalf("book: %v", err)
	}

	list, err := f.appointments.ListByDoctor(ctx, f.doctorID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 appointment, got %d", len(list))
	}
	if list[0].DoctorID != f.doctorID {
		t.Errorf("doctor %s, want %s", list[0].DoctorID, f.doctorID)
	}

	other, err := f.appointments.ListByDoctor(ctx, uuid.New())
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("unrelated doctor sees %d appointments", len(other))
	}
}
