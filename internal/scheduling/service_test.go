package scheduling_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/memstore"
	"github.com/medbook/medbook/internal/scheduling"
)

func newTestService(t *testing.T) (*scheduling.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return scheduling.NewService(store, store, zerolog.Nop()), store
}

func addDoctor(t *testing.T, store *memstore.Store) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	id := uuid.New()
	err := store.CreateUser(ctx, &account.User{
		ID:        id,
		Email:     id.String() + "@clinic.test",
		FirstName: "Dana",
		LastName:  "Osei",
		Role:      account.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.CreateDoctorProfile(ctx, &account.Doctor{UserID: id, Specialty: "Cardiology"}); err != nil {
		t.Fatalf("create doctor profile: %v", err)
	}
	return id
}

func marchParams() scheduling.GenerateParams {
	return scheduling.GenerateParams{Month: 3, Year: 2025, StartHour: 9, EndHour: 11, SlotDurationMinutes: 60}
}

func TestGeneratePlanningsCreatesSlots(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(generated) != 1 {
		t.Fatalf("expected one planning, got %d", len(generated))
	}
	if generated[0].SlotCount != 62 {
		t.Errorf("expected 62 slots, got %d", generated[0].SlotCount)
	}

	planning, err := svc.GetPlanning(ctx, doctorID, 3, 2025)
	if err != nil {
		t.Fatalf("get planning: %v", err)
	}
	if planning.DoctorID != doctorID {
		t.Errorf("planning doctor %s, want %s", planning.DoctorID, doctorID)
	}

	slots, err := svc.PlanningSlots(ctx, planning.ID)
	if err != nil {
		t.Fatalf("planning slots: %v", err)
	}
	if len(slots) != 62 {
		t.Fatalf("expected 62 stored slots, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot.Status != scheduling.SlotFree {
			t.Fatalf("slot %s generated as %s, want free", slot.ID, slot.Status)
		}
	}
}

func TestGeneratePlanningsUnknownDoctor(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GeneratePlannings(context.Background(), []uuid.UUID{uuid.New()}, marchParams(), false)
	if !errors.Is(err, scheduling.ErrDoctorUnknown) {
		t.Fatalf("expected ErrDoctorUnknown, got %v", err)
	}
}

func TestGeneratePlanningsValidatesBeforeMutation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	params := marchParams()
	params.Month = 0

	if _, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, params, false); !errors.Is(err, scheduling.ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}

	if _, err := svc.GetPlanning(ctx, doctorID, 3, 2025); !errors.Is(err, scheduling.ErrPlanningNotFound) {
		t.Fatalf("invalid request must not create a planning, got %v", err)
	}
}

func TestRegenerationGuardedByReservedSlots(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	slots, err := svc.PlanningSlots(ctx, generated[0].Planning.ID)
	if err != nil {
		t.Fatalf("planning slots: %v", err)
	}
	if _, err := svc.SetSlotStatus(ctx, slots[0].ID, scheduling.SlotReserved); err != nil {
		t.Fatalf("reserve slot: %v", err)
	}

	_, err = svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if !errors.Is(err, scheduling.ErrPlanningInUse) {
		t.Fatalf("expected ErrPlanningInUse, got %v", err)
	}

	// Force wipes and rebuilds.
	forced, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), true)
	if err != nil {
		t.Fatalf("forced generate: %v", err)
	}
	if forced[0].SlotCount != 62 {
		t.Errorf("forced regeneration produced %d slots, want 62", forced[0].SlotCount)
	}

	rebuilt, err := svc.PlanningSlots(ctx, forced[0].Planning.ID)
	if err != nil {
		t.Fatalf("planning slots after force: %v", err)
	}
	for _, slot := range rebuilt {
		if slot.Status != scheduling.SlotFree {
			t.Fatalf("rebuilt slot %s is %s, want free", slot.ID, slot.Status)
		}
	}
}

func TestBatchRegenerationRejectedWithoutTouchingOtherDoctors(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorA := addDoctor(t, store)
	doctorB := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorA, doctorB}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Mark doctor A's planning so a rebuild would be visible, and give
	// doctor B a reserved slot that trips the guard.
	slotsA, err := svc.PlanningSlots(ctx, generated[0].Planning.ID)
	if err != nil {
		t.Fatalf("planning slots A: %v", err)
	}
	if _, err := svc.BlockSlot(ctx, slotsA[0].ID); err != nil {
		t.Fatalf("block slot: %v", err)
	}

	slotsB, err := svc.PlanningSlots(ctx, generated[1].Planning.ID)
	if err != nil {
		t.Fatalf("planning slots B: %v", err)
	}
	if _, err := svc.SetSlotStatus(ctx, slotsB[0].ID, scheduling.SlotReserved); err != nil {
		t.Fatalf("reserve slot: %v", err)
	}

	_, err = svc.GeneratePlannings(ctx, []uuid.UUID{doctorA, doctorB}, marchParams(), false)
	if !errors.Is(err, scheduling.ErrPlanningInUse) {
		t.Fatalf("expected ErrPlanningInUse, got %v", err)
	}

	// The rejected batch must not have regenerated doctor A's slots.
	kept, err := svc.GetSlot(ctx, slotsA[0].ID)
	if err != nil {
		t.Fatalf("doctor A's slot was wiped by a rejected batch: %v", err)
	}
	if kept.Status != scheduling.SlotBlocked {
		t.Errorf("doctor A's slot is %s after rejected batch, want blocked", kept.Status)
	}
}

func TestGenerateSkipsUnavailableDays(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	_, err := svc.AddUnavailability(ctx, doctorID,
		time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		"conference")
	if err != nil {
		t.Fatalf("add unavailability: %v", err)
	}

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if generated[0].SlotCount != 50 {
		t.Errorf("expected 50 slots outside the unavailable range, got %d", generated[0].SlotCount)
	}
}

func TestBlockAndUnblockSlot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	slots, _ := svc.PlanningSlots(ctx, generated[0].Planning.ID)

	blocked, err := svc.BlockSlot(ctx, slots[0].ID)
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if blocked.Status != scheduling.SlotBlocked {
		t.Errorf("status after block is %s, want blocked", blocked.Status)
	}

	free, err := svc.UnblockSlot(ctx, slots[0].ID)
	if err != nil {
		t.Fatalf("unblock: %v", err)
	}
	if free.Status != scheduling.SlotFree {
		t.Errorf("status after unblock is %s, want free", free.Status)
	}
}

func TestSetSlotStatusRejectsUnknownStatus(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	slots, _ := svc.PlanningSlots(ctx, generated[0].Planning.ID)

	if _, err := svc.SetSlotStatus(ctx, slots[0].ID, "booked"); !errors.Is(err, scheduling.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestAddUnavailabilityInvalidRange(t *testing.T) {
	svc, store := newTestService(t)
	doctorID := addDoctor(t, store)

	_, err := svc.AddUnavailability(context.Background(), doctorID,
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		"")
	if !errors.Is(err, scheduling.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestApplyUnavailabilityBlocksExistingFreeSlots(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	doctorID := addDoctor(t, store)

	generated, err := svc.GeneratePlannings(ctx, []uuid.UUID{doctorID}, marchParams(), false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	slots, _ := svc.PlanningSlots(ctx, generated[0].Planning.ID)

	// Reserve one slot inside the range: apply must leave it alone.
	var reservedID uuid.UUID
	for _, slot := range slots {
		if slot.Date.Day() == 5 {
			if _, err := svc.SetSlotStatus(ctx, slot.ID, scheduling.SlotReserved); err != nil {
				t.Fatalf("reserve slot: %v", err)
			}
			reservedID = slot.ID
			break
		}
	}

	u, err := svc.AddUnavailability(ctx, doctorID,
		time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		"leave")
	if err != nil {
		t.Fatalf("add unavailability: %v", err)
	}

	blocked, err := svc.ApplyUnavailability(ctx, u.ID)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// Six days, two slots each, minus the reserved one.
	if blocked != 11 {
		t.Errorf("expected 11 blocked slots, got %d", blocked)
	}

	slot, err := svc.GetSlot(ctx, reservedID)
	if err != nil {
		t.Fatalf("get slot: %v", err)
	}
	if slot.Status != scheduling.SlotReserved {
		t.Errorf("reserved slot became %s, apply must not touch it", slot.Status)
	}
}

func TestApplyUnavailabilityUnknownID(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ApplyUnavailability(context.Background(), uuid.New())
	if !errors.Is(err, scheduling.ErrUnavailabilityNotFound) {
		t.Fatalf("expected ErrUnavailabilityNotFound, got %v", err)
	}
}
