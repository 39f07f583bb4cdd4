package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidParams = errors.New("invalid planning parameters")
	ErrInvalidRange  = errors.New("end date cannot be before start date")
	ErrInvalidStatus = errors.New("invalid slot status")
	ErrPlanningInUse = errors.New("planning has reserved slots, regeneration requires force")
	ErrDoctorUnknown = errors.New("doctor does not exist")
)

// DoctorDirectory answers doctor existence checks. Implemented by the
// account repository.
type DoctorDirectory interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo    Repository
	doctors DoctorDirectory
	log     zerolog.Logger
}

func NewService(repo Repository, doctors DoctorDirectory, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		doctors: doctors,
		log:     log,
	}
}

// GeneratedPlanning reports one doctor's regenerated planning.
type GeneratedPlanning struct {
	Planning  Planning
	SlotCount int
}

// GeneratePlannings builds (or rebuilds) monthly plannings for the given
// doctors. All validation, including the reserved-slot guard for every
// requested doctor, runs before any planning is touched; a rejected
// batch leaves every doctor's slots intact. An empty doctor list is a
// no-op. Regenerating a planning that still has reserved slots is
// rejected unless force is set, in which case the bound appointments are
// cancelled before the slots are wiped.
func (s *Service) GeneratePlannings(ctx context.Context, doctorIDs []uuid.UUID, params GenerateParams, force bool) ([]GeneratedPlanning, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	for _, doctorID := range doctorIDs {
		exists, err := s.doctors.DoctorExists(ctx, doctorID)
		if err != nil {
			return nil, fmt.Errorf("check doctor %s: %w", doctorID, err)
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", ErrDoctorUnknown, doctorID)
		}
	}

	if !force {
		for _, doctorID := range doctorIDs {
			if err := s.checkPlanningFree(ctx, doctorID, params); err != nil {
				return nil, err
			}
		}
	}

	var results []GeneratedPlanning

	for _, doctorID := range doctorIDs {
		generated, err := s.generateForDoctor(ctx, doctorID, params, force)
		if err != nil {
			return nil, err
		}
		results = append(results, *generated)
	}

	return results, nil
}

// checkPlanningFree rejects regeneration while the doctor's planning for
// the month still holds reserved slots.
func (s *Service) checkPlanningFree(ctx context.Context, doctorID uuid.UUID, params GenerateParams) error {
	planning, err := s.repo.GetPlanning(ctx, doctorID, params.Month, params.Year)
	if errors.Is(err, ErrPlanningNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load planning: %w", err)
	}

	reserved, err := s.repo.CountReservedSlots(ctx, planning.ID)
	if err != nil {
		return fmt.Errorf("count reserved slots: %w", err)
	}
	if reserved > 0 {
		return fmt.Errorf("%w: doctor %s has %d reserved slots in %d/%d",
			ErrPlanningInUse, doctorID, reserved, params.Month, params.Year)
	}
	return nil
}

func (s *Service) generateForDoctor(ctx context.Context, doctorID uuid.UUID, params GenerateParams, force bool) (*GeneratedPlanning, error) {
	planning, err := s.repo.GetPlanning(ctx, doctorID, params.Month, params.Year)
	switch {
	case err == nil:
		reserved, err := s.repo.CountReservedSlots(ctx, planning.ID)
		if err != nil {
			return nil, fmt.Errorf("count reserved slots: %w", err)
		}
		if reserved > 0 && !force {
			return nil, fmt.Errorf("%w: doctor %s has %d reserved slots in %d/%d",
				ErrPlanningInUse, doctorID, reserved, params.Month, params.Year)
		}
		if reserved > 0 {
			s.log.Warn().
				Str("doctor_id", doctorID.String()).
				Int("reserved", reserved).
				Msg("forced regeneration cancelling live bookings")
		}
	case errors.Is(err, ErrPlanningNotFound):
		planning = &Planning{
			ID:       uuid.New(),
			DoctorID: doctorID,
			Month:    params.Month,
			Year:     params.Year,
		}
		if err := s.repo.CreatePlanning(ctx, planning); err != nil {
			return nil, fmt.Errorf("create planning: %w", err)
		}
	default:
		return nil, fmt.Errorf("load planning: %w", err)
	}

	unavailable, err := s.repo.ListUnavailabilitiesByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list unavailabilities: %w", err)
	}

	slots := enumerateSlots(params, unavailable)
	for i := range slots {
		slots[i].ID = uuid.New()
		slots[i].PlanningID = planning.ID
	}

	if err := s.repo.ReplaceSlots(ctx, planning.ID, slots); err != nil {
		return nil, fmt.Errorf("replace slots: %w", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Int("month", params.Month).
		Int("year", params.Year).
		Int("slots", len(slots)).
		Msg("planning generated")

	return &GeneratedPlanning{Planning: *planning, SlotCount: len(slots)}, nil
}

// BlockSlot is the manager's unconditional block action.
func (s *Service) BlockSlot(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error) {
	return s.repo.SetSlotStatus(ctx, slotID, SlotBlocked)
}

// UnblockSlot returns a slot to the free pool.
func (s *Service) UnblockSlot(ctx context.Context, slotID uuid.UUID) (*TimeSlot, error) {
	return s.repo.SetSlotStatus(ctx, slotID, SlotFree)
}

// SetSlotStatus is the raw administrative assignment. It is the only way
// a slot can reach pending, which no booking transition produces.
func (s *Service) SetSlotStatus(ctx context.Context, slotID uuid.UUID, status SlotStatus) (*TimeSlot, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.repo.SetSlotStatus(ctx, slotID, status)
}

// AddUnavailability validates and stores a doctor's unavailable range.
// Dates are normalized to midnight UTC; both bounds are inclusive.
func (s *Service) AddUnavailability(ctx context.Context, doctorID uuid.UUID, startDate, endDate time.Time, reason string) (*Unavailability, error) {
	start := midnightUTC(startDate)
	end := midnightUTC(endDate)

	if end.Before(start) {
		return nil, ErrInvalidRange
	}

	exists, err := s.doctors.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrDoctorUnknown, doctorID)
	}

	u := &Unavailability{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		StartDate: start,
		EndDate:   end,
		Reason:    reason,
	}

	if err := s.repo.AddUnavailability(ctx, u); err != nil {
		return nil, fmt.Errorf("store unavailability: %w", err)
	}

	return u, nil
}

// ApplyUnavailability retroactively blocks already generated free slots
// covered by the range, so a new unavailability voids them without a full
// planning regeneration. Reserved and blocked slots are left alone.
func (s *Service) ApplyUnavailability(ctx context.Context, id uuid.UUID) (int64, error) {
	u, err := s.repo.GetUnavailabilityByID(ctx, id)
	if err != nil {
		return 0, err
	}

	blocked, err := s.repo.BlockFreeSlotsInRange(ctx, u.DoctorID, u.StartDate, u.EndDate)
	if err != nil {
		return 0, fmt.Errorf("block slots in range: %w", err)
	}

	s.log.Info().
		Str("unavailability_id", id.String()).
		Int64("blocked", blocked).
		Msg("unavailability applied to existing slots")

	return blocked, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	return s.repo.GetSlotByID(ctx, id)
}

// FreeSlots lists a doctor's bookable slots; month/year zero means all.
func (s *Service) FreeSlots(ctx context.Context, doctorID uuid.UUID, month, year int) ([]TimeSlot, error) {
	return s.repo.ListFreeSlotsByDoctor(ctx, doctorID, month, year)
}

func (s *Service) PlanningSlots(ctx context.Context, planningID uuid.UUID) ([]TimeSlot, error) {
	return s.repo.ListSlotsByPlanning(ctx, planningID)
}

func (s *Service) GetPlanning(ctx context.Context, doctorID uuid.UUID, month, year int) (*Planning, error) {
	return s.repo.GetPlanning(ctx, doctorID, month, year)
}

func (s *Service) PlanningByID(ctx context.Context, id uuid.UUID) (*Planning, error) {
	return s.repo.GetPlanningByID(ctx, id)
}

// ListPlannings backs the manager's month overview.
func (s *Service) ListPlannings(ctx context.Context, month, year int) ([]Planning, error) {
	return s.repo.ListPlannings(ctx, month, year)
}

func (s *Service) ListUnavailabilities(ctx context.Context, doctorID uuid.UUID) ([]Unavailability, error) {
	return s.repo.ListUnavailabilitiesByDoctor(ctx, doctorID)
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
