// Package memstore is an in-memory implementation of the account,
// scheduling and appointment repositories, sharing one lock so the
// cross-entity units of work (booking, cancellation, regeneration) stay
// atomic. It backs the test suites and single-process dev runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/appointment"
	"github.com/medbook/medbook/internal/scheduling"
)

type Store struct {
	mu sync.RWMutex

	users            map[uuid.UUID]*account.User
	usersByEmail     map[string]uuid.UUID
	doctors          map[uuid.UUID]*account.Doctor
	patients         map[uuid.UUID]*account.Patient
	plannings        map[uuid.UUID]*scheduling.Planning
	slots            map[uuid.UUID]*scheduling.TimeSlot
	unavailabilities map[uuid.UUID]*scheduling.Unavailability
	beneficiaries    map[uuid.UUID]*appointment.Beneficiary
	appointments     map[uuid.UUID]*appointment.Appointment
	events           []appointment.EventLog
	nextEventID      int64
}

func New() *Store {
	return &Store{
		users:            make(map[uuid.UUID]*account.User),
		usersByEmail:     make(map[string]uuid.UUID),
		doctors:          make(map[uuid.UUID]*account.Doctor),
		patients:         make(map[uuid.UUID]*account.Patient),
		plannings:        make(map[uuid.UUID]*scheduling.Planning),
		slots:            make(map[uuid.UUID]*scheduling.TimeSlot),
		unavailabilities: make(map[uuid.UUID]*scheduling.Unavailability),
		beneficiaries:    make(map[uuid.UUID]*appointment.Beneficiary),
		appointments:     make(map[uuid.UUID]*appointment.Appointment),
	}
}

// --- account.Repository ---

func (s *Store) CreateUser(_ context.Context, u *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := s.usersByEmail[email]; taken {
		return account.ErrEmailTaken
	}

	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.users[cp.ID] = &cp
	s.usersByEmail[email] = cp.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id uuid.UUID) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, account.ErrUserNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *Store) CreateDoctorProfile(_ context.Context, d *account.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *d
	if u, ok := s.users[d.UserID]; ok {
		cp.FirstName = u.FirstName
		cp.LastName = u.LastName
	}
	s.doctors[cp.UserID] = &cp
	return nil
}

func (s *Store) CreatePatientProfile(_ context.Context, p *account.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	if u, ok := s.users[p.UserID]; ok {
		cp.FirstName = u.FirstName
		cp.LastName = u.LastName
	}
	s.patients[cp.UserID] = &cp
	return nil
}

func (s *Store) GetDoctorByID(_ context.Context, id uuid.UUID) (*account.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.doctors[id]
	if !ok {
		return nil, account.ErrDoctorNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) GetPatientByUserID(_ context.Context, userID uuid.UUID) (*account.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[userID]
	if !ok {
		return nil, account.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListDoctors(_ context.Context) ([]account.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []account.Doctor
	for _, d := range s.doctors {
		result = append(result, *d)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (s *Store) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.doctors[id]
	return ok, nil
}

func (s *Store) PatientExists(_ context.Context, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.patients[userID]
	return ok, nil
}

// --- scheduling.Repository ---

func (s *Store) GetPlanning(_ context.Context, doctorID uuid.UUID, month, year int) (*scheduling.Planning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.plannings {
		if p.DoctorID == doctorID && p.Month == month && p.Year == year {
			cp := *p
			return &cp, nil
		}
	}
	return nil, scheduling.ErrPlanningNotFound
}

func (s *Store) GetPlanningByID(_ context.Context, id uuid.UUID) (*scheduling.Planning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plannings[id]
	if !ok {
		return nil, scheduling.ErrPlanningNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) CreatePlanning(_ context.Context, p *scheduling.Planning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.plannings {
		if existing.DoctorID == p.DoctorID && existing.Month == p.Month && existing.Year == p.Year {
			return fmt.Errorf("planning already exists for doctor %s %d/%d", p.DoctorID, p.Month, p.Year)
		}
	}

	cp := *p
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.plannings[cp.ID] = &cp
	return nil
}

func (s *Store) ListPlannings(_ context.Context, month, year int) ([]scheduling.Planning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []scheduling.Planning
	for _, p := range s.plannings {
		if p.Month == month && p.Year == year {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CountReservedSlots(_ context.Context, planningID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, slot := range s.slots {
		if slot.PlanningID == planningID && slot.Status == scheduling.SlotReserved {
			count++
		}
	}
	return count, nil
}

func (s *Store) ReplaceSlots(_ context.Context, planningID uuid.UUID, slots []scheduling.TimeSlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[uuid.UUID]bool)
	for id, slot := range s.slots {
		if slot.PlanningID == planningID {
			removed[id] = true
			delete(s.slots, id)
		}
	}

	// Mirror the relational behavior: live appointments on the removed
	// slots are soft-cancelled and detached.
	for _, a := range s.appointments {
		if removed[a.TimeSlotID] && (a.Status == appointment.StatusConfirmed || a.Status == appointment.StatusModified) {
			a.Status = appointment.StatusCancelled
			a.Reason = "planning regenerated"
			a.UpdatedAt = time.Now()
		}
		if removed[a.TimeSlotID] {
			a.TimeSlotID = uuid.Nil
		}
	}

	now := time.Now()
	for _, slot := range slots {
		cp := slot
		cp.CreatedAt = now
		cp.UpdatedAt = now
		s.slots[cp.ID] = &cp
	}
	return nil
}

func (s *Store) GetSlotByID(_ context.Context, id uuid.UUID) (*scheduling.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	cp := *slot
	return &cp, nil
}

func (s *Store) SetSlotStatus(_ context.Context, id uuid.UUID, status scheduling.SlotStatus) (*scheduling.TimeSlot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[id]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	slot.Status = status
	slot.UpdatedAt = time.Now()
	cp := *slot
	return &cp, nil
}

func (s *Store) ListFreeSlotsByDoctor(_ context.Context, doctorID uuid.UUID, month, year int) ([]scheduling.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []scheduling.TimeSlot
	for _, slot := range s.slots {
		if slot.Status != scheduling.SlotFree {
			continue
		}
		p, ok := s.plannings[slot.PlanningID]
		if !ok || p.DoctorID != doctorID {
			continue
		}
		if month != 0 && year != 0 && (p.Month != month || p.Year != year) {
			continue
		}
		result = append(result, *slot)
	}
	sortSlots(result)
	return result, nil
}

func (s *Store) ListSlotsByPlanning(_ context.Context, planningID uuid.UUID) ([]scheduling.TimeSlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []scheduling.TimeSlot
	for _, slot := range s.slots {
		if slot.PlanningID == planningID {
			result = append(result, *slot)
		}
	}
	sortSlots(result)
	return result, nil
}

func sortSlots(slots []scheduling.TimeSlot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
}

func (s *Store) AddUnavailability(_ context.Context, u *scheduling.Unavailability) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *u
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	s.unavailabilities[cp.ID] = &cp
	return nil
}

func (s *Store) GetUnavailabilityByID(_ context.Context, id uuid.UUID) (*scheduling.Unavailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.unavailabilities[id]
	if !ok {
		return nil, scheduling.ErrUnavailabilityNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) ListUnavailabilitiesByDoctor(_ context.Context, doctorID uuid.UUID) ([]scheduling.Unavailability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []scheduling.Unavailability
	for _, u := range s.unavailabilities {
		if u.DoctorID == doctorID {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartDate.Before(result[j].StartDate) })
	return result, nil
}

func (s *Store) BlockFreeSlotsInRange(_ context.Context, doctorID uuid.UUID, start, end time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var blocked int64
	for _, slot := range s.slots {
		if slot.Status != scheduling.SlotFree {
			continue
		}
		p, ok := s.plannings[slot.PlanningID]
		if !ok || p.DoctorID != doctorID {
			continue
		}
		if slot.Date.Before(start) || slot.Date.After(end) {
			continue
		}
		slot.Status = scheduling.SlotBlocked
		slot.UpdatedAt = time.Now()
		blocked++
	}
	return blocked, nil
}

// --- appointment.Repository ---

func (s *Store) BookSlot(_ context.Context, slotID, patientID uuid.UUID, ben *appointment.Beneficiary, reason string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[slotID]
	if !ok {
		return nil, scheduling.ErrSlotNotFound
	}
	if slot.Status != scheduling.SlotFree {
		return nil, fmt.Errorf("%w: slot is %s", appointment.ErrSlotNotAvailable, slot.Status)
	}

	slot.Status = scheduling.SlotReserved
	slot.UpdatedAt = time.Now()

	var benID uuid.UUID
	if ben != nil {
		cp := *ben
		s.beneficiaries[cp.ID] = &cp
		benID = cp.ID
	}

	now := time.Now()
	appt := &appointment.Appointment{
		ID:            uuid.New(),
		PatientID:     patientID,
		TimeSlotID:    slotID,
		BeneficiaryID: benID,
		Status:        appointment.StatusConfirmed,
		Reason:        reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.appointments[appt.ID] = appt

	cp := *appt
	return &cp, nil
}

func (s *Store) CancelAppointment(_ context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if appt.Status != appointment.StatusConfirmed {
		return nil, fmt.Errorf("%w: appointment is %s", appointment.ErrInvalidTransition, appt.Status)
	}

	slot, ok := s.slots[appt.TimeSlotID]
	if !ok || slot.Status != scheduling.SlotReserved {
		return nil, fmt.Errorf("%w: slot %s is not reserved", appointment.ErrConsistency, appt.TimeSlotID)
	}

	appt.Status = appointment.StatusCancelled
	if reason != "" {
		appt.Reason = reason
	}
	appt.UpdatedAt = time.Now()

	slot.Status = scheduling.SlotFree
	slot.UpdatedAt = time.Now()

	cp := *appt
	return &cp, nil
}

func (s *Store) CompleteAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	if appt.Status != appointment.StatusConfirmed {
		return nil, fmt.Errorf("%w: appointment is %s", appointment.ErrInvalidTransition, appt.Status)
	}

	slot, ok := s.slots[appt.TimeSlotID]
	if !ok || slot.Status != scheduling.SlotReserved {
		return nil, fmt.Errorf("%w: slot %s is not reserved", appointment.ErrConsistency, appt.TimeSlotID)
	}

	appt.Status = appointment.StatusCompleted
	appt.UpdatedAt = time.Now()

	cp := *appt
	return &cp, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (s *Store) GetDetail(_ context.Context, id uuid.UUID) (*appointment.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appointments[id]
	if !ok {
		return nil, appointment.ErrAppointmentNotFound
	}
	return s.buildDetail(appt), nil
}

func (s *Store) buildDetail(appt *appointment.Appointment) *appointment.Detail {
	d := &appointment.Detail{Appointment: *appt}

	if slot, ok := s.slots[appt.TimeSlotID]; ok {
		cp := *slot
		d.Slot = &cp
		if p, ok := s.plannings[slot.PlanningID]; ok {
			d.DoctorID = p.DoctorID
		}
	}
	if ben, ok := s.beneficiaries[appt.BeneficiaryID]; ok {
		cp := *ben
		d.Beneficiary = &cp
	}
	return d
}

func (s *Store) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []appointment.Detail
	for _, a := range s.appointments {
		if a.PatientID == patientID {
			result = append(result, *s.buildDetail(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	if offset >= len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]appointment.Detail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []appointment.Detail
	for _, a := range s.appointments {
		d := s.buildDetail(a)
		if d.DoctorID == doctorID {
			result = append(result, *d)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		si, sj := result[i].Slot, result[j].Slot
		if si == nil || sj == nil {
			return sj == nil && si != nil
		}
		return si.StartTime.Before(sj.StartTime)
	})
	return result, nil
}

func (s *Store) InsertEvent(_ context.Context, ev appointment.EventLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextEventID++
	ev.ID = s.nextEventID
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	s.events = append(s.events, ev)
	return nil
}

// Events returns a copy of the event log for assertions in tests.
func (s *Store) Events() []appointment.EventLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]appointment.EventLog, len(s.events))
	copy(out, s.events)
	return out
}
