package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/notify"
	redisclient "github.com/medbook/medbook/internal/redis"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

var (
	ErrSlotNotAvailable   = errors.New("slot is not free")
	ErrSlotContended      = errors.New("slot is currently being booked, please retry")
	ErrPatientUnknown     = errors.New("patient does not exist")
	ErrPermissionDenied   = errors.New("actor is not allowed to act on this appointment")
	ErrInvalidTransition  = errors.New("invalid appointment status transition")
	ErrInvalidBeneficiary = errors.New("invalid beneficiary")
	ErrConsistency        = errors.New("appointment and slot state are inconsistent")
)

// PatientDirectory answers patient existence checks. Implemented by the
// account repository.
type PatientDirectory interface {
	PatientExists(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	locker   redisclient.Locker
	notifier notify.Sender
	log      zerolog.Logger
}

func NewService(repo Repository, patients PatientDirectory, locker redisclient.Locker, notifier notify.Sender, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		locker:   locker,
		notifier: notifier,
		log:      log,
	}
}

// BeneficiaryInput is filled when a patient books for someone else.
type BeneficiaryInput struct {
	FirstName string
	LastName  string
	Gender    string
	Age       int
}

func (b BeneficiaryInput) validate() error {
	if b.FirstName == "" || b.LastName == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidBeneficiary)
	}
	switch b.Gender {
	case "Male", "Female", "Other":
	default:
		return fmt.Errorf("%w: gender must be Male, Female or Other", ErrInvalidBeneficiary)
	}
	if b.Age < 0 || b.Age > 130 {
		return fmt.Errorf("%w: age is out of range", ErrInvalidBeneficiary)
	}
	return nil
}

// Book reserves a free slot for a patient. The per-slot lock plus the
// repository's compare-and-set guarantee that two concurrent attempts on
// the same slot produce exactly one confirmed appointment.
func (s *Service) Book(ctx context.Context, patientID, slotID uuid.UUID, ben *BeneficiaryInput, reason string) (*Appointment, error) {
	if ben != nil {
		if err := ben.validate(); err != nil {
			return nil, err
		}
	}

	exists, err := s.patients.PatientExists(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return nil, ErrPatientUnknown
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slotID, func(lockCtx context.Context) error {
		var beneficiary *Beneficiary
		if ben != nil {
			beneficiary = &Beneficiary{
				ID:        uuid.New(),
				PatientID: patientID,
				FirstName: ben.FirstName,
				LastName:  ben.LastName,
				Gender:    ben.Gender,
				Age:       ben.Age,
			}
		}

		appt, err := s.repo.BookSlot(lockCtx, slotID, patientID, beneficiary, reason)
		if err != nil {
			return err
		}
		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentBooked, map[string]any{
			"slot_id":    slotID.String(),
			"patient_id": patientID.String(),
		})
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	s.sendNotice(ctx, patientID, notify.KindAppointmentBooked, created)

	return created, nil
}

// Cancel is doctor-initiated: the acting doctor must own the appointment
// through the slot's planning. The appointment is soft-cancelled and its
// slot returns to the free pool.
func (s *Service) Cancel(ctx context.Context, actingDoctorID, id uuid.UUID, reason string) (*Appointment, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.DoctorID != actingDoctorID {
		return nil, ErrPermissionDenied
	}

	cancelled, err := s.repo.CancelAppointment(ctx, id, reason)
	if err != nil {
		if errors.Is(err, ErrConsistency) {
			s.log.Error().
				Str("appointment_id", id.String()).
				Msg("cancel aborted: slot not reserved for confirmed appointment")
		}
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentCancelled, map[string]any{
		"doctor_id": actingDoctorID.String(),
		"reason":    reason,
	})
	s.sendNotice(ctx, cancelled.PatientID, notify.KindAppointmentCancelled, cancelled)

	return cancelled, nil
}

// Complete marks an appointment done. The slot stays reserved.
func (s *Service) Complete(ctx context.Context, actingDoctorID, id uuid.UUID) (*Appointment, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if detail.DoctorID != actingDoctorID {
		return nil, ErrPermissionDenied
	}

	completed, err := s.repo.CompleteAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsistency) {
			s.log.Error().
				Str("appointment_id", id.String()).
				Msg("complete aborted: slot not reserved for confirmed appointment")
		}
		return nil, err
	}

	s.logEvent(ctx, id, EventAppointmentCompleted, map[string]any{
		"doctor_id": actingDoctorID.String(),
	})

	return completed, nil
}

// Get returns a hydrated appointment, restricted to its patient, its
// doctor, or staff.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("marshal event payload failed")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).
			Str("event", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log failed")
	}
}

func (s *Service) sendNotice(ctx context.Context, userID uuid.UUID, kind notify.Kind, appt *Appointment) {
	err := s.notifier.Send(ctx, notify.Notification{
		UserID: userID,
		Kind:   kind,
		Payload: map[string]any{
			"appointment_id": appt.ID.String(),
			"status":         string(appt.Status),
		},
	})
	if err != nil {
		s.log.Warn().Err(err).Str("kind", string(kind)).Msg("notification failed")
	}
}
