package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/scheduling"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, time_slot_id, beneficiary_id, status, reason, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var slotID, benID *uuid.UUID

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&slotID,
		&benID,
		&a.Status,
		&a.Reason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if slotID != nil {
		a.TimeSlotID = *slotID
	}
	if benID != nil {
		a.BeneficiaryID = *benID
	}
	return &a, nil
}

func (r *PgRepository) BookSlot(ctx context.Context, slotID, patientID uuid.UUID, ben *Beneficiary, reason string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The conditional update is the atomic check-and-set: with two
	// concurrent bookings only one sees the row while it is still free.
	var planningID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE time_slots
		SET status = 'reserved',
		    updated_at = now()
		WHERE id = $1 AND status = 'free'
		RETURNING planning_id
	`, slotID).Scan(&planningID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.classifySlotFailure(ctx, slotID)
		}
		return nil, fmt.Errorf("reserve slot: %w", err)
	}

	var benID *uuid.UUID
	if ben != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO beneficiaries (id, patient_id, first_name, last_name, gender, age)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, ben.ID, ben.PatientID, ben.FirstName, ben.LastName, ben.Gender, ben.Age)
		if err != nil {
			return nil, fmt.Errorf("insert beneficiary: %w", err)
		}
		benID = &ben.ID
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, time_slot_id, beneficiary_id, status, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'confirmed', $5, now(), now())
		RETURNING `+appointmentColumns+`
	`, uuid.New(), patientID, slotID, benID, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) classifySlotFailure(ctx context.Context, slotID uuid.UUID) error {
	var status scheduling.SlotStatus
	err := r.pool.QueryRow(ctx, `SELECT status FROM time_slots WHERE id = $1`, slotID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scheduling.ErrSlotNotFound
		}
		return fmt.Errorf("load slot status: %w", err)
	}
	return fmt.Errorf("%w: slot is %s", ErrSlotNotAvailable, status)
}

func (r *PgRepository) CancelAppointment(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    reason = CASE WHEN $2 <> '' THEN $2 ELSE reason END,
		    updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING `+appointmentColumns+`
	`, id, reason)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.classifyTransitionFailure(ctx, id)
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	// The slot must be reserved for a confirmed appointment. Anything
	// else is an invariant breach: abort, never silently repair.
	tag, err := tx.Exec(ctx, `
		UPDATE time_slots
		SET status = 'free',
		    updated_at = now()
		WHERE id = $1 AND status = 'reserved'
	`, appt.TimeSlotID)
	if err != nil {
		return nil, fmt.Errorf("free slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: slot %s is not reserved", ErrConsistency, appt.TimeSlotID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) CompleteAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'completed',
		    updated_at = now()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING `+appointmentColumns+`
	`, id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.classifyTransitionFailure(ctx, id)
		}
		return nil, fmt.Errorf("complete appointment: %w", err)
	}

	var slotStatus scheduling.SlotStatus
	err = tx.QueryRow(ctx, `SELECT status FROM time_slots WHERE id = $1`, appt.TimeSlotID).Scan(&slotStatus)
	if err != nil {
		return nil, fmt.Errorf("load slot status: %w", err)
	}
	if slotStatus != scheduling.SlotReserved {
		return nil, fmt.Errorf("%w: slot %s is %s, expected reserved", ErrConsistency, appt.TimeSlotID, slotStatus)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return appt, nil
}

func (r *PgRepository) classifyTransitionFailure(ctx context.Context, id uuid.UUID) error {
	var status Status
	err := r.pool.QueryRow(ctx, `SELECT status FROM appointments WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("load appointment status: %w", err)
	}
	return fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, status)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

const detailQuery = `
	SELECT a.id, a.patient_id, a.time_slot_id, a.beneficiary_id, a.status, a.reason, a.created_at, a.updated_at,
	       COALESCE(p.doctor_id, '00000000-0000-0000-0000-000000000000'::uuid),
	       ts.id, ts.planning_id, ts.slot_date, ts.start_time, ts.end_time, ts.status, ts.created_at, ts.updated_at,
	       b.id, b.patient_id, b.first_name, b.last_name, b.gender, b.age
	FROM appointments a
	LEFT JOIN time_slots ts ON ts.id = a.time_slot_id
	LEFT JOIN plannings p ON p.id = ts.planning_id
	LEFT JOIN beneficiaries b ON b.id = a.beneficiary_id
`

func scanDetail(row pgx.Row) (*Detail, error) {
	var d Detail
	var apptSlotID, benRefID *uuid.UUID

	var slotID, slotPlanningID *uuid.UUID
	var slotDate, slotStart, slotEnd, slotCreated, slotUpdated *time.Time
	var slotStatus *scheduling.SlotStatus

	var benID, benPatientID *uuid.UUID
	var benFirst, benLast, benGender *string
	var benAge *int

	err := row.Scan(
		&d.ID, &d.PatientID, &apptSlotID, &benRefID, &d.Status, &d.Reason, &d.CreatedAt, &d.UpdatedAt,
		&d.DoctorID,
		&slotID, &slotPlanningID, &slotDate, &slotStart, &slotEnd, &slotStatus, &slotCreated, &slotUpdated,
		&benID, &benPatientID, &benFirst, &benLast, &benGender, &benAge,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if apptSlotID != nil {
		d.TimeSlotID = *apptSlotID
	}
	if benRefID != nil {
		d.BeneficiaryID = *benRefID
	}

	if slotID != nil {
		d.Slot = &scheduling.TimeSlot{
			ID:         *slotID,
			PlanningID: *slotPlanningID,
			Date:       *slotDate,
			StartTime:  *slotStart,
			EndTime:    *slotEnd,
			Status:     *slotStatus,
			CreatedAt:  *slotCreated,
			UpdatedAt:  *slotUpdated,
		}
	}

	if benID != nil {
		d.Beneficiary = &Beneficiary{
			ID:        *benID,
			PatientID: *benPatientID,
			FirstName: *benFirst,
			LastName:  *benLast,
			Gender:    *benGender,
			Age:       *benAge,
		}
	}

	return &d, nil
}

func (r *PgRepository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	row := r.pool.QueryRow(ctx, detailQuery+` WHERE a.id = $1`, id)
	return scanDetail(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE a.patient_id = $1
		ORDER BY a.created_at DESC
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Detail, error) {
	rows, err := r.pool.Query(ctx, detailQuery+`
		WHERE p.doctor_id = $1
		ORDER BY ts.slot_date, ts.start_time
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectDetails(rows)
}

func collectDetails(rows pgx.Rows) ([]Detail, error) {
	var result []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *d)
	}
	return result, rows.Err()
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
