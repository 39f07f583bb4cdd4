package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPlanning(row pgx.Row) (*Planning, error) {
	var p Planning

	err := row.Scan(&p.ID, &p.DoctorID, &p.Month, &p.Year, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanningNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanSlot(row pgx.Row) (*TimeSlot, error) {
	var s TimeSlot

	err := row.Scan(
		&s.ID,
		&s.PlanningID,
		&s.Date,
		&s.StartTime,
		&s.EndTime,
		&s.Status,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func (r *PgRepository) GetPlanning(ctx context.Context, doctorID uuid.UUID, month, year int) (*Planning, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, month, year, created_at
		FROM plannings
		WHERE doctor_id = $1 AND month = $2 AND year = $3
	`, doctorID, month, year)
	return scanPlanning(row)
}

func (r *PgRepository) GetPlanningByID(ctx context.Context, id uuid.UUID) (*Planning, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, month, year, created_at
		FROM plannings
		WHERE id = $1
	`, id)
	return scanPlanning(row)
}

func (r *PgRepository) CreatePlanning(ctx context.Context, p *Planning) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO plannings (id, doctor_id, month, year, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, p.ID, p.DoctorID, p.Month, p.Year)
	if err != nil {
		return fmt.Errorf("insert planning: %w", err)
	}
	return nil
}

func (r *PgRepository) ListPlannings(ctx context.Context, month, year int) ([]Planning, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, month, year, created_at
		FROM plannings
		WHERE month = $1 AND year = $2
		ORDER BY created_at
	`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Planning
	for rows.Next() {
		p, err := scanPlanning(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}

	return result, rows.Err()
}

func (r *PgRepository) CountReservedSlots(ctx context.Context, planningID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM time_slots
		WHERE planning_id = $1 AND status = 'reserved'
	`, planningID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PgRepository) ReplaceSlots(ctx context.Context, planningID uuid.UUID, slots []TimeSlot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Soft-cancel live appointments bound to the outgoing slots so the
	// ledger keeps its history, then detach them before the delete.
	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
		    reason = 'planning regenerated',
		    updated_at = now()
		WHERE status IN ('confirmed', 'modified')
		  AND time_slot_id IN (SELECT id FROM time_slots WHERE planning_id = $1)
	`, planningID)
	if err != nil {
		return fmt.Errorf("cancel bound appointments: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM time_slots WHERE planning_id = $1`, planningID); err != nil {
		return fmt.Errorf("delete old slots: %w", err)
	}

	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO time_slots (id, planning_id, slot_date, start_time, end_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		`, s.ID, planningID, s.Date, s.StartTime, s.EndTime, s.Status)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert slots: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, planning_id, slot_date, start_time, end_time, status, created_at, updated_at
		FROM time_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgRepository) SetSlotStatus(ctx context.Context, id uuid.UUID, status SlotStatus) (*TimeSlot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE time_slots
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, planning_id, slot_date, start_time, end_time, status, created_at, updated_at
	`, id, status)
	return scanSlot(row)
}

func (r *PgRepository) ListFreeSlotsByDoctor(ctx context.Context, doctorID uuid.UUID, month, year int) ([]TimeSlot, error) {
	query := `
		SELECT ts.id, ts.planning_id, ts.slot_date, ts.start_time, ts.end_time, ts.status, ts.created_at, ts.updated_at
		FROM time_slots ts
		JOIN plannings p ON p.id = ts.planning_id
		WHERE p.doctor_id = $1 AND ts.status = 'free'
	`
	args := []any{doctorID}

	if month != 0 && year != 0 {
		query += ` AND p.month = $2 AND p.year = $3`
		args = append(args, month, year)
	}
	query += ` ORDER BY ts.slot_date, ts.start_time`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *PgRepository) ListSlotsByPlanning(ctx context.Context, planningID uuid.UUID) ([]TimeSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, planning_id, slot_date, start_time, end_time, status, created_at, updated_at
		FROM time_slots
		WHERE planning_id = $1
		ORDER BY slot_date, start_time
	`, planningID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]TimeSlot, error) {
	var result []TimeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) AddUnavailability(ctx context.Context, u *Unavailability) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctor_unavailabilities (id, doctor_id, start_date, end_date, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, u.ID, u.DoctorID, u.StartDate, u.EndDate, u.Reason)
	if err != nil {
		return fmt.Errorf("insert unavailability: %w", err)
	}
	return nil
}

func (r *PgRepository) GetUnavailabilityByID(ctx context.Context, id uuid.UUID) (*Unavailability, error) {
	var u Unavailability

	err := r.pool.QueryRow(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason, created_at
		FROM doctor_unavailabilities
		WHERE id = $1
	`, id).Scan(&u.ID, &u.DoctorID, &u.StartDate, &u.EndDate, &u.Reason, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUnavailabilityNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (r *PgRepository) ListUnavailabilitiesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Unavailability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, doctor_id, start_date, end_date, reason, created_at
		FROM doctor_unavailabilities
		WHERE doctor_id = $1
		ORDER BY start_date
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Unavailability
	for rows.Next() {
		var u Unavailability
		if err := rows.Scan(&u.ID, &u.DoctorID, &u.StartDate, &u.EndDate, &u.Reason, &u.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, u)
	}

	return result, rows.Err()
}

func (r *PgRepository) BlockFreeSlotsInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE time_slots ts
		SET status = 'blocked',
		    updated_at = now()
		FROM plannings p
		WHERE p.id = ts.planning_id
		  AND p.doctor_id = $1
		  AND ts.status = 'free'
		  AND ts.slot_date BETWEEN $2 AND $3
	`, doctorID, start, end)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
