// Package reporting holds the read-side dashboard counters. It is
// deliberately query-only: nothing here mutates state.
package reporting

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PatientStats struct {
	Confirmed int `json:"confirmed"`
	Modified  int `json:"modified"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

type DoctorStats struct {
	AppointmentsToday int `json:"appointments_today"`
	UpcomingReserved  int `json:"upcoming_reserved"`
	PatientsSeen      int `json:"patients_seen"`
}

type ManagerStats struct {
	TotalDoctors          int `json:"total_doctors"`
	TotalPatients         int `json:"total_patients"`
	ConfirmedAppointments int `json:"confirmed_appointments"`
	CompletedAppointments int `json:"completed_appointments"`
}

type Store interface {
	PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error)
	DoctorStats(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error)
	ManagerStats(ctx context.Context) (*ManagerStats, error)
}

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) PatientStats(ctx context.Context, patientID uuid.UUID) (*PatientStats, error) {
	var stats PatientStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE status = 'confirmed'),
			count(*) FILTER (WHERE status = 'modified'),
			count(*) FILTER (WHERE status = 'cancelled'),
			count(*) FILTER (WHERE status = 'completed')
		FROM appointments
		WHERE patient_id = $1
	`, patientID).Scan(&stats.Confirmed, &stats.Modified, &stats.Cancelled, &stats.Completed)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *PgStore) DoctorStats(ctx context.Context, doctorID uuid.UUID) (*DoctorStats, error) {
	var stats DoctorStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			count(*) FILTER (WHERE a.status = 'confirmed' AND ts.slot_date = current_date),
			count(*) FILTER (WHERE a.status = 'confirmed' AND ts.slot_date >= current_date),
			count(DISTINCT a.patient_id) FILTER (WHERE a.status = 'completed')
		FROM appointments a
		JOIN time_slots ts ON ts.id = a.time_slot_id
		JOIN plannings p ON p.id = ts.planning_id
		WHERE p.doctor_id = $1
	`, doctorID).Scan(&stats.AppointmentsToday, &stats.UpcomingReserved, &stats.PatientsSeen)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *PgStore) ManagerStats(ctx context.Context) (*ManagerStats, error) {
	var stats ManagerStats

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM doctors),
			(SELECT count(*) FROM patients),
			(SELECT count(*) FROM appointments WHERE status = 'confirmed'),
			(SELECT count(*) FROM appointments WHERE status = 'completed')
	`).Scan(&stats.TotalDoctors, &stats.TotalPatients, &stats.ConfirmedAppointments, &stats.CompletedAppointments)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}
