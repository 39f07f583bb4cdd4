package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Gender,
		&u.Phone,
		&u.Address,
		&u.Role,
		&u.PreferredLanguage,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &u, nil
}

func (r *PgRepository) CreateUser(ctx context.Context, u *User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, gender, phone, address, role, preferred_language, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	`, u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Gender, u.Phone, u.Address, u.Role, u.PreferredLanguage)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, gender, phone, address, role, preferred_language, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, first_name, last_name, gender, phone, address, role, preferred_language, created_at
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func (r *PgRepository) CreateDoctorProfile(ctx context.Context, d *Doctor) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO doctors (user_id, specialty, years_of_experience, biography)
		VALUES ($1, $2, $3, $4)
	`, d.UserID, d.Specialty, d.YearsOfExperience, d.Biography)
	if err != nil {
		return fmt.Errorf("insert doctor profile: %w", err)
	}
	return nil
}

func (r *PgRepository) CreatePatientProfile(ctx context.Context, p *Patient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (user_id, date_of_birth)
		VALUES ($1, $2)
	`, p.UserID, p.DateOfBirth)
	if err != nil {
		return fmt.Errorf("insert patient profile: %w", err)
	}
	return nil
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor

	err := r.pool.QueryRow(ctx, `
		SELECT d.user_id, d.specialty, d.years_of_experience, d.biography, u.first_name, u.last_name
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1
	`, id).Scan(&d.UserID, &d.Specialty, &d.YearsOfExperience, &d.Biography, &d.FirstName, &d.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, err
	}

	return &d, nil
}

func (r *PgRepository) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	var p Patient

	err := r.pool.QueryRow(ctx, `
		SELECT p.user_id, p.date_of_birth, u.first_name, u.last_name
		FROM patients p
		JOIN users u ON u.id = p.user_id
		WHERE p.user_id = $1
	`, userID).Scan(&p.UserID, &p.DateOfBirth, &p.FirstName, &p.LastName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]Doctor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT d.user_id, d.specialty, d.years_of_experience, d.biography, u.first_name, u.last_name
		FROM doctors d
		JOIN users u ON u.id = d.user_id
		ORDER BY u.last_name, u.first_name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.UserID, &d.Specialty, &d.YearsOfExperience, &d.Biography, &d.FirstName, &d.LastName); err != nil {
			return nil, err
		}
		result = append(result, d)
	}

	return result, rows.Err()
}

// DoctorExists satisfies the scheduling and appointment directory
// interfaces without loading the whole profile.
func (r *PgRepository) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM doctors WHERE user_id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) PatientExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
