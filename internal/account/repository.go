package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrEmailTaken      = errors.New("email already registered")
)

// Repository contains all DB interactions needed by the account service.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	CreateDoctorProfile(ctx context.Context, d *Doctor) error
	CreatePatientProfile(ctx context.Context, p *Patient) error

	GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
	ListDoctors(ctx context.Context) ([]Doctor, error)
}
