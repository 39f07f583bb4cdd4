package account

import (
	"time"

	"github.com/google/uuid"
)

// Role is carried on the user row itself. Dispatching on the existence of
// a profile row is not allowed anywhere.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Gender            string
	Phone             string
	Address           string
	Role              Role
	PreferredLanguage string
	CreatedAt         time.Time
}

// Doctor is the role profile for a doctor user. Name fields are filled
// from the users row on reads.
type Doctor struct {
	UserID            uuid.UUID
	Specialty         string
	YearsOfExperience int
	Biography         string
	FirstName         string
	LastName          string
}

type Patient struct {
	UserID      uuid.UUID
	DateOfBirth *time.Time
	FirstName   string
	LastName    string
}
