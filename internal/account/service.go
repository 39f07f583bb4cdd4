package account

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/medbook/medbook/internal/notify"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid account input")
)

type Service struct {
	repo     Repository
	secret   string
	tokenTTL time.Duration
	notifier notify.Sender
	log      zerolog.Logger
}

func NewService(repo Repository, secret string, tokenTTL time.Duration, notifier notify.Sender, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		secret:   secret,
		tokenTTL: tokenTTL,
		notifier: notifier,
		log:      log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	Gender      string
	Phone       string
	Address     string
	DateOfBirth *time.Time
}

// Register creates a patient account. Staff accounts go through CreateStaff.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if err := validateIdentity(in.Email, in.FirstName, in.LastName); err != nil {
		return nil, err
	}
	if len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:                uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:      string(hash),
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Gender:            in.Gender,
		Phone:             in.Phone,
		Address:           in.Address,
		Role:              RolePatient,
		PreferredLanguage: "en",
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	if err := s.repo.CreatePatientProfile(ctx, &Patient{UserID: user.ID, DateOfBirth: in.DateOfBirth}); err != nil {
		return nil, fmt.Errorf("create patient profile: %w", err)
	}

	s.sendAccountNotice(ctx, user, "")

	return user, nil
}

type StaffInput struct {
	Email             string
	FirstName         string
	LastName          string
	Role              Role
	Specialty         string
	YearsOfExperience int
	Biography         string
}

// CreateStaff registers a doctor or manager account with a generated
// temporary password, which is handed to the notification sender.
func (s *Service) CreateStaff(ctx context.Context, in StaffInput) (*User, string, error) {
	if in.Role != RoleDoctor && in.Role != RoleManager {
		return nil, "", fmt.Errorf("%w: staff role must be doctor or manager", ErrInvalidInput)
	}
	if err := validateIdentity(in.Email, in.FirstName, in.LastName); err != nil {
		return nil, "", err
	}
	if in.Role == RoleDoctor && in.Specialty == "" {
		return nil, "", fmt.Errorf("%w: specialty is required for doctors", ErrInvalidInput)
	}

	tempPassword, err := generatePassword()
	if err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &User{
		ID:                uuid.New(),
		Email:             strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:      string(hash),
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Role:              in.Role,
		PreferredLanguage: "en",
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	if in.Role == RoleDoctor {
		doctor := &Doctor{
			UserID:            user.ID,
			Specialty:         in.Specialty,
			YearsOfExperience: in.YearsOfExperience,
			Biography:         in.Biography,
		}
		if err := s.repo.CreateDoctorProfile(ctx, doctor); err != nil {
			return nil, "", fmt.Errorf("create doctor profile: %w", err)
		}
	}

	s.sendAccountNotice(ctx, user, tempPassword)

	return user, tempPassword, nil
}

// Authenticate verifies credentials and returns a signed actor token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, *User, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, err := IssueToken(s.secret, s.tokenTTL, user)
	if err != nil {
		return "", nil, err
	}

	return token, user, nil
}

func (s *Service) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.repo.GetDoctorByID(ctx, id)
}

func (s *Service) GetPatientForUser(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return s.repo.GetPatientByUserID(ctx, userID)
}

func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	return s.repo.ListDoctors(ctx)
}

func (s *Service) sendAccountNotice(ctx context.Context, user *User, tempPassword string) {
	payload := map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	}
	if tempPassword != "" {
		payload["temp_password"] = tempPassword
	}

	err := s.notifier.Send(ctx, notify.Notification{
		UserID:  user.ID,
		Kind:    notify.KindAccountCreated,
		Payload: payload,
	})
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID.String()).Msg("account notification failed")
	}
}

func validateIdentity(email, firstName, lastName string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	if strings.TrimSpace(firstName) == "" || strings.TrimSpace(lastName) == "" {
		return fmt.Errorf("%w: first and last name are required", ErrInvalidInput)
	}
	return nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
