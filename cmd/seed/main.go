package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/medbook/medbook/internal/account"
	"github.com/medbook/medbook/internal/db"
	"github.com/medbook/medbook/internal/logging"
	"github.com/medbook/medbook/internal/scheduling"
)

// Every seeded account shares this password so the simulator can log in.
const seedPassword = "Password123!"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash seed password: %v", err)
	}

	seedCtx := context.Background()

	if err := seedManager(seedCtx, pool, string(hash)); err != nil {
		log.Fatalf("seed manager: %v", err)
	}

	doctorIDs, err := seedDoctors(seedCtx, pool, string(hash), 20)
	if err != nil {
		log.Fatalf("seed doctors: %v", err)
	}

	if err := seedPatients(seedCtx, pool, string(hash), 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	if err := seedPlannings(seedCtx, pool, doctorIDs); err != nil {
		log.Fatalf("seed plannings: %v", err)
	}

	log.Println("seed complete")
}

func seedManager(ctx context.Context, pool *pgxpool.Pool, hash string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at)
		VALUES ($1, $2, $3, $4, $5, 'manager', now())
		ON CONFLICT (email) DO NOTHING
	`, uuid.New(), "manager@medbook.local", hash, "Morgan", "Keller")
	if err != nil {
		return err
	}

	log.Println("manager seeded")
	return nil
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, hash string, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)

	for i := 0; i < count; i++ {
		id := uuid.New()
		email := fmt.Sprintf("doctor%03d@medbook.local", i+1)
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, email, password_hash, first_name, last_name, role, created_at)
			VALUES ($1, $2, $3, $4, $5, 'doctor', now())
		`, id, email, hash, gofakeit.FirstName(), gofakeit.LastName())
		if err != nil {
			return nil, err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (user_id, specialty, years_of_experience, biography)
			VALUES ($1, $2, $3, $4)
		`, id, spec, gofakeit.Number(1, 35), gofakeit.Sentence(12))
		if err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.Println("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, hash string, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 100

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			email := fmt.Sprintf("patient%04d@medbook.local", i+1)
			dob := gofakeit.DateRange(
				time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC),
				time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
			)

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, email, password_hash, first_name, last_name, gender, phone, role, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, 'patient', now())
			`, id, email, hash, gofakeit.FirstName(), gofakeit.LastName(),
				gofakeit.RandomString([]string{"Male", "Female"}), gofakeit.Phone())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}

			_, err = tx.Exec(ctx, `
				INSERT INTO patients (user_id, date_of_birth)
				VALUES ($1, $2)
			`, id, dob)
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return nil
}

// seedPlannings generates current-month slots for every seeded doctor
// through the real scheduling service, so the data matches what the API
// would produce.
func seedPlannings(ctx context.Context, pool *pgxpool.Pool, doctorIDs []uuid.UUID) error {
	zlog := logging.New("dev", "warn")

	accountRepo := account.NewPgRepository(pool)
	svc := scheduling.NewService(scheduling.NewPgRepository(pool), accountRepo, zlog)

	now := time.Now().UTC()
	params := scheduling.GenerateParams{
		Month:               int(now.Month()),
		Year:                now.Year(),
		StartHour:           9,
		EndHour:             17,
		SlotDurationMinutes: 60,
	}

	generated, err := svc.GeneratePlannings(ctx, doctorIDs, params, true)
	if err != nil {
		return err
	}

	total := 0
	for _, g := range generated {
		total += g.SlotCount
	}
	log.Printf("plannings seeded: %d plannings, %d slots", len(generated), total)

	return nil
}
