package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/equilibra/burnout-scheduling/internal/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	_ = godotenv.Load()

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

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, 20); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 2000); err != nil {
		log.Fatalf("seed patients: %v", err)
	}

	log.Println("seed complete")
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d doctors", count)

	specialties := []string{
		"Clinical Psychology",
		"Psychiatry",
		"Occupational Health",
		"General Practice",
		"Counseling",
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		email := gofakeit.Email()
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]

		// Stagger working windows so the auto-scheduler has variety.
		workStart := gofakeit.Number(7, 10)
		workEnd := gofakeit.Number(16, 20)
		slotMin := []int{30, 45, 60}[gofakeit.Number(0, 2)]

		_, err := tx.Exec(ctx, `
			INSERT INTO users (id, name, email, role, specialty, work_start_hour, work_end_hour, slot_duration_min, created_at, updated_at)
			VALUES ($1, $2, $3, 'doctor', $4, $5, $6, $7, now(), now())
		`, id, name, email, spec, workStart, workEnd, slotMin)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	const batchSize = 500

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
			name := gofakeit.Name()
			email := gofakeit.Email()

			_, err := tx.Exec(ctx, `
				INSERT INTO users (id, name, email, role, created_at, updated_at)
				VALUES ($1, $2, $3, 'patient', now(), now())
			`, id, name, email)
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
