package survey

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

func (r *PgRepository) Insert(ctx context.Context, s *Survey) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO surveys (id, user_id, day, score, answers, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, s.ID, s.UserID, s.Day, s.Score, s.Answers)
	if err != nil {
		return fmt.Errorf("insert survey: %w", err)
	}
	return nil
}

func (r *PgRepository) ExistsForDay(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM surveys WHERE user_id = $1 AND day = $2
		)
	`, userID, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check survey for day: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Survey, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, day, score, answers, created_at
		FROM surveys
		WHERE user_id = $1
		ORDER BY day DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Survey
	for rows.Next() {
		var s Survey
		if err := rows.Scan(&s.ID, &s.UserID, &s.Day, &s.Score, &s.Answers, &s.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
