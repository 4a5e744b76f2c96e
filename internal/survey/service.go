package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/equilibra/burnout-scheduling/internal/scheduling"
)

var (
	ErrInvalidSubmission = errors.New("survey needs a numeric score and a non-empty answers array")
	ErrAlreadySubmitted  = errors.New("survey already submitted today")
)

// AutoScheduler is the piece of the scheduling core the survey flow talks
// to. Its outcome is attached to the submission response, never allowed to
// fail it.
type AutoScheduler interface {
	MaybeAutoSchedule(ctx context.Context, score int, patient scheduling.Patient) *scheduling.AutoAppointment
}

type Service struct {
	repo Repository
	auto AutoScheduler
	loc  *time.Location
	now  func() time.Time
}

func NewService(repo Repository, auto AutoScheduler, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo: repo,
		auto: auto,
		loc:  loc,
		now:  time.Now,
	}
}

// Submit records today's survey for the user and, when the score crosses
// the burnout threshold, fires the auto-scheduler. The returned
// AutoAppointment is nil whenever no automatic booking happened, for any
// reason.
func (s *Service) Submit(ctx context.Context, user *scheduling.User, score int, answers json.RawMessage) (*Survey, *scheduling.AutoAppointment, error) {
	if len(answers) == 0 || string(answers) == "null" || string(answers) == "[]" {
		return nil, nil, ErrInvalidSubmission
	}
	if score < 0 || score > MaxScore {
		return nil, nil, ErrInvalidSubmission
	}

	today := s.today()

	exists, err := s.repo.ExistsForDay(ctx, user.ID, today)
	if err != nil {
		return nil, nil, fmt.Errorf("check existing survey: %w", err)
	}
	if exists {
		return nil, nil, ErrAlreadySubmitted
	}

	record := &Survey{
		ID:      uuid.New(),
		UserID:  user.ID,
		Day:     today,
		Score:   score,
		Answers: answers,
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("record survey: %w", err)
	}

	var auto *scheduling.AutoAppointment
	if s.auto != nil {
		auto = s.auto.MaybeAutoSchedule(ctx, score, scheduling.Patient{Name: user.Name, Email: user.Email})
	}

	return record, auto, nil
}

// History returns the user's submissions, newest day first.
func (s *Service) History(ctx context.Context, userID uuid.UUID) ([]Survey, error) {
	surveys, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list surveys: %w", err)
	}
	return surveys, nil
}

func (s *Service) today() time.Time {
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
}
