package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAutoScheduler(repo Repository) *AutoScheduler {
	svc := newTestService(repo)
	a := NewAutoScheduler(repo, svc, FirstByName{}, 50, 7)
	// Frozen clock: Monday 2024-06-10 14:30 UTC.
	a.now = func() time.Time { return time.Date(2024, 6, 10, 14, 30, 0, 0, time.UTC) }
	return a
}

var surveyPatient = Patient{Name: "Ana", Email: "ana@corp.test"}

func TestMaybeAutoScheduleBelowThreshold(t *testing.T) {
	repo := newMemRepo()
	repo.addDoctor("Dr. Alba", 8, 16, 60)
	auto := newTestAutoScheduler(repo)

	for _, score := range []int{0, 25, 50} {
		if got := auto.MaybeAutoSchedule(context.Background(), score, surveyPatient); got != nil {
			t.Fatalf("score %d must not trigger scheduling", score)
		}
	}
}

func TestMaybeAutoScheduleBooksTomorrowOpeningHour(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 17, 60)
	auto := newTestAutoScheduler(repo)

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	require.NotNil(t, result)

	// Never same-day: first candidate is tomorrow at the opening hour.
	want := time.Date(2024, 6, 11, 9, 0, 0, 0, time.UTC)
	assert.True(t, result.Appointment.StartsAt.Equal(want), "got %s, want %s", result.Appointment.StartsAt, want)
	assert.Equal(t, doctor.ID, result.Doctor.ID)
	assert.Equal(t, StatusScheduled, result.Appointment.Status)
}

func TestMaybeAutoScheduleSkipsTakenSlots(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 17, 60)
	auto := newTestAutoScheduler(repo)
	svc := auto.svc

	// Occupy tomorrow 9:00 and 10:00.
	for _, hour := range []int{9, 10} {
		_, err := svc.CreateAppointment(context.Background(), doctor.ID,
			Patient{Name: "Luis", Email: "luis@corp.test"},
			time.Date(2024, 6, 11, hour, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	require.NotNil(t, result)

	want := time.Date(2024, 6, 11, 11, 0, 0, 0, time.UTC)
	assert.True(t, result.Appointment.StartsAt.Equal(want), "got %s, want %s", result.Appointment.StartsAt, want)
}

func TestMaybeAutoScheduleRollsToNextDay(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 11, 60)
	auto := newTestAutoScheduler(repo)
	svc := auto.svc

	// Fill all of tomorrow.
	for _, hour := range []int{9, 10} {
		_, err := svc.CreateAppointment(context.Background(), doctor.ID,
			Patient{Name: "Luis", Email: "luis" + string(rune('a'+hour)) + "@corp.test"},
			time.Date(2024, 6, 11, hour, 0, 0, 0, time.UTC))
		require.NoError(t, err)
	}

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	require.NotNil(t, result)

	want := time.Date(2024, 6, 12, 9, 0, 0, 0, time.UTC)
	assert.True(t, result.Appointment.StartsAt.Equal(want), "got %s, want %s", result.Appointment.StartsAt, want)
}

func TestMaybeAutoScheduleGuardsExistingAppointment(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 17, 60)
	auto := newTestAutoScheduler(repo)

	_, err := auto.svc.CreateAppointment(context.Background(), doctor.ID, surveyPatient,
		time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// A patient with an active appointment never gets a second one,
	// regardless of score.
	result := auto.MaybeAutoSchedule(context.Background(), 75, surveyPatient)
	assert.Nil(t, result)
}

func TestMaybeAutoScheduleAfterCancellationBooksAgain(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 17, 60)
	auto := newTestAutoScheduler(repo)

	appt, err := auto.svc.CreateAppointment(context.Background(), doctor.ID, surveyPatient,
		time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = auto.svc.UpdateStatus(context.Background(), appt.ID, StatusCancelled)
	require.NoError(t, err)

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	assert.NotNil(t, result)
}

func TestMaybeAutoScheduleNoDoctors(t *testing.T) {
	repo := newMemRepo()
	auto := newTestAutoScheduler(repo)

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	assert.Nil(t, result)
}

func TestMaybeAutoScheduleExhaustedHorizon(t *testing.T) {
	repo := newMemRepo()
	doctor := repo.addDoctor("Dr. Alba", 9, 10, 60)
	auto := newTestAutoScheduler(repo)

	// One slot per day; fill the whole 7-day horizon.
	for offset := 1; offset <= 7; offset++ {
		day := time.Date(2024, 6, 10+offset, 9, 0, 0, 0, time.UTC)
		_, err := auto.svc.CreateAppointment(context.Background(), doctor.ID,
			Patient{Name: "Luis", Email: "luis" + string(rune('a'+offset)) + "@corp.test"}, day)
		require.NoError(t, err)
	}

	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	assert.Nil(t, result)
}

func TestMaybeAutoScheduleSwallowsPersistenceFailure(t *testing.T) {
	base := newMemRepo()
	base.addDoctor("Dr. Alba", 9, 17, 60)
	repo := &failingRepo{Repository: base, failCreate: errors.New("connection refused")}
	auto := newTestAutoScheduler(repo)

	// Persistence errors downgrade to "no auto-appointment" so the parent
	// survey submission still succeeds.
	result := auto.MaybeAutoSchedule(context.Background(), 60, surveyPatient)
	assert.Nil(t, result)
}

func TestFirstByNamePicksAlphabetical(t *testing.T) {
	repo := newMemRepo()
	repo.addDoctor("Dr. Zafra", 9, 17, 60)
	alba := repo.addDoctor("Dr. Alba", 9, 17, 60)
	repo.addDoctor("Dr. Mora", 9, 17, 60)

	doctors, err := repo.ListDoctors(context.Background())
	require.NoError(t, err)

	picked := FirstByName{}.Pick(context.Background(), doctors)
	require.NotNil(t, picked)
	assert.Equal(t, alba.ID, picked.ID)
}
