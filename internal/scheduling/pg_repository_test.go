package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return NewPgRepository(mock), mock
}

func userRow(id uuid.UUID, name string) *pgxmock.Rows {
	now := time.Now()
	specialty := "Psychiatry"
	return pgxmock.NewRows([]string{
		"id", "name", "email", "role", "specialty",
		"work_start_hour", "work_end_hour", "slot_duration_min",
		"created_at", "updated_at",
	}).AddRow(id, name, "doc@clinic.test", "doctor", &specialty, 8, 20, 60, now, now)
}

func TestGetDoctorByIDMapsNoRows(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.GetDoctorByID(context.Background(), id)
	if err != ErrDoctorNotFound {
		t.Fatalf("expected ErrDoctorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestGetDoctorByIDScansProfile(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs(id).
		WillReturnRows(userRow(id, "Dr. Alba"))

	doctor, err := repo.GetDoctorByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetDoctorByID: %v", err)
	}
	if doctor.WorkStartHour != 8 || doctor.WorkEndHour != 20 || doctor.SlotDurationMin != 60 {
		t.Fatalf("schedule profile not scanned: %+v", doctor)
	}
	if doctor.Specialty == nil || *doctor.Specialty != "Psychiatry" {
		t.Fatalf("specialty not scanned: %+v", doctor.Specialty)
	}
}

func TestCreateAppointmentConflictMapsToSlotTaken(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := &Appointment{
		ID:            uuid.New(),
		DoctorID:      uuid.New(),
		PatientName:   "Ana",
		PatientEmail:  "ana@corp.test",
		StartsAt:      time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC),
		DurationMin:   60,
		Status:        StatusScheduled,
		MeetingRoomID: "burnout-a1b2c3d4",
	}

	// ON CONFLICT DO NOTHING returns an empty set when the partial unique
	// index rejects the row; that must surface as ErrSlotTaken.
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appt.ID, appt.DoctorID, appt.PatientName, appt.PatientEmail,
			appt.StartsAt, appt.DurationMin, appt.Status, appt.MeetingRoomID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.CreateAppointment(context.Background(), appt)
	if err != ErrSlotTaken {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateAppointmentStatusUnknownID(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery("UPDATE appointments").
		WithArgs(id, StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	_, err := repo.UpdateAppointmentStatus(context.Background(), id, StatusCancelled)
	if err != ErrAppointmentNotFound {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}
