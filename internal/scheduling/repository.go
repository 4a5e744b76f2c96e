package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotTaken is returned both by the in-lock conflict check and by
	// the conditional insert when the partial unique index rejects a row.
	ErrSlotTaken = errors.New("slot already has an active appointment")
)

// Repository contains all DB interactions needed by the scheduling core.
type Repository interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetDoctorByID resolves id only when the user holds the doctor role.
	GetDoctorByID(ctx context.Context, id uuid.UUID) (*User, error)
	// ListDoctors returns all doctors ordered by name ascending.
	ListDoctors(ctx context.Context) ([]User, error)

	// Conflict checks
	GetActiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, startAt time.Time) (*Appointment, error)
	FindActiveByPatient(ctx context.Context, patientEmail string) (*Appointment, error)
	ListActiveByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// Creation and updates. CreateAppointment is a conditional insert
	// guarded by the partial unique index; it returns ErrSlotTaken when
	// the slot was claimed concurrently.
	CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error)

	// Reads
	GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error)
	ListByPatientEmail(ctx context.Context, patientEmail string) ([]AppointmentDetail, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
