package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusScheduled  AppointmentStatus = "SCHEDULED"
	StatusInProgress AppointmentStatus = "IN_PROGRESS"
	StatusCompleted  AppointmentStatus = "COMPLETED"
	StatusCancelled  AppointmentStatus = "CANCELLED"
)

// Valid reports whether s is one of the four known statuses.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses no longer occupy a slot.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// User is the role+profile shape: everyone is a user, and the doctor
// schedule fields only carry meaning when Role is "doctor".
type User struct {
	ID              uuid.UUID
	Name            string
	Email           string
	Role            Role
	Specialty       *string
	WorkStartHour   int // inclusive, local clinic hour
	WorkEndHour     int // exclusive
	SlotDurationMin int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Patient identifies the person a booking is for. The survey flow and the
// manual flow both pass the authenticated caller here.
type Patient struct {
	Name  string
	Email string
}

// Slot is a candidate bookable window, computed fresh on every
// availability query and never persisted.
type Slot struct {
	Start     time.Time
	End       time.Time
	Available bool
}

type Appointment struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	PatientName   string
	PatientEmail  string
	StartsAt      time.Time
	DurationMin   int
	Status        AppointmentStatus
	MeetingRoomID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AppointmentDetail is an appointment hydrated with its doctor.
type AppointmentDetail struct {
	Appointment
	Doctor *User
}

// DayAvailability is the result of a slot query for one doctor and day.
type DayAvailability struct {
	Doctor *User
	Date   string
	Slots  []Slot
}

// AutoAppointment is the outcome of a successful auto-scheduling run.
type AutoAppointment struct {
	Appointment *Appointment
	Doctor      *User
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
