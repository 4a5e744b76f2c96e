package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"` // ISO-8601 slot start instant
}

type UpdateAppointmentRequest struct {
	Status string `json:"status"`
}

type SubmitSurveyRequest struct {
	Score   *int            `json:"score"`
	Answers json.RawMessage `json:"answers"`
}

type DoctorSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty *string   `json:"specialty,omitempty"`
}

type DoctorResponse struct {
	DoctorSummary
	WorkStartHour   int `json:"work_start_hour"`
	WorkEndHour     int `json:"work_end_hour"`
	SlotDurationMin int `json:"slot_duration_min"`
}

type SlotResponse struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

type SlotsResponse struct {
	Doctor DoctorSummary  `json:"doctor"`
	Date   string         `json:"date"`
	Slots  []SlotResponse `json:"slots"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	DoctorName    string    `json:"doctor_name,omitempty"`
	Specialty     *string   `json:"specialty,omitempty"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email"`
	Date          time.Time `json:"date"`
	DurationMin   int       `json:"duration_min"`
	Status        string    `json:"status"`
	MeetingRoomID string    `json:"meeting_room_id"`
}

type AutoAppointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	DoctorName string    `json:"doctor_name"`
	Specialty  *string   `json:"specialty,omitempty"`
	Date       time.Time `json:"date"`
}

type SurveyResponse struct {
	ID              uuid.UUID                `json:"id"`
	Day             string                   `json:"day"`
	Score           int                      `json:"score"`
	Answers         json.RawMessage          `json:"answers,omitempty"`
	AutoAppointment *AutoAppointmentResponse `json:"auto_appointment"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
