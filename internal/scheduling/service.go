package scheduling

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/equilibra/burnout-scheduling/internal/observability/metrics"
	redisclient "github.com/equilibra/burnout-scheduling/internal/redis"
)

const (
	EventAppointmentBooked        = "APPOINTMENT_BOOKED"
	EventAppointmentAutoScheduled = "APPOINTMENT_AUTO_SCHEDULED"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
)

var (
	ErrInvalidDate   = errors.New("date must be a valid YYYY-MM-DD calendar date")
	ErrOutOfHours    = errors.New("requested time is outside the doctor's working hours")
	ErrInvalidStatus = errors.New("status must be one of SCHEDULED, IN_PROGRESS, COMPLETED, CANCELLED")

	// ErrSlotContended means another request holds the booking lock for
	// the same doctor+instant right now.
	ErrSlotContended = errors.New("slot is currently being booked, please retry")
)

type Service struct {
	repo    Repository
	locker  redisclient.Locker
	loc     *time.Location
	metrics *metrics.SchedulingMetrics
}

func NewService(repo Repository, locker redisclient.Locker, loc *time.Location, m *metrics.SchedulingMetrics) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:    repo,
		locker:  locker,
		loc:     loc,
		metrics: m,
	}
}

// Location returns the clinic timezone all hour math is done in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// GetAvailableSlots computes the candidate grid for one doctor and day and
// marks slots occupied by active appointments. Reads the store fresh on
// every call; slot state is never cached.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*DayAvailability, error) {
	started := time.Now()
	defer func() {
		s.metrics.ObserveSlotQueryLatency(time.Since(started).Seconds())
	}()

	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	day, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}

	slots := GenerateDaySlots(day, doctor.WorkStartHour, doctor.WorkEndHour, doctor.SlotDurationMin)

	dayStart, dayEnd := dayBounds(day)
	booked, err := s.repo.ListActiveByDoctorAndRange(ctx, doctorID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("list appointments for day: %w", err)
	}

	// Exact start-instant match marks a slot occupied.
	for i := range slots {
		for _, appt := range booked {
			if appt.StartsAt.Equal(slots[i].Start) {
				slots[i].Available = false
				break
			}
		}
	}

	return &DayAvailability{Doctor: doctor, Date: date, Slots: slots}, nil
}

// CreateAppointment validates working-hours membership, checks for a
// conflicting active appointment at the exact instant and commits the
// booking. The per-slot Redis lock serializes concurrent attempts; the
// conditional insert backed by the partial unique index is the final
// authority if the lock is ever bypassed.
func (s *Service) CreateAppointment(ctx context.Context, doctorID uuid.UUID, patient Patient, startAt time.Time) (*Appointment, error) {
	doctor, err := s.repo.GetDoctorByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, ErrDoctorNotFound) {
			s.metrics.ObserveBooking("doctor_not_found")
			return nil, err
		}
		return nil, fmt.Errorf("load doctor: %w", err)
	}

	hour := startAt.In(s.loc).Hour()
	if hour < doctor.WorkStartHour || hour >= doctor.WorkEndHour {
		s.metrics.ObserveBooking("out_of_hours")
		return nil, fmt.Errorf("%w: doctor works %d:00 to %d:00", ErrOutOfHours, doctor.WorkStartHour, doctor.WorkEndHour)
	}

	var created *Appointment

	err = s.locker.WithBookingLock(ctx, doctorID, startAt, func(lockCtx context.Context) error {
		// Inside the critical section re-check for an active appointment
		// at this exact instant.
		existing, err := s.repo.GetActiveAppointmentAt(lockCtx, doctorID, startAt)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check active appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt := &Appointment{
			ID:            uuid.New(),
			DoctorID:      doctorID,
			PatientName:   patient.Name,
			PatientEmail:  patient.Email,
			StartsAt:      startAt,
			DurationMin:   doctor.SlotDurationMin,
			Status:        StatusScheduled,
			MeetingRoomID: newMeetingRoomID(),
		}

		created, err = s.repo.CreateAppointment(lockCtx, appt)
		if err != nil {
			return err
		}

		payload := map[string]any{
			"doctor_id":     doctorID.String(),
			"patient_email": patient.Email,
			"starts_at":     startAt,
		}
		s.logEvent(lockCtx, created.ID, EventAppointmentBooked, payload)

		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, redisclient.ErrLockNotAcquired):
			s.metrics.ObserveBooking("contended")
			return nil, ErrSlotContended
		case errors.Is(err, ErrSlotTaken):
			s.metrics.ObserveBooking("conflict")
			return nil, err
		default:
			s.metrics.ObserveBooking("error")
			return nil, err
		}
	}

	s.metrics.ObserveBooking("created")
	return created, nil
}

// UpdateStatus moves an appointment to the requested status. Status values
// belong to this core's contract; transitions are driven externally
// (call completion, cancellation).
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*AppointmentDetail, error) {
	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentStatusChanged, map[string]any{
		"status": string(to),
	})

	return s.repo.GetAppointmentDetail(ctx, appt.ID)
}

// ListDoctors returns the bookable doctor directory, name ascending.
func (s *Service) ListDoctors(ctx context.Context) ([]User, error) {
	doctors, err := s.repo.ListDoctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return doctors, nil
}

// GetAppointment retrieves a fully hydrated appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	detail, err := s.repo.GetAppointmentDetail(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	return detail, nil
}

// ListForUser returns the appointments visible to the caller: doctors see
// their own calendar, everyone else sees their own bookings.
func (s *Service) ListForUser(ctx context.Context, user *User) ([]AppointmentDetail, error) {
	if user.Role == RoleDoctor {
		result, err := s.repo.ListByDoctor(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list appointments by doctor: %w", err)
		}
		return result, nil
	}

	result, err := s.repo.ListByPatientEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return result, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}

// newMeetingRoomID returns the opaque token the video-call embed uses as
// its room name. Eight hex chars keep collisions negligible at this scale.
func newMeetingRoomID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read never fails on supported platforms; fall back to a UUID fragment.
		return "burnout-" + uuid.NewString()[:8]
	}
	return "burnout-" + hex.EncodeToString(buf)
}
