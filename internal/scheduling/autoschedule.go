package scheduling

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"
)

// DoctorPicker chooses which doctor an automatic appointment goes to.
// Swappable so a capacity-aware or specialty-matching policy can replace
// the default without touching the search loop.
type DoctorPicker interface {
	Pick(ctx context.Context, doctors []User) *User
}

// FirstByName picks the doctor whose name sorts first.
type FirstByName struct{}

func (FirstByName) Pick(_ context.Context, doctors []User) *User {
	if len(doctors) == 0 {
		return nil
	}
	sorted := make([]User, len(doctors))
	copy(sorted, doctors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &sorted[0]
}

// AutoScheduler books a follow-up appointment when a burnout survey score
// crosses the threshold. Booking is a bonus action: every failure in this
// path surfaces as "no auto-appointment", never as an error to the caller.
type AutoScheduler struct {
	repo        Repository
	svc         *Service
	picker      DoctorPicker
	threshold   int
	horizonDays int
	loc         *time.Location
	now         func() time.Time
}

func NewAutoScheduler(repo Repository, svc *Service, picker DoctorPicker, threshold, horizonDays int) *AutoScheduler {
	if picker == nil {
		picker = FirstByName{}
	}
	return &AutoScheduler{
		repo:        repo,
		svc:         svc,
		picker:      picker,
		threshold:   threshold,
		horizonDays: horizonDays,
		loc:         svc.Location(),
		now:         time.Now,
	}
}

// MaybeAutoSchedule books the first free slot across the horizon when the
// score warrants it, or returns nil. It walks strictly in date/hour order:
// "first available" is the contract, not a best-effort pick.
func (a *AutoScheduler) MaybeAutoSchedule(ctx context.Context, score int, patient Patient) *AutoAppointment {
	if score <= a.threshold {
		a.svc.metrics.ObserveAutoSchedule("below_threshold")
		return nil
	}

	// Never stack a second pending appointment onto a patient.
	existing, err := a.repo.FindActiveByPatient(ctx, patient.Email)
	if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
		log.Printf("auto-schedule: check active appointment for %s: %v", patient.Email, err)
		a.svc.metrics.ObserveAutoSchedule("error")
		return nil
	}
	if existing != nil {
		a.svc.metrics.ObserveAutoSchedule("already_booked")
		return nil
	}

	doctors, err := a.repo.ListDoctors(ctx)
	if err != nil {
		log.Printf("auto-schedule: list doctors: %v", err)
		a.svc.metrics.ObserveAutoSchedule("error")
		return nil
	}

	doctor := a.picker.Pick(ctx, doctors)
	if doctor == nil {
		a.svc.metrics.ObserveAutoSchedule("no_doctor")
		return nil
	}

	appt := a.searchAndBook(ctx, doctor, patient)
	if appt == nil {
		a.svc.metrics.ObserveAutoSchedule("exhausted")
		return nil
	}

	a.svc.logEvent(ctx, appt.ID, EventAppointmentAutoScheduled, map[string]any{
		"doctor_id":     doctor.ID.String(),
		"patient_email": patient.Email,
		"starts_at":     appt.StartsAt,
		"score":         score,
	})
	a.svc.metrics.ObserveAutoSchedule("scheduled")

	return &AutoAppointment{Appointment: appt, Doctor: doctor}
}

// searchAndBook walks day-by-day starting tomorrow, and hour-by-hour within
// the doctor's working hours, committing the first instant that books.
func (a *AutoScheduler) searchAndBook(ctx context.Context, doctor *User, patient Patient) *Appointment {
	today := a.now().In(a.loc)

	for offset := 1; offset <= a.horizonDays; offset++ {
		day := today.AddDate(0, 0, offset)

		for hour := doctor.WorkStartHour; hour < doctor.WorkEndHour; hour++ {
			startAt := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, a.loc)

			appt, err := a.svc.CreateAppointment(ctx, doctor.ID, patient, startAt)
			if err == nil {
				return appt
			}
			if errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrSlotContended) {
				continue
			}

			// Anything else (doctor vanished, persistence failure) ends the
			// search; the survey submission must still succeed.
			log.Printf("auto-schedule: booking %s at %s: %v", doctor.ID, startAt, err)
			return nil
		}
	}

	return nil
}
