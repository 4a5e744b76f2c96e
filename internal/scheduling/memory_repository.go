package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for tests and local
// development without Postgres. It enforces the same active-slot
// uniqueness the partial unique index does.
type MemoryRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*User
	appts  map[uuid.UUID]*Appointment
	events []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users: make(map[uuid.UUID]*User),
		appts: make(map[uuid.UUID]*Appointment),
	}
}

// AddUser registers a user and returns the stored copy.
func (m *MemoryRepository) AddUser(u User) *User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = &u
	return &u
}

// Events returns a snapshot of the recorded event log.
func (m *MemoryRepository) Events() []EventLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventLog, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryRepository) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) GetDoctorByID(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.Role != RoleDoctor {
		return nil, ErrDoctorNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryRepository) ListDoctors(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []User
	for _, u := range m.users {
		if u.Role == RoleDoctor {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *MemoryRepository) GetActiveAppointmentAt(_ context.Context, doctorID uuid.UUID, startAt time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.StartsAt.Equal(startAt) && !a.Status.Terminal() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *MemoryRepository) FindActiveByPatient(_ context.Context, patientEmail string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.PatientEmail == patientEmail && !a.Status.Terminal() {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (m *MemoryRepository) ListActiveByDoctorAndRange(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []Appointment
	for _, a := range m.appts {
		if a.DoctorID != doctorID || a.Status.Terminal() {
			continue
		}
		if a.StartsAt.Before(from) || a.StartsAt.After(to) {
			continue
		}
		result = append(result, *a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartsAt.Before(result[j].StartsAt) })
	return result, nil
}

func (m *MemoryRepository) CreateAppointment(_ context.Context, appt *Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.DoctorID == appt.DoctorID && a.StartsAt.Equal(appt.StartsAt) && !a.Status.Terminal() {
			return nil, ErrSlotTaken
		}
	}
	cp := *appt
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	m.appts[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *MemoryRepository) GetAppointmentDetail(_ context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return m.detailLocked(a), nil
}

func (m *MemoryRepository) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []AppointmentDetail
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			result = append(result, *m.detailLocked(a))
		}
	}
	sortDetailsNewestFirst(result)
	return result, nil
}

func (m *MemoryRepository) ListByPatientEmail(_ context.Context, patientEmail string) ([]AppointmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []AppointmentDetail
	for _, a := range m.appts {
		if a.PatientEmail == patientEmail {
			result = append(result, *m.detailLocked(a))
		}
	}
	sortDetailsNewestFirst(result)
	return result, nil
}

func (m *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev.ID = int64(len(m.events) + 1)
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryRepository) detailLocked(a *Appointment) *AppointmentDetail {
	detail := &AppointmentDetail{Appointment: *a}
	if doctor, ok := m.users[a.DoctorID]; ok {
		cp := *doctor
		detail.Doctor = &cp
	}
	return detail
}

func sortDetailsNewestFirst(details []AppointmentDetail) {
	sort.Slice(details, func(i, j int) bool {
		return details[i].StartsAt.After(details[j].StartsAt)
	})
}

// PassthroughLocker runs critical sections directly with no distributed
// lock, for single-process use alongside MemoryRepository.
type PassthroughLocker struct{}

func (PassthroughLocker) WithBookingLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
