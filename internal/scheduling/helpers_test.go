package scheduling

import (
	"context"
)

func newMemRepo() *MemoryRepository {
	return NewMemoryRepository()
}

func (m *MemoryRepository) addDoctor(name string, workStart, workEnd, slotMin int) *User {
	specialty := "Clinical Psychology"
	return m.AddUser(User{
		Name:            name,
		Email:           name + "@clinic.test",
		Role:            RoleDoctor,
		Specialty:       &specialty,
		WorkStartHour:   workStart,
		WorkEndHour:     workEnd,
		SlotDurationMin: slotMin,
	})
}

type passLocker = PassthroughLocker

// failingRepo injects persistence failures into an otherwise working repo.
type failingRepo struct {
	Repository
	failCreate error
}

func (f *failingRepo) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	return f.Repository.CreateAppointment(ctx, appt)
}
