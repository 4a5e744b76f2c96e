package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the slice of pgxpool.Pool the repository needs. Kept narrow so
// tests can substitute a pgxmock pool.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PgRepository struct {
	db DB
}

func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{db: db}
}

const userColumns = `id, name, email, role, specialty, work_start_hour, work_end_hour, slot_duration_min, created_at, updated_at`

const appointmentColumns = `id, doctor_id, patient_name, patient_email, starts_at, duration_min, status, meeting_room_id, created_at, updated_at`

// Helpers

func scanUser(row pgx.Row, notFound error) (*User, error) {
	var u User
	var specialty *string

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&specialty,
		&u.WorkStartHour,
		&u.WorkEndHour,
		&u.SlotDurationMin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}

	u.Specialty = specialty
	return &u, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientName,
		&a.PatientEmail,
		&a.StartsAt,
		&a.DurationMin,
		&a.Status,
		&a.MeetingRoomID,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Interface methods

func (r *PgRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row, ErrUserNotFound)
}

func (r *PgRepository) GetDoctorByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND role = 'doctor'
	`, id)
	return scanUser(row, ErrDoctorNotFound)
}

func (r *PgRepository) ListDoctors(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'doctor'
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []User
	for rows.Next() {
		u, err := scanUser(rows, ErrDoctorNotFound)
		if err != nil {
			return nil, err
		}
		result = append(result, *u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetActiveAppointmentAt(ctx context.Context, doctorID uuid.UUID, startAt time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND starts_at = $2
		  AND status IN ('SCHEDULED', 'IN_PROGRESS')
	`, doctorID, startAt)
	return scanAppointment(row)
}

func (r *PgRepository) FindActiveByPatient(ctx context.Context, patientEmail string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_email = $1
		  AND status IN ('SCHEDULED', 'IN_PROGRESS')
		LIMIT 1
	`, patientEmail)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveByDoctorAndRange(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND starts_at >= $2
		  AND starts_at <= $3
		  AND status IN ('SCHEDULED', 'IN_PROGRESS')
		ORDER BY starts_at ASC
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

// CreateAppointment inserts the row only if no active appointment occupies
// the same doctor+instant. The partial unique index makes this safe under
// concurrency; an empty RETURNING set means someone else won the slot.
func (r *PgRepository) CreateAppointment(ctx context.Context, appt *Appointment) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_name, patient_email, starts_at, duration_min, status, meeting_room_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (doctor_id, starts_at) WHERE status IN ('SCHEDULED', 'IN_PROGRESS') DO NOTHING
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.DoctorID, appt.PatientName, appt.PatientEmail, appt.StartsAt, appt.DurationMin, appt.Status, appt.MeetingRoomID)

	created, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, to)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentDetail(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	row := r.db.QueryRow(ctx, `
		SELECT a.id, a.doctor_id, a.patient_name, a.patient_email, a.starts_at, a.duration_min, a.status, a.meeting_room_id, a.created_at, a.updated_at,
		       d.id, d.name, d.email, d.role, d.specialty, d.work_start_hour, d.work_end_hour, d.slot_duration_min, d.created_at, d.updated_at
		FROM appointments a
		JOIN users d ON d.id = a.doctor_id
		WHERE a.id = $1
	`, id)
	return scanAppointmentDetail(row)
}

func scanAppointmentDetail(row pgx.Row) (*AppointmentDetail, error) {
	var a Appointment
	var d User
	var specialty *string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientName,
		&a.PatientEmail,
		&a.StartsAt,
		&a.DurationMin,
		&a.Status,
		&a.MeetingRoomID,
		&a.CreatedAt,
		&a.UpdatedAt,
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Role,
		&specialty,
		&d.WorkStartHour,
		&d.WorkEndHour,
		&d.SlotDurationMin,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	d.Specialty = specialty
	return &AppointmentDetail{Appointment: a, Doctor: &d}, nil
}

func (r *PgRepository) listDetails(ctx context.Context, query string, args ...any) ([]AppointmentDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentDetail
	for rows.Next() {
		detail, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

const detailSelect = `
	SELECT a.id, a.doctor_id, a.patient_name, a.patient_email, a.starts_at, a.duration_min, a.status, a.meeting_room_id, a.created_at, a.updated_at,
	       d.id, d.name, d.email, d.role, d.specialty, d.work_start_hour, d.work_end_hour, d.slot_duration_min, d.created_at, d.updated_at
	FROM appointments a
	JOIN users d ON d.id = a.doctor_id
`

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, detailSelect+`
		WHERE a.doctor_id = $1
		ORDER BY a.starts_at DESC
	`, doctorID)
}

func (r *PgRepository) ListByPatientEmail(ctx context.Context, patientEmail string) ([]AppointmentDetail, error) {
	return r.listDetails(ctx, detailSelect+`
		WHERE a.patient_email = $1
		ORDER BY a.starts_at DESC
	`, patientEmail)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
