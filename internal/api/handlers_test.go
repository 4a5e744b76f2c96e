package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equilibra/burnout-scheduling/internal/scheduling"
	"github.com/equilibra/burnout-scheduling/internal/survey"
)

type testEnv struct {
	handler http.Handler
	repo    *scheduling.MemoryRepository
	doctor  *scheduling.User
	patient *scheduling.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := scheduling.NewMemoryRepository()
	specialty := "Clinical Psychology"
	doctor := repo.AddUser(scheduling.User{
		Name:            "Dr. Alba",
		Email:           "alba@clinic.test",
		Role:            scheduling.RoleDoctor,
		Specialty:       &specialty,
		WorkStartHour:   8,
		WorkEndHour:     16,
		SlotDurationMin: 60,
	})
	patient := repo.AddUser(scheduling.User{
		Name:  "Ana",
		Email: "ana@corp.test",
		Role:  scheduling.RolePatient,
	})

	svc := scheduling.NewService(repo, scheduling.PassthroughLocker{}, time.UTC, nil)
	auto := scheduling.NewAutoScheduler(repo, svc, scheduling.FirstByName{}, 50, 7)
	surveys := survey.NewService(survey.NewMemoryRepository(), auto, time.UTC)

	handler := NewRouter(RouterConfig{
		Scheduling: svc,
		Surveys:    surveys,
		Directory:  repo,
		Env:        "test",
		Version:    "test",
	})

	return &testEnv{handler: handler, repo: repo, doctor: doctor, patient: patient}
}

func (e *testEnv) do(t *testing.T, method, path string, user *scheduling.User, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if user != nil {
		req.Header.Set("X-User-ID", user.ID.String())
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestGetSlotsEmptyCalendar(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2024-06-10", env.doctor.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[SlotsResponse](t, rec)
	assert.Equal(t, env.doctor.ID, resp.Doctor.ID)
	assert.Equal(t, "Dr. Alba", resp.Doctor.Name)
	assert.Equal(t, "2024-06-10", resp.Date)
	require.Len(t, resp.Slots, 8)
	for _, slot := range resp.Slots {
		assert.True(t, slot.Available)
	}
	assert.Equal(t, time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC), resp.Slots[0].Start.UTC())
	assert.Equal(t, time.Date(2024, 6, 10, 16, 0, 0, 0, time.UTC), resp.Slots[7].End.UTC())
}

func TestGetSlotsValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots", env.doctor.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=junk", env.doctor.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2024-06-10", uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A patient id is not a doctor id.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2024-06-10", env.patient.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateAppointmentFlow(t *testing.T) {
	env := newTestEnv(t)
	body := CreateAppointmentRequest{
		DoctorID: env.doctor.ID.String(),
		Date:     "2024-06-10T10:00:00Z",
	}

	// Unauthenticated requests are rejected.
	rec := env.do(t, http.MethodPost, "/appointments", nil, body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/appointments", env.patient, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[AppointmentResponse](t, rec)
	assert.Equal(t, env.doctor.ID, created.DoctorID)
	assert.Equal(t, "ana@corp.test", created.PatientEmail)
	assert.Equal(t, "SCHEDULED", created.Status)
	assert.Equal(t, 60, created.DurationMin)
	assert.NotEmpty(t, created.MeetingRoomID)

	// Same instant again conflicts.
	rec = env.do(t, http.MethodPost, "/appointments", env.patient, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	errResp := decode[ErrorResponse](t, rec)
	assert.Equal(t, "slot_taken", errResp.Error)

	// The booked slot shows as unavailable.
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/doctors/%s/slots?date=2024-06-10", env.doctor.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	slots := decode[SlotsResponse](t, rec)
	for _, slot := range slots.Slots {
		if slot.Start.UTC().Hour() == 10 {
			assert.False(t, slot.Available)
		} else {
			assert.True(t, slot.Available)
		}
	}
}

func TestCreateAppointmentValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		body CreateAppointmentRequest
		want int
		code string
	}{
		{
			name: "before opening hour",
			body: CreateAppointmentRequest{DoctorID: env.doctor.ID.String(), Date: "2024-06-10T07:00:00Z"},
			want: http.StatusBadRequest,
			code: "out_of_hours",
		},
		{
			name: "unknown doctor",
			body: CreateAppointmentRequest{DoctorID: uuid.NewString(), Date: "2024-06-10T10:00:00Z"},
			want: http.StatusNotFound,
			code: "doctor_not_found",
		},
		{
			name: "malformed instant",
			body: CreateAppointmentRequest{DoctorID: env.doctor.ID.String(), Date: "next tuesday"},
			want: http.StatusBadRequest,
			code: "invalid_date",
		},
		{
			name: "malformed doctor id",
			body: CreateAppointmentRequest{DoctorID: "not-a-uuid", Date: "2024-06-10T10:00:00Z"},
			want: http.StatusBadRequest,
			code: "invalid_doctor_id",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/appointments", env.patient, tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			errResp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tc.code, errResp.Error)
		})
	}
}

func TestUpdateAppointmentStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", env.patient, CreateAppointmentRequest{
		DoctorID: env.doctor.ID.String(),
		Date:     "2024-06-10T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[AppointmentResponse](t, rec)

	rec = env.do(t, http.MethodPatch, "/appointments/"+created.ID.String(), env.doctor, UpdateAppointmentRequest{Status: "COMPLETED"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[AppointmentResponse](t, rec)
	assert.Equal(t, "COMPLETED", updated.Status)
	assert.Equal(t, "Dr. Alba", updated.DoctorName)

	rec = env.do(t, http.MethodPatch, "/appointments/"+created.ID.String(), env.doctor, UpdateAppointmentRequest{Status: "SNOOZED"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPatch, "/appointments/"+uuid.NewString(), env.doctor, UpdateAppointmentRequest{Status: "CANCELLED"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListAppointmentsPerRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/appointments", env.patient, CreateAppointmentRequest{
		DoctorID: env.doctor.ID.String(),
		Date:     "2024-06-10T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	type listResponse struct {
		Appointments []AppointmentResponse `json:"appointments"`
	}

	rec = env.do(t, http.MethodGet, "/appointments", env.doctor, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listResponse](t, rec).Appointments, 1)

	rec = env.do(t, http.MethodGet, "/appointments", env.patient, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[listResponse](t, rec).Appointments, 1)

	other := env.repo.AddUser(scheduling.User{Name: "Bo", Email: "bo@corp.test", Role: scheduling.RolePatient})
	rec = env.do(t, http.MethodGet, "/appointments", other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[listResponse](t, rec).Appointments)
}

func TestSubmitSurveyHighScoreAutoSchedules(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{
		"score":   60,
		"answers": []int{5, 5, 5, 5, 4},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[SurveyResponse](t, rec)
	assert.Equal(t, 60, resp.Score)
	require.NotNil(t, resp.AutoAppointment, "score over threshold with a free doctor must auto-schedule")
	assert.Equal(t, "Dr. Alba", resp.AutoAppointment.DoctorName)
	// Never same-day: the booked slot is tomorrow at the opening hour.
	assert.Equal(t, env.doctor.WorkStartHour, resp.AutoAppointment.Date.UTC().Hour())
	assert.True(t, resp.AutoAppointment.Date.After(time.Now()))
}

func TestSubmitSurveyLowScoreNoAutoAppointment(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{
		"score":   30,
		"answers": []int{2, 2, 2, 2, 2},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[SurveyResponse](t, rec)
	assert.Nil(t, resp.AutoAppointment)
}

func TestSubmitSurveyValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{"answers": []int{1, 2}})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing score")

	rec = env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{"score": 30})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing answers")

	// One survey per day.
	rec = env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{"score": 30, "answers": []int{2, 2}})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.do(t, http.MethodPost, "/surveys", env.patient, map[string]any{"score": 40, "answers": []int{3, 3}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListDoctors(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/doctors", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	type listResponse struct {
		Doctors []DoctorResponse `json:"doctors"`
	}
	doctors := decode[listResponse](t, rec).Doctors
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Alba", doctors[0].Name)
	assert.Equal(t, 8, doctors[0].WorkStartHour)
	assert.Equal(t, 16, doctors[0].WorkEndHour)
}
