package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/equilibra/burnout-scheduling/internal/scheduling"
)

func listDoctorsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{
				DoctorSummary: DoctorSummary{
					ID:        d.ID,
					Name:      d.Name,
					Specialty: d.Specialty,
				},
				WorkStartHour:   d.WorkStartHour,
				WorkEndHour:     d.WorkEndHour,
				SlotDurationMin: d.SlotDurationMin,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"doctors": resp})
	}
}

func getDoctorSlotsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "missing_date", "the 'date' query parameter (YYYY-MM-DD) is required")
			return
		}

		day, err := svc.GetAvailableSlots(r.Context(), doctorID, date)
		if err != nil {
			switch {
			case errors.Is(err, scheduling.ErrDoctorNotFound):
				writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
			case errors.Is(err, scheduling.ErrInvalidDate):
				writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		slots := make([]SlotResponse, 0, len(day.Slots))
		for _, s := range day.Slots {
			slots = append(slots, SlotResponse{Start: s.Start, End: s.End, Available: s.Available})
		}

		writeJSON(w, http.StatusOK, SlotsResponse{
			Doctor: DoctorSummary{
				ID:        day.Doctor.ID,
				Name:      day.Doctor.Name,
				Specialty: day.Doctor.Specialty,
			},
			Date:  day.Date,
			Slots: slots,
		})
	}
}

func createAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		startAt, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be an ISO-8601 instant")
			return
		}

		patient := scheduling.Patient{Name: user.Name, Email: user.Email}
		appt, err := svc.CreateAppointment(r.Context(), doctorID, patient, startAt)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(appt, nil))
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrOutOfHours):
		writeError(w, http.StatusBadRequest, "out_of_hours", err.Error())
	case errors.Is(err, scheduling.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, scheduling.ErrSlotContended):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func listAppointmentsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())

		appointments, err := svc.ListForUser(r.Context(), user)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appointments))
		for i := range appointments {
			resp = append(resp, appointmentResponse(&appointments[i].Appointment, appointments[i].Doctor))
		}

		writeJSON(w, http.StatusOK, map[string]any{"appointments": resp})
	}
}

func getAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			if errors.Is(err, scheduling.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(&detail.Appointment, detail.Doctor))
	}
}

func updateAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "a status field is required")
			return
		}

		detail, err := svc.UpdateStatus(r.Context(), id, scheduling.AppointmentStatus(req.Status))
		if err != nil {
			switch {
			case errors.Is(err, scheduling.ErrInvalidStatus):
				writeError(w, http.StatusBadRequest, "invalid_status", err.Error())
			case errors.Is(err, scheduling.ErrAppointmentNotFound):
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, appointmentResponse(&detail.Appointment, detail.Doctor))
	}
}

func appointmentResponse(appt *scheduling.Appointment, doctor *scheduling.User) AppointmentResponse {
	resp := AppointmentResponse{
		ID:            appt.ID,
		DoctorID:      appt.DoctorID,
		PatientName:   appt.PatientName,
		PatientEmail:  appt.PatientEmail,
		Date:          appt.StartsAt,
		DurationMin:   appt.DurationMin,
		Status:        string(appt.Status),
		MeetingRoomID: appt.MeetingRoomID,
	}
	if doctor != nil {
		resp.DoctorName = doctor.Name
		resp.Specialty = doctor.Specialty
	}
	return resp
}
