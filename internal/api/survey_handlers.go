package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/equilibra/burnout-scheduling/internal/survey"
)

func submitSurveyHandler(svc *survey.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())

		var req SubmitSurveyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Score == nil {
			writeError(w, http.StatusBadRequest, "invalid_survey", "a numeric score is required")
			return
		}

		record, autoAppt, err := svc.Submit(r.Context(), user, *req.Score, req.Answers)
		if err != nil {
			switch {
			case errors.Is(err, survey.ErrInvalidSubmission),
				errors.Is(err, survey.ErrAlreadySubmitted):
				writeError(w, http.StatusBadRequest, "invalid_survey", err.Error())
			default:
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			}
			return
		}

		resp := SurveyResponse{
			ID:    record.ID,
			Day:   record.Day.Format(time.DateOnly),
			Score: record.Score,
		}
		if autoAppt != nil {
			resp.AutoAppointment = &AutoAppointmentResponse{
				ID:         autoAppt.Appointment.ID,
				DoctorName: autoAppt.Doctor.Name,
				Specialty:  autoAppt.Doctor.Specialty,
				Date:       autoAppt.Appointment.StartsAt,
			}
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func listSurveysHandler(svc *survey.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())

		history, err := svc.History(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]SurveyResponse, 0, len(history))
		for _, s := range history {
			resp = append(resp, SurveyResponse{
				ID:      s.ID,
				Day:     s.Day.Format(time.DateOnly),
				Score:   s.Score,
				Answers: s.Answers,
			})
		}

		writeJSON(w, http.StatusOK, map[string]any{"surveys": resp})
	}
}
