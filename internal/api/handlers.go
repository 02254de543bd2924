package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/availability"
	"github.com/clinicore/scheduling-engine/internal/booking"
	"github.com/clinicore/scheduling-engine/internal/identity"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

func bookAppointmentHandler(ledger *booking.Ledger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		scheduled, err := parseTimestamp(req.ScheduledTime, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_time", "scheduled_time must be RFC 3339 or YYYY-MM-DDTHH:MM")
			return
		}

		appt, err := ledger.Book(r.Context(), booking.BookRequest{
			PatientID:     patientID,
			DoctorID:      doctorID,
			ScheduledTime: scheduled,
			Reason:        req.Reason,
			Notes:         req.Notes,
			Priority:      req.Priority,
		})
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(ledger *booking.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := ledger.Get(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(ledger *booking.Ledger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f booking.ListFilter

		if v := r.URL.Query().Get("patient_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			f.PatientID = &id
		}
		if v := r.URL.Query().Get("doctor_id"); v != "" {
			id, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			f.DoctorID = &id
		}
		if v := r.URL.Query().Get("status"); v != "" {
			st := booking.Status(v)
			f.Status = &st
		}
		if v := r.URL.Query().Get("date"); v != "" {
			day, err := time.ParseInLocation("2006-01-02", v, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			f.Date = &day
		}

		appts, err := ledger.List(r.Context(), f)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			out = append(out, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func confirmAppointmentHandler(ledger *booking.Ledger) http.HandlerFunc {
	return transitionHandler(ledger.Confirm)
}

func completeAppointmentHandler(ledger *booking.Ledger) http.HandlerFunc {
	return transitionHandler(ledger.Complete)
}

func transitionHandler(fn func(ctx context.Context, id uuid.UUID) (*booking.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := fn(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(ledger *booking.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		appt, err := ledger.Cancel(r.Context(), id)
		if err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MessageResponse{
			Message: "appointment " + appt.ID.String() + " cancelled",
		})
	}
}

func rescheduleAppointmentHandler(ledger *booking.Ledger, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		newTime, err := parseTimestamp(req.ScheduledTime, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_time", "scheduled_time must be RFC 3339 or YYYY-MM-DDTHH:MM")
			return
		}

		appt, err := ledger.Reschedule(r.Context(), id, newTime)
		if err != nil {
			var rerr *booking.RescheduleError
			if errors.As(err, &rerr) {
				released := rerr.ReleasedOld
				writeJSON(w, http.StatusConflict, ErrorResponse{
					Error:       "reschedule_failed",
					Details:     rerr.Error(),
					ReleasedOld: &released,
				})
				return
			}
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func availableSlotsHandler(alloc *slot.Allocator, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		date := time.Now().In(loc)
		if v := r.URL.Query().Get("date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
				return
			}
			date = parsed
		}
		date = slot.DateOnly(date, loc)

		slots, err := alloc.ListDay(r.Context(), doctorID, date)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]SlotResponse, 0, len(slots))
		for _, s := range slots {
			out = append(out, toSlotResponse(s, loc))
		}
		writeJSON(w, http.StatusOK, AvailableSlotsResponse{
			DoctorID: doctorID,
			Date:     date.Format("2006-01-02"),
			Slots:    out,
		})
	}
}

func dailyAvailabilityHandler(agg *availability.Aggregator, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, ok := parseIDParam(w, r)
		if !ok {
			return
		}

		today := slot.DateOnly(time.Now().In(loc), loc)
		start := today
		end := today.AddDate(0, 0, 30)

		if v := r.URL.Query().Get("start_date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_start_date", "start_date must be YYYY-MM-DD")
				return
			}
			start = parsed
		}
		if v := r.URL.Query().Get("end_date"); v != "" {
			parsed, err := time.ParseInLocation("2006-01-02", v, loc)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_end_date", "end_date must be YYYY-MM-DD")
				return
			}
			end = parsed
		}

		days, err := agg.RangeDensity(r.Context(), doctorID, start, end)
		if err != nil {
			if errors.Is(err, availability.ErrRangeTooLarge) {
				writeError(w, http.StatusBadRequest, "range_too_large", err.Error())
				return
			}
			handleBookingError(w, err)
			return
		}

		out := make([]DayDensityResponse, 0, len(days))
		for _, d := range days {
			out = append(out, toDayDensityResponse(d))
		}
		writeJSON(w, http.StatusOK, AvailabilityResponse{
			DoctorID:     doctorID,
			StartDate:    start.Format("2006-01-02"),
			EndDate:      end.Format("2006-01-02"),
			Availability: out,
		})
	}
}

func createScheduleHandler(catalog *schedule.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}
		start, err := schedule.ParseTimeOfDay(req.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
			return
		}
		end, err := schedule.ParseTimeOfDay(req.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_time", err.Error())
			return
		}

		tpl := &schedule.WorkTemplate{
			DoctorID:           doctorID,
			Weekday:            time.Weekday(req.Weekday),
			Start:              start,
			End:                end,
			VisitDurationMin:   req.VisitDurationMin,
			MaxPatientsPerHour: req.MaxPatientsPerHour,
		}
		if err := catalog.CreateTemplate(r.Context(), tpl); err != nil {
			handleBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toScheduleResponse(*tpl))
	}
}

func listSchedulesHandler(catalog *schedule.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query().Get("doctor_id")
		doctorID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		templates, err := catalog.ListTemplates(r.Context(), doctorID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		out := make([]ScheduleResponse, 0, len(templates))
		for _, t := range templates {
			out = append(out, toScheduleResponse(t))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPastTime):
		writeError(w, http.StatusBadRequest, "past_time", err.Error())
	case errors.Is(err, booking.ErrMisalignedTime):
		writeError(w, http.StatusBadRequest, "misaligned_time", err.Error())
	case errors.Is(err, booking.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, "invalid_priority", err.Error())
	case errors.Is(err, schedule.ErrNoSchedule):
		writeError(w, http.StatusBadRequest, "no_schedule", err.Error())
	case errors.Is(err, schedule.ErrTemplateInvalid):
		writeError(w, http.StatusBadRequest, "invalid_schedule", err.Error())
	case errors.Is(err, schedule.ErrTemplateExists):
		writeError(w, http.StatusConflict, "schedule_exists", err.Error())
	case errors.Is(err, booking.ErrSlotFull):
		writeError(w, http.StatusConflict, "slot_full", err.Error())
	case errors.Is(err, booking.ErrContention):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, slot.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, identity.ErrUnknownUser):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func parseIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseTimestamp accepts RFC 3339 and the bare wall-clock form the booking
// UIs send; a bare timestamp is interpreted in the canonical zone.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unrecognized timestamp format")
}
