package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/availability"
	"github.com/clinicore/scheduling-engine/internal/booking"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

type BookAppointmentRequest struct {
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	ScheduledTime string `json:"scheduled_time"`
	Reason        string `json:"reason"`
	Notes         string `json:"notes,omitempty"`
	Priority      int    `json:"priority,omitempty"`
}

type RescheduleRequest struct {
	ScheduledTime string `json:"scheduled_time"`
}

type CreateScheduleRequest struct {
	DoctorID           string `json:"doctor_id"`
	Weekday            int    `json:"weekday"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	VisitDurationMin   int    `json:"visit_duration_minutes"`
	MaxPatientsPerHour int    `json:"max_patients_per_hour"`
}

type AppointmentResponse struct {
	ID            uuid.UUID `json:"id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	SlotID        uuid.UUID `json:"slot_id"`
	ScheduledTime time.Time `json:"scheduled_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	Priority      int       `json:"priority"`
	Reason        string    `json:"reason,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID,
		PatientID:     a.PatientID,
		DoctorID:      a.DoctorID,
		SlotID:        a.SlotID,
		ScheduledTime: a.ScheduledTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		Priority:      a.Priority,
		Reason:        a.Reason,
		Notes:         a.Notes,
		CreatedAt:     a.CreatedAt,
	}
}

type SlotResponse struct {
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	IsAvailable        bool      `json:"is_available"`
	AvailabilityStatus string    `json:"availability_status"`
	BookedCount        int       `json:"booked_count"`
	Capacity           int       `json:"capacity"`
}

type AvailableSlotsResponse struct {
	DoctorID uuid.UUID      `json:"doctor_id"`
	Date     string         `json:"date"`
	Slots    []SlotResponse `json:"slots"`
}

func toSlotResponse(s slot.Slot, loc *time.Location) SlotResponse {
	return SlotResponse{
		StartTime:          s.Start.At(s.Date, loc),
		EndTime:            s.End.At(s.Date, loc),
		IsAvailable:        s.IsAvailable(),
		AvailabilityStatus: string(s.AvailabilityStatus()),
		BookedCount:        s.BookedCount,
		Capacity:           s.Capacity,
	}
}

type DayDensityResponse struct {
	Date            string  `json:"date"`
	Status          string  `json:"status"`
	TotalSlots      int     `json:"total_slots"`
	AvailableSlots  int     `json:"available_slots"`
	MorningStatus   string  `json:"morning_status"`
	AfternoonStatus string  `json:"afternoon_status"`
	PercentBooked   float64 `json:"percent_booked"`
}

type AvailabilityResponse struct {
	DoctorID     uuid.UUID            `json:"doctor_id"`
	StartDate    string               `json:"start_date"`
	EndDate      string               `json:"end_date"`
	Availability []DayDensityResponse `json:"availability"`
}

func toDayDensityResponse(d availability.DayDensity) DayDensityResponse {
	return DayDensityResponse{
		Date:            d.Date.Format("2006-01-02"),
		Status:          string(d.Status),
		TotalSlots:      d.TotalSlots,
		AvailableSlots:  d.AvailableSlots,
		MorningStatus:   string(d.MorningStatus),
		AfternoonStatus: string(d.AfternoonStatus),
		PercentBooked:   d.PercentBooked,
	}
}

type ScheduleResponse struct {
	ID                 uuid.UUID `json:"id"`
	DoctorID           uuid.UUID `json:"doctor_id"`
	Weekday            int       `json:"weekday"`
	StartTime          string    `json:"start_time"`
	EndTime            string    `json:"end_time"`
	VisitDurationMin   int       `json:"visit_duration_minutes"`
	MaxPatientsPerHour int       `json:"max_patients_per_hour"`
	Active             bool      `json:"active"`
}

func toScheduleResponse(t schedule.WorkTemplate) ScheduleResponse {
	return ScheduleResponse{
		ID:                 t.ID,
		DoctorID:           t.DoctorID,
		Weekday:            int(t.Weekday),
		StartTime:          t.Start.String(),
		EndTime:            t.End.String(),
		VisitDurationMin:   t.VisitDurationMin,
		MaxPatientsPerHour: t.MaxPatientsPerHour,
		Active:             t.Active,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	ReleasedOld *bool  `json:"released_old,omitempty"`
}
