package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/scheduling-engine/internal/booking"
	"github.com/clinicore/scheduling-engine/internal/identity"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/internal/slot"
)

func TestHandleBookingErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{booking.ErrPastTime, http.StatusBadRequest, "past_time"},
		{booking.ErrMisalignedTime, http.StatusBadRequest, "misaligned_time"},
		{booking.ErrInvalidPriority, http.StatusBadRequest, "invalid_priority"},
		{schedule.ErrNoSchedule, http.StatusBadRequest, "no_schedule"},
		{schedule.ErrTemplateInvalid, http.StatusBadRequest, "invalid_schedule"},
		{schedule.ErrTemplateExists, http.StatusConflict, "schedule_exists"},
		{booking.ErrSlotFull, http.StatusConflict, "slot_full"},
		{booking.ErrContention, http.StatusConflict, "slot_being_booked"},
		{booking.ErrInvalidTransition, http.StatusConflict, "invalid_status_transition"},
		{booking.ErrAppointmentNotFound, http.StatusNotFound, "appointment_not_found"},
		{slot.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
		{identity.ErrUnknownUser, http.StatusNotFound, "user_not_found"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handleBookingError(rec, tc.err)

		assert.Equal(t, tc.wantStatus, rec.Code, tc.wantCode)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), tc.wantCode)
		assert.Equal(t, tc.wantCode, body.Error)
	}
}

func TestHandleBookingErrorUnwrapsWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	handleBookingError(rec, fmt.Errorf("appointment is CANCELLED: %w", booking.ErrInvalidTransition))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestParseTimestamp(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	// RFC 3339 keeps its own offset.
	got, err := parseTimestamp("2026-09-07T09:15:00Z", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 15, 0, 0, time.UTC), got.UTC())

	// Bare wall-clock forms land in the canonical zone.
	got, err = parseTimestamp("2026-09-07T09:15", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 7, 9, 15, 0, 0, loc), got)

	got, err = parseTimestamp("2026-09-07 09:15:00", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got.Location())

	_, err = parseTimestamp("next tuesday", loc)
	assert.Error(t, err)

	_, err = parseTimestamp("", loc)
	assert.Error(t, err)
}
