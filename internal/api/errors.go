package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

// writeServiceError maps a domain error to a response. Specific sentinels are
// checked before their categories.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, event.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event_not_found", err.Error())
	case errors.Is(err, directory.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, directory.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", err.Error())

	case errors.Is(err, schedule.ErrNoScheduleForDay):
		writeError(w, http.StatusUnprocessableEntity, "no_schedule_for_day", err.Error())
	case errors.Is(err, schedule.ErrOutsideSchedule):
		writeError(w, http.StatusUnprocessableEntity, "outside_schedule", err.Error())
	case errors.Is(err, appointment.ErrOverlap):
		writeError(w, http.StatusUnprocessableEntity, "appointment_overlap", err.Error())
	case errors.Is(err, event.ErrEventOverlap):
		writeError(w, http.StatusUnprocessableEntity, "event_overlap", err.Error())
	case errors.Is(err, schedule.ErrOverlappingWindows):
		writeError(w, http.StatusUnprocessableEntity, "overlapping_windows", err.Error())
	case errors.Is(err, appointment.ErrCancellationTooLate):
		writeError(w, http.StatusUnprocessableEntity, "cancellation_too_late", err.Error())
	case errors.Is(err, appointment.ErrNotCancellable):
		writeError(w, http.StatusUnprocessableEntity, "not_cancellable", err.Error())
	case errors.Is(err, appointment.ErrCalendarBusy), errors.Is(err, event.ErrCalendarBusy):
		writeError(w, http.StatusConflict, "calendar_busy", "practitioner calendar is being updated, please retry shortly")

	case errors.Is(err, apperr.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, apperr.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	default:
		log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
