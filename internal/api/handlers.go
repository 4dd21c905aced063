package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

func (h *handler) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	practitionerID, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitionerId must be a valid UUID")
		return
	}

	prac, err := h.directory.GetPractitioner(r.Context(), practitionerID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	who := identityFrom(r.Context())
	appt, err := h.appointments.CreateAppointment(r.Context(), appointment.CreateRequest{
		UserID:         who.UserID,
		PractitionerID: prac.ID,
		StartTime:      req.StartTime,
		IsVirtual:      req.IsVirtual,
		UserNotes:      req.UserNotes,
		SlotMinutes:    prac.AppointmentTimeSlot,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt, directory.Owns(who.PractitionerIDs, appt.PractitionerID)))
}

func (h *handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}

	appt, byPractitioner, ok := h.loadAccessibleAppointment(w, r, id)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, byPractitioner))
}

func (h *handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid_appointment_id")
	if !ok {
		return
	}

	var req CancelAppointmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, byPractitioner, ok := h.loadAccessibleAppointment(w, r, id)
	if !ok {
		return
	}

	who := identityFrom(r.Context())
	appt, err := h.appointments.CancelAppointment(r.Context(), appointment.CancelRequest{
		AppointmentID:  id,
		ActingUserID:   who.UserID,
		ByPractitioner: byPractitioner,
		Reason:         req.Reason,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toAppointmentResponse(appt, byPractitioner))
}

// loadAccessibleAppointment answers 404 both for a missing appointment and for
// one the caller may not see.
func (h *handler) loadAccessibleAppointment(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*appointment.Appointment, bool, bool) {
	appt, err := h.appointments.GetAppointment(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return nil, false, false
	}

	who := identityFrom(r.Context())
	byPractitioner, ok := appointment.CanAccess(appt, who.UserID, who.PractitionerIDs)
	if !ok {
		writeServiceError(w, h.log, appointment.ErrAppointmentNotFound)
		return nil, false, false
	}
	return appt, byPractitioner, true
}

func (h *handler) listPractitionerAppointments(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.ownedPractitioner(w, r)
	if !ok {
		return
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	appts, err := h.appointments.ListForPractitioner(r.Context(), pid, from, to)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toAppointmentResponse(&appts[i], true))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) createPractitioner(w http.ResponseWriter, r *http.Request) {
	var req CreatePractitionerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	who := identityFrom(r.Context())
	prac, err := h.directory.CreatePractitioner(r.Context(), directory.NewPractitioner{
		UserID:              who.UserID,
		Name:                req.Name,
		Email:               req.Email,
		AppointmentTimeSlot: req.AppointmentTimeSlot,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	windows, err := h.schedules.InjectDefaultSchedule(r.Context(), prac.ID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toPractitionerResponse(prac, windows))
}

// getSchedules is open to every authenticated caller so patients can see
// when a practitioner is available.
func (h *handler) getSchedules(w http.ResponseWriter, r *http.Request) {
	pid, ok := pathID(w, r, "invalid_practitioner_id")
	if !ok {
		return
	}

	if _, err := h.directory.GetPractitioner(r.Context(), pid); err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	windows, err := h.schedules.GetWeeklySchedule(r.Context(), pid)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(windows))
}

func (h *handler) replaceSchedules(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.ownedPractitioner(w, r)
	if !ok {
		return
	}

	var req ReplaceSchedulesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	defs := make([]schedule.Definition, 0, len(req.Schedules))
	for _, s := range req.Schedules {
		start, err := schedule.ParseTimeOfDay(s.StartTime)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}
		end, err := schedule.ParseTimeOfDay(s.EndTime)
		if err != nil {
			writeServiceError(w, h.log, err)
			return
		}

		days := make([]schedule.Weekday, len(s.DaysOfWeek))
		for i, d := range s.DaysOfWeek {
			days[i] = schedule.Weekday(d)
		}
		defs = append(defs, schedule.Definition{DaysOfWeek: days, StartTime: start, EndTime: end})
	}

	windows, err := schedule.Expand(pid, defs)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	saved, err := h.schedules.ReplaceCurrentSchedules(r.Context(), pid, windows)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(saved))
}

// ownedPractitioner reads {id} and requires the caller to own it. Anyone else
// gets a 404.
func (h *handler) ownedPractitioner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, ok := pathID(w, r, "invalid_practitioner_id")
	if !ok {
		return uuid.Nil, false
	}
	if !directory.Owns(identityFrom(r.Context()).PractitionerIDs, pid) {
		writeServiceError(w, h.log, directory.ErrPractitionerNotFound)
		return uuid.Nil, false
	}
	return pid, true
}

func pathID(w http.ResponseWriter, r *http.Request, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, code, "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseRange reads the RFC 3339 from and to query parameters.
func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "from must be an RFC 3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse(time.RFC3339, q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_range", "to must be an RFC 3339 timestamp")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
