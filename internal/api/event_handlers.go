package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
)

func (h *handler) createEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pid, err := uuid.Parse(req.PractitionerID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "practitionerId must be a valid UUID")
		return
	}

	who := identityFrom(r.Context())
	if !directory.Owns(who.PractitionerIDs, pid) {
		writeServiceError(w, h.log, directory.ErrPractitionerNotFound)
		return
	}

	ev, err := h.events.CreateEvent(r.Context(), event.CreateInput{
		PractitionerID: pid,
		ActorID:        who.UserID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
		HexColor:       req.HexColor,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		IsAllDay:       req.IsAllDay,
		IsConfirmed:    req.IsConfirmed,
		RRule:          req.RRule,
		IsRecurring:    req.IsRecurring,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(ev))
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}

	ev, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (h *handler) updateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}

	var req UpdateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ev, err := h.events.UpdateEvent(r.Context(), id, identityFrom(r.Context()).UserID, req.patch())
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(ev))
}

func (h *handler) deleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedEvent(w, r)
	if !ok {
		return
	}

	if err := h.events.DeleteEvent(r.Context(), id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listPractitionerEvents(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.ownedPractitioner(w, r)
	if !ok {
		return
	}
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	evs, err := h.events.ListForPractitioner(r.Context(), pid, from, to)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}

	out := make([]EventResponse, 0, len(evs))
	for i := range evs {
		out = append(out, toEventResponse(&evs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// ownedEvent reads {id} and checks that the event belongs to one of the
// caller's practitioner profiles.
func (h *handler) ownedEvent(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := pathID(w, r, "invalid_event_id")
	if !ok {
		return uuid.Nil, false
	}

	pid, err := h.events.GetPractitionerIDForEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return uuid.Nil, false
	}
	if pid == nil || !directory.Owns(identityFrom(r.Context()).PractitionerIDs, *pid) {
		writeServiceError(w, h.log, event.ErrEventNotFound)
		return uuid.Nil, false
	}
	return id, true
}
