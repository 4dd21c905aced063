package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/practice-scheduling/internal/apperr"
	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

var (
	patientID   = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	doctorUser  = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	strangerID  = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	pracID      = uuid.MustParse("44444444-4444-4444-8444-444444444444")
	apptID      = uuid.MustParse("55555555-5555-4555-8555-555555555555")
	eventID     = uuid.MustParse("66666666-6666-4666-8666-666666666666")
	bookingTime = time.Date(2030, 3, 4, 10, 0, 0, 0, time.UTC)
)

type fakeDirectory struct {
	users map[string]uuid.UUID
	owned map[uuid.UUID][]uuid.UUID
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users: map[string]uuid.UUID{"patient": patientID, "doctor": doctorUser, "stranger": strangerID},
		owned: map[uuid.UUID][]uuid.UUID{doctorUser: {pracID}},
	}
}

func (d *fakeDirectory) ResolveUserID(_ context.Context, uid string) (uuid.UUID, error) {
	id, ok := d.users[uid]
	if !ok {
		return uuid.Nil, directory.ErrUserNotFound
	}
	return id, nil
}

func (d *fakeDirectory) OwnedPractitionerIDs(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return d.owned[userID], nil
}

func (d *fakeDirectory) GetUser(_ context.Context, id uuid.UUID) (*directory.User, error) {
	return &directory.User{ID: id}, nil
}

func (d *fakeDirectory) GetPractitioner(_ context.Context, id uuid.UUID) (*directory.Practitioner, error) {
	if id != pracID {
		return nil, directory.ErrPractitionerNotFound
	}
	return &directory.Practitioner{ID: pracID, UserID: doctorUser, Name: "Dr. Who", Email: "who@example.com", AppointmentTimeSlot: 45}, nil
}

func (d *fakeDirectory) CreatePractitioner(_ context.Context, in directory.NewPractitioner) (*directory.Practitioner, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &directory.Practitioner{ID: uuid.New(), UserID: in.UserID, Name: in.Name, Email: in.Email, AppointmentTimeSlot: in.AppointmentTimeSlot}, nil
}

type fakeAppointments struct {
	createErr  error
	lastCreate appointment.CreateRequest
	lastCancel appointment.CancelRequest
}

func (f *fakeAppointments) stored() *appointment.Appointment {
	host, room := "https://rooms.example/r?host", "https://rooms.example/r"
	return &appointment.Appointment{
		ID: apptID, PractitionerID: pracID, UserID: patientID,
		StartTime: bookingTime, EndTime: bookingTime.Add(45 * time.Minute),
		IsVirtual: true, Status: appointment.StatusConfirmed,
		DoctorVideoURL: &host, UserVideoURL: &room,
	}
}

func (f *fakeAppointments) CreateAppointment(_ context.Context, req appointment.CreateRequest) (*appointment.Appointment, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	a := f.stored()
	a.StartTime = req.StartTime
	a.EndTime = req.StartTime.Add(time.Duration(req.SlotMinutes) * time.Minute)
	return a, nil
}

func (f *fakeAppointments) CancelAppointment(_ context.Context, req appointment.CancelRequest) (*appointment.Appointment, error) {
	f.lastCancel = req
	a := f.stored()
	a.Status = appointment.StatusCancelled
	a.CancelledByPractitioner = req.ByPractitioner
	return a, nil
}

func (f *fakeAppointments) GetAppointment(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	if id != apptID {
		return nil, appointment.ErrAppointmentNotFound
	}
	return f.stored(), nil
}

func (f *fakeAppointments) ListForPractitioner(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]appointment.Appointment, error) {
	return []appointment.Appointment{*f.stored()}, nil
}

type fakeSchedules struct {
	windows []schedule.Window
}

func (f *fakeSchedules) GetWeeklySchedule(context.Context, uuid.UUID) ([]schedule.Window, error) {
	return f.windows, nil
}

func (f *fakeSchedules) ReplaceCurrentSchedules(_ context.Context, _ uuid.UUID, windows []schedule.Window) ([]schedule.Window, error) {
	if err := schedule.CheckNoOverlap(windows); err != nil {
		return nil, err
	}
	f.windows = windows
	return windows, nil
}

func (f *fakeSchedules) InjectDefaultSchedule(_ context.Context, pid uuid.UUID) ([]schedule.Window, error) {
	return schedule.Expand(pid, []schedule.Definition{schedule.DefaultDefinition})
}

type fakeEvents struct {
	deleted bool
}

func (f *fakeEvents) ev() *event.PractitionerEvent {
	return &event.PractitionerEvent{
		ID: eventID, PractitionerID: pracID, Title: "Leave", HexColor: event.DefaultHexColor,
		StartTime: bookingTime, EndTime: bookingTime.Add(time.Hour), CreatedByID: doctorUser,
	}
}

func (f *fakeEvents) CreateEvent(_ context.Context, in event.CreateInput) (*event.PractitionerEvent, error) {
	e := f.ev()
	e.Title = in.Title
	return e, nil
}

func (f *fakeEvents) UpdateEvent(_ context.Context, _, actorID uuid.UUID, p event.Patch) (*event.PractitionerEvent, error) {
	e := p.Merge(*f.ev())
	e.UpdatedByID = &actorID
	return &e, nil
}

func (f *fakeEvents) DeleteEvent(context.Context, uuid.UUID) error {
	f.deleted = true
	return nil
}

func (f *fakeEvents) GetEvent(context.Context, uuid.UUID) (*event.PractitionerEvent, error) {
	return f.ev(), nil
}

func (f *fakeEvents) GetPractitionerIDForEvent(_ context.Context, id uuid.UUID) (*uuid.UUID, error) {
	if id != eventID {
		return nil, nil
	}
	pid := pracID
	return &pid, nil
}

func (f *fakeEvents) ListForPractitioner(context.Context, uuid.UUID, time.Time, time.Time) ([]event.PractitionerEvent, error) {
	return []event.PractitionerEvent{*f.ev()}, nil
}

type testServer struct {
	handler      http.Handler
	appointments *fakeAppointments
	schedules    *fakeSchedules
	events       *fakeEvents
}

func newTestServer() *testServer {
	ts := &testServer{
		appointments: &fakeAppointments{},
		schedules:    &fakeSchedules{},
		events:       &fakeEvents{},
	}
	ts.handler = NewRouter(RouterConfig{
		Appointments: ts.appointments,
		Schedules:    ts.schedules,
		Events:       ts.events,
		Directory:    newFakeDirectory(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set(UserUIDHeader, uid)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestIdentity(t *testing.T) {
	ts := newTestServer()

	rec := ts.do(t, http.MethodGet, "/appointments/"+apptID.String(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, http.MethodGet, "/appointments/"+apptID.String(), "ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", decode[ErrorResponse](t, rec).Error)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateAppointment(t *testing.T) {
	body := map[string]any{
		"practitionerId": pracID.String(),
		"startTime":      bookingTime.Format(time.RFC3339),
		"isVirtual":      true,
	}

	t.Run("uses practitioner slot length", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/appointments", "patient", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		assert.Equal(t, 45, ts.appointments.lastCreate.SlotMinutes)
		assert.Equal(t, patientID, ts.appointments.lastCreate.UserID)
		assert.True(t, ts.appointments.lastCreate.IsVirtual)

		resp := decode[AppointmentResponse](t, rec)
		assert.Equal(t, bookingTime.Add(45*time.Minute), resp.EndTime.UTC())
		assert.NotNil(t, resp.UserVideoURL)
		assert.Nil(t, resp.DoctorVideoURL)
	})

	t.Run("unknown practitioner", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/appointments", "patient", map[string]any{
			"practitionerId": uuid.NewString(),
			"startTime":      bookingTime.Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("body validation", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/appointments", "patient", map[string]any{"startTime": bookingTime})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_failed", decode[ErrorResponse](t, rec).Error)

		rec = ts.do(t, http.MethodPost, "/appointments", "patient", `{"practitionerId":"`+pracID.String()+`","startTime":"2030-03-04T10:00:00Z","slotId":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request_body", decode[ErrorResponse](t, rec).Error)
	})

	errorCases := []struct {
		err    error
		status int
		code   string
	}{
		{schedule.ErrNoScheduleForDay, http.StatusUnprocessableEntity, "no_schedule_for_day"},
		{schedule.ErrOutsideSchedule, http.StatusUnprocessableEntity, "outside_schedule"},
		{appointment.ErrOverlap, http.StatusUnprocessableEntity, "appointment_overlap"},
		{appointment.ErrCalendarBusy, http.StatusConflict, "calendar_busy"},
		{appointment.ErrStartInPast, http.StatusBadRequest, "validation_failed"},
		{apperr.Infra("create appointment", errors.New("db down")), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range errorCases {
		t.Run(tc.code, func(t *testing.T) {
			ts := newTestServer()
			ts.appointments.createErr = tc.err
			rec := ts.do(t, http.MethodPost, "/appointments", "patient", body)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestAppointmentAccess(t *testing.T) {
	ts := newTestServer()
	path := "/appointments/" + apptID.String()

	rec := ts.do(t, http.MethodGet, path, "patient", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[AppointmentResponse](t, rec).DoctorVideoURL)

	rec = ts.do(t, http.MethodGet, path, "doctor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[AppointmentResponse](t, rec).DoctorVideoURL)

	rec = ts.do(t, http.MethodGet, path, "stranger", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodGet, "/appointments/not-a-uuid", "patient", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelAppointment(t *testing.T) {
	path := "/appointments/" + apptID.String() + "/cancel"

	t.Run("by practitioner", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, path, "doctor", CancelAppointmentRequest{Reason: "unwell"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, ts.appointments.lastCancel.ByPractitioner)
		assert.Equal(t, doctorUser, ts.appointments.lastCancel.ActingUserID)
		assert.Equal(t, "cancelled", decode[AppointmentResponse](t, rec).Status)
	})

	t.Run("by patient", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, path, "patient", CancelAppointmentRequest{Reason: "travel"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, ts.appointments.lastCancel.ByPractitioner)
	})

	t.Run("stranger", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, path, "stranger", CancelAppointmentRequest{Reason: "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, uuid.Nil, ts.appointments.lastCancel.AppointmentID)
	})

	t.Run("missing reason", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, path, "patient", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSchedules(t *testing.T) {
	path := "/practitioners/" + pracID.String() + "/schedules"

	t.Run("owner replaces", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPut, path, "doctor", ReplaceSchedulesRequest{Schedules: []ScheduleDefinition{
			{DaysOfWeek: []int{2, 4}, StartTime: "09:00", EndTime: "17:00"},
			{DaysOfWeek: []int{1}, StartTime: "22:00", EndTime: "01:00"},
		}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decode[[]ScheduleWindowResponse](t, rec)
		require.Len(t, got, 3)
		assert.Equal(t, 2, got[0].DayOfWeek)
		assert.Equal(t, "09:00", got[0].StartTime)
		assert.Equal(t, "01:00", got[2].EndTime)

		rec = ts.do(t, http.MethodGet, path, "patient", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]ScheduleWindowResponse](t, rec), 3)
	})

	t.Run("overlapping windows", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPut, path, "doctor", ReplaceSchedulesRequest{Schedules: []ScheduleDefinition{
			{DaysOfWeek: []int{2}, StartTime: "09:00", EndTime: "12:00"},
			{DaysOfWeek: []int{2}, StartTime: "11:00", EndTime: "14:00"},
		}})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "overlapping_windows", decode[ErrorResponse](t, rec).Error)
	})

	t.Run("bad input", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPut, path, "doctor", ReplaceSchedulesRequest{Schedules: []ScheduleDefinition{
			{DaysOfWeek: []int{8}, StartTime: "09:00", EndTime: "12:00"},
		}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = ts.do(t, http.MethodPut, path, "doctor", ReplaceSchedulesRequest{Schedules: []ScheduleDefinition{
			{DaysOfWeek: []int{2}, StartTime: "25:00", EndTime: "12:00"},
		}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non owner", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPut, path, "patient", ReplaceSchedulesRequest{})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCreatePractitionerInjectsDefaultSchedule(t *testing.T) {
	ts := newTestServer()
	rec := ts.do(t, http.MethodPost, "/practitioners", "stranger", CreatePractitionerRequest{
		Name: "Dr. New", Email: "new@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[PractitionerResponse](t, rec)
	assert.Equal(t, strangerID, resp.UserID)
	assert.Equal(t, directory.DefaultTimeSlotMinutes, resp.AppointmentTimeSlot)
	require.Len(t, resp.Schedules, 5)
	assert.Equal(t, "07:00", resp.Schedules[0].StartTime)
	assert.Equal(t, "15:00", resp.Schedules[0].EndTime)
}

func TestListPractitionerAppointments(t *testing.T) {
	ts := newTestServer()
	base := "/practitioners/" + pracID.String() + "/appointments"

	rec := ts.do(t, http.MethodGet, base+"?from=2030-03-01T00:00:00Z&to=2030-03-08T00:00:00Z", "doctor", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]AppointmentResponse](t, rec), 1)

	rec = ts.do(t, http.MethodGet, base+"?from=yesterday", "doctor", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, base+"?from=2030-03-01T00:00:00Z&to=2030-03-08T00:00:00Z", "patient", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents(t *testing.T) {
	path := "/events/" + eventID.String()

	t.Run("create for owned practitioner", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/events", "doctor", map[string]any{
			"practitionerId": pracID.String(),
			"title":          "Conference",
			"hexColor":       "#112233",
			"startTime":      bookingTime,
			"endTime":        bookingTime.Add(time.Hour),
			"isConfirmed":    true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Conference", decode[EventResponse](t, rec).Title)
	})

	t.Run("create rejects bad colour", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/events", "doctor", map[string]any{
			"practitionerId": pracID.String(),
			"title":          "Conference",
			"hexColor":       "yellow",
			"startTime":      bookingTime,
			"endTime":        bookingTime.Add(time.Hour),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("create for someone else", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodPost, "/events", "patient", map[string]any{
			"practitionerId": pracID.String(),
			"title":          "Conference",
			"startTime":      bookingTime,
			"endTime":        bookingTime.Add(time.Hour),
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("owner reads patches and deletes", func(t *testing.T) {
		ts := newTestServer()

		rec := ts.do(t, http.MethodGet, path, "doctor", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = ts.do(t, http.MethodPatch, path, "doctor", map[string]any{"title": "Holiday"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[EventResponse](t, rec)
		assert.Equal(t, "Holiday", got.Title)
		require.NotNil(t, got.UpdatedByID)
		assert.Equal(t, doctorUser, *got.UpdatedByID)

		rec = ts.do(t, http.MethodDelete, path, "doctor", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, ts.events.deleted)
	})

	t.Run("hidden from others", func(t *testing.T) {
		ts := newTestServer()
		rec := ts.do(t, http.MethodDelete, path, "patient", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, ts.events.deleted)

		rec = ts.do(t, http.MethodGet, "/events/"+uuid.NewString(), "doctor", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("down") })

	cases := []struct {
		name    string
		pg, rd  Pinger
		status  int
		overall string
	}{
		{"all up", ok, ok, http.StatusOK, "ok"},
		{"redis down", ok, down, http.StatusOK, "degraded"},
		{"postgres down", down, ok, http.StatusServiceUnavailable, "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewRouter(RouterConfig{
				Directory: newFakeDirectory(),
				Health:    NewHealthHandler(tc.pg, tc.rd, "test", "v1"),
			})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.overall, decode[ReadinessResponse](t, rec).Status)
		})
	}
}
