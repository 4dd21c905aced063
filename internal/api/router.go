package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, req appointment.CreateRequest) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, req appointment.CancelRequest) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]appointment.Appointment, error)
}

type ScheduleService interface {
	GetWeeklySchedule(ctx context.Context, practitionerID uuid.UUID) ([]schedule.Window, error)
	ReplaceCurrentSchedules(ctx context.Context, practitionerID uuid.UUID, windows []schedule.Window) ([]schedule.Window, error)
	InjectDefaultSchedule(ctx context.Context, practitionerID uuid.UUID) ([]schedule.Window, error)
}

type EventService interface {
	CreateEvent(ctx context.Context, in event.CreateInput) (*event.PractitionerEvent, error)
	UpdateEvent(ctx context.Context, id, actorID uuid.UUID, p event.Patch) (*event.PractitionerEvent, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEvent(ctx context.Context, id uuid.UUID) (*event.PractitionerEvent, error)
	GetPractitionerIDForEvent(ctx context.Context, id uuid.UUID) (*uuid.UUID, error)
	ListForPractitioner(ctx context.Context, practitionerID uuid.UUID, from, to time.Time) ([]event.PractitionerEvent, error)
}

type Directory = directory.Directory

type RouterConfig struct {
	Appointments AppointmentService
	Schedules    ScheduleService
	Events       EventService
	Directory    Directory
	Health       *HealthHandler
	Log          *zap.Logger

	// RateLimitPerMinute applies per client IP. Zero disables the limiter.
	RateLimitPerMinute int
}

type handler struct {
	appointments AppointmentService
	schedules    ScheduleService
	events       EventService
	directory    Directory
	log          *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	h := &handler{
		appointments: cfg.Appointments,
		schedules:    cfg.Schedules,
		events:       cfg.Events,
		directory:    cfg.Directory,
		log:          cfg.Log,
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		}
		r.Use(IdentityMiddleware(cfg.Directory, cfg.Log))

		r.Post("/appointments", h.createAppointment)
		r.Get("/appointments/{id}", h.getAppointment)
		r.Post("/appointments/{id}/cancel", h.cancelAppointment)

		r.Post("/practitioners", h.createPractitioner)
		r.Get("/practitioners/{id}/appointments", h.listPractitionerAppointments)
		r.Get("/practitioners/{id}/schedules", h.getSchedules)
		r.Put("/practitioners/{id}/schedules", h.replaceSchedules)
		r.Get("/practitioners/{id}/events", h.listPractitionerEvents)

		r.Post("/events", h.createEvent)
		r.Get("/events/{id}", h.getEvent)
		r.Patch("/events/{id}", h.updateEvent)
		r.Delete("/events/{id}", h.deleteEvent)
	})

	return r
}
