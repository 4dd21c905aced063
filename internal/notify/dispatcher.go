package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/clock"
	"github.com/hackgods/practice-scheduling/internal/directory"
)

const defaultSendTimeout = 10 * time.Second

// People is the part of the directory the dispatcher reads.
type People interface {
	GetUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
	GetPractitioner(ctx context.Context, id uuid.UUID) (*directory.Practitioner, error)
}

// Dispatcher delivers notifications in the background. Failures are logged
// and never reach the caller.
type Dispatcher struct {
	people    People
	catalogue *Catalogue
	sink      Sink
	clock     clock.Clock
	log       *zap.Logger
	timeout   time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(people People, catalogue *Catalogue, sink Sink, clk clock.Clock, log *zap.Logger) *Dispatcher {
	if clk == nil {
		clk = clock.System()
	}
	return &Dispatcher{
		people:    people,
		catalogue: catalogue,
		sink:      sink,
		clock:     clk,
		log:       log,
		timeout:   defaultSendTimeout,
	}
}

func (d *Dispatcher) AppointmentCreated(ctx context.Context, a appointment.Appointment) {
	d.dispatch(ctx, a, d.catalogue.Created)
}

func (d *Dispatcher) AppointmentCancelled(ctx context.Context, a appointment.Appointment) {
	d.dispatch(ctx, a, d.catalogue.Cancelled)
}

// Wait blocks until in-flight notifications finish. Used on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

type buildFunc func(appointment.Appointment, *directory.User, *directory.Practitioner, time.Time) []Message

func (d *Dispatcher) dispatch(ctx context.Context, a appointment.Appointment, build buildFunc) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		log := d.log.With(zap.String("appointment_id", a.ID.String()))

		user, err := d.people.GetUser(ctx, a.UserID)
		if err != nil {
			log.Warn("notification skipped: user lookup failed", zap.Error(err))
			return
		}
		prac, err := d.people.GetPractitioner(ctx, a.PractitionerID)
		if err != nil {
			log.Warn("notification skipped: practitioner lookup failed", zap.Error(err))
			return
		}

		for _, m := range build(a, user, prac, d.clock.Now()) {
			if err := d.sink.Send(ctx, m); err != nil {
				log.Warn("failed to send notification",
					zap.String("kind", string(m.Kind)),
					zap.String("recipient", m.Recipient),
					zap.Error(err),
				)
			}
		}
	}()
}
