package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/api"
	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/clock"
	"github.com/hackgods/practice-scheduling/internal/config"
	"github.com/hackgods/practice-scheduling/internal/db"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/event"
	"github.com/hackgods/practice-scheduling/internal/logging"
	"github.com/hackgods/practice-scheduling/internal/meeting"
	"github.com/hackgods/practice-scheduling/internal/notify"
	redisclient "github.com/hackgods/practice-scheduling/internal/redis"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
		zap.String("version", version),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, db.PoolConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConn, AppName: "api-server"})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	if cfg.MigrateOnStart {
		applied, err := db.NewMigrator(pgPool, log).Up(rootCtx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Int("count", applied))
	}

	rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.ClientConfig{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn("error closing redis", zap.Error(err))
		}
	}()
	log.Info("connected to Redis")

	sink, closeSink, err := notificationSink(cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	clk := clock.System()
	locker := redisclient.NewRedisPractitionerLocker(rdb, cfg.LockTTL)
	dir := directory.NewPgDirectory(pgPool)

	schedules := schedule.NewStore(schedule.NewPgRepository(pgPool), log)
	dispatcher := notify.NewDispatcher(dir, notify.NewCatalogue(cfg.DisplayLocation, cfg.InternalEmail), sink, clk, log)

	appointments := appointment.NewService(appointment.Deps{
		Repo:     appointment.NewPgRepository(pgPool),
		Matcher:  schedule.NewMatcher(schedules, cfg.ScheduleLocation),
		Locker:   locker,
		Meetings: meetingProvider(cfg, log),
		Notifier: dispatcher,
		Clock:    clk,
		Log:      log,
	}, appointment.Policy{
		CancellationLeadTime: cfg.CancellationLeadTime,
		ReasonMinLen:         cfg.CancellationReasonMinLen,
		ReasonMaxLen:         cfg.CancellationReasonMaxLen,
		RoomNamePrefix:       cfg.MeetingRoomPrefix,
	})

	events := event.NewService(event.NewPgRepository(pgPool), locker, clk, log)

	health := api.NewHealthHandler(
		pgPool,
		api.PingFunc(redisclient.Ping(rdb)),
		cfg.Env,
		version,
	)

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: api.NewRouter(api.RouterConfig{
			Appointments:       appointments,
			Schedules:          schedules,
			Events:             events,
			Directory:          dir,
			Health:             health,
			Log:                log,
			RateLimitPerMinute: cfg.RateLimitPerMinute,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}

	dispatcher.Wait()
	log.Info("api-server stopped")
	return nil
}

func meetingProvider(cfg config.Config, log *zap.Logger) meeting.Provider {
	if cfg.MeetingAPIKey == "" {
		log.Warn("MEETING_API_KEY not set, virtual appointments are disabled")
		return meeting.Disabled()
	}
	return meeting.NewWherebyClient(cfg.MeetingAPIURL, cfg.MeetingAPIKey, cfg.MeetingTimeout, log)
}

func notificationSink(cfg config.Config, log *zap.Logger) (notify.Sink, func(), error) {
	if cfg.RabbitMQURL == "" {
		log.Warn("RABBITMQ_URL not set, notifications are only logged")
		return notify.NewLogSink(log), func() {}, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, err
	}
	pub, err := notify.NewRabbitPublisher(conn, cfg.NotificationQueue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	log.Info("connected to RabbitMQ", zap.String("queue", cfg.NotificationQueue))

	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn("error closing notification channel", zap.Error(err))
		}
		if err := conn.Close(); err != nil {
			log.Warn("error closing rabbitmq", zap.Error(err))
		}
	}, nil
}
