package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/appointment"
	"github.com/hackgods/practice-scheduling/internal/config"
	"github.com/hackgods/practice-scheduling/internal/db"
	"github.com/hackgods/practice-scheduling/internal/logging"
	"github.com/hackgods/practice-scheduling/internal/meeting"
)

const batchSize = 100

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "meeting-reaper: %v\n", err)
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

	if cfg.MeetingAPIKey == "" {
		log.Warn("MEETING_API_KEY not set, nothing to reap")
		return nil
	}

	log.Info("meeting-reaper starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, db.PoolConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConn, AppName: "meeting-reaper"})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	log.Info("connected to Postgres")

	// Reaping never books, so the matcher, locker and notifier stay unset.
	svc := appointment.NewService(appointment.Deps{
		Repo:     appointment.NewPgRepository(pgPool),
		Meetings: meeting.NewWherebyClient(cfg.MeetingAPIURL, cfg.MeetingAPIKey, cfg.MeetingTimeout, log),
		Log:      log,
	}, appointment.Policy{})

	runOnce(rootCtx, svc, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info("shutdown signal received, stopping meeting reaper")
			return nil
		case <-ticker.C:
			runOnce(rootCtx, svc, log)
		}
	}
}

func runOnce(ctx context.Context, svc *appointment.Service, log *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	start := time.Now()
	cleared, err := svc.ReapCancelledMeetings(runCtx, batchSize)
	if err != nil {
		log.Error("reap run failed", zap.Int("cleared", cleared), zap.Error(err))
		return
	}
	log.Info("reap run complete", zap.Int("cleared", cleared), zap.Duration("took", time.Since(start)))
}
