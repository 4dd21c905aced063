package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/config"
	"github.com/hackgods/practice-scheduling/internal/db"
	"github.com/hackgods/practice-scheduling/internal/directory"
	"github.com/hackgods/practice-scheduling/internal/logging"
	"github.com/hackgods/practice-scheduling/internal/schedule"
)

var slotLengths = []int{15, 20, 30, 45, 60}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
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

	userCount := getInt("SEED_USERS", 2000)
	practitionerCount := getInt("SEED_PRACTITIONERS", 50)
	if practitionerCount > userCount {
		return fmt.Errorf("SEED_PRACTITIONERS (%d) cannot exceed SEED_USERS (%d)", practitionerCount, userCount)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, db.PoolConfig{DSN: cfg.PostgresDSN, MaxConns: cfg.PostgresMaxConn, AppName: "seed"})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if _, err := db.NewMigrator(pool, log).Up(ctx); err != nil {
		return err
	}

	gofakeit.Seed(time.Now().UnixNano())

	users, err := seedUsers(ctx, pool, log, userCount)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	if err := seedPractitioners(ctx, pool, log, users[:practitionerCount]); err != nil {
		return fmt.Errorf("seed practitioners: %w", err)
	}

	log.Info("seed complete",
		zap.Int("users", userCount),
		zap.Int("practitioners", practitionerCount),
	)
	return nil
}

// seedUsers inserts users whose external uid is seed-user-<n> so load tests
// can address them through the identity header.
func seedUsers(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger, count int) ([]uuid.UUID, error) {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			batch.Queue(`
				INSERT INTO users (id, external_uid, name, email, created_at)
				VALUES ($1, $2, $3, $4, now())
				ON CONFLICT (external_uid) DO NOTHING
			`, uuid.New(), externalUID(i), gofakeit.Name(), gofakeit.Email())
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return nil, err
		}
		log.Info("users seeded", zap.Int("done", end), zap.Int("total", count))
	}

	// Re-read ids so reruns pick up the rows that already existed.
	rows, err := pool.Query(ctx, `
		SELECT id FROM users WHERE external_uid LIKE 'seed-user-%'
		ORDER BY created_at, external_uid
		LIMIT $1
	`, count)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func seedPractitioners(ctx context.Context, pool *pgxpool.Pool, log *zap.Logger, owners []uuid.UUID) error {
	dir := directory.NewPgDirectory(pool)
	schedules := schedule.NewStore(schedule.NewPgRepository(pool), log)

	for _, owner := range owners {
		owned, err := dir.OwnedPractitionerIDs(ctx, owner)
		if err != nil {
			return err
		}
		if len(owned) > 0 {
			continue
		}

		p, err := dir.CreatePractitioner(ctx, directory.NewPractitioner{
			UserID:              owner,
			Name:                "Dr. " + gofakeit.LastName(),
			Email:               gofakeit.Email(),
			AppointmentTimeSlot: slotLengths[gofakeit.Number(0, len(slotLengths)-1)],
		})
		if err != nil {
			return err
		}
		if _, err := schedules.InjectDefaultSchedule(ctx, p.ID); err != nil {
			return err
		}
	}

	log.Info("practitioners seeded", zap.Int("count", len(owners)))
	return nil
}

func externalUID(n int) string {
	return "seed-user-" + strconv.Itoa(n)
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
