package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
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

// The simulator races many users for the same start time on one practitioner
// and then checks the database for double bookings.

type SimConfig struct {
	APIBaseURL string
	Rounds     int
	Contenders int
	UserLimit  int
	Virtual    bool
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Rejected  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	case status == http.StatusUnprocessableEntity:
		atomic.AddInt64(&om.Rejected, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, lo, hi, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	n := len(latencies)
	return sum / time.Duration(n), latencies[0], latencies[n-1],
		latencies[min(n*50/100, n-1)], latencies[min(n*95/100, n-1)]
}

type target struct {
	practitioner directory.Practitioner
}

type Simulator struct {
	config SimConfig
	client *http.Client
	target target
	users  []string
	log    *zap.Logger

	metrics     OperationMetrics
	cleanRounds int64
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	baseCfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(baseCfg.Env, baseCfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cfg := SimConfig{
		APIBaseURL: getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Rounds:     getInt("SIM_ROUNDS", 20),
		Contenders: getInt("SIM_CONTENDERS", 25),
		UserLimit:  getInt("SIM_USER_LIMIT", 500),
		Virtual:    os.Getenv("SIM_VIRTUAL") == "true",
	}
	if cfg.Rounds <= 0 || cfg.Contenders <= 1 {
		return fmt.Errorf("SIM_ROUNDS must be > 0 and SIM_CONTENDERS > 1")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, db.PoolConfig{DSN: baseCfg.PostgresDSN, MaxConns: baseCfg.PostgresMaxConn, AppName: "simulate"})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	tgt, users, err := loadData(ctx, pool, cfg.UserLimit)
	if err != nil {
		return err
	}

	matcher := schedule.NewMatcher(schedule.NewStore(schedule.NewPgRepository(pool), log), baseCfg.ScheduleLocation)
	starts, err := freeStarts(ctx, matcher, tgt.practitioner, cfg.Rounds)
	if err != nil {
		return err
	}

	cfg.Rounds = len(starts)

	log.Info("simulation starting",
		zap.Stringer("practitioner", tgt.practitioner.ID),
		zap.Int("rounds", len(starts)),
		zap.Int("contenders", cfg.Contenders),
		zap.Int("users", len(users)),
	)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		target: tgt,
		users:  users,
		log:    log,
	}

	began := time.Now()
	for i, start := range starts {
		sim.round(context.Background(), i, start)
	}

	overlaps, err := countOverlaps(context.Background(), pool, tgt.practitioner.ID)
	if err != nil {
		return err
	}

	sim.PrintReport(time.Since(began), overlaps)
	if overlaps > 0 {
		return fmt.Errorf("found %d overlapping confirmed appointments", overlaps)
	}
	return nil
}

// loadData picks the first practitioner and a pool of users who will compete
// for its calendar.
func loadData(ctx context.Context, pool *pgxpool.Pool, limit int) (target, []string, error) {
	var t target
	err := pool.QueryRow(ctx, `
		SELECT id, user_id, name, email, appointment_time_slot, created_at
		FROM practitioners
		ORDER BY created_at
		LIMIT 1
	`).Scan(&t.practitioner.ID, &t.practitioner.UserID, &t.practitioner.Name, &t.practitioner.Email,
		&t.practitioner.AppointmentTimeSlot, &t.practitioner.CreatedAt)
	if err != nil {
		return target{}, nil, fmt.Errorf("load practitioner (run seed first): %w", err)
	}

	rows, err := pool.Query(ctx, `
		SELECT external_uid FROM users WHERE id <> $1 LIMIT $2
	`, t.practitioner.UserID, limit)
	if err != nil {
		return target{}, nil, fmt.Errorf("load users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return target{}, nil, fmt.Errorf("load users: %w", err)
	}
	if len(users) < 2 {
		return target{}, nil, fmt.Errorf("need at least 2 users, found %d", len(users))
	}
	return t, users, nil
}

// freeStarts walks forward from tomorrow in slot steps and keeps the start
// times that fit the practitioner's weekly schedule.
func freeStarts(ctx context.Context, m *schedule.Matcher, p directory.Practitioner, want int) ([]time.Time, error) {
	slot := time.Duration(p.AppointmentTimeSlot) * time.Minute
	cursor := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)
	limit := cursor.Add(28 * 24 * time.Hour)

	var starts []time.Time
	for ; cursor.Before(limit) && len(starts) < want; cursor = cursor.Add(slot) {
		if err := m.Fits(ctx, p.ID, cursor, cursor.Add(slot)); err == nil {
			starts = append(starts, cursor)
		}
	}
	if len(starts) == 0 {
		return nil, fmt.Errorf("practitioner %s has no bookable time in the next four weeks", p.ID)
	}
	return starts, nil
}

// round fires every contender at the same start time at once.
func (s *Simulator) round(ctx context.Context, n int, start time.Time) {
	var (
		wg      sync.WaitGroup
		gate    = make(chan struct{})
		created int64
	)

	for i := 0; i < s.config.Contenders; i++ {
		uid := s.users[(n*s.config.Contenders+i)%len(s.users)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			if s.book(ctx, uid, start) == http.StatusCreated {
				atomic.AddInt64(&created, 1)
			}
		}()
	}

	close(gate)
	wg.Wait()

	if created <= 1 {
		atomic.AddInt64(&s.cleanRounds, 1)
	}
	s.log.Debug("round complete", zap.Int("round", n), zap.Time("start", start), zap.Int64("created", created))
}

func (s *Simulator) book(ctx context.Context, uid string, start time.Time) int {
	body, _ := json.Marshal(map[string]any{
		"practitionerId": s.target.practitioner.ID.String(),
		"startTime":      start.Format(time.RFC3339),
		"isVirtual":      s.config.Virtual,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/appointments", bytes.NewReader(body))
	if err != nil {
		s.metrics.Record(0, 0)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-UID", uid)

	began := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(began)
	if err != nil {
		s.log.Warn("booking request failed", zap.Error(err))
		s.metrics.Record(latency, 0)
		return 0
	}
	defer resp.Body.Close()

	s.metrics.Record(latency, resp.StatusCode)
	return resp.StatusCode
}

func countOverlaps(ctx context.Context, pool *pgxpool.Pool, practitionerID uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.practitioner_id = b.practitioner_id
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
		WHERE a.practitioner_id = $1
		  AND a.status = 'confirmed'
		  AND b.status = 'confirmed'
	`, practitionerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count overlaps: %w", err)
	}
	return n, nil
}

func (s *Simulator) PrintReport(took time.Duration, overlaps int) {
	om := &s.metrics
	total := atomic.LoadInt64(&om.Total)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BOOKING RACE REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Practitioner: %s (%s, %d min slots)\n", s.target.practitioner.Name, s.target.practitioner.ID, s.target.practitioner.AppointmentTimeSlot)
	fmt.Printf("Rounds: %d  Contenders per round: %d  Took: %s\n", s.config.Rounds, s.config.Contenders, took.Round(time.Millisecond))
	fmt.Println()

	if total == 0 {
		fmt.Println("no requests were sent")
		return
	}

	pct := func(v int64) float64 { return float64(v) / float64(total) * 100 }
	fmt.Printf("Requests:  %d\n", total)
	fmt.Printf("  Created:   %d (%.1f%%)\n", om.Success, pct(om.Success))
	fmt.Printf("  Busy 409:  %d (%.1f%%)\n", om.Conflict, pct(om.Conflict))
	fmt.Printf("  Rejected:  %d (%.1f%%)\n", om.Rejected, pct(om.Rejected))
	fmt.Printf("  Errors:    %d (%.1f%%)\n", om.Error, pct(om.Error))

	avg, lo, hi, p50, p95 := om.Stats()
	fmt.Printf("Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), lo.Round(time.Millisecond), hi.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
	fmt.Printf("Rounds with at most one winner: %d/%d\n", s.cleanRounds, s.config.Rounds)
	fmt.Printf("Overlapping confirmed appointments: %d\n", overlaps)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
