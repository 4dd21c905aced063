package schedule

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling/internal/apperr"
)

// 2030-03-04 is a Monday.
func monday(hour, minute int) time.Time {
	return time.Date(2030, time.March, 4, hour, minute, 0, 0, time.UTC)
}

type memoryRepo struct {
	mu      sync.Mutex
	windows map[uuid.UUID][]Window
	listErr error
	saveErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{windows: make(map[uuid.UUID][]Window)}
}

func (m *memoryRepo) ReplaceForPractitioner(_ context.Context, practitionerID uuid.UUID, windows []Window) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	saved := make([]Window, len(windows))
	for i, w := range windows {
		w.ID = uuid.New()
		w.CreatedAt = time.Now()
		saved[i] = w
	}
	m.windows[practitionerID] = saved
	return saved, nil
}

func (m *memoryRepo) ListByDay(_ context.Context, practitionerID uuid.UUID, day Weekday) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Window
	for _, w := range m.windows[practitionerID] {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListByPractitioner(_ context.Context, practitionerID uuid.UUID) ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]Window(nil), m.windows[practitionerID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func window(day Weekday, start, end string) Window {
	s, err := ParseTimeOfDay(start)
	if err != nil {
		panic(err)
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		panic(err)
	}
	return Window{DayOfWeek: day, StartTime: s, EndTime: e}
}

func TestWeekday(t *testing.T) {
	assert.Equal(t, Sunday, WeekdayOf(time.Date(2030, time.March, 3, 12, 0, 0, 0, time.UTC), time.UTC))
	assert.Equal(t, Monday, WeekdayOf(monday(0, 15), time.UTC))
	assert.Equal(t, Saturday, FromTimeWeekday(time.Saturday))

	assert.Equal(t, Saturday, Sunday.Previous())
	assert.Equal(t, Sunday, Monday.Previous())
	assert.Equal(t, time.Wednesday, Wednesday.TimeWeekday())
	assert.Equal(t, "Friday", Friday.String())

	assert.False(t, Weekday(0).Valid())
	assert.False(t, Weekday(8).Valid())
}

func TestWeekdayOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)

	// 23:30 UTC on Sunday is already Monday at UTC+2.
	ts := time.Date(2030, time.March, 3, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, Sunday, WeekdayOf(ts, time.UTC))
	assert.Equal(t, Monday, WeekdayOf(ts, loc))
}

func TestTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, tod.Hour())
	assert.Equal(t, 30, tod.Minute())
	assert.Equal(t, "09:30", tod.String())

	withSeconds, err := ParseTimeOfDay("17:00:00")
	require.NoError(t, err)
	assert.Equal(t, NewTimeOfDay(17, 0), withSeconds)

	_, err = ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Equal(t, 180, NewTimeOfDay(22, 0).MinutesUntil(NewTimeOfDay(1, 0)))
	assert.Equal(t, 480, NewTimeOfDay(9, 0).MinutesUntil(NewTimeOfDay(17, 0)))

	assert.Equal(t, monday(9, 30), tod.On(monday(20, 0), time.UTC))

	var decoded TimeOfDay
	require.NoError(t, decoded.UnmarshalText([]byte("07:05")))
	text, err := decoded.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "07:05", string(text))
}

func TestWindowOn(t *testing.T) {
	t.Run("same day window", func(t *testing.T) {
		iv := window(Monday, "09:00", "17:00").On(monday(12, 0), time.UTC)
		assert.Equal(t, monday(9, 0), iv.Start)
		assert.Equal(t, monday(17, 0), iv.End)
	})

	t.Run("overnight window ends next day", func(t *testing.T) {
		sunday := time.Date(2030, time.March, 3, 0, 0, 0, 0, time.UTC)
		iv := window(Sunday, "22:00", "01:00").On(sunday, time.UTC)
		assert.Equal(t, time.Date(2030, time.March, 3, 22, 0, 0, 0, time.UTC), iv.Start)
		assert.Equal(t, monday(1, 0), iv.End)
	})
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, window(Monday, "09:00", "17:00").Validate())
	assert.NoError(t, window(Sunday, "22:00", "02:00").Validate())
	assert.ErrorIs(t, window(Weekday(0), "09:00", "17:00").Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, window(Weekday(8), "09:00", "17:00").Validate(), ErrInvalidWindow)
	assert.ErrorIs(t, window(Monday, "09:00", "09:00").Validate(), ErrInvalidWindow)
}

func TestCheckNoOverlap(t *testing.T) {
	tests := []struct {
		name    string
		windows []Window
		wantErr bool
	}{
		{
			name:    "overlapping monday windows",
			windows: []Window{window(Monday, "09:00", "12:00"), window(Monday, "11:00", "14:00")},
			wantErr: true,
		},
		{
			name:    "touching windows are allowed",
			windows: []Window{window(Monday, "09:00", "12:00"), window(Monday, "12:00", "14:00")},
		},
		{
			name:    "same hours on different days",
			windows: []Window{window(Monday, "09:00", "12:00"), window(Tuesday, "09:00", "12:00")},
		},
		{
			name: "non adjacent pair is still checked",
			windows: []Window{
				window(Monday, "08:00", "10:00"),
				window(Tuesday, "08:00", "10:00"),
				window(Monday, "13:00", "15:00"),
				window(Monday, "09:30", "11:00"),
			},
			wantErr: true,
		},
		{
			name:    "overnight window collides with late evening window",
			windows: []Window{window(Friday, "22:00", "02:00"), window(Friday, "23:00", "23:30")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckNoOverlap(tt.windows)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverlappingWindows)
				assert.ErrorIs(t, err, apperr.ErrConflict)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpand(t *testing.T) {
	pid := uuid.New()

	windows, err := Expand(pid, []Definition{DefaultDefinition})
	require.NoError(t, err)
	require.Len(t, windows, 5)
	for _, w := range windows {
		assert.Equal(t, pid, w.PractitionerID)
		assert.Equal(t, "07:00", w.StartTime.String())
		assert.Equal(t, "15:00", w.EndTime.String())
	}

	_, err = Expand(pid, []Definition{{DaysOfWeek: []Weekday{9}, StartTime: 60, EndTime: 120}})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = Expand(pid, []Definition{{StartTime: 60, EndTime: 120}})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	pid := uuid.New()

	t.Run("inject default replaces previous windows", func(t *testing.T) {
		repo := newMemoryRepo()
		store := NewStore(repo, zap.NewNop())
		_, err := store.ReplaceCurrentSchedules(ctx, pid, []Window{window(Sunday, "10:00", "11:00")})
		require.NoError(t, err)

		saved, err := store.InjectDefaultSchedule(ctx, pid)
		require.NoError(t, err)
		assert.Len(t, saved, 5)

		sunday, err := store.GetSchedulesForDayOfWeek(ctx, pid, Sunday)
		require.NoError(t, err)
		assert.Empty(t, sunday)
		assert.NotNil(t, sunday)
	})

	t.Run("overlapping replacement leaves prior schedule untouched", func(t *testing.T) {
		repo := newMemoryRepo()
		store := NewStore(repo, zap.NewNop())
		prior, err := store.ReplaceCurrentSchedules(ctx, pid, []Window{window(Monday, "08:00", "16:00")})
		require.NoError(t, err)

		_, err = store.ReplaceCurrentSchedules(ctx, pid, []Window{
			window(Monday, "09:00", "12:00"),
			window(Monday, "11:00", "14:00"),
		})
		require.ErrorIs(t, err, ErrOverlappingWindows)

		current, err := store.GetWeeklySchedule(ctx, pid)
		require.NoError(t, err)
		assert.Equal(t, prior, current)
	})

	t.Run("invalid window rejected before storage", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.saveErr = errors.New("must not be called")
		store := NewStore(repo, zap.NewNop())

		_, err := store.ReplaceCurrentSchedules(ctx, pid, []Window{window(Weekday(8), "09:00", "10:00")})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("storage failure on replace is infrastructure", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.saveErr = errors.New("tx aborted")
		store := NewStore(repo, zap.NewNop())

		_, err := store.ReplaceCurrentSchedules(ctx, pid, []Window{window(Monday, "09:00", "10:00")})
		assert.ErrorIs(t, err, apperr.ErrInfrastructure)
	})

	t.Run("day lookup failure is surfaced", func(t *testing.T) {
		repo := newMemoryRepo()
		repo.listErr = errors.New("connection reset")
		store := NewStore(repo, zap.NewNop())

		windows, err := store.GetSchedulesForDayOfWeek(ctx, pid, Monday)
		assert.Nil(t, windows)
		assert.ErrorIs(t, err, apperr.ErrInfrastructure)
	})

	t.Run("day out of range", func(t *testing.T) {
		store := NewStore(newMemoryRepo(), zap.NewNop())
		_, err := store.GetSchedulesForDayOfWeek(ctx, pid, Weekday(0))
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})
}

func newMatcherWith(t *testing.T, pid uuid.UUID, windows ...Window) (*Matcher, *memoryRepo) {
	t.Helper()
	repo := newMemoryRepo()
	store := NewStore(repo, zap.NewNop())
	if len(windows) > 0 {
		_, err := store.ReplaceCurrentSchedules(context.Background(), pid, windows)
		require.NoError(t, err)
	}
	return NewMatcher(store, time.UTC), repo
}

func TestMatcherFits(t *testing.T) {
	ctx := context.Background()
	pid := uuid.New()

	t.Run("inside a monday window", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Monday, "09:00", "17:00"))
		assert.NoError(t, m.Fits(ctx, pid, monday(10, 0), monday(10, 30)))
	})

	t.Run("touching both window boundaries", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Monday, "09:00", "17:00"))
		assert.NoError(t, m.Fits(ctx, pid, monday(9, 0), monday(9, 30)))
		assert.NoError(t, m.Fits(ctx, pid, monday(16, 30), monday(17, 0)))
	})

	t.Run("straddling the window end is rejected", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Monday, "09:00", "17:00"), window(Sunday, "09:00", "17:00"))
		err := m.Fits(ctx, pid, monday(16, 45), monday(17, 15))
		assert.ErrorIs(t, err, ErrOutsideSchedule)
	})

	t.Run("second window of the same day", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Monday, "08:00", "10:00"), window(Monday, "13:00", "18:00"))
		assert.NoError(t, m.Fits(ctx, pid, monday(14, 0), monday(14, 30)))
	})

	t.Run("just after midnight fits previous day overnight window", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Sunday, "22:00", "01:00"))
		assert.NoError(t, m.Fits(ctx, pid, monday(0, 15), monday(0, 45)))
	})

	t.Run("window ending before midnight does not reach into the next day", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Sunday, "22:00", "23:59"))
		err := m.Fits(ctx, pid, monday(0, 15), monday(0, 45))
		assert.ErrorIs(t, err, ErrOutsideSchedule)
	})

	t.Run("saturday is the day before sunday", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Saturday, "23:00", "02:00"))
		sunday := time.Date(2030, time.March, 3, 0, 30, 0, 0, time.UTC)
		assert.NoError(t, m.Fits(ctx, pid, sunday, sunday.Add(30*time.Minute)))
	})

	t.Run("previous day without windows reports missing configuration", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Wednesday, "09:00", "17:00"))
		err := m.Fits(ctx, pid, monday(10, 0), monday(10, 30))
		assert.ErrorIs(t, err, ErrNoScheduleForDay)
		assert.NotErrorIs(t, err, ErrOutsideSchedule)
	})

	t.Run("previous day with windows reports non fit", func(t *testing.T) {
		m, _ := newMatcherWith(t, pid, window(Sunday, "09:00", "17:00"))
		err := m.Fits(ctx, pid, monday(10, 0), monday(10, 30))
		assert.ErrorIs(t, err, ErrOutsideSchedule)
		assert.NotErrorIs(t, err, ErrNoScheduleForDay)
	})

	t.Run("lookup failure is not a non fit", func(t *testing.T) {
		m, repo := newMatcherWith(t, pid, window(Monday, "09:00", "17:00"))
		repo.listErr = errors.New("db down")
		err := m.Fits(ctx, pid, monday(10, 0), monday(10, 30))
		assert.ErrorIs(t, err, apperr.ErrInfrastructure)
		assert.NotErrorIs(t, err, ErrOutsideSchedule)
	})

	t.Run("windows are read in the configured zone", func(t *testing.T) {
		loc := time.FixedZone("UTC+2", 2*60*60)
		repo := newMemoryRepo()
		store := NewStore(repo, zap.NewNop())
		_, err := store.ReplaceCurrentSchedules(ctx, pid, []Window{window(Monday, "09:00", "17:00")})
		require.NoError(t, err)
		m := NewMatcher(store, loc)

		// 07:30 UTC is 09:30 at UTC+2.
		assert.NoError(t, m.Fits(ctx, pid, monday(7, 30), monday(8, 0)))
	})
}
