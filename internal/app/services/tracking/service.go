// Package tracking records daily habit completions and derives history and
// streaks from them.
package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

const historyDays = 7

var (
	// ErrNotFound covers both a missing habit and one owned by another user.
	ErrNotFound = errors.New("habit not found")
	// ErrAlreadyTracked indicates a second completion for the same
	// calendar day.
	ErrAlreadyTracked = errors.New("habit already tracked for today")
)

// Service records and reads completions.
type Service struct {
	habits storage.HabitStore
	logs   storage.LogStore
	log    *logger.Logger
	now    func() time.Time
}

// New creates a tracking service.
func New(habits storage.HabitStore, logs storage.LogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("tracking")
	}
	return &Service{habits: habits, logs: logs, log: log, now: time.Now}
}

// WithClock replaces the service's clock. Intended for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Track records a completion for today. It is an idempotency guard, not an
// upsert: a second call on the same calendar day fails.
func (s *Service) Track(ctx context.Context, habitID, userID int64) (habit.Log, error) {
	if _, err := s.getOwned(ctx, habitID, userID); err != nil {
		return habit.Log{}, err
	}

	today := habit.Midnight(s.now())

	// Pre-check for the friendly common path; the unique constraint on
	// (habit_id, date) is the source of truth under races.
	if _, err := s.logs.GetLogByDate(ctx, habitID, today); err == nil {
		return habit.Log{}, ErrAlreadyTracked
	} else if !errors.Is(err, storage.ErrNotFound) {
		return habit.Log{}, err
	}

	created, err := s.logs.CreateLog(ctx, habit.Log{
		HabitID:   habitID,
		Date:      today,
		Completed: true,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateLog) {
			return habit.Log{}, ErrAlreadyTracked
		}
		return habit.Log{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"habit_id": habitID,
		"date":     today.Format("2006-01-02"),
	}).Info("habit tracked")
	return created, nil
}

// History returns the habit and its logs from the last seven days, newest
// first.
func (s *Service) History(ctx context.Context, habitID, userID int64) (habit.Habit, []habit.Log, error) {
	h, err := s.getOwned(ctx, habitID, userID)
	if err != nil {
		return habit.Habit{}, nil, err
	}

	since := habit.Midnight(s.now().AddDate(0, 0, -historyDays))
	logs, err := s.logs.ListLogsSince(ctx, habitID, since)
	if err != nil {
		return habit.Habit{}, nil, err
	}
	return h, logs, nil
}

// Streak returns the habit and the current run of consecutive completed
// days ending today. A missing log for today caps the streak at zero.
func (s *Service) Streak(ctx context.Context, habitID, userID int64) (habit.Habit, int, error) {
	h, err := s.getOwned(ctx, habitID, userID)
	if err != nil {
		return habit.Habit{}, 0, err
	}

	logs, err := s.logs.ListCompletedLogs(ctx, habitID)
	if err != nil {
		return habit.Habit{}, 0, err
	}

	today := habit.Midnight(s.now())
	streak := 0
	for i, l := range logs {
		expected := today.AddDate(0, 0, -i)
		if habit.Midnight(l.Date.In(today.Location())).Equal(expected) {
			streak++
			continue
		}
		break
	}
	return h, streak, nil
}

func (s *Service) getOwned(ctx context.Context, habitID, userID int64) (habit.Habit, error) {
	h, err := s.habits.GetHabit(ctx, habitID, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return habit.Habit{}, ErrNotFound
		}
		return habit.Habit{}, err
	}
	return h, nil
}
