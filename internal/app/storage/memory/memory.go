// Package memory provides an in-memory implementation of the storage
// interfaces. It is safe for concurrent use and is primarily intended for
// tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
)

// Store holds all records behind a single mutex.
type Store struct {
	mu           sync.RWMutex
	nextUserID   int64
	nextHabitID  int64
	nextLogID    int64
	users        map[int64]user.User
	usersByEmail map[string]int64
	habits       map[int64]habit.Habit
	logs         map[int64][]habit.Log // keyed by habit id
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.HabitStore = (*Store)(nil)
var _ storage.LogStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextUserID:   1,
		nextHabitID:  1,
		nextLogID:    1,
		users:        make(map[int64]user.User),
		usersByEmail: make(map[string]int64),
		habits:       make(map[int64]habit.Habit),
		logs:         make(map[int64][]habit.Log),
	}
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[u.Email]; exists {
		return user.User{}, storage.ErrDuplicateEmail
	}

	u.ID = s.nextUserID
	s.nextUserID++
	u.CreatedAt = time.Now()

	s.users[u.ID] = u
	s.usersByEmail[u.Email] = u.ID
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByEmail[email]
	if !ok {
		return user.User{}, storage.ErrNotFound
	}
	return s.users[id], nil
}

// HabitStore implementation ---------------------------------------------------

func (s *Store) CreateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h.ID = s.nextHabitID
	s.nextHabitID++
	h.CreatedAt = time.Now()
	h.Tags = cloneTags(h.Tags)
	h.Logs = nil

	s.habits[h.ID] = h
	return cloneHabit(h), nil
}

func (s *Store) GetHabit(_ context.Context, id, userID int64) (habit.Habit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return habit.Habit{}, storage.ErrNotFound
	}
	return cloneHabit(h), nil
}

func (s *Store) ListHabits(_ context.Context, userID int64, f storage.HabitFilter) ([]habit.Habit, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []habit.Habit
	for _, h := range s.habits {
		if h.UserID != userID {
			continue
		}
		if f.Tag != "" && !hasTag(h.Tags, f.Tag) {
			continue
		}
		matched = append(matched, cloneHabit(h))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *Store) UpdateHabit(_ context.Context, h habit.Habit) (habit.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.habits[h.ID]
	if !ok || existing.UserID != h.UserID {
		return habit.Habit{}, storage.ErrNotFound
	}

	h.CreatedAt = existing.CreatedAt
	h.Tags = cloneTags(h.Tags)
	h.Logs = nil
	s.habits[h.ID] = h
	return cloneHabit(h), nil
}

func (s *Store) DeleteHabit(_ context.Context, id, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.habits[id]
	if !ok || h.UserID != userID {
		return storage.ErrNotFound
	}
	delete(s.habits, id)
	delete(s.logs, id) // logs share the habit's lifetime
	return nil
}

// LogStore implementation -----------------------------------------------------

func (s *Store) CreateLog(_ context.Context, l habit.Log) (habit.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.logs[l.HabitID] {
		if existing.Date.Equal(l.Date) {
			return habit.Log{}, storage.ErrDuplicateLog
		}
	}

	l.ID = s.nextLogID
	s.nextLogID++
	s.logs[l.HabitID] = append(s.logs[l.HabitID], l)
	return l, nil
}

func (s *Store) GetLogByDate(_ context.Context, habitID int64, day time.Time) (habit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.logs[habitID] {
		if l.Date.Equal(day) {
			return l, nil
		}
	}
	return habit.Log{}, storage.ErrNotFound
}

func (s *Store) ListLogsSince(_ context.Context, habitID int64, since time.Time) ([]habit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []habit.Log
	for _, l := range s.logs[habitID] {
		if !l.Date.Before(since) {
			result = append(result, l)
		}
	}
	sortByDateDesc(result)
	return result, nil
}

func (s *Store) ListCompletedLogs(_ context.Context, habitID int64) ([]habit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []habit.Log
	for _, l := range s.logs[habitID] {
		if l.Completed {
			result = append(result, l)
		}
	}
	sortByDateDesc(result)
	return result, nil
}

func (s *Store) ListRecentLogs(_ context.Context, habitID int64, limit int) ([]habit.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := append([]habit.Log(nil), s.logs[habitID]...)
	sortByDateDesc(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Helpers ---------------------------------------------------------------------

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func sortByDateDesc(logs []habit.Log) {
	sort.Slice(logs, func(i, j int) bool {
		return logs[i].Date.After(logs[j].Date)
	})
}

func cloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return append([]string(nil), tags...)
}

func cloneHabit(h habit.Habit) habit.Habit {
	h.Tags = cloneTags(h.Tags)
	if h.Description != nil {
		d := *h.Description
		h.Description = &d
	}
	if h.ReminderTime != nil {
		r := *h.ReminderTime
		h.ReminderTime = &r
	}
	return h
}
