// Package storage declares the persistence contracts for the service.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
)

// Sentinel errors shared by all store implementations.
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrDuplicateLog   = errors.New("log already recorded for day")
)

// HabitFilter narrows and pages a habit listing.
type HabitFilter struct {
	Tag    string // empty matches all
	Offset int
	Limit  int
}

// UserStore persists user records.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id int64) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
}

// HabitStore persists habits. All reads and writes are scoped to the owning
// user so ownership checks cannot be bypassed.
type HabitStore interface {
	CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	GetHabit(ctx context.Context, id, userID int64) (habit.Habit, error)
	ListHabits(ctx context.Context, userID int64, f HabitFilter) ([]habit.Habit, int, error)
	UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error)
	DeleteHabit(ctx context.Context, id, userID int64) error
}

// LogStore persists habit completion logs.
type LogStore interface {
	CreateLog(ctx context.Context, l habit.Log) (habit.Log, error)
	GetLogByDate(ctx context.Context, habitID int64, day time.Time) (habit.Log, error)
	ListLogsSince(ctx context.Context, habitID int64, since time.Time) ([]habit.Log, error)
	ListCompletedLogs(ctx context.Context, habitID int64) ([]habit.Log, error)
	ListRecentLogs(ctx context.Context, habitID int64, limit int) ([]habit.Log, error)
}
