// Package habits implements owner-scoped habit CRUD with pagination.
package habits

import (
	"context"
	"errors"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/pkg/logger"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	recentLogs   = 7
)

var (
	// ErrMissingFields indicates a create without title or frequency.
	ErrMissingFields = errors.New("title and frequency are required")
	// ErrBadFrequency indicates a frequency outside DAILY/WEEKLY.
	ErrBadFrequency = errors.New("frequency must be DAILY or WEEKLY")
	// ErrBadPagination indicates a non-positive page or limit.
	ErrBadPagination = errors.New("page and limit must be positive")
	// ErrNotFound covers both a missing habit and one owned by another
	// user, so existence never leaks across accounts.
	ErrNotFound = errors.New("habit not found")
)

// Optional distinguishes a field that was omitted from one explicitly set,
// including set to null.
type Optional struct {
	Set   bool
	Value *string
}

// CreateInput holds the fields for a new habit.
type CreateInput struct {
	Title        string
	Description  *string
	Frequency    string
	Tags         []string
	ReminderTime *string
}

// UpdateInput holds a partial update. Nil pointer fields and unset Optionals
// leave the stored value untouched.
type UpdateInput struct {
	Title        *string
	Frequency    *string
	Tags         []string // nil means omitted
	Description  Optional
	ReminderTime Optional
}

// Pagination describes one page of a listing.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalCount      int  `json:"totalCount"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Service manages habits for their owners.
type Service struct {
	habits storage.HabitStore
	logs   storage.LogStore
	log    *logger.Logger
}

// New creates a habit service.
func New(habits storage.HabitStore, logs storage.LogStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("habits")
	}
	return &Service{habits: habits, logs: logs, log: log}
}

// Create stores a new habit owned by userID.
func (s *Service) Create(ctx context.Context, userID int64, in CreateInput) (habit.Habit, error) {
	if in.Title == "" || in.Frequency == "" {
		return habit.Habit{}, ErrMissingFields
	}
	freq := habit.Frequency(in.Frequency)
	if !freq.Valid() {
		return habit.Habit{}, ErrBadFrequency
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	created, err := s.habits.CreateHabit(ctx, habit.Habit{
		UserID:       userID,
		Title:        in.Title,
		Description:  in.Description,
		Frequency:    freq,
		Tags:         tags,
		ReminderTime: in.ReminderTime,
	})
	if err != nil {
		return habit.Habit{}, err
	}

	s.log.WithFields(map[string]interface{}{
		"habit_id": created.ID,
		"user_id":  userID,
	}).Info("habit created")
	return created, nil
}

// List returns one page of the user's habits, newest first, each annotated
// with its most recent logs. Page and limit of zero take the defaults.
func (s *Service) List(ctx context.Context, userID int64, tag string, page, limit int) ([]habit.Habit, Pagination, error) {
	if page == 0 {
		page = defaultPage
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if page < 1 || limit < 1 {
		return nil, Pagination{}, ErrBadPagination
	}

	items, total, err := s.habits.ListHabits(ctx, userID, storage.HabitFilter{
		Tag:    tag,
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, Pagination{}, err
	}

	for i := range items {
		logs, err := s.logs.ListRecentLogs(ctx, items[i].ID, recentLogs)
		if err != nil {
			return nil, Pagination{}, err
		}
		items[i].Logs = logs
	}

	totalPages := (total + limit - 1) / limit
	return items, Pagination{
		CurrentPage:     page,
		PageSize:        limit,
		TotalCount:      total,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}, nil
}

// Get returns the habit with all of its logs. A habit owned by another user
// is reported as not found.
func (s *Service) Get(ctx context.Context, id, userID int64) (habit.Habit, error) {
	h, err := s.habits.GetHabit(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return habit.Habit{}, ErrNotFound
		}
		return habit.Habit{}, err
	}

	logs, err := s.logs.ListRecentLogs(ctx, h.ID, 0)
	if err != nil {
		return habit.Habit{}, err
	}
	h.Logs = logs
	return h, nil
}

// Update merges the supplied fields into the stored habit. Description and
// reminder time honor an explicit null.
func (s *Service) Update(ctx context.Context, id, userID int64, in UpdateInput) (habit.Habit, error) {
	h, err := s.habits.GetHabit(ctx, id, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return habit.Habit{}, ErrNotFound
		}
		return habit.Habit{}, err
	}

	if in.Title != nil && *in.Title != "" {
		h.Title = *in.Title
	}
	if in.Frequency != nil && *in.Frequency != "" {
		freq := habit.Frequency(*in.Frequency)
		if !freq.Valid() {
			return habit.Habit{}, ErrBadFrequency
		}
		h.Frequency = freq
	}
	if in.Tags != nil {
		h.Tags = in.Tags
	}
	if in.Description.Set {
		h.Description = in.Description.Value
	}
	if in.ReminderTime.Set {
		h.ReminderTime = in.ReminderTime.Value
	}

	updated, err := s.habits.UpdateHabit(ctx, h)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return habit.Habit{}, ErrNotFound
		}
		return habit.Habit{}, err
	}
	return updated, nil
}

// Delete removes the habit and, with it, its logs.
func (s *Service) Delete(ctx context.Context, id, userID int64) error {
	if err := s.habits.DeleteHabit(ctx, id, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.log.WithFields(map[string]interface{}{
		"habit_id": id,
		"user_id":  userID,
	}).Info("habit deleted")
	return nil
}
