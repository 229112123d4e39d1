// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
)

// Store implements the storage interfaces using a shared database handle.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.HabitStore = (*Store)(nil)
var _ storage.LogStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	u.CreatedAt = time.Now().UTC()

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, u.Name, u.Email, u.PasswordHash, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrDuplicateEmail
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	return scanUser(row)
}

func scanUser(row *sql.Row) (user.User, error) {
	var u user.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

// --- HabitStore -------------------------------------------------------------

func (s *Store) CreateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	h.CreatedAt = time.Now().UTC()
	if h.Tags == nil {
		h.Tags = []string{}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO habits (user_id, title, description, frequency, tags, reminder_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, h.UserID, h.Title, toNullString(h.Description), string(h.Frequency), pq.Array(h.Tags), toNullString(h.ReminderTime), h.CreatedAt).Scan(&h.ID)
	if err != nil {
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) GetHabit(ctx context.Context, id, userID int64) (habit.Habit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, frequency, tags, reminder_time, created_at
		FROM habits
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	h, err := scanHabit(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return habit.Habit{}, storage.ErrNotFound
		}
		return habit.Habit{}, err
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID int64, f storage.HabitFilter) ([]habit.Habit, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*)
		FROM habits
		WHERE user_id = $1 AND ($2 = '' OR $2 = ANY(tags))
	`, userID, f.Tag).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, frequency, tags, reminder_time, created_at
		FROM habits
		WHERE user_id = $1 AND ($2 = '' OR $2 = ANY(tags))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, userID, f.Tag, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []habit.Habit
	for rows.Next() {
		h, err := scanHabit(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, h)
	}
	return result, total, rows.Err()
}

func (s *Store) UpdateHabit(ctx context.Context, h habit.Habit) (habit.Habit, error) {
	if h.Tags == nil {
		h.Tags = []string{}
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE habits
		SET title = $3, description = $4, frequency = $5, tags = $6, reminder_time = $7
		WHERE id = $1 AND user_id = $2
	`, h.ID, h.UserID, h.Title, toNullString(h.Description), string(h.Frequency), pq.Array(h.Tags), toNullString(h.ReminderTime))
	if err != nil {
		return habit.Habit{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return habit.Habit{}, storage.ErrNotFound
	}
	return h, nil
}

func (s *Store) DeleteHabit(ctx context.Context, id, userID int64) error {
	// habit_logs rows go with the habit via ON DELETE CASCADE.
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM habits WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// --- LogStore ---------------------------------------------------------------

func (s *Store) CreateLog(ctx context.Context, l habit.Log) (habit.Log, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO habit_logs (habit_id, date, completed)
		VALUES ($1, $2, $3)
		RETURNING id
	`, l.HabitID, l.Date, l.Completed).Scan(&l.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return habit.Log{}, storage.ErrDuplicateLog
		}
		return habit.Log{}, err
	}
	return l, nil
}

func (s *Store) GetLogByDate(ctx context.Context, habitID int64, day time.Time) (habit.Log, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, habit_id, date, completed
		FROM habit_logs
		WHERE habit_id = $1 AND date = $2
	`, habitID, day)

	var l habit.Log
	if err := row.Scan(&l.ID, &l.HabitID, &l.Date, &l.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return habit.Log{}, storage.ErrNotFound
		}
		return habit.Log{}, err
	}
	return l, nil
}

func (s *Store) ListLogsSince(ctx context.Context, habitID int64, since time.Time) ([]habit.Log, error) {
	return s.queryLogs(ctx, `
		SELECT id, habit_id, date, completed
		FROM habit_logs
		WHERE habit_id = $1 AND date >= $2
		ORDER BY date DESC
	`, habitID, since)
}

func (s *Store) ListCompletedLogs(ctx context.Context, habitID int64) ([]habit.Log, error) {
	return s.queryLogs(ctx, `
		SELECT id, habit_id, date, completed
		FROM habit_logs
		WHERE habit_id = $1 AND completed
		ORDER BY date DESC
	`, habitID)
}

func (s *Store) ListRecentLogs(ctx context.Context, habitID int64, limit int) ([]habit.Log, error) {
	// limit <= 0 means no cap.
	if limit <= 0 {
		return s.queryLogs(ctx, `
			SELECT id, habit_id, date, completed
			FROM habit_logs
			WHERE habit_id = $1
			ORDER BY date DESC
		`, habitID)
	}
	return s.queryLogs(ctx, `
		SELECT id, habit_id, date, completed
		FROM habit_logs
		WHERE habit_id = $1
		ORDER BY date DESC
		LIMIT $2
	`, habitID, limit)
}

func (s *Store) queryLogs(ctx context.Context, query string, args ...interface{}) ([]habit.Log, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []habit.Log
	for rows.Next() {
		var l habit.Log
		if err := rows.Scan(&l.ID, &l.HabitID, &l.Date, &l.Completed); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// --- Helpers ----------------------------------------------------------------

func scanHabit(scan func(dest ...interface{}) error) (habit.Habit, error) {
	var (
		h            habit.Habit
		description  sql.NullString
		reminderTime sql.NullString
		tags         pq.StringArray
	)
	if err := scan(&h.ID, &h.UserID, &h.Title, &description, &h.Frequency, &tags, &reminderTime, &h.CreatedAt); err != nil {
		return habit.Habit{}, err
	}
	h.Tags = []string(tags)
	if h.Tags == nil {
		h.Tags = []string{}
	}
	h.Description = fromNullString(description)
	h.ReminderTime = fromNullString(reminderTime)
	return h, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
