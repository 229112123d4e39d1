package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/domain/user"
	"github.com/habitloop/habitd/internal/app/storage"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestCreateUser(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Alice", "alice@example.com", "hashed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	created, err := store.CreateUser(context.Background(), user.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.ID != 5 {
		t.Fatalf("id = %d, want 5", created.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	_, err := store.CreateUser(context.Background(), user.User{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: "hashed",
	})
	if !errors.Is(err, storage.ErrDuplicateEmail) {
		t.Fatalf("CreateUser = %v, want ErrDuplicateEmail", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, name, email, password_hash, created_at`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetUserByEmail = %v, want ErrNotFound", err)
	}
}

func TestGetHabitScopesToOwner(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`SELECT id, user_id, title, description, frequency, tags, reminder_time, created_at`).
		WithArgs(int64(3), int64(9)).
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetHabit(context.Background(), 3, 9)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetHabit = %v, want ErrNotFound", err)
	}
}

func TestGetHabitScansNullableColumns(t *testing.T) {
	store, mock := newMock(t)
	created := time.Now().UTC()

	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "description", "frequency", "tags", "reminder_time", "created_at"}).
		AddRow(int64(3), int64(9), "Read", nil, "DAILY", "{mind,books}", nil, created)
	mock.ExpectQuery(`SELECT id, user_id, title, description, frequency, tags, reminder_time, created_at`).
		WithArgs(int64(3), int64(9)).
		WillReturnRows(rows)

	h, err := store.GetHabit(context.Background(), 3, 9)
	if err != nil {
		t.Fatalf("GetHabit: %v", err)
	}
	if h.Description != nil || h.ReminderTime != nil {
		t.Fatalf("nullable columns not nil: %v %v", h.Description, h.ReminderTime)
	}
	if len(h.Tags) != 2 || h.Tags[0] != "mind" {
		t.Fatalf("tags = %v", h.Tags)
	}
	if h.Frequency != habit.Daily {
		t.Fatalf("frequency = %q", h.Frequency)
	}
}

func TestUpdateHabitNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`UPDATE habits`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.UpdateHabit(context.Background(), habit.Habit{ID: 3, UserID: 9, Title: "Read", Frequency: habit.Daily})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("UpdateHabit = %v, want ErrNotFound", err)
	}
}

func TestDeleteHabit(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM habits`).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.DeleteHabit(context.Background(), 3, 9); err != nil {
		t.Fatalf("DeleteHabit: %v", err)
	}

	mock.ExpectExec(`DELETE FROM habits`).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteHabit(context.Background(), 3, 9); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second DeleteHabit = %v, want ErrNotFound", err)
	}
}

func TestCreateLogDuplicateDay(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO habit_logs`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "habit_logs_habit_id_date_key"})

	_, err := store.CreateLog(context.Background(), habit.Log{HabitID: 3, Date: time.Now(), Completed: true})
	if !errors.Is(err, storage.ErrDuplicateLog) {
		t.Fatalf("CreateLog = %v, want ErrDuplicateLog", err)
	}
}

// Integration test, runs only when a database is provided.
func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := Apply(ctx, db); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	store := New(db)

	u, err := store.CreateUser(ctx, user.User{
		Name:         "Integration",
		Email:        "it-" + time.Now().Format("150405.000000000") + "@example.com",
		PasswordHash: "hashed",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	h, err := store.CreateHabit(ctx, habit.Habit{
		UserID:    u.ID,
		Title:     "Integration habit",
		Frequency: habit.Daily,
		Tags:      []string{"it"},
	})
	if err != nil {
		t.Fatalf("CreateHabit: %v", err)
	}

	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	if _, err := store.CreateLog(ctx, habit.Log{HabitID: h.ID, Date: day, Completed: true}); err != nil {
		t.Fatalf("CreateLog: %v", err)
	}
	if _, err := store.CreateLog(ctx, habit.Log{HabitID: h.ID, Date: day, Completed: true}); !errors.Is(err, storage.ErrDuplicateLog) {
		t.Fatalf("duplicate CreateLog = %v, want ErrDuplicateLog", err)
	}

	// Deleting the habit cascades to its logs.
	if err := store.DeleteHabit(ctx, h.ID, u.ID); err != nil {
		t.Fatalf("DeleteHabit: %v", err)
	}
	logs, err := store.ListRecentLogs(ctx, h.ID, 0)
	if err != nil {
		t.Fatalf("ListRecentLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("logs survived cascade delete: %d", len(logs))
	}
}
