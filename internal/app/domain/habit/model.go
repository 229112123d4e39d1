// Package habit defines habits and their daily completion logs.
package habit

import "time"

// Frequency is how often a habit is meant to be performed.
type Frequency string

const (
	Daily  Frequency = "DAILY"
	Weekly Frequency = "WEEKLY"
)

// Valid reports whether f is one of the supported frequencies. Matching is
// case-sensitive.
func (f Frequency) Valid() bool {
	return f == Daily || f == Weekly
}

// Habit is a recurring activity owned by exactly one user.
type Habit struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Frequency    Frequency `json:"frequency"`
	Tags         []string  `json:"tags"`
	ReminderTime *string   `json:"reminderTime"`
	CreatedAt    time.Time `json:"createdAt"`

	// Logs is populated by read operations that annotate habits with
	// recent completions. It is not stored on the habit row.
	Logs []Log `json:"logs,omitempty"`
}

// Log records a completion for one calendar day. At most one log exists per
// (habit, day) pair.
type Log struct {
	ID        int64     `json:"id"`
	HabitID   int64     `json:"habitId"`
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// Midnight truncates t to the start of its calendar day, keeping t's
// location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
