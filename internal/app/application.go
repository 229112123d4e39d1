// Package app ties the domain services together.
package app

import (
	"github.com/habitloop/habitd/internal/app/services/habits"
	"github.com/habitloop/habitd/internal/app/services/tracking"
	"github.com/habitloop/habitd/internal/app/services/users"
	"github.com/habitloop/habitd/internal/app/storage"
	"github.com/habitloop/habitd/internal/app/storage/memory"
	"github.com/habitloop/habitd/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation.
type Stores struct {
	Users  storage.UserStore
	Habits storage.HabitStore
	Logs   storage.LogStore
}

// Application exposes the domain services.
type Application struct {
	log *logger.Logger

	Users    *users.Service
	Habits   *habits.Service
	Tracking *tracking.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Habits == nil {
		stores.Habits = mem
	}
	if stores.Logs == nil {
		stores.Logs = mem
	}

	return &Application{
		log:      log,
		Users:    users.New(stores.Users, log),
		Habits:   habits.New(stores.Habits, stores.Logs, log),
		Tracking: tracking.New(stores.Habits, stores.Logs, log),
	}
}
