// Package httpapi exposes the REST API over gorilla/mux.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	app "github.com/habitloop/habitd/internal/app"
	"github.com/habitloop/habitd/internal/app/auth"
	"github.com/habitloop/habitd/internal/app/domain/habit"
	"github.com/habitloop/habitd/internal/app/services/habits"
	"github.com/habitloop/habitd/internal/app/services/tracking"
	"github.com/habitloop/habitd/internal/app/services/users"
	"github.com/habitloop/habitd/internal/middleware"
	"github.com/habitloop/habitd/pkg/logger"
)

// Config holds optional per-route middleware. Nil entries are skipped, which
// is how test mode disables rate limiting.
type Config struct {
	AuthLimiter mux.MiddlewareFunc // wraps /auth
	APILimiter  mux.MiddlewareFunc // wraps /habits
}

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app    *app.Application
	tokens *auth.TokenService
	log    *logger.Logger
}

// NewHandler returns a router exposing the REST API.
func NewHandler(application *app.Application, tokens *auth.TokenService, cfg Config, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application, tokens: tokens, log: log}

	r := mux.NewRouter()
	r.Use(middleware.Metrics())

	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	authRouter := r.PathPrefix("/auth").Subrouter()
	if cfg.AuthLimiter != nil {
		authRouter.Use(cfg.AuthLimiter)
	}
	authRouter.HandleFunc("/register", h.register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", h.login).Methods(http.MethodPost)

	authMW := middleware.NewAuthMiddleware(tokens, log)
	habitsRouter := r.PathPrefix("/habits").Subrouter()
	if cfg.APILimiter != nil {
		habitsRouter.Use(cfg.APILimiter)
	}
	habitsRouter.Use(authMW.Handler)
	habitsRouter.HandleFunc("", h.createHabit).Methods(http.MethodPost)
	habitsRouter.HandleFunc("", h.listHabits).Methods(http.MethodGet)
	habitsRouter.HandleFunc("/{id}", h.getHabit).Methods(http.MethodGet)
	habitsRouter.HandleFunc("/{id}", h.updateHabit).Methods(http.MethodPut)
	habitsRouter.HandleFunc("/{id}", h.deleteHabit).Methods(http.MethodDelete)
	habitsRouter.HandleFunc("/{id}/track", h.trackHabit).Methods(http.MethodPost)
	habitsRouter.HandleFunc("/{id}/history", h.habitHistory).Methods(http.MethodGet)
	habitsRouter.HandleFunc("/{id}/streak", h.habitStreak).Methods(http.MethodGet)

	return r
}

// --- Liveness ---------------------------------------------------------------

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Habit tracker API is running"))
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"service":   "habitd",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// --- Auth -------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.app.Users.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrMissingFields):
			jsonError(w, "Please provide all fields", http.StatusBadRequest)
		case errors.Is(err, users.ErrEmailExists):
			jsonError(w, "Email already exists", http.StatusBadRequest)
		default:
			h.log.WithError(err).Error("register failed")
			jsonError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"userId":  created.ID,
	})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.app.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			jsonError(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.log.WithError(err).Error("login failed")
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	token, err := h.tokens.Issue(u)
	if err != nil {
		h.log.WithError(err).Error("token issue failed")
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":    u.ID,
			"name":  u.Name,
			"email": u.Email,
		},
	})
}

// --- Habit CRUD -------------------------------------------------------------

func (h *handler) createHabit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		jsonError(w, "Access denied. No token provided", http.StatusUnauthorized)
		return
	}

	var payload struct {
		Title        string   `json:"title"`
		Description  *string  `json:"description"`
		Frequency    string   `json:"frequency"`
		Tags         []string `json:"tags"`
		ReminderTime *string  `json:"reminderTime"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.app.Habits.Create(r.Context(), userID, habits.CreateInput{
		Title:        payload.Title,
		Description:  payload.Description,
		Frequency:    payload.Frequency,
		Tags:         payload.Tags,
		ReminderTime: payload.ReminderTime,
	})
	if err != nil {
		switch {
		case errors.Is(err, habits.ErrMissingFields):
			jsonError(w, "Title and frequency are required", http.StatusBadRequest)
		case errors.Is(err, habits.ErrBadFrequency):
			jsonError(w, "Frequency must be DAILY or WEEKLY", http.StatusBadRequest)
		default:
			h.log.WithError(err).Error("create habit failed")
			jsonError(w, "Failed to create habit", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Habit created successfully",
		"habit":   created,
	})
}

func (h *handler) listHabits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		jsonError(w, "Access denied. No token provided", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	page, errPage := parsePositive(q.Get("page"), 1)
	limit, errLimit := parsePositive(q.Get("limit"), 10)
	if errPage != nil || errLimit != nil {
		jsonError(w, "Page and limit must be positive numbers", http.StatusBadRequest)
		return
	}

	items, pagination, err := h.app.Habits.List(r.Context(), userID, q.Get("tag"), page, limit)
	if err != nil {
		if errors.Is(err, habits.ErrBadPagination) {
			jsonError(w, "Page and limit must be positive numbers", http.StatusBadRequest)
			return
		}
		h.log.WithError(err).Error("list habits failed")
		jsonError(w, "Failed to fetch habits", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []habit.Habit{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":       items,
		"pagination": pagination,
	})
}

func (h *handler) getHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	found, err := h.app.Habits.Get(r.Context(), habitID, userID)
	if err != nil {
		if errors.Is(err, habits.ErrNotFound) {
			jsonError(w, "Habit not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("get habit failed")
		jsonError(w, "Failed to fetch habit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"habit": found})
}

func (h *handler) updateHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	var payload struct {
		Title        *string        `json:"title"`
		Frequency    *string        `json:"frequency"`
		Tags         []string       `json:"tags"`
		Description  nullableString `json:"description"`
		ReminderTime nullableString `json:"reminderTime"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, err := h.app.Habits.Update(r.Context(), habitID, userID, habits.UpdateInput{
		Title:        payload.Title,
		Frequency:    payload.Frequency,
		Tags:         payload.Tags,
		Description:  payload.Description.optional(),
		ReminderTime: payload.ReminderTime.optional(),
	})
	if err != nil {
		switch {
		case errors.Is(err, habits.ErrNotFound):
			jsonError(w, "Habit not found", http.StatusNotFound)
		case errors.Is(err, habits.ErrBadFrequency):
			jsonError(w, "Frequency must be DAILY or WEEKLY", http.StatusBadRequest)
		default:
			h.log.WithError(err).Error("update habit failed")
			jsonError(w, "Failed to update habit", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Habit updated successfully",
		"habit":   updated,
	})
}

func (h *handler) deleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	if err := h.app.Habits.Delete(r.Context(), habitID, userID); err != nil {
		if errors.Is(err, habits.ErrNotFound) {
			jsonError(w, "Habit not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("delete habit failed")
		jsonError(w, "Failed to delete habit", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Habit deleted successfully",
	})
}

// --- Tracking ---------------------------------------------------------------

func (h *handler) trackHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	created, err := h.app.Tracking.Track(r.Context(), habitID, userID)
	if err != nil {
		switch {
		case errors.Is(err, tracking.ErrNotFound):
			jsonError(w, "Habit not found", http.StatusNotFound)
		case errors.Is(err, tracking.ErrAlreadyTracked):
			jsonError(w, "Habit already tracked for today", http.StatusBadRequest)
		default:
			h.log.WithError(err).Error("track habit failed")
			jsonError(w, "Failed to track habit", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Habit tracked successfully",
		"log":     created,
	})
}

func (h *handler) habitHistory(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	found, logs, err := h.app.Tracking.History(r.Context(), habitID, userID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			jsonError(w, "Habit not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("habit history failed")
		jsonError(w, "Failed to fetch habit history", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []habit.Log{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"habit": map[string]interface{}{
			"id":    found.ID,
			"title": found.Title,
		},
		"history": logs,
		"count":   len(logs),
	})
}

func (h *handler) habitStreak(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := h.habitRequest(w, r)
	if !ok {
		return
	}

	found, streak, err := h.app.Tracking.Streak(r.Context(), habitID, userID)
	if err != nil {
		if errors.Is(err, tracking.ErrNotFound) {
			jsonError(w, "Habit not found", http.StatusNotFound)
			return
		}
		h.log.WithError(err).Error("habit streak failed")
		jsonError(w, "Failed to calculate streak", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"habit": map[string]interface{}{
			"id":    found.ID,
			"title": found.Title,
		},
		"currentStreak": streak,
	})
}

// --- Helpers ----------------------------------------------------------------

// habitRequest extracts the caller identity and the {id} path variable. A
// non-numeric id reads as a habit that does not exist.
func (h *handler) habitRequest(w http.ResponseWriter, r *http.Request) (userID, habitID int64, ok bool) {
	userID, ok = middleware.UserID(r.Context())
	if !ok {
		jsonError(w, "Access denied. No token provided", http.StatusUnauthorized)
		return 0, 0, false
	}

	habitID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		jsonError(w, "Habit not found", http.StatusNotFound)
		return 0, 0, false
	}
	return userID, habitID, true
}

func parsePositive(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("must be a positive number")
	}
	return n, nil
}

// nullableString distinguishes an omitted JSON field from an explicit null.
type nullableString struct {
	set   bool
	value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.set = true
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	n.value = &s
	return nil
}

func (n nullableString) optional() habits.Optional {
	return habits.Optional{Set: n.set, Value: n.value}
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	return json.NewDecoder(body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
