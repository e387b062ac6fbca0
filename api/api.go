package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cameroncuttingedge/tic_tac_toe_online/room"
	"github.com/cameroncuttingedge/tic_tac_toe_online/websocket"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Deps is everything the router serves.
type Deps struct {
	Registry      *room.Registry
	Hub           *websocket.Hub
	Dispatcher    websocket.Dispatcher
	AllowedOrigin string
	Logger        zerolog.Logger
}

type api struct {
	registry *room.Registry
	logger   zerolog.Logger
}

// NewRouter returns the HTTP handler with CORS and panic recovery in front.
func NewRouter(d Deps) http.Handler {
	a := &api{registry: d.Registry, logger: d.Logger}

	r := mux.NewRouter()
	r.Use(a.logRequests)

	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{code}", a.roomState).Methods(http.MethodGet)
	r.HandleFunc("/ws", d.Hub.Handler(d.Dispatcher))

	origin := d.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{origin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{d.Logger}),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (a *api) roomState(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	rm, err := a.registry.Get(code)
	if errors.Is(err, room.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "NOT_FOUND"})
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("code", code).Msg("Failed to look up room")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "INTERNAL"})
		return
	}

	writeJSON(w, http.StatusOK, rm.PublicState())
}

// logRequests does not wrap the ResponseWriter so websocket hijacking keeps working.
func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		a.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type recoveryLogger struct {
	logger zerolog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
