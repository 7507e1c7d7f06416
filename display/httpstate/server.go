// Package httpstate exposes the latest session state over HTTP for browser front ends.
package httpstate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/RyanBlaney/sonido-tuner/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tuner/logging"
	"github.com/RyanBlaney/sonido-tuner/tuner"
)

// State is the payload of GET /api/state
type State struct {
	Status    string                  `json:"status"` // idle, listening or note
	SessionID string                  `json:"session_id,omitempty"`
	Note      *tuner.NoteDetail       `json:"note,omitempty"`
	Chord     *tonal.ChordMatchResult `json:"chord,omitempty"`
	Stability *tuner.Stability        `json:"stability,omitempty"` // Spread of recent readings, kept across silent frames
	UpdatedAt time.Time               `json:"updated_at"`
}

// Server is a tuner.Display that serves the most recent event
type Server struct {
	catalog []tonal.ChordFingerprint
	strings []tonal.GuitarString
	logger  logging.Logger

	mu    sync.RWMutex
	state State
}

// NewServer creates a server publishing the given chord catalog and reference strings
func NewServer(catalog []tonal.ChordFingerprint, tuning []tonal.GuitarString) *Server {
	return &Server{
		catalog: catalog,
		strings: tuning,
		logger: logging.WithFields(logging.Fields{
			"component": "httpstate",
		}),
		state: State{Status: tuner.EventIdle.String()},
	}
}

// Render implements tuner.Display
func (s *Server) Render(event tuner.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SessionID = event.SessionID
	s.state.UpdatedAt = event.Time

	switch event.Kind {
	case tuner.EventIdle:
		s.state = State{Status: event.Kind.String(), SessionID: event.SessionID, UpdatedAt: event.Time}
	case tuner.EventListening:
		s.state.Status = event.Kind.String()
		s.state.Note = nil
		s.state.Chord = nil
	case tuner.EventNote:
		s.state.Status = event.Kind.String()
		s.state.Note = event.Note
		if event.Note != nil {
			stability := event.Note.Stability
			s.state.Stability = &stability
		}
	case tuner.EventChord:
		if event.Chord != nil && event.Chord.Status != tonal.ChordTooFewSamples {
			s.state.Chord = event.Chord
		}
	}
}

// Snapshot returns the current state
func (s *Server) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Handler returns the CORS-enabled router
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/chords", s.handleChords).Methods(http.MethodGet)
	api.HandleFunc("/strings", s.handleStrings).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}).Handler(router)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving tuner state", logging.Fields{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Snapshot())
}

func (s *Server) handleChords(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.catalog)
}

func (s *Server) handleStrings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.strings)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(err, "failed to encode response")
	}
}
