// Package server exposes the HTTP surface: the tracking middleware applied
// to every route, plus the small admin and detection API.
package server

import (
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"

	"watchtower/internal/geo"
	"watchtower/internal/jobs/detector"
	"watchtower/internal/tracking"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
)

// Server wires the tracking pipeline and the detection runner into HTTP
// handlers.
type Server struct {
	recorder *tracking.Recorder
	runner   *detector.Runner
	stats    *geo.Stats
}

func New(recorder *tracking.Recorder, runner *detector.Runner, stats *geo.Stats) *Server {
	return &Server{
		recorder: recorder,
		runner:   runner,
		stats:    stats,
	}
}

// Router builds the route table. Every route passes through the tracking
// middleware first.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.trackingMiddleware)

	router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.getStats).Methods(http.MethodGet)

	router.HandleFunc("/detect", s.triggerDetection).Methods(http.MethodPost)
	router.HandleFunc("/detect/{id}", s.getDetectionJob).Methods(http.MethodGet)
	router.HandleFunc("/suspicious", s.listSuspicious).Methods(http.MethodGet)

	router.HandleFunc("/blocked", s.listBlocked).Methods(http.MethodGet)
	router.HandleFunc("/block", s.blockIPs).Methods(http.MethodPost)
	router.HandleFunc("/unblock", s.unblockIPs).Methods(http.MethodPost)

	return router
}

// Run serves the API on the given port until the listener fails.
func (s *Server) Run(port int) error {
	server := http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Router(),
	}

	log.Infof("Starting watchtower API on port :%d", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
