package server

import (
	"net/http"

	json "github.com/goccy/go-json"

	"watchtower/internal/blocklist"
	"watchtower/internal/database"

	"github.com/gorilla/mux"
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"geolocation": s.stats.Snapshot(),
	})
}

func (s *Server) triggerDetection(w http.ResponseWriter, _ *http.Request) {
	id := s.runner.Submit()
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) getDetectionJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	job, ok := s.runner.Job(id)
	if !ok {
		writeError(w, "unknown job id", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) listSuspicious(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""

	rows, err := database.ListSuspiciousIPs(r.Context(), activeOnly)
	if err != nil {
		writeError(w, "failed to list suspicious IPs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) listBlocked(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""

	rows, err := database.ListBlockedIPs(r.Context(), activeOnly)
	if err != nil {
		writeError(w, "failed to list blocked IPs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type blockRequest struct {
	IPAddresses []string `json:"ip_addresses"`
	Reason      string   `json:"reason"`
}

type blockResult struct {
	IP      string `json:"ip"`
	Outcome string `json:"outcome"`
}

func (s *Server) blockIPs(w http.ResponseWriter, r *http.Request) {
	s.applyBlocklist(w, r, false)
}

func (s *Server) unblockIPs(w http.ResponseWriter, r *http.Request) {
	s.applyBlocklist(w, r, true)
}

func (s *Server) applyBlocklist(w http.ResponseWriter, r *http.Request, deactivate bool) {
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IPAddresses) == 0 {
		writeError(w, "no IP addresses provided", http.StatusBadRequest)
		return
	}

	results := blocklist.Apply(r.Context(), req.IPAddresses, req.Reason, deactivate)

	payload := make([]blockResult, 0, len(results))
	for _, res := range results {
		payload = append(payload, blockResult{IP: res.IP, Outcome: res.Outcome.String()})
	}
	writeJSON(w, http.StatusOK, payload)
}
