package server

import (
	"net/http"

	"watchtower/internal/tracking"
)

const blockedResponseBody = "Access denied. Your IP address has been blocked."

// trackingMiddleware feeds every inbound request through the recorder
// pipeline and denies the ones from blocked addresses. Allowed and skipped
// requests proceed untouched.
func (s *Server) trackingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := tracking.RequestInfo{
			IP:        tracking.ClientIP(r.Header.Get("X-Forwarded-For"), r.RemoteAddr),
			Path:      r.URL.Path,
			Method:    r.Method,
			UserAgent: r.UserAgent(),
		}

		decision, _ := s.recorder.RecordRequest(r.Context(), info)
		if decision == tracking.DecisionBlocked {
			http.Error(w, blockedResponseBody, http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}
