package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"watchtower/internal/database"
	"watchtower/internal/domain"
	"watchtower/internal/geo"
	"watchtower/internal/jobs/detector"
	"watchtower/internal/tracking"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.Exec("PRAGMA busy_timeout = 5000")

	err = db.AutoMigrate(&domain.RequestLog{}, &domain.BlockedIP{}, &domain.SuspiciousIP{})
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
	})
}

type staticResolver struct{}

func (staticResolver) Resolve(context.Context, string) geo.Location {
	return geo.Location{Country: "Unknown", City: "Unknown"}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	setupTestDB(t)

	recorder := tracking.NewRecorder(
		database.BlockStore{},
		staticResolver{},
		database.RequestLogStore{},
		tracking.WithExcludedPaths([]string{"/health"}),
	)
	runner := detector.NewRunner(func() *detector.Detector {
		return &detector.Detector{
			Threshold: 100,
			Window:    time.Hour,
			Prefixes:  []string{"/admin/"},
		}
	})
	return New(recorder, runner, &geo.Stats{})
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "203.0.113.9:41000"
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The health probe is on the excluded list, so no log row is written.
	var count int64
	if err := database.DB.Model(&domain.RequestLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("health checks must not be logged, found %d rows", count)
	}
}

func TestTrackingMiddleware_LogsRequests(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var rows []domain.RequestLog
	if err := database.DB.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one log row, got %d", len(rows))
	}
	if rows[0].IPAddress != "203.0.113.9" || rows[0].Path != "/stats" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
}

func TestTrackingMiddleware_DeniesBlockedIPs(t *testing.T) {
	s := newTestServer(t)

	if _, err := database.UpsertBlockedIP(context.Background(), "203.0.113.9", "abuse"); err != nil {
		t.Fatalf("block: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/stats", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "has been blocked") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}

	var count int64
	if err := database.DB.Model(&domain.RequestLog{}).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 0 {
		t.Fatalf("blocked requests must not create log rows, found %d", count)
	}
}

func TestBlockAndUnblockEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/block", `{"ip_addresses":["9.9.9.9","bogus"],"reason":"manual"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var results []blockResult
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != "blocked" {
		t.Fatalf("expected blocked, got %q", results[0].Outcome)
	}
	if results[1].Outcome != "invalid IP address" {
		t.Fatalf("expected invalid outcome, got %q", results[1].Outcome)
	}

	rec = doRequest(t, s, http.MethodPost, "/unblock", `{"ip_addresses":["9.9.9.9"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &results); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if results[0].Outcome != "unblocked" {
		t.Fatalf("expected unblocked, got %q", results[0].Outcome)
	}
}

func TestBlockEndpoint_RejectsEmptyBatch(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/block", `{"ip_addresses":[]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doRequest(t, s, http.MethodPost, "/block", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDetectionEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/detect", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var submitted map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &submitted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id := submitted["job_id"]
	if id == "" {
		t.Fatal("expected a job id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rec = doRequest(t, s, http.MethodGet, "/detect/"+id, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var job detector.Job
		if err := json.Unmarshal(rec.Body.Bytes(), &job); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if job.Status == detector.JobDone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("detection job never finished")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rec = doRequest(t, s, http.MethodGet, "/detect/no-such-job", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job, got %d", rec.Code)
	}
}

func TestListSuspiciousEndpoint(t *testing.T) {
	s := newTestServer(t)

	entry := domain.SuspiciousIP{
		IPAddress:  "9.9.9.9",
		Reason:     domain.ReasonHighVolume,
		DetectedAt: time.Now(),
		IsActive:   true,
	}
	if err := database.UpsertSuspiciousIP(context.Background(), &entry); err != nil {
		t.Fatalf("seed row: %v", err)
	}
	if err := database.DB.Model(&domain.SuspiciousIP{}).
		Where("ip_address = ?", "9.9.9.9").
		Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate row: %v", err)
	}

	rec := doRequest(t, s, http.MethodGet, "/suspicious", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows []domain.SuspiciousIP
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("inactive rows must be hidden by default, got %d", len(rows))
	}

	rec = doRequest(t, s, http.MethodGet, "/suspicious?all=1", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the seeded row with ?all, got %d rows", len(rows))
	}
}
