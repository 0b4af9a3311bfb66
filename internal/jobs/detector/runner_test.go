package detector

import (
	"os"
	"testing"
	"time"

	"watchtower/internal/config"
)

func TestRunner_SubmitTracksJobLifecycle(t *testing.T) {
	setupTestDB(t)

	now := time.Now()
	insertRequests(t, "9.9.9.9", "/api/items", now.Add(-10*time.Minute), 101)

	runner := NewRunner(testDetector)
	id := runner.Submit()
	if id == "" {
		t.Fatal("expected a job handle")
	}

	deadline := time.After(5 * time.Second)
	for {
		job, ok := runner.Job(id)
		if !ok {
			t.Fatal("submitted job must be retrievable")
		}
		if job.Status == JobDone {
			if job.FinishedAt.IsZero() {
				t.Fatal("finished job must carry a finish time")
			}
			if job.Summary.HighVolume != 1 {
				t.Fatalf("expected 1 high volume IP in job summary, got %+v", job.Summary)
			}
			return
		}

		select {
		case <-deadline:
			t.Fatal("detection job never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunner_UsesCurrentSettingsPerRun(t *testing.T) {
	// t.Chdir requires Go 1.24; do the equivalent by hand.
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(origDir) })
	if err := os.MkdirAll("data", 0o755); err != nil {
		t.Fatalf("create settings dir: %v", err)
	}

	orig := config.GetConfig()
	t.Cleanup(func() { config.SetConfig(orig) })

	setupTestDB(t)

	now := time.Now()
	insertRequests(t, "9.9.9.9", "/api/items", now.Add(-10*time.Minute), 6)

	runner := NewRunner(FromConfig)

	// Lowering the threshold after the runner exists must affect the next run.
	updated := orig
	updated.Detection.HighVolumeThreshold = 5
	config.SetConfig(updated)

	id := runner.Submit()

	deadline := time.After(5 * time.Second)
	for {
		job, ok := runner.Job(id)
		if !ok {
			t.Fatal("submitted job must be retrievable")
		}
		if job.Status == JobDone {
			if job.Summary.HighVolume != 1 {
				t.Fatalf("run must pick up the lowered threshold, got %+v", job.Summary)
			}
			return
		}

		select {
		case <-deadline:
			t.Fatal("detection job never finished")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRunner_UnknownJob(t *testing.T) {
	runner := NewRunner(testDetector)
	if _, ok := runner.Job("no-such-job"); ok {
		t.Fatal("unknown handle must not resolve")
	}
}
