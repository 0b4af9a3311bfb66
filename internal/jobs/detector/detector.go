// Package detector implements the batch job that scans recent request
// history and flags IPs showing abusive patterns.
package detector

import (
	"context"
	"time"

	"watchtower/internal/config"
	"watchtower/internal/database"
	"watchtower/internal/domain"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Summary counts the IPs each pass flagged (created or refreshed).
type Summary struct {
	HighVolume     int `json:"high_volume"`
	SensitivePaths int `json:"sensitive_paths"`
}

// Detector flags IPs whose recent traffic matches abuse heuristics. The two
// passes are independent: the same IP can hold one row per reason.
type Detector struct {
	Threshold int64
	Window    time.Duration
	Prefixes  []string
}

// FromConfig builds a detector from the current settings.
func FromConfig() *Detector {
	cfg := config.GetConfig()

	window := time.Duration(cfg.Detection.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Hour
	}

	return &Detector{
		Threshold: cfg.Detection.HighVolumeThreshold,
		Window:    window,
		Prefixes:  cfg.Detection.SensitivePaths,
	}
}

// DetectSuspiciousIPs runs both passes over the trailing window ending at
// now. Pass and per-candidate failures are logged and isolated; the job
// always returns whatever partial progress it made, and a retry converges
// because every write is an upsert keyed on (ip, reason).
func (d *Detector) DetectSuspiciousIPs(ctx context.Context, now time.Time) Summary {
	log.Info("Starting suspicious IP detection", "window", d.Window.String())

	since := now.Add(-d.Window)

	var summary Summary

	// Deliberately not errgroup.WithContext: one failing pass must not cancel
	// the other.
	var group errgroup.Group
	group.Go(func() error {
		summary.HighVolume = d.detectHighVolume(ctx, since, now)
		return nil
	})
	group.Go(func() error {
		summary.SensitivePaths = d.detectSensitivePaths(ctx, since, now)
		return nil
	})
	_ = group.Wait()

	log.Info("Suspicious IP detection finished",
		"high_volume", summary.HighVolume,
		"sensitive_paths", summary.SensitivePaths,
	)
	return summary
}

func (d *Detector) detectHighVolume(ctx context.Context, since, until time.Time) int {
	counts, err := database.CountRequestsByIP(ctx, since, until, d.Threshold)
	if err != nil {
		log.Error("Error detecting high volume IPs", "error", err)
		return 0
	}

	flagged := 0
	for _, candidate := range counts {
		blocked, err := database.IsIPBlocked(ctx, candidate.IPAddress)
		if err != nil {
			log.Error("Error checking blocklist for candidate", "ip", candidate.IPAddress, "error", err)
			continue
		}
		if blocked {
			log.Info("Skipping already blocked IP", "ip", candidate.IPAddress)
			continue
		}

		entry := &domain.SuspiciousIP{
			IPAddress:  candidate.IPAddress,
			Reason:     domain.ReasonHighVolume,
			DetectedAt: until,
			IsActive:   true,
			Details: domain.JSONMap{
				"request_count": candidate.RequestCount,
			},
		}
		if err := database.UpsertSuspiciousIP(ctx, entry); err != nil {
			log.Error("Error flagging high volume IP", "ip", candidate.IPAddress, "error", err)
			continue
		}

		log.Info("Flagged suspicious IP (high volume)",
			"ip", candidate.IPAddress,
			"request_count", candidate.RequestCount,
		)
		flagged++
	}

	return flagged
}

func (d *Detector) detectSensitivePaths(ctx context.Context, since, until time.Time) int {
	hits, err := database.CountSensitivePathHits(ctx, since, until, d.Prefixes)
	if err != nil {
		log.Error("Error detecting sensitive path access", "error", err)
		return 0
	}

	flagged := 0
	for _, candidate := range hits {
		blocked, err := database.IsIPBlocked(ctx, candidate.IPAddress)
		if err != nil {
			log.Error("Error checking blocklist for candidate", "ip", candidate.IPAddress, "error", err)
			continue
		}
		if blocked {
			log.Info("Skipping already blocked IP", "ip", candidate.IPAddress)
			continue
		}

		paths, err := database.ListSensitivePathsForIP(ctx, since, until, candidate.IPAddress, d.Prefixes)
		if err != nil {
			log.Error("Error listing sensitive paths for candidate", "ip", candidate.IPAddress, "error", err)
			continue
		}

		entry := &domain.SuspiciousIP{
			IPAddress:  candidate.IPAddress,
			Reason:     domain.ReasonSensitivePaths,
			DetectedAt: until,
			IsActive:   true,
			Details: domain.JSONMap{
				"sensitive_paths_accessed": paths,
				"total_sensitive_requests": candidate.RequestCount,
				"unique_sensitive_paths":   candidate.UniquePaths,
				"detection_time":           until.UTC().Format(time.RFC3339),
			},
		}
		if err := database.UpsertSuspiciousIP(ctx, entry); err != nil {
			log.Error("Error flagging sensitive path IP", "ip", candidate.IPAddress, "error", err)
			continue
		}

		log.Warn("Flagged suspicious IP (sensitive paths)",
			"ip", candidate.IPAddress,
			"total_requests", candidate.RequestCount,
			"unique_paths", candidate.UniquePaths,
		)
		flagged++
	}

	return flagged
}
