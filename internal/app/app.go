// Package app wires configuration, storage, the geolocation resolver, and
// the HTTP surface into a running service.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"watchtower/internal/app/server"
	"watchtower/internal/config"
	"watchtower/internal/database"
	"watchtower/internal/geo"
	"watchtower/internal/jobs/detector"
	"watchtower/internal/support"
	"watchtower/internal/tracking"
)

// SetupCore loads the environment, the settings file, and the database. It
// is the shared bootstrap for the server and the one-shot CLI commands.
func SetupCore() error {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	config.ReadSettings()
	setupLogging(config.GetConfig())

	if _, err := database.SetupDB(); err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	config.SetBetweenTime()

	return nil
}

// Run boots the full service: core setup, geolocation stack, recorder,
// detection runner, settings watcher, and finally the HTTP server. Blocks
// until the server exits.
func Run(port int) error {
	if err := SetupCore(); err != nil {
		return err
	}

	cfg := config.GetConfig()

	stats := &geo.Stats{}
	resolver := buildResolver(cfg, stats)

	recorder, err := buildRecorder(cfg, resolver)
	if err != nil {
		return err
	}

	runner := detector.NewRunner(detector.FromConfig)

	ctx := context.Background()
	startDetectionSchedule(ctx, runner)
	go func() {
		if err := config.WatchSettings(ctx); err != nil && err != context.Canceled {
			log.Warn("Settings watcher stopped", "error", err)
		}
	}()

	return server.New(recorder, runner, stats).Run(port)
}

// startDetectionSchedule runs the periodic detection loop. With Redis
// available the loop runs under a leader lock so that in a multi-instance
// deployment only one instance scans per tick, and local settings changes
// propagate to the other instances.
func startDetectionSchedule(ctx context.Context, runner *detector.Runner) {
	client, err := support.GetRedisClient()
	if err != nil {
		log.Warn("Redis unavailable, running detection schedule standalone", "error", err)
		go runner.StartDetectionRoutine(ctx)
		return
	}

	config.EnableRedisSynchronization(ctx, client)

	go func() {
		err := support.RunWithLeader(ctx, "watchtower:detection:leader", support.DefaultLeadershipTTL, runner.StartDetectionRoutine)
		if err != nil && err != context.Canceled {
			log.Warn("Detection leadership loop stopped", "error", err)
		}
	}()
}

func setupLogging(cfg config.Config) {
	if level, err := log.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}

	if cfg.Logging.FilePath == "" {
		return
	}

	rotated := &lumberjack.Logger{
		Filename:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotated))
}

func buildResolver(cfg config.Config, stats *geo.Stats) *geo.Resolver {
	var cache geo.Cache
	if client, err := support.GetRedisClient(); err != nil {
		log.Warn("Redis unavailable, using in-process geolocation cache", "error", err)
		cache = geo.NewMemoryCache()
	} else {
		cache = geo.NewRedisCache(client)
	}

	var sources []geo.Provider
	if path := cfg.Geolocation.LocalDatabase; path != "" {
		if local, err := geo.OpenLocalDatabase(path); err != nil {
			log.Warn("Local geolocation database unavailable", "path", path, "error", err)
		} else {
			sources = append(sources, local)
		}
	}

	apiKey := support.GetEnv("IPINFO_API_KEY", cfg.Geolocation.APIKey)
	timeout := time.Duration(cfg.Geolocation.TimeoutSeconds) * time.Second
	sources = append(sources, geo.NewIPInfoProvider(cfg.Geolocation.ProviderURL, apiKey, timeout))

	ttl := time.Duration(cfg.Geolocation.CacheTTLHours) * time.Hour
	return geo.NewResolver(cache, stats, ttl, sources...)
}

func buildRecorder(cfg config.Config, resolver *geo.Resolver) (*tracking.Recorder, error) {
	opts := []tracking.RecorderOption{
		tracking.WithExcludedPaths(cfg.Tracking.ExcludedPaths),
	}

	if path := cfg.Tracking.AuditLogPath; path != "" {
		audit, err := tracking.NewAuditLog(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		opts = append(opts, tracking.WithAuditLog(audit))
	}

	return tracking.NewRecorder(
		database.BlockStore{},
		resolver,
		database.RequestLogStore{},
		opts...,
	), nil
}
