package config

import (
	_ "embed"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"github.com/charmbracelet/log"
)

type Config struct {
	Tracking struct {
		// ExcludedPaths are prefixes whose requests are never logged, e.g. the
		// health check probed every few seconds.
		ExcludedPaths []string `json:"excluded_paths"`
		AuditLogPath  string   `json:"audit_log_path"`
	} `json:"tracking"`

	Geolocation struct {
		ProviderURL    string `json:"provider_url"`
		APIKey         string `json:"api_key,omitempty"`
		TimeoutSeconds uint32 `json:"timeout_seconds"`
		CacheTTLHours  uint32 `json:"cache_ttl_hours"`

		// LocalDatabase points at an optional GeoLite2 City mmdb consulted
		// before the HTTP provider. Empty disables the local lookup.
		LocalDatabase string `json:"local_database,omitempty"`
	} `json:"geolocation"`

	Detection struct {
		HighVolumeThreshold int64    `json:"high_volume_threshold"`
		WindowMinutes       uint32   `json:"window_minutes"`
		SensitivePaths      []string `json:"sensitive_paths"`
		DetectionTimer      Timer    `json:"detection_timer"`
	} `json:"detection"`

	Logging struct {
		Level      string `json:"level"`
		FilePath   string `json:"file_path,omitempty"`
		MaxSizeMB  int    `json:"max_size_mb"`
		MaxBackups int    `json:"max_backups"`
	} `json:"logging"`
}

type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex
)

func init() {
	cfg, err := parseConfig(defaultConfig)
	if err != nil {
		cfg = Config{}
	}
	configValue.Store(cfg)
}

// SettingsFilePath returns the on-disk location of the settings file, used by
// the reload watcher.
func SettingsFilePath() string {
	return settingsFilePath
}

func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			if err := os.MkdirAll("data", os.ModePerm); err != nil {
				log.Error("Error creating directory for settings file:", "error", err)
				return
			}

			if err := os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm); err != nil {
				log.Error("Error writing default settings file:", "error", err)
				return
			}

			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", "error", err)
			return
		}
	}

	newConfig, err := parseConfig(data)
	if err != nil {
		log.Error("Error unmarshalling settings file:", "error", err)
		return
	}

	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		log.Error("Error applying configuration from settings file:", "error", err)
		return
	}

	log.Debug("Settings file loaded successfully")
}

func SetConfig(newConfig Config) {
	if err := applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, source: "local"}); err != nil {
		log.Error("Error applying configuration update:", "error", err)
		return
	}

	payload, err := json.Marshal(newConfig)
	if err != nil {
		log.Error("Error serializing configuration for synchronization:", "error", err)
	} else if err := broadcastConfigUpdate(payload); err != nil {
		log.Error("Error broadcasting configuration update:", "error", err)
	}

	log.Debug("Configuration updated and written to file successfully")
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	cfg.Tracking.ExcludedPaths = NormalizePathPrefixes(cfg.Tracking.ExcludedPaths)
	cfg.Detection.SensitivePaths = NormalizePathPrefixes(cfg.Detection.SensitivePaths)

	return cfg, nil
}

type configUpdateOptions struct {
	persistToFile bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	SetBetweenTime()

	var errs []error

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			log.Error("Error marshalling new configuration:", "error", err)
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
			log.Error("Error writing new configuration to file:", "error", err)
			errs = append(errs, err)
		}
	}

	if opts.source != "" {
		log.Debug("Configuration applied", "source", opts.source)
	} else {
		log.Debug("Configuration applied")
	}

	return errors.Join(errs...)
}

func GetConfig() Config {
	return configValue.Load().(Config)
}
