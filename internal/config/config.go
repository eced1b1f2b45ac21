package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"8000"`
	Environment string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:""`

	// Storage
	DataDir string `envconfig:"DATA_DIR" default:"data"`

	// Camera
	CameraSource string `envconfig:"CAMERA_SOURCE" default:"device"`
	CameraIndex  int    `envconfig:"CAMERA_INDEX" default:"0"`
	CameraFiles  string `envconfig:"CAMERA_FILES" default:""`

	// Detection and matching
	HaarCascadePath string  `envconfig:"HAAR_CASCADE_PATH" default:"models/haarcascade_frontalface_default.xml"`
	MatchThreshold  float64 `envconfig:"MATCH_THRESHOLD" default:"85.0"`
	JPEGQuality     int     `envconfig:"JPEG_QUALITY" default:"80"`

	// Live loop
	CycleInterval   time.Duration `envconfig:"CYCLE_INTERVAL" default:"1s"`
	FrameRetryDelay time.Duration `envconfig:"FRAME_RETRY_DELAY" default:"200ms"`
	StopTimeout     time.Duration `envconfig:"STOP_TIMEOUT" default:"2s"`

	// Detection history (optional)
	DatabaseURL      string        `envconfig:"DATABASE_URL" default:""`
	HistoryRetention time.Duration `envconfig:"HISTORY_RETENTION" default:"720h"`
	PruneInterval    time.Duration `envconfig:"HISTORY_PRUNE_INTERVAL" default:"1h"`

	// Alert webhook (optional)
	WebhookURL    string        `envconfig:"WEBHOOK_URL" default:""`
	WebhookSecret string        `envconfig:"WEBHOOK_SECRET" default:""`
	AlertCooldown time.Duration `envconfig:"ALERT_COOLDOWN" default:"30s"`

	// Enrollment requests per IP per minute
	EnrollRateLimit int `envconfig:"ENROLL_RATE_LIMIT" default:"30"`

	// Telemetry simulator
	TelemetryInterval time.Duration `envconfig:"TELEMETRY_INTERVAL" default:"3s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MatchThreshold <= 0 {
		return fmt.Errorf("MATCH_THRESHOLD must be positive, got %v", c.MatchThreshold)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("JPEG_QUALITY must be in 1..100, got %d", c.JPEGQuality)
	}
	switch c.CameraSource {
	case "device":
	case "file":
		if c.CameraFiles == "" {
			return fmt.Errorf("CAMERA_FILES is required when CAMERA_SOURCE=file")
		}
	default:
		return fmt.Errorf("unknown CAMERA_SOURCE %q (supported: device, file)", c.CameraSource)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// FacesDir is the root of the enrolled crop tree.
func (c *Config) FacesDir() string {
	return filepath.Join(c.DataDir, "faces")
}

func (c *Config) ModelPath() string {
	return filepath.Join(c.DataDir, "lbph_model.yml")
}

func (c *Config) LabelsPath() string {
	return filepath.Join(c.DataDir, "labels.json")
}

func (c *Config) HistoryEnabled() bool {
	return c.DatabaseURL != ""
}
