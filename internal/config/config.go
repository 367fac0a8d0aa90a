package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the pothole watch service.
type Config struct {
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	APIURL          string `yaml:"api_url"`           // Base URL of the detection and notification service
	GeocodingAPIKey string `yaml:"geocoding_api_key"` // Google Maps geocoding key
	GeocodingURL    string `yaml:"geocoding_url"`     // Reverse geocoding endpoint
	HTTPTimeout     int    `yaml:"http_timeout"`      // Outbound request timeout in seconds
	CameraDevice    string `yaml:"camera_device"`     // gocv device id or stream URL
	CaptureInterval int    `yaml:"capture_interval"`  // Capture trigger period in milliseconds
	FrameWidth      int    `yaml:"frame_width"`       // Encoded frame width
	FrameHeight     int    `yaml:"frame_height"`      // Encoded frame height
	JPEGQuality     int    `yaml:"jpeg_quality"`      // Frame encoder quality (1-100)
	ReportRecipient string `yaml:"report_recipient"`  // Fixed report recipient
	ReportSubject   string `yaml:"report_subject"`    // Fixed report subject line
	ExportDirectory string `yaml:"export_dir"`        // Where pothole_report.pdf is saved
	DatabasePath    string `yaml:"db_path"`           // Archive database
	LogDirectory    string `yaml:"log_dir"`           // Leveled log files
	DeviceLatitude  string `yaml:"device_latitude"`   // Optional fixed device position
	DeviceLongitude string `yaml:"device_longitude"`  // Optional fixed device position
}

// Load reads .env (if present), an optional YAML file named by CONFIG_FILE
// and the process environment, in that order of precedence, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Port:            8080,
		Password:        "pothole",
		GeocodingURL:    "https://maps.googleapis.com/maps/api/geocode/json",
		HTTPTimeout:     30,
		CameraDevice:    "0",
		CaptureInterval: 2000,
		FrameWidth:      320,
		FrameHeight:     240,
		JPEGQuality:     85,
		ReportRecipient: "admin@example.com",
		ReportSubject:   "Pothole Detection Report",
		ExportDirectory: filepath.Join(".", "reports"),
		DatabasePath:    filepath.Join(".", "data", "potholes.db"),
		LogDirectory:    filepath.Join(".", "logs"),
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("PORT", c.Port)
	c.Password = getEnv("PASSWORD", c.Password)
	c.APIURL = getEnv("API_URL", c.APIURL)
	c.GeocodingAPIKey = getEnv("GOOGLE_MAPS_API_KEY", c.GeocodingAPIKey)
	c.GeocodingURL = getEnv("GEOCODE_URL", c.GeocodingURL)
	c.HTTPTimeout = getEnvAsInt("HTTP_TIMEOUT_SECONDS", c.HTTPTimeout)
	c.CameraDevice = getEnv("CAMERA_DEVICE", c.CameraDevice)
	c.CaptureInterval = getEnvAsInt("CAPTURE_INTERVAL_MS", c.CaptureInterval)
	c.FrameWidth = getEnvAsInt("FRAME_WIDTH", c.FrameWidth)
	c.FrameHeight = getEnvAsInt("FRAME_HEIGHT", c.FrameHeight)
	c.JPEGQuality = getEnvAsInt("JPEG_QUALITY", c.JPEGQuality)
	c.ReportRecipient = getEnv("REPORT_RECIPIENT", c.ReportRecipient)
	c.ReportSubject = getEnv("REPORT_SUBJECT", c.ReportSubject)
	c.ExportDirectory = getEnv("EXPORT_DIR", c.ExportDirectory)
	c.DatabasePath = getEnv("DB_PATH", c.DatabasePath)
	c.LogDirectory = getEnv("LOG_DIR", c.LogDirectory)
	c.DeviceLatitude = getEnv("DEVICE_LATITUDE", c.DeviceLatitude)
	c.DeviceLongitude = getEnv("DEVICE_LONGITUDE", c.DeviceLongitude)
}

// Validate checks that required settings are present and sane.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute http(s) URL: %q", c.APIURL)
	}
	if c.GeocodingAPIKey == "" {
		return errors.New("GOOGLE_MAPS_API_KEY is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.CaptureInterval <= 0 {
		return fmt.Errorf("invalid capture interval: %dms", c.CaptureInterval)
	}
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("invalid frame size: %dx%d", c.FrameWidth, c.FrameHeight)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("invalid jpeg quality: %d", c.JPEGQuality)
	}
	if (c.DeviceLatitude == "") != (c.DeviceLongitude == "") {
		return errors.New("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}
	return nil
}

// CaptureEvery returns the capture trigger period.
func (c *Config) CaptureEvery() time.Duration {
	return time.Duration(c.CaptureInterval) * time.Millisecond
}

// RequestTimeout returns the timeout for outbound HTTP calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPTimeout) * time.Second
}

// DevicePosition returns the configured coordinates, if any.
func (c *Config) DevicePosition() (lat, lng float64, ok bool) {
	if c.DeviceLatitude == "" || c.DeviceLongitude == "" {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(c.DeviceLatitude, 64)
	lng, err2 := strconv.ParseFloat(c.DeviceLongitude, 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
