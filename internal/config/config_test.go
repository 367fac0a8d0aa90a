package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("API_URL", "http://detector.local:8000")
	t.Setenv("GOOGLE_MAPS_API_KEY", "test-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.CaptureEvery() != 2000*time.Millisecond {
		t.Errorf("Expected 2s capture interval, got %v", cfg.CaptureEvery())
	}
	if cfg.FrameWidth != 320 || cfg.FrameHeight != 240 {
		t.Errorf("Expected 320x240 frames, got %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	if cfg.ReportSubject != "Pothole Detection Report" {
		t.Errorf("Unexpected subject %q", cfg.ReportSubject)
	}
	if _, _, ok := cfg.DevicePosition(); ok {
		t.Error("Expected no device position by default")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CAPTURE_INTERVAL_MS", "500")
	t.Setenv("DEVICE_LATITUDE", "13.0827")
	t.Setenv("DEVICE_LONGITUDE", "80.2707")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Port)
	}
	if cfg.CaptureEvery() != 500*time.Millisecond {
		t.Errorf("Expected 500ms interval, got %v", cfg.CaptureEvery())
	}
	lat, lng, ok := cfg.DevicePosition()
	if !ok || lat != 13.0827 || lng != 80.2707 {
		t.Errorf("Unexpected device position %v,%v (ok=%v)", lat, lng, ok)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	setRequired(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("port: 7070\nreport_recipient: roads@city.example\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != 7070 {
		t.Errorf("Expected port 7070 from file, got %d", cfg.Port)
	}
	if cfg.ReportRecipient != "roads@city.example" {
		t.Errorf("Expected recipient from file, got %q", cfg.ReportRecipient)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing api url", func(c *Config) { c.APIURL = "" }, true},
		{"relative api url", func(c *Config) { c.APIURL = "/api" }, true},
		{"missing geocoding key", func(c *Config) { c.GeocodingAPIKey = "" }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"zero interval", func(c *Config) { c.CaptureInterval = 0 }, true},
		{"zero frame", func(c *Config) { c.FrameWidth = 0 }, true},
		{"half position", func(c *Config) { c.DeviceLatitude = "1.0" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.APIURL = "https://detector.example"
			cfg.GeocodingAPIKey = "key"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
