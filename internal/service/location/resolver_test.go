package location

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
)

func newResolver(t *testing.T, positioner Positioner, handler http.HandlerFunc) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewResolver(positioner, server.URL, "test-key", 5*time.Second, logger.NewWithWriter(io.Discard))
}

func seeded() *DevicePosition {
	p := NewDevicePosition()
	p.Set(13.0067, 80.2574)
	return p
}

func TestResolve_Locality(t *testing.T) {
	resolver := newResolver(t, seeded(), func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("Expected key param, got %q", got)
		}
		if got := r.URL.Query().Get("latlng"); got != "13.006700,80.257400" {
			t.Errorf("Unexpected latlng %q", got)
		}
		io.WriteString(w, `{"status":"OK","results":[{"address_components":[
			{"long_name":"12","types":["street_number"]},
			{"long_name":"Adyar","types":["sublocality","political"]},
			{"long_name":"Chennai","types":["locality","political"]}
		]}]}`)
	})

	if got := resolver.Resolve(context.Background()); got != "Adyar" {
		t.Errorf("Expected first matching component Adyar, got %q", got)
	}
}

func TestResolve_FailsSoft(t *testing.T) {
	denied := NewDevicePosition()
	denied.Deny()

	tests := []struct {
		name       string
		positioner Positioner
		status     int
		body       string
	}{
		{"unsupported", NewDevicePosition(), http.StatusOK, `{"status":"OK"}`},
		{"permission denied", denied, http.StatusOK, `{"status":"OK"}`},
		{"api status", seeded(), http.StatusOK, `{"status":"REQUEST_DENIED","results":[]}`},
		{"http error", seeded(), http.StatusInternalServerError, ``},
		{"bad json", seeded(), http.StatusOK, `not json`},
		{"no matching component", seeded(), http.StatusOK, `{"status":"OK","results":[{"address_components":[{"long_name":"India","types":["country"]}]}]}`},
		{"no results", seeded(), http.StatusOK, `{"status":"OK","results":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newResolver(t, tt.positioner, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			if got := resolver.Resolve(context.Background()); got != model.LocationUnknown {
				t.Errorf("Expected %q, got %q", model.LocationUnknown, got)
			}
		})
	}
}

func TestResolve_NilPositioner(t *testing.T) {
	resolver := NewResolver(nil, "http://127.0.0.1:1", "k", time.Second, logger.NewWithWriter(io.Discard))
	if got := resolver.Resolve(context.Background()); got != model.LocationUnknown {
		t.Errorf("Expected Unknown, got %q", got)
	}
}

func TestDevicePosition_SetClearsDenial(t *testing.T) {
	p := NewDevicePosition()
	p.Deny()
	p.Set(1, 2)

	pos, err := p.Position(context.Background())
	if err != nil {
		t.Fatalf("Expected position, got %v", err)
	}
	if pos.Latitude != 1 || pos.Longitude != 2 {
		t.Errorf("Unexpected position %+v", pos)
	}
}
