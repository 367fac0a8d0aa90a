package location

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrUnsupported means no position source is available on this device.
	ErrUnsupported = errors.New("geolocation not supported")
	// ErrPermissionDenied means the operator refused to share the position.
	ErrPermissionDenied = errors.New("geolocation permission denied")
)

// Position is a pair of WGS84 coordinates.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Positioner reports where the device currently is.
type Positioner interface {
	Position(ctx context.Context) (Position, error)
}

// DevicePosition holds the last known device position. It starts empty
// (unsupported) unless seeded, and is updated by the operator.
type DevicePosition struct {
	mu     sync.RWMutex
	pos    Position
	known  bool
	denied bool
}

// NewDevicePosition creates an empty position holder.
func NewDevicePosition() *DevicePosition {
	return &DevicePosition{}
}

// Set records a new position and clears any earlier denial.
func (d *DevicePosition) Set(lat, lng float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos = Position{Latitude: lat, Longitude: lng, UpdatedAt: time.Now()}
	d.known = true
	d.denied = false
}

// Deny records that the operator refused to share the position.
func (d *DevicePosition) Deny() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.denied = true
}

// Position implements Positioner.
func (d *DevicePosition) Position(ctx context.Context) (Position, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	switch {
	case d.denied:
		return Position{}, ErrPermissionDenied
	case !d.known:
		return Position{}, ErrUnsupported
	}
	return d.pos, nil
}
