package session

import (
	"encoding/json"
	"sync"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
)

// Broadcaster pushes encoded messages to viewers.
type Broadcaster interface {
	Broadcast(message []byte)
}

type statusMessage struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

type detectionMessage struct {
	Type   string                `json:"type"`
	Record model.DetectionRecord `json:"record"`
}

// StatusBoard holds the single operator-facing status line. Each Set
// replaces the previous value; there is no history.
type StatusBoard struct {
	status      string
	mu          sync.RWMutex
	broadcaster Broadcaster
	logger      *logger.Logger
}

func NewStatusBoard(broadcaster Broadcaster, logger *logger.Logger) *StatusBoard {
	return &StatusBoard{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// Set replaces the status and pushes it to viewers.
func (b *StatusBoard) Set(status string) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()

	b.logger.Info("Status: %s", status)
	b.publish(statusMessage{Type: "status", Status: status})
}

// Get returns the current status.
func (b *StatusBoard) Get() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// PublishDetection pushes a freshly appended record to viewers.
func (b *StatusBoard) PublishDetection(rec model.DetectionRecord) {
	b.publish(detectionMessage{Type: "detection", Record: rec})
}

func (b *StatusBoard) publish(v interface{}) {
	if b.broadcaster == nil {
		return
	}
	message, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("Error encoding viewer message: %v", err)
		return
	}
	b.broadcaster.Broadcast(message)
}
