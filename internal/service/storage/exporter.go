package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"potholewatch/internal/logger"
)

// ReportFilename is the fixed name every compiled report is exported under.
const ReportFilename = "pothole_report.pdf"

// ErrNoExport is returned when no report has been exported yet.
var ErrNoExport = errors.New("no report exported")

// Exporter saves compiled reports to the local export directory.
// Each export replaces the previous one.
type Exporter struct {
	dir    string
	mu     sync.Mutex
	logger *logger.Logger
}

// NewExporter creates an exporter writing into dir.
func NewExporter(dir string, logger *logger.Logger) *Exporter {
	return &Exporter{
		dir:    dir,
		logger: logger,
	}
}

// Path returns where the exported report lives.
func (e *Exporter) Path() string {
	return filepath.Join(e.dir, ReportFilename)
}

// Save writes data as the current report and returns its path.
func (e *Exporter) Save(data []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(e.dir, ".report-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	path := e.Path()
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to export report: %w", err)
	}

	e.logger.Info("Report exported to %s (%d bytes)", path, len(data))
	return path, nil
}

// Stat returns the size of the exported report.
func (e *Exporter) Stat() (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	info, err := os.Stat(e.Path())
	if errors.Is(err, os.ErrNotExist) {
		return 0, ErrNoExport
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Revoke removes the exported report. Revoking twice is not an error.
func (e *Exporter) Revoke() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Remove(e.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to revoke report: %w", err)
	}
	e.logger.Info("Report revoked: %s", e.Path())
	return nil
}
