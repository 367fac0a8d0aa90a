// Package session owns the capture lifecycle: it arms the capture loop,
// guards it against overlapping ticks, feeds the detection log and turns
// the log into a dispatched report when the session stops.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"potholewatch/internal/logger"
	"potholewatch/internal/model"
	"potholewatch/internal/repository"
	"potholewatch/internal/service/detection"
	"potholewatch/internal/service/dispatch"
	"potholewatch/internal/service/report"
	"potholewatch/internal/service/storage"
	"potholewatch/internal/service/video"

	"github.com/google/uuid"
)

// Operator status lines.
const (
	StatusCameraStarted  = "🎥 Camera Started"
	StatusCameraDenied   = "❌ Camera Access Denied"
	StatusCapturing      = "📸 Capturing Frame..."
	StatusFrameProcessed = "✅ Frame Processed"
	StatusNoFrameBlob    = "❌ Could not generate frame blob"
	StatusStopped        = "⛔ Camera Stopped"
	StatusStoppedEmpty   = "⛔ Camera Stopped - No Potholes Detected"
	StatusGenerating     = "📄 Generating PDF..."
	StatusSending        = "📧 Sending email..."
	StatusDownloading    = "📄 Downloading PDF..."
	StatusReportDone     = "📄 PDF Generated, Emailed, and Downloaded"
	StatusAPIConnected   = "✅ API Connected"
	StatusAPIDown        = "❌ API Not Connected"
	StatusExportFailed   = "❌ PDF Download Failed: "
)

// State of a controller.
type State int

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// FrameEncoder turns the current frame of a stream into an image payload.
type FrameEncoder interface {
	Encode(stream video.Stream) ([]byte, error)
}

// Detector is the remote pothole detector.
type Detector interface {
	Detect(ctx context.Context, payload []byte) (*detection.Result, error)
	Ping(ctx context.Context) error
}

// LocationResolver names the device's current location. It never fails;
// unresolvable locations come back as model.LocationUnknown.
type LocationResolver interface {
	Resolve(ctx context.Context) string
}

// ReportCompiler renders the log as a document.
type ReportCompiler interface {
	Compile(records []model.DetectionRecord) (*report.Document, error)
}

// ReportDispatcher delivers a compiled document.
type ReportDispatcher interface {
	Dispatch(ctx context.Context, doc *report.Document, location string) (*dispatch.Confirmation, error)
}

// Options wires a controller. Sessions, Reports and Broadcaster may be nil.
// TickTimeout bounds each scheduled tick, and with it how long Stop can wait
// on one; zero leaves ticks unbounded.
type Options struct {
	Interval    time.Duration
	TickTimeout time.Duration
	Source      video.Source
	Encoder     FrameEncoder
	Detector    Detector
	Resolver    LocationResolver
	Compiler    ReportCompiler
	Dispatcher  ReportDispatcher
	Log         *storage.DetectionLog
	Sessions    repository.SessionRepository
	Reports     repository.ReportRepository
	Broadcaster Broadcaster
	Logger      *logger.Logger
}

// Snapshot is a point-in-time view of a controller.
type Snapshot struct {
	State     State
	Status    string
	SessionID string
	Records   int
	Findings  int
	Dropped   int64
	InFlight  bool
}

// Controller runs capture sessions.
type Controller struct {
	opts   Options
	log    *storage.DetectionLog
	status *StatusBoard
	logger *logger.Logger

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu         sync.Mutex
	state      State
	sessionID  string
	stream     video.Stream
	cancelLoop context.CancelFunc
	loopDone   chan struct{}

	// capture is held shared by a running tick and exclusively by Stop
	// while it waits for that tick to finish.
	capture  sync.RWMutex
	inFlight atomic.Bool
	dropped  atomic.Int64
}

func NewController(opts Options) *Controller {
	return &Controller{
		opts:   opts,
		log:    opts.Log,
		status: NewStatusBoard(opts.Broadcaster, opts.Logger),
		logger: opts.Logger,
		state:  Idle,
	}
}

// Start acquires the camera and arms the capture loop. Starting a running
// session is a no-op. If the camera cannot be acquired the state is left
// unchanged and the error wraps video.ErrCameraAccess.
func (c *Controller) Start(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	if c.State() == Running {
		c.logger.Warning("Start requested while already running")
		return nil
	}

	stream, err := c.opts.Source.Acquire(ctx)
	if err != nil {
		c.logger.Error("Error accessing camera: %v", err)
		c.status.Set(StatusCameraDenied)
		if !errors.Is(err, video.ErrCameraAccess) {
			err = fmt.Errorf("%w: %v", video.ErrCameraAccess, err)
		}
		return err
	}

	sessionID := uuid.NewString()
	if c.opts.Sessions != nil {
		if err := c.opts.Sessions.Insert(&model.Session{ID: sessionID, StartedAt: time.Now()}); err != nil {
			c.logger.Error("Error archiving session %s: %v", sessionID, err)
		}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.state = Running
	c.sessionID = sessionID
	c.stream = stream
	c.cancelLoop = cancel
	c.loopDone = done
	c.mu.Unlock()

	go c.loop(loopCtx, done)

	c.logger.Info("Session %s started (interval %v)", sessionID, c.opts.Interval)
	c.status.Set(StatusCameraStarted)
	return nil
}

// Stop disarms the capture loop, lets an in-flight tick finish, releases
// the camera and, if the log has findings, compiles and dispatches the
// report before returning. Stopping a session that is not running is a
// no-op. The returned error is the report failure, if any; the session is
// stopped either way.
func (c *Controller) Stop(ctx context.Context) error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.mu.Lock()
	if c.state != Running {
		c.mu.Unlock()
		return nil
	}
	c.state = Stopped
	sessionID := c.sessionID
	stream := c.stream
	cancel := c.cancelLoop
	done := c.loopDone
	c.stream = nil
	c.cancelLoop = nil
	c.loopDone = nil
	c.mu.Unlock()

	cancel()
	<-done

	c.capture.Lock()
	c.capture.Unlock()

	if err := stream.StopAllTracks(); err != nil {
		c.logger.Error("Error releasing camera: %v", err)
	}

	if c.opts.Sessions != nil {
		if err := c.opts.Sessions.MarkStopped(sessionID, time.Now()); err != nil {
			c.logger.Error("Error archiving session stop %s: %v", sessionID, err)
		}
	}
	c.logger.Info("Session %s stopped with %d record(s) in log", sessionID, c.log.Len())

	if !c.log.HasFindings() {
		c.status.Set(StatusStoppedEmpty)
		return nil
	}

	c.status.Set(StatusStopped)
	return c.report(ctx, sessionID)
}

// Tick runs one capture, detect and append sequence. It returns false when
// the session is not running or another tick is still in flight; such a
// tick is dropped, never queued.
func (c *Controller) Tick(ctx context.Context) bool {
	c.capture.RLock()
	defer c.capture.RUnlock()

	c.mu.Lock()
	running := c.state == Running
	stream := c.stream
	sessionID := c.sessionID
	c.mu.Unlock()

	if !running {
		return false
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		c.dropped.Add(1)
		c.logger.Warning("Capture still in flight, dropping tick")
		return false
	}
	defer c.inFlight.Store(false)

	c.captureFrame(ctx, stream, sessionID)
	return true
}

// CheckAPI pings the detector and reports the outcome on the status line.
func (c *Controller) CheckAPI(ctx context.Context) bool {
	if err := c.opts.Detector.Ping(ctx); err != nil {
		c.logger.Warning("API check failed: %v", err)
		c.status.Set(StatusAPIDown)
		return false
	}
	c.status.Set(StatusAPIConnected)
	return true
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Status() string {
	return c.status.Get()
}

func (c *Controller) Records() []model.DetectionRecord {
	return c.log.Records()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	state := c.state
	sessionID := c.sessionID
	c.mu.Unlock()

	return Snapshot{
		State:     state,
		Status:    c.status.Get(),
		SessionID: sessionID,
		Records:   c.log.Len(),
		Findings:  len(c.log.Findings()),
		Dropped:   c.dropped.Load(),
		InFlight:  c.inFlight.Load(),
	}
}

func (c *Controller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	// Ticks outlive the loop so Stop can wait for them.
	tickCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go c.scheduledTick(tickCtx)
		}
	}
}

func (c *Controller) scheduledTick(ctx context.Context) {
	if c.opts.TickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.TickTimeout)
		defer cancel()
	}
	c.Tick(ctx)
}

func (c *Controller) captureFrame(ctx context.Context, stream video.Stream, sessionID string) {
	c.status.Set(StatusCapturing)

	payload, err := c.opts.Encoder.Encode(stream)
	if err != nil {
		c.logger.Error("Error encoding frame: %v", err)
		c.status.Set(StatusNoFrameBlob)
		return
	}

	result, err := c.opts.Detector.Detect(ctx, payload)
	if err != nil {
		c.logger.Error("Error sending frame: %v", err)
		c.status.Set(detection.StatusMessage(err))
		return
	}

	location := model.LocationNotFetched
	if result.PotholeCount > 0 {
		location = c.opts.Resolver.Resolve(ctx)
	}

	rec := c.log.Append(model.DetectionRecord{
		SessionID:    sessionID,
		Image:        result.AnnotatedImage,
		CapturedAt:   time.Now(),
		PotholeCount: result.PotholeCount,
		Location:     location,
	})
	c.status.PublishDetection(rec)
	c.status.Set(StatusFrameProcessed)
}

func (c *Controller) report(ctx context.Context, sessionID string) error {
	c.status.Set(StatusGenerating)

	doc, err := c.opts.Compiler.Compile(c.log.Records())
	if errors.Is(err, report.ErrNoFindings) {
		c.status.Set(StatusStoppedEmpty)
		return nil
	}
	if err != nil {
		c.logger.Error("Error generating report: %v", err)
		c.status.Set("❌ Error: " + err.Error())
		return err
	}

	c.status.Set(StatusSending)
	conf, err := c.opts.Dispatcher.Dispatch(ctx, doc, doc.Location)
	c.archiveReport(sessionID, doc, conf, err)
	if err != nil {
		c.logger.Error("Error dispatching report: %v", err)
		c.status.Set("❌ Error: " + errorDetail(err))
		return err
	}

	c.status.Set("📧 " + conf.Message)
	if conf.ExportErr != nil {
		c.logger.Error("Error exporting report: %v", conf.ExportErr)
		c.status.Set(StatusExportFailed + conf.ExportErr.Error())
		return conf.ExportErr
	}
	c.status.Set(StatusDownloading)
	c.status.Set(StatusReportDone)
	return nil
}

func (c *Controller) archiveReport(sessionID string, doc *report.Document, conf *dispatch.Confirmation, dispatchErr error) {
	if c.opts.Reports == nil {
		return
	}

	rec := &model.Report{
		SessionID:  sessionID,
		Filename:   storage.ReportFilename,
		FileSize:   int64(doc.Size()),
		Pages:      doc.Pages,
		Sections:   len(doc.Sections),
		Location:   doc.Location,
		Dispatched: dispatchErr == nil,
		CreatedAt:  time.Now(),
	}
	if conf != nil {
		rec.FilePath = conf.Path
		rec.Message = conf.Message
	}
	if dispatchErr != nil {
		rec.Message = errorDetail(dispatchErr)
	}

	if _, err := c.opts.Reports.Insert(rec); err != nil {
		c.logger.Error("Error archiving report: %v", err)
	}
}

// errorDetail prefers the detail the notification service sent back.
func errorDetail(err error) string {
	var dispatchErr *dispatch.Error
	if errors.As(err, &dispatchErr) && dispatchErr.Detail != "" {
		return dispatchErr.Detail
	}
	return err.Error()
}
