// Package app wires a frame source, the face decoder and the optional
// persistence and hook layers into a single run.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/facedecode/internal/detector"
	"github.com/ayusman/facedecode/internal/hook"
	"github.com/ayusman/facedecode/internal/logging"
	"github.com/ayusman/facedecode/internal/source"
	"github.com/ayusman/facedecode/internal/store"
)

// DefaultHookTimeout bounds a single hook execution.
const DefaultHookTimeout = 5 * time.Second

// BatchDetector is implemented by detectors that decode several frames at once.
type BatchDetector interface {
	detector.Detector
	DetectBatch(ctx context.Context, frames []*detector.Frame, params detector.Params) ([][]detector.Detection, error)
}

// Config holds configuration options for the application.
type Config struct {
	Source     source.Source
	SourceName string
	Detector   detector.Detector
	Params     detector.Params

	// BatchSize > 1 groups frames for detectors implementing BatchDetector.
	BatchSize int

	// Store, when set, receives one run per decoded frame.
	Store *store.Store

	// Hooks, when set, are executed for every decoded frame.
	Hooks       *hook.Manager
	HookTimeout time.Duration

	Logger *logrus.Logger
}

// Result is the outcome of one decoded frame.
type Result struct {
	Index      int
	RunID      string
	Frame      *detector.Frame
	Detections []detector.Detection
	Latency    time.Duration
}

// Stats summarizes a run.
type Stats struct {
	Frames       int           `json:"frames"`
	Faces        int           `json:"faces"`
	Skipped      int           `json:"skipped"`
	HookFailures int           `json:"hook_failures"`
	Elapsed      time.Duration `json:"elapsed"`
}

// App drains a source through the detector.
type App struct {
	config    Config
	log       *logrus.Logger
	executor  *hook.Executor
	callbacks []func(Result)
	mu        sync.RWMutex
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	if config.Source == nil {
		return nil, errors.New("app: source is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if err := config.Params.Validate(); err != nil {
		return nil, err
	}

	if config.HookTimeout <= 0 {
		config.HookTimeout = DefaultHookTimeout
	}
	if config.SourceName == "" {
		config.SourceName = "frames"
	}

	log := config.Logger
	if log == nil {
		log = logging.Discard()
	}

	return &App{
		config:   config,
		log:      log,
		executor: hook.NewExecutor(config.HookTimeout),
	}, nil
}

// OnResult registers fn to be called with every decoded frame, in order.
func (a *App) OnResult(fn func(Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.callbacks = append(a.callbacks, fn)
}

// SetDetector replaces the detector used for subsequent frames.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.config.Detector = d
}

// Detector returns the detector in use.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config.Detector
}

// isFrameError reports whether err concerns a single frame only.
func isFrameError(err error) bool {
	return errors.Is(err, detector.ErrShapeMismatch) || errors.Is(err, detector.ErrInvalidConfig)
}
