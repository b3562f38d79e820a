package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/Chandru0712/SelfieBooth/internal/config"
	"github.com/Chandru0712/SelfieBooth/internal/debug"
)

// State describes the manager's lifecycle position. A failed acquisition
// lands in StateFailed with the error retained; there is no partially-
// initialized state.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// acquireFunc opens a local source for a device id. Swapped out in tests.
type acquireFunc func(ctx context.Context, deviceID int) (Source, error)

// Manager owns the lifecycle of exactly one active source per session.
// It is an explicit instance passed to its consumers; there is no package
// level device state.
type Manager struct {
	cfg     *config.Config
	acquire acquireFunc

	mu       sync.Mutex
	state    State
	src      Source
	lastErr  error
	deviceID int
	inflight chan struct{} // non-nil while an initialize is running; closed on completion
}

// NewManager creates a manager for the configured camera mode.
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		cfg:      cfg,
		deviceID: cfg.Camera.DeviceID,
	}
	opener := func(ctx context.Context, deviceID int, cons constraints) (Source, error) {
		return openLocal(ctx, deviceID, cons, cfg.MirrorLocal(), cfg.WarmupTimeout())
	}
	m.acquire = func(ctx context.Context, deviceID int) (Source, error) {
		return acquireWithRetry(ctx, opener, cfg, deviceID)
	}
	return m
}

// openerFunc opens a device with a given constraint set. The indirection
// keeps the retry policy testable without a physical camera.
type openerFunc func(ctx context.Context, deviceID int, cons constraints) (Source, error)

// acquireWithRetry opens a webcam with ideal constraints, retrying exactly
// once with no constraints at all when negotiation fails. If the retry also
// fails, its error (not the original) surfaces.
func acquireWithRetry(ctx context.Context, open openerFunc, cfg *config.Config, deviceID int) (Source, error) {
	src, err := open(ctx, deviceID, idealConstraints(cfg))
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, ErrConstraints) {
		return nil, err
	}

	debug.Info("Constraint negotiation failed (%v), retrying with minimal constraints", err)
	src, err = open(ctx, deviceID, constraints{})
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Initialize acquires the configured source. In remote mode it returns a
// RemoteStream handle immediately; in local mode it negotiates the device
// and waits for the first frame.
//
// Concurrency guard: while an initialize is in flight, further callers do
// not start a second device acquisition; they wait for the in-flight one
// and share its outcome.
func (m *Manager) Initialize(ctx context.Context) (Source, error) {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		src := m.src
		m.mu.Unlock()
		return src, nil
	case StateInitializing:
		ch := m.inflight
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == StateReady {
			return m.src, nil
		}
		return nil, m.lastErr
	}

	// Idle or failed: this caller performs the acquisition.
	m.state = StateInitializing
	ch := make(chan struct{})
	m.inflight = ch
	deviceID := m.deviceID
	m.mu.Unlock()

	var src Source
	var err error
	if m.cfg.RemoteMode() {
		// No local-device negotiation at all; this cannot fail beyond
		// misconfiguration, which config.Load already rejects.
		src = NewRemoteSource(m.cfg.PreviewURL(), m.cfg.SnapshotURL())
		debug.Source("remote", m.cfg.Camera.RemoteBaseURL)
	} else {
		src, err = m.acquire(ctx, deviceID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	defer close(ch)
	m.inflight = nil
	if err != nil {
		m.state = StateFailed
		m.src = nil
		m.lastErr = err
		debug.Error(fmt.Errorf("camera initialize: %w", err))
		return nil, err
	}
	m.state = StateReady
	m.src = src
	m.lastErr = nil
	return src, nil
}

// SwitchDevice fully releases the current local stream and re-initializes
// against the new device id. Remote mode rejects device switching.
func (m *Manager) SwitchDevice(ctx context.Context, deviceID int) (Source, error) {
	if m.cfg.RemoteMode() {
		return nil, fmt.Errorf("switch device: %w", ErrRemoteMode)
	}

	m.Release()

	m.mu.Lock()
	m.deviceID = deviceID
	m.mu.Unlock()

	return m.Initialize(ctx)
}

// CurrentSource returns the active source, or an error when the manager is
// not ready. Capture paths use this; they never cache the source beyond a
// single call.
func (m *Manager) CurrentSource() (Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case StateReady:
		return m.src, nil
	case StateFailed:
		return nil, fmt.Errorf("camera not available: %w", m.lastErr)
	default:
		return nil, fmt.Errorf("camera %s", m.state)
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the retained acquisition error, if any.
func (m *Manager) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// PreviewFrame returns the latest buffered preview frame for sources that
// keep one (local capture loop). ok is false for proxied sources.
func (m *Manager) PreviewFrame(lastSeen uint64) (image.Image, uint64, bool) {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()
	if src == nil {
		return nil, lastSeen, false
	}
	if local, ok := src.(interface {
		PreviewFrameNewer(uint64) (image.Image, uint64, bool)
	}); ok {
		return local.PreviewFrameNewer(lastSeen)
	}
	if buffered, ok := src.(previewBuffered); ok {
		return buffered.PreviewFrame()
	}
	return nil, lastSeen, false
}

// PreviewProxyURL returns the external preview stream to proxy, for
// sources whose preview lives outside this process (remote camera).
func (m *Manager) PreviewProxyURL() (string, bool) {
	m.mu.Lock()
	src := m.src
	m.mu.Unlock()
	if src == nil {
		return "", false
	}
	if proxied, ok := src.(previewProxied); ok {
		return proxied.PreviewURL(), true
	}
	return "", false
}

// Release stops and discards the active source and clears internal state.
// Idempotent: calling twice is safe. If an initialize is in flight, Release
// waits for it so the freshly acquired device is not leaked.
func (m *Manager) Release() {
	m.mu.Lock()
	for m.state == StateInitializing {
		ch := m.inflight
		m.mu.Unlock()
		<-ch
		m.mu.Lock()
	}
	src := m.src
	m.src = nil
	m.state = StateIdle
	m.lastErr = nil
	m.mu.Unlock()

	if src != nil {
		if err := src.Release(); err != nil {
			debug.Error(fmt.Errorf("release source: %w", err))
		}
	}
}
