package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/entityinstall/audio-gateway/internal/observability"
)

// Launcher is the backend compute collaborator: it starts a task bound to a
// client identifier and stops it by handle.
type Launcher interface {
	Start(ctx context.Context, clientID string) (string, error)
	Stop(ctx context.Context, handle string) error
}

// Lease associates a client with a running worker task.
type Lease struct {
	ClientID string
	Handle   string
}

// Manager owns the worker-lease lifecycle: synchronous start when a session
// begins, and delayed teardown when it ends. The teardown timer holds only
// the task handle, so it survives the session that released the lease. A
// fast reconnect can optionally reclaim the still-running task instead of
// launching a second one.
type Manager struct {
	launcher Launcher
	delay    time.Duration
	reuse    bool
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]*pendingStop // keyed by task handle
}

type pendingStop struct {
	clientID string
	handle   string
	timer    *time.Timer
}

// NewManager creates a lease manager. delay is the grace period between a
// session ending and its worker being stopped; reuseOnReconnect controls
// whether a reconnecting client reclaims a worker pending teardown.
func NewManager(launcher Launcher, delay time.Duration, reuseOnReconnect bool, logger zerolog.Logger) *Manager {
	return &Manager{
		launcher: launcher,
		delay:    delay,
		reuse:    reuseOnReconnect,
		logger:   logger,
		pending:  make(map[string]*pendingStop),
	}
}

// Begin acquires a worker for the client, blocking until the launcher
// acknowledges. Failure here is fatal to session startup.
func (m *Manager) Begin(ctx context.Context, clientID string) (*Lease, error) {
	if m.reuse {
		if handle, ok := m.reclaim(clientID); ok {
			m.logger.Info().Str("client_id", clientID).Str("handle", handle).
				Msg("Reusing worker pending teardown")
			observability.LeaseReused()
			return &Lease{ClientID: clientID, Handle: handle}, nil
		}
	}

	handle, err := m.launcher.Start(ctx, clientID)
	if err != nil {
		observability.CollaboratorError("launcher")
		return nil, fmt.Errorf("start worker for %s: %w", clientID, err)
	}
	m.logger.Info().Str("client_id", clientID).Str("handle", handle).Msg("Worker started")
	observability.LeaseStarted()
	return &Lease{ClientID: clientID, Handle: handle}, nil
}

// reclaim cancels a pending teardown for the client and returns its handle.
func (m *Manager) reclaim(clientID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for handle, p := range m.pending {
		if p.clientID == clientID && p.timer.Stop() {
			delete(m.pending, handle)
			return handle, true
		}
	}
	return "", false
}

// Release schedules teardown of the leased worker after the grace delay.
// It returns immediately; the stop runs on a detached timer.
func (m *Manager) Release(l *Lease) {
	p := &pendingStop{clientID: l.ClientID, handle: l.Handle}
	p.timer = time.AfterFunc(m.delay, func() {
		m.mu.Lock()
		delete(m.pending, p.handle)
		m.mu.Unlock()
		m.stop(p.handle)
	})

	m.mu.Lock()
	m.pending[p.handle] = p
	m.mu.Unlock()

	m.logger.Info().Str("client_id", l.ClientID).Str("handle", l.Handle).
		Dur("delay", m.delay).Msg("Worker teardown scheduled")
}

// Shutdown fires every pending teardown immediately. Called on process exit
// so released workers do not outlive the gateway by the full grace delay.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[string]*pendingStop)
	m.mu.Unlock()

	for handle, p := range pending {
		if p.timer.Stop() {
			m.stop(handle)
		}
	}
}

// stop is best-effort cleanup; failures are logged, never propagated.
func (m *Manager) stop(handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := m.launcher.Stop(ctx, handle); err != nil {
		m.logger.Error().Err(err).Str("handle", handle).Msg("Worker teardown failed")
		observability.CollaboratorError("launcher")
	} else {
		m.logger.Info().Str("handle", handle).Msg("Worker stopped")
	}
	observability.LeaseStopped()
}
