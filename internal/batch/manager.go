package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"horse.fit/folio/internal/records"
	"horse.fit/folio/internal/translator"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNotInitialized is returned when translation is requested before
// Initialize bound a working directory.
var ErrNotInitialized = errors.New("working directory is not initialized")

// ErrNoRunningBatch is returned when stop is requested in idle state.
var ErrNoRunningBatch = errors.New("no running batch")

// session owns one batch run: its worker goroutine, cancellation, and
// terminal status. A session is discarded after the run ends.
type session struct {
	worker *worker
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	status Status
}

func (s *session) running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *session) finish(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	close(s.done)
}

func (s *session) currentStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Manager binds a working directory and record store to the orchestrator and
// enforces single-flight batch execution.
type Manager struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	registry *translator.Registry
	bus      *EventBus

	workDir  string
	store    records.Store
	provider string
	model    string

	session *session
}

func NewManager(logger zerolog.Logger, registry *translator.Registry) *Manager {
	return &Manager{
		logger:   logger,
		registry: registry,
		bus:      NewEventBus(0),
	}
}

// Events exposes the bus for subscribers (CLI, HTTP polling).
func (m *Manager) Events() *EventBus {
	return m.bus
}

// Initialize binds the manager to a working directory and default backend
// selection. Must be called before any batch; calling it again rebinds.
func (m *Manager) Initialize(ctx context.Context, dir, provider, model string) error {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return fmt.Errorf("working directory is required")
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return fmt.Errorf("working directory %s: %w", trimmed, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("working directory %s is not a directory", trimmed)
	}

	store, err := records.Open(ctx, trimmed)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.running() {
		_ = store.Close()
		return ErrBatchAlreadyRunning
	}
	if m.store != nil {
		_ = m.store.Close()
	}

	m.workDir = trimmed
	m.store = store
	m.provider = strings.TrimSpace(provider)
	m.model = strings.TrimSpace(model)
	return nil
}

// TranslateFiles starts one batch in the background. It rejects a second
// batch while one is active and fails fast with an error event when the
// manager was never initialized.
func (m *Manager) TranslateFiles(job Job, statusCallback StatusCallback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.workDir == "" || m.store == nil {
		m.bus.Publish(Event{Type: EventTypeError, Message: "working directory is not initialized"})
		return ErrNotInitialized
	}
	if m.session != nil && m.session.running() {
		return ErrBatchAlreadyRunning
	}

	if job.Provider == "" {
		job.Provider = m.provider
	}
	if job.Model == "" {
		job.Model = m.model
	}

	provider, err := m.registry.Provider(job.Provider)
	if err != nil {
		m.bus.Publish(Event{Type: EventTypeError, Message: err.Error()})
		return err
	}

	if terms := strings.TrimSpace(job.CustomTerms); terms != "" {
		if err := m.store.SaveCustomTerms(context.Background(), terms); err != nil {
			m.logger.Warn().Err(err).Msg("save custom terms failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := newWorker(job, m.workDir, m.store, provider, m.bus, statusCallback, m.logger)
	s := &session{
		worker: w,
		cancel: cancel,
		done:   make(chan struct{}),
		status: StatusRunning,
	}
	m.session = s

	m.logger.Info().
		Int("files", len(job.Files)).
		Str("source_lang", job.SourceLang).
		Str("target_lang", job.TargetLang).
		Str("provider", provider.Name()).
		Msg("batch started")

	go func() {
		s.finish(w.run(ctx))
		cancel()
	}()
	return nil
}

// StopTranslation requests cancellation of the active batch, if any. It is
// idempotent and does not interrupt in-flight per-file work.
func (m *Manager) StopTranslation() error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil || !s.running() {
		return ErrNoRunningBatch
	}

	s.worker.requestStop()
	m.bus.Publish(Event{Type: EventTypeProgress, Message: "stopping translation"})
	return nil
}

// Status reports the state of the most recent batch.
func (m *Manager) Status() Status {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil {
		return StatusIdle
	}
	if s.running() {
		return StatusRunning
	}
	return s.currentStatus()
}

// Wait blocks until the active batch finishes and returns its terminal
// status. In idle state it returns immediately.
func (m *Manager) Wait() Status {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil {
		return StatusIdle
	}
	<-s.done
	return s.currentStatus()
}

// WorkDir returns the bound working directory ("" before Initialize).
func (m *Manager) WorkDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.workDir
}

// Store exposes the record store of the bound directory.
func (m *Manager) Store() records.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store
}

// SupportedLanguages maps language codes to display names.
func (m *Manager) SupportedLanguages() map[string]string {
	return translator.SupportedLanguages()
}

// CustomTerms returns the glossary persisted for the working directory.
func (m *Manager) CustomTerms(ctx context.Context) (string, error) {
	m.mu.Lock()
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return "", ErrNotInitialized
	}
	return store.CustomTerms(ctx)
}

// Close stops the active batch, waits for it, and releases the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s != nil && s.running() {
		s.worker.requestStop()
		s.cancel()
		<-s.done
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.store != nil {
		err := m.store.Close()
		m.store = nil
		return err
	}
	return nil
}
