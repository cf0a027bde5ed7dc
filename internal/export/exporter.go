// ABOUTME: Exporter is the registry of live export sessions keyed by session ID.
// ABOUTME: It restores persisted descriptors, rejects conflicting sessions and deletes restoration info.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// liveSession is the type-erased view of Session[Out] the registry keeps.
type liveSession interface {
	ID() string
	State() State
	Progress() Progress
	Descriptor() Descriptor
	Pause(ctx context.Context) error
	Flush(ctx context.Context) error
	terminate(ctx context.Context) error
	processorType() reflect.Type
}

// SessionInfo summarises a session for listings.
type SessionInfo struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Live      bool      `json:"live"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Progress  Progress  `json:"progress"`
}

// Exporter creates, restores and tracks export sessions. At most one live
// session exists per ID.
type Exporter struct {
	provider Provider
	store    DescriptorStore
	logger   *log.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]liveSession
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger used by the exporter and its sessions.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithClock overrides the time source used when a session has no end date.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) { e.now = now }
}

// NewExporter returns an exporter reading from provider and persisting to store.
func NewExporter(provider Provider, store DescriptorStore, opts ...Option) *Exporter {
	e := &Exporter{
		provider: provider,
		store:    store,
		logger:   log.New(io.Discard),
		now:      time.Now,
		sessions: make(map[string]liveSession),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenSession returns the live session for id, or creates one, restoring
// its persisted descriptor when present. Restored failed batches are reset
// so they run again. cfg's sample types and end date are scheduled in
// either case; existing batches are never duplicated.
//
// A live session opened with a different processor type yields
// ErrConflictingSession.
func OpenSession[Out any](ctx context.Context, e *Exporter, id string, cfg SessionConfig, processor Processor[Out]) (*Session[Out], error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if live, ok := e.sessions[id]; ok {
		s, ok := live.(*Session[Out])
		if !ok || live.processorType() != reflect.TypeOf(processor) {
			return nil, fmt.Errorf("%w: %s is open with processor %v", ErrConflictingSession, id, live.processorType())
		}
		if _, err := s.schedule(ctx, cfg, e.now()); err != nil {
			return nil, err
		}
		return s, nil
	}

	desc, err := e.store.Load(ctx, StorageKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if desc == nil {
		desc = NewDescriptor(id)
	} else {
		desc.SessionID = id
		if n := desc.UnmarkAllFailedBatches(); n > 0 {
			e.logger.Info("reset failed batches from previous run", "session", id, "count", n)
		}
	}

	s := newSession(desc, e.provider, processor, e.store, e.logger)
	if _, err := s.schedule(ctx, cfg, e.now()); err != nil {
		s.persist.stop()
		return nil, err
	}
	e.sessions[id] = s
	return s, nil
}

// DeleteSessionRestorationInfo terminates the live session for id, if any,
// waiting for in-flight work to wind down, then deletes its stored descriptor.
func (e *Exporter) DeleteSessionRestorationInfo(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if live, ok := e.sessions[id]; ok {
		if err := live.terminate(ctx); err != nil {
			return fmt.Errorf("failed to terminate session %s: %w", id, err)
		}
		delete(e.sessions, id)
	}
	if err := e.store.Delete(ctx, StorageKey(id)); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Live reports whether a session with id is registered.
func (e *Exporter) Live(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.sessions[id]
	return ok
}

// Pause pauses the live session for id. It is a no-op for unknown IDs.
func (e *Exporter) Pause(ctx context.Context, id string) error {
	e.mu.Lock()
	live, ok := e.sessions[id]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	return live.Pause(ctx)
}

// Info describes the session for id, live or persisted. ok is false when
// neither exists.
func (e *Exporter) Info(ctx context.Context, id string) (SessionInfo, bool, error) {
	e.mu.Lock()
	live, isLive := e.sessions[id]
	e.mu.Unlock()
	if isLive {
		return liveInfo(live), true, nil
	}

	desc, err := e.store.Load(ctx, StorageKey(id))
	if err != nil {
		return SessionInfo{}, false, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	if desc == nil {
		return SessionInfo{}, false, nil
	}
	return storedInfo(id, desc), true, nil
}

// Sessions lists live sessions plus, when the store can enumerate keys,
// persisted ones. The result is sorted by ID.
func (e *Exporter) Sessions(ctx context.Context) ([]SessionInfo, error) {
	e.mu.Lock()
	infos := make(map[string]SessionInfo, len(e.sessions))
	for id, live := range e.sessions {
		infos[id] = liveInfo(live)
	}
	e.mu.Unlock()

	ids, err := ListSessionIDs(ctx, e.store)
	if err != nil && !errors.Is(err, ErrListingUnsupported) {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := infos[id]; ok {
			continue
		}
		desc, err := e.store.Load(ctx, StorageKey(id))
		if err != nil {
			e.logger.Warn("skipping unreadable session", "session", id, "err", err)
			continue
		}
		if desc != nil {
			infos[id] = storedInfo(id, desc)
		}
	}

	out := make([]SessionInfo, 0, len(infos))
	for _, info := range infos {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close pauses every running session and flushes pending writes.
func (e *Exporter) Close(ctx context.Context) error {
	e.mu.Lock()
	lives := make([]liveSession, 0, len(e.sessions))
	for _, live := range e.sessions {
		lives = append(lives, live)
	}
	e.mu.Unlock()

	for _, live := range lives {
		if err := live.Pause(ctx); err != nil {
			return err
		}
		if err := live.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

func liveInfo(live liveSession) SessionInfo {
	d := live.Descriptor()
	return SessionInfo{
		ID:        live.ID(),
		State:     live.State(),
		Live:      true,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Progress:  live.Progress(),
	}
}

// storedInfo reports a persisted session as paused, or completed when
// nothing is left to run.
func storedInfo(id string, d *Descriptor) SessionInfo {
	p := d.Counts()
	state := StatePaused
	if p.Pending == 0 {
		state = StateCompleted
	}
	return SessionInfo{
		ID:        id,
		State:     state,
		StartDate: d.StartDate,
		EndDate:   d.EndDate,
		Progress:  p,
	}
}
