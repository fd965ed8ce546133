package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/niabis/backend/internal/domain"
)

// LocationReader loads persisted locations. repo.LocationRepo satisfies it.
type LocationReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error)
}

// Sessions tracks the open editing sessions by ID, so a remote screen can
// address the session it is driving across requests.
//
// A client that goes away without closing its session leaves it open. With
// an idle timeout set, Sweep ends such sessions unconfirmed once nothing has
// looked them up for that long.
type Sessions struct {
	store    LocationStore
	reader   LocationReader
	ingester Ingester
	log      *slog.Logger
	idle     time.Duration
	now      func() time.Time

	mu   sync.Mutex
	byID map[uuid.UUID]*entry
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

// SessionsOption customises a Sessions registry.
type SessionsOption func(*Sessions)

// WithIdleTimeout makes Sweep end sessions that were not looked up for d.
// Zero disables expiry.
func WithIdleTimeout(d time.Duration) SessionsOption {
	return func(m *Sessions) { m.idle = d }
}

// WithRegistryClock replaces time.Now for idle tracking, for tests.
func WithRegistryClock(now func() time.Time) SessionsOption {
	return func(m *Sessions) { m.now = now }
}

// NewSessions constructs an empty registry.
func NewSessions(store LocationStore, reader LocationReader, ingester Ingester, log *slog.Logger, opts ...SessionsOption) *Sessions {
	if log == nil {
		log = slog.Default()
	}
	m := &Sessions{
		store:    store,
		reader:   reader,
		ingester: ingester,
		log:      log,
		now:      time.Now,
		byID:     map[uuid.UUID]*entry{},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// StartDraft opens a session on a new, unconfirmed location.
func (m *Sessions) StartDraft(ctx context.Context, loc domain.Location) (*Session, error) {
	s, err := NewDraft(ctx, m.store, m.ingester, loc, WithLogger(m.log))
	if err != nil {
		return nil, fmt.Errorf("service.Sessions.StartDraft: %w", err)
	}
	m.add(s)
	return s, nil
}

// OpenExisting opens a session on a persisted location.
// Returns domain.ErrNotFound if the location does not exist.
func (m *Sessions) OpenExisting(ctx context.Context, locationID uuid.UUID) (*Session, error) {
	loc, err := m.reader.GetByID(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("service.Sessions.OpenExisting: %w", err)
	}
	s := Open(m.store, m.ingester, loc, WithLogger(m.log))
	m.add(s)
	return s, nil
}

// Get returns an open session and marks it as in use. Returns
// domain.ErrNotFound for unknown or ended sessions.
func (m *Sessions) Get(id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, fmt.Errorf("service.Sessions.Get: session %s: %w", id, domain.ErrNotFound)
	}
	e.lastSeen = m.now()
	return e.session, nil
}

// End runs the screen-close hook of a session and forgets it.
// If Close fails the session stays registered so End can be retried.
func (m *Sessions) End(ctx context.Context, id uuid.UUID, confirmed bool) (Snapshot, error) {
	s, err := m.Get(id)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.Close(ctx, confirmed); err != nil {
		return s.Snapshot(), fmt.Errorf("service.Sessions.End: %w", err)
	}
	m.mu.Lock()
	_, present := m.byID[id]
	delete(m.byID, id)
	m.mu.Unlock()
	snap := s.Snapshot()
	if present {
		sessionsOpen.Dec()
		sessionsEndedTotal.WithLabelValues(outcome(snap)).Inc()
	}
	return snap, nil
}

// CloseAll ends every open session as unconfirmed, discarding all drafts.
// Used on shutdown. Errors from individual sessions are joined.
func (m *Sessions) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.byID))
	for id := range m.byID {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if _, err := m.End(ctx, id, false); err != nil && !errors.Is(err, domain.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sweep ends every session idle for longer than the idle timeout, as
// unconfirmed, and returns how many it ended. Sessions still loading photos
// are skipped. A session whose Close fails stays registered and is retried
// on the next sweep.
func (m *Sessions) Sweep(ctx context.Context) int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)
	m.mu.Lock()
	var idle []*Session
	for _, e := range m.byID {
		if e.lastSeen.Before(cutoff) {
			idle = append(idle, e.session)
		}
	}
	m.mu.Unlock()

	var ended int
	for _, s := range idle {
		if s.Snapshot().Loading || !m.idleSince(s.ID(), cutoff) {
			continue
		}
		if _, err := m.End(ctx, s.ID(), false); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				m.log.WarnContext(ctx, "idle session close failed", "session_id", s.ID(), "error", err)
			}
			continue
		}
		ended++
	}
	if ended > 0 {
		m.log.InfoContext(ctx, "idle sessions ended", "count", ended)
	}
	return ended
}

// idleSince reports whether the session is still registered and was last
// looked up before cutoff.
func (m *Sessions) idleSince(id uuid.UUID, cutoff time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	return ok && e.lastSeen.Before(cutoff)
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Sessions) RunSweeper(ctx context.Context, interval time.Duration) {
	if m.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Len returns the number of open sessions.
func (m *Sessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

func (m *Sessions) add(s *Session) {
	m.mu.Lock()
	m.byID[s.ID()] = &entry{session: s, lastSeen: m.now()}
	m.mu.Unlock()
	sessionsOpen.Inc()
}
