package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/media"
)

// LocationStore is the storage collaborator a Session writes through.
// repo.LocationRepo satisfies it.
type LocationStore interface {
	Insert(ctx context.Context, loc domain.Location) error
	Commit(ctx context.Context, loc domain.Location) error
	Update(ctx context.Context, loc domain.Location) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Ingester resolves a batch of picked photos. *media.Pipeline satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, handles []media.Handle, r media.Resolver) [][]byte
}

// Snapshot is an immutable view of a Session published to subscribers.
// Version increases with every change; a subscriber that sees a lower
// Version than one it already handled can drop it.
type Snapshot struct {
	SessionID uuid.UUID
	Version   uint64
	Record    domain.Location
	State     domain.LifecycleState
	IsNew     bool
	Loading   bool
	Closed    bool
}

// Session is the editing session for one Location: the single owner of the
// record, its lifecycle state and the photo-loading flag.
//
// All methods are safe for concurrent use. Storage calls run while the
// session is locked, so operations on one session are serialized. Photo
// resolution runs unlocked; only the final append takes the lock.
type Session struct {
	id       uuid.UUID
	store    LocationStore
	ingester Ingester
	log      *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	record  domain.Location
	state   domain.LifecycleState
	isNew   bool
	loading bool
	closed  bool
	version uint64
	subs    map[int]func(Snapshot)
	nextSub int
}

// SessionOption customises a Session.
type SessionOption func(*Session)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithLogger sets the session logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

func newSession(store LocationStore, ingester Ingester, loc domain.Location, state domain.LifecycleState, opts []SessionOption) *Session {
	s := &Session{
		id:       uuid.New(),
		store:    store,
		ingester: ingester,
		log:      slog.Default(),
		now:      time.Now,
		record:   loc.Clone(),
		state:    state,
		isNew:    state == domain.StateDraft,
		subs:     map[int]func(Snapshot){},
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("session_id", s.id, "location_id", loc.ID)
	return s
}

// NewDraft starts a session for a location that does not exist yet.
// A hidden placeholder is inserted immediately; it stays invisible to readers
// until Confirm and is removed by Close if the draft is never confirmed.
// A nil ID or zero CreatedAt is filled in.
func NewDraft(ctx context.Context, store LocationStore, ingester Ingester, loc domain.Location, opts ...SessionOption) (*Session, error) {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	s := newSession(store, ingester, loc, domain.StateDraft, opts)
	if s.record.CreatedAt.IsZero() {
		s.record.CreatedAt = s.now().UTC()
	}
	if s.record.Tags == nil {
		s.record.Tags = domain.TagSet{}
	}
	if err := store.Insert(ctx, s.record); err != nil {
		return nil, fmt.Errorf("service.NewDraft: %w", err)
	}
	s.log.DebugContext(ctx, "draft started")
	return s, nil
}

// Open starts a session for a location already loaded from storage.
func Open(store LocationStore, ingester Ingester, loc domain.Location, opts ...SessionOption) *Session {
	return newSession(store, ingester, loc, domain.StatePersisted, opts)
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID { return s.id }

// Snapshot returns the current state of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive a Snapshot after every change and
// returns a function that unregisters it. fn runs on the goroutine that made
// the change, after the session is unlocked.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Edit applies fn to a copy of the record. A persisted record is written
// through to storage before the change becomes visible; a draft changes in
// memory only. ID and CreatedAt are restored after fn, so they never change.
// Returns domain.ErrNotFound once the record has been deleted.
func (s *Session) Edit(ctx context.Context, fn func(*domain.Location)) error {
	return s.change(func() error {
		if s.state.Terminal() {
			return fmt.Errorf("service.Session.Edit: %w", domain.ErrNotFound)
		}
		next := s.record.Clone()
		fn(&next)
		next.ID, next.CreatedAt = s.record.ID, s.record.CreatedAt
		now := s.now().UTC()
		next.UpdatedAt = &now
		if next.Tags == nil {
			next.Tags = domain.TagSet{}
		}
		if err := s.writeThroughLocked(ctx, next); err != nil {
			return fmt.Errorf("service.Session.Edit: %w", err)
		}
		s.record = next
		return nil
	})
}

// Confirm makes a draft durable and visible to other readers.
// It is a no-op once the record is persisted or deleted. On a storage error
// the record stays a draft.
func (s *Session) Confirm(ctx context.Context) error {
	return s.change(func() error { return s.confirmLocked(ctx) })
}

// Delete removes the record. A persisted record is deleted from storage; a
// draft is discarded. It is a no-op once the record is deleted.
func (s *Session) Delete(ctx context.Context) error {
	return s.change(func() error {
		switch s.state {
		case domain.StateDraft:
			return s.discardLocked(ctx)
		case domain.StatePersisted:
			if err := s.deleteStoredLocked(ctx); err != nil {
				return fmt.Errorf("service.Session.Delete: %w", err)
			}
			s.state = domain.StateDeleted
			s.log.InfoContext(ctx, "location deleted")
		}
		return nil
	})
}

// Close is the screen-close hook. confirmed reports whether the user
// confirmed the record during this session: a draft is then confirmed,
// otherwise it is discarded unconditionally, edits included. A persisted or
// deleted record is left alone. Closing twice is a no-op.
// On a storage error the session stays open so Close can be retried.
func (s *Session) Close(ctx context.Context, confirmed bool) error {
	return s.change(func() error {
		if s.closed {
			return nil
		}
		if s.state == domain.StateDraft {
			var err error
			if confirmed {
				err = s.confirmLocked(ctx)
			} else {
				err = s.discardLocked(ctx)
			}
			if err != nil {
				return fmt.Errorf("service.Session.Close: %w", err)
			}
		}
		s.closed = true
		return nil
	})
}

// Ingest resolves a batch of picked photos and appends the ones that
// resolved to the record's PhotoDatas, in completion order. Failed items are
// skipped. It returns how many payloads were appended.
//
// Only one batch runs at a time: a batch submitted while another is loading
// is rejected with domain.ErrIngestionInProgress. If the record is discarded
// while the batch is loading, the payloads are dropped.
func (s *Session) Ingest(ctx context.Context, handles []media.Handle, r media.Resolver) (int, error) {
	if err := s.beginIngest(); err != nil {
		return 0, err
	}
	defer s.endIngest()

	payloads := s.ingester.Ingest(ctx, handles, r)

	var appended int
	err := s.change(func() error {
		if s.state.Terminal() {
			s.log.DebugContext(ctx, "photo batch dropped, record deleted", "payloads", len(payloads))
			return nil
		}
		if len(payloads) == 0 {
			return nil
		}
		next := s.record.Clone()
		next.AppendPhotoDatas(payloads...)
		if err := s.writeThroughLocked(ctx, next); err != nil {
			return fmt.Errorf("service.Session.Ingest: %w", err)
		}
		s.record = next
		appended = len(payloads)
		return nil
	})
	return appended, err
}

func (s *Session) beginIngest() error {
	return s.change(func() error {
		if s.loading {
			return domain.ErrIngestionInProgress
		}
		s.loading = true
		return nil
	})
}

func (s *Session) endIngest() {
	_ = s.change(func() error {
		s.loading = false
		return nil
	})
}

// change runs fn under the lock and, if the session changed, publishes a
// snapshot to subscribers after unlocking.
func (s *Session) change(fn func() error) error {
	s.mu.Lock()
	before := s.fingerprintLocked()
	err := fn()
	var (
		snap Snapshot
		subs []func(Snapshot)
	)
	changed := before != s.fingerprintLocked()
	if changed {
		s.version++
		snap = s.snapshotLocked()
		subs = make([]func(Snapshot), 0, len(s.subs))
		for _, f := range s.subs {
			subs = append(subs, f)
		}
	}
	s.mu.Unlock()

	for _, f := range subs {
		f(snap)
	}
	return err
}

// fingerprint captures the fields whose change must be published. The
// record is compared by its UpdatedAt pointer and photo count, both of which
// every record mutation replaces.
type fingerprint struct {
	state     domain.LifecycleState
	loading   bool
	closed    bool
	updatedAt *time.Time
	photos    int
}

func (s *Session) fingerprintLocked() fingerprint {
	return fingerprint{
		state:     s.state,
		loading:   s.loading,
		closed:    s.closed,
		updatedAt: s.record.UpdatedAt,
		photos:    len(s.record.PhotoDatas),
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID: s.id,
		Version:   s.version,
		Record:    s.record.Clone(),
		State:     s.state,
		IsNew:     s.isNew,
		Loading:   s.loading,
		Closed:    s.closed,
	}
}

func (s *Session) confirmLocked(ctx context.Context) error {
	if s.state != domain.StateDraft {
		return nil
	}
	if err := validateLocation(s.record); err != nil {
		return err
	}
	if err := s.store.Commit(ctx, s.record); err != nil {
		return fmt.Errorf("service.Session.Confirm: %w", err)
	}
	s.state = domain.StatePersisted
	s.log.InfoContext(ctx, "location confirmed")
	return nil
}

// discardLocked removes the draft placeholder. A placeholder that is
// already gone counts as removed.
func (s *Session) discardLocked(ctx context.Context) error {
	if err := s.deleteStoredLocked(ctx); err != nil {
		return fmt.Errorf("service.Session.discard: %w", err)
	}
	s.state = domain.StateDeleted
	s.log.InfoContext(ctx, "draft discarded")
	return nil
}

func (s *Session) deleteStoredLocked(ctx context.Context) error {
	err := s.store.Delete(ctx, s.record.ID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// writeThroughLocked persists next when the record is already durable.
// Drafts are only written by Confirm.
func (s *Session) writeThroughLocked(ctx context.Context, next domain.Location) error {
	if s.state != domain.StatePersisted {
		return nil
	}
	if err := validateLocation(next); err != nil {
		return err
	}
	return s.store.Update(ctx, next)
}

// validateLocation enforces the rules a record must meet to be persisted.
//   - ID must be set.
//   - Name must be non-empty (whitespace-only names are rejected).
//   - StarCount and Budget must not be negative, and both must fit the
//     storage integer columns.
func validateLocation(loc domain.Location) error {
	if loc.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(loc.Name) == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if loc.StarCount < 0 || loc.StarCount > math.MaxInt32 {
		return fmt.Errorf("%w: star_count must be between 0 and %d", domain.ErrValidation, math.MaxInt32)
	}
	if loc.Budget < 0 || loc.Budget > math.MaxInt32 {
		return fmt.Errorf("%w: budget must be between 0 and %d", domain.ErrValidation, math.MaxInt32)
	}
	return nil
}
