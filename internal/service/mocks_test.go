package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/media"
	"github.com/niabis/backend/internal/repo"
	"github.com/niabis/backend/internal/service"
)

// ---- storage double --------------------------------------------------------

// memStore is an in-memory LocationStore that records every call.
// Set the *Err fields to make the next calls of that kind fail.
type memStore struct {
	mu        sync.Mutex
	rows      map[uuid.UUID]domain.Location
	drafts    map[uuid.UUID]bool
	inserts   int
	commits   int
	updates   int
	deletes   []uuid.UUID
	insertErr error
	commitErr error
	updateErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]domain.Location{}, drafts: map[uuid.UUID]bool{}}
}

func (m *memStore) Insert(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return m.insertErr
	}
	m.rows[loc.ID] = loc.Clone()
	m.drafts[loc.ID] = true
	return nil
}

func (m *memStore) Commit(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits++
	if m.commitErr != nil {
		return m.commitErr
	}
	m.rows[loc.ID] = loc.Clone()
	m.drafts[loc.ID] = false
	return nil
}

func (m *memStore) Update(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.rows[loc.ID]; !ok || m.drafts[loc.ID] {
		return domain.ErrNotFound
	}
	m.rows[loc.ID] = loc.Clone()
	return nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.rows, id)
	delete(m.drafts, id)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.rows[id]
	if !ok || m.drafts[id] {
		return domain.Location{}, domain.ErrNotFound
	}
	return loc.Clone(), nil
}

// visible reports whether id is stored and persisted.
func (m *memStore) visible(id uuid.UUID) bool {
	_, err := m.GetByID(context.Background(), id)
	return err == nil
}

// stored reports whether any row, draft or persisted, exists for id.
func (m *memStore) stored(id uuid.UUID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok
}

func (m *memStore) counts() (inserts, commits, updates, deletes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts, m.commits, m.updates, len(m.deletes)
}

// compile-time checks: memStore must satisfy both session collaborators.
var (
	_ service.LocationStore  = (*memStore)(nil)
	_ service.LocationReader = (*memStore)(nil)
)

// ---- repo doubles ----------------------------------------------------------

// mockLocationRepo is a hand-written test double for repo.LocationRepo.
type mockLocationRepo struct {
	getByID     func(ctx context.Context, id uuid.UUID) (domain.Location, error)
	list        func(ctx context.Context) ([]domain.Location, error)
	purgeDrafts func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockLocationRepo) Insert(context.Context, domain.Location) error { return nil }
func (m *mockLocationRepo) Commit(context.Context, domain.Location) error { return nil }
func (m *mockLocationRepo) Update(context.Context, domain.Location) error { return nil }
func (m *mockLocationRepo) Delete(context.Context, uuid.UUID) error       { return nil }
func (m *mockLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	return m.getByID(ctx, id)
}
func (m *mockLocationRepo) List(ctx context.Context) ([]domain.Location, error) {
	return m.list(ctx)
}
func (m *mockLocationRepo) PurgeDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.purgeDrafts(ctx, cutoff)
}

// mockTagRepo is a hand-written test double for repo.TagRepo.
type mockTagRepo struct {
	list func(ctx context.Context, prefix string) ([]string, error)
}

func (m *mockTagRepo) List(ctx context.Context, prefix string) ([]string, error) {
	return m.list(ctx, prefix)
}

var (
	_ repo.LocationRepo = (*mockLocationRepo)(nil)
	_ repo.TagRepo      = (*mockTagRepo)(nil)
)

// ---- helpers ---------------------------------------------------------------

var errStorage = errors.New("storage unavailable")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline() *media.Pipeline {
	return media.NewPipeline(quietLogger(), media.Options{})
}

// pngData returns a payload that sniffs as image/png, tagged with n.
func pngData(n byte) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), n)
}

// tableResolver resolves handles from a fixed table; missing handles fail.
func tableResolver(table map[media.Handle][]byte) media.Resolver {
	return media.ResolverFunc(func(_ context.Context, h media.Handle) ([]byte, error) {
		data, ok := table[h]
		if !ok {
			return nil, errors.New("transfer failed")
		}
		return data, nil
	})
}

// fixedClock returns a clock that always reports t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
