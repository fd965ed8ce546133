package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/niabis/backend/internal/address"
	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/handler"
	"github.com/niabis/backend/internal/media"
	"github.com/niabis/backend/internal/service"
)

// mockLocationServicer is a test double for handler.LocationServicer.
// Set only the method fields your test needs.
type mockLocationServicer struct {
	getByID func(ctx context.Context, id uuid.UUID) (domain.Location, error)
	list    func(ctx context.Context) ([]domain.Location, error)
	address func(ctx context.Context, id uuid.UUID, style address.Style) (string, error)
	tags    func(ctx context.Context, prefix string) ([]string, error)
}

func (m *mockLocationServicer) GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	return m.getByID(ctx, id)
}
func (m *mockLocationServicer) List(ctx context.Context) ([]domain.Location, error) {
	return m.list(ctx)
}
func (m *mockLocationServicer) Address(ctx context.Context, id uuid.UUID, style address.Style) (string, error) {
	return m.address(ctx, id, style)
}
func (m *mockLocationServicer) Tags(ctx context.Context, prefix string) ([]string, error) {
	return m.tags(ctx, prefix)
}

// memStore keeps locations in memory for the session registry.
type memStore struct {
	mu      sync.Mutex
	rows    map[uuid.UUID]domain.Location
	drafts  map[uuid.UUID]bool
	deletes []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{rows: map[uuid.UUID]domain.Location{}, drafts: map[uuid.UUID]bool{}}
}

func (m *memStore) Insert(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[loc.ID], m.drafts[loc.ID] = loc.Clone(), true
	return nil
}

func (m *memStore) Commit(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[loc.ID], m.drafts[loc.ID] = loc.Clone(), false
	return nil
}

func (m *memStore) Update(_ context.Context, loc domain.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
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

func (m *memStore) deleted() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]uuid.UUID(nil), m.deletes...)
}

// compile-time checks.
var (
	_ handler.LocationServicer = (*mockLocationServicer)(nil)
	_ handler.SessionManager   = (*service.Sessions)(nil)
	_ service.LocationStore    = (*memStore)(nil)
	_ service.LocationReader   = (*memStore)(nil)
)

// ---- helpers ---------------------------------------------------------------

type testEnv struct {
	store    *memStore
	sessions *service.Sessions
	handler  http.Handler
}

// newEnv wires a Server the way main.go does, with real sessions backed by
// an in-memory store. locs may be nil for tests that only touch sessions.
func newEnv(locs handler.LocationServicer) *testEnv {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := newMemStore()
	sessions := service.NewSessions(store, store, media.NewPipeline(log, media.Options{}), log)
	if locs == nil {
		locs = &mockLocationServicer{}
	}
	srv := handler.NewServer(locs, sessions, handler.Options{RedirectURL: "niabis://", Logger: log})
	return &testEnv{store: store, sessions: sessions, handler: srv.Routes()}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[handler.ErrorResponse](t, rec)
	require.Equal(t, code, body.Error.Code)
}

// startDraft creates a draft session over HTTP and returns it.
func (e *testEnv) startDraft(t *testing.T, body any) handler.Session {
	t.Helper()
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(http.MethodPost, "/sessions", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/sessions", jsonBody(t, body))
	}
	rec := e.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.Session](t, rec)
}

func ptr[T any](v T) *T { return &v }

func pngData(n byte) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\x0dIHDR"), n)
}
