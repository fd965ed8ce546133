package handler_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/handler"
)

// readEvent reads one server-sent event and decodes its data line.
func readEvent(t *testing.T, r *bufio.Reader) handler.Session {
	t.Helper()
	var data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok {
			data = v
		}
	}
	var s handler.Session
	require.NoError(t, json.Unmarshal([]byte(data), &s))
	return s
}

func TestStreamSession(t *testing.T) {
	env := newEnv(nil)
	created := env.startDraft(t, handler.LocationPatch{Name: ptr("Shop A")})
	sess, err := env.sessions.Get(created.SessionID)
	require.NoError(t, err)

	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/sessions/"+created.SessionID.String()+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	events := bufio.NewReader(resp.Body)

	first := readEvent(t, events)
	assert.Equal(t, "draft", first.State)

	require.NoError(t, sess.Edit(t.Context(), func(l *domain.Location) { l.Content = "notes" }))
	edited := readEvent(t, events)
	assert.Equal(t, "notes", edited.Location.Content)
	assert.Greater(t, edited.Version, first.Version)

	_, err = env.sessions.End(t.Context(), created.SessionID, true)
	require.NoError(t, err)
	last := readEvent(t, events)
	assert.True(t, last.Closed)
	assert.Equal(t, "persisted", last.State)
}

func TestStreamSession_NotFound(t *testing.T) {
	env := newEnv(nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/sessions/00000000-0000-0000-0000-000000000001/events", nil))

	requireErrorCode(t, rec, http.StatusNotFound, "not_found")
}
