package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/niabis/backend/internal/service"
)

// streamSession handles GET /sessions/{sessionId}/events.
//
// It streams the session as server-sent events: the current snapshot first,
// then one event per change. Changes that arrive faster than the client
// reads are coalesced into the latest snapshot. The stream ends when the
// session closes or the client goes away.
func (s *Server) streamSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		mu     sync.Mutex
		latest service.Snapshot
	)
	notify := make(chan struct{}, 1)
	cancel := sess.Subscribe(func(snap service.Snapshot) {
		mu.Lock()
		if snap.Version > latest.Version {
			latest = snap
		}
		mu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	})
	defer cancel()

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snap := sess.Snapshot()
	sent := snap.Version
	if err := writeEvent(w, rc, snap); err != nil || snap.Closed {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-notify:
			mu.Lock()
			snap = latest
			mu.Unlock()
			if snap.Version <= sent {
				continue
			}
			sent = snap.Version
			if err := writeEvent(w, rc, snap); err != nil || snap.Closed {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, rc *http.ResponseController, snap service.Snapshot) error {
	data, err := json.Marshal(toSession(snap))
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: session\nid: %d\ndata: %s\n\n", snap.Version, data); err != nil {
		return err
	}
	return rc.Flush()
}
