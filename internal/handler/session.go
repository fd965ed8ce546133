package handler

import (
	"errors"
	"net/http"

	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/service"
)

const sessionNotFound = "session not found"

// createSession handles POST /sessions. It starts a draft for a new location,
// optionally seeded with the fields of a LocationPatch body.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var patch LocationPatch
	if err := decodeBody(r.Body, &patch, true); err != nil {
		s.badBody(w, r, err)
		return
	}
	edit, err := patch.edit()
	if err != nil {
		requestError(w, err.Error())
		return
	}
	loc := domain.NewLocation("")
	edit(&loc)

	sess, err := s.sessions.StartDraft(r.Context(), loc)
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID().String())
	writeJSON(w, http.StatusCreated, toSession(sess.Snapshot()))
}

// openSession handles POST /locations/{locationId}/sessions.
func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "locationId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	sess, err := s.sessions.OpenExisting(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	w.Header().Set("Location", "/sessions/"+sess.ID().String())
	writeJSON(w, http.StatusCreated, toSession(sess.Snapshot()))
}

// getSession handles GET /sessions/{sessionId}.
func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess.Snapshot()))
}

// patchSession handles PATCH /sessions/{sessionId}.
func (s *Server) patchSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var patch LocationPatch
	if err := decodeBody(r.Body, &patch, false); err != nil {
		s.badBody(w, r, err)
		return
	}
	edit, err := patch.edit()
	if err != nil {
		requestError(w, err.Error())
		return
	}
	if err := sess.Edit(r.Context(), edit); err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess.Snapshot()))
}

// confirmSession handles POST /sessions/{sessionId}/confirm.
func (s *Server) confirmSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Confirm(r.Context()); err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess.Snapshot()))
}

// deleteSessionLocation handles DELETE /sessions/{sessionId}/location.
// The session stays open so the client can still read the final state.
func (s *Server) deleteSessionLocation(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := sess.Delete(r.Context()); err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, toSession(sess.Snapshot()))
}

// closeSession handles POST /sessions/{sessionId}/close, the screen-close
// signal. An unconfirmed draft is discarded.
func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "sessionId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	var req CloseRequest
	if err := decodeBody(r.Body, &req, true); err != nil {
		s.badBody(w, r, err)
		return
	}
	snap, err := s.sessions.End(r.Context(), id, req.Confirmed)
	if err != nil {
		s.respondError(w, r, err, sessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, CloseResponse{Session: toSession(snap), RedirectURL: s.opts.RedirectURL})
}

// session resolves the {sessionId} path parameter. On failure it writes the
// error response and returns false.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	id, err := pathUUID(r, "sessionId")
	if err != nil {
		requestError(w, err.Error())
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, r, err, sessionNotFound)
		return nil, false
	}
	return sess, true
}

// badBody reports a body that could not be decoded.
func (s *Server) badBody(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondError(w, r, err, "")
		return
	}
	requestError(w, err.Error())
}
