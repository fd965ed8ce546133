package handler

import (
	"net/http"

	"github.com/niabis/backend/internal/address"
)

// listLocations handles GET /locations.
func (s *Server) listLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.locations.List(r.Context())
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}
	data := make([]Location, len(locs))
	for i, l := range locs {
		data[i] = toLocation(l)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// getLocation handles GET /locations/{locationId}.
func (s *Server) getLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "locationId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	loc, err := s.locations.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, toLocation(loc))
}

// getAddress handles GET /locations/{locationId}/address?style=full|short.
// An empty address is a normal result, not an error.
func (s *Server) getAddress(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "locationId")
	if err != nil {
		requestError(w, err.Error())
		return
	}
	style, err := address.ParseStyle(r.URL.Query().Get("style"))
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}
	text, err := s.locations.Address(r.Context(), id, style)
	if err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"style": style.String(), "address": text})
}

// listTags handles GET /tags?q=prefix.
func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.locations.Tags(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.respondError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": tags})
}
