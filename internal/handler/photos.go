package handler

import (
	"errors"
	"net/http"

	"github.com/niabis/backend/internal/media"
)

// photosField is the multipart field that carries the picked photos.
const photosField = "photos"

// uploadPhotos handles POST /sessions/{sessionId}/photos.
//
// The request is a multipart form with one or more files in the "photos"
// field. The handler blocks until every file has been resolved; files that
// are not images are skipped. A batch sent while another is still loading is
// rejected with 409.
func (s *Server) uploadPhotos(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(s.opts.MultipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, r, err, "")
			return
		}
		requestError(w, "expected a multipart/form-data body")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File[photosField]
	if len(files) == 0 {
		requestError(w, `at least one file is required in the "photos" field`)
		return
	}

	resolver, handles := media.NewMultipartResolver(files)
	n, err := sess.Ingest(r.Context(), handles, resolver)
	if err != nil {
		s.respondError(w, r, err, "location not found")
		return
	}
	writeJSON(w, http.StatusOK, PhotosResponse{
		Submitted: len(handles),
		Appended:  n,
		Session:   toSession(sess.Snapshot()),
	})
}
