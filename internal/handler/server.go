// Package handler implements the HTTP API a NiaBis client drives.
// All handlers are methods on Server. Methods are split into files by
// resource (health.go, location.go, session.go, photos.go, events.go) but
// share the same Server struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/niabis/backend/internal/address"
	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/service"
)

// LocationServicer defines the read operations the location handlers depend on.
// Declared here, in the consumer package, so tests can inject a mock.
type LocationServicer interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error)
	List(ctx context.Context) ([]domain.Location, error)
	Address(ctx context.Context, id uuid.UUID, style address.Style) (string, error)
	Tags(ctx context.Context, prefix string) ([]string, error)
}

// SessionManager defines the session registry operations the session
// handlers depend on. *service.Sessions satisfies it.
type SessionManager interface {
	StartDraft(ctx context.Context, loc domain.Location) (*service.Session, error)
	OpenExisting(ctx context.Context, locationID uuid.UUID) (*service.Session, error)
	Get(id uuid.UUID) (*service.Session, error)
	End(ctx context.Context, id uuid.UUID, confirmed bool) (service.Snapshot, error)
}

// Options carries the optional settings of a Server.
type Options struct {
	// RedirectURL is returned to the client when a session closes.
	RedirectURL string

	// MultipartMemory is how much of a photo upload is held in memory before
	// spilling to temporary files. Defaults to 32 MiB.
	MultipartMemory int64

	Logger *slog.Logger
}

// Server serves every API endpoint.
type Server struct {
	locations LocationServicer
	sessions  SessionManager
	opts      Options
	log       *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
func NewServer(locations LocationServicer, sessions SessionManager, opts Options) *Server {
	if opts.MultipartMemory <= 0 {
		opts.MultipartMemory = 32 << 20
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{locations: locations, sessions: sessions, opts: opts, log: opts.Logger}
}

// Routes returns the API router. Cross-cutting middleware (request IDs,
// logging, CORS, body limits) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)
	r.Get("/openapi.yaml", s.getOpenAPI)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/tags", s.listTags)

	r.Route("/locations", func(r chi.Router) {
		r.Get("/", s.listLocations)
		r.Route("/{locationId}", func(r chi.Router) {
			r.Get("/", s.getLocation)
			r.Get("/address", s.getAddress)
			r.Post("/sessions", s.openSession)
		})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionId}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Patch("/", s.patchSession)
			r.Get("/events", s.streamSession)
			r.Post("/confirm", s.confirmSession)
			r.Post("/photos", s.uploadPhotos)
			r.Post("/close", s.closeSession)
			r.Delete("/location", s.deleteSessionLocation)
		})
	})

	return r
}
