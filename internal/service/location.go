// Package service contains the business logic for the NiaBis backend.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/niabis/backend/internal/address"
	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/repo"
)

// LocationService implements the read side for persisted locations and
// tag suggestions. Writes go through a Session.
type LocationService struct {
	locations repo.LocationRepo
	tags      repo.TagRepo
	log       *slog.Logger
}

// NewLocationService constructs a LocationService backed by the provided repos.
func NewLocationService(locations repo.LocationRepo, tags repo.TagRepo, log *slog.Logger) *LocationService {
	if log == nil {
		log = slog.Default()
	}
	return &LocationService{locations: locations, tags: tags, log: log}
}

// GetByID returns a persisted location.
// Returns domain.ErrNotFound if it does not exist or is still a draft.
func (s *LocationService) GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.LocationService.GetByID: %w", err)
	}
	return loc, nil
}

// List returns every persisted location, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *LocationService) List(ctx context.Context) ([]domain.Location, error) {
	locs, err := s.locations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.LocationService.List: %w", err)
	}
	if locs == nil {
		return []domain.Location{}, nil
	}
	return locs, nil
}

// Address renders the postal address of a persisted location.
func (s *LocationService) Address(ctx context.Context, id uuid.UUID, style address.Style) (string, error) {
	loc, err := s.locations.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("service.LocationService.Address: %w", err)
	}
	return address.Project(loc, style), nil
}

// Tags returns the tag labels in use that start with prefix.
// Always returns a non-nil slice.
func (s *LocationService) Tags(ctx context.Context, prefix string) ([]string, error) {
	tags, err := s.tags.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("service.LocationService.Tags: %w", err)
	}
	if tags == nil {
		return []string{}, nil
	}
	return tags, nil
}

// PurgeStaleDrafts removes draft placeholders older than maxAge. These are
// left behind when the process stops before a session is closed.
func (s *LocationService) PurgeStaleDrafts(ctx context.Context, maxAge time.Duration) (int64, error) {
	n, err := s.locations.PurgeDrafts(ctx, time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("service.LocationService.PurgeStaleDrafts: %w", err)
	}
	if n > 0 {
		s.log.InfoContext(ctx, "stale drafts purged", "count", n)
	}
	return n, nil
}
