// Package repo contains all database access logic for the NiaBis backend.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/niabis/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LocationRepo defines the persistence operations for Locations.
//
// Rows written by Insert are draft placeholders: they are invisible to
// GetByID and List until Commit flips them to persisted.
type LocationRepo interface {
	// Insert stores loc as a hidden draft placeholder.
	Insert(ctx context.Context, loc domain.Location) error

	// Commit writes every field of loc and marks the row persisted,
	// inserting it if no placeholder exists.
	Commit(ctx context.Context, loc domain.Location) error

	// Update overwrites the mutable fields of a persisted location.
	// Returns domain.ErrNotFound if no persisted row with that ID exists.
	Update(ctx context.Context, loc domain.Location) error

	// Delete removes a location, draft or persisted.
	// Returns domain.ErrNotFound if no row with that ID exists.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID retrieves a persisted location.
	// Returns domain.ErrNotFound if it does not exist or is still a draft.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error)

	// List returns all persisted locations, newest first.
	List(ctx context.Context) ([]domain.Location, error)

	// PurgeDrafts deletes draft placeholders created before cutoff and
	// returns how many were removed.
	PurgeDrafts(ctx context.Context, cutoff time.Time) (int64, error)
}

// pgLocationRepo is the Postgres implementation of LocationRepo.
type pgLocationRepo struct {
	db db
}

// NewLocationRepo constructs a LocationRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewLocationRepo(db db) LocationRepo {
	return &pgLocationRepo{db: db}
}

const locationColumns = `
	id, name, content, created_at, updated_at,
	postal_code, country, state, city, sub_administrative_area, sub_locality, street,
	phone_number, url, budget, star_count, tags, photo_urls, photo_datas`

func (r *pgLocationRepo) Insert(ctx context.Context, loc domain.Location) error {
	const q = `
		INSERT INTO locations (` + locationColumns + `, is_draft)
		VALUES (
			@id, @name, @content, @created_at, @updated_at,
			@postal_code, @country, @state, @city, @sub_administrative_area, @sub_locality, @street,
			@phone_number, @url, @budget, @star_count, @tags, @photo_urls, @photo_datas,
			TRUE)`

	if _, err := r.db.Exec(ctx, q, locationArgs(loc)); err != nil {
		return fmt.Errorf("repo.LocationRepo.Insert: %w", err)
	}
	return nil
}

// Commit upserts so a draft whose placeholder was purged can still be saved.
// created_at is never overwritten on conflict.
func (r *pgLocationRepo) Commit(ctx context.Context, loc domain.Location) error {
	const q = `
		INSERT INTO locations (` + locationColumns + `, is_draft)
		VALUES (
			@id, @name, @content, @created_at, @updated_at,
			@postal_code, @country, @state, @city, @sub_administrative_area, @sub_locality, @street,
			@phone_number, @url, @budget, @star_count, @tags, @photo_urls, @photo_datas,
			FALSE)
		ON CONFLICT (id) DO UPDATE SET
			name                    = EXCLUDED.name,
			content                 = EXCLUDED.content,
			updated_at              = EXCLUDED.updated_at,
			postal_code             = EXCLUDED.postal_code,
			country                 = EXCLUDED.country,
			state                   = EXCLUDED.state,
			city                    = EXCLUDED.city,
			sub_administrative_area = EXCLUDED.sub_administrative_area,
			sub_locality            = EXCLUDED.sub_locality,
			street                  = EXCLUDED.street,
			phone_number            = EXCLUDED.phone_number,
			url                     = EXCLUDED.url,
			budget                  = EXCLUDED.budget,
			star_count              = EXCLUDED.star_count,
			tags                    = EXCLUDED.tags,
			photo_urls              = EXCLUDED.photo_urls,
			photo_datas             = EXCLUDED.photo_datas,
			is_draft                = FALSE`

	if _, err := r.db.Exec(ctx, q, locationArgs(loc)); err != nil {
		return fmt.Errorf("repo.LocationRepo.Commit: %w", err)
	}
	return nil
}

func (r *pgLocationRepo) Update(ctx context.Context, loc domain.Location) error {
	const q = `
		UPDATE locations
		SET name                    = @name,
		    content                 = @content,
		    updated_at              = @updated_at,
		    postal_code             = @postal_code,
		    country                 = @country,
		    state                   = @state,
		    city                    = @city,
		    sub_administrative_area = @sub_administrative_area,
		    sub_locality            = @sub_locality,
		    street                  = @street,
		    phone_number            = @phone_number,
		    url                     = @url,
		    budget                  = @budget,
		    star_count              = @star_count,
		    tags                    = @tags,
		    photo_urls              = @photo_urls,
		    photo_datas             = @photo_datas
		WHERE id = @id AND NOT is_draft`

	tag, err := r.db.Exec(ctx, q, locationArgs(loc))
	if err != nil {
		return fmt.Errorf("repo.LocationRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.LocationRepo.Update: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgLocationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM locations WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.LocationRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.LocationRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgLocationRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Location, error) {
	const q = `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE id = @id AND NOT is_draft`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanLocation(row)
	if err != nil {
		return domain.Location{}, fmt.Errorf("repo.LocationRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgLocationRepo) List(ctx context.Context) ([]domain.Location, error) {
	const q = `
		SELECT ` + locationColumns + `
		FROM locations
		WHERE NOT is_draft
		ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: %w", err)
	}
	defer rows.Close()

	locations := []domain.Location{}
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.LocationRepo.List: scan: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.LocationRepo.List: rows: %w", err)
	}
	return locations, nil
}

func (r *pgLocationRepo) PurgeDrafts(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM locations WHERE is_draft AND created_at < @cutoff`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("repo.LocationRepo.PurgeDrafts: %w", err)
	}
	return tag.RowsAffected(), nil
}

// locationArgs maps every column of loc to its named query argument.
func locationArgs(loc domain.Location) pgx.NamedArgs {
	var rawURL *string
	if loc.URL != nil {
		s := loc.URL.String()
		rawURL = &s
	}
	photoURLs := loc.PhotoURLs
	if photoURLs == nil {
		photoURLs = []string{}
	}
	photoDatas := loc.PhotoDatas
	if photoDatas == nil {
		photoDatas = [][]byte{}
	}
	return pgx.NamedArgs{
		"id":                      loc.ID,
		"name":                    loc.Name,
		"content":                 loc.Content,
		"created_at":              loc.CreatedAt,
		"updated_at":              loc.UpdatedAt, // nil becomes NULL
		"postal_code":             loc.PostalCode,
		"country":                 loc.Country,
		"state":                   loc.State,
		"city":                    loc.City,
		"sub_administrative_area": loc.SubAdministrativeArea,
		"sub_locality":            loc.SubLocality,
		"street":                  loc.Street,
		"phone_number":            loc.PhoneNumber,
		"url":                     rawURL,
		"budget":                  loc.Budget,
		"star_count":              loc.StarCount,
		"tags":                    loc.Tags.Sorted(),
		"photo_urls":              photoURLs,
		"photo_datas":             photoDatas,
	}
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanLocation maps a single database row into a domain.Location.
// A stored URL that no longer parses is dropped rather than failing the read.
func scanLocation(s scanner) (domain.Location, error) {
	var (
		loc       domain.Location
		id        pgtype.UUID
		updatedAt pgtype.Timestamptz
		rawURL    *string
		tags      []string
	)

	err := s.Scan(
		&id, &loc.Name, &loc.Content, &loc.CreatedAt, &updatedAt,
		&loc.PostalCode, &loc.Country, &loc.State, &loc.City,
		&loc.SubAdministrativeArea, &loc.SubLocality, &loc.Street,
		&loc.PhoneNumber, &rawURL, &loc.Budget, &loc.StarCount,
		&tags, &loc.PhotoURLs, &loc.PhotoDatas,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Location{}, domain.ErrNotFound
		}
		return domain.Location{}, err
	}

	loc.ID = uuid.UUID(id.Bytes)
	if updatedAt.Valid {
		t := updatedAt.Time
		loc.UpdatedAt = &t
	}
	if rawURL != nil {
		if u, err := url.Parse(*rawURL); err == nil {
			loc.URL = u
		}
	}
	loc.Tags = domain.NewTagSet(tags...)
	return loc, nil
}
