package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niabis/backend/internal/address"
	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/handler"
)

func locationFixture() domain.Location {
	loc := domain.NewLocation("Ramen Zunda")
	loc.Street = "1-2-3 Jingumae"
	loc.City = "Shibuya"
	loc.State = "Tokyo"
	loc.PostalCode = "150-0001"
	loc.Country = "JP"
	loc.PhoneNumber = ptr("03 1234 5678")
	loc.URL, _ = url.Parse("https://ramen.example.com/menu")
	loc.StarCount = 4
	loc.Tags = domain.NewTagSet("ramen", "late-night")
	loc.PhotoURLs = []string{"https://cdn.example.com/1.jpg"}
	loc.PhotoDatas = [][]byte{pngData(1)}
	return loc
}

func TestListLocations(t *testing.T) {
	loc := locationFixture()
	env := newEnv(&mockLocationServicer{
		list: func(context.Context) ([]domain.Location, error) { return []domain.Location{loc}, nil },
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct{ Data []handler.Location }](t, rec)
	require.Len(t, body.Data, 1)
	got := body.Data[0]
	assert.Equal(t, loc.ID, got.ID)
	assert.Equal(t, "Ramen Zunda", got.Name)
	assert.Equal(t, "Tokyo", got.State)
	assert.Equal(t, "Shibuya 1-2-3 Jingumae", got.ShortAddress)
	assert.Contains(t, got.Address, "〒150-0001")
	assert.Equal(t, "tel://0312345678", got.PhoneURL)
	assert.Equal(t, "ramen.example.com", got.Website)
	assert.Equal(t, []string{"late-night", "ramen"}, got.Tags)
	assert.Equal(t, [][]byte{pngData(1)}, got.PhotoDatas)
	assert.Equal(t, []string{"image/png"}, got.PhotoTypes)
	assert.True(t, got.HasPhotos)
}

func TestListLocations_empty(t *testing.T) {
	env := newEnv(&mockLocationServicer{
		list: func(context.Context) ([]domain.Location, error) { return []domain.Location{}, nil },
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestListLocations_ServiceError(t *testing.T) {
	env := newEnv(&mockLocationServicer{
		list: func(context.Context) ([]domain.Location, error) { return nil, errors.New("db down") },
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations", nil))

	requireErrorCode(t, rec, http.StatusInternalServerError, "internal_error")
}

func TestGetLocation(t *testing.T) {
	loc := locationFixture()
	env := newEnv(&mockLocationServicer{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Location, error) {
			assert.Equal(t, loc.ID, id)
			return loc, nil
		},
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/"+loc.ID.String(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[handler.Location](t, rec)
	assert.Equal(t, "https://ramen.example.com/menu", got.URL)
}

func TestGetLocation_NotFound(t *testing.T) {
	env := newEnv(&mockLocationServicer{
		getByID: func(context.Context, uuid.UUID) (domain.Location, error) {
			return domain.Location{}, domain.ErrNotFound
		},
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/"+uuid.NewString(), nil))

	requireErrorCode(t, rec, http.StatusNotFound, "not_found")
}

func TestGetLocation_InvalidID(t *testing.T) {
	env := newEnv(nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/not-a-uuid", nil))

	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "validation_error")
}

func TestGetAddress(t *testing.T) {
	cases := []struct {
		query string
		style address.Style
	}{
		{"", address.Full},
		{"?style=full", address.Full},
		{"?style=short", address.Short},
	}
	for _, tc := range cases {
		t.Run(tc.style.String()+tc.query, func(t *testing.T) {
			id := uuid.New()
			env := newEnv(&mockLocationServicer{
				address: func(_ context.Context, got uuid.UUID, style address.Style) (string, error) {
					assert.Equal(t, id, got)
					assert.Equal(t, tc.style, style)
					return "rendered", nil
				},
			})

			rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/"+id.String()+"/address"+tc.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"style":"`+tc.style.String()+`","address":"rendered"}`, rec.Body.String())
		})
	}
}

func TestGetAddress_emptyIsNotAnError(t *testing.T) {
	env := newEnv(&mockLocationServicer{
		address: func(context.Context, uuid.UUID, address.Style) (string, error) { return "", nil },
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/"+uuid.NewString()+"/address", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"style":"full","address":""}`, rec.Body.String())
}

func TestGetAddress_UnknownStyle(t *testing.T) {
	env := newEnv(nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/locations/"+uuid.NewString()+"/address?style=tiny", nil))

	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "validation_error")
}

func TestListTags(t *testing.T) {
	env := newEnv(&mockLocationServicer{
		tags: func(_ context.Context, prefix string) ([]string, error) {
			assert.Equal(t, "ra", prefix)
			return []string{"ramen"}, nil
		},
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/tags?q=ra", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":["ramen"]}`, rec.Body.String())
}
