package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/niabis/backend/internal/address"
	"github.com/niabis/backend/internal/domain"
	"github.com/niabis/backend/internal/media"
	"github.com/niabis/backend/internal/service"
)

// Location is the JSON representation of a domain.Location.
type Location struct {
	ID        openapi_types.UUID `json:"id"`
	Name      string             `json:"name"`
	Content   string             `json:"content"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`

	domain.PostalAddress

	Address      string   `json:"address"`
	ShortAddress string   `json:"short_address"`
	PhoneNumber  *string  `json:"phone_number,omitempty"`
	PhoneURL     string   `json:"phone_url,omitempty"`
	URL          string   `json:"url,omitempty"`
	Website      string   `json:"website,omitempty"`
	Budget       int      `json:"budget"`
	StarCount    int      `json:"star_count"`
	Tags         []string `json:"tags"`
	PhotoURLs    []string `json:"photo_urls"`
	PhotoDatas   [][]byte `json:"photo_datas"`
	PhotoTypes   []string `json:"photo_types"`
	HasPhotos    bool     `json:"has_photos"`
}

// Session is the JSON representation of a service.Snapshot.
type Session struct {
	SessionID openapi_types.UUID `json:"session_id"`
	Version   uint64             `json:"version"`
	State     string             `json:"state"`
	IsNew     bool               `json:"is_new"`
	Loading   bool               `json:"loading"`
	Closed    bool               `json:"closed"`
	Location  Location           `json:"location"`
}

// LocationPatch is the body of PATCH /sessions/{sessionId} and, optionally,
// POST /sessions. Absent fields are left unchanged. An empty phone_number or
// url clears it; tags and photo_urls replace the whole list.
type LocationPatch struct {
	Name                  *string   `json:"name"`
	Content               *string   `json:"content"`
	PostalCode            *string   `json:"postal_code"`
	Country               *string   `json:"country"`
	State                 *string   `json:"state"`
	City                  *string   `json:"city"`
	SubAdministrativeArea *string   `json:"sub_administrative_area"`
	SubLocality           *string   `json:"sub_locality"`
	Street                *string   `json:"street"`
	PhoneNumber           *string   `json:"phone_number"`
	URL                   *string   `json:"url"`
	Budget                *int      `json:"budget"`
	StarCount             *int      `json:"star_count"`
	Tags                  *[]string `json:"tags"`
	PhotoURLs             *[]string `json:"photo_urls"`
}

// CloseRequest is the body of POST /sessions/{sessionId}/close.
type CloseRequest struct {
	Confirmed bool `json:"confirmed"`
}

// CloseResponse is returned when a session closes.
type CloseResponse struct {
	Session     Session `json:"session"`
	RedirectURL string  `json:"redirect_url,omitempty"`
}

// PhotosResponse is returned after a photo batch has been ingested.
type PhotosResponse struct {
	Submitted int     `json:"submitted"`
	Appended  int     `json:"appended"`
	Session   Session `json:"session"`
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst as is
// when optional is true.
func decodeBody(body io.Reader, dst any, optional bool) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return errors.New("request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// edit validates p and returns the mutation it describes.
func (p LocationPatch) edit() (func(*domain.Location), error) {
	var website *url.URL
	if p.URL != nil && strings.TrimSpace(*p.URL) != "" {
		u, err := url.Parse(strings.TrimSpace(*p.URL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("url %q must be an absolute URL", *p.URL)
		}
		website = u
	}
	if p.Budget != nil && (*p.Budget < 0 || *p.Budget > math.MaxInt32) {
		return nil, fmt.Errorf("budget must be between 0 and %d", math.MaxInt32)
	}
	if p.StarCount != nil && (*p.StarCount < 0 || *p.StarCount > 5) {
		return nil, errors.New("star_count must be between 0 and 5")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return nil, errors.New("name must not be blank")
	}

	return func(l *domain.Location) {
		setString(&l.Name, p.Name)
		setString(&l.Content, p.Content)
		setString(&l.PostalCode, p.PostalCode)
		setString(&l.Country, p.Country)
		setString(&l.State, p.State)
		setString(&l.City, p.City)
		setString(&l.SubAdministrativeArea, p.SubAdministrativeArea)
		setString(&l.SubLocality, p.SubLocality)
		setString(&l.Street, p.Street)
		if p.PhoneNumber != nil {
			if strings.TrimSpace(*p.PhoneNumber) == "" {
				l.PhoneNumber = nil
			} else {
				n := strings.TrimSpace(*p.PhoneNumber)
				l.PhoneNumber = &n
			}
		}
		if p.URL != nil {
			l.URL = website
		}
		if p.Budget != nil {
			l.Budget = *p.Budget
		}
		if p.StarCount != nil {
			l.StarCount = *p.StarCount
		}
		if p.Tags != nil {
			l.Tags = domain.NewTagSet(*p.Tags...)
		}
		if p.PhotoURLs != nil {
			l.PhotoURLs = append([]string{}, *p.PhotoURLs...)
		}
	}, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func toLocation(l domain.Location) Location {
	resp := Location{
		ID:            l.ID,
		Name:          l.Name,
		Content:       l.Content,
		CreatedAt:     l.CreatedAt,
		UpdatedAt:     l.UpdatedAt,
		PostalAddress: l.PostalAddress,
		Address:       address.Project(l, address.Full),
		ShortAddress:  address.Project(l, address.Short),
		PhoneNumber:   l.PhoneNumber,
		Website:       l.Website(),
		Budget:        l.Budget,
		StarCount:     l.StarCount,
		Tags:          l.Tags.Sorted(),
		PhotoURLs:     l.PhotoURLs,
		PhotoDatas:    l.PhotoDatas,
		PhotoTypes:    make([]string, len(l.PhotoDatas)),
		HasPhotos:     l.HasPhotos(),
	}
	if u := l.PhoneURL(); u != nil {
		resp.PhoneURL = u.String()
	}
	if l.URL != nil {
		resp.URL = l.URL.String()
	}
	if resp.PhotoURLs == nil {
		resp.PhotoURLs = []string{}
	}
	if resp.PhotoDatas == nil {
		resp.PhotoDatas = [][]byte{}
	}
	for i, d := range l.PhotoDatas {
		resp.PhotoTypes[i] = media.DetectType(d)
	}
	return resp
}

func toSession(snap service.Snapshot) Session {
	return Session{
		SessionID: snap.SessionID,
		Version:   snap.Version,
		State:     snap.State.String(),
		IsNew:     snap.IsNew,
		Loading:   snap.Loading,
		Closed:    snap.Closed,
		Location:  toLocation(snap.Record),
	}
}
