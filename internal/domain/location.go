// Package domain contains the core data types for the NiaBis locations backend.
// This package depends only on uuid and is imported by every other
// internal package (repo, service, handler).
package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostalAddress is the structured, addressable part of a Location.
// Every field is independently optional; an empty string means absent.
type PostalAddress struct {
	PostalCode            string `json:"postal_code,omitempty"`
	Country               string `json:"country,omitempty"`
	State                 string `json:"state,omitempty"`
	City                  string `json:"city,omitempty"`
	SubAdministrativeArea string `json:"sub_administrative_area,omitempty"`
	SubLocality           string `json:"sub_locality,omitempty"`
	Street                string `json:"street,omitempty"`
}

// Location is one bookmarked place.
//
// PhotoURLs and PhotoDatas are independent ordered sequences: a photo is
// either remote-backed or locally embedded, never both. Insertion order is
// display order for both.
type Location struct {
	ID        uuid.UUID
	Name      string
	Content   string
	CreatedAt time.Time
	UpdatedAt *time.Time // nil until the first edit

	PostalAddress

	PhoneNumber *string
	URL         *url.URL
	Budget      int
	StarCount   int
	Tags        TagSet
	PhotoURLs   []string
	PhotoDatas  [][]byte
}

// NewLocation returns a Location with a fresh ID and CreatedAt set to now.
func NewLocation(name string) Location {
	return Location{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Tags:      TagSet{},
	}
}

// Clone returns a deep copy of l. Mutating the copy never affects l.
func (l Location) Clone() Location {
	c := l
	if l.UpdatedAt != nil {
		t := *l.UpdatedAt
		c.UpdatedAt = &t
	}
	if l.PhoneNumber != nil {
		p := *l.PhoneNumber
		c.PhoneNumber = &p
	}
	if l.URL != nil {
		u := *l.URL
		if l.URL.User != nil {
			ui := *l.URL.User
			u.User = &ui
		}
		c.URL = &u
	}
	c.Tags = l.Tags.Clone()
	if l.PhotoURLs != nil {
		c.PhotoURLs = append([]string(nil), l.PhotoURLs...)
	}
	if l.PhotoDatas != nil {
		c.PhotoDatas = make([][]byte, len(l.PhotoDatas))
		for i, d := range l.PhotoDatas {
			c.PhotoDatas[i] = append([]byte(nil), d...)
		}
	}
	return c
}

// AppendPhotoDatas appends payloads after any existing entries.
// Existing entries keep their positions.
func (l *Location) AppendPhotoDatas(datas ...[]byte) {
	l.PhotoDatas = append(l.PhotoDatas, datas...)
}

// HasPhotos reports whether the location has any remote or embedded photo.
func (l Location) HasPhotos() bool {
	return len(l.PhotoURLs) > 0 || len(l.PhotoDatas) > 0
}

// Website returns the host part of URL, or "" when no usable URL is set.
func (l Location) Website() string {
	if l.URL == nil {
		return ""
	}
	return l.URL.Hostname()
}

// PhoneURL returns a tel:// URL for PhoneNumber with whitespace removed,
// or nil when no dialable number is set.
func (l Location) PhoneURL() *url.URL {
	if l.PhoneNumber == nil {
		return nil
	}
	number := strings.Join(strings.Fields(*l.PhoneNumber), "")
	if number == "" {
		return nil
	}
	u, err := url.Parse("tel://" + number)
	if err != nil {
		return nil
	}
	return u
}
