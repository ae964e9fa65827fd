package domain

import (
	"errors"
	"time"
)

// ErrLocationNotFound is returned when a query matches no gazetteer entry.
var ErrLocationNotFound = errors.New("location not found")

// PlaceKind distinguishes country-level from city-level gazetteer entries.
type PlaceKind string

const (
	KindCountry PlaceKind = "country"
	KindCity    PlaceKind = "city"
)

// MatchKind reports how a ResolvedLocation was obtained.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchFuzzy    MatchKind = "fuzzy"
	MatchNotFound MatchKind = "not_found"
)

// PlaceNames holds the primary name of a place and its alternate spellings
// (other alphabets, local names, common abbreviations).
type PlaceNames struct {
	Primary string   `json:"primary" yaml:"primary"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// GazetteerEntry is one immutable row of reference data.
type GazetteerEntry struct {
	Names       PlaceNames `json:"names" yaml:"names"`
	Lat         float64    `json:"lat" yaml:"lat"`
	Lng         float64    `json:"lng" yaml:"lng"`
	Kind        PlaceKind  `json:"kind" yaml:"kind"`
	DefaultZoom int        `json:"default_zoom" yaml:"default_zoom"`
	Code        string     `json:"code,omitempty" yaml:"code,omitempty"` // ISO 3166 alpha-2 for countries
}

// LocationQuery is a single user search action.
type LocationQuery struct {
	RawText  string `json:"query"`
	Language string `json:"lang,omitempty"`
}

// ResolvedLocation is the normalized target consumed by viewport controllers.
type ResolvedLocation struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Zoom      int       `json:"zoom"`
	Label     string    `json:"label"`
	MatchKind MatchKind `json:"match_kind"`
	Kind      PlaceKind `json:"kind,omitempty"`
	Code      string    `json:"code,omitempty"`
	Distance  int       `json:"distance,omitempty"` // edit distance for fuzzy matches
}

// Found reports whether the location carries a usable coordinate.
func (l ResolvedLocation) Found() bool {
	return l.MatchKind == MatchExact || l.MatchKind == MatchFuzzy
}

// NotFound builds the canonical empty result.
func NotFound() ResolvedLocation {
	return ResolvedLocation{MatchKind: MatchNotFound}
}

// ExternalHighlight is a programmatic request to show a country,
// identified by primary name, alias, or ISO code.
type ExternalHighlight struct {
	Country string `json:"country"`
}

// ViewportState is the last camera position commanded by a controller.
type ViewportState struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zoom int     `json:"zoom"`
}

// CameraCommand is the wire form of a setCamera call on the map widget.
type CameraCommand struct {
	ViewportID      string    `json:"viewport_id"`
	Seq             uint64    `json:"seq"`
	Lat             float64   `json:"lat"`
	Lng             float64   `json:"lng"`
	Zoom            int       `json:"zoom"`
	Animated        bool      `json:"animated"`
	DurationSeconds float64   `json:"duration_seconds"`
	Label           string    `json:"label,omitempty"`
	IssuedAt        time.Time `json:"issued_at"`
}

// GazetteerVersion describes one imported snapshot of the gazetteer.
type GazetteerVersion struct {
	Version   string    `json:"version"`
	Status    string    `json:"status"` // staged, active or retired
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
}

// GazetteerUpdated is broadcast after an import activates a new version.
type GazetteerUpdated struct {
	Version     string    `json:"version"`
	Entries     int       `json:"entries"`
	ActivatedAt time.Time `json:"activated_at"`
}
