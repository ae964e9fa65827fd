// Package gazetteer resolves free-text place names to coordinates and zoom
// levels over an immutable table of countries and cities.
package gazetteer

import (
	"errors"
	"fmt"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

var (
	ErrEmptyName         = errors.New("gazetteer: empty primary name")
	ErrDuplicateName     = errors.New("gazetteer: duplicate primary name")
	ErrDuplicateAlias    = errors.New("gazetteer: alias registered under two entries")
	ErrDuplicateCode     = errors.New("gazetteer: country code registered under two entries")
	ErrInvalidCoordinate = errors.New("gazetteer: coordinate out of range")
	ErrUnknownKind       = errors.New("gazetteer: unknown place kind")
)

// ZoomDefaults are applied to entries loaded without a default zoom.
type ZoomDefaults struct {
	Country int
	City    int
}

// DefaultZooms keeps countries at a wide view and cities close in.
var DefaultZooms = ZoomDefaults{Country: 5, City: 11}

type place struct {
	entry   domain.GazetteerEntry
	primary []rune
	aliases [][]rune
}

// Gazetteer is the immutable, indexed reference table. It is safe for
// concurrent use because nothing mutates it after New returns.
type Gazetteer struct {
	countries []place
	cities    []place

	primary map[domain.PlaceKind]map[string]int
	alias   map[domain.PlaceKind]map[string]int
	codes   map[string]int
}

type aliasOwner struct {
	kind  domain.PlaceKind
	index int
}

// New validates entries and builds the lookup indexes. Insertion order is
// preserved per kind; it decides fuzzy-match ties.
func New(entries []domain.GazetteerEntry, zooms ZoomDefaults) (*Gazetteer, error) {
	g := &Gazetteer{
		primary: map[domain.PlaceKind]map[string]int{
			domain.KindCountry: {},
			domain.KindCity:    {},
		},
		alias: map[domain.PlaceKind]map[string]int{
			domain.KindCountry: {},
			domain.KindCity:    {},
		},
		codes: make(map[string]int),
	}

	for _, e := range entries {
		key := Normalize(e.Names.Primary)
		if key == "" {
			return nil, ErrEmptyName
		}
		if !(domain.GeoPoint{Lat: e.Lat, Lng: e.Lng}).Valid() {
			return nil, fmt.Errorf("%w: %q (%f, %f)", ErrInvalidCoordinate, e.Names.Primary, e.Lat, e.Lng)
		}

		var zoom int
		switch e.Kind {
		case domain.KindCountry:
			zoom = zooms.Country
		case domain.KindCity:
			zoom = zooms.City
		default:
			return nil, fmt.Errorf("%w: %q for %q", ErrUnknownKind, e.Kind, e.Names.Primary)
		}
		if e.DefaultZoom <= 0 {
			e.DefaultZoom = zoom
		}

		byName := g.primary[e.Kind]
		if _, dup := byName[key]; dup {
			return nil, fmt.Errorf("%w: %s %q", ErrDuplicateName, e.Kind, e.Names.Primary)
		}

		// Copy aliases so callers cannot mutate the table through their slice.
		e.Names.Aliases = append([]string(nil), e.Names.Aliases...)

		p := place{entry: e, primary: []rune(key)}
		idx := len(g.table(e.Kind))
		byName[key] = idx
		if e.Kind == domain.KindCountry && e.Code != "" {
			ck := Normalize(e.Code)
			if j, dup := g.codes[ck]; dup {
				return nil, fmt.Errorf("%w: %q (%q and %q)", ErrDuplicateCode, e.Code,
					g.countries[j].entry.Names.Primary, e.Names.Primary)
			}
			g.codes[ck] = idx
		}

		seen := map[string]bool{key: true}
		for _, a := range e.Names.Aliases {
			ak := Normalize(a)
			if ak == "" || seen[ak] {
				continue
			}
			seen[ak] = true
			p.aliases = append(p.aliases, []rune(ak))
		}

		if e.Kind == domain.KindCountry {
			g.countries = append(g.countries, p)
		} else {
			g.cities = append(g.cities, p)
		}
	}

	// Aliases are indexed once every primary name is known so an alias that
	// shadows a later entry's primary name is caught too.
	owners := make(map[string]aliasOwner)
	for _, kind := range []domain.PlaceKind{domain.KindCountry, domain.KindCity} {
		for i, p := range g.table(kind) {
			for _, ar := range p.aliases {
				ak := string(ar)
				if other, ok := owners[ak]; ok {
					return nil, fmt.Errorf("%w: %q (%q and %q)", ErrDuplicateAlias, ak,
						g.table(other.kind)[other.index].entry.Names.Primary, p.entry.Names.Primary)
				}
				if j, ok := g.primary[kind][ak]; ok && j != i {
					return nil, fmt.Errorf("%w: %q is the primary name of %q", ErrDuplicateAlias, ak,
						g.table(kind)[j].entry.Names.Primary)
				}
				owners[ak] = aliasOwner{kind: kind, index: i}
				g.alias[kind][ak] = i
			}
		}
	}

	return g, nil
}

func (g *Gazetteer) table(kind domain.PlaceKind) []place {
	if kind == domain.KindCountry {
		return g.countries
	}
	return g.cities
}

// Len returns the number of entries of the given kind.
func (g *Gazetteer) Len(kind domain.PlaceKind) int {
	return len(g.table(kind))
}

// Entries returns a copy of the entries of one kind in insertion order.
func (g *Gazetteer) Entries(kind domain.PlaceKind) []domain.GazetteerEntry {
	t := g.table(kind)
	out := make([]domain.GazetteerEntry, len(t))
	for i, p := range t {
		out[i] = p.entry
		out[i].Names.Aliases = append([]string(nil), p.entry.Names.Aliases...)
	}
	return out
}

// LookupCountry finds a country by primary name, alias, or ISO code.
// Only exact (normalized) matches are accepted.
func (g *Gazetteer) LookupCountry(nameOrCode string) (domain.ResolvedLocation, bool) {
	key := Normalize(nameOrCode)
	if key == "" {
		return domain.NotFound(), false
	}
	for _, idx := range []map[string]int{g.primary[domain.KindCountry], g.alias[domain.KindCountry], g.codes} {
		if i, ok := idx[key]; ok {
			return locationOf(g.countries[i].entry, domain.MatchExact, 0), true
		}
	}
	return domain.NotFound(), false
}

func locationOf(e domain.GazetteerEntry, match domain.MatchKind, distance int) domain.ResolvedLocation {
	return domain.ResolvedLocation{
		Lat:       e.Lat,
		Lng:       e.Lng,
		Zoom:      e.DefaultZoom,
		Label:     e.Names.Primary,
		MatchKind: match,
		Kind:      e.Kind,
		Code:      e.Code,
		Distance:  distance,
	}
}
