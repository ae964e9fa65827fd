package gazetteer

import (
	"sync/atomic"

	"golang.org/x/text/language"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// Options tune the matching policy. The distance thresholds and the
// country-first preference are product decisions, hence configurable.
type Options struct {
	// Inputs of at most ShortInputMaxLen runes accept ShortMaxDistance edits,
	// longer inputs accept LongMaxDistance.
	ShortInputMaxLen int
	ShortMaxDistance int
	LongMaxDistance  int

	// PreferCountries checks the country table before the city table in both
	// passes, so an ambiguous name resolves to the wider view.
	PreferCountries bool

	// PrimaryLanguage is the language of the primary names. Queries tagged
	// with any other language also search the alias channel.
	PrimaryLanguage language.Tag
}

// DefaultOptions returns the matching policy used in production.
func DefaultOptions() Options {
	return Options{
		ShortInputMaxLen: 5,
		ShortMaxDistance: 2,
		LongMaxDistance:  3,
		PreferCountries:  true,
		PrimaryLanguage:  language.English,
	}
}

// Resolver answers "what coordinate does this text refer to" against a
// Gazetteer. Resolve is safe for concurrent use.
type Resolver struct {
	g     *Gazetteer
	opts  Options
	scans atomic.Uint64
}

// NewResolver creates a Resolver over g.
func NewResolver(g *Gazetteer, opts Options) *Resolver {
	return &Resolver{g: g, opts: opts}
}

// Gazetteer returns the underlying table.
func (r *Resolver) Gazetteer() *Gazetteer { return r.g }

// Scans returns how many fuzzy full-table scans have been performed.
func (r *Resolver) Scans() uint64 { return r.scans.Load() }

// Resolve maps rawText to a location: exact match first, then the closest
// name within the length-scaled edit distance threshold. A miss is reported
// as MatchNotFound, never as an error.
func (r *Resolver) Resolve(rawText, lang string) domain.ResolvedLocation {
	q := Normalize(rawText)
	if q == "" {
		return domain.NotFound()
	}

	withAliases := r.aliasChannel(q, lang)
	if loc, ok := r.exact(q, withAliases); ok {
		return loc
	}
	return r.fuzzy(q, withAliases)
}

// Threshold returns the maximum accepted edit distance for a normalized
// query of n runes.
func (r *Resolver) Threshold(n int) int {
	if n <= r.opts.ShortInputMaxLen {
		return r.opts.ShortMaxDistance
	}
	return r.opts.LongMaxDistance
}

func (r *Resolver) kinds() [2]domain.PlaceKind {
	if r.opts.PreferCountries {
		return [2]domain.PlaceKind{domain.KindCountry, domain.KindCity}
	}
	return [2]domain.PlaceKind{domain.KindCity, domain.KindCountry}
}

func (r *Resolver) aliasChannel(q, lang string) bool {
	if lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			base, _ := tag.Base()
			primary, _ := r.opts.PrimaryLanguage.Base()
			if base != primary {
				return true
			}
		}
	}
	return hasNonLatinLetters(q)
}

func (r *Resolver) exact(q string, withAliases bool) (domain.ResolvedLocation, bool) {
	kinds := r.kinds()
	for _, kind := range kinds {
		if i, ok := r.g.primary[kind][q]; ok {
			return locationOf(r.g.table(kind)[i].entry, domain.MatchExact, 0), true
		}
	}
	if !withAliases {
		return domain.ResolvedLocation{}, false
	}
	for _, kind := range kinds {
		if i, ok := r.g.alias[kind][q]; ok {
			return locationOf(r.g.table(kind)[i].entry, domain.MatchExact, 0), true
		}
	}
	return domain.ResolvedLocation{}, false
}

func (r *Resolver) fuzzy(q string, withAliases bool) domain.ResolvedLocation {
	r.scans.Add(1)

	query := []rune(q)
	threshold := r.Threshold(len(query))
	best := threshold + 1
	var match *place

	consider := func(p *place, name []rune) {
		// Only a strictly closer candidate can replace the current best, so
		// the search bound shrinks as matches improve.
		limit := min(threshold, best-1)
		if limit < 0 {
			return
		}
		if d := boundedDistance(query, name, limit); d < best {
			best = d
			match = p
		}
	}

	for _, kind := range r.kinds() {
		t := r.g.table(kind)
		for i := range t {
			p := &t[i]
			consider(p, p.primary)
			if withAliases {
				for _, a := range p.aliases {
					consider(p, a)
				}
			}
		}
	}

	if match == nil {
		return domain.NotFound()
	}
	return locationOf(match.entry, domain.MatchFuzzy, best)
}
