package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
	"github.com/samirrijal/zonemap/internal/pkg/telemetry"
)

// ErrInvalidLanguage is returned for a language hint that is not a BCP 47 tag.
var ErrInvalidLanguage = errors.New("invalid language tag")

const resolveCacheTTL = 3600 // seconds; the gazetteer only changes on restart

// ResolveCachePrefix prefixes every cached resolution key.
const ResolveCachePrefix = "resolve:"

// LocationService resolves user text to map targets.
type LocationService struct {
	resolver *gazetteer.Resolver
	cache    ports.CacheService
}

// NewLocationService creates a new LocationService. cache may be nil.
func NewLocationService(resolver *gazetteer.Resolver, cache ports.CacheService) *LocationService {
	return &LocationService{resolver: resolver, cache: cache}
}

// Resolve maps text to a location. A miss is returned as a not_found
// location with a nil error; only an unparseable lang fails.
func (s *LocationService) Resolve(ctx context.Context, text, lang string) (domain.ResolvedLocation, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "LocationService.Resolve",
		trace.WithAttributes(telemetry.AttrQuery.String(text), telemetry.AttrLanguage.String(lang)))
	defer span.End()

	if lang != "" {
		tag, err := language.Parse(lang)
		if err != nil {
			return domain.ResolvedLocation{}, fmt.Errorf("%w: %q", ErrInvalidLanguage, lang)
		}
		lang = tag.String()
	}

	q := gazetteer.Normalize(text)
	if q == "" {
		metrics.Resolutions.WithLabelValues(string(domain.MatchNotFound)).Inc()
		return domain.NotFound(), nil
	}

	cacheKey := ResolveCachePrefix + lang + ":" + q
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var loc domain.ResolvedLocation
			if err := json.Unmarshal(data, &loc); err == nil {
				metrics.CacheHits.WithLabelValues("resolve").Inc()
				metrics.Resolutions.WithLabelValues(string(loc.MatchKind)).Inc()
				span.SetAttributes(telemetry.AttrMatchKind.String(string(loc.MatchKind)))
				return loc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("resolve").Inc()
	}

	start := time.Now()
	loc := s.resolver.Resolve(q, lang)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	metrics.Resolutions.WithLabelValues(string(loc.MatchKind)).Inc()
	span.SetAttributes(telemetry.AttrMatchKind.String(string(loc.MatchKind)))

	if s.cache != nil {
		if data, err := json.Marshal(loc); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, resolveCacheTTL)
		}
	}

	return loc, nil
}

// Country resolves an external highlight. Only exact country names,
// aliases and ISO codes are accepted.
func (s *LocationService) Country(ctx context.Context, nameOrCode string) (domain.ResolvedLocation, error) {
	_, span := telemetry.Tracer().Start(ctx, "LocationService.Country",
		trace.WithAttributes(telemetry.AttrQuery.String(nameOrCode)))
	defer span.End()

	loc, ok := s.resolver.Gazetteer().LookupCountry(nameOrCode)
	if !ok {
		return loc, fmt.Errorf("country %q: %w", nameOrCode, domain.ErrLocationNotFound)
	}
	return loc, nil
}

// List pages through the gazetteer entries of one kind in insertion order.
func (s *LocationService) List(kind domain.PlaceKind, offset, limit int) ([]domain.GazetteerEntry, int) {
	entries := s.resolver.Gazetteer().Entries(kind)
	total := len(entries)
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.GazetteerEntry{}, total
	}
	end := min(offset+limit, total)
	return entries[offset:end], total
}
