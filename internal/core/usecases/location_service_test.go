package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
	"github.com/samirrijal/zonemap/internal/core/usecases"
)

// --- Mock CacheService ---

type mockCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	ttls  map[string]int
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Fixture ---

func testResolver(t *testing.T) *gazetteer.Resolver {
	t.Helper()
	g, err := gazetteer.New([]domain.GazetteerEntry{
		{Names: domain.PlaceNames{Primary: "Egypt", Aliases: []string{"مصر"}}, Kind: domain.KindCountry, Lat: 26.8206, Lng: 30.8025, DefaultZoom: 6, Code: "EG"},
		{Names: domain.PlaceNames{Primary: "France", Aliases: []string{"فرنسا"}}, Kind: domain.KindCountry, Lat: 46.2276, Lng: 2.2137, DefaultZoom: 6, Code: "FR"},
		{Names: domain.PlaceNames{Primary: "Germany", Aliases: []string{"Deutschland"}}, Kind: domain.KindCountry, Lat: 51.1657, Lng: 10.4515, DefaultZoom: 6, Code: "DE"},
		{Names: domain.PlaceNames{Primary: "Cairo", Aliases: []string{"القاهرة"}}, Kind: domain.KindCity, Lat: 30.0444, Lng: 31.2357},
		{Names: domain.PlaceNames{Primary: "Paris"}, Kind: domain.KindCity, Lat: 48.8566, Lng: 2.3522},
		{Names: domain.PlaceNames{Primary: "Berlin"}, Kind: domain.KindCity, Lat: 52.52, Lng: 13.405},
	}, gazetteer.DefaultZooms)
	if err != nil {
		t.Fatalf("build gazetteer: %v", err)
	}
	return gazetteer.NewResolver(g, gazetteer.DefaultOptions())
}

// --- Tests ---

func TestLocationService_Resolve(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	loc, err := svc.Resolve(context.Background(), "Pariss", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.MatchKind != domain.MatchFuzzy || loc.Label != "Paris" {
		t.Fatalf("expected fuzzy Paris, got %+v", loc)
	}
	if loc.Zoom != gazetteer.DefaultZooms.City {
		t.Errorf("expected city zoom %d, got %d", gazetteer.DefaultZooms.City, loc.Zoom)
	}
}

func TestLocationService_Resolve_NotFoundIsNotAnError(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	for _, q := range []string{"", "  ", "qwxzkjhg"} {
		loc, err := svc.Resolve(context.Background(), q, "")
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", q, err)
		}
		if loc.Found() {
			t.Errorf("%q: expected not_found, got %+v", q, loc)
		}
	}
}

func TestLocationService_Resolve_InvalidLanguage(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	_, err := svc.Resolve(context.Background(), "Paris", "not a tag!")
	if !errors.Is(err, usecases.ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
}

func TestLocationService_Resolve_LanguageEnablesAliases(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	loc, err := svc.Resolve(context.Background(), "deutschland", "DE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Label != "Germany" || loc.MatchKind != domain.MatchExact {
		t.Errorf("expected exact Germany, got %+v", loc)
	}
}

func TestLocationService_Resolve_CachesByNormalizedQuery(t *testing.T) {
	cache := newMockCache()
	svc := usecases.NewLocationService(testResolver(t), cache)
	ctx := context.Background()

	if _, err := svc.Resolve(ctx, "  EGPYT ", "ar"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, ok := cache.data["resolve:ar:egpyt"]
	if !ok {
		t.Fatalf("expected cache entry, have %v", cache.data)
	}
	if cache.ttls["resolve:ar:egpyt"] != 3600 {
		t.Errorf("expected 1h TTL, got %d", cache.ttls["resolve:ar:egpyt"])
	}
	var cached domain.ResolvedLocation
	if err := json.Unmarshal(raw, &cached); err != nil {
		t.Fatalf("cached value: %v", err)
	}
	if cached.Label != "Egypt" {
		t.Errorf("expected Egypt cached, got %q", cached.Label)
	}

	// A poisoned cache entry proves the second call is served from cache.
	cache.data["resolve:ar:egpyt"] = []byte(`{"lat":1,"lng":2,"zoom":3,"label":"Cached","match_kind":"fuzzy"}`)
	loc, err := svc.Resolve(ctx, "egpyt", "ar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Label != "Cached" {
		t.Errorf("expected cached result, got %+v", loc)
	}
}

func TestLocationService_Resolve_CacheFailureFallsThrough(t *testing.T) {
	cache := newMockCache()
	cache.getFn = func(ctx context.Context, key string) ([]byte, error) {
		return nil, errors.New("valkey down")
	}
	svc := usecases.NewLocationService(testResolver(t), cache)

	loc, err := svc.Resolve(context.Background(), "Cairo", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Label != "Cairo" {
		t.Errorf("expected Cairo, got %+v", loc)
	}
}

func TestLocationService_Country(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	for _, in := range []string{"egypt", "EG", "مصر"} {
		loc, err := svc.Country(context.Background(), in)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", in, err)
		}
		if loc.Label != "Egypt" || loc.Kind != domain.KindCountry {
			t.Errorf("%q: expected Egypt, got %+v", in, loc)
		}
	}

	_, err := svc.Country(context.Background(), "Cairo")
	if !errors.Is(err, domain.ErrLocationNotFound) {
		t.Errorf("expected ErrLocationNotFound for a city, got %v", err)
	}
}

func TestLocationService_List(t *testing.T) {
	svc := usecases.NewLocationService(testResolver(t), nil)

	page, total := svc.List(domain.KindCountry, 1, 1)
	if total != 3 {
		t.Fatalf("expected 3 countries, got %d", total)
	}
	if len(page) != 1 || page[0].Names.Primary != "France" {
		t.Errorf("expected [France], got %+v", page)
	}

	page, total = svc.List(domain.KindCity, 10, 5)
	if total != 3 || len(page) != 0 {
		t.Errorf("expected empty page past the end, got %d/%d", len(page), total)
	}

	page, _ = svc.List(domain.KindCity, 0, 0)
	if len(page) != 3 {
		t.Errorf("expected default limit to cover all cities, got %d", len(page))
	}
}
