package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/samirrijal/zonemap/internal/bootstrap"
	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/pkg/config"
)

func testConfig(source, path string) *config.Config {
	return &config.Config{
		Gazetteer: config.GazetteerConfig{Source: source, Path: path},
		Resolver: config.ResolverConfig{
			ShortInputLen:    5,
			ShortMaxDistance: 2,
			LongMaxDistance:  3,
			PreferCountries:  true,
			PrimaryLanguage:  "en",
			CountryZoom:      4,
			CityZoom:         12,
		},
	}
}

func TestResolverOptions(t *testing.T) {
	opts := bootstrap.ResolverOptions(testConfig(config.SourceEmbedded, ""))
	require.Equal(t, 5, opts.ShortInputMaxLen)
	require.Equal(t, 2, opts.ShortMaxDistance)
	require.Equal(t, 3, opts.LongMaxDistance)
	require.True(t, opts.PreferCountries)
	require.Equal(t, language.English.String(), opts.PrimaryLanguage.String())
}

func TestResolver_Embedded(t *testing.T) {
	r, db, err := bootstrap.Resolver(context.Background(), testConfig(config.SourceEmbedded, ""))
	require.NoError(t, err)
	require.Nil(t, db)

	loc := r.Resolve("Egpyt", "")
	require.Equal(t, domain.MatchFuzzy, loc.MatchKind)
	require.Equal(t, domain.KindCountry, loc.Kind)
	require.Equal(t, "EG", loc.Code)
}

func TestResolver_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.yaml")
	doc := `entries:
  - names: {primary: "Atlantis"}
    kind: city
    lat: 10
    lng: 20
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r, _, err := bootstrap.Resolver(context.Background(), testConfig(config.SourceFile, path))
	require.NoError(t, err)

	loc := r.Resolve("atlantis", "")
	require.Equal(t, domain.MatchExact, loc.MatchKind)
	require.Equal(t, 12, loc.Zoom)
	require.Equal(t, 1, r.Gazetteer().Len(domain.KindCity))
}

func TestResolver_MissingFile(t *testing.T) {
	_, _, err := bootstrap.Resolver(context.Background(), testConfig(config.SourceFile, filepath.Join(t.TempDir(), "nope.yaml")))
	require.Error(t, err)
}
