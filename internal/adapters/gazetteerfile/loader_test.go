package gazetteerfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samirrijal/zonemap/internal/adapters/gazetteerfile"
	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
)

func TestEmbeddedDatasetBuilds(t *testing.T) {
	entries, err := gazetteerfile.Embedded().Load(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	g, err := gazetteer.New(entries, gazetteer.DefaultZooms)
	require.NoError(t, err, "embedded dataset must satisfy the alias invariants")
	require.Greater(t, g.Len(domain.KindCountry), 40)
	require.Greater(t, g.Len(domain.KindCity), 60)

	loc, ok := g.LookupCountry("EG")
	require.True(t, ok)
	require.Equal(t, "Egypt", loc.Label)
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "places.json")
	doc := `{"entries":[{"names":{"primary":"Oslo","aliases":["أوسلو"]},"kind":"city","lat":59.91,"lng":10.75}]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	entries, err := gazetteerfile.New(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "Oslo", entries[0].Names.Primary)
	require.Equal(t, []string{"أوسلو"}, entries[0].Names.Aliases)
	require.Equal(t, domain.KindCity, entries[0].Kind)
}

func TestParseRejectsEmptyDocument(t *testing.T) {
	_, err := gazetteerfile.Parse([]byte("entries: []\n"))
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := gazetteerfile.New(filepath.Join(t.TempDir(), "nope.yaml")).Load(context.Background())
	require.Error(t, err)
}
