package postgres

import (
	"io/fs"
	"testing"

	"github.com/samirrijal/zonemap/migrations"
)

func TestMigrationVersion(t *testing.T) {
	cases := map[string]string{
		"001_gazetteer.up.sql":   "001_gazetteer",
		"001_gazetteer.down.sql": "001_gazetteer",
		"010_x.up.sql":           "010_x",
	}
	for in, want := range cases {
		if got := migrationVersion(in); got != want {
			t.Errorf("migrationVersion(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*.up.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(ups) == 0 {
		t.Fatal("no up migrations embedded")
	}
	for _, up := range ups {
		down := migrationVersion(up) + ".down.sql"
		if _, err := fs.Stat(migrations.FS, down); err != nil {
			t.Errorf("%s has no matching %s", up, down)
		}
	}
}
