package biomeconfig

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OCharnyshevich/voxelterrain/pkg/terrain"
)

func writeBundle(t *testing.T, dir string, bundle *Bundle) string {
	t.Helper()
	path := filepath.Join(dir, BundleFileName)
	if err := Save(path, bundle); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestLoadBundle(t *testing.T) {
	path := writeBundle(t, t.TempDir(), &Bundle{
		Biomes: []Entry{
			{ID: 0, Palette: [4]int{1, 2, 3, 4}, Settings: 10, Name: "plains"},
			{ID: 3, Palette: [4]int{5, 6, 7, 8}, Settings: 40, Name: "desert"},
		},
	})

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	plains, err := reg.ByID(0)
	if err != nil {
		t.Fatalf("ByID(0): %v", err)
	}
	if plains.Palette.Get(2) != 3 {
		t.Errorf("plains palette[2] = %d, want 3", plains.Palette.Get(2))
	}
	if plains.Settings != terrain.ScalarSettings(10) {
		t.Errorf("plains settings = %v, want 10", plains.Settings)
	}

	desert, err := reg.ByID(3)
	if err != nil {
		t.Fatalf("ByID(3): %v", err)
	}
	if desert.Settings != terrain.ScalarSettings(40) {
		t.Errorf("desert settings = %v, want 40", desert.Settings)
	}

	if _, err := reg.ByID(1); !errors.Is(err, terrain.ErrMissing) {
		t.Errorf("ByID(1) on sparse registry = %v, want ErrMissing", err)
	}
}

func TestLoadMissingBundle(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, terrain.ErrMissing) {
		t.Errorf("Load of missing file = %v, want ErrMissing", err)
	}
}

func TestLoadMalformedBundle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, BundleFileName)
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, terrain.ErrMalformedInput) {
		t.Errorf("Load of malformed bundle = %v, want ErrMalformedInput", err)
	}
}

func TestLoadRejectsOversizedBiomeID(t *testing.T) {
	path := writeBundle(t, t.TempDir(), &Bundle{
		Biomes: []Entry{{ID: 9, Palette: [4]int{1, 2, 3, 4}}},
	})
	_, err := Load(path)
	if !errors.Is(err, terrain.ErrOutOfRange) {
		t.Errorf("Load with biome id 9 = %v, want ErrOutOfRange", err)
	}
}

func TestFetchLocalDirectory(t *testing.T) {
	src := t.TempDir()
	writeBundle(t, src, &Bundle{
		Biomes: []Entry{{ID: 0, Palette: [4]int{0, 1, 2, 3}, Settings: 5}},
	})

	dest := filepath.Join(t.TempDir(), "staged")
	path, err := Fetch(context.Background(), src, dest)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	reg, err := Load(path)
	if err != nil {
		t.Fatalf("Load fetched bundle: %v", err)
	}
	b, err := reg.ByID(0)
	if err != nil {
		t.Fatalf("ByID(0): %v", err)
	}
	if b.Settings != terrain.ScalarSettings(5) {
		t.Errorf("fetched settings = %v, want 5", b.Settings)
	}
}
