// Package biomeconfig loads biome registries from JSON bundles, which can
// be staged from a local path or any go-getter URL (git, http, s3, gcs)
// before decoding.
package biomeconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/voxelterrain/pkg/terrain"
)

// BundleFileName is the file looked up inside a fetched bundle directory.
const BundleFileName = "biomes.json"

// Entry is one biome in the on-disk bundle.
type Entry struct {
	ID       int     `json:"id"`
	Palette  [4]int  `json:"palette"`
	Settings float64 `json:"settings"`
	Name     string  `json:"name,omitempty"`
}

// Bundle is the on-disk JSON shape of a biome registry.
type Bundle struct {
	Biomes []Entry `json:"biomes"`
}

// Load decodes the bundle at path into a BiomeRegistry. Settings values
// become terrain.ScalarSettings; hosts with richer payloads build their
// registry in code instead.
func Load(path string) (*terrain.BiomeRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: biome bundle %s", terrain.ErrMissing, path)
		}
		return nil, fmt.Errorf("read biome bundle: %w", err)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, fmt.Errorf("%w: parse biome bundle %s: %v", terrain.ErrMalformedInput, path, err)
	}

	reg := terrain.NewBiomeRegistry()
	for _, e := range bundle.Biomes {
		if e.ID < 0 || e.ID > 255 {
			return nil, fmt.Errorf("%w: biome id %d in bundle %s", terrain.ErrOutOfRange, e.ID, path)
		}
		ids := make([]byte, 4)
		for i, m := range e.Palette {
			if m < 0 || m > 255 {
				return nil, fmt.Errorf("%w: material id %d in biome %d", terrain.ErrOutOfRange, m, e.ID)
			}
			ids[i] = byte(m)
		}
		palette, err := terrain.NewPaletteFrom(ids)
		if err != nil {
			return nil, fmt.Errorf("biome %d: %w", e.ID, err)
		}
		if err := reg.Set(byte(e.ID), terrain.Biome{
			Palette:  palette,
			Settings: terrain.ScalarSettings(e.Settings),
		}); err != nil {
			return nil, fmt.Errorf("biome %d: %w", e.ID, err)
		}
	}
	return reg, nil
}

// Save writes bundle to path atomically using a temp file + rename.
func Save(path string, bundle *Bundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal biome bundle: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Fetch stages the bundle at url into destDir and returns the path of the
// bundle file to pass to Load. url accepts anything go-getter detects: a
// local path, git::, s3::, gcs::, or plain HTTP.
func Fetch(ctx context.Context, url, destDir string) (string, error) {
	client := &get.Client{
		Ctx:  ctx,
		Src:  url,
		Dst:  destDir,
		Mode: get.ClientModeAny,
	}
	if err := client.Get(); err != nil {
		return "", fmt.Errorf("fetch biome bundle %s: %w", url, err)
	}

	path := filepath.Join(destDir, BundleFileName)
	if _, err := os.Stat(path); err != nil {
		// The URL may have pointed at the bundle file itself rather than
		// a directory containing one.
		direct := filepath.Join(destDir, filepath.Base(url))
		if _, derr := os.Stat(direct); derr == nil {
			return direct, nil
		}
		return "", fmt.Errorf("%w: no %s in fetched bundle %s", terrain.ErrMissing, BundleFileName, destDir)
	}
	return path, nil
}
