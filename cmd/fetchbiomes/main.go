// fetchbiomes stages a biome bundle from a go-getter URL (local path,
// git::, s3::, gcs::, or plain HTTP) into a local directory and verifies
// it decodes into a valid registry.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/OCharnyshevich/voxelterrain/internal/biomeconfig"
)

func main() {
	var (
		src = flag.String("src", "", "biome bundle source (path or go-getter URL)")
		out = flag.String("o", "./biomes", "output dir path")
	)
	flag.Parse()

	if *src == "" {
		panic("bundle source required")
	}

	if *out == "" {
		panic("output dir path required")
	}

	if err := os.RemoveAll(*out); err != nil {
		panic(err)
	}

	log.Default().Printf("start downloading biome bundle %s", *src)

	path, err := biomeconfig.Fetch(context.Background(), *src, *out)
	if err != nil {
		panic(err)
	}

	if _, err := biomeconfig.Load(path); err != nil {
		panic(err)
	}

	log.Default().Printf("done downloading biome bundle %s", path)
}
