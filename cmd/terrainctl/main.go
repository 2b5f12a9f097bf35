// terrainctl creates and inspects terrain files from the command line.
//
// Usage:
//
//	terrainctl create -file world.terrain -width 16 -height 16 -biomes biomes.json
//	terrainctl get    -file world.terrain -biomes biomes.json -x 3 -z 5
//	terrainctl set    -file world.terrain -biomes biomes.json -x 3 -z 5 -biome 2 -base-height 12
//	terrainctl sample -file world.terrain -biomes biomes.json -px 10.5 -pz 22.0
//	terrainctl stream -file world.terrain -biomes biomes.json -px 10.5 -pz 22.0
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OCharnyshevich/voxelterrain/internal/biomeconfig"
	"github.com/OCharnyshevich/voxelterrain/internal/terrainconfig"
	"github.com/OCharnyshevich/voxelterrain/pkg/terrain"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: terrainctl <create|get|set|sample|stream> [flags]")
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:], log)
	case "get":
		err = runGet(os.Args[2:], log)
	case "set":
		err = runSet(os.Args[2:], log)
	case "sample":
		err = runSample(os.Args[2:], log)
	case "stream":
		err = runStream(os.Args[2:], log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		log.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every subcommand shares and returns the
// destinations plus a hook for resolving config-file overrides after Parse.
type commonFlags struct {
	fs         *flag.FlagSet
	file       string
	biomes     string
	configPath string
	cfg        *terrainconfig.Config
}

func newCommonFlags(name string) *commonFlags {
	cf := &commonFlags{
		fs:  flag.NewFlagSet(name, flag.ExitOnError),
		cfg: terrainconfig.DefaultConfig(),
	}
	cf.fs.StringVar(&cf.file, "file", "world.terrain", "terrain file path")
	cf.fs.StringVar(&cf.biomes, "biomes", "biomes.json", "biome bundle path or go-getter URL")
	cf.fs.StringVar(&cf.configPath, "config", "", "optional JSON config file")
	cf.fs.IntVar(&cf.cfg.CacheCapacity, "cache-capacity", cf.cfg.CacheCapacity, "decoded chunk cache capacity")
	cf.fs.IntVar(&cf.cfg.StreamRadius, "stream-radius", cf.cfg.StreamRadius, "streaming prefetch radius in world units")
	cf.fs.DurationVar(&cf.cfg.WorkerInterval, "worker-interval", cf.cfg.WorkerInterval, "pause between streaming worker passes")
	cf.fs.Float64Var(&cf.cfg.PrefetchRate, "prefetch-rate", cf.cfg.PrefetchRate, "prefetch chunk loads per second (0 = unthrottled)")
	return cf
}

// parse resolves flags against an optional config file: file values apply
// only to flags the user did not set explicitly.
func (cf *commonFlags) parse(args []string) error {
	if err := cf.fs.Parse(args); err != nil {
		return err
	}
	if cf.configPath == "" {
		return nil
	}
	fromFile := terrainconfig.DefaultConfig()
	if err := terrainconfig.Load(cf.configPath, fromFile); err != nil {
		return err
	}
	explicit := map[string]bool{}
	cf.fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	terrainconfig.Merge(cf.cfg, fromFile, explicit)
	return nil
}

func (cf *commonFlags) registry(ctx context.Context) (*terrain.BiomeRegistry, error) {
	path := cf.biomes
	if _, err := os.Stat(path); err != nil {
		// Not a local file; treat it as a go-getter URL and stage it.
		staged, ferr := biomeconfig.Fetch(ctx, cf.biomes, cf.cfg.DataDir)
		if ferr != nil {
			return nil, ferr
		}
		path = staged
	}
	return biomeconfig.Load(path)
}

func (cf *commonFlags) storeOptions(log *slog.Logger) []terrain.Option {
	opts := []terrain.Option{
		terrain.WithCacheCapacity(cf.cfg.CacheCapacity),
		terrain.WithLogger(log),
		terrain.WithStreamWorkerInterval(cf.cfg.WorkerInterval),
	}
	if cf.cfg.PrefetchRate > 0 {
		opts = append(opts, terrain.WithPrefetchRate(cf.cfg.PrefetchRate, 1))
	}
	return opts
}

func runCreate(args []string, log *slog.Logger) error {
	cf := newCommonFlags("create")
	width := cf.fs.Uint("width", 16, "terrain width in chunks")
	height := cf.fs.Uint("height", 16, "terrain height in chunks")
	if err := cf.parse(args); err != nil {
		return err
	}

	reg, err := cf.registry(context.Background())
	if err != nil {
		return err
	}

	store, err := terrain.Create(cf.file, uint32(*width), uint32(*height), reg, cf.storeOptions(log)...)
	if err != nil {
		return err
	}
	log.Info("created terrain", "file", cf.file, "width", *width, "height", *height)
	return store.Dispose()
}

func runGet(args []string, log *slog.Logger) error {
	cf := newCommonFlags("get")
	x := cf.fs.Uint("x", 0, "chunk x coordinate")
	z := cf.fs.Uint("z", 0, "chunk z coordinate")
	if err := cf.parse(args); err != nil {
		return err
	}

	reg, err := cf.registry(context.Background())
	if err != nil {
		return err
	}
	store, err := terrain.Open(cf.file, reg, cf.storeOptions(log)...)
	if err != nil {
		return err
	}
	defer store.Dispose()

	chunk, err := store.Get(uint32(*x), uint32(*z))
	if err != nil {
		return err
	}
	log.Info("chunk",
		"coord", fmt.Sprintf("(%d,%d)", *x, *z),
		"biome", chunk.BiomeID(),
		"base_height", chunk.BaseHeight(),
		"corner_height", chunk.VertexAt(0, 0).Height,
	)
	return nil
}

func runSet(args []string, log *slog.Logger) error {
	cf := newCommonFlags("set")
	x := cf.fs.Uint("x", 0, "chunk x coordinate")
	z := cf.fs.Uint("z", 0, "chunk z coordinate")
	biomeID := cf.fs.Uint("biome", 0, "biome id for the chunk")
	baseHeight := cf.fs.Uint("base-height", 0, "base height anchor for the chunk")
	heightVal := cf.fs.Int("fill-height", 0, "height written to every vertex")
	material := cf.fs.Uint("material", 0, "material id written to every vertex")
	if err := cf.parse(args); err != nil {
		return err
	}

	reg, err := cf.registry(context.Background())
	if err != nil {
		return err
	}
	store, err := terrain.Open(cf.file, reg, cf.storeOptions(log)...)
	if err != nil {
		return err
	}
	defer store.Dispose()

	biome, err := reg.ByID(byte(*biomeID))
	if err != nil {
		return err
	}
	chunk, err := terrain.NewChunk(byte(*baseHeight), byte(*biomeID), biome.Palette)
	if err != nil {
		return err
	}
	v := terrain.TerrainVertex{Height: int16(*heightVal), MaterialID: byte(*material)}
	for gx := 0; gx < terrain.ChunkDim; gx++ {
		for gy := 0; gy < terrain.ChunkDim; gy++ {
			chunk.SetVertexAt(gx, gy, v)
		}
	}

	if err := store.Set(uint32(*x), uint32(*z), chunk); err != nil {
		return err
	}
	log.Info("chunk written", "coord", fmt.Sprintf("(%d,%d)", *x, *z))
	return nil
}

func runSample(args []string, log *slog.Logger) error {
	cf := newCommonFlags("sample")
	px := cf.fs.Float64("px", 0, "world x position")
	pz := cf.fs.Float64("pz", 0, "world z position")
	if err := cf.parse(args); err != nil {
		return err
	}

	reg, err := cf.registry(context.Background())
	if err != nil {
		return err
	}
	store, err := terrain.Open(cf.file, reg, cf.storeOptions(log)...)
	if err != nil {
		return err
	}
	defer store.Dispose()

	settings, err := store.Sample(terrain.Vec2{X: *px, Z: *pz})
	if err != nil {
		return err
	}
	log.Info("sampled biome settings", "pos", fmt.Sprintf("(%g,%g)", *px, *pz), "settings", settings)
	return nil
}

// runStream registers a streaming handler at the given position and lets
// the background worker prefetch around it until interrupted, logging each
// loaded chunk.
func runStream(args []string, log *slog.Logger) error {
	cf := newCommonFlags("stream")
	px := cf.fs.Float64("px", 0, "world x position")
	pz := cf.fs.Float64("pz", 0, "world z position")
	if err := cf.parse(args); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg, err := cf.registry(ctx)
	if err != nil {
		return err
	}
	store, err := terrain.Open(cf.file, reg, cf.storeOptions(log)...)
	if err != nil {
		return err
	}
	defer store.Dispose()

	store.OnChunkLoaded(func(ev terrain.ChunkLoadedEvent) {
		log.Info("chunk loaded", "coord", ev.Coord.String(), "biome", ev.Chunk.BiomeID())
	})

	handle := store.CreateStreamingHandler(uint8(cf.cfg.StreamRadius))
	handle.SetPosition(terrain.Vec2{X: *px, Z: *pz})
	log.Info("streaming", "handle", handle.ID(), "radius", cf.cfg.StreamRadius)

	ticker := time.NewTicker(cf.cfg.WorkerInterval)
	defer ticker.Stop()
	announced := false
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return store.RemoveHandler(handle.ID())
		case <-ticker.C:
			if !handle.Dirty() && !announced {
				log.Info("region loaded", "pos", fmt.Sprintf("(%g,%g)", *px, *pz))
				announced = true
			}
		}
	}
}
