package terrain

import "testing"

func newTestRegistry(t *testing.T) *BiomeRegistry {
	t.Helper()
	palette, err := NewPaletteFrom([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewPaletteFrom: %v", err)
	}
	reg := NewBiomeRegistry()
	if err := reg.Set(0, Biome{Palette: palette, Settings: ScalarSettings(0)}); err != nil {
		t.Fatalf("Set biome: %v", err)
	}
	return reg
}

func TestChunkRoundTrip(t *testing.T) {
	reg := newTestRegistry(t)
	biome, _ := reg.ByID(0)

	chunk, err := NewChunk(10, 0, biome.Palette)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	for x := 0; x < ChunkDim; x++ {
		for y := 0; y < ChunkDim; y++ {
			height := int16(10*4 + (x+y)%60 - 30) // stays within [-32,31] offset range
			material := biome.Palette.Get((x + y) % 4)
			chunk.SetVertexAt(x, y, TerrainVertex{Height: height, MaterialID: material})
		}
	}

	var buf [ChunkRecordSize]byte
	if err := EncodeChunk(chunk, buf[:]); err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}

	got, err := DecodeChunk(buf[:], reg)
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}

	if got.BaseHeight() != chunk.BaseHeight() || got.BiomeID() != chunk.BiomeID() {
		t.Fatalf("metadata mismatch: got base=%d biome=%d, want base=%d biome=%d",
			got.BaseHeight(), got.BiomeID(), chunk.BaseHeight(), chunk.BiomeID())
	}
	if got.Vertices != chunk.Vertices {
		t.Errorf("vertex grid mismatch after round trip")
	}
}

// TestChunkEncodeUniformVertices checks the literal wire bytes for a chunk
// whose 64 vertices are all (height=100, material=2) at baseHeight 15:
// prefix (15<<3)|0 = 0x78, each vertex byte (1<<6)|40 = 0x68.
func TestChunkEncodeUniformVertices(t *testing.T) {
	palette, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	chunk, err := NewChunk(15, 0, palette)
	if err != nil {
		t.Fatalf("NewChunk: %v", err)
	}
	for i := range chunk.Vertices {
		chunk.Vertices[i] = TerrainVertex{Height: 100, MaterialID: 2}
	}

	var buf [ChunkRecordSize]byte
	if err := EncodeChunk(chunk, buf[:]); err != nil {
		t.Fatalf("EncodeChunk: %v", err)
	}
	if want := byte(0x78); buf[0] != want {
		t.Errorf("prefix byte = 0x%02X, want 0x%02X", buf[0], want)
	}
	for i := 1; i < ChunkRecordSize; i++ {
		if want := byte(0x68); buf[i] != want {
			t.Errorf("vertex byte[%d] = 0x%02X, want 0x%02X", i, buf[i], want)
		}
	}
}

func TestChunkSetBiomeIDOutOfRange(t *testing.T) {
	var c TerrainChunk
	if err := c.SetBiomeID(8); err == nil {
		t.Error("expected error for biome id 8")
	}
}

func TestChunkSetBaseHeightOutOfRange(t *testing.T) {
	var c TerrainChunk
	if err := c.SetBaseHeight(32); err == nil {
		t.Error("expected error for base height 32")
	}
}

func TestEncodeChunkRejectsWrongBufferSize(t *testing.T) {
	palette, _ := NewPaletteFrom([]byte{1, 2, 3, 4})
	chunk, _ := NewChunk(0, 0, palette)
	if err := EncodeChunk(chunk, make([]byte, 10)); err == nil {
		t.Error("expected error for undersized buffer")
	}
}
