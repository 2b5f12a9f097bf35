package terrain

import "fmt"

// ChunkDim is the fixed side length of a chunk's vertex grid.
const ChunkDim = 8

// chunkVertexCount is the number of vertices in a chunk (8x8).
const chunkVertexCount = ChunkDim * ChunkDim

// ChunkRecordSize is the fixed on-disk size of one chunk record: one
// prefix byte plus 64 vertex bytes.
const ChunkRecordSize = 1 + chunkVertexCount

// TerrainChunk is a fixed 8x8 grid of vertices plus biome/base-height
// metadata and an owned palette. Vertices are stored row-major with linear
// index x*8 + y.
type TerrainChunk struct {
	Vertices   [chunkVertexCount]TerrainVertex
	biomeID    byte
	baseHeight byte
	Palette    MaterialPalette
}

// NewChunk constructs a chunk with the given base height, biome ID, and
// palette. It fails with ErrOutOfRange if baseHeight exceeds 31 or biomeID
// exceeds 7.
func NewChunk(baseHeight, biomeID byte, palette MaterialPalette) (*TerrainChunk, error) {
	c := &TerrainChunk{Palette: palette}
	if err := c.SetBaseHeight(baseHeight); err != nil {
		return nil, err
	}
	if err := c.SetBiomeID(biomeID); err != nil {
		return nil, err
	}
	return c, nil
}

// BiomeID returns the chunk's biome ID, in [0,7].
func (c *TerrainChunk) BiomeID() byte { return c.biomeID }

// SetBiomeID sets the chunk's biome ID. It fails with ErrOutOfRange if id
// exceeds 7.
func (c *TerrainChunk) SetBiomeID(id byte) error {
	if id > 7 {
		return fmt.Errorf("%w: biome id %d", ErrOutOfRange, id)
	}
	c.biomeID = id
	return nil
}

// BaseHeight returns the chunk's base height anchor, in [0,31].
func (c *TerrainChunk) BaseHeight() byte { return c.baseHeight }

// SetBaseHeight sets the chunk's base height. It fails with ErrOutOfRange
// if h exceeds 31.
func (c *TerrainChunk) SetBaseHeight(h byte) error {
	if h > 31 {
		return fmt.Errorf("%w: base height %d", ErrOutOfRange, h)
	}
	c.baseHeight = h
	return nil
}

// VertexAt returns the vertex at grid position (x, y), where x, y are in
// [0, ChunkDim).
func (c *TerrainChunk) VertexAt(x, y int) TerrainVertex {
	return c.Vertices[x*ChunkDim+y]
}

// SetVertexAt stores v at grid position (x, y).
func (c *TerrainChunk) SetVertexAt(x, y int, v TerrainVertex) {
	c.Vertices[x*ChunkDim+y] = v
}

// EncodeChunk packs chunk into buf, which must be exactly ChunkRecordSize
// bytes. Byte 0 holds (baseHeight<<3)|biomeID; bytes 1..64 hold the 64
// vertex bytes in linear (x*8+y) order.
func EncodeChunk(chunk *TerrainChunk, buf []byte) error {
	if len(buf) != ChunkRecordSize {
		return fmt.Errorf("%w: chunk buffer must be %d bytes, got %d", ErrMalformedInput, ChunkRecordSize, len(buf))
	}
	buf[0] = (chunk.baseHeight << 3) | chunk.biomeID
	for i := 0; i < chunkVertexCount; i++ {
		buf[1+i] = encodeVertex(chunk.Vertices[i], chunk.baseHeight, chunk.Palette)
	}
	return nil
}

// DecodeChunk unpacks buf (exactly ChunkRecordSize bytes) into a new
// TerrainChunk, resolving the vertex palette from registry via the
// chunk's biome ID.
func DecodeChunk(buf []byte, registry *BiomeRegistry) (*TerrainChunk, error) {
	if len(buf) != ChunkRecordSize {
		return nil, fmt.Errorf("%w: chunk buffer must be %d bytes, got %d", ErrMalformedInput, ChunkRecordSize, len(buf))
	}

	biomeID := buf[0] & 0x07
	baseHeight := (buf[0] >> 3) & 0x1F

	biome, err := registry.ByID(biomeID)
	if err != nil {
		return nil, err
	}

	chunk := &TerrainChunk{
		biomeID:    biomeID,
		baseHeight: baseHeight,
		Palette:    biome.Palette,
	}
	for i := 0; i < chunkVertexCount; i++ {
		chunk.Vertices[i] = decodeVertex(buf[1+i], baseHeight, chunk.Palette)
	}
	return chunk, nil
}
