// Package world produces the superflat terrain players spawn on.
package world

import (
	"bytes"
	"encoding/binary"
	"sync"
)

const (
	ChunkSectionSize = 16 * 16 * 16
	ChunkHeight      = 256
	SectionsPerChunk = ChunkHeight / 16
)

// SpawnHeight is the Y coordinate just above the grass layer.
const SpawnHeight = 5

// SpawnRadius is how many chunk columns around spawn are sent on join.
const SpawnRadius = 3

// FlatBlock returns the block state (blockID << 4 | metadata) of the flat
// world at height y. Layers: 0=bedrock, 1-3=dirt, 4=grass, 5+=air.
func FlatBlock(y int) uint16 {
	switch {
	case y < 0 || y >= ChunkHeight:
		return 0
	case y == 0:
		return 7 << 4 // bedrock
	case y <= 3:
		return 3 << 4 // dirt
	case y == 4:
		return 2 << 4 // grass
	default:
		return 0 // air
	}
}

var flatChunk = sync.OnceValues(func() ([]byte, uint16) {
	var buf bytes.Buffer

	// Only section 0 (y=0..15) holds solid blocks. Each block is 2 bytes,
	// little endian, (blockID << 4) | metadata.
	for y := 0; y < 16; y++ {
		state := FlatBlock(y)
		for i := 0; i < 16*16; i++ {
			binary.Write(&buf, binary.LittleEndian, state)
		}
	}

	// Block light then sky light, half a byte per block, full bright.
	buf.Write(bytes.Repeat([]byte{0xFF}, ChunkSectionSize/2))
	buf.Write(bytes.Repeat([]byte{0xFF}, ChunkSectionSize/2))

	// Biomes, plains. Sent because ground-up continuous is set.
	buf.Write(bytes.Repeat([]byte{1}, 256))

	return buf.Bytes(), 0x0001
})

// GenerateFlatChunkData returns the data portion of a 1.8 Chunk Data packet
// (0x21) for one superflat column and its primary bit mask. The result is
// shared between callers and must not be modified.
func GenerateFlatChunkData() ([]byte, uint16) {
	return flatChunk()
}
