package world

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFlatChunkData(t *testing.T) {
	data, bitmask := GenerateFlatChunkData()

	assert.Equal(t, uint16(0x0001), bitmask, "only section 0 is populated")

	// 8192 block data + 2048 block light + 2048 sky light + 256 biomes
	require.Len(t, data, ChunkSectionSize*2+2048+2048+256)

	blockAt := func(x, y, z int) uint16 {
		idx := ((y*16)+z)*16 + x
		return binary.LittleEndian.Uint16(data[idx*2:])
	}
	assert.Equal(t, uint16(7<<4), blockAt(0, 0, 0))
	assert.Equal(t, uint16(3<<4), blockAt(5, 2, 9))
	assert.Equal(t, uint16(2<<4), blockAt(15, 4, 15))
	assert.Equal(t, uint16(0), blockAt(3, SpawnHeight, 3))

	assert.Equal(t, byte(0xFF), data[ChunkSectionSize*2])
	assert.Equal(t, byte(1), data[len(data)-1])
}

func TestGenerateFlatChunkDataShared(t *testing.T) {
	a, _ := GenerateFlatChunkData()
	b, _ := GenerateFlatChunkData()
	assert.Same(t, &a[0], &b[0])
}

func TestFlatBlock(t *testing.T) {
	tests := []struct {
		y    int
		want uint16
	}{
		{-1, 0},
		{0, 7 << 4},
		{1, 3 << 4},
		{3, 3 << 4},
		{4, 2 << 4},
		{SpawnHeight, 0},
		{300, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FlatBlock(tt.y), "y=%d", tt.y)
	}
}
