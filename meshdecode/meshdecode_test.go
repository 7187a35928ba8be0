package meshdecode

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/semantic"
)

func TestUnpackFloatsBitSizeZero(t *testing.T) {
	pbv := semantic.PackedBitVectorRaw{NumItems: 3, Start: 5, BitSize: 0}
	out, err := unpackFloats(pbv)
	require.NoError(t, err)
	require.Equal(t, []float32{5, 5, 5}, out)
}

func TestUnpackFloatsRoundTrip(t *testing.T) {
	// 3 items, bit_size=8, range=10, start=0: encode values 0,128,255.
	pbv := semantic.PackedBitVectorRaw{
		NumItems: 3,
		Range:    10,
		Start:    0,
		BitSize:  8,
		Data:     []byte{0, 128, 255},
	}
	out, err := unpackFloats(pbv)
	require.NoError(t, err)
	require.InDelta(t, 0, out[0], 0.001)
	require.InDelta(t, 10*128.0/255.0, out[1], 0.001)
	require.InDelta(t, 10, out[2], 0.001)
}

func TestUnpackIntsPacksBelowByteBoundary(t *testing.T) {
	// 4 items at 2 bits each, packed into a single byte: 1,2,3,0 (LSB first)
	// bits: 01 10 11 00 -> byte = 0b00_11_10_01 = 0x39
	pbv := semantic.PackedBitVectorRaw{NumItems: 4, BitSize: 2, Data: []byte{0x39}}
	out, err := unpackInts(pbv)
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2, 3, 0}, out)
}

func TestReconstructNormalZ(t *testing.T) {
	z := reconstructNormalZ(0, 0, true)
	require.InDelta(t, 1, z, 0.0001)
	z = reconstructNormalZ(0, 0, false)
	require.InDelta(t, -1, z, 0.0001)
}

func TestDecodeIndexBuffer16BitSkipsTerminator(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint16(buf[0:], 0)
	binary.LittleEndian.PutUint16(buf[2:], 1)
	binary.LittleEndian.PutUint16(buf[4:], 0xFFFF)
	binary.LittleEndian.PutUint16(buf[6:], 2)
	out, err := decodeIndexBuffer(buf, true, false)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, out)
}

func TestTriangulateTriangleStripSkipsDegenerates(t *testing.T) {
	idx := []uint32{0, 1, 2, 2, 3}
	tris, err := triangulate(idx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2}, tris)
}

func TestTriangulateQuads(t *testing.T) {
	idx := []uint32{0, 1, 2, 3}
	tris, err := triangulate(idx, 2)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, tris)
}

func TestTriangulateLinesSkipped(t *testing.T) {
	tris, err := triangulate([]uint32{0, 1, 2, 3}, 3)
	require.NoError(t, err)
	require.Nil(t, tris)
}

func TestDecodeCompressedMeshPositionsAndNormals(t *testing.T) {
	cm := &semantic.CompressedMeshRaw{
		Vertices: semantic.PackedBitVectorRaw{
			NumItems: 6, Range: 10, Start: 0, BitSize: 8,
			Data: []byte{0, 0, 0, 255, 255, 255},
		},
		Normals: semantic.PackedBitVectorRaw{
			NumItems: 4, Range: 2, Start: -1, BitSize: 8,
			Data: []byte{127, 127, 127, 127},
		},
		NormalSigns: semantic.PackedBitVectorRaw{NumItems: 2, BitSize: 1, Data: []byte{0b01}},
	}
	var out DecodedMesh
	err := decodeCompressedMesh(cm, &out)
	require.NoError(t, err)
	require.Equal(t, 2, out.VertexCount)
	require.Len(t, out.Normals, 6)
}

func TestHalfToFloatOne(t *testing.T) {
	f := halfToFloat(0x3C00) // IEEE-754 half for 1.0
	require.InDelta(t, 1.0, f, 0.0001)
}

func TestHalfToFloatZero(t *testing.T) {
	f := halfToFloat(0)
	require.Equal(t, float32(0), f)
}

func TestComponentSize2019Table(t *testing.T) {
	v := VersionTuple{Major: 2019}
	size, err := ComponentSize(v, int32(FormatFloat32))
	require.NoError(t, err)
	require.Equal(t, 4, size)

	size, err = ComponentSize(v, int32(FormatUNorm16))
	require.NoError(t, err)
	require.Equal(t, 2, size)

	_, err = ComponentSize(v, 99)
	require.Error(t, err)
}

func TestDecodeInlineVerticesSingleStreamFloat3Position(t *testing.T) {
	order := binary.LittleEndian
	blob := make([]byte, 3*4*2) // 2 vertices, stride 12
	writeF32 := func(off int, f float32) {
		order.PutUint32(blob[off:], math.Float32bits(f))
	}
	writeF32(0, 1)
	writeF32(4, 2)
	writeF32(8, 3)
	writeF32(12, 4)
	writeF32(16, 5)
	writeF32(20, 6)

	mesh := &semantic.Mesh{
		VertexCount: 2,
		Channels: []semantic.VertexChannel{
			{Stream: 0, Offset: 0, Format: uint8(FormatFloat32), Dimension: 3},
		},
		Streams: []semantic.VertexStreamRaw{
			{Offset: 0, Stride: 12, ChannelMask: 1},
		},
	}
	channels, streams, err := resolveChannels(VersionTuple{Major: 5}, mesh)
	require.NoError(t, err)

	out := DecodedMesh{VertexCount: 2}
	err = decodeInlineVertices(VersionTuple{Major: 2019}, false, blob, channels, streams, &out)
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.Positions)
}
