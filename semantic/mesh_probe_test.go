package semantic

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/binreader"
)

func buildMinimalMesh(w *binreader.Writer) {
	w.PutAlignedString("Cube")
	w.PutI32(1) // submesh count
	// submesh 0
	w.PutU32(0) // first_byte
	w.PutU32(6) // index_count
	w.PutI32(0) // topology: Triangles
	w.PutU32(0) // unused
	w.PutU32(0) // first_vertex
	w.PutU32(4) // vertex_count
	for i := 0; i < 6; i++ {
		w.PutU32(0) // aabb center/extent, zeroed floats
	}
	// index buffer: 6 u16 indices, byte size 12
	w.PutI32(12)
	for _, idx := range []uint16{0, 1, 2, 0, 2, 3} {
		w.PutU16(idx)
	}
	w.Align(4)
	w.PutU8(0) // no explicit index_format
	w.PutU8(0) // no explicit use_16bit flag
	w.PutI32(0) // channel count
	w.PutI32(0) // stream count
	w.PutU32(4) // vertex count
	w.PutI32(0) // blob size
	w.Align(4)
	w.PutU8(0)  // no compressed mesh
	w.PutI32(0) // bind pose count
	w.PutI32(0) // bone weight count
	w.PutU8(0)  // no streaming info
}

func TestProbeMeshMinimal(t *testing.T) {
	w := binreader.NewWriter(false)
	buildMinimalMesh(w)

	m, ok := ProbeMesh(77, w.Bytes(), false, Options{})
	require.True(t, ok)
	require.Equal(t, "Cube", m.Name)
	require.Len(t, m.Submeshes, 1)
	require.Equal(t, uint32(6), m.Submeshes[0].IndexCount)
	require.Equal(t, int32(0), m.Submeshes[0].Topology)
	require.Len(t, m.IndexBuffer, 12)
	require.Nil(t, m.CompressedMesh)
	require.Nil(t, m.Streaming)
}

func TestProbeMeshRejectsTruncated(t *testing.T) {
	w := binreader.NewWriter(false)
	w.PutAlignedString("Broken")
	w.PutI32(1) // claims one submesh, then nothing else

	_, ok := ProbeMesh(78, w.Bytes(), false, Options{})
	require.False(t, ok)
}
