package unityassets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/binreader"
)

// buildUnityFSBundle assembles a minimal, single-block, uncompressed UnityFS
// bundle carrying the given nodes in order. Mirrors bundle package's own
// buildUnityFS test helper, rewritten here (that one is unexported) using
// binreader's big-endian writer mode instead of a private scratch type.
func buildUnityFSBundle(t *testing.T, nodePayloads map[string][]byte, order []string) []byte {
	t.Helper()

	var data []byte
	offsets := make(map[string]int64)
	for _, name := range order {
		offsets[name] = int64(len(data))
		data = append(data, nodePayloads[name]...)
	}

	infoW := binreader.NewWriter(true)
	infoW.PutBytes(make([]byte, 16)) // hash
	infoW.PutI32(1)                  // block count
	infoW.PutU32(uint32(len(data)))  // uncompressed
	infoW.PutU32(uint32(len(data)))  // compressed (codec none)
	infoW.PutU16(0)                  // flags: codec none
	infoW.PutI32(int32(len(order)))  // node count
	for _, name := range order {
		infoW.PutI64(offsets[name])
		infoW.PutI64(int64(len(nodePayloads[name])))
		infoW.PutU32(0)
		infoW.PutCString(name)
	}
	info := infoW.Bytes()

	headerW := binreader.NewWriter(true)
	headerW.PutCString("UnityFS")
	headerW.PutU32(6)
	headerW.PutCString("2019.4.1f1")
	headerW.PutCString("abcdef1234")
	headerW.PutI64(0) // total size, unused by parser correctness here
	headerW.PutU32(uint32(len(info)))
	headerW.PutU32(uint32(len(info)))
	headerW.PutU32(0) // flags: codec none, blocks-info not at EOF, not aligned
	headerW.Align(16) // blocks-info starts on a 16-byte boundary

	buf := append(headerW.Bytes(), info...)
	return append(buf, data...)
}

// TestDecodeBundlePicksNodeWithMostMeshesRegardlessOfOrder proves decodeBundle
// selects the SerializedFile node with the largest class_id==43 count rather
// than the first non-resource node it sees (§4.3): the mesh-bearing node is
// placed second here, after an unrelated mesh-less node that would have won
// under a first-match rule.
func TestDecodeBundlePicksNodeWithMostMeshesRegardlessOfOrder(t *testing.T) {
	empty := buildFixture(t, "Empty", false)
	withMesh := buildFixture(t, "Cube", true)

	buf := buildUnityFSBundle(t,
		map[string][]byte{"CAB-empty": empty, "CAB-mesh": withMesh},
		[]string{"CAB-empty", "CAB-mesh"},
	)

	res := mustDecode(t, buf, DecodeOptions{})
	require.Len(t, res.Context.GameObjects, 1)
	require.Equal(t, "Cube", res.Context.GameObjects[0].Name)
	require.Len(t, res.Context.Meshes, 1)

	dm, ok := res.Meshes[res.Context.Meshes[0].PathID]
	require.True(t, ok)
	require.Equal(t, "CubeMesh", dm.Name)
}

// TestDecodeBundlePicksMeshNodeWhenItComesFirst is the mirror case: the
// mesh-bearing node already comes first, so this guards against a future
// regression that only fixes the tie-break direction instead of the
// selection rule itself.
func TestDecodeBundlePicksMeshNodeWhenItComesFirst(t *testing.T) {
	empty := buildFixture(t, "Empty", false)
	withMesh := buildFixture(t, "Cube", true)

	buf := buildUnityFSBundle(t,
		map[string][]byte{"CAB-mesh": withMesh, "CAB-empty": empty},
		[]string{"CAB-mesh", "CAB-empty"},
	)

	res := mustDecode(t, buf, DecodeOptions{})
	require.Equal(t, "Cube", res.Context.GameObjects[0].Name)
	require.Len(t, res.Context.Meshes, 1)
}
