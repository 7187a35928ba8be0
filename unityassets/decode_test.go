package unityassets

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
)

func TestDecodeSerializedFileReconstructsSceneAndMesh(t *testing.T) {
	buf := buildFixture(t, "Cube", true)

	res := mustDecode(t, buf, DecodeOptions{})
	require.Len(t, res.Context.GameObjects, 1)
	require.Equal(t, "Cube", res.Context.GameObjects[0].Name)
	require.Len(t, res.Context.Transforms, 1)
	require.Len(t, res.Context.MeshFilters, 1)
	require.Len(t, res.Context.Meshes, 1)

	dm, ok := res.Meshes[res.Context.Meshes[0].PathID]
	require.True(t, ok)
	require.Equal(t, "CubeMesh", dm.Name)
	require.Len(t, dm.Positions, 4*3)
	require.Len(t, dm.Submeshes, 1)
	require.Len(t, dm.Submeshes[0], 6) // 2 triangles
}

func TestDecodeWithoutMeshStillReconstructsTransformGraph(t *testing.T) {
	buf := buildFixture(t, "Empty", false)

	res := mustDecode(t, buf, DecodeOptions{})
	require.Len(t, res.Context.GameObjects, 1)
	require.Equal(t, "Empty", res.Context.GameObjects[0].Name)
	require.Len(t, res.Context.Transforms, 1)
	require.Empty(t, res.Context.Meshes)
	require.Empty(t, res.Meshes)
}

func TestDecodeRejectsUnrecognizedContainer(t *testing.T) {
	_, err := Decode("junk.bin", []byte{0, 1, 2}, DecodeOptions{})
	require.Error(t, err)
}

func TestDecodeCollectsWarningsSink(t *testing.T) {
	buf := buildFixtureWithBadMaterial(t)

	var warnings []semantic.Warning
	opts := DecodeOptions{WarningsSink: func(w semantic.Warning) { warnings = append(warnings, w) }}
	res, err := Decode("fixture.assets", buf, opts)
	require.NoError(t, err) // the GameObject still reconstructs; only the Material probe rejects
	require.Len(t, res.Context.GameObjects, 1)
	require.Empty(t, res.Context.Materials)
	require.NotEmpty(t, warnings)
	require.Contains(t, warnings[0].Message, "Material probe rejected")
	require.Equal(t, warnings, res.Context.Warnings)
}

func TestToGLBProducesNonEmptyBinary(t *testing.T) {
	buf := buildFixture(t, "Cube", true)
	res := mustDecode(t, buf, DecodeOptions{})

	out, err := ToGLB(res, ExportOptions{})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, []byte("glTF"), out[0:4])
}

func TestToGLBFailsWhenEveryMeshSkipped(t *testing.T) {
	buf := buildFixture(t, "Cube", true)
	res := mustDecode(t, buf, DecodeOptions{})
	// Drop the decoded geometry so the MeshFilter's reference goes unresolved
	// and BuildScene builds zero meshes despite one MeshFilter existing.
	res.Meshes = map[int64]meshdecode.DecodedMesh{}

	_, err := ToGLB(res, ExportOptions{})
	require.Error(t, err)
}
