package unityassets

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/binreader"
)

// buildFixture constructs a minimal, version-17, little-endian
// SerializedFile carrying one GameObject/Transform pair named goName and,
// when withMesh is true, a Mesh with four inline float3 positions plus the
// MeshFilter that references it. Byte layouts mirror the probes' own
// tolerant-decode expectations (semantic/probes.go, semantic/mesh_probe.go)
// at their first (skip=0, 64-bit PPtr) candidate.
func buildFixture(t *testing.T, goName string, withMesh bool) []byte {
	t.Helper()
	w := binreader.NewWriter(false)

	mdSizeOff := w.Len()
	w.PutU32(0)
	fileSizeOff := w.Len()
	w.PutU32(0)
	w.PutU32(17) // version
	dataOffsetOff := w.Len()
	w.PutU32(0)
	w.PutU8(0) // endian flag: little
	w.PutBytes([]byte{0, 0, 0})

	metadataStart := w.Len()
	w.PutCString("2019.4.1f1")
	w.PutI32(5) // platform
	w.PutU8(0)  // enable_type_tree = false

	classes := []int32{1, 4} // GameObject, Transform
	if withMesh {
		classes = append(classes, 43, 33) // Mesh, MeshFilter
	}
	w.PutI32(int32(len(classes)))
	for _, c := range classes {
		w.PutI32(c)
		w.PutU8(0)      // stripped
		w.PutU16(0xFFFF) // script type index = -1
	}

	const (
		goPathID = 1
		trPathID = 2
		meshPathID = 3
		mfPathID   = 4
	)

	type payload struct {
		pathID  int64
		typeIdx int32
		bytes   []byte
	}
	var payloads []payload

	{
		pw := binreader.NewWriter(false)
		pw.PutI32(0) // component count
		pw.PutI32(0) // layer
		pw.PutAlignedString(goName)
		pw.PutU16(0) // tag
		pw.PutU8(1)  // isActive
		payloads = append(payloads, payload{goPathID, 0, pw.Bytes()})
	}
	{
		pw := binreader.NewWriter(false)
		pw.PutI32(0)          // transform's GameObject fileID
		pw.PutI64(goPathID)   // transform's GameObject pathID
		putF32(pw, 0)
		putF32(pw, 0)
		putF32(pw, 0)
		putF32(pw, 1) // identity quaternion x,y,z,w
		putF32(pw, 0)
		putF32(pw, 0)
		putF32(pw, 0) // position
		putF32(pw, 1)
		putF32(pw, 1)
		putF32(pw, 1) // scale
		pw.PutI32(0)  // child count
		pw.PutI32(0)  // parent fileID
		pw.PutI64(0)  // parent pathID (null -> root)
		payloads = append(payloads, payload{trPathID, 1, pw.Bytes()})
	}
	if withMesh {
		{
			pw := binreader.NewWriter(false)
			pw.PutAlignedString("CubeMesh")
			pw.PutI32(1) // submesh count
			pw.PutU32(0) // first_byte
			pw.PutU32(6) // index_count
			pw.PutI32(0) // topology: Triangles
			pw.PutU32(0) // unused
			pw.PutU32(0) // first_vertex
			pw.PutU32(4) // vertex_count
			for i := 0; i < 6; i++ {
				pw.PutU32(0) // aabb center/extent, zeroed
			}
			pw.PutI32(12) // index buffer byte size
			for _, idx := range []uint16{0, 1, 2, 0, 2, 3} {
				pw.PutU16(idx)
			}
			pw.Align(4)
			pw.PutU8(0) // no explicit index_format
			pw.PutU8(0) // no explicit use_16bit flag
			pw.PutI32(1) // channel count
			pw.PutU8(0)  // channel 0: stream
			pw.PutU8(0)  // offset
			pw.PutU8(0)  // format: float32
			pw.PutU8(3)  // dimension: position xyz
			pw.PutI32(0) // stream count (derived internally for Major>=5)
			pw.PutU32(4) // vertex count
			positions := [][3]float32{
				{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
			}
			pw.PutI32(4 * 3 * 4) // blob size: 4 verts * 3 floats * 4 bytes
			for _, p := range positions {
				putF32(pw, p[0])
				putF32(pw, p[1])
				putF32(pw, p[2])
			}
			pw.Align(4)
			pw.PutU8(0)  // no compressed mesh
			pw.PutI32(0) // bind pose count
			pw.PutI32(0) // bone weight count
			pw.PutU8(0)  // no streaming info
			payloads = append(payloads, payload{meshPathID, 2, pw.Bytes()})
		}
		{
			pw := binreader.NewWriter(false)
			pw.PutI32(0)
			pw.PutI64(goPathID) // GameObject
			pw.PutI32(0)
			pw.PutI64(meshPathID) // Mesh
			payloads = append(payloads, payload{mfPathID, 3, pw.Bytes()})
		}
	}

	w.PutI32(int32(len(payloads))) // object table count
	relOffset := uint32(0)
	for _, p := range payloads {
		w.Align(8)
		w.PutI64(p.pathID)
		w.PutU32(relOffset)
		w.PutU32(uint32(len(p.bytes)))
		w.PutI32(p.typeIdx)
		relOffset += uint32(len(p.bytes))
	}

	w.PutI32(0) // script table count
	w.PutI32(0) // externals count

	dataOffset := w.Len()
	for _, p := range payloads {
		w.PutBytes(p.bytes)
	}
	fileSize := w.Len()
	metadataSize := dataOffset - metadataStart

	buf := w.Bytes()
	binary.LittleEndian.PutUint32(buf[mdSizeOff:], uint32(metadataSize))
	binary.LittleEndian.PutUint32(buf[fileSizeOff:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[dataOffsetOff:], uint32(dataOffset))
	return buf
}

func putF32(w *binreader.Writer, f float32) {
	w.PutU32(math.Float32bits(f))
}

// buildFixtureWithBadMaterial builds a version-17 SerializedFile with one
// valid GameObject and one Material object whose payload is empty, so
// ProbeMaterial rejects every candidate layout and reconstructObjects
// demotes it to a warning instead of failing the decode.
func buildFixtureWithBadMaterial(t *testing.T) []byte {
	t.Helper()
	w := binreader.NewWriter(false)

	mdSizeOff := w.Len()
	w.PutU32(0)
	fileSizeOff := w.Len()
	w.PutU32(0)
	w.PutU32(17)
	dataOffsetOff := w.Len()
	w.PutU32(0)
	w.PutU8(0)
	w.PutBytes([]byte{0, 0, 0})

	metadataStart := w.Len()
	w.PutCString("2019.4.1f1")
	w.PutI32(5)
	w.PutU8(0)

	classes := []int32{1, 21} // GameObject, Material
	w.PutI32(int32(len(classes)))
	for _, c := range classes {
		w.PutI32(c)
		w.PutU8(0)
		w.PutU16(0xFFFF)
	}

	type payload struct {
		pathID  int64
		typeIdx int32
		bytes   []byte
	}
	var payloads []payload
	{
		pw := binreader.NewWriter(false)
		pw.PutI32(0)
		pw.PutI32(0)
		pw.PutAlignedString("Lonely")
		pw.PutU16(0)
		pw.PutU8(1)
		payloads = append(payloads, payload{1, 0, pw.Bytes()})
	}
	payloads = append(payloads, payload{2, 1, nil}) // Material, empty payload

	w.PutI32(int32(len(payloads)))
	relOffset := uint32(0)
	for _, p := range payloads {
		w.Align(8)
		w.PutI64(p.pathID)
		w.PutU32(relOffset)
		w.PutU32(uint32(len(p.bytes)))
		w.PutI32(p.typeIdx)
		relOffset += uint32(len(p.bytes))
	}

	w.PutI32(0)
	w.PutI32(0)

	dataOffset := w.Len()
	for _, p := range payloads {
		w.PutBytes(p.bytes)
	}
	fileSize := w.Len()
	metadataSize := dataOffset - metadataStart

	buf := w.Bytes()
	binary.LittleEndian.PutUint32(buf[mdSizeOff:], uint32(metadataSize))
	binary.LittleEndian.PutUint32(buf[fileSizeOff:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[dataOffsetOff:], uint32(dataOffset))
	return buf
}

func mustDecode(t *testing.T, buf []byte, opts DecodeOptions) *DecodeResult {
	t.Helper()
	res, err := Decode("fixture.assets", buf, opts)
	require.NoError(t, err)
	return res
}
