package meshdecode

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/unitygltf/unitygltf/math32"
	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/uerr"
)

// DecodedMesh is the fully-resolved geometry §3's Data Model names: flat
// float attribute arrays plus triangle indices, ready for the GLB writer.
type DecodedMesh struct {
	Name string

	Positions []float32
	Normals   []float32 // may be nil
	UVs       []float32 // may be nil
	UV2       []float32 // may be nil
	UV3       []float32 // may be nil
	Colors    []float32 // may be nil, rgba
	Tangents  []float32 // may be nil, xyzw

	VertexCount int

	// Submeshes holds one triangle index list per submesh, each a flat
	// (a,b,c) triple stream into the shared vertex arrays above.
	Submeshes [][]uint32
}

// ResolveFunc fetches the vertex-data byte range [offset, offset+size) of a
// sibling bundle node (a .resS resource) by path, for meshes whose vertex
// data streams externally. Matches the core API's resolve_external(path,
// offset, size) shape directly: the resolver is responsible for returning
// exactly the requested slice, not the whole node payload.
type ResolveFunc func(path string, offset, size uint64) ([]byte, bool)

// Decode turns a raw semantic.Mesh into a DecodedMesh. resolve may be nil
// when no external streaming data is expected. enableSkinning gates the
// bind-pose skin step (DecodeOptions.EnableSkinning upstream); when false,
// vertices stay in bind pose.
func Decode(mesh *semantic.Mesh, v VersionTuple, bigEndian bool, resolve ResolveFunc, enableSkinning bool) (DecodedMesh, []string, error) {
	var warnings []string

	vertexData := mesh.VertexDataBlob
	if len(vertexData) == 0 && mesh.Streaming != nil && resolve != nil {
		if payload, ok := resolve(mesh.Streaming.Path, mesh.Streaming.Offset, mesh.Streaming.Size); ok {
			if uint64(len(payload)) == mesh.Streaming.Size {
				vertexData = payload
			} else {
				warnings = append(warnings, fmt.Sprintf("streaming data %q out of range", mesh.Streaming.Path))
			}
		} else {
			warnings = append(warnings, fmt.Sprintf("streaming data %q not found", mesh.Streaming.Path))
		}
	}

	out := DecodedMesh{Name: mesh.Name, VertexCount: int(mesh.VertexCount)}

	usedCompressed := false
	if mesh.CompressedMesh != nil && mesh.CompressedMesh.Vertices.NumItems > 0 {
		if err := decodeCompressedMesh(mesh.CompressedMesh, &out); err != nil {
			return DecodedMesh{}, warnings, err
		}
		usedCompressed = true
	}

	if !usedCompressed && len(vertexData) > 0 {
		channels, streams, err := resolveChannels(v, mesh)
		if err != nil {
			return DecodedMesh{}, warnings, err
		}
		if err := decodeInlineVertices(v, bigEndian, vertexData, channels, streams, &out); err != nil {
			return DecodedMesh{}, warnings, err
		}
	}

	if len(out.Positions) == 0 {
		warnings = append(warnings, "mesh has no position source (no compressed/inline/streaming data)")
	}

	if enableSkinning && len(mesh.BindPoses) > 0 && len(mesh.BoneWeights) == out.VertexCount && len(out.Positions) == 3*out.VertexCount {
		applySkinning(mesh.BindPoses, mesh.BoneWeights, &out)
	}

	elementSize := 2
	use16 := true
	if mesh.Use16BitPresent {
		use16 = mesh.Use16BitIndices
	} else if mesh.IndexFormatPresent {
		use16 = mesh.IndexFormat == 0
	}
	if !use16 {
		elementSize = 4
	}
	indices, err := decodeIndexBuffer(mesh.IndexBuffer, use16, bigEndian)
	if err != nil {
		return DecodedMesh{}, warnings, err
	}

	for _, sm := range mesh.Submeshes {
		startIdx := int(sm.FirstByte) / elementSize
		count := int(sm.IndexCount)
		if startIdx < 0 || startIdx+count > len(indices) {
			warnings = append(warnings, "submesh index range out of bounds, skipped")
			out.Submeshes = append(out.Submeshes, nil)
			continue
		}
		tris, err := triangulate(indices[startIdx:startIdx+count], sm.Topology)
		if err != nil {
			return DecodedMesh{}, warnings, err
		}
		out.Submeshes = append(out.Submeshes, tris)
	}

	return out, warnings, nil
}

func decodeIndexBuffer(buf []byte, use16 bool, bigEndian bool) ([]uint32, error) {
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	elemSize := 4
	if use16 {
		elemSize = 2
	}
	if len(buf)%elemSize != 0 {
		return nil, fmt.Errorf("%w: index buffer length %d not a multiple of element size %d", uerr.ErrMeshUnsupported, len(buf), elemSize)
	}
	n := len(buf) / elemSize
	out := make([]uint32, 0, n)
	for i := 0; i < n; i++ {
		if use16 {
			v := order.Uint16(buf[i*2:])
			if v == 0xFFFF {
				continue
			}
			out = append(out, uint32(v))
		} else {
			v := order.Uint32(buf[i*4:])
			if v == 0xFFFFFFFF {
				continue
			}
			out = append(out, v)
		}
	}
	return out, nil
}

// triangulate expands one submesh's raw index run into (a,b,c) triples per
// its topology.
func triangulate(idx []uint32, topology int32) ([]uint32, error) {
	switch topology {
	case 0: // Triangles
		out := make([]uint32, 0, len(idx))
		for i := 0; i+2 < len(idx)+1 && i+3 <= len(idx); i += 3 {
			out = append(out, idx[i], idx[i+1], idx[i+2])
		}
		return out, nil
	case 1: // TriangleStrip
		var out []uint32
		for i := 0; i+2 < len(idx); i++ {
			a, b, c := idx[i], idx[i+1], idx[i+2]
			if a == b || b == c || a == c {
				continue
			}
			if i%2 == 0 {
				out = append(out, a, b, c)
			} else {
				out = append(out, a, c, b)
			}
		}
		return out, nil
	case 2: // Quads
		out := make([]uint32, 0, len(idx)/4*6)
		for i := 0; i+3 < len(idx); i += 4 {
			a, b, c, d := idx[i], idx[i+1], idx[i+2], idx[i+3]
			out = append(out, a, b, c, a, c, d)
		}
		return out, nil
	default: // Lines, Points, and anything else not renderable
		return nil, nil
	}
}

func decodeCompressedMesh(cm *semantic.CompressedMeshRaw, out *DecodedMesh) error {
	positions, err := unpackFloats(cm.Vertices)
	if err != nil {
		return err
	}
	if len(positions)%3 != 0 {
		return fmt.Errorf("%w: compressed mesh vertex count not a multiple of 3", uerr.ErrMeshUnsupported)
	}
	out.Positions = positions
	out.VertexCount = len(positions) / 3

	if cm.Normals.NumItems > 0 {
		xy, err := unpackFloats(cm.Normals)
		if err != nil {
			return err
		}
		signs, err := unpackInts(cm.NormalSigns)
		if err != nil {
			return err
		}
		n := len(xy) / 2
		normals := make([]float32, n*3)
		for i := 0; i < n; i++ {
			x, y := xy[2*i], xy[2*i+1]
			sign := i < len(signs) && signs[i] != 0
			normals[3*i] = x
			normals[3*i+1] = y
			normals[3*i+2] = reconstructNormalZ(x, y, sign)
		}
		out.Normals = normals
	}

	if cm.UV.NumItems > 0 {
		uv, err := unpackFloats(cm.UV)
		if err != nil {
			return err
		}
		out.UVs = uv
	}

	if cm.Tangents.NumItems > 0 {
		xy, err := unpackFloats(cm.Tangents)
		if err != nil {
			return err
		}
		signs, err := unpackInts(cm.TangentSigns)
		if err != nil {
			return err
		}
		n := len(xy) / 2
		tangents := make([]float32, n*4)
		for i := 0; i < n; i++ {
			x, y := xy[2*i], xy[2*i+1]
			w := float32(-1)
			if i < len(signs) && signs[i] != 0 {
				w = 1
			}
			tangents[4*i] = x
			tangents[4*i+1] = y
			tangents[4*i+2] = reconstructNormalZ(x, y, signs != nil && i < len(signs) && signs[i] != 0)
			tangents[4*i+3] = w
		}
		out.Tangents = tangents
	}

	if cm.FloatColors != nil && cm.FloatColors.NumItems > 0 {
		c, err := unpackFloats(*cm.FloatColors)
		if err != nil {
			return err
		}
		out.Colors = c
	}
	return nil
}

func readComponent(r []byte, order binary.ByteOrder, format int32) float32 {
	switch ComponentFormat(format) {
	case FormatFloat32:
		return math.Float32frombits(order.Uint32(r))
	case FormatFloat16:
		return halfToFloat(order.Uint16(r))
	case FormatUNorm8:
		return float32(r[0]) / 255
	case FormatSNorm8:
		v := int8(r[0])
		f := float32(v) / 127
		if f < -1 {
			f = -1
		}
		return f
	case FormatUNorm16:
		return float32(order.Uint16(r)) / 65535
	case FormatSNorm16:
		v := int16(order.Uint16(r))
		f := float32(v) / 32767
		if f < -1 {
			f = -1
		}
		return f
	case FormatUInt8:
		return float32(r[0])
	case FormatSInt8:
		return float32(int8(r[0]))
	case FormatUInt16:
		return float32(order.Uint16(r))
	case FormatSInt16:
		return float32(int16(order.Uint16(r)))
	case FormatUInt32:
		return float32(order.Uint32(r))
	case FormatSInt32:
		return float32(int32(order.Uint32(r)))
	default:
		return 0
	}
}

func halfToFloat(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := (h >> 10) & 0x1F
	frac := uint32(h & 0x3FF)
	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		for frac&0x400 == 0 {
			frac <<= 1
			exp--
		}
		exp++
		frac &= 0x3FF
	case 0x1F:
		bits := sign | 0xFF<<23 | frac<<13
		return math.Float32frombits(bits)
	}
	bits := sign | (uint32(exp)+112)<<23 | frac<<13
	return math.Float32frombits(bits)
}

func decodeInlineVertices(v VersionTuple, bigEndian bool, blob []byte, channels []resolvedChannel, streams []semantic.VertexStreamRaw, out *DecodedMesh) error {
	order := binary.ByteOrder(binary.LittleEndian)
	if bigEndian {
		order = binary.BigEndian
	}
	n := out.VertexCount
	assign := func(sem string, dim int) []float32 {
		switch sem {
		case "position":
			out.Positions = make([]float32, n*dim)
			return out.Positions
		case "normal":
			out.Normals = make([]float32, n*dim)
			return out.Normals
		case "color":
			out.Colors = make([]float32, n*dim)
			return out.Colors
		case "uv0":
			out.UVs = make([]float32, n*dim)
			return out.UVs
		case "uv1":
			out.UV2 = make([]float32, n*dim)
			return out.UV2
		case "uv2":
			out.UV3 = make([]float32, n*dim)
			return out.UV3
		case "tangent":
			out.Tangents = make([]float32, n*dim)
			return out.Tangents
		default:
			return nil
		}
	}

	for _, ch := range channels {
		if ch.stream >= len(streams) {
			return fmt.Errorf("%w: channel references stream %d beyond stream table", uerr.ErrMeshUnsupported, ch.stream)
		}
		stream := streams[ch.stream]
		size, err := ComponentSize(v, ch.format)
		if err != nil {
			return err
		}
		dst := assign(ch.semantic, ch.dimension)
		if dst == nil {
			continue
		}
		for i := 0; i < n; i++ {
			base := int(stream.Offset) + i*int(stream.Stride) + ch.offset
			for d := 0; d < ch.dimension; d++ {
				off := base + d*size
				if off+size > len(blob) {
					return fmt.Errorf("%w: vertex component read past end of vertex data", uerr.ErrBoundsViolation)
				}
				dst[i*ch.dimension+d] = readComponent(blob[off:off+size], order, ch.format)
			}
		}
	}
	return nil
}

// applySkinning computes each vertex as Σ w_i · inverse(bindPose[b_i]) ·
// position, using math32's Matrix4/Vector3 linear algebra.
func applySkinning(bindPoses [][16]float32, weights []semantic.BoneWeight4, out *DecodedMesh) {
	inverses := make([]*math32.Matrix4, len(bindPoses))
	for i, bp := range bindPoses {
		m := math32.NewMatrix4().FromArray(bp[:])
		inv := math32.NewMatrix4()
		if err := inv.Invert(m); err != nil {
			inverses[i] = nil
			continue
		}
		inverses[i] = inv
	}

	hasNormals := len(out.Normals) == 3*out.VertexCount
	for v := 0; v < out.VertexCount; v++ {
		bw := weights[v]
		weightSum := bw.Weights[0] + bw.Weights[1] + bw.Weights[2] + bw.Weights[3]
		if weightSum == 0 {
			continue
		}
		malformed := false
		for _, idx := range bw.BoneIdx {
			if idx < 0 || int(idx) >= len(inverses) {
				malformed = true
				break
			}
		}
		if malformed {
			continue
		}

		px, py, pz := out.Positions[3*v], out.Positions[3*v+1], out.Positions[3*v+2]
		var accX, accY, accZ float32
		var nAccX, nAccY, nAccZ float32
		for k := 0; k < 4; k++ {
			w := bw.Weights[k]
			if w == 0 {
				continue
			}
			inv := inverses[bw.BoneIdx[k]]
			if inv == nil {
				continue
			}
			p := math32.NewVector3(px, py, pz)
			p.Transform(inv)
			accX += w * p.X
			accY += w * p.Y
			accZ += w * p.Z

			if hasNormals {
				nx, ny, nz := out.Normals[3*v], out.Normals[3*v+1], out.Normals[3*v+2]
				normalM := math32.NewMatrix4().Copy(inv).ClearTranslation()
				dir := math32.NewVector3(nx, ny, nz)
				dir.Transform(normalM)
				nAccX += w * dir.X
				nAccY += w * dir.Y
				nAccZ += w * dir.Z
			}
		}
		out.Positions[3*v] = accX
		out.Positions[3*v+1] = accY
		out.Positions[3*v+2] = accZ
		if hasNormals {
			nv := math32.NewVector3(nAccX, nAccY, nAccZ).Normalize()
			out.Normals[3*v] = nv.X
			out.Normals[3*v+1] = nv.Y
			out.Normals[3*v+2] = nv.Z
		}
	}
}
