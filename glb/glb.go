// Package glb assembles a decoded scene into a glTF-2.0 binary (.glb):
// scene graph, mesh primitives, and a default PBR material, written as a
// GLB container: a JSON chunk, followed by a binary buffer chunk only when
// there is binary data.
package glb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
)

// GLB container constants, matching the glTF-2.0 binary file format.
const (
	glbMagic   uint32 = 0x46546C67
	glbVersion uint32 = 2
	chunkJSON  uint32 = 0x4E4F534A
	chunkBIN   uint32 = 0x004E4942
)

// Builder accumulates buffer bytes and glTF JSON elements while walking a
// decoded semantic Context into a gltf.Document.
type Builder struct {
	doc *gltf.Document
	bin bytes.Buffer
}

func NewBuilder() *Builder {
	doc := &gltf.Document{
		Asset: gltf.Asset{Version: "2.0", Generator: "unitygltf"},
	}
	return &Builder{doc: doc}
}

func u32ptr(v uint32) *uint32 { return &v }
func f32ptr(v float32) *float32 { return &v }

// align pads the binary buffer up to a multiple of n with zero bytes.
func (b *Builder) align(n int) {
	for b.bin.Len()%n != 0 {
		b.bin.WriteByte(0)
	}
}

// addFloatAccessor appends data to the binary buffer and creates a matching
// BufferView + Accessor, returning the accessor index. dim is 1/2/3/4 for
// scalar/vec2/vec3/vec4; withBounds computes per-component Min/Max (glTF
// requires this for POSITION accessors).
func (b *Builder) addFloatAccessor(data []float32, dim int, withBounds bool) (uint32, error) {
	if len(data)%dim != 0 {
		return 0, fmt.Errorf("glb: float attribute length %d not a multiple of dimension %d", len(data), dim)
	}
	b.align(4)
	byteOffset := uint32(b.bin.Len())
	for _, f := range data {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		b.bin.Write(buf[:])
	}
	byteLength := uint32(len(data) * 4)

	bvIdx := uint32(len(b.doc.BufferViews))
	b.doc.BufferViews = append(b.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: byteOffset,
		ByteLength: byteLength,
	})

	count := len(data) / dim
	accType := accessorTypeForDim(dim)
	acc := &gltf.Accessor{
		BufferView:    u32ptr(bvIdx),
		ComponentType: gltf.ComponentFloat,
		Count:         uint32(count),
		Type:          accType,
	}
	if withBounds && dim <= 4 {
		min := make([]float32, dim)
		max := make([]float32, dim)
		for d := 0; d < dim; d++ {
			min[d] = data[d]
			max[d] = data[d]
		}
		for i := 1; i < count; i++ {
			for d := 0; d < dim; d++ {
				v := data[i*dim+d]
				if v < min[d] {
					min[d] = v
				}
				if v > max[d] {
					max[d] = v
				}
			}
		}
		acc.Min = min
		acc.Max = max
	}
	idx := uint32(len(b.doc.Accessors))
	b.doc.Accessors = append(b.doc.Accessors, acc)
	return idx, nil
}

func accessorTypeForDim(dim int) gltf.AccessorType {
	switch dim {
	case 1:
		return gltf.AccessorScalar
	case 2:
		return gltf.AccessorVec2
	case 3:
		return gltf.AccessorVec3
	case 4:
		return gltf.AccessorVec4
	default:
		return gltf.AccessorScalar
	}
}

// addIndexAccessor appends a triangle index list to the binary buffer as
// either u16 (when every index fits) or u32, and creates its accessor.
func (b *Builder) addIndexAccessor(indices []uint32, vertexCount int) (uint32, error) {
	use16 := vertexCount <= 0x10000
	for _, idx := range indices {
		if idx >= 0x10000 {
			use16 = false
			break
		}
	}

	b.align(4)
	byteOffset := uint32(b.bin.Len())
	componentType := gltf.ComponentUshort
	if !use16 {
		componentType = gltf.ComponentUint
	}
	for _, idx := range indices {
		if use16 {
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], uint16(idx))
			b.bin.Write(buf[:])
		} else {
			var buf [4]byte
			binary.LittleEndian.PutUint32(buf[:], idx)
			b.bin.Write(buf[:])
		}
	}
	byteLength := uint32(b.bin.Len()) - byteOffset

	bvIdx := uint32(len(b.doc.BufferViews))
	b.doc.BufferViews = append(b.doc.BufferViews, &gltf.BufferView{
		Buffer:     0,
		ByteOffset: byteOffset,
		ByteLength: byteLength,
	})
	idx := uint32(len(b.doc.Accessors))
	b.doc.Accessors = append(b.doc.Accessors, &gltf.Accessor{
		BufferView:    u32ptr(bvIdx),
		ComponentType: componentType,
		Count:         uint32(len(indices)),
		Type:          gltf.AccessorScalar,
	})
	return idx, nil
}

// defaultMaterial returns (creating on first use) the single default PBR
// material every primitive is assigned, per the GLB writer's scope.
func (b *Builder) defaultMaterial() uint32 {
	if len(b.doc.Materials) > 0 {
		return 0
	}
	base := [4]float32{0.8, 0.8, 0.8, 1}
	b.doc.Materials = append(b.doc.Materials, &gltf.Material{
		Name: "default",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  f32ptr(0),
			RoughnessFactor: f32ptr(1),
		},
	})
	return 0
}

// addMesh turns one decoded mesh into a gltf.Mesh with one primitive per
// submesh, skipping submeshes with no triangles and meshes with no
// positions entirely (per §4.6's "downstream GLB writer skips meshes
// lacking positions"). Skips are returned as warning strings rather than
// errors, per §4.7's "attach to extras.conversionWarnings".
func (b *Builder) addMesh(name string, dm meshdecode.DecodedMesh) (uint32, bool, []string, error) {
	if len(dm.Positions) == 0 {
		return 0, false, []string{fmt.Sprintf("mesh %q skipped: no positions", name)}, nil
	}
	var warnings []string
	posAcc, err := b.addFloatAccessor(dm.Positions, 3, true)
	if err != nil {
		return 0, false, nil, err
	}
	var normAcc, uvAcc, uv2Acc, colorAcc, tangentAcc *uint32
	if len(dm.Normals) == 3*dm.VertexCount {
		a, err := b.addFloatAccessor(dm.Normals, 3, false)
		if err != nil {
			return 0, false, nil, err
		}
		normAcc = &a
	}
	if len(dm.UVs) == 2*dm.VertexCount {
		a, err := b.addFloatAccessor(dm.UVs, 2, false)
		if err != nil {
			return 0, false, nil, err
		}
		uvAcc = &a
	}
	if len(dm.UV2) == 2*dm.VertexCount {
		a, err := b.addFloatAccessor(dm.UV2, 2, false)
		if err != nil {
			return 0, false, nil, err
		}
		uv2Acc = &a
	}
	if len(dm.Colors) == 4*dm.VertexCount {
		a, err := b.addFloatAccessor(dm.Colors, 4, false)
		if err != nil {
			return 0, false, nil, err
		}
		colorAcc = &a
	}
	if len(dm.Tangents) == 4*dm.VertexCount {
		a, err := b.addFloatAccessor(dm.Tangents, 4, false)
		if err != nil {
			return 0, false, nil, err
		}
		tangentAcc = &a
	}
	matIdx := b.defaultMaterial()

	mesh := &gltf.Mesh{Name: name}
	for i, tris := range dm.Submeshes {
		if len(tris) == 0 {
			warnings = append(warnings, fmt.Sprintf("mesh %q submesh %d skipped: no triangles", name, i))
			continue
		}
		for _, idx := range tris {
			if idx >= uint32(dm.VertexCount) {
				warnings = append(warnings, fmt.Sprintf("mesh %q submesh %d: index %d out of range for %d vertices", name, i, idx, dm.VertexCount))
				break
			}
		}
		idxAcc, err := b.addIndexAccessor(tris, dm.VertexCount)
		if err != nil {
			return 0, false, nil, err
		}
		attrs := map[string]uint32{gltf.POSITION: posAcc}
		if normAcc != nil {
			attrs[gltf.NORMAL] = *normAcc
		}
		if uvAcc != nil {
			attrs[gltf.TEXCOORD_0] = *uvAcc
		}
		if uv2Acc != nil {
			attrs[gltf.TEXCOORD_1] = *uv2Acc
		}
		if colorAcc != nil {
			attrs[gltf.COLOR_0] = *colorAcc
		}
		if tangentAcc != nil {
			attrs[gltf.TANGENT] = *tangentAcc
		}
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Attributes: attrs,
			Indices:    u32ptr(idxAcc),
			Material:   u32ptr(matIdx),
			Mode:       gltf.PrimitiveTriangles,
		})
	}
	if len(mesh.Primitives) == 0 {
		warnings = append(warnings, fmt.Sprintf("mesh %q skipped: no surviving submeshes", name))
		return 0, false, warnings, nil
	}
	idx := uint32(len(b.doc.Meshes))
	b.doc.Meshes = append(b.doc.Meshes, mesh)
	return idx, true, warnings, nil
}

// BuildScene walks ctx's GameObject/Transform hierarchy and decoded meshes
// into the Document's node graph, returning the finished document plus its
// binary buffer payload. meshWarnings carries per-mesh decode-stage warnings
// (keyed by Mesh.PathID, e.g. from meshdecode.Decode) so they can be merged
// into the same extras.conversionWarnings list as writer-stage skips (§4.7).
func BuildScene(ctx *semantic.Context, decoded map[int64]meshdecode.DecodedMesh, meshWarnings map[int64][]string) (*gltf.Document, []byte, error) {
	b := NewBuilder()

	var warnings []string
	goToMesh := map[int64]uint32{} // GameObject path_id -> mesh index
	for _, mf := range ctx.MeshFilters {
		for _, w := range meshWarnings[mf.Mesh.PathID] {
			warnings = append(warnings, fmt.Sprintf("mesh %d: %s", mf.Mesh.PathID, w))
		}
		dm, ok := decoded[mf.Mesh.PathID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("mesh filter %d references undecoded mesh %d", mf.PathID, mf.Mesh.PathID))
			continue
		}
		meshIdx, built, meshWarns, err := b.addMesh(dm.Name, dm)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, meshWarns...)
		if built {
			goToMesh[mf.GameObject.PathID] = meshIdx
		}
	}

	transformIdxByPathID := map[int64]int{}
	for i, t := range ctx.Transforms {
		transformIdxByPathID[t.PathID] = i
	}

	nodeIdxByTransformPathID := map[int64]uint32{}
	for _, t := range ctx.Transforms {
		node := &gltf.Node{}
		if gobj, ok := ctx.GameObjectByID(t.GameObject.PathID); ok {
			node.Name = gobj.Name
		}
		// glTF node defaults are translation (0,0,0), rotation (0,0,0,1)
		// and scale (1,1,1); only emit the ones that actually differ so an
		// identity Transform doesn't inflate the JSON chunk.
		if t.PositionX != 0 || t.PositionY != 0 || t.PositionZ != 0 {
			translation := [3]float32{t.PositionX, t.PositionY, t.PositionZ}
			node.Translation = &translation
		}
		if t.RotationX != 0 || t.RotationY != 0 || t.RotationZ != 0 || t.RotationW != 1 {
			rotation := [4]float32{t.RotationX, t.RotationY, t.RotationZ, t.RotationW}
			node.Rotation = &rotation
		}
		if t.ScaleX != 1 || t.ScaleY != 1 || t.ScaleZ != 1 {
			scale := [3]float32{t.ScaleX, t.ScaleY, t.ScaleZ}
			node.Scale = &scale
		}
		if meshIdx, ok := goToMesh[t.GameObject.PathID]; ok {
			node.Mesh = u32ptr(meshIdx)
		}
		idx := uint32(len(b.doc.Nodes))
		b.doc.Nodes = append(b.doc.Nodes, node)
		nodeIdxByTransformPathID[t.PathID] = idx
	}

	var roots []uint32
	for _, t := range ctx.Transforms {
		selfIdx := nodeIdxByTransformPathID[t.PathID]
		for _, child := range t.Children {
			if childIdx, ok := nodeIdxByTransformPathID[child.PathID]; ok {
				b.doc.Nodes[selfIdx].Children = append(b.doc.Nodes[selfIdx].Children, childIdx)
			}
		}
		if _, hasParent := transformIdxByPathID[t.Parent.PathID]; !hasParent || t.Parent.IsNull() {
			roots = append(roots, selfIdx)
		}
	}

	if len(roots) > 0 || len(b.doc.Nodes) > 0 {
		b.doc.Scenes = append(b.doc.Scenes, &gltf.Scene{Nodes: roots})
		b.doc.Scene = u32ptr(0)
	}
	if len(b.doc.Buffers) == 0 && b.bin.Len() > 0 {
		b.doc.Buffers = append(b.doc.Buffers, &gltf.Buffer{ByteLength: uint32(b.bin.Len())})
	}
	if len(warnings) > 0 {
		b.doc.Extras = map[string]interface{}{"conversionWarnings": warnings}
	}

	return b.doc, b.bin.Bytes(), nil
}

// Write emits doc and bin as a GLB binary to w: the JSON chunk, then a BIN
// chunk only when bin is non-empty.
func Write(doc *gltf.Document, bin []byte, w io.Writer) error {
	jsonBytes, err := marshalDocument(doc)
	if err != nil {
		return err
	}
	for len(jsonBytes)%4 != 0 {
		jsonBytes = append(jsonBytes, ' ')
	}
	paddedBin := bin
	for len(paddedBin)%4 != 0 {
		paddedBin = append(paddedBin, 0)
	}

	total := uint32(12 + 8 + len(jsonBytes))
	if len(paddedBin) > 0 {
		total += uint32(8 + len(paddedBin))
	}

	if err := writeU32(w, glbMagic); err != nil {
		return err
	}
	if err := writeU32(w, glbVersion); err != nil {
		return err
	}
	if err := writeU32(w, total); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(jsonBytes))); err != nil {
		return err
	}
	if err := writeU32(w, chunkJSON); err != nil {
		return err
	}
	if _, err := w.Write(jsonBytes); err != nil {
		return err
	}

	if len(paddedBin) > 0 {
		if err := writeU32(w, uint32(len(paddedBin))); err != nil {
			return err
		}
		if err := writeU32(w, chunkBIN); err != nil {
			return err
		}
		if _, err := w.Write(paddedBin); err != nil {
			return err
		}
	}
	return nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
