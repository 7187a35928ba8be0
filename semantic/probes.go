package semantic

import (
	"github.com/unitygltf/unitygltf/binreader"
)

// Options configures the tolerant probes — caps shared with the rest of
// the decoder.
type Options struct {
	MaxStringBytes int
}

func newProbeReader(payload []byte, bigEndian bool, skip int, opts Options) (*binreader.Reader, bool) {
	if skip > len(payload) {
		return nil, false
	}
	r := binreader.New(payload[skip:], bigEndian)
	if opts.MaxStringBytes > 0 {
		r.SetMaxString(opts.MaxStringBytes)
	}
	return r, true
}

// ProbeGameObject attempts to decode a GameObject (class 1) payload.
func ProbeGameObject(pathID int64, payload []byte, bigEndian bool, opts Options) (GameObject, bool) {
	for _, width := range []ptrWidth{ptrWidth64, ptrWidth32} {
		for _, skip := range objectPrefixOffsets(width) {
			r, ok := newProbeReader(payload, bigEndian, skip, opts)
			if !ok {
				continue
			}
			if g, ok := tryGameObject(pathID, r, width); ok {
				return g, true
			}
		}
	}
	return GameObject{}, false
}

func tryGameObject(pathID int64, r *binreader.Reader, width ptrWidth) (GameObject, bool) {
	count, err := r.I32()
	if err != nil || count < 0 || count > 1024 {
		return GameObject{}, false
	}
	components := make([]PPtr, count)
	for i := range components {
		p, err := readPPtr(r, width)
		if err != nil {
			return GameObject{}, false
		}
		components[i] = p
	}
	layer, err := r.I32()
	if err != nil || layer < 0 || layer > 31 {
		return GameObject{}, false
	}
	name, err := r.AlignedString()
	if err != nil || name == "" {
		return GameObject{}, false
	}
	if _, err := r.U16(); err != nil { // tag
		return GameObject{}, false
	}
	isActive, err := r.U8()
	if err != nil {
		return GameObject{}, false
	}
	return GameObject{PathID: pathID, Name: name, IsActive: isActive != 0, Layer: layer, Components: components}, true
}

// ProbeTransform attempts to decode a Transform (class 4) payload.
func ProbeTransform(pathID int64, payload []byte, bigEndian bool, opts Options) (Transform, bool) {
	for _, width := range []ptrWidth{ptrWidth64, ptrWidth32} {
		for _, skip := range objectPrefixOffsets(width) {
			r, ok := newProbeReader(payload, bigEndian, skip, opts)
			if !ok {
				continue
			}
			if t, ok := tryTransform(pathID, r, width); ok {
				return t, true
			}
		}
	}
	return Transform{}, false
}

func tryTransform(pathID int64, r *binreader.Reader, width ptrWidth) (Transform, bool) {
	goPtr, err := readPPtr(r, width)
	if err != nil {
		return Transform{}, false
	}
	rx, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	ry, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	rz, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	rw, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	px, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	py, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	pz, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	sx, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	sy, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	sz, err := r.F32()
	if err != nil {
		return Transform{}, false
	}
	childCount, err := r.I32()
	if err != nil || childCount < 0 || childCount > 1024 {
		return Transform{}, false
	}
	children := make([]PPtr, childCount)
	for i := range children {
		p, err := readPPtr(r, width)
		if err != nil {
			return Transform{}, false
		}
		children[i] = p
	}
	parent, err := readPPtr(r, width)
	if err != nil {
		return Transform{}, false
	}
	return Transform{
		PathID:     pathID,
		GameObject: goPtr,
		Parent:     parent,
		Children:   children,
		RotationW:  rw, RotationX: rx, RotationY: ry, RotationZ: rz,
		PositionX: px, PositionY: py, PositionZ: pz,
		ScaleX: sx, ScaleY: sy, ScaleZ: sz,
	}, true
}

// ProbeMeshFilter attempts to decode a MeshFilter (class 33) payload. Both
// PPtrs must resolve locally in ctx for the probe to succeed.
func ProbeMeshFilter(pathID int64, payload []byte, bigEndian bool, ctx *Context, opts Options) (MeshFilter, bool) {
	for _, width := range []ptrWidth{ptrWidth64, ptrWidth32} {
		for _, skip := range objectPrefixOffsets(width) {
			r, ok := newProbeReader(payload, bigEndian, skip, opts)
			if !ok {
				continue
			}
			goPtr, err := readPPtr(r, width)
			if err != nil {
				continue
			}
			if goPtr.FileID == 0 && !ctx.HasPathID(goPtr.PathID) {
				continue
			}
			meshPtr, err := readPPtr(r, width)
			if err != nil {
				continue
			}
			if meshPtr.FileID == 0 && !ctx.HasPathID(meshPtr.PathID) {
				continue
			}
			return MeshFilter{PathID: pathID, GameObject: goPtr, Mesh: meshPtr}, true
		}
	}
	return MeshFilter{}, false
}

const meshRendererScanWindow = 256

// ProbeMeshRenderer attempts to decode a MeshRenderer (class 23) payload,
// scanning forward for a plausible material_count + material PPtr array.
func ProbeMeshRenderer(pathID int64, payload []byte, bigEndian bool, ctx *Context, opts Options) (MeshRenderer, bool) {
	for _, width := range []ptrWidth{ptrWidth64, ptrWidth32} {
		for _, skip := range objectPrefixOffsets(width) {
			r, ok := newProbeReader(payload, bigEndian, skip, opts)
			if !ok {
				continue
			}
			goPtr, err := readPPtr(r, width)
			if err != nil {
				continue
			}
			base := r.Pos()
			for delta := 0; delta <= meshRendererScanWindow; delta++ {
				if err := r.Seek(base + delta); err != nil {
					break
				}
				count, err := r.I32()
				if err != nil {
					continue
				}
				if count < 1 || count > 64 {
					continue
				}
				mats := make([]PPtr, count)
				ok := true
				for i := range mats {
					p, err := readPPtr(r, width)
					if err != nil {
						ok = false
						break
					}
					mats[i] = p
				}
				if !ok {
					continue
				}
				allResolve := true
				for _, m := range mats {
					if m.FileID == 0 && !ctx.HasPathID(m.PathID) {
						allResolve = false
						break
					}
				}
				if !allResolve {
					continue
				}
				return MeshRenderer{PathID: pathID, GameObject: goPtr, Materials: mats}, true
			}
		}
	}
	return MeshRenderer{}, false
}

// ProbeMaterial attempts to decode a Material (class 21) payload.
func ProbeMaterial(pathID int64, payload []byte, bigEndian bool, opts Options) (Material, bool) {
	for _, width := range []ptrWidth{ptrWidth64, ptrWidth32} {
		for _, skip := range objectPrefixOffsets(width) {
			r, ok := newProbeReader(payload, bigEndian, skip, opts)
			if !ok {
				continue
			}
			name, err := r.AlignedString()
			if err != nil || name == "" {
				continue
			}
			shader, err := readPPtr(r, width)
			if err != nil {
				continue
			}
			return Material{PathID: pathID, Name: name, Shader: shader}, true
		}
	}
	return Material{}, false
}

// ProbeTexture2D attempts to decode a Texture2D (class 28) payload.
func ProbeTexture2D(pathID int64, payload []byte, bigEndian bool, opts Options) (Texture2D, bool) {
	r, ok := newProbeReader(payload, bigEndian, 0, opts)
	if !ok {
		return Texture2D{}, false
	}
	name, err := r.AlignedString()
	if err != nil || name == "" {
		return Texture2D{}, false
	}
	if _, err := r.I32(); err != nil { // reserved
		return Texture2D{}, false
	}
	if _, err := r.U8(); err != nil { // readable
		return Texture2D{}, false
	}
	if _, err := r.U8(); err != nil { // stream/write flag
		return Texture2D{}, false
	}
	if err := r.Align(4); err != nil {
		return Texture2D{}, false
	}
	width, err := r.I32()
	if err != nil || width < 0 {
		return Texture2D{}, false
	}
	height, err := r.I32()
	if err != nil || height < 0 {
		return Texture2D{}, false
	}
	completeSize, err := r.I32()
	if err != nil || completeSize < 0 {
		return Texture2D{}, false
	}
	format, err := r.I32()
	if err != nil {
		return Texture2D{}, false
	}
	mipCount, err := r.I32()
	if err != nil || mipCount < 0 {
		return Texture2D{}, false
	}
	return Texture2D{PathID: pathID, Name: name, Width: width, Height: height, CompleteSize: completeSize, Format: format, MipCount: mipCount}, true
}
