package semantic

import "github.com/unitygltf/unitygltf/binreader"

const maxSubmeshCount = 1024

// ProbeMesh attempts to decode a Mesh (class 43) payload into its raw form.
// Geometry interpretation (channel/stream resolution, dequantization,
// skinning, triangulation) belongs to the meshdecode package; this probe
// only carves out the byte ranges and structured tables meshdecode needs.
func ProbeMesh(pathID int64, payload []byte, bigEndian bool, opts Options) (Mesh, bool) {
	r, ok := newProbeReader(payload, bigEndian, 0, opts)
	if !ok {
		return Mesh{}, false
	}

	name, err := r.AlignedString()
	if err != nil || name == "" {
		return Mesh{}, false
	}

	submeshCount, err := r.I32()
	if err != nil || submeshCount < 1 || submeshCount > maxSubmeshCount {
		return Mesh{}, false
	}
	submeshes := make([]SubMeshRaw, submeshCount)
	for i := range submeshes {
		s := SubMeshRaw{}
		if s.FirstByte, err = r.U32(); err != nil {
			return Mesh{}, false
		}
		if s.IndexCount, err = r.U32(); err != nil {
			return Mesh{}, false
		}
		if s.Topology, err = r.I32(); err != nil || s.Topology < 0 || s.Topology > 10 {
			return Mesh{}, false
		}
		if _, err = r.U32(); err != nil { // unused
			return Mesh{}, false
		}
		if s.FirstVertex, err = r.U32(); err != nil {
			return Mesh{}, false
		}
		if s.VertexCount, err = r.U32(); err != nil {
			return Mesh{}, false
		}
		for j := 0; j < 3; j++ {
			if s.AABBCenter[j], err = r.F32(); err != nil {
				return Mesh{}, false
			}
		}
		for j := 0; j < 3; j++ {
			if s.AABBExtent[j], err = r.F32(); err != nil {
				return Mesh{}, false
			}
		}
		submeshes[i] = s
	}

	indexByteSize, err := r.I32()
	if err != nil || indexByteSize < 0 {
		return Mesh{}, false
	}
	indexBuffer, err := r.Bytes(int(indexByteSize))
	if err != nil {
		return Mesh{}, false
	}
	if err := r.Align(4); err != nil {
		return Mesh{}, false
	}

	hasIndexFormat, err := r.U8()
	if err != nil {
		return Mesh{}, false
	}
	var indexFormat int32
	indexFormatPresent := hasIndexFormat != 0
	if indexFormatPresent {
		if indexFormat, err = r.I32(); err != nil {
			return Mesh{}, false
		}
	}
	has16Bit, err := r.U8()
	if err != nil {
		return Mesh{}, false
	}
	use16BitPresent := false
	var use16Bit bool
	if has16Bit != 0 {
		flag, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		use16Bit = flag != 0
		use16BitPresent = true
	}

	channelCount, err := r.I32()
	if err != nil || channelCount < 0 || channelCount > 32 {
		return Mesh{}, false
	}
	channels := make([]VertexChannel, channelCount)
	for i := range channels {
		stream, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		offset, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		format, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		dim, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		channels[i] = VertexChannel{Stream: stream, Offset: offset, Format: format, Dimension: dim}
	}

	streamCount, err := r.I32()
	if err != nil || streamCount < 0 || streamCount > 16 {
		return Mesh{}, false
	}
	streams := make([]VertexStreamRaw, streamCount)
	for i := range streams {
		off, err := r.U32()
		if err != nil {
			return Mesh{}, false
		}
		stride, err := r.U8()
		if err != nil {
			return Mesh{}, false
		}
		mask, err := r.U32()
		if err != nil {
			return Mesh{}, false
		}
		streams[i] = VertexStreamRaw{Offset: off, Stride: stride, ChannelMask: mask}
	}

	vertexCount, err := r.U32()
	if err != nil {
		return Mesh{}, false
	}
	blobSize, err := r.I32()
	if err != nil || blobSize < 0 {
		return Mesh{}, false
	}
	blob, err := r.Bytes(int(blobSize))
	if err != nil {
		return Mesh{}, false
	}
	if err := r.Align(4); err != nil {
		return Mesh{}, false
	}

	compressedMesh, err := readCompressedMesh(r)
	if err != nil {
		return Mesh{}, false
	}

	bindPoseCount, err := r.I32()
	if err != nil || bindPoseCount < 0 || bindPoseCount > 256 {
		return Mesh{}, false
	}
	bindPoses := make([][16]float32, bindPoseCount)
	for i := range bindPoses {
		for j := 0; j < 16; j++ {
			if bindPoses[i][j], err = r.F32(); err != nil {
				return Mesh{}, false
			}
		}
	}

	boneWeightCount, err := r.I32()
	if err != nil || boneWeightCount < 0 || boneWeightCount > 1<<20 {
		return Mesh{}, false
	}
	boneWeights := make([]BoneWeight4, boneWeightCount)
	for i := range boneWeights {
		var bw BoneWeight4
		for j := 0; j < 4; j++ {
			if bw.Weights[j], err = r.F32(); err != nil {
				return Mesh{}, false
			}
		}
		for j := 0; j < 4; j++ {
			if bw.BoneIdx[j], err = r.I32(); err != nil {
				return Mesh{}, false
			}
		}
		boneWeights[i] = bw
	}

	hasStreaming, err := r.U8()
	if err != nil {
		return Mesh{}, false
	}
	var streaming *StreamingInfo
	if hasStreaming != 0 {
		offset, err := r.U64()
		if err != nil {
			return Mesh{}, false
		}
		size, err := r.U64()
		if err != nil {
			return Mesh{}, false
		}
		path, err := r.CString()
		if err != nil {
			return Mesh{}, false
		}
		streaming = &StreamingInfo{Path: path, Offset: offset, Size: size}
	}

	return Mesh{
		PathID:             pathID,
		Name:               name,
		Submeshes:          submeshes,
		IndexBuffer:        append([]byte{}, indexBuffer...),
		IndexFormatPresent: indexFormatPresent,
		IndexFormat:        indexFormat,
		Use16BitIndices:    use16Bit,
		Use16BitPresent:    use16BitPresent,
		VertexCount:        vertexCount,
		Channels:           channels,
		Streams:            streams,
		VertexDataBlob:     append([]byte{}, blob...),
		CompressedMesh:     compressedMesh,
		BindPoses:          bindPoses,
		BoneWeights:        boneWeights,
		Streaming:          streaming,
	}, true
}

func readPackedBitVector(r *binreader.Reader) (PackedBitVectorRaw, error) {
	numItems, err := r.I32()
	if err != nil {
		return PackedBitVectorRaw{}, err
	}
	rng, err := r.F32()
	if err != nil {
		return PackedBitVectorRaw{}, err
	}
	start, err := r.F32()
	if err != nil {
		return PackedBitVectorRaw{}, err
	}
	dataSize, err := r.I32()
	if err != nil || dataSize < 0 {
		return PackedBitVectorRaw{}, err
	}
	data, err := r.Bytes(int(dataSize))
	if err != nil {
		return PackedBitVectorRaw{}, err
	}
	if err := r.Align(4); err != nil {
		return PackedBitVectorRaw{}, err
	}
	bitSize, err := r.U8()
	if err != nil {
		return PackedBitVectorRaw{}, err
	}
	if err := r.Align(4); err != nil {
		return PackedBitVectorRaw{}, err
	}
	return PackedBitVectorRaw{
		NumItems: numItems,
		Range:    rng,
		Start:    start,
		Data:     append([]byte{}, data...),
		BitSize:  bitSize,
	}, nil
}

func readCompressedMesh(r *binreader.Reader) (*CompressedMeshRaw, error) {
	has, err := r.U8()
	if err != nil {
		return nil, err
	}
	if has == 0 {
		return nil, nil
	}
	cm := &CompressedMeshRaw{}
	if cm.Vertices, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.UV, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.Normals, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.Tangents, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.Weights, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.BoneIndices, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.NormalSigns, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	if cm.TangentSigns, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	hasFloatColors, err := r.U8()
	if err != nil {
		return nil, err
	}
	if hasFloatColors != 0 {
		fc, err := readPackedBitVector(r)
		if err != nil {
			return nil, err
		}
		cm.FloatColors = &fc
	}
	if cm.Triangles, err = readPackedBitVector(r); err != nil {
		return nil, err
	}
	return cm, nil
}
