package semantic

// SubMeshRaw mirrors the SubMesh entity as read directly off disk, before
// triangulation.
type SubMeshRaw struct {
	FirstByte   uint32
	IndexCount  uint32
	Topology    int32
	FirstVertex uint32
	VertexCount uint32
	AABBCenter  [3]float32
	AABBExtent  [3]float32
}

// VertexChannel is one entry of the explicit channel table (Unity major
// version >= 4).
type VertexChannel struct {
	Stream    uint8
	Offset    uint8
	Format    uint8
	Dimension uint8
}

// VertexStreamRaw is one entry of the explicit stream table (Unity major
// version <= 4; versions >= 5 derive streams from the channel table instead
// of storing them — see meshdecode).
type VertexStreamRaw struct {
	Offset      uint32
	Stride      uint8
	ChannelMask uint32
}

// PackedBitVectorRaw mirrors the PackedBitVector entity.
type PackedBitVectorRaw struct {
	NumItems int32
	Range    float32
	Start    float32
	Data     []byte
	BitSize  uint8
}

// CompressedMeshRaw mirrors Unity's CompressedMesh container: every
// attribute is a PackedBitVector.
type CompressedMeshRaw struct {
	Vertices    PackedBitVectorRaw
	UV          PackedBitVectorRaw
	Normals     PackedBitVectorRaw
	Tangents    PackedBitVectorRaw
	Weights     PackedBitVectorRaw
	BoneIndices PackedBitVectorRaw
	NormalSigns PackedBitVectorRaw
	TangentSigns PackedBitVectorRaw
	FloatColors *PackedBitVectorRaw
	Triangles   PackedBitVectorRaw
}

// BoneWeight4 is one vertex's skin binding: up to four bone indices and
// weights.
type BoneWeight4 struct {
	Weights [4]float32
	BoneIdx [4]int32
}

// StreamingInfo points at vertex-data bytes stored in a sibling bundle
// node rather than inline in the SerializedFile.
type StreamingInfo struct {
	Path   string
	Offset uint64
	Size   uint64
}

// Mesh is the raw Mesh entity: everything the semantic probe can recover
// from the payload bytes without interpreting channel/stream geometry —
// that interpretation is meshdecode's job.
type Mesh struct {
	PathID    int64
	Name      string
	Submeshes []SubMeshRaw

	IndexBuffer        []byte
	IndexFormatPresent bool
	IndexFormat        int32 // 0 = u16, 1 = u32 (2017.4+)
	Use16BitIndices    bool
	Use16BitPresent    bool

	VertexCount    uint32
	Channels       []VertexChannel   // set when the file stores an explicit channel table
	Streams        []VertexStreamRaw // set for the explicit-stream layouts (Unity major <= 4)
	VertexDataBlob []byte

	CompressedMesh *CompressedMeshRaw

	BindPoses   [][16]float32
	BoneWeights []BoneWeight4

	Streaming *StreamingInfo
}
