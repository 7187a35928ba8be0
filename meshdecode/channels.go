package meshdecode

import (
	"fmt"

	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/uerr"
)

// resolvedChannel is one vertex attribute's fully-resolved location within
// the interleaved vertex data blob.
type resolvedChannel struct {
	semantic  string // "position", "normal", "color", "uv0", "uv1", "tangent"
	stream    int
	offset    int
	format    int32
	dimension int
}

// legacyStreamChannels is the fixed channel layout synthesized for Unity
// major < 4, where only four explicit streams exist on disk and the
// channel table itself is absent.
var legacyStreamChannels = []resolvedChannel{
	{semantic: "position", dimension: 3},
	{semantic: "normal", dimension: 3},
	{semantic: "color", dimension: 4},
	{semantic: "uv0", dimension: 2},
	{semantic: "uv1", dimension: 2},
	{semantic: "tangent", dimension: 4},
}

var channelSemantics = []string{"position", "normal", "color", "uv0", "uv1", "uv2", "uv3", "tangent"}

// resolveChannels implements §4.6's three version regimes, returning each
// channel's resolved stream/offset/format plus the per-stream stride.
func resolveChannels(v VersionTuple, mesh *semantic.Mesh) ([]resolvedChannel, []semantic.VertexStreamRaw, error) {
	switch {
	case v.Major < 4:
		return resolveLegacyChannels(v, mesh)
	case v.Major == 4:
		return resolveExplicitChannels(v, mesh, mesh.Streams)
	default:
		return resolveDerivedStreamChannels(v, mesh)
	}
}

func resolveLegacyChannels(v VersionTuple, mesh *semantic.Mesh) ([]resolvedChannel, []semantic.VertexStreamRaw, error) {
	if len(mesh.Streams) == 0 {
		return nil, nil, fmt.Errorf("%w: legacy mesh has no explicit streams", uerr.ErrMeshUnsupported)
	}
	out := make([]resolvedChannel, 0, len(legacyStreamChannels))
	// Legacy Unity assigned position/normal/color to stream 0 and the two
	// UV sets plus tangent to stream 1, offsets running per-stream.
	streamOf := []int{0, 0, 0, 1, 1, 1}
	offsets := map[int]int{}
	for i, ch := range legacyStreamChannels {
		s := streamOf[i]
		if s >= len(mesh.Streams) {
			continue
		}
		size, err := ComponentSize(v, int32(FormatFloat32))
		if err != nil {
			return nil, nil, err
		}
		resolved := ch
		resolved.stream = s
		resolved.offset = offsets[s]
		resolved.format = int32(FormatFloat32)
		if ch.semantic == "color" {
			resolved.format = int32(FormatUNorm8)
			size, _ = ComponentSize(v, resolved.format)
		}
		offsets[s] += size * ch.dimension
		out = append(out, resolved)
	}
	return out, mesh.Streams, nil
}

func resolveExplicitChannels(v VersionTuple, mesh *semantic.Mesh, streams []semantic.VertexStreamRaw) ([]resolvedChannel, []semantic.VertexStreamRaw, error) {
	out := make([]resolvedChannel, 0, len(mesh.Channels))
	for i, ch := range mesh.Channels {
		if ch.Dimension == 0 {
			continue
		}
		sem := "extra"
		if i < len(channelSemantics) {
			sem = channelSemantics[i]
		}
		out = append(out, resolvedChannel{
			semantic:  sem,
			stream:    int(ch.Stream),
			offset:    int(ch.Offset),
			format:    int32(ch.Format),
			dimension: int(ch.Dimension),
		})
	}
	return out, streams, nil
}

func resolveDerivedStreamChannels(v VersionTuple, mesh *semantic.Mesh) ([]resolvedChannel, []semantic.VertexStreamRaw, error) {
	maxStream := -1
	for _, ch := range mesh.Channels {
		if ch.Dimension > 0 && int(ch.Stream) > maxStream {
			maxStream = int(ch.Stream)
		}
	}
	if maxStream < 0 {
		return nil, nil, fmt.Errorf("%w: mesh has no active channels", uerr.ErrMeshUnsupported)
	}
	streamCount := maxStream + 1
	masks := make([]uint32, streamCount)
	strides := make([]int, streamCount)
	for i, ch := range mesh.Channels {
		if ch.Dimension == 0 {
			continue
		}
		size, err := ComponentSize(v, int32(ch.Format))
		if err != nil {
			return nil, nil, err
		}
		s := int(ch.Stream)
		masks[s] |= 1 << uint(i)
		strides[s] += size * int(ch.Dimension)
	}
	streams := make([]semantic.VertexStreamRaw, streamCount)
	offset := uint32(0)
	for s := 0; s < streamCount; s++ {
		streams[s] = semantic.VertexStreamRaw{Offset: offset, Stride: uint8(strides[s]), ChannelMask: masks[s]}
		size := uint32(strides[s]) * mesh.VertexCount
		offset += size
		if offset%16 != 0 {
			offset += 16 - offset%16
		}
	}

	out := make([]resolvedChannel, 0, len(mesh.Channels))
	for i, ch := range mesh.Channels {
		if ch.Dimension == 0 {
			continue
		}
		sem := "extra"
		if i < len(channelSemantics) {
			sem = channelSemantics[i]
		}
		out = append(out, resolvedChannel{
			semantic:  sem,
			stream:    int(ch.Stream),
			offset:    int(ch.Offset),
			format:    int32(ch.Format),
			dimension: int(ch.Dimension),
		})
	}
	return out, streams, nil
}
