// Package meshdecode turns a raw semantic.Mesh payload plus a Unity version
// tuple into a DecodedMesh: flat vertex attribute arrays and a triangle
// index buffer, ready for the GLB writer.
package meshdecode

import (
	"fmt"

	"github.com/unitygltf/unitygltf/uerr"
)

// ComponentFormat is a vertex channel's wire format (2019+ numbering).
type ComponentFormat int32

const (
	FormatFloat32 ComponentFormat = 0
	FormatFloat16 ComponentFormat = 1
	FormatUNorm8  ComponentFormat = 2
	FormatSNorm8  ComponentFormat = 3
	FormatUNorm16 ComponentFormat = 4
	FormatSNorm16 ComponentFormat = 5
	FormatUInt8   ComponentFormat = 6
	FormatSInt8   ComponentFormat = 7
	FormatUInt16  ComponentFormat = 8
	FormatSInt16  ComponentFormat = 9
	FormatUInt32  ComponentFormat = 10
	FormatSInt32  ComponentFormat = 11
)

// VersionTuple is a Unity editor version (2019.4.1f1 -> {2019, 4, 1, 1}).
type VersionTuple struct {
	Major, Minor, Patch, Build int
}

// componentSize2019 is the canonical 2019+ component size table.
var componentSize2019 = map[ComponentFormat]int{
	FormatFloat32: 4, FormatFloat16: 2,
	FormatUNorm8: 1, FormatSNorm8: 1,
	FormatUNorm16: 2, FormatSNorm16: 2,
	FormatUInt8: 1, FormatSInt8: 1,
	FormatUInt16: 2, FormatSInt16: 2,
	FormatUInt32: 4, FormatSInt32: 4,
}

// componentSizeLegacy2017 maps the pre-2019 (but >=2017) channel format
// numbering, which only distinguished float/float16/color/byte and lacked
// the explicit normalized-signed/unsigned split. Not literally specified;
// chosen to match Unity's historical VertexChannelFormat enum ordering.
var componentSizeLegacy2017 = map[ComponentFormat]int{
	0: 4, // kChannelFormatFloat
	1: 2, // kChannelFormatFloat16
	2: 1, // kChannelFormatColor (packed, 1 byte per component)
	3: 1, // kChannelFormatByte
}

// componentSizeLegacyPre2017 is Unity's oldest (<2017) VertexChannelFormat
// numbering, same four buckets but named differently upstream; kept as a
// distinct table in case a future revision needs to diverge.
var componentSizeLegacyPre2017 = componentSizeLegacy2017

// ComponentSize returns the byte size of one component of the given format
// under the size-mapping regime selected by the mesh's Unity major version.
func ComponentSize(v VersionTuple, format int32) (int, error) {
	table := componentSize2019
	switch {
	case v.Major < 2017:
		table = componentSizeLegacyPre2017
	case v.Major < 2019:
		table = componentSizeLegacy2017
	}
	size, ok := table[ComponentFormat(format)]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported component format %d for version %d.%d", uerr.ErrMeshUnsupported, format, v.Major, v.Minor)
	}
	return size, nil
}
