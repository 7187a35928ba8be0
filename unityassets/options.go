// Package unityassets is the top-level façade: it dispatches a raw input
// buffer through bundle/serialized/semantic reconstruction and mesh
// geometry decode into a DecodeResult, then exports that result to a GLB
// binary. It owns the §7 error-kind taxonomy's propagation policy (probe
// failures demoted to warnings, container/SerializedFile header failures
// fatal) and the §6 configuration surface.
package unityassets

import (
	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/serialized"
	"github.com/unitygltf/unitygltf/uerr"
)

// ResolveExternal fetches the payload of a streaming-resource sibling (a
// ".resS"/".resource" bundle node, or any other caller-known external blob)
// by path, offset and size. Consulted only when a mesh carries streaming
// info with no inline vertex data — the mesh decoder never holds a file
// handle itself.
type ResolveExternal func(path string, offset, size uint64) ([]byte, bool)

// DecodeOptions configures one Decode call. There is no process-wide state:
// every option is threaded explicitly through the call arguments.
type DecodeOptions struct {
	// MaxStringBytes overrides the default 1 MiB string-length cap.
	MaxStringBytes int
	// StrictPadding rejects non-zero alignment pad bytes instead of
	// skipping them silently.
	StrictPadding bool
	// ValidateZipMagic rejects, before dispatch, an input whose leading
	// bytes match no known container signature. Such an input fails with
	// ErrInvalidMagic whether or not this flag is set; the flag moves the
	// check ahead of dispatch and does not inspect the contents of a
	// gzip/tar wrapper.
	ValidateZipMagic bool
	// EnableSkinning applies bind-pose skin matrices to mesh vertices when
	// a mesh carries bind poses and per-vertex bone weights.
	EnableSkinning bool
	// WarningsSink, when non-nil, is invoked once per demoted probe
	// failure, skipped submesh, or unresolved streaming reference.
	WarningsSink func(semantic.Warning)
	// ResolveExternal resolves streaming mesh data that lives outside the
	// input buffer. May be nil when no mesh is expected to stream.
	ResolveExternal ResolveExternal
	// Cancel is polled at the suspension points named in §5: before each
	// bundle-node decompression, each object-table iteration, and each
	// mesh decode.
	Cancel uerr.CancelFunc
}

// ExportOptions configures one ToGLB call.
type ExportOptions struct {
	// WarningsSink, when non-nil, additionally receives one Warning per
	// entry merged into the GLB's extras.conversionWarnings list.
	WarningsSink func(semantic.Warning)
}

// DecodeResult is this implementation's concrete stand-in for the core
// API's language-neutral "Context": the reconstructed semantic.Context plus
// the geometry meshdecode.Decode already produced for every Mesh that
// decoded successfully, keyed by Mesh.PathID. ToGLB consumes both without
// redoing geometry work, and without semantic importing meshdecode (which
// would create an import cycle, since meshdecode already depends on
// semantic's raw Mesh type).
type DecodeResult struct {
	Context *semantic.Context
	Meshes  map[int64]meshdecode.DecodedMesh
	// MeshWarnings carries meshdecode.Decode's per-mesh warning strings,
	// keyed by Mesh.PathID, forwarded into ToGLB's conversionWarnings.
	MeshWarnings map[int64][]string
}

func (o DecodeOptions) warn(ctx *semantic.Context, stage string, classID int32, pathID int64, message string) {
	w := semantic.Warning{Stage: stage, ClassID: classID, PathID: pathID, Message: message}
	ctx.Warnings = append(ctx.Warnings, w)
	if o.WarningsSink != nil {
		o.WarningsSink(w)
	}
}

func (o DecodeOptions) probeOptions() semantic.Options {
	return semantic.Options{MaxStringBytes: o.MaxStringBytes}
}

func (o DecodeOptions) serializedOptions() serialized.Options {
	return serialized.Options{MaxStringBytes: o.MaxStringBytes, StrictPadding: o.StrictPadding}
}
