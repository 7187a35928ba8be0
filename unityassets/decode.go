package unityassets

import (
	"fmt"
	"strings"

	"github.com/unitygltf/unitygltf/bundle"
	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/serialized"
	"github.com/unitygltf/unitygltf/uerr"
)

// Decode is the core API's top-level dispatch: it sniffs buf's container
// format, reconstructs every semantic record it can, decodes mesh geometry,
// and returns the result plus any warnings accumulated along the way.
// Container and SerializedFile header failures are fatal for the whole
// decode; semantic probe failures and per-mesh decode failures are demoted
// to warnings on the returned Context, per §7's propagation policy.
func Decode(sourceName string, buf []byte, opts DecodeOptions) (*DecodeResult, error) {
	kind := bundle.Sniff(buf)
	if opts.ValidateZipMagic && kind == bundle.KindUnknown {
		return nil, fmt.Errorf("%w: %q matches no known container signature", uerr.ErrInvalidMagic, sourceName)
	}

	switch kind {
	case bundle.KindUnityFS, bundle.KindUnityWeb, bundle.KindUnityRaw, bundle.KindUnityArchive:
		return decodeBundle(sourceName, buf, kind, opts)
	case bundle.KindUnityPackageTar:
		return decodeUnityPackage(sourceName, buf, opts)
	case bundle.KindYAML:
		ctx, _, err := semantic.ParseYAML(sourceName, string(buf))
		if err != nil {
			return nil, fmt.Errorf("unityassets: %w", err)
		}
		return &DecodeResult{Context: ctx, Meshes: map[int64]meshdecode.DecodedMesh{}}, nil
	case bundle.KindSerializedFile:
		return decodeSerializedFile(sourceName, buf, opts, nil)
	default:
		return nil, fmt.Errorf("%w: %q is not a recognized Unity asset container", uerr.ErrInvalidMagic, sourceName)
	}
}

// decodeBundle parses a UnityFS/UnityWeb/UnityRaw/UnityArchive container and
// picks the non-resource node with the most class_id==43 (Mesh) objects as
// its SerializedFile, tie-breaking by total object count (§4.3) — a bundle
// can carry more than one SerializedFile-shaped node, and the mesh-bearing
// one is not guaranteed to come first. Every other node remains available
// as a streaming-resource resolution target for mesh geometry (the
// ".resS" sibling-node convention).
func decodeBundle(sourceName string, buf []byte, kind bundle.Kind, opts DecodeOptions) (*DecodeResult, error) {
	container, err := bundle.ParseBundle(sourceName, buf, opts.Cancel)
	if err != nil {
		return nil, err
	}

	var primary *bundle.Entry
	var primarySF *serialized.File
	bestMeshCount, bestObjectCount := -1, -1
	for i := range container.Entries {
		e := &container.Entries[i]
		if bundle.ResourceNode(e.Path) {
			continue
		}
		sf, err := serialized.Parse(e.Path, e.Payload, opts.serializedOptions(), opts.Cancel)
		if err != nil {
			continue
		}
		meshCount := 0
		for _, o := range sf.Objects {
			if o.ClassID == semantic.ClassMesh {
				meshCount++
			}
		}
		objectCount := len(sf.Objects)
		if meshCount > bestMeshCount || (meshCount == bestMeshCount && objectCount > bestObjectCount) {
			primary, primarySF, bestMeshCount, bestObjectCount = e, sf, meshCount, objectCount
		}
	}
	if primary == nil {
		return nil, fmt.Errorf("%w: bundle %q has no SerializedFile node", uerr.ErrInvalidMagic, sourceName)
	}

	siblingResolve := siblingNodeResolver(container)
	return decodeParsedSerializedFile(primary.Path, primary.Payload, primarySF, opts, siblingResolve)
}

// siblingNodeResolver exposes a bundle's own nodes (resource nodes and any
// other node keyed by its on-disk path) as a ResolveFunc, for meshes whose
// StreamingInfo.Path names a sibling node in the same container.
func siblingNodeResolver(container *bundle.Container) meshdecode.ResolveFunc {
	return func(path string, offset, size uint64) ([]byte, bool) {
		for _, e := range container.Entries {
			if e.Path != path && !strings.HasSuffix(e.Path, "/"+path) {
				continue
			}
			end := offset + size
			if end > uint64(len(e.Payload)) {
				return nil, false
			}
			return e.Payload[offset:end], true
		}
		return nil, false
	}
}

// decodeSerializedFile is the shared core: parse, reconstruct semantic
// records, decode mesh geometry. containerResolve (possibly nil) is tried
// before opts.ResolveExternal when resolving streaming mesh data.
func decodeSerializedFile(sourceName string, buf []byte, opts DecodeOptions, containerResolve meshdecode.ResolveFunc) (*DecodeResult, error) {
	sf, err := serialized.Parse(sourceName, buf, opts.serializedOptions(), opts.Cancel)
	if err != nil {
		return nil, err
	}
	return decodeParsedSerializedFile(sourceName, buf, sf, opts, containerResolve)
}

// decodeParsedSerializedFile continues from an already-parsed File, so a
// caller that had to try serialized.Parse on several candidate bundle
// nodes (to pick the one with the most Mesh objects) doesn't pay for
// parsing its chosen candidate twice.
func decodeParsedSerializedFile(sourceName string, buf []byte, sf *serialized.File, opts DecodeOptions, containerResolve meshdecode.ResolveFunc) (*DecodeResult, error) {
	ctx := semantic.NewContext(sourceName)
	if err := reconstructObjects(ctx, sf, buf, opts); err != nil {
		return nil, err
	}

	version := parseUnityVersion(sf.UnityVersion)
	var external meshdecode.ResolveFunc
	if opts.ResolveExternal != nil {
		external = meshdecode.ResolveFunc(opts.ResolveExternal)
	}
	resolve := chainResolvers(containerResolve, external)

	decoded, meshWarnings := decodeMeshGeometry(ctx, version, sf.BigEndian, resolve, opts)

	return &DecodeResult{Context: ctx, Meshes: decoded, MeshWarnings: meshWarnings}, nil
}
