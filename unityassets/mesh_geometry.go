package unityassets

import (
	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
)

// decodeMeshGeometry runs meshdecode.Decode over every Mesh ctx now holds,
// producing the DecodedMesh cache ToGLB needs. resolve adapts this file's
// container-local sibling-node lookup (when decoding a bundle) composed
// with the caller's own ResolveExternal, so a streaming mesh can resolve
// against either source transparently.
func decodeMeshGeometry(ctx *semantic.Context, version meshdecode.VersionTuple, bigEndian bool, resolve meshdecode.ResolveFunc, opts DecodeOptions) (map[int64]meshdecode.DecodedMesh, map[int64][]string) {
	decoded := make(map[int64]meshdecode.DecodedMesh, len(ctx.Meshes))
	warnings := make(map[int64][]string, len(ctx.Meshes))

	for i := range ctx.Meshes {
		m := ctx.Meshes[i]
		if opts.Cancel != nil {
			if err := opts.Cancel(); err != nil {
				continue
			}
		}
		dm, warns, err := meshdecode.Decode(&m, version, bigEndian, resolve, opts.EnableSkinning)
		if err != nil {
			opts.warn(ctx, "meshdecode", semantic.ClassMesh, m.PathID, err.Error())
			continue
		}
		decoded[m.PathID] = dm
		if len(warns) > 0 {
			warnings[m.PathID] = warns
			for _, w := range warns {
				opts.warn(ctx, "meshdecode", semantic.ClassMesh, m.PathID, w)
			}
		}
	}

	return decoded, warnings
}

// chainResolvers composes two ResolveFuncs, trying first in precedence.
// Either may be nil.
func chainResolvers(first, second meshdecode.ResolveFunc) meshdecode.ResolveFunc {
	if first == nil {
		return second
	}
	if second == nil {
		return first
	}
	return func(path string, offset, size uint64) ([]byte, bool) {
		if b, ok := first(path, offset, size); ok {
			return b, ok
		}
		return second(path, offset, size)
	}
}
