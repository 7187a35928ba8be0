package unityassets

import (
	"fmt"

	"github.com/unitygltf/unitygltf/semantic"
)

// decorationPathIDNamespace separates a merged decoration's path_ids from
// the destination's own, the same renumbering strategy decodeUnityPackage
// uses for multi-asset packages.
const decorationPathIDNamespace = 1 << 40

// MergeDecoration decodes decorationBytes as a secondary DecodeResult via
// the same Decode path, renumbers its records into a private path_id range
// so they cannot collide with dst's own, and re-parents every root
// Transform of the decoration onto the Transform already present in dst
// whose GameObject is named boneTag — the "attach a hat to a named bone"
// composition §3 of SPEC_FULL.md describes. The decoration's own
// GameObject names are not compared with boneTag. Returns false, nil (not
// an error) when no Transform in dst carries a GameObject named boneTag:
// a merge that attaches nothing is not fatal.
func MergeDecoration(dst *DecodeResult, decorationBytes []byte, boneTag string, opts DecodeOptions) (bool, error) {
	targetTransformID, found := findTransformByGameObjectName(dst.Context, boneTag)
	if !found {
		return false, nil
	}

	decoration, err := Decode("decoration", decorationBytes, opts)
	if err != nil {
		return false, fmt.Errorf("unityassets: merge_decoration: %w", err)
	}

	ns := int64(len(dst.Context.Transforms)+1) * decorationPathIDNamespace
	mergeContext(dst.Context, decoration.Context, ns)
	for pathID, dm := range decoration.Meshes {
		dst.Meshes[pathID+ns] = dm
	}
	for pathID, w := range decoration.MeshWarnings {
		if dst.MeshWarnings == nil {
			dst.MeshWarnings = map[int64][]string{}
		}
		dst.MeshWarnings[pathID+ns] = w
	}

	reparented := false
	for i := range dst.Context.Transforms {
		t := &dst.Context.Transforms[i]
		if t.PathID <= ns {
			continue // not part of the decoration we just merged
		}
		if decorationRootParent(decoration.Context, t.PathID-ns) {
			t.Parent = semantic.PPtr{PathID: targetTransformID}
			reparented = true
		}
	}
	return reparented, nil
}

// findTransformByGameObjectName returns the path_id of the Transform whose
// GameObject is named name, if any.
func findTransformByGameObjectName(ctx *semantic.Context, name string) (int64, bool) {
	for _, t := range ctx.Transforms {
		if g, ok := ctx.GameObjectByID(t.GameObject.PathID); ok && g.Name == name {
			return t.PathID, true
		}
	}
	return 0, false
}

// decorationRootParent reports whether originalPathID (the decoration's own
// pre-renumbering Transform path_id) was a root in the decoration's own
// Context, i.e. had no resolving parent there.
func decorationRootParent(decoration *semantic.Context, originalPathID int64) bool {
	for _, t := range decoration.Transforms {
		if t.PathID != originalPathID {
			continue
		}
		if t.Parent.IsNull() {
			return true
		}
		_, ok := decoration.TransformByID(t.Parent.PathID)
		return !ok
	}
	return false
}
