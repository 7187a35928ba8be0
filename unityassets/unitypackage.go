package unityassets

import (
	"fmt"

	"github.com/unitygltf/unitygltf/bundle"
	"github.com/unitygltf/unitygltf/meshdecode"
	"github.com/unitygltf/unitygltf/semantic"
)

// pathIDNamespaceStride separates each legacy-package asset's path_id space
// so GameObjects/Transforms/Meshes decoded from different assets never
// collide when merged into one Context, mirroring merge_decoration's own
// renumbering strategy (see merge.go).
const pathIDNamespaceStride = 1 << 32

// decodeUnityPackage walks a (optionally gzipped) USTAR .unitypackage and
// merges every asset's reconstructed records into one Context. Each asset
// is independent: a SerializedFile-backed asset is reconstructed the same
// way a bundle node is; a text-YAML asset uses the minimal GameObject/
// Transform subset. When a text asset has a GameObject but no Transform at
// all (legacy text assets commonly omit one when the object carries no
// sibling Transform component in the exported subtree), its first
// GameObject is renamed to the asset's recorded pathname and given a
// synthesized identity Transform, so every decoded asset still surfaces as
// a GLB node.
func decodeUnityPackage(sourceName string, buf []byte, opts DecodeOptions) (*DecodeResult, error) {
	container, err := bundle.ParseUnityPackage(sourceName, buf, opts.Cancel)
	if err != nil {
		return nil, err
	}

	ctx := semantic.NewContext(sourceName)
	decoded := map[int64]meshdecode.DecodedMesh{}
	meshWarnings := map[int64][]string{}

	for i, e := range container.Entries {
		if opts.Cancel != nil {
			if err := opts.Cancel(); err != nil {
				return nil, err
			}
		}
		ns := int64(i+1) * pathIDNamespaceStride
		kind := bundle.Sniff(e.Payload)
		switch kind {
		case bundle.KindYAML:
			if err := mergeYAMLAsset(ctx, e, ns); err != nil {
				opts.warn(ctx, "unityassets", 0, ns, fmt.Sprintf("asset %q: %v", e.Pathname, err))
			}
		case bundle.KindSerializedFile:
			sub, err := decodeSerializedFile(e.Pathname, e.Payload, opts, nil)
			if err != nil {
				opts.warn(ctx, "unityassets", 0, ns, fmt.Sprintf("asset %q: %v", e.Pathname, err))
				continue
			}
			mergeContext(ctx, sub.Context, ns)
			for pathID, dm := range sub.Meshes {
				decoded[pathID+ns] = dm
			}
			for pathID, w := range sub.MeshWarnings {
				meshWarnings[pathID+ns] = w
			}
		default:
			opts.warn(ctx, "unityassets", 0, ns, fmt.Sprintf("asset %q: unrecognized payload, skipped", e.Pathname))
		}
	}

	return &DecodeResult{Context: ctx, Meshes: decoded, MeshWarnings: meshWarnings}, nil
}

// mergeYAMLAsset decodes one legacy text-YAML asset and folds its
// GameObjects/Transforms into dst under the ns path_id namespace. When the
// asset carries a GameObject but no Transform at all, its first GameObject
// is renamed to the asset's pathname and an identity Transform is
// synthesized for it, so the asset still produces a GLB node.
func mergeYAMLAsset(dst *semantic.Context, e bundle.Entry, ns int64) error {
	sub, _, err := semantic.ParseYAML(e.Pathname, string(e.Payload))
	if err != nil {
		return err
	}
	needsIdentityTransform := len(sub.Transforms) == 0 && len(sub.GameObjects) > 0
	if needsIdentityTransform {
		sub.GameObjects[0].Name = e.Pathname
	}
	mergeContext(dst, sub, ns)
	if !needsIdentityTransform {
		return nil
	}
	goPathID := ns + sub.GameObjects[0].PathID
	dst.AddTransform(semantic.Transform{
		PathID:     goPathID + (1 << 24),
		GameObject: semantic.PPtr{PathID: goPathID},
		RotationW:  1,
		ScaleX:     1, ScaleY: 1, ScaleZ: 1,
	})
	return nil
}

// mergeContext renumbers every record in src into dst's path_id space by
// adding ns to every PathID and every PPtr it holds, then appends them.
func mergeContext(dst, src *semantic.Context, ns int64) {
	shift := func(p semantic.PPtr) semantic.PPtr {
		if p.IsNull() {
			return p
		}
		return semantic.PPtr{FileID: p.FileID, PathID: p.PathID + ns}
	}

	for _, g := range src.GameObjects {
		g.PathID += ns
		comps := make([]semantic.PPtr, len(g.Components))
		for i, c := range g.Components {
			comps[i] = shift(c)
		}
		g.Components = comps
		dst.AddGameObject(g)
	}
	for _, t := range src.Transforms {
		t.PathID += ns
		t.GameObject = shift(t.GameObject)
		t.Parent = shift(t.Parent)
		children := make([]semantic.PPtr, len(t.Children))
		for i, c := range t.Children {
			children[i] = shift(c)
		}
		t.Children = children
		dst.AddTransform(t)
	}
	for _, m := range src.Materials {
		m.PathID += ns
		m.Shader = shift(m.Shader)
		dst.AddMaterial(m)
	}
	for _, tex := range src.Textures {
		tex.PathID += ns
		dst.AddTexture(tex)
	}
	for _, m := range src.Meshes {
		m.PathID += ns
		dst.AddMesh(m)
	}
	for _, mf := range src.MeshFilters {
		mf.PathID += ns
		mf.GameObject = shift(mf.GameObject)
		mf.Mesh = shift(mf.Mesh)
		dst.AddMeshFilter(mf)
	}
	for _, mr := range src.MeshRenderers {
		mr.PathID += ns
		mr.GameObject = shift(mr.GameObject)
		mats := make([]semantic.PPtr, len(mr.Materials))
		for i, mat := range mr.Materials {
			mats[i] = shift(mat)
		}
		mr.Materials = mats
		dst.AddMeshRenderer(mr)
	}
	dst.Warnings = append(dst.Warnings, src.Warnings...)
}
