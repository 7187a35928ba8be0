package unityassets

import (
	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/serialized"
)

// reconstructObjects walks sf's object table twice, per §4.5's class-
// specific probe rules: the first pass decodes classes with no forward
// cross-references (GameObject, Transform, Material, Texture2D, Mesh); the
// second decodes MeshFilter/MeshRenderer, whose probes validate their PPtrs
// resolve against what the first pass already populated in ctx. A rejected
// probe demotes to a warning rather than failing the whole decode, per §7's
// propagation policy.
func reconstructObjects(ctx *semantic.Context, sf *serialized.File, buf []byte, opts DecodeOptions) error {
	popts := opts.probeOptions()

	for _, o := range sf.Objects {
		if opts.Cancel != nil {
			if err := opts.Cancel(); err != nil {
				return err
			}
		}
		payload, ok := objectPayload(buf, o)
		if !ok {
			opts.warn(ctx, "semantic", o.ClassID, o.PathID, "object byte range invalid, skipped")
			continue
		}
		switch o.ClassID {
		case semantic.ClassGameObject:
			if g, ok := semantic.ProbeGameObject(o.PathID, payload, sf.BigEndian, popts); ok {
				ctx.AddGameObject(g)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "GameObject probe rejected")
			}
		case semantic.ClassTransform:
			if t, ok := semantic.ProbeTransform(o.PathID, payload, sf.BigEndian, popts); ok {
				ctx.AddTransform(t)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "Transform probe rejected")
			}
		case semantic.ClassMaterial:
			if m, ok := semantic.ProbeMaterial(o.PathID, payload, sf.BigEndian, popts); ok {
				ctx.AddMaterial(m)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "Material probe rejected")
			}
		case semantic.ClassTexture2D:
			if tex, ok := semantic.ProbeTexture2D(o.PathID, payload, sf.BigEndian, popts); ok {
				ctx.AddTexture(tex)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "Texture2D probe rejected")
			}
		case semantic.ClassMesh:
			if m, ok := semantic.ProbeMesh(o.PathID, payload, sf.BigEndian, popts); ok {
				ctx.AddMesh(m)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "Mesh probe rejected")
			}
		}
	}

	for _, o := range sf.Objects {
		if opts.Cancel != nil {
			if err := opts.Cancel(); err != nil {
				return err
			}
		}
		payload, ok := objectPayload(buf, o)
		if !ok {
			continue
		}
		switch o.ClassID {
		case semantic.ClassMeshFilter:
			if mf, ok := semantic.ProbeMeshFilter(o.PathID, payload, sf.BigEndian, ctx, popts); ok {
				ctx.AddMeshFilter(mf)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "MeshFilter probe rejected or mesh cross-reference missing")
			}
		case semantic.ClassMeshRenderer:
			if mr, ok := semantic.ProbeMeshRenderer(o.PathID, payload, sf.BigEndian, ctx, popts); ok {
				ctx.AddMeshRenderer(mr)
			} else {
				opts.warn(ctx, "semantic", o.ClassID, o.PathID, "MeshRenderer probe rejected or material cross-reference missing")
			}
		}
	}

	return nil
}

func objectPayload(buf []byte, o serialized.Object) ([]byte, bool) {
	start := o.ByteStart
	end := start + int64(o.ByteSize)
	if start < 0 || end > int64(len(buf)) || start > end {
		return nil, false
	}
	return buf[start:end], true
}
