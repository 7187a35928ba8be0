package unityassets

import (
	"bytes"
	"fmt"

	"github.com/unitygltf/unitygltf/glb"
	"github.com/unitygltf/unitygltf/semantic"
)

// ToGLB is the core API's second-stage transform: it builds the scene graph
// and mesh primitives from result and writes the finished glTF-2.0 binary.
// The export fails only if zero meshes survive building despite at least
// one MeshFilter being present, per §7's "GLB writer fails the overall
// export only if zero meshes survive".
func ToGLB(result *DecodeResult, opts ExportOptions) ([]byte, error) {
	doc, bin, err := glb.BuildScene(result.Context, result.Meshes, result.MeshWarnings)
	if err != nil {
		return nil, fmt.Errorf("unityassets: to_glb: %w", err)
	}
	if len(result.Context.MeshFilters) > 0 && len(doc.Meshes) == 0 {
		return nil, fmt.Errorf("unityassets: to_glb: every mesh was skipped, nothing to export")
	}

	if opts.WarningsSink != nil {
		if extras, ok := doc.Extras.(map[string]interface{}); ok {
			if msgs, ok := extras["conversionWarnings"].([]string); ok {
				for _, m := range msgs {
					opts.WarningsSink(semantic.Warning{Stage: "glb", Message: m})
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := glb.Write(doc, bin, &buf); err != nil {
		return nil, fmt.Errorf("unityassets: to_glb: write: %w", err)
	}
	return buf.Bytes(), nil
}
