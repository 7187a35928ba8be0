// Package semantic reconstructs typed Unity records (GameObject, Transform,
// MeshFilter, MeshRenderer, Material, Mesh, Texture2D) from SerializedObject
// payloads using tolerant probes: each decoder tries a small, fixed
// sequence of candidate layouts and accepts the first one whose fields
// parse and whose cross-references resolve inside the current file.
package semantic

// PPtr is a persistent pointer: file_id identifies an external SerializedFile
// (0 means local), path_id identifies the object within it.
type PPtr struct {
	FileID int32
	PathID int64
}

// IsNull reports whether the pointer targets nothing (both Unity's literal
// null PPtr and the semantic decoders' own "absent" sentinel).
func (p PPtr) IsNull() bool { return p.FileID == 0 && p.PathID == 0 }

// GameObject mirrors the GameObject entity in the data model.
type GameObject struct {
	PathID     int64
	Name       string
	IsActive   bool
	Layer      int32
	Components []PPtr
}

// Transform mirrors the Transform entity. Quaternion fields are stored in
// (w, x, y, z) order in memory even though Unity's on-disk order is
// (x, y, z, w) — §4.5 mandates the reorder at decode time.
type Transform struct {
	PathID     int64
	GameObject PPtr
	Parent     PPtr
	Children   []PPtr

	RotationW, RotationX, RotationY, RotationZ float32
	PositionX, PositionY, PositionZ            float32
	ScaleX, ScaleY, ScaleZ                      float32
}

// MeshFilter mirrors the MeshFilter entity.
type MeshFilter struct {
	PathID     int64
	GameObject PPtr
	Mesh       PPtr
}

// MeshRenderer mirrors the MeshRenderer entity.
type MeshRenderer struct {
	PathID     int64
	GameObject PPtr
	Materials  []PPtr
}

// Material mirrors the Material entity (name + shader reference only —
// full PBR translation is a non-goal).
type Material struct {
	PathID int64
	Name   string
	Shader PPtr
}

// Texture2D carries metadata only; pixel unpacking is out of scope.
type Texture2D struct {
	PathID       int64
	Name         string
	Width        int32
	Height       int32
	CompleteSize int32
	Format       int32
	MipCount     int32
}
