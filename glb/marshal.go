package glb

import (
	"encoding/json"

	"github.com/qmuntal/gltf"
)

// marshalDocument serializes doc to the glTF JSON chunk. gltf.Document's
// own struct tags already produce glTF's lowerCamelCase schema, so a plain
// encoding/json round-trip is sufficient here.
func marshalDocument(doc *gltf.Document) ([]byte, error) {
	return json.Marshal(doc)
}
