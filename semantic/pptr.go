package semantic

import "github.com/unitygltf/unitygltf/binreader"

// ptrWidth is the on-disk width of a PPtr's path_id field. Probes try both
// widths because the semantic layer does not always know a file's
// SerializedFile.Version at the point a class payload is decoded in
// isolation (merge_decoration decodes a second file against the first's
// rules, for instance).
type ptrWidth int

const (
	ptrWidth32 ptrWidth = 4
	ptrWidth64 ptrWidth = 8
)

func readPPtr(r *binreader.Reader, width ptrWidth) (PPtr, error) {
	fileID, err := r.I32()
	if err != nil {
		return PPtr{}, err
	}
	if width == ptrWidth64 {
		v, err := r.I64()
		if err != nil {
			return PPtr{}, err
		}
		return PPtr{FileID: fileID, PathID: v}, nil
	}
	v, err := r.I32()
	if err != nil {
		return PPtr{}, err
	}
	return PPtr{FileID: fileID, PathID: int64(v)}, nil
}

func pptrSize(width ptrWidth) int { return 4 + int(width) }

// objectPrefixOffsets returns the candidate start offsets a tolerant probe
// tries, per §4.5: the raw payload, and the payload skipped past
// 4 + 3·PPtr_size (a computed "object prefix" some Unity class layouts
// carry ahead of their first real field).
func objectPrefixOffsets(width ptrWidth) []int {
	return []int{0, 4 + 3*pptrSize(width)}
}
