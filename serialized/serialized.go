// Package serialized implements the SerializedFile layer: the
// version-variable header, optional TypeTree blobs, the object directory,
// script table, externals and reference-type table described in the
// container's SerializedFile entity.
package serialized

import (
	"fmt"

	"github.com/unitygltf/unitygltf/binreader"
	"github.com/unitygltf/unitygltf/uerr"
)

// TypeTreeNode is one row of an embedded TypeTree schema. Decoding stays
// tolerant-probe based (§4.5's open question leaves TypeTree-driven
// decoding as an implementer's option, not a requirement); nodes are parsed
// structurally so the cursor lands correctly afterward and are exposed for
// diagnostic use, but the semantic package never substitutes tree offsets for probe
// offsets.
type TypeTreeNode struct {
	Version       uint16
	Level         uint8
	TypeFlags     uint8
	TypeStrOffset uint32
	NameStrOffset uint32
	ByteSize      int32
	Index         int32
	MetaFlag      int32
	RefTypeHash   uint64 // only set when File.Version >= 19
}

// SerializedType is one entry of the type table.
type SerializedType struct {
	ClassID         int32
	IsStrippedType  bool
	ScriptTypeIndex int16
	ScriptID        [16]byte
	OldTypeHash     [16]byte
	TypeTreeNodes   []TypeTreeNode
	StringBuffer    []byte
}

// Object is one row of the object directory: a SerializedObject per the
// data model, with ByteStart already made absolute (data_offset added).
type Object struct {
	PathID    int64
	ByteStart int64
	ByteSize  uint32
	TypeID    int32
	ClassID   int32
}

// External is one row of the externals table (a cross-file reference
// target).
type External struct {
	GUID     [16]byte
	Type     int32
	PathName string
}

// RefType is one row of the supplemented ref-type table (version >= 20).
type RefType struct {
	ClassID         int32
	ScriptTypeIndex int16
	Namespace       string
	AsmName         string
	Hash            [16]byte
}

// ScriptIdentifier is one row of the script table (LocalSerializedObjectIdentifier).
type ScriptIdentifier struct {
	LocalSerializedFileIndex int32
	LocalIdentifierInFile    int64
}

// File is the fully parsed SerializedFile.
type File struct {
	SourceName      string
	Version         uint32
	FileSize        int64
	MetadataSize    int64
	DataOffset      int64
	BigEndian       bool
	UnityVersion    string
	Platform        int32
	EnableTypeTree  bool
	BigIDEnabled    bool
	Types           []SerializedType
	Objects         []Object
	Scripts         []ScriptIdentifier
	Externals       []External
	RefTypes        []RefType
	UserInformation string
}

// Options configures limits shared with the rest of the decoder.
type Options struct {
	MaxStringBytes int
	StrictPadding  bool
}

const maxObjectCount = 1 << 20 // generous upper bound; actual cap enforced by byte-size math

// Parse reads a SerializedFile from buf. It tries the big-endian header
// interpretation first, then little-endian, accepting whichever makes
// file_size equal len(buf) and both metadata_size and data_offset fall
// within it (§4.4's disambiguation rule).
func Parse(sourceName string, buf []byte, opts Options, cancel uerr.CancelFunc) (*File, error) {
	if len(buf) < 20 {
		return nil, fmt.Errorf("%w: serialized file header needs 20 bytes, have %d", uerr.ErrTruncated, len(buf))
	}

	cand, headerEndian, err := pickHeaderEndianness(buf)
	if err != nil {
		return nil, err
	}

	r := binreader.New(buf, headerEndian)
	if opts.MaxStringBytes > 0 {
		r.SetMaxString(opts.MaxStringBytes)
	}
	r.SetStrictPadding(opts.StrictPadding)
	if _, err := r.Bytes(16); err != nil { // skip the 4x u32 already parsed by the probe
		return nil, fmt.Errorf("serialized: rewinding past header candidate: %w", err)
	}

	f := &File{
		SourceName:   sourceName,
		Version:      cand.version,
		FileSize:     int64(cand.fileSize),
		MetadataSize: int64(cand.metadataSize),
		DataOffset:   int64(cand.dataOffset),
	}

	bigEndianMeta := headerEndian
	if f.Version >= 9 {
		flag, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("serialized: endian flag: %w", err)
		}
		if _, err := r.Bytes(3); err != nil { // reserved
			return nil, fmt.Errorf("serialized: header reserved bytes: %w", err)
		}
		bigEndianMeta = flag != 0
	} else {
		off := int(f.FileSize - f.MetadataSize)
		if off < 0 || off >= len(buf) {
			return nil, fmt.Errorf("%w: endian-flag offset %d out of range", uerr.ErrBoundsViolation, off)
		}
		bigEndianMeta = buf[off] != 0
	}
	r.SetBigEndian(bigEndianMeta)
	f.BigEndian = bigEndianMeta

	if f.Version >= 22 {
		metaSize, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("serialized: v22 metadata size: %w", err)
		}
		fileSize, err := r.I64()
		if err != nil {
			return nil, fmt.Errorf("serialized: v22 file size: %w", err)
		}
		dataOffset, err := r.I64()
		if err != nil {
			return nil, fmt.Errorf("serialized: v22 data offset: %w", err)
		}
		if _, err := r.I64(); err != nil { // reserved
			return nil, fmt.Errorf("serialized: v22 reserved: %w", err)
		}
		f.MetadataSize = int64(metaSize)
		f.FileSize = fileSize
		f.DataOffset = dataOffset
	}

	if f.FileSize != int64(len(buf)) {
		return nil, fmt.Errorf("%w: file_size %d does not match buffer length %d", uerr.ErrBoundsViolation, f.FileSize, len(buf))
	}

	if f.Version >= 7 {
		uv, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("serialized: unity version string: %w", err)
		}
		f.UnityVersion = uv
	}
	if f.Version >= 8 {
		p, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: platform: %w", err)
		}
		f.Platform = p
	}
	if f.Version >= 13 {
		b, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("serialized: enable_type_tree: %w", err)
		}
		f.EnableTypeTree = b != 0
	}

	types, err := parseTypeTable(r, f.Version, f.EnableTypeTree)
	if err != nil {
		return nil, err
	}
	f.Types = types

	if f.Version >= 7 && f.Version < 14 {
		b, err := r.U8()
		if err != nil {
			return nil, fmt.Errorf("serialized: big_id_enabled: %w", err)
		}
		f.BigIDEnabled = b != 0
	}

	objects, err := parseObjectTable(r, f, cancel)
	if err != nil {
		return nil, err
	}
	f.Objects = objects

	// Trailing tables (script/externals/ref-types/user string) are read in
	// strict sequence; any failure here rejects the whole file, matching
	// §4.4's "parses entirely or is rejected".
	scripts, err := parseScriptTable(r)
	if err != nil {
		return nil, err
	}
	f.Scripts = scripts

	externals, err := parseExternalsTable(r)
	if err != nil {
		return nil, err
	}
	f.Externals = externals

	if f.Version >= 20 {
		refTypes, err := parseRefTypeTable(r)
		if err != nil {
			return nil, err
		}
		f.RefTypes = refTypes
	}

	if r.Remaining() > 0 {
		if s, err := r.CString(); err == nil {
			f.UserInformation = s
		}
	}

	return f, nil
}

type headerCandidate struct {
	metadataSize uint32
	fileSize     uint32
	version      uint32
	dataOffset   uint32
}

func pickHeaderEndianness(buf []byte) (headerCandidate, bool, error) {
	tryEndian := func(big bool) (headerCandidate, bool) {
		r := binreader.New(buf, big)
		metadataSize, e1 := r.U32()
		fileSize, e2 := r.U32()
		version, e3 := r.U32()
		dataOffset, e4 := r.U32()
		if e1 != nil || e2 != nil || e3 != nil || e4 != nil {
			return headerCandidate{}, false
		}
		if version < 1 || version > 1000 {
			return headerCandidate{}, false
		}
		if int64(dataOffset) > int64(fileSize) || int64(metadataSize) > int64(fileSize) {
			return headerCandidate{}, false
		}
		// For version >= 22 the real file_size/data_offset are 64-bit and
		// re-read later; here we only need a plausible candidate to settle
		// on an endianness and a version number.
		return headerCandidate{metadataSize, fileSize, version, dataOffset}, true
	}

	if c, ok := tryEndian(true); ok && int64(c.fileSize) == int64(len(buf)) {
		return c, true, nil
	}
	if c, ok := tryEndian(false); ok && int64(c.fileSize) == int64(len(buf)) {
		return c, false, nil
	}
	// Neither candidate matched buffer length exactly (expected for
	// version >= 22, whose real file_size is re-read as an i64 later).
	// Fall back to whichever candidate at least looks structurally sane.
	if c, ok := tryEndian(true); ok {
		return c, true, nil
	}
	if c, ok := tryEndian(false); ok {
		return c, false, nil
	}
	return headerCandidate{}, false, fmt.Errorf("%w: no plausible big- or little-endian SerializedFile header", uerr.ErrInvalidMagic)
}

func parseTypeTable(r *binreader.Reader, version uint32, enableTypeTree bool) ([]SerializedType, error) {
	count, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("serialized: type table count: %w", err)
	}
	if count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible type count %d", uerr.ErrUnsupportedVersion, count)
	}
	types := make([]SerializedType, count)
	for i := range types {
		classID, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: type %d class id: %w", i, err)
		}
		t := SerializedType{ClassID: classID}

		if version >= 16 {
			b, err := r.U8()
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d stripped flag: %w", i, err)
			}
			t.IsStrippedType = b != 0
		}
		if version >= 17 {
			idx, err := r.I16()
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d script index: %w", i, err)
			}
			t.ScriptTypeIndex = idx
		} else {
			t.ScriptTypeIndex = -1
		}

		if classID == 114 || classID < 0 {
			sid, err := r.Bytes(16)
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d script id hash: %w", i, err)
			}
			copy(t.ScriptID[:], sid)
			oth, err := r.Bytes(16)
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d old type hash: %w", i, err)
			}
			copy(t.OldTypeHash[:], oth)
		}

		if enableTypeTree && version >= 13 {
			nodeCount, err := r.I32()
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d typetree node count: %w", i, err)
			}
			stringBufSize, err := r.I32()
			if err != nil {
				return nil, fmt.Errorf("serialized: type %d typetree string buffer size: %w", i, err)
			}
			if nodeCount < 0 || nodeCount > 1<<16 || stringBufSize < 0 || stringBufSize > 1<<24 {
				return nil, fmt.Errorf("%w: implausible typetree dimensions node=%d strbuf=%d", uerr.ErrBoundsViolation, nodeCount, stringBufSize)
			}
			nodes := make([]TypeTreeNode, nodeCount)
			for j := range nodes {
				n := TypeTreeNode{}
				if n.Version, err = r.U16(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d version: %w", j, err)
				}
				if n.Level, err = r.U8(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d level: %w", j, err)
				}
				if n.TypeFlags, err = r.U8(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d type flags: %w", j, err)
				}
				if n.TypeStrOffset, err = r.U32(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d type str offset: %w", j, err)
				}
				if n.NameStrOffset, err = r.U32(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d name str offset: %w", j, err)
				}
				if n.ByteSize, err = r.I32(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d byte size: %w", j, err)
				}
				if n.Index, err = r.I32(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d index: %w", j, err)
				}
				if n.MetaFlag, err = r.I32(); err != nil {
					return nil, fmt.Errorf("serialized: typetree node %d meta flag: %w", j, err)
				}
				if version >= 19 {
					if n.RefTypeHash, err = r.U64(); err != nil {
						return nil, fmt.Errorf("serialized: typetree node %d ref hash: %w", j, err)
					}
				}
				nodes[j] = n
			}
			buf, err := r.Bytes(int(stringBufSize))
			if err != nil {
				return nil, fmt.Errorf("serialized: typetree string buffer: %w", err)
			}
			t.TypeTreeNodes = nodes
			t.StringBuffer = buf
		}

		types[i] = t
	}
	return types, nil
}

func parseObjectTable(r *binreader.Reader, f *File, cancel uerr.CancelFunc) ([]Object, error) {
	count, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("serialized: object table count: %w", err)
	}
	if count < 0 || count > maxObjectCount {
		return nil, fmt.Errorf("%w: implausible object count %d", uerr.ErrBoundsViolation, count)
	}
	objs := make([]Object, count)
	seen := make(map[int64]bool, count)
	for i := range objs {
		if cancel != nil {
			if err := cancel(); err != nil {
				return nil, fmt.Errorf("serialized: %w", uerr.ErrCancelled)
			}
		}

		bigID := f.Version >= 14 || f.BigIDEnabled
		var pathID int64
		if !bigID {
			v, err := r.I32()
			if err != nil {
				return nil, fmt.Errorf("serialized: object %d path id: %w", i, err)
			}
			pathID = int64(v)
		} else {
			if f.Version >= 14 {
				if err := r.Align(8); err != nil {
					return nil, fmt.Errorf("serialized: object %d path id alignment: %w", i, err)
				}
			}
			v, err := r.I64()
			if err != nil {
				return nil, fmt.Errorf("serialized: object %d path id: %w", i, err)
			}
			pathID = v
		}
		if seen[pathID] {
			return nil, fmt.Errorf("%w: duplicate path_id %d", uerr.ErrBoundsViolation, pathID)
		}
		seen[pathID] = true

		var byteStart int64
		if f.Version >= 22 {
			v, err := r.I64()
			if err != nil {
				return nil, fmt.Errorf("serialized: object %d byte start: %w", i, err)
			}
			byteStart = v
		} else {
			v, err := r.U32()
			if err != nil {
				return nil, fmt.Errorf("serialized: object %d byte start: %w", i, err)
			}
			byteStart = int64(v)
		}
		byteStart += f.DataOffset

		byteSize, err := r.U32()
		if err != nil {
			return nil, fmt.Errorf("serialized: object %d byte size: %w", i, err)
		}
		typeID, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: object %d type id: %w", i, err)
		}

		var classID int32
		if f.Version < 16 {
			classID, err = r.I32()
			if err != nil {
				return nil, fmt.Errorf("serialized: object %d class id: %w", i, err)
			}
		} else {
			if typeID < 0 || int(typeID) >= len(f.Types) {
				return nil, fmt.Errorf("%w: object %d type id %d outside type table of %d", uerr.ErrBoundsViolation, i, typeID, len(f.Types))
			}
			classID = f.Types[typeID].ClassID
		}

		if byteStart < f.DataOffset || byteStart+int64(byteSize) > f.FileSize {
			return nil, fmt.Errorf("%w: object %d range [%d,%d) outside file of size %d", uerr.ErrBoundsViolation, i, byteStart, byteStart+int64(byteSize), f.FileSize)
		}

		objs[i] = Object{
			PathID:    pathID,
			ByteStart: byteStart,
			ByteSize:  byteSize,
			TypeID:    typeID,
			ClassID:   classID,
		}
	}
	return objs, nil
}

func parseScriptTable(r *binreader.Reader) ([]ScriptIdentifier, error) {
	count, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("serialized: script table count: %w", err)
	}
	if count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible script table count %d", uerr.ErrBoundsViolation, count)
	}
	scripts := make([]ScriptIdentifier, count)
	for i := range scripts {
		idx, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: script %d file index: %w", i, err)
		}
		ident, err := r.I64()
		if err != nil {
			return nil, fmt.Errorf("serialized: script %d identifier: %w", i, err)
		}
		scripts[i] = ScriptIdentifier{LocalSerializedFileIndex: idx, LocalIdentifierInFile: ident}
	}
	return scripts, nil
}

func parseExternalsTable(r *binreader.Reader) ([]External, error) {
	count, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("serialized: externals table count: %w", err)
	}
	if count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible externals count %d", uerr.ErrBoundsViolation, count)
	}
	externals := make([]External, count)
	for i := range externals {
		guid, err := r.Bytes(16)
		if err != nil {
			return nil, fmt.Errorf("serialized: external %d guid: %w", i, err)
		}
		typ, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: external %d type: %w", i, err)
		}
		name, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("serialized: external %d pathname: %w", i, err)
		}
		e := External{Type: typ, PathName: name}
		copy(e.GUID[:], guid)
		externals[i] = e
	}
	return externals, nil
}

func parseRefTypeTable(r *binreader.Reader) ([]RefType, error) {
	count, err := r.I32()
	if err != nil {
		return nil, fmt.Errorf("serialized: ref type table count: %w", err)
	}
	if count < 0 || count > 1<<16 {
		return nil, fmt.Errorf("%w: implausible ref-type count %d", uerr.ErrBoundsViolation, count)
	}
	refs := make([]RefType, count)
	for i := range refs {
		classID, err := r.I32()
		if err != nil {
			return nil, fmt.Errorf("serialized: ref type %d class id: %w", i, err)
		}
		idx, err := r.I16()
		if err != nil {
			return nil, fmt.Errorf("serialized: ref type %d script index: %w", i, err)
		}
		ns, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("serialized: ref type %d namespace: %w", i, err)
		}
		asm, err := r.CString()
		if err != nil {
			return nil, fmt.Errorf("serialized: ref type %d assembly name: %w", i, err)
		}
		hash, err := r.Bytes(16)
		if err != nil {
			return nil, fmt.Errorf("serialized: ref type %d hash: %w", i, err)
		}
		rt := RefType{ClassID: classID, ScriptTypeIndex: idx, Namespace: ns, AsmName: asm}
		copy(rt.Hash[:], hash)
		refs[i] = rt
	}
	return refs, nil
}

// ObjectByPathID does a linear scan for the object with the given path_id.
// Files in this decoder are small enough (bounded node/object counts) that
// a map is unnecessary overhead for most callers; semantic.Context builds
// its own index when it needs repeated lookups.
func (f *File) ObjectByPathID(pathID int64) (Object, bool) {
	for _, o := range f.Objects {
		if o.PathID == pathID {
			return o, true
		}
	}
	return Object{}, false
}
