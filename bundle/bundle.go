// Package bundle implements the container layer: UnityFS/UnityWeb/UnityRaw/
// UnityArchive bundle parsing and legacy .unitypackage tar enumeration. It
// dispatches purely on leading magic and never looks at object payloads.
package bundle

import (
	"fmt"

	"github.com/unitygltf/unitygltf/binreader"
	"github.com/unitygltf/unitygltf/compress"
	"github.com/unitygltf/unitygltf/uerr"
)

// Entry is a single named payload extracted from a bundle (a "node") or a
// legacy package asset. Payload aliases decompressed memory owned by the
// Container; callers that need to retain it beyond the container's
// lifetime must copy it.
type Entry struct {
	Path    string
	Offset  int64
	Size    int64
	Flags   uint32
	Payload []byte

	// GUID is populated only for entries produced by ParseUnityPackage,
	// taken from the asset directory name (the GUID ↔ pathname mapping
	// legacy .unitypackage archives use).
	GUID string
	// Pathname is the project-relative path recorded in the asset's
	// sibling "pathname" file (legacy packages only).
	Pathname string
}

// Container is the top-level parse result for one input buffer.
type Container struct {
	SourceName    string
	Kind          Kind
	Size          int64
	FormatVersion uint32
	UnityVersion  string
	UnityRevision string
	Entries       []Entry
}

const maxNodeCount = 1 << 16 // 64 Ki, per the resource-limit policy

// blockInfoCodecMask selects the low 6 bits of a block/blocks-info flags
// field as the compression codec.
const blockInfoCodecMask = 0x3F

const (
	flagBlocksInfoAtEnd  = 0x80
	flagDataAligned16    = 0x200
)

// ParseBundle parses a UnityFS/UnityWeb/UnityRaw/UnityArchive buffer. All
// four magics share one layout per the container spec; cancel is polled
// once before decompressing each block.
func ParseBundle(sourceName string, buf []byte, cancel uerr.CancelFunc) (*Container, error) {
	kind := Sniff(buf)
	if kind != KindUnityFS && kind != KindUnityWeb && kind != KindUnityRaw && kind != KindUnityArchive {
		return nil, fmt.Errorf("%w: %q is not a bundle signature", uerr.ErrInvalidMagic, sourceName)
	}

	r := binreader.New(buf, true) // header region is big-endian throughout
	if _, err := r.CString(); err != nil {
		return nil, fmt.Errorf("%w: bundle signature: %v", uerr.ErrInvalidMagic, err)
	}

	formatVersion, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: format version: %v", uerr.ErrTruncated, err)
	}
	unityVersion, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("bundle: unity version: %w", err)
	}
	unityRevision, err := r.CString()
	if err != nil {
		return nil, fmt.Errorf("bundle: unity revision: %w", err)
	}

	totalSize, err := r.I64()
	if err != nil {
		return nil, fmt.Errorf("bundle: total size: %w", err)
	}
	compressedInfoSize, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("bundle: compressed blocks-info size: %w", err)
	}
	uncompressedInfoSize, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("bundle: uncompressed blocks-info size: %w", err)
	}
	flags, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("bundle: flags: %w", err)
	}

	headerEnd := r.Pos()

	var infoBuf []byte
	infoStart := headerEnd
	if flags&flagBlocksInfoAtEnd != 0 {
		start := len(buf) - int(compressedInfoSize)
		if start < headerEnd {
			return nil, fmt.Errorf("%w: blocks-info at EOF overlaps header (start %d < %d)", uerr.ErrBoundsViolation, start, headerEnd)
		}
		infoBuf = buf[start:]
	} else {
		if err := r.Align(16); err != nil {
			// Align fails here only when fewer bytes than the padding
			// remain; the cursor then stays at the header end and the
			// range check below applies from there. This reader is not in
			// strict mode, so non-zero pad bytes are skipped.
		}
		infoStart = r.Pos()
		infoEnd := infoStart + int(compressedInfoSize)
		if infoEnd > len(buf) {
			return nil, fmt.Errorf("%w: blocks-info range [%d,%d) exceeds buffer of %d", uerr.ErrBoundsViolation, infoStart, infoEnd, len(buf))
		}
		infoBuf = buf[infoStart:infoEnd]
	}

	if cancel != nil {
		if err := cancel(); err != nil {
			return nil, fmt.Errorf("bundle: %w", uerr.ErrCancelled)
		}
	}

	codec := compress.Codec(flags & blockInfoCodecMask)
	decodedInfo, err := compress.Decompress(codec, infoBuf, int(uncompressedInfoSize))
	if err != nil {
		return nil, fmt.Errorf("bundle: blocks-info: %w", err)
	}

	blocks, nodes, err := parseBlocksInfo(decodedInfo)
	if err != nil {
		return nil, err
	}
	if len(nodes) > maxNodeCount {
		return nil, fmt.Errorf("%w: bundle declares %d nodes, cap is %d", uerr.ErrBoundsViolation, len(nodes), maxNodeCount)
	}

	dataStart := headerEnd
	if flags&flagBlocksInfoAtEnd == 0 {
		dataStart = infoStart + int(compressedInfoSize)
		if flags&flagDataAligned16 != 0 {
			dr := binreader.New(buf, true)
			dr.Seek(dataStart)
			dr.Align(16)
			dataStart = dr.Pos()
		}
	}

	decompressed, err := decompressBlocks(buf, dataStart, blocks, cancel)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(nodes))
	for _, n := range nodes {
		if n.offset < 0 || n.size < 0 || n.offset+n.size > int64(len(decompressed)) {
			return nil, fmt.Errorf("%w: node %q range [%d,%d) exceeds decompressed stream of %d", uerr.ErrBoundsViolation, n.path, n.offset, n.offset+n.size, len(decompressed))
		}
		entries = append(entries, Entry{
			Path:    n.path,
			Offset:  n.offset,
			Size:    n.size,
			Flags:   n.flags,
			Payload: decompressed[n.offset : n.offset+n.size],
		})
	}

	return &Container{
		SourceName:    sourceName,
		Kind:          kind,
		Size:          totalSize,
		FormatVersion: formatVersion,
		UnityVersion:  unityVersion,
		UnityRevision: unityRevision,
		Entries:       entries,
	}, nil
}

type blockInfo struct {
	uncompressedSize uint32
	compressedSize   uint32
	flags            uint16
}

type nodeInfo struct {
	offset int64
	size   int64
	flags  uint32
	path   string
}

func parseBlocksInfo(buf []byte) ([]blockInfo, []nodeInfo, error) {
	r := binreader.New(buf, true)
	if _, err := r.Bytes(16); err != nil { // archive hash, unused
		return nil, nil, fmt.Errorf("bundle: blocks-info hash: %w", err)
	}
	blockCount, err := r.I32()
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: block count: %w", err)
	}
	if blockCount < 0 || blockCount > maxNodeCount {
		return nil, nil, fmt.Errorf("%w: implausible block count %d", uerr.ErrBoundsViolation, blockCount)
	}
	blocks := make([]blockInfo, blockCount)
	for i := range blocks {
		u, err := r.U32()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: block %d uncompressed size: %w", i, err)
		}
		c, err := r.U32()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: block %d compressed size: %w", i, err)
		}
		f, err := r.U16()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: block %d flags: %w", i, err)
		}
		blocks[i] = blockInfo{uncompressedSize: u, compressedSize: c, flags: f}
	}

	nodeCount, err := r.I32()
	if err != nil {
		return nil, nil, fmt.Errorf("bundle: node count: %w", err)
	}
	if nodeCount < 0 || nodeCount > maxNodeCount {
		return nil, nil, fmt.Errorf("%w: implausible node count %d", uerr.ErrBoundsViolation, nodeCount)
	}
	nodes := make([]nodeInfo, nodeCount)
	for i := range nodes {
		off, err := r.I64()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: node %d offset: %w", i, err)
		}
		size, err := r.I64()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: node %d size: %w", i, err)
		}
		flags, err := r.U32()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: node %d flags: %w", i, err)
		}
		path, err := r.CString()
		if err != nil {
			return nil, nil, fmt.Errorf("bundle: node %d path: %w", i, err)
		}
		nodes[i] = nodeInfo{offset: off, size: size, flags: flags, path: path}
	}
	return blocks, nodes, nil
}

func decompressBlocks(buf []byte, dataStart int, blocks []blockInfo, cancel uerr.CancelFunc) ([]byte, error) {
	var total int64
	for _, b := range blocks {
		total += int64(b.uncompressedSize)
	}
	out := make([]byte, 0, total)

	pos := dataStart
	for i, b := range blocks {
		if cancel != nil {
			if err := cancel(); err != nil {
				return nil, fmt.Errorf("bundle: %w", uerr.ErrCancelled)
			}
		}
		end := pos + int(b.compressedSize)
		if end > len(buf) || pos < 0 {
			return nil, fmt.Errorf("%w: block %d range [%d,%d) exceeds buffer of %d", uerr.ErrBoundsViolation, i, pos, end, len(buf))
		}
		codec := compress.Codec(uint8(b.flags) & blockInfoCodecMask)
		dec, err := compress.Decompress(codec, buf[pos:end], int(b.uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("bundle: block %d: %w", i, err)
		}
		out = append(out, dec...)
		pos = end
	}
	return out, nil
}

// ResourceNode reports whether the node at path is a streaming-resource
// sibling (".resS"/".resource") rather than a SerializedFile candidate, per
// the container-parser's node-classification rule.
func ResourceNode(path string) bool {
	return hasSuffixFold(path, ".resS") || hasSuffixFold(path, ".resource")
}

func hasSuffixFold(s, suffix string) bool {
	if len(s) < len(suffix) {
		return false
	}
	tail := s[len(s)-len(suffix):]
	if len(tail) != len(suffix) {
		return false
	}
	for i := range tail {
		a, b := tail[i], suffix[i]
		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
