// Package compress decodes the three block compression codecs UnityFS
// bundles use: None, LZMA (5-byte properties header at the start of the
// block, uncompressed length supplied by the caller) and LZ4/LZ4HC (raw
// block, no frame headers).
package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// Codec identifies a bundle block/storage compression scheme, matching the
// low 6 bits of a UnityFS archive flags field.
type Codec uint8

const (
	CodecNone Codec = 0
	CodecLZMA Codec = 1
	CodecLZ4  Codec = 2
	CodecLZ4HC Codec = 3
	// CodecLZHAM (4) exists in the Unity format but was never shipped in
	// practice; decoding it is out of scope (no decoder in the ecosystem).
)

// ErrCompressionFailure wraps any decode failure from an underlying codec.
// Callers use errors.Is against this sentinel; the concrete codec and
// expected/actual sizes are carried in the wrapping message.
var ErrCompressionFailure = errors.New("compress: decompression failed")

// ErrUnsupportedCodec is returned for codec values this package cannot
// decode (LZHAM, or any reserved value).
var ErrUnsupportedCodec = errors.New("compress: unsupported codec")

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZMA:
		return "lzma"
	case CodecLZ4, CodecLZ4HC:
		return "lz4"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// Decompress inflates a single compressed block. uncompressedSize must be
// known ahead of time (it comes from the bundle's blocks-info table); the
// decoded output is always exactly that many bytes or an error is returned —
// any size mismatch is treated as a fatal failure for that block, never
// silently truncated or zero-padded.
func Decompress(codec Codec, compressed []byte, uncompressedSize int) ([]byte, error) {
	if uncompressedSize < 0 {
		return nil, fmt.Errorf("%w: negative uncompressed size %d", ErrCompressionFailure, uncompressedSize)
	}
	switch codec {
	case CodecNone:
		return decompressNone(compressed, uncompressedSize)
	case CodecLZMA:
		return decompressLZMA(compressed, uncompressedSize)
	case CodecLZ4, CodecLZ4HC:
		return decompressLZ4(compressed, uncompressedSize)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedCodec, uint8(codec))
	}
}

func decompressNone(compressed []byte, uncompressedSize int) ([]byte, error) {
	if len(compressed) != uncompressedSize {
		return nil, fmt.Errorf("%w: none codec: declared size %d, got %d bytes", ErrCompressionFailure, uncompressedSize, len(compressed))
	}
	out := make([]byte, uncompressedSize)
	copy(out, compressed)
	return out, nil
}

// lzmaPropsLen is the size of the properties header UnityFS prefixes to
// every LZMA block: one byte packing (lc, lp, pb) and four bytes of
// dictionary size, little-endian. The uncompressed length is NOT stored
// in-stream (unlike the standalone .lzma file format) — the bundle's
// blocks-info table supplies it instead.
const lzmaPropsLen = 5

func decompressLZMA(compressed []byte, uncompressedSize int) ([]byte, error) {
	if len(compressed) < lzmaPropsLen {
		return nil, fmt.Errorf("%w: lzma block shorter than %d-byte properties header", ErrCompressionFailure, lzmaPropsLen)
	}
	props := compressed[:lzmaPropsLen]
	body := compressed[lzmaPropsLen:]

	header := make([]byte, 0, lzmaPropsLen+8)
	header = append(header, props...)
	header = append(header, encodeLZMALength(uint64(uncompressedSize))...)

	r, err := lzma.NewReader(bytes.NewReader(append(header, body...)))
	if err != nil {
		return nil, fmt.Errorf("%w: lzma: %v", ErrCompressionFailure, err)
	}
	out := make([]byte, uncompressedSize)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("%w: lzma: %v", ErrCompressionFailure, err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("%w: lzma: declared size %d, decoded %d", ErrCompressionFailure, uncompressedSize, n)
	}
	return out, nil
}

func encodeLZMALength(n uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(n >> (8 * i))
	}
	return b
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	out := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(compressed, out)
	if err != nil {
		return nil, fmt.Errorf("%w: lz4: %v", ErrCompressionFailure, err)
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("%w: lz4: declared size %d, decoded %d", ErrCompressionFailure, uncompressedSize, n)
	}
	return out, nil
}
