// Package uerr defines the error-kind taxonomy shared by the decode layers
// above binreader and compress; those two packages define their own
// sentinels (binreader.ErrTruncated, compress.ErrCompressionFailure and
// others), which are distinct values from the ones here. Each sentinel is wrapped with contextual detail (byte offset,
// component name, codec) at the point of failure via fmt.Errorf("%w: ...",
// ...); callers discriminate with errors.Is/errors.As rather than string
// matching.
package uerr

import "errors"

var (
	// ErrTruncated indicates a read past the end of the available bytes.
	ErrTruncated = errors.New("truncated read")
	// ErrInvalidMagic indicates no recognized container signature.
	ErrInvalidMagic = errors.New("no recognized container signature")
	// ErrUnsupportedVersion indicates a SerializedFile version or field-size
	// code the decoder does not know how to interpret.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrCompressionFailure indicates an LZMA/LZ4 block failed to decode or
	// produced the wrong length.
	ErrCompressionFailure = errors.New("compression failure")
	// ErrAlignmentViolation indicates a non-zero pad byte under strict
	// padding mode.
	ErrAlignmentViolation = errors.New("alignment violation")
	// ErrUTF8 indicates invalid UTF-8 in a string field.
	ErrUTF8 = errors.New("invalid utf-8")
	// ErrBoundsViolation indicates an object range, bufferView range, or
	// index fell outside its container.
	ErrBoundsViolation = errors.New("bounds violation")
	// ErrCrossReferenceMissing indicates a PPtr target was not found in
	// scope.
	ErrCrossReferenceMissing = errors.New("cross-reference missing")
	// ErrProbeAmbiguous indicates a semantic decoder could not choose
	// between candidate layouts.
	ErrProbeAmbiguous = errors.New("probe ambiguous")
	// ErrMeshUnsupported indicates a topology, channel format or compressed
	// encoding this decoder does not implement.
	ErrMeshUnsupported = errors.New("mesh unsupported")
	// ErrCancelled indicates the caller's cancellation check fired.
	ErrCancelled = errors.New("cancelled")
)

// Warning has the same fields as semantic.Warning, which is the type
// DecodeOptions.WarningsSink receives; no decode path builds this type.
// Probe rejections, skipped submeshes and missing streaming-info
// resolutions are demoted to warnings rather than failing the whole decode.
type Warning struct {
	Stage   string
	ClassID int32
	PathID  int64
	Message string
}

// CancelFunc is polled at the suspension points named in the concurrency
// model: before each bundle-node decompression, each object-table
// iteration, and each mesh decode. A non-nil return aborts the decode with
// ErrCancelled.
type CancelFunc func() error
