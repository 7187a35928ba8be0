package compress

import (
	"bytes"
	"errors"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz/lzma"
)

func TestDecompressNone(t *testing.T) {
	data := []byte("the quick brown fox")
	out, err := Decompress(CodecNone, data, len(data))
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestDecompressNoneSizeMismatch(t *testing.T) {
	_, err := Decompress(CodecNone, []byte("abc"), 10)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCompressionFailure))
}

func TestDecompressLZ4RoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("unity mesh vertex data "), 50)
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	var c lz4.Compressor
	n, err := c.CompressBlock(src, dst)
	require.NoError(t, err)
	require.Greater(t, n, 0)

	out, err := Decompress(CodecLZ4, dst[:n], len(src))
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestDecompressLZMARoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("bundle payload bytes"), 40)

	var buf bytes.Buffer
	w, err := lzma.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(src)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	encoded := buf.Bytes()
	// Strip the standard 13-byte LZMA header down to the 5-byte
	// properties+dict-size prefix UnityFS actually stores; the
	// uncompressed length is supplied externally instead.
	require.GreaterOrEqual(t, len(encoded), 13)
	block := append(append([]byte{}, encoded[:5]...), encoded[13:]...)

	out, err := Decompress(CodecLZMA, block, len(src))
	require.NoError(t, err)
	require.Equal(t, src, out)
}

func TestDecompressUnsupportedCodec(t *testing.T) {
	_, err := Decompress(Codec(4), []byte{1, 2, 3}, 3)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnsupportedCodec))
}

func TestCodecString(t *testing.T) {
	require.Equal(t, "none", CodecNone.String())
	require.Equal(t, "lzma", CodecLZMA.String())
	require.Equal(t, "lz4", CodecLZ4.String())
	require.Equal(t, "lz4", CodecLZ4HC.String())
}
