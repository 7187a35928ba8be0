package binreader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderPrimitivesLittleEndian(t *testing.T) {
	w := NewWriter(false)
	w.PutU8(0x7F)
	w.PutU16(0x1234)
	w.PutU32(0xDEADBEEF)
	w.PutU64(0x0102030405060708)
	w.PutU32(0x3F800000) // 1.0f

	r := New(w.Bytes(), false)

	u8, err := r.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x7F), u8)

	u16, err := r.U16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), u16)

	u32, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xDEADBEEF), u32)

	u64, err := r.U64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), u64)

	f32, err := r.F32()
	require.NoError(t, err)
	require.Equal(t, float32(1.0), f32)

	require.Equal(t, 0, r.Remaining())
}

func TestReaderBigEndianSwitch(t *testing.T) {
	w := NewWriter(true)
	w.PutU32(0x01020304)
	r := New(w.Bytes(), true)
	v, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x01020304), v)
}

func TestReaderTruncated(t *testing.T) {
	r := New([]byte{1, 2}, false)
	_, err := r.U32()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestReaderSeekOutOfBounds(t *testing.T) {
	r := New([]byte{1, 2, 3}, false)
	err := r.Seek(10)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTruncated))
}

func TestReaderAlignStrict(t *testing.T) {
	buf := []byte{1, 0, 0, 0, 0xFF}
	r := New(buf, false)
	_, err := r.U8()
	require.NoError(t, err)
	r.SetStrictPadding(true)
	err = r.Align(4)
	require.NoError(t, err)
	require.Equal(t, 4, r.Pos())
}

func TestReaderAlignStrictRejectsNonZeroPad(t *testing.T) {
	buf := []byte{1, 0xAB, 0, 0}
	r := New(buf, false)
	_, err := r.U8()
	require.NoError(t, err)
	r.SetStrictPadding(true)
	err = r.Align(4)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAlignmentViolation))
}

func TestReaderCString(t *testing.T) {
	w := NewWriter(false)
	w.PutCString("hello")
	w.PutU8(0x99)
	r := New(w.Bytes(), false)
	s, err := r.CString()
	require.NoError(t, err)
	require.Equal(t, "hello", s)
	trailer, err := r.U8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x99), trailer)
}

func TestReaderCStringUnterminated(t *testing.T) {
	r := New([]byte{'a', 'b', 'c'}, false)
	r.SetMaxString(3)
	_, err := r.CString()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStringTooLong))
}

func TestReaderAlignedString(t *testing.T) {
	w := NewWriter(false)
	w.PutAlignedString("abc")
	w.PutU32(0xCAFEBABE)
	r := New(w.Bytes(), false)
	s, err := r.AlignedString()
	require.NoError(t, err)
	require.Equal(t, "abc", s)
	v, err := r.U32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xCAFEBABE), v)
}

func TestReaderAlignedStringExceedsCap(t *testing.T) {
	w := NewWriter(false)
	w.PutU32(1024)
	r := New(w.Bytes(), false)
	r.SetMaxString(16)
	_, err := r.AlignedString()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStringTooLong))
}

func TestReaderInvalidUTF8(t *testing.T) {
	w := NewWriter(false)
	w.PutU32(2)
	w.PutBytes([]byte{0xFF, 0xFE})
	r := New(w.Bytes(), false)
	_, err := r.AlignedString()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUTF8))
}

func TestReaderPeekDoesNotAdvance(t *testing.T) {
	r := New([]byte{1, 2, 3, 4}, false)
	b, err := r.PeekBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, b)
	require.Equal(t, 0, r.Pos())
}
