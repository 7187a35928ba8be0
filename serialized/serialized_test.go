package serialized

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/unitygltf/unitygltf/binreader"
)

// buildV17 constructs a minimal, version-17 SerializedFile (no TypeTree,
// little-endian) with one object of class_id 1 and an 8-byte payload.
func buildV17(t *testing.T) []byte {
	t.Helper()
	w := binreader.NewWriter(false)

	mdSizeOff := w.Len()
	w.PutU32(0)
	fileSizeOff := w.Len()
	w.PutU32(0)
	w.PutU32(17) // version
	dataOffsetOff := w.Len()
	w.PutU32(0)
	w.PutU8(0) // endian flag: little
	w.PutBytes([]byte{0, 0, 0})

	metadataStart := w.Len()
	require.Equal(t, 20, metadataStart)

	w.PutCString("2021.3.5f1")
	w.PutI32(5) // platform
	w.PutU8(0)  // enable_type_tree = false

	w.PutI32(1) // type table count
	w.PutI32(1) // class id
	w.PutU8(0)  // stripped
	w.PutU16(0xFFFF) // script type index = -1

	w.PutI32(1) // object table count
	w.Align(8)
	w.PutI64(1001) // path id
	w.PutU32(0)    // byte start (relative)
	w.PutU32(8)    // byte size
	w.PutI32(0)    // type id

	w.PutI32(0) // script table count
	w.PutI32(0) // externals count

	dataOffset := w.Len()
	w.PutBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8})
	fileSize := w.Len()
	metadataSize := dataOffset - metadataStart

	buf := w.Bytes()
	binary.LittleEndian.PutUint32(buf[mdSizeOff:], uint32(metadataSize))
	binary.LittleEndian.PutUint32(buf[fileSizeOff:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[dataOffsetOff:], uint32(dataOffset))
	return buf
}

// buildV9BigID constructs a minimal version-9 SerializedFile with
// big_id_enabled set, so its path_id is a 64-bit value even though version
// 9 is well under the version-14 threshold that would otherwise select the
// narrow 32-bit path_id.
func buildV9BigID(t *testing.T) []byte {
	t.Helper()
	w := binreader.NewWriter(false)

	mdSizeOff := w.Len()
	w.PutU32(0)
	fileSizeOff := w.Len()
	w.PutU32(0)
	w.PutU32(9) // version
	dataOffsetOff := w.Len()
	w.PutU32(0)
	w.PutU8(0) // endian flag: little
	w.PutBytes([]byte{0, 0, 0})

	metadataStart := w.Len()
	w.PutCString("4.7.0f1")
	w.PutI32(5) // platform
	// version 9 is below the enable_type_tree (>=13) threshold: no byte here.

	w.PutI32(1) // type table count
	w.PutI32(1) // class id
	// version 9 is below the stripped-flag (>=16) and script-index (>=17)
	// thresholds: neither field is written.

	w.PutU8(1) // big_id_enabled = true

	w.PutI32(1)    // object table count
	w.PutI64(2002) // path id: 64-bit despite version < 14, per big_id_enabled
	w.PutU32(0)    // byte start (relative)
	w.PutU32(4)    // byte size
	w.PutI32(0)    // type id
	w.PutI32(1)    // class id (version < 16 reads it directly)

	w.PutI32(0) // script table count
	w.PutI32(0) // externals count

	dataOffset := w.Len()
	w.PutBytes([]byte{9, 8, 7, 6})
	fileSize := w.Len()
	metadataSize := dataOffset - metadataStart

	buf := w.Bytes()
	binary.LittleEndian.PutUint32(buf[mdSizeOff:], uint32(metadataSize))
	binary.LittleEndian.PutUint32(buf[fileSizeOff:], uint32(fileSize))
	binary.LittleEndian.PutUint32(buf[dataOffsetOff:], uint32(dataOffset))
	return buf
}

func TestParseV9BigIDEnabledUsesWidePathID(t *testing.T) {
	buf := buildV9BigID(t)
	f, err := Parse("test.assets", buf, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(9), f.Version)
	require.True(t, f.BigIDEnabled)
	require.Len(t, f.Objects, 1)
	require.Equal(t, int64(2002), f.Objects[0].PathID)
	require.Equal(t, int32(1), f.Objects[0].ClassID)

	obj, ok := f.ObjectByPathID(2002)
	require.True(t, ok)
	payload := buf[obj.ByteStart : obj.ByteStart+int64(obj.ByteSize)]
	require.Equal(t, []byte{9, 8, 7, 6}, payload)
}

func TestParseV17(t *testing.T) {
	buf := buildV17(t)
	f, err := Parse("test.assets", buf, Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, uint32(17), f.Version)
	require.False(t, f.BigEndian)
	require.Equal(t, "2021.3.5f1", f.UnityVersion)
	require.Len(t, f.Types, 1)
	require.Equal(t, int32(1), f.Types[0].ClassID)
	require.Len(t, f.Objects, 1)
	require.Equal(t, int64(1001), f.Objects[0].PathID)
	require.Equal(t, int32(1), f.Objects[0].ClassID)
	require.Equal(t, uint32(8), f.Objects[0].ByteSize)

	obj, ok := f.ObjectByPathID(1001)
	require.True(t, ok)
	payload := buf[obj.ByteStart : obj.ByteStart+int64(obj.ByteSize)]
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, payload)
}

func TestParseRejectsTruncated(t *testing.T) {
	_, err := Parse("short", []byte{1, 2, 3}, Options{}, nil)
	require.Error(t, err)
}

func TestParseObjectByPathIDMiss(t *testing.T) {
	buf := buildV17(t)
	f, err := Parse("test.assets", buf, Options{}, nil)
	require.NoError(t, err)
	_, ok := f.ObjectByPathID(9999)
	require.False(t, ok)
}
