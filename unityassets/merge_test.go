package unityassets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMergeDecorationReparentsOntoNamedBone(t *testing.T) {
	dstBuf := buildFixture(t, "Head", true)
	dst := mustDecode(t, dstBuf, DecodeOptions{})

	targetID, found := findTransformByGameObjectName(dst.Context, "Head")
	require.True(t, found)

	decorationBuf := buildFixture(t, "Hat", false)

	ok, err := MergeDecoration(dst, decorationBuf, "Head", DecodeOptions{})
	require.NoError(t, err)
	require.True(t, ok)

	require.Len(t, dst.Context.GameObjects, 2)
	require.Len(t, dst.Context.Transforms, 2)

	var hatTransformPathID int64
	found = false
	for _, g := range dst.Context.GameObjects {
		if g.Name == "Hat" {
			for _, tr := range dst.Context.Transforms {
				if tr.GameObject.PathID == g.PathID {
					hatTransformPathID = tr.PathID
					found = true
				}
			}
		}
	}
	require.True(t, found)

	var reparented bool
	for _, tr := range dst.Context.Transforms {
		if tr.PathID == hatTransformPathID {
			require.Equal(t, targetID, tr.Parent.PathID)
			reparented = true
		}
	}
	require.True(t, reparented)
}

func TestMergeDecorationReturnsFalseWhenBoneNotFound(t *testing.T) {
	dstBuf := buildFixture(t, "Cube", true)
	dst := mustDecode(t, dstBuf, DecodeOptions{})

	decorationBuf := buildFixture(t, "Hat", false)

	ok, err := MergeDecoration(dst, decorationBuf, "NoSuchBone", DecodeOptions{})
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, dst.Context.GameObjects, 1) // nothing merged
}
