package meshdecode

import (
	"fmt"
	"math"

	"github.com/unitygltf/unitygltf/semantic"
	"github.com/unitygltf/unitygltf/uerr"
)

// unpackInts unpacks a PackedBitVector's raw bit-packed data into num_items
// integers of bit_size bits each, LSB-first within each byte.
func unpackInts(pbv semantic.PackedBitVectorRaw) ([]uint32, error) {
	n := int(pbv.NumItems)
	if n < 0 {
		return nil, fmt.Errorf("%w: negative packed vector item count", uerr.ErrMeshUnsupported)
	}
	out := make([]uint32, n)
	if pbv.BitSize == 0 {
		return out, nil
	}
	bitSize := int(pbv.BitSize)
	if uint64(len(pbv.Data))*8 < uint64(bitSize)*uint64(n) {
		return nil, fmt.Errorf("%w: packed vector data too short for %d items at %d bits", uerr.ErrMeshUnsupported, n, bitSize)
	}
	bitPos := 0
	for i := 0; i < n; i++ {
		var v uint32
		for b := 0; b < bitSize; b++ {
			byteIdx := (bitPos + b) / 8
			bitIdx := uint((bitPos + b) % 8)
			if byteIdx >= len(pbv.Data) {
				break
			}
			if pbv.Data[byteIdx]&(1<<bitIdx) != 0 {
				v |= 1 << uint(b)
			}
		}
		out[i] = v
		bitPos += bitSize
	}
	return out, nil
}

// unpackFloats dequantizes a PackedBitVector into floats: value =
// int*range/((1<<bit_size)-1) + start. bit_size==0 returns start repeated.
func unpackFloats(pbv semantic.PackedBitVectorRaw) ([]float32, error) {
	ints, err := unpackInts(pbv)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(ints))
	if pbv.BitSize == 0 {
		for i := range out {
			out[i] = pbv.Start
		}
		return out, nil
	}
	maxVal := float64((uint64(1) << pbv.BitSize) - 1)
	for i, v := range ints {
		out[i] = float32(float64(v)*float64(pbv.Range)/maxVal + float64(pbv.Start))
	}
	return out, nil
}

// reconstructNormalZ recovers the dropped z component of a quantized normal
// stored as only (x, y), negating per the sign bit.
func reconstructNormalZ(x, y float32, signBitSet bool) float32 {
	z := float32(math.Sqrt(math.Max(0, float64(1-x*x-y*y))))
	if !signBitSet {
		z = -z
	}
	return z
}
