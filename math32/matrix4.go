// Package math32 is the small float32 linear-algebra slice mesh skinning
// needs: invert a bind pose and transform a vertex position or normal by
// it. It is not a general-purpose 3D math library — only the operations
// meshdecode's skinning pass exercises are implemented.
package math32

import "errors"

// Matrix4 is a 4x4 column-major matrix: column i occupies m[4*i : 4*i+4],
// the same layout Unity's bind poses and glTF's transform matrices use.
type Matrix4 [16]float32

// NewMatrix4 returns a new identity matrix.
func NewMatrix4() *Matrix4 {
	return &Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromArray loads m's elements from the first 16 entries of a, the layout
// Unity's Mesh.m_BindPose entries arrive in.
func (m *Matrix4) FromArray(a []float32) *Matrix4 {
	copy(m[:], a[:16])
	return m
}

// Copy replaces m's elements with src's.
func (m *Matrix4) Copy(src *Matrix4) *Matrix4 {
	*m = *src
	return m
}

// ClearTranslation zeroes m's translation column, leaving rotation/scale
// untouched. Used to turn a bind-pose inverse into the matrix that
// transforms normals (normals ignore translation).
func (m *Matrix4) ClearTranslation() *Matrix4 {
	m[12], m[13], m[14] = 0, 0, 0
	return m
}

// Invert sets m to the inverse of src using the adjugate/determinant
// method, and returns an error without modifying m when src is singular
// (a degenerate bind pose, which happens on malformed assets).
func (m *Matrix4) Invert(src *Matrix4) error {
	n11, n12, n13, n14 := src[0], src[4], src[8], src[12]
	n21, n22, n23, n24 := src[1], src[5], src[9], src[13]
	n31, n32, n33, n34 := src[2], src[6], src[10], src[14]
	n41, n42, n43, n44 := src[3], src[7], src[11], src[15]

	t11 := n23*n34*n42 - n24*n33*n42 + n24*n32*n43 - n22*n34*n43 - n23*n32*n44 + n22*n33*n44
	t12 := n14*n33*n42 - n13*n34*n42 - n14*n32*n43 + n12*n34*n43 + n13*n32*n44 - n12*n33*n44
	t13 := n13*n24*n42 - n14*n23*n42 + n14*n22*n43 - n12*n24*n43 - n13*n22*n44 + n12*n23*n44
	t14 := n14*n23*n32 - n13*n24*n32 - n14*n22*n33 + n12*n24*n33 + n13*n22*n34 - n12*n23*n34

	det := n11*t11 + n21*t12 + n31*t13 + n41*t14
	if det == 0 {
		return errors.New("math32: singular bind pose matrix")
	}

	inv := Matrix4{
		t11,
		n24*n33*n41 - n23*n34*n41 - n24*n31*n43 + n21*n34*n43 + n23*n31*n44 - n21*n33*n44,
		n22*n34*n41 - n24*n32*n41 + n24*n31*n42 - n21*n34*n42 - n22*n31*n44 + n21*n32*n44,
		n23*n32*n41 - n22*n33*n41 - n23*n31*n42 + n21*n33*n42 + n22*n31*n43 - n21*n32*n43,
		t12,
		n13*n34*n41 - n14*n33*n41 + n14*n31*n43 - n11*n34*n43 - n13*n31*n44 + n11*n33*n44,
		n14*n32*n41 - n12*n34*n41 - n14*n31*n42 + n11*n34*n42 + n12*n31*n44 - n11*n32*n44,
		n12*n33*n41 - n13*n32*n41 + n13*n31*n42 - n11*n33*n42 - n12*n31*n43 + n11*n32*n43,
		t13,
		n14*n23*n41 - n13*n24*n41 - n14*n21*n43 + n11*n24*n43 + n13*n21*n44 - n11*n23*n44,
		n12*n24*n41 - n14*n22*n41 + n14*n21*n42 - n11*n24*n42 - n12*n21*n44 + n11*n22*n44,
		n13*n22*n41 - n12*n23*n41 - n13*n21*n42 + n11*n23*n42 + n12*n21*n43 - n11*n22*n43,
		t14,
		n13*n24*n31 - n14*n23*n31 + n14*n21*n33 - n11*n24*n33 - n13*n21*n34 + n11*n23*n34,
		n14*n22*n31 - n12*n24*n31 - n14*n21*n32 + n11*n24*n32 + n12*n21*n34 - n11*n22*n34,
		n12*n23*n31 - n13*n22*n31 + n13*n21*n32 - n11*n23*n32 - n12*n21*n33 + n11*n22*n33,
	}

	invDet := 1 / det
	for i := range inv {
		inv[i] *= invDet
	}
	*m = inv
	return nil
}
