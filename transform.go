package vmix

import "math"

// Mat4 is a 4x4 matrix stored in column-major order:
//
//	| m[0]  m[4]  m[8]   m[12] |
//	| m[1]  m[5]  m[9]   m[13] |
//	| m[2]  m[6]  m[10]  m[14] |
//	| m[3]  m[7]  m[11]  m[15] |
type Mat4 [16]float64

// Identity4 returns the identity matrix.
func Identity4() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate4 returns a translation matrix.
func Translate4(v Vec3) Mat4 {
	m := Identity4()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale4 returns a scaling matrix.
func Scale4(v Vec3) Mat4 {
	m := Identity4()
	m[0], m[5], m[10] = v.X, v.Y, v.Z
	return m
}

// RotateZ4 returns a counter-clockwise rotation around Z (radians).
func RotateZ4(a float64) Mat4 {
	sin, cos := math.Sincos(a)
	m := Identity4()
	m[0], m[1] = cos, sin
	m[4], m[5] = -sin, cos
	return m
}

// RotateY4 returns a rotation around Y (radians).
func RotateY4(a float64) Mat4 {
	sin, cos := math.Sincos(a)
	m := Identity4()
	m[0], m[2] = cos, -sin
	m[8], m[10] = sin, cos
	return m
}

// RotateX4 returns a rotation around X (radians).
func RotateX4(a float64) Mat4 {
	sin, cos := math.Sincos(a)
	m := Identity4()
	m[5], m[6] = cos, sin
	m[9], m[10] = -sin, cos
	return m
}

// Mul returns m * n.
func (m Mat4) Mul(n Mat4) Mat4 {
	var r Mat4
	for c := 0; c < 4; c++ {
		for row := 0; row < 4; row++ {
			r[c*4+row] = m[row]*n[c*4] + m[4+row]*n[c*4+1] + m[8+row]*n[c*4+2] + m[12+row]*n[c*4+3]
		}
	}
	return r
}

// TransformPoint applies m to the point v (w = 1).
func (m Mat4) TransformPoint(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12],
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13],
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14],
	}
}

// Inverse computes the inverse of m. Returns the identity matrix if m is
// singular (determinant ≈ 0).
func (m Mat4) Inverse() Mat4 {
	var inv Mat4
	inv[0] = m[5]*m[10]*m[15] - m[5]*m[11]*m[14] - m[9]*m[6]*m[15] + m[9]*m[7]*m[14] + m[13]*m[6]*m[11] - m[13]*m[7]*m[10]
	inv[4] = -m[4]*m[10]*m[15] + m[4]*m[11]*m[14] + m[8]*m[6]*m[15] - m[8]*m[7]*m[14] - m[12]*m[6]*m[11] + m[12]*m[7]*m[10]
	inv[8] = m[4]*m[9]*m[15] - m[4]*m[11]*m[13] - m[8]*m[5]*m[15] + m[8]*m[7]*m[13] + m[12]*m[5]*m[11] - m[12]*m[7]*m[9]
	inv[12] = -m[4]*m[9]*m[14] + m[4]*m[10]*m[13] + m[8]*m[5]*m[14] - m[8]*m[6]*m[13] - m[12]*m[5]*m[10] + m[12]*m[6]*m[9]
	inv[1] = -m[1]*m[10]*m[15] + m[1]*m[11]*m[14] + m[9]*m[2]*m[15] - m[9]*m[3]*m[14] - m[13]*m[2]*m[11] + m[13]*m[3]*m[10]
	inv[5] = m[0]*m[10]*m[15] - m[0]*m[11]*m[14] - m[8]*m[2]*m[15] + m[8]*m[3]*m[14] + m[12]*m[2]*m[11] - m[12]*m[3]*m[10]
	inv[9] = -m[0]*m[9]*m[15] + m[0]*m[11]*m[13] + m[8]*m[1]*m[15] - m[8]*m[3]*m[13] - m[12]*m[1]*m[11] + m[12]*m[3]*m[9]
	inv[13] = m[0]*m[9]*m[14] - m[0]*m[10]*m[13] - m[8]*m[1]*m[14] + m[8]*m[2]*m[13] + m[12]*m[1]*m[10] - m[12]*m[2]*m[9]
	inv[2] = m[1]*m[6]*m[15] - m[1]*m[7]*m[14] - m[5]*m[2]*m[15] + m[5]*m[3]*m[14] + m[13]*m[2]*m[7] - m[13]*m[3]*m[6]
	inv[6] = -m[0]*m[6]*m[15] + m[0]*m[7]*m[14] + m[4]*m[2]*m[15] - m[4]*m[3]*m[14] - m[12]*m[2]*m[7] + m[12]*m[3]*m[6]
	inv[10] = m[0]*m[5]*m[15] - m[0]*m[7]*m[13] - m[4]*m[1]*m[15] + m[4]*m[3]*m[13] + m[12]*m[1]*m[7] - m[12]*m[3]*m[5]
	inv[14] = -m[0]*m[5]*m[14] + m[0]*m[6]*m[13] + m[4]*m[1]*m[14] - m[4]*m[2]*m[13] - m[12]*m[1]*m[6] + m[12]*m[2]*m[5]
	inv[3] = -m[1]*m[6]*m[11] + m[1]*m[7]*m[10] + m[5]*m[2]*m[11] - m[5]*m[3]*m[10] - m[9]*m[2]*m[7] + m[9]*m[3]*m[6]
	inv[7] = m[0]*m[6]*m[11] - m[0]*m[7]*m[10] - m[4]*m[2]*m[11] + m[4]*m[3]*m[10] + m[8]*m[2]*m[7] - m[8]*m[3]*m[6]
	inv[11] = -m[0]*m[5]*m[11] + m[0]*m[7]*m[9] + m[4]*m[1]*m[11] - m[4]*m[3]*m[9] - m[8]*m[1]*m[7] + m[8]*m[3]*m[5]
	inv[15] = m[0]*m[5]*m[10] - m[0]*m[6]*m[9] - m[4]*m[1]*m[10] + m[4]*m[2]*m[9] + m[8]*m[1]*m[6] - m[8]*m[2]*m[5]

	det := m[0]*inv[0] + m[1]*inv[4] + m[2]*inv[8] + m[3]*inv[12]
	if det > -1e-12 && det < 1e-12 {
		return Identity4()
	}
	invDet := 1.0 / det
	for i := range inv {
		inv[i] *= invDet
	}
	return inv
}

// TransformNode holds translation, rotation, scale and crop for one
// compositing space, and caches the composed matrix.
//
// The cached matrix is stale after any setter until Update or Compose runs.
type TransformNode struct {
	Translation Vec3
	Rotation    Vec3 // Euler angles in radians; Z is used for 2D rotation
	Scale       Vec3
	Crop        Vec3 // visible half-extents in [0, 1]; X horizontal, Y vertical

	transform Mat4
	dirty     bool
}

// NewTransformNode returns a node with unit scale, full crop and an identity
// transform.
func NewTransformNode() *TransformNode {
	n := &TransformNode{}
	n.Reset()
	return n
}

// Reset restores the default values.
func (n *TransformNode) Reset() {
	n.Translation = Vec3{}
	n.Rotation = Vec3{}
	n.Scale = Vec3{1, 1, 1}
	n.Crop = Vec3{1, 1, 0}
	n.transform = Identity4()
	n.dirty = false
}

// SetTranslation sets the translation and marks the node dirty.
func (n *TransformNode) SetTranslation(v Vec3) {
	n.Translation = v
	n.dirty = true
}

// SetRotation sets the Euler rotation and marks the node dirty.
func (n *TransformNode) SetRotation(v Vec3) {
	n.Rotation = v
	n.dirty = true
}

// SetScale sets the scale and marks the node dirty.
func (n *TransformNode) SetScale(v Vec3) {
	n.Scale = v
	n.dirty = true
}

// SetCrop sets the crop extents and marks the node dirty.
func (n *TransformNode) SetCrop(v Vec3) {
	n.Crop = v
	n.dirty = true
}

// MarkDirty forces recomposition on the next Update. Useful after setting
// fields directly.
func (n *TransformNode) MarkDirty() {
	n.dirty = true
}

// Dirty reports whether the cached transform is stale.
func (n *TransformNode) Dirty() bool {
	return n.dirty
}

// Compose recomputes the cached matrix and returns it.
//
//	transform = Translate * RotateZ * RotateY * RotateX * Scale
func (n *TransformNode) Compose() Mat4 {
	n.transform = Translate4(n.Translation).
		Mul(RotateZ4(n.Rotation.Z)).
		Mul(RotateY4(n.Rotation.Y)).
		Mul(RotateX4(n.Rotation.X)).
		Mul(Scale4(n.Scale))
	n.dirty = false
	return n.transform
}

// Update recomposes the cached matrix if the node is dirty.
func (n *TransformNode) Update() {
	if n.dirty {
		n.Compose()
	}
}

// Transform returns the cached matrix without recomposing it.
func (n *TransformNode) Transform() Mat4 {
	return n.transform
}

// CopyFrom copies every value of other into n, including the cached matrix
// and dirty state.
func (n *TransformNode) CopyFrom(other *TransformNode) {
	*n = *other
}

// Equal reports whether n and other hold the same values.
func (n *TransformNode) Equal(other *TransformNode) bool {
	return n.Translation == other.Translation &&
		n.Rotation == other.Rotation &&
		n.Scale == other.Scale &&
		n.Crop == other.Crop
}
